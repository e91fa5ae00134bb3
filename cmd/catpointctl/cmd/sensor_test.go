package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// TestParseArmMode accepts home and away in any case.
func TestParseArmMode(t *testing.T) {
	t.Parallel()

	got, err := parseArmMode("HOME")
	require.NoError(t, err)
	require.Equal(t, domain.ArmedHome, got)

	got, err = parseArmMode("away")
	require.NoError(t, err)
	require.Equal(t, domain.ArmedAway, got)

	_, err = parseArmMode("disarmed")
	require.ErrorIs(t, err, errUnknownArmMode)
}

// TestParseSensorArgs validates the sensor type.
func TestParseSensorArgs(t *testing.T) {
	t.Parallel()

	got, err := parseSensorArgs([]string{"front door", "door"})
	require.NoError(t, err)
	require.Equal(t, domain.Sensor{Name: "front door", Type: domain.SensorTypeDoor}, got)

	_, err = parseSensorArgs([]string{"x", "laser"})
	require.ErrorIs(t, err, domain.ErrUnknownSensorType)
}

// TestCommandTree registers every subcommand.
func TestCommandTree(t *testing.T) {
	t.Parallel()

	for _, path := range [][]string{
		{"status"},
		{"arm"},
		{"disarm"},
		{"sensor", "list"},
		{"sensor", "add"},
		{"sensor", "remove"},
		{"sensor", "activate"},
		{"sensor", "deactivate"},
		{"image", "scan"},
		{"history"},
	} {
		found, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		require.Equal(t, path[len(path)-1], found.Name())
	}
}
