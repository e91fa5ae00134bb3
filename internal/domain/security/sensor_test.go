package security

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSortSensors verifies stable ordering by identity and de-duplication.
func TestSortSensors(t *testing.T) {
	t.Parallel()

	sensors := []Sensor{
		{Name: "kitchen", Type: SensorTypeWindow},
		{Name: "front", Type: SensorTypeDoor},
		{Name: "kitchen", Type: SensorTypeDoor},
		{Name: "front", Type: SensorTypeDoor, Active: true},
	}

	got := SortSensors(sensors)

	require.Equal(t, []Sensor{
		{Name: "front", Type: SensorTypeDoor, Active: true},
		{Name: "kitchen", Type: SensorTypeDoor},
		{Name: "kitchen", Type: SensorTypeWindow},
	}, got)

	// Input is untouched.
	require.Equal(t, "kitchen", sensors[0].Name)
	require.Empty(t, SortSensors(nil))
}

// TestSensorKey ensures activation does not take part in identity.
func TestSensorKey(t *testing.T) {
	t.Parallel()

	a := Sensor{Name: "hall", Type: SensorTypeMotion}
	b := Sensor{Name: "hall", Type: SensorTypeMotion, Active: true}

	require.Equal(t, a.Key(), b.Key())
	require.Zero(t, a.Compare(b))
	require.NotEqual(t, a.Key(), Sensor{Name: "hall", Type: SensorTypeDoor}.Key())
}

// TestParseSensorType checks canonical names and the unknown case.
func TestParseSensorType(t *testing.T) {
	t.Parallel()

	got, err := ParseSensorType("motion")
	require.NoError(t, err)
	require.Equal(t, SensorTypeMotion, got)

	_, err = ParseSensorType("laser")
	require.ErrorIs(t, err, ErrUnknownSensorType)
}

// TestAnyActive checks detection of at least one active sensor.
func TestAnyActive(t *testing.T) {
	t.Parallel()

	require.False(t, AnyActive(nil))
	require.False(t, AnyActive([]Sensor{{Name: "a"}, {Name: "b"}}))
	require.True(t, AnyActive([]Sensor{{Name: "a"}, {Name: "b", Active: true}}))
}
