package security

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestAlarmStatusOrder verifies severity ordering of alarm statuses.
func TestAlarmStatusOrder(t *testing.T) {
	t.Parallel()

	require.Less(t, NoAlarm, PendingAlarm)
	require.Less(t, PendingAlarm, Alarm)
	require.False(t, AlarmStatusUnknown.Valid())
}

// TestParseStatuses checks round trips through String and the parse helpers.
func TestParseStatuses(t *testing.T) {
	t.Parallel()

	for _, status := range []AlarmStatus{NoAlarm, PendingAlarm, Alarm} {
		got, err := ParseAlarmStatus(status.String())
		require.NoError(t, err)
		require.Equal(t, status, got)
	}

	for _, status := range []ArmingStatus{Disarmed, ArmedHome, ArmedAway} {
		got, err := ParseArmingStatus(status.String())
		require.NoError(t, err)
		require.Equal(t, status, got)
	}

	got, err := ParseArmingStatus(" armed_home ")
	require.NoError(t, err)
	require.Equal(t, ArmedHome, got)

	_, err = ParseAlarmStatus("SIREN")
	require.ErrorIs(t, err, ErrUnknownAlarmStatus)

	_, err = ParseArmingStatus("")
	require.ErrorIs(t, err, ErrUnknownArmingStatus)

	require.Equal(t, "AlarmStatus(42)", AlarmStatus(42).String())
}

// TestArmingStatusIsArmed checks which modes count as armed.
func TestArmingStatusIsArmed(t *testing.T) {
	t.Parallel()

	require.False(t, Disarmed.IsArmed())
	require.True(t, ArmedHome.IsArmed())
	require.True(t, ArmedAway.IsArmed())
	require.False(t, ArmingStatusUnknown.Valid())
}

// TestAlarmHistoryLimit defaults zero and rejects out-of-range lengths.
func TestAlarmHistoryLimit(t *testing.T) {
	t.Parallel()

	limit, err := AlarmHistoryLimit(0)
	require.NoError(t, err)
	require.Equal(t, DefaultAlarmHistoryLimit, limit)

	limit, err = AlarmHistoryLimit(MaxAlarmHistoryLimit)
	require.NoError(t, err)
	require.Equal(t, MaxAlarmHistoryLimit, limit)

	for _, requested := range []int{-1, MaxAlarmHistoryLimit + 1} {
		_, err = AlarmHistoryLimit(requested)
		require.ErrorIs(t, err, ErrInvalidHistoryLimit)
	}
}
