package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// TestSnapshotRoundtrip ensures a snapshot survives encoding.
func TestSnapshotRoundtrip(t *testing.T) {
	t.Parallel()

	want := &Snapshot{
		AlarmStatus:  domain.PendingAlarm,
		ArmingStatus: domain.ArmedAway,
		CatDetected:  true,
		Sensors: []domain.Sensor{
			{Name: "front", Type: domain.SensorTypeDoor, Active: true},
			{Name: "hall", Type: domain.SensorTypeMotion},
		},
	}

	got, err := SnapshotFromStruct(SnapshotToStruct(want))
	require.NoError(t, err)
	require.Equal(t, want, got)
}

// TestSensorFromStruct_Validation checks the decoder rejects malformed sensors.
func TestSensorFromStruct_Validation(t *testing.T) {
	t.Parallel()

	noName, err := structpb.NewStruct(map[string]any{"type": "DOOR"})
	require.NoError(t, err)

	_, err = SensorFromStruct(noName)
	require.ErrorIs(t, err, ErrMissingField)

	emptyName, err := structpb.NewStruct(map[string]any{"name": "", "type": "DOOR"})
	require.NoError(t, err)

	_, err = SensorFromStruct(emptyName)
	require.ErrorIs(t, err, ErrEmptySensorName)

	badType, err := structpb.NewStruct(map[string]any{"name": "x", "type": "LASER"})
	require.NoError(t, err)

	_, err = SensorFromStruct(badType)
	require.ErrorIs(t, err, domain.ErrUnknownSensorType)

	numericName, err := structpb.NewStruct(map[string]any{"name": 5.0, "type": "DOOR"})
	require.NoError(t, err)

	_, err = SensorFromStruct(numericName)
	require.ErrorIs(t, err, ErrMissingField)

	// Active is optional.
	inactive, err := structpb.NewStruct(map[string]any{"name": "x", "type": "window"})
	require.NoError(t, err)

	sensor, err := SensorFromStruct(inactive)
	require.NoError(t, err)
	require.Equal(t, domain.Sensor{Name: "x", Type: domain.SensorTypeWindow}, sensor)
}

// TestSnapshotFromStruct_BadStatus rejects unknown statuses.
func TestSnapshotFromStruct_BadStatus(t *testing.T) {
	t.Parallel()

	s, err := structpb.NewStruct(map[string]any{"alarm_status": "SIREN", "arming_status": "DISARMED"})
	require.NoError(t, err)

	_, err = SnapshotFromStruct(s)
	require.ErrorIs(t, err, domain.ErrUnknownAlarmStatus)
}

// TestAlarmHistory_Decoding keeps order and rejects malformed entries.
func TestAlarmHistory_Decoding(t *testing.T) {
	t.Parallel()

	changedAt := time.Date(2024, 5, 1, 12, 0, 0, 500, time.UTC)
	history := []domain.AlarmChange{
		{Status: domain.Alarm, ChangedAt: changedAt},
		{Status: domain.PendingAlarm, ChangedAt: changedAt.Add(-time.Minute)},
	}

	list := AlarmHistoryToList(history)
	require.Equal(t, "2024-05-01T12:00:00.0000005Z", list.GetValues()[0].GetStructValue().GetFields()[FieldChangedAt].GetStringValue())

	got, err := AlarmHistoryFromList(list)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, domain.Alarm, got[0].Status)
	require.True(t, changedAt.Equal(got[0].ChangedAt))

	bad, err := structpb.NewList([]any{map[string]any{"alarm_status": "ALARM", "changed_at": "yesterday"}})
	require.NoError(t, err)

	_, err = AlarmHistoryFromList(bad)
	require.Error(t, err)

	missing, err := structpb.NewList([]any{map[string]any{"changed_at": "2024-05-01T12:00:00Z"}})
	require.NoError(t, err)

	_, err = AlarmHistoryFromList(missing)
	require.ErrorIs(t, err, ErrMissingField)
}
