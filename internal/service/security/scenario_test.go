package security

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/repository/state"
)

// newMemoryEngine builds an engine over a real in-memory repository.
func newMemoryEngine(t *testing.T, sensors ...domain.Sensor) (*Engine, *state.MemoryRepository, *mockAnalyzer) {
	t.Helper()

	var (
		repo     = state.NewMemoryRepository()
		analyzer = new(mockAnalyzer)
	)

	for _, sensor := range sensors {
		require.NoError(t, repo.AddSensor(context.Background(), sensor))
	}

	engine, err := NewEngine(repo, analyzer)
	require.NoError(t, err)

	return engine, repo, analyzer
}

// TestScenario_ArmingLeavesSensorsInactive arms a disarmed system with tripped sensors.
func TestScenario_ArmingLeavesSensorsInactive(t *testing.T) {
	t.Parallel()

	for _, arming := range []domain.ArmingStatus{domain.ArmedHome, domain.ArmedAway} {
		t.Run(arming.String(), func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			engine, _, _ := newMemoryEngine(t,
				domain.Sensor{Name: "front", Type: domain.SensorTypeDoor, Active: true},
				domain.Sensor{Name: "hall", Type: domain.SensorTypeMotion, Active: true},
				domain.Sensor{Name: "bath", Type: domain.SensorTypeWindow},
			)

			require.NoError(t, engine.SetArmingStatus(ctx, arming))

			sensors, err := engine.Sensors(ctx)
			require.NoError(t, err)
			require.False(t, domain.AnyActive(sensors))
			require.Len(t, sensors, 3)

			status, err := engine.ArmingStatus(ctx)
			require.NoError(t, err)
			require.Equal(t, arming, status)

			alarm, err := engine.AlarmStatus(ctx)
			require.NoError(t, err)
			require.Equal(t, domain.NoAlarm, alarm)
		})
	}
}

// TestScenario_CatSeenThenArmedHome raises the alarm when arming with a cat on camera.
func TestScenario_CatSeenThenArmedHome(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	engine, _, analyzer := newMemoryEngine(t, domain.Sensor{Name: "front", Type: domain.SensorTypeDoor})
	analyzer.On("ContainsTarget", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)

	// Disarmed: the cat alone changes nothing.
	require.NoError(t, engine.ProcessImage(ctx, []byte("cat")))

	alarm, err := engine.AlarmStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.NoAlarm, alarm)

	require.NoError(t, engine.SetArmingStatus(ctx, domain.ArmedHome))

	alarm, err = engine.AlarmStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.Alarm, alarm)

	// Disarming always clears.
	require.NoError(t, engine.SetArmingStatus(ctx, domain.Disarmed))

	alarm, err = engine.AlarmStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.NoAlarm, alarm)
}

// TestScenario_IntrusionLifecycle walks through pending, alarm and recovery.
func TestScenario_IntrusionLifecycle(t *testing.T) {
	t.Parallel()

	var (
		ctx      = context.Background()
		door     = domain.Sensor{Name: "front", Type: domain.SensorTypeDoor}
		window   = domain.Sensor{Name: "bath", Type: domain.SensorTypeWindow}
		listener = new(recordingListener)
	)

	engine, _, analyzer := newMemoryEngine(t, door, window)
	require.NoError(t, engine.AddStatusListener(listener))

	require.NoError(t, engine.SetArmingStatus(ctx, domain.ArmedAway))

	require.NoError(t, engine.ChangeSensorActivation(ctx, door, true))
	requireAlarm(t, engine, domain.PendingAlarm)

	// Closing the only open sensor recovers.
	require.NoError(t, engine.ChangeSensorActivation(ctx, door, false))
	requireAlarm(t, engine, domain.NoAlarm)

	require.NoError(t, engine.ChangeSensorActivation(ctx, door, true))
	require.NoError(t, engine.ChangeSensorActivation(ctx, window, true))
	requireAlarm(t, engine, domain.Alarm)

	// Sticky while armed.
	require.NoError(t, engine.ChangeSensorActivation(ctx, door, false))
	require.NoError(t, engine.ChangeSensorActivation(ctx, window, false))
	requireAlarm(t, engine, domain.Alarm)

	// No cat and every sensor closed clears the alarm.
	analyzer.On("ContainsTarget", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	require.NoError(t, engine.ProcessImage(ctx, []byte("empty room")))
	requireAlarm(t, engine, domain.NoAlarm)

	require.Equal(t, []domain.AlarmStatus{
		domain.PendingAlarm,
		domain.NoAlarm,
		domain.PendingAlarm,
		domain.Alarm,
		domain.NoAlarm,
	}, listener.alarmStatuses)
	require.Equal(t, []bool{false}, listener.catDetections)
	require.Equal(t, 1, listener.sensorsChanged)
}

// TestStatus_ReadsWholeState returns alarm, arming, cat flag and sorted sensors together.
func TestStatus_ReadsWholeState(t *testing.T) {
	t.Parallel()

	window := domain.Sensor{Name: "bath", Type: domain.SensorTypeWindow, Active: true}
	door := domain.Sensor{Name: "attic", Type: domain.SensorTypeDoor}

	engine, _, analyzer := newMemoryEngine(t, window, door)
	analyzer.On("ContainsTarget", mock.Anything, mock.Anything, mock.Anything).Return(true, nil).Once()

	ctx := context.Background()
	require.NoError(t, engine.ProcessImage(ctx, []byte("cat")))

	status, err := engine.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, Status{
		AlarmStatus:  domain.NoAlarm,
		ArmingStatus: domain.Disarmed,
		CatDetected:  true,
		Sensors:      []domain.Sensor{door, window},
	}, status)
}

func requireAlarm(t *testing.T, engine *Engine, want domain.AlarmStatus) {
	t.Helper()

	got, err := engine.AlarmStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

// TestScenario_DisarmedAlarmStickyUntilExplicitRecovery keeps a leftover alarm on
// sensor changes and only steps it down through an explicit edge.
func TestScenario_DisarmedAlarmStickyUntilExplicitRecovery(t *testing.T) {
	t.Parallel()

	var (
		ctx  = context.Background()
		door = domain.Sensor{Name: "front", Type: domain.SensorTypeDoor, Active: true}
	)

	engine, repo, _ := newMemoryEngine(t, door)
	require.NoError(t, repo.SetAlarmStatus(ctx, domain.Alarm))

	require.NoError(t, engine.ChangeSensorActivation(ctx, door, false))
	requireAlarm(t, engine, domain.Alarm)

	sensors, err := engine.Sensors(ctx)
	require.NoError(t, err)
	require.False(t, sensors[0].Active)

	closed := door
	closed.Active = false

	change := domain.SensorChange{Sensor: closed, Previous: true, Next: false}
	require.NoError(t, engine.ApplySensorChange(ctx, change))
	requireAlarm(t, engine, domain.PendingAlarm)
}
