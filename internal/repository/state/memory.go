package state

import (
	"context"
	"sync"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/wire"
)

// MemoryRepository keeps the controller state in memory.
type MemoryRepository struct {
	// mu protects every field below.
	mu sync.RWMutex
	// alarm is the current alarm status.
	alarm domain.AlarmStatus
	// arming is the current arming status.
	arming domain.ArmingStatus
	// sensors is keyed by sensor identity.
	sensors map[domain.SensorKey]domain.Sensor
}

// NewMemoryRepository creates an empty repository, disarmed and without alarm.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		alarm:   domain.NoAlarm,
		arming:  domain.Disarmed,
		sensors: make(map[domain.SensorKey]domain.Sensor),
	}
}

// AlarmStatus returns the current alarm status.
func (r *MemoryRepository) AlarmStatus(context.Context) (domain.AlarmStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.alarm, nil
}

// SetAlarmStatus stores the alarm status.
func (r *MemoryRepository) SetAlarmStatus(_ context.Context, status domain.AlarmStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.alarm = status

	return nil
}

// ArmingStatus returns the current arming status.
func (r *MemoryRepository) ArmingStatus(context.Context) (domain.ArmingStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.arming, nil
}

// SetArmingStatus stores the arming status.
func (r *MemoryRepository) SetArmingStatus(_ context.Context, status domain.ArmingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.arming = status

	return nil
}

// Sensors returns a sorted copy of the known sensors.
func (r *MemoryRepository) Sensors(context.Context) ([]domain.Sensor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sensorList(), nil
}

// AddSensor stores a sensor, replacing one with the same identity.
func (r *MemoryRepository) AddSensor(_ context.Context, sensor domain.Sensor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sensors[sensor.Key()] = sensor

	return nil
}

// RemoveSensor deletes a sensor by identity.
func (r *MemoryRepository) RemoveSensor(_ context.Context, sensor domain.Sensor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sensors, sensor.Key())

	return nil
}

// UpdateSensor stores the new activation of a sensor.
func (r *MemoryRepository) UpdateSensor(_ context.Context, sensor domain.Sensor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sensors[sensor.Key()] = sensor

	return nil
}

// snapshot copies the state.
func (r *MemoryRepository) snapshot() *wire.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return &wire.Snapshot{
		AlarmStatus:  r.alarm,
		ArmingStatus: r.arming,
		Sensors:      r.sensorList(),
	}
}

// restore replaces the state with snapshot.
func (r *MemoryRepository) restore(snapshot *wire.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.alarm = snapshot.AlarmStatus
	r.arming = snapshot.ArmingStatus
	r.sensors = make(map[domain.SensorKey]domain.Sensor, len(snapshot.Sensors))

	for _, sensor := range snapshot.Sensors {
		r.sensors[sensor.Key()] = sensor
	}
}

// sensorList must be called with mu held.
func (r *MemoryRepository) sensorList() []domain.Sensor {
	sensors := make([]domain.Sensor, 0, len(r.sensors))
	for _, sensor := range r.sensors {
		sensors = append(sensors, sensor)
	}

	return domain.SortSensors(sensors)
}
