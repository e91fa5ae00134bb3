package security

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// mockRepository is a testify mock of Repository.
type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) AlarmStatus(ctx context.Context) (domain.AlarmStatus, error) {
	args := m.Called(ctx)

	return args.Get(0).(domain.AlarmStatus), args.Error(1) //nolint:forcetypeassert // Test double.
}

func (m *mockRepository) SetAlarmStatus(ctx context.Context, status domain.AlarmStatus) error {
	return m.Called(ctx, status).Error(0)
}

func (m *mockRepository) ArmingStatus(ctx context.Context) (domain.ArmingStatus, error) {
	args := m.Called(ctx)

	return args.Get(0).(domain.ArmingStatus), args.Error(1) //nolint:forcetypeassert // Test double.
}

func (m *mockRepository) SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error {
	return m.Called(ctx, status).Error(0)
}

func (m *mockRepository) Sensors(ctx context.Context) ([]domain.Sensor, error) {
	args := m.Called(ctx)

	sensors, _ := args.Get(0).([]domain.Sensor)

	return sensors, args.Error(1)
}

func (m *mockRepository) AddSensor(ctx context.Context, sensor domain.Sensor) error {
	return m.Called(ctx, sensor).Error(0)
}

func (m *mockRepository) RemoveSensor(ctx context.Context, sensor domain.Sensor) error {
	return m.Called(ctx, sensor).Error(0)
}

func (m *mockRepository) UpdateSensor(ctx context.Context, sensor domain.Sensor) error {
	return m.Called(ctx, sensor).Error(0)
}

// mockAnalyzer is a testify mock of ImageAnalyzer.
type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) ContainsTarget(ctx context.Context, image []byte, threshold float32) (bool, error) {
	args := m.Called(ctx, image, threshold)

	return args.Bool(0), args.Error(1)
}

// recordingListener stores every notification it receives.
type recordingListener struct {
	mu             sync.Mutex
	alarmStatuses  []domain.AlarmStatus
	catDetections  []bool
	sensorsChanged int
}

func (r *recordingListener) AlarmStatusChanged(_ context.Context, status domain.AlarmStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.alarmStatuses = append(r.alarmStatuses, status)
}

func (r *recordingListener) CatDetected(_ context.Context, detected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.catDetections = append(r.catDetections, detected)
}

func (r *recordingListener) SensorStatusChanged(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sensorsChanged++
}
