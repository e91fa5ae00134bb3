package security

import (
	"context"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// Repository is the durable store of sensors, arming status and alarm status.
type Repository interface {
	AlarmStatus(ctx context.Context) (domain.AlarmStatus, error)
	SetAlarmStatus(ctx context.Context, status domain.AlarmStatus) error
	ArmingStatus(ctx context.Context) (domain.ArmingStatus, error)
	SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error
	Sensors(ctx context.Context) ([]domain.Sensor, error)
	AddSensor(ctx context.Context, sensor domain.Sensor) error
	RemoveSensor(ctx context.Context, sensor domain.Sensor) error
	UpdateSensor(ctx context.Context, sensor domain.Sensor) error
}

// ImageAnalyzer answers whether an image contains the target object
// with at least the given confidence, expressed in percent.
type ImageAnalyzer interface {
	ContainsTarget(ctx context.Context, image []byte, confidenceThreshold float32) (bool, error)
}

// StatusListener receives engine notifications.
//
// Listeners are called synchronously while the engine holds its lock,
// so they must not call back into the engine. Registration is by identity:
// listeners whose dynamic type is not comparable are rejected.
type StatusListener interface {
	AlarmStatusChanged(ctx context.Context, status domain.AlarmStatus)
	CatDetected(ctx context.Context, detected bool)
	SensorStatusChanged(ctx context.Context)
}
