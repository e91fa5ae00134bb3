package notify

import (
	"context"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
)

// LogListener writes every notification to the context logger.
type LogListener struct{}

// NewLogListener creates a LogListener.
func NewLogListener() *LogListener {
	return &LogListener{}
}

// AlarmStatusChanged logs the new alarm status.
func (*LogListener) AlarmStatusChanged(ctx context.Context, status domain.AlarmStatus) {
	if status == domain.Alarm {
		logger.WarnKV(ctx, "ALARM triggered", "alarm_status", status.String())
		return
	}

	logger.InfoKV(ctx, "Alarm status", "alarm_status", status.String())
}

// CatDetected logs the latest image result.
func (*LogListener) CatDetected(ctx context.Context, detected bool) {
	logger.InfoKV(ctx, "Image analyzed", "cat_detected", detected)
}

// SensorStatusChanged logs that sensors changed.
func (*LogListener) SensorStatusChanged(ctx context.Context) {
	logger.Debug(ctx, "Sensors changed")
}
