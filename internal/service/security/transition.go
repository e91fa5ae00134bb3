package security

import (
	"context"
	"fmt"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
)

// The helpers below expect e.mu to be held.

// applySensorChange runs the alarm rules for one sensor edge and stores the sensor.
// An Alarm is sticky. With recovery set it steps down when the system is
// disarmed and the sensor goes from active to inactive.
func (e *Engine) applySensorChange(
	ctx context.Context,
	change domain.SensorChange,
	arming domain.ArmingStatus,
	recovery bool,
) error {
	current, err := e.currentAlarmStatus(ctx)
	if err != nil {
		return err
	}

	switch {
	case current == domain.Alarm:
		if recovery && arming == domain.Disarmed && change.Previous && !change.Next {
			err = e.handleSensorDeactivated(ctx, current)
		}
	case change.Next:
		err = e.handleSensorActivated(ctx, current, arming)
	case change.Previous:
		err = e.handleSensorDeactivated(ctx, current)
	}

	if err != nil {
		return err
	}

	sensor := change.Sensor
	sensor.Active = change.Next

	if err = e.repo.UpdateSensor(ctx, sensor); err != nil {
		return fmt.Errorf("update sensor %s: %w", sensor.Name, err)
	}

	return nil
}

// handleSensorActivated escalates the alarm by one step unless the system is disarmed.
func (e *Engine) handleSensorActivated(ctx context.Context, current domain.AlarmStatus, arming domain.ArmingStatus) error {
	if arming == domain.Disarmed {
		return nil
	}

	switch current {
	case domain.NoAlarm:
		return e.setAlarmStatus(ctx, domain.PendingAlarm)
	case domain.PendingAlarm, domain.Alarm:
		return e.setAlarmStatus(ctx, domain.Alarm)
	default:
		panic(fmt.Sprintf("unexpected alarm status: %s", current))
	}
}

// handleSensorDeactivated lowers the alarm by one step.
func (e *Engine) handleSensorDeactivated(ctx context.Context, current domain.AlarmStatus) error {
	switch current {
	case domain.PendingAlarm, domain.NoAlarm:
		return e.setAlarmStatus(ctx, domain.NoAlarm)
	case domain.Alarm:
		return e.setAlarmStatus(ctx, domain.PendingAlarm)
	default:
		panic(fmt.Sprintf("unexpected alarm status: %s", current))
	}
}

// handleCatDetected records the analyzer result and applies the cat rules.
func (e *Engine) handleCatDetected(ctx context.Context, detected bool) error {
	e.catDetected = detected

	logger.DebugKV(ctx, "Image analyzed", "cat_detected", detected)

	if detected {
		arming, err := e.repo.ArmingStatus(ctx)
		if err != nil {
			return fmt.Errorf("get arming status: %w", err)
		}

		if arming == domain.ArmedHome {
			if err = e.setAlarmStatus(ctx, domain.Alarm); err != nil {
				return err
			}
		}
	} else {
		sensors, err := e.repo.Sensors(ctx)
		if err != nil {
			return fmt.Errorf("list sensors: %w", err)
		}

		if !domain.AnyActive(sensors) {
			if err = e.setAlarmStatus(ctx, domain.NoAlarm); err != nil {
				return err
			}
		}
	}

	e.listeners.catDetected(ctx, detected)

	return nil
}

// setAlarmStatus is the single place where the alarm status is written.
func (e *Engine) setAlarmStatus(ctx context.Context, status domain.AlarmStatus) error {
	if err := e.repo.SetAlarmStatus(ctx, status); err != nil {
		return fmt.Errorf("persist alarm status: %w", err)
	}

	logger.InfoKV(ctx, "Alarm status changed", "alarm_status", status.String())

	e.listeners.alarmStatusChanged(ctx, status)

	return nil
}

// currentAlarmStatus reads the alarm status and panics on values outside the enum.
func (e *Engine) currentAlarmStatus(ctx context.Context) (domain.AlarmStatus, error) {
	status, err := e.repo.AlarmStatus(ctx)
	if err != nil {
		return domain.AlarmStatusUnknown, fmt.Errorf("get alarm status: %w", err)
	}

	if !status.Valid() {
		panic(fmt.Sprintf("unexpected alarm status: %s", status))
	}

	return status, nil
}
