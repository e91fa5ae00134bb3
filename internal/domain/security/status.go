package security

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ArmingStatus describes whether the system is disarmed or armed in home or away mode.
type ArmingStatus int

const (
	// ArmingStatusUnknown is the zero value and never a valid arming status.
	ArmingStatusUnknown ArmingStatus = iota
	// Disarmed means sensors never raise the alarm.
	Disarmed
	// ArmedHome is the partial mode used while somebody is at home.
	ArmedHome
	// ArmedAway is the full mode used while nobody is at home.
	ArmedAway
)

// AlarmStatus is the severity of the current intrusion condition.
// Valid values are ordered: NoAlarm < PendingAlarm < Alarm.
type AlarmStatus int

const (
	// AlarmStatusUnknown is the zero value and never a valid alarm status.
	AlarmStatusUnknown AlarmStatus = iota
	// NoAlarm means there is nothing to report.
	NoAlarm
	// PendingAlarm means a sensor tripped and the alarm waits for confirmation.
	PendingAlarm
	// Alarm means the alarm is fully triggered.
	Alarm
)

var (
	// ErrUnknownArmingStatus is returned when a string names no arming status.
	ErrUnknownArmingStatus = errors.New("unknown arming status")
	// ErrUnknownAlarmStatus is returned when a string names no alarm status.
	ErrUnknownAlarmStatus = errors.New("unknown alarm status")
)

//nolint:gochecknoglobals // Lookup tables for enum names.
var (
	armingStatusNames = map[ArmingStatus]string{
		Disarmed:  "DISARMED",
		ArmedHome: "ARMED_HOME",
		ArmedAway: "ARMED_AWAY",
	}
	alarmStatusNames = map[AlarmStatus]string{
		NoAlarm:      "NO_ALARM",
		PendingAlarm: "PENDING_ALARM",
		Alarm:        "ALARM",
	}
)

// Valid reports whether s is one of the declared arming statuses.
func (s ArmingStatus) Valid() bool {
	_, ok := armingStatusNames[s]

	return ok
}

// IsArmed reports whether s is one of the armed modes.
func (s ArmingStatus) IsArmed() bool {
	return s == ArmedHome || s == ArmedAway
}

// String returns the canonical upper-case name.
func (s ArmingStatus) String() string {
	if name, ok := armingStatusNames[s]; ok {
		return name
	}

	return fmt.Sprintf("ArmingStatus(%d)", int(s))
}

// ParseArmingStatus converts a canonical name (case-insensitive) to an ArmingStatus.
func ParseArmingStatus(s string) (ArmingStatus, error) {
	needle := strings.ToUpper(strings.TrimSpace(s))

	for status, name := range armingStatusNames {
		if name == needle {
			return status, nil
		}
	}

	return ArmingStatusUnknown, fmt.Errorf("%w: %q", ErrUnknownArmingStatus, s)
}

// Valid reports whether s is one of the declared alarm statuses.
func (s AlarmStatus) Valid() bool {
	_, ok := alarmStatusNames[s]

	return ok
}

// String returns the canonical upper-case name.
func (s AlarmStatus) String() string {
	if name, ok := alarmStatusNames[s]; ok {
		return name
	}

	return fmt.Sprintf("AlarmStatus(%d)", int(s))
}

// ParseAlarmStatus converts a canonical name (case-insensitive) to an AlarmStatus.
func ParseAlarmStatus(s string) (AlarmStatus, error) {
	needle := strings.ToUpper(strings.TrimSpace(s))

	for status, name := range alarmStatusNames {
		if name == needle {
			return status, nil
		}
	}

	return AlarmStatusUnknown, fmt.Errorf("%w: %q", ErrUnknownAlarmStatus, s)
}

// AlarmChange is one recorded alarm status write.
type AlarmChange struct {
	// Status is the written alarm status.
	Status AlarmStatus
	// ChangedAt is when the write happened, in UTC.
	ChangedAt time.Time
}

const (
	// DefaultAlarmHistoryLimit is used when a caller asks for no particular length.
	DefaultAlarmHistoryLimit = 20
	// MaxAlarmHistoryLimit caps one history read.
	MaxAlarmHistoryLimit = 1000
)

// ErrInvalidHistoryLimit is returned for negative or too large history lengths.
var ErrInvalidHistoryLimit = errors.New("invalid alarm history limit")

// AlarmHistoryLimit resolves a requested history length: zero means the default.
func AlarmHistoryLimit(requested int) (int, error) {
	switch {
	case requested == 0:
		return DefaultAlarmHistoryLimit, nil
	case requested < 0 || requested > MaxAlarmHistoryLimit:
		return 0, fmt.Errorf("%w: %d not within [0, %d]", ErrInvalidHistoryLimit, requested, MaxAlarmHistoryLimit)
	default:
		return requested, nil
	}
}
