package notify

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// EventType names a notification kind.
type EventType string

const (
	// EventAlarmStatusChanged is emitted for every alarm status write.
	EventAlarmStatusChanged EventType = "alarm_status_changed"
	// EventCatDetected is emitted after every image analysis.
	EventCatDetected EventType = "cat_detected"
	// EventSensorsChanged is emitted when the sensor set or a sensor state changes.
	EventSensorsChanged EventType = "sensors_changed"
)

// Event is the JSON envelope published to brokers.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	OccurredAt  time.Time `json:"occurred_at"`
	AlarmStatus string    `json:"alarm_status,omitempty"`
	CatDetected *bool     `json:"cat_detected,omitempty"`
}

// Clock returns the current time.
type Clock func() time.Time

func newEvent(now Clock, eventType EventType) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: now().UTC(),
	}
}

func alarmEvent(now Clock, status domain.AlarmStatus) Event {
	e := newEvent(now, EventAlarmStatusChanged)
	e.AlarmStatus = status.String()

	return e
}

func catEvent(now Clock, detected bool) Event {
	e := newEvent(now, EventCatDetected)
	e.CatDetected = &detected

	return e
}

// Encode marshals e to JSON.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
