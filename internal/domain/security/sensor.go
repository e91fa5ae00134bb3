package security

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// SensorType is the kind of detector.
type SensorType int

const (
	// SensorTypeUnknown is the zero value and never a valid sensor type.
	SensorTypeUnknown SensorType = iota
	// SensorTypeDoor is a door contact.
	SensorTypeDoor
	// SensorTypeWindow is a window contact.
	SensorTypeWindow
	// SensorTypeMotion is a motion detector.
	SensorTypeMotion
)

// ErrUnknownSensorType is returned when a string names no sensor type.
var ErrUnknownSensorType = errors.New("unknown sensor type")

//nolint:gochecknoglobals // Lookup table for enum names.
var sensorTypeNames = map[SensorType]string{
	SensorTypeDoor:   "DOOR",
	SensorTypeWindow: "WINDOW",
	SensorTypeMotion: "MOTION",
}

// Valid reports whether t is one of the declared sensor types.
func (t SensorType) Valid() bool {
	_, ok := sensorTypeNames[t]

	return ok
}

// String returns the canonical upper-case name.
func (t SensorType) String() string {
	if name, ok := sensorTypeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("SensorType(%d)", int(t))
}

// ParseSensorType converts a canonical name (case-insensitive) to a SensorType.
func ParseSensorType(s string) (SensorType, error) {
	needle := strings.ToUpper(strings.TrimSpace(s))

	for sensorType, name := range sensorTypeNames {
		if name == needle {
			return sensorType, nil
		}
	}

	return SensorTypeUnknown, fmt.Errorf("%w: %q", ErrUnknownSensorType, s)
}

// SensorKey is the identity of a sensor.
type SensorKey struct {
	// Name is the human readable sensor name.
	Name string
	// Type is the detector kind.
	Type SensorType
}

// Sensor is a binary detector reporting active or inactive.
type Sensor struct {
	// Name is the human readable sensor name.
	Name string
	// Type is the detector kind.
	Type SensorType
	// Active indicates whether the detector is currently tripped.
	Active bool
}

// Key returns the identity of the sensor. Two sensors with the same name
// and type are the same sensor regardless of their activation.
func (s Sensor) Key() SensorKey {
	return SensorKey{
		Name: s.Name,
		Type: s.Type,
	}
}

// Compare orders sensors by name and then by type.
func (s Sensor) Compare(other Sensor) int {
	if c := strings.Compare(s.Name, other.Name); c != 0 {
		return c
	}

	switch {
	case s.Type < other.Type:
		return -1
	case s.Type > other.Type:
		return 1
	default:
		return 0
	}
}

// String renders the sensor for logs.
func (s Sensor) String() string {
	return fmt.Sprintf("%s/%s(active=%t)", s.Name, s.Type, s.Active)
}

// SortSensors returns a new slice ordered by identity with duplicates removed.
// When several entries share an identity, the last one wins.
func SortSensors(sensors []Sensor) []Sensor {
	byKey := make(map[SensorKey]Sensor, len(sensors))
	for _, sensor := range sensors {
		byKey[sensor.Key()] = sensor
	}

	result := make([]Sensor, 0, len(byKey))
	for _, sensor := range byKey {
		result = append(result, sensor)
	}

	slices.SortFunc(result, Sensor.Compare)

	return result
}

// AnyActive reports whether at least one sensor is active.
func AnyActive(sensors []Sensor) bool {
	return slices.ContainsFunc(sensors, func(s Sensor) bool { return s.Active })
}

// SensorChange is an activation edge of a single sensor.
// Previous is the activation before the change, Next is the requested one.
type SensorChange struct {
	Sensor   Sensor
	Previous bool
	Next     bool
}
