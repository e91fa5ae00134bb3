package wire

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// Field names of the documents.
const (
	FieldName         = "name"
	FieldType         = "type"
	FieldActive       = "active"
	FieldAlarmStatus  = "alarm_status"
	FieldArmingStatus = "arming_status"
	FieldCatDetected  = "cat_detected"
	FieldSensors      = "sensors"
	FieldChangedAt    = "changed_at"
)

var (
	// ErrMissingField is returned when a required field is absent or has the wrong kind.
	ErrMissingField = errors.New("missing field")
	// ErrEmptySensorName is returned for sensors without a name.
	ErrEmptySensorName = errors.New("sensor name must not be empty")
)

// Snapshot is the externally visible state of the controller.
type Snapshot struct {
	AlarmStatus  domain.AlarmStatus
	ArmingStatus domain.ArmingStatus
	CatDetected  bool
	Sensors      []domain.Sensor
}

// SensorToStruct encodes a sensor.
func SensorToStruct(sensor domain.Sensor) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldName:   structpb.NewStringValue(sensor.Name),
			FieldType:   structpb.NewStringValue(sensor.Type.String()),
			FieldActive: structpb.NewBoolValue(sensor.Active),
		},
	}
}

// SensorFromStruct decodes a sensor. The active field is optional and defaults to false.
func SensorFromStruct(s *structpb.Struct) (domain.Sensor, error) {
	name, err := stringField(s, FieldName)
	if err != nil {
		return domain.Sensor{}, err
	}

	if name == "" {
		return domain.Sensor{}, ErrEmptySensorName
	}

	rawType, err := stringField(s, FieldType)
	if err != nil {
		return domain.Sensor{}, err
	}

	sensorType, err := domain.ParseSensorType(rawType)
	if err != nil {
		return domain.Sensor{}, err
	}

	return domain.Sensor{
		Name:   name,
		Type:   sensorType,
		Active: s.GetFields()[FieldActive].GetBoolValue(),
	}, nil
}

// SensorsToList encodes sensors preserving order.
func SensorsToList(sensors []domain.Sensor) *structpb.ListValue {
	values := make([]*structpb.Value, 0, len(sensors))
	for _, sensor := range sensors {
		values = append(values, structpb.NewStructValue(SensorToStruct(sensor)))
	}

	return &structpb.ListValue{Values: values}
}

// SensorsFromList decodes sensors preserving order.
func SensorsFromList(list *structpb.ListValue) ([]domain.Sensor, error) {
	sensors := make([]domain.Sensor, 0, len(list.GetValues()))

	for i, value := range list.GetValues() {
		sensor, err := SensorFromStruct(value.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("sensor #%d: %w", i, err)
		}

		sensors = append(sensors, sensor)
	}

	return sensors, nil
}

// SnapshotToStruct encodes a snapshot.
func SnapshotToStruct(snapshot *Snapshot) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldAlarmStatus:  structpb.NewStringValue(snapshot.AlarmStatus.String()),
			FieldArmingStatus: structpb.NewStringValue(snapshot.ArmingStatus.String()),
			FieldCatDetected:  structpb.NewBoolValue(snapshot.CatDetected),
			FieldSensors:      structpb.NewListValue(SensorsToList(snapshot.Sensors)),
		},
	}
}

// SnapshotFromStruct decodes a snapshot. Missing sensors decode to an empty list.
func SnapshotFromStruct(s *structpb.Struct) (*Snapshot, error) {
	rawAlarm, err := stringField(s, FieldAlarmStatus)
	if err != nil {
		return nil, err
	}

	alarm, err := domain.ParseAlarmStatus(rawAlarm)
	if err != nil {
		return nil, err
	}

	rawArming, err := stringField(s, FieldArmingStatus)
	if err != nil {
		return nil, err
	}

	arming, err := domain.ParseArmingStatus(rawArming)
	if err != nil {
		return nil, err
	}

	sensors, err := SensorsFromList(s.GetFields()[FieldSensors].GetListValue())
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		AlarmStatus:  alarm,
		ArmingStatus: arming,
		CatDetected:  s.GetFields()[FieldCatDetected].GetBoolValue(),
		Sensors:      sensors,
	}, nil
}

// stringField returns a required string field.
func stringField(s *structpb.Struct, name string) (string, error) {
	value, ok := s.GetFields()[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingField, name)
	}

	str, ok := value.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %s is not a string", ErrMissingField, name)
	}

	return str.StringValue, nil
}

// AlarmHistoryToList encodes alarm changes preserving order. Times are RFC 3339 in UTC.
func AlarmHistoryToList(history []domain.AlarmChange) *structpb.ListValue {
	values := make([]*structpb.Value, 0, len(history))
	for _, change := range history {
		values = append(values, structpb.NewStructValue(&structpb.Struct{
			Fields: map[string]*structpb.Value{
				FieldAlarmStatus: structpb.NewStringValue(change.Status.String()),
				FieldChangedAt:   structpb.NewStringValue(change.ChangedAt.UTC().Format(time.RFC3339Nano)),
			},
		}))
	}

	return &structpb.ListValue{Values: values}
}

// AlarmHistoryFromList decodes alarm changes preserving order.
func AlarmHistoryFromList(list *structpb.ListValue) ([]domain.AlarmChange, error) {
	history := make([]domain.AlarmChange, 0, len(list.GetValues()))

	for i, value := range list.GetValues() {
		change, err := alarmChangeFromStruct(value.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("alarm change #%d: %w", i, err)
		}

		history = append(history, change)
	}

	return history, nil
}

func alarmChangeFromStruct(s *structpb.Struct) (domain.AlarmChange, error) {
	rawStatus, err := stringField(s, FieldAlarmStatus)
	if err != nil {
		return domain.AlarmChange{}, err
	}

	status, err := domain.ParseAlarmStatus(rawStatus)
	if err != nil {
		return domain.AlarmChange{}, err
	}

	rawTime, err := stringField(s, FieldChangedAt)
	if err != nil {
		return domain.AlarmChange{}, err
	}

	changedAt, err := time.Parse(time.RFC3339Nano, rawTime)
	if err != nil {
		return domain.AlarmChange{}, fmt.Errorf("parse %s: %w", FieldChangedAt, err)
	}

	return domain.AlarmChange{Status: status, ChangedAt: changedAt}, nil
}
