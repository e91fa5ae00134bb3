package security

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/wire"
)

// Client calls the security service and decodes replies to domain types.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient creates a client on top of conn.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{
		conn: conn,
	}
}

// GetStatus returns the status snapshot.
func (c *Client) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*wire.Snapshot, error) {
	return c.invokeSnapshot(ctx, MethodGetStatus, &emptypb.Empty{}, opts...)
}

// SetArmingStatus arms or disarms the system.
func (c *Client) SetArmingStatus(
	ctx context.Context,
	arming domain.ArmingStatus,
	opts ...grpc.CallOption,
) (*wire.Snapshot, error) {
	return c.invokeSnapshot(ctx, MethodSetArmingStatus, wrapperspb.String(arming.String()), opts...)
}

// ListSensors returns all sensors.
func (c *Client) ListSensors(ctx context.Context, opts ...grpc.CallOption) ([]domain.Sensor, error) {
	out := new(structpb.ListValue)
	if err := c.conn.Invoke(ctx, FullMethod(MethodListSensors), &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}

	sensors, err := wire.SensorsFromList(out)
	if err != nil {
		return nil, fmt.Errorf("decode sensors: %w", err)
	}

	return sensors, nil
}

// AddSensor registers sensor.
func (c *Client) AddSensor(ctx context.Context, sensor domain.Sensor, opts ...grpc.CallOption) error {
	return c.conn.Invoke(ctx, FullMethod(MethodAddSensor), wire.SensorToStruct(sensor), new(emptypb.Empty), opts...)
}

// RemoveSensor unregisters sensor.
func (c *Client) RemoveSensor(ctx context.Context, sensor domain.Sensor, opts ...grpc.CallOption) error {
	return c.conn.Invoke(ctx, FullMethod(MethodRemoveSensor), wire.SensorToStruct(sensor), new(emptypb.Empty), opts...)
}

// ChangeSensor sets the activation of sensor to active.
func (c *Client) ChangeSensor(
	ctx context.Context,
	sensor domain.Sensor,
	active bool,
	opts ...grpc.CallOption,
) (*wire.Snapshot, error) {
	sensor.Active = active

	return c.invokeSnapshot(ctx, MethodChangeSensor, wire.SensorToStruct(sensor), opts...)
}

// ProcessImage sends a camera image for analysis.
func (c *Client) ProcessImage(ctx context.Context, image []byte, opts ...grpc.CallOption) (*wire.Snapshot, error) {
	return c.invokeSnapshot(ctx, MethodProcessImage, wrapperspb.Bytes(image), opts...)
}

// GetAlarmHistory returns up to limit alarm status writes, newest first.
func (c *Client) GetAlarmHistory(ctx context.Context, limit int32, opts ...grpc.CallOption) ([]domain.AlarmChange, error) {
	out := new(structpb.ListValue)
	if err := c.conn.Invoke(ctx, FullMethod(MethodGetAlarmHistory), wrapperspb.Int32(limit), out, opts...); err != nil {
		return nil, err
	}

	history, err := wire.AlarmHistoryFromList(out)
	if err != nil {
		return nil, fmt.Errorf("decode alarm history: %w", err)
	}

	return history, nil
}

func (c *Client) invokeSnapshot(
	ctx context.Context,
	method string,
	in any,
	opts ...grpc.CallOption,
) (*wire.Snapshot, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}

	snapshot, err := wire.SnapshotFromStruct(out)
	if err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}

	return snapshot, nil
}
