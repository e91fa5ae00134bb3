package security

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
	engine "github.com/oshokin/catpoint/internal/service/security"
	"github.com/oshokin/catpoint/internal/wire"
)

const (
	// MaxImageSize caps the accepted camera image.
	MaxImageSize = 8 << 20
	// MaxMessageSize is the transport limit: the largest image plus its envelope.
	MaxMessageSize = MaxImageSize + 1<<10
)

// ServerOptions returns the options every catpoint gRPC server needs.
func ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{grpc.MaxRecvMsgSize(MaxMessageSize)}
}

// CallOptions returns the default call options of catpoint clients.
func CallOptions() []grpc.CallOption {
	return []grpc.CallOption{grpc.MaxCallSendMsgSize(MaxMessageSize)}
}

// Service abstracts the engine operations the transport depends on.
type Service interface {
	Status(ctx context.Context) (engine.Status, error)
	Sensors(ctx context.Context) ([]domain.Sensor, error)
	SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error
	AddSensor(ctx context.Context, sensor domain.Sensor) error
	RemoveSensor(ctx context.Context, sensor domain.Sensor) error
	ChangeSensorActivation(ctx context.Context, sensor domain.Sensor, active bool) error
	ProcessImage(ctx context.Context, image []byte) error
}

// HistoryReader returns recorded alarm status writes, newest first.
type HistoryReader interface {
	AlarmHistory(ctx context.Context, limit int) ([]domain.AlarmChange, error)
}

// Server implements SecurityServiceServer on top of the engine.
type Server struct {
	// service provides the alarm decisions.
	service Service
	// history is nil when the storage keeps no alarm history.
	history HistoryReader
}

// Option configures Server.
type Option func(*Server)

// WithHistory serves GetAlarmHistory from history.
func WithHistory(history HistoryReader) Option {
	return func(s *Server) {
		s.history = history
	}
}

// NewServer wires the provided service into a gRPC handler.
func NewServer(service Service, opts ...Option) *Server {
	s := &Server{
		service: service,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// GetStatus returns the status snapshot.
func (s *Server) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return s.snapshot(ctx)
}

// SetArmingStatus parses the requested status and applies it.
func (s *Server) SetArmingStatus(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	arming, err := domain.ParseArmingStatus(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err = s.service.SetArmingStatus(ctx, arming); err != nil {
		return nil, internalError(ctx, "set arming status", err)
	}

	return s.snapshot(ctx)
}

// ListSensors returns the sensors in canonical order.
func (s *Server) ListSensors(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	sensors, err := s.service.Sensors(ctx)
	if err != nil {
		return nil, internalError(ctx, "list sensors", err)
	}

	return wire.SensorsToList(sensors), nil
}

// AddSensor registers the sensor in the request.
func (s *Server) AddSensor(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	sensor, err := decodeSensor(req)
	if err != nil {
		return nil, err
	}

	if err = s.service.AddSensor(ctx, sensor); err != nil {
		return nil, internalError(ctx, "add sensor", err)
	}

	return &emptypb.Empty{}, nil
}

// RemoveSensor unregisters the sensor in the request.
func (s *Server) RemoveSensor(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	sensor, err := decodeSensor(req)
	if err != nil {
		return nil, err
	}

	if err = s.service.RemoveSensor(ctx, sensor); err != nil {
		return nil, internalError(ctx, "remove sensor", err)
	}

	return &emptypb.Empty{}, nil
}

// ChangeSensor applies the requested activation; the active field is the target state.
func (s *Server) ChangeSensor(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sensor, err := decodeSensor(req)
	if err != nil {
		return nil, err
	}

	if err = s.service.ChangeSensorActivation(ctx, sensor, sensor.Active); err != nil {
		return nil, internalError(ctx, "change sensor", err)
	}

	return s.snapshot(ctx)
}

// ProcessImage analyzes the image in the request.
func (s *Server) ProcessImage(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	image := req.GetValue()

	switch {
	case len(image) == 0:
		return nil, status.Error(codes.InvalidArgument, "image is required")
	case len(image) > MaxImageSize:
		return nil, status.Errorf(codes.InvalidArgument, "image exceeds %d bytes", MaxImageSize)
	}

	if err := s.service.ProcessImage(ctx, image); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, status.Error(codes.DeadlineExceeded, "image analysis timed out")
		}

		return nil, internalError(ctx, "process image", err)
	}

	return s.snapshot(ctx)
}

// GetAlarmHistory returns the latest alarm status writes.
// A zero or missing limit means domain.DefaultAlarmHistoryLimit.
func (s *Server) GetAlarmHistory(ctx context.Context, req *wrapperspb.Int32Value) (*structpb.ListValue, error) {
	if s.history == nil {
		return nil, status.Error(codes.Unimplemented, "alarm history is not kept by this storage")
	}

	limit, err := domain.AlarmHistoryLimit(int(req.GetValue()))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	history, err := s.history.AlarmHistory(ctx, limit)
	if err != nil {
		return nil, internalError(ctx, "get alarm history", err)
	}

	return wire.AlarmHistoryToList(history), nil
}

func (s *Server) snapshot(ctx context.Context) (*structpb.Struct, error) {
	current, err := s.service.Status(ctx)
	if err != nil {
		return nil, internalError(ctx, "get status", err)
	}

	return wire.SnapshotToStruct(&wire.Snapshot{
		AlarmStatus:  current.AlarmStatus,
		ArmingStatus: current.ArmingStatus,
		CatDetected:  current.CatDetected,
		Sensors:      current.Sensors,
	}), nil
}

func decodeSensor(req *structpb.Struct) (domain.Sensor, error) {
	sensor, err := wire.SensorFromStruct(req)
	if err != nil {
		return domain.Sensor{}, status.Error(codes.InvalidArgument, err.Error())
	}

	return sensor, nil
}

// internalError logs the cause and hides it from the caller.
func internalError(ctx context.Context, operation string, err error) error {
	logger.ErrorKV(ctx, "Request failed", "operation", operation, "error", err)

	return status.Errorf(codes.Internal, "unable to %s", operation)
}
