package security

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "catpoint.security.v1.SecurityService"

// Method names.
const (
	MethodGetStatus       = "GetStatus"
	MethodSetArmingStatus = "SetArmingStatus"
	MethodListSensors     = "ListSensors"
	MethodAddSensor       = "AddSensor"
	MethodRemoveSensor    = "RemoveSensor"
	MethodChangeSensor    = "ChangeSensor"
	MethodProcessImage    = "ProcessImage"
	MethodGetAlarmHistory = "GetAlarmHistory"
)

// SecurityServiceServer is the server API of the security service.
type SecurityServiceServer interface {
	// GetStatus returns the status snapshot.
	GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	// SetArmingStatus arms or disarms the system and returns the new snapshot.
	SetArmingStatus(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	// ListSensors returns all sensors in canonical order.
	ListSensors(ctx context.Context, req *emptypb.Empty) (*structpb.ListValue, error)
	// AddSensor registers a sensor.
	AddSensor(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)
	// RemoveSensor unregisters a sensor.
	RemoveSensor(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)
	// ChangeSensor sets the activation of a sensor and returns the new snapshot.
	ChangeSensor(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	// ProcessImage analyzes a camera image and returns the new snapshot.
	ProcessImage(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error)
	// GetAlarmHistory returns up to limit alarm status writes, newest first.
	GetAlarmHistory(ctx context.Context, req *wrapperspb.Int32Value) (*structpb.ListValue, error)
}

// FullMethod returns the gRPC path of method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// RegisterSecurityServiceServer registers srv on registrar.
func RegisterSecurityServiceServer(registrar grpc.ServiceRegistrar, srv SecurityServiceServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes the security service for grpc.Server.
//
//nolint:gochecknoglobals // grpc.RegisterService takes a descriptor.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SecurityServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodGetStatus, SecurityServiceServer.GetStatus),
		unary(MethodSetArmingStatus, SecurityServiceServer.SetArmingStatus),
		unary(MethodListSensors, SecurityServiceServer.ListSensors),
		unary(MethodAddSensor, SecurityServiceServer.AddSensor),
		unary(MethodRemoveSensor, SecurityServiceServer.RemoveSensor),
		unary(MethodChangeSensor, SecurityServiceServer.ChangeSensor),
		unary(MethodProcessImage, SecurityServiceServer.ProcessImage),
		unary(MethodGetAlarmHistory, SecurityServiceServer.GetAlarmHistory),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "catpoint/security/v1/security.proto",
}

// unary builds the method descriptor of a unary call, running interceptors like generated code does.
func unary[Req any, Resp any](
	method string,
	call func(SecurityServiceServer, context.Context, *Req) (Resp, error),
) grpc.MethodDesc {
	info := &grpc.UnaryServerInfo{FullMethod: FullMethod(method)}

	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}

			server, _ := srv.(SecurityServiceServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}

			callInfo := *info
			callInfo.Server = srv

			handler := func(ctx context.Context, req any) (any, error) {
				typed, _ := req.(*Req)
				return call(server, ctx, typed)
			}

			return interceptor(ctx, in, &callInfo, handler)
		},
	}
}
