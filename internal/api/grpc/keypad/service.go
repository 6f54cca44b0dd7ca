package keypad

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "kpc.v1.KeypadService"

// Full method names.
const (
	PressMethod       = "/" + ServiceName + "/Press"
	GetStatusMethod   = "/" + ServiceName + "/GetStatus"
	RequestStopMethod = "/" + ServiceName + "/RequestStop"
)

// ActorMetadataKey carries the "user@host" of a remote caller.
const ActorMetadataKey = "x-kpc-actor"

// KeypadServiceServer is the server API of the keypad service.
type KeypadServiceServer interface {
	// Press queues keys on the controller's keypad.
	Press(ctx context.Context, keys *wrapperspb.StringValue) (*emptypb.Empty, error)
	// GetStatus returns the controller status snapshot.
	GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	// RequestStop asks the controller to stop at the next checkpoint.
	RequestStop(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// KeypadServiceClient is the client API of the keypad service.
type KeypadServiceClient interface {
	Press(ctx context.Context, keys *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
	GetStatus(ctx context.Context, req *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	RequestStop(ctx context.Context, req *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
}

// ServiceDesc describes the keypad service for grpc.Server.RegisterService.
//
//nolint:gochecknoglobals // Service descriptors are package-level by convention.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*KeypadServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Press", Handler: pressHandler},
		{MethodName: "GetStatus", Handler: getStatusHandler},
		{MethodName: "RequestStop", Handler: requestStopHandler},
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterKeypadServiceServer registers srv on the gRPC server.
func RegisterKeypadServiceServer(s grpc.ServiceRegistrar, srv KeypadServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type keypadServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewKeypadServiceClient creates a client over an established connection.
func NewKeypadServiceClient(cc grpc.ClientConnInterface) KeypadServiceClient {
	return &keypadServiceClient{cc: cc}
}

func (c *keypadServiceClient) Press(
	ctx context.Context,
	keys *wrapperspb.StringValue,
	opts ...grpc.CallOption,
) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, PressMethod, keys, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *keypadServiceClient) GetStatus(
	ctx context.Context,
	req *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetStatusMethod, req, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *keypadServiceClient) RequestStop(
	ctx context.Context,
	req *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, RequestStopMethod, req, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func pressHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(KeypadServiceServer).Press(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PressMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KeypadServiceServer).Press(ctx, req.(*wrapperspb.StringValue))
	}

	return interceptor(ctx, in, info, handler)
}

func getStatusHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(KeypadServiceServer).GetStatus(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetStatusMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KeypadServiceServer).GetStatus(ctx, req.(*emptypb.Empty))
	}

	return interceptor(ctx, in, info, handler)
}

func requestStopHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(KeypadServiceServer).RequestStop(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RequestStopMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(KeypadServiceServer).RequestStop(ctx, req.(*emptypb.Empty))
	}

	return interceptor(ctx, in, info, handler)
}
