package keypad

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/oshokin/keypad-controller/internal/domain/device"
	hwkeypad "github.com/oshokin/keypad-controller/internal/hardware/keypad"
	"github.com/oshokin/keypad-controller/internal/logger"
	statuscodec "github.com/oshokin/keypad-controller/internal/repository/status"
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	Press(ctx context.Context, signals []device.Signal) error
	Status(ctx context.Context) *device.Status
	RequestStop(ctx context.Context) *device.Status
}

// Server implements the KeypadService gRPC API.
type Server struct {
	// service provides the controller operations.
	service Service
	// limiter bounds the rate of remote key presses.
	limiter *rate.Limiter
}

var _ KeypadServiceServer = (*Server)(nil)

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithPressRate limits remote presses to r keys per second with the given burst.
// A non-positive r disables the limit.
func WithPressRate(r float64, burst int) ServerOption {
	return func(s *Server) {
		if r <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 0)

			return
		}

		s.limiter = rate.NewLimiter(rate.Limit(r), max(burst, 1))
	}
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service, opts ...ServerOption) *Server {
	s := &Server{
		service: service,
		limiter: rate.NewLimiter(rate.Inf, 0),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Press parses the keys and queues them on the controller.
func (s *Server) Press(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "keys are required")
	}

	signals, err := device.ParseSignals(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if len(signals) == 0 {
		return nil, status.Error(codes.InvalidArgument, "keys are required")
	}

	if !s.limiter.AllowN(time.Now(), len(signals)) {
		return nil, status.Error(codes.ResourceExhausted, "too many key presses")
	}

	logger.InfoKV(ctx, "Remote key press", "keys", req.GetValue(), "actor", actorFromContext(ctx))

	err = s.service.Press(ctx, signals)

	switch {
	case err == nil:
		return new(emptypb.Empty), nil
	case errors.Is(err, hwkeypad.ErrQueueFull):
		return nil, status.Error(codes.ResourceExhausted, "keypad queue is full")
	case errors.Is(err, hwkeypad.ErrQueueClosed):
		return nil, status.Error(codes.Unavailable, "keypad is closed")
	default:
		return nil, status.Error(codes.Internal, "unable to queue keys")
	}
}

// GetStatus returns the current controller status.
func (s *Server) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toProtoStatus(s.service.Status(ctx))
}

// RequestStop arms the stop at the next checkpoint and returns the status.
func (s *Server) RequestStop(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	logger.InfoKV(ctx, "Stop requested", "actor", actorFromContext(ctx))

	return toProtoStatus(s.service.RequestStop(ctx))
}

// toProtoStatus converts a domain Status into its wire form.
func toProtoStatus(s *device.Status) (*structpb.Struct, error) {
	encoded, err := statuscodec.ToStruct(s)
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode status")
	}

	return encoded, nil
}

// actorFromContext returns the caller identity sent in metadata, if any.
func actorFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "unknown"
	}

	if values := md.Get(ActorMetadataKey); len(values) > 0 && values[0] != "" {
		return values[0]
	}

	return "unknown"
}
