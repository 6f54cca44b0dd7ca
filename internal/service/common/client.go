//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	api "github.com/oshokin/keypad-controller/internal/api/grpc/keypad"
	"github.com/oshokin/keypad-controller/internal/config"
	"github.com/oshokin/keypad-controller/internal/domain/device"
	statuscodec "github.com/oshokin/keypad-controller/internal/repository/status"
)

// Client wraps the gRPC KeypadService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the controller.
	conn *grpc.ClientConn
	// api is the KeypadService client interface.
	api api.KeypadServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	// actor identifies the caller in request metadata.
	actor string
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor sets the caller identity sent with every call.
func WithActor(actor string) Option {
	return func(c *Client) {
		c.actor = actor
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errKeysRequired is returned when Press is called without keys.
	errKeysRequired = errors.New("keys must be provided")
)

// Dial establishes a gRPC connection to the keypad controller.
// Note: this uses insecure transport credentials; the controller listens on
// loopback by default.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial keypad controller: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         api.NewKeypadServiceClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// Press sends keys such as "1234#" to the controller's keypad.
func (c *Client) Press(ctx context.Context, keys string) error {
	if keys == "" {
		return errKeysRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err := c.api.Press(callCtx, wrapperspb.String(keys)); err != nil {
		return fmt.Errorf("press keys: %w", err)
	}

	return nil
}

// Status retrieves the controller status.
func (c *Client) Status(ctx context.Context) (*device.Status, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.GetStatus(callCtx, new(emptypb.Empty))
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	return statuscodec.FromStruct(response)
}

// RequestStop asks the controller to stop at its next checkpoint.
func (c *Client) RequestStop(ctx context.Context) (*device.Status, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.RequestStop(callCtx, new(emptypb.Empty))
	if err != nil {
		return nil, fmt.Errorf("request stop: %w", err)
	}

	return statuscodec.FromStruct(response)
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline. The actor, when
// set, travels as request metadata.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.actor != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, api.ActorMetadataKey, c.actor)
	}

	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
