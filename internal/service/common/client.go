//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	api "github.com/oshokin/catpoint/internal/api/grpc/security"
	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/wire"
)

// Client wraps the security service client with timeouts and the caller identity.
type Client struct {
	// conn is the underlying gRPC connection to the catpoint server.
	conn *grpc.ClientConn
	// api decodes replies to domain types.
	api *api.Client
	// actor is attached to every call when set.
	actor *Actor

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
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

// WithActor attaches actor to every call.
func WithActor(actor *Actor) Option {
	return func(c *Client) {
		c.actor = actor
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial establishes a gRPC connection to the catpoint server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(api.CallOptions()...),
	)
	if err != nil {
		return nil, fmt.Errorf("dial catpoint server: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         api.NewClient(conn),
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

// GetStatus retrieves the status snapshot.
func (c *Client) GetStatus(ctx context.Context) (*wire.Snapshot, error) {
	return c.callSnapshot(ctx, "get status", c.api.GetStatus)
}

// SetArmingStatus arms or disarms the system.
func (c *Client) SetArmingStatus(ctx context.Context, arming domain.ArmingStatus) (*wire.Snapshot, error) {
	return c.callSnapshot(ctx, "set arming status", func(ctx context.Context, opts ...grpc.CallOption) (*wire.Snapshot, error) {
		return c.api.SetArmingStatus(ctx, arming, opts...)
	})
}

// ChangeSensor activates or deactivates a sensor.
func (c *Client) ChangeSensor(ctx context.Context, sensor domain.Sensor, active bool) (*wire.Snapshot, error) {
	return c.callSnapshot(ctx, "change sensor", func(ctx context.Context, opts ...grpc.CallOption) (*wire.Snapshot, error) {
		return c.api.ChangeSensor(ctx, sensor, active, opts...)
	})
}

// ProcessImage sends a camera image for analysis.
func (c *Client) ProcessImage(ctx context.Context, image []byte) (*wire.Snapshot, error) {
	return c.callSnapshot(ctx, "process image", func(ctx context.Context, opts ...grpc.CallOption) (*wire.Snapshot, error) {
		return c.api.ProcessImage(ctx, image, opts...)
	})
}

// ListSensors returns all sensors.
func (c *Client) ListSensors(ctx context.Context) ([]domain.Sensor, error) {
	callCtx, cancel, err := c.callContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	sensors, err := c.api.ListSensors(callCtx)
	if err != nil {
		return nil, fmt.Errorf("list sensors: %w", err)
	}

	return sensors, nil
}

// AddSensor registers a sensor.
func (c *Client) AddSensor(ctx context.Context, sensor domain.Sensor) error {
	callCtx, cancel, err := c.callContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	if err = c.api.AddSensor(callCtx, sensor); err != nil {
		return fmt.Errorf("add sensor: %w", err)
	}

	return nil
}

// RemoveSensor unregisters a sensor.
func (c *Client) RemoveSensor(ctx context.Context, sensor domain.Sensor) error {
	callCtx, cancel, err := c.callContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	if err = c.api.RemoveSensor(callCtx, sensor); err != nil {
		return fmt.Errorf("remove sensor: %w", err)
	}

	return nil
}

// AlarmHistory returns up to limit alarm status writes, newest first.
// Zero asks for the server default.
func (c *Client) AlarmHistory(ctx context.Context, limit int) ([]domain.AlarmChange, error) {
	if limit < 0 || limit > domain.MaxAlarmHistoryLimit {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidHistoryLimit, limit)
	}

	callCtx, cancel, err := c.callContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	history, err := c.api.GetAlarmHistory(callCtx, int32(limit)) //nolint:gosec // Bounded above.
	if err != nil {
		return nil, fmt.Errorf("get alarm history: %w", err)
	}

	return history, nil
}

func (c *Client) callSnapshot(
	ctx context.Context,
	operation string,
	call func(ctx context.Context, opts ...grpc.CallOption) (*wire.Snapshot, error),
) (*wire.Snapshot, error) {
	callCtx, cancel, err := c.callContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	snapshot, err := call(callCtx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	return snapshot, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline. The actor, if any,
// travels as outgoing metadata.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if c.actor != nil {
		var err error
		if ctx, err = OutgoingActorContext(ctx, c.actor); err != nil {
			return nil, nil, err
		}
	}

	if c.callTimeout <= 0 {
		callCtx, cancel := context.WithCancel(ctx)
		return callCtx, cancel, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)

	return callCtx, cancel, nil
}
