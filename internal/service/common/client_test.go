//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"
)

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestDial_AppliesOptions keeps the timeout and actor.
func TestDial_AppliesOptions(t *testing.T) {
	t.Parallel()

	actor := &Actor{Hostname: "h", Username: "u"}

	c, err := Dial(context.Background(), "127.0.0.1:1", WithCallTimeout(time.Second), WithActor(actor))
	require.NoError(t, err)

	t.Cleanup(func() { _ = c.Close() })

	require.Equal(t, time.Second, c.callTimeout)
	require.Same(t, actor, c.actor)
	require.NoError(t, (*Client)(nil).Close())
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel, err := c.callContext(context.Background())
	require.NoError(t, err)
	cancel()

	require.NotNil(t, ctx)

	_, ok := metadata.FromOutgoingContext(ctx)
	require.False(t, ok)

	c.callTimeout = 10 * time.Millisecond
	c.actor = &Actor{Hostname: "h", Username: "u"}

	ctx, cancel, err = c.callContext(context.Background())
	require.NoError(t, err)

	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)

	md, ok := metadata.FromOutgoingContext(ctx)
	require.True(t, ok)
	require.Equal(t, []string{"u"}, md.Get(MetadataUsername))
}
