//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	api "github.com/oshokin/keypad-controller/internal/api/grpc/keypad"
)

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	_, ok := metadata.FromOutgoingContext(ctx)
	require.False(t, ok)

	c.callTimeout = 10 * time.Millisecond
	c.actor = "tester@bench"

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)

	md, ok := metadata.FromOutgoingContext(ctx)
	require.True(t, ok)
	require.Equal(t, []string{"tester@bench"}, md.Get(api.ActorMetadataKey))
}

// TestPress_NoKeys asserts that an empty key string is rejected by the client.
func TestPress_NoKeys(t *testing.T) {
	t.Parallel()

	c := new(Client)

	err := c.Press(context.Background(), "")
	require.ErrorIs(t, err, errKeysRequired)
}

// TestClose_Nil tolerates a client that was never dialed.
func TestClose_Nil(t *testing.T) {
	t.Parallel()

	var c *Client

	require.NoError(t, c.Close())
	require.NoError(t, new(Client).Close())
}
