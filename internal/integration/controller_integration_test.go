package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/keypad-controller/internal/domain/device"
	"github.com/oshokin/keypad-controller/internal/repository/credential"
	repo "github.com/oshokin/keypad-controller/internal/repository/status"
)

// eventuallyState waits until the controller reports the wanted state.
func eventuallyState(t *testing.T, f *fixture, want device.State) *device.Status {
	t.Helper()

	var last *device.Status

	require.Eventually(t, func() bool {
		s, err := f.client.Status(context.Background())
		if err != nil {
			return false
		}

		last = s

		return s.State == want
	}, 5*time.Second, 10*time.Millisecond)

	return last
}

// TestController_LoginAndStopAtCheckpoint logs in remotely, arms the stop and
// stops at the next logged-in #.
func TestController_LoginAndStopAtCheckpoint(t *testing.T) {
	t.Parallel()

	f := startController(t, "1234")
	ctx := context.Background()

	require.NoError(t, f.client.Press(ctx, "51234#"))

	got := eventuallyState(t, f, device.StateActive)
	require.True(t, got.LoggedIn)
	require.NotEmpty(t, got.SessionID)
	require.Equal(t, device.SignalAccept, got.LastSignal)

	stopped, err := f.client.RequestStop(ctx)
	require.NoError(t, err)
	require.True(t, stopped.StopRequested)

	require.NoError(t, f.client.Press(ctx, "#"))
	require.NoError(t, f.wait(t))

	final, err := repo.NewFileRepository(f.statusPath).Load(ctx)
	require.NoError(t, err)
	require.Equal(t, device.StateActive, final.State)
	require.True(t, final.StopRequested)
	require.False(t, final.LoggedIn)
}

// TestController_ChangePassword stores a new password through the keypad.
func TestController_ChangePassword(t *testing.T) {
	t.Parallel()

	f := startController(t, "1234")
	ctx := context.Background()

	require.NoError(t, f.client.Press(ctx, "51234#"))
	eventuallyState(t, f, device.StateActive)

	// Without a stop request the checkpoint # announces a password change.
	require.NoError(t, f.client.Press(ctx, "#97531#"))

	require.Eventually(t, func() bool {
		password, err := credential.NewFileStore(f.passwdPath).Load(ctx)

		return err == nil && password == "97531"
	}, 5*time.Second, 10*time.Millisecond)

	eventuallyState(t, f, device.StateActive)

	// Two stars log out.
	require.NoError(t, f.client.Press(ctx, "**"))
	eventuallyState(t, f, device.StateDone)

	f.cancel()
	require.NoError(t, f.wait(t))
}

// TestController_RejectsBadKeys maps invalid input to InvalidArgument.
func TestController_RejectsBadKeys(t *testing.T) {
	t.Parallel()

	f := startController(t, "1234")

	err := f.client.Press(context.Background(), "12x")
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	got := eventuallyState(t, f, device.StateInit)
	require.False(t, got.LoggedIn)

	f.cancel()
	require.NoError(t, f.wait(t))
}

// TestController_WrongPassword stays locked.
func TestController_WrongPassword(t *testing.T) {
	t.Parallel()

	f := startController(t, "1234")
	ctx := context.Background()

	require.NoError(t, f.client.Press(ctx, "5"))
	eventuallyState(t, f, device.StateRead)

	require.NoError(t, f.client.Press(ctx, "4321#"))

	got := eventuallyState(t, f, device.StateInit)
	require.False(t, got.LoggedIn)
	require.Equal(t, device.SignalReject, got.LastSignal)

	f.cancel()
	require.NoError(t, f.wait(t))
}
