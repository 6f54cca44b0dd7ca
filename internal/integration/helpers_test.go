package integration

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/keypad-controller/internal/config"
	"github.com/oshokin/keypad-controller/internal/repository/credential"
	"github.com/oshokin/keypad-controller/internal/service/common"
	"github.com/oshokin/keypad-controller/internal/service/controller"
)

// reservePort returns a free loopback address.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// fastTimings keeps every lighting sequence in the millisecond range.
func fastTimings() config.LEDTimings {
	return config.LEDTimings{
		Step:            time.Millisecond,
		Wake:            time.Millisecond,
		PowerUp:         time.Millisecond,
		Activate:        time.Millisecond,
		Correct:         time.Millisecond,
		Wrong:           time.Millisecond,
		PowerDownPulse:  time.Millisecond,
		PowerDownGap:    time.Millisecond,
		PowerDownCycles: 1,
		MaxDuration:     50 * time.Millisecond,
	}
}

// fixture is a controller running in remote mode.
type fixture struct {
	addr       string
	configPath string
	statusPath string
	passwdPath string
	client     *common.Client
	done       chan error
	cancel     context.CancelFunc
}

// startController writes settings and a password, then runs the controller
// in the background and waits until it answers.
func startController(t *testing.T, password string) *fixture {
	t.Helper()

	dir := t.TempDir()
	f := &fixture{
		addr:       reservePort(t),
		configPath: filepath.Join(dir, "kpc-settings.yaml"),
		statusPath: filepath.Join(dir, "kpc-status.json"),
		passwdPath: filepath.Join(dir, "kpc-password.txt"),
		done:       make(chan error, 1),
	}

	require.NoError(t, credential.NewFileStore(f.passwdPath).Save(context.Background(), password))
	require.NoError(t, config.Save(f.configPath, &config.Config{
		CredentialFile: f.passwdPath,
		StatusFile:     f.statusPath,
		ListenAddress:  f.addr,
		Input:          config.InputRemote,
		Timeout:        3 * time.Second,
		LogLevel:       "debug",
		PressRate:      1000,
		LEDs:           fastTimings(),
	}))

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel

	go func() {
		options := &controller.Options{
			ConfigPath:      f.configPath,
			AllowConcurrent: true,
		}

		f.done <- controller.Run(ctx, options)
	}()

	client, err := common.Dial(context.Background(), f.addr,
		common.WithCallTimeout(time.Second), common.WithActor("tester@bench"))
	require.NoError(t, err)

	f.client = client

	t.Cleanup(func() {
		cancel()
		_ = client.Close()
	})

	require.Eventually(t, func() bool {
		_, err := client.Status(context.Background())

		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	return f
}

// wait returns the controller's exit error.
func (f *fixture) wait(t *testing.T) error {
	t.Helper()

	select {
	case err := <-f.done:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("controller did not stop")

		return nil
	}
}
