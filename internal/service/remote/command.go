package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oshokin/keypad-controller/internal/config"
	"github.com/oshokin/keypad-controller/internal/domain/device"
	"github.com/oshokin/keypad-controller/internal/logger"
	repo "github.com/oshokin/keypad-controller/internal/repository/status"
	"github.com/oshokin/keypad-controller/internal/service/common"
)

// Options configures the client commands.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress overrides the controller address from config when specified.
	ServerAddress string
	// Output receives human-readable results.
	Output io.Writer
}

// StatusOptions configures the status command.
type StatusOptions struct {
	Options

	// Watch keeps polling until ctx is cancelled.
	Watch bool
	// PollInterval is the delay between polls in watch mode.
	PollInterval time.Duration
	// Offline reads the status file instead of calling the controller.
	Offline bool
}

const (
	// DefaultPollInterval is the delay between status polls.
	DefaultPollInterval = time.Second
	// defaultPushInterval defines retry delay when the controller is busy.
	defaultPushInterval = 500 * time.Millisecond
	// maxPushAttempts bounds retries of a busy controller.
	maxPushAttempts = 5
)

var (
	// ErrNoServerAddress indicates missing controller address configuration.
	ErrNoServerAddress = errors.New("no controller address configured")
	// errPressRejected is returned when the controller keeps refusing keys.
	errPressRejected = errors.New("controller refused the keys")
)

// Press sends keys to the controller, retrying while it is busy.
func Press(ctx context.Context, opts *Options, keys string) error {
	ctx = logger.WithName(ctx, "kpc-press")

	if _, err := device.ParseSignals(keys); err != nil {
		return fmt.Errorf("parse keys: %w", err)
	}

	client, err := dial(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	// attempt tries once to send the keys, returns (completed, error).
	attempt := func() (bool, error) {
		err := client.Press(ctx, keys)
		if err == nil {
			return true, nil
		}

		switch status.Code(err) {
		case codes.ResourceExhausted, codes.Unavailable:
			logger.WarnKV(ctx, "Controller is busy, retrying", "error", err)

			return false, nil
		default:
			return false, err
		}
	}

	for range maxPushAttempts {
		done, err := attempt()
		if err != nil {
			return err
		}

		if done {
			logger.InfoKV(ctx, "Keys sent", "keys", keys)
			fmt.Fprintf(output(opts), "sent %s\n", keys)

			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(defaultPushInterval):
		}
	}

	return fmt.Errorf("%w after %d attempts", errPressRejected, maxPushAttempts)
}

// Status prints the controller status once, or keeps polling it in watch mode.
func Status(ctx context.Context, opts *StatusOptions) error {
	ctx = logger.WithName(ctx, "kpc-status")

	if opts.Offline {
		return printStoredStatus(ctx, opts)
	}

	client, err := dial(ctx, &opts.Options)
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	current, err := client.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(output(&opts.Options), FormatStatus(current))

	if !opts.Watch {
		return nil
	}

	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		case <-ticker.C:
			next, err := client.Status(ctx)
			if err != nil {
				logger.ErrorKV(ctx, "Get status failed", "error", err)

				continue
			}

			if next.UpdatedAt.Equal(current.UpdatedAt) {
				continue
			}

			current = next
			fmt.Fprintln(output(&opts.Options), FormatStatus(current))
		}
	}
}

// Stop asks the controller to stop at its next Active+# checkpoint.
func Stop(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "kpc-stop")

	client, err := dial(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	current, err := client.RequestStop(ctx)
	if err != nil {
		return err
	}

	logger.Info(ctx, "Stop requested, the controller stops at the next Active+# checkpoint")
	fmt.Fprintln(output(opts), FormatStatus(current))

	return nil
}

// FormatStatus renders a status snapshot on one line.
func FormatStatus(s *device.Status) string {
	if s == nil {
		return "<nil status>"
	}

	timestamp := "<unknown>"
	if !s.UpdatedAt.IsZero() {
		timestamp = s.UpdatedAt.Local().Format(time.RFC3339)
	}

	session := "logged out"
	if s.LoggedIn {
		session = "logged in as session " + s.SessionID
	}

	line := fmt.Sprintf("%s, %s, last key %s (%s)", s.State, session, s.LastSignal, timestamp)
	if s.StopRequested {
		line += ", stop requested"
	}

	return line
}

// printStoredStatus prints the status file written by the controller.
func printStoredStatus(ctx context.Context, opts *StatusOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	stored, err := repo.NewFileRepository(cfg.StatusFile).Load(ctx)
	if err != nil {
		return fmt.Errorf("load status: %w", err)
	}

	fmt.Fprintln(output(&opts.Options), FormatStatus(stored))

	return nil
}

// dial connects to the controller named by the options or the config file.
func dial(ctx context.Context, opts *Options) (*common.Client, error) {
	var (
		address = opts.ServerAddress
		timeout = config.DefaultTimeout
	)

	if cfg, err := config.Load(opts.ConfigPath); err == nil {
		if address == "" {
			address = cfg.ListenAddress
		}

		timeout = cfg.Timeout
	} else if address == "" {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if address == "" {
		return nil, ErrNoServerAddress
	}

	actor, err := common.DetectActor()
	if err != nil {
		logger.WarnKV(ctx, "Unable to detect actor", "error", err)
	}

	return common.Dial(ctx, address, common.WithCallTimeout(timeout), common.WithActor(actor))
}

func output(opts *Options) io.Writer {
	if opts.Output == nil {
		return io.Discard
	}

	return opts.Output
}
