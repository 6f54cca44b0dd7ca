package controller

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"google.golang.org/grpc"

	"github.com/oshokin/keypad-controller/internal/agent"
	api "github.com/oshokin/keypad-controller/internal/api/grpc/keypad"
	"github.com/oshokin/keypad-controller/internal/config"
	"github.com/oshokin/keypad-controller/internal/domain/device"
	"github.com/oshokin/keypad-controller/internal/fsm"
	"github.com/oshokin/keypad-controller/internal/hardware/keypad"
	"github.com/oshokin/keypad-controller/internal/hardware/led"
	"github.com/oshokin/keypad-controller/internal/logger"
	"github.com/oshokin/keypad-controller/internal/repository/credential"
	repo "github.com/oshokin/keypad-controller/internal/repository/status"
	"github.com/oshokin/keypad-controller/internal/service/common"
)

// Options controls the controller process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// Input overrides the configured signal source.
	Input config.Input
	// ListenAddress provides an optional listen address override for the remote keypad.
	ListenAddress string
	// Keys is the terminal keypad; os.Stdin when nil.
	Keys *os.File
	// AllowConcurrent skips the instance lock.
	AllowConcurrent bool
}

// Run starts the controller and blocks until the engine stops.
// Cancelling ctx stops it immediately; a remote stop request stops it at the
// next Active+# checkpoint; closing the terminal keypad stops it too.
func Run(ctx context.Context, opts *Options) error {
	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}

	// Validate has already rejected unknown levels.
	level, ok := logger.ParseLogLevel(settings.LogLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", settings.LogLevel)
	}

	logger.SetLevel(level)

	if !opts.AllowConcurrent {
		release, lockErr := common.AcquireInstanceLock(common.InstanceLockPath(settings.StatusFile))
		if lockErr != nil {
			return lockErr
		}

		defer func() {
			if unlockErr := release(); unlockErr != nil {
				logger.WarnKV(ctx, "Failed to release instance lock", "error", unlockErr)
			}
		}()
	}

	keys := opts.Keys
	if keys == nil {
		keys = os.Stdin
	}

	if settings.Input == config.InputTerminal {
		restore, rawErr := keypad.MakeRaw(keys)
		if rawErr != nil {
			return rawErr
		}

		defer restore()

		if keypad.IsTerminal(keys) {
			previous := logger.Logger()
			logger.SetLogger(logger.NewRawTerminal(logger.AtomicLevel()))

			defer logger.SetLogger(previous)
		}
	}

	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "kpc")

	c, err := newController(ctx, settings)
	if err != nil {
		return fmt.Errorf("initialise controller: %w", err)
	}

	return c.run(ctx, keys)
}

// loadSettings reads the configuration and applies command line overrides.
func loadSettings(opts *Options) (*config.Config, error) {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.Input != "" {
		settings.Input = opts.Input
	}

	if opts.ListenAddress != "" {
		settings.ListenAddress = opts.ListenAddress
	}

	if err = config.Validate(settings); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}

	return settings, nil
}

// controller holds the wired components of one run.
type controller struct {
	settings *config.Config
	gpio     *led.Simulator
	queue    *keypad.Queue
	service  *service
	engine   *fsm.Engine
}

// newController wires stores, hardware, catalog and engine.
func newController(ctx context.Context, settings *config.Config) (*controller, error) {
	store := credential.NewFileStore(
		settings.CredentialFile,
		credential.WithRetry(settings.Password.StoreAttempts, settings.Password.StoreRetryDelay),
	)

	if _, err := store.Load(ctx); err != nil {
		logger.WarnKV(ctx, "Password is not readable, every login will be rejected until kpc init is run",
			"credential_file", store.Path(), "error", err)
	}

	var (
		gpio  = led.NewSimulator(ctx)
		board = led.NewBoard(gpio, settings.LEDs)
		queue = keypad.NewQueue(settings.QueueSize)
	)

	catalog := agent.New(queue, board, store,
		agent.WithTimings(settings.LEDs),
		agent.WithMinPasswordLength(settings.Password.MinLength),
	)

	table, err := fsm.Build(catalog)
	if err != nil {
		return nil, fmt.Errorf("build rules: %w", err)
	}

	if err = table.Validate(); err != nil {
		return nil, fmt.Errorf("validate rules: %w", err)
	}

	for _, overlap := range table.Overlaps() {
		logger.DebugKV(ctx, "Rule partially shadowed",
			"rule", overlap.Rule, "shadowed_by", overlap.ShadowedBy, "signals", overlap.Signals)
	}

	svc := newService(repo.NewFileRepository(settings.StatusFile), queue, catalog, device.StateInit)

	engine := fsm.NewEngine(table, catalog, board, catalog,
		fsm.WithStopPolicy(svc.stopRequested),
		fsm.WithObserver(svc.observe),
		fsm.WithShutdownTimeout(settings.LEDs.PowerDownDuration()+settings.Timeout),
	)

	if err = engine.Initialize(device.StateInit); err != nil {
		return nil, fmt.Errorf("initialise engine: %w", err)
	}

	return &controller{
		settings: settings,
		gpio:     gpio,
		queue:    queue,
		service:  svc,
		engine:   engine,
	}, nil
}

// run serves the inputs and drives the engine until it stops.
func (c *controller) run(ctx context.Context, keys *os.File) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	defer func() {
		if err := c.gpio.Cleanup(); err != nil {
			logger.ErrorKV(ctx, "Failed to release LED pins", "error", err)
		}
	}()

	c.service.update(ctx, device.StateInit, device.SignalNone)

	if c.settings.ListenAddress != "" {
		stop, err := c.serve(runCtx)
		if err != nil {
			return err
		}

		defer stop()
	}

	if c.settings.Input == config.InputTerminal {
		logger.Info(ctx, "Reading keys from the terminal, press Ctrl+C to quit")

		// The reader may stay blocked on the terminal after the engine stops;
		// it holds no resources besides the queue.
		go func() {
			if err := keypad.Feed(runCtx, keys, c.queue); err != nil {
				logger.ErrorKV(ctx, "Terminal keypad failed", "error", err)
			}
		}()
	}

	err := c.engine.Run(runCtx)

	c.queue.Close()
	c.service.update(ctx, c.engine.State(), device.SignalNone)

	return err
}

// serve starts the remote keypad service. The returned function stops it.
func (c *controller) serve(ctx context.Context) (func(), error) {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", c.settings.ListenAddress)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", c.settings.ListenAddress, err)
	}

	grpcServer := grpc.NewServer()
	api.RegisterKeypadServiceServer(grpcServer,
		api.NewServer(c.service, api.WithPressRate(c.settings.PressRate, c.settings.QueueSize)))

	logger.InfoKV(ctx, "Remote keypad listening",
		"listen_address", lis.Addr().String(), "status_file", c.settings.StatusFile)

	var wg sync.WaitGroup

	wg.Go(func() {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.ErrorKV(ctx, "Remote keypad failed", "error", err)
		}
	})

	return func() {
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()
		wg.Wait()
		logger.Info(ctx, "GRPC server stopped")
	}, nil
}
