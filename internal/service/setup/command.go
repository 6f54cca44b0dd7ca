package setup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/keypad-controller/internal/agent"
	"github.com/oshokin/keypad-controller/internal/config"
	"github.com/oshokin/keypad-controller/internal/logger"
	"github.com/oshokin/keypad-controller/internal/repository/credential"
)

// Options contains inputs for the setup entry point.
type Options struct {
	// ConfigPath is where the settings are written (defaults to kpc-settings.yaml).
	ConfigPath string
	// CredentialFile is where the password is stored.
	CredentialFile string
	// Password is the initial password.
	Password string
	// Input selects the signal source written to the settings.
	Input config.Input
	// ListenAddress is the remote keypad address written to the settings.
	ListenAddress string
	// Force overwrites existing settings.
	Force bool
}

// errAlreadyInitialized is returned when settings exist and Force is not set.
var errAlreadyInitialized = errors.New("settings already exist, use --force to overwrite")

// Run writes the settings and the initial password.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "kpc-init")

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.DefaultConfigFilename
	}

	if _, err := os.Stat(configPath); err == nil && !opts.Force {
		return fmt.Errorf("%s: %w", configPath, errAlreadyInitialized)
	}

	cfg := config.Default()

	if opts.CredentialFile != "" {
		cfg.CredentialFile = opts.CredentialFile
	}

	if opts.Input != "" {
		cfg.Input = opts.Input
	}

	if opts.ListenAddress != "" {
		cfg.ListenAddress = opts.ListenAddress
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}

	if err := agent.ValidateNewPassword(opts.Password, cfg.Password.MinLength); err != nil {
		return err
	}

	store := credential.NewFileStore(cfg.CredentialFile,
		credential.WithRetry(cfg.Password.StoreAttempts, cfg.Password.StoreRetryDelay))

	if err := store.Save(ctx, opts.Password); err != nil {
		return fmt.Errorf("save password: %w", err)
	}

	if err := config.Save(configPath, cfg); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	printNextSteps(ctx, configPath, cfg)

	return nil
}

// printNextSteps logs human-readable guidance for running the controller.
func printNextSteps(ctx context.Context, configPath string, cfg *config.Config) {
	var builder strings.Builder

	builder.WriteString("Settings written to ")
	builder.WriteString(filepath.Clean(configPath))
	builder.WriteString(", password stored in ")
	builder.WriteString(cfg.CredentialFile)
	builder.WriteString(".\nStart the controller with: kpc --config ")
	builder.WriteString(configPath)

	if cfg.ListenAddress != "" {
		builder.WriteString("\nSend keys from another terminal with: kpc press 1234#")
		builder.WriteString("\nStop at the next checkpoint with: kpc stop")
	}

	logger.Info(ctx, builder.String())
}
