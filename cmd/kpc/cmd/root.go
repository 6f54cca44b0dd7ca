package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/keypad-controller/internal/config"
	"github.com/oshokin/keypad-controller/internal/service/controller"
	"github.com/oshokin/keypad-controller/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// input overrides the configured signal source.
	input string
	// listenAddress overrides the configured remote keypad address.
	listenAddress string

	// rootCmd represents the base command for running the controller.
	rootCmd = &cobra.Command{
		Use:   "kpc",
		Short: "Run the keypad controller.",
		Long: `Runs the keypad controller: a password-protected keypad that drives six LEDs.

Keys are read from the terminal (0-9, * and #) or received from "kpc press".
Log in with the password followed by #. Once logged in:
  0-5, duration digits, #   light one LED for the given number of seconds
  # new password #          change the password (at least four digits)
  * *                       log out; any other key after the first * cancels

Ctrl+C stops the controller at once. "kpc stop" stops it at the next
logged-in # instead.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signalContext()
			defer stop()

			options := &controller.Options{
				ConfigPath:    configPath,
				Input:         config.Input(input),
				ListenAddress: listenAddress,
			}

			return controller.Run(ctx, options)
		},
	}
)

// Execute runs the kpc CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	rootCmd.AddCommand(
		newInitCommand(),
		newRulesCommand(),
		newPressCommand(),
		newStatusCommand(),
		newStopCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&input, "input", "i", "", `signal source: "terminal" or "remote"`)
	rootCmd.Flags().StringVarP(&listenAddress, "listen", "l", "", "remote keypad listen address")
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}
