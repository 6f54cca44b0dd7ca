package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/oshokin/keypad-controller/internal/service/remote"
)

// newPressCommand creates `kpc press KEYS`.
func newPressCommand() *cobra.Command {
	var address string

	command := &cobra.Command{
		Use:   "press KEYS...",
		Short: "Send keys to a running controller.",
		Long: `Sends keys such as 1234# to a running controller as if they were typed on its keypad.
Several arguments are joined, so "kpc press 1234 #" works too.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			options := &remote.Options{
				ConfigPath:    configPath,
				ServerAddress: address,
				Output:        cmd.OutOrStdout(),
			}

			return remote.Press(ctx, options, strings.Join(args, ""))
		},
	}

	command.Flags().StringVarP(&address, "address", "a", "", "controller address, overrides settings")

	return command
}

// newStatusCommand creates `kpc status`.
func newStatusCommand() *cobra.Command {
	options := new(remote.StatusOptions)

	command := &cobra.Command{
		Use:   "status",
		Short: "Show the controller status.",
		Long: `Shows the state, login session and last key of a running controller.
With --watch the status is polled until interrupted. With --offline the status
file written by the controller is read instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			options.ConfigPath = configPath
			options.Output = cmd.OutOrStdout()

			return remote.Status(ctx, options)
		},
	}

	command.Flags().StringVarP(&options.ServerAddress, "address", "a", "", "controller address, overrides settings")
	command.Flags().BoolVarP(&options.Watch, "watch", "w", false, "keep polling the status")
	command.Flags().DurationVar(&options.PollInterval, "interval", remote.DefaultPollInterval, "poll interval")
	command.Flags().BoolVar(&options.Offline, "offline", false, "read the status file instead")

	return command
}

// newStopCommand creates `kpc stop`.
func newStopCommand() *cobra.Command {
	var address string

	command := &cobra.Command{
		Use:   "stop",
		Short: "Stop the controller at the next checkpoint.",
		Long: `Asks a running controller to stop. It powers down the LEDs and exits the next
time # is pressed while logged in.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			options := &remote.Options{
				ConfigPath:    configPath,
				ServerAddress: address,
				Output:        cmd.OutOrStdout(),
			}

			return remote.Stop(ctx, options)
		},
	}

	command.Flags().StringVarP(&address, "address", "a", "", "controller address, overrides settings")

	return command
}
