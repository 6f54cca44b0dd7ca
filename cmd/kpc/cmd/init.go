package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/keypad-controller/internal/config"
	"github.com/oshokin/keypad-controller/internal/service/setup"
)

// newInitCommand creates `kpc init PASSWORD`.
func newInitCommand() *cobra.Command {
	var (
		credentialFile string
		initInput      string
		initListen     string
		force          bool
	)

	command := &cobra.Command{
		Use:   "init PASSWORD",
		Short: "Write settings and the initial password.",
		Long: `Writes a settings file with default LED timings and stores the initial password.

The password must have at least four digits and contain digits only.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			options := &setup.Options{
				ConfigPath:     configPath,
				CredentialFile: credentialFile,
				Password:       args[0],
				Input:          config.Input(initInput),
				ListenAddress:  initListen,
				Force:          force,
			}

			return setup.Run(ctx, options)
		},
	}

	command.Flags().StringVarP(&credentialFile, "password-file", "p", config.DefaultCredentialFilename,
		"path to the password file")
	command.Flags().StringVarP(&initInput, "input", "i", string(config.InputTerminal),
		`signal source: "terminal" or "remote"`)
	command.Flags().StringVarP(&initListen, "listen", "l", config.DefaultListenAddress,
		"remote keypad listen address")
	command.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing settings")

	return command
}
