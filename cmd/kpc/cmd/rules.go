package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/keypad-controller/internal/agent"
	"github.com/oshokin/keypad-controller/internal/fsm"
)

// newRulesCommand creates `kpc rules`.
func newRulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the transition rules.",
		Long: `Prints the ordered rule table of the controller. The first rule matching the
current state and key fires. Partially shadowed rules are listed at the end.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Actions are bound but never invoked while printing.
			table, err := fsm.Build(agent.New(nil, nil, nil))
			if err != nil {
				return err
			}

			return table.Format(cmd.OutOrStdout())
		},
	}
}
