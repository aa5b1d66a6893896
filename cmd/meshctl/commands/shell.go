package commands

import (
	"fmt"

	"github.com/reeflective/console"
	"github.com/spf13/cobra"
)

// shellTree builds a fresh copy of the non-shell subcommands for the
// console's command completion/dispatch, since a *cobra.Command can only
// belong to one parent and rootCmd already owns the originals.
func shellTree() *cobra.Command {
	tree := &cobra.Command{
		Use:           "meshctl",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	tree.AddCommand(
		statusCmd(),
		nodesCmd(),
		contactsCmd(),
		neighboursCmd(),
		cliCmd(),
		configCmd(),
		monitorCmd(),
		versionCmd(),
	)

	return tree
}

func shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive meshctl shell",
		Long:  "Launches a console REPL, with history and line editing, that accepts meshctl subcommands.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			app := console.New("meshctl")

			menu := app.ActiveMenu()
			menu.Prompt().Primary = func() string { return "meshctl > " }
			menu.SetCommands(func() *cobra.Command { return shellTree() })

			if err := app.Start(); err != nil {
				return fmt.Errorf("start console: %w", err)
			}

			return nil
		},
	}
}
