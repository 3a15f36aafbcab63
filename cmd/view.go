package cmd

import (
	"github.com/spf13/cobra"

	"jitfuzz.dev/pkg/jitfuzz/internal/domain"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view [session]",
		Short: "View a recorded campaign",
		Long:  "View the summary of a campaign recorded in the session store (default: the latest one).",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var session string
			if len(args) == 1 {
				session = args[0]
			}

			_, err := workflow.View(commandContext(cmd), domain.ViewArgs{
				Store:   m.Path(storePath()),
				Session: session,
			})

			return err
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
