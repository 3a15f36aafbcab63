package cmd

import (
	"github.com/spf13/cobra"

	"jitfuzz.dev/pkg/jitfuzz/internal/domain"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [file.java]",
		Short: "List mutators and their applicability",
		Long: `List every mutator with a short description. Given a Java file, also show
which mutators find a place to apply in it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var program m.Path
			if len(args) == 1 {
				program = m.Path(args[0])
			}

			return workflow.List(commandContext(cmd), domain.ListArgs{Program: program})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
