package cmd

import (
	"github.com/spf13/cobra"

	"jitfuzz.dev/pkg/jitfuzz/internal/domain"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

// mergeCmd represents the merge command.
var mergeCmd = newMergeCmd()

func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge store.db...",
		Short: "Merge session stores into the configured one",
		Long: `Copy every session of the given stores, for example from campaigns run on
other machines, into the session store. Sessions it already holds are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			merged, err := workflow.Merge(commandContext(cmd), domain.MergeArgs{
				Store:   m.Path(storePath()),
				Sources: parsePaths(args),
			})
			if err != nil {
				return err
			}

			cmd.Printf("merged %d session(s) into %s\n", merged, storePath())

			return nil
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}
