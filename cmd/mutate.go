package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"jitfuzz.dev/pkg/jitfuzz/internal/domain"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

var mutateMutatorFlag string
var mutateSeedFlag int64
var mutateWriteFlag string

// mutateCmd represents the mutate command.
var mutateCmd = newMutateCmd()

func newMutateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mutate file.java",
		Short: "Apply one mutator to a Java file",
		Long: `Apply one mutator to a Java file and show the unified diff. The same
--seed always produces the same mutant.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mutator, err := m.ParseMutatorType(mutateMutatorFlag)
			if err != nil {
				return fmt.Errorf("invalid --%s: %w", mutateMutatorFlagName, err)
			}

			_, err = workflow.Mutate(commandContext(cmd), domain.MutateArgs{
				Program: m.Path(args[0]),
				Mutator: mutator,
				Seed:    mutateSeedFlag,
				Write:   m.Path(mutateWriteFlag),
			})

			return err
		},
	}

	configureMutateFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(mutateCmd)
}

func configureMutateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&mutateMutatorFlag, mutateMutatorFlagName, "m", "", "mutator to apply, see 'jitfuzz list'")
	cmd.Flags().Int64Var(&mutateSeedFlag, mutateSeedFlagName, 1, "random seed of the mutation")
	cmd.Flags().StringVarP(&mutateWriteFlag, mutateWriteFlagName, "w", "", "write the mutated source to this file")
	cobra.CheckErr(cmd.MarkFlagRequired(mutateMutatorFlagName))
}
