package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"jitfuzz.dev/pkg/jitfuzz/internal/domain"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

var scoreModesFlag []string

// scoreCmd represents the score command.
var scoreCmd = newScoreCmd()

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score jit.log",
		Short: "Score the optimization trace of a JIT run",
		Long: `Parse the optimization trace a C2 run printed to stderr and score it as a
first seed would be scored.

Scoring modes: ` + scoringModesHelp(),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modes, err := parseScoringModes(scoreModesFlag)
			if err != nil {
				return err
			}

			_, err = workflow.Score(commandContext(cmd), domain.ScoreArgs{
				Log:   m.Path(args[0]),
				Modes: modes,
			})

			return err
		},
	}

	cmd.Flags().StringArrayVar(&scoreModesFlag, scoreModeFlagName, nil, "scoring mode to report (can be repeated; default: all)")

	return cmd
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}

func scoringModesHelp() string {
	modes := m.ScoringModes()
	names := make([]string, len(modes))

	for i, mode := range modes {
		names[i] = string(mode)
	}

	return strings.Join(names, ", ")
}

func parseScoringModes(raw []string) ([]m.ScoringMode, error) {
	modes := make([]m.ScoringMode, 0, len(raw))

	for _, r := range raw {
		mode, err := m.ParseScoringMode(r)
		if err != nil {
			return nil, fmt.Errorf("invalid --%s: %w", scoreModeFlagName, err)
		}

		modes = append(modes, mode)
	}

	return modes, nil
}
