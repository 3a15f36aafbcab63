package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"jitfuzz.dev/pkg/jitfuzz/internal/domain"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

var runParallelFlag int
var runIterationsFlag int
var runDurationFlag time.Duration
var runSeedFlag int64
var runSchedulerFlag string
var runScoringFlag string
var runCapacityFlag int
var runPolicyFlag string
var runSessionFlag string

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [seed paths...]",
		Short: "Run a fuzzing campaign",
		Long:  runLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			campaign, err := campaignArgs(args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, err = workflow.Run(ctx, campaign)

			return err
		},
	}

	configureRunFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func configureRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&runParallelFlag, runParallelFlagName, "p", viper.GetInt(runParallelConfigKey), "number of parallel workers")
	bindFlagToConfig(cmd.Flags().Lookup(runParallelFlagName), runParallelConfigKey)

	cmd.Flags().IntVarP(&runIterationsFlag, runIterationsFlagName, "n", viper.GetInt(runIterationsConfigKey), "number of mutants to evaluate (0 = unbounded)")
	bindFlagToConfig(cmd.Flags().Lookup(runIterationsFlagName), runIterationsConfigKey)

	cmd.Flags().DurationVarP(&runDurationFlag, runDurationFlagName, "d", viper.GetDuration(runDurationConfigKey), "campaign wall time (0 = unbounded)")
	bindFlagToConfig(cmd.Flags().Lookup(runDurationFlagName), runDurationConfigKey)

	cmd.Flags().Int64Var(&runSeedFlag, runSeedFlagName, viper.GetInt64(runSeedConfigKey), "random seed (0 = derived from the clock)")
	bindFlagToConfig(cmd.Flags().Lookup(runSeedFlagName), runSeedConfigKey)

	cmd.Flags().StringVar(&runSchedulerFlag, runSchedulerFlagName, viper.GetString(runSchedulerConfigKey), "mutator scheduler: uniform or bandit")
	bindFlagToConfig(cmd.Flags().Lookup(runSchedulerFlagName), runSchedulerConfigKey)

	cmd.Flags().StringVar(&runScoringFlag, runScoringFlagName, viper.GetString(runScoringConfigKey), "scoring mode, see 'jitfuzz score --help'")
	bindFlagToConfig(cmd.Flags().Lookup(runScoringFlagName), runScoringConfigKey)

	cmd.Flags().IntVar(&runCapacityFlag, runCapacityFlagName, viper.GetInt(runCapacityConfigKey), "maximum corpus size (0 = default, negative = unbounded)")
	bindFlagToConfig(cmd.Flags().Lookup(runCapacityFlagName), runCapacityConfigKey)

	cmd.Flags().StringVar(&runPolicyFlag, runPolicyFlagName, viper.GetString(runPolicyConfigKey), "corpus admission policy: champion or random")
	bindFlagToConfig(cmd.Flags().Lookup(runPolicyFlagName), runPolicyConfigKey)

	cmd.Flags().StringVar(&runSessionFlag, runSessionFlagName, "", "session name (default: derived from the start time)")
}

func campaignArgs(args []string) (domain.CampaignArgs, error) {
	seeds := args
	if len(seeds) == 0 {
		seeds = viper.GetStringSlice(seedsConfigKey)
	}

	scoring, err := m.ParseScoringMode(viper.GetString(runScoringConfigKey))
	if err != nil {
		return domain.CampaignArgs{}, fmt.Errorf("invalid --%s: %w", runScoringFlagName, err)
	}

	rngSeed := viper.GetInt64(runSeedConfigKey)
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	return domain.CampaignArgs{
		Seeds:          parsePaths(seeds),
		Exclude:        viper.GetStringSlice(excludeConfigKey),
		Output:         m.Path(viper.GetString(outputFlagName)),
		Store:          m.Path(storePath()),
		Session:        runSessionFlag,
		Parallel:       viper.GetInt(runParallelConfigKey),
		Iterations:     viper.GetInt(runIterationsConfigKey),
		Duration:       viper.GetDuration(runDurationConfigKey),
		RNGSeed:        rngSeed,
		Scheduler:      viper.GetString(runSchedulerConfigKey),
		Scoring:        scoring,
		CorpusCapacity: viper.GetInt(runCapacityConfigKey),
		CorpusPolicy:   viper.GetString(runPolicyConfigKey),
	}, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}
