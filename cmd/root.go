// Package cmd provides the root command and CLI setup for jitfuzz.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"jitfuzz.dev/pkg/jitfuzz/internal/adapter"
	"jitfuzz.dev/pkg/jitfuzz/internal/controller"
	"jitfuzz.dev/pkg/jitfuzz/internal/domain"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

var javaFileAdapter adapter.JavaFileAdapter
var fsAdapter adapter.SourceFSAdapter
var jvmAdapter adapter.JVMRunnerAdapter
var sessionStore adapter.SessionStore
var orchestrator domain.Orchestrator
var mutagen domain.Mutagen
var workflow domain.Workflow
var ui controller.UI

// outputDirFlag is a root-level flag shared by commands that write artifacts.
var outputDirFlag string

// storeFlag overrides the session store location.
var storeFlag string

// excludePatterns is a root-level flag that filters seed files.
var excludePatterns []string

var logFileFlag string
var verboseFlag bool

func init() {
	configureRootFlags(rootCmd)

	rootCmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		configureLogger(logFileFlag, verboseFlag)
	}

	// Initialize shared dependencies. JVM settings come from the config
	// file and the environment.
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	javaFileAdapter = adapter.NewLocalJavaFileAdapter()
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	jvmAdapter = adapter.NewLocalJVMRunnerAdapter(
		viper.GetString(jvmJavaKey),
		viper.GetString(jvmJavacKey),
		viper.GetDuration(jvmTimeoutKey),
	)
	sessionStore = adapter.NewSQLiteSessionStore()
	orchestrator = domain.NewOrchestrator(fsAdapter, javaFileAdapter, jvmAdapter, viper.GetStringSlice(jvmJITFlagsKey))
	mutagen = domain.NewMutagen(javaFileAdapter)
	workflow = domain.NewWorkflow(
		fsAdapter,
		javaFileAdapter,
		sessionStore,
		ui,
		orchestrator,
		mutagen,
	)
}

const seedPathsHelp = `Seed paths accept Go-style patterns:
  - ./seeds        Java files directly in seeds
  - ./seeds/...    Java files anywhere below seeds
  - ./a ./b        several directories`

const rootLongDescription = `jitfuzz is a coverage-guided fuzzer for the HotSpot JIT compiler. It mutates
Java seed programs so that they provoke C2 optimizations, runs every mutant in
the interpreter and with C2, and reports programs whose behaviour differs.

Mutants are kept when their optimization profile is new or more interesting
than what the corpus already holds.

` + seedPathsHelp

const runLongDescription = `Run a fuzzing campaign on the given seed paths (default: the configured seeds).

The campaign stops after --iterations mutants, after --duration, or on interrupt.
Bugs and compile failures are written under the output directory together with
the final corpus and a YAML summary; every evaluation is recorded in the
session store.

` + seedPathsHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jitfuzz",
		Short: "HotSpot JIT compiler fuzzer",
		Long:  rootLongDescription,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

// newRootCmd builds a root command with the persistent flags and no
// subcommands.
func newRootCmd() *cobra.Command {
	cmd := baseRootCmd()
	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&outputDirFlag, outputFlagName, "o",
			viper.GetString(outputFlagName),
			"output directory for bugs, failures, the corpus and session summaries",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().StringVar(&storeFlag, storeFlagName, viper.GetString(storePathConfigKey), "session store file (default: <output>/"+defaultStoreFileName+")")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(storeFlagName), storePathConfigKey)

	cmd.PersistentFlags().StringArrayVarP(&excludePatterns, excludeFlagName, "x", viper.GetStringSlice(excludeConfigKey), "exclude seed files matching regex (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(excludeFlagName), excludeConfigKey)

	cmd.PersistentFlags().StringVar(&logFileFlag, logFileFlagName, "", "log file (default "+defaultLogFilename+")")
	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", false, "log at debug level")
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
