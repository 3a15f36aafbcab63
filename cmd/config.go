package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "jitfuzz"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	outputFlagName  = "output"
	excludeFlagName = "exclude"
	storeFlagName   = "store"
	logFileFlagName = "log-file"
	verboseFlagName = "verbose"

	runParallelFlagName   = "parallel"
	runIterationsFlagName = "iterations"
	runDurationFlagName   = "duration"
	runSeedFlagName       = "seed"
	runSchedulerFlagName  = "scheduler"
	runScoringFlagName    = "scoring"
	runCapacityFlagName   = "corpus-capacity"
	runPolicyFlagName     = "corpus-policy"
	runSessionFlagName    = "session"

	mutateMutatorFlagName = "mutator"
	mutateSeedFlagName    = "seed"
	mutateWriteFlagName   = "write"
	scoreModeFlagName     = "mode"

	seedsConfigKey         = "seeds"
	excludeConfigKey       = "exclude"
	storePathConfigKey     = "store.path"
	runParallelConfigKey   = "fuzz.parallel"
	runIterationsConfigKey = "fuzz.iterations"
	runDurationConfigKey   = "fuzz.duration"
	runSeedConfigKey       = "fuzz.seed"
	runSchedulerConfigKey  = "fuzz.scheduler"
	runScoringConfigKey    = "fuzz.scoring"
	runCapacityConfigKey   = "fuzz.corpus_capacity"
	runPolicyConfigKey     = "fuzz.corpus_policy"
	jvmJavaKey             = "jvm.java"
	jvmJavacKey            = "jvm.javac"
	jvmTimeoutKey          = "jvm.timeout"
	jvmJITFlagsKey         = "jvm.jit_flags"

	defaultSeedsDir       = "seeds"
	defaultOutputDir      = ".jitfuzz"
	defaultStoreFileName  = "sessions.db"
	defaultRunParallel    = 1
	defaultRunIterations  = 0
	defaultRunDuration    = time.Duration(0)
	defaultRunScheduler   = "bandit"
	defaultRunScoring     = "PF_IDF"
	defaultCorpusCapacity = 0
	defaultCorpusPolicy   = "champion"
	defaultJava           = "java"
	defaultJavac          = "javac"
	defaultJVMTimeout     = 10 * time.Second

	envPrefix = "JITFUZZ"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".jitfuzz.log"
	defaultLogLevel      = "info"
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return
		}

		slog.Warn("Failed to read config file", "file", configFileName, "error", err)
	}
}

func setDefaults() {
	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(seedsConfigKey, []string{defaultSeedsDir})
	viper.SetDefault(excludeConfigKey, []string{})
	viper.SetDefault(outputFlagName, defaultOutputDir)
	viper.SetDefault(storePathConfigKey, "")

	viper.SetDefault(runParallelConfigKey, defaultRunParallel)
	viper.SetDefault(runIterationsConfigKey, defaultRunIterations)
	viper.SetDefault(runDurationConfigKey, defaultRunDuration.String())
	viper.SetDefault(runSeedConfigKey, int64(0))
	viper.SetDefault(runSchedulerConfigKey, defaultRunScheduler)
	viper.SetDefault(runScoringConfigKey, defaultRunScoring)
	viper.SetDefault(runCapacityConfigKey, defaultCorpusCapacity)
	viper.SetDefault(runPolicyConfigKey, defaultCorpusPolicy)

	viper.SetDefault(jvmJavaKey, defaultJava)
	viper.SetDefault(jvmJavacKey, defaultJavac)
	viper.SetDefault(jvmTimeoutKey, defaultJVMTimeout.String())
	viper.SetDefault(jvmJITFlagsKey, []string{})

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)
}

// storePath resolves the session store, which lives in the output
// directory unless configured otherwise.
func storePath() string {
	if path := strings.TrimSpace(viper.GetString(storePathConfigKey)); path != "" {
		return path
	}

	return filepath.Join(viper.GetString(outputFlagName), defaultStoreFileName)
}

// writeConfigTemplate writes the current settings as YAML. It refuses to
// overwrite an existing file.
func writeConfigTemplate(path string) error {
	settings := viper.AllSettings()

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at the configured level; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose || viper.GetBool(logVerboseKey) {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
