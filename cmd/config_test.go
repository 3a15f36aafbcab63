package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"jitfuzz.dev/pkg/jitfuzz/internal/domain"
)

func TestConfigConstants(t *testing.T) {
	assert.Equal(t, "jitfuzz", configBaseName)
	assert.Equal(t, "jitfuzz.yaml", configFileName)
	assert.Equal(t, ".", configFolderPath)
	assert.Equal(t, "output", outputFlagName)
	assert.Equal(t, "exclude", excludeFlagName)
	assert.Equal(t, "parallel", runParallelFlagName)
	assert.Equal(t, "fuzz.parallel", runParallelConfigKey)
	assert.Equal(t, "corpus-policy", runPolicyFlagName)
	assert.Equal(t, "fuzz.corpus_policy", runPolicyConfigKey)
	assert.Equal(t, domain.CorpusChampion, defaultCorpusPolicy)
	assert.Equal(t, "exclude", excludeConfigKey)
	assert.Equal(t, ".jitfuzz", defaultOutputDir)
	assert.Equal(t, 1, defaultRunParallel)
	assert.Equal(t, "JITFUZZ", envPrefix)
}

func TestConfigVersionConstants(t *testing.T) {
	assert.Equal(t, "version", configVersionKey)
	assert.Equal(t, 1, currentConfigVersion)
}

func TestConfigDefaults(t *testing.T) {
	assert.Equal(t, []string{defaultSeedsDir}, viper.GetStringSlice(seedsConfigKey))
	assert.Equal(t, defaultRunScheduler, viper.GetString(runSchedulerConfigKey))
	assert.Equal(t, defaultRunScoring, viper.GetString(runScoringConfigKey))
	assert.Equal(t, defaultJava, viper.GetString(jvmJavaKey))
	assert.Equal(t, defaultJVMTimeout, viper.GetDuration(jvmTimeoutKey))
}

func TestParseSlogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"", slog.LevelWarn},
		{"debug", slog.LevelDebug},
		{" INFO ", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"-4", slog.LevelDebug},
		{"loud", slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSlogLevel(tt.value, slog.LevelWarn))
		})
	}
}

func TestWriteConfigTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)

	require.NoError(t, writeConfigTemplate(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var settings map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &settings))

	fuzz, ok := settings["fuzz"].(map[string]any)
	require.True(t, ok, "fuzz section missing: %s", raw)
	assert.Contains(t, fuzz, "scheduler")
	assert.Contains(t, settings, "jvm")

	require.Error(t, writeConfigTemplate(path), "existing file must not be overwritten")
}
