package cmd

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"jitfuzz.dev/pkg/jitfuzz/internal/domain"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

func newTestRunCmd() *cobra.Command {
	cmd := newRootCmd()
	cmd.AddCommand(newRunCmd())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	return cmd
}

func TestRunCmd_Defaults(t *testing.T) {
	mw := newMockWorkflow(t)
	useWorkflow(t, mw)

	var got domain.CampaignArgs

	mw.On("Run", mock.Anything, mock.AnythingOfType("domain.CampaignArgs")).
		Run(func(args mock.Arguments) { got = args.Get(1).(domain.CampaignArgs) }).
		Return(m.CampaignSummary{}, nil)

	cmd := newTestRunCmd()
	cmd.SetArgs([]string{"run", "./seeds/..."})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, []m.Path{"./seeds/..."}, got.Seeds)
	assert.Empty(t, got.Exclude)
	assert.Equal(t, m.Path(defaultOutputDir), got.Output)
	assert.Equal(t, m.Path(filepath.Join(defaultOutputDir, defaultStoreFileName)), got.Store)
	assert.Empty(t, got.Session)
	assert.Equal(t, defaultRunParallel, got.Parallel)
	assert.Zero(t, got.Iterations)
	assert.Zero(t, got.Duration)
	assert.NotZero(t, got.RNGSeed)
	assert.Equal(t, defaultRunScheduler, got.Scheduler)
	assert.Equal(t, m.ScoringPFIDF, got.Scoring)
	assert.Zero(t, got.CorpusCapacity)
	assert.Equal(t, defaultCorpusPolicy, got.CorpusPolicy)
}

func TestRunCmd_DefaultSeedsFromConfig(t *testing.T) {
	mw := newMockWorkflow(t)
	useWorkflow(t, mw)

	mw.On("Run", mock.Anything, mock.MatchedBy(func(args domain.CampaignArgs) bool {
		return len(args.Seeds) == 1 && args.Seeds[0] == m.Path(defaultSeedsDir)
	})).Return(m.CampaignSummary{}, nil)

	cmd := newTestRunCmd()
	cmd.SetArgs([]string{"run"})
	require.NoError(t, cmd.Execute())
}

func TestRunCmd_Flags(t *testing.T) {
	mw := newMockWorkflow(t)
	useWorkflow(t, mw)

	mw.On("Run", mock.Anything, mock.MatchedBy(func(args domain.CampaignArgs) bool {
		return assert.ObjectsAreEqual([]m.Path{"./a", "./b"}, args.Seeds) &&
			assert.ObjectsAreEqual([]string{"^Gen"}, args.Exclude) &&
			args.Output == "out" &&
			args.Store == m.Path(filepath.Join("out", defaultStoreFileName)) &&
			args.Session == "nightly" &&
			args.Parallel == 3 &&
			args.Iterations == 50 &&
			args.Duration == 2*time.Minute &&
			args.RNGSeed == 7 &&
			args.Scheduler == "uniform" &&
			args.Scoring == m.ScoringPairCoverage &&
			args.CorpusCapacity == 5 &&
			args.CorpusPolicy == "random"
	})).Return(m.CampaignSummary{}, nil)

	cmd := newTestRunCmd()
	cmd.SetArgs([]string{
		"run",
		"-p", "3",
		"-n", "50",
		"-d", "2m",
		"--seed", "7",
		"--scheduler", "uniform",
		"--scoring", "pair-coverage",
		"--corpus-capacity", "5",
		"--corpus-policy", "random",
		"--session", "nightly",
		"-x", "^Gen",
		"-o", "out",
		"./a", "./b",
	})
	require.NoError(t, cmd.Execute())
}

func TestRunCmd_StoreFlag(t *testing.T) {
	mw := newMockWorkflow(t)
	useWorkflow(t, mw)

	mw.On("Run", mock.Anything, mock.MatchedBy(func(args domain.CampaignArgs) bool {
		return args.Store == "shared.db"
	})).Return(m.CampaignSummary{}, nil)

	cmd := newTestRunCmd()
	cmd.SetArgs([]string{"run", "--store", "shared.db", "./seeds"})
	require.NoError(t, cmd.Execute())
}

func TestRunCmd_InvalidScoring(t *testing.T) {
	mw := newMockWorkflow(t)
	useWorkflow(t, mw)

	cmd := newTestRunCmd()
	cmd.SetArgs([]string{"run", "--scoring", "best", "./seeds"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --scoring")
	mw.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestRunCmd_WorkflowError(t *testing.T) {
	mw := newMockWorkflow(t)
	useWorkflow(t, mw)

	mw.On("Run", mock.Anything, mock.Anything).Return(m.CampaignSummary{}, domain.ErrNoSeeds)

	cmd := newTestRunCmd()
	cmd.SetArgs([]string{"run", "./empty"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNoSeeds))
}
