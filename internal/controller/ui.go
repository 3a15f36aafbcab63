// Package controller provides output adapters for displaying fuzzing campaigns.
package controller

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeReport StartMode = iota
	ModeCampaign
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode StartMode
}

// WithReportMode sets the UI to one-shot report mode (list, mutate, score).
func WithReportMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeReport
	}
}

// WithCampaignMode sets the UI to live campaign mode.
func WithCampaignMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeCampaign
	}
}

func startConfig(options []StartOption) StartConfig {
	var cfg StartConfig
	for _, opt := range options {
		opt(&cfg)
	}

	return cfg
}

// CampaignInfo describes a campaign about to start.
type CampaignInfo struct {
	Session    string
	Seeds      int
	Workers    int
	Iterations int
	Scheduler  string
	Scoring    m.ScoringMode
	RNGSeed    int64
}

// EvaluationEvent is one evaluated test case.
type EvaluationEvent struct {
	TestCase string
	Parent   string
	Mutator  m.MutatorType
	Outcome  m.EvaluationOutcome
	Corpus   string
	Score    float64
	Reason   string
	Artifact m.Path
}

// Progress is a periodic view of the campaign counters.
type Progress struct {
	Evaluated  int64
	Bugs       int64
	UniqueBugs int
	Failures   int64
	Timeouts   int64
	CorpusSize int64
	MaxScore   float64
	Features   int
	Pairs      int
}

// MutatorInfo is one row of the mutator listing.
type MutatorInfo struct {
	Mutator     m.MutatorType
	Description string
	// Applicable is nil when no program was given.
	Applicable *bool
}

// FeatureScore is one feature line of a score report.
type FeatureScore struct {
	Feature m.Feature
	Count   int
}

// ScoreReport is the result of scoring one JVM log.
type ScoreReport struct {
	Source  string
	Methods int
	Scores  map[m.ScoringMode]float64
	Reasons map[m.ScoringMode]string
	Counts  []FeatureScore
}

// UI defines the interface for displaying campaign progress and reports.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context) // Wait for UI to finish (user closes it)
	DisplayCampaignInfo(ctx context.Context, info CampaignInfo)
	DisplayEvaluation(ctx context.Context, event EvaluationEvent)
	DisplayProgress(ctx context.Context, progress Progress)
	DisplaySummary(ctx context.Context, summary m.CampaignSummary)
	DisplayMutators(ctx context.Context, mutators []MutatorInfo) error
	DisplayMutation(ctx context.Context, mutation m.Mutation) error
	DisplayScore(ctx context.Context, report ScoreReport) error
}

// NewUI returns the interactive TUI when the output is a terminal and the
// line-oriented SimpleUI otherwise.
func NewUI(cmd *cobra.Command, tty bool) UI {
	if tty {
		return NewTUI(cmd.OutOrStdout())
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
