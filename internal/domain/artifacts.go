package domain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"jitfuzz.dev/pkg/jitfuzz/internal/adapter"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

const (
	bugsDir      = "bugs"
	failuresDir  = "failures"
	crashLogName = "hs_err.log"
	// maxReportOutput caps the process output copied into a report.
	maxReportOutput = 16 << 10
)

// ArtifactStore keeps the test cases worth a human look.
type ArtifactStore interface {
	// SaveBug stores a test case whose interpreted and compiled runs disagree.
	SaveBug(ctx context.Context, mutation m.Mutation, run RunResult, sig m.BugSignature) (m.Path, error)
	// SaveFailure stores a test case that did not compile, crashed or timed out.
	SaveFailure(ctx context.Context, mutation m.Mutation, run RunResult, reason string) (m.Path, error)
}

// ExecutionReport is the YAML form of one JVM run.
type ExecutionReport struct {
	ExitCode int           `yaml:"exit_code"`
	TimedOut bool          `yaml:"timed_out,omitempty"`
	Duration time.Duration `yaml:"duration"`
	Stdout   string        `yaml:"stdout,omitempty"`
	Stderr   string        `yaml:"stderr,omitempty"`
}

// ArtifactReport is written next to a saved test case.
type ArtifactReport struct {
	TestCase    string          `yaml:"test_case"`
	Parent      string          `yaml:"parent,omitempty"`
	Seed        string          `yaml:"seed"`
	Mutator     string          `yaml:"mutator"`
	MutatorSeed int64           `yaml:"mutator_seed"`
	Depth       int             `yaml:"depth"`
	Reason      string          `yaml:"reason"`
	Compile     ExecutionReport `yaml:"compile,omitempty"`
	Interpreter ExecutionReport `yaml:"interpreter"`
	JIT         ExecutionReport `yaml:"jit"`
	Bug         *m.BugSignature `yaml:"bug,omitempty"`
	Timestamp   time.Time       `yaml:"timestamp"`
}

type artifactStore struct {
	fsAdapter adapter.SourceFSAdapter
	root      m.Path
}

// NewArtifactStore stores artifacts below root. A blank root disables saving.
func NewArtifactStore(fsAdapter adapter.SourceFSAdapter, root m.Path) ArtifactStore {
	return &artifactStore{fsAdapter: fsAdapter, root: root}
}

func (s *artifactStore) SaveBug(ctx context.Context, mutation m.Mutation, run RunResult, sig m.BugSignature) (m.Path, error) {
	return s.save(ctx, bugsDir, mutation, run, sig.Reason, &sig)
}

func (s *artifactStore) SaveFailure(ctx context.Context, mutation m.Mutation, run RunResult, reason string) (m.Path, error) {
	return s.save(ctx, failuresDir, mutation, run, reason, nil)
}

func (s *artifactStore) save(ctx context.Context, kind string, mutation m.Mutation, run RunResult, reason string, sig *m.BugSignature) (m.Path, error) {
	tc := mutation.TestCase
	if s.root == "" || tc == nil {
		return "", nil
	}

	dir := s.fsAdapter.JoinPath(ctx, string(s.root), kind, tc.Name)
	if err := s.fsAdapter.MkdirAll(ctx, dir); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	sourcePath := s.fsAdapter.JoinPath(ctx, string(dir), tc.Name+".java")
	if err := s.fsAdapter.WriteFile(ctx, sourcePath, mutation.Source, 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", sourcePath, err)
	}

	if mutation.Diff != "" {
		diffPath := s.fsAdapter.JoinPath(ctx, string(dir), tc.Name+".diff")
		if err := s.fsAdapter.WriteFile(ctx, diffPath, []byte(mutation.Diff), 0o600); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", diffPath, err)
		}
	}

	report := ArtifactReport{
		TestCase:    tc.Name,
		Parent:      tc.ParentName,
		Seed:        tc.SeedName,
		Mutator:     tc.Mutation.String(),
		MutatorSeed: mutation.Seed,
		Depth:       tc.MutationDepth,
		Reason:      reason,
		Compile:     executionReport(run.Compile),
		Interpreter: executionReport(run.Interpreter),
		JIT:         executionReport(run.JIT),
		Bug:         sig,
		Timestamp:   time.Now().UTC(),
	}

	if len(run.CrashLog) > 0 {
		logPath := s.fsAdapter.JoinPath(ctx, string(dir), crashLogName)
		if err := s.fsAdapter.WriteFile(ctx, logPath, run.CrashLog, 0o600); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", logPath, err)
		}
	}

	if err := s.fsAdapter.WriteYAML(ctx, s.fsAdapter.JoinPath(ctx, string(dir), "report.yaml"), report); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	slog.Info("Saved test case", "kind", kind, "testCase", tc.Name, "reason", reason, "dir", dir)

	return dir, nil
}

func executionReport(e m.Execution) ExecutionReport {
	return ExecutionReport{
		ExitCode: e.ExitCode,
		TimedOut: e.TimedOut,
		Duration: e.Duration,
		Stdout:   truncate(e.Stdout, maxReportOutput),
		Stderr:   truncate(e.Stderr, maxReportOutput),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "\n... truncated"
}
