package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"jitfuzz.dev/pkg/jitfuzz/internal/adapter"
	"jitfuzz.dev/pkg/jitfuzz/internal/domain/scoring"
	"jitfuzz.dev/pkg/jitfuzz/internal/domain/stats"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

// ErrPreviewCommitted is returned when a score preview would be committed a
// second time.
var ErrPreviewCommitted = errors.New("score preview already committed")

const scoreEpsilon = 1e-9

// RecordSink receives one record per evaluated test case. pkg.FileSpill
// satisfies it.
type RecordSink interface {
	Append(item m.EvaluationRecord) error
}

// Evaluation is the verdict on one executed test case.
type Evaluation struct {
	TestCase *m.TestCase
	Outcome  m.EvaluationOutcome
	// Scored is false when the run was classified before scoring.
	Scored   bool
	Decision CorpusDecision
	Reason   string
	// Artifact is the directory a bug or failure was saved to.
	Artifact m.Path
	// Bug is set for OutcomeBug.
	Bug *m.BugSignature
}

// Evaluator classifies runs, scores the passing ones and feeds the corpus,
// the scheduler and the global statistics.
type Evaluator interface {
	Evaluate(ctx context.Context, mutation m.Mutation, run RunResult) (Evaluation, error)
}

type evaluator struct {
	scorer    scoring.Scorer
	corpus    Corpus
	scheduler MutatorScheduler
	stats     *stats.GlobalStats
	artifacts ArtifactStore
	records   RecordSink
}

const (
	compileFailureReason = "compilation failed"
	stdoutMismatchReason = "different stdout"
)

// NewEvaluator wires an Evaluator. records may be nil.
func NewEvaluator(scorer scoring.Scorer, corpus Corpus, scheduler MutatorScheduler, globalStats *stats.GlobalStats, artifacts ArtifactStore, records RecordSink) Evaluator {
	return &evaluator{
		scorer:    scorer,
		corpus:    corpus,
		scheduler: scheduler,
		stats:     globalStats,
		artifacts: artifacts,
		records:   records,
	}
}

func (e *evaluator) Evaluate(ctx context.Context, mutation m.Mutation, run RunResult) (Evaluation, error) {
	tc := mutation.TestCase
	if tc == nil {
		return Evaluation{}, fmt.Errorf("test case is nil")
	}

	e.stats.IncEvaluated()

	ev, err := e.classify(ctx, mutation, run)
	if err != nil {
		return ev, err
	}

	e.scheduler.Update(tc.Mutation, ev.Outcome)
	e.stats.RecordOutcome(tc.Mutation, ev.Outcome)
	e.record(ev, run)

	return ev, nil
}

func (e *evaluator) classify(ctx context.Context, mutation m.Mutation, run RunResult) (Evaluation, error) {
	tc := mutation.TestCase
	ev := Evaluation{TestCase: tc}

	interp, jit := run.Interpreter, run.JIT

	switch {
	case run.CompileFailed:
		e.stats.IncCompileFailure()

		ev.Outcome, ev.Reason = m.OutcomeFailure, compileFailureReason
		ev.Artifact = e.saveFailure(ctx, mutation, run, ev.Reason)

		return ev, nil

	case run.TimedOut():
		if interp.TimedOut {
			e.stats.IncInterpreterTimeout()
		}

		if jit.TimedOut {
			e.stats.IncJITTimeout()
		}

		ev.Outcome, ev.Reason = m.OutcomeTimeout, timeoutReason(interp.TimedOut, jit.TimedOut)
		ev.Artifact = e.saveFailure(ctx, mutation, run, ev.Reason)

		return ev, nil

	case interp.ExitCode != jit.ExitCode:
		ev.Outcome = m.OutcomeBug
		ev.Reason = fmt.Sprintf("different exit codes: interpreter=%d, jit=%d", interp.ExitCode, jit.ExitCode)
		ev.Bug, ev.Artifact = e.saveBug(ctx, mutation, run, ev.Reason)

		return ev, nil

	case interp.ExitCode != 0:
		ev.Outcome, ev.Reason = m.OutcomeFailure, fmt.Sprintf("non-zero exit code %d", interp.ExitCode)
		ev.Artifact = e.saveFailure(ctx, mutation, run, ev.Reason)

		return ev, nil

	case interp.Stdout != jit.Stdout:
		ev.Outcome, ev.Reason = m.OutcomeBug, stdoutMismatchReason
		ev.Bug, ev.Artifact = e.saveBug(ctx, mutation, run, ev.Reason)

		return ev, nil
	}

	return e.score(ev, mutation, run)
}

func (e *evaluator) score(ev Evaluation, mutation m.Mutation, run RunResult) (Evaluation, error) {
	tc := mutation.TestCase
	tc.Vectors = run.Vectors
	ev.Scored = true

	if run.Vectors != nil {
		e.stats.RecordFeatureDelta(tc.Mutation, &run.Vectors.Merged, &tc.ParentMerged)
	}

	e.stats.RecordExecution(run.Interpreter.Duration, run.JIT.Duration)

	preview, err := e.scorer.PreviewScore(tc, run.Vectors)
	if err != nil {
		return ev, fmt.Errorf("failed to score %s: %w", tc.Name, err)
	}

	if math.IsNaN(preview.Score) || preview.Score <= 0 {
		tc.DeactivateChampion()

		ev.Outcome = m.OutcomeNoImprovement
		ev.Decision = CorpusDecision{Outcome: m.CorpusDiscarded, Reason: preview.ZeroReason}
		ev.Reason = preview.ZeroReason
		e.stats.RecordCorpus(m.CorpusDiscarded, e.corpus.Size())

		return ev, nil
	}

	var committed float64

	commit := func() error {
		if preview.Committed() {
			return fmt.Errorf("%w: %s", ErrPreviewCommitted, tc.Name)
		}

		score, err := e.scorer.CommitScore(tc, preview)
		if err != nil {
			return fmt.Errorf("failed to commit score of %s: %w", tc.Name, err)
		}

		if preview.HotClass != "" {
			tc.HotClass, tc.HotMethod = preview.HotClass, preview.HotMethod
		}

		committed = score

		return nil
	}

	ev.Decision, err = e.corpus.Evaluate(Champion{TestCase: tc, Source: mutation.Source}, commit)
	if err != nil {
		return ev, err
	}

	ev.Reason = ev.Decision.Reason
	e.stats.RecordCorpus(ev.Decision.Outcome, e.corpus.Size())

	for _, evicted := range ev.Decision.Evicted {
		slog.Debug("Champion evicted", "testCase", evicted.TestCase.Name, "score", evicted.TestCase.Score)
	}

	if ev.Decision.Outcome.Kept() {
		e.stats.RecordScore(committed)

		slog.Info("Test case kept", "testCase", tc.Name, "corpus", ev.Decision.Outcome,
			"mode", e.scorer.Mode(), "score", committed)
	} else {
		slog.Debug("Test case not kept", "testCase", tc.Name, "corpus", ev.Decision.Outcome, "reason", ev.Reason)
	}

	if tc.Score > tc.ParentScore+scoreEpsilon {
		ev.Outcome = m.OutcomeImproved
	} else {
		ev.Outcome = m.OutcomeNoImprovement
	}

	return ev, nil
}

func (e *evaluator) saveBug(ctx context.Context, mutation m.Mutation, run RunResult, reason string) (*m.BugSignature, m.Path) {
	tc := mutation.TestCase
	sig := adapter.BucketizeBug(reason, run.Interpreter, run.JIT, run.Crash, tc.Mutation.String(), tc.SeedName)

	if e.stats.RecordBug(sig.Bucket) {
		slog.Warn("New bug bucket", "testCase", tc.Name, "bucket", sig.Bucket, "mutator", tc.Mutation,
			"signal", sig.Signal, "frame", sig.ProblematicFrame)
	}

	slog.Error("Interpreter and JIT disagree", "testCase", tc.Name, "reason", reason, "bucket", sig.Bucket)

	path, err := e.artifacts.SaveBug(ctx, mutation, run, sig)
	if err != nil {
		slog.Error("Failed to save bug", "testCase", tc.Name, "error", err)
	}

	return &sig, path
}

func (e *evaluator) saveFailure(ctx context.Context, mutation m.Mutation, run RunResult, reason string) m.Path {
	tc := mutation.TestCase
	slog.Debug("Test case failed", "testCase", tc.Name, "mutator", tc.Mutation, "reason", reason)

	path, err := e.artifacts.SaveFailure(ctx, mutation, run, reason)
	if err != nil {
		slog.Error("Failed to save failing test case", "testCase", tc.Name, "error", err)
	}

	return path
}

func (e *evaluator) record(ev Evaluation, run RunResult) {
	if e.records == nil {
		return
	}

	tc := ev.TestCase
	rec := m.EvaluationRecord{
		TestCase:      tc.Name,
		Parent:        tc.ParentName,
		Seed:          tc.SeedName,
		Mutator:       tc.Mutation.String(),
		MutationDepth: tc.MutationDepth,
		Outcome:       ev.Outcome.String(),
		Reason:        ev.Reason,
		Runtime:       run.Interpreter.Duration + run.JIT.Duration,
		Timestamp:     time.Now().UTC(),
	}

	if ev.Bug != nil {
		rec.Bucket = ev.Bug.Bucket
	}

	if ev.Scored {
		rec.Corpus = ev.Decision.Outcome.String()
		rec.Score = tc.Score

		if run.Vectors != nil {
			for i, c := range run.Vectors.Merged.Counts {
				if c > 0 {
					rec.Features = append(rec.Features, i)
				}
			}
		}
	}

	if err := e.records.Append(rec); err != nil {
		slog.Error("Failed to append evaluation record", "testCase", tc.Name, "error", err)
	}
}

func timeoutReason(interpreter, jit bool) string {
	switch {
	case interpreter && jit:
		return "interpreter and JIT timeout"
	case interpreter:
		return "interpreter timeout"
	default:
		return "JIT timeout"
	}
}
