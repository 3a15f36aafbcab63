package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"jitfuzz.dev/pkg/jitfuzz/internal/adapter"
	"jitfuzz.dev/pkg/jitfuzz/internal/controller"
	"jitfuzz.dev/pkg/jitfuzz/internal/domain/scoring"
	"jitfuzz.dev/pkg/jitfuzz/internal/domain/stats"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

// ErrNoSessions is returned when a session store holds no campaign.
var ErrNoSessions = errors.New("no sessions stored")

// ListArgs contains the arguments for listing mutators.
type ListArgs struct {
	// Program is an optional Java file whose applicable mutators are marked.
	Program m.Path
}

// MutateArgs contains the arguments for applying one mutator to a file.
type MutateArgs struct {
	Program m.Path
	Mutator m.MutatorType
	Seed    int64
	// Write receives the mutated source when set.
	Write m.Path
}

// ScoreArgs contains the arguments for scoring a JVM log.
type ScoreArgs struct {
	Log   m.Path
	Modes []m.ScoringMode
}

// ViewArgs contains the arguments for viewing a stored session.
type ViewArgs struct {
	Store m.Path
	// Session defaults to the most recent one.
	Session string
}

// MergeArgs contains the arguments for merging session stores.
type MergeArgs struct {
	Store   m.Path
	Sources []m.Path
}

// Tools groups the one-shot commands that run outside a campaign.
type Tools interface {
	List(ctx context.Context, args ListArgs) error
	Mutate(ctx context.Context, args MutateArgs) (m.Mutation, error)
	Score(ctx context.Context, args ScoreArgs) (controller.ScoreReport, error)
	View(ctx context.Context, args ViewArgs) (m.CampaignSummary, error)
	Merge(ctx context.Context, args MergeArgs) (int, error)
}

func (w *workflow) startReport(ctx context.Context) error {
	if err := w.Start(ctx, controller.WithReportMode()); err != nil {
		slog.Error("Failed to start report UI", "error", err)
		return err
	}

	return nil
}

func (w *workflow) readProgram(ctx context.Context, path m.Path) (m.Program, error) {
	src, err := w.ReadFile(ctx, path)
	if err != nil {
		return m.Program{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	file := m.File{Path: path}

	program, err := w.Program(ctx, &file, src)
	if err != nil {
		return m.Program{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return program, nil
}

func (w *workflow) List(ctx context.Context, args ListArgs) error {
	var applicable map[m.MutatorType]bool

	if args.Program != "" {
		program, err := w.readProgram(ctx, args.Program)
		if err != nil {
			return err
		}

		types, err := w.Applicable(ctx, m.NewSeedTestCase(program.Name, program.HotClass, program.HotMethod), program.Source)
		if err != nil {
			return fmt.Errorf("failed to probe mutators: %w", err)
		}

		applicable = make(map[m.MutatorType]bool, len(types))
		for _, t := range types {
			applicable[t] = true
		}
	}

	candidates := m.MutationCandidates()
	infos := make([]controller.MutatorInfo, 0, len(candidates))

	for _, t := range candidates {
		info := controller.MutatorInfo{Mutator: t}

		if applicable != nil {
			ok := applicable[t]
			info.Applicable = &ok
		}

		infos = append(infos, info)
	}

	if err := w.startReport(ctx); err != nil {
		return err
	}

	defer w.Close(ctx)

	return w.DisplayMutators(ctx, infos)
}

func (w *workflow) Mutate(ctx context.Context, args MutateArgs) (m.Mutation, error) {
	if !args.Mutator.Valid() || args.Mutator == m.Seed {
		return m.Mutation{}, fmt.Errorf("%w: %s", ErrUnknownMutator, args.Mutator)
	}

	program, err := w.readProgram(ctx, args.Program)
	if err != nil {
		return m.Mutation{}, err
	}

	parent := m.NewSeedTestCase(program.Name, program.HotClass, program.HotMethod)

	mutation, err := w.Mutagen.Mutate(ctx, parent, program.Source, args.Mutator, args.Seed)

	switch {
	case errors.Is(err, ErrNotApplicable):
		mutation = m.Mutation{Result: m.Skipped(args.Mutator, err.Error()), Seed: args.Seed}
	case err != nil:
		return m.Mutation{}, fmt.Errorf("failed to apply %s: %w", args.Mutator, err)
	}

	if mutation.TestCase != nil && args.Write != "" {
		dir := filepath.Dir(string(args.Write))
		if err := w.MkdirAll(ctx, m.Path(dir)); err != nil {
			return mutation, fmt.Errorf("failed to create %s: %w", dir, err)
		}

		if err := w.WriteFile(ctx, args.Write, mutation.Source, 0o600); err != nil {
			return mutation, fmt.Errorf("failed to write %s: %w", args.Write, err)
		}

		slog.Info("Mutated source written", "path", args.Write, "testCase", mutation.TestCase.Name)
	}

	if err := w.startReport(ctx); err != nil {
		return mutation, err
	}

	defer w.Close(ctx)

	return mutation, w.DisplayMutation(ctx, mutation)
}

// Score parses a JIT run's stderr and scores it under each mode against
// empty statistics, the way a first seed would be scored.
func (w *workflow) Score(ctx context.Context, args ScoreArgs) (controller.ScoreReport, error) {
	raw, err := w.ReadFile(ctx, args.Log)
	if err != nil {
		return controller.ScoreReport{}, fmt.Errorf("failed to read %s: %w", args.Log, err)
	}

	vectors := adapter.ParseOptimizationVectors(string(raw))

	modes := args.Modes
	if len(modes) == 0 {
		modes = m.ScoringModes()
	}

	report := controller.ScoreReport{
		Source:  string(args.Log),
		Methods: len(vectors.Vectors),
		Scores:  make(map[m.ScoringMode]float64, len(modes)),
		Reasons: make(map[m.ScoringMode]string, len(modes)),
	}

	for f, count := range vectors.Merged.Counts {
		if count > 0 {
			report.Counts = append(report.Counts, controller.FeatureScore{Feature: m.Feature(f), Count: count})
		}
	}

	name := strings.TrimSuffix(filepath.Base(string(args.Log)), filepath.Ext(string(args.Log)))

	for _, mode := range modes {
		scorer := scoring.NewScorer(mode, stats.New(m.FeatureCount))

		preview, err := scorer.PreviewScore(m.NewSeedTestCase(name, "", ""), vectors)
		if err != nil {
			return report, fmt.Errorf("failed to score with %s: %w", mode, err)
		}

		report.Scores[mode] = preview.Score

		switch {
		case preview.ZeroReason != "":
			report.Reasons[mode] = preview.ZeroReason
		case preview.HotClass != "":
			report.Reasons[mode] = "hot " + preview.HotClass + "#" + preview.HotMethod
		}
	}

	if err := w.startReport(ctx); err != nil {
		return report, err
	}

	defer w.Close(ctx)

	return report, w.DisplayScore(ctx, report)
}

// View rebuilds the summary of a stored session from its records.
// Champions are not stored, so the summary has none.
func (w *workflow) View(ctx context.Context, args ViewArgs) (m.CampaignSummary, error) {
	session := args.Session

	if session == "" {
		sessions, err := w.Sessions(ctx, args.Store)
		if err != nil {
			return m.CampaignSummary{}, fmt.Errorf("failed to list sessions: %w", err)
		}

		if len(sessions) == 0 {
			return m.CampaignSummary{}, ErrNoSessions
		}

		session = sessions[len(sessions)-1]
	}

	records, err := w.LoadRecords(ctx, args.Store, session)
	if err != nil {
		return m.CampaignSummary{}, fmt.Errorf("failed to load session %s: %w", session, err)
	}

	if len(records) == 0 {
		return m.CampaignSummary{}, fmt.Errorf("%w: session %q", ErrNoSessions, session)
	}

	summary := summarizeSession(session, records)

	summary.Mutators, err = w.MutatorSummary(ctx, args.Store, session)
	if err != nil {
		return summary, fmt.Errorf("failed to summarize session %s: %w", session, err)
	}

	if err := w.startReport(ctx); err != nil {
		return summary, err
	}

	defer w.Close(ctx)

	w.DisplaySummary(ctx, summary)

	return summary, nil
}

func summarizeSession(session string, records []m.EvaluationRecord) m.CampaignSummary {
	summary := m.CampaignSummary{
		Session: session,
		Started: records[0].Timestamp,
		Elapsed: records[len(records)-1].Timestamp.Sub(records[0].Timestamp),
	}

	features := map[int]bool{}
	buckets := map[string]bool{}
	kept := 0
	total := 0.0

	for _, r := range records {
		summary.Evaluated++

		if r.Mutator == m.Seed.String() {
			summary.Seeds++
		}

		switch r.Outcome {
		case m.OutcomeBug.String():
			summary.Bugs++
			buckets[bugBucket(r)] = true
		case m.OutcomeFailure.String():
			if r.Reason == compileFailureReason {
				summary.CompileFailures++
			}
		case m.OutcomeTimeout.String():
			if strings.Contains(r.Reason, "interpreter") {
				summary.InterpreterTimeouts++
			}

			if strings.Contains(r.Reason, "JIT") {
				summary.JITTimeouts++
			}
		}

		switch r.Corpus {
		case m.CorpusAccepted.String():
			summary.Accepted++
		case m.CorpusReplaced.String():
			summary.Replaced++
		case m.CorpusRejected.String():
			summary.Rejected++
		case m.CorpusDiscarded.String():
			summary.Discarded++
		}

		if r.Corpus == m.CorpusAccepted.String() || r.Corpus == m.CorpusReplaced.String() {
			kept++
			total += r.Score

			if r.Score > summary.MaxScore {
				summary.MaxScore = r.Score
			}
		}

		for _, f := range r.Features {
			features[f] = true
		}
	}

	summary.UniqueBugs = len(buckets)
	summary.UniqueFeatures = len(features)

	if kept > 0 {
		summary.AvgScore = total / float64(kept)
	}

	return summary
}

// bugBucket returns the bucket the evaluator filed the bug under. Records
// without one predate crash signatures and fall back to reason and mutator.
func bugBucket(r m.EvaluationRecord) string {
	if r.Bucket != "" {
		return r.Bucket
	}

	if r.Reason == stdoutMismatchReason {
		return "stdout:" + r.Seed + ":" + r.Mutator
	}

	return r.Reason + ":" + r.Mutator
}

// recordList adapts loaded records to adapter.RecordSource.
type recordList []m.EvaluationRecord

func (l recordList) Range(fn func(index uint64, item m.EvaluationRecord) error) error {
	for i, r := range l {
		if err := fn(uint64(i), r); err != nil {
			return err
		}
	}

	return nil
}

// Merge copies every session of the source stores into the target store.
// Sessions the target already holds are skipped.
func (w *workflow) Merge(ctx context.Context, args MergeArgs) (int, error) {
	existing, err := w.Sessions(ctx, args.Store)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions of %s: %w", args.Store, err)
	}

	known := make(map[string]bool, len(existing))
	for _, s := range existing {
		known[s] = true
	}

	merged := 0

	for _, source := range args.Sources {
		if filepath.Clean(string(source)) == filepath.Clean(string(args.Store)) {
			continue
		}

		sessions, err := w.Sessions(ctx, source)
		if err != nil {
			return merged, fmt.Errorf("failed to list sessions of %s: %w", source, err)
		}

		sort.Strings(sessions)

		for _, session := range sessions {
			if known[session] {
				slog.Warn("Skipping session already in store", "session", session, "source", source)
				continue
			}

			records, err := w.LoadRecords(ctx, source, session)
			if err != nil {
				return merged, fmt.Errorf("failed to load session %s from %s: %w", session, source, err)
			}

			n, err := w.SaveRecords(ctx, args.Store, session, recordList(records))
			if err != nil {
				return merged, fmt.Errorf("failed to save session %s: %w", session, err)
			}

			known[session] = true
			merged++

			slog.Info("Merged session", "session", session, "source", source, "records", n)
		}
	}

	return merged, nil
}
