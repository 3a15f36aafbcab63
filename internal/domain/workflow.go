package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"jitfuzz.dev/pkg/jitfuzz/internal/adapter"
	"jitfuzz.dev/pkg/jitfuzz/internal/controller"
	"jitfuzz.dev/pkg/jitfuzz/internal/domain/scoring"
	"jitfuzz.dev/pkg/jitfuzz/internal/domain/stats"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
	jitfuzzpkg "jitfuzz.dev/pkg/jitfuzz/pkg"
)

var (
	// ErrNoSeeds is returned when the seed paths hold no usable program.
	ErrNoSeeds = errors.New("no seed programs found")
	// ErrEmptyCorpus is returned when no seed produced an optimization profile
	// worth mutating.
	ErrEmptyCorpus = errors.New("no seed entered the corpus")
)

const (
	progressInterval = time.Second
	corpusDir        = "corpus"
	sessionsDir      = "sessions"
)

// CampaignArgs contains the arguments for running a fuzzing campaign.
type CampaignArgs struct {
	Seeds   []m.Path
	Exclude []string
	// Output receives bugs, failures, the final corpus and the session
	// summary. Blank disables every artifact.
	Output m.Path
	// Store is the SQLite session file. Blank disables persistence.
	Store    m.Path
	Session  string
	Parallel int
	// Iterations bounds the number of mutants; 0 means unbounded.
	Iterations int
	// Duration bounds the campaign wall time; 0 means unbounded.
	Duration       time.Duration
	RNGSeed        int64
	Scheduler      string
	Scoring        m.ScoringMode
	CorpusCapacity int
	// CorpusPolicy names the corpus admission policy; blank means champion.
	CorpusPolicy string
}

// Workflow runs fuzzing campaigns and the one-shot tools around them.
type Workflow interface {
	Run(ctx context.Context, args CampaignArgs) (m.CampaignSummary, error)
	Tools
}

type workflow struct {
	adapter.SourceFSAdapter
	adapter.JavaFileAdapter
	adapter.SessionStore
	controller.UI
	Orchestrator
	Mutagen
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.SourceFSAdapter,
	javaAdapter adapter.JavaFileAdapter,
	store adapter.SessionStore,
	ui controller.UI,
	orchestrator Orchestrator,
	mutagen Mutagen,
) Workflow {
	return &workflow{
		SourceFSAdapter: fsAdapter,
		JavaFileAdapter: javaAdapter,
		SessionStore:    store,
		UI:              ui,
		Orchestrator:    orchestrator,
		Mutagen:         mutagen,
	}
}

// campaign is the state shared by the workers of one Run.
type campaign struct {
	args      CampaignArgs
	stats     *stats.GlobalStats
	corpus    Corpus
	engine    Engine
	evaluator Evaluator
	records   jitfuzzpkg.FileSpill[m.EvaluationRecord]
	// selectRng is only used under the corpus lock.
	selectRng *rand.Rand
	remaining atomic.Int64
	scheduler string
	scoring   m.ScoringMode
	started   time.Time
	seeds     int
}

// next reserves one iteration of the budget.
func (c *campaign) next() bool {
	if c.args.Iterations <= 0 {
		return true
	}

	return c.remaining.Add(-1) >= 0
}

func (w *workflow) Run(ctx context.Context, args CampaignArgs) (m.CampaignSummary, error) {
	args = normalizeArgs(args)

	if args.Duration > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, args.Duration)
		defer cancel()
	}

	seeds, err := w.loadSeeds(ctx, args)
	if err != nil {
		slog.Error("Failed to load seeds", "error", err)
		return m.CampaignSummary{}, err
	}

	spillDir, err := w.CreateTempDir(ctx, "jitfuzz-records-*")
	if err != nil {
		return m.CampaignSummary{}, fmt.Errorf("failed to create record spill directory: %w", err)
	}

	defer w.cleanupTempDir(spillDir)

	c, err := w.newCampaign(args, spillDir, len(seeds))
	if err != nil {
		return m.CampaignSummary{}, err
	}

	defer func() {
		if err := c.records.Close(); err != nil {
			slog.Error("Failed to close record spill", "error", err)
		}
	}()

	if err := w.Start(ctx, controller.WithCampaignMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return m.CampaignSummary{}, err
	}

	defer w.Close(context.WithoutCancel(ctx))

	w.DisplayCampaignInfo(ctx, controller.CampaignInfo{
		Session:    args.Session,
		Seeds:      len(seeds),
		Workers:    args.Parallel,
		Iterations: args.Iterations,
		Scheduler:  c.scheduler,
		Scoring:    c.scoring,
		RNGSeed:    args.RNGSeed,
	})

	slog.Info("Starting campaign", "session", args.Session, "seeds", len(seeds), "workers", args.Parallel,
		"iterations", args.Iterations, "duration", args.Duration, "rngSeed", args.RNGSeed)

	stopProgress := w.streamProgress(ctx, c)

	runErr := w.fuzz(ctx, c, seeds)

	stopProgress()

	// Finalisation runs even when the campaign deadline has passed.
	final := context.WithoutCancel(ctx)

	summary, err := w.finish(final, c)
	if err != nil {
		return summary, err
	}

	w.DisplaySummary(final, summary)
	w.Wait(final)

	return summary, runErr
}

func normalizeArgs(args CampaignArgs) CampaignArgs {
	if args.Parallel <= 0 {
		args.Parallel = 1
	}

	if args.Scoring == "" {
		args.Scoring = m.ScoringPFIDF
	}

	if args.CorpusCapacity == 0 {
		args.CorpusCapacity = DefaultCorpusCapacity
	}

	if args.Session == "" {
		args.Session = "session-" + time.Now().UTC().Format("20060102-150405")
	}

	return args
}

func (w *workflow) newCampaign(args CampaignArgs, spillDir m.Path, seeds int) (*campaign, error) {
	scheduler, err := NewScheduler(args.Scheduler)
	if err != nil {
		return nil, err
	}

	records, err := jitfuzzpkg.NewFileSpill[m.EvaluationRecord](string(spillDir))
	if err != nil {
		return nil, fmt.Errorf("failed to create record spill: %w", err)
	}

	globalStats := stats.New(m.FeatureCount)
	scorer := scoring.NewScorer(args.Scoring, globalStats)

	// Mutations and corpus decisions draw from separate streams.
	root := rand.New(rand.NewSource(args.RNGSeed))
	mutationRng := rand.New(rand.NewSource(root.Int63()))
	corpusRng := rand.New(rand.NewSource(root.Int63()))

	corpus, err := NewCorpus(args.CorpusPolicy, scorer.Mode(), args.CorpusCapacity, corpusRng)
	if err != nil {
		return nil, errors.Join(err, records.Close())
	}

	artifacts := NewArtifactStore(w.SourceFSAdapter, args.Output)

	c := &campaign{
		args:      args,
		stats:     globalStats,
		corpus:    corpus,
		engine:    NewEngine(w.Mutagen, scheduler, globalStats, mutationRng),
		evaluator: NewEvaluator(scorer, corpus, scheduler, globalStats, artifacts, records),
		records:   records,
		selectRng: corpusRng,
		scheduler: scheduler.Name(),
		scoring:   scorer.Mode(),
		started:   time.Now(),
		seeds:     seeds,
	}
	c.remaining.Store(int64(args.Iterations))

	return c, nil
}

// loadSeeds reads every Java file under the seed paths. Files that do not
// parse, or whose class name repeats an earlier seed, are skipped.
func (w *workflow) loadSeeds(ctx context.Context, args CampaignArgs) ([]Champion, error) {
	files, err := w.Get(ctx, args.Seeds, args.Exclude...)
	if err != nil {
		return nil, fmt.Errorf("failed to list seeds: %w", err)
	}

	seen := map[string]bool{}

	var seeds []Champion

	for i := range files {
		file := files[i]

		src, err := w.ReadFile(ctx, file.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read seed %s: %w", file.Path, err)
		}

		program, err := w.Program(ctx, &file, src)
		if err != nil {
			slog.Warn("Skipping seed", "path", file.Path, "error", err)
			continue
		}

		if seen[program.Name] {
			slog.Warn("Skipping seed with duplicate class name", "path", file.Path, "class", program.Name)
			continue
		}

		seen[program.Name] = true

		seeds = append(seeds, Champion{
			TestCase: m.NewSeedTestCase(program.Name, program.HotClass, program.HotMethod),
			Source:   program.Source,
		})
	}

	if len(seeds) == 0 {
		return nil, ErrNoSeeds
	}

	return seeds, nil
}

func (w *workflow) fuzz(ctx context.Context, c *campaign, seeds []Champion) error {
	if err := w.evaluateSeeds(ctx, c, seeds); err != nil {
		return err
	}

	if c.corpus.Size() == 0 {
		if ctx.Err() != nil {
			return nil
		}

		return ErrEmptyCorpus
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.args.Parallel)

	for i := 0; i < c.args.Parallel; i++ {
		workerID := i

		group.Go(func() error {
			return w.worker(groupCtx, c, workerID)
		})
	}

	return group.Wait()
}

// evaluateSeeds runs every seed once so the corpus starts with their
// profiles. Seeds are scored against the neutral statistics table.
func (w *workflow) evaluateSeeds(ctx context.Context, c *campaign, seeds []Champion) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.args.Parallel)

	for _, seed := range seeds {
		group.Go(func() error {
			mutation := m.Mutation{TestCase: seed.TestCase, Source: seed.Source}

			if _, err := w.execute(groupCtx, c, mutation); err != nil && groupCtx.Err() == nil {
				slog.Error("Failed to evaluate seed", "seed", seed.TestCase.Name, "error", err)
			}

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	slog.Info("Seeds evaluated", "seeds", len(seeds), "corpus", c.corpus.Size())

	return nil
}

func (w *workflow) worker(ctx context.Context, c *campaign, workerID int) error {
	for ctx.Err() == nil && c.next() {
		parent, ok := c.corpus.Select(c.selectRng)
		if !ok {
			slog.Warn("Corpus is empty, stopping worker", "worker", workerID)
			return nil
		}

		attempt, err := c.engine.Attempt(ctx, parent.TestCase, parent.Source)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			slog.Error("Mutation attempt failed", "worker", workerID, "parent", parent.TestCase.Name, "error", err)

			continue
		}

		switch attempt.Status {
		case AttemptNotApplicable:
			c.corpus.Remove(parent.TestCase, "no applicable mutators")
			continue
		case AttemptFailed:
			continue
		case AttemptSuccess:
		}

		if _, err := w.execute(ctx, c, attempt.Mutation); err != nil && ctx.Err() == nil {
			slog.Error("Failed to evaluate test case", "worker", workerID,
				"testCase", attempt.Mutation.TestCase.Name, "error", err)
		}
	}

	return nil
}

// execute runs and evaluates one test case and reports it to the UI.
func (w *workflow) execute(ctx context.Context, c *campaign, mutation m.Mutation) (Evaluation, error) {
	c.stats.IncDispatched()

	run, err := w.Execute(ctx, mutation.TestCase, mutation.Source)
	if err != nil {
		return Evaluation{}, err
	}

	ev, err := c.evaluator.Evaluate(ctx, mutation, run)
	if err != nil {
		return ev, err
	}

	event := controller.EvaluationEvent{
		TestCase: ev.TestCase.Name,
		Parent:   ev.TestCase.ParentName,
		Mutator:  ev.TestCase.Mutation,
		Outcome:  ev.Outcome,
		Score:    ev.TestCase.Score,
		Reason:   ev.Reason,
		Artifact: ev.Artifact,
	}

	if ev.Scored {
		event.Corpus = ev.Decision.Outcome.String()
	}

	w.DisplayEvaluation(ctx, event)

	return ev, nil
}

func (w *workflow) streamProgress(ctx context.Context, c *campaign) func() {
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)

		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				w.DisplayProgress(ctx, progressOf(c.stats.Snapshot()))
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
	}
}

func progressOf(snap stats.Snapshot) controller.Progress {
	return controller.Progress{
		Evaluated:  snap.Evaluated,
		Bugs:       snap.Bugs,
		UniqueBugs: snap.UniqueBugs,
		Failures:   snap.CompileFailures,
		Timeouts:   snap.InterpreterTimeouts + snap.JITTimeouts,
		CorpusSize: snap.CorpusSize,
		MaxScore:   snap.MaxScore,
		Features:   snap.UniqueFeatures,
		Pairs:      snap.UniquePairs,
	}
}

// finish builds the summary and persists what the campaign produced.
// Persistence failures are logged; the summary is still returned.
func (w *workflow) finish(ctx context.Context, c *campaign) (m.CampaignSummary, error) {
	snap := c.stats.Snapshot()
	champions := c.corpus.Champions()

	summary := m.CampaignSummary{
		Session:             c.args.Session,
		RNGSeed:             c.args.RNGSeed,
		Scheduler:           c.scheduler,
		Scoring:             c.scoring,
		Started:             c.started.UTC(),
		Elapsed:             time.Since(c.started),
		Seeds:               c.seeds,
		Evaluated:           snap.Evaluated,
		Bugs:                snap.Bugs,
		UniqueBugs:          snap.UniqueBugs,
		CompileFailures:     snap.CompileFailures,
		InterpreterTimeouts: snap.InterpreterTimeouts,
		JITTimeouts:         snap.JITTimeouts,
		Accepted:            snap.Accepted,
		Replaced:            snap.Replaced,
		Rejected:            snap.Rejected,
		Discarded:           snap.Discarded,
		CorpusSize:          len(champions),
		UniqueFeatures:      snap.UniqueFeatures,
		UniquePairs:         snap.UniquePairs,
		AvgScore:            snap.AvgScore,
		MaxScore:            snap.MaxScore,
	}

	for _, champion := range champions {
		tc := champion.TestCase
		summary.Champions = append(summary.Champions, m.ChampionSummary{
			TestCase:  tc.Name,
			Seed:      tc.SeedName,
			Mutator:   tc.Mutation.String(),
			Depth:     tc.MutationDepth,
			Score:     tc.Score,
			Selected:  tc.TimesSelected(),
			HotClass:  tc.HotClass,
			HotMethod: tc.HotMethod,
		})
	}

	mutators, err := summarizeRecords(c.records)
	if err != nil {
		return summary, fmt.Errorf("failed to summarize records: %w", err)
	}

	attributeFeatures(mutators, snap)
	summary.Mutators = mutators

	if c.args.Store != "" {
		n, err := w.SaveRecords(ctx, c.args.Store, c.args.Session, c.records)
		if err != nil {
			slog.Error("Failed to save session records", "store", c.args.Store, "error", err)
		} else {
			slog.Info("Saved session records", "store", c.args.Store, "session", c.args.Session, "records", n)
		}
	}

	if c.args.Output != "" {
		w.saveCorpus(ctx, c.args.Output, champions)

		path := w.JoinPath(ctx, string(c.args.Output), sessionsDir, c.args.Session+".yaml")
		if err := w.MkdirAll(ctx, w.JoinPath(ctx, string(c.args.Output), sessionsDir)); err != nil {
			slog.Error("Failed to create sessions directory", "error", err)
		} else if err := w.WriteYAML(ctx, path, summary); err != nil {
			slog.Error("Failed to write session summary", "path", path, "error", err)
		}
	}

	slog.Info("Campaign finished", "session", summary.Session, "evaluated", summary.Evaluated,
		"bugs", summary.Bugs, "uniqueBugs", summary.UniqueBugs, "corpus", summary.CorpusSize, "elapsed", summary.Elapsed)

	return summary, nil
}

func (w *workflow) saveCorpus(ctx context.Context, output m.Path, champions []Champion) {
	dir := w.JoinPath(ctx, string(output), corpusDir)
	if err := w.MkdirAll(ctx, dir); err != nil {
		slog.Error("Failed to create corpus directory", "path", dir, "error", err)
		return
	}

	for _, champion := range champions {
		path := w.JoinPath(ctx, string(dir), champion.TestCase.Name+".java")
		if err := w.WriteFile(ctx, path, champion.Source, 0o600); err != nil {
			slog.Error("Failed to save champion", "path", path, "error", err)
		}
	}
}

func (w *workflow) cleanupTempDir(path m.Path) {
	if err := w.RemoveAll(context.Background(), path); err != nil {
		slog.Error("Failed to remove temporary directory", "path", path, "error", err)
	}
}
