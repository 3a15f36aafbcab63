package domain

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"jitfuzz.dev/pkg/jitfuzz/internal/domain/stats"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

// AttemptStatus is the result of trying to mutate one parent.
type AttemptStatus int

const (
	// AttemptSuccess means a mutant was produced.
	AttemptSuccess AttemptStatus = iota
	// AttemptNotApplicable means no tried mutator applied to the parent.
	AttemptNotApplicable
	// AttemptFailed means at least one mutator applied but none produced a mutant.
	AttemptFailed
)

func (s AttemptStatus) String() string {
	switch s {
	case AttemptSuccess:
		return "SUCCESS"
	case AttemptNotApplicable:
		return "NOT_APPLICABLE"
	default:
		return "FAILED"
	}
}

// MutationAttempt is the outcome of Engine.Attempt.
type MutationAttempt struct {
	Status   AttemptStatus
	Mutation m.Mutation
	// Tried lists the mutators in the order they were tried.
	Tried    []m.MutatorType
	Duration time.Duration
}

// Engine turns a parent test case into a mutant.
type Engine interface {
	// Attempt asks the scheduler for a mutator and falls back to untried
	// mutators until one produces a mutant or every candidate was tried.
	Attempt(ctx context.Context, parent *m.TestCase, source []byte) (MutationAttempt, error)
}

type engine struct {
	mutagen   Mutagen
	scheduler MutatorScheduler
	stats     *stats.GlobalStats

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine constructs an Engine. Every mutation draws its own sub-seed from
// rng so single mutations can be replayed with the mutate command.
func NewEngine(mutagen Mutagen, scheduler MutatorScheduler, globalStats *stats.GlobalStats, rng *rand.Rand) Engine {
	return &engine{
		mutagen:   mutagen,
		scheduler: scheduler,
		stats:     globalStats,
		rng:       rng,
	}
}

func (e *engine) Attempt(ctx context.Context, parent *m.TestCase, source []byte) (MutationAttempt, error) {
	start := time.Now()
	candidates := m.MutationCandidates()
	attempted := make(map[m.MutatorType]bool, len(candidates))
	attempt := MutationAttempt{Status: AttemptNotApplicable}

	for len(attempted) < len(candidates) {
		if err := ctx.Err(); err != nil {
			return attempt, err
		}

		mutator, seed := e.choose(candidates, attempted)
		attempted[mutator] = true
		attempt.Tried = append(attempt.Tried, mutator)

		e.stats.RecordSelection(mutator)

		mutation, err := e.mutagen.Mutate(ctx, parent, source, mutator, seed)

		switch {
		case errors.Is(err, ErrNotApplicable):
			e.stats.RecordMutation(mutator, m.MutationSkipped)
			continue
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return attempt, ctxErr
			}

			e.stats.RecordMutationFailure(mutator)
			attempt.Status = AttemptFailed

			continue
		case !mutation.Result.OK() || mutation.TestCase == nil:
			e.stats.RecordMutationFailure(mutator)
			attempt.Status = AttemptFailed

			continue
		}

		e.stats.RecordMutation(mutator, m.MutationSuccess)

		attempt.Status = AttemptSuccess
		attempt.Mutation = mutation
		attempt.Duration = time.Since(start)

		slog.Info("Mutator applied", "mutator", mutator, "seed", seed, "parent", parent.Name,
			"testCase", mutation.TestCase.Name, "duration", attempt.Duration)

		return attempt, nil
	}

	attempt.Duration = time.Since(start)

	if attempt.Status == AttemptNotApplicable {
		slog.Info("All mutators not applicable", "testCase", parent.Name)
	}

	return attempt, nil
}

// choose returns the scheduler's pick, or a uniformly drawn untried mutator
// when the pick was already tried, together with the sub-seed for the attempt.
func (e *engine) choose(candidates []m.MutatorType, attempted map[m.MutatorType]bool) (m.MutatorType, int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	mutator := e.scheduler.Pick(e.rng)
	if attempted[mutator] {
		pool := make([]m.MutatorType, 0, len(candidates)-len(attempted))
		for _, c := range candidates {
			if !attempted[c] {
				pool = append(pool, c)
			}
		}

		mutator = pool[e.rng.Intn(len(pool))]
	}

	return mutator, e.rng.Int63()
}
