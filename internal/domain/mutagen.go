// Package domain contains the fuzzing campaign: mutation, execution,
// scoring and corpus management.
package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/pmezard/go-difflib/difflib"

	"jitfuzz.dev/pkg/jitfuzz/internal/adapter"
	"jitfuzz.dev/pkg/jitfuzz/internal/domain/mutagens"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

var (
	// ErrUnknownMutator is returned for a mutator type without a strategy.
	ErrUnknownMutator = errors.New("unknown mutator")
	// ErrNotApplicable is returned when the strategy finds nothing to rewrite
	// in the parent.
	ErrNotApplicable = errors.New("mutator not applicable")
)

const diffContextLines = 3

// Mutagen defines the interface for mutation generation.
type Mutagen interface {
	// Mutate applies mutator to the parent source. The strategy draws its
	// random numbers from seed, so a mutation can be replayed. A skipped
	// strategy returns a mutation without test case and a nil error.
	Mutate(ctx context.Context, parent *m.TestCase, source []byte, mutator m.MutatorType, seed int64) (m.Mutation, error)

	// Applicable lists the mutators whose applicability probe passes on source.
	Applicable(ctx context.Context, parent *m.TestCase, source []byte) ([]m.MutatorType, error)
}

// mutagen handles pure mutation generation logic.
type mutagen struct {
	adapter.JavaFileAdapter

	strategies map[m.MutatorType]mutagens.Mutator
}

// NewMutagen creates a new Mutagen instance.
func NewMutagen(javaFileAdapter adapter.JavaFileAdapter) Mutagen {
	return &mutagen{
		JavaFileAdapter: javaFileAdapter,
		strategies:      mutagens.Registry(),
	}
}

func (mg *mutagen) Mutate(ctx context.Context, parent *m.TestCase, source []byte, mutator m.MutatorType, seed int64) (m.Mutation, error) {
	if parent == nil {
		return m.Mutation{}, fmt.Errorf("missing parent test case")
	}

	strategy, ok := mg.strategies[mutator]
	if !ok {
		return m.Mutation{}, fmt.Errorf("%w: %s", ErrUnknownMutator, mutator)
	}

	unit, err := mg.Parse(ctx, source)
	if err != nil {
		return m.Mutation{}, fmt.Errorf("failed to parse %s: %w", parent.Name, err)
	}

	mctx := mutagens.NewContext(unit, parent, rand.New(rand.NewSource(seed)), mutagens.WithLauncher(mutator))
	if !strategy.IsApplicable(mctx) {
		return m.Mutation{}, fmt.Errorf("%w: %s on %s", ErrNotApplicable, mutator, parent.Name)
	}

	before, err := mg.Print(ctx, unit)
	if err != nil {
		return m.Mutation{}, fmt.Errorf("failed to print %s: %w", parent.Name, err)
	}

	result, err := strategy.Mutate(mctx)
	if err != nil {
		slog.Error("Mutator failed", "mutator", mutator, "testCase", parent.Name, "seed", seed, "error", err)
		return m.Mutation{}, fmt.Errorf("mutator %s failed on %s: %w", mutator, parent.Name, err)
	}

	if !result.OK() {
		slog.Debug("Mutator skipped", "mutator", mutator, "testCase", parent.Name, "detail", result.Detail)
		return m.Mutation{Result: result, Seed: seed}, nil
	}

	after, err := mg.Print(ctx, unit)
	if err != nil {
		return m.Mutation{}, fmt.Errorf("failed to print mutant of %s: %w", parent.Name, err)
	}

	child := m.NewChildTestCase(parent, mutator)

	if err := mg.RenameClass(ctx, unit, parent.Name, child.Name); err != nil {
		return m.Mutation{}, fmt.Errorf("failed to rename %s: %w", parent.Name, err)
	}

	final, err := mg.Print(ctx, unit)
	if err != nil {
		return m.Mutation{}, fmt.Errorf("failed to print %s: %w", child.Name, err)
	}

	diff, err := unifiedDiff(parent.Name, child.Name, before, after)
	if err != nil {
		slog.Warn("Failed to diff mutant", "testCase", child.Name, "error", err)
	}

	slog.Debug("Mutator applied", "mutator", mutator, "parent", parent.Name, "testCase", child.Name, "seed", seed)

	return m.Mutation{
		TestCase: child,
		Source:   final,
		Result:   result,
		Diff:     diff,
		Seed:     seed,
	}, nil
}

func (mg *mutagen) Applicable(ctx context.Context, parent *m.TestCase, source []byte) ([]m.MutatorType, error) {
	if parent == nil {
		return nil, fmt.Errorf("missing parent test case")
	}

	unit, err := mg.Parse(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", parent.Name, err)
	}

	var out []m.MutatorType

	for _, t := range m.MutationCandidates() {
		strategy, ok := mg.strategies[t]
		if !ok {
			continue
		}

		// The probe draws no random numbers, any seed will do.
		mctx := mutagens.NewContext(unit, parent, rand.New(rand.NewSource(0)), mutagens.WithLauncher(t))
		if strategy.IsApplicable(mctx) {
			out = append(out, t)
		}
	}

	return out, nil
}

func unifiedDiff(from, to string, before, after []byte) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: from + ".java",
		ToFile:   to + ".java",
		Context:  diffContextLines,
	})
}
