package domain

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"jitfuzz.dev/pkg/jitfuzz/internal/domain/stats"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

func TestEngine_Attempt(t *testing.T) {
	source := []byte(hotSource)
	parent := hotSeed()

	t.Run("falls back until a mutator applies", func(t *testing.T) {
		mg := &mockMutagen{}
		child := m.NewChildTestCase(parent, m.DeadCodeElimination)
		want := m.Mutation{TestCase: child, Result: m.Succeeded(m.DeadCodeElimination, "dead copy")}

		mg.On("Mutate", mock.Anything, parent, source, m.DeadCodeElimination, mock.Anything).Return(want, nil)
		mg.On("Mutate", mock.Anything, parent, source, mock.Anything, mock.Anything).Return(m.Mutation{}, ErrNotApplicable)

		g := stats.New(m.FeatureCount)
		e := NewEngine(mg, NewUniformScheduler(), g, rand.New(rand.NewSource(5)))

		attempt, err := e.Attempt(context.Background(), parent, source)
		require.NoError(t, err)

		assert.Equal(t, AttemptSuccess, attempt.Status)
		assert.Same(t, child, attempt.Mutation.TestCase)
		require.NotEmpty(t, attempt.Tried)
		assert.Equal(t, m.DeadCodeElimination, attempt.Tried[len(attempt.Tried)-1])

		seen := map[m.MutatorType]bool{}
		for _, tried := range attempt.Tried {
			assert.False(t, seen[tried], "mutator %s tried twice", tried)
			seen[tried] = true
		}

		snap := g.Snapshot()
		dead := snap.Mutator(m.DeadCodeElimination)
		assert.Equal(t, int64(1), dead.Selected)
		assert.Equal(t, int64(1), dead.Succeeded)
	})

	t.Run("every mutator not applicable", func(t *testing.T) {
		mg := &mockMutagen{}
		mg.On("Mutate", mock.Anything, parent, source, mock.Anything, mock.Anything).Return(m.Mutation{}, ErrNotApplicable)

		e := NewEngine(mg, NewBanditScheduler(), stats.New(m.FeatureCount), rand.New(rand.NewSource(5)))

		attempt, err := e.Attempt(context.Background(), parent, source)
		require.NoError(t, err)

		assert.Equal(t, AttemptNotApplicable, attempt.Status)
		assert.Len(t, attempt.Tried, len(m.MutationCandidates()))
		mg.AssertNumberOfCalls(t, "Mutate", len(m.MutationCandidates()))
	})

	t.Run("skips and errors make the attempt fail", func(t *testing.T) {
		mg := &mockMutagen{}
		mg.On("Mutate", mock.Anything, parent, source, m.Inline, mock.Anything).
			Return(m.Mutation{Result: m.Skipped(m.Inline, "no candidate")}, nil)
		mg.On("Mutate", mock.Anything, parent, source, m.LoopPeeling, mock.Anything).
			Return(m.Mutation{}, errors.New("broken tree"))
		mg.On("Mutate", mock.Anything, parent, source, mock.Anything, mock.Anything).Return(m.Mutation{}, ErrNotApplicable)

		g := stats.New(m.FeatureCount)
		e := NewEngine(mg, NewUniformScheduler(), g, rand.New(rand.NewSource(5)))

		attempt, err := e.Attempt(context.Background(), parent, source)
		require.NoError(t, err)

		assert.Equal(t, AttemptFailed, attempt.Status)

		snap := g.Snapshot()
		assert.Equal(t, int64(1), snap.Mutator(m.Inline).Failed)
		assert.Equal(t, int64(1), snap.Mutator(m.LoopPeeling).Failed)
		assert.Equal(t, int64(1), snap.Mutator(m.LoopUnrolling).Skipped)
	})

	t.Run("cancelled context", func(t *testing.T) {
		mg := &mockMutagen{}
		e := NewEngine(mg, NewUniformScheduler(), stats.New(m.FeatureCount), rand.New(rand.NewSource(5)))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := e.Attempt(ctx, parent, source)
		assert.ErrorIs(t, err, context.Canceled)
		mg.AssertNotCalled(t, "Mutate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("sub-seeds are reproducible", func(t *testing.T) {
		seeds := func() []int64 {
			var out []int64

			mg := &mockMutagen{}
			mg.On("Mutate", mock.Anything, parent, source, mock.Anything, mock.Anything).
				Run(func(args mock.Arguments) { out = append(out, args.Get(4).(int64)) }).
				Return(m.Mutation{}, ErrNotApplicable)

			e := NewEngine(mg, NewUniformScheduler(), stats.New(m.FeatureCount), rand.New(rand.NewSource(11)))
			_, _ = e.Attempt(context.Background(), parent, source)

			return out
		}

		assert.Equal(t, seeds(), seeds())
	})
}

func TestAttemptStatus_String(t *testing.T) {
	assert.Equal(t, "SUCCESS", AttemptSuccess.String())
	assert.Equal(t, "NOT_APPLICABLE", AttemptNotApplicable.String())
	assert.Equal(t, "FAILED", AttemptFailed.String())
}
