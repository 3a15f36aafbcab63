package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

func TestPairIndex(t *testing.T) {
	s := New(5)
	seen := map[int]bool{}

	for i := 0; i < 5; i++ {
		for j := i + 1; j < 5; j++ {
			idx := s.PairIndex(i, j)
			require.GreaterOrEqual(t, idx, 0)
			assert.Equal(t, idx, s.PairIndex(j, i), "pair index must be symmetric")
			assert.False(t, seen[idx], "slot %d used twice", idx)
			seen[idx] = true
		}
	}

	assert.Len(t, seen, 10)
	assert.Equal(t, -1, s.PairIndex(2, 2))
	assert.Equal(t, -1, s.PairIndex(0, 5))
	assert.Equal(t, -1, s.PairIndex(-1, 1))
}

func TestOccurrences(t *testing.T) {
	t.Run("pairs are unordered and self pairs ignored", func(t *testing.T) {
		s := New(4)

		s.AddPairOccurrence(1, 3, 2)
		s.AddPairOccurrence(3, 1, 1)
		s.AddPairOccurrence(2, 2, 7)

		assert.EqualValues(t, 3, s.PairCount(1, 3))
		assert.EqualValues(t, 3, s.PairCount(3, 1))
		assert.EqualValues(t, 0, s.PairCount(2, 2))
	})

	t.Run("record run counts every feature and pair once", func(t *testing.T) {
		s := New(4)

		s.RecordRun([]int{0, 2, 3})
		s.RecordRun([]int{2})

		assert.EqualValues(t, 2, s.RunCount())
		assert.EqualValues(t, 1, s.FeatureCount(0))
		assert.EqualValues(t, 2, s.FeatureCount(2))
		assert.EqualValues(t, 1, s.PairCount(0, 3))
		assert.EqualValues(t, 1, s.PairCount(2, 3))
		assert.True(t, s.HasSeenFeature(3))
		assert.False(t, s.HasSeenFeature(1))
		assert.Equal(t, 3, s.UniqueFeatures())
		assert.Equal(t, 3, s.UniquePairs())
	})

	t.Run("feature max only grows", func(t *testing.T) {
		s := New(2)

		s.ObserveFeatureMax(1, 5)
		s.ObserveFeatureMax(1, 3)

		assert.EqualValues(t, 5, s.FeatureMax(1))
		assert.EqualValues(t, 0, s.FeatureMax(7))
	})

	t.Run("out of range indices are ignored", func(t *testing.T) {
		s := New(2)

		s.AddFeatureOccurrence(9, 1)
		s.AddFeatureOccurrence(-1, 1)

		assert.EqualValues(t, 0, s.FeatureCount(9))
		assert.Equal(t, 0, s.UniqueFeatures())
	})
}

func TestConcurrentCommits(t *testing.T) {
	s := New(m.FeatureCount)

	var wg sync.WaitGroup

	for w := 0; w < 8; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := 0; i < 500; i++ {
				s.RecordRun([]int{0, 1, 2})
				s.ObserveFeatureMax(0, i)
			}
		}()
	}

	wg.Wait()

	assert.EqualValues(t, 4000, s.RunCount())
	assert.EqualValues(t, 4000, s.FeatureCount(1))
	assert.EqualValues(t, 4000, s.PairCount(0, 2))
	assert.EqualValues(t, 499, s.FeatureMax(0))
}

func TestSnapshot(t *testing.T) {
	s := New(m.FeatureCount)

	s.IncDispatched()
	s.IncDispatched()
	s.IncEvaluated()
	s.IncCompileFailure()
	s.IncJITTimeout()

	assert.True(t, s.RecordBug("SIGSEGV in PhaseIdealLoop"))
	assert.False(t, s.RecordBug("SIGSEGV in PhaseIdealLoop"))
	assert.False(t, s.RecordBug(""))

	s.RecordExecution(10*time.Millisecond, 30*time.Millisecond)
	s.RecordScore(1)
	s.RecordScore(3)
	s.RecordCorpus(m.CorpusAccepted, 1)
	s.RecordCorpus(m.CorpusRejected, 1)

	s.RecordSelection(m.LoopPeeling)
	s.RecordSelection(m.LoopPeeling)
	s.RecordMutation(m.LoopPeeling, m.MutationSuccess)
	s.RecordMutation(m.LoopPeeling, m.MutationSkipped)
	s.RecordOutcome(m.LoopPeeling, m.OutcomeBug)
	s.RecordSelection(m.Seed)

	snap := s.Snapshot()

	assert.EqualValues(t, 2, snap.Dispatched)
	assert.EqualValues(t, 1, snap.Evaluated)
	assert.EqualValues(t, 1, snap.CompileFailures)
	assert.EqualValues(t, 1, snap.JITTimeouts)
	assert.EqualValues(t, 3, snap.Bugs)
	assert.Equal(t, 1, snap.UniqueBugs)
	assert.Equal(t, 20*time.Millisecond, snap.AvgExecution)
	assert.Equal(t, 30*time.Millisecond, snap.MaxExecution)
	assert.InDelta(t, 2.0, snap.AvgScore, 1e-9)
	assert.InDelta(t, 3.0, snap.MaxScore, 1e-9)
	assert.EqualValues(t, 1, snap.Accepted)
	assert.EqualValues(t, 1, snap.Rejected)
	assert.EqualValues(t, 1, snap.CorpusSize)

	require.Len(t, snap.Mutators, m.MutatorTypeCount-1)

	top := snap.Mutators[0]
	assert.Equal(t, m.LoopPeeling, top.Mutator)
	assert.EqualValues(t, 2, top.Selected)
	assert.EqualValues(t, 1, top.Succeeded)
	assert.EqualValues(t, 1, top.Skipped)
	assert.EqualValues(t, 1, top.Bugs)
}

func TestSnapshot_Mutator(t *testing.T) {
	s := New(m.FeatureCount)

	s.RecordSelection(m.Inline)
	s.RecordSelection(m.LockCoarsening)
	s.RecordSelection(m.LockCoarsening)
	s.RecordMutationFailure(m.Inline)

	snap := s.Snapshot()

	// Sorted by selections, so positions do not follow the mutator order.
	assert.Equal(t, m.LockCoarsening, snap.Mutators[0].Mutator)

	inline := snap.Mutator(m.Inline)
	assert.Equal(t, m.Inline, inline.Mutator)
	assert.EqualValues(t, 1, inline.Selected)
	assert.EqualValues(t, 1, inline.Failed)

	assert.EqualValues(t, 2, snap.Mutator(m.LockCoarsening).Selected)
	assert.Zero(t, snap.Mutator(m.LoopUnrolling).Selected)

	seed := snap.Mutator(m.Seed)
	assert.Equal(t, m.Seed, seed.Mutator)
	assert.Zero(t, seed.Selected)
}

func TestRecordFeatureDelta(t *testing.T) {
	s := New(m.FeatureCount)

	var parent, child m.OptimizationVector
	parent.Add(m.FeatureLoopUnrolling, 4)
	parent.Add(m.FeatureLoopPeeling, 1)
	child.Add(m.FeatureLoopUnrolling, 1)
	child.Add(m.FeatureLoopPeeling, 3)
	child.Add(m.FeatureLockCoarsening, 2)

	s.RecordFeatureDelta(m.LoopPeeling, &child, &parent)
	s.RecordFeatureDelta(m.LoopPeeling, &child, nil)
	s.RecordFeatureDelta(m.Seed, &child, nil)
	s.RecordFeatureDelta(m.Inline, nil, &parent)

	snap := s.Snapshot()
	peeling := snap.Mutator(m.LoopPeeling)

	assert.EqualValues(t, 2, peeling.FeatureSamples)
	assert.EqualValues(t, 2+3, peeling.FeatureIncreases[m.FeatureLoopPeeling])
	assert.EqualValues(t, 2+2, peeling.FeatureIncreases[m.FeatureLockCoarsening])
	assert.EqualValues(t, 1, peeling.FeatureIncreases[m.FeatureLoopUnrolling])
	assert.EqualValues(t, 3, peeling.FeatureDecreases[m.FeatureLoopUnrolling])
	assert.Zero(t, peeling.FeatureDecreases[m.FeatureLoopPeeling])

	assert.Zero(t, snap.Mutator(m.Inline).FeatureSamples)
	assert.Zero(t, snap.Mutator(m.Seed).FeatureSamples)
}
