package model

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomMutatorType(t *testing.T) {
	t.Run("never returns Seed", func(t *testing.T) {
		for seed := int64(0); seed < 10000; seed++ {
			r := rand.New(rand.NewSource(seed))
			require.NotEqual(t, Seed, RandomMutatorType(r), "seed %d", seed)
		}
	})

	t.Run("reaches every candidate", func(t *testing.T) {
		r := rand.New(rand.NewSource(7))
		seen := map[MutatorType]bool{}

		for i := 0; i < 5000; i++ {
			seen[RandomMutatorType(r)] = true
		}

		assert.Len(t, seen, MutatorTypeCount-1)
	})
}

func TestMutationCandidates(t *testing.T) {
	candidates := MutationCandidates()

	assert.Len(t, candidates, MutatorTypeCount-1)
	assert.NotContains(t, candidates, Seed)
	assert.Equal(t, LoopUnrolling, candidates[0])
}

func TestParseMutatorType(t *testing.T) {
	for _, raw := range []string{"LOOP_UNROLLING", "loop-unrolling", "loop_unrolling", " Loop-Unrolling "} {
		got, err := ParseMutatorType(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, LoopUnrolling, got)
	}

	_, err := ParseMutatorType("not-a-mutator")
	assert.Error(t, err)

	assert.Equal(t, "REFLECTION_CALL", ReflectionCall.String())
}

func TestFeatureFromName(t *testing.T) {
	t.Run("maps display names and aliases", func(t *testing.T) {
		tests := map[string]Feature{
			"Loop Unrolling":               FeatureLoopUnrolling,
			"Parallel Induction Variables": FeatureParallelInductionVars,
			"Lock Coarsening":              FeatureLockCoarsening,
			"Locks Coarsening":             FeatureLockCoarsening,
			"Iterative GVN Iterations":     FeatureIterGVNIteration,
			"IterGVN Iteration":            FeatureIterGVNIteration,
			"Peephole":                     FeaturePeephole,
		}

		for name, want := range tests {
			got, err := FeatureFromName(name)
			require.NoError(t, err, name)
			assert.Equal(t, want, got, name)
		}
	})

	t.Run("rejects unknown names", func(t *testing.T) {
		_, err := FeatureFromName("Canonicalization")
		assert.Error(t, err)
	})

	t.Run("has 26 features", func(t *testing.T) {
		assert.Equal(t, 26, FeatureCount)
	})
}

func TestOptimizationVectors(t *testing.T) {
	var a, b MethodOptimizationVector

	a.Vector.Add(FeatureLoopUnrolling, 2)
	a.Vector.Inc(FeatureSplitIf)
	b.Vector.Add(FeatureLoopUnrolling, 3)

	ov := NewOptimizationVectors([]MethodOptimizationVector{a, b})

	assert.Equal(t, 5, ov.Merged.Get(FeatureLoopUnrolling))
	assert.Equal(t, 1, ov.Merged.Get(FeatureSplitIf))
	assert.Equal(t, 6, ov.Merged.Total())
	assert.False(t, ov.Empty())
	assert.True(t, (*OptimizationVectors)(nil).Empty())
}

func TestTestCase(t *testing.T) {
	t.Run("seed neutral scoring is consumed once", func(t *testing.T) {
		seed := NewSeedTestCase("Foo", "Foo", "bar")

		assert.True(t, seed.IsSeed())
		assert.False(t, seed.NeutralScoreConsumed())

		seed.ConsumeNeutralScore()
		assert.True(t, seed.NeutralScoreConsumed())

		child := NewChildTestCase(seed, LoopPeeling)
		assert.True(t, child.NeutralScoreConsumed())
		assert.Equal(t, 1, child.MutationDepth)
		assert.Equal(t, "Foo", child.ParentName)
		assert.Equal(t, "Foo", child.HotClass)
		assert.Zero(t, child.ParentMerged.Total())
	})

	t.Run("child keeps the merged counts of its parent", func(t *testing.T) {
		var v OptimizationVector
		v.Add(FeatureLoopPeeling, 3)

		parent := NewSeedTestCase("Foo", "", "")
		parent.Vectors = NewOptimizationVectors([]MethodOptimizationVector{{ClassName: "Foo", Vector: v}})

		child := NewChildTestCase(parent, LoopPeeling)
		assert.Equal(t, 3, child.ParentMerged.Get(FeatureLoopPeeling))
	})

	t.Run("selection decays priority", func(t *testing.T) {
		tc := NewSeedTestCase("Foo", "", "")
		tc.SetScore(4)

		tc.MarkSelected()
		assert.InDelta(t, 2.0, tc.Priority(), 1e-9)

		tc.MarkSelected()
		assert.InDelta(t, 4.0/3.0, tc.Priority(), 1e-9)

		tc.ActivateChampion()
		assert.Equal(t, 0, tc.TimesSelected())
		assert.InDelta(t, 4.0, tc.Priority(), 1e-9)
	})
}

func TestParseScoringMode(t *testing.T) {
	tests := map[string]ScoringMode{
		"PF-IDF":                    ScoringPFIDF,
		"pf_idf":                    ScoringPFIDF,
		"pfidf":                     ScoringPFIDF,
		"uniform":                   ScoringUniform,
		"interaction diversity":     ScoringInteractionDiversity,
		"interaction-pair-weighted": ScoringInteractionPairWeighted,
		"absolute_count":            ScoringAbsoluteCount,
	}

	for raw, want := range tests {
		got, err := ParseScoringMode(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseScoringMode("")
	assert.Error(t, err)

	_, err = ParseScoringMode("bogus")
	assert.Error(t, err)
}
