package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jitfuzz.dev/pkg/jitfuzz/internal/domain/stats"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
	jitfuzzpkg "jitfuzz.dev/pkg/jitfuzz/pkg"
)

type errSpill[T any] struct {
	err error
}

func (e errSpill[T]) Range(_ func(index uint64, item T) error) error { return e.err }

func TestSummarizeRecords(t *testing.T) {
	spill, err := jitfuzzpkg.NewFileSpill[m.EvaluationRecord](t.TempDir())
	require.NoError(t, err)
	defer spill.Close()

	require.NoError(t, spill.AppendBatch([]m.EvaluationRecord{
		{TestCase: "A_1", Mutator: "LOOP_PEELING", Outcome: "IMPROVED", Score: 3},
		{TestCase: "A_2", Mutator: "LOOP_PEELING", Outcome: "BUG"},
		{TestCase: "A_3", Mutator: "LOOP_PEELING", Outcome: "NO_IMPROVEMENT", Score: 1},
		{TestCase: "A_4", Mutator: "INLINE", Outcome: "TIMEOUT"},
		{TestCase: "A_5", Mutator: "INLINE", Outcome: "FAILURE"},
	}))

	summaries, err := summarizeRecords(spill)
	require.NoError(t, err)

	require.Equal(t, []m.MutatorSummary{
		{Mutator: "INLINE", Evaluated: 2, Failures: 1, Timeouts: 1},
		{Mutator: "LOOP_PEELING", Evaluated: 3, Bugs: 1, Improved: 1, MeanScore: 4.0 / 3, MaxScore: 3},
	}, summaries)
}

func TestSummarizeRecords_Empty(t *testing.T) {
	spill, err := jitfuzzpkg.NewFileSpill[m.EvaluationRecord](t.TempDir())
	require.NoError(t, err)
	defer spill.Close()

	summaries, err := summarizeRecords(spill)
	require.NoError(t, err)
	require.Empty(t, summaries)
}

func TestSummarizeRecords_RangeError(t *testing.T) {
	_, err := summarizeRecords(errSpill[m.EvaluationRecord]{err: errors.New("corrupt spill")})
	require.EqualError(t, err, "corrupt spill")
}

func TestAttributeFeatures(t *testing.T) {
	s := stats.New(m.FeatureCount)

	var parent, child m.OptimizationVector
	parent.Add(m.FeatureLoopUnrolling, 2)
	child.Add(m.FeatureLoopPeeling, 1)

	s.RecordFeatureDelta(m.LoopPeeling, &child, &parent)

	summaries := []m.MutatorSummary{
		{Mutator: "INLINE", Evaluated: 1},
		{Mutator: "LOOP_PEELING", Evaluated: 1},
		{Mutator: "SEED", Evaluated: 1},
	}

	attributeFeatures(summaries, s.Snapshot())

	assert.Nil(t, summaries[0].FeatureIncreases)
	assert.Nil(t, summaries[0].FeatureDecreases)
	assert.Equal(t, map[string]int64{"Loop Peeling": 1}, summaries[1].FeatureIncreases)
	assert.Equal(t, map[string]int64{"Loop Unrolling": 2}, summaries[1].FeatureDecreases)
	assert.Nil(t, summaries[2].FeatureIncreases)
}
