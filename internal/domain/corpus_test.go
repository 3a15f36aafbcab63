package domain

import (
	"errors"
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

func scored(name string, score float64, bucketed ...int) Champion {
	tc := m.NewSeedTestCase(name, "", "")
	tc.SetScore(score)
	tc.BucketedVector = bucketed

	return Champion{TestCase: tc, Source: []byte("class " + name + " {}")}
}

func evaluate(t *testing.T, c Corpus, candidate Champion) CorpusDecision {
	t.Helper()

	d, err := c.Evaluate(candidate, nil)
	require.NoError(t, err)

	return d
}

func TestChampionCorpus_Evaluate(t *testing.T) {
	t.Run("new bucket is accepted", func(t *testing.T) {
		c := NewChampionCorpus(m.ScoringPFIDF, 0, rand.New(rand.NewSource(1)))
		a := scored("A", 1, 1, 0, 2)

		d := evaluate(t, c, a)
		assert.Equal(t, m.CorpusAccepted, d.Outcome)
		assert.True(t, a.TestCase.IsChampion())
		assert.Equal(t, 1, c.Size())
	})

	t.Run("all-zero vector is discarded", func(t *testing.T) {
		c := NewChampionCorpus(m.ScoringPFIDF, 0, rand.New(rand.NewSource(1)))

		d := evaluate(t, c, scored("A", 5, 0, 0, 0))
		assert.Equal(t, m.CorpusDiscarded, d.Outcome)
		assert.Zero(t, c.Size())

		d = evaluate(t, c, Champion{})
		assert.Equal(t, m.CorpusDiscarded, d.Outcome)
	})

	t.Run("higher score replaces the incumbent", func(t *testing.T) {
		c := NewChampionCorpus(m.ScoringPFIDF, 0, rand.New(rand.NewSource(1)))
		a := scored("A", 1, 1, 2)
		b := scored("B", 2, 1, 2)

		evaluate(t, c, a)
		d := evaluate(t, c, b)

		require.Equal(t, m.CorpusReplaced, d.Outcome)
		require.NotNil(t, d.Previous)
		assert.Same(t, a.TestCase, d.Previous.TestCase)
		assert.False(t, a.TestCase.IsChampion())
		assert.True(t, b.TestCase.IsChampion())
		assert.Equal(t, 1, c.Size())
	})

	t.Run("lower or equal score is rejected", func(t *testing.T) {
		c := NewChampionCorpus(m.ScoringPFIDF, 0, rand.New(rand.NewSource(1)))
		a := scored("A", 2, 4)

		evaluate(t, c, a)

		for _, score := range []float64{1, 2} {
			d := evaluate(t, c, scored("B", score, 4))
			require.Equal(t, m.CorpusRejected, d.Outcome)
			assert.Same(t, a.TestCase, d.Previous.TestCase)
		}

		assert.True(t, a.TestCase.IsChampion())
	})

	t.Run("uniform ties are settled by a coin flip", func(t *testing.T) {
		outcomes := map[m.CorpusOutcome]int{}

		for seed := int64(0); seed < 40; seed++ {
			c := NewChampionCorpus(m.ScoringUniform, 0, rand.New(rand.NewSource(seed)))
			evaluate(t, c, scored("A", 1, 1))
			outcomes[evaluate(t, c, scored("B", 1, 1)).Outcome]++
		}

		assert.Positive(t, outcomes[m.CorpusReplaced])
		assert.Positive(t, outcomes[m.CorpusRejected])
	})

	t.Run("capacity evicts the lowest score", func(t *testing.T) {
		c := NewChampionCorpus(m.ScoringPFIDF, 2, rand.New(rand.NewSource(1)))
		low := scored("Low", 1, 1)

		evaluate(t, c, low)
		evaluate(t, c, scored("Mid", 2, 2))

		d := evaluate(t, c, scored("High", 3, 4))
		require.Equal(t, m.CorpusAccepted, d.Outcome)
		require.Len(t, d.Evicted, 1)
		assert.Same(t, low.TestCase, d.Evicted[0].TestCase)
		assert.False(t, low.TestCase.IsChampion())

		d = evaluate(t, c, scored("Lower", 0.5, 8))
		assert.Equal(t, m.CorpusDiscarded, d.Outcome)
		assert.Empty(t, d.Evicted)
		assert.Equal(t, 2, c.Size())
	})
}

func TestChampionCorpus_Select(t *testing.T) {
	c := NewChampionCorpus(m.ScoringPFIDF, 0, rand.New(rand.NewSource(1)))

	_, ok := c.Select(rand.New(rand.NewSource(1)))
	assert.False(t, ok)

	a := scored("A", 4, 1)
	b := scored("B", 3, 2)
	evaluate(t, c, a)
	evaluate(t, c, b)

	rng := rand.New(rand.NewSource(3))
	picks := map[string]int{}

	for i := 0; i < 200; i++ {
		got, ok := c.Select(rng)
		require.True(t, ok)

		picks[got.TestCase.Name]++
	}

	// Priorities decay as score/(1+selected), so both champions get picked.
	assert.Positive(t, picks["A"])
	assert.Positive(t, picks["B"])
	assert.Greater(t, picks["A"], picks["B"])
	assert.Equal(t, 200, a.TestCase.TimesSelected()+b.TestCase.TimesSelected())
}

func TestChampionCorpus_RemoveAndChampions(t *testing.T) {
	c := NewChampionCorpus(m.ScoringPFIDF, 0, rand.New(rand.NewSource(1)))
	a := scored("A", 1, 1)
	b := scored("B", 5, 2)

	evaluate(t, c, a)
	evaluate(t, c, b)

	champions := c.Champions()
	require.Len(t, champions, 2)
	assert.Equal(t, "B", champions[0].TestCase.Name)
	assert.Equal(t, "class B {}", string(champions[0].Source))

	assert.True(t, c.Remove(a.TestCase, "no applicable mutators"))
	assert.False(t, a.TestCase.IsChampion())
	assert.False(t, c.Remove(a.TestCase, "again"))
	assert.False(t, c.Remove(nil, ""))
	assert.Equal(t, 1, c.Size())
}

func TestChampionCorpus_OnKept(t *testing.T) {
	c := NewChampionCorpus(m.ScoringPFIDF, 0, rand.New(rand.NewSource(1)))

	calls := 0
	commit := func() error {
		calls++
		return nil
	}

	_, err := c.Evaluate(scored("A", 2, 1), commit)
	require.NoError(t, err)

	_, err = c.Evaluate(scored("B", 1, 1), commit)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "rejected candidates are not committed")

	failing := scored("C", 5, 1)
	_, err = c.Evaluate(failing, func() error { return errors.New("commit failed") })
	require.Error(t, err)

	assert.False(t, failing.TestCase.IsChampion())
	assert.Equal(t, "A", c.Champions()[0].TestCase.Name)
}

func mutant(name string, score float64) Champion {
	parent := m.NewSeedTestCase("Seed", "", "")
	tc := m.NewChildTestCase(parent, m.LoopPeeling)
	tc.Name = name
	tc.SetScore(score)

	return Champion{TestCase: tc, Source: []byte("class " + name + " {}")}
}

func TestNewCorpus(t *testing.T) {
	tests := []struct {
		policy  string
		want    Corpus
		wantErr bool
	}{
		{policy: "", want: &championCorpus{}},
		{policy: "champion", want: &championCorpus{}},
		{policy: " Random ", want: &randomCorpus{}},
		{policy: "lottery", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			c, err := NewCorpus(tt.policy, m.ScoringPFIDF, 0, rand.New(rand.NewSource(1)))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unknown corpus policy")

				return
			}

			require.NoError(t, err)
			assert.IsType(t, tt.want, c)
		})
	}
}

func TestRandomCorpus_Evaluate(t *testing.T) {
	t.Run("seeds are always admitted", func(t *testing.T) {
		c := NewRandomCorpus(0, 0, rand.New(rand.NewSource(1)))
		seed := scored("A", 1, 0, 0)

		d := evaluate(t, c, seed)
		assert.Equal(t, m.CorpusAccepted, d.Outcome)
		assert.True(t, seed.TestCase.IsChampion())
		assert.Equal(t, 1, c.Size())
	})

	t.Run("mutants are rejected when admission is disabled", func(t *testing.T) {
		c := NewRandomCorpus(0, -1, rand.New(rand.NewSource(1)))

		d := evaluate(t, c, mutant("B", 9))
		assert.Equal(t, m.CorpusRejected, d.Outcome)
		assert.Equal(t, randomRejectionReason, d.Reason)
		assert.Zero(t, c.Size())
	})

	t.Run("score does not matter", func(t *testing.T) {
		c := NewRandomCorpus(0, 2, rand.New(rand.NewSource(1)))

		evaluate(t, c, mutant("High", 9))
		d := evaluate(t, c, mutant("Low", 0.1))
		assert.Equal(t, m.CorpusAccepted, d.Outcome)
		assert.Equal(t, 2, c.Size())
	})

	t.Run("full corpus replaces a random entry", func(t *testing.T) {
		c := NewRandomCorpus(2, 1, rand.New(rand.NewSource(1)))
		a, b := mutant("A", 1), mutant("B", 2)

		evaluate(t, c, a)
		evaluate(t, c, b)

		d := evaluate(t, c, mutant("C", 0.5))
		assert.Equal(t, m.CorpusReplaced, d.Outcome)
		require.NotNil(t, d.Previous)
		require.Len(t, d.Evicted, 1)
		assert.Same(t, d.Previous.TestCase, d.Evicted[0].TestCase)
		assert.False(t, d.Previous.TestCase.IsChampion())
		assert.Contains(t, []string{"A", "B"}, d.Previous.TestCase.Name)
		assert.Equal(t, 2, c.Size())
	})

	t.Run("the same test case is not admitted twice", func(t *testing.T) {
		c := NewRandomCorpus(0, 1, rand.New(rand.NewSource(1)))
		a := mutant("A", 1)

		evaluate(t, c, a)
		d := evaluate(t, c, a)
		assert.Equal(t, m.CorpusRejected, d.Outcome)
		assert.Equal(t, 1, c.Size())
	})

	t.Run("nil test case", func(t *testing.T) {
		d := evaluate(t, NewRandomCorpus(0, 1, rand.New(rand.NewSource(1))), Champion{})
		assert.Equal(t, m.CorpusDiscarded, d.Outcome)
	})
}

func TestRandomCorpus_AdmissionRate(t *testing.T) {
	c := NewRandomCorpus(0, 0.5, rand.New(rand.NewSource(7)))

	for i := range 1000 {
		evaluate(t, c, mutant("M"+strconv.Itoa(i), 1))
	}

	assert.InDelta(t, 500, c.Size(), 60)
}

func TestRandomCorpus_OnKeptAndRemove(t *testing.T) {
	c := NewRandomCorpus(0, 1, rand.New(rand.NewSource(1)))

	failing := mutant("A", 1)
	_, err := c.Evaluate(failing, func() error { return errors.New("commit failed") })
	require.Error(t, err)
	assert.False(t, failing.TestCase.IsChampion())
	assert.Zero(t, c.Size())

	b := mutant("B", 1)
	_, err = c.Evaluate(b, nil)
	require.NoError(t, err)

	picked, ok := c.Select(rand.New(rand.NewSource(1)))
	require.True(t, ok)
	assert.Same(t, b.TestCase, picked.TestCase)
	assert.Equal(t, 1, b.TestCase.TimesSelected())

	assert.True(t, c.Remove(b.TestCase, "exhausted"))
	assert.False(t, b.TestCase.IsChampion())
	assert.False(t, c.Remove(b.TestCase, "again"))

	_, ok = c.Select(rand.New(rand.NewSource(1)))
	assert.False(t, ok)
}
