package domain

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

func TestNewScheduler(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "", want: SchedulerUniform},
		{name: "uniform", want: SchedulerUniform},
		{name: " Bandit ", want: SchedulerBandit},
		{name: "mop", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewScheduler(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Name())
		})
	}
}

func TestSchedulers_NeverPickSeed(t *testing.T) {
	for _, s := range []MutatorScheduler{NewUniformScheduler(), NewBanditScheduler()} {
		rng := rand.New(rand.NewSource(7))

		for i := 0; i < 2000; i++ {
			got := s.Pick(rng)
			require.NotEqual(t, m.Seed, got, s.Name())
			require.True(t, got.Valid(), s.Name())
		}
	}
}

func TestBanditScheduler_Update(t *testing.T) {
	s := NewBanditScheduler()

	alpha, beta := s.Posterior(m.Inline)
	assert.Equal(t, 1.0, alpha)
	assert.Equal(t, 1.0, beta)

	s.Update(m.Inline, m.OutcomeBug)
	s.Update(m.Inline, m.OutcomeImproved)
	s.Update(m.Inline, m.OutcomeNoImprovement)
	s.Update(m.Inline, m.OutcomeFailure)
	s.Update(m.Inline, m.OutcomeTimeout)

	alpha, beta = s.Posterior(m.Inline)
	assert.Equal(t, 5.0, alpha)
	assert.Equal(t, 4.0, beta)

	s.Update(m.Seed, m.OutcomeBug)
	alpha, beta = s.Posterior(m.Seed)
	assert.Zero(t, alpha)
	assert.Zero(t, beta)
}

func TestBanditScheduler_PrefersRewardedArm(t *testing.T) {
	s := NewBanditScheduler()

	for _, mut := range m.MutationCandidates() {
		for i := 0; i < 50; i++ {
			if mut == m.LockCoarsening {
				s.Update(mut, m.OutcomeBug)
			} else {
				s.Update(mut, m.OutcomeNoImprovement)
			}
		}
	}

	rng := rand.New(rand.NewSource(1))
	hits := 0

	for i := 0; i < 1000; i++ {
		if s.Pick(rng) == m.LockCoarsening {
			hits++
		}
	}

	// Exploitation picks the rewarded arm; only epsilon exploration goes elsewhere.
	assert.Greater(t, hits, 850)
}

func TestBetaSample(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	sum := 0.0
	for i := 0; i < 5000; i++ {
		v := betaSample(rng, 2, 6)
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 1.0)

		sum += v
	}

	assert.InDelta(t, 0.25, sum/5000, 0.02)

	for i := 0; i < 100; i++ {
		assert.Greater(t, gammaSample(rng, 0.5), 0.0)
	}
}
