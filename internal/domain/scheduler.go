package domain

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"

	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

// MutatorScheduler chooses which mutator to try next and learns from the
// evaluation of the test cases it produced.
type MutatorScheduler interface {
	Name() string
	// Pick returns a mutation candidate. It never returns m.Seed.
	Pick(rng *rand.Rand) m.MutatorType
	// Update feeds back the evaluation outcome of a test case produced by t.
	Update(t m.MutatorType, outcome m.EvaluationOutcome)
}

const (
	// SchedulerUniform picks mutators uniformly at random.
	SchedulerUniform = "uniform"
	// SchedulerBandit picks mutators by Thompson sampling.
	SchedulerBandit = "bandit"
)

// NewScheduler returns the scheduler registered under name.
func NewScheduler(name string) (MutatorScheduler, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SchedulerUniform:
		return NewUniformScheduler(), nil
	case SchedulerBandit:
		return NewBanditScheduler(), nil
	default:
		return nil, fmt.Errorf("unknown scheduler %q", name)
	}
}

type uniformScheduler struct{}

// NewUniformScheduler returns a scheduler that ignores feedback.
func NewUniformScheduler() MutatorScheduler { return uniformScheduler{} }

func (uniformScheduler) Name() string { return SchedulerUniform }

func (uniformScheduler) Pick(rng *rand.Rand) m.MutatorType { return m.RandomMutatorType(rng) }

func (uniformScheduler) Update(m.MutatorType, m.EvaluationOutcome) {}

const (
	banditEpsilon      = 0.1
	banditBugReward    = 3.0
	banditImproveBoost = 1.0
)

// BanditScheduler keeps a Beta(alpha, beta) posterior per mutator, starting
// from Beta(1, 1). Bugs move alpha by 3, corpus improvements by 1, every other
// outcome moves beta by 1.
type BanditScheduler struct {
	mu    sync.Mutex
	arms  []m.MutatorType
	alpha []float64
	beta  []float64
}

// NewBanditScheduler creates a bandit with one arm per mutation candidate.
func NewBanditScheduler() *BanditScheduler {
	arms := m.MutationCandidates()
	s := &BanditScheduler{
		arms:  arms,
		alpha: make([]float64, len(arms)),
		beta:  make([]float64, len(arms)),
	}

	for i := range arms {
		s.alpha[i] = 1
		s.beta[i] = 1
	}

	return s
}

// Name implements MutatorScheduler.
func (s *BanditScheduler) Name() string { return SchedulerBandit }

// Pick explores a random arm with probability 0.1, otherwise it returns the
// arm with the highest posterior sample.
func (s *BanditScheduler) Pick(rng *rand.Rand) m.MutatorType {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rng.Float64() < banditEpsilon {
		return s.arms[rng.Intn(len(s.arms))]
	}

	best := 0
	bestSample := -1.0

	for i := range s.arms {
		sample := betaSample(rng, s.alpha[i], s.beta[i])
		if sample > bestSample {
			bestSample = sample
			best = i
		}
	}

	return s.arms[best]
}

// Update implements MutatorScheduler.
func (s *BanditScheduler) Update(t m.MutatorType, outcome m.EvaluationOutcome) {
	if t < 0 || int(t) >= len(s.arms) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch outcome {
	case m.OutcomeBug:
		s.alpha[t] += banditBugReward
	case m.OutcomeImproved:
		s.alpha[t] += banditImproveBoost
	default:
		s.beta[t]++
	}
}

// Posterior returns the alpha and beta parameters of t.
func (s *BanditScheduler) Posterior(t m.MutatorType) (float64, float64) {
	if t < 0 || int(t) >= len(s.arms) {
		return 0, 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.alpha[t], s.beta[t]
}

// betaSample draws from Beta(alpha, beta) as X/(X+Y) of two gamma draws.
func betaSample(rng *rand.Rand, alpha, beta float64) float64 {
	x := gammaSample(rng, alpha)
	y := gammaSample(rng, beta)

	if x+y == 0 {
		return 0.5
	}

	return x / (x + y)
}

// gammaSample draws from Gamma(alpha, 1) with the Marsaglia-Tsang method.
func gammaSample(rng *rand.Rand, alpha float64) float64 {
	if alpha < 1 {
		return gammaSample(rng, alpha+1) * math.Pow(rng.Float64(), 1.0/alpha)
	}

	d := alpha - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)

	for {
		var x, v float64

		for {
			x = rng.NormFloat64()
			v = 1.0 + c*x

			if v > 0 {
				break
			}
		}

		v = v * v * v
		u := rng.Float64()

		if u < 1.0-0.0331*(x*x)*(x*x) {
			return d * v
		}

		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v
		}
	}
}
