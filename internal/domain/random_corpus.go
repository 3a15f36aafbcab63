package domain

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"sync"

	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

const (
	// CorpusChampion keeps one champion per bucketed optimization vector.
	CorpusChampion = "champion"
	// CorpusRandom admits test cases by a coin flip, regardless of score.
	CorpusRandom = "random"

	randomCorpusAcceptProbability = 0.5
	randomRejectionReason         = "random rejection"
)

// NewCorpus returns the corpus registered under policy. The rng drives tie
// breaks and random admission.
func NewCorpus(policy string, mode m.ScoringMode, capacity int, rng *rand.Rand) (Corpus, error) {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case "", CorpusChampion:
		return NewChampionCorpus(mode, capacity, rng), nil
	case CorpusRandom:
		return NewRandomCorpus(capacity, randomCorpusAcceptProbability, rng), nil
	default:
		return nil, fmt.Errorf("unknown corpus policy %q", policy)
	}
}

type randomCorpus struct {
	mu       sync.Mutex
	capacity int
	accept   float64
	rng      *rand.Rand
	entries  []*Champion
}

// NewRandomCorpus creates a baseline corpus that ignores scores. Seeds are
// always admitted; mutants are admitted with probability accept, clamped to
// [0, 1]. Once capacity is reached an admitted test case replaces a random
// entry. A capacity <= 0 means unbounded.
func NewRandomCorpus(capacity int, accept float64, rng *rand.Rand) Corpus {
	return &randomCorpus{
		capacity: capacity,
		accept:   min(max(accept, 0), 1),
		rng:      rng,
	}
}

func (c *randomCorpus) Evaluate(candidate Champion, onKept func() error) (CorpusDecision, error) {
	tc := candidate.TestCase
	if tc == nil {
		return CorpusDecision{Outcome: m.CorpusDiscarded, Reason: "nil test case"}, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.indexOf(tc) >= 0 {
		return CorpusDecision{Outcome: m.CorpusRejected, Reason: "already in corpus"}, nil
	}

	full := c.capacity > 0 && len(c.entries) >= c.capacity

	victim := -1
	if full {
		victim = c.rng.Intn(len(c.entries))
	}

	if !tc.IsSeed() && !c.admit() {
		return CorpusDecision{Outcome: m.CorpusRejected, Reason: randomRejectionReason}, nil
	}

	if err := keep(onKept); err != nil {
		return CorpusDecision{}, err
	}

	entry := &Champion{TestCase: tc, Source: candidate.Source}
	tc.ActivateChampion()

	if !full {
		c.entries = append(c.entries, entry)

		return CorpusDecision{Outcome: m.CorpusAccepted}, nil
	}

	previous := *c.entries[victim]
	previous.TestCase.DeactivateChampion()
	c.entries[victim] = entry

	return CorpusDecision{
		Outcome:  m.CorpusReplaced,
		Previous: &previous,
		Evicted:  []Champion{previous},
		Reason:   "random replacement",
	}, nil
}

func (c *randomCorpus) admit() bool {
	switch {
	case c.accept <= 0:
		return false
	case c.accept >= 1:
		return true
	default:
		return c.rng.Float64() < c.accept
	}
}

// indexOf returns the position of tc or -1. Callers hold the lock.
func (c *randomCorpus) indexOf(tc *m.TestCase) int {
	for i, e := range c.entries {
		if e.TestCase == tc {
			return i
		}
	}

	return -1
}

func (c *randomCorpus) Select(rng *rand.Rand) (Champion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return selectParent(c.entries, rng)
}

func (c *randomCorpus) Remove(tc *m.TestCase, reason string) bool {
	if tc == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(tc)
	if i < 0 {
		return false
	}

	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	tc.DeactivateChampion()
	slog.Info("Removed test case from corpus", "testCase", tc.Name, "reason", reason)

	return true
}

func (c *randomCorpus) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

func (c *randomCorpus) Champions() []Champion {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Champion, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TestCase.Score > out[j].TestCase.Score
	})

	return out
}
