package domain

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"

	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

const (
	// DefaultCorpusCapacity bounds the number of champions.
	DefaultCorpusCapacity = 10000
	randomPickProbability = 0.1
)

// Champion is a corpus entry: a test case and its source.
type Champion struct {
	TestCase *m.TestCase
	Source   []byte
}

// CorpusDecision is the result of Corpus.Evaluate.
type CorpusDecision struct {
	Outcome m.CorpusOutcome
	// Previous is the champion that was displaced (Replaced) or kept (Rejected).
	Previous *Champion
	// Evicted lists champions dropped to respect the capacity.
	Evicted []Champion
	Reason  string
}

// Corpus holds the test cases mutation draws its parents from.
type Corpus interface {
	// Evaluate decides whether the scored test case becomes a champion. It
	// uses the score and bucketed vector set by the score preview. onKept,
	// when not nil, runs under the corpus lock before the candidate becomes
	// visible to Select; an error leaves the corpus unchanged.
	Evaluate(candidate Champion, onKept func() error) (CorpusDecision, error)
	// Select returns the next parent to mutate and marks it selected.
	Select(rng *rand.Rand) (Champion, bool)
	// Remove drops tc if it is a champion.
	Remove(tc *m.TestCase, reason string) bool
	Size() int
	// Champions returns the champions ordered by descending score.
	Champions() []Champion
}

type championCorpus struct {
	mu        sync.Mutex
	mode      m.ScoringMode
	capacity  int
	champions map[string]*Champion
	tieBreak  *rand.Rand
}

// NewChampionCorpus creates a corpus. Equal scores in Uniform mode are
// settled by a coin flip drawn from tieBreak. A capacity <= 0 means unbounded.
func NewChampionCorpus(mode m.ScoringMode, capacity int, tieBreak *rand.Rand) Corpus {
	return &championCorpus{
		mode:      mode,
		capacity:  capacity,
		champions: make(map[string]*Champion),
		tieBreak:  tieBreak,
	}
}

func (c *championCorpus) Evaluate(candidate Champion, onKept func() error) (CorpusDecision, error) {
	tc := candidate.TestCase
	if tc == nil {
		return CorpusDecision{Outcome: m.CorpusDiscarded, Reason: "nil test case"}, nil
	}

	if !hasActivity(tc.BucketedVector) {
		return CorpusDecision{Outcome: m.CorpusDiscarded, Reason: "no active optimizations observed"}, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := bucketKey(tc.BucketedVector)
	entry := &Champion{TestCase: tc, Source: candidate.Source}

	existing, ok := c.champions[key]
	if !ok {
		if err := keep(onKept); err != nil {
			return CorpusDecision{}, err
		}

		c.champions[key] = entry
		tc.ActivateChampion()

		evicted := c.enforceCapacity()
		for _, e := range evicted {
			if e.TestCase == tc {
				return CorpusDecision{
					Outcome: m.CorpusDiscarded,
					Evicted: withoutTestCase(evicted, tc),
					Reason:  fmt.Sprintf("corpus capacity reached; %s score below retention threshold", c.mode),
				}, nil
			}
		}

		return CorpusDecision{Outcome: m.CorpusAccepted, Evicted: evicted}, nil
	}

	incumbent := existing.TestCase.Score
	replace := tc.Score > incumbent

	if tc.Score == incumbent && c.mode == m.ScoringUniform {
		replace = c.tieBreak.Intn(2) == 1
	}

	if !replace {
		kept := *existing

		return CorpusDecision{
			Outcome:  m.CorpusRejected,
			Previous: &kept,
			Reason:   fmt.Sprintf("incumbent has higher or equal %s score", c.mode),
		}, nil
	}

	if err := keep(onKept); err != nil {
		return CorpusDecision{}, err
	}

	previous := *existing
	previous.TestCase.DeactivateChampion()

	c.champions[key] = entry
	tc.ActivateChampion()

	return CorpusDecision{Outcome: m.CorpusReplaced, Previous: &previous, Evicted: c.enforceCapacity()}, nil
}

func keep(onKept func() error) error {
	if onKept == nil {
		return nil
	}

	return onKept()
}

// enforceCapacity evicts the lowest-scoring champions. Callers hold the lock.
func (c *championCorpus) enforceCapacity() []Champion {
	if c.capacity <= 0 || len(c.champions) <= c.capacity {
		return nil
	}

	keys := c.sortedKeys()
	sort.SliceStable(keys, func(i, j int) bool {
		return c.champions[keys[i]].TestCase.Score < c.champions[keys[j]].TestCase.Score
	})

	var evicted []Champion

	for _, key := range keys {
		if len(c.champions) <= c.capacity {
			break
		}

		e := c.champions[key]
		e.TestCase.DeactivateChampion()
		delete(c.champions, key)

		evicted = append(evicted, *e)
	}

	return evicted
}

func (c *championCorpus) Select(rng *rand.Rand) (Champion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.sortedKeys()

	entries := make([]*Champion, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, c.champions[key])
	}

	return selectParent(entries, rng)
}

// selectParent mostly picks the highest priority entry and sometimes a
// uniformly random one. Callers hold the corpus lock.
func selectParent(entries []*Champion, rng *rand.Rand) (Champion, bool) {
	if len(entries) == 0 {
		return Champion{}, false
	}

	var picked *Champion

	if len(entries) > 1 && rng.Float64() < randomPickProbability {
		picked = entries[rng.Intn(len(entries))]
	} else {
		for _, e := range entries {
			if picked == nil || e.TestCase.Priority() > picked.TestCase.Priority() {
				picked = e
			}
		}
	}

	picked.TestCase.MarkSelected()

	return *picked, true
}

func (c *championCorpus) Remove(tc *m.TestCase, reason string) bool {
	if tc == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.champions {
		if e.TestCase != tc {
			continue
		}

		delete(c.champions, key)
		tc.DeactivateChampion()
		slog.Info("Removed test case from corpus", "testCase", tc.Name, "reason", reason)

		return true
	}

	return false
}

func (c *championCorpus) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.champions)
}

func (c *championCorpus) Champions() []Champion {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Champion, 0, len(c.champions))
	for _, key := range c.sortedKeys() {
		out = append(out, *c.champions[key])
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TestCase.Score > out[j].TestCase.Score
	})

	return out
}

// sortedKeys makes iteration independent of map order so a campaign with a
// fixed seed is reproducible.
func (c *championCorpus) sortedKeys() []string {
	keys := make([]string, 0, len(c.champions))
	for key := range c.champions {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func hasActivity(bucketed []int) bool {
	for _, v := range bucketed {
		if v > 0 {
			return true
		}
	}

	return false
}

func bucketKey(bucketed []int) string {
	var b strings.Builder

	for i, v := range bucketed {
		if i > 0 {
			b.WriteByte(',')
		}

		b.WriteString(strconv.Itoa(v))
	}

	return b.String()
}

func withoutTestCase(champions []Champion, tc *m.TestCase) []Champion {
	out := champions[:0]

	for _, e := range champions {
		if e.TestCase != tc {
			out = append(out, e)
		}
	}

	return out
}
