// Package stats accumulates the process-wide counters of a fuzzing campaign:
// feature and feature-pair occurrence tables read by the scorers, and the
// session counters shown by the UI. Every counter is atomic so concurrent
// workers may commit without locking.
package stats

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

// GlobalStats is shared by every worker of a campaign. Scorers read the
// occurrence tables; only a score commit writes them.
type GlobalStats struct {
	featureCount int

	runs       atomic.Int64
	features   []atomic.Int64
	pairs      []atomic.Int64
	featureMax []atomic.Int64

	dispatched         atomic.Int64
	evaluated          atomic.Int64
	compileFailures    atomic.Int64
	bugs               atomic.Int64
	interpreterTimeout atomic.Int64
	jitTimeout         atomic.Int64

	execNanos   atomic.Int64
	executions  atomic.Int64
	maxExecNano atomic.Int64

	scoreMu  sync.Mutex
	scoreSum float64
	scoreMax float64
	scoreN   int64

	corpus     [4]atomic.Int64
	corpusSize atomic.Int64

	mutators [m.MutatorTypeCount]mutatorCounters

	bucketsMu sync.Mutex
	buckets   map[string]struct{}
}

type mutatorCounters struct {
	selected atomic.Int64
	mutation [2]atomic.Int64
	failed   atomic.Int64
	outcomes [5]atomic.Int64

	featureSamples atomic.Int64
	featureInc     [m.FeatureCount]atomic.Int64
	featureDec     [m.FeatureCount]atomic.Int64
}

// New allocates tables for featureCount features.
func New(featureCount int) *GlobalStats {
	featureCount = max(featureCount, 0)

	return &GlobalStats{
		featureCount: featureCount,
		features:     make([]atomic.Int64, featureCount),
		pairs:        make([]atomic.Int64, featureCount*(featureCount-1)/2+1),
		featureMax:   make([]atomic.Int64, featureCount),
		buckets:      make(map[string]struct{}),
	}
}

// Features returns the number of features tracked.
func (s *GlobalStats) Features() int { return s.featureCount }

// PairIndex maps an unordered pair i != j to its slot in the upper-triangular
// pair table. It returns -1 for i == j or an index out of range.
func (s *GlobalStats) PairIndex(i, j int) int {
	if i == j || i < 0 || j < 0 || i >= s.featureCount || j >= s.featureCount {
		return -1
	}

	if i > j {
		i, j = j, i
	}

	// Rows before i hold (n-1) + (n-2) + ... + (n-i) pairs.
	n := s.featureCount

	return i*(2*n-i-1)/2 + (j - i - 1)
}

// IncrementRunCount counts one scored run.
func (s *GlobalStats) IncrementRunCount() { s.runs.Add(1) }

// AddFeatureOccurrence adds amount to the number of runs that showed feature i.
func (s *GlobalStats) AddFeatureOccurrence(i int, amount int64) {
	if i < 0 || i >= s.featureCount {
		return
	}

	s.features[i].Add(amount)
}

// AddPairOccurrence adds amount to the co-occurrence count of i and j. The
// pair is unordered and i == j is ignored.
func (s *GlobalStats) AddPairOccurrence(i, j int, amount int64) {
	idx := s.PairIndex(i, j)
	if idx < 0 {
		return
	}

	s.pairs[idx].Add(amount)
}

// ObserveFeatureMax raises the largest count seen for feature i.
func (s *GlobalStats) ObserveFeatureMax(i, count int) {
	if i < 0 || i >= s.featureCount {
		return
	}

	slot := &s.featureMax[i]
	for {
		cur := slot.Load()
		if int64(count) <= cur || slot.CompareAndSwap(cur, int64(count)) {
			return
		}
	}
}

// RecordRun folds the present features of one run into the tables: every
// feature and every pair of features is counted once, then the run count is
// incremented. present must not contain duplicates.
func (s *GlobalStats) RecordRun(present []int) {
	for a, i := range present {
		s.AddFeatureOccurrence(i, 1)

		for _, j := range present[a+1:] {
			s.AddPairOccurrence(i, j, 1)
		}
	}

	s.IncrementRunCount()
}

// FeatureCount returns in how many runs feature i was present.
func (s *GlobalStats) FeatureCount(i int) int64 {
	if i < 0 || i >= s.featureCount {
		return 0
	}

	return s.features[i].Load()
}

// PairCount returns in how many runs both i and j were present.
func (s *GlobalStats) PairCount(i, j int) int64 {
	idx := s.PairIndex(i, j)
	if idx < 0 {
		return 0
	}

	return s.pairs[idx].Load()
}

// FeatureMax returns the largest single-run count observed for feature i.
func (s *GlobalStats) FeatureMax(i int) int64 {
	if i < 0 || i >= s.featureCount {
		return 0
	}

	return s.featureMax[i].Load()
}

// HasSeenFeature reports whether feature i occurred in any committed run.
func (s *GlobalStats) HasSeenFeature(i int) bool { return s.FeatureCount(i) > 0 }

// RunCount returns the number of committed runs.
func (s *GlobalStats) RunCount() int64 { return s.runs.Load() }

// UniqueFeatures returns how many features were seen at least once.
func (s *GlobalStats) UniqueFeatures() int {
	n := 0

	for i := range s.features {
		if s.features[i].Load() > 0 {
			n++
		}
	}

	return n
}

// UniquePairs returns how many feature pairs were seen at least once.
func (s *GlobalStats) UniquePairs() int {
	n := 0

	for i := range s.pairs {
		if s.pairs[i].Load() > 0 {
			n++
		}
	}

	return n
}

// IncDispatched counts a test case handed to the executor.
func (s *GlobalStats) IncDispatched() { s.dispatched.Add(1) }

// IncEvaluated counts a test case whose execution finished.
func (s *GlobalStats) IncEvaluated() { s.evaluated.Add(1) }

// IncCompileFailure counts a test case javac rejected.
func (s *GlobalStats) IncCompileFailure() { s.compileFailures.Add(1) }

// IncInterpreterTimeout counts an interpreter run that hit the time limit.
func (s *GlobalStats) IncInterpreterTimeout() { s.interpreterTimeout.Add(1) }

// IncJITTimeout counts a JIT run that hit the time limit.
func (s *GlobalStats) IncJITTimeout() { s.jitTimeout.Add(1) }

// RecordBug counts a bug and reports whether its bucket is new. Buckets group
// bugs by signature so repeats of one defect count once.
func (s *GlobalStats) RecordBug(bucket string) bool {
	s.bugs.Add(1)

	if bucket == "" {
		return false
	}

	s.bucketsMu.Lock()
	defer s.bucketsMu.Unlock()

	if _, ok := s.buckets[bucket]; ok {
		return false
	}

	s.buckets[bucket] = struct{}{}

	return true
}

// RecordExecution accumulates a JIT and interpreter runtime pair.
func (s *GlobalStats) RecordExecution(interpreter, jit time.Duration) {
	s.executions.Add(1)
	s.execNanos.Add(int64(interpreter + jit))

	slow := int64(max(interpreter, jit))
	for {
		cur := s.maxExecNano.Load()
		if slow <= cur || s.maxExecNano.CompareAndSwap(cur, slow) {
			return
		}
	}
}

// RecordScore accumulates a committed score.
func (s *GlobalStats) RecordScore(score float64) {
	s.scoreMu.Lock()
	defer s.scoreMu.Unlock()

	s.scoreSum += score
	s.scoreN++

	if score > s.scoreMax {
		s.scoreMax = score
	}
}

// RecordCorpus counts a corpus decision and stores the corpus size after it.
func (s *GlobalStats) RecordCorpus(outcome m.CorpusOutcome, size int) {
	if outcome >= 0 && int(outcome) < len(s.corpus) {
		s.corpus[outcome].Add(1)
	}

	s.corpusSize.Store(int64(size))
}

// RecordSelection counts a scheduler pick of t.
func (s *GlobalStats) RecordSelection(t m.MutatorType) {
	if c := s.mutator(t); c != nil {
		c.selected.Add(1)
	}
}

// RecordMutation counts the status a mutator returned.
func (s *GlobalStats) RecordMutation(t m.MutatorType, status m.MutationStatus) {
	if c := s.mutator(t); c != nil && status >= 0 && int(status) < len(c.mutation) {
		c.mutation[status].Add(1)
	}
}

// RecordMutationFailure counts a mutator that returned an error.
func (s *GlobalStats) RecordMutationFailure(t m.MutatorType) {
	if c := s.mutator(t); c != nil {
		c.failed.Add(1)
	}
}

// RecordOutcome counts the evaluation outcome of a test case produced by t.
func (s *GlobalStats) RecordOutcome(t m.MutatorType, outcome m.EvaluationOutcome) {
	if c := s.mutator(t); c != nil && outcome >= 0 && int(outcome) < len(c.outcomes) {
		c.outcomes[outcome].Add(1)
	}
}

// RecordFeatureDelta attributes the change in merged optimization counts
// between a mutant and its parent to the mutator that produced it. A nil
// parent counts as all zero. Seeds are not attributed.
func (s *GlobalStats) RecordFeatureDelta(t m.MutatorType, child, parent *m.OptimizationVector) {
	c := s.mutator(t)
	if c == nil || t == m.Seed || child == nil {
		return
	}

	for i, n := range child.Counts {
		if parent != nil {
			n -= parent.Counts[i]
		}

		switch {
		case n > 0:
			c.featureInc[i].Add(int64(n))
		case n < 0:
			c.featureDec[i].Add(int64(-n))
		}
	}

	c.featureSamples.Add(1)
}

func (s *GlobalStats) mutator(t m.MutatorType) *mutatorCounters {
	if !t.Valid() {
		return nil
	}

	return &s.mutators[t]
}

// MutatorSnapshot holds the counters of one mutator.
type MutatorSnapshot struct {
	Mutator       m.MutatorType
	Selected      int64
	Succeeded     int64
	Skipped       int64
	Failed        int64
	Bugs          int64
	Improved      int64
	NoImprovement int64
	Failures      int64
	Timeouts      int64
	// FeatureSamples counts the mutants whose optimization deltas were
	// recorded; FeatureIncreases and FeatureDecreases sum those deltas.
	FeatureSamples   int64
	FeatureIncreases [m.FeatureCount]int64
	FeatureDecreases [m.FeatureCount]int64
}

// Snapshot is a point-in-time copy of the campaign counters.
type Snapshot struct {
	Runs                int64
	Dispatched          int64
	Evaluated           int64
	CompileFailures     int64
	Bugs                int64
	UniqueBugs          int
	InterpreterTimeouts int64
	JITTimeouts         int64
	AvgExecution        time.Duration
	MaxExecution        time.Duration
	AvgScore            float64
	MaxScore            float64
	Accepted            int64
	Replaced            int64
	Rejected            int64
	Discarded           int64
	CorpusSize          int64
	UniqueFeatures      int
	UniquePairs         int
	Mutators            []MutatorSnapshot
}

// Snapshot copies the counters. Individual values are consistent; the
// snapshot as a whole is not taken atomically.
func (s *GlobalStats) Snapshot() Snapshot {
	snap := Snapshot{
		Runs:                s.runs.Load(),
		Dispatched:          s.dispatched.Load(),
		Evaluated:           s.evaluated.Load(),
		CompileFailures:     s.compileFailures.Load(),
		Bugs:                s.bugs.Load(),
		InterpreterTimeouts: s.interpreterTimeout.Load(),
		JITTimeouts:         s.jitTimeout.Load(),
		MaxExecution:        time.Duration(s.maxExecNano.Load()),
		Accepted:            s.corpus[m.CorpusAccepted].Load(),
		Replaced:            s.corpus[m.CorpusReplaced].Load(),
		Rejected:            s.corpus[m.CorpusRejected].Load(),
		Discarded:           s.corpus[m.CorpusDiscarded].Load(),
		CorpusSize:          s.corpusSize.Load(),
		UniqueFeatures:      s.UniqueFeatures(),
		UniquePairs:         s.UniquePairs(),
	}

	if n := s.executions.Load(); n > 0 {
		snap.AvgExecution = time.Duration(s.execNanos.Load() / (2 * n))
	}

	s.scoreMu.Lock()
	if s.scoreN > 0 {
		snap.AvgScore = s.scoreSum / float64(s.scoreN)
	}

	snap.MaxScore = s.scoreMax
	s.scoreMu.Unlock()

	s.bucketsMu.Lock()
	snap.UniqueBugs = len(s.buckets)
	s.bucketsMu.Unlock()

	for _, t := range m.MutationCandidates() {
		c := &s.mutators[t]
		ms := MutatorSnapshot{
			Mutator:        t,
			Selected:       c.selected.Load(),
			Succeeded:      c.mutation[m.MutationSuccess].Load(),
			Skipped:        c.mutation[m.MutationSkipped].Load(),
			Failed:         c.failed.Load(),
			Bugs:           c.outcomes[m.OutcomeBug].Load(),
			Improved:       c.outcomes[m.OutcomeImproved].Load(),
			NoImprovement:  c.outcomes[m.OutcomeNoImprovement].Load(),
			Failures:       c.outcomes[m.OutcomeFailure].Load(),
			Timeouts:       c.outcomes[m.OutcomeTimeout].Load(),
			FeatureSamples: c.featureSamples.Load(),
		}

		for i := range ms.FeatureIncreases {
			ms.FeatureIncreases[i] = c.featureInc[i].Load()
			ms.FeatureDecreases[i] = c.featureDec[i].Load()
		}

		snap.Mutators = append(snap.Mutators, ms)
	}

	sort.SliceStable(snap.Mutators, func(a, b int) bool {
		return snap.Mutators[a].Selected > snap.Mutators[b].Selected
	})

	return snap
}

// Mutator returns the counters of t. The zero value is returned for a
// mutator the snapshot does not hold.
func (s Snapshot) Mutator(t m.MutatorType) MutatorSnapshot {
	for _, ms := range s.Mutators {
		if ms.Mutator == t {
			return ms
		}
	}

	return MutatorSnapshot{Mutator: t}
}
