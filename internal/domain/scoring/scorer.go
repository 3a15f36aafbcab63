// Package scoring rates how interesting the optimization trace of a test case
// is. Scoring happens in two phases: PreviewScore computes a score from the
// trace and the current global statistics without changing them, CommitScore
// folds an accepted preview into the statistics.
package scoring

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/bits"
	"sync/atomic"

	"jitfuzz.dev/pkg/jitfuzz/internal/domain/stats"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

var (
	// ErrNilTestCase is returned when a scorer is called without a test case.
	ErrNilTestCase = errors.New("test case is nil")
	// ErrNilPreview is returned when CommitScore is called without a preview.
	ErrNilPreview = errors.New("score preview is nil")
)

// Scorer scores optimization traces.
type Scorer interface {
	Mode() m.ScoringMode
	// PreviewScore sets the score and bucketed vector of tc and returns the
	// preview. It never modifies the global statistics.
	PreviewScore(tc *m.TestCase, vectors *m.OptimizationVectors) (*ScorePreview, error)
	// CommitScore applies the preview to tc and records its features in the
	// global statistics. Committing a preview twice records it twice.
	CommitScore(tc *m.TestCase, preview *ScorePreview) (float64, error)
}

// ScorePreview is the result of PreviewScore.
type ScorePreview struct {
	Score float64
	// Counts is the merged count vector.
	Counts []int
	// Present holds the indices of the features each method showed.
	Present [][]int
	// PairIndices are the pair table slots of the merged present pairs.
	PairIndices []int
	// HotClass and HotMethod name the method with the best own sub-score.
	HotClass   string
	HotMethod  string
	ZeroReason string

	committed atomic.Bool
}

// NewScorePreview builds a preview that owns copies of the given slices.
func NewScorePreview(score float64, counts []int, present [][]int, pairIndices []int) *ScorePreview {
	p := &ScorePreview{
		Score:       score,
		Counts:      append([]int(nil), counts...),
		PairIndices: append([]int(nil), pairIndices...),
	}

	for _, row := range present {
		p.Present = append(p.Present, append([]int(nil), row...))
	}

	return p
}

// Committed reports whether the preview was already committed.
func (p *ScorePreview) Committed() bool { return p.committed.Load() }

// formula computes a raw, uncompressed score from a count vector.
type formula func(counts []int, present []int, view *stats.GlobalStats) (float64, string)

type scorer struct {
	mode    m.ScoringMode
	stats   *stats.GlobalStats
	neutral *stats.GlobalStats
	raw     formula
}

// NewScorer returns the scorer for mode. Unknown modes fall back to PF-IDF.
func NewScorer(mode m.ScoringMode, globalStats *stats.GlobalStats) Scorer {
	if globalStats == nil {
		globalStats = stats.New(m.FeatureCount)
	}

	s := &scorer{
		mode:    mode,
		stats:   globalStats,
		neutral: stats.New(globalStats.Features()),
	}

	switch mode {
	case m.ScoringPFIDF:
		s.raw = pfidf
	case m.ScoringUniform:
		s.raw = uniform
	case m.ScoringInteractionDiversity:
		s.raw = interactionDiversity
	case m.ScoringInteractionPairWeighted:
		s.raw = interactionPairWeighted
	case m.ScoringAbsoluteCount:
		s.raw = absoluteCount
	case m.ScoringNovelFeatureBonus:
		s.raw = novelFeatureBonus
	case m.ScoringPairCoverage:
		s.raw = pairCoverage
	default:
		slog.Warn("Unknown scoring mode, using PF-IDF", "mode", mode)

		s.mode = m.ScoringPFIDF
		s.raw = pfidf
	}

	return s
}

func (s *scorer) Mode() m.ScoringMode { return s.mode }

func (s *scorer) PreviewScore(tc *m.TestCase, vectors *m.OptimizationVectors) (*ScorePreview, error) {
	if tc == nil {
		return nil, ErrNilTestCase
	}

	if vectors.Empty() {
		return s.zero(tc, "no optimization vectors available"), nil
	}

	view := s.stats
	if s.mode == m.ScoringPFIDF && tc.IsSeed() && !tc.NeutralScoreConsumed() {
		// An empty table yields avg = 0 and idf = 1 for every pair.
		view = s.neutral
		tc.ConsumeNeutralScore()
	}

	merged := make([]int, m.FeatureCount)
	present := make([][]int, 0, len(vectors.Vectors))
	hotScore := math.Inf(-1)

	var hotClass, hotMethod string

	for i := range vectors.Vectors {
		method := &vectors.Vectors[i]
		counts := method.Vector.Counts[:]

		p := presentOf(counts)
		if len(p) == 0 {
			continue
		}

		for _, f := range p {
			merged[f] += counts[f]
		}

		present = append(present, p)

		if sub, _ := s.raw(counts, p, view); sub > hotScore {
			hotScore, hotClass, hotMethod = sub, method.ClassName, method.MethodName
		}
	}

	mergedPresent := presentOf(merged)

	raw, reason := s.raw(merged, mergedPresent, view)
	score := compress(raw)

	if score <= 0 && reason == "" {
		reason = "score was not positive"
	}

	preview := NewScorePreview(score, merged, present, s.pairIndices(mergedPresent))
	preview.HotClass, preview.HotMethod = hotClass, hotMethod

	if score <= 0 {
		preview.ZeroReason = reason
		logZero(tc, s.mode, reason)
	}

	tc.Score = score
	tc.BucketedVector = Bucket(merged)

	return preview, nil
}

func (s *scorer) CommitScore(tc *m.TestCase, preview *ScorePreview) (float64, error) {
	if tc == nil {
		return 0, ErrNilTestCase
	}

	if preview == nil {
		return 0, ErrNilPreview
	}

	if preview.committed.Swap(true) {
		slog.Warn("Score preview committed twice", "testCase", tc.Name, "mode", s.mode)
	}

	tc.Score = preview.Score
	tc.BucketedVector = Bucket(preview.Counts)

	if run := dedupe(preview.Present, s.stats.Features()); len(run) > 0 {
		s.stats.RecordRun(run)
	}

	for i, c := range preview.Counts {
		s.stats.ObserveFeatureMax(i, c)
	}

	return preview.Score, nil
}

func (s *scorer) zero(tc *m.TestCase, reason string) *ScorePreview {
	logZero(tc, s.mode, reason)

	tc.Score = 0
	tc.BucketedVector = make([]int, m.FeatureCount)

	preview := NewScorePreview(0, make([]int, m.FeatureCount), nil, nil)
	preview.ZeroReason = reason

	return preview
}

func (s *scorer) pairIndices(present []int) []int {
	var out []int

	for a, i := range present {
		for _, j := range present[a+1:] {
			out = append(out, s.stats.PairIndex(i, j))
		}
	}

	return out
}

func logZero(tc *m.TestCase, mode m.ScoringMode, reason string) {
	slog.Debug("Test case scored zero", "testCase", tc.Name, "mode", mode, "reason", reason)
}

// compress maps a raw score to ln(1+s) for finite positive s and 0 otherwise.
func compress(s float64) float64 {
	if math.IsNaN(s) || math.IsInf(s, 0) || s <= 0 {
		return 0
	}

	return math.Log1p(s)
}

// Bucket coarsens counts so that test cases with similar traces share a
// corpus slot: 0, 1 and 2 are kept, larger counts round up to the power of
// two above their highest set bit.
func Bucket(counts []int) []int {
	out := make([]int, len(counts))

	for i, c := range counts {
		out[i] = bucketCount(c)
	}

	return out
}

func bucketCount(c int) int {
	if c <= 2 {
		return max(c, 0)
	}

	highest := 1 << (bits.Len(uint(c)) - 1)
	if highest >= 1<<30 {
		return math.MaxInt32
	}

	return highest << 1
}

func presentOf(counts []int) []int {
	var out []int

	for i, c := range counts {
		if c > 0 {
			out = append(out, i)
		}
	}

	return out
}

// dedupe merges per-method present sets into one ascending set so a feature
// seen in two methods of a run counts once.
func dedupe(present [][]int, featureCount int) []int {
	seen := make([]bool, featureCount)

	for _, row := range present {
		for _, f := range row {
			if f >= 0 && f < featureCount {
				seen[f] = true
			}
		}
	}

	var out []int

	for f, ok := range seen {
		if ok {
			out = append(out, f)
		}
	}

	return out
}

// String renders the preview for logs and the score command.
func (p *ScorePreview) String() string {
	if p.ZeroReason != "" {
		return fmt.Sprintf("score=%.4f (%s)", p.Score, p.ZeroReason)
	}

	return fmt.Sprintf("score=%.4f hot=%s#%s", p.Score, p.HotClass, p.HotMethod)
}
