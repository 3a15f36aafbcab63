package domain

import (
	"sort"

	"jitfuzz.dev/pkg/jitfuzz/internal/adapter"
	"jitfuzz.dev/pkg/jitfuzz/internal/domain/stats"
	m "jitfuzz.dev/pkg/jitfuzz/internal/model"
)

// summarizeRecords aggregates evaluation records per mutator, ordered by
// mutator name. It mirrors SessionStore.MutatorSummary for the records of a
// campaign that is still running.
func summarizeRecords(records adapter.RecordSource) ([]m.MutatorSummary, error) {
	byMutator := map[string]*m.MutatorSummary{}
	scoreSums := map[string]float64{}

	err := records.Range(func(_ uint64, rec m.EvaluationRecord) error {
		s, ok := byMutator[rec.Mutator]
		if !ok {
			s = &m.MutatorSummary{Mutator: rec.Mutator, MaxScore: rec.Score}
			byMutator[rec.Mutator] = s
		}

		s.Evaluated++
		scoreSums[rec.Mutator] += rec.Score
		s.MaxScore = max(s.MaxScore, rec.Score)

		switch rec.Outcome {
		case m.OutcomeBug.String():
			s.Bugs++
		case m.OutcomeImproved.String():
			s.Improved++
		case m.OutcomeFailure.String():
			s.Failures++
		case m.OutcomeTimeout.String():
			s.Timeouts++
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]m.MutatorSummary, 0, len(byMutator))
	for name, s := range byMutator {
		s.MeanScore = scoreSums[name] / float64(s.Evaluated)
		out = append(out, *s)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Mutator < out[j].Mutator
	})

	return out, nil
}

// attributeFeatures copies the per-mutator optimization deltas of snap into
// the summaries, keyed by feature name. Zero deltas are left out.
func attributeFeatures(summaries []m.MutatorSummary, snap stats.Snapshot) {
	for i := range summaries {
		t, err := m.ParseMutatorType(summaries[i].Mutator)
		if err != nil || t == m.Seed {
			continue
		}

		ms := snap.Mutator(t)
		summaries[i].FeatureIncreases = featureCounts(ms.FeatureIncreases)
		summaries[i].FeatureDecreases = featureCounts(ms.FeatureDecreases)
	}
}

func featureCounts(counts [m.FeatureCount]int64) map[string]int64 {
	var out map[string]int64

	for i, n := range counts {
		if n == 0 {
			continue
		}

		if out == nil {
			out = make(map[string]int64)
		}

		out[m.Feature(i).String()] = n
	}

	return out
}
