package scoring

import (
	"fmt"
	"math"

	"jitfuzz.dev/pkg/jitfuzz/internal/domain/stats"
)

const (
	liftEps = 1e-6

	pairSeenWeight = 0.2
	pairMinScore   = 0.05

	novelFeatureAlpha = 0.1

	coverageUnseenFeatureWeight = 0.5
	coverageSeenPairWeight      = 0.05
)

// pfidf averages, over every pair of present features, how much the pair's
// lift exceeds 1 weighted by the inverse frequency of the pair.
func pfidf(counts, present []int, g *stats.GlobalStats) (float64, string) {
	if len(present) < 2 {
		return 0, fmt.Sprintf("%d optimization feature(s) present; PF-IDF requires at least 2", len(present))
	}

	runs := float64(g.RunCount())
	n := math.Max(1, runs)

	lift := make(map[int]float64, len(present))
	for _, i := range present {
		avg := float64(g.FeatureCount(i)) / n
		lift[i] = float64(counts[i]) / (avg + liftEps)
	}

	denom := math.Log(n + 1)

	var sum float64

	terms := 0

	for a, i := range present {
		for _, j := range present[a+1:] {
			s := math.Sqrt(lift[i]*lift[j]) - 1
			if s <= 0 {
				continue
			}

			idf := math.Log((n+1)/(float64(g.PairCount(i, j))+1)) / denom
			sum += s * idf
			terms++
		}
	}

	if terms == 0 {
		return 0, "no optimization pair produced positive lift"
	}

	return sum / float64(terms), ""
}

func uniform(_, _ []int, _ *stats.GlobalStats) (float64, string) {
	return 1, ""
}

// interactionDiversity rewards counts spread over several features.
func interactionDiversity(counts, present []int, _ *stats.GlobalStats) (float64, string) {
	total, peak := 0, 0

	for _, i := range present {
		total += counts[i]
		peak = max(peak, counts[i])
	}

	if total-peak <= 0 {
		return 0, "a single feature dominates the trace"
	}

	return float64(total - peak), ""
}

func interactionPairWeighted(counts, present []int, g *stats.GlobalStats) (float64, string) {
	if len(present) < 2 {
		return 0, "fewer than 2 optimization features present"
	}

	norm := make(map[int]float64, len(present))
	for _, i := range present {
		norm[i] = math.Log1p(float64(counts[i])) / math.Sqrt(1+float64(g.FeatureCount(i)))
	}

	var newWeight, seenWeight, total float64

	for a, i := range present {
		for _, j := range present[a+1:] {
			w := norm[i] * norm[j]
			if w <= 0 {
				continue
			}

			total += w

			if g.PairCount(i, j) == 0 {
				newWeight += w
			} else {
				seenWeight += w
			}
		}
	}

	if total <= 0 {
		return 0, "no optimization pairs with positive weight observed"
	}

	score := newWeight + pairSeenWeight*seenWeight
	if score <= 0 {
		score = math.Max(pairMinScore, pairSeenWeight*total)
	}

	return score, ""
}

func absoluteCount(counts, present []int, _ *stats.GlobalStats) (float64, string) {
	total := 0
	for _, i := range present {
		total += counts[i]
	}

	if total == 0 {
		return 0, "no optimization counts above zero"
	}

	return float64(total), ""
}

// novelFeatureBonus counts never-seen features plus a small share of the
// total count.
func novelFeatureBonus(counts, present []int, g *stats.GlobalStats) (float64, string) {
	total, unseen := 0, 0

	for _, i := range present {
		total += counts[i]

		if !g.HasSeenFeature(i) {
			unseen++
		}
	}

	if total == 0 {
		return 0, "no optimization counts above zero"
	}

	return float64(unseen) + novelFeatureAlpha*float64(total), ""
}

// pairCoverage counts never-seen pairs, with smaller credit for occurrences of
// unseen features and of pairs seen before.
func pairCoverage(counts, present []int, g *stats.GlobalStats) (float64, string) {
	var unseenOccurrences, seenPairOccurrences int

	for _, i := range present {
		if !g.HasSeenFeature(i) {
			unseenOccurrences += counts[i]
		}
	}

	newPairs := 0

	for a, i := range present {
		for _, j := range present[a+1:] {
			if g.PairCount(i, j) == 0 {
				newPairs++
			} else {
				seenPairOccurrences += counts[i] + counts[j]
			}
		}
	}

	score := float64(newPairs) +
		coverageUnseenFeatureWeight*float64(unseenOccurrences) +
		coverageSeenPairWeight*float64(seenPairOccurrences)
	if score <= 0 {
		return 0, "no new optimization pairs or features observed"
	}

	return score, ""
}
