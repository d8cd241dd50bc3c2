// Package metrics computes ranking-quality statistics from relevance judgments.
package metrics

import (
	"sort"

	"github.com/jonathan/retrieval-judge/internal/types"
)

// PrecisionAtK returns the fraction of relevant judgments among the first k in
// rank order. The list is truncated by position, so when fewer than k judgments
// exist the denominator is the number available. An empty truncation yields 0.
func PrecisionAtK(judgments []types.Judgment, k int) float64 {
	if k <= 0 {
		return 0.0
	}
	top := byRank(judgments)
	if len(top) > k {
		top = top[:k]
	}
	if len(top) == 0 {
		return 0.0
	}
	return float64(countRelevant(top)) / float64(len(top))
}

// OverallPrecision returns relevant / total, or 0 for an empty list.
func OverallPrecision(judgments []types.Judgment) float64 {
	if len(judgments) == 0 {
		return 0.0
	}
	return float64(countRelevant(judgments)) / float64(len(judgments))
}

// Aggregate computes AggregateMetrics for one query's judgments.
func Aggregate(judgments []types.Judgment) types.AggregateMetrics {
	return types.AggregateMetrics{
		PrecisionAt5:     PrecisionAtK(judgments, 5),
		PrecisionAt10:    PrecisionAtK(judgments, 10),
		OverallPrecision: OverallPrecision(judgments),
		TotalJudgments:   len(judgments),
	}
}

// byRank returns the judgments ordered by rank position without modifying the input.
func byRank(judgments []types.Judgment) []types.Judgment {
	sorted := make([]types.Judgment, len(judgments))
	copy(sorted, judgments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RankPosition < sorted[j].RankPosition
	})
	return sorted
}

func countRelevant(judgments []types.Judgment) int {
	n := 0
	for _, j := range judgments {
		if j.IsRelevant() {
			n++
		}
	}
	return n
}
