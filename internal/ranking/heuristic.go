package ranking

import (
	"context"
	"fmt"

	"github.com/jonathan/retrieval-judge/internal/types"
)

// HeuristicJudge marks a chunk relevant when its retrieval similarity reaches a threshold.
// It performs no I/O.
type HeuristicJudge struct {
	Threshold float64
}

// NewHeuristicJudge creates a HeuristicJudge; a non-positive threshold uses the default.
func NewHeuristicJudge(threshold float64) *HeuristicJudge {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &HeuristicJudge{Threshold: threshold}
}

// Judge implements Judge.
func (h *HeuristicJudge) Judge(_ context.Context, _ string, chunk types.Chunk) types.Judgment {
	return types.Judgment{
		ChunkID:     chunk.ID,
		Relevance:   relevanceFor(chunk.Similarity, h.Threshold),
		Explanation: fmt.Sprintf("similarity=%.3f threshold=%g", chunk.Similarity, h.Threshold),
		Method:      types.MethodHeuristic,
	}
}

// Method returns MethodHeuristic.
func (h *HeuristicJudge) Method() types.Method {
	return types.MethodHeuristic
}
