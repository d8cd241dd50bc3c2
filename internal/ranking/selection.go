package ranking

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/retrieval-judge/internal/types"
)

// SelectChunks keeps the maxChunks chunks the model rates most relevant.
// Inputs no longer than maxChunks, or a non-positive maxChunks, are returned
// unchanged. Ties keep retrieval order.
func SelectChunks(ctx context.Context, judge *LLMJudge, query string, chunks []types.Chunk, maxChunks, maxConcurrency int) []types.Chunk {
	if maxChunks <= 0 || len(chunks) <= maxChunks {
		return chunks
	}

	scores := make([]float64, len(chunks))
	var g errgroup.Group
	if maxConcurrency > 0 {
		g.SetLimit(maxConcurrency)
	}
	for i, chunk := range chunks {
		g.Go(func() error {
			scores[i] = judge.ClassifyChunk(ctx, query, chunk).Value
			return nil
		})
	}
	_ = g.Wait()

	order := make([]int, len(chunks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	selected := make([]types.Chunk, 0, maxChunks)
	for _, idx := range order[:maxChunks] {
		selected = append(selected, chunks[idx])
	}
	return selected
}
