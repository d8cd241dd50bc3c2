// Package ranking judges the relevance of retrieved chunks to a query, one chunk
// at a time or over a whole ranked list.
package ranking

import (
	"context"

	"github.com/jonathan/retrieval-judge/internal/types"
)

// Default thresholds. They live on different scales (retrieval similarity vs
// classifier confidence) and are configured independently.
const (
	DefaultSimilarityThreshold = 0.35
	DefaultConfidenceThreshold = 0.5
)

// Judge decides whether a single chunk is relevant to a query. The returned
// Judgment carries no query id or rank position; those belong to the list.
// Judge never fails: remote errors degrade to a neutral confidence.
type Judge interface {
	Judge(ctx context.Context, query string, chunk types.Chunk) types.Judgment
	Method() types.Method
}

// relevanceFor converts a score into binary relevance; the boundary is inclusive.
func relevanceFor(score, threshold float64) int {
	if score >= threshold {
		return 1
	}
	return 0
}
