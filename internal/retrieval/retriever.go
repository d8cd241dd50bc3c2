package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/retrieval-judge/internal/types"
)

// Searcher returns the k stored chunks most similar to an embedding,
// in descending similarity order.
type Searcher interface {
	SimilaritySearch(ctx context.Context, embedding []float32, k int) ([]types.Chunk, error)
}

// Retriever combines an Embedder and a Searcher.
type Retriever struct {
	embedder Embedder
	searcher Searcher
}

// NewRetriever creates a Retriever.
func NewRetriever(embedder Embedder, searcher Searcher) *Retriever {
	return &Retriever{embedder: embedder, searcher: searcher}
}

// Retrieve embeds query and returns up to k candidate chunks.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]types.Chunk, error) {
	if k <= 0 {
		return nil, errors.New("k must be positive")
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	chunks, err := r.searcher.SimilaritySearch(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	return chunks, nil
}
