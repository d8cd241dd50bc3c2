package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/jonathan/retrieval-judge/internal/types"
)

// InsertChunk stores a chunk and its embedding in one transaction.
func (db *DB) InsertChunk(ctx context.Context, text string, metadata json.RawMessage, embedding []float32) (int64, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var meta any
	if len(metadata) > 0 {
		meta = metadata
	}

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO document_chunks (text_content, source_metadata) VALUES ($1, $2) RETURNING id`,
		text, meta,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert chunk: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO chunk_embeddings (chunk_id, embedding_vector) VALUES ($1, $2)`,
		id, pgvector.NewVector(embedding),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert chunk embedding: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit chunk: %w", err)
	}
	return id, nil
}

// SimilaritySearch returns the k chunks closest to embedding by cosine
// similarity, most similar first.
func (db *DB) SimilaritySearch(ctx context.Context, embedding []float32, k int) ([]types.Chunk, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT dc.id, dc.text_content, dc.source_metadata,
		        1 - (ce.embedding_vector <=> $1::vector) AS similarity
		 FROM chunk_embeddings ce
		 JOIN document_chunks dc ON dc.id = ce.chunk_id
		 ORDER BY ce.embedding_vector <=> $1::vector
		 LIMIT $2`,
		pgvector.NewVector(embedding), k,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	chunks := []types.Chunk{}
	for rows.Next() {
		var c types.Chunk
		var meta []byte
		if err := rows.Scan(&c.ID, &c.TextContent, &meta, &c.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		if len(meta) > 0 {
			c.SourceMetadata = json.RawMessage(meta)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	return chunks, nil
}
