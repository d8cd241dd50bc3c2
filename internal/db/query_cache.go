package db

import (
	"context"
	"fmt"
	"time"
)

// CachedQuery is a previously asked question.
type CachedQuery struct {
	ID        int64     `json:"id"`
	QueryText string    `json:"query_text"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateQuery records a query and returns its identifier.
func (db *DB) CreateQuery(ctx context.Context, text string) (int64, error) {
	var id int64
	err := db.pool.QueryRow(ctx,
		`INSERT INTO query_cache (query_text) VALUES ($1) RETURNING id`,
		text,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create query: %w", err)
	}
	return id, nil
}

// RecentQueries returns up to limit queries, newest first.
func (db *DB) RecentQueries(ctx context.Context, limit int) ([]CachedQuery, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, query_text, created_at FROM query_cache
		 ORDER BY created_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	defer rows.Close()

	var queries []CachedQuery
	for rows.Next() {
		var q CachedQuery
		if err := rows.Scan(&q.ID, &q.QueryText, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan query: %w", err)
		}
		queries = append(queries, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	return queries, nil
}
