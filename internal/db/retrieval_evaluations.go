package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/retrieval-judge/internal/types"
)

// ErrInvalidJudgment is returned when a judgment row fails validation.
// Nothing from the batch is written when it occurs.
var ErrInvalidJudgment = errors.New("invalid judgment")

var evaluationColumns = []string{
	"evaluation_id",
	"query_id",
	"chunk_id",
	"relevance_score",
	"llm_score",
	"explanation",
	"retrieval_method",
	"rank_position",
}

// JudgmentStore writes retrieval evaluations in all-or-nothing batches.
type JudgmentStore struct {
	conn Beginner
}

// NewJudgmentStore creates a JudgmentStore on top of conn.
func NewJudgmentStore(conn Beginner) *JudgmentStore {
	return &JudgmentStore{conn: conn}
}

// Persist writes judgments for queryID as one bulk insert inside a single
// transaction and returns the batch identifier. Every row is prepared before
// the transaction starts, so a bad row aborts the whole batch. An empty batch
// begins and commits without inserting.
func (s *JudgmentStore) Persist(ctx context.Context, queryID int64, judgments []types.Judgment) (uuid.UUID, error) {
	evaluationID := uuid.New()

	rows, err := evaluationRows(evaluationID, queryID, judgments)
	if err != nil {
		return uuid.Nil, err
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if len(rows) > 0 {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"retrieval_evaluations"}, evaluationColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to insert retrieval evaluations: %w", err)
		}
		if int(n) != len(rows) {
			return uuid.Nil, fmt.Errorf("inserted %d of %d retrieval evaluations", n, len(rows))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit retrieval evaluations: %w", err)
	}
	return evaluationID, nil
}

// evaluationRows validates every judgment and checks that the batch ranks are
// exactly 1..N, in any order, before building the copy rows.
func evaluationRows(evaluationID uuid.UUID, queryID int64, judgments []types.Judgment) ([][]any, error) {
	rows := make([][]any, 0, len(judgments))
	seen := make([]bool, len(judgments)+1)
	for i := range judgments {
		j := judgments[i]
		if err := j.Validate(); err != nil {
			return nil, fmt.Errorf("%w at rank %d: %v", ErrInvalidJudgment, j.RankPosition, err)
		}
		if j.RankPosition > len(judgments) {
			return nil, fmt.Errorf("%w: rank %d exceeds batch size %d", ErrInvalidJudgment, j.RankPosition, len(judgments))
		}
		if seen[j.RankPosition] {
			return nil, fmt.Errorf("%w: duplicate rank %d", ErrInvalidJudgment, j.RankPosition)
		}
		seen[j.RankPosition] = true
		rows = append(rows, []any{
			evaluationID,
			queryID,
			j.ChunkID,
			j.Relevance,
			j.Confidence,
			j.Explanation,
			string(j.Method),
			j.RankPosition,
		})
	}
	return rows, nil
}

// EvaluationRecord is a persisted judgment row.
type EvaluationRecord struct {
	ID           int64          `json:"id"`
	EvaluationID uuid.UUID      `json:"evaluation_id"`
	Judgment     types.Judgment `json:"judgment"`
	CreatedAt    time.Time      `json:"created_at"`
}

// ListJudgments returns every evaluation row for a query, oldest batch first
// and in rank order within a batch.
func (db *DB) ListJudgments(ctx context.Context, queryID int64) ([]EvaluationRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, evaluation_id, query_id, chunk_id, relevance_score, llm_score,
		        explanation, retrieval_method, rank_position, created_at
		 FROM retrieval_evaluations
		 WHERE query_id = $1
		 ORDER BY created_at ASC, evaluation_id, rank_position ASC`,
		queryID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list judgments: %w", err)
	}
	defer rows.Close()

	var records []EvaluationRecord
	for rows.Next() {
		var r EvaluationRecord
		var relevance int16
		var method string
		if err := rows.Scan(&r.ID, &r.EvaluationID, &r.Judgment.QueryID, &r.Judgment.ChunkID,
			&relevance, &r.Judgment.Confidence, &r.Judgment.Explanation, &method,
			&r.Judgment.RankPosition, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan judgment: %w", err)
		}
		r.Judgment.Relevance = int(relevance)
		r.Judgment.Method = types.Method(method)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list judgments: %w", err)
	}
	return records, nil
}

// SummaryFilters narrows Summary to one query or one judging method.
type SummaryFilters struct {
	QueryID int64
	Method  types.Method
}

// Summary aggregates persisted evaluations. Precision at k averages the
// relevance of rows ranked within the first k positions.
func (db *DB) Summary(ctx context.Context, filters SummaryFilters) (types.AggregateMetrics, error) {
	query := `SELECT COUNT(*),
		        COALESCE(AVG(relevance_score::float8), 0),
		        COALESCE(AVG(CASE WHEN rank_position <= 5 THEN relevance_score::float8 END), 0),
		        COALESCE(AVG(CASE WHEN rank_position <= 10 THEN relevance_score::float8 END), 0)
		FROM retrieval_evaluations WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.QueryID != 0 {
		query += fmt.Sprintf(" AND query_id = $%d", argNum)
		args = append(args, filters.QueryID)
		argNum++
	}
	if filters.Method != "" {
		query += fmt.Sprintf(" AND retrieval_method = $%d", argNum)
		args = append(args, string(filters.Method))
	}

	var m types.AggregateMetrics
	var total int64
	err := db.pool.QueryRow(ctx, query, args...).Scan(&total, &m.OverallPrecision, &m.PrecisionAt5, &m.PrecisionAt10)
	if err != nil {
		return types.AggregateMetrics{}, fmt.Errorf("failed to summarize evaluations: %w", err)
	}
	m.TotalJudgments = int(total)
	return m, nil
}
