// Package types provides the data model shared by the judging, answering and persistence packages.
package types

import (
	"github.com/go-playground/validator/v10"
)

// Method identifies the strategy that produced a judgment.
type Method string

const (
	// MethodHeuristic judges by thresholding the retrieval similarity score
	MethodHeuristic Method = "heuristic"
	// MethodModel judges with a language-model binary classifier
	MethodModel Method = "model"
)

// Judgment is a relevance decision for one (query, chunk) pair at a given rank.
// Judgments are append-only; they are never mutated after creation.
type Judgment struct {
	QueryID      int64    `json:"query_id,omitempty"`
	ChunkID      int64    `json:"chunk_id" validate:"required"`
	Relevance    int      `json:"relevance_score" validate:"oneof=0 1"`
	Confidence   *float64 `json:"llm_score,omitempty" validate:"omitempty,gte=0,lte=1"`
	Explanation  string   `json:"explanation"`
	Method       Method   `json:"retrieval_method" validate:"required,oneof=heuristic model"`
	RankPosition int      `json:"rank_position" validate:"gte=1"`
	// Degraded is set when the confidence is a neutral fallback for a failed remote call.
	Degraded bool `json:"degraded,omitempty"`
}

// IsRelevant reports whether the binary relevance is 1.
func (j Judgment) IsRelevant() bool {
	return j.Relevance == 1
}

// Validate checks the judgment is well-formed for persistence.
func (j *Judgment) Validate() error {
	validate := validator.New()
	return validate.Struct(j)
}

// AggregateMetrics summarizes ranking quality over one query's judgments.
// It is derived and never stored.
type AggregateMetrics struct {
	PrecisionAt5     float64 `json:"precision@5"`
	PrecisionAt10    float64 `json:"precision@10"`
	OverallPrecision float64 `json:"overall_precision"`
	TotalJudgments   int     `json:"total_judgments"`
}
