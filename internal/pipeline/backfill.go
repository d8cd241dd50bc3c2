package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jonathan/retrieval-judge/internal/types"
)

// BackfillOptions controls Backfill.
type BackfillOptions struct {
	// Limit is the number of most recent cached queries to evaluate
	Limit int
	// IncludeModel also persists model judgments for each query
	IncludeModel bool
}

// BackfillReport summarizes a backfill run.
type BackfillReport struct {
	Queries   int `json:"queries"`
	Batches   int `json:"batches"`
	Judgments int `json:"judgments"`
	Skipped   int `json:"skipped"`
}

// Backfill re-runs retrieval for recent cached queries and persists their
// judgments. A query whose retrieval fails is skipped; a persistence failure
// stops the run.
func (p *Pipeline) Backfill(ctx context.Context, opts BackfillOptions) (BackfillReport, error) {
	var rep BackfillReport
	if p.opts.Queries == nil {
		return rep, errors.New("pipeline: no query source configured")
	}
	if p.opts.Retriever == nil {
		return rep, ErrNoRetriever
	}
	if p.opts.Store == nil {
		return rep, ErrNoStore
	}

	queries, err := p.opts.Queries.RecentQueries(ctx, opts.Limit)
	if err != nil {
		return rep, fmt.Errorf("failed to load recent queries: %w", err)
	}

	methods := []types.Method{types.MethodHeuristic}
	if opts.IncludeModel {
		methods = append(methods, types.MethodModel)
	}

	for _, q := range queries {
		rep.Queries++
		chunks, err := p.opts.Retriever.Retrieve(ctx, q.QueryText, p.opts.MaxResults)
		if err != nil {
			log.Printf("[WARN] backfill: skipping query %d: %v", q.ID, err)
			rep.Skipped++
			continue
		}

		for _, method := range methods {
			judgments, err := p.EvaluateRankedList(ctx, q.QueryText, chunks, method)
			if err != nil {
				return rep, err
			}
			if _, err := p.PersistRetrievalEvaluations(ctx, q.ID, judgments); err != nil {
				return rep, err
			}
			rep.Batches++
			rep.Judgments += len(judgments)
		}
		p.emitProgress("backfill", fmt.Sprintf("evaluated query %d", q.ID), nil)
	}
	return rep, nil
}
