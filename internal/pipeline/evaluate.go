package pipeline

import (
	"context"
	"fmt"

	"github.com/jonathan/retrieval-judge/internal/llm"
	"github.com/jonathan/retrieval-judge/internal/metrics"
	"github.com/jonathan/retrieval-judge/internal/ranking"
	"github.com/jonathan/retrieval-judge/internal/types"
)

func (p *Pipeline) llmJudge(client llm.Client) *ranking.LLMJudge {
	return ranking.NewLLMJudge(client, ranking.LLMJudgeOptions{
		Threshold:   p.opts.ModelThreshold,
		CallTimeout: p.opts.CallTimeout,
	})
}

func (p *Pipeline) heuristicJudge() *ranking.HeuristicJudge {
	return ranking.NewHeuristicJudge(p.opts.HeuristicThreshold)
}

// EvaluateRetrieval judges a single chunk. Heuristic judging needs no model
// session; model judging opens one and reports only configuration errors.
func (p *Pipeline) EvaluateRetrieval(ctx context.Context, query string, chunk types.Chunk, method types.Method) (types.Judgment, error) {
	if method == types.MethodHeuristic {
		return p.heuristicJudge().Judge(ctx, query, chunk), nil
	}

	var judgment types.Judgment
	err := p.withSession(ctx, func(client llm.Client) error {
		judgment = p.llmJudge(client).Judge(ctx, query, chunk)
		return nil
	})
	return judgment, err
}

// EvaluateRankedList judges every chunk and returns judgments in input order
// with rank positions 1..n.
func (p *Pipeline) EvaluateRankedList(ctx context.Context, query string, chunks []types.Chunk, method types.Method) ([]types.Judgment, error) {
	if method == types.MethodHeuristic {
		return ranking.NewListJudge(p.heuristicJudge(), 0).JudgeList(ctx, query, chunks), nil
	}

	var judgments []types.Judgment
	err := p.withSession(ctx, func(client llm.Client) error {
		judgments = ranking.NewListJudge(p.llmJudge(client), p.opts.MaxConcurrency).JudgeList(ctx, query, chunks)
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.emitProgress("judge", fmt.Sprintf("judged %d chunks with %s", len(judgments), method), nil)
	return judgments, nil
}

// SelectChunks keeps the maxChunks chunks the model rates most relevant.
// A non-positive maxChunks means no limit.
func (p *Pipeline) SelectChunks(ctx context.Context, query string, chunks []types.Chunk, maxChunks int) ([]types.Chunk, error) {
	if maxChunks <= 0 || len(chunks) <= maxChunks {
		return chunks, nil
	}
	var selected []types.Chunk
	err := p.withSession(ctx, func(client llm.Client) error {
		selected = ranking.SelectChunks(ctx, p.llmJudge(client), query, chunks, maxChunks, p.opts.MaxConcurrency)
		return nil
	})
	return selected, err
}

// MethodReport holds the judgments and metrics of one judging method.
type MethodReport struct {
	Method    types.Method           `json:"method"`
	Judgments []types.Judgment       `json:"judgments"`
	Metrics   types.AggregateMetrics `json:"metrics"`
}

// Comparison contrasts heuristic and model judging of the same retrieval.
type Comparison struct {
	Query     string        `json:"query"`
	Chunks    []types.Chunk `json:"chunks"`
	Heuristic MethodReport  `json:"heuristic"`
	Model     *MethodReport `json:"model,omitempty"`
}

// CompareRetrievalMethods retrieves chunks for query and judges them
// heuristically and, when includeModel is set, with the model.
func (p *Pipeline) CompareRetrievalMethods(ctx context.Context, query string, includeModel bool) (*Comparison, error) {
	if p.opts.Retriever == nil {
		return nil, ErrNoRetriever
	}
	chunks, err := p.opts.Retriever.Retrieve(ctx, query, p.opts.MaxResults)
	if err != nil {
		return nil, err
	}
	p.emitProgress("retrieve", fmt.Sprintf("retrieved %d chunks", len(chunks)), nil)

	heuristic, _ := p.EvaluateRankedList(ctx, query, chunks, types.MethodHeuristic)
	cmp := &Comparison{
		Query:     query,
		Chunks:    chunks,
		Heuristic: report(types.MethodHeuristic, heuristic),
	}

	if includeModel {
		model, err := p.EvaluateRankedList(ctx, query, chunks, types.MethodModel)
		if err != nil {
			return nil, err
		}
		r := report(types.MethodModel, model)
		cmp.Model = &r
	}
	return cmp, nil
}

func report(method types.Method, judgments []types.Judgment) MethodReport {
	return MethodReport{Method: method, Judgments: judgments, Metrics: metrics.Aggregate(judgments)}
}
