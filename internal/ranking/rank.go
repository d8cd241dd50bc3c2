package ranking

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/retrieval-judge/internal/types"
)

// ListJudge applies a Judge to an ordered list of chunks.
type ListJudge struct {
	judge          Judge
	maxConcurrency int
}

// NewListJudge creates a ListJudge. maxConcurrency <= 0 launches one task per
// chunk with no ceiling.
func NewListJudge(judge Judge, maxConcurrency int) *ListJudge {
	return &ListJudge{judge: judge, maxConcurrency: maxConcurrency}
}

// Method reports the strategy of the underlying judge.
func (l *ListJudge) Method() types.Method {
	return l.judge.Method()
}

// JudgeList returns one Judgment per chunk with RankPosition i+1 for chunks[i].
// Heuristic judging runs sequentially. Model judging fans out one task per chunk
// and waits for all of them; results are placed by submission index, so the
// output order never depends on completion order. A failing task degrades on
// its own and never affects its siblings.
func (l *ListJudge) JudgeList(ctx context.Context, query string, chunks []types.Chunk) []types.Judgment {
	judgments := make([]types.Judgment, len(chunks))

	if l.judge.Method() != types.MethodModel {
		for i, chunk := range chunks {
			judgments[i] = l.judge.Judge(ctx, query, chunk)
			judgments[i].RankPosition = i + 1
		}
		return judgments
	}

	var g errgroup.Group
	if l.maxConcurrency > 0 {
		g.SetLimit(l.maxConcurrency)
	}
	for i, chunk := range chunks {
		g.Go(func() error {
			j := l.judge.Judge(ctx, query, chunk)
			j.RankPosition = i + 1
			judgments[i] = j
			return nil
		})
	}
	_ = g.Wait() // tasks never return errors

	return judgments
}

// WithQueryID stamps a query identifier onto a judgment list in place.
func WithQueryID(judgments []types.Judgment, queryID int64) []types.Judgment {
	for i := range judgments {
		judgments[i].QueryID = queryID
	}
	return judgments
}
