package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/retrieval-judge/internal/answering"
	"github.com/jonathan/retrieval-judge/internal/db"
	"github.com/jonathan/retrieval-judge/internal/llm"
	"github.com/jonathan/retrieval-judge/internal/llm/llmtest"
	"github.com/jonathan/retrieval-judge/internal/types"
)

// scripted answers each prompt kind differently, keyed on the rendered template text.
func scripted() *llmtest.MockClient {
	return &llmtest.MockClient{
		GenerateContentFunc: func(_ context.Context, req llm.Request) (string, error) {
			switch {
			case strings.Contains(req.Prompt, "decompose the following question"):
				return "1. Which crops were studied?\n2. What yield change was measured?", nil
			case strings.Contains(req.Prompt, "Answer this specific question"):
				return "sub-answer", nil
			case strings.Contains(req.Prompt, "Answer the following question"):
				return "  Yields rose 12% [doc1].  ", nil
			case strings.Contains(req.Prompt, "Proposed answer"):
				return "Yes", nil
			default:
				return "Yes", nil
			}
		},
	}
}

func factoryFor(client llm.Client, err error) (ClientFactory, *int) {
	opened := 0
	return func(_ context.Context) (llm.Client, error) {
		opened++
		if err != nil {
			return nil, err
		}
		return client, nil
	}, &opened
}

func chunksOfLength(total int) []types.Chunk {
	return []types.Chunk{{ID: 1, TextContent: strings.Repeat("x", total), Similarity: 0.8}}
}

type fakeStore struct {
	mu      sync.Mutex
	batches map[int64][][]types.Judgment
	err     error
}

func (s *fakeStore) Persist(_ context.Context, queryID int64, judgments []types.Judgment) (uuid.UUID, error) {
	if s.err != nil {
		return uuid.Nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batches == nil {
		s.batches = map[int64][][]types.Judgment{}
	}
	s.batches[queryID] = append(s.batches[queryID], judgments)
	return uuid.New(), nil
}

type fakeRetriever struct {
	chunks  []types.Chunk
	failFor string
	gotK    int
}

func (r *fakeRetriever) Retrieve(_ context.Context, query string, k int) ([]types.Chunk, error) {
	r.gotK = k
	if query == r.failFor {
		return nil, errors.New("embedding service unavailable")
	}
	return r.chunks, nil
}

type fakeQueries []db.CachedQuery

func (q fakeQueries) RecentQueries(_ context.Context, limit int) ([]db.CachedQuery, error) {
	if limit < len(q) {
		return q[:limit], nil
	}
	return q, nil
}

func TestAnswerGeneration_ShortContextSkipsDecomposition(t *testing.T) {
	client := scripted()
	primary, opened := factoryFor(client, nil)
	p := New(Options{Primary: primary})

	res, err := p.AnswerGeneration(context.Background(), "What changed?", chunksOfLength(200), true, false)
	require.NoError(t, err)

	assert.NotNil(t, res.Subquestions)
	assert.Empty(t, res.Subquestions)
	assert.Equal(t, "Yields rose 12% [doc1].", res.Answer)
	assert.True(t, res.Verification.Supported)
	assert.Equal(t, types.ProviderPrimary, res.Verification.Provider)

	// synthesis + verification only
	assert.Equal(t, 2, client.Calls())
	assert.Equal(t, 1, *opened)
	assert.Equal(t, 1, client.Closed())
}

func TestAnswerGeneration_Amplified(t *testing.T) {
	client := scripted()
	primary, _ := factoryFor(client, nil)
	p := New(Options{Primary: primary})

	res, err := p.AnswerGeneration(context.Background(), "What changed?", chunksOfLength(800), true, false)
	require.NoError(t, err)

	require.Len(t, res.Subquestions, 2)
	assert.Equal(t, "Which crops were studied?", res.Subquestions[0].Question)
	assert.Equal(t, "What yield change was measured?", res.Subquestions[1].Question)
	assert.Equal(t, "sub-answer", res.Subquestions[0].Answer)

	var synthesis llm.Request
	for _, req := range client.Requests() {
		if strings.Contains(req.Prompt, "Answer the following question") {
			synthesis = req
		}
	}
	assert.Contains(t, synthesis.Prompt, "Decomposed Analysis:")
	assert.Equal(t, 1, client.Closed())
}

func TestAnswerGeneration_AmplificationOff(t *testing.T) {
	client := scripted()
	primary, _ := factoryFor(client, nil)

	res, err := New(Options{Primary: primary}).AnswerGeneration(context.Background(), "q", chunksOfLength(800), false, false)
	require.NoError(t, err)
	assert.Empty(t, res.Subquestions)
	assert.Equal(t, 2, client.Calls())
}

func TestAnswerGeneration_SynthesisFailureClosesSession(t *testing.T) {
	client := &llmtest.MockClient{
		GenerateContentFunc: func(_ context.Context, _ llm.Request) (string, error) {
			return "", errors.New("quota exceeded")
		},
	}
	primary, _ := factoryFor(client, nil)

	res, err := New(Options{Primary: primary}).AnswerGeneration(context.Background(), "q", chunksOfLength(100), true, false)
	require.Error(t, err)
	assert.Nil(t, res)
	var synthErr *answering.SynthesisError
	assert.ErrorAs(t, err, &synthErr)
	assert.Equal(t, 1, client.Closed())
}

func TestAnswerGeneration_AlternateFallsBackToPrimary(t *testing.T) {
	client := scripted()
	primary, _ := factoryFor(client, nil)
	alternate, altOpened := factoryFor(nil, llm.ErrMissingAPIKey)

	res, err := New(Options{Primary: primary, Alternate: alternate}).
		AnswerGeneration(context.Background(), "q", chunksOfLength(100), false, true)
	require.NoError(t, err)
	assert.Equal(t, 1, *altOpened)
	assert.Equal(t, types.ProviderPrimary, res.Verification.Provider)
}

func TestAnswerGeneration_AlternateUsed(t *testing.T) {
	client := scripted()
	alt := &llmtest.MockClient{
		ProviderName: llm.ProviderAnthropic,
		GenerateContentFunc: func(_ context.Context, _ llm.Request) (string, error) {
			return "No", nil
		},
	}
	primary, _ := factoryFor(client, nil)
	alternate, _ := factoryFor(alt, nil)

	res, err := New(Options{Primary: primary, Alternate: alternate}).
		AnswerGeneration(context.Background(), "q", chunksOfLength(100), false, true)
	require.NoError(t, err)
	assert.Equal(t, types.ProviderAlternate, res.Verification.Provider)
	assert.False(t, res.Verification.Supported)
	assert.Equal(t, 1, alt.Closed())
	assert.Equal(t, 1, client.Closed())
}

func TestAnswerGeneration_ConfigurationError(t *testing.T) {
	primary, _ := factoryFor(nil, llm.ErrMissingAPIKey)

	_, err := New(Options{Primary: primary}).AnswerGeneration(context.Background(), "q", nil, false, false)
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)

	_, err = New(Options{}).AnswerGeneration(context.Background(), "q", nil, false, false)
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
}

func TestEvaluateRetrieval(t *testing.T) {
	chunk := types.Chunk{ID: 4, TextContent: "text", Similarity: 0.35}

	// heuristic never opens a session
	p := New(Options{HeuristicThreshold: 0.35})
	j, err := p.EvaluateRetrieval(context.Background(), "q", chunk, types.MethodHeuristic)
	require.NoError(t, err)
	assert.Equal(t, 1, j.Relevance)
	assert.Nil(t, j.Confidence)

	client := scripted()
	primary, _ := factoryFor(client, nil)
	j, err = New(Options{Primary: primary}).EvaluateRetrieval(context.Background(), "q", chunk, types.MethodModel)
	require.NoError(t, err)
	require.NotNil(t, j.Confidence)
	assert.Equal(t, 0.9, *j.Confidence)
	assert.Equal(t, 1, client.Closed())
}

func TestEvaluateRankedList_Model(t *testing.T) {
	client := &llmtest.MockClient{
		GenerateContentFunc: func(_ context.Context, req llm.Request) (string, error) {
			if strings.Contains(req.Prompt, "chunk-2") {
				return "", errors.New("timeout")
			}
			return "No", nil
		},
	}
	primary, _ := factoryFor(client, nil)
	chunks := []types.Chunk{{ID: 1, TextContent: "chunk-1"}, {ID: 2, TextContent: "chunk-2"}, {ID: 3, TextContent: "chunk-3"}}

	judgments, err := New(Options{Primary: primary}).EvaluateRankedList(context.Background(), "q", chunks, types.MethodModel)
	require.NoError(t, err)
	require.Len(t, judgments, 3)
	for i, j := range judgments {
		assert.Equal(t, i+1, j.RankPosition)
		assert.Equal(t, chunks[i].ID, j.ChunkID)
	}
	assert.True(t, judgments[1].Degraded)
	assert.Equal(t, 1, judgments[1].Relevance)
	assert.Equal(t, 0, judgments[0].Relevance)
	assert.Equal(t, 1, client.Closed())
}

func TestSelectChunks(t *testing.T) {
	client := &llmtest.MockClient{
		GenerateContentFunc: func(_ context.Context, req llm.Request) (string, error) {
			if strings.Contains(req.Prompt, "chunk-3") {
				return "Yes", nil
			}
			return "No", nil
		},
	}
	primary, opened := factoryFor(client, nil)
	p := New(Options{Primary: primary})
	chunks := []types.Chunk{{ID: 1, TextContent: "chunk-1"}, {ID: 2, TextContent: "chunk-2"}, {ID: 3, TextContent: "chunk-3"}}

	unlimited, err := p.SelectChunks(context.Background(), "q", chunks, 0)
	require.NoError(t, err)
	assert.Equal(t, chunks, unlimited)
	assert.Equal(t, 0, *opened)

	selected, err := p.SelectChunks(context.Background(), "q", chunks, 1)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, int64(3), selected[0].ID)
	assert.Equal(t, 1, client.Closed())
}

func TestPersistRetrievalEvaluations(t *testing.T) {
	store := &fakeStore{}
	p := New(Options{Store: store})
	judgments := []types.Judgment{{ChunkID: 1, Method: types.MethodHeuristic, RankPosition: 1}}

	_, err := p.PersistRetrievalEvaluations(context.Background(), 7, judgments)
	require.NoError(t, err)
	require.Len(t, store.batches[7], 1)
	assert.Equal(t, int64(7), store.batches[7][0][0].QueryID)
	// caller's slice is not mutated
	assert.Equal(t, int64(0), judgments[0].QueryID)

	_, err = New(Options{}).PersistRetrievalEvaluations(context.Background(), 7, judgments)
	assert.ErrorIs(t, err, ErrNoStore)

	failing := New(Options{Store: &fakeStore{err: errors.New("deadlock detected")}})
	_, err = failing.PersistRetrievalEvaluations(context.Background(), 7, judgments)
	assert.ErrorContains(t, err, "deadlock detected")
}

func TestCompareRetrievalMethods(t *testing.T) {
	retriever := &fakeRetriever{chunks: []types.Chunk{
		{ID: 1, TextContent: "a", Similarity: 0.9},
		{ID: 2, TextContent: "b", Similarity: 0.1},
	}}
	primary, _ := factoryFor(scripted(), nil)
	p := New(Options{Primary: primary, Retriever: retriever, MaxResults: 5})

	cmp, err := p.CompareRetrievalMethods(context.Background(), "q", true)
	require.NoError(t, err)
	assert.Equal(t, 5, retriever.gotK)
	assert.Equal(t, 0.5, cmp.Heuristic.Metrics.PrecisionAt5)
	require.NotNil(t, cmp.Model)
	assert.Equal(t, 1.0, cmp.Model.Metrics.PrecisionAt5)

	cmp, err = p.CompareRetrievalMethods(context.Background(), "q", false)
	require.NoError(t, err)
	assert.Nil(t, cmp.Model)

	_, err = New(Options{}).CompareRetrievalMethods(context.Background(), "q", false)
	assert.ErrorIs(t, err, ErrNoRetriever)
}

func TestBackfill(t *testing.T) {
	store := &fakeStore{}
	retriever := &fakeRetriever{
		chunks:  []types.Chunk{{ID: 1, TextContent: "a", Similarity: 0.9}, {ID: 2, TextContent: "b", Similarity: 0.2}},
		failFor: "broken",
	}
	queries := fakeQueries{
		{ID: 3, QueryText: "newest"},
		{ID: 2, QueryText: "broken"},
		{ID: 1, QueryText: "oldest"},
	}
	primary, _ := factoryFor(scripted(), nil)
	p := New(Options{Primary: primary, Store: store, Retriever: retriever, Queries: queries})

	rep, err := p.Backfill(context.Background(), BackfillOptions{Limit: 3, IncludeModel: true})
	require.NoError(t, err)
	assert.Equal(t, BackfillReport{Queries: 3, Batches: 4, Judgments: 8, Skipped: 1}, rep)
	assert.Len(t, store.batches[3], 2)
	assert.Empty(t, store.batches[2])
	assert.Equal(t, types.MethodHeuristic, store.batches[1][0][0].Method)
	assert.Equal(t, types.MethodModel, store.batches[1][1][0].Method)
}

func TestBackfill_PersistFailureStops(t *testing.T) {
	p := New(Options{
		Store:     &fakeStore{err: errors.New("disk full")},
		Retriever: &fakeRetriever{chunks: []types.Chunk{{ID: 1}}},
		Queries:   fakeQueries{{ID: 1, QueryText: "q"}, {ID: 2, QueryText: "r"}},
	})

	rep, err := p.Backfill(context.Background(), BackfillOptions{Limit: 5})
	require.Error(t, err)
	assert.Equal(t, 1, rep.Queries)
	assert.Equal(t, 0, rep.Batches)
}

func TestProgressEvents(t *testing.T) {
	var steps []string
	primary, _ := factoryFor(scripted(), nil)
	p := New(Options{Primary: primary, OnProgress: func(e ProgressEvent) { steps = append(steps, e.Step) }})

	_, err := p.AnswerGeneration(context.Background(), "q", chunksOfLength(800), true, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"decompose", "synthesize", "verify"}, steps)
}

func TestAnswerGeneration_AlternateRequestedWithoutProvider(t *testing.T) {
	var events []ProgressEvent
	client := scripted()
	primary, _ := factoryFor(client, nil)
	p := New(Options{Primary: primary, OnProgress: func(e ProgressEvent) { events = append(events, e) }})

	res, err := p.AnswerGeneration(context.Background(), "q", chunksOfLength(100), false, true)
	require.NoError(t, err)
	assert.Equal(t, types.ProviderPrimary, res.Verification.Provider)

	require.Len(t, events, 3)
	assert.Equal(t, "verify", events[1].Step)
	assert.Contains(t, events[1].Message, "no alternate provider")
	assert.Equal(t, 2, client.Calls())
}
