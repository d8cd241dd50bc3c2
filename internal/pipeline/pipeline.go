// Package pipeline orchestrates relevance judging, answer generation,
// verification and persistence for a query.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/retrieval-judge/internal/db"
	"github.com/jonathan/retrieval-judge/internal/llm"
	"github.com/jonathan/retrieval-judge/internal/types"
)

// ErrNoStore is returned by operations that persist when no store is configured.
var ErrNoStore = errors.New("pipeline: no judgment store configured")

// ErrNoRetriever is returned by operations that retrieve when no retriever is configured.
var ErrNoRetriever = errors.New("pipeline: no retriever configured")

// ClientFactory opens a completion client. Each pipeline invocation that
// needs the model opens exactly one client and closes it before returning.
type ClientFactory func(ctx context.Context) (llm.Client, error)

// NewClientFactory returns a factory for provider using apiKey. A missing key
// is reported when the factory is called.
func NewClientFactory(provider llm.Provider, apiKey string) ClientFactory {
	return func(ctx context.Context) (llm.Client, error) {
		return llm.NewClient(ctx, llm.DefaultConfigFor(provider), apiKey)
	}
}

// JudgmentPersister writes a batch of judgments for one query.
type JudgmentPersister interface {
	Persist(ctx context.Context, queryID int64, judgments []types.Judgment) (uuid.UUID, error)
}

// ChunkRetriever returns candidate chunks for a query, most similar first.
type ChunkRetriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]types.Chunk, error)
}

// QuerySource lists previously asked queries.
type QuerySource interface {
	RecentQueries(ctx context.Context, limit int) ([]db.CachedQuery, error)
}

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Options configures a Pipeline.
type Options struct {
	// Primary opens the completion client used for judging, answering and verification
	Primary ClientFactory
	// Alternate optionally opens the alternate verification provider
	Alternate ClientFactory

	Store     JudgmentPersister
	Retriever ChunkRetriever
	Queries   QuerySource

	HeuristicThreshold      float64
	ModelThreshold          float64
	MaxConcurrency          int
	CallTimeout             time.Duration
	SubstantialContextChars int
	MaxSubquestions         int
	MaxResults              int

	OnProgress ProgressCallback
}

// Pipeline exposes the evaluation and answering operations.
type Pipeline struct {
	opts Options
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 10
	}
	return &Pipeline{opts: opts}
}

// emitProgress calls the progress callback if configured
func (p *Pipeline) emitProgress(step, message string, content any) {
	if p.opts.OnProgress != nil {
		p.opts.OnProgress(ProgressEvent{Step: step, Message: message, Content: content})
	}
}

// withSession opens the primary client, runs fn and always closes the client,
// including when fn returns an error or panics.
func (p *Pipeline) withSession(ctx context.Context, fn func(client llm.Client) error) error {
	if p.opts.Primary == nil {
		return fmt.Errorf("%w: no primary provider configured", llm.ErrMissingAPIKey)
	}
	client, err := p.opts.Primary(ctx)
	if err != nil {
		return fmt.Errorf("failed to open completion client: %w", err)
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			log.Printf("[WARN] closing completion client: %v", cerr)
		}
	}()
	return fn(client)
}

// PersistRetrievalEvaluations stamps judgments with queryID and writes them
// as one batch. Persistence failures are returned to the caller.
func (p *Pipeline) PersistRetrievalEvaluations(ctx context.Context, queryID int64, judgments []types.Judgment) (uuid.UUID, error) {
	if p.opts.Store == nil {
		return uuid.Nil, ErrNoStore
	}
	stamped := make([]types.Judgment, len(judgments))
	copy(stamped, judgments)
	for i := range stamped {
		stamped[i].QueryID = queryID
	}

	id, err := p.opts.Store.Persist(ctx, queryID, stamped)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to persist retrieval evaluations for query %d: %w", queryID, err)
	}
	p.emitProgress("persist", fmt.Sprintf("persisted %d judgments for query %d", len(stamped), queryID), id)
	return id, nil
}
