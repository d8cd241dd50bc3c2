package answering

import (
	"context"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/retrieval-judge/internal/llm"
	"github.com/jonathan/retrieval-judge/internal/prompts"
	"github.com/jonathan/retrieval-judge/internal/types"
)

// FallbackAnswer replaces the answer of a sub-question whose completion failed.
const FallbackAnswer = "Unable to answer based on available context."

const (
	subanswerMaxTokens   = 200
	subanswerTemperature = 0.5
)

// Answerer answers sub-questions concurrently against a shared context.
type Answerer struct {
	client         llm.Client
	maxConcurrency int
	callTimeout    time.Duration
}

// NewAnswerer creates an Answerer. maxConcurrency <= 0 starts one request per
// sub-question with no ceiling.
func NewAnswerer(client llm.Client, maxConcurrency int, callTimeout time.Duration) *Answerer {
	return &Answerer{client: client, maxConcurrency: maxConcurrency, callTimeout: callTimeout}
}

// AnswerAll returns exactly one record per sub-question, in input order.
// A failed request yields FallbackAnswer for that entry only.
func (a *Answerer) AnswerAll(ctx context.Context, subquestions []string, docContext string) []types.SubquestionRecord {
	records := make([]types.SubquestionRecord, len(subquestions))

	var g errgroup.Group
	if a.maxConcurrency > 0 {
		g.SetLimit(a.maxConcurrency)
	}
	for i, q := range subquestions {
		g.Go(func() error {
			records[i] = types.SubquestionRecord{
				Question: q,
				Answer:   a.answer(ctx, q, docContext),
			}
			return nil
		})
	}
	_ = g.Wait() // tasks never return errors

	return records
}

func (a *Answerer) answer(ctx context.Context, question, docContext string) string {
	prompt, err := prompts.Render("answer-subquestion", map[string]string{
		"Context":  docContext,
		"Question": question,
	})
	if err != nil {
		log.Printf("[WARN] sub-question prompt: %v", err)
		return FallbackAnswer
	}

	if a.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.callTimeout)
		defer cancel()
	}

	resp, err := a.client.GenerateContent(ctx, llm.Request{
		System:      prompts.MustGet(prompts.JudgingFile, "answer-subquestion-system"),
		Prompt:      prompt,
		Tier:        llm.TierAdvanced,
		MaxTokens:   subanswerMaxTokens,
		Temperature: subanswerTemperature,
	})
	if err != nil {
		log.Printf("[WARN] sub-question %q failed (%s): %v", question, llm.ClassifyError(err), err)
		return FallbackAnswer
	}

	answer := strings.TrimSpace(resp)
	if answer == "" {
		return FallbackAnswer
	}
	return answer
}
