package answering

import (
	"context"
	"strings"
	"time"

	"github.com/jonathan/retrieval-judge/internal/llm"
	"github.com/jonathan/retrieval-judge/internal/prompts"
	"github.com/jonathan/retrieval-judge/internal/types"
)

const (
	synthesisMaxTokens   = 600
	synthesisTemperature = 0.6
)

// Synthesizer produces the final answer with a single completion request.
type Synthesizer struct {
	client      llm.Client
	callTimeout time.Duration
}

// NewSynthesizer creates a Synthesizer backed by client.
func NewSynthesizer(client llm.Client, callTimeout time.Duration) *Synthesizer {
	return &Synthesizer{client: client, callTimeout: callTimeout}
}

// Synthesize answers question from chunks, folding in any sub-question
// records. Citation markers in the response are left untouched.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, chunks []types.Chunk, records []types.SubquestionRecord) (string, error) {
	prompt, err := prompts.Render("synthesize-answer", map[string]string{
		"Context":      BuildContext(chunks),
		"Subquestions": formatSubquestions(records),
		"Question":     question,
	})
	if err != nil {
		return "", &SynthesisError{Message: "failed to render prompt", Cause: err}
	}

	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}

	resp, err := s.client.GenerateContent(ctx, llm.Request{
		System:      prompts.MustGet(prompts.JudgingFile, "synthesize-answer-system"),
		Prompt:      prompt,
		Tier:        llm.TierAdvanced,
		MaxTokens:   synthesisMaxTokens,
		Temperature: synthesisTemperature,
	})
	if err != nil {
		return "", &SynthesisError{Message: "completion request failed", Cause: err}
	}

	return strings.TrimSpace(resp), nil
}
