package ranking

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jonathan/retrieval-judge/internal/llm"
	"github.com/jonathan/retrieval-judge/internal/prompts"
	"github.com/jonathan/retrieval-judge/internal/types"
)

const (
	classifyMaxTokens   = 10
	classifyTemperature = 0.1
)

// LLMJudgeOptions configures an LLMJudge.
type LLMJudgeOptions struct {
	// Threshold is the confidence at or above which a chunk is relevant; non-positive uses DefaultConfidenceThreshold
	Threshold float64
	// CallTimeout bounds each classification request; zero means no extra bound
	CallTimeout time.Duration
}

// LLMJudge classifies chunk relevance with a single yes/no completion per chunk.
type LLMJudge struct {
	client      llm.Client
	threshold   float64
	callTimeout time.Duration
}

// NewLLMJudge creates an LLMJudge backed by client.
func NewLLMJudge(client llm.Client, opts LLMJudgeOptions) *LLMJudge {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return &LLMJudge{
		client:      client,
		threshold:   threshold,
		callTimeout: opts.CallTimeout,
	}
}

// ClassifyChunk asks the model whether chunk could help answer query.
// "Yes" maps to 0.9 and "No" to 0.1; a failed or unparseable call yields a
// degraded neutral 0.5 instead of an error.
func (j *LLMJudge) ClassifyChunk(ctx context.Context, query string, chunk types.Chunk) types.Score {
	prompt, err := prompts.Render("classify-chunk", map[string]string{
		"ChunkText": chunk.TextContent,
		"Question":  query,
	})
	if err != nil {
		return types.DegradedScore(err.Error())
	}

	if j.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.callTimeout)
		defer cancel()
	}

	resp, err := j.client.GenerateContent(ctx, llm.Request{
		System:      prompts.MustGet(prompts.JudgingFile, "classify-chunk-system"),
		Prompt:      prompt,
		Tier:        llm.TierLite,
		MaxTokens:   classifyMaxTokens,
		Temperature: classifyTemperature,
	})
	if err != nil {
		errType := llm.ClassifyError(err)
		log.Printf("[WARN] relevance classification for chunk %d failed (%s): %v", chunk.ID, errType, err)
		return types.DegradedScore(string(errType))
	}

	yes, ok := llm.ParseYesNo(resp)
	if !ok {
		log.Printf("[WARN] relevance classification for chunk %d unparseable: %q", chunk.ID, resp)
		return types.DegradedScore("unparseable response")
	}
	return types.YesNoScore(yes)
}

// Judge implements Judge.
func (j *LLMJudge) Judge(ctx context.Context, query string, chunk types.Chunk) types.Judgment {
	score := j.ClassifyChunk(ctx, query, chunk)
	confidence := score.Value
	return types.Judgment{
		ChunkID:     chunk.ID,
		Relevance:   relevanceFor(confidence, j.threshold),
		Confidence:  &confidence,
		Explanation: fmt.Sprintf("llm_score=%.3f threshold=%g", confidence, j.threshold),
		Method:      types.MethodModel,
		Degraded:    score.Degraded,
	}
}

// Method returns MethodModel.
func (j *LLMJudge) Method() types.Method {
	return types.MethodModel
}
