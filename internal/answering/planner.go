package answering

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/jonathan/retrieval-judge/internal/llm"
	"github.com/jonathan/retrieval-judge/internal/prompts"
)

const (
	// DefaultMaxSubquestions caps how many sub-questions a decomposition yields
	DefaultMaxSubquestions = 4

	decomposeMaxTokens   = 300
	decomposeTemperature = 0.7
)

// Planner decomposes a question into standalone sub-questions.
type Planner struct {
	client      llm.Client
	maxResults  int
	callTimeout time.Duration
}

// NewPlanner creates a Planner. maxResults <= 0 uses DefaultMaxSubquestions.
func NewPlanner(client llm.Client, maxResults int, callTimeout time.Duration) *Planner {
	if maxResults <= 0 {
		maxResults = DefaultMaxSubquestions
	}
	return &Planner{client: client, maxResults: maxResults, callTimeout: callTimeout}
}

// Decompose asks the model for sub-questions of question given context.
// Decomposition is best effort: any failure yields an empty list.
func (p *Planner) Decompose(ctx context.Context, question, docContext string) []string {
	prompt, err := prompts.Render("decompose-question", map[string]string{
		"Context":  docContext,
		"Question": question,
	})
	if err != nil {
		log.Printf("[WARN] decomposition prompt: %v", err)
		return []string{}
	}

	if p.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.callTimeout)
		defer cancel()
	}

	resp, err := p.client.GenerateContent(ctx, llm.Request{
		System:      prompts.MustGet(prompts.JudgingFile, "decompose-question-system"),
		Prompt:      prompt,
		Tier:        llm.TierLite,
		MaxTokens:   decomposeMaxTokens,
		Temperature: decomposeTemperature,
	})
	if err != nil {
		log.Printf("[WARN] question decomposition failed (%s): %v", llm.ClassifyError(err), err)
		return []string{}
	}

	return ParseSubquestions(resp, p.maxResults)
}

// ParseSubquestions extracts at most max sub-questions from a model response,
// one per line. Enumeration markers are stripped; blank lines and lines that
// restate the instruction (such as a "Subquestions:" header) are dropped.
func ParseSubquestions(text string, max int) []string {
	out := []string{}
	for _, line := range strings.Split(text, "\n") {
		if len(out) >= max {
			break
		}
		q := strings.TrimSpace(llm.CleanListMarker(line))
		if q == "" || isInstructionEcho(q) {
			continue
		}
		out = append(out, q)
	}
	return out
}

var echoPrefixes = []string{"subquestion", "sub-question", "sub question", "main question"}

func isInstructionEcho(line string) bool {
	lower := strings.ToLower(line)
	if strings.HasSuffix(lower, ":") {
		return true
	}
	for _, prefix := range echoPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
