// Package verification checks whether a synthesized answer is supported by
// the context it was generated from.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jonathan/retrieval-judge/internal/llm"
	"github.com/jonathan/retrieval-judge/internal/prompts"
	"github.com/jonathan/retrieval-judge/internal/types"
)

// ErrNoPrimaryProvider is returned when a Verifier has no primary client.
var ErrNoPrimaryProvider = errors.New("verification: no primary provider configured")

const (
	verifyMaxTokens   = 10
	verifyTemperature = 0.1
)

// AlternateFactory opens a client for the alternate provider. It is called
// lazily, only when alternate verification is requested.
type AlternateFactory func(ctx context.Context) (llm.Client, error)

// Options configures a Verifier.
type Options struct {
	// Alternate opens the alternate provider; nil means none is configured
	Alternate AlternateFactory
	// CallTimeout bounds each verification request; zero means no extra bound
	CallTimeout time.Duration
}

// Verifier judges answers with a primary client and an optional alternate.
type Verifier struct {
	primary     llm.Client
	alternate   AlternateFactory
	callTimeout time.Duration
}

// NewVerifier creates a Verifier.
func NewVerifier(primary llm.Client, opts Options) *Verifier {
	return &Verifier{
		primary:     primary,
		alternate:   opts.Alternate,
		callTimeout: opts.CallTimeout,
	}
}

// HasAlternate reports whether an alternate provider is configured.
func (v *Verifier) HasAlternate() bool {
	return v.alternate != nil
}

// Verify scores answer against docContext. When useAlternate is set and an
// alternate provider is configured it is tried first; any alternate failure,
// including failure to open the client, falls back to the primary provider
// without being reported. A primary failure yields a degraded neutral score.
func (v *Verifier) Verify(ctx context.Context, question, answer, docContext string, useAlternate bool) (types.VerificationResult, error) {
	if v.primary == nil {
		return types.VerificationResult{}, ErrNoPrimaryProvider
	}

	prompt, err := prompts.Render("verify-answer", map[string]string{
		"Question": question,
		"Context":  docContext,
		"Answer":   answer,
	})
	if err != nil {
		return types.VerificationResult{}, fmt.Errorf("failed to render verification prompt: %w", err)
	}

	if useAlternate && v.alternate != nil {
		if score, ok := v.tryAlternate(ctx, prompt); ok {
			return types.NewVerificationResult(score, types.ProviderAlternate), nil
		}
	}

	score, err := v.ask(ctx, v.primary, prompt)
	if err != nil {
		log.Printf("[WARN] answer verification failed (%s): %v", llm.ClassifyError(err), err)
		score = types.DegradedScore(string(llm.ClassifyError(err)))
	}
	return types.NewVerificationResult(score, types.ProviderPrimary), nil
}

func (v *Verifier) tryAlternate(ctx context.Context, prompt string) (types.Score, bool) {
	client, err := v.alternate(ctx)
	if err != nil {
		log.Printf("[WARN] alternate verifier unavailable, using primary: %v", err)
		return types.Score{}, false
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			log.Printf("[WARN] closing alternate verifier: %v", cerr)
		}
	}()

	score, err := v.ask(ctx, client, prompt)
	if err != nil {
		log.Printf("[WARN] alternate verifier failed, using primary: %v", err)
		return types.Score{}, false
	}
	return score, true
}

// ask issues one yes/no verification request. An unparseable reply is
// reported as an error so the caller can pick the fallback.
func (v *Verifier) ask(ctx context.Context, client llm.Client, prompt string) (types.Score, error) {
	if v.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.callTimeout)
		defer cancel()
	}

	resp, err := client.GenerateContent(ctx, llm.Request{
		System:      prompts.MustGet(prompts.JudgingFile, "verify-answer-system"),
		Prompt:      prompt,
		Tier:        llm.TierLite,
		MaxTokens:   verifyMaxTokens,
		Temperature: verifyTemperature,
	})
	if err != nil {
		return types.Score{}, err
	}

	yes, ok := llm.ParseYesNo(resp)
	if !ok {
		return types.Score{}, fmt.Errorf("unparseable verification response %q", resp)
	}
	return types.YesNoScore(yes), nil
}
