package llm

import (
	"context"
	"fmt"
)

// Request describes a single completion call.
type Request struct {
	// System is an optional system instruction
	System string
	// Prompt is the user prompt
	Prompt string
	// Tier selects the model
	Tier ModelTier
	// MaxTokens bounds the response length; zero leaves the provider default
	MaxTokens int
	// Temperature controls sampling
	Temperature float32
}

// Client is an abstraction over LLM providers. Implementations must be safe
// for concurrent use by multiple in-flight requests.
type Client interface {
	// GenerateContent returns the text completion for a request
	GenerateContent(ctx context.Context, req Request) (string, error)
	// GetModel returns the provider model name for a tier
	GetModel(tier ModelTier) string
	// Provider identifies the backing provider
	Provider() Provider
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client based on configuration.
// A missing API key is reported immediately as ErrMissingAPIKey.
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	case ProviderOpenAI:
		return NewOpenAIClient(config, apiKey)
	case ProviderAnthropic:
		return NewClaudeClient(config, apiKey)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, config.Provider)
	}
}

// modelFor resolves the model for a request or reports a configuration error.
func modelFor(config *Config, tier ModelTier) (string, error) {
	modelName := config.GetModel(tier)
	if modelName == "" {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}
	return modelName, nil
}
