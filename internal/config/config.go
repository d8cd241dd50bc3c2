// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/retrieval-judge/internal/llm"
)

// Config represents the CLI configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values are filled from the environment and defaults.
type Config struct {
	// Storage
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"` // PostgreSQL connection URL

	// Providers
	Provider          string `json:"provider,omitempty" yaml:"provider,omitempty" validate:"omitempty,oneof=openai gemini anthropic"`
	AlternateProvider string `json:"alternate_provider,omitempty" yaml:"alternate_provider,omitempty" validate:"omitempty,oneof=openai gemini anthropic"`
	OpenAIAPIKey      string `json:"openai_api_key,omitempty" yaml:"openai_api_key,omitempty"`
	GeminiAPIKey      string `json:"gemini_api_key,omitempty" yaml:"gemini_api_key,omitempty"`
	AnthropicAPIKey   string `json:"anthropic_api_key,omitempty" yaml:"anthropic_api_key,omitempty"`
	EmbeddingModel    string `json:"embedding_model,omitempty" yaml:"embedding_model,omitempty"`

	// Judging. Nil means unset; an explicit value must lie in (0, 1].
	HeuristicThreshold *float64 `json:"heuristic_threshold,omitempty" yaml:"heuristic_threshold,omitempty" validate:"omitempty,lte=1"` // Similarity cut-off for the heuristic judge
	ModelThreshold     *float64 `json:"model_threshold,omitempty" yaml:"model_threshold,omitempty" validate:"omitempty,lte=1"`         // Confidence cut-off for the model judge

	// Limits
	MaxConcurrency          int `json:"max_concurrency,omitempty" yaml:"max_concurrency,omitempty" validate:"gte=0"`                     // 0 means one request per item
	CallTimeoutSeconds      int `json:"call_timeout_seconds,omitempty" yaml:"call_timeout_seconds,omitempty" validate:"gte=0"`           // Per remote call
	SubstantialContextChars int `json:"substantial_context_chars,omitempty" yaml:"substantial_context_chars,omitempty" validate:"gte=0"` // Decompose only above this length
	MaxSubquestions         int `json:"max_subquestions,omitempty" yaml:"max_subquestions,omitempty" validate:"gte=0,lte=10"`
	MaxResults              int `json:"max_results,omitempty" yaml:"max_results,omitempty" validate:"gte=0"` // Chunks retrieved per query

	// Behavior
	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"` // Print detailed debug information
}

// Defaults returns the built-in configuration values.
func Defaults() Config {
	return Config{
		Provider:                string(llm.ProviderOpenAI),
		EmbeddingModel:          "text-embedding-3-small",
		HeuristicThreshold:      threshold(0.35),
		ModelThreshold:          threshold(0.5),
		CallTimeoutSeconds:      30,
		SubstantialContextChars: 500,
		MaxSubquestions:         4,
		MaxResults:              10,
	}
}

// FromEnv reads configuration from environment variables.
func FromEnv() Config {
	return Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		Provider:          os.Getenv("LLM_PROVIDER"),
		AlternateProvider: os.Getenv("ALTERNATE_PROVIDER"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		EmbeddingModel:    os.Getenv("EMBEDDING_MODEL"),
	}
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Missing API keys are not checked here; they are reported when a client for
// that provider is opened.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.HeuristicThreshold != nil && *c.HeuristicThreshold <= 0 {
		return fmt.Errorf("config error: 'heuristic_threshold' must be greater than 0")
	}
	if c.ModelThreshold != nil && *c.ModelThreshold <= 0 {
		return fmt.Errorf("config error: 'model_threshold' must be greater than 0")
	}
	if c.AlternateProvider != "" && c.AlternateProvider == c.Provider {
		return fmt.Errorf("config error: 'alternate_provider' must differ from 'provider'")
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.Provider == "" {
		result.Provider = defaults.Provider
	}
	if result.AlternateProvider == "" {
		result.AlternateProvider = defaults.AlternateProvider
	}
	if result.OpenAIAPIKey == "" {
		result.OpenAIAPIKey = defaults.OpenAIAPIKey
	}
	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.AnthropicAPIKey == "" {
		result.AnthropicAPIKey = defaults.AnthropicAPIKey
	}
	if result.EmbeddingModel == "" {
		result.EmbeddingModel = defaults.EmbeddingModel
	}

	// Thresholds: use default only when unset, so an explicit 0 reaches Validate
	if result.HeuristicThreshold == nil {
		result.HeuristicThreshold = defaults.HeuristicThreshold
	}
	if result.ModelThreshold == nil {
		result.ModelThreshold = defaults.ModelThreshold
	}

	// Numeric fields: use default if zero
	if result.MaxConcurrency == 0 {
		result.MaxConcurrency = defaults.MaxConcurrency
	}
	if result.CallTimeoutSeconds == 0 {
		result.CallTimeoutSeconds = defaults.CallTimeoutSeconds
	}
	if result.SubstantialContextChars == 0 {
		result.SubstantialContextChars = defaults.SubstantialContextChars
	}
	if result.MaxSubquestions == 0 {
		result.MaxSubquestions = defaults.MaxSubquestions
	}
	if result.MaxResults == 0 {
		result.MaxResults = defaults.MaxResults
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// Resolve layers a config file (optional), the environment and the built-in
// defaults, in that order of precedence.
func Resolve(path string) (Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	}
	env := FromEnv()
	merged := cfg.MergeWithDefaults(env)
	merged = merged.MergeWithDefaults(Defaults())
	if err := merged.Validate(); err != nil {
		return Config{}, err
	}
	return merged, nil
}

// SimilarityThreshold returns the heuristic judge's cut-off, or 0 when unset.
func (c *Config) SimilarityThreshold() float64 {
	if c.HeuristicThreshold == nil {
		return 0
	}
	return *c.HeuristicThreshold
}

// ConfidenceThreshold returns the model judge's cut-off, or 0 when unset.
func (c *Config) ConfidenceThreshold() float64 {
	if c.ModelThreshold == nil {
		return 0
	}
	return *c.ModelThreshold
}

// CallTimeout returns the per-call timeout as a duration.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}

// APIKeyFor returns the configured key for provider.
func (c *Config) APIKeyFor(provider llm.Provider) string {
	switch provider {
	case llm.ProviderOpenAI:
		return c.OpenAIAPIKey
	case llm.ProviderGemini:
		return c.GeminiAPIKey
	case llm.ProviderAnthropic:
		return c.AnthropicAPIKey
	default:
		return ""
	}
}

func threshold(v float64) *float64 {
	return &v
}
