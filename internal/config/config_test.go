package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/retrieval-judge/internal/llm"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"database_url": "postgres://judge@localhost/judge",
		"provider": "gemini",
		"model_threshold": 0.6,
		"max_concurrency": 8,
		"verbose": true
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "postgres://judge@localhost/judge", cfg.DatabaseURL)
	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, 0.6, cfg.ConfidenceThreshold())
	assert.Equal(t, 8, cfg.MaxConcurrency)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_ValidYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
provider: anthropic
alternate_provider: openai
heuristic_threshold: 0.4
call_timeout_seconds: 12
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "openai", cfg.AlternateProvider)
	assert.Equal(t, 0.4, cfg.SimilarityThreshold())
	assert.Equal(t, 12*time.Second, cfg.CallTimeout())
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{ invalid json }`)

	cfg, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeFile(t, "config.yml", "provider: [unterminated")

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "failed to parse config YAML")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "defaults", cfg: Defaults()},
		{name: "unknown provider", cfg: Config{Provider: "cohere"}, wantErr: "Provider"},
		{name: "threshold out of range", cfg: Config{ModelThreshold: threshold(1.5)}, wantErr: "ModelThreshold"},
		{name: "zero heuristic threshold", cfg: Config{HeuristicThreshold: threshold(0)}, wantErr: "heuristic_threshold"},
		{name: "negative model threshold", cfg: Config{ModelThreshold: threshold(-0.2)}, wantErr: "model_threshold"},
		{name: "negative concurrency", cfg: Config{MaxConcurrency: -1}, wantErr: "MaxConcurrency"},
		{name: "same alternate", cfg: Config{Provider: "openai", AlternateProvider: "openai"}, wantErr: "alternate_provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{Provider: "gemini", MaxResults: 3}

	merged := cfg.MergeWithDefaults(Defaults())
	assert.Equal(t, "gemini", merged.Provider)
	assert.Equal(t, 3, merged.MaxResults)
	assert.Equal(t, 0.35, merged.SimilarityThreshold())
	assert.Equal(t, 0.5, merged.ConfidenceThreshold())
	assert.Equal(t, 4, merged.MaxSubquestions)
	assert.Equal(t, 500, merged.SubstantialContextChars)
	assert.Equal(t, 0, merged.MaxConcurrency)
}

func TestMergeWithDefaults_KeepsExplicitThreshold(t *testing.T) {
	cfg := Config{HeuristicThreshold: threshold(0)}

	merged := cfg.MergeWithDefaults(Defaults())
	require.NotNil(t, merged.HeuristicThreshold)
	assert.Equal(t, 0.0, *merged.HeuristicThreshold)
	assert.Error(t, merged.Validate())
}

func TestResolve_ZeroThresholdRejected(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("ALTERNATE_PROVIDER", "")
	path := writeFile(t, "config.yaml", "heuristic_threshold: 0\n")

	_, err := Resolve(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "heuristic_threshold")
}

func TestResolve_FileOverEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("ALTERNATE_PROVIDER", "")
	path := writeFile(t, "config.json", `{"provider": "gemini"}`)

	cfg, err := Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, "postgres://env", cfg.DatabaseURL)
	assert.Equal(t, "sk-env", cfg.APIKeyFor(llm.ProviderOpenAI))
	assert.Equal(t, 10, cfg.MaxResults)
}

func TestResolve_NoFile(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("ALTERNATE_PROVIDER", "")
	cfg, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider)
}

func TestAPIKeyFor(t *testing.T) {
	cfg := Config{OpenAIAPIKey: "o", GeminiAPIKey: "g", AnthropicAPIKey: "a"}
	assert.Equal(t, "o", cfg.APIKeyFor(llm.ProviderOpenAI))
	assert.Equal(t, "g", cfg.APIKeyFor(llm.ProviderGemini))
	assert.Equal(t, "a", cfg.APIKeyFor(llm.ProviderAnthropic))
	assert.Equal(t, "", cfg.APIKeyFor("other"))
}
