package llm

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrMissingAPIKey is returned when a provider is requested without a credential
	ErrMissingAPIKey = errors.New("API key is required")
	// ErrUnsupportedProvider is returned for unknown provider names
	ErrUnsupportedProvider = errors.New("unsupported LLM provider")
)

// ErrorType classifies remote completion failures for logging and fallback decisions.
type ErrorType string

// Error classes
const (
	ErrorQuota     ErrorType = "quota"
	ErrorRate      ErrorType = "rate"
	ErrorTransient ErrorType = "transient"
	ErrorPermanent ErrorType = "permanent"
	ErrorContext   ErrorType = "context"
	ErrorConfig    ErrorType = "config"
)

// ClassifyError maps an error from a provider call onto an ErrorType.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrMissingAPIKey) || errors.Is(err, ErrUnsupportedProvider) {
		return ErrorConfig
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTransient
	}
	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "quota"), strings.Contains(e, "credit"), strings.Contains(e, "insufficient_quota"):
		return ErrorQuota
	case strings.Contains(e, "rate limit"), strings.Contains(e, "rate_limit"), strings.Contains(e, "ratelimit"),
		strings.Contains(e, "too many requests"), strings.Contains(e, "429"):
		return ErrorRate
	case strings.Contains(e, "context length"), strings.Contains(e, "too long"):
		return ErrorContext
	case strings.Contains(e, "timeout"), strings.Contains(e, "temporarily"), strings.Contains(e, "unavailable"),
		strings.Contains(e, "overloaded"), strings.Contains(e, "503"), strings.Contains(e, "502"):
		return ErrorTransient
	default:
		return ErrorPermanent
	}
}
