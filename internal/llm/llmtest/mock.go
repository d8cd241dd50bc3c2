// Package llmtest provides an llm.Client test double.
package llmtest

import (
	"context"
	"sync"

	"github.com/jonathan/retrieval-judge/internal/llm"
)

// MockClient implements llm.Client with pluggable behavior and records calls.
type MockClient struct {
	GenerateContentFunc func(ctx context.Context, req llm.Request) (string, error)
	ProviderName        llm.Provider
	CloseFunc           func() error

	mu       sync.Mutex
	requests []llm.Request
	closed   int
}

// GenerateContent records the request and delegates to GenerateContentFunc.
func (m *MockClient) GenerateContent(ctx context.Context, req llm.Request) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, req)
	}
	return "Yes", nil
}

// GetModel returns a fixed model name
func (m *MockClient) GetModel(_ llm.ModelTier) string {
	return "mock-model"
}

// Provider returns ProviderName, defaulting to openai
func (m *MockClient) Provider() llm.Provider {
	if m.ProviderName == "" {
		return llm.ProviderOpenAI
	}
	return m.ProviderName
}

// Close counts calls and delegates to CloseFunc
func (m *MockClient) Close() error {
	m.mu.Lock()
	m.closed++
	m.mu.Unlock()
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Requests returns a copy of all recorded requests
func (m *MockClient) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns the number of recorded requests
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Closed returns how many times Close was called
func (m *MockClient) Closed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
