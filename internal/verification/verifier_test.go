package verification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/retrieval-judge/internal/llm"
	"github.com/jonathan/retrieval-judge/internal/llm/llmtest"
	"github.com/jonathan/retrieval-judge/internal/types"
)

func replying(text string, err error) *llmtest.MockClient {
	return &llmtest.MockClient{
		GenerateContentFunc: func(_ context.Context, _ llm.Request) (string, error) {
			return text, err
		},
	}
}

func factoryFor(client llm.Client, err error) AlternateFactory {
	return func(_ context.Context) (llm.Client, error) {
		return client, err
	}
}

func TestVerify_Primary(t *testing.T) {
	primary := replying("Yes", nil)

	res, err := NewVerifier(primary, Options{}).Verify(context.Background(), "q", "a", "ctx", false)
	require.NoError(t, err)
	assert.True(t, res.Supported)
	assert.Equal(t, 0.9, res.Score)
	assert.Equal(t, types.ProviderPrimary, res.Provider)
	assert.False(t, res.Degraded)

	req := primary.Requests()[0]
	assert.Equal(t, llm.TierLite, req.Tier)
	assert.Equal(t, 10, req.MaxTokens)
	assert.InDelta(t, 0.1, req.Temperature, 1e-6)
	assert.Contains(t, req.Prompt, "Proposed answer: \"a\"")
}

func TestVerify_No(t *testing.T) {
	res, err := NewVerifier(replying("No", nil), Options{}).Verify(context.Background(), "q", "a", "ctx", false)
	require.NoError(t, err)
	assert.False(t, res.Supported)
	assert.Equal(t, 0.1, res.Score)
}

func TestVerify_PrimaryFailureIsNeutral(t *testing.T) {
	res, err := NewVerifier(replying("", errors.New("timeout")), Options{}).Verify(context.Background(), "q", "a", "ctx", false)
	require.NoError(t, err)
	assert.Equal(t, 0.5, res.Score)
	assert.True(t, res.Supported)
	assert.True(t, res.Degraded)
	assert.Equal(t, types.ProviderPrimary, res.Provider)
}

func TestVerify_AlternateUsed(t *testing.T) {
	primary := replying("Yes", nil)
	alternate := replying("No", nil)

	v := NewVerifier(primary, Options{Alternate: factoryFor(alternate, nil)})
	res, err := v.Verify(context.Background(), "q", "a", "ctx", true)
	require.NoError(t, err)
	assert.Equal(t, types.ProviderAlternate, res.Provider)
	assert.Equal(t, 0.1, res.Score)
	assert.Equal(t, 0, primary.Calls())
	assert.Equal(t, 1, alternate.Closed())
}

func TestVerify_AlternateErrorFallsBack(t *testing.T) {
	primary := replying("Yes", nil)
	alternate := replying("", errors.New("anthropic: 529 overloaded"))

	v := NewVerifier(primary, Options{Alternate: factoryFor(alternate, nil)})
	res, err := v.Verify(context.Background(), "q", "a", "ctx", true)
	require.NoError(t, err)
	assert.Equal(t, types.ProviderPrimary, res.Provider)
	assert.Equal(t, 0.9, res.Score)
	assert.Equal(t, 1, alternate.Calls())
	assert.Equal(t, 1, primary.Calls())
}

func TestVerify_AlternateUnavailableFallsBack(t *testing.T) {
	primary := replying("Yes", nil)

	v := NewVerifier(primary, Options{Alternate: factoryFor(nil, llm.ErrMissingAPIKey)})
	res, err := v.Verify(context.Background(), "q", "a", "ctx", true)
	require.NoError(t, err)
	assert.Equal(t, types.ProviderPrimary, res.Provider)
	assert.Equal(t, 1, primary.Calls())
}

func TestVerify_AlternateUnparseableFallsBack(t *testing.T) {
	primary := replying("No", nil)
	alternate := replying("I cannot determine that", nil)

	v := NewVerifier(primary, Options{Alternate: factoryFor(alternate, nil)})
	res, err := v.Verify(context.Background(), "q", "a", "ctx", true)
	require.NoError(t, err)
	assert.Equal(t, types.ProviderPrimary, res.Provider)
	assert.Equal(t, 0.1, res.Score)
}

func TestVerify_AlternateNotConfigured(t *testing.T) {
	primary := replying("Yes", nil)

	v := NewVerifier(primary, Options{})
	assert.False(t, v.HasAlternate())
	res, err := v.Verify(context.Background(), "q", "a", "ctx", true)
	require.NoError(t, err)
	assert.Equal(t, types.ProviderPrimary, res.Provider)
}

func TestVerify_NoPrimary(t *testing.T) {
	_, err := NewVerifier(nil, Options{}).Verify(context.Background(), "q", "a", "ctx", false)
	assert.ErrorIs(t, err, ErrNoPrimaryProvider)
}
