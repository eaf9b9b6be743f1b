package provider

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/sitescout/sitescout/internal/research"
)

// scriptedClient fails a fixed number of times before succeeding.
type scriptedClient struct {
	mu       sync.Mutex
	name     string
	failWith error
	failures int
	calls    int
}

func (c *scriptedClient) ProviderName() string { return c.name }

func (c *scriptedClient) ModelInfo(Purpose) ModelInfo {
	return ModelInfo{Name: c.name + "-model", ContextTokens: 128000}
}

func (c *scriptedClient) Complete(_ context.Context, _ Purpose, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.calls <= c.failures {
		return "", c.failWith
	}
	return c.name + " says ok", nil
}

func newRouter(primary, secondary Client) *Router {
	routes := map[Purpose]Route{
		PurposeSelection: {Primary: primary, Secondary: secondary},
	}
	return NewRouter(routes, 1000, time.Second, research.NullSink{})
}

func TestRouterPrimarySuccess(t *testing.T) {
	primary := &scriptedClient{name: "alpha"}
	secondary := &scriptedClient{name: "beta"}
	router := newRouter(primary, secondary)

	out, err := router.Complete(context.Background(), PurposeSelection, "prompt")
	require.NoError(t, err)
	assert.Equal(t, "alpha says ok", out)
	assert.Equal(t, 0, secondary.calls)
}

func TestRouterFailsOverOnQuotaError(t *testing.T) {
	primary := &scriptedClient{
		name:     "alpha",
		failures: 1,
		failWith: fmt.Errorf("alpha completion: %w", &openai.APIError{HTTPStatusCode: 429, Message: "rate limited"}),
	}
	secondary := &scriptedClient{name: "beta"}
	router := newRouter(primary, secondary)

	out, err := router.Complete(context.Background(), PurposeSelection, "prompt")
	require.NoError(t, err)
	assert.Equal(t, "beta says ok", out)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestRouterFailsOverOnServerError(t *testing.T) {
	primary := &scriptedClient{
		name:     "alpha",
		failures: 1,
		failWith: fmt.Errorf("alpha completion: %w", genai.APIError{Code: 503, Message: "overloaded"}),
	}
	secondary := &scriptedClient{name: "beta"}
	router := newRouter(primary, secondary)

	out, err := router.Complete(context.Background(), PurposeSelection, "prompt")
	require.NoError(t, err)
	assert.Equal(t, "beta says ok", out)
}

func TestRouterNonRetryableErrorDoesNotFailOver(t *testing.T) {
	primary := &scriptedClient{
		name:     "alpha",
		failures: 1,
		failWith: fmt.Errorf("alpha completion: %w", &openai.APIError{HTTPStatusCode: 401, Message: "bad key"}),
	}
	secondary := &scriptedClient{name: "beta"}
	router := newRouter(primary, secondary)

	_, err := router.Complete(context.Background(), PurposeSelection, "prompt")
	require.Error(t, err)
	assert.Equal(t, 0, secondary.calls)
}

func TestRouterBothRoutesFailing(t *testing.T) {
	quota := &openai.APIError{HTTPStatusCode: 429, Message: "rate limited"}
	primary := &scriptedClient{name: "alpha", failures: 10, failWith: fmt.Errorf("a: %w", quota)}
	secondary := &scriptedClient{name: "beta", failures: 10, failWith: fmt.Errorf("b: %w", quota)}
	router := newRouter(primary, secondary)

	_, err := router.Complete(context.Background(), PurposeSelection, "prompt")
	assert.ErrorIs(t, err, research.ErrProviderUnavailable)
}

func TestRouterNoSecondaryConfigured(t *testing.T) {
	primary := &scriptedClient{
		name:     "alpha",
		failures: 1,
		failWith: fmt.Errorf("a: %w", &openai.APIError{HTTPStatusCode: 500}),
	}
	router := newRouter(primary, nil)

	_, err := router.Complete(context.Background(), PurposeSelection, "prompt")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, research.ErrProviderUnavailable)
}

func TestRouterUnroutedPurpose(t *testing.T) {
	router := newRouter(&scriptedClient{name: "alpha"}, nil)
	_, err := router.Complete(context.Background(), PurposeSynthesis, "prompt")
	assert.Error(t, err)
}

func TestRouterRateLimitWaitBounded(t *testing.T) {
	routes := map[Purpose]Route{
		PurposeSelection: {Primary: &scriptedClient{name: "alpha"}},
	}
	// One call per 10 seconds; the second caller must give up at maxWait.
	router := NewRouter(routes, 0.1, 50*time.Millisecond, research.NullSink{})

	_, err := router.Complete(context.Background(), PurposeSelection, "first")
	require.NoError(t, err)

	start := time.Now()
	_, err = router.Complete(context.Background(), PurposeSelection, "second")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(&openai.APIError{HTTPStatusCode: 429}))
	assert.True(t, Retryable(&openai.APIError{HTTPStatusCode: 502}))
	assert.False(t, Retryable(&openai.APIError{HTTPStatusCode: 400}))
	assert.True(t, Retryable(genai.APIError{Code: 429}))
	assert.True(t, Retryable(genai.APIError{Code: 500}))
	assert.False(t, Retryable(genai.APIError{Code: 404}))
	assert.False(t, Retryable(fmt.Errorf("plain error")))
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 25, EstimateTokens(string(make([]byte, 100))))
}
