package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/sitescout/sitescout/internal/research"
)

// Route pairs a primary provider with an optional secondary fallback for one
// call purpose.
type Route struct {
	Primary   Client
	Secondary Client
}

// Router selects a provider per call purpose, applies a shared token-bucket
// rate limit (queueing callers up to a bounded wait), and on quota or
// 5xx-class failure retries once against the secondary provider before
// surfacing the error. It may be shared across concurrent runs; the limiter
// serializes its own updates.
type Router struct {
	routes  map[Purpose]Route
	limiter *rate.Limiter
	maxWait time.Duration
	sink    research.ProgressSink
}

// NewRouter creates a router. rps bounds provider calls per second across
// every purpose; maxWait bounds how long a caller queues on the limiter.
func NewRouter(routes map[Purpose]Route, rps float64, maxWait time.Duration, sink research.ProgressSink) *Router {
	if sink == nil {
		sink = research.NullSink{}
	}
	return &Router{
		routes:  routes,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		maxWait: maxWait,
		sink:    sink,
	}
}

// ModelInfo returns the primary provider's model for the purpose, which is
// what context budgeting should assume.
func (r *Router) ModelInfo(purpose Purpose) ModelInfo {
	return r.routes[purpose].Primary.ModelInfo(purpose)
}

// Complete routes one call: wait for rate-limit capacity, try the primary,
// and on a retryable failure try the secondary once.
func (r *Router) Complete(ctx context.Context, purpose Purpose, prompt string) (string, error) {
	route, ok := r.routes[purpose]
	if !ok || route.Primary == nil {
		return "", fmt.Errorf("no provider routed for purpose %q", purpose)
	}

	out, err := r.call(ctx, route.Primary, purpose, prompt, false)
	if err == nil {
		return out, nil
	}

	if route.Secondary == nil || !Retryable(err) {
		return "", err
	}

	logrus.Warnf("provider %s failed for %s, failing over to %s: %v",
		route.Primary.ProviderName(), purpose, route.Secondary.ProviderName(), err)

	out, err2 := r.call(ctx, route.Secondary, purpose, prompt, true)
	if err2 == nil {
		return out, nil
	}
	return "", fmt.Errorf("%w: primary: %v; secondary: %v", research.ErrProviderUnavailable, err, err2)
}

func (r *Router) call(ctx context.Context, client Client, purpose Purpose, prompt string, failover bool) (string, error) {
	waitCtx, cancel := context.WithTimeout(ctx, r.maxWait)
	defer cancel()
	if err := r.limiter.Wait(waitCtx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}

	start := time.Now()
	out, err := client.Complete(ctx, purpose, prompt)
	rec := CallRecord{
		Provider:    client.ProviderName(),
		Purpose:     purpose,
		PromptChars: len(prompt),
		EstTokens:   EstimateTokens(prompt),
		Success:     err == nil,
		Failover:    failover,
		Latency:     time.Since(start),
	}
	r.report(rec, err)
	return out, err
}

func (r *Router) report(rec CallRecord, err error) {
	status := research.EventCompleted
	detail := fmt.Sprintf("%s/%s tokens~%d latency=%s failover=%t",
		rec.Provider, rec.Purpose, rec.EstTokens, rec.Latency.Round(time.Millisecond), rec.Failover)
	if err != nil {
		status = research.EventFailed
		detail += " err=" + err.Error()
	}
	r.sink.OnEvent("provider", status, detail)
}

// Retryable reports whether a provider error is a quota or transient
// server-side failure worth retrying on the secondary provider.
func Retryable(err error) bool {
	return retryableOpenAIError(err) || retryableGeminiError(err)
}
