// Package provider abstracts the AI services the pipeline calls for page
// selection and synthesis, and routes between them with rate limiting and
// secondary-provider failover.
package provider

import (
	"context"
	"time"
)

// Purpose names the kind of call being made; routing is purpose-specific so
// a cheap model can do selection while a large-context one does synthesis.
type Purpose string

const (
	PurposeSelection Purpose = "selection"
	PurposeSynthesis Purpose = "synthesis"
)

// ModelInfo describes the model an adapter will use for a purpose.
type ModelInfo struct {
	Name            string
	ContextTokens   int
	CostPer1KInput  float64
	CostPer1KOutput float64
}

// Client is one AI provider. Adapters are thin: prompt construction and
// response parsing belong to the pipeline stages, which keeps every provider
// interchangeable behind a single completion call.
type Client interface {
	ProviderName() string
	ModelInfo(purpose Purpose) ModelInfo
	Complete(ctx context.Context, purpose Purpose, prompt string) (string, error)
}

// CallRecord captures one provider call for routing decisions and progress
// reporting. Records are transient; nothing outlives the run unless the
// caller captures the events.
type CallRecord struct {
	Provider    string
	Purpose     Purpose
	PromptChars int
	EstTokens   int
	Success     bool
	Failover    bool
	Latency     time.Duration
}

// EstimateTokens is the rough chars/4 heuristic used for context budgeting
// and cost estimates.
func EstimateTokens(text string) int {
	return len(text) / 4
}
