package provider

import (
	"context"
	"errors"
	"fmt"
	"os"

	"google.golang.org/genai"
)

// GeminiClient adapts Google's Gemini API. Its large context window makes it
// the default synthesis provider.
type GeminiClient struct {
	client *genai.Client
	models map[Purpose]ModelInfo
}

// NewGeminiClient creates the adapter. The API key is read from
// GEMINI_API_KEY when apiKey is empty.
func NewGeminiClient(ctx context.Context, apiKey, selectionModel, synthesisModel string) (*GeminiClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		models: map[Purpose]ModelInfo{
			PurposeSelection: {Name: selectionModel, ContextTokens: 1000000, CostPer1KInput: 0.0001, CostPer1KOutput: 0.0004},
			PurposeSynthesis: {Name: synthesisModel, ContextTokens: 1000000, CostPer1KInput: 0.0001, CostPer1KOutput: 0.0004},
		},
	}, nil
}

// ProviderName implements Client.
func (c *GeminiClient) ProviderName() string { return "gemini" }

// ModelInfo implements Client.
func (c *GeminiClient) ModelInfo(purpose Purpose) ModelInfo {
	return c.models[purpose]
}

// Complete issues a single generation call.
func (c *GeminiClient) Complete(ctx context.Context, purpose Purpose, prompt string) (string, error) {
	info, ok := c.models[purpose]
	if !ok || info.Name == "" {
		return "", fmt.Errorf("no model configured for purpose %q", purpose)
	}

	temperature := float32(0)
	resp, err := c.client.Models.GenerateContent(ctx, info.Name, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: &temperature,
	})
	if err != nil {
		return "", fmt.Errorf("gemini completion: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini completion: empty response")
	}
	return text, nil
}

// retryableGeminiError reports quota and server-side failures that justify
// trying the secondary provider.
func retryableGeminiError(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	return false
}
