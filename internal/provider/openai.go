package provider

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient adapts any OpenAI-compatible chat-completions endpoint.
type OpenAIClient struct {
	client *openai.Client
	models map[Purpose]ModelInfo
}

// NewOpenAIClient creates the adapter. baseURL may point at any
// OpenAI-compatible server; empty means api.openai.com. The API key is read
// from OPENAI_API_KEY when apiKey is empty.
func NewOpenAIClient(apiKey, baseURL, selectionModel, synthesisModel string) (*OpenAIClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		models: map[Purpose]ModelInfo{
			PurposeSelection: {Name: selectionModel, ContextTokens: 128000, CostPer1KInput: 0.00015, CostPer1KOutput: 0.0006},
			PurposeSynthesis: {Name: synthesisModel, ContextTokens: 128000, CostPer1KInput: 0.0025, CostPer1KOutput: 0.01},
		},
	}, nil
}

// ProviderName implements Client.
func (c *OpenAIClient) ProviderName() string { return "openai" }

// ModelInfo implements Client.
func (c *OpenAIClient) ModelInfo(purpose Purpose) ModelInfo {
	return c.models[purpose]
}

// Complete issues a single-turn chat completion with temperature 0 so
// identical prompts yield stable responses.
func (c *OpenAIClient) Complete(ctx context.Context, purpose Purpose, prompt string) (string, error) {
	info, ok := c.models[purpose]
	if !ok || info.Name == "" {
		return "", fmt.Errorf("no model configured for purpose %q", purpose)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: info.Name,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion: empty choice list")
	}
	return resp.Choices[0].Message.Content, nil
}

// retryableOpenAIError reports quota and server-side failures that justify
// trying the secondary provider.
func retryableOpenAIError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	return false
}
