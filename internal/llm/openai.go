package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIClient talks to the OpenAI API, or to any compatible endpoint
// when baseURL is set.
func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIClient{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: 0.3,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
