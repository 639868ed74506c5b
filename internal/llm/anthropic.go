package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
)

const anthropicMaxTokens = 2048

type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	return &AnthropicClient{
		client: anthropic.NewClient(apiKey),
		model:  model,
	}
}

func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model: anthropic.Model(c.model),
		Messages: []anthropic.Message{
			{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewTextMessageContent(prompt),
				},
			},
		},
		MaxTokens: anthropicMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("messages request failed: %w", err)
	}

	for _, part := range resp.Content {
		if part.Text != nil {
			return strings.TrimSpace(*part.Text), nil
		}
	}
	return "", fmt.Errorf("messages API returned no text content")
}
