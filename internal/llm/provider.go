package llm

import (
	"context"
	"fmt"
	"strings"
)

// Completer sends a single prompt to a chat model and returns its text reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Provider constants
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderCerebras  = "cerebras"
	ProviderMock      = "mock"
)

const (
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-3-5-haiku-20241022"
	defaultGeminiModel    = "gemini-2.0-flash"
	defaultCerebrasModel  = "llama-3.3-70b"

	cerebrasBaseURL = "https://api.cerebras.ai/v1"
)

// NewClient creates a Completer for the named provider. An empty model
// selects the provider default. Returns an error if the provider is unknown
// or the API key is empty (except for mock).
func NewClient(ctx context.Context, provider, apiKey, model string) (Completer, error) {
	switch strings.ToLower(provider) {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI provider")
		}
		return NewOpenAIClient(apiKey, orDefault(model, defaultOpenAIModel), ""), nil

	case ProviderAnthropic:
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for Anthropic provider")
		}
		return NewAnthropicClient(apiKey, orDefault(model, defaultAnthropicModel)), nil

	case ProviderGemini:
		if apiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return NewGeminiClient(ctx, apiKey, orDefault(model, defaultGeminiModel))

	case ProviderCerebras:
		if apiKey == "" {
			return nil, fmt.Errorf("CEREBRAS_API_KEY is required for Cerebras provider")
		}
		// Cerebras speaks the OpenAI chat completions protocol.
		return NewOpenAIClient(apiKey, orDefault(model, defaultCerebrasModel), cerebrasBaseURL), nil

	case ProviderMock:
		return NewMockClient(), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (valid options: openai, anthropic, gemini, cerebras, mock)", provider)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
