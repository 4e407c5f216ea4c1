package llm

import (
	"fmt"
	"os"
)

const defaultOllamaHost = "http://localhost:11434"

// DefaultModel returns the model used when the configuration names none.
func DefaultModel(providerType string) string {
	switch providerType {
	case "anthropic":
		return "claude-sonnet-4-5-20250929"
	case "openai":
		return "gpt-4o-mini"
	case "ollama":
		return "llama3.1"
	}
	return ""
}

// NewProvider creates a new LLM provider based on the given provider type and model.
// Supported provider types: "anthropic", "openai", "ollama".
func NewProvider(providerType string, model string) (Provider, error) {
	if model == "" {
		model = DefaultModel(providerType)
	}

	switch providerType {
	case "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		return NewAnthropicProvider(apiKey, model), nil

	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		p := NewOpenAIProvider(apiKey, model)
		if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
			p = NewOpenAIProviderWithBaseURL(apiKey, base, model)
		}
		return p, nil

	case "ollama":
		host := os.Getenv("OLLAMA_HOST")
		if host == "" {
			host = defaultOllamaHost
		}
		return NewOllamaProvider(host, model), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
