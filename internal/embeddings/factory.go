package embeddings

import (
	"fmt"
	"os"
)

// Default models per provider.
const (
	DefaultOpenAIModel = string(ModelTextEmbedding3Small)
	DefaultOllamaModel = "nomic-embed-text"
)

// ollamaDimensions covers the common Ollama embedding models.
var ollamaDimensions = map[string]int{
	"nomic-embed-text":  768,
	"mxbai-embed-large": 1024,
	"all-minilm":        384,
}

// New creates an embedder for provider. Providers without an embedding
// API (anthropic) use OpenAI embeddings.
func New(provider, model string) (Embedder, error) {
	switch provider {
	case "ollama":
		if model == "" {
			model = DefaultOllamaModel
		}
		dims, ok := ollamaDimensions[model]
		if !ok {
			dims = 768
		}
		return NewOllamaEmbedder(model, dims, os.Getenv("OLLAMA_HOST")), nil
	case "openai", "anthropic", "":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for embeddings with provider %q", provider)
		}
		if model == "" {
			model = DefaultOpenAIModel
		}
		return NewOpenAIEmbedder(apiKey, OpenAIModel(model), os.Getenv("OPENAI_BASE_URL")), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", provider)
	}
}
