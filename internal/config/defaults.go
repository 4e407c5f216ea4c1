package config

import "path/filepath"

// Preset is the model pairing offered for a provider.
type Preset struct {
	Model             string
	EmbeddingProvider ProviderType
	EmbeddingModel    string
}

// presets maps each provider to its default models. Anthropic has no
// embedding API, so it pairs with OpenAI embeddings.
var presets = map[ProviderType]Preset{
	ProviderAnthropic: {Model: "claude-sonnet-4-5-20250929", EmbeddingProvider: ProviderOpenAI, EmbeddingModel: "text-embedding-3-small"},
	ProviderOpenAI:    {Model: "gpt-4o-mini", EmbeddingProvider: ProviderOpenAI, EmbeddingModel: "text-embedding-3-small"},
	ProviderOllama:    {Model: "llama3.1", EmbeddingProvider: ProviderOllama, EmbeddingModel: "nomic-embed-text"},
}

// DefaultExcludes are glob patterns skipped by batch commands by default.
var DefaultExcludes = []string{
	".git/**",
	"node_modules/**",
	".docpilot/**",
	"**/~$*",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderAnthropic,
		Model:             presets[ProviderAnthropic].Model,
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingModel:    "text-embedding-3-small",
		DataDir:           ".docpilot",
		Include:           []string{"**/*.docx"},
		Exclude:           append([]string(nil), DefaultExcludes...),
		MaxReplacements:   20,
		RateLimitRPM:      0,
		Server: ServerConfig{
			Port:            8080,
			AllowAllOrigins: true,
		},
		LogLevel: "info",
	}
}

// GetPreset returns the preset for provider, falling back to Anthropic.
func GetPreset(provider ProviderType) Preset {
	if p, ok := presets[provider]; ok {
		return p
	}
	return presets[ProviderAnthropic]
}

// DatabasePath is the sqlite file holding document metadata, audit and chat.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "docpilot.db")
}

// DocumentsDir is where working copies of documents are stored.
func (c *Config) DocumentsDir() string {
	return filepath.Join(c.DataDir, "documents")
}

// IndexDir is where the paragraph vector index is persisted.
func (c *Config) IndexDir() string {
	return filepath.Join(c.DataDir, "index")
}
