package config

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderOllama    ProviderType = "ollama"
)

// Config is the top-level docpilot configuration, corresponding to .docpilot.yml.
type Config struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string       `yaml:"embedding_model" koanf:"embedding_model"`
	DataDir           string       `yaml:"data_dir" koanf:"data_dir"`
	Include           []string     `yaml:"include" koanf:"include"`
	Exclude           []string     `yaml:"exclude" koanf:"exclude"`
	MaxReplacements   int          `yaml:"max_replacements" koanf:"max_replacements"`
	AllowDegraded     bool         `yaml:"allow_degraded" koanf:"allow_degraded"`
	RateLimitRPM      int          `yaml:"rate_limit_rpm" koanf:"rate_limit_rpm"`
	Server            ServerConfig `yaml:"server" koanf:"server"`
	LogLevel          string       `yaml:"log_level" koanf:"log_level"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}
