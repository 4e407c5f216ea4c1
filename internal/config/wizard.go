package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to docpilot! Let's configure your workspace.")
	fmt.Println()

	cfg := DefaultConfig()

	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"anthropic", "openai", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	preset := GetPreset(cfg.Provider)
	cfg.EmbeddingProvider = preset.EmbeddingProvider
	cfg.EmbeddingModel = preset.EmbeddingModel

	modelPrompt := promptui.Prompt{
		Label:   "Model",
		Default: preset.Model,
	}
	if cfg.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	dataPrompt := promptui.Prompt{
		Label:   "Data directory for documents and the index",
		Default: cfg.DataDir,
	}
	if cfg.DataDir, err = dataPrompt.Run(); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	includePrompt := promptui.Prompt{
		Label:   "Include patterns for batch commands (comma-separated globs)",
		Default: strings.Join(cfg.Include, ","),
	}
	includeStr, err := includePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("include patterns: %w", err)
	}
	if include := splitAndTrim(includeStr); len(include) > 0 {
		cfg.Include = include
	}

	degradedPrompt := promptui.Select{
		Label: "When formatting cannot be preserved",
		Items: []string{
			"refuse the edit",
			"replace the paragraph text and drop its formatting",
		},
	}
	idx, _, err := degradedPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("degraded mode: %w", err)
	}
	cfg.AllowDegraded = idx == 1

	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment before running docpilot.\n", envVar)
	}
	if cfg.EmbeddingProvider == ProviderOpenAI && cfg.Provider != ProviderOpenAI && os.Getenv("OPENAI_API_KEY") == "" {
		fmt.Println("Note: Set OPENAI_API_KEY to enable semantic search.")
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

// splitAndTrim splits a comma-separated string and drops empty entries.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
