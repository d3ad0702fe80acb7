package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .agrodesk.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to agrodesk! Let's configure your help desk.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select reasoning provider",
		Items: []string{"openai", "anthropic", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	// 2. Model.
	modelPrompt := promptui.Prompt{
		Label:   "Reasoning model",
		Default: DefaultModelFor(cfg.Provider),
	}
	if cfg.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	cfg.EmbeddingProvider = embeddingProviderFor(cfg.Provider)
	cfg.EmbeddingModel = DefaultEmbeddingModelFor(cfg.EmbeddingProvider)

	// 3. Knowledge base directory.
	knowledgePrompt := promptui.Prompt{
		Label:   "Knowledge base directory (.md/.txt articles)",
		Default: cfg.KnowledgeDir,
	}
	if cfg.KnowledgeDir, err = knowledgePrompt.Run(); err != nil {
		return nil, fmt.Errorf("knowledge dir: %w", err)
	}

	// 4. Database path.
	dbPrompt := promptui.Prompt{
		Label:   "Database file",
		Default: cfg.DatabasePath,
	}
	if cfg.DatabasePath, err = dbPrompt.Run(); err != nil {
		return nil, fmt.Errorf("database path: %w", err)
	}

	// 5. Server port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP port",
		Default: strconv.Itoa(cfg.Server.Port),
		Validate: func(s string) error {
			p, err := strconv.Atoi(s)
			if err != nil || p <= 0 || p > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	// 6. Ticketing mode.
	ticketingPrompt := promptui.Select{
		Label: "Where should work orders be opened?",
		Items: []string{
			"local — store work orders in the agrodesk database",
			"http  — forward work orders to an external ticketing API",
		},
	}
	modeIdx, _, err := ticketingPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("ticketing mode: %w", err)
	}
	if modeIdx == 1 {
		cfg.Ticketing.Mode = TicketingHTTP
		urlPrompt := promptui.Prompt{Label: "Ticketing API base URL"}
		if cfg.Ticketing.BaseURL, err = urlPrompt.Run(); err != nil {
			return nil, fmt.Errorf("ticketing base url: %w", err)
		}
	}

	// Check for API key.
	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" {
		if os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment before running agrodesk serve.\n", envVar)
		}
	}

	if err := cfg.Save(DefaultConfigFile); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", DefaultConfigFile)
	return cfg, nil
}

// embeddingProviderFor returns the default embedding provider for a given
// reasoning provider. OpenAI embeddings are used for all cloud providers.
func embeddingProviderFor(p ProviderType) ProviderType {
	if p == ProviderOllama {
		return ProviderOllama
	}
	return ProviderOpenAI
}
