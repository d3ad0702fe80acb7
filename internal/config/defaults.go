package config

// defaultModels maps each provider to its default reasoning and embedding
// models.
var defaultModels = map[ProviderType]struct {
	Model          string
	EmbeddingModel string
}{
	ProviderOpenAI:    {Model: "gpt-4o-mini", EmbeddingModel: "text-embedding-3-small"},
	ProviderAnthropic: {Model: "claude-sonnet-4-5-20250929", EmbeddingModel: "text-embedding-3-small"},
	ProviderOllama:    {Model: "llama3", EmbeddingModel: "nomic-embed-text"},
}

// DefaultModelFor returns the default reasoning model for a provider.
func DefaultModelFor(p ProviderType) string {
	if m, ok := defaultModels[p]; ok {
		return m.Model
	}
	return defaultModels[ProviderOpenAI].Model
}

// DefaultEmbeddingModelFor returns the default embedding model for a
// provider.
func DefaultEmbeddingModelFor(p ProviderType) string {
	if m, ok := defaultModels[p]; ok {
		return m.EmbeddingModel
	}
	return defaultModels[ProviderOpenAI].EmbeddingModel
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderOpenAI,
		Model:             DefaultModelFor(ProviderOpenAI),
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingModel:    DefaultEmbeddingModelFor(ProviderOpenAI),
		KnowledgeDir:      "knowledge",
		IndexDir:          ".",
		DatabasePath:      "agrodesk.db",
		RetrievalTopK:     5,
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			CORSOrigins: []string{"*"},
		},
		Ticketing: TicketingConfig{
			Mode: TicketingLocal,
		},
	}
}
