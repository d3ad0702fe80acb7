package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/agrodesk/agrodesk/internal/config"
	"github.com/agrodesk/agrodesk/internal/db"
	"github.com/agrodesk/agrodesk/internal/embeddings"
	"github.com/agrodesk/agrodesk/internal/engine"
	"github.com/agrodesk/agrodesk/internal/knowledge"
	"github.com/agrodesk/agrodesk/internal/llm"
	"github.com/agrodesk/agrodesk/internal/session"
	"github.com/agrodesk/agrodesk/internal/ticketing"
)

// loadConfig loads and validates the configuration file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. Verbose mode switches to the
// human-readable development encoder at debug level.
func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// createEmbedder builds the embedding client from the configuration.
func createEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case config.ProviderOllama:
		host := os.Getenv("OLLAMA_HOST")
		if host == "" {
			host = "http://localhost:11434"
		}
		return embeddings.NewOllamaEmbedder(host, cfg.EmbeddingModel, 0), nil
	default:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, cfg.EmbeddingModel), nil
	}
}

// openKnowledgeStore builds the vector store and loads a previously indexed
// knowledge base, if one exists.
func openKnowledgeStore(ctx context.Context, cfg *config.Config) (*knowledge.ChromemStore, error) {
	embedder, err := createEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	store, err := knowledge.NewChromemStore(embedder)
	if err != nil {
		return nil, err
	}
	if err := store.Load(ctx, cfg.IndexDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load knowledge index from %s: %v\n", cfg.IndexDir, err)
		fmt.Fprintf(os.Stderr, "Unresolved requests will be escalated. Run `agrodesk index` first.\n")
	}
	return store, nil
}

// buildOrchestrator wires the decision engine from the configuration. The
// returned ticketing store is non-nil only in local ticketing mode.
func buildOrchestrator(ctx context.Context, cfg *config.Config, database *db.DB, logger *zap.Logger) (*engine.Orchestrator, *ticketing.Store, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, nil, fmt.Errorf("creating provider: %w", err)
	}

	store, err := openKnowledgeStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening knowledge store: %w", err)
	}

	sessions := session.NewSQLiteStore(database)

	var (
		creator ticketing.Creator
		orders  *ticketing.Store
	)
	if cfg.Ticketing.Mode == config.TicketingHTTP {
		creator = ticketing.NewHTTPClient(cfg.Ticketing.BaseURL, cfg.Ticketing.APIKey, 30*time.Second)
	} else {
		orders = ticketing.NewStore(database)
		creator = orders
	}

	sampler := rand.New(rand.NewSource(time.Now().UnixNano()))

	orch := engine.NewOrchestrator(
		engine.NewClassifier(provider, cfg.Model, logger),
		engine.NewContextEnricher(sessions, logger),
		engine.NewKnowledgeResolver(store, provider, cfg.Model, logger).WithTopK(cfg.RetrievalTopK),
		engine.NewAutomationPolicy(creator, sampler, logger),
		engine.NewExplainer(provider, cfg.Model, logger),
		sessions,
		logger,
	)
	return orch, orders, nil
}
