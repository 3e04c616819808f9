package bootstrap

import (
	"context"
	"fmt"

	"tara-tutor-be/internal/config"
	"tara-tutor-be/internal/constant"
	"tara-tutor-be/internal/pkg/logger"
	"tara-tutor-be/internal/repository/memory"
	"tara-tutor-be/pkg/database"
	"tara-tutor-be/pkg/embedding"
	"tara-tutor-be/pkg/index"
	memindex "tara-tutor-be/pkg/index/memory"
	"tara-tutor-be/pkg/index/pgvector"
	"tara-tutor-be/pkg/ingest"
	"tara-tutor-be/pkg/llm/factory"
	"tara-tutor-be/pkg/rag/response"
	"tara-tutor-be/pkg/rag/search"
	"tara-tutor-be/pkg/rag/state"
	"tara-tutor-be/pkg/store"
	"tara-tutor-be/pkg/tutor"
)

// NewEngine assembles the tutoring engine from configuration. The returned function releases
// the index backend.
func NewEngine(ctx context.Context, cfg *config.Config, sysLogger logger.ILogger) (*tutor.Engine, func(), error) {
	embedder, err := embedding.NewProvider(cfg.Ai.EmbeddingProvider, cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel, cfg.EmbeddingAPIKey())
	if err != nil {
		return nil, nil, err
	}
	sysLogger.Info("Bootstrap", "Embedding provider selected", map[string]interface{}{"provider": cfg.Ai.EmbeddingProvider})

	llmProvider, err := factory.NewLLMProvider(ctx, factory.Config{
		Provider:    cfg.Ai.LLMProvider,
		Model:       cfg.Ai.LLMModel,
		BaseURL:     llmBaseURL(cfg),
		APIKey:      cfg.Keys.OpenAI,
		Temperature: cfg.Ai.Temperature,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init LLM provider: %w", err)
	}
	sysLogger.Info("Bootstrap", "LLM provider selected", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	indexer, closeIndex, err := newIndexBuilder(ctx, cfg, embedder, sysLogger)
	if err != nil {
		return nil, nil, err
	}

	sessions := memory.NewSessionRepository(cfg.Tutor.SessionTTL, string(state.StageInitial))

	engine := tutor.NewEngine(tutor.Deps{
		Sessions:  sessions,
		Parser:    ingest.NewParser(cfg.Tutor.ChunkSize, cfg.Tutor.ChunkOverlap, nil, sysLogger),
		Indexer:   indexer,
		Generator: response.NewGenerator(llmProvider, cfg.Ai.GeneratorTimeout, sysLogger),
		Logger:    sysLogger,
		Search: search.Config{
			TopK:          cfg.Tutor.RetrievalTopK,
			HistoryWindow: constant.RetrievalHistoryWindow,
		},
	})

	// expired or deleted sessions give back their index
	sessions.OnEvicted(func(s *store.Session) {
		engine.Release(context.Background(), s)
	})

	return engine, closeIndex, nil
}

// llmBaseURL lets the Ollama chat model share the embedding host unless LLM_BASE_URL is set.
func llmBaseURL(cfg *config.Config) string {
	if cfg.Ai.LLMBaseURL != "" || cfg.Ai.LLMProvider == "openai" {
		return cfg.Ai.LLMBaseURL
	}
	return cfg.Ai.OllamaBaseURL
}

func newIndexBuilder(ctx context.Context, cfg *config.Config, embedder embedding.EmbeddingProvider, sysLogger logger.ILogger) (index.Builder, func(), error) {
	switch cfg.Tutor.IndexBackend {
	case "memory", "":
		return memindex.NewBuilder(embedder, cfg.Tutor.EmbedConcurrency), func() {}, nil

	case "pgvector":
		db, err := database.NewGormDBFromDSN(ctx, cfg.Database.Connection, !cfg.IsProduction())
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := pgvector.Migrate(db); err != nil {
			return nil, nil, fmt.Errorf("migrate document fragments: %w", err)
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
		sysLogger.Info("Bootstrap", "Using pgvector index backend", nil)
		return pgvector.NewBuilder(db, embedder, cfg.Tutor.EmbedConcurrency, sysLogger), closeDB, nil

	default:
		return nil, nil, fmt.Errorf("unsupported index backend: %s", cfg.Tutor.IndexBackend)
	}
}
