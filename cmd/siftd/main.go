package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talentsift/talentsift/internal/config"
	"github.com/talentsift/talentsift/internal/embedder"
	"github.com/talentsift/talentsift/internal/llm"
	"github.com/talentsift/talentsift/internal/pipeline"
	"github.com/talentsift/talentsift/internal/repository"
	"github.com/talentsift/talentsift/internal/repository/postgres"
	"github.com/talentsift/talentsift/internal/rerank"
	"github.com/talentsift/talentsift/internal/retrieval"
	"github.com/talentsift/talentsift/internal/scoring"
	"github.com/talentsift/talentsift/internal/server"
	"github.com/talentsift/talentsift/internal/vectorstore"
)

func main() {
	// Set up structured logging
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting search service",
		"http_port", cfg.HTTPPort,
		"vector_backend", cfg.VectorBackend,
		"llm_provider", cfg.LLMProvider,
		"environment", cfg.Environment,
	)

	// Initialize PostgreSQL
	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	slog.Info("connected to PostgreSQL")

	candidateRepo := postgres.NewCandidateRepo(db)

	// Initialize vector store
	var vectors vectorstore.Store
	switch cfg.VectorBackend {
	case config.VectorBackendChromem:
		vectors, err = vectorstore.NewChromemStore(cfg.ChromemPath, cfg.Collection, cfg.EmbeddingDim)
		if err != nil {
			return fmt.Errorf("failed to open chromem store: %w", err)
		}
		slog.Info("opened chromem vector store", "path", cfg.ChromemPath)
	default:
		vectors, err = vectorstore.NewQdrantStore(ctx, cfg.QdrantGRPCURL, cfg.Collection, cfg.EmbeddingDim)
		if err != nil {
			return fmt.Errorf("failed to connect to Qdrant: %w", err)
		}
		slog.Info("connected to Qdrant", "collection", cfg.Collection)
	}
	defer vectors.Close()

	// Initialize embedder and LLM for the configured provider
	var embed embedder.Embedder
	var llmClient llm.Client
	switch cfg.LLMProvider {
	case config.LLMProviderOpenAI:
		embed = embedder.NewOpenAIEmbedder(embedder.OpenAIConfig{
			APIKey:    cfg.OpenAIAPIKey,
			Model:     cfg.OpenAIEmbeddingModel,
			Dimension: cfg.EmbeddingDim,
		})
		llmClient = llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAILLMModel,
		})
		slog.Info("initialized OpenAI providers", "embedding_model", cfg.OpenAIEmbeddingModel, "llm_model", cfg.OpenAILLMModel)
	default:
		embed = embedder.NewOllamaEmbedder(embedder.OllamaConfig{
			BaseURL:   cfg.OllamaURL,
			Model:     cfg.OllamaEmbeddingModel,
			Dimension: cfg.EmbeddingDim,
		})
		llmClient = llm.NewOllamaClient(
			llm.WithBaseURL(cfg.OllamaURL),
			llm.WithModel(cfg.OllamaLLMModel),
		)
		slog.Info("initialized Ollama providers", "embedding_model", cfg.OllamaEmbeddingModel, "llm_model", cfg.OllamaLLMModel)
	}
	if cfg.EmbedCacheSize > 0 {
		embed = embedder.WithCache(embed, cfg.EmbedCacheSize)
	}

	// Assemble the search pipeline
	retriever := retrieval.NewEngine(embed, vectors, candidateRepo,
		retrieval.WithThreshold(cfg.SimilarityThreshold),
	)
	scorer := scoring.NewEngine(slog.Default())
	reranker := rerank.NewEngine(llmClient, rerank.Config{
		BatchSize:   cfg.RerankBatchSize,
		Parallelism: cfg.RerankParallelism,
		FilterFloor: cfg.RerankFilterFloor,
	}, nil)
	searchPipeline := pipeline.New(retriever, scorer, candidateRepo,
		pipeline.WithReranker(reranker),
		pipeline.WithRerankBudget(cfg.RerankBudget),
	)
	indexer := pipeline.NewIndexer(embed, vectors, slog.Default())

	// Create HTTP server
	httpServer, err := server.NewHTTPServer(server.HTTPServerConfig{
		Port:           cfg.HTTPPort,
		Logger:         slog.Default(),
		AllowedOrigins: []string{"*"}, // Configure in production
		Pipeline:       searchPipeline,
		Indexer:        indexer,
		Vectors:        vectors,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// Ensure interfaces are satisfied at compile time
var (
	_ repository.CandidateStore = (*postgres.CandidateRepo)(nil)
	_ vectorstore.Store         = (*vectorstore.QdrantStore)(nil)
	_ vectorstore.Store         = (*vectorstore.ChromemStore)(nil)
	_ embedder.Embedder         = (*embedder.OllamaEmbedder)(nil)
	_ embedder.Embedder         = (*embedder.OpenAIEmbedder)(nil)
	_ embedder.Embedder         = (*embedder.Cached)(nil)
	_ llm.Client                = (*llm.OllamaClient)(nil)
	_ llm.Client                = (*llm.OpenAIClient)(nil)
)
