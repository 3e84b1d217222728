package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/paralegal/internal/backoff"
	"github.com/kailas-cloud/paralegal/internal/config"
	dbRedis "github.com/kailas-cloud/paralegal/internal/db/redis"
	"github.com/kailas-cloud/paralegal/internal/domain"
	"github.com/kailas-cloud/paralegal/internal/domain/strategy"
	logpkg "github.com/kailas-cloud/paralegal/internal/logger"
	"github.com/kailas-cloud/paralegal/internal/metrics"
	chunkrepo "github.com/kailas-cloud/paralegal/internal/repository/chunk"
	"github.com/kailas-cloud/paralegal/internal/repository/embcache"
	chiTransport "github.com/kailas-cloud/paralegal/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/paralegal/internal/transport/openai"
	chatuc "github.com/kailas-cloud/paralegal/internal/usecase/chat"
	"github.com/kailas-cloud/paralegal/internal/usecase/classify"
	"github.com/kailas-cloud/paralegal/internal/usecase/compose"
	embeddinguc "github.com/kailas-cloud/paralegal/internal/usecase/embedding"
	"github.com/kailas-cloud/paralegal/internal/usecase/expand"
	generationuc "github.com/kailas-cloud/paralegal/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/paralegal/internal/usecase/health"
	"github.com/kailas-cloud/paralegal/internal/usecase/keyword"
	"github.com/kailas-cloud/paralegal/internal/usecase/prompt"
	strategyuc "github.com/kailas-cloud/paralegal/internal/usecase/strategy"
	"github.com/kailas-cloud/paralegal/internal/usecase/vector"
	"github.com/kailas-cloud/paralegal/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting paralegal API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()
	metrics.RegisterRetrievalMetrics()
	metrics.RegisterIngestMetrics()

	policy := backoff.Policy{
		Attempts: cfg.Retry.Attempts,
		Delay:    time.Duration(cfg.Retry.DelayMS) * time.Millisecond,
		MaxDelay: time.Duration(cfg.Retry.MaxDelayMS) * time.Millisecond,
	}

	embBase, embedder := buildEmbedder(cfg, store, policy, logger)
	var queryEmbedder domain.Embedder = embedder
	if cfg.Embedding.QueryInstruction != "" {
		// Outermost so the cache key includes the instruction
		queryEmbedder = domain.NewInstructionEmbedder(embedder, cfg.Embedding.QueryInstruction)
	}
	genBase, generator := buildGenerator(cfg, policy, logger)
	logger.Info("Providers created",
		zap.String("embedding_provider", cfg.Embedding.Name),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.String("generation_provider", cfg.Generation.Name),
		zap.String("generation_model", cfg.Generation.Model),
	)

	repo := chunkrepo.New(store, chunkrepo.Config{
		KeyPrefix: cfg.Storage.KeyPrefix,
		VectorDim: cfg.Embedding.Dimensions,
		HNSW: chunkrepo.HNSWConfig{
			M:           cfg.Storage.HNSWM,
			EFConstruct: cfg.Storage.HNSWEFConstruct,
		},
	}, metrics.MalformedChunksTotal)

	composer, err := buildComposer(cfg)
	if err != nil {
		logger.Fatal("Failed to load tokenizer", zap.Error(err))
	}

	defaultStyle, _ := strategy.ParseStyle(cfg.Strategy.DefaultStyle) // validated by config

	chatSvc := chatuc.New(chatuc.Deps{
		Classifier: classify.New(),
		Expander:   expand.New(),
		Namespaces: repo,
		Keyword:    keyword.New(repo, cfg.Retrieval.EnumerateBatch),
		Vector: vector.New(queryEmbedder, repo, vector.Options{
			EmbedTimeout:   config.Seconds(cfg.Timeouts.EmbeddingSec),
			QueryTimeout:   config.Seconds(cfg.Timeouts.VectorQuerySec),
			MaxParallelism: cfg.Retrieval.MaxParallelism,
		}),
		Selector:  strategyuc.New(defaultStyle),
		Composer:  composer,
		Prompts:   prompt.MustNew(),
		Generator: generator,
	}, chatuc.Options{
		KeywordTopK:       cfg.Retrieval.KeywordTopK,
		VectorTopK:        cfg.Retrieval.VectorTopK,
		FusedTopK:         cfg.Retrieval.FusedTopK,
		MaxParallelism:    cfg.Retrieval.MaxParallelism,
		ListTimeout:       config.Seconds(cfg.Timeouts.ListNamespacesSec),
		EnumerateTimeout:  config.Seconds(cfg.Timeouts.EnumerateSec),
		GenerationTimeout: config.Seconds(cfg.Timeouts.GenerationSec),
		MaxTokens:         cfg.Generation.MaxTokens,
		Temperature:       cfg.Generation.Temperature,
	})

	healthSvc := healthuc.New(store, map[string]healthuc.ProviderChecker{
		"embedding":  embBase,
		"generation": genBase,
	})

	server := chiTransport.NewServer(chatSvc, healthSvc, logger)
	handler := chiTransport.NewRouter(server, logger, cfg.Auth.APIKeys)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Retry -> Cached -> Instrumented.
// The bare provider is returned for health checks.
func buildEmbedder(
	cfg config.Config,
	store *dbRedis.Store,
	policy backoff.Policy,
	logger *zap.Logger,
) (*openaiTransport.Embedder, domain.Embedder) {
	ec := cfg.Embedding

	// Base provider (with transport metrics built-in)
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     ec.APIKey,
		BaseURL:    ec.BaseURL,
		Model:      ec.Model,
		Dimensions: ec.Dimensions,
		Provider:   ec.Name,
		Logger:     logger,
	})

	var embedder domain.Embedder = embeddinguc.NewRetryingEmbedder(base, policy, ec.Name, logger)

	// Cached after retry so that only successful vectors are stored
	embedder = embcache.New(embedder, store, metrics.EmbeddingCacheTotal, logger, embcache.Options{
		KeyPrefix: cfg.Storage.KeyPrefix,
		Model:     ec.Model,
		TTL:       time.Duration(cfg.Storage.CacheTTLHours) * time.Hour,
	})

	return base, embeddinguc.NewInstrumentedEmbedder(embedder, ec.Name, ec.Model, ec.MaxBatch, logger)
}

func buildGenerator(
	cfg config.Config,
	policy backoff.Policy,
	logger *zap.Logger,
) (*openaiTransport.Generator, domain.Generator) {
	gc := cfg.Generation
	base := openaiTransport.NewGenerator(&openaiTransport.Config{
		APIKey:   gc.APIKey,
		BaseURL:  gc.BaseURL,
		Model:    gc.Model,
		Provider: gc.Name,
		Logger:   logger,
	}, gc.SystemPrompt)
	return base, generationuc.NewRetryingGenerator(base, policy, gc.Model, logger)
}

// buildComposer loads a tokenizer only when a context budget is configured.
func buildComposer(cfg config.Config) (*compose.Composer, error) {
	if cfg.Compose.MaxContextTokens <= 0 {
		return compose.New(nil, 0), nil
	}
	counter, err := compose.NewTiktokenCounter(cfg.Compose.Encoding)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: %w", err)
	}
	return compose.New(counter, cfg.Compose.MaxContextTokens), nil
}
