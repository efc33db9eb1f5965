package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/khoj/internal/config"
	"github.com/kailas-cloud/khoj/internal/db"
	dbMemory "github.com/kailas-cloud/khoj/internal/db/memory"
	dbPostgres "github.com/kailas-cloud/khoj/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/khoj/internal/db/redis"
	"github.com/kailas-cloud/khoj/internal/domain"
	logpkg "github.com/kailas-cloud/khoj/internal/logger"
	"github.com/kailas-cloud/khoj/internal/metrics"
	documentrepo "github.com/kailas-cloud/khoj/internal/repository/document"
	"github.com/kailas-cloud/khoj/internal/repository/embcache"
	"github.com/kailas-cloud/khoj/internal/repository/ratelimit"
	"github.com/kailas-cloud/khoj/internal/repository/rescache"
	chiTransport "github.com/kailas-cloud/khoj/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/khoj/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/khoj/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/khoj/internal/usecase/health"
	searchuc "github.com/kailas-cloud/khoj/internal/usecase/search"
	"github.com/kailas-cloud/khoj/internal/version"
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

	logger.Info("Starting khoj search API",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.Bool("embedding_enabled", cfg.Embedding.Enabled),
	)

	ctx := context.Background()

	// Document store
	pool, err := dbPostgres.NewPool(ctx, dbPostgres.Config{
		DSN:      cfg.Database.DSN,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close()

	if err := dbPostgres.WaitForReady(ctx, pool, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Key-value store: result cache, embedding cache, rate limiter
	store, err := openCache(cfg.Cache)
	if err != nil {
		logger.Fatal("Failed to create cache store", zap.Error(err))
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Cache not ready", zap.Error(err))
	}
	logger.Info("Connected to cache", zap.String("driver", cfg.Cache.Driver))

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	// Pass nil interfaces (not typed nil pointers) when embeddings are off.
	var (
		queryEmbedder searchuc.Embedder
		embChecker    healthuc.EmbeddingChecker
	)
	if cfg.Embedding.Enabled {
		base, embedder := buildEmbedder(cfg.Embedding, store, logger)
		queryEmbedder = embedder
		embChecker = base
		logger.Info("Embedder created",
			zap.String("provider", cfg.Embedding.Provider),
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
		)
	}

	docRepo := documentrepo.New(pool, documentrepo.Config{
		LexicalWeight:           cfg.Ranking.LexicalWeight,
		FuzzyWeight:             cfg.Ranking.FuzzyWeight,
		VectorWeight:            cfg.Ranking.VectorWeight,
		FuzzyThreshold:          cfg.Ranking.FuzzyThreshold,
		VectorDistanceThreshold: cfg.Ranking.VectorDistanceThreshold,
	})
	resultCache := rescache.New(store, metrics.SearchCacheTotal, logger)

	searchSvc := searchuc.New(docRepo, queryEmbedder, resultCache, searchuc.Config{
		Weights: searchuc.Weights{
			Lexical: cfg.Ranking.LexicalWeight,
			Fuzzy:   cfg.Ranking.FuzzyWeight,
			Vector:  cfg.Ranking.VectorWeight,
		},
		Timeout:  time.Duration(cfg.Search.TimeoutSec) * time.Second,
		CacheTTL: time.Duration(cfg.Cache.TTLSec) * time.Second,
	})
	healthSvc := healthuc.New(pool, store, embChecker)

	server := chiTransport.NewServer(searchSvc, healthSvc, logger).
		WithPagination(cfg.Search.DefaultLimit, cfg.Search.MaxLimit)

	var limiter chiTransport.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(store)
	}

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.RateLimitMiddleware(
		limiter, cfg.RateLimit.Requests, time.Duration(cfg.RateLimit.WindowSec)*time.Second, logger,
	))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

// openCache creates the key-value store for the configured driver.
func openCache(cfg config.CacheConfig) (db.Store, error) {
	switch cfg.Driver {
	case "redis", "valkey":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("%s store: %w", cfg.Driver, err)
		}
		return s, nil
	case "memory":
		s, err := dbMemory.NewStore(dbMemory.Config{Size: cfg.MemorySize})
		if err != nil {
			return nil, fmt.Errorf("memory store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction.
// The base provider is returned separately as the health checker.
func buildEmbedder(
	cfg config.EmbeddingConfig,
	store db.KVStore,
	logger *zap.Logger,
) (domain.HealthChecker, domain.Embedder) {
	// Base provider (with transport metrics built-in)
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	// Cached
	var embedder domain.Embedder = embcache.New(
		base, store, cfg.Model, time.Duration(cfg.CacheTTLSec)*time.Second,
		metrics.EmbeddingCacheTotal, logger,
	)

	// Instrumented (deadline + dimension check + logging)
	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, cfg.Provider, cfg.Model,
		embeddinguc.Options{
			Timeout:    time.Duration(cfg.TimeoutSec) * time.Second,
			Dimensions: cfg.Dimensions,
		},
		logger,
	)

	// Instruction prefix (outermost, so the cache key includes it)
	if cfg.Instruction != "" {
		return base, domain.NewInstructionEmbedder(embedder, cfg.Instruction)
	}

	return base, embedder
}
