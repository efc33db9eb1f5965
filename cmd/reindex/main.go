package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/khoj/internal/config"
	dbPostgres "github.com/kailas-cloud/khoj/internal/db/postgres"
	"github.com/kailas-cloud/khoj/internal/domain"
	logpkg "github.com/kailas-cloud/khoj/internal/logger"
	"github.com/kailas-cloud/khoj/internal/nlp"
	documentrepo "github.com/kailas-cloud/khoj/internal/repository/document"
	openaiEmb "github.com/kailas-cloud/khoj/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/khoj/internal/usecase/embedding"
	reindexuc "github.com/kailas-cloud/khoj/internal/usecase/reindex"
	"github.com/kailas-cloud/khoj/internal/version"
)

var (
	// Global flags
	env     string
	verbose bool

	// Run command flags
	embeddings bool
	dryRun     bool
	batchSize  int
	workers    int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "reindex",
	Short:   "Maintain derived search columns of crawled documents",
	Version: version.Version,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Recompute searchable_text and optionally backfill embeddings",
	Long: `Walk the documents table in id order and rewrite searchable_text with the
current query pipeline, so stored text and incoming queries are normalised,
filtered and stemmed the same way.

With --embeddings, documents without an embedding get one computed from the
processed text. Failures on single documents are logged and counted.

Examples:
  # Rewrite searchable_text for every document
  reindex run

  # Also backfill missing embeddings, 8 documents at a time
  reindex run --embeddings --workers 8

  # Report what would change without writing
  ENV=prod reindex run --embeddings --dry-run`,
	RunE: runReindex,
}

var processCmd = &cobra.Command{
	Use:   "process <text>",
	Short: "Print the processed form of text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), nlp.Process(args[0]))
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", config.GetEnv(), "config environment (local, dev, prod)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	runCmd.Flags().BoolVar(&embeddings, "embeddings", false, "backfill missing embeddings")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "count work without writing")
	runCmd.Flags().IntVar(&batchSize, "batch-size", 0, "documents per batch (default from config)")
	runCmd.Flags().IntVar(&workers, "workers", 0, "concurrent documents per batch (default from config)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(processCmd)
}

func runReindex(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logger, err := logpkg.NewLogger(env, level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	// Setup context for graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := dbPostgres.NewPool(ctx, dbPostgres.Config{
		DSN:      cfg.Database.DSN,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	defer pool.Close()

	if err := dbPostgres.WaitForReady(ctx, pool, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}

	rcfg := reindexuc.Config{
		BatchSize:  firstPositive(batchSize, cfg.Reindex.BatchSize),
		Workers:    firstPositive(workers, cfg.Reindex.Workers),
		EmbedChars: cfg.Reindex.EmbedChars,
		Embeddings: embeddings,
		DryRun:     dryRun,
	}

	var embedder reindexuc.Embedder
	if embeddings {
		if !cfg.Embedding.Enabled {
			return fmt.Errorf("--embeddings requires embedding.enabled in config %q", env)
		}
		embedder = documentEmbedder(cfg.Embedding, logger)
	}

	repo := documentrepo.New(pool, documentrepo.Config{})
	svc := reindexuc.New(repo, embedder, rcfg, logger)

	logger.Info("Starting reindex",
		zap.String("version", version.Version),
		zap.String("env", env),
		zap.Int("batch_size", rcfg.BatchSize),
		zap.Int("workers", rcfg.Workers),
		zap.Bool("embeddings", rcfg.Embeddings),
		zap.Bool("dry_run", rcfg.DryRun),
	)

	start := time.Now()
	stats, err := svc.Run(ctx)
	logger.Info("Reindex finished",
		zap.Int64("scanned", stats.Scanned),
		zap.Int64("updated", stats.Updated),
		zap.Int64("embedded", stats.Embedded),
		zap.Int64("failed", stats.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	if stats.Failed > 0 {
		return fmt.Errorf("reindex: %d documents failed", stats.Failed)
	}
	return nil
}

// documentEmbedder builds OpenAI -> Instrumented. Document vectors bypass the
// query embedding cache.
func documentEmbedder(cfg config.EmbeddingConfig, logger *zap.Logger) domain.Embedder {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})
	return embeddinguc.NewInstrumentedEmbedder(
		base, cfg.Provider, cfg.Model,
		embeddinguc.Options{
			Timeout:    time.Duration(cfg.TimeoutSec) * time.Second,
			Dimensions: cfg.Dimensions,
		},
		logger,
	)
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
