// Package reindex recomputes the derived search columns of stored documents.
package reindex

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	domdoc "github.com/kailas-cloud/khoj/internal/domain/document"
	"github.com/kailas-cloud/khoj/internal/nlp"
)

// Defaults applied when Config leaves a field unset.
const (
	DefaultBatchSize  = 100
	DefaultWorkers    = 4
	DefaultEmbedChars = 1000
)

// Config controls a reindex run.
type Config struct {
	BatchSize  int
	Workers    int
	EmbedChars int  // runes of processed text sent to the embedder
	Embeddings bool // backfill missing embeddings
	DryRun     bool // count work without writing
}

// Stats summarises a run.
type Stats struct {
	Scanned  int64
	Updated  int64
	Embedded int64
	Failed   int64
}

// Service rewrites searchable_text with the current query pipeline and
// optionally backfills embeddings, so stored documents and incoming queries
// are processed identically.
type Service struct {
	store  Store
	embed  Embedder
	cfg    Config
	logger *zap.Logger
}

// New creates a reindex service. embed may be nil when cfg.Embeddings is false.
func New(store Store, embed Embedder, cfg Config, logger *zap.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.EmbedChars <= 0 {
		cfg.EmbedChars = DefaultEmbedChars
	}
	return &Service{store: store, embed: embed, cfg: cfg, logger: logger}
}

type counters struct {
	scanned, updated, embedded, failed atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Scanned:  c.scanned.Load(),
		Updated:  c.updated.Load(),
		Embedded: c.embedded.Load(),
		Failed:   c.failed.Load(),
	}
}

// Run walks all documents in id order. Per-document failures are logged and
// counted; listing failures and cancellation abort the run.
func (s *Service) Run(ctx context.Context) (Stats, error) {
	if s.cfg.Embeddings && s.embed == nil {
		return Stats{}, fmt.Errorf("embedding backfill requested without an embedder")
	}

	var c counters
	afterID := ""
	for {
		batch, err := s.store.ListBatch(ctx, afterID, s.cfg.BatchSize)
		if err != nil {
			return c.snapshot(), fmt.Errorf("list after %q: %w", afterID, err)
		}
		if len(batch) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.cfg.Workers)
		for _, doc := range batch {
			g.Go(func() error {
				s.process(gctx, doc, &c)
				return gctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			return c.snapshot(), fmt.Errorf("process batch: %w", err)
		}

		s.logger.Info("Reindexed batch",
			zap.String("after_id", afterID),
			zap.Int("size", len(batch)),
			zap.Int64("scanned", c.scanned.Load()),
			zap.Int64("failed", c.failed.Load()),
		)

		afterID = batch[len(batch)-1].ID
		if len(batch) < s.cfg.BatchSize {
			break
		}
	}
	return c.snapshot(), nil
}

func (s *Service) process(ctx context.Context, doc domdoc.Source, c *counters) {
	c.scanned.Add(1)
	text := nlp.Process(doc.ContentText)
	needsEmbedding := s.cfg.Embeddings && !doc.HasEmbedding

	if s.cfg.DryRun {
		c.updated.Add(1)
		if needsEmbedding {
			c.embedded.Add(1)
		}
		return
	}

	if err := s.store.UpdateSearchable(ctx, doc.ID, text); err != nil {
		c.failed.Add(1)
		s.logger.Warn("Failed to update searchable text", zap.String("id", doc.ID), zap.Error(err))
		return
	}
	c.updated.Add(1)

	if !needsEmbedding {
		return
	}

	res, err := s.embed.Embed(ctx, truncateRunes(text, s.cfg.EmbedChars))
	if err != nil {
		c.failed.Add(1)
		s.logger.Warn("Failed to embed document", zap.String("id", doc.ID), zap.Error(err))
		return
	}
	if err := s.store.UpdateEmbedding(ctx, doc.ID, res.Embedding); err != nil {
		c.failed.Add(1)
		s.logger.Warn("Failed to store embedding", zap.String("id", doc.ID), zap.Error(err))
		return
	}
	c.embedded.Add(1)
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
