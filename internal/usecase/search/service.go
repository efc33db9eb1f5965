package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/khoj/internal/domain"
	domdoc "github.com/kailas-cloud/khoj/internal/domain/document"
	"github.com/kailas-cloud/khoj/internal/domain/search/request"
	"github.com/kailas-cloud/khoj/internal/domain/search/result"
	"github.com/kailas-cloud/khoj/internal/logger"
	"github.com/kailas-cloud/khoj/internal/nlp"
)

// Config tunes the search pipeline.
type Config struct {
	Weights  Weights
	Timeout  time.Duration // bounds the whole compute path; 0 disables
	CacheTTL time.Duration
}

// Service runs hybrid search: query processing, optional query embedding,
// store lookup, fusion and pagination, memoised by the result cache.
type Service struct {
	store DocumentStore
	embed Embedder
	cache ResultCache
	cfg   Config
}

// New creates a search service. embed and cache may be nil: without an
// embedder the vector channel is off, without a cache every request computes.
func New(store DocumentStore, embed Embedder, cache ResultCache, cfg Config) *Service {
	return &Service{store: store, embed: embed, cache: cache, cfg: cfg}
}

// Search returns one page of results for q.
func (s *Service) Search(ctx context.Context, q request.Query) (result.Response, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	compute := func(ctx context.Context) (result.Response, error) {
		return s.compute(ctx, q)
	}

	if s.cache == nil {
		return compute(ctx)
	}

	resp, err := s.cache.GetOrCompute(ctx, CacheKey(q), s.cfg.CacheTTL, compute)
	if err != nil {
		return result.Response{}, err //nolint:wrapcheck // compute errors are already wrapped
	}
	return resp, nil
}

func (s *Service) compute(ctx context.Context, q request.Query) (result.Response, error) {
	term := nlp.Process(q.Q())
	logger.FromContext(ctx).Debug("Processed query",
		zap.String("q", q.Q()),
		zap.String("term", term),
	)

	var embedding []float32
	if s.embed != nil {
		res, err := s.embed.Embed(ctx, term)
		if err != nil {
			if ctx.Err() != nil {
				return result.Response{}, fmt.Errorf("vectorize query: %w", ctx.Err())
			}
			return result.Response{}, fmt.Errorf("%w: vectorize query: %w", domain.ErrEmbeddingProviderError, err)
		}
		domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
		embedding = res.Embedding
	}

	rows, err := s.store.Search(ctx, domdoc.Query{
		Term:      term,
		Embedding: embedding,
		Language:  q.Language(),
		Offset:    q.Offset(),
		Limit:     q.Limit(),
	})
	if err != nil {
		return result.Response{}, fmt.Errorf("search documents: %w", err)
	}

	results := Rank(rows, q.Q(), s.cfg.Weights)
	cursor, done := Paginate(q.Offset(), q.Limit(), len(results))

	return result.Response{
		Results:        results,
		ContinueCursor: cursor,
		IsDone:         done,
	}, nil
}
