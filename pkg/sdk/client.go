package khoj

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/kailas-cloud/khoj/internal/db"
	dbMemory "github.com/kailas-cloud/khoj/internal/db/memory"
	dbPostgres "github.com/kailas-cloud/khoj/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/khoj/internal/db/redis"
	"github.com/kailas-cloud/khoj/internal/domain"
	"github.com/kailas-cloud/khoj/internal/domain/search/request"
	"github.com/kailas-cloud/khoj/internal/domain/search/result"
	"github.com/kailas-cloud/khoj/internal/metrics"
	"github.com/kailas-cloud/khoj/internal/nlp"
	documentrepo "github.com/kailas-cloud/khoj/internal/repository/document"
	"github.com/kailas-cloud/khoj/internal/repository/embcache"
	"github.com/kailas-cloud/khoj/internal/repository/rescache"
	healthuc "github.com/kailas-cloud/khoj/internal/usecase/health"
	searchuc "github.com/kailas-cloud/khoj/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultCacheTTL         = time.Hour
	defaultTimeout          = 10 * time.Second
	defaultFuzzyThreshold   = 0.3
	defaultVectorDistance   = 0.5
)

// Internal interfaces, swapped for mocks in tests.
type searchUseCase interface {
	Search(ctx context.Context, q request.Query) (result.Response, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Client is the khoj SDK entry point.
type Client struct {
	db        pinger
	cache     pinger // nil without a cache
	searchSvc searchUseCase
	healthSvc healthUseCase
	closers   []func()
	obs       *observer
}

// New creates a Client, connects to PostgreSQL and, if configured, the cache.
// The provided context is used for the initial readiness checks.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.dsn == "" {
		return nil, errors.New("khoj: postgres dsn required (use WithPostgres)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	pool, err := dbPostgres.NewPool(ctx, dbPostgres.Config{DSN: cfg.dsn, MaxConns: cfg.maxConns})
	if err != nil {
		return nil, fmt.Errorf("khoj: create pool: %w", err)
	}
	if err := dbPostgres.WaitForReady(ctx, pool, defaultReadinessTimeout); err != nil {
		pool.Close()
		return nil, fmt.Errorf("khoj: database not ready: %w", err)
	}

	var store db.Store
	if cfg.cacheDriver != "" {
		store, err = createStore(cfg)
		if err != nil {
			pool.Close()
			return nil, err
		}
		if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			store.Close()
			pool.Close()
			return nil, fmt.Errorf("khoj: cache not ready: %w", err)
		}
	}

	c := wireClient(pool, store, cfg, obs)
	c.closers = append(c.closers, pool.Close)
	return c, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.cacheDriver {
	case "redis", "valkey":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.cacheAddrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("khoj: create %s store: %w", cfg.cacheDriver, err)
		}
		return s, nil
	case "memory":
		s, err := dbMemory.NewStore(dbMemory.Config{Size: cfg.memorySize})
		if err != nil {
			return nil, fmt.Errorf("khoj: create memory store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("khoj: unknown cache driver %q", cfg.cacheDriver)
	}
}

// querier is what the client needs from the pool (*pgxpool.Pool).
type querier interface {
	Ping(ctx context.Context) error
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// modeler is optionally implemented by an Embedder to scope cached vectors.
type modeler interface {
	Model() string
}

const defaultEmbeddingModel = "default"

func wireClient(q querier, store db.Store, cfg *clientConfig, obs *observer) *Client {
	w := searchuc.DefaultWeights()
	if cfg.weights != (Weights{}) {
		w = searchuc.Weights{Lexical: cfg.weights.Lexical, Fuzzy: cfg.weights.Fuzzy, Vector: cfg.weights.Vector}
	}
	ttl := cfg.cacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	timeout := cfg.timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	fuzzy, vector := cfg.fuzzyThreshold, cfg.vectorDistanceThreshold
	if fuzzy <= 0 {
		fuzzy = defaultFuzzyThreshold
	}
	if vector <= 0 {
		vector = defaultVectorDistance
	}

	repo := documentrepo.New(q, documentrepo.Config{
		LexicalWeight:           w.Lexical,
		FuzzyWeight:             w.Fuzzy,
		VectorWeight:            w.Vector,
		FuzzyThreshold:          fuzzy,
		VectorDistanceThreshold: vector,
	})

	// Internal services log through zap; the SDK reports through its observer.
	nop := zap.NewNop()

	// Nil interfaces, not typed nil pointers, when a component is absent.
	var (
		embedder  searchuc.Embedder
		cache     searchuc.ResultCache
		cachePing healthuc.Pinger
		closers   []func()
	)
	if cfg.embedder != nil {
		var e domain.Embedder = &embedderAdapter{inner: cfg.embedder}
		if store != nil {
			model := defaultEmbeddingModel
			if m, ok := cfg.embedder.(modeler); ok {
				model = m.Model()
			}
			e = embcache.New(e, store, model, ttl, metrics.EmbeddingCacheTotal, nop)
		}
		embedder = e
	}
	if store != nil {
		cache = rescache.New(store, metrics.SearchCacheTotal, nop)
		cachePing = store
		closers = append(closers, store.Close)
	}

	return &Client{
		db:        q,
		cache:     cachePing,
		searchSvc: searchuc.New(repo, embedder, cache, searchuc.Config{Weights: w, Timeout: timeout, CacheTTL: ttl}),
		healthSvc: healthuc.New(q, cachePing, nil),
		closers:   closers,
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	for _, closeFn := range c.closers {
		closeFn()
	}
	c.closers = nil
}

// Ping checks database and cache connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.db.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if c.cache != nil {
		if err = c.cache.Ping(ctx); err != nil {
			return fmt.Errorf("ping cache: %w", err)
		}
	}
	return nil
}

// Search returns one page of results for req.
func (c *Client) Search(ctx context.Context, req SearchRequest) (resp SearchResponse, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	q, err := request.New(req.Query, req.Limit, req.Cursor, req.Language, request.MaxLimit)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("khoj: %w", err)
	}

	r, err := c.searchSvc.Search(ctx, q)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("khoj: search: %w", err)
	}
	return responseFromDomain(r), nil
}

// Process returns the normalised, stopword-filtered, stemmed form of text,
// exactly as queries are processed before matching.
func Process(text string) string {
	return nlp.Process(text)
}

// Process is a method form of the package-level Process.
func (c *Client) Process(text string) string {
	return nlp.Process(text)
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}
