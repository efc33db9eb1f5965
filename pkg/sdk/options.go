package khoj

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	dsn      string
	maxConns int

	cacheDriver string // "redis", "valkey", "memory" or "" (no cache)
	cacheAddrs  []string
	password    string
	memorySize  int
	cacheTTL    time.Duration

	embedder Embedder

	weights                 Weights
	fuzzyThreshold          float64
	vectorDistanceThreshold float64
	timeout                 time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithPostgres sets the document store connection string. Required.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.dsn = dsn
	})
}

// WithMaxConns caps the PostgreSQL pool size. Default: 10.
func WithMaxConns(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxConns = n
	})
}

// WithRedis caches results (and query embeddings) in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "redis"
		c.cacheAddrs = []string{addr}
		c.password = password
	})
}

// WithValkey caches results (and query embeddings) in a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "valkey"
		c.cacheAddrs = []string{addr}
		c.password = password
	})
}

// WithMemoryCache caches results in process memory, bounded to size entries.
func WithMemoryCache(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "memory"
		c.memorySize = size
	})
}

// WithCacheTTL sets how long cached results and query embeddings live. Default: 1h.
func WithCacheTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = ttl
	})
}

// WithEmbedder enables the vector channel. Without it search is lexical and fuzzy only.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithWeights overrides the fusion weights. Default: 0.4 lexical, 0.2 fuzzy, 0.4 vector.
func WithWeights(w Weights) Option {
	return optionFunc(func(c *clientConfig) {
		c.weights = w
	})
}

// WithThresholds sets the trigram similarity floor and the cosine distance ceiling
// for fuzzy and vector candidates. Defaults: 0.3 and 0.5.
func WithThresholds(fuzzySimilarity, vectorDistance float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.fuzzyThreshold = fuzzySimilarity
		c.vectorDistanceThreshold = vectorDistance
	})
}

// WithTimeout bounds each Search call. Default: 10s. Zero or negative keeps the default.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
