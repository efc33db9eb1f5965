package search

import (
	"context"
	"time"

	"github.com/kailas-cloud/khoj/internal/domain"
	domdoc "github.com/kailas-cloud/khoj/internal/domain/document"
	"github.com/kailas-cloud/khoj/internal/domain/search/result"
	"github.com/kailas-cloud/khoj/internal/domain/search/row"
)

// DocumentStore returns candidate rows with per-channel ranks, already
// filtered to plausible matches and ordered by fused score.
type DocumentStore interface {
	Search(ctx context.Context, q domdoc.Query) ([]row.Ranked, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// ResultCache memoises whole responses.
type ResultCache interface {
	GetOrCompute(
		ctx context.Context, key string, ttl time.Duration,
		compute func(ctx context.Context) (result.Response, error),
	) (result.Response, error)
}
