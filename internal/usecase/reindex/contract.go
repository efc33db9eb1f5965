package reindex

import (
	"context"

	"github.com/kailas-cloud/khoj/internal/domain"
	domdoc "github.com/kailas-cloud/khoj/internal/domain/document"
)

// Store walks documents and writes their derived columns.
type Store interface {
	ListBatch(ctx context.Context, afterID string, limit int) ([]domdoc.Source, error)
	UpdateSearchable(ctx context.Context, id, text string) error
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
