package khoj

import (
	"context"

	"github.com/kailas-cloud/khoj/internal/domain/search/result"
)

// Embedder converts text to vector embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Weights are the fusion coefficients of the three ranking channels.
type Weights struct {
	Lexical float64
	Fuzzy   float64
	Vector  float64
}

// SearchRequest is one page request. An empty Cursor starts from the top;
// Limit <= 0 selects the default page size (10), values above 50 are clamped.
type SearchRequest struct {
	Query    string
	Cursor   string
	Limit    int
	Language string
}

// SearchResult is a single hit. Snippet is HTML with query terms wrapped in <mark>.
type SearchResult struct {
	ID      string
	Title   string
	URL     string
	Snippet string
	Score   float64
}

// SearchResponse is one page of results. ContinueCursor is empty when IsDone.
type SearchResponse struct {
	Results        []SearchResult
	ContinueCursor string
	IsDone         bool
}

func responseFromDomain(r result.Response) SearchResponse {
	out := SearchResponse{
		Results:        make([]SearchResult, len(r.Results)),
		ContinueCursor: r.ContinueCursor,
		IsDone:         r.IsDone,
	}
	for i, res := range r.Results {
		out.Results[i] = SearchResult{
			ID:      res.ID,
			Title:   res.Title,
			URL:     res.URL,
			Snippet: res.Snippet,
			Score:   res.Score,
		}
	}
	return out
}
