package search

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/khoj/internal/domain"
	domdoc "github.com/kailas-cloud/khoj/internal/domain/document"
	"github.com/kailas-cloud/khoj/internal/domain/search/result"
	"github.com/kailas-cloud/khoj/internal/domain/search/row"
)

// --- Mocks ---

// mockStore serves a fixed corpus slice by offset/limit.
type mockStore struct {
	rows    []row.Ranked
	err     error
	calls   int
	lastQry domdoc.Query
}

func (m *mockStore) Search(_ context.Context, q domdoc.Query) ([]row.Ranked, error) {
	m.calls++
	m.lastQry = q
	if m.err != nil {
		return nil, m.err
	}
	if q.Offset >= len(m.rows) {
		return nil, nil
	}
	end := min(len(m.rows), q.Offset+q.Limit)
	out := make([]row.Ranked, end-q.Offset)
	copy(out, m.rows[q.Offset:end])
	return out, nil
}

type mockEmbedder struct {
	result   domain.EmbeddingResult
	err      error
	calls    int
	lastText string
	block    bool
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	m.lastText = text
	if m.block {
		<-ctx.Done()
		return domain.EmbeddingResult{}, ctx.Err()
	}
	return m.result, m.err
}

// mapCache is an in-memory ResultCache fake.
type mapCache struct {
	entries map[string]result.Response
	lastTTL time.Duration
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string]result.Response{}}
}

func (c *mapCache) GetOrCompute(
	ctx context.Context, key string, ttl time.Duration,
	compute func(ctx context.Context) (result.Response, error),
) (result.Response, error) {
	if r, ok := c.entries[key]; ok {
		return r, nil
	}
	r, err := compute(ctx)
	if err != nil {
		return result.Response{}, err
	}
	c.entries[key] = r
	c.lastTTL = ttl
	return r, nil
}

func corpus(n int) []row.Ranked {
	rows := make([]row.Ranked, n)
	for i := range rows {
		rows[i] = row.Ranked{
			ID:          fmt.Sprintf("doc-%03d", i),
			Title:       fmt.Sprintf("Title %d", i),
			URL:         fmt.Sprintf("https://example.com/%d", i),
			ContentText: "नेपाल को सुन्दरता",
			Lexical:     row.Some(1 - float64(i)/100),
		}
	}
	return rows
}
