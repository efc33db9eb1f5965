package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/khoj/internal/domain"
)

type mockEmbedder struct {
	result      domain.EmbeddingResult
	err         error
	block       bool
	sawDeadline bool
}

func (m *mockEmbedder) Embed(ctx context.Context, _ string) (domain.EmbeddingResult, error) {
	_, m.sawDeadline = ctx.Deadline()
	if m.block {
		<-ctx.Done()
		return domain.EmbeddingResult{}, ctx.Err()
	}
	return m.result, m.err
}

func TestInstrumentedEmbedder_Success(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:   []float32{0.1, 0.2, 0.3},
		TotalTokens: 7,
	}}
	p := NewInstrumentedEmbedder(inner, "openai", "test-model", Options{Dimensions: 3}, zap.NewNop())

	result, err := p.Embed(context.Background(), "नेपाल")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.TotalTokens != 7 {
		t.Errorf("unexpected result: %+v", result)
	}
	if inner.sawDeadline {
		t.Error("no deadline expected without timeout")
	}
}

func TestInstrumentedEmbedder_Error(t *testing.T) {
	errProvider := errors.New("provider down")
	p := NewInstrumentedEmbedder(&mockEmbedder{err: errProvider}, "openai", "m", Options{}, zap.NewNop())

	_, err := p.Embed(context.Background(), "x")
	if !errors.Is(err, errProvider) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
}

func TestInstrumentedEmbedder_Timeout(t *testing.T) {
	inner := &mockEmbedder{block: true}
	p := NewInstrumentedEmbedder(inner, "openai", "m", Options{Timeout: 20 * time.Millisecond}, zap.NewNop())

	_, err := p.Embed(context.Background(), "x")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if !inner.sawDeadline {
		t.Error("inner should receive a deadline")
	}
}

func TestInstrumentedEmbedder_DimensionMismatch(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 2}}}
	p := NewInstrumentedEmbedder(inner, "openai", "m", Options{Dimensions: 3}, zap.NewNop())

	if _, err := p.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected dimension error")
	}
}
