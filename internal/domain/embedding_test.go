package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	got    string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = text
	return s.result, s.err
}

func TestInstructionEmbedder_PrependsInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	emb := NewInstructionEmbedder(inner, "query: ")

	result, err := emb.Embed(context.Background(), "नेपाल सुन्दरता")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "query: नेपाल सुन्दरता" {
		t.Errorf("expected prepended text, got %q", inner.got)
	}
	if len(result.Embedding) != 3 {
		t.Errorf("expected 3-element vector, got %d", len(result.Embedding))
	}
}

func TestInstructionEmbedder_ErrorPropagation(t *testing.T) {
	inner := &stubEmbedder{err: ErrEmbeddingProviderError}
	emb := NewInstructionEmbedder(inner, "query: ")

	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, ErrEmbeddingProviderError) {
		t.Errorf("expected wrapped provider error, got %v", err)
	}
}

func TestEmbeddingUsage(t *testing.T) {
	if u := UsageFromContext(context.Background()); u != nil {
		t.Fatalf("expected nil usage without collector, got %+v", u)
	}
	// nil receiver must be safe
	UsageFromContext(context.Background()).AddTokens(5)

	ctx, usage := NewContextWithUsage(context.Background())
	UsageFromContext(ctx).AddTokens(7)
	UsageFromContext(ctx).AddTokens(0)

	if usage.TotalTokens != 7 {
		t.Errorf("TotalTokens = %d, want 7", usage.TotalTokens)
	}
	if !usage.Used {
		t.Error("Used = false, want true")
	}
}
