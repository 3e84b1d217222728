package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	got    []string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = append(s.got, text)
	return s.result, s.err
}

type stubBatchEmbedder struct {
	stubEmbedder
	batchCalls int
}

func (s *stubBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	s.batchCalls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return BatchEmbeddingResult{Embeddings: out, TotalTokens: len(texts)}, nil
}

func TestInstructionEmbedder_PrependsInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	emb := NewInstructionEmbedder(inner, "query: ")

	result, err := emb.Embed(context.Background(), "writ petition")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.got) != 1 || inner.got[0] != "query: writ petition" {
		t.Errorf("expected prepended text, got %q", inner.got)
	}
	if len(result.Embedding) != 3 {
		t.Errorf("expected 3-element vector, got %d", len(result.Embedding))
	}
}

func TestInstructionEmbedder_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	emb := NewInstructionEmbedder(&stubEmbedder{err: innerErr}, "query: ")

	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestBatchEmbed_UsesNativeBatch(t *testing.T) {
	inner := &stubBatchEmbedder{}

	res, err := BatchEmbed(context.Background(), inner, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.batchCalls != 1 {
		t.Errorf("expected 1 batch call, got %d", inner.batchCalls)
	}
	if len(inner.got) != 0 {
		t.Errorf("Embed should not be called, got %d calls", len(inner.got))
	}
	if len(res.Embeddings) != 3 || res.TotalTokens != 3 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestBatchEmbed_FallsBackToSingle(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{1}, PromptTokens: 2, TotalTokens: 2}}

	res, err := BatchEmbed(context.Background(), inner, []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.got) != 2 {
		t.Errorf("expected 2 single calls, got %d", len(inner.got))
	}
	if res.TotalTokens != 4 || res.PromptTokens != 4 {
		t.Errorf("expected summed usage, got %+v", res)
	}
}

func TestBatchFallback_StopsOnError(t *testing.T) {
	inner := &stubEmbedder{err: ErrEmbeddingProviderError}

	_, err := BatchFallback(context.Background(), inner, []string{"a", "b"})
	if !errors.Is(err, ErrEmbeddingProviderError) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if len(inner.got) != 1 {
		t.Errorf("expected to stop after first failure, got %d calls", len(inner.got))
	}
}
