package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/paralegal/internal/backoff"
	"github.com/kailas-cloud/paralegal/internal/domain"
	"github.com/kailas-cloud/paralegal/internal/metrics"
)

var fastPolicy = backoff.Policy{Attempts: 3, Delay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

// flakyEmbedder fails the first n calls with err.
type flakyEmbedder struct {
	failures int
	err      error
	calls    int
}

func (f *flakyEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return domain.EmbeddingResult{}, f.err
	}
	return domain.EmbeddingResult{Embedding: []float32{1}, TotalTokens: 1}, nil
}

func TestRetryingEmbedder_RecoversFromTransient(t *testing.T) {
	inner := &flakyEmbedder{failures: 2, err: fmt.Errorf("503: %w", domain.ErrEmbeddingProviderError)}
	r := NewRetryingEmbedder(inner, fastPolicy, "retry-ok", zap.NewNop())

	res, err := r.Embed(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embedding) != 1 || inner.calls != 3 {
		t.Errorf("calls = %d", inner.calls)
	}
	if got := testutil.ToFloat64(metrics.EmbeddingRetriesTotal.WithLabelValues("retry-ok")); got != 2 {
		t.Errorf("retries metric = %v, want 2", got)
	}
}

func TestRetryingEmbedder_Exhausted(t *testing.T) {
	inner := &flakyEmbedder{failures: 10, err: domain.ErrEmbeddingProviderError}
	r := NewRetryingEmbedder(inner, fastPolicy, "retry-exhausted", zap.NewNop())

	_, err := r.Embed(context.Background(), "q")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("expected provider error, got %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestRetryingEmbedder_AuthIsFinal(t *testing.T) {
	inner := &flakyEmbedder{failures: 10, err: domain.ErrInvalidCredentials}
	r := NewRetryingEmbedder(inner, fastPolicy, "retry-auth", zap.NewNop())

	_, err := r.Embed(context.Background(), "q")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1", inner.calls)
	}
}

func TestRetryingEmbedder_BatchFallsBackToEmbed(t *testing.T) {
	inner := &flakyEmbedder{failures: 1, err: domain.ErrEmbeddingProviderError}
	r := NewRetryingEmbedder(inner, fastPolicy, "retry-batch", zap.NewNop())

	res, err := r.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 2 {
		t.Errorf("expected 2 embeddings, got %d", len(res.Embeddings))
	}
	// First attempt fails on "a", the retry embeds both.
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}
