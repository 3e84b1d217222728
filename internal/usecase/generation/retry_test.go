package generation

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/paralegal/internal/backoff"
	"github.com/kailas-cloud/paralegal/internal/domain"
	"github.com/kailas-cloud/paralegal/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterGenerationMetrics()
	os.Exit(m.Run())
}

type flakyGenerator struct {
	failures int
	err      error
	calls    int
	last     domain.GenerationRequest
}

func (f *flakyGenerator) Generate(_ context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	f.calls++
	f.last = req
	if f.calls <= f.failures {
		return domain.GenerationResult{}, f.err
	}
	return domain.GenerationResult{Text: "answer"}, nil
}

var fastPolicy = backoff.Policy{Attempts: 3, Delay: time.Millisecond}

func TestRetryingGenerator_Recovers(t *testing.T) {
	inner := &flakyGenerator{failures: 1, err: domain.ErrGenerationProviderError}
	g := NewRetryingGenerator(inner, fastPolicy, "gen-ok", zap.NewNop())

	req := domain.GenerationRequest{Prompt: "p", MaxTokens: 10, Temperature: 0.2}
	res, err := g.Generate(context.Background(), req)
	if err != nil || res.Text != "answer" {
		t.Fatalf("got %q, %v", res.Text, err)
	}
	if inner.last != req {
		t.Errorf("request not forwarded unchanged: %+v", inner.last)
	}
	if got := testutil.ToFloat64(metrics.GenerationRetriesTotal.WithLabelValues("gen-ok")); got != 1 {
		t.Errorf("retries metric = %v, want 1", got)
	}
}

func TestRetryingGenerator_AuthIsFinal(t *testing.T) {
	inner := &flakyGenerator{failures: 5, err: domain.ErrInvalidCredentials}
	g := NewRetryingGenerator(inner, fastPolicy, "gen-auth", zap.NewNop())

	_, err := g.Generate(context.Background(), domain.GenerationRequest{Prompt: "p"})
	if !errors.Is(err, domain.ErrInvalidCredentials) || inner.calls != 1 {
		t.Errorf("err = %v, calls = %d", err, inner.calls)
	}
}

func TestRetryingGenerator_Exhausted(t *testing.T) {
	inner := &flakyGenerator{failures: 5, err: domain.ErrGenerationProviderError}
	g := NewRetryingGenerator(inner, fastPolicy, "gen-exhausted", zap.NewNop())

	_, err := g.Generate(context.Background(), domain.GenerationRequest{Prompt: "p"})
	if !errors.Is(err, domain.ErrGenerationProviderError) || inner.calls != 3 {
		t.Errorf("err = %v, calls = %d", err, inner.calls)
	}
}
