package embedding

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/paralegal/internal/backoff"
	"github.com/kailas-cloud/paralegal/internal/domain"
	"github.com/kailas-cloud/paralegal/internal/metrics"
)

// RetryingEmbedder retries transient provider failures. Auth failures surface at once.
type RetryingEmbedder struct {
	inner    domain.Embedder
	policy   backoff.Policy
	provider string
	logger   *zap.Logger
}

// NewRetryingEmbedder wraps inner with policy.
func NewRetryingEmbedder(inner domain.Embedder, policy backoff.Policy, provider string, logger *zap.Logger) *RetryingEmbedder {
	return &RetryingEmbedder{inner: inner, policy: policy, provider: provider, logger: logger}
}

// Embed implements domain.Embedder.
func (r *RetryingEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return backoff.Do(ctx, r.policy, func() (domain.EmbeddingResult, error) {
		return r.inner.Embed(ctx, text)
	}, r.onRetry("embed"))
}

// BatchEmbed implements domain.BatchEmbedder; the whole batch is retried.
func (r *RetryingEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	return backoff.Do(ctx, r.policy, func() (domain.BatchEmbeddingResult, error) {
		return domain.BatchEmbed(ctx, r.inner, texts)
	}, r.onRetry("batch_embed"))
}

func (r *RetryingEmbedder) onRetry(op string) func(uint, error) {
	return func(n uint, err error) {
		if n+1 >= r.policy.Attempts {
			return // final attempt, nothing follows
		}
		metrics.EmbeddingRetriesTotal.WithLabelValues(r.provider).Inc()
		r.logger.Warn("Retrying embedding request",
			zap.String("op", op),
			zap.String("provider", r.provider),
			zap.Uint("attempt", n+1),
			zap.Error(err),
		)
	}
}
