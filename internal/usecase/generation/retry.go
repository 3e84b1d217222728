// Package generation decorates the text generation provider.
package generation

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/paralegal/internal/backoff"
	"github.com/kailas-cloud/paralegal/internal/domain"
	"github.com/kailas-cloud/paralegal/internal/metrics"
)

// RetryingGenerator retries transient provider failures. Auth failures surface at once.
type RetryingGenerator struct {
	inner  domain.Generator
	policy backoff.Policy
	model  string
	logger *zap.Logger
}

// NewRetryingGenerator wraps inner with policy. model labels metrics.
func NewRetryingGenerator(inner domain.Generator, policy backoff.Policy, model string, logger *zap.Logger) *RetryingGenerator {
	return &RetryingGenerator{inner: inner, policy: policy, model: model, logger: logger}
}

// Generate implements domain.Generator.
func (g *RetryingGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	return backoff.Do(ctx, g.policy, func() (domain.GenerationResult, error) {
		return g.inner.Generate(ctx, req)
	}, func(n uint, err error) {
		if n+1 >= g.policy.Attempts {
			return
		}
		metrics.GenerationRetriesTotal.WithLabelValues(g.model).Inc()
		g.logger.Warn("Retrying generation request",
			zap.String("model", g.model),
			zap.Uint("attempt", n+1),
			zap.Error(err),
		)
	})
}
