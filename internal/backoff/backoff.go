// Package backoff retries calls to external providers with exponential backoff.
package backoff

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/kailas-cloud/paralegal/internal/domain"
)

// Policy caps retries of one call.
type Policy struct {
	Attempts uint // total attempts including the first; 0 or 1 disables retries
	Delay    time.Duration
	MaxDelay time.Duration
}

// DefaultPolicy is used when configuration leaves the policy empty.
var DefaultPolicy = Policy{Attempts: 3, Delay: 200 * time.Millisecond, MaxDelay: 2 * time.Second}

// Retryable reports whether err may succeed on a later attempt.
// Auth failures and caller cancellation are final. A provider answer is
// retried only for 408, 429 and 5xx; errors without a status (transport
// failures, per-attempt deadlines) are retried.
func Retryable(err error) bool {
	if errors.Is(err, domain.ErrInvalidCredentials) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *domain.ProviderStatusError
	if errors.As(err, &se) {
		return se.Transient()
	}
	return true
}

// Do runs fn until it succeeds, fails with a non-retryable error, the attempts
// run out or ctx is done. The last error is returned unwrapped. onRetry may be nil.
func Do[T any](ctx context.Context, p Policy, fn func() (T, error), onRetry func(attempt uint, err error)) (T, error) {
	if p.Attempts <= 1 {
		return fn()
	}

	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(p.Attempts),
		retry.Delay(p.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return ctx.Err() == nil && Retryable(err) }),
	}
	if p.MaxDelay > 0 {
		opts = append(opts, retry.MaxDelay(p.MaxDelay))
	}
	if onRetry != nil {
		opts = append(opts, retry.OnRetry(onRetry))
	}
	var out T
	err := retry.Do(func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	}, opts...)
	return out, err //nolint:wrapcheck // callers see the provider error
}
