package domain

import (
	"context"
	"sync"
)

type embeddingUsageKey struct{}

// EmbeddingUsage collects token usage for a single HTTP request or ingestion run.
// The caller puts a pointer into the context before calling the service; the
// service adds tokens after embedding; the caller reads the total afterwards.
// Safe for concurrent use.
type EmbeddingUsage struct {
	mu     sync.Mutex
	tokens int
	used   bool // true if embedding was called, even on a cache hit with 0 tokens
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// AddTokens records consumed tokens. No-op on a nil receiver.
func (u *EmbeddingUsage) AddTokens(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.tokens += n
	u.used = true
	u.mu.Unlock()
}

// Tokens returns the total and whether any embedding call was recorded.
func (u *EmbeddingUsage) Tokens() (int, bool) {
	if u == nil {
		return 0, false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tokens, u.used
}
