// Package vector scores passages by embedding similarity across namespaces.
package vector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/paralegal/internal/domain"
	"github.com/kailas-cloud/paralegal/internal/domain/search/result"
)

const (
	// MaxContextChars bounds the context of a vector result.
	MaxContextChars = 800
	ellipsis        = "..."

	// SourceName labels failures of this engine.
	SourceName = "vector"
)

// Options bounds the engine's external calls.
type Options struct {
	EmbedTimeout   time.Duration
	QueryTimeout   time.Duration
	MaxParallelism int
}

// Engine embeds a query once and fans out KNN queries per namespace.
type Engine struct {
	embed Embedder
	index Index
	opts  Options
}

// New creates a vector engine. Zero timeouts disable the per-call deadline.
func New(embed Embedder, index Index, opts Options) *Engine {
	return &Engine{embed: embed, index: index, opts: opts}
}

// Search returns the topK most similar passages across namespaces, best first.
//
// A failing namespace contributes nothing and is reported in the returned failures;
// the others proceed. The error is non-nil only when the query could not be embedded.
func (e *Engine) Search(
	ctx context.Context, query string, namespaces []string, topK int,
) ([]result.Result, []domain.NamespaceFailure, error) {
	if len(namespaces) == 0 || topK <= 0 {
		return nil, nil, nil
	}

	vec, err := e.embedQuery(ctx, query)
	if err != nil {
		return nil, nil, err
	}

	perNS := make([][]result.Result, len(namespaces))
	errs := make([]error, len(namespaces))

	var g errgroup.Group
	if e.opts.MaxParallelism > 0 {
		g.SetLimit(e.opts.MaxParallelism)
	}
	for i, ns := range namespaces {
		g.Go(func() error {
			perNS[i], errs[i] = e.queryNamespace(ctx, ns, vec, topK)
			return nil // siblings keep running
		})
	}
	_ = g.Wait()

	var (
		results  []result.Result
		failures []domain.NamespaceFailure
	)
	for i, ns := range namespaces {
		if errs[i] != nil {
			failures = append(failures, domain.NamespaceFailure{Namespace: ns, Source: SourceName, Err: errs[i]})
			continue
		}
		results = append(results, perNS[i]...)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score() > results[j].Score()
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, failures, nil
}

func (e *Engine) embedQuery(ctx context.Context, query string) ([]float32, error) {
	ctx, cancel := withTimeout(ctx, e.opts.EmbedTimeout)
	defer cancel()

	res, err := e.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
	return res.Embedding, nil
}

func (e *Engine) queryNamespace(ctx context.Context, ns string, vec []float32, topK int) ([]result.Result, error) {
	ctx, cancel := withTimeout(ctx, e.opts.QueryTimeout)
	defer cancel()

	matches, err := e.index.Query(ctx, ns, vec, topK)
	if err != nil {
		return nil, err //nolint:wrapcheck // NamespaceFailure carries the namespace
	}

	out := make([]result.Result, 0, len(matches))
	for _, m := range matches {
		if m.Score <= 0 {
			continue
		}
		out = append(out, result.NewVector(result.Passage{
			ID:        m.Chunk.ID,
			Namespace: ns,
			Source:    m.Chunk.Source,
			Page:      m.Chunk.Page,
			Text:      m.Chunk.Text,
		}, m.Score, truncate(m.Chunk.Text)))
	}
	return out, nil
}

// truncate cuts text to MaxContextChars characters and marks the cut.
func truncate(text string) string {
	r := []rune(text)
	if len(r) <= MaxContextChars {
		return text
	}
	return string(r[:MaxContextChars]) + ellipsis
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
