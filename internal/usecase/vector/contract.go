package vector

import (
	"context"

	"github.com/kailas-cloud/paralegal/internal/domain"
	"github.com/kailas-cloud/paralegal/internal/domain/chunk"
)

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Index answers nearest-neighbour queries within one namespace.
type Index interface {
	Query(ctx context.Context, ns string, vector []float32, topK int) ([]chunk.Scored, error)
}
