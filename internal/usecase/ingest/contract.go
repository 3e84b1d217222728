package ingest

import (
	"context"

	"github.com/kailas-cloud/paralegal/internal/domain/chunk"
)

// Store persists chunks with their vectors.
type Store interface {
	Upsert(ctx context.Context, ns string, chunks []chunk.Chunk, vectors [][]float32) error
}
