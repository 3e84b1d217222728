package keyword

import (
	"context"

	"github.com/kailas-cloud/paralegal/internal/domain/chunk"
)

// ChunkSource pages through every chunk of a namespace.
type ChunkSource interface {
	Enumerate(ctx context.Context, ns string, cursor chunk.Cursor, batch int) (chunk.Page, error)
}
