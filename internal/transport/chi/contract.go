package chi

import (
	"context"

	"github.com/kailas-cloud/paralegal/internal/domain/namespace"
	chatuc "github.com/kailas-cloud/paralegal/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/paralegal/internal/usecase/health"
)

// ChatService answers questions over the indexed documents.
type ChatService interface {
	Chat(ctx context.Context, raw string) (chatuc.Response, error)
	Namespaces(ctx context.Context) ([]namespace.Namespace, error)
}

// HealthService reports component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}
