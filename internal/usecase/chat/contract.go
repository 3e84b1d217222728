package chat

import (
	"context"

	"github.com/kailas-cloud/paralegal/internal/domain"
	"github.com/kailas-cloud/paralegal/internal/domain/namespace"
	"github.com/kailas-cloud/paralegal/internal/domain/search/result"
	"github.com/kailas-cloud/paralegal/internal/domain/strategy"
	"github.com/kailas-cloud/paralegal/internal/usecase/classify"
	"github.com/kailas-cloud/paralegal/internal/usecase/compose"
	"github.com/kailas-cloud/paralegal/internal/usecase/expand"
)

// Classifier detects conversational queries.
type Classifier interface {
	Classify(query string) (bool, classify.Category)
}

// Expander derives query variants and the keyword term set.
type Expander interface {
	Expand(raw string) expand.Expanded
}

// NamespaceLister enumerates searchable namespaces.
type NamespaceLister interface {
	ListNamespaces(ctx context.Context) ([]namespace.Namespace, error)
}

// KeywordSearcher scores one namespace by term overlap.
type KeywordSearcher interface {
	Search(ctx context.Context, terms []string, ns string, topK int) ([]result.Result, error)
}

// VectorSearcher scores namespaces by embedding similarity.
type VectorSearcher interface {
	Search(ctx context.Context, query string, namespaces []string, topK int) ([]result.Result, []domain.NamespaceFailure, error)
}

// StrategySelector picks answer or summary.
type StrategySelector interface {
	Select(query string) strategy.Decision
}

// Composer builds the generation context.
type Composer interface {
	Compose(results []result.Result, query string) compose.Payload
}

// PromptRenderer renders the prompt for a decision.
type PromptRenderer interface {
	Render(d strategy.Decision, query, context string) (string, error)
}
