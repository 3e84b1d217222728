package paralegal

import "github.com/kailas-cloud/paralegal/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrEmptyQuery              = domain.ErrEmptyQuery
	ErrRetrievalFailed         = domain.ErrRetrievalFailed
	ErrInvalidCredentials      = domain.ErrInvalidCredentials
	ErrEmbeddingProviderError  = domain.ErrEmbeddingProviderError
	ErrGenerationProviderError = domain.ErrGenerationProviderError
)
