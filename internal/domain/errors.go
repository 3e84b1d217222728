package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrConfiguration signals missing or invalid startup configuration (fatal).
	ErrConfiguration = errors.New("configuration error")
	// ErrEmptyQuery signals a blank chat query.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrNoNamespaces signals that no document collections are indexed.
	ErrNoNamespaces = errors.New("no namespaces available")
	// ErrRetrievalFailed signals that every retrieval task of a request failed.
	ErrRetrievalFailed = errors.New("retrieval failed for all namespaces")
	// ErrInvalidCredentials signals an auth failure at an external API. Never retried.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationProviderError signals a generation provider failure.
	ErrGenerationProviderError = errors.New("generation provider error")
	// ErrMalformedMetadata signals a stored chunk without its text field.
	ErrMalformedMetadata = errors.New("malformed chunk metadata")
)

// ProviderStatusError carries the HTTP status of a failed provider call.
type ProviderStatusError struct {
	Status int
	Err    error
}

func (e *ProviderStatusError) Error() string { return e.Err.Error() }

func (e *ProviderStatusError) Unwrap() error { return e.Err }

// Transient reports whether the status may clear on a later attempt.
func (e *ProviderStatusError) Transient() bool {
	return e.Status == http.StatusRequestTimeout ||
		e.Status == http.StatusTooManyRequests ||
		e.Status >= http.StatusInternalServerError
}

// NamespaceFailure records one failed per-namespace retrieval task.
type NamespaceFailure struct {
	Namespace string
	Source    string // "keyword" or "vector"
	Err       error
}

func (f NamespaceFailure) Error() string {
	return fmt.Sprintf("%s search in %q: %v", f.Source, f.Namespace, f.Err)
}

func (f NamespaceFailure) Unwrap() error { return f.Err }

// PartialRetrievalError reports namespaces that contributed no results because
// their task failed or timed out. The request itself still succeeds.
type PartialRetrievalError struct {
	Failures []NamespaceFailure
	merr     *multierror.Error
}

// NewPartialRetrievalError aggregates failures. Returns nil for an empty list.
func NewPartialRetrievalError(failures []NamespaceFailure) *PartialRetrievalError {
	if len(failures) == 0 {
		return nil
	}
	var merr *multierror.Error
	for _, f := range failures {
		merr = multierror.Append(merr, f)
	}
	merr.ErrorFormat = func(errs []error) string {
		parts := make([]string, len(errs))
		for i, e := range errs {
			parts[i] = e.Error()
		}
		return fmt.Sprintf("%d retrieval task(s) failed: %s", len(errs), strings.Join(parts, "; "))
	}
	return &PartialRetrievalError{Failures: failures, merr: merr}
}

func (e *PartialRetrievalError) Error() string { return e.merr.Error() }

// Unwrap exposes the individual failures to errors.Is / errors.As.
func (e *PartialRetrievalError) Unwrap() []error { return e.merr.WrappedErrors() }

// Warnings returns one human-readable line per failure.
func (e *PartialRetrievalError) Warnings() []string {
	if e == nil {
		return nil
	}
	out := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f.Error()
	}
	return out
}

// MalformedMetadataError describes a chunk whose metadata lacked the text field.
type MalformedMetadataError struct {
	ChunkID  string
	Fallback string // field the text was taken from, empty if none was found
}

func (e *MalformedMetadataError) Error() string {
	if e.Fallback == "" {
		return fmt.Sprintf("%s: chunk %s has no text", ErrMalformedMetadata.Error(), e.ChunkID)
	}
	return fmt.Sprintf("%s: chunk %s text taken from %q", ErrMalformedMetadata.Error(), e.ChunkID, e.Fallback)
}

func (e *MalformedMetadataError) Unwrap() error { return ErrMalformedMetadata }
