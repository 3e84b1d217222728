// Package api holds the HTTP wire types and the chi routing wrapper of the
// paralegal API described in api/openapi.yaml.
package api

// ErrorResponseCode is a machine-readable error code.
type ErrorResponseCode string

// Defines values for ErrorResponseCode.
const (
	ErrorResponseCodeBadRequest       ErrorResponseCode = "bad_request"
	ErrorResponseCodeValidationFailed ErrorResponseCode = "validation_failed"
	ErrorResponseCodeUnauthorized     ErrorResponseCode = "unauthorized"
	ErrorResponseCodeRetrievalFailed  ErrorResponseCode = "retrieval_failed"
	ErrorResponseCodeProviderError    ErrorResponseCode = "provider_error"
	ErrorResponseCodeInternalError    ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	Query string `json:"query"`
}

// Source is a cited document.
type Source struct {
	File      string `json:"file"`
	Namespace string `json:"namespace"`
	Page      *int   `json:"page,omitempty"`
}

// ChatResponse is the answer to one chat turn.
type ChatResponse struct {
	Answer   string   `json:"answer"`
	Sources  []Source `json:"sources"`
	Contexts []string `json:"contexts,omitempty"`

	General  bool    `json:"general"`
	Category *string `json:"category,omitempty"`
	Strategy *string `json:"strategy,omitempty"`
	Style    *string `json:"style,omitempty"`

	Variants []string `json:"variants,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Namespace is a searchable document partition.
type Namespace struct {
	Name        string `json:"name"`
	VectorCount int64  `json:"vector_count"`
}

// NamespaceListResponse is the body of GET /v1/namespaces.
type NamespaceListResponse struct {
	Items []Namespace `json:"items"`
	Total int         `json:"total"`
}

// ListNamespacesParams are the query parameters of GET /v1/namespaces.
type ListNamespacesParams struct {
	// Prefix keeps namespaces whose name starts with it.
	Prefix *string `form:"prefix,omitempty" json:"prefix,omitempty"`
	// Limit caps the number of items, 1..1000.
	Limit *int `form:"limit,omitempty" json:"limit,omitempty"`
}

// HealthResponseStatus is the aggregated health status.
type HealthResponseStatus string

// HealthResponseChecks is a component check outcome.
type HealthResponseChecks string

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status HealthResponseStatus            `json:"status"`
	Checks map[string]HealthResponseChecks `json:"checks"`
}
