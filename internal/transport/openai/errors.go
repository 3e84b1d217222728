package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/paralegal/internal/domain"
)

// parseAPIError extracts a human-readable error from the API response.
// 401/403 map to domain.ErrInvalidCredentials, everything else to wrap.
// API answers carry their status in *domain.ProviderStatusError.
// Transport errors keep the cause so callers can tell a deadline from a refusal.
func parseAPIError(kind string, err error, wrap error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return &domain.ProviderStatusError{
			Status: reqErr.HTTPStatusCode,
			Err: fmt.Errorf("%s API error %d: %s: %w",
				kind, reqErr.HTTPStatusCode, detail, classify(reqErr.HTTPStatusCode, wrap)),
		}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &domain.ProviderStatusError{
			Status: apiErr.HTTPStatusCode,
			Err: fmt.Errorf("%s API error %d: %s: %w",
				kind, apiErr.HTTPStatusCode, apiErr.Message, classify(apiErr.HTTPStatusCode, wrap)),
		}
	}

	return fmt.Errorf("%s request failed: %w: %w", kind, wrap, err)
}

func classify(status int, wrap error) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return domain.ErrInvalidCredentials
	}
	return wrap
}

// errorType is the metrics label for a classified error.
func errorType(err error) string {
	if errors.Is(err, domain.ErrInvalidCredentials) {
		return "auth"
	}
	return "api_error"
}

// extractDetail reads the message from a JSON error body.
// Supports {"detail": "..."} (Nebius) and {"error": {"message": "..."}} (OpenAI, Groq).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
		Error  struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if parsed.Detail != "" {
		return parsed.Detail
	}
	return parsed.Error.Message
}
