package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/paralegal/internal/domain"
	"github.com/kailas-cloud/paralegal/internal/metrics"
	api "github.com/kailas-cloud/paralegal/internal/transport/api"
	chatuc "github.com/kailas-cloud/paralegal/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/paralegal/internal/usecase/health"
)

const (
	// MaxQueryRunes bounds the chat query length.
	MaxQueryRunes = 2000

	maxBodyBytes      = 64 << 10
	maxNamespaceLimit = 1000
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements api.ServerInterface.
type Server struct {
	chat          ChatService
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ api.ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server.
func NewServer(chat ChatService, health HealthService, logger *zap.Logger) *Server {
	s := &Server{
		chat:   chat,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, api.ErrorResponseCodeValidationFailed),
		sentinelHandler(domain.ErrRetrievalFailed, http.StatusServiceUnavailable, api.ErrorResponseCodeRetrievalFailed),
		sentinelHandler(domain.ErrInvalidCredentials, http.StatusBadGateway, api.ErrorResponseCodeProviderError),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, api.ErrorResponseCodeProviderError),
		sentinelHandler(domain.ErrGenerationProviderError, http.StatusBadGateway, api.ErrorResponseCodeProviderError),
	}
	return s
}

// Chat handles POST /v1/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, api.ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, api.ErrorResponseCodeValidationFailed, "query is required")
		return
	}
	if utf8.RuneCountInString(req.Query) > MaxQueryRunes {
		writeError(w, http.StatusBadRequest, api.ErrorResponseCodeValidationFailed,
			fmt.Sprintf("query must be at most %d characters", MaxQueryRunes))
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.chat.Chat(ctx, req.Query)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	if len(resp.Warnings) > 0 {
		w.Header().Set(metrics.PartialResultsHeader, "true")
	}
	writeJSON(w, http.StatusOK, chatResponseToAPI(&resp))
}

// ListNamespaces handles GET /v1/namespaces.
func (s *Server) ListNamespaces(w http.ResponseWriter, r *http.Request, params api.ListNamespacesParams) {
	if params.Limit != nil && (*params.Limit <= 0 || *params.Limit > maxNamespaceLimit) {
		writeError(w, http.StatusBadRequest, api.ErrorResponseCodeValidationFailed,
			fmt.Sprintf("limit must be between 1 and %d", maxNamespaceLimit))
		return
	}

	nss, err := s.chat.Namespaces(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]api.Namespace, 0, len(nss))
	for _, ns := range nss {
		if params.Prefix != nil && !strings.HasPrefix(ns.Name, *params.Prefix) {
			continue
		}
		items = append(items, api.Namespace{Name: ns.Name, VectorCount: ns.VectorCount})
	}

	total := len(items)
	if params.Limit != nil && len(items) > *params.Limit {
		items = items[:*params.Limit]
	}
	writeJSON(w, http.StatusOK, api.NamespaceListResponse{Items: items, Total: total})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]api.HealthResponseChecks)
	for k, v := range report.Checks {
		checks[k] = api.HealthResponseChecks(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, api.HealthResponse{
		Status: api.HealthResponseStatus(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// BindErrorHandler answers requests whose parameters failed to bind.
func BindErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	msg := "invalid request"
	var perr *api.InvalidParamFormatError
	if errors.As(err, &perr) {
		msg = "invalid parameter " + perr.ParamName
	}
	writeError(w, http.StatusBadRequest, api.ErrorResponseCodeBadRequest, msg)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if n, used := usage.Tokens(); used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(n))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code api.ErrorResponseCode, message string) {
	writeJSON(w, status, api.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyQuery,
		domain.ErrRetrievalFailed,
		domain.ErrInvalidCredentials,
		domain.ErrEmbeddingProviderError,
		domain.ErrGenerationProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code api.ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, api.ErrorResponseCodeInternalError, "internal error")
}

func chatResponseToAPI(resp *chatuc.Response) api.ChatResponse {
	out := api.ChatResponse{
		Answer:   resp.Answer,
		Sources:  make([]api.Source, len(resp.Sources)),
		Contexts: resp.Contexts,
		General:  resp.General,
		Variants: resp.Variants,
		Warnings: resp.Warnings,
	}
	for i, src := range resp.Sources {
		out.Sources[i] = api.Source{File: src.File, Namespace: src.Namespace}
		if src.Page > 0 {
			p := src.Page
			out.Sources[i].Page = &p
		}
	}
	out.Category = optString(string(resp.Category))
	out.Strategy = optString(string(resp.Strategy))
	out.Style = optString(string(resp.Style))
	return out
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
