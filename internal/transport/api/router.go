package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// Answer a question over the indexed documents
	// (POST /v1/chat)
	Chat(w http.ResponseWriter, r *http.Request)
	// List searchable namespaces
	// (GET /v1/namespaces)
	ListNamespaces(w http.ResponseWriter, r *http.Request, params ListNamespacesParams)
	// Health check
	// (GET /health)
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// Prometheus metrics
	// (GET /metrics)
	Metrics(w http.ResponseWriter, r *http.Request)
}

// MiddlewareFunc wraps a single handler.
type MiddlewareFunc func(http.Handler) http.Handler

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// InvalidParamFormatError reports a parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// Handler creates an http.Handler with routing matching the API.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

// HandlerWithOptions mounts the API routes on options.BaseRouter (a new router if nil).
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := serverInterfaceWrapper{
		handler:            si,
		handlerMiddlewares: options.Middlewares,
		errorHandlerFunc:   options.ErrorHandlerFunc,
	}

	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/v1/chat", wrapper.Chat)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/v1/namespaces", wrapper.ListNamespaces)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/health", wrapper.HealthCheck)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/metrics", wrapper.Metrics)
	})
	return r
}

type serverInterfaceWrapper struct {
	handler            ServerInterface
	handlerMiddlewares []MiddlewareFunc
	errorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *serverInterfaceWrapper) Chat(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.handler.Chat)
}

func (siw *serverInterfaceWrapper) ListNamespaces(w http.ResponseWriter, r *http.Request) {
	var params ListNamespacesParams

	err := runtime.BindQueryParameter("form", true, false, "prefix", r.URL.Query(), &params.Prefix)
	if err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "prefix", Err: err})
		return
	}

	err = runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &params.Limit)
	if err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "limit", Err: err})
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.handler.ListNamespaces(w, r, params)
	})
}

func (siw *serverInterfaceWrapper) HealthCheck(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.handler.HealthCheck)
}

func (siw *serverInterfaceWrapper) Metrics(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.handler.Metrics)
}

func (siw *serverInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, h http.HandlerFunc) {
	var handler http.Handler = h
	for _, middleware := range siw.handlerMiddlewares {
		handler = middleware(handler)
	}
	handler.ServeHTTP(w, r)
}
