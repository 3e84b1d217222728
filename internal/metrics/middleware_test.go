package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/v1/chat", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("partial") != "" {
			w.Header().Set(PartialResultsHeader, "true")
		}
		_, _ = w.Write([]byte(`{"answer":"ok"}`))
	})
	r.Get("/v1/namespaces", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	return r
}

func serve(r http.Handler, method, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(method, target, http.NoBody))
	return rr
}

func TestMiddleware_CountsByRouteAndStatus(t *testing.T) {
	r := newRouter()

	tests := []struct {
		method, target, route, status string
	}{
		{"POST", "/v1/chat", "/v1/chat", "200"},
		{"GET", "/v1/namespaces?limit=5", "/v1/namespaces", "503"},
		{"GET", "/v1/unknown/123", "unmatched", "404"},
	}
	for _, tc := range tests {
		t.Run(tc.target, func(t *testing.T) {
			before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(tc.method, tc.route, tc.status))
			serve(r, tc.method, tc.target)
			after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(tc.method, tc.route, tc.status))
			if after-before != 1 {
				t.Errorf("requests_total{%s %s %s} grew by %v, want 1", tc.method, tc.route, tc.status, after-before)
			}
		})
	}

	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected duration observations")
	}
	if got := testutil.ToFloat64(httpInFlight); got != 0 {
		t.Errorf("in-flight = %v after all requests finished", got)
	}
}

func TestMiddleware_CountsPartialResponses(t *testing.T) {
	r := newRouter()
	partial := httpPartialTotal.WithLabelValues("/v1/chat")

	before := testutil.ToFloat64(partial)
	serve(r, "POST", "/v1/chat")
	serve(r, "POST", "/v1/chat?partial=1")
	if got := testutil.ToFloat64(partial) - before; got != 1 {
		t.Errorf("partial responses grew by %v, want 1", got)
	}
}

func TestRouteLabel(t *testing.T) {
	if got := routeLabel(nil); got != "unmatched" {
		t.Errorf("routeLabel(nil) = %q", got)
	}
	if got := routeLabel(chi.NewRouteContext()); got != "unmatched" {
		t.Errorf("routeLabel(empty) = %q", got)
	}
}

func TestMetricsExposedViaPromhttp(t *testing.T) {
	serve(newRouter(), "POST", "/v1/chat")

	rr := serve(promhttp.Handler(), "GET", "/metrics")
	body, err := io.ReadAll(rr.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	for _, name := range []string{"paralegal_http_requests_total", "paralegal_http_requests_in_flight"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("expected %s in exposition", name)
		}
	}
}
