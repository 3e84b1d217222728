package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// PartialResultsHeader is set on chat responses built without some namespaces.
const PartialResultsHeader = "X-Partial-Results"

var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paralegal",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds. Chat requests include retrieval and generation.",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 45, 90},
		},
		[]string{"method", "route", "status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paralegal",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "paralegal",
		Name:      "http_requests_in_flight",
		Help:      "HTTP requests being served.",
	})

	httpPartialTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paralegal",
			Name:      "http_partial_responses_total",
			Help:      "Successful responses flagged with " + PartialResultsHeader + ".",
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestDuration, httpRequestsTotal, httpInFlight, httpPartialTotal)
}

// Middleware records request latency, counts and partial responses per chi route pattern.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httpInFlight.Inc()
			defer httpInFlight.Dec()

			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			// The pattern is complete only after routing, so read it afterwards.
			route := routeLabel(chi.RouteContext(r.Context()))
			status := strconv.Itoa(ww.status)
			httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
			if ww.status < http.StatusBadRequest && ww.Header().Get(PartialResultsHeader) != "" {
				httpPartialTotal.WithLabelValues(route).Inc()
			}
		})
	}
}

// routeLabel bounds label cardinality: unmatched paths share one label.
func routeLabel(rctx *chi.Context) string {
	if rctx == nil {
		return "unmatched"
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return "unmatched"
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b) //nolint:wrapcheck // delegating to underlying ResponseWriter
}
