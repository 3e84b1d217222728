package metrics

import "github.com/prometheus/client_golang/prometheus"

// Generation Prometheus metrics.
var (
	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paralegal",
			Name:      "generation_requests_total",
			Help:      "Total number of generation requests",
		},
		[]string{"model", "status"},
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paralegal",
			Name:      "generation_request_duration_seconds",
			Help:      "Generation request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"model"},
	)

	GenerationTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paralegal",
			Name:      "generation_tokens_total",
			Help:      "Total generation tokens consumed",
		},
		[]string{"model", "type"}, // "prompt" / "completion"
	)

	GenerationRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paralegal",
			Name:      "generation_retries_total",
			Help:      "Generation calls retried after a transient failure",
		},
		[]string{"model"},
	)
)

var genMetricsRegistered bool

// RegisterGenerationMetrics registers Prometheus generation metrics. Must be called once from main.
func RegisterGenerationMetrics() {
	if genMetricsRegistered {
		return
	}
	prometheus.MustRegister(GenerationRequestsTotal)
	prometheus.MustRegister(GenerationRequestDuration)
	prometheus.MustRegister(GenerationTokensTotal)
	prometheus.MustRegister(GenerationRetriesTotal)
	genMetricsRegistered = true
}
