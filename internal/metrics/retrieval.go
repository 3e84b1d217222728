package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval pipeline Prometheus metrics.
var (
	RetrievalStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paralegal",
			Name:      "retrieval_stage_duration_seconds",
			Help:      "Duration of retrieval pipeline stages",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"stage"}, // "namespaces" / "keyword" / "vector" / "generation"
	)

	NamespaceFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paralegal",
			Name:      "namespace_failures_total",
			Help:      "Per-namespace retrieval tasks that failed or timed out",
		},
		[]string{"source", "reason"}, // source: keyword/vector, reason: timeout/canceled/error
	)

	FusedResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "paralegal",
			Name:      "fused_results",
			Help:      "Number of passages after fusion",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	MalformedChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paralegal",
			Name:      "malformed_chunks_total",
			Help:      "Stored chunks without the text field",
		},
		[]string{"fallback"}, // "page_content" / "content" / "none"
	)

	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paralegal",
			Name:      "chat_requests_total",
			Help:      "Chat requests by outcome",
		},
		[]string{"outcome"},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers Prometheus retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalStageDuration)
	prometheus.MustRegister(NamespaceFailuresTotal)
	prometheus.MustRegister(FusedResults)
	prometheus.MustRegister(MalformedChunksTotal)
	prometheus.MustRegister(ChatRequestsTotal)
	retrievalMetricsRegistered = true
}
