package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion Prometheus metrics.
var (
	IngestChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paralegal",
			Name:      "ingest_chunks_total",
			Help:      "Chunks processed by ingestion",
		},
		[]string{"status"}, // "ok" / "failed" / "skipped"
	)

	IngestBatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "paralegal",
			Name:      "ingest_batch_duration_seconds",
			Help:      "Embed and upsert duration of one ingestion batch",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

var ingestMetricsRegistered bool

// RegisterIngestMetrics registers Prometheus ingestion metrics.
func RegisterIngestMetrics() {
	if ingestMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestChunksTotal)
	prometheus.MustRegister(IngestBatchDuration)
	ingestMetricsRegistered = true
}
