package paralegal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation statuses. A partial operation succeeded without some of its inputs.
const (
	statusOK      = "ok"
	statusPartial = "partial"
	statusError   = "error"
)

type sdkMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	chunks     *prometheus.CounterVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paralegal",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "SDK calls by operation and status (ok, partial, error).",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "paralegal",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK call latency in seconds.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation"}),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paralegal",
			Subsystem: "sdk",
			Name:      "ingested_chunks_total",
			Help:      "Chunks handled by Ingest by result (ok, failed, skipped).",
		}, []string{"result"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.chunks); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers c, or points c at the collector already registered under its name.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("paralegal: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("paralegal: metric already registered with incompatible type: %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// observer logs and counts SDK calls. A nil observer records nothing.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

func (o *observer) observe(op string, start time.Time, err error) {
	o.record(op, start, statusOf(err, false), err)
}

func (o *observer) observeChat(start time.Time, resp *ChatResponse, err error) {
	o.record("chat", start, statusOf(err, err == nil && resp.Partial()), err,
		"warnings", len(resp.Warnings), "sources", len(resp.Sources))
}

func (o *observer) observeIngest(start time.Time, res *IngestResult, err error) {
	if o != nil && o.metrics != nil {
		o.metrics.chunks.WithLabelValues("ok").Add(float64(res.Processed))
		o.metrics.chunks.WithLabelValues("failed").Add(float64(res.Failed))
		o.metrics.chunks.WithLabelValues("skipped").Add(float64(res.Skipped))
	}
	o.record("ingest", start, statusOf(err, res.Failed > 0), err,
		"namespace", res.Namespace, "processed", res.Processed, "failed", res.Failed, "skipped", res.Skipped)
}

func (o *observer) record(op string, start time.Time, status string, err error, attrs ...any) {
	if o == nil {
		return
	}
	dur := time.Since(start)

	if o.metrics != nil {
		o.metrics.operations.WithLabelValues(op, status).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}
	if o.logger == nil {
		return
	}

	attrs = append(attrs, "op", op, "duration", dur)
	switch status {
	case statusError:
		o.logger.Warn("operation failed", append(attrs, "error", err)...)
	case statusPartial:
		o.logger.Warn("operation partially succeeded", attrs...)
	default:
		o.logger.Debug("operation completed", attrs...)
	}
}

func statusOf(err error, partial bool) string {
	switch {
	case err != nil:
		return statusError
	case partial:
		return statusPartial
	default:
		return statusOK
	}
}
