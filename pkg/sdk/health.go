package paralegal

import (
	"context"
	"slices"

	healthuc "github.com/kailas-cloud/paralegal/internal/usecase/health"
)

// HealthStatus is the aggregated health of Redis and the model providers.
//
// Status is "ok", "degraded" (a provider is down, keyword retrieval still
// answers) or "error" (Redis is unreachable).
type HealthStatus struct {
	Status string
	Checks map[string]string // "redis", "embedding", "generation" → "ok"/"error"
}

// OK reports whether every component passed.
func (h HealthStatus) OK() bool {
	return h.Status == string(healthuc.Healthy)
}

// Components returns the checked component names in order.
func (h HealthStatus) Components() []string {
	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Health probes Redis and the configured providers.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	h := HealthStatus{
		Status: string(report.Status),
		Checks: make(map[string]string, len(report.Checks)),
	}
	for name, res := range report.Checks {
		h.Checks[name] = string(res)
	}
	return h
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
