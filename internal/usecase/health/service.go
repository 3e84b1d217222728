package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a provider is failing; keyword retrieval still works.
	Degraded Status = "degraded"
	// Unhealthy indicates the document store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

const storeCheck = "redis"

// DefaultCheckTimeout bounds each component check.
const DefaultCheckTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	providers map[string]ProviderChecker
	timeout   time.Duration
}

// New creates a Service. providers maps a component name to its checker; nil
// checkers are ignored.
func New(db DBPinger, providers map[string]ProviderChecker) *Service {
	ps := make(map[string]ProviderChecker, len(providers))
	for name, p := range providers {
		if p != nil {
			ps[name] = p
		}
	}
	return &Service{db: db, providers: ps, timeout: DefaultCheckTimeout}
}

// Check runs all component checks concurrently.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult, len(s.providers)+1)
		g      errgroup.Group
	)
	run := func(name string, fn func(context.Context) error) {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			res := CheckOK
			if err := fn(cctx); err != nil {
				res = CheckError
			}
			mu.Lock()
			checks[name] = res
			mu.Unlock()
			return nil
		})
	}

	run(storeCheck, s.db.Ping)
	for name, p := range s.providers {
		run(name, p.HealthCheck)
	}
	_ = g.Wait()

	status := Healthy
	for name, v := range checks {
		if v != CheckError {
			continue
		}
		if name == storeCheck {
			status = Unhealthy
			break
		}
		status = Degraded
	}
	return Report{Status: status, Checks: checks}
}
