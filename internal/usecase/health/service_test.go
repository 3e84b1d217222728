package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Mocks ---

type mockDBPinger struct {
	err error
}

func (m *mockDBPinger) Ping(_ context.Context) error { return m.err }

type mockProvider struct {
	err   error
	block bool
}

func (m *mockProvider) HealthCheck(ctx context.Context) error {
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return m.err
}

// --- Tests ---

func TestCheck(t *testing.T) {
	boom := errors.New("down")
	tests := []struct {
		name       string
		db         error
		embedding  error
		generation error
		want       Status
	}{
		{"all healthy", nil, nil, nil, Healthy},
		{"embedding down", nil, boom, nil, Degraded},
		{"generation down", nil, nil, boom, Degraded},
		{"store down", boom, nil, nil, Unhealthy},
		{"everything down", boom, boom, boom, Unhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(&mockDBPinger{err: tt.db}, map[string]ProviderChecker{
				"embedding":  &mockProvider{err: tt.embedding},
				"generation": &mockProvider{err: tt.generation},
			})
			r := svc.Check(context.Background())

			if r.Status != tt.want {
				t.Errorf("expected %q, got %q", tt.want, r.Status)
			}
			if len(r.Checks) != 3 {
				t.Errorf("expected 3 checks, got %v", r.Checks)
			}
			if (tt.embedding != nil) != (r.Checks["embedding"] == CheckError) {
				t.Errorf("embedding check = %q", r.Checks["embedding"])
			}
		})
	}
}

func TestCheck_NilProviderIgnored(t *testing.T) {
	svc := New(&mockDBPinger{}, map[string]ProviderChecker{"embedding": nil})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks["embedding"]; ok {
		t.Error("nil checker should be absent from the report")
	}
	if r.Checks["redis"] != CheckOK {
		t.Errorf("expected redis %q, got %q", CheckOK, r.Checks["redis"])
	}
}

func TestCheck_SlowProviderTimesOut(t *testing.T) {
	svc := New(&mockDBPinger{}, map[string]ProviderChecker{"generation": &mockProvider{block: true}})
	svc.timeout = 20 * time.Millisecond

	start := time.Now()
	r := svc.Check(context.Background())
	if time.Since(start) > time.Second {
		t.Fatal("check did not respect its timeout")
	}
	if r.Status != Degraded || r.Checks["generation"] != CheckError {
		t.Errorf("unexpected report %+v", r)
	}
}
