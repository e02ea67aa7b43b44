package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockStorePinger struct {
	err error
}

func (m *mockStorePinger) Ping(_ context.Context) error { return m.err }

type mockProviderChecker struct {
	err error
}

func (m *mockProviderChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockStorePinger{}, &mockProviderChecker{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if r.Checks["redis"] != CheckOK {
		t.Errorf("expected redis %q, got %q", CheckOK, r.Checks["redis"])
	}
	if r.Checks["embedding_provider"] != CheckOK {
		t.Errorf("expected embedding_provider %q, got %q", CheckOK, r.Checks["embedding_provider"])
	}
}

func TestCheck_StoreDown_Unhealthy(t *testing.T) {
	svc := New(&mockStorePinger{err: errors.New("conn refused")}, &mockProviderChecker{})
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks["redis"] != CheckError {
		t.Errorf("expected redis %q, got %q", CheckError, r.Checks["redis"])
	}
	if r.Checks["embedding_provider"] != CheckOK {
		t.Errorf("expected embedding_provider %q, got %q", CheckOK, r.Checks["embedding_provider"])
	}
}

func TestCheck_ProviderDown_Degraded(t *testing.T) {
	// без провайдера сервис жив: приём отчётов и ревью работают
	svc := New(&mockStorePinger{}, &mockProviderChecker{err: errors.New("timeout")})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["redis"] != CheckOK {
		t.Errorf("expected redis %q, got %q", CheckOK, r.Checks["redis"])
	}
	if r.Checks["embedding_provider"] != CheckError {
		t.Errorf("expected embedding_provider %q, got %q", CheckError, r.Checks["embedding_provider"])
	}
}

func TestCheck_BothDown_StoreDominates(t *testing.T) {
	svc := New(
		&mockStorePinger{err: errors.New("db down")},
		&mockProviderChecker{err: errors.New("provider down")},
	)
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks["redis"] != CheckError {
		t.Errorf("expected redis %q, got %q", CheckError, r.Checks["redis"])
	}
	if r.Checks["embedding_provider"] != CheckError {
		t.Errorf("expected embedding_provider %q, got %q", CheckError, r.Checks["embedding_provider"])
	}
}

func TestCheck_NilProviderSkipped(t *testing.T) {
	svc := New(&mockStorePinger{}, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks["embedding_provider"]; ok {
		t.Error("expected no embedding_provider check without a provider")
	}
}
