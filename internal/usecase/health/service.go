package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the embedding provider is unreachable: reports are
	// still ingested and matches still served, but no new detection runs.
	Degraded Status = "degraded"
	// Unhealthy indicates the store is unreachable and the service cannot
	// serve at all.
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

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service probes the redis store and the embedding provider.
type Service struct {
	store    StorePinger
	provider ProviderChecker
}

// New creates a Service. provider can be nil.
func New(store StorePinger, provider ProviderChecker) *Service {
	return &Service{store: store, provider: provider}
}

// Check probes each component. Store failure dominates: without it nothing
// works, while a dead embedding provider only pauses detection.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if err := s.store.Ping(ctx); err != nil {
		checks["redis"] = CheckError
		status = Unhealthy
	} else {
		checks["redis"] = CheckOK
	}

	if s.provider != nil {
		if err := s.provider.HealthCheck(ctx); err != nil {
			checks["embedding_provider"] = CheckError
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks["embedding_provider"] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks}
}
