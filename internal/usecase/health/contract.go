package health

import "context"

// StorePinger checks redis availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks embedding provider availability.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
