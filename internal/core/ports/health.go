package ports

import "context"

// HealthChecker checks one dependency: the registry API, Redis or Postgres.
// Check returns an error when the dependency is unhealthy.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}
