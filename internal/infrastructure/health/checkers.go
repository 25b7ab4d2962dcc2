package health

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/avatarctic/land-registry-gateway/internal/core/ports"
	infraDB "github.com/avatarctic/land-registry-gateway/internal/infrastructure/db"
)

// dbHealthChecker wraps the usage ledger database for health checks.
type dbHealthChecker struct{ db *infraDB.Database }

func (d *dbHealthChecker) Name() string                    { return "database" }
func (d *dbHealthChecker) Check(ctx context.Context) error { return d.db.Ping(ctx) }

// redisHealthChecker wraps the redis client for health checks.
type redisHealthChecker struct{ client redis.Cmdable }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// registryHealthChecker asks the registry API for its own health report.
// The call goes through the gateway so it is counted like any other dispatch.
type registryHealthChecker struct{ gateway ports.LandRegistryGateway }

func (r *registryHealthChecker) Name() string { return "land_registry" }
func (r *registryHealthChecker) Check(ctx context.Context) error {
	res := r.gateway.GetHealthStatus(ctx)
	if !res.Success {
		return res.Error
	}
	if res.Data.Status != "" && res.Data.Status != "ok" && res.Data.Status != "healthy" {
		return fmt.Errorf("land registry reports status %q", res.Data.Status)
	}
	return nil
}

// NewDBHealthChecker creates a health checker for the database.
func NewDBHealthChecker(db *infraDB.Database) ports.HealthChecker { return &dbHealthChecker{db: db} }

// NewRedisHealthChecker creates a health checker for Redis.
func NewRedisHealthChecker(client redis.Cmdable) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}

// NewRegistryHealthChecker creates a health checker for the upstream registry API.
func NewRegistryHealthChecker(gateway ports.LandRegistryGateway) ports.HealthChecker {
	return &registryHealthChecker{gateway: gateway}
}
