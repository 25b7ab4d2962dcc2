package httpserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	gatewayService = "land-registry-gateway"
	gatewayVersion = "1.0.0"

	// dependencyTimeout bounds each check; the registry check is a real,
	// uncached upstream call.
	dependencyTimeout = 2 * time.Second
)

// healthCheck runs every dependency check in parallel. Any failing
// dependency marks the gateway degraded: cached answers may still be served.
func (s *Server) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dependencyTimeout)
	defer cancel()

	var mu sync.Mutex
	deps := make(map[string]string, len(s.healthCheckers))
	var g errgroup.Group
	for _, hc := range s.healthCheckers {
		if hc == nil {
			continue
		}
		g.Go(func() error {
			started := time.Now()
			err := hc.Check(ctx)
			state := "healthy"
			if err != nil {
				state = "unhealthy"
				s.logger.WithError(err).WithFields(logrus.Fields{
					"dependency": hc.Name(),
					"elapsed_ms": time.Since(started).Milliseconds(),
				}).Warn("gateway dependency unhealthy")
			}
			mu.Lock()
			deps[hc.Name()] = state
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	overall := "healthy"
	for _, state := range deps {
		if state != "healthy" {
			overall = "degraded"
			break
		}
	}

	code := http.StatusOK
	if overall != "healthy" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]interface{}{
		"status":       overall,
		"service":      gatewayService,
		"version":      gatewayVersion,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"cache_size":   s.gateway.CacheStats(ctx).Size,
		"dependencies": deps,
	})
}
