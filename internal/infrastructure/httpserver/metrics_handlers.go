package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Consumer-facing traffic. Registry-side metrics live in the metrics package.
var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "Consumer requests served by the gateway by method, route, status and consumer",
		},
		[]string{"method", "route", "status", "consumer"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "gateway_http_request_duration_seconds",
			Help: "Time to serve a consumer request, cache hits included",
			// hits answer in microseconds, misses wait on the registry
			Buckets: []float64{.0005, .001, .005, .025, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route"},
	)
)

func GetRequestsTotal() *prometheus.CounterVec {
	return requestsTotal
}

func GetRequestDuration() *prometheus.HistogramVec {
	return requestDuration
}

func (s *Server) logMetrics() {
	if s.logger == nil {
		return
	}
	s.logger.WithFields(map[string]interface{}{
		"gateway_http_*":   "consumer requests by method, route, status and consumer",
		"land_registry_*":  "cache lookups, upstream calls and bulk job states by operation",
		"metrics_endpoint": "/metrics",
	}).Debug("Prometheus metrics registered")
}

func metricsEndpoint() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
