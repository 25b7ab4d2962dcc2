package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/avatarctic/land-registry-gateway/internal/infrastructure/httpserver/helpers"
)

// Label values used when a request has no route or no authenticated consumer.
const (
	RouteUnmatched    = "unmatched"
	ConsumerAnonymous = "anonymous"
)

// MetricsMiddleware counts consumer traffic. The counter is labelled
// {method, route, status, consumer} and the histogram {method, route}.
type MetricsMiddleware struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func NewMetricsMiddleware(requestsTotal *prometheus.CounterVec, requestDuration *prometheus.HistogramVec) *MetricsMiddleware {
	return &MetricsMiddleware{
		requestsTotal:   requestsTotal,
		requestDuration: requestDuration,
	}
}

// CollectHTTPMetrics labels requests by route template so title numbers and
// job ids never become label values. The consumer is read after the handler
// chain has run, since authentication happens on the /api/v1 group.
func (m *MetricsMiddleware) CollectHTTPMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = RouteUnmatched
			}
			consumer, ok := helpers.GetConsumerRaw(c)
			if !ok {
				consumer = ConsumerAnonymous
			}
			status := c.Response().Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			}

			method := c.Request().Method
			m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status), consumer).Inc()
			m.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
