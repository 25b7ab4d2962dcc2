package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/land-registry-gateway/internal/infrastructure/httpserver/helpers"
	"github.com/avatarctic/land-registry-gateway/internal/infrastructure/httpserver/middleware"
	"github.com/avatarctic/land-registry-gateway/internal/utils"
	tmocks "github.com/avatarctic/land-registry-gateway/test/mocks"
)

func okHandler(c echo.Context) error { return c.NoContent(http.StatusOK) }

func requireHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	htErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, code, htErr.Code)
}

func TestAPIKeyMiddleware_MissingKeyReturns401(t *testing.T) {
	e := echo.New()
	m := middleware.NewAPIKeyMiddleware([]middleware.Consumer{{Name: "ui", Hash: "unused"}}, logrus.New())
	handler := m.RequireAPIKey()(okHandler)
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	requireHTTPError(t, handler(c), http.StatusUnauthorized)
}

func TestAPIKeyMiddleware_SetsConsumer(t *testing.T) {
	key := strings.Repeat("a", 43)
	hash, err := utils.HashAPIKey(key)
	require.NoError(t, err)

	e := echo.New()
	m := middleware.NewAPIKeyMiddleware([]middleware.Consumer{
		{Name: "reporting", Hash: hash},
	}, logrus.New())

	var seen string
	handler := m.RequireAPIKey()(func(c echo.Context) error {
		seen = helpers.ClientKey(c)
		return c.NoContent(http.StatusOK)
	})

	// second request is served from the verified-key cache
	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(helpers.HeaderAPIKey, key)
		require.NoError(t, handler(e.NewContext(req, httptest.NewRecorder())))
		assert.Equal(t, "consumer:reporting", seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(helpers.HeaderAPIKey, strings.Repeat("b", 43))
	requireHTTPError(t, handler(e.NewContext(req, httptest.NewRecorder())), http.StatusUnauthorized)
}

func TestAPIKeyMiddleware_DisabledWithoutConsumers(t *testing.T) {
	e := echo.New()
	m := middleware.NewAPIKeyMiddleware(nil, logrus.New())
	assert.False(t, m.Enabled())
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	require.NoError(t, m.RequireAPIKey()(okHandler)(c))
}

func TestRateLimitMiddleware(t *testing.T) {
	e := echo.New()
	reset := time.Unix(1700000060, 0)

	t.Run("nil limiter passes through", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		m := middleware.NewRateLimitMiddleware(nil, logrus.New())
		assert.False(t, m.Enabled())
		require.NoError(t, m.Handler()(okHandler)(c))
		assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	})

	t.Run("rejects over limit", func(t *testing.T) {
		limiter := &tmocks.RateLimiterMock{AllowFn: func(context.Context, string) (bool, int, int, time.Time, error) {
			return false, 0, 60, reset, nil
		}}
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		err := middleware.NewRateLimitMiddleware(limiter, logrus.New()).Handler()(okHandler)(c)
		requireHTTPError(t, err, http.StatusTooManyRequests)
		assert.Equal(t, "60", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, "1700000060", rec.Header().Get("X-RateLimit-Reset"))
		// the window already closed, so the client may retry almost at once
		assert.Equal(t, "1", rec.Header().Get(middleware.HeaderRetryAfter))
	})

	t.Run("retry after counts down to the window reset", func(t *testing.T) {
		limiter := &tmocks.RateLimiterMock{AllowFn: func(context.Context, string) (bool, int, int, time.Time, error) {
			return false, 0, 60, time.Now().Add(30 * time.Second), nil
		}}
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		requireHTTPError(t, middleware.NewRateLimitMiddleware(limiter, nil).Handler()(okHandler)(c), http.StatusTooManyRequests)
		secs, err := strconv.Atoi(rec.Header().Get(middleware.HeaderRetryAfter))
		require.NoError(t, err)
		assert.InDelta(t, 30, secs, 1)
	})

	t.Run("allowed requests carry no retry hint", func(t *testing.T) {
		limiter := &tmocks.RateLimiterMock{AllowFn: func(context.Context, string) (bool, int, int, time.Time, error) {
			return true, 10, 60, reset, nil
		}}
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		require.NoError(t, middleware.NewRateLimitMiddleware(limiter, logrus.New()).Handler()(okHandler)(c))
		assert.Equal(t, "10", rec.Header().Get(middleware.HeaderQuotaRemaining))
		assert.Empty(t, rec.Header().Get(middleware.HeaderRetryAfter))
	})

	t.Run("limits anonymous callers by ip", func(t *testing.T) {
		var key string
		limiter := &tmocks.RateLimiterMock{AllowFn: func(_ context.Context, clientKey string) (bool, int, int, time.Time, error) {
			key = clientKey
			return true, 59, 60, reset, nil
		}}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderXRealIP, "203.0.113.9")
		c := e.NewContext(req, httptest.NewRecorder())
		require.NoError(t, middleware.NewRateLimitMiddleware(limiter, logrus.New()).Handler()(okHandler)(c))
		assert.Equal(t, "ip:203.0.113.9", key)
	})
}

func counterLabels(t *testing.T, vec *prometheus.CounterVec) []map[string]string {
	t.Helper()
	reg := prometheus.NewRegistry()
	reg.MustRegister(vec)
	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	var out []map[string]string
	for _, series := range families[0].GetMetric() {
		labels := map[string]string{}
		for _, lp := range series.GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		out = append(out, labels)
	}
	return out
}

func newMetricVecs() (*prometheus.CounterVec, *prometheus.HistogramVec) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_requests_total"}, []string{"method", "route", "status", "consumer"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "test_request_seconds"}, []string{"method", "route"})
	return requests, duration
}

func TestMetricsMiddleware_LabelsUnmatchedPaths(t *testing.T) {
	requests, duration := newMetricVecs()
	m := middleware.NewMetricsMiddleware(requests, duration)

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/nowhere", nil), httptest.NewRecorder())
	err := m.CollectHTTPMetrics()(func(echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound)
	})(c)
	requireHTTPError(t, err, http.StatusNotFound)

	assert.Equal(t, []map[string]string{
		{"method": "GET", "route": middleware.RouteUnmatched, "status": "404", "consumer": middleware.ConsumerAnonymous},
	}, counterLabels(t, requests))
}

func TestMetricsMiddleware_LabelsRouteTemplateAndConsumer(t *testing.T) {
	requests, duration := newMetricVecs()
	m := middleware.NewMetricsMiddleware(requests, duration)

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/properties/ABC123", nil), httptest.NewRecorder())
	c.SetPath("/api/v1/properties/:titleNumber")
	// authentication runs inside the chain, after the middleware was entered
	require.NoError(t, m.CollectHTTPMetrics()(func(c echo.Context) error {
		helpers.SetConsumer(c, "reporting")
		return c.NoContent(http.StatusOK)
	})(c))

	assert.Equal(t, []map[string]string{
		{"method": "GET", "route": "/api/v1/properties/:titleNumber", "status": "200", "consumer": "reporting"},
	}, counterLabels(t, requests))
}
