package middleware

import (
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/land-registry-gateway/internal/core/ports"
	"github.com/avatarctic/land-registry-gateway/internal/infrastructure/httpserver/helpers"
)

// Quota headers sent on every limited /api/v1 response.
const (
	HeaderQuotaLimit     = "X-RateLimit-Limit"
	HeaderQuotaRemaining = "X-RateLimit-Remaining"
	HeaderQuotaReset     = "X-RateLimit-Reset"
	HeaderRetryAfter     = "Retry-After"
)

// RateLimitMiddleware shares the registry quota between consumers. It runs
// in front of the cache, so a throttled consumer cannot read cached data
// either.
type RateLimitMiddleware struct {
	limiter ports.RateLimiterService
	logger  *logrus.Logger
}

func NewRateLimitMiddleware(limiter ports.RateLimiterService, logger *logrus.Logger) *RateLimitMiddleware {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &RateLimitMiddleware{limiter: limiter, logger: logger}
}

// Enabled reports whether a limiter is configured.
func (r *RateLimitMiddleware) Enabled() bool { return r.limiter != nil }

// Handler must be installed after RequireAPIKey so consumers are counted by
// name rather than by address.
func (r *RateLimitMiddleware) Handler() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if r.limiter == nil {
				return next(c)
			}
			client := helpers.ClientKey(c)

			allowed, remaining, limit, reset, err := r.limiter.Allow(c.Request().Context(), client)
			if err != nil {
				// fail open while the limiter store is unavailable
				r.logger.WithError(err).WithField("client", client).Warn("quota check failed, request let through")
				return next(c)
			}

			h := c.Response().Header()
			h.Set(HeaderQuotaLimit, strconv.Itoa(limit))
			h.Set(HeaderQuotaRemaining, strconv.Itoa(remaining))
			h.Set(HeaderQuotaReset, strconv.FormatInt(reset.Unix(), 10))
			if allowed {
				return next(c)
			}

			h.Set(HeaderRetryAfter, strconv.Itoa(retryAfterSeconds(reset)))
			r.logger.WithFields(logrus.Fields{
				"client": client,
				"route":  c.Path(),
				"limit":  limit,
			}).Info("consumer over quota")
			return echo.NewHTTPError(http.StatusTooManyRequests, "consumer quota exhausted, retry after the window resets")
		}
	}
}

// retryAfterSeconds rounds up and never returns less than one second.
func retryAfterSeconds(reset time.Time) int {
	secs := int(math.Ceil(time.Until(reset).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
