package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/avatarctic/land-registry-gateway/internal/infrastructure/httpserver/helpers"
	customMiddleware "github.com/avatarctic/land-registry-gateway/internal/infrastructure/httpserver/middleware"
)

// maxRequestBody caps bulk search submissions, the only endpoint with a body.
const maxRequestBody = "1M"

// exposedHeaders lets browser consumers read their remaining quota.
var exposedHeaders = []string{
	echo.HeaderXRequestID,
	customMiddleware.HeaderQuotaLimit,
	customMiddleware.HeaderQuotaRemaining,
	customMiddleware.HeaderQuotaReset,
	customMiddleware.HeaderRetryAfter,
}

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())

	cors := middleware.DefaultCORSConfig
	if len(s.config.AllowedOrigins) > 0 {
		cors.AllowOrigins = s.config.AllowedOrigins
	}
	cors.AllowHeaders = []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID, helpers.HeaderAPIKey}
	cors.ExposeHeaders = exposedHeaders
	s.echo.Use(middleware.CORSWithConfig(cors))

	s.echo.Use(middleware.BodyLimit(maxRequestBody))
	s.echo.Use(middleware.RequestID())

	// metrics and logging read the consumer set by the /api/v1 group
	s.echo.Use(s.middleware.Metrics.CollectHTTPMetrics())
	s.echo.Use(s.middleware.Logging.RequestLogging())
}
