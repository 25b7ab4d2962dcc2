package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/land-registry-gateway/internal/infrastructure/httpserver/helpers"
)

type LoggingMiddleware struct {
	logger *logrus.Logger
}

func NewLoggingMiddleware(logger *logrus.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger}
}

func (m *LoggingMiddleware) RequestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if m.logger == nil {
				return err
			}
			fields := logrus.Fields{
				"method":     c.Request().Method,
				"path":       c.Path(),
				"status":     c.Response().Status,
				"client":     helpers.ClientKey(c),
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
				"elapsed_ms": time.Since(start).Milliseconds(),
			}
			if err != nil {
				m.logger.WithFields(fields).WithError(err).Info("request failed")
			} else {
				m.logger.WithFields(fields).Debug("request served")
			}
			return err
		}
	}
}
