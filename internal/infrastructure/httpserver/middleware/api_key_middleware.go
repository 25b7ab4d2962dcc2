package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/land-registry-gateway/internal/infrastructure/httpserver/helpers"
	"github.com/avatarctic/land-registry-gateway/internal/utils"
)

// Consumer is a caller allowed to use the gateway. Hash is the bcrypt hash
// of its API key.
type Consumer struct {
	Name string
	Hash string
}

type APIKeyMiddleware struct {
	consumers []Consumer
	logger    *logrus.Logger
	// sha256 of a key already checked against bcrypt -> consumer name
	verified sync.Map
}

func NewAPIKeyMiddleware(consumers []Consumer, logger *logrus.Logger) *APIKeyMiddleware {
	return &APIKeyMiddleware{consumers: consumers, logger: logger}
}

// Enabled reports whether any consumer is configured.
func (m *APIKeyMiddleware) Enabled() bool { return len(m.consumers) > 0 }

// RequireAPIKey authenticates the X-API-Key header and sets the consumer
// name in context. With no consumers configured every request passes.
func (m *APIKeyMiddleware) RequireAPIKey() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !m.Enabled() {
				return next(c)
			}
			key, err := helpers.GetAPIKeyFromRequest(c)
			if err != nil {
				return err
			}

			name, ok := m.lookup(key)
			if !ok {
				if m.logger != nil {
					m.logger.WithFields(logrus.Fields{"ip": c.RealIP(), "path": c.Request().URL.Path}).Warn("api key rejected")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid api key")
			}
			helpers.SetConsumer(c, name)
			if m.logger != nil {
				m.logger.WithField("consumer", name).Debug("api key validated and consumer context set")
			}
			return next(c)
		}
	}
}

func (m *APIKeyMiddleware) lookup(key string) (string, bool) {
	sum := sha256.Sum256([]byte(key))
	digest := hex.EncodeToString(sum[:])
	if name, ok := m.verified.Load(digest); ok {
		return name.(string), true
	}
	for _, consumer := range m.consumers {
		if utils.CompareAPIKey(consumer.Hash, key) {
			m.verified.Store(digest, consumer.Name)
			return consumer.Name, true
		}
	}
	return "", false
}
