package httpserver

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Start serves consumers until Shutdown. TLS is used when both a
// certificate and a key are configured; timeouts apply either way.
func (s *Server) Start() error {
	s.logMetrics()

	server := &http.Server{
		Addr:         net.JoinHostPort(s.config.Host, s.config.Port),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	useTLS := s.config.TLSCertFile != "" && s.config.TLSKeyFile != ""
	if useTLS {
		cert, err := tls.LoadX509KeyPair(s.config.TLSCertFile, s.config.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("load gateway TLS certificate: %w", err)
		}
		server.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	}

	s.logger.WithFields(logrus.Fields{
		"addr":          server.Addr,
		"tls":           useTLS,
		"consumer_auth": s.middleware.APIKey.Enabled(),
		"rate_limiting": s.middleware.RateLimit.Enabled(),
		"usage_ledger":  s.usageSvc != nil,
	}).Info("Gateway listening")
	if !s.middleware.APIKey.Enabled() {
		s.logger.Warn("No consumer API keys configured - gateway is open to any caller")
	}
	return s.echo.StartServer(server)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the router, for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
