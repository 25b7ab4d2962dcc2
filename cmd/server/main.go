package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	config "github.com/avatarctic/land-registry-gateway/configs"
	"github.com/avatarctic/land-registry-gateway/internal/application/services"
	"github.com/avatarctic/land-registry-gateway/internal/core/ports"
	"github.com/avatarctic/land-registry-gateway/internal/infrastructure/auth"
	"github.com/avatarctic/land-registry-gateway/internal/infrastructure/db"
	"github.com/avatarctic/land-registry-gateway/internal/infrastructure/email"
	"github.com/avatarctic/land-registry-gateway/internal/infrastructure/health"
	"github.com/avatarctic/land-registry-gateway/internal/infrastructure/httpserver"
	"github.com/avatarctic/land-registry-gateway/internal/infrastructure/httpserver/middleware"
	"github.com/avatarctic/land-registry-gateway/internal/infrastructure/landregistry"
	"github.com/avatarctic/land-registry-gateway/internal/infrastructure/memcache"
	"github.com/avatarctic/land-registry-gateway/internal/infrastructure/metrics"
	"github.com/avatarctic/land-registry-gateway/internal/infrastructure/redis"
	"github.com/avatarctic/land-registry-gateway/internal/infrastructure/repositories"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting Land Registry gateway...")

	var healthCheckers []ports.HealthChecker

	// Redis backs the shared cache and the rate limiter when enabled
	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis:", err)
		}
		defer redisClient.Close()
		healthCheckers = append(healthCheckers, health.NewRedisHealthChecker(redisClient))
		logger.Info("Connected to Redis successfully")
	}

	var cache ports.CacheStore
	switch cfg.Cache.Backend {
	case "redis":
		cache = redis.NewRedisCache(redisClient, cfg.Cache.KeyPrefix, logger)
	default:
		cache = memcache.NewStore()
	}
	logger.WithField("backend", cfg.Cache.Backend).Info("Response cache ready")

	// Outbound credentials: a signing secret wins over a static token
	var tokens ports.TokenSource
	switch {
	case cfg.LandRegistry.JWTSecret != "":
		jwtTokens, err := auth.NewJWTTokenSource(auth.JWTConfig{
			Secret:   cfg.LandRegistry.JWTSecret,
			Issuer:   cfg.LandRegistry.JWTIssuer,
			Audience: cfg.LandRegistry.JWTAudience,
			TTL:      cfg.LandRegistry.JWTTTL,
		})
		if err != nil {
			logger.Fatal("Failed to initialize registry token source:", err)
		}
		tokens = jwtTokens
	case cfg.LandRegistry.APIToken != "":
		tokens = auth.NewStaticTokenSource(cfg.LandRegistry.APIToken)
	default:
		logger.Warn("No registry credentials configured - calls are sent unauthenticated")
	}

	executor, err := landregistry.NewExecutor(landregistry.ExecutorConfig{
		BaseURL:   cfg.LandRegistry.BaseURL,
		UserAgent: cfg.LandRegistry.UserAgent,
		Timeout:   cfg.LandRegistry.Timeout,
	}, tokens, logger)
	if err != nil {
		logger.Fatal("Failed to initialize registry client:", err)
	}

	observer, err := metrics.NewObserver(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("Failed to register gateway metrics:", err)
	}

	// Usage ledger is optional and needs Postgres
	var usageService ports.UsageService
	var recorder ports.UsageRecorder
	if cfg.Database.Enabled {
		database, err := db.NewDatabaseWithConfig(&cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database:", err)
		}
		defer database.Close()
		logger.Info("Connected to database successfully")

		if version, err := database.Migrate("./migrations"); err != nil {
			logger.Warn("Failed to run migrations:", err)
		} else {
			logger.WithField("schema_version", version).Info("Ledger schema up to date")
		}

		svc := services.NewUsageService(repositories.NewUsageRepository(database, logger), logger)
		usageService = svc
		recorder = svc
		healthCheckers = append(healthCheckers, health.NewDBHealthChecker(database))
	}

	var notifier ports.JobNotifier
	if cfg.Email.Enabled {
		emailService, err := email.NewEmailService(&email.EmailConfig{
			SendGridAPIKey: cfg.Email.SendGridAPIKey,
			FromEmail:      cfg.Email.FromEmail,
			FromName:       cfg.Email.FromName,
			BaseURL:        cfg.Email.BaseURL,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize email service:", err)
		}
		notifier = emailService
	}

	instrumented := services.NewInstrumentedExecutor(executor, observer, recorder, logger)
	tracker := services.NewBulkJobTracker(instrumented, notifier, observer, logger, cfg.BulkJobs.Retention)
	gateway := services.NewGateway(cache, instrumented, tracker, observer, logger, services.GatewayConfig{
		ShortTTL:       cfg.Cache.ShortTTL,
		LongTTL:        cfg.Cache.LongTTL,
		TTLOverrides:   cfg.Cache.TTLOverrides,
		DedupeInFlight: cfg.Cache.DedupeInFlight,
	})
	healthCheckers = append([]ports.HealthChecker{health.NewRegistryHealthChecker(gateway)}, healthCheckers...)

	consumers := make([]middleware.Consumer, 0, len(cfg.Consumer.APIKeys))
	clientLimits := make(map[string]int)
	for _, k := range cfg.Consumer.APIKeys {
		consumers = append(consumers, middleware.Consumer{Name: k.Name, Hash: k.Hash})
		if k.RequestsPerMinute > 0 {
			clientLimits["consumer:"+k.Name] = k.RequestsPerMinute
		}
	}

	var rateLimiter ports.RateLimiterService
	if cfg.Redis.Enabled {
		rateLimiter = services.NewRateLimiterService(repositories.NewRateLimitRedisRepository(redisClient), &services.RateLimiterConfig{
			DefaultRequestsPerMinute: cfg.RateLimit.DefaultRequestsPerMinute,
			BurstMultiplier:          cfg.RateLimit.BurstMultiplier,
			Window:                   cfg.RateLimit.Window,
			KeyPrefix:                cfg.RateLimit.KeyPrefix,
			ClientLimits:             clientLimits,
		}, logger)
	} else {
		logger.Warn("Redis disabled - consumer rate limiting is off")
	}

	serverConfig := &httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}

	server := httpserver.NewServer(serverConfig, logger, httpserver.ServerDeps{
		Gateway:            gateway,
		UsageService:       usageService,
		RateLimiterService: rateLimiter,
		Consumers:          consumers,
		HealthCheckers:     healthCheckers,
	})

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
