package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	LandRegistry LandRegistryConfig
	Cache        CacheConfig
	BulkJobs     BulkJobsConfig
	Database     DatabaseConfig
	Email        EmailConfig
	Redis        RedisConfig
	Log          LogConfig
	RateLimit    RateLimitConfig
	Consumer     ConsumerConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
	// Empty disables CORS
	AllowedOrigins []string
}

// LandRegistryConfig configures outbound calls to the registry API.
// A JWT signing secret takes precedence over a static APIToken.
type LandRegistryConfig struct {
	BaseURL   string
	APIToken  string
	Timeout   time.Duration
	UserAgent string
	// Service JWT
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	JWTTTL      time.Duration
}

type CacheConfig struct {
	Backend        string // memory or redis
	ShortTTL       time.Duration
	LongTTL        time.Duration
	DedupeInFlight bool
	KeyPrefix      string
	// Per-operation TTLs keyed by operation name, e.g. "searchProperties"
	TTLOverrides map[string]time.Duration
}

type BulkJobsConfig struct {
	Retention time.Duration
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	DSN      string
	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type EmailConfig struct {
	Enabled        bool
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	BaseURL        string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

type RateLimitConfig struct {
	DefaultRequestsPerMinute int
	BurstMultiplier          float64
	Window                   time.Duration
	KeyPrefix                string
}

// ConsumerConfig holds the API keys consumers present in X-API-Key.
// Authentication is off when no key is configured.
type ConsumerConfig struct {
	APIKeys []APIKey
}

type APIKey struct {
	Name string `toml:"name"`
	Hash string `toml:"hash"` // bcrypt
	// Overrides RATE_LIMIT_RPM for this consumer when positive
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// fileConfig is the optional TOML overlay named by CONFIG_FILE.
type fileConfig struct {
	Cache struct {
		TTL map[string]string `toml:"ttl"`
	} `toml:"cache"`
	Consumer struct {
		Keys []APIKey `toml:"keys"`
	} `toml:"consumer"`
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnv("SERVER_PORT", "8080"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:    getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			TLSCertFile:    getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:     getEnv("TLS_KEY_FILE", ""),
			AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS"),
		},
		LandRegistry: LandRegistryConfig{
			BaseURL:     strings.TrimRight(getEnvRequired("LAND_REGISTRY_BASE_URL"), "/"),
			APIToken:    getEnv("LAND_REGISTRY_API_TOKEN", ""),
			Timeout:     getDurationEnv("LAND_REGISTRY_TIMEOUT", 30*time.Second),
			UserAgent:   getEnv("LAND_REGISTRY_USER_AGENT", "land-registry-gateway/1.0"),
			JWTSecret:   getEnv("LAND_REGISTRY_JWT_SECRET", ""),
			JWTIssuer:   getEnv("LAND_REGISTRY_JWT_ISSUER", "land-registry-gateway"),
			JWTAudience: getEnv("LAND_REGISTRY_JWT_AUDIENCE", "land-registry-api"),
			JWTTTL:      getDurationEnv("LAND_REGISTRY_JWT_TTL", 15*time.Minute),
		},
		Cache: CacheConfig{
			Backend:        getEnv("CACHE_BACKEND", "memory"),
			ShortTTL:       getDurationEnv("CACHE_SHORT_TTL", 5*time.Minute),
			LongTTL:        getDurationEnv("CACHE_LONG_TTL", 30*time.Minute),
			DedupeInFlight: getBoolEnv("GATEWAY_DEDUPE_INFLIGHT", true),
			KeyPrefix:      getEnv("CACHE_KEY_PREFIX", "lrcache"),
			TTLOverrides:   map[string]time.Duration{},
		},
		BulkJobs: BulkJobsConfig{
			Retention: getDurationEnv("BULK_JOB_RETENTION", 24*time.Hour),
		},
		Database: DatabaseConfig{
			Enabled:         getBoolEnv("DB_ENABLED", false),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "land_registry_gateway"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Email: EmailConfig{
			Enabled:        getBoolEnv("EMAIL_ENABLED", false),
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			FromEmail:      getEnv("FROM_EMAIL", "noreply@example.com"),
			FromName:       getEnv("FROM_NAME", "Land Registry Gateway"),
			BaseURL:        getEnv("BASE_URL", "http://localhost:8080"),
		},
		Redis: RedisConfig{
			Enabled:      getBoolEnv("REDIS_ENABLED", false),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		RateLimit: RateLimitConfig{
			DefaultRequestsPerMinute: getIntEnv("RATE_LIMIT_RPM", 120),
			BurstMultiplier:          getFloatEnv("RATE_LIMIT_BURST", 1.0),
			Window:                   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
			KeyPrefix:                getEnv("RATE_LIMIT_KEY_PREFIX", "ratelimit:client"),
		},
	}

	if cfg.Cache.Backend != "memory" && cfg.Cache.Backend != "redis" {
		return nil, fmt.Errorf("invalid CACHE_BACKEND %q: want memory or redis", cfg.Cache.Backend)
	}
	if cfg.Cache.Backend == "redis" && !cfg.Redis.Enabled {
		return nil, fmt.Errorf("CACHE_BACKEND=redis requires REDIS_ENABLED=true")
	}

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	// Build database DSN
	cfg.Database.DSN = fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	)

	return cfg, nil
}

// applyFile overlays TTL overrides and consumer API keys from a TOML file.
func (c *Config) applyFile(path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	for op, raw := range fc.Cache.TTL {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid cache ttl for %s: %w", op, err)
		}
		if ttl <= 0 {
			return fmt.Errorf("invalid cache ttl for %s: must be positive", op)
		}
		c.Cache.TTLOverrides[op] = ttl
	}
	for _, k := range fc.Consumer.Keys {
		if k.Hash == "" {
			return fmt.Errorf("consumer key %q has no hash", k.Name)
		}
		c.Consumer.APIKeys = append(c.Consumer.APIKeys, k)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvRequired(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("Required environment variable %s is not set", key))
	}
	return value
}

func getListEnv(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
