package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Health sources selectable with HEALTH_SOURCE.
const (
	HealthSourceProbe = "probe" // built-in health monitor
	HealthSourceRedis = "redis" // external monitor over Redis pub/sub
	HealthSourceNone  = "none"  // health only via PUT /v1/health
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Registry seed; empty means the built-in fleet.
	RegistryFile string

	// Health
	HealthSource          string
	HealthProbeInterval   time.Duration
	HealthProbeTimeout    time.Duration
	HealthTTL             time.Duration
	HealthDegradedLatency time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Observability
	OTLPEndpoint string
	OTelEnabled  bool

	// Admin auth; an empty secret disables it.
	JWTSecret string
	JWTTTL    time.Duration

	// Redis health feed
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RedisHealthChannel string

	// Qdrant probing
	QdrantAPIKey string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	cfg := &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		RegistryFile: getEnv("REGISTRY_FILE", ""),

		HealthSource:          strings.ToLower(getEnv("HEALTH_SOURCE", HealthSourceProbe)),
		HealthProbeInterval:   getEnvDuration("HEALTH_PROBE_INTERVAL", 30*time.Second),
		HealthProbeTimeout:    getEnvDuration("HEALTH_PROBE_TIMEOUT", 5*time.Second),
		HealthTTL:             getEnvDuration("HEALTH_TTL", 2*time.Minute),
		HealthDegradedLatency: getEnvDuration("HEALTH_DEGRADED_LATENCY", time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 2),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 16),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelEnabled:  getEnvBool("OTEL_ENABLED", false),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTTTL:    getEnvDuration("JWT_TTL", 12*time.Hour),

		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		RedisHealthChannel: getEnv("REDIS_HEALTH_CHANNEL", "sophia:health"),

		QdrantAPIKey: getEnv("QDRANT_API_KEY", ""),
	}

	switch cfg.HealthSource {
	case HealthSourceProbe, HealthSourceRedis, HealthSourceNone:
	default:
		cfg.HealthSource = HealthSourceProbe
	}
	if cfg.HealthSource == HealthSourceRedis && cfg.RedisAddr == "" {
		cfg.HealthSource = HealthSourceNone
	}

	// Tickers and cache expiry need positive durations.
	cfg.HealthProbeInterval = positive(cfg.HealthProbeInterval, 30*time.Second)
	cfg.HealthProbeTimeout = positive(cfg.HealthProbeTimeout, 5*time.Second)
	cfg.HealthTTL = positive(cfg.HealthTTL, 2*time.Minute)
	return cfg
}

// TracingEndpoint returns the OTLP endpoint, or "" when tracing is off.
func (c *Config) TracingEndpoint() string {
	if !c.OTelEnabled {
		return ""
	}
	return c.OTLPEndpoint
}

func positive(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
