// Package config loads process configuration from the environment once at start-up.
//
// A .env file in the working directory is read first when present; variables already set
// in the environment win over file entries.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Mongo   MongoConfig
	Auth    AuthConfig
	Audit   AuditConfig
	Limits  RateLimitConfig
	Observe ObservabilityConfig
	Version string
	Commit  string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	CORSOrigins     []string
}

// MongoConfig points at the document database. An empty URI selects the in-memory store.
type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// AuthConfig is built once and handed to the auth service and the HTTP middleware.
type AuthConfig struct {
	JWTSecret       string
	APISecret       string
	Issuer          string
	AccessTokenTTL  time.Duration
	LongTokenTTL    time.Duration
	RefreshTokenTTL time.Duration
	CookieDomain    string
	CookieSecure    bool
	GoogleClientID  string
	GoogleIssuer    string
}

// AuditConfig enables the Postgres audit sink when DSN is set. An empty MigrationsDir
// uses the migrations compiled into the binary.
type AuditConfig struct {
	PostgresDSN   string
	MigrationsDir string
}

// RateLimitConfig configures per-client request limiting.
type RateLimitConfig struct {
	Burst     int
	PerSecond int
	RedisURL  string
	Window    time.Duration
}

// PerWindow is the shared Redis allowance per Window: the sustained local rate over the
// whole window, never below Burst.
func (c RateLimitConfig) PerWindow() int {
	n := int(float64(c.PerSecond) * c.Window.Seconds())
	if n < c.Burst {
		return c.Burst
	}
	return n
}

// ObservabilityConfig holds logging and tracing settings.
type ObservabilityConfig struct {
	LogLevel     string
	OTelEnabled  bool
	OTelEndpoint string
	OTelInsecure bool
	ServiceName  string
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// FromEnv builds a Config from current environment variables without validation.
func FromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":" + getEnv("PORT", "3001"),
			ReadTimeout:     getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
			MaxBodyBytes:    int64(getEnvInt("HTTP_MAX_BODY_BYTES", 1<<20)),
			CORSOrigins:     getEnvList("CORS_ORIGINS"),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", ""),
			Database: getEnv("MONGO_DB", "mentorgraph"),
			Timeout:  getEnvDuration("MONGO_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:       os.Getenv("JWT_SECRET"),
			APISecret:       os.Getenv("API_SECRET"),
			Issuer:          getEnv("JWT_ISSUER", "mentorgraph"),
			AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_LENGTH", 15*time.Minute),
			LongTokenTTL:    time.Duration(getEnvInt("ACCESS_TOKEN_VALIDITY_DAYS", 90)) * 24 * time.Hour,
			RefreshTokenTTL: time.Duration(getEnvInt("REFRESH_TOKEN_VALIDITY_DAYS", 90)) * 24 * time.Hour,
			CookieDomain:    getEnv("COOKIE_DOMAIN", ""),
			CookieSecure:    getEnvBool("COOKIE_SECURE", true),
			GoogleClientID:  getEnv("GOOGLE_CLIENT_ID", ""),
			GoogleIssuer:    getEnv("GOOGLE_ISSUER", "https://accounts.google.com"),
		},
		Audit: AuditConfig{
			PostgresDSN:   getEnv("AUDIT_PG_DSN", ""),
			MigrationsDir: getEnv("AUDIT_MIGRATIONS_DIR", ""),
		},
		Limits: RateLimitConfig{
			Burst:     getEnvInt("RATE_LIMIT_BURST", 40),
			PerSecond: getEnvInt("RATE_LIMIT_PER_SEC", 20),
			RedisURL:  getEnv("REDIS_URL", ""),
			Window:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Observe: ObservabilityConfig{
			LogLevel:     getEnv("LOG_LEVEL", "info"),
			OTelEnabled:  getEnvBool("OTEL_ENABLED", false),
			OTelEndpoint: getEnv("OTEL_ENDPOINT", "localhost:4317"),
			OTelInsecure: getEnvBool("OTEL_INSECURE", true),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "mentorgraph-api"),
		},
		Version: getEnv("APP_VERSION", "dev"),
		Commit:  getEnv("APP_COMMIT", "unknown"),
	}
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	if strings.TrimSpace(c.Auth.APISecret) == "" {
		return errors.New("API_SECRET is required")
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.LongTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.Limits.Burst <= 0 || c.Limits.PerSecond <= 0 {
		return errors.New("rate limit burst and rate must be positive")
	}
	if c.Observe.OTelEnabled && c.Observe.OTelEndpoint == "" {
		return errors.New("OTEL_ENDPOINT is required when OTEL_ENABLED is set")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// getEnvDuration accepts Go durations ("15m") or a bare number of seconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func getEnvList(key string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
