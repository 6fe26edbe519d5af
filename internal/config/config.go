package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	CatalogFixture = "fixture"
	CatalogRemote  = "remote"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	HTTPPort           string        `yaml:"http_port"`
	CatalogServicePort string        `yaml:"catalog_service_port"`
	CatalogSource      string        `yaml:"catalog_source"`
	CatalogServiceURL  string        `yaml:"catalog_service_url"`
	CatalogCacheTTL    time.Duration `yaml:"catalog_cache_ttl"`
	RedisAddr          string        `yaml:"redis_addr"`
	JWTSecret          string        `yaml:"jwt_secret"`
	TokenTTL           time.Duration `yaml:"token_ttl"`
	DatabaseDriver     string        `yaml:"database_driver"`
	DatabaseURL        string        `yaml:"database_url"`
	RateLimitRequests  int           `yaml:"rate_limit_requests"`
	RateLimitWindow    time.Duration `yaml:"rate_limit_window"`
	PasswordResetTTL   time.Duration `yaml:"password_reset_ttl"`
	LogLevel           string        `yaml:"log_level"`
}

func defaults() *Config {
	return &Config{
		HTTPPort:           "8080",
		CatalogServicePort: "8083",
		CatalogSource:      CatalogFixture,
		CatalogServiceURL:  "http://localhost:8083",
		CatalogCacheTTL:    30 * time.Second,
		RedisAddr:          "localhost:6379",
		JWTSecret:          "dev-secret-change-me",
		TokenTTL:           24 * time.Hour,
		DatabaseDriver:     DriverSQLite,
		DatabaseURL:        "file:myshop.db",
		RateLimitRequests:  60,
		RateLimitWindow:    60 * time.Second,
		PasswordResetTTL:   time.Hour,
		LogLevel:           "info",
	}
}

// NewConfig reads the environment on top of the defaults. Malformed values
// fall back to the default and are logged.
func NewConfig() *Config {
	cfg := defaults()
	cfg.applyEnv()
	return cfg
}

// Load reads the YAML file at path (if non-empty), then the environment,
// and validates the result. Environment variables win over the file.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.HTTPPort = getEnv("HTTP_PORT", c.HTTPPort)
	c.CatalogServicePort = getEnv("CATALOG_SERVICE_PORT", c.CatalogServicePort)
	c.CatalogSource = getEnv("CATALOG_SOURCE", c.CatalogSource)
	c.CatalogServiceURL = getEnv("CATALOG_SERVICE_URL", c.CatalogServiceURL)
	c.CatalogCacheTTL = getDuration("CATALOG_CACHE_TTL", c.CatalogCacheTTL)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.TokenTTL = getDuration("TOKEN_TTL", c.TokenTTL)
	c.DatabaseDriver = getEnv("DATABASE_DRIVER", c.DatabaseDriver)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.RateLimitRequests = getInt("RATE_LIMIT_REQUESTS", c.RateLimitRequests)
	c.RateLimitWindow = getDuration("RATE_LIMIT_WINDOW", c.RateLimitWindow)
	c.PasswordResetTTL = getDuration("PASSWORD_RESET_TTL", c.PasswordResetTTL)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

func (c *Config) Validate() error {
	switch c.CatalogSource {
	case CatalogFixture, CatalogRemote:
	default:
		return fmt.Errorf("unknown catalog source %q", c.CatalogSource)
	}

	switch c.DatabaseDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unknown database driver %q", c.DatabaseDriver)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("JWT secret must not be empty")
	}
	return nil
}

// SlogLevel maps LogLevel onto slog, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("Invalid duration in environment, using default", "key", key, "value", value, "default", fallback)
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("Invalid integer in environment, using default", "key", key, "value", value, "default", fallback)
		return fallback
	}
	return n
}
