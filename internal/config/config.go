package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the DocMark server. It is loaded once
// at process start and treated as immutable afterwards.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Converter ConverterConfig
}

type ServerConfig struct {
	Port    int
	Env     string
	Version string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type AuthConfig struct {
	Enabled bool
	// HeaderName is the request header carrying the API key.
	HeaderName string
	// CacheTTL bounds how long a deactivated key may keep validating
	// from the identity cache.
	CacheTTL time.Duration
}

type RateLimitConfig struct {
	Requests int
	Period   time.Duration
}

type AuditConfig struct {
	QueueSize int
}

type ConverterConfig struct {
	Provider    string
	Timeout     time.Duration
	MaxFileSize int64
	Markitdown  MarkitdownConfig
}

type MarkitdownConfig struct {
	BaseURL string
}

var validProviders = map[string]bool{
	"markitdown": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:    envInt("DOCMARK_PORT", 8080),
			Env:     envString("DOCMARK_ENV", "development"),
			Version: envString("DOCMARK_VERSION", "dev"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Auth: AuthConfig{
			Enabled:    envBool("AUTH_ENABLED", true),
			HeaderName: envString("API_KEY_HEADER", "X-API-Key"),
			CacheTTL:   envDuration("IDENTITY_CACHE_TTL", time.Minute),
		},
		RateLimit: RateLimitConfig{
			Requests: envInt("RATE_LIMIT_REQUESTS", 10),
			Period:   envDuration("RATE_LIMIT_PERIOD", time.Minute),
		},
		Audit: AuditConfig{
			QueueSize: envInt("AUDIT_QUEUE_SIZE", 1024),
		},
		Converter: ConverterConfig{
			Provider:    envString("CONVERTER_PROVIDER", "markitdown"),
			Timeout:     envDuration("CONVERTER_TIMEOUT", 60*time.Second),
			MaxFileSize: envInt64("MAX_FILE_SIZE", 10<<20),
			Markitdown: MarkitdownConfig{
				BaseURL: os.Getenv("MARKITDOWN_BASE_URL"),
			},
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Auth.HeaderName == "" {
		return fmt.Errorf("API_KEY_HEADER must not be empty")
	}

	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.RateLimit.Requests)
	}
	if c.RateLimit.Period <= 0 {
		return fmt.Errorf("RATE_LIMIT_PERIOD must be positive, got %s", c.RateLimit.Period)
	}

	if c.Audit.QueueSize <= 0 {
		return fmt.Errorf("AUDIT_QUEUE_SIZE must be positive, got %d", c.Audit.QueueSize)
	}

	if !validProviders[c.Converter.Provider] {
		return fmt.Errorf("CONVERTER_PROVIDER must be markitdown; got %q", c.Converter.Provider)
	}
	if c.Converter.Provider == "markitdown" {
		if c.Converter.Markitdown.BaseURL == "" {
			return fmt.Errorf("MARKITDOWN_BASE_URL is required when CONVERTER_PROVIDER is markitdown")
		}
		if !strings.HasPrefix(c.Converter.Markitdown.BaseURL, "http://") &&
			!strings.HasPrefix(c.Converter.Markitdown.BaseURL, "https://") {
			return fmt.Errorf("MARKITDOWN_BASE_URL must start with http:// or https://, got %q", c.Converter.Markitdown.BaseURL)
		}
	}
	if c.Converter.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive, got %d", c.Converter.MaxFileSize)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
