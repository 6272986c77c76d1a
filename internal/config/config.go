// Package config contains everything related to configuration
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EvictionScope controls which cache entries a write replaces.
type EvictionScope string

const (
	// EvictSubscription keeps a single cached result per subscription.
	EvictSubscription EvictionScope = "subscription"
	// EvictBucket keeps one filtered and one default entry per subscription.
	EvictBucket EvictionScope = "bucket"
)

// Config holds the application configuration.
type Config struct {
	APIURL         string
	APIToken       string
	RequestTimeout time.Duration

	DatabasePath string
	SettingsPath string
	LogFile      string
	LogLevel     string

	CacheTTL      time.Duration
	CacheEviction EvictionScope

	FetchAttempts    int
	FetchBaseDelay   time.Duration
	FetchPacingDelay time.Duration
	SettleDelay      time.Duration
	ErrorBannerTTL   time.Duration

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// Default values
const (
	DefaultAPIURL         = "http://localhost:8000/i/api/v1"
	defaultRequestTimeout = 60 * time.Second
	defaultCacheTTL       = time.Hour
	defaultFetchAttempts  = 3
	defaultBaseDelay      = 5 * time.Second
	defaultPacingDelay    = 5 * time.Second
	defaultSettleDelay    = 500 * time.Millisecond
	defaultErrorBannerTTL = 7 * time.Second
	defaultAMQPExchange   = "cost-dashboard"
	defaultAMQPQueue      = "cost-dashboard.refresh"
)

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit .env file. An empty envFile searches the
// default locations; a missing explicit file is an error.
func LoadFrom(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	} else {
		for _, path := range getEnvPaths() {
			if _, err := os.Stat(path); err == nil {
				_ = godotenv.Load(path)
				break
			}
		}
	}

	cfg := &Config{
		APIURL:         strings.TrimRight(getEnvString("COST_API_URL", DefaultAPIURL), "/"),
		APIToken:       getEnvString("COST_API_TOKEN", ""),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", defaultRequestTimeout),

		DatabasePath: getEnvString("DATABASE_PATH", defaultPath("cache.db")),
		SettingsPath: getEnvString("SETTINGS_PATH", defaultPath("settings.toml")),
		LogFile:      getEnvString("LOG_FILE", defaultPath("cdt.log")),
		LogLevel:     getEnvString("LOG_LEVEL", "info"),

		CacheTTL:      getEnvDuration("CACHE_TTL", defaultCacheTTL),
		CacheEviction: EvictionScope(getEnvString("CACHE_EVICTION", string(EvictSubscription))),

		FetchAttempts:    getEnvInt("FETCH_ATTEMPTS", defaultFetchAttempts),
		FetchBaseDelay:   getEnvDuration("FETCH_BASE_DELAY", defaultBaseDelay),
		FetchPacingDelay: getEnvDuration("FETCH_PACING_DELAY", defaultPacingDelay),
		SettleDelay:      getEnvDuration("SETTLE_DELAY", defaultSettleDelay),
		ErrorBannerTTL:   getEnvDuration("ERROR_BANNER_TTL", defaultErrorBannerTTL),

		AMQPURL:      getEnvString("AMQP_URL", ""),
		AMQPExchange: getEnvString("AMQP_EXCHANGE", defaultAMQPExchange),
		AMQPQueue:    getEnvString("AMQP_QUEUE", defaultAMQPQueue),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := ensureDir(filepath.Dir(cfg.DatabasePath)); err != nil {
		return nil, err
	}
	if err := ensureDir(filepath.Dir(cfg.SettingsPath)); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that cannot be defaulted silently.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("COST_API_URL must not be empty")
	}
	switch c.CacheEviction {
	case EvictSubscription, EvictBucket:
	default:
		return fmt.Errorf("CACHE_EVICTION must be %q or %q, got %q",
			EvictSubscription, EvictBucket, c.CacheEviction)
	}
	if c.FetchAttempts < 1 {
		return fmt.Errorf("FETCH_ATTEMPTS must be at least 1, got %d", c.FetchAttempts)
	}
	return nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "cost-dashboard", ".env"),
			filepath.Join(home, ".cost-dashboard", ".env"),
		)
	}

	// Parent directories (useful for development)
	if cwd, err := os.Getwd(); err == nil {
		parent := filepath.Dir(cwd)
		paths = append(paths, filepath.Join(parent, ".env"))
	}

	return paths
}

// defaultPath returns name inside the per-user config directory.
func defaultPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".config", "cost-dashboard", name)
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
