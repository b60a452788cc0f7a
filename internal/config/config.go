package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the VidScout server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Queue    QueueConfig
	Source   SourceConfig
	Scrape   ScrapeConfig
}

type ServerConfig struct {
	Port int
	Env  string
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

// QueueConfig configures the external push queue: where to publish,
// where the queue delivers callbacks, and the keys used to verify
// inbound delivery signatures.
type QueueConfig struct {
	URL               string
	Token             string
	CallbackBaseURL   string
	SigningKeyCurrent string
	SigningKeyNext    string
	PublishRetries    int
	PublishTimeout    time.Duration
}

// SourceConfig points at the remote video platform.
type SourceConfig struct {
	BaseURL   string
	OEmbedURL string
	Timeout   time.Duration
}

// ScrapeConfig tunes the orchestrator: freshness window, per-execution
// batch cap, concurrency group size, enumeration safety cap, and the
// recovery sweep.
type ScrapeConfig struct {
	FreshnessWindow   time.Duration
	BatchSize         int
	GroupSize         int
	MaxCollectionSize int
	RecoveryLimit     int
	RecoverySchedule  string
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("VIDSCOUT_PORT", 8080),
			Env:  envString("VIDSCOUT_ENV", "development"),
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
		Queue: QueueConfig{
			URL:               os.Getenv("QUEUE_URL"),
			Token:             os.Getenv("QUEUE_TOKEN"),
			CallbackBaseURL:   os.Getenv("QUEUE_CALLBACK_BASE_URL"),
			SigningKeyCurrent: os.Getenv("QUEUE_SIGNING_KEY_CURRENT"),
			SigningKeyNext:    os.Getenv("QUEUE_SIGNING_KEY_NEXT"),
			PublishRetries:    envInt("QUEUE_PUBLISH_RETRIES", 3),
			PublishTimeout:    envDuration("QUEUE_PUBLISH_TIMEOUT", 10*time.Second),
		},
		Source: SourceConfig{
			BaseURL:   os.Getenv("SOURCE_BASE_URL"),
			OEmbedURL: os.Getenv("SOURCE_OEMBED_URL"),
			Timeout:   envDuration("SOURCE_TIMEOUT", 15*time.Second),
		},
		Scrape: ScrapeConfig{
			FreshnessWindow:   envDuration("SCRAPE_FRESHNESS_WINDOW", 24*time.Hour),
			BatchSize:         envInt("SCRAPE_BATCH_SIZE", 20),
			GroupSize:         envInt("SCRAPE_GROUP_SIZE", 5),
			MaxCollectionSize: envInt("SCRAPE_MAX_COLLECTION_SIZE", 500),
			RecoveryLimit:     envInt("SCRAPE_RECOVERY_LIMIT", 100),
			RecoverySchedule:  envString("SCRAPE_RECOVERY_SCHEDULE", "0 4 * * *"),
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

	if c.Queue.URL == "" {
		return fmt.Errorf("QUEUE_URL is required")
	}
	if !isHTTPURL(c.Queue.URL) {
		return fmt.Errorf("QUEUE_URL must start with http:// or https://, got %q", c.Queue.URL)
	}
	if c.Queue.CallbackBaseURL == "" {
		return fmt.Errorf("QUEUE_CALLBACK_BASE_URL is required")
	}
	if !isHTTPURL(c.Queue.CallbackBaseURL) {
		return fmt.Errorf("QUEUE_CALLBACK_BASE_URL must start with http:// or https://, got %q", c.Queue.CallbackBaseURL)
	}

	if c.Source.BaseURL == "" {
		return fmt.Errorf("SOURCE_BASE_URL is required")
	}
	if !isHTTPURL(c.Source.BaseURL) {
		return fmt.Errorf("SOURCE_BASE_URL must start with http:// or https://, got %q", c.Source.BaseURL)
	}
	if c.Source.OEmbedURL != "" && !isHTTPURL(c.Source.OEmbedURL) {
		return fmt.Errorf("SOURCE_OEMBED_URL must start with http:// or https://, got %q", c.Source.OEmbedURL)
	}

	if c.Scrape.BatchSize <= 0 {
		return fmt.Errorf("SCRAPE_BATCH_SIZE must be positive, got %d", c.Scrape.BatchSize)
	}
	if c.Scrape.GroupSize <= 0 {
		return fmt.Errorf("SCRAPE_GROUP_SIZE must be positive, got %d", c.Scrape.GroupSize)
	}
	if c.Scrape.GroupSize > c.Scrape.BatchSize {
		return fmt.Errorf("SCRAPE_GROUP_SIZE (%d) must not exceed SCRAPE_BATCH_SIZE (%d)",
			c.Scrape.GroupSize, c.Scrape.BatchSize)
	}
	if c.Scrape.MaxCollectionSize <= 0 {
		return fmt.Errorf("SCRAPE_MAX_COLLECTION_SIZE must be positive, got %d", c.Scrape.MaxCollectionSize)
	}

	return nil
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
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
