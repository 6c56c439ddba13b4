package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mr1hm/go-quake-feed/internal/models"
)

const defaultFeedBaseURL = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary"

type Config struct {
	Server  ServerConfig
	Worker  WorkerConfig
	Feeds   FeedsConfig
	DB      DBConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	RateLimitRPS int
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type FeedsConfig struct {
	BaseURL         string
	Default         string
	FetchTimeout    time.Duration
	RefreshInterval time.Duration // 0 disables periodic refresh
	Sources         []models.FeedDescriptor
}

type DBConfig struct {
	Path string // empty disables snapshot persistence
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	baseURL := strings.TrimRight(getEnv("FEED_BASE_URL", defaultFeedBaseURL), "/")

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "localhost"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			RateLimitRPS: getEnvInt("RATE_LIMIT_RPS", 5),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 16),
		},
		Feeds: FeedsConfig{
			BaseURL:         baseURL,
			Default:         getEnv("DEFAULT_FEED", "all_day"),
			FetchTimeout:    getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
			RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 0),
			Sources:         DefaultFeeds(baseURL),
		},
		DB: DBConfig{
			Path: getEnv("DB_PATH", ""),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultFeeds is the fixed set of USGS summary feeds under baseURL.
func DefaultFeeds(baseURL string) []models.FeedDescriptor {
	feed := func(key, label, file string) models.FeedDescriptor {
		return models.FeedDescriptor{Key: key, Label: label, URL: baseURL + "/" + file}
	}
	return []models.FeedDescriptor{
		feed("all_hour", "Past Hour (all)", "all_hour.geojson"),
		feed("all_day", "Past Day (all)", "all_day.geojson"),
		feed("all_week", "Past Week (all)", "all_week.geojson"),
		feed("m4.5_day", "Past Day (M4.5+)", "4.5_day.geojson"),
		feed("m4.5_week", "Past Week (M4.5+)", "4.5_week.geojson"),
	}
}

// Feed looks up a configured feed by key.
func (c *Config) Feed(key string) (models.FeedDescriptor, bool) {
	for _, f := range c.Feeds.Sources {
		if f.Key == key {
			return f, true
		}
	}
	return models.FeedDescriptor{}, false
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimitRPS < 1 {
		return fmt.Errorf("invalid rate limit: %d", c.Server.RateLimitRPS)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}
	if c.Worker.BufferSize < 0 {
		return fmt.Errorf("worker buffer size must not be negative")
	}

	if _, ok := c.Feed(c.Feeds.Default); !ok {
		return fmt.Errorf("unknown default feed: %s", c.Feeds.Default)
	}
	if c.Feeds.FetchTimeout < 0 {
		return fmt.Errorf("fetch timeout must not be negative")
	}
	if c.Feeds.RefreshInterval != 0 && c.Feeds.RefreshInterval < time.Minute {
		return fmt.Errorf("refresh interval must be at least 1 minute")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
