package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultCategories is the category allow-list used when TREND_CATEGORIES is unset.
var DefaultCategories = []string{"Gaming", "NFTs", "Finance", "Technology", "Crypto", "Business"}

// Config holds all application configuration.
type Config struct {
	// Database
	DatabasePath string

	// Trend sources: "x", "hackernews"
	Sources []string

	// X API
	XBearerToken string
	XAPIBaseURL  string
	HTTPRetryMax int

	// Hacker News
	HackerNewsMaxStories int

	// Deduplication window: trends created within it are match candidates
	TrendWindow time.Duration

	// Filtering
	Categories   []string
	BlockedTerms []string

	// HTTP server
	HTTPAddr string

	// Logging
	LogLevel string

	// Scheduler settings
	MonitorInterval time.Duration
}

// Load reads configuration from environment variables.
// It automatically loads .env file if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath: getEnv("DATABASE_PATH", "data/trendscout.db"),
		Sources:      getList("TREND_SOURCES", []string{"x"}),
		XBearerToken: getEnv("X_BEARER_TOKEN", ""),
		XAPIBaseURL:  strings.TrimRight(getEnv("X_API_BASE_URL", "https://api.x.com"), "/"),
		Categories:   getList("TREND_CATEGORIES", DefaultCategories),
		BlockedTerms: getList("BLOCKED_TERMS", nil),
		HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}

	var err error
	cfg.TrendWindow, err = time.ParseDuration(getEnv("TREND_WINDOW", "168h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TREND_WINDOW: %w", err)
	}

	cfg.MonitorInterval, err = time.ParseDuration(getEnv("MONITOR_INTERVAL", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid MONITOR_INTERVAL: %w", err)
	}

	cfg.HTTPRetryMax, err = strconv.Atoi(getEnv("HTTP_RETRY_MAX", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_RETRY_MAX: %w", err)
	}

	cfg.HackerNewsMaxStories, err = strconv.Atoi(getEnv("HACKERNEWS_MAX_STORIES", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid HACKERNEWS_MAX_STORIES: %w", err)
	}

	return cfg, nil
}

// HasSource reports whether the named trend source is enabled.
func (c *Config) HasSource(name string) bool {
	for _, s := range c.Sources {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.TrendWindow <= 0 {
		return fmt.Errorf("TREND_WINDOW must be positive")
	}
	return nil
}

// ValidateForIngest checks configuration needed to fetch trends.
func (c *Config) ValidateForIngest() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("TREND_SOURCES must name at least one source")
	}
	for _, s := range c.Sources {
		switch strings.ToLower(s) {
		case "x", "hackernews":
		default:
			return fmt.Errorf("invalid TREND_SOURCES entry: %s (must be 'x' or 'hackernews')", s)
		}
	}
	if c.HasSource("x") {
		if c.XBearerToken == "" {
			return fmt.Errorf("X_BEARER_TOKEN is required when TREND_SOURCES includes x")
		}
		if c.XAPIBaseURL == "" {
			return fmt.Errorf("X_API_BASE_URL is required when TREND_SOURCES includes x")
		}
	}
	if c.HTTPRetryMax < 0 {
		return fmt.Errorf("HTTP_RETRY_MAX must not be negative")
	}
	return nil
}

// ValidateForServe checks all configuration needed for serve mode.
func (c *Config) ValidateForServe() error {
	if err := c.ValidateForIngest(); err != nil {
		return err
	}
	if c.MonitorInterval <= 0 {
		return fmt.Errorf("MONITOR_INTERVAL must be positive")
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR is required for serve")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getList splits a comma-separated variable, dropping blank entries.
func getList(key string, defaultVal []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal
	}

	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
