package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the dashboard service configuration.
type Config struct {
	// Server
	Port      int `env:"DASHBOARD_PORT" envDefault:"8080"`
	TimeoutMS int `env:"TIMEOUT_MS" envDefault:"5000"`

	// Generative model
	APIKey      string `env:"API_KEY"`
	Model       string `env:"MODEL" envDefault:"gemini-2.5-flash"`
	PromptsFile string `env:"PROMPTS_FILE"`

	// Refresh cadence
	RefreshIntervalSec int `env:"REFRESH_INTERVAL_SEC" envDefault:"30"`
	FlashWindowMS      int `env:"FLASH_WINDOW_MS" envDefault:"1500"`
	ReadoutIntervalSec int `env:"READOUT_INTERVAL_SEC" envDefault:"5"`

	// Redis (optional, disabled when REDIS_URL is empty)
	RedisURL      string `env:"REDIS_URL"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	CacheTTLSec   int    `env:"CACHE_TTL_SEC" envDefault:"300"`

	// Computed durations (not from env)
	RefreshInterval time.Duration `env:"-"`
	FlashWindow     time.Duration `env:"-"`
	ReadoutInterval time.Duration `env:"-"`
	CacheTTL        time.Duration `env:"-"`

	// Observability
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	PrometheusPort int    `env:"PROMETHEUS_PORT" envDefault:"9092"`
}

// Timeout returns the API route timeout as a time.Duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// RedisEnabled reports whether a Redis URL was configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != ""
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{}
	opts := env.Options{
		Prefix: "",
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	cfg.RefreshInterval = time.Duration(cfg.RefreshIntervalSec) * time.Second
	cfg.FlashWindow = time.Duration(cfg.FlashWindowMS) * time.Millisecond
	cfg.ReadoutInterval = time.Duration(cfg.ReadoutIntervalSec) * time.Second
	cfg.CacheTTL = time.Duration(cfg.CacheTTLSec) * time.Second

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if c.TimeoutMS < 1 {
		return fmt.Errorf("timeout must be at least 1ms, got %dms", c.TimeoutMS)
	}

	if c.APIKey == "" {
		return fmt.Errorf("API_KEY environment variable not set")
	}

	if c.Model == "" {
		return fmt.Errorf("model name is required")
	}

	if c.RefreshInterval < time.Second {
		return fmt.Errorf("refresh interval must be at least 1 second")
	}

	if c.FlashWindow <= 0 {
		return fmt.Errorf("flash window must be positive, got %dms", c.FlashWindowMS)
	}

	if c.ReadoutInterval < time.Second {
		return fmt.Errorf("readout interval must be at least 1 second")
	}

	if c.RedisEnabled() && c.CacheTTL < time.Second {
		return fmt.Errorf("cache TTL must be at least 1 second")
	}

	if c.PrometheusPort < 0 || c.PrometheusPort > 65535 {
		return fmt.Errorf("invalid prometheus port: %d", c.PrometheusPort)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	return nil
}
