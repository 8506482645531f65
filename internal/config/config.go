// Package config provides configuration loading and validation for the
// service. All configuration comes from environment variables; godotenv in
// the CLI entrypoint loads a .env file into the environment first.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the service configuration.
type Config struct {
	// DatabaseURL is the PostgreSQL connection URL (required).
	DatabaseURL string
	// GeminiAPIKey authenticates content generation calls (required).
	GeminiAPIKey string
	// Port is the HTTP listen port.
	Port string
	// PublicBaseURL is the externally reachable base URL of this service,
	// used to build published page links.
	PublicBaseURL string
	// V0APIKey enables publishing through v0.dev instead of serving pages
	// locally. Optional.
	V0APIKey string

	// FanOutLimit bounds concurrent image generation per thread.
	FanOutLimit int
	// StageTimeout bounds one stage handler invocation.
	StageTimeout time.Duration
	// ItemTimeout bounds one image fan-out unit.
	ItemTimeout time.Duration
	// RenderTimeout bounds one headless-browser screenshot.
	RenderTimeout time.Duration
}

// FromEnv loads the service configuration from the environment.
func FromEnv() (*Config, error) {
	cfg := &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		Port:          os.Getenv("PORT"),
		PublicBaseURL: os.Getenv("PUBLIC_BASE_URL"),
		V0APIKey:      os.Getenv("V0_API_KEY"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:" + cfg.Port
	}

	var err error
	if cfg.FanOutLimit, err = intFromEnv("FAN_OUT_LIMIT", 4); err != nil {
		return nil, err
	}
	if cfg.StageTimeout, err = durationFromEnv("STAGE_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ItemTimeout, err = durationFromEnv("ITEM_TIMEOUT", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RenderTimeout, err = durationFromEnv("RENDER_TIMEOUT", 45*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required but not set")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required but not set")
	}
	if c.FanOutLimit < 1 {
		return fmt.Errorf("FAN_OUT_LIMIT must be at least 1, got: %d", c.FanOutLimit)
	}
	return nil
}

func intFromEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return value, nil
}

func durationFromEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return value, nil
}
