package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

type Config struct {
	API           APIConfig           `mapstructure:"api"`
	Realtime      RealtimeConfig      `mapstructure:"realtime"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Session       SessionConfig       `mapstructure:"session"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type APIConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	ImageBaseURL string        `mapstructure:"image_base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type RealtimeConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	RedisURL string `mapstructure:"redis_url"`
}

type StorageConfig struct {
	// Path is the sqlite file holding the cached session. Defaults to a
	// dotfile in the user home directory when empty.
	Path string `mapstructure:"path"`
}

type SessionConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// LoadConfigFromEnv builds a config purely from environment variables, the
// path used in container deployments where no config.yml is mounted.
func LoadConfigFromEnv() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:      getEnv("CONSOLE_API_BASE_URL", ""),
			ImageBaseURL: getEnv("CONSOLE_IMAGE_BASE_URL", ""),
			Timeout:      getEnvAsDuration("CONSOLE_API_TIMEOUT", 15*time.Second),
		},
		Realtime: RealtimeConfig{
			Enabled:  getEnv("CONSOLE_REALTIME_ENABLED", "true") == "true",
			RedisURL: getEnv("CONSOLE_REDIS_URL", "localhost:6379"),
		},
		Storage: StorageConfig{
			Path: getEnv("CONSOLE_STORAGE_PATH", ""),
		},
		Session: SessionConfig{
			RefreshInterval: getEnvAsDuration("CONSOLE_SESSION_REFRESH_INTERVAL", time.Minute),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("CONSOLE_LOG_LEVEL", "info"),
				Format: getEnv("CONSOLE_LOG_FORMAT", "text"),
			},
		},
	}
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.API.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("api config: %v", err))
	}

	if err := c.Realtime.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("realtime config: %v", err))
	}

	if err := c.Session.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("session config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *APIConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base_url %s: %w", c.BaseURL, err)
	}
	if c.ImageBaseURL != "" {
		if _, err := url.Parse(c.ImageBaseURL); err != nil {
			return fmt.Errorf("invalid image_base_url %s: %w", c.ImageBaseURL, err)
		}
	}
	return nil
}

func (c *RealtimeConfig) Validate() error {
	if c.Enabled && c.RedisURL == "" {
		return errors.New("redis_url is required when realtime is enabled")
	}
	return nil
}

func (c *SessionConfig) Validate() error {
	if c.RefreshInterval != 0 && c.RefreshInterval < 10*time.Second {
		return errors.New("refresh_interval below 10s would hammer the auth endpoint")
	}
	return nil
}
