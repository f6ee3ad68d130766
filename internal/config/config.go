// Package config loads runtime settings from the environment.
//
// Values come from real environment variables first; an optional .env file
// fills in anything not already set (godotenv never overrides the process
// environment). Every key has a development default except SESSION_SECRET.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// HTTP server
	Port         int
	LogLevel     slog.Level
	CookieSecure bool

	// Storage
	DBPath string

	// Sessions
	SessionSecret string
	SessionTTL    time.Duration

	// SonarHub backend
	BackendGraphQLURL string

	// GitHub
	GitHubGraphQLURL  string
	GitHubAccessToken string
	GitHubClientID    string
	GitHubRedirectURL string

	// Live feeds
	PollInterval time.Duration
}

// Load reads the configuration. With no arguments it loads ./.env when
// present and ignores its absence; explicit files must exist.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		// Load .env file if it exists (ignore error if not found)
		_ = godotenv.Load()
	} else if err := godotenv.Load(files...); err != nil {
		return nil, fmt.Errorf("config: loading %v: %w", files, err)
	}

	cfg := &Config{
		DBPath:            getEnv("DB_PATH", "data/sonarhub.db"),
		SessionSecret:     getEnv("SESSION_SECRET", ""),
		BackendGraphQLURL: getEnv("BACKEND_GRAPHQL_URL", "http://localhost:4000/graphql"),
		GitHubGraphQLURL:  getEnv("GITHUB_GRAPHQL_URL", "https://api.github.com/graphql"),
		GitHubAccessToken: getEnv("GITHUB_ACCESS_TOKEN", ""),
		GitHubClientID:    getEnv("GITHUB_CLIENT_ID", ""),
	}

	var err error
	if cfg.Port, err = getInt("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = getDuration("POLL_INTERVAL", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.CookieSecure, err = getBool("COOKIE_SECURE", false); err != nil {
		return nil, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, &ConfigError{Field: "LOG_LEVEL", Message: "must be debug, info, warn or error"}
	}
	cfg.GitHubRedirectURL = getEnv("GITHUB_REDIRECT_URL", fmt.Sprintf("http://localhost:%d/signup", cfg.Port))

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.SessionSecret) < 16 {
		return &ConfigError{Field: "SESSION_SECRET", Message: "must be at least 16 characters"}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return &ConfigError{Field: "PORT", Message: "must be between 1 and 65535"}
	}
	if err := validURL(c.BackendGraphQLURL); err != nil {
		return &ConfigError{Field: "BACKEND_GRAPHQL_URL", Message: err.Error()}
	}
	if err := validURL(c.GitHubGraphQLURL); err != nil {
		return &ConfigError{Field: "GITHUB_GRAPHQL_URL", Message: err.Error()}
	}
	if c.PollInterval <= 0 {
		return &ConfigError{Field: "POLL_INTERVAL", Message: "must be positive"}
	}
	if c.SessionTTL <= 0 {
		return &ConfigError{Field: "SESSION_TTL", Message: "must be positive"}
	}
	return nil
}

// GitHubListingEnabled reports whether the GitHub repository listing can run.
func (c *Config) GitHubListingEnabled() bool {
	return c.GitHubAccessToken != ""
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ConfigError{Field: key, Message: fmt.Sprintf("invalid integer %q", raw)}
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, &ConfigError{Field: key, Message: fmt.Sprintf("invalid duration %q", raw)}
	}
	return v, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &ConfigError{Field: key, Message: fmt.Sprintf("invalid boolean %q", raw)}
	}
	return v, nil
}

func validURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid URL %q", raw)
	}
	return nil
}
