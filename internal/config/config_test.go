package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every key Load reads so the host environment cannot leak
// into a test. t.Setenv restores the originals afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "LOG_LEVEL", "DB_PATH", "SESSION_SECRET", "SESSION_TTL",
		"BACKEND_GRAPHQL_URL", "GITHUB_GRAPHQL_URL", "GITHUB_ACCESS_TOKEN",
		"GITHUB_CLIENT_ID", "GITHUB_REDIRECT_URL", "POLL_INTERVAL", "COOKIE_SECURE",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(writeEnvFile(t, ""))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.PollInterval != 3*time.Second {
		t.Errorf("PollInterval = %v, want 3s", cfg.PollInterval)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want INFO", cfg.LogLevel)
	}
	if cfg.GitHubRedirectURL != "http://localhost:8080/signup" {
		t.Errorf("GitHubRedirectURL = %q", cfg.GitHubRedirectURL)
	}
	if cfg.GitHubListingEnabled() {
		t.Error("GitHub listing should be disabled without a token")
	}
}

func TestLoad_FromEnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv does not override variables that are already set, so unset
	// the ones the file provides.
	os.Unsetenv("SESSION_SECRET")
	os.Unsetenv("POLL_INTERVAL")
	os.Unsetenv("LOG_LEVEL")

	path := writeEnvFile(t, "SESSION_SECRET=file-secret-0123456789\nPOLL_INTERVAL=5s\nLOG_LEVEL=debug\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SessionSecret != "file-secret-0123456789" {
		t.Errorf("SessionSecret = %q", cfg.SessionSecret)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %v, want 5s", cfg.PollInterval)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want DEBUG", cfg.LogLevel)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"PORT", "eighty"},
		{"POLL_INTERVAL", "soon"},
		{"COOKIE_SECURE", "maybe"},
		{"LOG_LEVEL", "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load(writeEnvFile(t, ""))

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Load() error = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.key {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.key)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:              8080,
			SessionSecret:     "0123456789abcdef",
			SessionTTL:        time.Hour,
			BackendGraphQLURL: "http://localhost:4000/graphql",
			GitHubGraphQLURL:  "https://api.github.com/graphql",
			PollInterval:      time.Second,
		}
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"valid", func(*Config) {}, ""},
		{"short secret", func(c *Config) { c.SessionSecret = "short" }, "SESSION_SECRET"},
		{"bad backend url", func(c *Config) { c.BackendGraphQLURL = "not a url" }, "BACKEND_GRAPHQL_URL"},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }, "POLL_INTERVAL"},
		{"port out of range", func(c *Config) { c.Port = 70000 }, "PORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) || cfgErr.Field != tt.wantField {
				t.Errorf("Validate() error = %v, want ConfigError on %s", err, tt.wantField)
			}
		})
	}
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing env file: %v", err)
	}
	return path
}
