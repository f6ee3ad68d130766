// Package main is the entry point for the SonarHub web server.
//
// MAIN PACKAGE IN GO:
// The main package is kept minimal. Its job is to:
//  1. Read configuration (environment, optional .env file)
//  2. Create the logger and make sure the data directory exists
//  3. Start the application
//
// All actual logic lives in internal/ packages.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/sonarhub/internal/config"
	"github.com/sakif/sonarhub/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// config.Load reads the environment first and fills gaps from ./.env.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// LOG_LEVEL picks the level (debug, info, warn, error); info by default.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	// SESSION_SECRET must be a long random string. Use:
	//   SESSION_SECRET=$(openssl rand -hex 32)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if !cfg.GitHubListingEnabled() {
		logger.Warn("GITHUB_ACCESS_TOKEN not set, Repo Explorer will show an error")
	}
	if cfg.GitHubClientID == "" {
		logger.Warn("GITHUB_CLIENT_ID not set, sign-up with GitHub is disabled")
	}

	// === 3. DATABASE DIRECTORY ===
	// os.MkdirAll creates all parent directories if needed (like `mkdir -p`).
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
