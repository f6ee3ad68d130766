// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects stores, the backend
// client, services, handlers, middleware, and routes, and decides:
//   - Which URL patterns map to which handler functions
//   - Which guard (PublicOnly / RequireSession) covers which subtree
//   - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → Server.New()
//	  sqlite.DB ─┬→ session.Store ──────────────┐
//	             └→ identity.Resolver ← gateway ─┤→ services → handlers → routes
//	                  github.Client (optional) ──┘
//
// This is the "composition root" pattern: every dependency is built here
// and nowhere else.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/sonarhub/internal/auth"
	"github.com/sakif/sonarhub/internal/config"
	"github.com/sakif/sonarhub/internal/gateway"
	"github.com/sakif/sonarhub/internal/github"
	"github.com/sakif/sonarhub/internal/handler"
	"github.com/sakif/sonarhub/internal/identity"
	"github.com/sakif/sonarhub/internal/middleware"
	"github.com/sakif/sonarhub/internal/notify"
	sqliteRepo "github.com/sakif/sonarhub/internal/repository/sqlite"
	"github.com/sakif/sonarhub/internal/service"
	"github.com/sakif/sonarhub/internal/session"
)

// pruneInterval is how often expired sessions and stale toasts are dropped.
const pruneInterval = 10 * time.Minute

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start closes it during graceful
// shutdown, after in-flight requests have finished.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	sessions *session.Store
	toasts   *notify.Center
}

// New creates a Server from cfg.
//
// DEPENDENCY INJECTION & WIRING:
//  1. Open the database (sessions and identities survive restarts)
//  2. Build the session store and the identity resolver, and tell the
//     store to drop a user's identity on logout
//  3. Build the services on top of the backend client
//  4. Build the handlers and mount them
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	// === CREATE DATABASE ===
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		sessions: session.New(db, logger),
		toasts:   notify.NewCenter(),
	}

	if err := s.setupRoutes(); err != nil {
		db.Close() // Clean up DB if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler returns the router. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	PUBLIC ONLY (signed-in visitors go to /dashboard)
//	GET  /                  → landing
//	GET  /signin, POST      → sign-in form
//	GET  /signup            → sign-up page and GitHub return trip
//	GET  /signup/github     → redirect to GitHub
//
//	PUBLIC
//	GET  /set-password, POST
//	GET  /forgot-password, POST
//	GET  /api/session       → session snapshot (JSON)
//	GET  /healthz
//	GET  /static/*
//
//	PRIVATE (signed-out visitors go to /signin; API and WebSocket get 401)
//	     /dashboard/...     → every dashboard page, at any depth
//	POST /logout
//	GET  /api/repos/{repoName}/status
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID, RealIP, Recoverer
//  2. Logger
//  3. Visitor: every browser gets a toast key
//  4. LoadSession: the session is loaded before any guard runs
func (s *Server) setupRoutes() error {
	cfg := s.config

	tokens, err := auth.NewTokenService(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	cookies := auth.Cookies{Secure: cfg.CookieSecure}

	// === BACKEND AND IDENTITY ===
	backend := gateway.New(cfg.BackendGraphQLURL, nil, s.logger)
	resolver := identity.NewResolver(backend, s.db, s.logger)
	s.sessions.OnLogout(resolver)

	// A nil *github.Client stored in the interface would not compare equal
	// to nil, so the lister is only assigned when listing is configured.
	var lister github.Lister
	if cfg.GitHubListingEnabled() {
		lister = github.NewClient(cfg.GitHubAccessToken, cfg.GitHubGraphQLURL)
	}

	// === SERVICES ===
	tracker := service.NewTracker()
	accounts := service.NewAuthService(backend, s.sessions, tokens, s.logger)
	activity := service.NewActivityService(backend)
	repos := service.NewRepoService(backend, lister, tracker, s.logger)
	analysis := service.NewAnalysisService(backend, tracker, s.logger)
	pulls := service.NewPullService(backend, tracker, s.logger)

	// === HANDLERS ===
	renderer, err := handler.NewRenderer(s.toasts, s.logger)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}
	base := &handler.Base{Render: renderer, Toasts: s.toasts, IDs: resolver, Logger: s.logger}

	authHandler := handler.NewAuthHandler(base, accounts, auth.NewGitHubAuthorizer(cfg.GitHubClientID, cfg.GitHubRedirectURL), cookies, cfg.SessionTTL)
	dashboardHandler := handler.NewDashboardHandler(base, activity)
	repoHandler := handler.NewRepoHandler(base, repos)
	analysisHandler := handler.NewAnalysisHandler(base, analysis)
	pullHandler := handler.NewPullHandler(base, repos, pulls, analysis)
	liveHandler := handler.NewLiveHandler(base, analysis, pulls, cfg.PollInterval)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(notify.Visitor(cfg.CookieSecure))
	s.router.Use(auth.LoadSession(tokens, s.sessions, cookies, s.logger))

	// === Static Files ===
	s.router.Handle("/static/*", handler.Static())

	// === Public-only Routes ===
	s.router.Group(func(r chi.Router) {
		r.Use(auth.PublicOnly(auth.DefaultPolicy))
		r.Get("/", authHandler.Landing)
		r.Get("/signin", authHandler.SignInPage)
		r.Post("/signin", authHandler.SignIn)
		r.Get("/signup", authHandler.SignUp)
		r.Get("/signup/github", authHandler.GitHubLogin)
	})

	// === Public Routes ===
	s.router.Get("/set-password", authHandler.SetPasswordPage)
	s.router.Post("/set-password", authHandler.SetPassword)
	s.router.Get("/forgot-password", authHandler.ForgotPasswordPage)
	s.router.Post("/forgot-password", authHandler.ForgotPassword)
	s.router.Get("/api/session", authHandler.Session)
	s.router.Get("/healthz", s.health)

	// === Private Routes ===
	// The guard on the group covers every route mounted below it, so new
	// dashboard pages are private without further wiring.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(auth.DefaultPolicy))

		r.Post("/logout", authHandler.Logout)
		r.Get("/api/repos/{repoName}/status", analysisHandler.StatusJSON)

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/", dashboardHandler.Dashboard)
			r.Get("/learn-more", dashboardHandler.LearnMore)

			r.Get("/github-repos", repoHandler.GitHubRepos)
			r.Get("/sonar-repo", repoHandler.SonarRepos)
			r.Post("/sonar-repo/analyze-all", repoHandler.AnalyzeAll)

			r.Route("/repo/{repoName}", func(r chi.Router) {
				r.Get("/", analysisHandler.Details)
				r.Post("/analyze", analysisHandler.Analyze)
				r.Get("/live", liveHandler.AnalysisStatus)
				r.Get("/branch/{branch}", analysisHandler.Details)
				r.Post("/branch/{branch}/reanalyze", analysisHandler.Reanalyze)
			})

			r.Route("/pull-requests", func(r chi.Router) {
				r.Get("/", pullHandler.Repositories)
				r.Post("/connect-github", pullHandler.ConnectGitHub)
				r.Route("/{repo}", func(r chi.Router) {
					r.Get("/branches", pullHandler.Branches)
					r.Post("/branches/{branch}/analyze", pullHandler.AnalyzeBranch)
					r.Get("/branches/{branch}/pulls", pullHandler.BranchPulls)
					r.Post("/branches/{branch}/trigger", pullHandler.Trigger)
					r.Get("/pulls", pullHandler.RepoPulls)
					r.Get("/pulls/{prId}/comments", pullHandler.Comments)
					r.Get("/pulls/{prId}/live", liveHandler.Comments)
				})
			})
		})
	})

	// Unknown paths and wrong methods go home; the guards then pick the
	// right landing page.
	home := func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
	s.router.NotFound(home)
	s.router.MethodNotAllowed(home)

	return nil
}

// health serves GET /healthz.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// prune drops expired sessions and toasts nobody came back for, until ctx
// ends.
func (s *Server) prune(ctx context.Context) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.sessions.Prune(ctx, s.config.SessionTTL)
			if err != nil {
				s.logger.Warn("pruning sessions", slog.String("error", err.Error()))
			}
			dropped := s.toasts.Prune(pruneInterval)
			s.logger.Debug("pruned",
				slog.Int64("sessions", n),
				slog.Int("toasts", dropped),
			)
		}
	}
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	// Ensure the database is closed when the server stops.
	defer s.db.Close()

	// WriteTimeout stays zero: live feeds hold their connection open for
	// as long as the page is.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go s.prune(ctx)

	// Channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("backend", s.config.BackendGraphQLURL),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
