package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/sonarhub/internal/apperror"
	"github.com/sakif/sonarhub/internal/github"
	"github.com/sakif/sonarhub/internal/model"
)

// RepoBackend is the slice of the backend the repository screens call.
type RepoBackend interface {
	Repositories(ctx context.Context, username string) ([]model.Repository, error)
	TriggerAutomaticAnalysis(ctx context.Context, username string) (string, error)
}

// RepoService lists repositories from the backend and from GitHub.
type RepoService struct {
	backend RepoBackend
	// github is nil when no GitHub access token is configured.
	github  github.Lister
	tracker *Tracker
	logger  *slog.Logger
}

// NewRepoService creates a RepoService. gh may be nil.
func NewRepoService(backend RepoBackend, gh github.Lister, tracker *Tracker, logger *slog.Logger) *RepoService {
	return &RepoService{backend: backend, github: gh, tracker: tracker, logger: logger}
}

// Tracked lists the repositories the backend tracks for the user.
func (s *RepoService) Tracked(ctx context.Context, scope Scope) ([]model.Repository, error) {
	repos, err := s.backend.Repositories(scope.Context(ctx), scope.Username())
	if err != nil {
		return nil, fmt.Errorf("service/repos: listing for %s: %w", scope.Username(), err)
	}
	return repos, nil
}

// OnGitHub lists the most recently updated GitHub repositories of login.
// An empty login means the signed-in user.
func (s *RepoService) OnGitHub(ctx context.Context, scope Scope, login string) ([]model.GitHubRepository, error) {
	if s.github == nil {
		return nil, apperror.Upstream("GitHub listing is not configured", apperror.ErrForbidden)
	}
	login = strings.TrimSpace(login)
	if login == "" {
		login = scope.Username()
	}
	repos, err := s.github.RecentRepositories(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("service/repos: GitHub listing for %s: %w", login, err)
	}
	return repos, nil
}

// AnalyzeAll starts an analysis of every tracked repository.
func (s *RepoService) AnalyzeAll(ctx context.Context, scope Scope) (string, error) {
	var msg string
	err := s.tracker.run(AnalyzeAllKey(scope), func() error {
		var err error
		msg, err = s.backend.TriggerAutomaticAnalysis(scope.Context(ctx), scope.Username())
		return err
	})
	if err != nil {
		return "", fmt.Errorf("service/repos: analyzing all for %s: %w", scope.Username(), err)
	}
	if msg == "" {
		msg = "Analysis started for all repositories"
	}
	s.logger.Info("analysis of all repositories requested",
		slog.String("username", scope.Username()),
	)
	return msg, nil
}

// AnalyzeAllBusy is the status of the "Analyze all" trigger.
func (s *RepoService) AnalyzeAllBusy(scope Scope) string {
	return s.tracker.Status(AnalyzeAllKey(scope))
}

// AnalyzeAllKey is the Tracker key of the "Analyze all" trigger.
func AnalyzeAllKey(scope Scope) string {
	return scope.key("analyze-all")
}
