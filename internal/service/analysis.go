package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/sonarhub/internal/apperror"
	"github.com/sakif/sonarhub/internal/model"
)

// AnalysisBackend is the slice of the backend the analysis screens call.
type AnalysisBackend interface {
	ProjectAnalysis(ctx context.Context, username, repo, branch string) (*model.ProjectAnalysis, error)
	AnalysisStatus(ctx context.Context, username, repo, branch string) (*model.AnalysisStatus, error)
	AnalyzeRepo(ctx context.Context, username, repo string) (*model.MutationResult, error)
	AnalyzeBranch(ctx context.Context, username, repo, branch string) (*model.MutationResult, error)
}

// AnalysisService reads and triggers SonarQube analyses of one repository.
type AnalysisService struct {
	backend AnalysisBackend
	tracker *Tracker
	logger  *slog.Logger
}

// NewAnalysisService creates an AnalysisService.
func NewAnalysisService(backend AnalysisBackend, tracker *Tracker, logger *slog.Logger) *AnalysisService {
	return &AnalysisService{backend: backend, tracker: tracker, logger: logger}
}

// Project returns the analysis of repo. An empty branch means the default
// branch. A repository that was never analyzed fails with
// apperror.ErrNotAnalyzed.
func (s *AnalysisService) Project(ctx context.Context, scope Scope, repo, branch string) (*model.ProjectAnalysis, error) {
	if err := requireRepo(repo); err != nil {
		return nil, err
	}
	p, err := s.backend.ProjectAnalysis(scope.Context(ctx), scope.Username(), repo, branch)
	if err != nil {
		return nil, fmt.Errorf("service/analysis: %s/%s: %w", scope.Username(), repo, err)
	}
	return p, nil
}

// Status returns the current state of the analysis job for repo.
func (s *AnalysisService) Status(ctx context.Context, scope Scope, repo, branch string) (*model.AnalysisStatus, error) {
	if err := requireRepo(repo); err != nil {
		return nil, err
	}
	st, err := s.backend.AnalysisStatus(scope.Context(ctx), scope.Username(), repo, branch)
	if err != nil {
		return nil, fmt.Errorf("service/analysis: status of %s/%s: %w", scope.Username(), repo, err)
	}
	return st, nil
}

// AnalyzeRepo starts an analysis of repo ("Analyze Now").
func (s *AnalysisService) AnalyzeRepo(ctx context.Context, scope Scope, repo string) (string, error) {
	if err := requireRepo(repo); err != nil {
		return "", err
	}
	var msg string
	err := s.tracker.run(AnalysisKey(scope, repo, ""), func() error {
		res, err := s.backend.AnalyzeRepo(scope.Context(ctx), scope.Username(), repo)
		if err != nil {
			return err
		}
		msg, err = outcome(res, "Failed to start analysis")
		return err
	})
	if err != nil {
		return "", fmt.Errorf("service/analysis: analyzing %s/%s: %w", scope.Username(), repo, err)
	}
	s.logger.Info("analysis requested",
		slog.String("username", scope.Username()),
		slog.String("repo", repo),
	)
	return msg, nil
}

// AnalyzeBranch starts an analysis of one branch ("Reanalyze", "Analyze
// branch").
func (s *AnalysisService) AnalyzeBranch(ctx context.Context, scope Scope, repo, branch string) (string, error) {
	if err := requireRepo(repo); err != nil {
		return "", err
	}
	if strings.TrimSpace(branch) == "" {
		return "", apperror.ValidationFailed("branch", "branch name is required")
	}
	var msg string
	err := s.tracker.run(AnalysisKey(scope, repo, branch), func() error {
		res, err := s.backend.AnalyzeBranch(scope.Context(ctx), scope.Username(), repo, branch)
		if err != nil {
			return err
		}
		msg, err = outcome(res, "Failed to start branch analysis")
		return err
	})
	if err != nil {
		return "", fmt.Errorf("service/analysis: analyzing %s/%s@%s: %w", scope.Username(), repo, branch, err)
	}
	s.logger.Info("branch analysis requested",
		slog.String("username", scope.Username()),
		slog.String("repo", repo),
		slog.String("branch", branch),
	)
	return msg, nil
}

// BusyStatus is the status string for repo's analysis triggers. A running
// repository analysis also marks each of its branches busy.
func (s *AnalysisService) BusyStatus(scope Scope, repo, branch string) string {
	if st := s.tracker.Status(AnalysisKey(scope, repo, "")); st != "" {
		return st
	}
	return s.tracker.Status(AnalysisKey(scope, repo, branch))
}

// AnalysisKey is the Tracker key of an analysis trigger. A repository key
// covers all of its branches.
func AnalysisKey(scope Scope, repo, branch string) string {
	if branch == "" {
		return scope.key("analyze", repo)
	}
	return scope.key("analyze", repo, branch)
}

func requireRepo(repo string) error {
	if strings.TrimSpace(repo) == "" {
		return apperror.ValidationFailed("repo", "repository name is required")
	}
	return nil
}
