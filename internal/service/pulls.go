package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/sonarhub/internal/apperror"
	"github.com/sakif/sonarhub/internal/model"
)

// PullBackend is the slice of the backend the pull-request screens call.
type PullBackend interface {
	Branches(ctx context.Context, username, repo string) ([]model.Branch, error)
	PullRequestsByBranch(ctx context.Context, username, repo, branch string) ([]model.PullRequest, error)
	PullRequestsByRepo(ctx context.Context, username, repo string) ([]model.PullRequest, error)
	PRComments(ctx context.Context, username, repo string, prID int) ([]model.PRComment, error)
	TriggerAnalysis(ctx context.Context, username, repo, branch string, prID int) (*model.MutationResult, error)
	RequestGitHubAuth(ctx context.Context, username string) (*model.GitHubAuthURL, error)
}

// PullService serves branches, pull requests and their comments.
type PullService struct {
	backend PullBackend
	tracker *Tracker
	logger  *slog.Logger
}

// NewPullService creates a PullService.
func NewPullService(backend PullBackend, tracker *Tracker, logger *slog.Logger) *PullService {
	return &PullService{backend: backend, tracker: tracker, logger: logger}
}

// Branches lists the branches of repo.
func (s *PullService) Branches(ctx context.Context, scope Scope, repo string) ([]model.Branch, error) {
	if err := requireRepo(repo); err != nil {
		return nil, err
	}
	b, err := s.backend.Branches(scope.Context(ctx), scope.Username(), repo)
	if err != nil {
		return nil, fmt.Errorf("service/pulls: branches of %s: %w", repo, err)
	}
	return b, nil
}

// ByBranch lists the pull requests opened from branch.
func (s *PullService) ByBranch(ctx context.Context, scope Scope, repo, branch string) ([]model.PullRequest, error) {
	if err := requireRepo(repo); err != nil {
		return nil, err
	}
	prs, err := s.backend.PullRequestsByBranch(scope.Context(ctx), scope.Username(), repo, branch)
	if err != nil {
		return nil, fmt.Errorf("service/pulls: pull requests of %s@%s: %w", repo, branch, err)
	}
	return prs, nil
}

// ByRepo lists every pull request of repo.
func (s *PullService) ByRepo(ctx context.Context, scope Scope, repo string) ([]model.PullRequest, error) {
	if err := requireRepo(repo); err != nil {
		return nil, err
	}
	prs, err := s.backend.PullRequestsByRepo(scope.Context(ctx), scope.Username(), repo)
	if err != nil {
		return nil, fmt.Errorf("service/pulls: pull requests of %s: %w", repo, err)
	}
	return prs, nil
}

// Comments lists the comments of one pull request.
func (s *PullService) Comments(ctx context.Context, scope Scope, repo string, prID int) ([]model.PRComment, error) {
	if err := requireRepo(repo); err != nil {
		return nil, err
	}
	if prID <= 0 {
		return nil, apperror.ValidationFailed("prId", "invalid pull request id")
	}
	c, err := s.backend.PRComments(scope.Context(ctx), scope.Username(), repo, prID)
	if err != nil {
		return nil, fmt.Errorf("service/pulls: comments of %s#%d: %w", repo, prID, err)
	}
	return c, nil
}

// TriggerAnalysis asks the backend to analyze the first pull request of
// branch and comment its findings. It returns the backend message and the
// pull request analyzed.
func (s *PullService) TriggerAnalysis(ctx context.Context, scope Scope, repo, branch string) (string, int, error) {
	prs, err := s.ByBranch(ctx, scope, repo, branch)
	if err != nil {
		return "", 0, err
	}
	if len(prs) == 0 {
		return "", 0, apperror.ValidationFailed("prId", "No pull requests to analyze on this branch")
	}
	prID := prs[0].PRID

	var msg string
	err = s.tracker.run(TriggerKey(scope, repo, branch), func() error {
		res, err := s.backend.TriggerAnalysis(scope.Context(ctx), scope.Username(), repo, branch, prID)
		if err != nil {
			return err
		}
		msg, err = outcome(res, "Failed to trigger analysis")
		return err
	})
	if err != nil {
		return "", 0, fmt.Errorf("service/pulls: triggering %s#%d: %w", repo, prID, err)
	}
	s.logger.Info("pull request analysis requested",
		slog.String("username", scope.Username()),
		slog.String("repo", repo),
		slog.Int("prId", prID),
	)
	return msg, prID, nil
}

// TriggerBusy is the status of the "Trigger analysis" button of branch.
func (s *PullService) TriggerBusy(scope Scope, repo, branch string) string {
	return s.tracker.Status(TriggerKey(scope, repo, branch))
}

// ConnectGitHub returns the URL that grants the backend GitHub access. A
// response without a URL fails with the backend's message.
func (s *PullService) ConnectGitHub(ctx context.Context, scope Scope) (string, error) {
	res, err := s.backend.RequestGitHubAuth(scope.Context(ctx), scope.Username())
	if err != nil {
		return "", fmt.Errorf("service/pulls: requesting GitHub access: %w", err)
	}
	if res == nil || strings.TrimSpace(res.URL) == "" {
		var msg string
		if res != nil {
			msg = res.Message
		}
		if msg == "" {
			msg = "Failed to get GitHub authorization URL"
		}
		return "", apperror.Upstream(msg, errRejected)
	}
	return res.URL, nil
}

// TriggerKey is the Tracker key of a pull request analysis trigger.
func TriggerKey(scope Scope, repo, branch string) string {
	return scope.key("trigger", repo, branch)
}
