package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/sakif/sonarhub/internal/gateway"
	"github.com/sakif/sonarhub/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// call is one recorded backend call: the operation, its arguments, and the
// bearer token found in the context.
type call struct {
	op    string
	args  []any
	token string
}

// fakeBackend implements every backend slice the services depend on.
// Fields left nil return zero values.
type fakeBackend struct {
	mu    sync.Mutex
	calls []call

	signInToken string
	authPayload *model.AuthPayload
	setPwMsg    string
	err         error

	project    *model.ProjectAnalysis
	projectErr error
	status     *model.AnalysisStatus
	mutation   *model.MutationResult
	analyzeAll string

	repos    []model.Repository
	activity *model.UserActivity
	scans    []model.ScanResult
	branches []model.Branch
	prs      []model.PullRequest
	comments []model.PRComment
	authURL  *model.GitHubAuthURL

	// block, when set, is waited on inside mutations.
	block chan struct{}
}

func (f *fakeBackend) record(ctx context.Context, op string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op: op, args: args, token: gateway.TokenFromContext(ctx)})
}

func (f *fakeBackend) callsTo(op string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeBackend) wait() {
	if f.block != nil {
		<-f.block
	}
}

func (f *fakeBackend) SignIn(ctx context.Context, email, password string) (string, error) {
	f.record(ctx, "signIn", email, password)
	return f.signInToken, f.err
}

func (f *fakeBackend) GitHubAuth(ctx context.Context, code string) (*model.AuthPayload, error) {
	f.record(ctx, "githubAuth", code)
	return f.authPayload, f.err
}

func (f *fakeBackend) SetPassword(ctx context.Context, email, password string) (string, error) {
	f.record(ctx, "setPassword", email, password)
	return f.setPwMsg, f.err
}

func (f *fakeBackend) SendPasswordChangeEmail(ctx context.Context, email string) (string, error) {
	f.record(ctx, "sendPasswordChangeEmail", email)
	return "sent", nil
}

func (f *fakeBackend) ForgotPassword(ctx context.Context, email string) (string, error) {
	f.record(ctx, "forgotPassword", email)
	return "Reset link sent", f.err
}

func (f *fakeBackend) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	f.record(ctx, "resetPassword", token, newPassword)
	return "Password updated", f.err
}

func (f *fakeBackend) ProjectAnalysis(ctx context.Context, username, repo, branch string) (*model.ProjectAnalysis, error) {
	f.record(ctx, "getProjectAnalysis", username, repo, branch)
	return f.project, f.projectErr
}

func (f *fakeBackend) AnalysisStatus(ctx context.Context, username, repo, branch string) (*model.AnalysisStatus, error) {
	f.record(ctx, "getAnalysisStatus", username, repo, branch)
	return f.status, f.err
}

func (f *fakeBackend) AnalyzeRepo(ctx context.Context, username, repo string) (*model.MutationResult, error) {
	f.record(ctx, "analyzeRepo", username, repo)
	f.wait()
	return f.mutation, f.err
}

func (f *fakeBackend) AnalyzeBranch(ctx context.Context, username, repo, branch string) (*model.MutationResult, error) {
	f.record(ctx, "analyzeBranch", username, repo, branch)
	f.wait()
	return f.mutation, f.err
}

func (f *fakeBackend) Repositories(ctx context.Context, username string) ([]model.Repository, error) {
	f.record(ctx, "getUserRepositories", username)
	return f.repos, f.err
}

func (f *fakeBackend) TriggerAutomaticAnalysis(ctx context.Context, username string) (string, error) {
	f.record(ctx, "triggerAutomaticAnalysis", username)
	return f.analyzeAll, f.err
}

func (f *fakeBackend) UserActivity(ctx context.Context, username string) (*model.UserActivity, error) {
	f.record(ctx, "getUserActivity", username)
	return f.activity, f.err
}

func (f *fakeBackend) ScanResults(ctx context.Context, username string) ([]model.ScanResult, error) {
	f.record(ctx, "getUserScanResults", username)
	return f.scans, f.err
}

func (f *fakeBackend) Branches(ctx context.Context, username, repo string) ([]model.Branch, error) {
	f.record(ctx, "getBranchesByUsernameAndRepo", username, repo)
	return f.branches, f.err
}

func (f *fakeBackend) PullRequestsByBranch(ctx context.Context, username, repo, branch string) ([]model.PullRequest, error) {
	f.record(ctx, "getPullRequestsByBranch", username, repo, branch)
	return f.prs, f.err
}

func (f *fakeBackend) PullRequestsByRepo(ctx context.Context, username, repo string) ([]model.PullRequest, error) {
	f.record(ctx, "getPullRequestsByRepo", username, repo)
	return f.prs, f.err
}

func (f *fakeBackend) PRComments(ctx context.Context, username, repo string, prID int) ([]model.PRComment, error) {
	f.record(ctx, "getPRComments", username, repo, prID)
	return f.comments, f.err
}

func (f *fakeBackend) TriggerAnalysis(ctx context.Context, username, repo, branch string, prID int) (*model.MutationResult, error) {
	f.record(ctx, "triggerAnalysis", username, repo, branch, prID)
	return f.mutation, f.err
}

func (f *fakeBackend) RequestGitHubAuth(ctx context.Context, username string) (*model.GitHubAuthURL, error) {
	f.record(ctx, "requestGithubAuth", username)
	return f.authURL, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// devScope is the signed-in "devuser" every repository test runs as.
func devScope() Scope {
	return NewScope("tok-dev", "devuser")
}
