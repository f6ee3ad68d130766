package gateway

import (
	"context"

	"github.com/shurcooL/graphql"

	"github.com/sakif/sonarhub/internal/apperror"
	"github.com/sakif/sonarhub/internal/model"
)

// =========================================================================
// QUERIES
// =========================================================================

// UserByEmail resolves the account behind a signed-in email.
func (c *Client) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	var q struct {
		GetUserByEmail *model.User `graphql:"getUserByEmail(email: $email)"`
	}
	vars := map[string]any{"email": graphql.String(email)}
	if err := c.query(ctx, "getUserByEmail", &q, vars); err != nil {
		return nil, err
	}
	if q.GetUserByEmail == nil {
		return nil, apperror.NotFound("user", email)
	}
	return q.GetUserByEmail, nil
}

// UserActivity loads the dashboard aggregates for username.
func (c *Client) UserActivity(ctx context.Context, username string) (*model.UserActivity, error) {
	var q struct {
		GetUserActivity *model.UserActivity `graphql:"getUserActivity(githubUsername: $githubUsername)"`
	}
	vars := map[string]any{"githubUsername": graphql.String(username)}
	if err := c.query(ctx, "getUserActivity", &q, vars); err != nil {
		return nil, err
	}
	if q.GetUserActivity == nil {
		return nil, apperror.NotAnalyzed("no activity recorded for " + username)
	}
	return q.GetUserActivity, nil
}

// Repositories lists the repositories the backend tracks for username.
func (c *Client) Repositories(ctx context.Context, username string) ([]model.Repository, error) {
	var q struct {
		GetUserRepositories []model.Repository `graphql:"getUserRepositories(username: $username)"`
	}
	vars := map[string]any{"username": graphql.String(username)}
	if err := c.query(ctx, "getUserRepositories", &q, vars); err != nil {
		return nil, err
	}
	return q.GetUserRepositories, nil
}

// Branches lists the branches of repo.
func (c *Client) Branches(ctx context.Context, username, repo string) ([]model.Branch, error) {
	var q struct {
		GetBranches []model.Branch `graphql:"getBranchesByUsernameAndRepo(githubUsername: $githubUsername, repoName: $repoName)"`
	}
	vars := map[string]any{
		"githubUsername": graphql.String(username),
		"repoName":       graphql.String(repo),
	}
	if err := c.query(ctx, "getBranchesByUsernameAndRepo", &q, vars); err != nil {
		return nil, err
	}
	return q.GetBranches, nil
}

// PullRequestsByBranch lists the pull requests whose head is branch.
func (c *Client) PullRequestsByBranch(ctx context.Context, username, repo, branch string) ([]model.PullRequest, error) {
	var q struct {
		GetPullRequestsByBranch []model.PullRequest `graphql:"getPullRequestsByBranch(githubUsername: $githubUsername, repoName: $repoName, branchName: $branchName)"`
	}
	vars := map[string]any{
		"githubUsername": graphql.String(username),
		"repoName":       graphql.String(repo),
		"branchName":     graphql.String(branch),
	}
	if err := c.query(ctx, "getPullRequestsByBranch", &q, vars); err != nil {
		return nil, err
	}
	return q.GetPullRequestsByBranch, nil
}

// PullRequestsByRepo lists every pull request of repo.
func (c *Client) PullRequestsByRepo(ctx context.Context, username, repo string) ([]model.PullRequest, error) {
	var q struct {
		GetPullRequestsByRepo []model.PullRequest `graphql:"getPullRequestsByRepo(githubUsername: $githubUsername, repoName: $repoName)"`
	}
	vars := map[string]any{
		"githubUsername": graphql.String(username),
		"repoName":       graphql.String(repo),
	}
	if err := c.query(ctx, "getPullRequestsByRepo", &q, vars); err != nil {
		return nil, err
	}
	return q.GetPullRequestsByRepo, nil
}

// PRComments lists the comments on pull request prID.
func (c *Client) PRComments(ctx context.Context, username, repo string, prID int) ([]model.PRComment, error) {
	var q struct {
		GetPRComments []model.PRComment `graphql:"getPRComments(githubUsername: $githubUsername, repoName: $repoName, prId: $prId)"`
	}
	vars := map[string]any{
		"githubUsername": graphql.String(username),
		"repoName":       graphql.String(repo),
		"prId":           graphql.Int(prID),
	}
	if err := c.query(ctx, "getPRComments", &q, vars); err != nil {
		return nil, err
	}
	return q.GetPRComments, nil
}

// ProjectAnalysis loads the analysis of repo. An empty branch asks for the
// project's default branch.
func (c *Client) ProjectAnalysis(ctx context.Context, username, repo, branch string) (*model.ProjectAnalysis, error) {
	var q struct {
		GetProjectAnalysis *model.ProjectAnalysis `graphql:"getProjectAnalysis(githubUsername: $githubUsername, repoName: $repoName, branch: $branch)"`
	}
	vars := map[string]any{
		"githubUsername": graphql.String(username),
		"repoName":       graphql.String(repo),
		"branch":         optionalString(branch),
	}
	if err := c.query(ctx, "getProjectAnalysis", &q, vars); err != nil {
		return nil, err
	}
	if q.GetProjectAnalysis == nil {
		return nil, apperror.NotAnalyzed("project " + repo + " not found")
	}
	return q.GetProjectAnalysis, nil
}

// AnalysisStatus reports the state of the latest analysis job for repo.
func (c *Client) AnalysisStatus(ctx context.Context, username, repo, branch string) (*model.AnalysisStatus, error) {
	var q struct {
		GetAnalysisStatus *model.AnalysisStatus `graphql:"getAnalysisStatus(githubUsername: $githubUsername, repoName: $repoName, branch: $branch)"`
	}
	vars := map[string]any{
		"githubUsername": graphql.String(username),
		"repoName":       graphql.String(repo),
		"branch":         optionalString(branch),
	}
	if err := c.query(ctx, "getAnalysisStatus", &q, vars); err != nil {
		return nil, err
	}
	if q.GetAnalysisStatus == nil {
		return nil, apperror.NotAnalyzed("no analysis recorded for " + repo)
	}
	return q.GetAnalysisStatus, nil
}

// ScanResults lists historical scan summaries, newest first.
func (c *Client) ScanResults(ctx context.Context, username string) ([]model.ScanResult, error) {
	var q struct {
		GetUserScanResults []model.ScanResult `graphql:"getUserScanResults(username: $username)"`
	}
	vars := map[string]any{"username": graphql.String(username)}
	if err := c.query(ctx, "getUserScanResults", &q, vars); err != nil {
		return nil, err
	}
	return q.GetUserScanResults, nil
}

// =========================================================================
// MUTATIONS
// =========================================================================

// SignIn exchanges credentials for a bearer token.
func (c *Client) SignIn(ctx context.Context, email, password string) (string, error) {
	var m struct {
		SignIn string `graphql:"signIn(email: $email, password: $password)"`
	}
	vars := map[string]any{
		"email":    graphql.String(email),
		"password": graphql.String(password),
	}
	if err := c.mutate(ctx, "signIn", &m, vars); err != nil {
		return "", err
	}
	return m.SignIn, nil
}

// authPayload mirrors the githubAuth response, which nests the email.
type authPayload struct {
	IsAuthenticated bool
	Token           string
	HasPassword     bool
	User            struct {
		Email string
	}
}

// GitHubAuth hands the OAuth code GitHub returned to the backend, which
// performs the token exchange and signs the visitor up or in.
func (c *Client) GitHubAuth(ctx context.Context, code string) (*model.AuthPayload, error) {
	var m struct {
		GitHubAuth *authPayload `graphql:"githubAuth(code: $code)"`
	}
	vars := map[string]any{"code": graphql.String(code)}
	if err := c.mutate(ctx, "githubAuth", &m, vars); err != nil {
		return nil, err
	}
	if m.GitHubAuth == nil {
		return nil, apperror.Unauthorized("GitHub authentication was rejected")
	}
	return &model.AuthPayload{
		IsAuthenticated: m.GitHubAuth.IsAuthenticated,
		Token:           m.GitHubAuth.Token,
		Email:           m.GitHubAuth.User.Email,
		HasPassword:     m.GitHubAuth.HasPassword,
	}, nil
}

// SetPassword sets the first password of an account created through GitHub.
func (c *Client) SetPassword(ctx context.Context, email, password string) (string, error) {
	var m struct {
		SetPassword string `graphql:"setPassword(email: $email, password: $password)"`
	}
	vars := map[string]any{
		"email":    graphql.String(email),
		"password": graphql.String(password),
	}
	if err := c.mutate(ctx, "setPassword", &m, vars); err != nil {
		return "", err
	}
	return m.SetPassword, nil
}

// SendPasswordChangeEmail notifies the account owner that the password changed.
func (c *Client) SendPasswordChangeEmail(ctx context.Context, email string) (string, error) {
	var m struct {
		SendPasswordChangeEmail string `graphql:"sendPasswordChangeEmail(email: $email)"`
	}
	vars := map[string]any{"email": graphql.String(email)}
	if err := c.mutate(ctx, "sendPasswordChangeEmail", &m, vars); err != nil {
		return "", err
	}
	return m.SendPasswordChangeEmail, nil
}

// ForgotPassword asks the backend to email a reset token.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var m struct {
		ForgotPassword string `graphql:"forgotPassword(email: $email)"`
	}
	vars := map[string]any{"email": graphql.String(email)}
	if err := c.mutate(ctx, "forgotPassword", &m, vars); err != nil {
		return "", err
	}
	return m.ForgotPassword, nil
}

// ResetPassword sets a new password using an emailed reset token.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	var m struct {
		ResetPassword string `graphql:"resetPassword(token: $token, newPassword: $newPassword)"`
	}
	vars := map[string]any{
		"token":       graphql.String(token),
		"newPassword": graphql.String(newPassword),
	}
	if err := c.mutate(ctx, "resetPassword", &m, vars); err != nil {
		return "", err
	}
	return m.ResetPassword, nil
}

// AnalyzeRepo starts an analysis of repo's default branch.
func (c *Client) AnalyzeRepo(ctx context.Context, username, repo string) (*model.MutationResult, error) {
	var m struct {
		AnalyzeRepo model.MutationResult `graphql:"analyzeRepo(githubUsername: $githubUsername, repoName: $repoName)"`
	}
	vars := map[string]any{
		"githubUsername": graphql.String(username),
		"repoName":       graphql.String(repo),
	}
	if err := c.mutate(ctx, "analyzeRepo", &m, vars); err != nil {
		return nil, err
	}
	return &m.AnalyzeRepo, nil
}

// AnalyzeBranch starts an analysis of one branch.
func (c *Client) AnalyzeBranch(ctx context.Context, username, repo, branch string) (*model.MutationResult, error) {
	var m struct {
		AnalyzeBranch model.MutationResult `graphql:"analyzeBranch(githubUsername: $githubUsername, repoName: $repoName, branchName: $branchName)"`
	}
	vars := map[string]any{
		"githubUsername": graphql.String(username),
		"repoName":       graphql.String(repo),
		"branchName":     graphql.String(branch),
	}
	if err := c.mutate(ctx, "analyzeBranch", &m, vars); err != nil {
		return nil, err
	}
	return &m.AnalyzeBranch, nil
}

// TriggerAutomaticAnalysis starts an analysis of every repository of username.
func (c *Client) TriggerAutomaticAnalysis(ctx context.Context, username string) (string, error) {
	var m struct {
		TriggerAutomaticAnalysis string `graphql:"triggerAutomaticAnalysis(githubUsername: $githubUsername)"`
	}
	vars := map[string]any{"githubUsername": graphql.String(username)}
	if err := c.mutate(ctx, "triggerAutomaticAnalysis", &m, vars); err != nil {
		return "", err
	}
	return m.TriggerAutomaticAnalysis, nil
}

// TriggerAnalysis asks the backend to analyze a pull request and comment on it.
func (c *Client) TriggerAnalysis(ctx context.Context, username, repo, branch string, prID int) (*model.MutationResult, error) {
	var m struct {
		TriggerAnalysis model.MutationResult `graphql:"triggerAnalysis(username: $username, repoName: $repoName, branchName: $branchName, prId: $prId)"`
	}
	vars := map[string]any{
		"username":   graphql.String(username),
		"repoName":   graphql.String(repo),
		"branchName": graphql.String(branch),
		"prId":       graphql.Int(prID),
	}
	if err := c.mutate(ctx, "triggerAnalysis", &m, vars); err != nil {
		return nil, err
	}
	return &m.TriggerAnalysis, nil
}

// RequestGitHubAuth asks the backend for a URL that grants it GitHub access
// on behalf of username.
func (c *Client) RequestGitHubAuth(ctx context.Context, username string) (*model.GitHubAuthURL, error) {
	var m struct {
		RequestGitHubAuth model.GitHubAuthURL `graphql:"requestGithubAuth(username: $username)"`
	}
	vars := map[string]any{"username": graphql.String(username)}
	if err := c.mutate(ctx, "requestGithubAuth", &m, vars); err != nil {
		return nil, err
	}
	return &m.RequestGitHubAuth, nil
}

// optionalString maps "" to a typed GraphQL null.
func optionalString(s string) *graphql.String {
	if s == "" {
		return nil
	}
	v := graphql.String(s)
	return &v
}
