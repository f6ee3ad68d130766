// Package gateway is the one way this server talks to the SonarHub GraphQL
// backend.
//
// Every call goes through Client, which:
//   - attaches "Authorization: Bearer <token>" when the context carries a
//     session token (WithToken), and sends anonymous requests otherwise;
//   - classifies failures into the apperror taxonomy (Classify), so views
//     can tell "not analyzed yet" from "unauthorized" from everything else.
//
// Query and mutation shapes live in queries.go as shurcooL/graphql structs:
// the struct tags are the GraphQL document.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/shurcooL/graphql"
	"golang.org/x/oauth2"

	"github.com/sakif/sonarhub/internal/model"
)

// Backend is the full set of backend operations. Services depend on the
// narrow subsets they need; *Client satisfies all of them.
type Backend interface {
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserActivity(ctx context.Context, username string) (*model.UserActivity, error)
	Repositories(ctx context.Context, username string) ([]model.Repository, error)
	Branches(ctx context.Context, username, repo string) ([]model.Branch, error)
	PullRequestsByBranch(ctx context.Context, username, repo, branch string) ([]model.PullRequest, error)
	PullRequestsByRepo(ctx context.Context, username, repo string) ([]model.PullRequest, error)
	PRComments(ctx context.Context, username, repo string, prID int) ([]model.PRComment, error)
	ProjectAnalysis(ctx context.Context, username, repo, branch string) (*model.ProjectAnalysis, error)
	AnalysisStatus(ctx context.Context, username, repo, branch string) (*model.AnalysisStatus, error)
	ScanResults(ctx context.Context, username string) ([]model.ScanResult, error)

	SignIn(ctx context.Context, email, password string) (string, error)
	GitHubAuth(ctx context.Context, code string) (*model.AuthPayload, error)
	SetPassword(ctx context.Context, email, password string) (string, error)
	SendPasswordChangeEmail(ctx context.Context, email string) (string, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) (string, error)
	AnalyzeRepo(ctx context.Context, username, repo string) (*model.MutationResult, error)
	AnalyzeBranch(ctx context.Context, username, repo, branch string) (*model.MutationResult, error)
	TriggerAutomaticAnalysis(ctx context.Context, username string) (string, error)
	TriggerAnalysis(ctx context.Context, username, repo, branch string, prID int) (*model.MutationResult, error)
	RequestGitHubAuth(ctx context.Context, username string) (*model.GitHubAuthURL, error)
}

// Ensure Client implements Backend.
var _ Backend = (*Client)(nil)

// Client wraps shurcooL/graphql for the SonarHub backend.
type Client struct {
	url    string
	base   *http.Client
	anon   *graphql.Client
	logger *slog.Logger
}

// New creates a Client for the GraphQL endpoint at url. httpClient may be
// nil, in which case a client with a 30s timeout is used.
func New(url string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		url:    url,
		base:   httpClient,
		anon:   graphql.NewClient(url, httpClient),
		logger: logger,
	}
}

type tokenKey struct{}

// WithToken returns ctx carrying the session's bearer token. Calls made with
// the returned context are authenticated.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the bearer token set by WithToken, if any.
func TokenFromContext(ctx context.Context) string {
	tok, _ := ctx.Value(tokenKey{}).(string)
	return tok
}

// graphqlFor returns the client to use for ctx: an oauth2-wrapped client
// when ctx carries a token, the anonymous one otherwise.
func (c *Client) graphqlFor(ctx context.Context) *graphql.Client {
	tok := TokenFromContext(ctx)
	if tok == "" {
		return c.anon
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok, TokenType: "Bearer"})
	// oauth2.NewClient wraps the transport of the client found under
	// oauth2.HTTPClient, so the configured timeout and transport are kept.
	httpClient := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, c.base), src)
	httpClient.Timeout = c.base.Timeout
	return graphql.NewClient(c.url, httpClient)
}

// query runs a GraphQL query and classifies its error.
func (c *Client) query(ctx context.Context, op string, q any, vars map[string]any) error {
	start := time.Now()
	err := c.graphqlFor(ctx).Query(ctx, q, vars)
	return c.finish(op, start, err)
}

// mutate runs a GraphQL mutation and classifies its error.
func (c *Client) mutate(ctx context.Context, op string, m any, vars map[string]any) error {
	start := time.Now()
	err := c.graphqlFor(ctx).Mutate(ctx, m, vars)
	return c.finish(op, start, err)
}

func (c *Client) finish(op string, start time.Time, err error) error {
	if err != nil {
		classified := Classify(err)
		c.logger.Debug("backend call failed",
			slog.String("op", op),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return classified
	}
	c.logger.Debug("backend call",
		slog.String("op", op),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}
