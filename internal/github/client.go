// Package github lists a user's repositories through GitHub's GraphQL API.
//
// The token is a deploy-time credential (GITHUB_ACCESS_TOKEN), not the
// visitor's; it only needs public read access.
package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/sakif/sonarhub/internal/apperror"
	"github.com/sakif/sonarhub/internal/model"
)

// API configuration.
const (
	DefaultGraphQLURL = "https://api.github.com/graphql"
	APIVersion        = "2022-11-28"
	// RecentLimit is how many repositories the listing shows.
	RecentLimit = 10
)

// requestTimeout bounds every GitHub call so a hung request cannot hold the
// repository explorer page open.
var requestTimeout = 30 * time.Second

// Lister defines the GitHub operations the repository explorer needs.
type Lister interface {
	RecentRepositories(ctx context.Context, username string) ([]model.GitHubRepository, error)
}

// Client wraps the GitHub GraphQL client.
type Client struct {
	graphql *githubv4.Client
}

// Ensure Client implements Lister.
var _ Lister = (*Client)(nil)

// NewClient creates a client authenticated with token against graphqlURL.
// An empty graphqlURL means DefaultGraphQLURL.
func NewClient(token, graphqlURL string) *Client {
	src := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Transport = &versionTransport{base: httpClient.Transport}
	httpClient.Timeout = requestTimeout

	return NewClientWithHTTP(httpClient, graphqlURL)
}

// NewClientWithHTTP creates a client with a custom HTTP client (for testing).
func NewClientWithHTTP(httpClient *http.Client, graphqlURL string) *Client {
	if graphqlURL == "" || graphqlURL == DefaultGraphQLURL {
		return &Client{graphql: githubv4.NewClient(httpClient)}
	}
	return &Client{graphql: githubv4.NewEnterpriseClient(graphqlURL, httpClient)}
}

// RecentRepositories returns the RecentLimit most recently updated
// repositories of username.
func (c *Client) RecentRepositories(ctx context.Context, username string) ([]model.GitHubRepository, error) {
	var q recentRepositoriesQuery
	variables := map[string]interface{}{
		"login": githubv4.String(username),
		"first": githubv4.Int(RecentLimit),
	}

	if err := c.graphql.Query(ctx, &q, variables); err != nil {
		return nil, apperror.Upstream(err.Error(), fmt.Errorf("github: listing repositories of %s: %w", username, err))
	}
	if q.User == nil {
		return nil, apperror.NotFound("GitHub user", username)
	}

	return q.User.Repositories.Nodes, nil
}

// versionTransport pins the GitHub API version on every request.
type versionTransport struct {
	base http.RoundTripper
}

func (t *versionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	r := req.Clone(req.Context())
	r.Header.Set("X-GitHub-Api-Version", APIVersion)

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(r)
}
