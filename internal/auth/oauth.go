package auth

import (
	"github.com/rs/xid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// GitHubAuthorizer builds the GitHub authorization URL for "Sign up with
// GitHub".
//
// Only the first leg of the Authorization Code flow happens here. GitHub
// redirects back to /signup with a code, and the SonarHub backend exchanges
// that code (githubAuth mutation) with its own client secret. This server
// never holds a GitHub client secret.
type GitHubAuthorizer struct {
	config *oauth2.Config
}

// NewGitHubAuthorizer creates an authorizer for clientID. redirectURL must
// match the OAuth App's callback URL exactly, e.g.
// "http://localhost:8080/signup".
func NewGitHubAuthorizer(clientID, redirectURL string) *GitHubAuthorizer {
	return &GitHubAuthorizer{
		config: &oauth2.Config{
			ClientID:    clientID,
			RedirectURL: redirectURL,
			Scopes:      []string{"user:email"},
			Endpoint:    github.Endpoint,
		},
	}
}

// Enabled reports whether a client ID is configured.
func (a *GitHubAuthorizer) Enabled() bool {
	return a != nil && a.config.ClientID != ""
}

// AuthURL returns a fresh state value and the URL to send the browser to.
// The caller stores state in a cookie (Cookies.SetState) so the return trip
// can be checked against CSRF.
func (a *GitHubAuthorizer) AuthURL() (state, url string) {
	state = xid.New().String()
	return state, a.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}
