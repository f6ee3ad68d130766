package model

import "time"

// User is the backend's view of a SonarHub account, looked up by email.
// Username is the GitHub login every repository-scoped query is keyed by.
type User struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

// AuthPayload is returned by the GitHub sign-up exchange.
type AuthPayload struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	Token           string `json:"token"`
	Email           string `json:"email"`
	HasPassword     bool   `json:"hasPassword"`
}

// MutationResult is the thin {success, message} envelope the backend returns
// for every trigger mutation. It never carries refreshed data.
type MutationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// GitHubAuthURL is the answer to requestGithubAuth: either a URL to redirect
// the browser to, or a message explaining why none is available.
type GitHubAuthURL struct {
	URL     string `json:"url"`
	Message string `json:"message"`
}

// Identity is a resolved email → GitHub username mapping, persisted so a
// server restart does not force every signed-in visitor through the lookup
// again. It is dropped when the owning session logs out.
type Identity struct {
	Email          string    `json:"email"          db:"email"`
	GitHubUsername string    `json:"githubUsername" db:"github_username"`
	Name           string    `json:"name"           db:"name"`
	UpdatedAt      time.Time `json:"updatedAt"      db:"updated_at"`
}
