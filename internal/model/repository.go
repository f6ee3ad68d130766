package model

// Repository is a repository the backend tracks for a user.
type Repository struct {
	Name         string `json:"name"`
	Owner        string `json:"owner"`
	Language     string `json:"language"`
	Stars        int    `json:"stars"`
	TotalCommits int    `json:"totalCommits"`
}

// GitHubRepository is a repository as listed by GitHub's GraphQL API.
type GitHubRepository struct {
	Name           string `json:"name"`
	URL            string `json:"url"            graphql:"url"`
	StargazerCount int    `json:"stargazerCount"`
}

// Branch is one branch of a tracked repository.
type Branch struct {
	Name           string `json:"name"`
	IsDefault      bool   `json:"isDefault"`
	LastCommitDate string `json:"lastCommitDate"`
}

// PullRequest as stored by the backend.
type PullRequest struct {
	PRID         int    `json:"prId"         graphql:"prId"`
	Title        string `json:"title"`
	State        string `json:"state"`
	Author       string `json:"author"`
	CreatedAt    string `json:"createdAt"`
	ClosedAt     string `json:"closedAt"`
	Additions    int    `json:"additions"`
	Deletions    int    `json:"deletions"`
	ChangedFiles int    `json:"changedFiles"`
}

// IsOpen reports whether the pull request is still open.
func (p PullRequest) IsOpen() bool {
	return p.State == "OPEN"
}

// PRComment is a review comment on a pull request (including the ones the
// analysis bot posts).
type PRComment struct {
	ID        string `json:"id"        graphql:"id"`
	Author    string `json:"author"`
	Body      string `json:"body"`
	CreatedAt string `json:"createdAt"`
}
