package model

// UserActivity is the per-user aggregate the dashboard renders.
type UserActivity struct {
	GitHubUsername          string            `json:"githubUsername"          graphql:"githubUsername"`
	TotalRepositories       int               `json:"totalRepositories"`
	TotalCommits            int               `json:"totalCommits"`
	TotalStars              int               `json:"totalStars"`
	TotalForks              int               `json:"totalForks"`
	PublicRepoCount         int               `json:"publicRepoCount"`
	PrivateRepoCount        int               `json:"privateRepoCount"`
	LanguagesUsed           []string          `json:"languagesUsed"`
	TopContributedRepo      string            `json:"topContributedRepo"`
	EarliestRepoCreatedAt   string            `json:"earliestRepoCreatedAt"`
	MostRecentlyUpdatedRepo string            `json:"mostRecentlyUpdatedRepo"`
	LastActive              string            `json:"lastActive"`
	CommitHistory           []CommitEntry     `json:"commitHistory"`
	SonarIssues             []RepoIssueReport `json:"sonarIssues"`
	IssuePercentage         float64           `json:"issuePercentage"`
	DangerLevel             string            `json:"dangerLevel"`
}

// CommitEntry is one push worth of commits to a repository on a given day.
// Date is an RFC 3339 timestamp.
type CommitEntry struct {
	Date    string `json:"date"`
	Repo    string `json:"repo"`
	Commits int    `json:"commits"`
}

// RepoIssueReport groups the issues of one repository.
type RepoIssueReport struct {
	Repo   string       `json:"repo"`
	Issues []SonarIssue `json:"issues"`
}

// ScanResult is one historical scan summary.
type ScanResult struct {
	TotalBugs       int    `json:"totalBugs"`
	Vulnerabilities int    `json:"vulnerabilities"`
	CodeSmells      int    `json:"codeSmells"`
	Duplications    int    `json:"duplications"`
	Timestamp       string `json:"timestamp"`
}
