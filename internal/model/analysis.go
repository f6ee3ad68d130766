package model

import (
	"sort"
	"strings"
)

// ProjectAnalysis is everything the backend knows about one analyzed
// repository: project metadata, code metrics per branch, issues, and the
// lines-of-code report.
type ProjectAnalysis struct {
	UID              string          `json:"uId"              graphql:"u_id"`
	Title            string          `json:"title"`
	RepoName         string          `json:"repoName"`
	Description      string          `json:"description"`
	GitHubURL        string          `json:"githubUrl"        graphql:"githubUrl"`
	IsPrivate        bool            `json:"isPrivate"`
	DefaultBranch    string          `json:"defaultBranch"`
	LastAnalysisDate string          `json:"lastAnalysisDate"`
	Result           string          `json:"result"`
	SonarIssues      []SonarIssue    `json:"sonarIssues"`
	CodeMetrics      []CodeMetrics   `json:"codeMetrics"`
	LinesOfCode      []LanguageLines `json:"linesOfCode"      graphql:"linesOfCodeReport"`
}

// SonarIssue is a single static-analysis finding.
type SonarIssue struct {
	UID        string `json:"uId"        graphql:"u_id"`
	Key        string `json:"key"`
	Type       string `json:"type"`
	Severity   string `json:"severity"`
	Message    string `json:"message"`
	Rule       string `json:"rule"`
	Component  string `json:"component"`
	Line       int    `json:"line"`
	Status     string `json:"status"`
	Resolution string `json:"resolution"`
	CreatedAt  string `json:"createdAt"`
}

// SeverityClass is the display class for the issue's severity.
func (i SonarIssue) SeverityClass() string {
	return SeverityClass(i.Severity)
}

// CodeMetrics are the measures of one branch.
type CodeMetrics struct {
	UID             string  `json:"uId"             graphql:"u_id"`
	Branch          string  `json:"branch"`
	Language        string  `json:"language"`
	LinesOfCode     int     `json:"linesOfCode"`
	FilesCount      int     `json:"filesCount"`
	Coverage        float64 `json:"coverage"`
	DuplicatedLines int     `json:"duplicatedLines"`
	Violations      int     `json:"violations"`
	Complexity      int     `json:"complexity"`
	CreatedAt       string  `json:"createdAt"`
}

// LanguageLines is one row of the lines-of-code report.
type LanguageLines struct {
	Language string `json:"language"`
	Lines    int    `json:"lines"`
}

// MetricsForBranch returns the metrics rows of branch. An empty branch means
// the project's default branch.
func (p *ProjectAnalysis) MetricsForBranch(branch string) []CodeMetrics {
	if branch == "" {
		branch = p.DefaultBranch
	}
	var out []CodeMetrics
	for _, m := range p.CodeMetrics {
		if m.Branch == branch {
			out = append(out, m)
		}
	}
	return out
}

// TotalLines sums the lines-of-code report.
func (p *ProjectAnalysis) TotalLines() int {
	total := 0
	for _, l := range p.LinesOfCode {
		total += l.Lines
	}
	return total
}

// AnalysisStatus is the state of a backend analysis job.
type AnalysisStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Terminal reports whether polling for this status may stop.
func (s AnalysisStatus) Terminal() bool {
	switch strings.ToLower(s.Status) {
	case StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Analysis job states.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Severity ranks, highest first. Blocker and critical share the top tier.
const (
	RankBlocker = 4
	RankMajor   = 3
	RankMinor   = 2
	RankDefault = 1
)

// SeverityRank maps a SonarQube severity to its fixed ordinal. Unknown
// severities (INFO, empty) get RankDefault.
func SeverityRank(severity string) int {
	switch strings.ToUpper(severity) {
	case "BLOCKER", "CRITICAL":
		return RankBlocker
	case "MAJOR":
		return RankMajor
	case "MINOR":
		return RankMinor
	default:
		return RankDefault
	}
}

// SeverityClass is used purely for display colouring.
func SeverityClass(severity string) string {
	switch SeverityRank(severity) {
	case RankBlocker:
		return "danger"
	case RankMajor:
		return "warning"
	case RankMinor:
		return "info"
	default:
		return "secondary"
	}
}

// SortIssuesBySeverity returns a copy of issues ordered by descending rank.
// Issues of equal rank keep their server order.
func SortIssuesBySeverity(issues []SonarIssue) []SonarIssue {
	out := make([]SonarIssue, len(issues))
	copy(out, issues)
	sort.SliceStable(out, func(i, j int) bool {
		return SeverityRank(out[i].Severity) > SeverityRank(out[j].Severity)
	})
	return out
}
