package model

import "testing"

func TestSeverityRank(t *testing.T) {
	tests := []struct {
		severity string
		want     int
	}{
		{"BLOCKER", RankBlocker},
		{"critical", RankBlocker},
		{"MAJOR", RankMajor},
		{"MINOR", RankMinor},
		{"INFO", RankDefault},
		{"", RankDefault},
	}

	for _, tt := range tests {
		t.Run(tt.severity, func(t *testing.T) {
			if got := SeverityRank(tt.severity); got != tt.want {
				t.Errorf("SeverityRank(%q) = %d, want %d", tt.severity, got, tt.want)
			}
		})
	}
}

func TestSeverityClass(t *testing.T) {
	if got := SeverityClass("BLOCKER"); got != "danger" {
		t.Errorf("SeverityClass(BLOCKER) = %q, want danger", got)
	}
	if got := SeverityClass("MAJOR"); got != "warning" {
		t.Errorf("SeverityClass(MAJOR) = %q, want warning", got)
	}
	if got := SeverityClass("whatever"); got != "secondary" {
		t.Errorf("SeverityClass(whatever) = %q, want secondary", got)
	}
}

func TestSortIssuesBySeverity_StableAndNonMutating(t *testing.T) {
	issues := []SonarIssue{
		{Key: "a", Severity: "MINOR"},
		{Key: "b", Severity: "CRITICAL"},
		{Key: "c", Severity: "INFO"},
		{Key: "d", Severity: "BLOCKER"},
		{Key: "e", Severity: "MAJOR"},
	}

	sorted := SortIssuesBySeverity(issues)

	want := []string{"b", "d", "e", "a", "c"}
	for i, key := range want {
		if sorted[i].Key != key {
			t.Fatalf("sorted[%d].Key = %q, want %q (got order %v)", i, sorted[i].Key, key, keys(sorted))
		}
	}

	if issues[0].Key != "a" {
		t.Error("SortIssuesBySeverity() mutated its input")
	}
}

func TestAnalysisStatusTerminal(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"completed", true},
		{"FAILED", true},
		{"in_progress", false},
		{"queued", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := (AnalysisStatus{Status: tt.status}).Terminal(); got != tt.want {
			t.Errorf("Terminal(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestMetricsForBranch_DefaultsToDefaultBranch(t *testing.T) {
	p := &ProjectAnalysis{
		DefaultBranch: "main",
		CodeMetrics: []CodeMetrics{
			{Branch: "main", Language: "go"},
			{Branch: "dev", Language: "go"},
			{Branch: "main", Language: "js"},
		},
	}

	if got := len(p.MetricsForBranch("")); got != 2 {
		t.Errorf("MetricsForBranch(\"\") len = %d, want 2", got)
	}
	if got := len(p.MetricsForBranch("dev")); got != 1 {
		t.Errorf("MetricsForBranch(dev) len = %d, want 1", got)
	}
}

func TestSessionIsAuthenticated(t *testing.T) {
	var nilSession *Session
	if nilSession.IsAuthenticated() {
		t.Error("nil session must not be authenticated")
	}
	if (&Session{UserEmail: "dev@example.com"}).IsAuthenticated() {
		t.Error("session without token must not be authenticated")
	}
	if !(&Session{AuthToken: "tok"}).IsAuthenticated() {
		t.Error("session with token must be authenticated")
	}
}

func keys(issues []SonarIssue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.Key
	}
	return out
}
