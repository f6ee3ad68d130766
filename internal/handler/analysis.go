package handler

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/sonarhub/internal/model"
	"github.com/sakif/sonarhub/internal/service"
	"github.com/sakif/sonarhub/internal/view"
)

// AnalysisHandler serves the analysis of one repository or branch.
type AnalysisHandler struct {
	*Base
	analysis *service.AnalysisService
}

// NewAnalysisHandler creates an AnalysisHandler.
func NewAnalysisHandler(base *Base, analysis *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{Base: base, analysis: analysis}
}

type repoDetailsData struct {
	Username string
	Repo     string
	Branch   string
	// SortBySeverity is the ?sort=severity toggle of the issues table.
	SortBySeverity bool

	Project view.State[*model.ProjectAnalysis]
	Metrics []model.CodeMetrics
	Issues  view.State[[]model.SonarIssue]
	// Live is set while the backend reports the analysis in progress; the
	// page then opens the status feed.
	Live bool
}

// repoPath is the page of repo (and branch, when set).
func repoPath(repo, branch string) string {
	p := "/dashboard/repo/" + url.PathEscape(repo)
	if branch != "" {
		p += "/branch/" + url.PathEscape(branch)
	}
	return p
}

// Details serves GET /dashboard/repo/{repoName} and
// GET /dashboard/repo/{repoName}/branch/{branch}.
func (h *AnalysisHandler) Details(w http.ResponseWriter, r *http.Request) {
	repo := chi.URLParam(r, "repoName")
	branch := chi.URLParam(r, "branch")
	data := repoDetailsData{
		Repo:           repo,
		Branch:         branch,
		SortBySeverity: r.URL.Query().Get("sort") == "severity",
	}

	scope, err := h.scope(r)
	if err != nil {
		h.logFetch(r, err)
		data.Project = view.Failed[*model.ProjectAnalysis](err)
		h.Render.Render(w, r, http.StatusOK, "repo_details.html", Page{Title: repo, Nav: "sonar-repo", Data: data})
		return
	}
	data.Username = scope.Username()

	project, err := h.analysis.Project(r.Context(), scope, repo, branch)
	h.logFetch(r, err)
	data.Project = view.From(project, err, nil).WithStatus(h.analysis.BusyStatus(scope, repo, branch))

	if project != nil {
		data.Metrics = project.MetricsForBranch(branch)
		issues := project.SonarIssues
		if data.SortBySeverity {
			issues = model.SortIssuesBySeverity(issues)
		}
		data.Issues = view.FromSlice(issues, nil)
	}

	// A running analysis gets the live feed instead of a stale page.
	if st, err := h.analysis.Status(r.Context(), scope, repo, branch); err == nil && st.Status != "" && !st.Terminal() {
		data.Live = true
		if data.Project.Status == "" {
			data.Project.Status = service.StatusBusy
		}
	}

	h.Render.Render(w, r, http.StatusOK, "repo_details.html", Page{Title: repo, Nav: "sonar-repo", Data: data})
}

// Analyze handles POST /dashboard/repo/{repoName}/analyze ("Analyze Now"
// and "Retry" of a never-analyzed repository).
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	repo := chi.URLParam(r, "repoName")
	back := repoPath(repo, r.FormValue("branch"))

	scope, err := h.scope(r)
	if err != nil {
		h.finish(w, r, "", err, back)
		return
	}
	msg, err := h.analysis.AnalyzeRepo(r.Context(), scope, repo)
	h.finish(w, r, msg, err, back)
}

// Reanalyze handles POST /dashboard/repo/{repoName}/branch/{branch}/reanalyze.
func (h *AnalysisHandler) Reanalyze(w http.ResponseWriter, r *http.Request) {
	repo := chi.URLParam(r, "repoName")
	branch := chi.URLParam(r, "branch")
	back := repoPath(repo, branch)

	scope, err := h.scope(r)
	if err != nil {
		h.finish(w, r, "", err, back)
		return
	}
	msg, err := h.analysis.AnalyzeBranch(r.Context(), scope, repo, branch)
	h.finish(w, r, msg, err, back)
}

// StatusJSON serves GET /api/repos/{repoName}/status?branch=: the analysis
// status for scripts that cannot use the live feed.
func (h *AnalysisHandler) StatusJSON(w http.ResponseWriter, r *http.Request) {
	scope, err := h.scope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	st, err := h.analysis.Status(r.Context(), scope, chi.URLParam(r, "repoName"), r.URL.Query().Get("branch"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusMessage{Status: st.Status, Message: st.Message, Terminal: st.Terminal()})
}
