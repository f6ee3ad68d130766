package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/sonarhub/internal/model"
	"github.com/sakif/sonarhub/internal/service"
	"github.com/sakif/sonarhub/internal/view"
)

// PullHandler serves branches, pull requests and PR comments.
type PullHandler struct {
	*Base
	repos    *service.RepoService
	pulls    *service.PullService
	analysis *service.AnalysisService
}

// NewPullHandler creates a PullHandler.
func NewPullHandler(base *Base, repos *service.RepoService, pulls *service.PullService, analysis *service.AnalysisService) *PullHandler {
	return &PullHandler{Base: base, repos: repos, pulls: pulls, analysis: analysis}
}

func pullsPath(repo string, parts ...string) string {
	p := "/dashboard/pull-requests/" + url.PathEscape(repo)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

type pullReposData struct {
	Repos view.State[[]model.Repository]
}

// Repositories serves GET /dashboard/pull-requests: one card per tracked
// repository.
func (h *PullHandler) Repositories(w http.ResponseWriter, r *http.Request) {
	data := pullReposData{}
	scope, err := h.scope(r)
	if err == nil {
		var repos []model.Repository
		repos, err = h.repos.Tracked(r.Context(), scope)
		data.Repos = view.FromSlice(repos, err)
	} else {
		data.Repos = view.Failed[[]model.Repository](err)
	}
	h.logFetch(r, err)
	h.Render.Render(w, r, http.StatusOK, "pull_requests.html", Page{Title: "Pull Requests", Nav: "pull-requests", Data: data})
}

// branchRow is a branch with the busy status of its "Analyze branch" button.
type branchRow struct {
	model.Branch
	Status string
}

type branchesData struct {
	Repo     string
	Branches view.State[[]branchRow]
}

// Branches serves GET /dashboard/pull-requests/{repo}/branches.
func (h *PullHandler) Branches(w http.ResponseWriter, r *http.Request) {
	repo := chi.URLParam(r, "repo")
	data := branchesData{Repo: repo}

	scope, err := h.scope(r)
	if err == nil {
		var branches []model.Branch
		branches, err = h.pulls.Branches(r.Context(), scope, repo)
		var rows []branchRow
		for _, b := range branches {
			rows = append(rows, branchRow{Branch: b, Status: h.analysis.BusyStatus(scope, repo, b.Name)})
		}
		data.Branches = view.FromSlice(rows, err)
	} else {
		data.Branches = view.Failed[[]branchRow](err)
	}
	h.logFetch(r, err)
	h.Render.Render(w, r, http.StatusOK, "branches.html", Page{Title: repo + " branches", Nav: "pull-requests", Data: data})
}

// AnalyzeBranch handles POST /dashboard/pull-requests/{repo}/branches/{branch}/analyze.
func (h *PullHandler) AnalyzeBranch(w http.ResponseWriter, r *http.Request) {
	repo, branch := chi.URLParam(r, "repo"), chi.URLParam(r, "branch")
	back := pullsPath(repo, "branches")

	scope, err := h.scope(r)
	if err != nil {
		h.finish(w, r, "", err, back)
		return
	}
	msg, err := h.analysis.AnalyzeBranch(r.Context(), scope, repo, branch)
	h.finish(w, r, msg, err, back)
}

type branchPullsData struct {
	Repo   string
	Branch string
	Pulls  view.State[[]model.PullRequest]
}

// BranchPulls serves GET /dashboard/pull-requests/{repo}/branches/{branch}/pulls.
func (h *PullHandler) BranchPulls(w http.ResponseWriter, r *http.Request) {
	repo, branch := chi.URLParam(r, "repo"), chi.URLParam(r, "branch")
	data := branchPullsData{Repo: repo, Branch: branch}

	scope, err := h.scope(r)
	if err == nil {
		var prs []model.PullRequest
		prs, err = h.pulls.ByBranch(r.Context(), scope, repo, branch)
		data.Pulls = view.FromSlice(prs, err).WithStatus(h.pulls.TriggerBusy(scope, repo, branch))
	} else {
		data.Pulls = view.Failed[[]model.PullRequest](err)
	}
	h.logFetch(r, err)
	h.Render.Render(w, r, http.StatusOK, "branch_pulls.html", Page{Title: branch + " pull requests", Nav: "pull-requests", Data: data})
}

// Trigger handles POST /dashboard/pull-requests/{repo}/branches/{branch}/trigger.
func (h *PullHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	repo, branch := chi.URLParam(r, "repo"), chi.URLParam(r, "branch")
	back := pullsPath(repo, "branches", branch, "pulls")

	scope, err := h.scope(r)
	if err != nil {
		h.finish(w, r, "", err, back)
		return
	}
	msg, _, err := h.pulls.TriggerAnalysis(r.Context(), scope, repo, branch)
	h.finish(w, r, msg, err, back)
}

// ConnectGitHub handles POST /dashboard/pull-requests/connect-github: send
// the browser to the URL that grants the backend GitHub access.
func (h *PullHandler) ConnectGitHub(w http.ResponseWriter, r *http.Request) {
	back := r.FormValue("back")
	if !strings.HasPrefix(back, "/dashboard") {
		back = "/dashboard/pull-requests"
	}

	scope, err := h.scope(r)
	if err != nil {
		h.finish(w, r, "", err, back)
		return
	}
	authURL, err := h.pulls.ConnectGitHub(r.Context(), scope)
	if err != nil {
		h.finish(w, r, "", err, back)
		return
	}
	http.Redirect(w, r, authURL, http.StatusSeeOther)
}

type repoPullsData struct {
	Repo  string
	Pulls view.State[[]model.PullRequest]
}

// RepoPulls serves GET /dashboard/pull-requests/{repo}/pulls.
func (h *PullHandler) RepoPulls(w http.ResponseWriter, r *http.Request) {
	repo := chi.URLParam(r, "repo")
	data := repoPullsData{Repo: repo}

	scope, err := h.scope(r)
	if err == nil {
		var prs []model.PullRequest
		prs, err = h.pulls.ByRepo(r.Context(), scope, repo)
		data.Pulls = view.FromSlice(prs, err)
	} else {
		data.Pulls = view.Failed[[]model.PullRequest](err)
	}
	h.logFetch(r, err)
	h.Render.Render(w, r, http.StatusOK, "repo_pulls.html", Page{Title: repo + " pull requests", Nav: "pull-requests", Data: data})
}

type commentsData struct {
	Repo     string
	PRID     int
	Comments view.State[[]model.PRComment]
}

// Comments serves GET /dashboard/pull-requests/{repo}/pulls/{prId}/comments.
// The page then keeps the list fresh over the live feed.
func (h *PullHandler) Comments(w http.ResponseWriter, r *http.Request) {
	repo := chi.URLParam(r, "repo")
	data := commentsData{Repo: repo}

	id, err := prID(r)
	if err == nil {
		data.PRID = id
		var scope service.Scope
		scope, err = h.scope(r)
		if err == nil {
			var comments []model.PRComment
			comments, err = h.pulls.Comments(r.Context(), scope, repo, id)
			data.Comments = view.FromSlice(comments, err)
		}
	}
	if err != nil {
		data.Comments = view.Failed[[]model.PRComment](err)
	}
	h.logFetch(r, err)
	h.Render.Render(w, r, http.StatusOK, "pr_comments.html", Page{Title: "Pull request comments", Nav: "pull-requests", Data: data})
}
