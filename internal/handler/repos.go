package handler

import (
	"net/http"
	"strings"

	"github.com/sakif/sonarhub/internal/model"
	"github.com/sakif/sonarhub/internal/service"
	"github.com/sakif/sonarhub/internal/view"
)

// RepoHandler serves the repository explorer (GitHub) and the tracked
// repository list (backend).
type RepoHandler struct {
	*Base
	repos *service.RepoService
}

// NewRepoHandler creates a RepoHandler.
func NewRepoHandler(base *Base, repos *service.RepoService) *RepoHandler {
	return &RepoHandler{Base: base, repos: repos}
}

type githubReposData struct {
	// Username is whose repositories are listed: the ?username= search, or
	// the signed-in user when the search is blank.
	Username string
	Repos    view.State[[]model.GitHubRepository]
}

// GitHubRepos serves GET /dashboard/github-repos?username=.
func (h *RepoHandler) GitHubRepos(w http.ResponseWriter, r *http.Request) {
	data := githubReposData{}
	scope, err := h.scope(r)
	if err == nil {
		data.Username = strings.TrimSpace(r.URL.Query().Get("username"))
		if data.Username == "" {
			data.Username = scope.Username()
		}
		var repos []model.GitHubRepository
		repos, err = h.repos.OnGitHub(r.Context(), scope, data.Username)
		data.Repos = view.FromSlice(repos, err)
	} else {
		data.Repos = view.Failed[[]model.GitHubRepository](err)
	}
	h.logFetch(r, err)
	h.Render.Render(w, r, http.StatusOK, "github_repos.html", Page{Title: "Repo Explorer", Nav: "github-repos", Data: data})
}

type sonarReposData struct {
	Username string
	// List is the ?view=list toggle; cards otherwise.
	List  bool
	Repos view.State[[]model.Repository]
}

// SonarRepos serves GET /dashboard/sonar-repo.
func (h *RepoHandler) SonarRepos(w http.ResponseWriter, r *http.Request) {
	data := sonarReposData{List: r.URL.Query().Get("view") == "list"}
	scope, err := h.scope(r)
	if err == nil {
		data.Username = scope.Username()
		var repos []model.Repository
		repos, err = h.repos.Tracked(r.Context(), scope)
		data.Repos = view.FromSlice(repos, err).WithStatus(h.repos.AnalyzeAllBusy(scope))
	} else {
		data.Repos = view.Failed[[]model.Repository](err)
	}
	h.logFetch(r, err)
	h.Render.Render(w, r, http.StatusOK, "sonar_repos.html", Page{Title: "Sonar Insights", Nav: "sonar-repo", Data: data})
}

// AnalyzeAll handles POST /dashboard/sonar-repo/analyze-all.
func (h *RepoHandler) AnalyzeAll(w http.ResponseWriter, r *http.Request) {
	back := "/dashboard/sonar-repo"
	scope, err := h.scope(r)
	if err != nil {
		h.finish(w, r, "", err, back)
		return
	}
	msg, err := h.repos.AnalyzeAll(r.Context(), scope)
	h.finish(w, r, msg, err, back)
}
