// Package handler contains the HTTP handlers of SonarHub.
//
// Handlers are glue: they parse the request, call a service, turn the
// result into a view.State, and render a page. They hold no business rules.
//
// Pages are server-rendered. Every page template defines "content" and is
// parsed together with base.html, which draws the chrome (navbar, dashboard
// sidebar, toast):
//
//	base.html     → {{template "content" .}}
//	dashboard.html → {{define "content"}}...{{end}}
package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/sakif/sonarhub/internal/auth"
	"github.com/sakif/sonarhub/internal/chart"
	"github.com/sakif/sonarhub/internal/model"
	"github.com/sakif/sonarhub/internal/notify"
)

//go:embed templates
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// pageNames lists every page template. Each is parsed with base.html.
var pageNames = []string{
	"landing.html",
	"signin.html",
	"signup.html",
	"set_password.html",
	"forgot_password.html",
	"dashboard.html",
	"github_repos.html",
	"sonar_repos.html",
	"repo_details.html",
	"pull_requests.html",
	"branches.html",
	"branch_pulls.html",
	"repo_pulls.html",
	"pr_comments.html",
	"learn_more.html",
}

var funcMap = template.FuncMap{
	"severityClass": model.SeverityClass,
	"path":          url.PathEscape,
	"query":         url.QueryEscape,
	"bars":          func(s chart.Series, width int) []chart.Bar { return s.Bars(width) },
	"polyline":      func(s chart.Series, w, h int) string { return s.Polyline(w, h) },
	"radar":         chart.RadarPoints,
	"mul":           func(a, b int) int { return a * b },
	"add":           func(a, b int) int { return a + b },
	"percent": func(part, total int) int {
		if total == 0 {
			return 0
		}
		return part * 100 / total
	},
	"upper": strings.ToUpper,
}

// Renderer holds the parsed page templates and draws pages with the
// visitor's pending toast.
type Renderer struct {
	pages  map[string]*template.Template
	toasts *notify.Center
	logger *slog.Logger
}

// NewRenderer parses every page once at startup.
func NewRenderer(toasts *notify.Center, logger *slog.Logger) (*Renderer, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	return &Renderer{pages: pages, toasts: toasts, logger: logger}, nil
}

func parsePages() (map[string]*template.Template, error) {
	tmplFS, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("handler: templates subfs: %w", err)
	}
	base, err := fs.ReadFile(tmplFS, "base.html")
	if err != nil {
		return nil, fmt.Errorf("handler: reading base: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		body, err := fs.ReadFile(tmplFS, name)
		if err != nil {
			return nil, fmt.Errorf("handler: reading %s: %w", name, err)
		}
		tmpl, err := template.New("base").Funcs(funcMap).Parse(string(base))
		if err != nil {
			return nil, fmt.Errorf("handler: parsing base for %s: %w", name, err)
		}
		if _, err := tmpl.New(name).Parse(string(body)); err != nil {
			return nil, fmt.Errorf("handler: parsing %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

// Static serves the embedded /static/ files.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// Page is what base.html receives.
type Page struct {
	Title string
	// Nav marks the active sidebar entry; empty for public pages.
	Nav     string
	Session *model.Session
	Toast   *notify.Toast
	Data    any
}

// SignedIn reports whether the visitor has a session.
func (p Page) SignedIn() bool {
	return p.Session.IsAuthenticated()
}

// Dashboard reports whether the page is drawn inside the dashboard layout.
func (p Page) Dashboard() bool {
	return p.Nav != ""
}

// Render draws page name with status. The visitor's pending toast, if any,
// is taken and drawn with it.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, p Page) {
	tmpl, ok := rd.pages[name]
	if !ok {
		rd.logger.Error("template not found", slog.String("name", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	p.Session = auth.SessionFromContext(r.Context())
	if t, ok := rd.toasts.Take(visitor(r)); ok {
		p.Toast = &t
	}

	// Render into a buffer so a template error never leaves half a page.
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", p); err != nil {
		rd.logger.Error("failed to render template",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
