package handler

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/sonarhub/internal/chart"
	"github.com/sakif/sonarhub/internal/model"
	"github.com/sakif/sonarhub/internal/service"
	"github.com/sakif/sonarhub/internal/view"
)

// DashboardHandler serves the dashboard home and the help page.
type DashboardHandler struct {
	*Base
	activity *service.ActivityService
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(base *Base, activity *service.ActivityService) *DashboardHandler {
	return &DashboardHandler{Base: base, activity: activity}
}

type dashboardData struct {
	Username string
	Activity view.State[*model.UserActivity]
	Scan     view.State[*model.ScanResult]

	Severity chart.Series
	OverTime chart.Series
	PerRepo  chart.Series
	Flow     chart.Flow
	ScanPie  chart.Series
}

// Dashboard serves GET /dashboard: activity metrics, four charts and the
// latest scan.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	data := dashboardData{}

	scope, err := h.scope(r)
	if err != nil {
		data.Activity = view.Failed[*model.UserActivity](err)
		data.Scan = view.Failed[*model.ScanResult](err)
		h.logFetch(r, err)
		h.Render.Render(w, r, http.StatusOK, "dashboard.html", Page{Title: "Dashboard", Nav: "dashboard", Data: data})
		return
	}
	data.Username = scope.Username()

	// Activity and scans are independent; fetch them side by side. Each
	// keeps its own error so one failing region does not blank the other.
	var (
		activity    *model.UserActivity
		activityErr error
		scan        *model.ScanResult
		scanErr     error
	)
	var g errgroup.Group
	g.Go(func() error {
		activity, activityErr = h.activity.Activity(r.Context(), scope)
		return nil
	})
	g.Go(func() error {
		scan, scanErr = h.activity.LatestScan(r.Context(), scope)
		return nil
	})
	g.Wait()

	h.logFetch(r, activityErr)
	h.logFetch(r, scanErr)

	data.Activity = view.From(activity, activityErr, nil)
	data.Scan = view.From(scan, scanErr, func(s *model.ScanResult) bool { return s == nil })
	if activity != nil {
		data.Severity = chart.SeverityBar(chart.ReportIssues(activity.SonarIssues))
		data.OverTime = chart.CommitsOverTime(activity.CommitHistory)
		data.PerRepo = chart.CommitsPerRepo(activity.CommitHistory)
		data.Flow = chart.CommitFlow(activity.CommitHistory)
	}
	if scan != nil {
		data.ScanPie = chart.ScanPie(*scan)
	}

	h.Render.Render(w, r, http.StatusOK, "dashboard.html", Page{Title: "Dashboard", Nav: "dashboard", Data: data})
}

// LearnMore serves GET /dashboard/learn-more.
func (h *DashboardHandler) LearnMore(w http.ResponseWriter, r *http.Request) {
	h.Render.Render(w, r, http.StatusOK, "learn_more.html", Page{Title: "Knowledge Hub", Nav: "learn-more"})
}
