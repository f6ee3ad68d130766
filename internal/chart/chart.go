// Package chart turns already-fetched aggregates into series the templates
// draw as inline SVG. Nothing here queries anything.
package chart

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sakif/sonarhub/internal/model"
)

// Point is one labelled value.
type Point struct {
	Label string
	Value int
}

// Series is an ordered set of points under one legend label.
type Series struct {
	Label  string
	Points []Point
}

// Bar is a point scaled for drawing.
type Bar struct {
	Point
	Width int
	// Offset is the bar's position along the category axis, in rows.
	Offset int
}

// Empty reports whether the series has nothing to draw.
func (s Series) Empty() bool {
	return len(s.Points) == 0
}

// Max returns the largest value, or 0.
func (s Series) Max() int {
	m := 0
	for _, p := range s.Points {
		if p.Value > m {
			m = p.Value
		}
	}
	return m
}

// Total sums the values.
func (s Series) Total() int {
	t := 0
	for _, p := range s.Points {
		t += p.Value
	}
	return t
}

// Bars scales every value into [0, width] relative to the largest one.
// Non-zero values always get at least one pixel.
func (s Series) Bars(width int) []Bar {
	max := s.Max()
	bars := make([]Bar, len(s.Points))
	for i, p := range s.Points {
		w := 0
		if max > 0 {
			w = p.Value * width / max
			if w == 0 && p.Value > 0 {
				w = 1
			}
		}
		bars[i] = Bar{Point: p, Width: w, Offset: i}
	}
	return bars
}

// Polyline returns SVG polyline points for the series in a width x height
// box, origin bottom-left.
func (s Series) Polyline(width, height int) string {
	n := len(s.Points)
	if n == 0 {
		return ""
	}
	max := s.Max()
	var b strings.Builder
	for i, p := range s.Points {
		x := 0
		if n > 1 {
			x = i * width / (n - 1)
		}
		y := height
		if max > 0 {
			y = height - p.Value*height/max
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d,%d", x, y)
	}
	return b.String()
}

// counter keeps first-seen label order.
type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(label string, n int) {
	if _, ok := c.counts[label]; !ok {
		c.order = append(c.order, label)
	}
	c.counts[label] += n
}

func (c *counter) series(label string) Series {
	s := Series{Label: label, Points: make([]Point, 0, len(c.order))}
	for _, l := range c.order {
		s.Points = append(s.Points, Point{Label: l, Value: c.counts[l]})
	}
	return s
}

// SeverityBar counts issues per severity, in order of first appearance.
func SeverityBar(issues []model.SonarIssue) Series {
	c := newCounter()
	for _, i := range issues {
		c.add(i.Severity, 1)
	}
	return c.series("Sonar Issues")
}

// ReportIssues flattens per-repository issue reports.
func ReportIssues(reports []model.RepoIssueReport) []model.SonarIssue {
	var out []model.SonarIssue
	for _, r := range reports {
		out = append(out, r.Issues...)
	}
	return out
}

// day extracts the calendar day of an RFC 3339 timestamp.
func day(date string) string {
	if date == "" {
		return "Unknown Date"
	}
	d, _, _ := strings.Cut(date, "T")
	return d
}

// CommitsOverTime sums commits per calendar day, oldest first.
func CommitsOverTime(history []model.CommitEntry) Series {
	c := newCounter()
	for _, e := range history {
		c.add(day(e.Date), e.Commits)
	}
	sort.Strings(c.order)
	return c.series("Commits Over Time")
}

// CommitsPerRepo counts history entries per repository.
func CommitsPerRepo(history []model.CommitEntry) Series {
	c := newCounter()
	for _, e := range history {
		c.add(e.Repo, 1)
	}
	return c.series("Commits per Repo")
}

// ScanPie splits a scan summary into its four slices.
func ScanPie(scan model.ScanResult) Series {
	return Series{
		Label: "Latest Scan",
		Points: []Point{
			{Label: "Bugs", Value: scan.TotalBugs},
			{Label: "Vulnerabilities", Value: scan.Vulnerabilities},
			{Label: "Code Smells", Value: scan.CodeSmells},
			{Label: "Duplications", Value: scan.Duplications},
		},
	}
}
