package chart

import (
	"math"
	"strconv"
	"strings"

	"github.com/sakif/sonarhub/internal/model"
)

// Link is one repo → day edge of a commit flow.
type Link struct {
	Source string
	Target string
	Value  int
}

// Flow is the data of a Sankey diagram.
type Flow struct {
	Nodes []string
	Links []Link
}

// Empty reports whether there is no data to draw.
func (f Flow) Empty() bool {
	return len(f.Links) == 0
}

// CommitFlow links every repository to the days it received commits. An
// entry without a commit count still weighs 1 so it stays visible. Nodes
// contain only endpoints of links.
func CommitFlow(history []model.CommitEntry) Flow {
	if len(history) == 0 {
		return Flow{}
	}
	var f Flow
	seen := make(map[string]bool)
	index := make(map[[2]string]int)
	for _, e := range history {
		l := Link{Source: e.Repo, Target: day(e.Date), Value: e.Commits}
		if l.Value <= 0 {
			l.Value = 1
		}
		key := [2]string{l.Source, l.Target}
		if i, ok := index[key]; ok {
			f.Links[i].Value += l.Value
			continue
		}
		index[key] = len(f.Links)
		f.Links = append(f.Links, l)
		for _, n := range []string{l.Source, l.Target} {
			if !seen[n] {
				seen[n] = true
				f.Nodes = append(f.Nodes, n)
			}
		}
	}
	return f
}

// Sources returns the distinct source nodes in first-seen order.
func (f Flow) Sources() []string {
	return f.side(func(l Link) string { return l.Source })
}

// Targets returns the distinct target nodes in first-seen order.
func (f Flow) Targets() []string {
	return f.side(func(l Link) string { return l.Target })
}

func (f Flow) side(pick func(Link) string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, l := range f.Links {
		n := pick(l)
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// RadarPoints returns SVG polygon points for s drawn as a radar chart of the
// given radius around (radius, radius).
func RadarPoints(s Series, radius int) string {
	n := len(s.Points)
	if n == 0 {
		return ""
	}
	max := s.Max()
	var b strings.Builder
	for i, p := range s.Points {
		r := 0.0
		if max > 0 {
			r = float64(p.Value) / float64(max) * float64(radius)
		}
		angle := 2*math.Pi*float64(i)/float64(n) - math.Pi/2
		x := float64(radius) + r*math.Cos(angle)
		y := float64(radius) + r*math.Sin(angle)
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(x, 'f', 1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(y, 'f', 1, 64))
	}
	return b.String()
}
