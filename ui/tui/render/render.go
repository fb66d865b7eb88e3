// Package render turns view trees into terminal output with lipgloss.
package render

import (
	"strings"

	"github.com/NimbleMarkets/ntcharts/canvas"
	"github.com/NimbleMarkets/ntcharts/linechart"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"mvukit/internal/theme"
	"mvukit/internal/view"
)

const (
	defaultChartWidth    = 30
	defaultChartHeight   = 10
	defaultProgressWidth = 30
)

var spinnerFrames = spinner.Dot.Frames

// Renderer draws view trees. The zero value is not usable; use New.
type Renderer struct {
	theme *theme.Theme
	zones *zone.Manager

	// Focused is the press id drawn with the focused button style.
	Focused string
}

// New creates a renderer. zones may be nil, in which case buttons are not
// marked for mouse hit-testing.
func New(th *theme.Theme, zones *zone.Manager) *Renderer {
	if th == nil {
		th = theme.Default()
	}
	return &Renderer{theme: th, zones: zones}
}

// Render draws n and everything below it.
func (r *Renderer) Render(n view.Node) string {
	return r.node(n, view.Column)
}

func (r *Renderer) node(n view.Node, axis view.Axis) string {
	switch n := n.(type) {
	case nil:
		return ""
	case view.Text:
		return r.theme.Tone(n.Tone).Render(n.Content)
	case view.Button:
		return r.button(n)
	case view.Box:
		return r.box(n)
	case view.Card:
		return r.card(n)
	case view.Embed:
		if n.Root == nil || n.Root.IsDestroyed() {
			return ""
		}
		return r.node(n.Root.Load(), axis)
	case view.Spinner:
		return r.spinner(n)
	case view.Chart:
		return r.chart(n)
	case view.Progress:
		return r.progress(n)
	case view.Spacer:
		if axis == view.Row {
			return strings.Repeat(" ", n.Size)
		}
		return strings.Repeat("\n", max(n.Size-1, 0))
	}
	return ""
}

func (r *Renderer) button(b view.Button) string {
	style := r.theme.Button
	switch {
	case b.Disabled:
		style = r.theme.ButtonOff
	case b.ID != "" && b.ID == r.Focused:
		style = r.theme.ButtonFocused
	}
	out := style.Render(b.Label)
	if r.zones != nil && b.ID != "" && !b.Disabled {
		out = r.zones.Mark(b.ID, out)
	}
	return out
}

func (r *Renderer) box(b view.Box) string {
	parts := make([]string, 0, len(b.Children)*2)
	for i, c := range b.Children {
		if i > 0 && b.Gap > 0 {
			if b.Axis == view.Row {
				parts = append(parts, strings.Repeat(" ", b.Gap))
			} else {
				for j := 0; j < b.Gap; j++ {
					parts = append(parts, "")
				}
			}
		}
		parts = append(parts, r.node(c, b.Axis))
	}
	if b.Axis == view.Row {
		return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (r *Renderer) card(c view.Card) string {
	body := r.node(c.Child, view.Column)
	if c.Title != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, r.theme.Title.Render(c.Title), body)
	}
	return r.theme.Card.Render(body)
}

func (r *Renderer) spinner(s view.Spinner) string {
	if !s.Active {
		return r.theme.Muted.Render("  " + s.Label)
	}
	frame := spinnerFrames[((s.Frame%len(spinnerFrames))+len(spinnerFrames))%len(spinnerFrames)]
	icon := lipgloss.NewStyle().Foreground(r.theme.Accent).Render(frame)
	if s.Label == "" {
		return icon
	}
	return icon + " " + s.Label
}

func (r *Renderer) chart(c view.Chart) string {
	w, h := c.Width, c.Height
	if w <= 0 {
		w = defaultChartWidth
	}
	if h <= 0 {
		h = defaultChartHeight
	}
	minY, maxY := c.Min, c.Max
	if maxY <= minY {
		maxY = minY + 1
	}
	maxX := float64(len(c.Series) - 1)
	if maxX < 1 {
		maxX = 1
	}

	lc := linechart.New(w, h, 0, maxX, minY, maxY)
	for i := 0; i < len(c.Series)-1; i++ {
		lc.DrawBrailleLine(
			canvas.Float64Point{X: float64(i), Y: c.Series[i]},
			canvas.Float64Point{X: float64(i + 1), Y: c.Series[i+1]},
		)
	}
	lc.DrawXYAxisAndLabel()

	if c.Title == "" {
		return lc.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Render(c.Title),
		lc.View(),
	)
}

func (r *Renderer) progress(p view.Progress) string {
	w := p.Width
	if w <= 0 {
		w = defaultProgressWidth
	}
	bar := progress.New(
		progress.WithSolidFill(r.theme.Accent.Dark),
		progress.WithWidth(w),
	)
	out := bar.ViewAs(p.Clamp())
	if p.Label == "" {
		return out
	}
	return lipgloss.JoinVertical(lipgloss.Left, p.Label, out)
}
