// Package console prints view trees as plain text, for headless runs and for
// the inspector.
package console

import (
	"fmt"
	"io"
	"strings"

	"mvukit/internal/view"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGrey   = "\033[90m"
)

const labelWidth = 22

// Printer writes view trees to an io.Writer.
type Printer struct {
	w     io.Writer
	color bool
}

// New creates a printer. color enables ANSI colours.
func New(w io.Writer, color bool) *Printer {
	return &Printer{w: w, color: color}
}

// Print writes n in a compact outline.
func (p *Printer) Print(n view.Node) {
	p.node(n, 0)
}

// Dump returns the uncoloured outline of n.
func Dump(n view.Node) string {
	var b strings.Builder
	New(&b, false).Print(n)
	return b.String()
}

func (p *Printer) node(n view.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n := n.(type) {
	case view.Text:
		if n.Content == "" {
			return
		}
		for _, line := range strings.Split(n.Content, "\n") {
			fmt.Fprintf(p.w, "%s%s\n", indent, p.paint(colorFor(n.Tone), line))
		}
	case view.Button:
		state := ""
		if n.Disabled {
			state = p.paint(colorGrey, " (disabled)")
		}
		fmt.Fprintf(p.w, "%s[%s]%s\n", indent, n.Label, state)
	case view.Box:
		for _, c := range n.Children {
			p.node(c, depth)
		}
	case view.Card:
		fmt.Fprintf(p.w, "%s%s\n", indent, p.paint(colorCyan, "─ "+n.Title))
		p.node(n.Child, depth+1)
	case view.Embed:
		if n.Root != nil && !n.Root.IsDestroyed() {
			p.node(n.Root.Load(), depth)
		}
	case view.Spinner:
		marker := "·"
		if n.Active {
			marker = "*"
		}
		fmt.Fprintf(p.w, "%s%s %s\n", indent, p.paint(colorCyan, marker), n.Label)
	case view.Progress:
		p.leader(indent, n.Label, fmt.Sprintf("%5.1f%%", n.Clamp()*100), "")
	case view.Chart:
		val := "no data"
		marker := ""
		if len(n.Series) > 0 {
			last := n.Series[len(n.Series)-1]
			val = fmt.Sprintf("%.1f", last)
			marker = p.statusMarker(last, n.Min, n.Max)
		}
		p.leader(indent, n.Title, val, marker)
	case view.Spacer:
		fmt.Fprintln(p.w)
	}
}

// leader prints "Label········ value" with a dotted leader.
func (p *Printer) leader(indent, label, value, marker string) {
	if len(label) > labelWidth-2 {
		label = label[:labelWidth-5] + "..."
	}
	dots := strings.Repeat("·", labelWidth-len(label))
	fmt.Fprintf(p.w, "%s%s%s %10s%s\n", indent, label, p.paint(colorCyan, dots), value, marker)
}

// statusMarker grades value within [min, max]: under 70% is OK, under 90%
// a warning, anything above critical.
func (p *Printer) statusMarker(value, min, max float64) string {
	if max <= min {
		return ""
	}
	frac := (value - min) / (max - min)
	switch {
	case frac >= 0.9:
		return " " + p.paint(colorRed, "X")
	case frac >= 0.7:
		return " " + p.paint(colorYellow, "!")
	}
	return " " + p.paint(colorGreen, "✓")
}

func (p *Printer) paint(color, s string) string {
	if !p.color || color == "" {
		return s
	}
	return color + s + colorReset
}

func colorFor(tone view.Tone) string {
	switch tone {
	case view.ToneWarn:
		return colorYellow
	case view.ToneCrit:
		return colorRed
	case view.ToneOK:
		return colorGreen
	case view.ToneTitle:
		return colorCyan
	case view.ToneMuted:
		return colorGrey
	}
	return ""
}
