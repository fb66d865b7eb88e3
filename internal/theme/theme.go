// Package theme is the read-only presentation context passed into every
// component's View and into the renderers.
package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"mvukit/internal/config"
	"mvukit/internal/view"
)

// Density scales spacing.
type Density int

const (
	Compact Density = iota
	Standard
	Spacious
)

// ParseDensity maps a configuration string to a Density. Unknown values
// fall back to Standard.
func ParseDensity(s string) Density {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "compact":
		return Compact
	case "spacious":
		return Spacious
	}
	return Standard
}

func (d Density) String() string {
	switch d {
	case Compact:
		return "compact"
	case Spacious:
		return "spacious"
	}
	return "standard"
}

// Theme holds colours and styles. Treat it as immutable once built.
type Theme struct {
	Density Density

	Subtle    lipgloss.AdaptiveColor
	Accent    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor

	Title         lipgloss.Style
	Card          lipgloss.Style
	Button        lipgloss.Style
	ButtonFocused lipgloss.Style
	ButtonOff     lipgloss.Style
	Muted         lipgloss.Style
	Status        lipgloss.Style
}

// Default returns the standard theme.
func Default() *Theme {
	return New(config.Default().Theme)
}

// New builds a theme from configuration.
func New(cfg config.ThemeConfig) *Theme {
	t := &Theme{
		Density:   ParseDensity(cfg.Density),
		Subtle:    lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"},
		Accent:    lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"},
		Highlight: lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"},
	}
	if cfg.Accent != "" {
		t.Accent.Dark = cfg.Accent
	}
	if cfg.Highlight != "" {
		t.Highlight.Dark = cfg.Highlight
	}

	pad := t.Spacing()
	t.Title = lipgloss.NewStyle().
		Padding(0, 1).
		Bold(true).
		Italic(true).
		Foreground(lipgloss.Color("#FFF7DB")).
		Background(t.Accent)
	t.Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Accent).
		Padding(pad/2, pad)
	t.Button = lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.NormalBorder()).
		BorderForeground(t.Subtle)
	t.ButtonFocused = t.Button.
		BorderForeground(t.Highlight).
		Foreground(t.Highlight).
		Bold(true)
	t.ButtonOff = t.Button.Faint(true)
	t.Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	t.Status = lipgloss.NewStyle().Bold(true)
	return t
}

// Spacing is the base padding unit for the density.
func (t *Theme) Spacing() int {
	switch t.Density {
	case Compact:
		return 0
	case Spacious:
		return 2
	}
	return 1
}

// Gap returns the gap a component should leave between siblings.
func (t *Theme) Gap() int {
	if t.Density == Compact {
		return 0
	}
	return 1
}

// Tone returns the text style for a tone.
func (t *Theme) Tone(tone view.Tone) lipgloss.Style {
	switch tone {
	case view.ToneTitle:
		return t.Title
	case view.ToneMuted:
		return t.Muted
	case view.ToneOK:
		return t.Status.Foreground(lipgloss.Color("46"))
	case view.ToneWarn:
		return t.Status.Foreground(lipgloss.Color("220"))
	case view.ToneCrit:
		return t.Status.Foreground(lipgloss.Color("196"))
	}
	return lipgloss.NewStyle()
}

// ToneFor maps a percentage to a status tone using warn and crit thresholds.
func ToneFor(value, warn, crit float64) view.Tone {
	switch {
	case value >= crit:
		return view.ToneCrit
	case value >= warn:
		return view.ToneWarn
	}
	return view.ToneOK
}
