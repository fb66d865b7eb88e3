package theme

import (
	"testing"

	"mvukit/internal/config"
	"mvukit/internal/view"
)

func TestParseDensity(t *testing.T) {
	tests := []struct {
		in   string
		want Density
	}{
		{"compact", Compact},
		{" Spacious ", Spacious},
		{"standard", Standard},
		{"", Standard},
		{"weird", Standard},
	}
	for _, tt := range tests {
		if got := ParseDensity(tt.in); got != tt.want {
			t.Errorf("ParseDensity(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestNew_AppliesDensityAndAccent(t *testing.T) {
	th := New(config.ThemeConfig{Density: "compact", Accent: "#112233"})

	if th.Density != Compact {
		t.Errorf("Expected compact, got %v", th.Density)
	}
	if th.Spacing() != 0 || th.Gap() != 0 {
		t.Errorf("Expected zero spacing for compact, got %d/%d", th.Spacing(), th.Gap())
	}
	if th.Accent.Dark != "#112233" {
		t.Errorf("Expected accent override, got %q", th.Accent.Dark)
	}
	if Default().Spacing() != 1 {
		t.Errorf("Expected standard spacing 1, got %d", Default().Spacing())
	}
}

func TestToneFor(t *testing.T) {
	tests := []struct {
		value float64
		want  view.Tone
	}{
		{10, view.ToneOK},
		{75, view.ToneWarn},
		{95, view.ToneCrit},
	}
	for _, tt := range tests {
		if got := ToneFor(tt.value, 70, 90); got != tt.want {
			t.Errorf("ToneFor(%v): expected %v, got %v", tt.value, tt.want, got)
		}
	}
}
