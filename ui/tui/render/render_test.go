package render

import (
	"strings"
	"testing"

	zone "github.com/lrstanley/bubblezone"

	"mvukit/internal/theme"
	"mvukit/internal/view"
)

func TestRender_TextAndBoxes(t *testing.T) {
	r := New(theme.Default(), nil)

	tests := []struct {
		name string
		node view.Node
		want []string
	}{
		{"text", view.Label("hello"), []string{"hello"}},
		{"column", view.VStack(1, view.Label("top"), view.Label("bottom")), []string{"top", "bottom"}},
		{"row", view.HStack(2, view.Label("left"), view.Label("right")), []string{"left  right"}},
		{"card", view.Card{Title: "Info", Child: view.Label("inside")}, []string{"Info", "inside"}},
		{"spinner", view.Spinner{Label: "loading", Active: true}, []string{"loading"}},
		{"idle spinner", view.Spinner{Label: "idle"}, []string{"idle"}},
		{"progress", view.Progress{Label: "done", Value: 0.5, Width: 10}, []string{"done", "50%"}},
		{"chart", view.Chart{Title: "CPU", Series: []float64{10, 50, 30}, Max: 100}, []string{"CPU"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := r.Render(tt.node)
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("Expected output to contain %q, got:\n%s", want, out)
				}
			}
		})
	}
}

func TestRender_ColumnOrder(t *testing.T) {
	r := New(nil, nil)
	out := r.Render(view.VStack(0, view.Label("first"), view.Label("second")))
	if strings.Index(out, "first") > strings.Index(out, "second") {
		t.Errorf("Expected first above second, got:\n%s", out)
	}
	if lines := strings.Count(out, "\n"); lines != 1 {
		t.Errorf("Expected 2 lines with no gap, got %d newlines", lines)
	}
}

func TestRender_EmbedFollowsRoot(t *testing.T) {
	r := New(nil, nil)
	root := view.NewRoot("child")
	root.Store(view.Label("child v1"))
	tree := view.VStack(0, view.Label("parent"), view.Embed{Root: root})

	if out := r.Render(tree); !strings.Contains(out, "child v1") {
		t.Errorf("Expected embedded child, got:\n%s", out)
	}

	root.Store(view.Label("child v2"))
	if out := r.Render(tree); !strings.Contains(out, "child v2") {
		t.Errorf("Expected updated child, got:\n%s", out)
	}

	root.Destroy()
	out := r.Render(tree)
	if strings.Contains(out, "child v2") || !strings.Contains(out, "parent") {
		t.Errorf("Expected only the parent after destroy, got:\n%s", out)
	}
}

func TestRender_ButtonStates(t *testing.T) {
	r := New(nil, nil)
	b := view.Button{ID: "ok", Label: "OK"}

	plain := r.Render(b)
	r.Focused = "ok"
	focused := r.Render(b)
	if !strings.Contains(plain, "OK") || !strings.Contains(focused, "OK") {
		t.Fatalf("Expected label in both renderings, got %q and %q", plain, focused)
	}

	off := r.Render(view.Button{ID: "ok", Label: "OK", Disabled: true})
	if !strings.Contains(off, "OK") {
		t.Errorf("Expected disabled label, got %q", off)
	}
}

func TestRender_ZoneMarksAreScannedAway(t *testing.T) {
	zones := zone.New()
	defer zones.Close()
	r := New(nil, zones)

	marked := r.Render(view.Button{ID: "go", Label: "Go"})
	scanned := zones.Scan(marked)
	if !strings.Contains(scanned, "Go") {
		t.Errorf("Expected label after scan, got %q", scanned)
	}
	if strings.Count(scanned, "\x1b[") > strings.Count(marked, "\x1b[") {
		t.Errorf("Expected scan not to add escape sequences, got %q", scanned)
	}
}

func TestRender_NilAndSpacer(t *testing.T) {
	r := New(nil, nil)
	if out := r.Render(nil); out != "" {
		t.Errorf("Expected empty output for nil, got %q", out)
	}
	row := r.Render(view.HStack(0, view.Label("a"), view.Spacer{Size: 3}, view.Label("b")))
	if !strings.Contains(row, "a   b") {
		t.Errorf("Expected spacer of 3 columns, got %q", row)
	}
}
