package tui

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"mvukit/internal/component"
	"mvukit/internal/config"
	"mvukit/ui/tui/components"
)

func newTestHost(t *testing.T, start int) (*MainModel, *component.Registered[components.CounterMsg, components.CountChanged]) {
	t.Helper()
	rt := component.NewRuntime(config.Default().Runtime,
		component.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = rt.Shutdown(ctx)
	})

	reg := components.LaunchCounter(rt, start)
	component.Ignore(reg)
	eventually(t, "first view", func() bool { return reg.Widget().Load() != nil })

	m := New(rt, reg.Widget())
	t.Cleanup(m.zones.Close)
	m.Init()
	return m, reg
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func valueOf(reg *component.Registered[components.CounterMsg, components.CountChanged]) (v int) {
	reg.Inspect(func(m any) { v = m.(*components.Counter).Value })
	return v
}

func TestFocusNavigation(t *testing.T) {
	m, _ := newTestHost(t, 0)

	// reset is disabled at the start value, so only + and - take focus.
	if !strings.HasSuffix(m.focusID, ".inc") {
		t.Fatalf("Expected initial focus on the first button, got %q", m.focusID)
	}

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(*MainModel)
	if !strings.HasSuffix(m.focusID, ".dec") {
		t.Errorf("Expected focus on dec after Tab, got %q", m.focusID)
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(*MainModel)
	if !strings.HasSuffix(m.focusID, ".inc") {
		t.Errorf("Expected focus to wrap to inc, got %q", m.focusID)
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m = updated.(*MainModel)
	if !strings.HasSuffix(m.focusID, ".dec") {
		t.Errorf("Expected Shift+Tab to wrap back to dec, got %q", m.focusID)
	}
}

func TestEnterPressesFocusedButton(t *testing.T) {
	m, reg := newTestHost(t, 0)

	for i := 0; i < 2; i++ {
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	}
	eventually(t, "two increments", func() bool { return valueOf(reg) == 2 })
}

func TestRedrawKeepsFocusWhenButtonsAppear(t *testing.T) {
	m, reg := newTestHost(t, 0)
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	focused := m.focusID

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	eventually(t, "decrement", func() bool { return valueOf(reg) == -1 })
	eventually(t, "reset enabled", func() bool { return strings.Contains(m.View(), "reset") && len(m.pressables()) == 3 })

	m.Update(redrawMsg{})
	if m.focusID != focused {
		t.Errorf("Expected focus to stay on %q, got %q", focused, m.focusID)
	}
}

func TestQuitKeys(t *testing.T) {
	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyCtrlC},
	} {
		m, _ := newTestHost(t, 0)
		updated, cmd := m.Update(key)
		if !updated.(*MainModel).quitting {
			t.Errorf("Expected %q to quit", key.String())
		}
		if cmd == nil {
			t.Errorf("Expected a quit command for %q", key.String())
		}
	}
}

func TestRootClosedQuits(t *testing.T) {
	m, reg := newTestHost(t, 0)
	reg.Close()
	select {
	case <-reg.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Component did not terminate")
	}

	// Pending redraw signals drain first; then the destroyed root is seen.
	var got tea.Msg
	for i := 0; i < 3; i++ {
		if got = m.waitRedraw()(); got == (rootClosedMsg{}) {
			break
		}
	}
	if _, ok := got.(rootClosedMsg); !ok {
		t.Fatalf("Expected rootClosedMsg, got %T", got)
	}

	updated, _ := m.Update(got)
	if !updated.(*MainModel).quitting {
		t.Error("Expected host to quit when the root is destroyed")
	}
}

func TestViewRendersTree(t *testing.T) {
	m, _ := newTestHost(t, 7)
	out := m.View()
	for _, want := range []string{"Counter", "7", "+", "reset", "q quit"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected view to contain %q, got:\n%s", want, out)
		}
	}
}
