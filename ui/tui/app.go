// Package tui hosts a component tree in a bubbletea program. The host reads
// the root view whenever the runtime signals a redraw and turns keys and
// mouse clicks into presses on view buttons.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"mvukit/internal/component"
	"mvukit/internal/theme"
	"mvukit/internal/view"
	"mvukit/ui/tui/render"
)

// Messages
type redrawMsg struct{}
type rootClosedMsg struct{}

// MainModel is the bubbletea model wrapping one root view.
type MainModel struct {
	rt       *component.Runtime
	root     *view.Root
	theme    *theme.Theme
	zones    *zone.Manager
	renderer *render.Renderer

	focusID  string
	quitting bool
	width    int
	height   int
}

// New creates the host for root.
func New(rt *component.Runtime, root *view.Root) *MainModel {
	zones := zone.New()
	return &MainModel{
		rt:       rt,
		root:     root,
		theme:    rt.Theme(),
		zones:    zones,
		renderer: render.New(rt.Theme(), zones),
	}
}

func (m *MainModel) Init() tea.Cmd {
	m.syncFocus()
	return m.waitRedraw()
}

// waitRedraw blocks until the runtime has a new view or the root is gone.
func (m *MainModel) waitRedraw() tea.Cmd {
	redraws, destroyed := m.rt.Redraws(), m.root.Destroyed()
	return func() tea.Msg {
		select {
		case <-redraws:
			return redrawMsg{}
		case <-destroyed:
			return rootClosedMsg{}
		}
	}
}

func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		return m.handleMouseMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case redrawMsg:
		m.syncFocus()
		return m, m.waitRedraw()

	case rootClosedMsg:
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *MainModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "tab", "right", "l":
		m.moveFocus(1)
	case "shift+tab", "left", "h":
		m.moveFocus(-1)
	case "enter", " ":
		if p, ok := m.focused(); ok {
			p.Press()
		}
	}
	return m, nil
}

func (m *MainModel) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}
	for _, p := range m.pressables() {
		if m.zones.Get(p.PressID()).InBounds(msg) {
			m.focusID = p.PressID()
			p.Press()
			return m, nil
		}
	}
	return m, nil
}

// pressables lists the enabled buttons of the current tree.
func (m *MainModel) pressables() []view.Pressable {
	all := view.Pressables(m.root.Load())
	out := all[:0]
	for _, p := range all {
		if b, ok := p.(view.Button); ok && b.Disabled {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (m *MainModel) focused() (view.Pressable, bool) {
	for _, p := range m.pressables() {
		if p.PressID() == m.focusID {
			return p, true
		}
	}
	return nil, false
}

func (m *MainModel) moveFocus(delta int) {
	ps := m.pressables()
	if len(ps) == 0 {
		m.focusID = ""
		return
	}
	idx := -1
	for i, p := range ps {
		if p.PressID() == m.focusID {
			idx = i
			break
		}
	}
	if idx < 0 {
		idx = 0
		if delta < 0 {
			idx = len(ps) - 1
		}
	} else {
		idx = (idx + delta + len(ps)) % len(ps)
	}
	m.focusID = ps[idx].PressID()
}

// syncFocus keeps focus on an existing button after the tree changed.
func (m *MainModel) syncFocus() {
	if _, ok := m.focused(); ok {
		return
	}
	m.focusID = ""
	m.moveFocus(1)
}

func (m *MainModel) View() string {
	if m.quitting {
		return "Bye!\n"
	}
	m.renderer.Focused = m.focusID
	body := m.renderer.Render(m.root.Load())
	help := m.theme.Muted.Render("tab/shift+tab focus • enter press • click • q quit")
	return m.zones.Scan(lipgloss.JoinVertical(lipgloss.Left, body, "", help))
}

// Start runs the host until the user quits or the root is destroyed.
func Start(rt *component.Runtime, root *view.Root) error {
	m := New(rt, root)
	defer m.zones.Close()
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := p.Run()
	return err
}
