package components

import (
	"mvukit/internal/command"
	"mvukit/internal/component"
	"mvukit/internal/theme"
	"mvukit/internal/view"
)

// InfoPress is the input of InfoButton.
type InfoPress struct{}

// InfoRequested is published each time the button is pressed.
type InfoRequested struct {
	Presses int
}

// InfoButton is a single button that reports presses to its owner.
type InfoButton struct {
	label   string
	Presses int
}

type infoWidgets struct {
	self *component.Handle[InfoPress]
	id   string
}

func (b *InfoButton) Init(label string, cx *component.Context[InfoPress, InfoRequested]) (infoWidgets, command.Cmd[InfoPress]) {
	b.label = label
	return infoWidgets{self: cx.Handle(), id: pressID(cx, "info")}, command.None[InfoPress]()
}

func (b *InfoButton) Update(_ *infoWidgets, _ InfoPress, cx *component.Context[InfoPress, InfoRequested]) command.Cmd[InfoPress] {
	b.Presses++
	cx.Output(InfoRequested{Presses: b.Presses})
	return command.None[InfoPress]()
}

func (b *InfoButton) View(w *infoWidgets, _ *theme.Theme) view.Node {
	return view.Button{ID: w.id, Label: b.label, OnPress: func() { w.self.Emit(InfoPress{}) }}
}

// LaunchInfoButton starts an InfoButton showing label.
func LaunchInfoButton(rt *component.Runtime, label string, opts ...component.Option) *component.Registered[InfoPress, InfoRequested] {
	return component.Launch[string, infoWidgets, InfoPress, InfoRequested](rt, &InfoButton{}, label,
		append([]component.Option{component.WithName("info-button")}, opts...)...)
}
