package components

import (
	"strconv"

	"mvukit/internal/command"
	"mvukit/internal/component"
	"mvukit/internal/theme"
	"mvukit/internal/view"
)

// CounterMsg is the input of Counter.
type CounterMsg int

const (
	Increment CounterMsg = iota
	Decrement
	Reset
)

func (m CounterMsg) String() string {
	switch m {
	case Increment:
		return "increment"
	case Decrement:
		return "decrement"
	case Reset:
		return "reset"
	}
	return "unknown"
}

// CountChanged is published after every update.
type CountChanged struct {
	Value int
}

// Counter holds a number adjusted by its buttons or by its owner.
type Counter struct {
	start int
	Value int
}

type counterWidgets struct {
	self        *component.Handle[CounterMsg]
	inc, dec, z string
}

func (c *Counter) Init(start int, cx *component.Context[CounterMsg, CountChanged]) (counterWidgets, command.Cmd[CounterMsg]) {
	c.start = start
	c.Value = start
	return counterWidgets{
		self: cx.Handle(),
		inc:  pressID(cx, "inc"),
		dec:  pressID(cx, "dec"),
		z:    pressID(cx, "reset"),
	}, command.None[CounterMsg]()
}

func (c *Counter) Update(_ *counterWidgets, msg CounterMsg, cx *component.Context[CounterMsg, CountChanged]) command.Cmd[CounterMsg] {
	switch msg {
	case Increment:
		c.Value++
	case Decrement:
		c.Value--
	case Reset:
		c.Value = c.start
	default:
		return command.None[CounterMsg]()
	}
	cx.Output(CountChanged{Value: c.Value})
	return command.None[CounterMsg]()
}

func (c *Counter) View(w *counterWidgets, th *theme.Theme) view.Node {
	return view.Card{
		Title: "Counter",
		Child: view.VStack(th.Gap(),
			view.Text{Content: strconv.Itoa(c.Value), Tone: view.ToneTitle},
			view.HStack(1,
				view.Button{ID: w.inc, Label: "+", OnPress: func() { w.self.Emit(Increment) }},
				view.Button{ID: w.dec, Label: "-", OnPress: func() { w.self.Emit(Decrement) }},
				view.Button{ID: w.z, Label: "reset", Disabled: c.Value == c.start, OnPress: func() { w.self.Emit(Reset) }},
			),
		),
	}
}

// LaunchCounter starts a Counter at start.
func LaunchCounter(rt *component.Runtime, start int, opts ...component.Option) *component.Registered[CounterMsg, CountChanged] {
	return component.Launch[int, counterWidgets, CounterMsg, CountChanged](rt, &Counter{}, start,
		append([]component.Option{component.WithName("counter")}, opts...)...)
}
