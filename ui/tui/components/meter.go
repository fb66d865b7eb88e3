package components

import (
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/harmonica"

	"mvukit/internal/command"
	"mvukit/internal/component"
	"mvukit/internal/theme"
	"mvukit/internal/view"
)

const (
	meterFPS      = 60
	settleEpsilon = 0.001
)

// MeterMsg is the input of Meter.
type MeterMsg interface{ meterMsg() }

// SetTarget moves the meter towards a value in [0, 1].
type SetTarget float64

type meterFrame struct{}

func (SetTarget) meterMsg()  {}
func (meterFrame) meterMsg() {}

// Settled is published when the meter comes to rest.
type Settled struct {
	Value float64
}

// Meter is a progress bar that springs towards its target, one tick command
// per animation frame.
type Meter struct {
	label  string
	spring harmonica.Spring

	Pos, Vel, Target float64
	Animating        bool
	Frames           int
}

func (m *Meter) Init(label string, _ *component.Context[MeterMsg, Settled]) (struct{}, command.Cmd[MeterMsg]) {
	m.label = label
	m.spring = harmonica.NewSpring(harmonica.FPS(meterFPS), 12.0, 0.9)
	return struct{}{}, command.None[MeterMsg]()
}

func (m *Meter) Update(_ *struct{}, msg MeterMsg, cx *component.Context[MeterMsg, Settled]) command.Cmd[MeterMsg] {
	switch msg := msg.(type) {
	case SetTarget:
		m.Target = math.Max(0, math.Min(1, float64(msg)))
		if m.Animating {
			return command.None[MeterMsg]()
		}
		m.Animating = true
		return frame()

	case meterFrame:
		m.Frames++
		m.Pos, m.Vel = m.spring.Update(m.Pos, m.Vel, m.Target)
		if math.Abs(m.Pos-m.Target) < settleEpsilon && math.Abs(m.Vel) < settleEpsilon {
			m.Pos, m.Vel = m.Target, 0
			m.Animating = false
			cx.Output(Settled{Value: m.Pos})
			return command.None[MeterMsg]()
		}
		return frame()
	}
	return command.None[MeterMsg]()
}

func frame() command.Cmd[MeterMsg] {
	return command.Tick(time.Second/meterFPS, func(time.Time) MeterMsg { return meterFrame{} })
}

func (m *Meter) View(_ *struct{}, _ *theme.Theme) view.Node {
	return view.Progress{
		Label: fmt.Sprintf("%s %.0f%%", m.label, m.Target*100),
		Value: m.Pos,
		Width: 24,
	}
}

// LaunchMeter starts a Meter showing label.
func LaunchMeter(rt *component.Runtime, label string, opts ...component.Option) *component.Registered[MeterMsg, Settled] {
	return component.Launch[string, struct{}, MeterMsg, Settled](rt, &Meter{}, label,
		append([]component.Option{component.WithName("meter")}, opts...)...)
}
