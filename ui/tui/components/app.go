package components

import (
	"errors"
	"fmt"
	"math"

	"mvukit/internal/command"
	"mvukit/internal/component"
	"mvukit/internal/config"
	"mvukit/internal/theme"
	"mvukit/internal/view"
)

// AppArgs configures App.
type AppArgs struct {
	Start   int
	Probe   Probe // nil disables the system monitor
	Monitor config.MonitorConfig
}

// AppMsg is the input of App.
type AppMsg interface{ appMsg() }

type counterChanged int
type infoRequested int
type cpuSampled float64

// BumpCounter asks App to increment its counter child.
type BumpCounter struct{}

// DestroyCounter asks App to close its counter child.
type DestroyCounter struct{}

func (counterChanged) appMsg() {}
func (infoRequested) appMsg()  {}
func (cpuSampled) appMsg()     {}
func (BumpCounter) appMsg()    {}
func (DestroyCounter) appMsg() {}

// App embeds a counter, a meter that follows it, an info button and an
// optional system monitor.
type App struct {
	Count        int
	InfoPresses  int
	ShowInfo     bool
	CPU          float64
	CounterAlive bool
}

type appWidgets struct {
	self    *component.Handle[AppMsg]
	counter *component.Registered[CounterMsg, CountChanged]
	meter   *component.Registered[MeterMsg, Settled]
	info    *component.Registered[InfoPress, InfoRequested]
	monitor *component.Registered[MonitorMsg, Sampled]

	bump, destroy string
}

var errBadSample = errors.New("sample out of range")

func (a *App) Init(args AppArgs, cx *component.Context[AppMsg, struct{}]) (appWidgets, command.Cmd[AppMsg]) {
	rt := cx.Runtime()
	w := appWidgets{
		self:    cx.Handle(),
		bump:    pressID(cx, "bump"),
		destroy: pressID(cx, "destroy"),
	}

	w.counter = LaunchCounter(rt, args.Start, component.WithParent(cx))
	component.Forward(w.counter, cx.Handle(), func(c CountChanged) AppMsg { return counterChanged(c.Value) })
	a.Count = args.Start
	a.CounterAlive = true

	w.meter = LaunchMeter(rt, "count / 10", component.WithParent(cx))
	component.Ignore(w.meter)
	if args.Start != 0 {
		w.meter.Emit(SetTarget(float64(args.Start) / 10))
	}

	w.info = LaunchInfoButton(rt, "about", component.WithParent(cx))
	component.Forward(w.info, cx.Handle(), func(i InfoRequested) AppMsg { return infoRequested(i.Presses) })

	if args.Probe != nil {
		w.monitor = LaunchSysMonitor(rt, MonitorArgsFrom(args.Monitor, args.Probe), component.WithParent(cx))
		component.TryForward(w.monitor, cx.Handle(), func(s Sampled) (AppMsg, error) {
			cpu := s.Snapshot.CPUPercent
			if math.IsNaN(cpu) || cpu < 0 || cpu > 100 {
				return nil, fmt.Errorf("cpu %.1f: %w", cpu, errBadSample)
			}
			return cpuSampled(cpu), nil
		})
	}

	return w, command.None[AppMsg]()
}

func (a *App) Update(w *appWidgets, msg AppMsg, _ *component.Context[AppMsg, struct{}]) command.Cmd[AppMsg] {
	switch msg := msg.(type) {
	case counterChanged:
		a.Count = int(msg)
		w.meter.Emit(SetTarget(float64(msg) / 10))
	case infoRequested:
		a.InfoPresses = int(msg)
		a.ShowInfo = !a.ShowInfo
	case cpuSampled:
		a.CPU = float64(msg)
	case BumpCounter:
		if a.CounterAlive {
			w.counter.Emit(Increment)
		}
	case DestroyCounter:
		if a.CounterAlive {
			w.counter.Close()
			a.CounterAlive = false
			w.meter.Emit(SetTarget(0))
		}
	}
	return command.None[AppMsg]()
}

func (a *App) View(w *appWidgets, th *theme.Theme) view.Node {
	controls := view.HStack(1,
		view.Button{ID: w.bump, Label: "increment", Disabled: !a.CounterAlive, OnPress: func() { w.self.Emit(BumpCounter{}) }},
		view.Button{ID: w.destroy, Label: "destroy counter", Disabled: !a.CounterAlive, OnPress: func() { w.self.Emit(DestroyCounter{}) }},
		view.Embed{Root: w.info.Widget()},
	)

	left := []view.Node{
		view.Embed{Root: w.counter.Widget()},
		view.Embed{Root: w.meter.Widget()},
		controls,
	}
	if !a.CounterAlive {
		left = append(left, view.Text{Content: "counter destroyed", Tone: view.ToneMuted})
	}
	if a.ShowInfo {
		left = append(left, view.Text{
			Content: "Every box is its own component. Tab moves focus, enter presses, q quits.",
			Tone:    view.ToneMuted,
		})
	}

	status := fmt.Sprintf("count %d  about pressed %d", a.Count, a.InfoPresses)
	if w.monitor != nil {
		status += fmt.Sprintf("  cpu %.1f%%", a.CPU)
	}
	left = append(left, view.Text{Content: status, Tone: view.ToneMuted})

	body := view.Node(view.VStack(th.Gap(), left...))
	if w.monitor != nil {
		body = view.HStack(2, body, view.Embed{Root: w.monitor.Widget()})
	}
	return view.VStack(th.Gap(), view.Text{Content: "mvukit", Tone: view.ToneTitle}, body)
}

// LaunchApp starts the demo application.
func LaunchApp(rt *component.Runtime, args AppArgs, opts ...component.Option) *component.Registered[AppMsg, struct{}] {
	return component.Launch[AppArgs, appWidgets, AppMsg, struct{}](rt, &App{}, args,
		append([]component.Option{component.WithName("app")}, opts...)...)
}
