package components

import (
	"context"
	"fmt"
	"time"

	"mvukit/internal/command"
	"mvukit/internal/component"
	"mvukit/internal/config"
	"mvukit/internal/sysinfo"
	"mvukit/internal/theme"
	"mvukit/internal/view"
)

const spinInterval = 100 * time.Millisecond

// Probe takes host samples. *sysinfo.Sampler implements it.
type Probe interface {
	Sample(ctx context.Context) (sysinfo.Snapshot, error)
}

// MonitorArgs configures a SysMonitor.
type MonitorArgs struct {
	Probe    Probe
	Interval time.Duration
	History  int
	Timeout  time.Duration
}

// MonitorArgsFrom builds MonitorArgs from configuration.
func MonitorArgsFrom(cfg config.MonitorConfig, probe Probe) MonitorArgs {
	return MonitorArgs{
		Probe:    probe,
		Interval: cfg.PollInterval,
		History:  cfg.HistoryCapacity,
		Timeout:  cfg.ProbeTimeout,
	}
}

// MonitorMsg is the input of SysMonitor.
type MonitorMsg interface{ monitorMsg() }

type sampled struct {
	snap sysinfo.Snapshot
	err  error
}

type pollDue struct{ gen int }

type spinFrame struct{}

// TogglePause stops or resumes polling.
type TogglePause struct{}

func (sampled) monitorMsg()     {}
func (pollDue) monitorMsg()     {}
func (spinFrame) monitorMsg()   {}
func (TogglePause) monitorMsg() {}

// Sampled is published after every successful sample.
type Sampled struct {
	Snapshot sysinfo.Snapshot
}

// SysMonitor polls the host with tick commands and charts CPU usage.
type SysMonitor struct {
	args MonitorArgs

	Last    sysinfo.Snapshot
	History []float64
	Samples int
	Err     error
	Loading bool
	Paused  bool

	gen   int
	frame int
}

type monitorWidgets struct {
	self  *component.Handle[MonitorMsg]
	pause string
}

func (m *SysMonitor) Init(args MonitorArgs, cx *component.Context[MonitorMsg, Sampled]) (monitorWidgets, command.Cmd[MonitorMsg]) {
	if args.Interval <= 0 {
		args.Interval = time.Second
	}
	if args.History <= 0 {
		args.History = 31
	}
	m.args = args
	m.History = make([]float64, 0, args.History)
	m.Loading = true
	return monitorWidgets{self: cx.Handle(), pause: pressID(cx, "pause")},
		command.Batch(m.sample(), spin())
}

func (m *SysMonitor) Update(_ *monitorWidgets, msg MonitorMsg, cx *component.Context[MonitorMsg, Sampled]) command.Cmd[MonitorMsg] {
	switch msg := msg.(type) {
	case sampled:
		m.Loading = false
		if msg.err != nil {
			m.Err = msg.err
		} else {
			m.Err = nil
			m.Last = msg.snap
			m.Samples++
			m.History = append(m.History, msg.snap.CPUPercent)
			if len(m.History) > m.args.History {
				m.History = m.History[1:]
			}
			cx.Output(Sampled{Snapshot: msg.snap})
		}
		if m.Paused {
			return command.None[MonitorMsg]()
		}
		gen := m.gen
		return command.Tick(m.args.Interval, func(time.Time) MonitorMsg { return pollDue{gen: gen} })

	case pollDue:
		if m.Paused || msg.gen != m.gen {
			return command.None[MonitorMsg]()
		}
		m.Loading = true
		return command.Batch(m.sample(), spin())

	case spinFrame:
		if !m.Loading {
			return command.None[MonitorMsg]()
		}
		m.frame++
		return spin()

	case TogglePause:
		m.Paused = !m.Paused
		m.gen++
		if m.Paused || m.Loading {
			return command.None[MonitorMsg]()
		}
		m.Loading = true
		return command.Batch(m.sample(), spin())
	}
	return command.None[MonitorMsg]()
}

func (m *SysMonitor) sample() command.Cmd[MonitorMsg] {
	probe, timeout := m.args.Probe, m.args.Timeout
	return command.Perform("sysinfo.sample", func(ctx context.Context) MonitorMsg {
		if probe == nil {
			return sampled{err: fmt.Errorf("no probe configured")}
		}
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		snap, err := probe.Sample(ctx)
		return sampled{snap: snap, err: err}
	})
}

func spin() command.Cmd[MonitorMsg] {
	return command.Tick(spinInterval, func(time.Time) MonitorMsg { return spinFrame{} })
}

func (m *SysMonitor) View(w *monitorWidgets, th *theme.Theme) view.Node {
	status, toggle := "live", "pause"
	if m.Paused {
		status, toggle = "paused", "resume"
	}
	header := view.HStack(1,
		view.Spinner{Label: status, Active: m.Loading, Frame: m.frame},
		view.Text{Content: fmt.Sprintf("%d samples", m.Samples), Tone: view.ToneMuted},
	)

	body := []view.Node{header}
	if m.Err != nil {
		body = append(body, view.Text{Content: "probe failed: " + m.Err.Error(), Tone: view.ToneCrit})
	}
	if m.Samples > 0 {
		s := m.Last
		body = append(body,
			view.Text{
				Content: fmt.Sprintf("CPU %5.1f%%  (%d cores)", s.CPUPercent, s.Cores),
				Tone:    theme.ToneFor(s.CPUPercent, 70, 90),
			},
			view.Progress{
				Label: fmt.Sprintf("Memory %s / %s", sysinfo.FormatBytes(s.MemUsed), sysinfo.FormatBytes(s.MemTotal)),
				Value: s.MemPercent / 100,
				Width: 30,
			},
			view.Label("Load %.2f %.2f %.2f", s.Load1, s.Load5, s.Load15),
		)
		if s.Hostname != "" {
			body = append(body, view.Text{Content: fmt.Sprintf("%s (%s) up %s", s.Hostname, s.Platform, s.Uptime.Truncate(time.Minute)), Tone: view.ToneMuted})
		}
	}
	body = append(body,
		view.Chart{Title: "CPU history", Series: m.History, Min: 0, Max: 100, Width: 30, Height: 8},
		view.Button{ID: w.pause, Label: toggle, OnPress: func() { w.self.Emit(TogglePause{}) }},
	)

	return view.Card{Title: "System", Child: view.VStack(th.Gap(), body...)}
}

// LaunchSysMonitor starts a SysMonitor.
func LaunchSysMonitor(rt *component.Runtime, args MonitorArgs, opts ...component.Option) *component.Registered[MonitorMsg, Sampled] {
	return component.Launch[MonitorArgs, monitorWidgets, MonitorMsg, Sampled](rt, &SysMonitor{}, args,
		append([]component.Option{component.WithName("sysmonitor")}, opts...)...)
}
