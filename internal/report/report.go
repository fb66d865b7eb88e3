// Package report is the observability sink of the runtime. Failures that are
// swallowed at a component boundary (failed commands, dropped messages,
// transform errors, crashed update cycles) are surfaced here.
package report

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Kind classifies an Event.
type Kind string

const (
	ComponentStarted    Kind = "component_started"
	ComponentTerminated Kind = "component_terminated"
	ComponentFailed     Kind = "component_failed"
	CommandFailed       Kind = "command_failed"
	CommandPanicked     Kind = "command_panicked"
	TransformFailed     Kind = "transform_failed"
	MessageDropped      Kind = "message_dropped"
	UpdateApplied       Kind = "update_applied"
)

// Severity returns the log level associated with the kind.
func (k Kind) Severity() slog.Level {
	switch k {
	case ComponentFailed, CommandPanicked:
		return slog.LevelError
	case CommandFailed, TransformFailed, MessageDropped:
		return slog.LevelWarn
	case UpdateApplied:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Event is one observation.
type Event struct {
	Time        time.Time
	Kind        Kind
	ComponentID string
	Component   string
	Subject     string // command name, message type, ...
	Err         error
}

// Reporter receives events. Implementations must be safe for concurrent use
// and must not block for long.
type Reporter interface {
	Report(ev Event)
}

// Func adapts a function to Reporter.
type Func func(ev Event)

func (f Func) Report(ev Event) { f(ev) }

// Discard drops every event.
var Discard Reporter = Func(func(Event) {})

type logReporter struct {
	logger *slog.Logger
}

// NewLogReporter writes events to a structured logger.
func NewLogReporter(logger *slog.Logger) Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &logReporter{logger: logger}
}

func (r *logReporter) Report(ev Event) {
	attrs := []slog.Attr{
		slog.String("kind", string(ev.Kind)),
	}
	if ev.ComponentID != "" {
		attrs = append(attrs, slog.String("component_id", ev.ComponentID))
	}
	if ev.Component != "" {
		attrs = append(attrs, slog.String("component", ev.Component))
	}
	if ev.Subject != "" {
		attrs = append(attrs, slog.String("subject", ev.Subject))
	}
	if ev.Err != nil {
		attrs = append(attrs, slog.String("error", ev.Err.Error()))
	}
	r.logger.LogAttrs(context.Background(), ev.Kind.Severity(), "runtime event", attrs...)
}

type multi []Reporter

// Multi fans an event out to every non-nil reporter.
func Multi(reporters ...Reporter) Reporter {
	var m multi
	for _, r := range reporters {
		if r != nil {
			m = append(m, r)
		}
	}
	return m
}

func (m multi) Report(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	for _, r := range m {
		r.Report(ev)
	}
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Report(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many events of the given kind were recorded.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}
