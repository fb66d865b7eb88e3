package component

import (
	"context"
	"log/slog"

	"mvukit/internal/command"
	"mvukit/internal/config"
	"mvukit/internal/report"
	"mvukit/internal/theme"
)

// Runtime is shared by every component of an application: it holds the
// command executor, the observability sink, the theme and the registry of
// live components.
type Runtime struct {
	cfg      config.RuntimeConfig
	exec     *command.Executor
	reporter report.Reporter
	logger   *slog.Logger
	theme    *theme.Theme
	registry *Registry

	redraw chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// RuntimeOption adjusts a Runtime.
type RuntimeOption func(*Runtime)

// WithReporter adds a sink for runtime events. It may be given more than once.
func WithReporter(r report.Reporter) RuntimeOption {
	return func(rt *Runtime) {
		rt.reporter = report.Multi(rt.reporter, r)
	}
}

// WithLogger sets the logger used for runtime events.
func WithLogger(l *slog.Logger) RuntimeOption {
	return func(rt *Runtime) {
		if l != nil {
			rt.logger = l
		}
	}
}

// WithTheme sets the theme passed to every View.
func WithTheme(th *theme.Theme) RuntimeOption {
	return func(rt *Runtime) {
		if th != nil {
			rt.theme = th
		}
	}
}

// NewRuntime creates a runtime from configuration.
func NewRuntime(cfg config.RuntimeConfig, opts ...RuntimeOption) *Runtime {
	rt := &Runtime{
		cfg:      cfg,
		logger:   slog.Default(),
		registry: newRegistry(),
		redraw:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.reporter = report.Multi(report.NewLogReporter(rt.logger), rt.reporter)
	if rt.theme == nil {
		rt.theme = theme.Default()
	}
	rt.exec = command.NewExecutor(cfg.MaxConcurrentCommands, cfg.CommandTimeout, rt.reporter)
	rt.ctx, rt.cancel = context.WithCancel(context.Background())
	return rt
}

// Theme returns the theme handed to View.
func (rt *Runtime) Theme() *theme.Theme { return rt.theme }

// Reporter returns the runtime's event sink.
func (rt *Runtime) Reporter() report.Reporter { return rt.reporter }

// Logger returns the runtime's logger.
func (rt *Runtime) Logger() *slog.Logger { return rt.logger }

// Registry lists live components.
func (rt *Runtime) Registry() *Registry { return rt.registry }

// Executor returns the shared command executor.
func (rt *Runtime) Executor() *command.Executor { return rt.exec }

// Redraws fires after any component published a new view. Notifications
// are coalesced: several publishes between two reads fire once.
func (rt *Runtime) Redraws() <-chan struct{} { return rt.redraw }

func (rt *Runtime) notifyRedraw() {
	select {
	case rt.redraw <- struct{}{}:
	default:
	}
}

func (rt *Runtime) report(ev report.Event) {
	rt.reporter.Report(ev)
}

// Shutdown closes every component, including those launched with their own
// context, and waits for them to terminate or for ctx to end.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	rt.cancel()
	entries := rt.registry.entries()
	for _, e := range entries {
		e.ctl.Close()
	}
	for _, e := range entries {
		select {
		case <-e.ctl.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
