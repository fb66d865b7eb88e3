package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"mvukit/internal/component"
	"mvukit/internal/config"
	"mvukit/internal/inspector"
	"mvukit/internal/journal"
	"mvukit/internal/sysinfo"
	"mvukit/internal/theme"
	"mvukit/internal/view"
	"mvukit/ui/console"
	"mvukit/ui/tui"
	"mvukit/ui/tui/components"
)

const version = "0.1.0"

func main() {
	headless := flag.Bool("headless", false, "print the view as text instead of running the terminal UI")
	inspect := flag.Bool("inspect", false, "serve the MCP inspector on stdio (implies --headless)")
	dump := flag.Bool("dump", false, "print the view once and exit")
	noMonitor := flag.Bool("no-monitor", false, "do not start the system monitor")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if *inspect {
		cfg = cfg.WithInspector(true)
	}

	interactive := !cfg.Inspector.Enabled && !*headless && !*dump && isatty.IsTerminal(os.Stdout.Fd())

	logger, closeLog, err := newLogger(cfg.Log, interactive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []component.RuntimeOption{
		component.WithLogger(logger),
		component.WithTheme(theme.New(cfg.Theme)),
	}

	var store *journal.Store
	if cfg.Journal.Enabled {
		store, err = journal.Open(cfg.Journal.Path, journal.WithTimeout(5*time.Second))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening journal: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		writer, err := journal.NewWriter(store, cfg.Journal.BufferSize, journal.WithLogger(logger))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating journal writer: %v\n", err)
			os.Exit(1)
		}
		if err := writer.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting journal writer: %v\n", err)
			os.Exit(1)
		}
		defer writer.Stop()
		opts = append(opts, component.WithReporter(writer))
	}

	rt := component.NewRuntime(cfg.Runtime, opts...)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 2*cfg.Runtime.ShutdownTimeout)
		defer cancel()
		if err := rt.Shutdown(sctx); err != nil {
			logger.Warn("components still running at exit", "error", err)
		}
	}()

	args := components.AppArgs{Monitor: cfg.Monitor}
	if !*noMonitor {
		args.Probe = sysinfo.NewSampler("/")
	}
	app := components.LaunchApp(rt, args, component.WithContext(ctx))
	component.Ignore(app)

	switch {
	case cfg.Inspector.Enabled:
		err = runInspector(ctx, cfg, rt, store, logger)
	case *dump:
		err = runDump(ctx, rt, app.Widget())
	case interactive:
		err = tui.Start(rt, app.Widget())
	default:
		err = runHeadless(ctx, rt, app.Widget(), cfg.Monitor.PollInterval)
	}
	if err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger. The terminal UI owns stdout and
// stderr, so without a log file it logs nowhere.
func newLogger(cfg config.LogConfig, interactive bool) (*slog.Logger, func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	closeFn := func() {}
	switch {
	case cfg.File != "":
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		out = f
		closeFn = func() { _ = f.Close() }
	case interactive:
		out = io.Discard
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, closeFn, nil
}

func runInspector(ctx context.Context, cfg config.Config, rt *component.Runtime, store *journal.Store, logger *slog.Logger) error {
	opts := []inspector.Option{
		inspector.WithLogger(logger),
		inspector.WithViewDump(console.Dump),
	}
	if store != nil {
		opts = append(opts, inspector.WithEvents(store))
	}
	srv, err := inspector.NewServer(inspector.Config{
		ServerName:    cfg.Inspector.Name,
		ServerVersion: version,
	}, rt.Registry(), opts...)
	if err != nil {
		return fmt.Errorf("failed to create inspector: %w", err)
	}
	return srv.Start(ctx)
}

// runDump waits for the view to settle briefly and prints it once.
func runDump(ctx context.Context, rt *component.Runtime, root *view.Root) error {
	settle := time.NewTimer(1500 * time.Millisecond)
	defer settle.Stop()
	for {
		select {
		case <-rt.Redraws():
		case <-settle.C:
			fmt.Print(console.Dump(root.Load()))
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// runHeadless prints the view whenever it changed, at most once per interval.
func runHeadless(ctx context.Context, rt *component.Runtime, root *view.Root, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	printer := console.New(os.Stdout, isatty.IsTerminal(os.Stdout.Fd()))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var printed uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-root.Destroyed():
			return nil
		case <-rt.Redraws():
		case <-ticker.C:
			if v := root.Version(); v != printed {
				printed = v
				fmt.Printf("── %s\n", time.Now().Format("15:04:05"))
				printer.Print(root.Load())
			}
		}
	}
}
