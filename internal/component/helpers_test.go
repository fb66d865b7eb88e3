package component

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mvukit/internal/command"
	"mvukit/internal/config"
	"mvukit/internal/report"
	"mvukit/internal/theme"
	"mvukit/internal/view"
)

func newTestRuntime(t *testing.T) (*Runtime, *report.Recorder) {
	t.Helper()
	cfg := config.Default().Runtime
	cfg.ShutdownTimeout = 200 * time.Millisecond
	return newTestRuntimeWith(t, cfg)
}

func newTestRuntimeWith(t *testing.T, cfg config.RuntimeConfig) (*Runtime, *report.Recorder) {
	t.Helper()
	rec := &report.Recorder{}
	rt := NewRuntime(cfg,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithReporter(rec),
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = rt.Shutdown(ctx)
	})
	return rt, rec
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

func waitDone[I any](t *testing.T, h *Handle[I]) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("Component %s did not terminate", h.Name())
	}
}

// recorder appends every message it sees; onMsg customises the reaction.
type recorder struct {
	seen    []string
	onInit  func(cx *Context[string, string]) command.Cmd[string]
	onMsg   func(msg string, cx *Context[string, string]) command.Cmd[string]
	renders *atomic.Int32
}

type noWidgets struct{}

func (r *recorder) Init(_ struct{}, cx *Context[string, string]) (noWidgets, command.Cmd[string]) {
	if r.onInit != nil {
		return noWidgets{}, r.onInit(cx)
	}
	return noWidgets{}, command.None[string]()
}

func (r *recorder) Update(_ *noWidgets, msg string, cx *Context[string, string]) command.Cmd[string] {
	r.seen = append(r.seen, msg)
	if r.onMsg != nil {
		return r.onMsg(msg, cx)
	}
	return command.None[string]()
}

func (r *recorder) View(_ *noWidgets, _ *theme.Theme) view.Node {
	if r.renders != nil {
		r.renders.Add(1)
	}
	return view.Text{Content: strings.Join(r.seen, ",")}
}

func launchRecorder(rt *Runtime, r *recorder, opts ...Option) *Registered[string, string] {
	return Launch[struct{}, noWidgets, string, string](rt, r, struct{}{}, opts...)
}

func seenOf[I, O any](reg *Registered[I, O]) []string {
	var out []string
	reg.Inspect(func(m any) {
		out = append([]string(nil), m.(*recorder).seen...)
	})
	return out
}

// counter is the classic example: Inc and Dec adjust a number that is shown
// in a label and published as an output.
type counterIn int

const (
	inc counterIn = iota
	dec
)

type counterOut struct{ Count int }

type counter struct {
	count int
	seen  []counterIn
}

type counterWidgets struct {
	self *Handle[counterIn]
}

func (c *counter) Init(start int, cx *Context[counterIn, counterOut]) (counterWidgets, command.Cmd[counterIn]) {
	c.count = start
	return counterWidgets{self: cx.Handle()}, command.None[counterIn]()
}

func (c *counter) Update(_ *counterWidgets, msg counterIn, cx *Context[counterIn, counterOut]) command.Cmd[counterIn] {
	switch msg {
	case inc:
		c.count++
	case dec:
		c.count--
	}
	c.seen = append(c.seen, msg)
	cx.Output(counterOut{Count: c.count})
	return command.None[counterIn]()
}

func (c *counter) View(w *counterWidgets, th *theme.Theme) view.Node {
	return view.VStack(th.Gap(),
		view.Label("count: %d", c.count),
		view.HStack(1,
			view.Button{ID: "inc", Label: "+", OnPress: func() { w.self.Emit(inc) }},
			view.Button{ID: "dec", Label: "-", OnPress: func() { w.self.Emit(dec) }},
		),
	)
}

func launchCounter(rt *Runtime, start int, opts ...Option) *Registered[counterIn, counterOut] {
	return Launch[int, counterWidgets, counterIn, counterOut](rt, &counter{}, start, opts...)
}

func countOf(reg *Registered[counterIn, counterOut]) (n int) {
	reg.Inspect(func(m any) { n = m.(*counter).count })
	return n
}

func hasText(n view.Node, content string) bool {
	found := false
	view.Walk(n, func(n view.Node) bool {
		if txt, ok := n.(view.Text); ok && txt.Content == content {
			found = true
		}
		return !found
	})
	return found
}

// collector is a sink that keeps everything sent to it.
type collector[T any] struct {
	mu  sync.Mutex
	got []T
}

func newCollector[T any]() *collector[T] {
	return &collector[T]{}
}

func (c *collector[T]) Send(_ context.Context, v T) error {
	c.mu.Lock()
	c.got = append(c.got, v)
	c.mu.Unlock()
	return nil
}

func (c *collector[T]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.got)
}

func (c *collector[T]) items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.got...)
}
