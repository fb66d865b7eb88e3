package command

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"mvukit/internal/channel"
	"mvukit/internal/report"
)

// PanicError wraps a value recovered from a panicking unit of work.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("command panicked: %v", e.Value)
}

// Executor schedules command units. It bounds how many units run at once and
// applies an optional per-unit timeout. One Executor is shared by every
// component of a runtime.
type Executor struct {
	sem      chan struct{}
	timeout  time.Duration
	reporter report.Reporter
	running  atomic.Int64
}

// NewExecutor creates an executor. maxConcurrent <= 0 means unbounded; 1 runs
// every unit on a single background worker slot.
func NewExecutor(maxConcurrent int, timeout time.Duration, reporter report.Reporter) *Executor {
	if reporter == nil {
		reporter = report.Discard
	}
	e := &Executor{timeout: timeout, reporter: reporter}
	if maxConcurrent > 0 {
		e.sem = make(chan struct{}, maxConcurrent)
	}
	return e
}

// Running returns the number of units currently executing.
func (e *Executor) Running() int64 {
	return e.running.Load()
}

func (e *Executor) acquire(ctx context.Context) bool {
	if e.sem == nil {
		return ctx.Err() == nil
	}
	select {
	case e.sem <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (e *Executor) release() {
	if e.sem != nil {
		<-e.sem
	}
}

// Labels identify the owner of a group in reported events.
type Labels struct {
	ComponentID string
	Component   string
}

// Group owns the outstanding commands of one component. Cancel stops them:
// once Cancel has returned, no unit of the group delivers a message.
type Group[M any] struct {
	exec   *Executor
	sink   channel.Sink[M]
	labels Labels

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	canceled bool

	wg      sync.WaitGroup
	pending atomic.Int64
}

// NewGroup creates a group whose units deliver into sink. The group is
// canceled when parent is done.
func NewGroup[M any](parent context.Context, exec *Executor, sink channel.Sink[M], labels Labels) *Group[M] {
	ctx, cancel := context.WithCancel(parent)
	return &Group[M]{
		exec:   exec,
		sink:   sink,
		labels: labels,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Spawn starts every unit of c. Immediate messages are delivered before Spawn
// returns; background units each get their own goroutine.
func (g *Group[M]) Spawn(c Cmd[M]) {
	immediate, deferred := c.Split()
	for _, m := range immediate {
		g.deliver(m, "message")
	}
	for _, unit := range deferred {
		g.mu.RLock()
		if g.canceled {
			g.mu.RUnlock()
			return
		}
		g.wg.Add(1)
		g.pending.Add(1)
		g.mu.RUnlock()
		go g.run(unit)
	}
}

// Pending returns the number of units that have not finished yet.
func (g *Group[M]) Pending() int {
	return int(g.pending.Load())
}

// Cancel cancels all outstanding units. It does not wait for them to return;
// it only guarantees that none of them delivers afterwards.
func (g *Group[M]) Cancel() {
	g.cancel()
	g.mu.Lock()
	g.canceled = true
	g.mu.Unlock()
}

// Canceled reports whether Cancel has been called.
func (g *Group[M]) Canceled() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.canceled
}

// Wait blocks until every spawned unit has returned or ctx is done.
func (g *Group[M]) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Group[M]) run(unit Cmd[M]) {
	defer g.wg.Done()
	defer g.pending.Add(-1)

	if !g.exec.acquire(g.ctx) {
		return
	}
	defer g.exec.release()
	g.exec.running.Add(1)
	defer g.exec.running.Add(-1)

	ctx := g.ctx
	if g.exec.timeout > 0 && !unit.untimed {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.exec.timeout)
		defer cancel()
	}

	msg, err := invoke(ctx, unit)
	if err != nil {
		if errors.Is(err, ErrSkip) || g.ctx.Err() != nil {
			return
		}
		kind := report.CommandFailed
		var pe *PanicError
		if errors.As(err, &pe) {
			kind = report.CommandPanicked
		}
		g.report(kind, unit.name, err)
		return
	}
	g.deliver(msg, unit.name)
}

func invoke[M any](ctx context.Context, unit Cmd[M]) (msg M, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return unit.run(ctx)
}

func (g *Group[M]) deliver(m M, name string) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.canceled || g.ctx.Err() != nil {
		return
	}
	err := g.sink.Send(g.ctx, m)
	if err == nil || g.ctx.Err() != nil {
		return
	}
	g.report(report.MessageDropped, name, err)
}

func (g *Group[M]) report(kind report.Kind, subject string, err error) {
	g.exec.reporter.Report(report.Event{
		Time:        time.Now(),
		Kind:        kind,
		ComponentID: g.labels.ComponentID,
		Component:   g.labels.Component,
		Subject:     subject,
		Err:         err,
	})
}
