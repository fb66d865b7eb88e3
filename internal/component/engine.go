package component

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"mvukit/internal/channel"
	"mvukit/internal/command"
	"mvukit/internal/report"
	"mvukit/internal/state"
	"mvukit/internal/theme"
	"mvukit/internal/view"
)

// runner is the update cycle of one component.
type runner[A, W, I, O any] struct {
	rt     *Runtime
	handle *Handle[I]
	cell   *state.Cell[Component[A, W, I, O], W]

	// local holds messages from cx.Emit and immediate commands. They are
	// processed before the input channel so the cycle never waits on itself.
	local []I

	group    *command.Group[I]
	outGroup *command.Group[O]
	outputs  *hub[O]
	cx       *Context[I, O]
	parentID string
	stale    bool
}

// Launch starts a component on rt and returns its handle and output stream.
// The model is initialised on the component's own goroutine; Launch does not
// wait for it.
func Launch[A, W, I, O any](rt *Runtime, model Component[A, W, I, O], args A, opts ...Option) *Registered[I, O] {
	r := newRunner(rt, model, opts...)
	r.start(args)
	return &Registered[I, O]{Handle: r.handle, rt: rt, outputs: r.outputs}
}

func newRunner[A, W, I, O any](rt *Runtime, model Component[A, W, I, O], opts ...Option) *runner[A, W, I, O] {
	overflow, _ := channel.ParseOverflow(rt.cfg.Overflow)
	o := options{
		parent:   rt.ctx,
		capacity: rt.cfg.InputCapacity,
		overflow: overflow,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = typeName(model)
	}

	ctx, cancel := context.WithCancel(o.parent)
	h := &Handle[I]{
		id:     uuid.NewString(),
		name:   o.name,
		input:  channel.New[I](o.capacity, o.overflow),
		ctx:    ctx,
		cancel: cancel,
		root:   view.NewRoot(o.name),
		done:   make(chan struct{}),
	}

	r := &runner[A, W, I, O]{
		rt:      rt,
		handle:  h,
		cell:    state.New[Component[A, W, I, O], W](model),
		outputs: &hub[O]{},
	}
	r.group = command.NewGroup[I](ctx, rt.exec, h.input, h.labels())
	r.outGroup = command.NewGroup[O](ctx, rt.exec, r.outputs, h.labels())
	r.cx = &Context[I, O]{
		rt:       rt,
		ctx:      ctx,
		handle:   h,
		local:    &r.local,
		outputs:  r.outputs,
		outGroup: r.outGroup,
	}

	h.inspect = func(fn func(model any)) {
		r.cell.Shared(func(m *Component[A, W, I, O], _ *W) { fn(*m) })
	}
	h.pending = func() int { return r.group.Pending() + r.outGroup.Pending() }
	h.halt = func() {
		r.group.Cancel()
		r.outGroup.Cancel()
	}
	h.input.OnDrop(func(msg I) {
		r.report(report.MessageDropped, fmt.Sprintf("%T", msg), channel.ErrFull)
	})

	r.parentID = o.parentID
	return r
}

func (r *runner[A, W, I, O]) start(args A) {
	h := r.handle
	r.rt.registry.add(&entry{
		id:       h.id,
		name:     h.name,
		parentID: r.parentID,
		started:  time.Now(),
		ctl:      h,
	})
	r.report(report.ComponentStarted, "", nil)

	go r.watchRoot()
	go r.run(args)
}

// watchRoot closes the component when its root view is destroyed.
func (r *runner[A, W, I, O]) watchRoot() {
	select {
	case <-r.handle.root.Destroyed():
		r.handle.Close()
	case <-r.handle.ctx.Done():
	}
}

func (r *runner[A, W, I, O]) run(args A) {
	h := r.handle
	var fatal error
	defer func() { r.finish(fatal) }()

	if fatal = r.init(args); fatal != nil {
		return
	}
	if fatal = r.render(); fatal != nil {
		return
	}
	h.setStatus(Idle)

	for {
		msg, err := r.next()
		if err != nil {
			return
		}
		// Apply everything available right now, then refresh the view once.
		for {
			if fatal = r.update(msg); fatal != nil {
				return
			}
			if h.ctx.Err() != nil {
				return
			}
			var ok bool
			if msg, ok = r.poll(); !ok {
				break
			}
		}
		if r.stale {
			if fatal = r.render(); fatal != nil {
				return
			}
		}
	}
}

func (r *runner[A, W, I, O]) next() (I, error) {
	if err := r.handle.ctx.Err(); err != nil {
		var zero I
		return zero, err
	}
	if msg, ok := r.popLocal(); ok {
		return msg, nil
	}
	return r.handle.input.Receive(r.handle.ctx)
}

func (r *runner[A, W, I, O]) poll() (I, bool) {
	if msg, ok := r.popLocal(); ok {
		return msg, true
	}
	return r.handle.input.TryReceive()
}

func (r *runner[A, W, I, O]) popLocal() (I, bool) {
	if len(r.local) == 0 {
		var zero I
		return zero, false
	}
	msg := r.local[0]
	var zero I
	r.local[0] = zero
	r.local = r.local[1:]
	return msg, true
}

func (r *runner[A, W, I, O]) init(args A) error {
	var cmd command.Cmd[I]
	var perr error
	err := r.cell.Exclusive(func(m *Component[A, W, I, O], w *W) {
		*w, cmd, perr = callInit(*m, args, r.cx)
	})
	if err == nil {
		err = perr
	}
	if err != nil {
		return r.fatal("init", err)
	}
	r.spawn(cmd)
	return nil
}

func (r *runner[A, W, I, O]) update(msg I) error {
	h := r.handle
	h.setStatus(Updating)

	var cmd command.Cmd[I]
	var perr error
	err := r.cell.Exclusive(func(m *Component[A, W, I, O], w *W) {
		cmd, perr = callUpdate(*m, w, msg, r.cx)
	})
	if err == nil {
		err = perr
	}
	if err != nil {
		return r.fatal("update", err)
	}

	h.updates.Add(1)
	r.stale = true
	r.spawn(cmd)
	h.setStatus(Idle)
	r.report(report.UpdateApplied, fmt.Sprintf("%T", msg), nil)
	return nil
}

// spawn queues immediate messages locally and hands the rest to the executor.
func (r *runner[A, W, I, O]) spawn(cmd command.Cmd[I]) {
	if cmd.IsNone() {
		return
	}
	immediate, deferred := cmd.Split()
	r.local = append(r.local, immediate...)
	if len(deferred) > 0 {
		r.group.Spawn(command.Batch(deferred...))
	}
}

func (r *runner[A, W, I, O]) render() error {
	var node view.Node
	var perr error
	r.cell.Shared(func(m *Component[A, W, I, O], w *W) {
		node, perr = callView(*m, w, r.rt.theme)
	})
	if perr != nil {
		return r.fatal("view", perr)
	}
	r.handle.root.Store(node)
	r.stale = false
	r.rt.notifyRedraw()
	return nil
}

func (r *runner[A, W, I, O]) finish(fatal error) {
	h := r.handle
	h.setStatus(Terminating)
	h.cancel()
	r.group.Cancel()
	r.outGroup.Cancel()
	h.input.Close()
	r.outputs.close()
	if fatal != nil {
		h.setErr(fatal)
	}

	if d := r.rt.cfg.ShutdownTimeout; d > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), d)
		_ = r.group.Wait(ctx)
		_ = r.outGroup.Wait(ctx)
		cancel()
	}

	r.rt.registry.remove(h.id)
	if fatal != nil {
		r.report(report.ComponentFailed, "", fatal)
	} else {
		r.report(report.ComponentTerminated, "", nil)
	}
	h.setStatus(Terminated)
	h.root.Destroy()
	close(h.done)
	r.rt.notifyRedraw()
}

func (r *runner[A, W, I, O]) fatal(phase string, err error) error {
	return &FatalError{Component: r.handle.name, Phase: phase, Err: err}
}

func (r *runner[A, W, I, O]) report(kind report.Kind, subject string, err error) {
	r.rt.report(report.Event{
		Kind:        kind,
		ComponentID: r.handle.id,
		Component:   r.handle.name,
		Subject:     subject,
		Err:         err,
	})
}

func callInit[A, W, I, O any](m Component[A, W, I, O], args A, cx *Context[I, O]) (w W, cmd command.Cmd[I], err error) {
	defer recoverInto(&err)
	w, cmd = m.Init(args, cx)
	return w, cmd, nil
}

func callUpdate[A, W, I, O any](m Component[A, W, I, O], w *W, msg I, cx *Context[I, O]) (cmd command.Cmd[I], err error) {
	defer recoverInto(&err)
	return m.Update(w, msg, cx), nil
}

func callView[A, W, I, O any](m Component[A, W, I, O], w *W, th *theme.Theme) (n view.Node, err error) {
	defer recoverInto(&err)
	return m.View(w, th), nil
}

func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = &command.PanicError{Value: r, Stack: debug.Stack()}
	}
}
