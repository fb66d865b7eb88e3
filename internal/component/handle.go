package component

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"mvukit/internal/channel"
	"mvukit/internal/command"
	"mvukit/internal/view"
)

// Handle is the external reference to a running component. It is safe for
// concurrent use.
type Handle[I any] struct {
	id   string
	name string

	input  *channel.Channel[I]
	ctx    context.Context
	cancel context.CancelFunc
	root   *view.Root

	status  atomic.Int32
	updates atomic.Uint64
	done    chan struct{}

	errMu sync.Mutex
	err   error

	inspect func(fn func(model any))
	pending func() int
	halt    func()
}

// ID returns the registry id.
func (h *Handle[I]) ID() string { return h.id }

// Name returns the component's name.
func (h *Handle[I]) Name() string { return h.name }

// Emit queues msg without waiting for it to be processed. Messages from one
// caller are processed in the order they were emitted. Emitting to a
// terminated component does nothing; overflow drops are reported by the
// input channel.
func (h *Handle[I]) Emit(msg I) {
	_ = h.Send(h.ctx, msg)
}

// Send queues msg, waiting for space under the block overflow policy.
// It returns ErrClosed once the component terminated.
func (h *Handle[I]) Send(ctx context.Context, msg I) error {
	if h.ctx.Err() != nil {
		return ErrClosed
	}
	err := h.input.Send(ctx, msg)
	if errors.Is(err, channel.ErrClosed) {
		return ErrClosed
	}
	return err
}

// TrySend queues msg only if that is possible without waiting.
func (h *Handle[I]) TrySend(msg I) error {
	err := h.input.TrySend(msg)
	if errors.Is(err, channel.ErrClosed) {
		return ErrClosed
	}
	return err
}

// Widget returns the component's root view. The handle stays the same for
// the component's whole life; its content changes after each update pass.
func (h *Handle[I]) Widget() *view.Root { return h.root }

// Inspect runs fn with read access to the model. It waits for a running
// update to finish and must not be called from the component's own Update.
// The model is only valid during fn; do not keep it or anything reachable
// from it.
func (h *Handle[I]) Inspect(fn func(model any)) { h.inspect(fn) }

// Sender registers a producer on the input channel. Once every registered
// sender has been released the component processes what is still queued
// and terminates.
func (h *Handle[I]) Sender() *channel.Sender[I] { return h.input.Sender() }

// Close terminates the component. Queued messages are discarded and
// outstanding commands are canceled: none of them delivers after Close
// returns. Close does not wait for termination; use Done.
func (h *Handle[I]) Close() {
	h.cancel()
	if h.halt != nil {
		h.halt()
	}
}

// Done is closed once the component has terminated.
func (h *Handle[I]) Done() <-chan struct{} { return h.done }

// Wait blocks until the component terminated or ctx ends, and returns Err.
func (h *Handle[I]) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the *FatalError that ended the component, or nil.
func (h *Handle[I]) Err() error {
	h.errMu.Lock()
	defer h.errMu.Unlock()
	return h.err
}

// Status returns the lifecycle state.
func (h *Handle[I]) Status() Status { return Status(h.status.Load()) }

func (h *Handle[I]) setStatus(s Status) { h.status.Store(int32(s)) }

func (h *Handle[I]) setErr(err error) {
	h.errMu.Lock()
	h.err = err
	h.errMu.Unlock()
}

func (h *Handle[I]) stats() Stats {
	return Stats{
		Updates:         h.updates.Load(),
		PendingCommands: h.pending(),
		QueueLen:        h.input.Len(),
		Dropped:         h.input.Dropped(),
	}
}

func (h *Handle[I]) labels() command.Labels {
	return command.Labels{ComponentID: h.id, Component: h.name}
}

// Registered is what Launch returns: the handle plus the component's
// output stream. Outputs are consumed with Forward, TryForward,
// HandleOutputs or Subscribe, or dropped with Ignore.
type Registered[I, O any] struct {
	*Handle[I]
	rt      *Runtime
	outputs *hub[O]
}
