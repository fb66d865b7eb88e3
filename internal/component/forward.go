package component

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"mvukit/internal/channel"
	"mvukit/internal/command"
	"mvukit/internal/report"
)

// hub fans outputs out to subscribers. Each subscriber has its own unbounded
// queue so a slow consumer never stalls the publishing component. Outputs
// published before the first subscription are kept for it.
type hub[O any] struct {
	mu      sync.Mutex
	subs    []*channel.Channel[O]
	pending []O
	claimed bool
	ignored bool
	closed  bool
}

func (h *hub[O]) publish(o O) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if !h.claimed {
		if !h.ignored {
			h.pending = append(h.pending, o)
		}
		return true
	}
	for _, sub := range h.subs {
		_ = sub.TrySend(o)
	}
	return true
}

// Send makes the hub a command sink for SpawnOutput.
func (h *hub[O]) Send(_ context.Context, o O) error {
	if !h.publish(o) {
		return ErrClosed
	}
	return nil
}

func (h *hub[O]) subscribe() *channel.Channel[O] {
	ch := channel.NewUnbounded[O]()
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.claimed {
		h.claimed = true
		for _, o := range h.pending {
			_ = ch.TrySend(o)
		}
		h.pending = nil
	}
	if h.closed {
		ch.Close()
		return ch
	}
	h.subs = append(h.subs, ch)
	return ch
}

func (h *hub[O]) unsubscribe(ch *channel.Channel[O]) {
	h.mu.Lock()
	for i, sub := range h.subs {
		if sub == ch {
			h.subs = append(h.subs[:i], h.subs[i+1:]...)
			break
		}
	}
	h.mu.Unlock()
	ch.Close()
}

func (h *hub[O]) ignore() {
	h.mu.Lock()
	h.ignored = true
	h.pending = nil
	h.mu.Unlock()
}

func (h *hub[O]) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, sub := range h.subs {
		sub.Close()
	}
	h.subs = nil
	h.pending = nil
}

// Subscription is one consumer of a component's outputs.
type Subscription[O any] struct {
	ch   *channel.Channel[O]
	hub  *hub[O]
	once sync.Once
	done chan struct{}
}

func newSubscription[O any](h *hub[O]) *Subscription[O] {
	return &Subscription[O]{ch: h.subscribe(), hub: h, done: make(chan struct{})}
}

// Receive returns the next output. It returns channel.ErrClosed once the
// component terminated and every output was consumed, or after Stop.
func (s *Subscription[O]) Receive(ctx context.Context) (O, error) {
	o, err := s.ch.Receive(ctx)
	if errors.Is(err, channel.ErrClosed) {
		s.finish()
	}
	return o, err
}

// Stop ends the subscription. Outputs not yet received are discarded.
func (s *Subscription[O]) Stop() {
	s.hub.unsubscribe(s.ch)
	s.ch.Drain()
}

// Done is closed when the subscription has ended and, for Forward and
// HandleOutputs, when the last output was handled.
func (s *Subscription[O]) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription[O]) finish() {
	s.once.Do(func() { close(s.done) })
}

// pump delivers every output to fn until the subscription ends or fn
// returns false.
func (s *Subscription[O]) pump(fn func(O) bool) {
	go func() {
		defer s.finish()
		for {
			o, err := s.ch.Receive(context.Background())
			if err != nil {
				return
			}
			if !fn(o) {
				s.hub.unsubscribe(s.ch)
				return
			}
		}
	}()
}

// Subscribe returns a subscription to the outputs of reg.
func Subscribe[I, O any](reg *Registered[I, O]) *Subscription[O] {
	return newSubscription(reg.outputs)
}

// Forward sends every output of reg, converted by transform, into sink.
// Outputs arrive in the order they were produced. Forwarding stops when reg
// terminates or sink is closed.
func Forward[I, O, T any](reg *Registered[I, O], sink channel.Sink[T], transform func(O) T) *Subscription[O] {
	return TryForward(reg, sink, func(o O) (T, error) {
		return transform(o), nil
	})
}

// TryForward is Forward with a fallible transform. A transform that fails or
// panics drops that output and reports it; returning command.ErrSkip drops
// it silently.
func TryForward[I, O, T any](reg *Registered[I, O], sink channel.Sink[T], transform func(O) (T, error)) *Subscription[O] {
	sub := newSubscription(reg.outputs)
	rt, labels := reg.rt, reg.labels()
	sub.pump(func(o O) bool {
		t, err := callTransform(transform, o)
		if err != nil {
			if !errors.Is(err, command.ErrSkip) {
				rt.report(report.Event{
					Kind:        report.TransformFailed,
					ComponentID: labels.ComponentID,
					Component:   labels.Component,
					Subject:     fmt.Sprintf("%T", o),
					Err:         err,
				})
			}
			return true
		}
		if err := sink.Send(context.Background(), t); err != nil {
			if !errors.Is(err, channel.ErrClosed) {
				rt.report(report.Event{
					Kind:        report.MessageDropped,
					ComponentID: labels.ComponentID,
					Component:   labels.Component,
					Subject:     fmt.Sprintf("%T", t),
					Err:         err,
				})
			}
			return false
		}
		return true
	})
	return sub
}

// HandleOutputs runs fn for every output of reg on a dedicated goroutine.
// A panicking fn is reported and the output skipped.
func HandleOutputs[I, O any](reg *Registered[I, O], fn func(O)) *Subscription[O] {
	return TryForward(reg, discard[struct{}]{}, func(o O) (struct{}, error) {
		fn(o)
		return struct{}{}, nil
	})
}

// Ignore discards every output of reg that no subscriber receives,
// including those buffered for the first subscriber.
func Ignore[I, O any](reg *Registered[I, O]) {
	reg.outputs.ignore()
}

func callTransform[O, T any](fn func(O) (T, error), o O) (t T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &command.PanicError{Value: r}
		}
	}()
	return fn(o)
}

type discard[T any] struct{}

func (discard[T]) Send(context.Context, T) error { return nil }
