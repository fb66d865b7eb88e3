// Package channel implements the ordered multi-producer, single-consumer queue
// that carries messages between a component and its owner.
package channel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// DefaultCapacity is the buffer size used when a caller does not pick one.
const DefaultCapacity = 128

var (
	// ErrClosed is returned by Send after the channel is closed, and by
	// Receive once the channel is closed and drained.
	ErrClosed = errors.New("channel closed")
	// ErrFull is returned when a message is rejected by the drop-newest
	// policy or by TrySend on a full blocking channel.
	ErrFull = errors.New("channel full")
)

// Overflow selects what happens when a bounded channel is full.
type Overflow int

const (
	// Block suspends the sender until space frees up or its context ends.
	Block Overflow = iota
	// DropNewest rejects the incoming message.
	DropNewest
	// DropOldest evicts the oldest queued message to make room.
	DropOldest
)

func (o Overflow) String() string {
	switch o {
	case Block:
		return "block"
	case DropNewest:
		return "drop-newest"
	case DropOldest:
		return "drop-oldest"
	}
	return fmt.Sprintf("overflow(%d)", int(o))
}

// ParseOverflow maps a configuration string to an Overflow policy.
func ParseOverflow(s string) (Overflow, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "block":
		return Block, nil
	case "drop-newest", "drop_newest":
		return DropNewest, nil
	case "drop-oldest", "drop_oldest":
		return DropOldest, nil
	}
	return Block, fmt.Errorf("unknown overflow policy %q", s)
}

// Sink is anything a message can be delivered into.
type Sink[T any] interface {
	Send(ctx context.Context, v T) error
}

// Channel is a FIFO queue with any number of senders and one receiver.
// A capacity of zero means unbounded.
type Channel[T any] struct {
	mu       sync.Mutex
	queue    []T
	capacity int
	overflow Overflow
	closed   bool
	senders  int
	onDrop   func(T)

	notEmpty chan struct{}
	notFull  chan struct{}
	done     chan struct{}

	dropped atomic.Uint64
}

// New creates a channel with the given capacity and overflow policy.
func New[T any](capacity int, overflow Overflow) *Channel[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Channel[T]{
		capacity: capacity,
		overflow: overflow,
		notEmpty: make(chan struct{}),
		notFull:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// NewUnbounded creates a channel that never applies backpressure.
func NewUnbounded[T any]() *Channel[T] {
	return New[T](0, Block)
}

// OnDrop installs a callback invoked for every message discarded by an
// overflow policy. It must be called before the channel is shared.
func (c *Channel[T]) OnDrop(fn func(T)) {
	c.mu.Lock()
	c.onDrop = fn
	c.mu.Unlock()
}

// Send enqueues v. Under the Block policy it waits for space; the wait ends
// early with ctx.Err() if ctx is done.
func (c *Channel[T]) Send(ctx context.Context, v T) error {
	for {
		wait, err := c.offer(v)
		if wait == nil {
			return err
		}
		select {
		case <-wait:
		case <-c.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// TrySend enqueues v without ever waiting. A full Block channel yields ErrFull.
func (c *Channel[T]) TrySend(v T) error {
	wait, err := c.offer(v)
	if wait != nil {
		return ErrFull
	}
	return err
}

// offer tries to enqueue v once. A non-nil wait channel means the channel is
// full under the Block policy and the caller may retry after it fires.
func (c *Channel[T]) offer(v T) (<-chan struct{}, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.capacity == 0 || len(c.queue) < c.capacity {
		c.push(v)
		c.mu.Unlock()
		return nil, nil
	}
	drop := c.onDrop
	switch c.overflow {
	case DropNewest:
		c.mu.Unlock()
		c.dropped.Add(1)
		if drop != nil {
			drop(v)
		}
		return nil, ErrFull
	case DropOldest:
		old := c.pop()
		c.push(v)
		c.mu.Unlock()
		c.dropped.Add(1)
		if drop != nil {
			drop(old)
		}
		return nil, nil
	}
	wait := c.notFull
	c.mu.Unlock()
	return wait, nil
}

// Receive waits for the next message. After Close, queued messages are still
// handed out; ErrClosed is returned once the queue is empty.
func (c *Channel[T]) Receive(ctx context.Context) (T, error) {
	for {
		c.mu.Lock()
		if len(c.queue) > 0 {
			v := c.pop()
			c.mu.Unlock()
			return v, nil
		}
		if c.closed {
			c.mu.Unlock()
			var zero T
			return zero, ErrClosed
		}
		wait := c.notEmpty
		c.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// TryReceive returns the next message if one is immediately available.
func (c *Channel[T]) TryReceive() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		var zero T
		return zero, false
	}
	return c.pop(), true
}

// Drain removes and returns every queued message.
func (c *Channel[T]) Drain() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.queue
	c.queue = nil
	c.wakeSenders()
	return out
}

// Close marks the channel closed. Pending senders are released with
// ErrClosed; queued messages remain receivable. Closing twice is a no-op.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	close(c.notEmpty)
	c.notEmpty = make(chan struct{})
}

// Done is closed when the channel is closed.
func (c *Channel[T]) Done() <-chan struct{} {
	return c.done
}

// Closed reports whether Close has been called.
func (c *Channel[T]) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Len returns the number of queued messages.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Cap returns the configured capacity; zero means unbounded.
func (c *Channel[T]) Cap() int {
	return c.capacity
}

// Dropped returns how many messages the overflow policy has discarded.
func (c *Channel[T]) Dropped() uint64 {
	return c.dropped.Load()
}

// Sender registers a new sender. The channel closes when the last registered
// sender is released.
func (c *Channel[T]) Sender() *Sender[T] {
	c.mu.Lock()
	c.senders++
	c.mu.Unlock()
	return &Sender[T]{ch: c}
}

func (c *Channel[T]) releaseSender() {
	c.mu.Lock()
	c.senders--
	last := c.senders <= 0
	c.mu.Unlock()
	if last {
		c.Close()
	}
}

// push and pop require c.mu.
func (c *Channel[T]) push(v T) {
	c.queue = append(c.queue, v)
	close(c.notEmpty)
	c.notEmpty = make(chan struct{})
}

func (c *Channel[T]) pop() T {
	v := c.queue[0]
	var zero T
	c.queue[0] = zero
	c.queue = c.queue[1:]
	if len(c.queue) == 0 {
		c.queue = nil
	}
	c.wakeSenders()
	return v
}

func (c *Channel[T]) wakeSenders() {
	close(c.notFull)
	c.notFull = make(chan struct{})
}

// Sender is a reference-counted producer handle.
type Sender[T any] struct {
	ch       *Channel[T]
	released atomic.Bool
}

// Send enqueues v on the underlying channel.
func (s *Sender[T]) Send(ctx context.Context, v T) error {
	if s.released.Load() {
		return ErrClosed
	}
	return s.ch.Send(ctx, v)
}

// TrySend enqueues v without waiting.
func (s *Sender[T]) TrySend(v T) error {
	if s.released.Load() {
		return ErrClosed
	}
	return s.ch.TrySend(v)
}

// Clone registers another sender on the same channel.
func (s *Sender[T]) Clone() *Sender[T] {
	return s.ch.Sender()
}

// Release drops this sender. Releasing twice has no further effect.
func (s *Sender[T]) Release() {
	if s.released.CompareAndSwap(false, true) {
		s.ch.releaseSender()
	}
}

// Done is closed when the underlying channel closes.
func (s *Sender[T]) Done() <-chan struct{} {
	return s.ch.Done()
}
