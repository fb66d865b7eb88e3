// Package command describes deferred work whose completion feeds a message back
// into a component's update cycle.
package command

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrSkip may be returned by a unit of work that finished normally but has
// nothing to report. No message is produced and nothing is logged.
var ErrSkip = errors.New("command: no message")

type kind uint8

const (
	kindNone kind = iota
	kindMessage
	kindFuture
	kindBatch
)

// Cmd is a description of work. The zero value is the empty command.
// A Cmd never touches the model of the component that issued it; its only
// effect is the messages it produces, at most one per unit.
type Cmd[M any] struct {
	kind    kind
	name    string
	msg     M
	run     func(ctx context.Context) (M, error)
	untimed bool
	batch   []Cmd[M]
}

// None returns the empty command.
func None[M any]() Cmd[M] {
	return Cmd[M]{}
}

// Message returns a command that yields m immediately, without suspending.
func Message[M any](m M) Cmd[M] {
	return Cmd[M]{kind: kindMessage, name: "message", msg: m}
}

// Perform runs fn in the background and delivers its result.
func Perform[M any](name string, fn func(ctx context.Context) M) Cmd[M] {
	return Cmd[M]{
		kind: kindFuture,
		name: name,
		run: func(ctx context.Context) (M, error) {
			return fn(ctx), nil
		},
	}
}

// Attempt runs fn in the background. A non-nil error is reported and no
// message is delivered; failures the component must see have to be encoded
// in M itself.
func Attempt[M any](name string, fn func(ctx context.Context) (M, error)) Cmd[M] {
	return Cmd[M]{kind: kindFuture, name: name, run: fn}
}

// Tick waits for d and delivers fn applied to the firing time. Ticks are not
// subject to the executor's per-unit timeout.
func Tick[M any](d time.Duration, fn func(time.Time) M) Cmd[M] {
	return Cmd[M]{
		kind:    kindFuture,
		name:    fmt.Sprintf("tick(%s)", d),
		untimed: true,
		run: func(ctx context.Context) (M, error) {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case now := <-t.C:
				return fn(now), nil
			case <-ctx.Done():
				var zero M
				return zero, ctx.Err()
			}
		},
	}
}

// Batch groups commands. Members run concurrently and deliver independently;
// there is no ordering between them.
func Batch[M any](cmds ...Cmd[M]) Cmd[M] {
	var flat []Cmd[M]
	for _, c := range cmds {
		switch c.kind {
		case kindNone:
		case kindBatch:
			flat = append(flat, c.batch...)
		default:
			flat = append(flat, c)
		}
	}
	switch len(flat) {
	case 0:
		return None[M]()
	case 1:
		return flat[0]
	}
	return Cmd[M]{kind: kindBatch, name: "batch", batch: flat}
}

// Map converts the message type of a command.
func Map[A, B any](c Cmd[A], fn func(A) B) Cmd[B] {
	switch c.kind {
	case kindMessage:
		return Cmd[B]{kind: kindMessage, name: c.name, msg: fn(c.msg)}
	case kindFuture:
		run := c.run
		return Cmd[B]{
			kind:    kindFuture,
			name:    c.name,
			untimed: c.untimed,
			run: func(ctx context.Context) (B, error) {
				a, err := run(ctx)
				if err != nil {
					var zero B
					return zero, err
				}
				return fn(a), nil
			},
		}
	case kindBatch:
		out := make([]Cmd[B], len(c.batch))
		for i, member := range c.batch {
			out[i] = Map(member, fn)
		}
		return Cmd[B]{kind: kindBatch, name: c.name, batch: out}
	}
	return None[B]()
}

// IsNone reports whether c does nothing.
func (c Cmd[M]) IsNone() bool {
	return c.kind == kindNone
}

// Name returns the label used when reporting failures.
func (c Cmd[M]) Name() string {
	return c.name
}

// Units returns the number of units of work in c.
func (c Cmd[M]) Units() int {
	switch c.kind {
	case kindNone:
		return 0
	case kindBatch:
		return len(c.batch)
	}
	return 1
}

// Split separates immediate messages, in declaration order, from units that
// need to run in the background.
func (c Cmd[M]) Split() (immediate []M, deferred []Cmd[M]) {
	switch c.kind {
	case kindMessage:
		return []M{c.msg}, nil
	case kindFuture:
		return nil, []Cmd[M]{c}
	case kindBatch:
		for _, member := range c.batch {
			im, d := member.Split()
			immediate = append(immediate, im...)
			deferred = append(deferred, d...)
		}
	}
	return immediate, deferred
}
