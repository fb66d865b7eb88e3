// Package component runs model-view-update components. Each launched
// component owns one goroutine that applies messages to its model in order,
// regenerates its view when it went stale, and routes command results and
// outputs to the right place.
package component

import (
	"errors"
	"fmt"
	"strings"

	"mvukit/internal/channel"
	"mvukit/internal/command"
	"mvukit/internal/theme"
	"mvukit/internal/view"
)

// Component is implemented by a pointer to the component's model.
//
// A is the argument type handed to Init, W the widgets built by Init and kept
// next to the model, I the input message type and O the output message type.
type Component[A, W, I, O any] interface {
	// Init prepares the model, builds the widgets and may start work.
	Init(args A, cx *Context[I, O]) (W, command.Cmd[I])
	// Update applies one message. It is the only place the model changes.
	Update(widgets *W, msg I, cx *Context[I, O]) command.Cmd[I]
	// View describes the current state. It must not modify anything.
	View(widgets *W, th *theme.Theme) view.Node
}

// ErrClosed is returned when sending to a component that has terminated.
var ErrClosed = fmt.Errorf("component: %w", channel.ErrClosed)

// FatalError ends a component's update cycle.
type FatalError struct {
	Component string
	Phase     string // init, update or view
	Err       error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("component %s failed during %s: %v", e.Component, e.Phase, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err ended a component abnormally.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// Status is the lifecycle state of a component.
type Status int32

const (
	Initializing Status = iota
	Idle
	Updating
	Terminating
	Terminated
)

func (s Status) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Idle:
		return "idle"
	case Updating:
		return "updating"
	case Terminating:
		return "terminating"
	case Terminated:
		return "terminated"
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

// Alive reports whether the component still accepts messages.
func (s Status) Alive() bool {
	return s < Terminating
}

// typeName gives a readable default name, "*counter.Model" becomes "counter.Model".
func typeName(v any) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", v), "*")
}
