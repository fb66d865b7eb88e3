package component

import (
	"context"

	"mvukit/internal/channel"
)

type options struct {
	name     string
	parent   context.Context
	parentID string
	capacity int
	overflow channel.Overflow
}

// Option adjusts how a component is launched.
type Option func(*options)

// WithName sets the name used in reports and in the registry.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithContext ties the component's lifetime to ctx.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.parent = ctx
		}
	}
}

// WithParent launches a child of the component owning cx. The child ends
// when the parent ends.
func WithParent[I, O any](cx *Context[I, O]) Option {
	return func(o *options) {
		o.parent = cx.Ctx()
		o.parentID = cx.ID()
	}
}

// WithInput overrides the input channel capacity and overflow policy.
func WithInput(capacity int, overflow channel.Overflow) Option {
	return func(o *options) {
		o.capacity = capacity
		o.overflow = overflow
	}
}
