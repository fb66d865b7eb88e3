package component

import (
	"context"

	"mvukit/internal/command"
)

// Context is handed to Init and Update. Emit and Output are only valid on
// the component's own goroutine, inside Init or Update.
type Context[I, O any] struct {
	rt       *Runtime
	ctx      context.Context
	handle   *Handle[I]
	local    *[]I
	outputs  *hub[O]
	outGroup *command.Group[O]
}

// Ctx is canceled when the component terminates.
func (cx *Context[I, O]) Ctx() context.Context { return cx.ctx }

// ID returns the component's registry id.
func (cx *Context[I, O]) ID() string { return cx.handle.id }

// Name returns the component's name.
func (cx *Context[I, O]) Name() string { return cx.handle.name }

// Runtime returns the runtime the component runs on, for launching children.
func (cx *Context[I, O]) Runtime() *Runtime { return cx.rt }

// Handle returns the component's own handle. It can be captured by views
// (button callbacks) and used as a forwarding sink by children.
func (cx *Context[I, O]) Handle() *Handle[I] { return cx.handle }

// Emit queues a message to this component. It is processed after the
// current update, ahead of anything waiting in the input channel.
func (cx *Context[I, O]) Emit(msg I) {
	*cx.local = append(*cx.local, msg)
}

// Output publishes a message to the component's subscribers.
func (cx *Context[I, O]) Output(msg O) {
	cx.outputs.publish(msg)
}

// SpawnOutput runs cmd in the background and publishes its results as outputs.
func (cx *Context[I, O]) SpawnOutput(cmd command.Cmd[O]) {
	cx.outGroup.Spawn(cmd)
}
