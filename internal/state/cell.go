// Package state holds a component's model and widgets behind an access
// discipline: one exclusive pass at a time, shared passes only while no
// exclusive pass is running.
package state

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrExclusivityViolation is returned when exclusive access is requested
// while another exclusive pass is still running.
var ErrExclusivityViolation = errors.New("state: concurrent exclusive access")

// Cell owns a model M and its widgets W.
type Cell[M, W any] struct {
	mu        sync.RWMutex
	exclusive atomic.Bool
	model     M
	widgets   W
}

// New creates a cell holding model and zero widgets. Widgets are installed
// by the first exclusive pass (component initialisation).
func New[M, W any](model M) *Cell[M, W] {
	return &Cell[M, W]{model: model}
}

// Exclusive runs fn with mutable access to the model and widgets. It never
// waits for another exclusive pass: overlapping requests fail with
// ErrExclusivityViolation. It does wait for running shared passes.
func (c *Cell[M, W]) Exclusive(fn func(model *M, widgets *W)) error {
	if !c.exclusive.CompareAndSwap(false, true) {
		return ErrExclusivityViolation
	}
	defer c.exclusive.Store(false)

	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.model, &c.widgets)
	return nil
}

// Shared runs fn with read access. Any number of shared passes may overlap;
// fn must not modify what it is given.
func (c *Cell[M, W]) Shared(fn func(model *M, widgets *W)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(&c.model, &c.widgets)
}

// Busy reports whether an exclusive pass is in progress.
func (c *Cell[M, W]) Busy() bool {
	return c.exclusive.Load()
}
