package view

import (
	"sync"
	"sync/atomic"
)

type snapshot struct {
	node Node
}

// Root is the stable handle to a component's current view. The owning
// component replaces the tree after each update pass; anyone may read it
// concurrently.
type Root struct {
	name    string
	current atomic.Pointer[snapshot]
	version atomic.Uint64

	destroyOnce sync.Once
	destroyed   chan struct{}
}

// NewRoot creates an empty root. name identifies the owning component.
func NewRoot(name string) *Root {
	return &Root{name: name, destroyed: make(chan struct{})}
}

// Name returns the owning component's name.
func (r *Root) Name() string {
	return r.name
}

// Load returns the current tree, or nil before the first publish.
func (r *Root) Load() Node {
	s := r.current.Load()
	if s == nil {
		return nil
	}
	return s.node
}

// Store publishes a new tree.
func (r *Root) Store(n Node) {
	r.current.Store(&snapshot{node: n})
	r.version.Add(1)
}

// Version increases with every Store.
func (r *Root) Version() uint64 {
	return r.version.Load()
}

// Destroy detaches the root from the screen. The owning component
// terminates when its root is destroyed.
func (r *Root) Destroy() {
	r.destroyOnce.Do(func() { close(r.destroyed) })
}

// Destroyed is closed by Destroy.
func (r *Root) Destroyed() <-chan struct{} {
	return r.destroyed
}

// IsDestroyed reports whether Destroy has been called.
func (r *Root) IsDestroyed() bool {
	select {
	case <-r.destroyed:
		return true
	default:
		return false
	}
}
