package component

import (
	"sort"
	"sync"
	"time"

	"mvukit/internal/view"
)

// controller is the type-erased view of a running component.
type controller interface {
	Status() Status
	Err() error
	Done() <-chan struct{}
	Close()
	Widget() *view.Root
	Inspect(fn func(model any))
	stats() Stats
}

// Stats are counters of one component.
type Stats struct {
	Updates         uint64
	PendingCommands int
	QueueLen        int
	Dropped         uint64
}

// Info describes a registered component.
type Info struct {
	ID       string
	Name     string
	ParentID string
	Status   Status
	Started  time.Time
	Stats
	Err error
}

type entry struct {
	id       string
	name     string
	parentID string
	started  time.Time
	ctl      controller
}

func (e *entry) info() Info {
	return Info{
		ID:       e.id,
		Name:     e.name,
		ParentID: e.parentID,
		Status:   e.ctl.Status(),
		Started:  e.started,
		Stats:    e.ctl.stats(),
		Err:      e.ctl.Err(),
	}
}

// Registry tracks the live components of a runtime.
type Registry struct {
	mu   sync.RWMutex
	byID map[string]*entry
}

func newRegistry() *Registry {
	return &Registry{byID: make(map[string]*entry)}
}

func (r *Registry) add(e *entry) {
	r.mu.Lock()
	r.byID[e.id] = e
	r.mu.Unlock()
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	delete(r.byID, id)
	r.mu.Unlock()
}

func (r *Registry) entries() []*entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entry, 0, len(r.byID))
	for _, e := range r.byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].started.Equal(out[j].started) {
			return out[i].id < out[j].id
		}
		return out[i].started.Before(out[j].started)
	})
	return out
}

// List returns every live component, oldest first.
func (r *Registry) List() []Info {
	entries := r.entries()
	out := make([]Info, len(entries))
	for i, e := range entries {
		out[i] = e.info()
	}
	return out
}

// Len returns the number of live components.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Get returns the component with the given id.
func (r *Registry) Get(id string) (Info, bool) {
	r.mu.RLock()
	e, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return Info{}, false
	}
	return e.info(), true
}

// Inspect runs fn with shared access to the model of component id. fn must
// not keep the model after it returns.
func (r *Registry) Inspect(id string, fn func(model any)) bool {
	r.mu.RLock()
	e, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	e.ctl.Inspect(fn)
	return true
}

// Widget returns the root view of component id.
func (r *Registry) Widget(id string) (*view.Root, bool) {
	r.mu.RLock()
	e, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return e.ctl.Widget(), true
}

// Close closes component id.
func (r *Registry) Close(id string) bool {
	r.mu.RLock()
	e, ok := r.byID[id]
	r.mu.RUnlock()
	if ok {
		e.ctl.Close()
	}
	return ok
}
