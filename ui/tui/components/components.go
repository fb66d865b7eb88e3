// Package components holds the demo components shown by the terminal host.
// Each one is an ordinary runtime component; App composes the others.
package components

import (
	"mvukit/internal/component"
)

// pressID builds a button id that is unique per component instance.
func pressID[I, O any](cx *component.Context[I, O], name string) string {
	id := cx.ID()
	if len(id) > 8 {
		id = id[:8]
	}
	return id + "." + name
}
