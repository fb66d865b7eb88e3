package view

// Walk visits n and its descendants depth first. Embedded roots are entered
// through their current tree; destroyed roots are skipped. Returning false
// from fn stops descent into that node's children.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch n := n.(type) {
	case Box:
		for _, c := range n.Children {
			Walk(c, fn)
		}
	case Card:
		Walk(n.Child, fn)
	case Embed:
		if n.Root != nil && !n.Root.IsDestroyed() {
			Walk(n.Root.Load(), fn)
		}
	}
}

// Pressables returns every pressable node in visit order.
func Pressables(n Node) []Pressable {
	var out []Pressable
	Walk(n, func(n Node) bool {
		if p, ok := n.(Pressable); ok {
			out = append(out, p)
		}
		return true
	})
	return out
}

// Find returns the pressable with the given id.
func Find(n Node, id string) (Pressable, bool) {
	for _, p := range Pressables(n) {
		if p.PressID() == id {
			return p, true
		}
	}
	return nil, false
}

// Count returns how many nodes of each kind the tree holds.
func Count(n Node) map[Kind]int {
	out := make(map[Kind]int)
	Walk(n, func(n Node) bool {
		out[n.Kind()]++
		return true
	})
	return out
}
