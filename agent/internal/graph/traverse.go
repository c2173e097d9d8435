package graph

// Components returns every live component at or below root, depth-first
// with a node's own components before its children. Components on
// inactive nodes are included only when includeInactive is set.
func Components(root *Node, includeInactive bool) []*Component {
	var out []*Component
	walk(root, includeInactive, func(c *Component) { out = append(out, c) })
	return out
}

// Enumerate returns the live components at or below root whose value is a
// T, inactive nodes included.
func Enumerate[T any](root *Node) []*Component {
	var out []*Component
	walk(root, true, func(c *Component) {
		if _, ok := c.value.(T); ok {
			out = append(out, c)
		}
	})
	return out
}

func walk(n *Node, includeInactive bool, fn func(*Component)) {
	if n == nil || n.destroyed {
		return
	}
	if !includeInactive && !n.Active {
		return
	}
	for _, c := range n.components {
		if !c.destroyed {
			fn(c)
		}
	}
	for _, child := range n.children {
		walk(child, includeInactive, fn)
	}
}
