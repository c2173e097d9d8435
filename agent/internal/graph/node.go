package graph

import (
	"fmt"
	"reflect"
	"strings"
)

// Node is one object in the host graph.
type Node struct {
	Name   string
	Active bool

	parent     *Node
	destroyed  bool
	components []*Component
	children   []*Node
}

// NewNode returns an active node with no components.
func NewNode(name string) *Node {
	return &Node{Name: name, Active: true}
}

// AddChild parents child under n and returns child.
func (n *Node) AddChild(child *Node) *Node {
	child.parent = n
	n.children = append(n.children, child)
	return child
}

// AddComponent attaches v to n and returns its Component wrapper.
// v is expected to be a pointer to a struct so fields stay addressable.
func (n *Node) AddComponent(v any) *Component {
	c := &Component{node: n, value: v}
	n.components = append(n.components, c)
	return c
}

// Children returns the direct children of n.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.children...)
}

// Parent returns the parent node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Destroy marks n and everything below it destroyed.
func (n *Node) Destroy() { n.destroyed = true }

// Destroyed reports whether n or any ancestor has been destroyed.
func (n *Node) Destroyed() bool {
	for p := n; p != nil; p = p.parent {
		if p.destroyed {
			return true
		}
	}
	return false
}

// ActiveInHierarchy reports whether n and all its ancestors are active.
func (n *Node) ActiveInHierarchy() bool {
	for p := n; p != nil; p = p.parent {
		if !p.Active {
			return false
		}
	}
	return true
}

// Path returns the slash-separated names from the root to n.
func (n *Node) Path() string {
	var parts []string
	for p := n; p != nil; p = p.parent {
		parts = append(parts, p.Name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// Find returns the first node named name in depth-first order, n included.
func (n *Node) Find(name string) *Node {
	if n.Name == name {
		return n
	}
	for _, c := range n.children {
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// Component wraps one component value attached to a Node.
type Component struct {
	node      *Node
	value     any
	destroyed bool
}

// Value returns the wrapped component value.
func (c *Component) Value() any { return c.value }

// Node returns the node the component is attached to.
func (c *Component) Node() *Node { return c.node }

// Destroy marks just this component destroyed.
func (c *Component) Destroy() { c.destroyed = true }

// Alive reports whether neither the component nor any ancestor node has
// been destroyed.
func (c *Component) Alive() bool {
	return c != nil && !c.destroyed && !c.node.Destroyed()
}

// TypeName returns the component's type name without package or pointer.
func (c *Component) TypeName() string { return TypeName(c.value) }

// Label identifies the component for logs and telemetry: "path:Type", with
// "#n" appended for the n-th (n >= 2) component of the same type on a node.
func (c *Component) Label() string {
	name := c.TypeName()
	n := 0
	for _, other := range c.node.components {
		if other.TypeName() == name {
			n++
		}
		if other == c {
			break
		}
	}
	if n > 1 {
		return fmt.Sprintf("%s:%s#%d", c.node.Path(), name, n)
	}
	return c.node.Path() + ":" + name
}

// TypeName returns the bare type name of v, dereferencing pointers.
func TypeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
