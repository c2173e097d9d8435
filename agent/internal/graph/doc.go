// Package graph models the host object graph rateboost attaches to.
//
// A Node is a named object with components and children. Components wrap
// arbitrary struct pointers; two of them have a fixed, well-known shape
// (carriers): Mover for navigation rates and Animator for playback rates
// plus named float parameters.
//
// Traversal mirrors "get components in children": Components(root, true)
// walks depth-first, a node's own components before its children, and
// includes inactive nodes when asked. Enumerate[T] filters by component
// value type and always includes inactive nodes.
//
// Destruction is logical. Destroy marks a node or component destroyed;
// Component.Alive reports false once the component or any ancestor is
// destroyed. The graph is driven by the host's single tick goroutine and is
// not safe for concurrent mutation.
package graph
