// Package attach is the attach/detach surface of rateboost.
//
// A Manager owns at most one Attachment per target node. Attach discovers
// the target's rate attributes, builds a stabilization engine over them and
// runs an activation pass immediately. Attaching again to the same node
// updates the factor, cadence and ceilings of the existing attachment; it
// never rediscovers or stacks a second factor on top of the first.
//
// Tick(now) is called by the host scheduler. Every-tick attachments run the
// rebase-and-reapply pass on every call; periodic ones re-apply their
// baseline once the interval has elapsed, or never again when the interval
// is zero. Targets are held through weak pointers, and attachments whose
// target has been destroyed or collected are dropped on the next Tick.
package attach
