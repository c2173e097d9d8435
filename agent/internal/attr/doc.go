// Package attr defines attribute handles: the unit the stabilization engine
// operates on.
//
// A Handle pairs a weak owner reference (Ref) with an Accessor capability
// bound to one attribute location (a struct field or a named float
// parameter) and carries the engine's bookkeeping: the raw baseline last
// set by someone else and the value the engine itself last applied.
// Accessors never hold the owner; it is resolved through the Ref on every
// use, so a destroyed or collected owner turns the handle inert instead of
// failing.
//
// A Registry is the ordered handle list produced by discovery. Its
// membership never changes after construction.
package attr
