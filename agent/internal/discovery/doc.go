// Package discovery walks a host object graph once and produces the
// attribute registry the stabilization engine works on.
//
// Three sources of handles, in this order:
//
//  1. Known carriers. Every graph.Mover contributes Speed, Acceleration and
//     TurnRate; every graph.Animator contributes PlaybackSpeed. No name
//     matching is involved because the carrier shape is fixed.
//  2. Animator parameters. Declared named float parameters whose name
//     contains a parameter token ("speed" by default) are accessed by key.
//  3. The first domain component. The first non-carrier component whose
//     type name contains a type token ("enemy", "ai", plus an optional mod
//     token) has its float fields scanned, exported or not and including
//     fields promoted from embedded structs; fields whose
//     name contains a field token ("speed", "move") become handles. Only the
//     first such component in the graph is used.
//
// Token matching is case-insensitive (Unicode case folding). A candidate
// that cannot be read is dropped and discovery continues; an empty registry
// is a valid result.
package discovery
