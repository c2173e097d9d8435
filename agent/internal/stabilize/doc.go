// Package stabilize keeps a scale factor applied to a registry of rate
// attributes while uncoordinated host code keeps writing fresh base values
// into the same attributes.
//
// The engine cannot tell who wrote an attribute last; it only sees the
// current value. Tick resolves this per handle with a rebase-and-reapply
// pass:
//
//	current := read()
//	if never applied || |current - applied| > eps {
//	    raw = current                 // someone else wrote a new baseline
//	}
//	desired := clamp(raw * factor)
//	if |current - desired| > eps {
//	    write(desired)
//	}
//	applied = desired
//
// Observing its own last write leaves raw alone, so repeated ticks never
// compound; a host reset is picked up within one tick. Apply is the
// periodic variant: it skips the rebase and re-derives from the
// discovery-time baseline.
//
// Per-handle failures are reported as Outcomes and never abort a pass. A
// handle whose owner is gone turns inert and is skipped from then on.
package stabilize
