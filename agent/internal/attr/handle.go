package attr

import (
	"math"
	"weak"

	"github.com/obsidianstack/rateboost/agent/internal/graph"
	"github.com/obsidianstack/rateboost/pkg/types"
)

// Class groups attributes for clamping and reporting.
type Class string

const (
	ClassSpeed         Class = "speed"
	ClassAcceleration  Class = "acceleration"
	ClassTurnRate      Class = "turn_rate"
	ClassPlaybackSpeed Class = "playback_speed"
	ClassAnimParam     Class = "anim_param"
	ClassCustom        Class = "custom"
)

// Ref is a non-owning reference to the object holding an attribute.
type Ref interface {
	// Resolve returns the owner value, or false once the owner has been
	// destroyed or collected.
	Resolve() (any, bool)
}

type weakRef struct {
	p weak.Pointer[graph.Component]
}

// Weak returns a Ref to c that does not keep c reachable.
func Weak(c *graph.Component) Ref {
	return weakRef{p: weak.Make(c)}
}

func (r weakRef) Resolve() (any, bool) {
	c := r.p.Value()
	if c == nil || !c.Alive() {
		return nil, false
	}
	return c.Value(), true
}

// Handle is one rate attribute plus the engine's bookkeeping for it.
type Handle struct {
	owner    Ref
	label    string
	accessor Accessor
	class    Class

	raw        float64
	applied    float64 // value as stored by the owner
	target     float64 // derived value applied was produced from
	hasApplied bool
	inert      bool
}

// NewHandle returns an uninitialized handle whose baseline is raw.
func NewHandle(owner Ref, label string, class Class, acc Accessor, raw float64) *Handle {
	return &Handle{owner: owner, label: label, accessor: acc, class: class, raw: raw}
}

func (h *Handle) Owner() string { return h.label }
func (h *Handle) Attribute() string { return h.accessor.Name() }
func (h *Handle) Class() Class { return h.class }

// Raw is the last baseline believed to have been set by someone else.
func (h *Handle) Raw() float64 { return h.raw }

// Applied is the value the engine last left in the attribute, as the owner
// stored it, and whether there is one.
func (h *Handle) Applied() (float64, bool) { return h.applied, h.hasApplied }

// Inert reports whether the owner is known to be gone.
func (h *Handle) Inert() bool { return h.inert }

// State is one of types.HandleUninitialized, HandleStable or HandleInert.
func (h *Handle) State() string {
	switch {
	case h.inert:
		return types.HandleInert
	case h.hasApplied:
		return types.HandleStable
	default:
		return types.HandleUninitialized
	}
}

// Resolve returns the live owner. A handle whose owner is gone becomes
// permanently inert.
func (h *Handle) Resolve() (any, bool) {
	if h.inert {
		return nil, false
	}
	owner, ok := h.owner.Resolve()
	if !ok {
		h.inert = true
		return nil, false
	}
	return owner, true
}

// Read reads the attribute from owner, wrapping failures in AccessError.
func (h *Handle) Read(owner any) (float64, error) {
	v, err := h.accessor.Read(owner)
	if err != nil {
		return 0, &AccessError{Attribute: h.Attribute(), Op: "read", Err: err}
	}
	return v, nil
}

// Write writes v to the attribute on owner and returns the value the owner
// actually holds afterwards, which differs from v for narrower field types
// such as float32. Failures are wrapped in AccessError.
func (h *Handle) Write(owner any, v float64) (float64, error) {
	if err := h.accessor.Write(owner, v); err != nil {
		return 0, &AccessError{Attribute: h.Attribute(), Op: "write", Err: err}
	}
	stored, err := h.accessor.Read(owner)
	if err != nil {
		// The write went through; v is the best estimate of what it left.
		return v, nil
	}
	return stored, nil
}

// Rebase records v as the externally set baseline.
func (h *Handle) Rebase(v float64) { h.raw = v }

// MarkApplied records that target was derived and stored as stored.
func (h *Handle) MarkApplied(target, stored float64) {
	h.target = target
	h.applied = stored
	h.hasApplied = true
}

// Holds reports whether current is the engine's own stored result for
// target, so no write is needed.
func (h *Handle) Holds(current, target, eps float64) bool {
	return h.hasApplied && h.target == target && math.Abs(current-h.applied) <= eps
}

// Status returns the handle bookkeeping in wire form.
func (h *Handle) Status() types.HandleStatus {
	return types.HandleStatus{
		Owner:     h.label,
		Attribute: h.Attribute(),
		Class:     string(h.class),
		State:     h.State(),
		Raw:       h.raw,
		Applied:   h.applied,
	}
}
