package stabilize

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/obsidianstack/rateboost/agent/internal/attr"
	"github.com/obsidianstack/rateboost/pkg/types"
)

// DefaultEpsilon absorbs float noise from the engine's own write-back.
const DefaultEpsilon = 1e-4

var errNonFinite = errors.New("value is not finite")

// Options configures an Engine.
type Options struct {
	// Factor multiplies every raw baseline. Must be positive.
	Factor float64
	// Epsilon is the absolute tolerance for "same value". Zero means
	// DefaultEpsilon.
	Epsilon float64
	// Ceilings caps the derived value per attribute class.
	Ceilings map[attr.Class]float64
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Result is what a pass did to one handle.
type Result string

const (
	ResultUnchanged Result = "unchanged" // current already matched desired
	ResultWritten   Result = "written"
	ResultSkipped   Result = "skipped" // access failure, retried next pass
	ResultInert     Result = "inert"   // owner gone
)

// Outcome is the per-handle result of one pass.
type Outcome struct {
	Handle  *attr.Handle
	Result  Result
	Rebased bool    // an external write was detected and adopted
	Value   float64 // derived value, when not skipped or inert
	Err     error
}

// Report aggregates one pass.
type Report struct {
	Outcomes []Outcome
	Written  int
	Rebased  int
	Skipped  int
	Inert    int
}

// Err joins the per-handle errors of the pass, or nil.
func (r Report) Err() error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errors.Join(errs...)
}

// Engine applies the factor to one registry.
//
// Tick and Apply are meant to be driven by a single scheduler; Status and
// the setters are safe to call concurrently with them.
type Engine struct {
	mu       sync.Mutex
	handles  []*attr.Handle
	factor   float64
	eps      float64
	ceilings map[attr.Class]float64
	counters types.Counters
	log      *slog.Logger
}

// New returns an Engine over reg.
func New(reg *attr.Registry, opts Options) (*Engine, error) {
	if err := validFactor(opts.Factor); err != nil {
		return nil, err
	}
	if opts.Epsilon < 0 {
		return nil, fmt.Errorf("stabilize: negative epsilon %v", opts.Epsilon)
	}
	e := &Engine{
		handles:  reg.Handles(),
		factor:   opts.Factor,
		eps:      opts.Epsilon,
		ceilings: copyCeilings(opts.Ceilings),
		log:      opts.Logger,
	}
	if e.eps == 0 {
		e.eps = DefaultEpsilon
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	return e, nil
}

// Tick runs the rebase-and-reapply pass over every handle.
func (e *Engine) Tick() Report { return e.pass(true) }

// Apply re-derives every handle from its recorded baseline without
// rebasing against external writes.
func (e *Engine) Apply() Report { return e.pass(false) }

func (e *Engine) pass(rebase bool) Report {
	e.mu.Lock()
	defer e.mu.Unlock()

	rep := Report{Outcomes: make([]Outcome, 0, len(e.handles))}
	for _, h := range e.handles {
		out := e.step(h, rebase)
		rep.Outcomes = append(rep.Outcomes, out)
		switch out.Result {
		case ResultWritten:
			rep.Written++
		case ResultSkipped:
			rep.Skipped++
		case ResultInert:
			rep.Inert++
		}
		if out.Rebased {
			rep.Rebased++
		}
	}

	e.counters.Passes++
	e.counters.Writes += uint64(rep.Written)
	e.counters.Rebases += uint64(rep.Rebased)
	e.counters.AccessErrors += uint64(rep.Skipped)
	return rep
}

func (e *Engine) step(h *attr.Handle, rebase bool) Outcome {
	out := Outcome{Handle: h}

	wasInert := h.Inert()
	owner, ok := h.Resolve()
	if !ok {
		if !wasInert {
			e.log.Info("stabilize: owner gone, handle inert",
				"owner", h.Owner(), "attribute", h.Attribute())
		}
		out.Result = ResultInert
		return out
	}

	current, err := h.Read(owner)
	if err == nil && (math.IsNaN(current) || math.IsInf(current, 0)) {
		err = &attr.AccessError{Attribute: h.Attribute(), Op: "read", Err: errNonFinite}
	}
	if err != nil {
		return e.skip(out, err)
	}

	if rebase {
		applied, set := h.Applied()
		if !set || math.Abs(current-applied) > e.eps {
			h.Rebase(current)
			out.Rebased = set
		}
	}

	desired := e.derive(h)
	out.Result = ResultUnchanged
	stored := current
	if math.Abs(current-desired) > e.eps && !h.Holds(current, desired, e.eps) {
		stored, err = h.Write(owner, desired)
		if err != nil {
			return e.skip(out, err)
		}
		out.Result = ResultWritten
	}
	h.MarkApplied(desired, stored)
	out.Value = desired
	return out
}

func (e *Engine) skip(out Outcome, err error) Outcome {
	e.log.Debug("stabilize: handle skipped",
		"owner", out.Handle.Owner(), "attribute", out.Handle.Attribute(), "err", err)
	out.Result = ResultSkipped
	out.Err = err
	return out
}

func (e *Engine) derive(h *attr.Handle) float64 {
	v := h.Raw() * e.factor
	if c, ok := e.ceilings[h.Class()]; ok && v > c {
		v = c
	}
	return v
}

// Factor returns the current scale factor.
func (e *Engine) Factor() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.factor
}

// SetFactor replaces the scale factor. The next pass derives from the
// unchanged baselines, so the new factor replaces the old one rather than
// stacking on it.
func (e *Engine) SetFactor(f float64) error {
	if err := validFactor(f); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.factor = f
	return nil
}

// SetCeilings replaces the per-class ceilings.
func (e *Engine) SetCeilings(c map[attr.Class]float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ceilings = copyCeilings(c)
}

// Len returns the number of handles, inert ones included.
func (e *Engine) Len() int { return len(e.handles) }

// Status returns per-handle bookkeeping and cumulative counters.
func (e *Engine) Status() ([]types.HandleStatus, types.Counters) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]types.HandleStatus, 0, len(e.handles))
	for _, h := range e.handles {
		out = append(out, h.Status())
	}
	return out, e.counters
}

func validFactor(f float64) error {
	if !(f > 0) || math.IsInf(f, 0) {
		return fmt.Errorf("stabilize: factor must be a positive real, got %v", f)
	}
	return nil
}

func copyCeilings(in map[attr.Class]float64) map[attr.Class]float64 {
	out := make(map[attr.Class]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
