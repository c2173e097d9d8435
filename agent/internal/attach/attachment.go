package attach

import (
	"log/slog"
	"sync"
	"time"
	"weak"

	"github.com/obsidianstack/rateboost/agent/internal/graph"
	"github.com/obsidianstack/rateboost/agent/internal/stabilize"
	"github.com/obsidianstack/rateboost/pkg/types"
)

// Attachment is one boosted target.
type Attachment struct {
	id     string
	key    weak.Pointer[graph.Node]
	target string
	engine *stabilize.Engine
	log    *slog.Logger

	mu         sync.Mutex
	cadence    types.Cadence
	attachedAt time.Time
	lastPass   time.Time
	passes     int
}

// ID is the attachment's UUIDv7.
func (a *Attachment) ID() string { return a.id }

// Target is the path of the target node at attach time.
func (a *Attachment) Target() string { return a.target }

// Engine exposes the underlying stabilization engine.
func (a *Attachment) Engine() *stabilize.Engine { return a.engine }

// Cadence returns the current cadence.
func (a *Attachment) Cadence() types.Cadence {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cadence
}

// run executes a pass if one is due at now and reports whether it did.
// The first call is the activation pass and always runs.
func (a *Attachment) run(now time.Time) bool {
	a.mu.Lock()
	cad := a.cadence
	first := a.passes == 0
	due := first
	if !first {
		switch cad.Mode {
		case types.CadenceEveryTick:
			due = true
		case types.CadencePeriodic:
			due = cad.Interval > 0 && now.Sub(a.lastPass) >= cad.Interval
		}
	}
	if !due {
		a.mu.Unlock()
		return false
	}
	a.lastPass = now
	a.passes++
	a.mu.Unlock()

	var rep stabilize.Report
	if cad.Mode == types.CadenceEveryTick {
		rep = a.engine.Tick()
	} else {
		rep = a.engine.Apply()
	}
	if rep.Skipped > 0 {
		a.log.Debug("attach: pass skipped handles",
			"id", a.id, "skipped", rep.Skipped, "err", rep.Err())
	}
	if rep.Rebased > 0 {
		a.log.Debug("attach: external writes adopted", "id", a.id, "rebased", rep.Rebased)
	}
	return true
}

func (a *Attachment) reconfigure(s Settings) error {
	if err := a.engine.SetFactor(s.Factor); err != nil {
		return err
	}
	a.engine.SetCeilings(s.Ceilings)
	a.mu.Lock()
	a.cadence = s.Cadence
	a.mu.Unlock()
	return nil
}

// Status returns the attachment state in wire form.
func (a *Attachment) Status() types.AttachmentStatus {
	handles, counters := a.engine.Status()
	a.mu.Lock()
	defer a.mu.Unlock()
	return types.AttachmentStatus{
		ID:         a.id,
		Target:     a.target,
		Factor:     a.engine.Factor(),
		Cadence:    a.cadence.String(),
		AttachedAt: a.attachedAt.UTC(),
		LastPass:   a.lastPass.UTC(),
		Counters:   counters,
		Handles:    handles,
	}
}
