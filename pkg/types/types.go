package types

import (
	"fmt"
	"time"
)

// CadenceMode selects how often an attachment re-derives its attributes.
type CadenceMode string

const (
	// CadenceEveryTick runs the rebase-and-reapply pass on every host tick.
	CadenceEveryTick CadenceMode = "every_tick"
	// CadencePeriodic re-applies the discovery-time baseline every Interval.
	// An Interval of zero applies once and never again.
	CadencePeriodic CadenceMode = "periodic"
)

// Cadence is the scheduling half of the attach configuration surface.
type Cadence struct {
	Mode     CadenceMode   `json:"mode"`
	Interval time.Duration `json:"interval"`
}

// EveryTick returns the continuous cadence.
func EveryTick() Cadence { return Cadence{Mode: CadenceEveryTick} }

// Every returns a periodic cadence. Every(0) means apply once.
func Every(d time.Duration) Cadence { return Cadence{Mode: CadencePeriodic, Interval: d} }

// Once returns the apply-once cadence.
func Once() Cadence { return Every(0) }

// Validate reports whether the cadence is usable.
func (c Cadence) Validate() error {
	switch c.Mode {
	case CadenceEveryTick:
		return nil
	case CadencePeriodic:
		if c.Interval < 0 {
			return fmt.Errorf("cadence: negative interval %v", c.Interval)
		}
		return nil
	default:
		return fmt.Errorf("cadence: unknown mode %q", c.Mode)
	}
}

func (c Cadence) String() string {
	switch {
	case c.Mode == CadencePeriodic && c.Interval == 0:
		return "once"
	case c.Mode == CadencePeriodic:
		return "every " + c.Interval.String()
	default:
		return string(c.Mode)
	}
}

// Handle states reported in HandleStatus.State.
const (
	HandleUninitialized = "uninitialized"
	HandleStable        = "stable"
	HandleInert         = "inert"
)

// HandleStatus is the bookkeeping of one attribute handle.
type HandleStatus struct {
	Owner     string  `json:"owner"`
	Attribute string  `json:"attribute"`
	Class     string  `json:"class"`
	State     string  `json:"state"`
	Raw       float64 `json:"raw"`
	Applied   float64 `json:"applied"`
}

// Counters are cumulative per-attachment pass statistics.
type Counters struct {
	Passes       uint64 `json:"passes"`
	Writes       uint64 `json:"writes"`
	Rebases      uint64 `json:"rebases"`
	AccessErrors uint64 `json:"access_errors"`
}

// AttachmentStatus describes one live attachment.
type AttachmentStatus struct {
	ID         string         `json:"id"`
	Target     string         `json:"target"`
	Factor     float64        `json:"factor"`
	Cadence    string         `json:"cadence"`
	AttachedAt time.Time      `json:"attached_at"`
	LastPass   time.Time      `json:"last_pass"`
	Counters   Counters       `json:"counters"`
	Handles    []HandleStatus `json:"handles"`
}

// Snapshot is the full state of an attach manager at one instant.
type Snapshot struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Attachments []AttachmentStatus `json:"attachments"`
}
