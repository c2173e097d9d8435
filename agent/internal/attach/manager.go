package attach

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"weak"

	"github.com/google/uuid"

	"github.com/obsidianstack/rateboost/agent/internal/attr"
	"github.com/obsidianstack/rateboost/agent/internal/discovery"
	"github.com/obsidianstack/rateboost/agent/internal/graph"
	"github.com/obsidianstack/rateboost/agent/internal/stabilize"
	"github.com/obsidianstack/rateboost/pkg/types"
)

// ErrNoCandidates means discovery found nothing to boost. Nothing is
// registered, so a later Attach retries discovery.
var ErrNoCandidates = errors.New("attach: no candidate attributes found")

// Settings is the per-attachment configuration surface.
type Settings struct {
	Factor   float64
	Cadence  types.Cadence
	Ceilings map[attr.Class]float64
	// Epsilon is fixed at first attach; zero means stabilize.DefaultEpsilon.
	Epsilon float64
}

// Validate reports whether s can be attached with.
func (s Settings) Validate() error {
	if !(s.Factor > 0) {
		return fmt.Errorf("attach: factor must be positive, got %v", s.Factor)
	}
	if err := s.Cadence.Validate(); err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	return nil
}

// Manager tracks attachments by target node.
//
// All exported methods are safe for concurrent use.
type Manager struct {
	mu          sync.Mutex
	attachments map[weak.Pointer[graph.Node]]*Attachment
	order       []*Attachment

	discovery discovery.Options
	now       func() time.Time // injectable for deterministic tests
	log       *slog.Logger
}

// NewManager returns a Manager that discovers with opts.
func NewManager(opts discovery.Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Logger == nil {
		opts.Logger = logger
	}
	return &Manager{
		attachments: make(map[weak.Pointer[graph.Node]]*Attachment),
		discovery:   opts,
		now:         time.Now,
		log:         logger,
	}
}

// Attach boosts target with s. See the package documentation for the
// re-attach rules.
func (m *Manager) Attach(target *graph.Node, s Settings) (*Attachment, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if target == nil || target.Destroyed() {
		return nil, errors.New("attach: target is nil or destroyed")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := weak.Make(target)
	if a, ok := m.attachments[key]; ok {
		if err := a.reconfigure(s); err != nil {
			return nil, err
		}
		m.log.Info("attach: already attached, settings updated",
			"id", a.id, "target", a.target,
			"factor", s.Factor, "cadence", s.Cadence.String())
		return a, nil
	}

	reg := discovery.Discover(target, m.discovery)
	if reg.Len() == 0 {
		m.log.Info("attach: no candidate attributes, engine inert", "target", target.Path())
		return nil, ErrNoCandidates
	}

	eng, err := stabilize.New(reg, stabilize.Options{
		Factor:   s.Factor,
		Epsilon:  s.Epsilon,
		Ceilings: s.Ceilings,
		Logger:   m.log,
	})
	if err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}

	now := m.now()
	a := &Attachment{
		id:         uuid.Must(uuid.NewV7()).String(),
		key:        key,
		target:     target.Path(),
		engine:     eng,
		cadence:    s.Cadence,
		attachedAt: now,
		log:        m.log,
	}
	a.run(now)

	m.attachments[key] = a
	m.order = append(m.order, a)
	m.log.Info("attach: attached",
		"id", a.id, "target", a.target, "handles", reg.Len(),
		"owners", len(reg.Owners()), "factor", s.Factor, "cadence", s.Cadence.String())
	return a, nil
}

// Detach stops boosting target. It reports whether target was attached.
// Values already written stay as they are.
func (m *Manager) Detach(target *graph.Node) bool {
	if target == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attachments[weak.Make(target)]
	if !ok {
		return false
	}
	m.remove(a)
	m.log.Info("attach: detached", "id", a.id, "target", a.target)
	return true
}

// Lookup returns the attachment for target, if any.
func (m *Manager) Lookup(target *graph.Node) (*Attachment, bool) {
	if target == nil {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attachments[weak.Make(target)]
	return a, ok
}

// Len returns the number of live attachments.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

// Tick advances every attachment to now according to its cadence and
// returns how many ran a pass.
func (m *Manager) Tick(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ran int
	for _, a := range append([]*Attachment(nil), m.order...) {
		if t := a.key.Value(); t == nil || t.Destroyed() {
			m.remove(a)
			m.log.Info("attach: target gone, detached", "id", a.id, "target", a.target)
			continue
		}
		if a.run(now) {
			ran++
		}
	}
	return ran
}

// Reconfigure applies s to every live attachment (config hot reload).
func (m *Manager) Reconfigure(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for _, a := range m.order {
		errs = append(errs, a.reconfigure(s))
	}
	return errors.Join(errs...)
}

// Snapshot returns the status of every live attachment in attach order.
func (m *Manager) Snapshot() types.Snapshot {
	m.mu.Lock()
	list := append([]*Attachment(nil), m.order...)
	m.mu.Unlock()

	snap := types.Snapshot{
		GeneratedAt: m.now().UTC(),
		Attachments: make([]types.AttachmentStatus, 0, len(list)),
	}
	for _, a := range list {
		snap.Attachments = append(snap.Attachments, a.Status())
	}
	return snap
}

func (m *Manager) remove(a *Attachment) {
	delete(m.attachments, a.key)
	for i, x := range m.order {
		if x == a {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}
