package sim

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/obsidianstack/rateboost/agent/internal/attr"
	"github.com/obsidianstack/rateboost/agent/internal/graph"
)

// Host owns a built scene and plays its drivers.
type Host struct {
	Root *graph.Node

	chosen  string
	drivers []DriverSpec
	tick    int
	log     *slog.Logger
}

// NewHost builds s into a Host.
func NewHost(s *Scene, logger *slog.Logger) (*Host, error) {
	root, err := s.Build()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{Root: root, chosen: s.Chosen, drivers: s.Drivers, log: logger}, nil
}

// Target resolves the chosen node, the host's "selected entity".
func (h *Host) Target() (*graph.Node, error) {
	if h.chosen == "" {
		return nil, ErrTargetNotFound
	}
	n := h.Root.Find(h.chosen)
	if n == nil || n.Destroyed() {
		return nil, fmt.Errorf("%w: %q", ErrTargetNotFound, h.chosen)
	}
	return n, nil
}

// Ticks returns the number of completed host ticks.
func (h *Host) Ticks() int { return h.tick }

// Step advances the host by one tick and runs every driver due on it. It
// returns the number of driver actions performed. Drivers whose node or
// component is gone are skipped.
func (h *Host) Step() int {
	h.tick++
	var acted int
	for _, d := range h.drivers {
		if !due(d, h.tick) {
			continue
		}
		if err := h.act(d); err != nil {
			h.log.Debug("sim: driver skipped", "tick", h.tick, "node", d.Node, "err", err)
			continue
		}
		acted++
	}
	return acted
}

func due(d DriverSpec, tick int) bool {
	if d.At > 0 && tick == d.At {
		return true
	}
	return d.Every > 0 && tick%d.Every == 0
}

func (h *Host) act(d DriverSpec) error {
	n := h.Root.Find(d.Node)
	if n == nil || n.Destroyed() {
		return fmt.Errorf("node %q not found", d.Node)
	}
	if d.Action == "destroy" {
		n.Destroy()
		h.log.Info("sim: node destroyed", "tick", h.tick, "node", n.Path())
		return nil
	}

	c := findComponent(n, d.Kind)
	if c == nil {
		return fmt.Errorf("no %s component on %q", d.Kind, d.Node)
	}
	acc, err := resolveAttribute(c.Value(), d.Attribute)
	if err != nil {
		return err
	}
	return acc.Write(c.Value(), d.Value)
}

// Read returns the current value of an attribute, for reporting and tests.
func (h *Host) Read(node, kind, attribute string) (float64, error) {
	n := h.Root.Find(node)
	if n == nil {
		return 0, fmt.Errorf("sim: node %q not found", node)
	}
	c := findComponent(n, kind)
	if c == nil {
		return 0, fmt.Errorf("sim: no %s component on %q", kind, node)
	}
	acc, err := resolveAttribute(c.Value(), attribute)
	if err != nil {
		return 0, err
	}
	return acc.Read(c.Value())
}

func findComponent(n *graph.Node, kind string) *graph.Component {
	for _, c := range graph.Components(n, true) {
		if c.Node() == n && kindOf(c.Value()) == kind {
			return c
		}
	}
	return nil
}

func kindOf(v any) string {
	switch v.(type) {
	case *graph.Mover:
		return "mover"
	case *graph.Animator:
		return "animator"
	case *EnemyController:
		return "enemy_controller"
	case *AIBrain:
		return "ai_brain"
	case *Health:
		return "health"
	}
	return ""
}

// resolveAttribute maps a driver attribute to an accessor: a declared
// animator parameter first, then a struct field matched case-insensitively.
func resolveAttribute(v any, name string) (attr.Accessor, error) {
	if p, ok := v.(attr.FloatParameters); ok {
		for _, declared := range p.FloatParameters() {
			if declared == name {
				return attr.Param(name), nil
			}
		}
	}
	t := reflect.TypeOf(v).Elem()
	f, ok := t.FieldByNameFunc(func(s string) bool {
		return strings.EqualFold(strings.ReplaceAll(s, "_", ""), strings.ReplaceAll(name, "_", ""))
	})
	if !ok {
		return nil, fmt.Errorf("sim: %s has no attribute %q", t.Name(), name)
	}
	return attr.Field(t, f, true), nil
}
