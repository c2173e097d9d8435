package sim

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/obsidianstack/rateboost/agent/internal/attr"
	"github.com/obsidianstack/rateboost/agent/internal/graph"
)

// ErrTargetNotFound means the scene has no node with the chosen name, so
// the attach trigger never fires.
var ErrTargetNotFound = errors.New("sim: chosen target not found")

// Scene is the YAML scene description.
type Scene struct {
	// Chosen is the name of the node the host selects for boosting.
	Chosen  string       `yaml:"chosen"`
	Nodes   []NodeSpec   `yaml:"nodes"`
	Drivers []DriverSpec `yaml:"drivers"`
}

// NodeSpec describes one node and its subtree.
type NodeSpec struct {
	Name       string          `yaml:"name"`
	Inactive   bool            `yaml:"inactive"`
	Components []ComponentSpec `yaml:"components"`
	Children   []NodeSpec      `yaml:"children"`
}

// ComponentSpec describes one component.
//
// kind mover uses speed/acceleration/turn_rate; animator uses
// playback_speed and params; domain kinds (enemy_controller, ai_brain,
// health) take field values by Go field name.
type ComponentSpec struct {
	Kind          string             `yaml:"kind"`
	Speed         float64            `yaml:"speed"`
	Acceleration  float64            `yaml:"acceleration"`
	TurnRate      float64            `yaml:"turn_rate"`
	PlaybackSpeed float64            `yaml:"playback_speed"`
	Params        []ParamSpec        `yaml:"params"`
	Fields        map[string]float64 `yaml:"fields"`
}

// ParamSpec is one declared animator float parameter.
type ParamSpec struct {
	Name  string  `yaml:"name"`
	Value float64 `yaml:"value"`
}

// DriverSpec is one scripted host write.
type DriverSpec struct {
	// Node is the target node name.
	Node string `yaml:"node"`
	// Kind selects the first component of that kind on the node.
	Kind string `yaml:"kind"`
	// Attribute is a Go field name (case-insensitive) or animator
	// parameter name.
	Attribute string  `yaml:"attribute"`
	Value     float64 `yaml:"value"`
	// Every repeats the write every N ticks.
	Every int `yaml:"every"`
	// At performs the action once at tick N.
	At int `yaml:"at"`
	// Action is set (default) or destroy.
	Action string `yaml:"action"`
}

// LoadScene reads and parses a scene file.
func LoadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sim: read scene: %w", err)
	}
	return ParseScene(data)
}

// ParseScene parses scene YAML and validates it.
func ParseScene(data []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("sim: parse scene: %w", err)
	}
	if len(s.Nodes) == 0 {
		return nil, errors.New("sim: scene has no nodes")
	}
	for i, d := range s.Drivers {
		if d.Node == "" {
			return nil, fmt.Errorf("sim: drivers[%d]: node is required", i)
		}
		if d.Every <= 0 && d.At <= 0 {
			return nil, fmt.Errorf("sim: drivers[%d]: one of every or at is required", i)
		}
		switch d.Action {
		case "", "set":
			if d.Kind == "" || d.Attribute == "" {
				return nil, fmt.Errorf("sim: drivers[%d]: set needs kind and attribute", i)
			}
		case "destroy":
		default:
			return nil, fmt.Errorf("sim: drivers[%d]: unknown action %q", i, d.Action)
		}
	}
	return &s, nil
}

// Build instantiates the scene graph under a root node named "scene".
func (s *Scene) Build() (*graph.Node, error) {
	root := graph.NewNode("scene")
	for _, n := range s.Nodes {
		if err := buildNode(root, n); err != nil {
			return nil, err
		}
	}
	return root, nil
}

func buildNode(parent *graph.Node, spec NodeSpec) error {
	n := parent.AddChild(graph.NewNode(spec.Name))
	n.Active = !spec.Inactive
	for _, c := range spec.Components {
		v, err := buildComponent(c)
		if err != nil {
			return fmt.Errorf("sim: node %q: %w", spec.Name, err)
		}
		n.AddComponent(v)
	}
	for _, child := range spec.Children {
		if err := buildNode(n, child); err != nil {
			return err
		}
	}
	return nil
}

func buildComponent(c ComponentSpec) (any, error) {
	switch c.Kind {
	case "mover":
		return &graph.Mover{Speed: c.Speed, Acceleration: c.Acceleration, TurnRate: c.TurnRate}, nil
	case "animator":
		a := graph.NewAnimator(c.PlaybackSpeed)
		for _, p := range c.Params {
			a.DeclareFloat(p.Name, p.Value)
		}
		return a, nil
	}
	ctor, ok := kinds[c.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown component kind %q", c.Kind)
	}
	v := ctor()
	names := make([]string, 0, len(c.Fields))
	for name := range c.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		acc, err := attr.FieldByName(v, name, true)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.Kind, err)
		}
		if err := acc.Write(v, c.Fields[name]); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", c.Kind, name, err)
		}
	}
	return v, nil
}
