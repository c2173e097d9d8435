package discovery

import (
	"log/slog"
	"reflect"
	"strings"

	"golang.org/x/text/cases"

	"github.com/obsidianstack/rateboost/agent/internal/attr"
	"github.com/obsidianstack/rateboost/agent/internal/graph"
)

// Default token sets.
var (
	DefaultTypeTokens  = []string{"enemy", "ai"}
	DefaultFieldTokens = []string{"speed", "move"}
	DefaultParamTokens = []string{"speed"}
)

// Options tunes the name heuristics.
type Options struct {
	// TypeTokens select the domain component whose fields are scanned.
	TypeTokens []string
	// FieldTokens select float fields on the domain component.
	FieldTokens []string
	// ParamTokens select named float parameters on animators.
	ParamTokens []string
	// AllowUnexported lets field accessors reach unexported fields.
	AllowUnexported bool
	// Logger receives debug output for dropped candidates. Nil means
	// slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the stock token sets with unexported access on.
func DefaultOptions() Options {
	return Options{
		TypeTokens:      DefaultTypeTokens,
		FieldTokens:     DefaultFieldTokens,
		ParamTokens:     DefaultParamTokens,
		AllowUnexported: true,
	}
}

type carrierField struct {
	name  string
	class attr.Class
}

var (
	moverFields = []carrierField{
		{"Speed", attr.ClassSpeed},
		{"Acceleration", attr.ClassAcceleration},
		{"TurnRate", attr.ClassTurnRate},
	}
	animatorFields = []carrierField{
		{"PlaybackSpeed", attr.ClassPlaybackSpeed},
	}
)

type discoverer struct {
	opts    Options
	fold    cases.Caser
	log     *slog.Logger
	handles []*attr.Handle
}

// Discover builds the registry for the graph rooted at root.
func Discover(root *graph.Node, opts Options) *attr.Registry {
	d := &discoverer{opts: opts, fold: cases.Fold(), log: opts.Logger}
	if d.log == nil {
		d.log = slog.Default()
	}
	if root == nil {
		return attr.NewRegistry(nil)
	}

	for _, c := range graph.Enumerate[*graph.Mover](root) {
		d.carrier(c, moverFields)
	}
	for _, c := range graph.Enumerate[*graph.Animator](root) {
		d.carrier(c, animatorFields)
		d.params(c)
	}
	if c := d.domainComponent(root); c != nil {
		d.custom(c)
	}

	d.log.Debug("discovery: complete",
		"root", root.Path(), "handles", len(d.handles))
	return attr.NewRegistry(d.handles)
}

// carrier records the fixed rate fields of a known carrier.
func (d *discoverer) carrier(c *graph.Component, fields []carrierField) {
	for _, f := range fields {
		acc, err := attr.FieldByName(c.Value(), f.name, d.opts.AllowUnexported)
		if err != nil {
			d.drop(c, f.name, err)
			continue
		}
		d.add(c, f.class, acc)
	}
}

func (d *discoverer) params(c *graph.Component) {
	p, ok := c.Value().(attr.FloatParameters)
	if !ok {
		return
	}
	for _, name := range p.FloatParameters() {
		if d.matches(name, d.opts.ParamTokens) {
			d.add(c, attr.ClassAnimParam, attr.Param(name))
		}
	}
}

// domainComponent returns the first non-carrier component whose type name
// carries a type token, inactive nodes included.
func (d *discoverer) domainComponent(root *graph.Node) *graph.Component {
	for _, c := range graph.Components(root, true) {
		switch c.Value().(type) {
		case *graph.Mover, *graph.Animator:
			continue
		}
		if d.matches(c.TypeName(), d.opts.TypeTokens) {
			return c
		}
	}
	return nil
}

func (d *discoverer) custom(c *graph.Component) {
	t := reflect.TypeOf(c.Value())
	if t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		d.log.Debug("discovery: domain component is not a struct pointer",
			"component", c.Label())
		return
	}
	st := t.Elem()
	for _, sf := range reflect.VisibleFields(st) {
		if sf.Anonymous {
			continue
		}
		switch sf.Type.Kind() {
		case reflect.Float32, reflect.Float64:
		default:
			continue
		}
		if !d.matches(sf.Name, d.opts.FieldTokens) {
			continue
		}
		d.add(c, attr.ClassCustom, attr.Field(st, sf, d.opts.AllowUnexported))
	}
}

// add reads the candidate once and records a handle with that baseline.
func (d *discoverer) add(c *graph.Component, class attr.Class, acc attr.Accessor) {
	v, err := acc.Read(c.Value())
	if err != nil {
		d.drop(c, acc.Name(), err)
		return
	}
	d.handles = append(d.handles, attr.NewHandle(attr.Weak(c), c.Label(), class, acc, v))
}

func (d *discoverer) drop(c *graph.Component, name string, err error) {
	d.log.Debug("discovery: candidate dropped",
		"component", c.Label(), "attribute", name,
		"err", &attr.AccessError{Attribute: name, Op: "read", Err: err})
}

func (d *discoverer) matches(name string, tokens []string) bool {
	folded := d.fold.String(name)
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if strings.Contains(folded, d.fold.String(tok)) {
			return true
		}
	}
	return false
}
