package discovery_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/obsidianstack/rateboost/agent/internal/attr"
	"github.com/obsidianstack/rateboost/agent/internal/discovery"
	"github.com/obsidianstack/rateboost/agent/internal/graph"
)

type EnemyAI struct {
	chaseSpeed  float64
	isHostile   bool
	attackRange float32
	MoveBias    float32
	Steps       int
}

type AIPatrol struct {
	patrolSpeed float64
}

type UnitBase struct {
	MoveSpeed float64
	Armor     float64
}

type Tuning struct {
	dashSpeed float32
}

type EnemyScout struct {
	UnitBase
	*Tuning
	sprintSpeed float32
}

type Inventory struct {
	CarrySpeed float64
}

type found struct {
	Owner     string
	Attribute string
	Class     attr.Class
	Raw       float64
}

func summarize(reg *attr.Registry) []found {
	var out []found
	for _, h := range reg.Handles() {
		out = append(out, found{h.Owner(), h.Attribute(), h.Class(), h.Raw()})
	}
	return out
}

func TestDiscover_Carriers(t *testing.T) {
	root := graph.NewNode("scene")
	root.AddComponent(&graph.Mover{Speed: 3.5, Acceleration: 8, TurnRate: 120})
	anim := graph.NewAnimator(1)
	anim.DeclareFloat("RunSpeed", 2)
	anim.DeclareFloat("Blend", 0.5)
	anim.DeclareFloat("SPEEDMultiplier", 1)
	root.AddChild(graph.NewNode("body")).AddComponent(anim)

	got := summarize(discovery.Discover(root, discovery.DefaultOptions()))
	want := []found{
		{"scene:Mover", "Speed", attr.ClassSpeed, 3.5},
		{"scene:Mover", "Acceleration", attr.ClassAcceleration, 8},
		{"scene:Mover", "TurnRate", attr.ClassTurnRate, 120},
		{"scene/body:Animator", "PlaybackSpeed", attr.ClassPlaybackSpeed, 1},
		{"scene/body:Animator", "RunSpeed", attr.ClassAnimParam, 2},
		{"scene/body:Animator", "SPEEDMultiplier", attr.ClassAnimParam, 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Discover mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscover_DomainFieldSelectivity(t *testing.T) {
	root := graph.NewNode("scene")
	root.AddComponent(&EnemyAI{chaseSpeed: 4, isHostile: true, attackRange: 2, MoveBias: 0.25, Steps: 3})

	got := summarize(discovery.Discover(root, discovery.DefaultOptions()))
	want := []found{
		{"scene:EnemyAI", "chaseSpeed", attr.ClassCustom, 4},
		{"scene:EnemyAI", "MoveBias", attr.ClassCustom, 0.25},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Discover mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscover_OnlyFirstDomainComponent(t *testing.T) {
	root := graph.NewNode("scene")
	off := root.AddChild(graph.NewNode("first"))
	off.Active = false
	off.AddComponent(&AIPatrol{patrolSpeed: 2})
	root.AddChild(graph.NewNode("second")).AddComponent(&EnemyAI{chaseSpeed: 4})

	got := summarize(discovery.Discover(root, discovery.DefaultOptions()))
	want := []found{{"scene/first:AIPatrol", "patrolSpeed", attr.ClassCustom, 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Discover mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscover_PromotedFields(t *testing.T) {
	root := graph.NewNode("scene")
	scout := &EnemyScout{UnitBase: UnitBase{MoveSpeed: 3, Armor: 5}, Tuning: &Tuning{dashSpeed: 9}, sprintSpeed: 6}
	root.AddComponent(scout)

	reg := discovery.Discover(root, discovery.DefaultOptions())
	got := summarize(reg)
	want := []found{
		{"scene:EnemyScout", "MoveSpeed", attr.ClassCustom, 3},
		{"scene:EnemyScout", "dashSpeed", attr.ClassCustom, 9},
		{"scene:EnemyScout", "sprintSpeed", attr.ClassCustom, 6},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Discover mismatch (-want +got):\n%s", diff)
	}

	owner := any(scout)
	if _, err := reg.Handles()[0].Write(owner, 12); err != nil {
		t.Fatalf("write promoted field: %v", err)
	}
	if scout.MoveSpeed != 12 {
		t.Errorf("MoveSpeed: got %v, want 12", scout.MoveSpeed)
	}
}

func TestDiscover_NilEmbeddedPointerDropped(t *testing.T) {
	root := graph.NewNode("scene")
	root.AddComponent(&EnemyScout{UnitBase: UnitBase{MoveSpeed: 3}})

	got := summarize(discovery.Discover(root, discovery.DefaultOptions()))
	want := []found{
		{"scene:EnemyScout", "MoveSpeed", attr.ClassCustom, 3},
		{"scene:EnemyScout", "sprintSpeed", attr.ClassCustom, 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Discover mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscover_TypeTokens(t *testing.T) {
	root := graph.NewNode("scene")
	root.AddComponent(&Inventory{CarrySpeed: 1})

	if n := discovery.Discover(root, discovery.DefaultOptions()).Len(); n != 0 {
		t.Fatalf("default tokens: got %d handles, want 0", n)
	}

	opts := discovery.DefaultOptions()
	opts.TypeTokens = append([]string{"INVENTORY"}, opts.TypeTokens...)
	got := summarize(discovery.Discover(root, opts))
	want := []found{{"scene:Inventory", "CarrySpeed", attr.ClassCustom, 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Discover mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscover_UnexportedDisabledDropsCandidates(t *testing.T) {
	root := graph.NewNode("scene")
	root.AddComponent(&EnemyAI{chaseSpeed: 4, MoveBias: 1})

	opts := discovery.DefaultOptions()
	opts.AllowUnexported = false
	got := summarize(discovery.Discover(root, opts))
	want := []found{{"scene:EnemyAI", "MoveBias", attr.ClassCustom, 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Discover mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscover_SkipsDestroyedAndEmpty(t *testing.T) {
	root := graph.NewNode("scene")
	gone := root.AddChild(graph.NewNode("gone"))
	gone.AddComponent(&graph.Mover{Speed: 1})
	gone.Destroy()

	if n := discovery.Discover(root, discovery.DefaultOptions()).Len(); n != 0 {
		t.Errorf("got %d handles, want 0", n)
	}
	if n := discovery.Discover(nil, discovery.DefaultOptions()).Len(); n != 0 {
		t.Errorf("nil root: got %d handles, want 0", n)
	}
}
