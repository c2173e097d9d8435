package attach

import (
	"errors"
	"io"
	"log/slog"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidianstack/rateboost/agent/internal/attr"
	"github.com/obsidianstack/rateboost/agent/internal/discovery"
	"github.com/obsidianstack/rateboost/agent/internal/graph"
	"github.com/obsidianstack/rateboost/pkg/types"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(discovery.DefaultOptions(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.now = func() time.Time { return t0 }
	return m
}

func moverScene(t *testing.T, speed float64) (*graph.Node, *graph.Mover) {
	t.Helper()
	root := graph.NewNode("scene")
	enemy := root.AddChild(graph.NewNode("enemy"))
	mv := &graph.Mover{Speed: speed}
	enemy.AddComponent(mv)
	t.Cleanup(func() { runtime.KeepAlive(root) })
	return enemy, mv
}

func everyTick(f float64) Settings {
	return Settings{Factor: f, Cadence: types.EveryTick()}
}

func TestAttach_ActivationPass(t *testing.T) {
	m := newTestManager(t)
	target, mv := moverScene(t, 3.5)

	a, err := m.Attach(target, everyTick(6))
	require.NoError(t, err)
	assert.Equal(t, 21.0, mv.Speed)
	assert.Equal(t, "scene/enemy", a.Target())

	id, err := uuid.Parse(a.ID())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestAttach_Idempotent(t *testing.T) {
	m := newTestManager(t)
	target, mv := moverScene(t, 2)

	a1, err := m.Attach(target, everyTick(6))
	require.NoError(t, err)
	a2, err := m.Attach(target, Settings{Factor: 1.3, Cadence: types.Every(time.Second)})
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 1, a1.Engine().Len(), "no rediscovery")
	assert.Equal(t, 1.3, a1.Engine().Factor())
	assert.Equal(t, types.Every(time.Second), a1.Cadence())
	assert.Equal(t, 12.0, mv.Speed, "reconfigure alone does not run a pass")

	m.Tick(t0.Add(time.Second))
	assert.InDelta(t, 2.6, mv.Speed, 1e-9)
}

func TestAttach_NoCandidates(t *testing.T) {
	m := newTestManager(t)
	root := graph.NewNode("scene")
	root.AddComponent(&struct{ Name string }{"x"})

	_, err := m.Attach(root, everyTick(6))
	assert.ErrorIs(t, err, ErrNoCandidates)
	assert.Equal(t, 0, m.Len())

	mv := &graph.Mover{Speed: 1}
	root.AddComponent(mv)
	_, err = m.Attach(root, everyTick(6))
	require.NoError(t, err, "a later attach retries discovery")
	assert.Equal(t, 6.0, mv.Speed)
}

func TestAttach_InvalidInput(t *testing.T) {
	m := newTestManager(t)
	target, _ := moverScene(t, 1)

	_, err := m.Attach(target, Settings{Factor: 0, Cadence: types.EveryTick()})
	assert.Error(t, err)
	_, err = m.Attach(target, Settings{Factor: 2, Cadence: types.Cadence{Mode: "sometimes"}})
	assert.Error(t, err)
	_, err = m.Attach(nil, everyTick(2))
	assert.Error(t, err)

	target.Destroy()
	_, err = m.Attach(target, everyTick(2))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoCandidates))
}

func TestTick_EveryTickRebases(t *testing.T) {
	m := newTestManager(t)
	target, mv := moverScene(t, 3.5)
	_, err := m.Attach(target, everyTick(6))
	require.NoError(t, err)

	mv.Speed = 4
	assert.Equal(t, 1, m.Tick(t0.Add(50*time.Millisecond)))
	assert.Equal(t, 24.0, mv.Speed)
	m.Tick(t0.Add(100 * time.Millisecond))
	assert.Equal(t, 24.0, mv.Speed)
}

func TestTick_PeriodicInterval(t *testing.T) {
	m := newTestManager(t)
	target, mv := moverScene(t, 2)
	_, err := m.Attach(target, Settings{Factor: 3, Cadence: types.Every(time.Second)})
	require.NoError(t, err)
	require.Equal(t, 6.0, mv.Speed)

	mv.Speed = 1 // host reset
	assert.Equal(t, 0, m.Tick(t0.Add(500*time.Millisecond)))
	assert.Equal(t, 1.0, mv.Speed)

	assert.Equal(t, 1, m.Tick(t0.Add(time.Second)))
	assert.Equal(t, 6.0, mv.Speed, "periodic passes derive from the discovery baseline")
}

func TestTick_PeriodicOnce(t *testing.T) {
	m := newTestManager(t)
	target, mv := moverScene(t, 2)
	_, err := m.Attach(target, Settings{Factor: 3, Cadence: types.Once()})
	require.NoError(t, err)
	require.Equal(t, 6.0, mv.Speed)

	mv.Speed = 1
	for i := 1; i <= 5; i++ {
		assert.Equal(t, 0, m.Tick(t0.Add(time.Duration(i)*time.Hour)))
	}
	assert.Equal(t, 1.0, mv.Speed)
}

func TestTick_DropsDestroyedTargets(t *testing.T) {
	m := newTestManager(t)
	target, _ := moverScene(t, 2)
	_, err := m.Attach(target, everyTick(2))
	require.NoError(t, err)

	target.Destroy()
	assert.Equal(t, 0, m.Tick(t0.Add(time.Second)))
	assert.Equal(t, 0, m.Len())
}

func TestDetach(t *testing.T) {
	m := newTestManager(t)
	target, mv := moverScene(t, 2)
	_, err := m.Attach(target, everyTick(2))
	require.NoError(t, err)

	assert.True(t, m.Detach(target))
	assert.False(t, m.Detach(target))
	assert.False(t, m.Detach(nil))
	_, ok := m.Lookup(target)
	assert.False(t, ok)

	mv.Speed = 1
	m.Tick(t0.Add(time.Second))
	assert.Equal(t, 1.0, mv.Speed, "detached targets are left alone")
}

func TestReconfigure(t *testing.T) {
	m := newTestManager(t)
	a, _ := moverScene(t, 1)
	b, mb := moverScene(t, 10)
	_, err := m.Attach(a, everyTick(2))
	require.NoError(t, err)
	_, err = m.Attach(b, everyTick(2))
	require.NoError(t, err)

	require.NoError(t, m.Reconfigure(Settings{
		Factor:   4,
		Cadence:  types.EveryTick(),
		Ceilings: map[attr.Class]float64{attr.ClassSpeed: 30},
	}))
	m.Tick(t0.Add(time.Second))
	assert.Equal(t, 30.0, mb.Speed)

	assert.Error(t, m.Reconfigure(Settings{Factor: -1, Cadence: types.EveryTick()}))
}

func TestSnapshot(t *testing.T) {
	m := newTestManager(t)
	target, _ := moverScene(t, 3.5)
	a, err := m.Attach(target, everyTick(6))
	require.NoError(t, err)

	snap := m.Snapshot()
	assert.Equal(t, t0, snap.GeneratedAt)
	require.Len(t, snap.Attachments, 1)

	st := snap.Attachments[0]
	assert.Equal(t, a.ID(), st.ID)
	assert.Equal(t, "scene/enemy", st.Target)
	assert.Equal(t, 6.0, st.Factor)
	assert.Equal(t, "every_tick", st.Cadence)
	assert.Equal(t, t0, st.AttachedAt)
	assert.Equal(t, types.Counters{Passes: 1, Writes: 1}, st.Counters)
	require.Len(t, st.Handles, 1)
	assert.Equal(t, types.HandleStable, st.Handles[0].State)
	assert.Equal(t, 21.0, st.Handles[0].Applied)
}
