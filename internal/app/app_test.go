package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/l1jgo/engine/internal/component"
	"github.com/l1jgo/engine/internal/config"
	"github.com/l1jgo/engine/internal/core/ecs"
	coresys "github.com/l1jgo/engine/internal/core/system"
	"github.com/l1jgo/engine/internal/persist"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Scripting.Dir = t.TempDir()
	cfg.Engine.FixedStep = 10 * time.Millisecond
	return cfg
}

func newEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()
	eng, cleanup, err := InitializeEngine(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return eng
}

func TestInitializeEngineDefaults(t *testing.T) {
	eng := newEngine(t, testConfig(t))
	assert.Nil(t, eng.Store)
	assert.Nil(t, eng.Inspector)
	assert.Nil(t, eng.Watcher)
	assert.Nil(t, eng.Autosave)

	for p, want := range map[coresys.Phase][]string{
		coresys.PhasePreUpdate:   {"events"},
		coresys.PhaseFixedUpdate: {"movement"},
		coresys.PhaseUpdate:      {"script"},
		coresys.PhasePostUpdate:  {"lifetime"},
		coresys.PhaseDraw:        {"render"},
		coresys.PhaseCleanup:     {"cleanup"},
	} {
		order, err := eng.Scheduler.Order(p)
		require.NoError(t, err)
		assert.Equal(t, want, order, p.String())
	}
	assert.Equal(t, 0, eng.Scheduler.Len(coresys.PhaseInput))
	assert.Equal(t, 0, eng.Scheduler.Len(coresys.PhasePersist))
}

func TestLoadSceneAndTick(t *testing.T) {
	eng := newEngine(t, testConfig(t))
	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
entities:
  - name: mover
    components:
      Transform: {position: [0, 0], scale: [1, 1]}
      Velocity: {linear: [1, 0]}
  - name: spark
    components:
      Lifetime: {remaining: 0.015}
`), 0o644))

	ids, err := eng.LoadScene(path)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	require.NoError(t, eng.Tick(20*time.Millisecond))
	assert.Equal(t, uint64(1), eng.Ticks())
	tr, err := ecs.Get[component.Transform](eng.World, ids[0])
	require.NoError(t, err)
	assert.InDelta(t, 0.02, tr.Position.X, 1e-9, "two fixed steps of 10ms")
	assert.False(t, eng.World.Alive(ids[1]), "expired and cleaned up")

	_, err = eng.LoadScene(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRestoreLatestWithoutStore(t *testing.T) {
	eng := newEngine(t, testConfig(t))
	n, err := eng.RestoreLatest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	eng.Shutdown(context.Background())
}

func TestScheduleFromConfig(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Scripting.Dir, "main.lua"), []byte(`
paused = true
calls = 0
function on_update() calls = calls + 1 end
`), 0o644))
	cfg.Schedule = []config.ScheduleEntry{
		{Phase: "update", System: "script", RunIf: "not paused"},
	}
	eng := newEngine(t, cfg)

	require.NoError(t, eng.Tick(time.Millisecond))
	require.NoError(t, eng.Scripts.DoString(`assert(calls == 0); paused = false`))
	require.NoError(t, eng.Tick(time.Millisecond))
	require.NoError(t, eng.Scripts.DoString(`assert(calls == 1)`))
}

func TestScheduleErrors(t *testing.T) {
	sched := coresys.NewScheduler(coresys.OrderGraph, nil)
	prio := 0.1
	cases := [][]config.ScheduleEntry{
		{{Phase: "later", System: "x"}},
		{{Phase: "update", System: ""}},
		{{Phase: "update", System: "x", RunIf: "not paused"}},
	}
	for _, entries := range cases {
		assert.Error(t, ApplySchedule(sched, nil, entries))
	}
	require.NoError(t, ApplySchedule(sched, nil, []config.ScheduleEntry{
		{Phase: "update", System: "x", Priority: &prio, Before: []string{"y"}},
	}))
}

func TestCycleInConfigFailsAtBoot(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engine.Ordering = "graph"
	cfg.Schedule = []config.ScheduleEntry{
		{Phase: "cleanup", System: "cleanup", After: []string{"cleanup2"}},
	}
	// Edges to unregistered names are ignored, so this boots.
	newEngine(t, cfg)

	cfg = testConfig(t)
	cfg.Engine.Ordering = "graph"
	cfg.Schedule = []config.ScheduleEntry{
		{Phase: "input", System: "inspector", Before: []string{"scene_reload"}},
		{Phase: "input", System: "scene_reload", Before: []string{"inspector"}},
	}
	cfg.Inspector.Enabled = true
	cfg.Inspector.BindAddress = "127.0.0.1:0"
	cfg.Scene.Path = "unused.yaml"
	cfg.Scene.Watch = true
	_, _, err := InitializeEngine(context.Background(), cfg, zap.NewNop())
	assert.ErrorIs(t, err, coresys.ErrCyclicOrdering)
}

func TestInvalidOrderingStrategy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engine.Ordering = "chaos"
	_, _, err := InitializeEngine(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

// memSnapshots keeps snapshots in insertion order, like the database repo.
type memSnapshots struct {
	rows []persist.SnapshotRow
	next int64
}

func (m *memSnapshots) Save(_ context.Context, _ string, tick uint64, entities int, payload []byte) (int64, error) {
	m.next++
	m.rows = append(m.rows, persist.SnapshotRow{ID: m.next, Tick: tick, Entities: entities, Payload: append([]byte(nil), payload...)})
	return m.next, nil
}

func (m *memSnapshots) Prune(_ context.Context, _ string, keep int) (int64, error) {
	if keep <= 0 || len(m.rows) <= keep {
		return 0, nil
	}
	n := len(m.rows) - keep
	m.rows = m.rows[n:]
	return int64(n), nil
}

func (m *memSnapshots) Latest(context.Context, string) (*persist.SnapshotRow, error) {
	if len(m.rows) == 0 {
		return nil, persist.ErrNoSnapshot
	}
	row := m.rows[len(m.rows)-1]
	return &row, nil
}

func (m *memSnapshots) ticks() []uint64 {
	out := make([]uint64, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r.Tick)
	}
	return out
}

func writeScene(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

const playerScene = `
entities:
  - name: player
    components:
      Transform: {position: [1, 2], scale: [1, 1]}
`

// liveNames lists the Name of every entity not waiting for destruction.
func liveNames(eng *Engine) []string {
	q := ecs.NewQuery(ecs.ID[component.Name](eng.World)).Exclude(ecs.ID[ecs.DestroyTag](eng.World))
	var out []string
	for _, id := range eng.World.Collect(q) {
		if n, err := ecs.Get[component.Name](eng.World, id); err == nil {
			out = append(out, n.Value)
		}
	}
	return out
}

func TestAutosaveTicksGrowAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	store := &memSnapshots{}
	path := filepath.Join(t.TempDir(), "scene.yaml")
	writeScene(t, path, playerScene)
	boot := func() *Engine {
		cfg := testConfig(t)
		cfg.Scene.Path = path
		cfg.Autosave.IntervalTicks = 2
		cfg.Autosave.Keep = 0
		eng := newEngine(t, cfg)
		eng.UseStore(store)
		require.Equal(t, []string{"autosave"}, mustOrder(t, eng, coresys.PhasePersist))
		return eng
	}

	eng := boot()
	restored, spawned, err := eng.LoadWorld(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, restored)
	assert.Equal(t, 1, spawned)
	for i := 0; i < 5; i++ {
		require.NoError(t, eng.Tick(time.Millisecond))
	}
	eng.Shutdown(ctx)
	assert.Equal(t, []uint64{2, 4, 5}, store.ticks())

	eng = boot()
	restored, spawned, err = eng.LoadWorld(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, restored)
	assert.Equal(t, 0, spawned)
	assert.Equal(t, uint64(5), eng.Autosave.Tick())
	for i := 0; i < 3; i++ {
		require.NoError(t, eng.Tick(time.Millisecond))
	}
	eng.Shutdown(ctx)
	assert.Equal(t, []uint64{2, 4, 5, 6, 8, 8}, store.ticks())

	row, err := store.Latest(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(6), row.ID, "the next boot restores the last save")
	assert.Equal(t, []string{"player"}, liveNames(eng))
}

func TestRestoredSceneStillHotReloads(t *testing.T) {
	ctx := context.Background()
	store := &memSnapshots{}
	path := filepath.Join(t.TempDir(), "scene.yaml")
	writeScene(t, path, playerScene)

	cfg := testConfig(t)
	cfg.Scene.Path = path
	first := newEngine(t, cfg)
	first.UseStore(store)
	_, _, err := first.LoadWorld(ctx)
	require.NoError(t, err)
	first.Shutdown(ctx)

	cfg = testConfig(t)
	cfg.Scene.Path = path
	cfg.Scene.Watch = true
	eng := newEngine(t, cfg)
	require.NotNil(t, eng.Watcher)
	eng.UseStore(store)
	restored, _, err := eng.LoadWorld(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, restored)
	require.Equal(t, []string{"player"}, liveNames(eng))

	writeScene(t, path, `
entities:
  - name: enemy
    components:
      Transform: {position: [5, 5], scale: [1, 1]}
`)
	require.Eventually(t, func() bool {
		if err := eng.Tick(time.Millisecond); err != nil {
			return false
		}
		names := liveNames(eng)
		return len(names) == 1 && names[0] == "enemy"
	}, 5*time.Second, 10*time.Millisecond, "restored scene entities are replaced on reload")
}

func mustOrder(t *testing.T, eng *Engine, p coresys.Phase) []string {
	t.Helper()
	order, err := eng.Scheduler.Order(p)
	require.NoError(t, err)
	return order
}
