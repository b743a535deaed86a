package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/engine/internal/config"
	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/l1jgo/engine/internal/core/event"
	coresys "github.com/l1jgo/engine/internal/core/system"
	"github.com/l1jgo/engine/internal/inspector"
	"github.com/l1jgo/engine/internal/persist"
	"github.com/l1jgo/engine/internal/scene"
	"github.com/l1jgo/engine/internal/scripting"
	"github.com/l1jgo/engine/internal/system"
)

// SnapshotStore is the persistence the engine restores from and autosaves
// to. *persist.SnapshotRepo implements it.
type SnapshotStore interface {
	system.SnapshotStore
	Latest(ctx context.Context, world string) (*persist.SnapshotRow, error)
}

// Engine owns the world and everything that runs against it. Optional
// services (Inspector, Watcher, Store, Autosave) are nil when disabled.
type Engine struct {
	Config    *config.Config
	Log       *zap.Logger
	Registry  *ecs.Registry
	World     *ecs.World
	Bus       *event.Bus
	Scheduler *coresys.Scheduler
	Scripts   *scripting.Engine
	Inspector *inspector.Server
	Watcher   *scene.Watcher
	Store     SnapshotStore
	Autosave  *system.AutosaveSystem

	ticks uint64
}

func NewEngine(
	cfg *config.Config,
	log *zap.Logger,
	reg *ecs.Registry,
	world *ecs.World,
	bus *event.Bus,
	sched *coresys.Scheduler,
	scripts *scripting.Engine,
	store *persist.SnapshotRepo,
	insp *inspector.Server,
	watcher *scene.Watcher,
) (*Engine, error) {
	e := &Engine{
		Config:    cfg,
		Log:       log,
		Registry:  reg,
		World:     world,
		Bus:       bus,
		Scheduler: sched,
		Scripts:   scripts,
		Inspector: insp,
		Watcher:   watcher,
	}
	e.registerSystems()
	if store != nil {
		e.UseStore(store)
	}
	if err := ApplySchedule(sched, scripts, cfg.Schedule); err != nil {
		return nil, err
	}
	// Surface ordering cycles at boot instead of on the first tick.
	for _, p := range coresys.Phases() {
		if _, err := sched.Order(p); err != nil {
			return nil, fmt.Errorf("phase %s: %w", p, err)
		}
	}
	return e, nil
}

func (e *Engine) registerSystems() {
	// ---- Phase 0: Input ----
	if e.Inspector != nil {
		e.Scheduler.RegisterAll(system.NewInspectorSystem(e.World, e.Bus, e.Inspector, e.Config.Inspector.MaxPerTick))
	}
	if e.Watcher != nil {
		e.Scheduler.RegisterAll(system.NewSceneReloadSystem(e.World, e.Bus, e.Watcher.Changed(), e.Log.Named("scene")))
	}

	// ---- Phase 1: PreUpdate ----
	e.Scheduler.RegisterAll(system.NewEventDispatchSystem(e.Bus))

	// ---- Phase 2-3: FixedUpdate, Update ----
	e.Scheduler.RegisterAll(system.NewMovementSystem(e.World))
	e.Scheduler.RegisterAll(system.NewScriptSystem(e.World, e.Scripts))

	// ---- Phase 4: PostUpdate ----
	e.Scheduler.RegisterAll(system.NewLifetimeSystem(e.World))

	// ---- Phase 5: Draw ----
	e.Scheduler.RegisterAll(system.NewRenderSystem(e.World, system.NewLogSink(e.Log.Named("render"))))

	// ---- Phase 6: Persist (registered by UseStore) ----

	// ---- Phase 7: Cleanup ----
	e.Scheduler.RegisterAll(system.NewCleanupSystem(e.World, e.Bus, e.Log.Named("cleanup")))
}

// UseStore attaches snapshot persistence and registers the autosave system.
func (e *Engine) UseStore(store SnapshotStore) {
	if e.Autosave != nil {
		e.Scheduler.UnregisterAll(e.Autosave)
	}
	e.Store = store
	e.Autosave = system.NewAutosaveSystem(e.World, store, e.Config.Engine.Name,
		e.Config.Autosave.IntervalTicks, e.Config.Autosave.Keep, e.Log.Named("autosave"))
	e.Scheduler.RegisterAll(e.Autosave)
}

// ApplySchedule installs ordering metadata from config entries. A run_if
// string is compiled through the Lua engine.
func ApplySchedule(sched *coresys.Scheduler, scripts *scripting.Engine, entries []config.ScheduleEntry) error {
	for i, ent := range entries {
		p, err := coresys.ParsePhase(ent.Phase)
		if err != nil {
			return fmt.Errorf("schedule[%d]: %w", i, err)
		}
		if ent.System == "" {
			return fmt.Errorf("schedule[%d]: system name required", i)
		}
		m := coresys.DefaultMeta()
		if ent.Priority != nil {
			m.Priority = *ent.Priority
		}
		m.Before = ent.Before
		m.After = ent.After
		if ent.RunIf != "" {
			if scripts == nil {
				return fmt.Errorf("schedule[%d]: run_if needs a script engine", i)
			}
			cond, err := scripts.Condition(ent.RunIf)
			if err != nil {
				return fmt.Errorf("schedule[%d]: %w", i, err)
			}
			m.RunIf = cond
		}
		if err := sched.SetMetaData(p, ent.System, m); err != nil {
			return fmt.Errorf("schedule[%d]: %w", i, err)
		}
	}
	return nil
}

// LoadScene spawns the scene file at path and starts watching it when a
// watcher is configured.
func (e *Engine) LoadScene(path string) ([]ecs.EntityID, error) {
	f, err := scene.Load(path)
	if err != nil {
		return nil, err
	}
	ids, err := scene.Spawn(e.World, f, path)
	if err != nil {
		return nil, fmt.Errorf("spawn %s: %w", path, err)
	}
	event.Emit(e.Bus, event.SceneLoaded{Path: path, Entities: len(ids)})
	e.watchScene(path)
	return ids, nil
}

func (e *Engine) watchScene(path string) {
	if e.Watcher == nil || path == "" {
		return
	}
	if err := e.Watcher.Add(path); err != nil {
		e.Log.Warn("scene watch failed", zap.String("path", path), zap.Error(err))
	}
}

// LoadWorld fills the world at boot: the newest snapshot when one exists,
// otherwise the configured scene. The scene file is watched either way, so
// a reload replaces restored scene entities too.
func (e *Engine) LoadWorld(ctx context.Context) (restored, spawned int, err error) {
	restored, err = e.RestoreLatest(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("restore: %w", err)
	}
	path := e.Config.Scene.Path
	if restored > 0 {
		e.watchScene(path)
		return restored, 0, nil
	}
	if path == "" {
		return 0, 0, nil
	}
	ids, err := e.LoadScene(path)
	if err != nil {
		return 0, 0, fmt.Errorf("load scene: %w", err)
	}
	return 0, len(ids), nil
}

// RestoreLatest spawns the newest stored snapshot for this world. It returns
// 0 and no error when persistence is off or nothing was saved yet.
func (e *Engine) RestoreLatest(ctx context.Context) (int, error) {
	if e.Store == nil {
		return 0, nil
	}
	row, err := e.Store.Latest(ctx, e.Config.Engine.Name)
	if errors.Is(err, persist.ErrNoSnapshot) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	snap, err := scene.UnmarshalJSON(row.Payload)
	if err != nil {
		return 0, err
	}
	ids, err := scene.Restore(e.World, snap)
	if err != nil {
		return 0, fmt.Errorf("restore snapshot %d: %w", row.ID, err)
	}
	if e.Autosave != nil {
		e.Autosave.ResumeFrom(row.Tick)
	}
	e.Log.Info("snapshot restored", zap.Int64("snapshot", row.ID), zap.Uint64("tick", row.Tick), zap.Int("entities", len(ids)))
	return len(ids), nil
}

// Tick runs every phase once. dt is the wall time since the previous tick.
func (e *Engine) Tick(dt time.Duration) error {
	e.ticks++
	return e.Scheduler.Tick(dt)
}

func (e *Engine) Ticks() uint64 { return e.ticks }

// Shutdown writes a final snapshot when autosave is on.
func (e *Engine) Shutdown(ctx context.Context) {
	if e.Autosave != nil {
		e.Autosave.SaveNow(ctx)
	}
}
