package system

import (
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/engine/internal/component"
	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/l1jgo/engine/internal/core/event"
	"github.com/l1jgo/engine/internal/scene"
)

// SceneReloadSystem replaces the entities of a scene file when the watcher
// reports it changed. Old entities go through the destroy queue, so they
// stay visible (tagged) until this tick's cleanup.
// Phase 0 (Input).
type SceneReloadSystem struct {
	world   *ecs.World
	bus     *event.Bus
	changed <-chan string
	log     *zap.Logger
}

func NewSceneReloadSystem(world *ecs.World, bus *event.Bus, changed <-chan string, log *zap.Logger) *SceneReloadSystem {
	return &SceneReloadSystem{world: world, bus: bus, changed: changed, log: log}
}

func (s *SceneReloadSystem) Name() string { return "scene_reload" }

func (s *SceneReloadSystem) Input(_ time.Duration) error {
	for {
		select {
		case path := <-s.changed:
			s.reload(path)
		default:
			return nil
		}
	}
}

// reload keeps the old entities when the new file does not parse; a broken
// save in an editor should not empty the scene.
func (s *SceneReloadSystem) reload(path string) {
	f, err := scene.Load(path)
	if err != nil {
		s.log.Warn("scene reload skipped", zap.String("path", path), zap.Error(err))
		return
	}
	q := ecs.NewQuery(ecs.ID[component.SceneRef](s.world)).Exclude(ecs.ID[ecs.DestroyTag](s.world))
	var stale []ecs.EntityID
	for _, id := range s.world.Collect(q) {
		ref, err := ecs.Get[component.SceneRef](s.world, id)
		if err == nil && samePath(ref.Path, path) {
			stale = append(stale, id)
		}
	}
	spawned, err := scene.Spawn(s.world, f, path)
	if err != nil {
		s.log.Warn("scene reload failed", zap.String("path", path), zap.Error(err))
		return
	}
	for _, id := range stale {
		if err := s.world.MarkForDestruction(id); err != nil {
			s.log.Warn("scene reload destroy", zap.Stringer("entity", id), zap.Error(err))
		}
	}
	event.Emit(s.bus, event.SceneLoaded{Path: path, Entities: len(spawned), Reload: true})
	s.log.Info("scene reloaded", zap.String("path", path), zap.Int("entities", len(spawned)), zap.Int("replaced", len(stale)))
}

// samePath compares scene paths after resolving them, since the watcher
// reports absolute paths while config may hold relative ones.
func samePath(a, b string) bool {
	if a == b {
		return true
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
