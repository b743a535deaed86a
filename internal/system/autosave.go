package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/l1jgo/engine/internal/scene"
)

// SnapshotStore is the persistence boundary used by AutosaveSystem.
type SnapshotStore interface {
	Save(ctx context.Context, world string, tick uint64, entities int, payload []byte) (int64, error)
	Prune(ctx context.Context, world string, keep int) (int64, error)
}

// AutosaveSystem captures a world snapshot every interval ticks and writes it
// to the store. Storage failures are logged, not raised: an unavailable
// database must not stop the simulation.
// Phase 6 (Persist).
type AutosaveSystem struct {
	world    *ecs.World
	store    SnapshotStore
	name     string
	interval int
	keep     int
	ticks    uint64
	log      *zap.Logger
}

func NewAutosaveSystem(world *ecs.World, store SnapshotStore, name string, interval, keep int, log *zap.Logger) *AutosaveSystem {
	if interval < 1 {
		interval = 1
	}
	return &AutosaveSystem{world: world, store: store, name: name, interval: interval, keep: keep, log: log}
}

func (s *AutosaveSystem) Name() string { return "autosave" }

// ResumeFrom continues tick numbering from a restored snapshot so saved
// ticks keep growing across restarts.
func (s *AutosaveSystem) ResumeFrom(tick uint64) { s.ticks = tick }

// Tick is the number of Persist calls seen, including a resumed base.
func (s *AutosaveSystem) Tick() uint64 { return s.ticks }

func (s *AutosaveSystem) Persist(_ time.Duration) error {
	s.ticks++
	if s.ticks%uint64(s.interval) != 0 {
		return nil
	}
	s.SaveNow(context.Background())
	return nil
}

// SaveNow writes a snapshot immediately; used on shutdown as well.
func (s *AutosaveSystem) SaveNow(ctx context.Context) {
	snap := scene.Capture(s.world)
	payload, err := scene.MarshalJSON(snap)
	if err != nil {
		s.log.Error("autosave encode failed", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	id, err := s.store.Save(ctx, s.name, s.ticks, len(snap.Entities), payload)
	if err != nil {
		s.log.Error("autosave failed", zap.Error(err))
		return
	}
	if s.keep > 0 {
		if _, err := s.store.Prune(ctx, s.name, s.keep); err != nil {
			s.log.Warn("autosave prune failed", zap.Error(err))
		}
	}
	s.log.Info("autosave complete", zap.Int64("snapshot", id), zap.Int("entities", len(snap.Entities)), zap.Uint64("tick", s.ticks))
}
