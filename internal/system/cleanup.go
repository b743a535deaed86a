package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/l1jgo/engine/internal/core/event"
)

// CleanupSystem flushes the deferred entity destruction queue at tick end
// and announces every removed entity on the bus.
// Phase 7 (Cleanup).
type CleanupSystem struct {
	world *ecs.World
	bus   *event.Bus
	log   *zap.Logger
}

func NewCleanupSystem(world *ecs.World, bus *event.Bus, log *zap.Logger) *CleanupSystem {
	return &CleanupSystem{world: world, bus: bus, log: log}
}

func (s *CleanupSystem) Name() string { return "cleanup" }

func (s *CleanupSystem) Cleanup(_ time.Duration) error {
	destroyed := s.world.FlushDestroyQueue()
	for _, id := range destroyed {
		event.Emit(s.bus, event.EntityDestroyed{Entity: id})
	}
	if len(destroyed) > 0 {
		s.log.Debug("entities destroyed", zap.Int("count", len(destroyed)), zap.Int("live", s.world.Count()))
	}
	return nil
}
