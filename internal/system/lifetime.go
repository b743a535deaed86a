package system

import (
	"time"

	"github.com/l1jgo/engine/internal/component"
	"github.com/l1jgo/engine/internal/core/ecs"
)

// LifetimeSystem counts down Lifetime components and marks expired entities
// for destruction. Matches are snapshotted first because marking adds a
// component while iterating.
// Phase 4 (PostUpdate).
type LifetimeSystem struct {
	world *ecs.World
	query ecs.Query
}

func NewLifetimeSystem(world *ecs.World) *LifetimeSystem {
	return &LifetimeSystem{
		world: world,
		query: ecs.NewQuery(ecs.ID[component.Lifetime](world)).Exclude(ecs.ID[ecs.DestroyTag](world)),
	}
}

func (s *LifetimeSystem) Name() string { return "lifetime" }

func (s *LifetimeSystem) PostUpdate(dt time.Duration) error {
	for _, id := range s.world.Collect(s.query) {
		lt, err := ecs.Get[component.Lifetime](s.world, id)
		if err != nil {
			return err
		}
		lt.Remaining -= dt.Seconds()
		if lt.Remaining > 0 {
			continue
		}
		if err := s.world.MarkForDestruction(id); err != nil {
			return err
		}
	}
	return nil
}
