package system

import (
	"time"

	"github.com/l1jgo/engine/internal/component"
	"github.com/l1jgo/engine/internal/core/ecs"
)

// MovementSystem integrates Velocity into Transform at the fixed step.
// This is the boundary a physics binding replaces: it only reads and writes
// components through the store.
// Phase 2 (FixedUpdate).
type MovementSystem struct {
	world *ecs.World
}

func NewMovementSystem(world *ecs.World) *MovementSystem {
	return &MovementSystem{world: world}
}

func (s *MovementSystem) Name() string { return "movement" }

func (s *MovementSystem) FixedUpdate(dt time.Duration) error {
	step := dt.Seconds()
	ecs.Each2(s.world, func(_ ecs.EntityID, t *component.Transform, v *component.Velocity) {
		t.Position = t.Position.Add(v.Linear.Scale(step))
		t.Rotation += v.Angular * step
	})
	return nil
}
