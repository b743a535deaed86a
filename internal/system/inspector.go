package system

import (
	"time"

	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/l1jgo/engine/internal/core/event"
	"github.com/l1jgo/engine/internal/inspector"
)

// InspectorSystem applies queued editor requests on the game goroutine.
// Phase 0 (Input).
type InspectorSystem struct {
	world      *ecs.World
	bus        *event.Bus
	server     *inspector.Server
	maxPerTick int
}

func NewInspectorSystem(world *ecs.World, bus *event.Bus, server *inspector.Server, maxPerTick int) *InspectorSystem {
	if maxPerTick <= 0 {
		maxPerTick = 32
	}
	return &InspectorSystem{world: world, bus: bus, server: server, maxPerTick: maxPerTick}
}

func (s *InspectorSystem) Name() string { return "inspector" }

func (s *InspectorSystem) Input(_ time.Duration) error {
	s.server.Drain(s.world, s.bus, s.maxPerTick)
	return nil
}
