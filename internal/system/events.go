package system

import (
	"time"

	"github.com/l1jgo/engine/internal/core/event"
)

// EventDispatchSystem rotates the bus buffers and delivers last tick's events.
// Phase 1 (PreUpdate).
type EventDispatchSystem struct {
	bus       *event.Bus
	delivered int
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Name() string { return "events" }

func (s *EventDispatchSystem) PreUpdate(_ time.Duration) error {
	s.bus.SwapBuffers()
	s.delivered += s.bus.DispatchAll()
	return nil
}

// Delivered is the total number of events dispatched so far.
func (s *EventDispatchSystem) Delivered() int { return s.delivered }
