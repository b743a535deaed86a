package system

import (
	"fmt"
	"reflect"
	"time"
)

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput       Phase = iota // 0: drain external command queues
	PhasePreUpdate                // 1: process last tick's events
	PhaseFixedUpdate              // 2: physics at the fixed step
	PhaseUpdate                   // 3: game logic
	PhasePostUpdate               // 4: late logic, lifetimes
	PhaseDraw                     // 5: build draw lists for the renderer
	PhasePersist                  // 6: snapshot + batch save
	PhaseCleanup                  // 7: destroy queued entities

	phaseCount
)

var phaseNames = [phaseCount]string{
	"input", "pre_update", "fixed_update", "update", "post_update", "draw", "persist", "cleanup",
}

func (p Phase) String() string {
	if p < 0 || p >= phaseCount {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

func (p Phase) valid() bool { return p >= 0 && p < phaseCount }

// ParsePhase resolves a phase by its config name.
func ParsePhase(s string) (Phase, error) {
	for i, n := range phaseNames {
		if n == s {
			return Phase(i), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownPhase)
}

// Phases lists every phase in frame order.
func Phases() []Phase {
	out := make([]Phase, phaseCount)
	for i := range out {
		out[i] = Phase(i)
	}
	return out
}

// Phase markers. A subscriber implements any subset of these and is
// registered into every matching phase.
type (
	InputRunner  interface{ Input(dt time.Duration) error }
	PreUpdater   interface{ PreUpdate(dt time.Duration) error }
	FixedUpdater interface{ FixedUpdate(dt time.Duration) error }
	Updater      interface{ Update(dt time.Duration) error }
	PostUpdater  interface{ PostUpdate(dt time.Duration) error }
	Drawer       interface{ Draw(dt time.Duration) error }
	Persister    interface{ Persist(dt time.Duration) error }
	Cleaner      interface{ Cleanup(dt time.Duration) error }
)

// Named lets a subscriber choose the type name metadata is keyed by.
type Named interface {
	Name() string
}

// Implements reports whether sub carries the marker for p.
func Implements(p Phase, sub any) bool {
	switch p {
	case PhaseInput:
		_, ok := sub.(InputRunner)
		return ok
	case PhasePreUpdate:
		_, ok := sub.(PreUpdater)
		return ok
	case PhaseFixedUpdate:
		_, ok := sub.(FixedUpdater)
		return ok
	case PhaseUpdate:
		_, ok := sub.(Updater)
		return ok
	case PhasePostUpdate:
		_, ok := sub.(PostUpdater)
		return ok
	case PhaseDraw:
		_, ok := sub.(Drawer)
		return ok
	case PhasePersist:
		_, ok := sub.(Persister)
		return ok
	case PhaseCleanup:
		_, ok := sub.(Cleaner)
		return ok
	}
	return false
}

// Call invokes the marker method of sub for phase p.
func Call(p Phase, sub any, dt time.Duration) error {
	switch p {
	case PhaseInput:
		return sub.(InputRunner).Input(dt)
	case PhasePreUpdate:
		return sub.(PreUpdater).PreUpdate(dt)
	case PhaseFixedUpdate:
		return sub.(FixedUpdater).FixedUpdate(dt)
	case PhaseUpdate:
		return sub.(Updater).Update(dt)
	case PhasePostUpdate:
		return sub.(PostUpdater).PostUpdate(dt)
	case PhaseDraw:
		return sub.(Drawer).Draw(dt)
	case PhasePersist:
		return sub.(Persister).Persist(dt)
	case PhaseCleanup:
		return sub.(Cleaner).Cleanup(dt)
	}
	return fmt.Errorf("call %s: %w", p, ErrUnknownPhase)
}

// TypeName is the key SetMetaData uses for a subscriber.
func TypeName(sub any) string {
	if n, ok := sub.(Named); ok {
		return n.Name()
	}
	t := reflect.TypeOf(sub)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "<nil>"
	}
	return t.Name()
}
