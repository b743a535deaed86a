package ecs

// observers holds typed callbacks keyed by TypeID. Handlers are wrapped at
// subscribe time so dispatch does no per-call type filtering.
type observers struct {
	onAdd    map[TypeID][]func(EntityID, any)
	onRemove map[TypeID][]func(EntityID)
}

func (o *observers) added(id TypeID, e EntityID, ptr any) {
	for _, fn := range o.onAdd[id] {
		fn(e, ptr)
	}
}

func (o *observers) removed(id TypeID, e EntityID) {
	for _, fn := range o.onRemove[id] {
		fn(e)
	}
}

// OnAdd registers fn to run whenever an entity gains a T component. It does
// not fire when an existing component is overwritten.
func OnAdd[T any](w *World, fn func(EntityID, *T)) {
	id := ID[T](w)
	if w.observers.onAdd == nil {
		w.observers.onAdd = make(map[TypeID][]func(EntityID, any))
	}
	w.observers.onAdd[id] = append(w.observers.onAdd[id], func(e EntityID, ptr any) {
		fn(e, ptr.(*T))
	})
}

// OnRemove registers fn to run whenever an entity loses its T component,
// including when the entity itself is destroyed. In that case the id is
// already dead when fn runs.
func OnRemove[T any](w *World, fn func(EntityID)) {
	id := ID[T](w)
	if w.observers.onRemove == nil {
		w.observers.onRemove = make(map[TypeID][]func(EntityID))
	}
	w.observers.onRemove[id] = append(w.observers.onRemove[id], fn)
}
