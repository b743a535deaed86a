package ecs

import "fmt"

// DestroyTag is attached to an entity the moment it is marked for
// destruction, so systems running later in the same frame can tell it is
// about to die.
type DestroyTag struct{}

const DestroyTagName = "DestroyTag"

// World is the top-level ECS container. It owns the entity pool, one storage
// per component type, and the double-buffered destroy queue flushed by the
// cleanup system each tick. A World is not safe for concurrent use.
type World struct {
	pool     *EntityPool
	registry *Registry
	stores   map[TypeID]store
	ordered  []store
	capacity int

	destroyFront []EntityID
	destroyBack  []EntityID
	destroyTag   *ComponentType

	observers observers
}

type Option func(*World)

// WithRegistry shares a type registry built by the composition root.
func WithRegistry(r *Registry) Option {
	return func(w *World) { w.registry = r }
}

// WithCapacity sets the initial storage capacity; storages double from it.
func WithCapacity(n int) Option {
	return func(w *World) {
		if n > 0 {
			w.capacity = n
		}
	}
}

func NewWorld(opts ...Option) *World {
	w := &World{
		capacity:     64,
		stores:       make(map[TypeID]store, 16),
		destroyFront: make([]EntityID, 0, 64),
		destroyBack:  make([]EntityID, 0, 64),
	}
	for _, o := range opts {
		o(w)
	}
	if w.registry == nil {
		w.registry = NewRegistry()
	}
	w.pool = NewEntityPool(w.capacity)
	if ct, ok := w.registry.Lookup(DestroyTagName); ok {
		w.destroyTag = ct
	} else {
		w.destroyTag = MustRegister[DestroyTag](w.registry, DestroyTagName)
	}
	return w
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

func (w *World) CreateEntity() EntityID {
	return w.pool.Create()
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// Count is the number of live entities.
func (w *World) Count() int { return w.pool.Len() }

// DestroyImmediate removes a live entity from every storage and frees its
// index. Stale ids are ignored. Callers inside a Query callback must be done
// with the entity's components before calling it.
//
// Remove observers run after the entity is dead, so they cannot write to it
// again and a reused index always starts empty.
func (w *World) DestroyImmediate(id EntityID) bool {
	if !w.pool.Alive(id) {
		return false
	}
	idx := id.Index()
	var buf [16]TypeID
	cleared := buf[:0]
	for _, s := range w.ordered {
		if s.Clear(idx) {
			cleared = append(cleared, s.Type().ID)
		}
	}
	w.pool.Destroy(id)
	for _, t := range cleared {
		w.observers.removed(t, id)
	}
	return true
}

func (w *World) storeOf(ct *ComponentType) store {
	s, ok := w.stores[ct.ID]
	if !ok {
		s = ct.newStorage(w.capacity)
		w.stores[ct.ID] = s
		w.ordered = append(w.ordered, s)
	}
	return s
}

func storageFor[T any](w *World) *Storage[T] {
	return w.storeOf(typeFor[T](w.registry)).(*Storage[T])
}

func notAlive(op string, ct *ComponentType, id EntityID) error {
	return fmt.Errorf("%s %s on %s: %w", op, ct.Name, id, ErrNotAlive)
}

// Set writes v as the entity's T component, adding it if absent.
func Set[T any](w *World, id EntityID, v T) error {
	s := storageFor[T](w)
	if !w.pool.Alive(id) {
		return notAlive("set", s.ct, id)
	}
	p, added := s.Set(id.Index(), v)
	if added {
		w.observers.added(s.ct.ID, id, p)
	}
	return nil
}

// Remove drops the entity's T component and reports whether it was present.
func Remove[T any](w *World, id EntityID) (bool, error) {
	s := storageFor[T](w)
	if !w.pool.Alive(id) {
		return false, notAlive("remove", s.ct, id)
	}
	if !s.Clear(id.Index()) {
		return false, nil
	}
	w.observers.removed(s.ct.ID, id)
	return true, nil
}

// Has reports whether the entity holds T. Asking about a dead entity is an
// error rather than false.
func Has[T any](w *World, id EntityID) (bool, error) {
	ct := typeFor[T](w.registry)
	if !w.pool.Alive(id) {
		return false, notAlive("has", ct, id)
	}
	s, ok := w.stores[ct.ID]
	return ok && s.Has(id.Index()), nil
}

// Get returns a pointer to the entity's T component. The pointer stays
// valid until the storage grows or the component is removed.
func Get[T any](w *World, id EntityID) (*T, error) {
	ct := typeFor[T](w.registry)
	if !w.pool.Alive(id) {
		return nil, notAlive("get", ct, id)
	}
	s, ok := w.stores[ct.ID]
	if !ok {
		return nil, fmt.Errorf("get %s on %s: %w", ct.Name, id, ErrComponentMissing)
	}
	p, ok := s.(*Storage[T]).Get(id.Index())
	if !ok {
		return nil, fmt.Errorf("get %s on %s: %w", ct.Name, id, ErrComponentMissing)
	}
	return p, nil
}

// ID returns the TypeID of T, registering T under its Go type name if the
// composition root did not register it explicitly.
func ID[T any](w *World) TypeID {
	return typeFor[T](w.registry).ID
}

// Component is one live component of an entity: its registration and a
// pointer to its value inside the storage.
type Component struct {
	Type  *ComponentType
	Value any
}

// Components enumerates every live component of an entity in type
// registration order, without static knowledge of the types involved.
func (w *World) Components(id EntityID) ([]Component, error) {
	if !w.pool.Alive(id) {
		return nil, fmt.Errorf("components of %s: %w", id, ErrNotAlive)
	}
	idx := id.Index()
	out := make([]Component, 0, 8)
	for _, ct := range w.registry.order {
		s, ok := w.stores[ct.ID]
		if !ok {
			continue
		}
		if p, ok := s.Ptr(idx); ok {
			out = append(out, Component{Type: ct, Value: p})
		}
	}
	return out, nil
}

// GetAny returns a pointer to the entity's component of the given type.
func (w *World) GetAny(id EntityID, typeID TypeID) (any, error) {
	ct, ok := w.registry.ByID(typeID)
	if !ok {
		return nil, fmt.Errorf("get %d: %w", typeID, ErrUnknownType)
	}
	if !w.pool.Alive(id) {
		return nil, notAlive("get", ct, id)
	}
	s, ok := w.stores[typeID]
	if !ok {
		return nil, fmt.Errorf("get %s on %s: %w", ct.Name, id, ErrComponentMissing)
	}
	p, ok := s.Ptr(id.Index())
	if !ok {
		return nil, fmt.Errorf("get %s on %s: %w", ct.Name, id, ErrComponentMissing)
	}
	return p, nil
}

// SetAny is the uniform write path used by serializers and tooling. v must
// be a value of, or pointer to, the registered Go type.
func (w *World) SetAny(id EntityID, typeID TypeID, v any) error {
	ct, ok := w.registry.ByID(typeID)
	if !ok {
		return fmt.Errorf("set %d: %w", typeID, ErrUnknownType)
	}
	if !w.pool.Alive(id) {
		return notAlive("set", ct, id)
	}
	s := w.storeOf(ct)
	idx := id.Index()
	added := !s.Has(idx)
	if err := s.SetAny(idx, v); err != nil {
		return err
	}
	if added {
		p, _ := s.Ptr(idx)
		w.observers.added(typeID, id, p)
	}
	return nil
}

// RemoveAny is the untyped counterpart of Remove.
func (w *World) RemoveAny(id EntityID, typeID TypeID) (bool, error) {
	ct, ok := w.registry.ByID(typeID)
	if !ok {
		return false, fmt.Errorf("remove %d: %w", typeID, ErrUnknownType)
	}
	if !w.pool.Alive(id) {
		return false, notAlive("remove", ct, id)
	}
	s, ok := w.stores[typeID]
	if !ok || !s.Clear(id.Index()) {
		return false, nil
	}
	w.observers.removed(typeID, id)
	return true, nil
}

// MarkForDestruction tags the entity with DestroyTag right away and queues
// it for physical removal at the next FlushDestroyQueue. Marking an entity
// twice is a no-op.
func (w *World) MarkForDestruction(id EntityID) error {
	if !w.pool.Alive(id) {
		return fmt.Errorf("destroy %s: %w", id, ErrNotAlive)
	}
	s := w.storeOf(w.destroyTag)
	if s.Has(id.Index()) {
		return nil
	}
	if err := s.SetAny(id.Index(), DestroyTag{}); err != nil {
		return err
	}
	p, _ := s.Ptr(id.Index())
	w.observers.added(w.destroyTag.ID, id, p)
	w.destroyBack = append(w.destroyBack, id)
	return nil
}

// Doomed reports whether a live entity carries the DestroyTag.
func (w *World) Doomed(id EntityID) bool {
	if !w.pool.Alive(id) {
		return false
	}
	s, ok := w.stores[w.destroyTag.ID]
	return ok && s.Has(id.Index())
}

// PendingDestroy is the number of entities queued for the next flush.
func (w *World) PendingDestroy() int { return len(w.destroyBack) }

// FlushDestroyQueue swaps the destroy buffers and destroys every entity in
// the one that was collecting requests. Requests raised while flushing (for
// example by remove observers) land in the other buffer and wait for the
// next flush. The returned slice is reused by the following flush.
func (w *World) FlushDestroyQueue() []EntityID {
	w.destroyFront, w.destroyBack = w.destroyBack, w.destroyFront[:0]
	done := w.destroyFront[:0]
	for _, id := range w.destroyFront {
		if w.DestroyImmediate(id) {
			done = append(done, id)
		}
	}
	w.destroyFront = done
	return done
}
