package ecs

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

// TypeID is a stable component type identifier derived from the registered
// name, so it survives process restarts and can be persisted.
type TypeID uint64

func TypeIDOf(name string) TypeID { return TypeID(xxhash.Sum64String(name)) }

// ComponentType describes one registered component type: its stable id,
// name, size, and field descriptor table used by tooling.
type ComponentType struct {
	ID     TypeID
	Name   string
	Size   uintptr
	Fields []Field

	goType     reflect.Type
	newValue   func() any
	newStorage func(capacity int) store
}

// New returns a pointer to a zero value of the component type.
func (ct *ComponentType) New() any { return ct.newValue() }

func (ct *ComponentType) Field(name string) (Field, bool) {
	for _, f := range ct.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Values reads every described field of a component pointer.
func (ct *ComponentType) Values(ptr any) map[string]any {
	out := make(map[string]any, len(ct.Fields))
	for _, f := range ct.Fields {
		out[f.Name] = f.Get(ptr)
	}
	return out
}

// Apply writes every entry of values through the field table.
func (ct *ComponentType) Apply(ptr any, values map[string]any) error {
	for name, v := range values {
		f, ok := ct.Field(name)
		if !ok {
			return fmt.Errorf("%s.%s: %w", ct.Name, name, ErrUnknownField)
		}
		if err := f.Set(ptr, v); err != nil {
			return fmt.Errorf("%s.%s: %w", ct.Name, name, err)
		}
	}
	return nil
}

func (ct *ComponentType) String() string { return ct.Name }

// Registry is the explicit component type table. Types are registered once
// at startup; the World and tooling resolve types through it by name, id or
// Go type.
type Registry struct {
	byID   map[TypeID]*ComponentType
	byName map[string]*ComponentType
	byType map[reflect.Type]*ComponentType
	order  []*ComponentType
}

func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[TypeID]*ComponentType, 16),
		byName: make(map[string]*ComponentType, 16),
		byType: make(map[reflect.Type]*ComponentType, 16),
		order:  make([]*ComponentType, 0, 16),
	}
}

// Register adds T under name with its field descriptors. Registering a name
// or Go type twice fails with ErrDuplicateType.
func Register[T any](r *Registry, name string, fields ...Field) (*ComponentType, error) {
	t := reflect.TypeFor[T]()
	if name == "" {
		name = t.Name()
	}
	if prev, ok := r.byType[t]; ok {
		return nil, fmt.Errorf("register %s: %s already registered as %s: %w", name, t, prev.Name, ErrDuplicateType)
	}
	id := TypeIDOf(name)
	if _, ok := r.byName[name]; ok {
		return nil, fmt.Errorf("register %s: %w", name, ErrDuplicateType)
	}
	if prev, ok := r.byID[id]; ok {
		return nil, fmt.Errorf("register %s: id collides with %s: %w", name, prev.Name, ErrDuplicateType)
	}
	var zero T
	ct := &ComponentType{
		ID:       id,
		Name:     name,
		Size:     unsafe.Sizeof(zero),
		Fields:   fields,
		goType:   t,
		newValue: func() any { return new(T) },
	}
	ct.newStorage = func(capacity int) store { return newStorage[T](ct, capacity) }
	r.byID[id] = ct
	r.byName[name] = ct
	r.byType[t] = ct
	r.order = append(r.order, ct)
	return ct, nil
}

// MustRegister is Register for package-level setup code.
func MustRegister[T any](r *Registry, name string, fields ...Field) *ComponentType {
	ct, err := Register[T](r, name, fields...)
	if err != nil {
		panic(err)
	}
	return ct
}

// TypeOf returns the registration for T, if any.
func TypeOf[T any](r *Registry) (*ComponentType, bool) {
	ct, ok := r.byType[reflect.TypeFor[T]()]
	return ct, ok
}

func (r *Registry) Lookup(name string) (*ComponentType, bool) {
	ct, ok := r.byName[name]
	return ct, ok
}

func (r *Registry) ByID(id TypeID) (*ComponentType, bool) {
	ct, ok := r.byID[id]
	return ct, ok
}

// Types returns registrations in registration order.
func (r *Registry) Types() []*ComponentType {
	out := make([]*ComponentType, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Len() int { return len(r.order) }

// typeFor resolves T, registering it under its Go type name on first use.
func typeFor[T any](r *Registry) *ComponentType {
	if ct, ok := TypeOf[T](r); ok {
		return ct
	}
	t := reflect.TypeFor[T]()
	return MustRegister[T](r, t.String())
}
