package ecs

import "fmt"

// store is implemented by every Storage[T] so the World can clear an
// entity's row from all of them on destroy and reach values without knowing T.
type store interface {
	Type() *ComponentType
	Has(index uint32) bool
	Clear(index uint32) bool
	Ptr(index uint32) (any, bool)
	SetAny(index uint32, v any) error
	Len() int
	Cap() int
}

// Storage is a per-type component array indexed directly by entity index,
// paired with a presence bitmap. Capacity doubles when an index exceeds it.
// Clearing a slot only drops the presence bit and zeroes the value.
type Storage[T any] struct {
	ct    *ComponentType
	data  []T
	has   []bool
	count int
}

func newStorage[T any](ct *ComponentType, capacity int) *Storage[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Storage[T]{
		ct:   ct,
		data: make([]T, capacity),
		has:  make([]bool, capacity),
	}
}

func (s *Storage[T]) Type() *ComponentType { return s.ct }

func (s *Storage[T]) grow(index uint32) {
	if int(index) < len(s.data) {
		return
	}
	n := len(s.data)
	if n == 0 {
		n = 1
	}
	for n <= int(index) {
		n *= 2
	}
	data := make([]T, n)
	copy(data, s.data)
	has := make([]bool, n)
	copy(has, s.has)
	s.data, s.has = data, has
}

// Set writes v at index and returns a pointer into the backing array plus
// whether the slot was newly occupied. The pointer is invalidated by the
// next growth of this storage.
func (s *Storage[T]) Set(index uint32, v T) (*T, bool) {
	s.grow(index)
	added := !s.has[index]
	s.data[index] = v
	if added {
		s.has[index] = true
		s.count++
	}
	return &s.data[index], added
}

func (s *Storage[T]) Get(index uint32) (*T, bool) {
	if !s.Has(index) {
		return nil, false
	}
	return &s.data[index], true
}

func (s *Storage[T]) Has(index uint32) bool {
	return int(index) < len(s.has) && s.has[index]
}

func (s *Storage[T]) Clear(index uint32) bool {
	if !s.Has(index) {
		return false
	}
	var zero T
	s.has[index] = false
	s.data[index] = zero
	s.count--
	return true
}

func (s *Storage[T]) Ptr(index uint32) (any, bool) {
	p, ok := s.Get(index)
	if !ok {
		return nil, false
	}
	return p, true
}

// SetAny accepts either T or *T.
func (s *Storage[T]) SetAny(index uint32, v any) error {
	switch tv := v.(type) {
	case T:
		s.Set(index, tv)
	case *T:
		if tv == nil {
			return fmt.Errorf("%s: nil value: %w", s.ct.Name, ErrTypeMismatch)
		}
		s.Set(index, *tv)
	default:
		return fmt.Errorf("%s: got %T: %w", s.ct.Name, v, ErrTypeMismatch)
	}
	return nil
}

func (s *Storage[T]) Len() int { return s.count }
func (s *Storage[T]) Cap() int { return len(s.data) }
