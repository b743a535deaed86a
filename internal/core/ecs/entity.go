package ecs

import "fmt"

// EntityID encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. Generation increments on destroy to invalidate stale refs.
// Generations start at 1, so the zero EntityID never refers to a live entity.
type EntityID uint64

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == 0 }

func (id EntityID) String() string {
	return fmt.Sprintf("%d:%d", id.Index(), id.Generation())
}

// EntityPool manages entity allocation with generational indices and a free list.
type EntityPool struct {
	generations []uint32
	inUse       []bool
	freeList    []uint32
	live        int
}

func NewEntityPool(capacity int) *EntityPool {
	if capacity < 1 {
		capacity = 1
	}
	return &EntityPool{
		generations: make([]uint32, 0, capacity),
		inUse:       make([]bool, 0, capacity),
		freeList:    make([]uint32, 0, capacity/4+1),
	}
}

func (p *EntityPool) Create() EntityID {
	p.live++
	if len(p.freeList) > 0 {
		idx := p.freeList[len(p.freeList)-1]
		p.freeList = p.freeList[:len(p.freeList)-1]
		p.inUse[idx] = true
		return NewEntityID(idx, p.generations[idx])
	}
	idx := uint32(len(p.generations))
	p.generations = append(p.generations, 1)
	p.inUse = append(p.inUse, true)
	return NewEntityID(idx, 1)
}

func (p *EntityPool) Alive(id EntityID) bool {
	idx := id.Index()
	if int(idx) >= len(p.generations) {
		return false
	}
	return p.inUse[idx] && p.generations[idx] == id.Generation()
}

// Destroy bumps the generation of a live entity and returns its index to the
// free list. It reports false for stale or unknown ids.
func (p *EntityPool) Destroy(id EntityID) bool {
	if !p.Alive(id) {
		return false
	}
	idx := id.Index()
	gen := p.generations[idx] + 1
	if gen == 0 {
		gen = 1 // wrapped; zero is reserved for "never alive"
	}
	p.generations[idx] = gen
	p.inUse[idx] = false
	p.freeList = append(p.freeList, idx)
	p.live--
	return true
}

// Current returns the live handle stored at index, if any.
func (p *EntityPool) Current(index uint32) (EntityID, bool) {
	if int(index) >= len(p.generations) || !p.inUse[index] {
		return 0, false
	}
	return NewEntityID(index, p.generations[index]), true
}

// Len is the number of live entities.
func (p *EntityPool) Len() int { return p.live }

// Cap is the number of indices ever allocated (live or free).
func (p *EntityPool) Cap() int { return len(p.generations) }

// ParseEntityID parses the "index:generation" form produced by String.
func ParseEntityID(s string) (EntityID, error) {
	var index, gen uint32
	if _, err := fmt.Sscanf(s, "%d:%d", &index, &gen); err != nil {
		return 0, fmt.Errorf("parse entity id %q: %w", s, err)
	}
	return NewEntityID(index, gen), nil
}
