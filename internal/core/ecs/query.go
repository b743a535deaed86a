package ecs

// Query selects entities that hold every required component type and none
// of the excluded ones. It is a plain value, rebuilt by callers as needed.
type Query struct {
	With    []TypeID
	Without []TypeID
}

func NewQuery(with ...TypeID) Query {
	return Query{With: with}
}

// Exclude returns a copy of q that also rejects entities holding any of ids.
func (q Query) Exclude(ids ...TypeID) Query {
	without := make([]TypeID, 0, len(q.Without)+len(ids))
	without = append(without, q.Without...)
	q.Without = append(without, ids...)
	return q
}

// Matches reports whether a live entity satisfies q.
func (w *World) Matches(q Query, id EntityID) bool {
	if !w.pool.Alive(id) {
		return false
	}
	idx := id.Index()
	for _, t := range q.With {
		s, ok := w.stores[t]
		if !ok || !s.Has(idx) {
			return false
		}
	}
	for _, t := range q.Without {
		if s, ok := w.stores[t]; ok && s.Has(idx) {
			return false
		}
	}
	return true
}

// Query calls fn for every live entity matching q in ascending index order.
// There is no snapshot: fn may mutate components it has already visited,
// but whether entities it adds, removes or reshapes ahead of the cursor are
// visited is undefined. Use Collect when a stable set is needed.
func (w *World) Query(q Query, fn func(EntityID)) {
	with := make([]store, 0, len(q.With))
	for _, t := range q.With {
		s, ok := w.stores[t]
		if !ok {
			return // no storage yet, nothing can match
		}
		with = append(with, s)
	}
	without := make([]store, 0, len(q.Without))
	for _, t := range q.Without {
		if s, ok := w.stores[t]; ok {
			without = append(without, s)
		}
	}

	n := w.pool.Cap()
next:
	for i := 0; i < n; i++ {
		idx := uint32(i)
		for _, s := range with {
			if !s.Has(idx) {
				continue next
			}
		}
		for _, s := range without {
			if s.Has(idx) {
				continue next
			}
		}
		id, ok := w.pool.Current(idx)
		if !ok {
			continue
		}
		fn(id)
		n = w.pool.Cap()
	}
}

// Collect snapshots the entities matching q.
func (w *World) Collect(q Query) []EntityID {
	out := make([]EntityID, 0, 16)
	w.Query(q, func(id EntityID) {
		out = append(out, id)
	})
	return out
}

// Each1 iterates over entities that have component A.
func Each1[A any](w *World, fn func(EntityID, *A)) {
	sa := storageFor[A](w)
	w.Query(NewQuery(sa.ct.ID), func(id EntityID) {
		a, _ := sa.Get(id.Index())
		fn(id, a)
	})
}

// Each2 iterates over entities that have both component A and B.
func Each2[A, B any](w *World, fn func(EntityID, *A, *B)) {
	sa, sb := storageFor[A](w), storageFor[B](w)
	w.Query(NewQuery(sa.ct.ID, sb.ct.ID), func(id EntityID) {
		a, _ := sa.Get(id.Index())
		b, _ := sb.Get(id.Index())
		fn(id, a, b)
	})
}

// Each3 iterates over entities that have components A, B, and C.
func Each3[A, B, C any](w *World, fn func(EntityID, *A, *B, *C)) {
	sa, sb, sc := storageFor[A](w), storageFor[B](w), storageFor[C](w)
	w.Query(NewQuery(sa.ct.ID, sb.ct.ID, sc.ct.ID), func(id EntityID) {
		a, _ := sa.Get(id.Index())
		b, _ := sb.Get(id.Index())
		c, _ := sc.Get(id.Index())
		fn(id, a, b, c)
	})
}
