package system

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

type entry struct {
	sub  any
	name string
	seq  uint64
}

// phaseList is the subscriber set of one phase plus its cached order.
type phaseList struct {
	entries []entry
	ordered []entry
	dirty   bool
	err     error
}

// Scheduler registers subscribers against phases by capability and runs
// them in a deterministic order each tick. The order of a phase is computed
// lazily and cached until its subscriber set or metadata changes.
type Scheduler struct {
	strategy Strategy
	phases   [phaseCount]phaseList
	meta     [phaseCount]map[string]Meta
	seq      uint64
	rebuilds int

	fixedStep   time.Duration
	accumulator time.Duration
	maxSteps    int

	log *zap.Logger
}

type SchedulerOption func(*Scheduler)

// WithFixedStep sets the FixedUpdate step. Tick runs FixedUpdate zero or
// more times per frame to consume accumulated time, at most maxSteps times.
func WithFixedStep(step time.Duration, maxSteps int) SchedulerOption {
	return func(s *Scheduler) {
		s.fixedStep = step
		if maxSteps > 0 {
			s.maxSteps = maxSteps
		}
	}
}

func NewScheduler(strategy Strategy, log *zap.Logger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		strategy: strategy,
		maxSteps: 5,
		log:      log,
	}
	for i := range s.meta {
		s.meta[i] = make(map[string]Meta)
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Scheduler) Strategy() Strategy { return s.strategy }

func sameSubscriber(a, b any) bool {
	t := reflect.TypeOf(a)
	if t != reflect.TypeOf(b) {
		return false
	}
	if t.Comparable() {
		return a == b
	}
	switch t.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func:
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	return false
}

func (l *phaseList) index(sub any) int {
	for i, e := range l.entries {
		if sameSubscriber(e.sub, sub) {
			return i
		}
	}
	return -1
}

// RegisterAll adds sub to every phase whose marker it implements. A
// subscriber already present in a phase is left where it is.
func (s *Scheduler) RegisterAll(sub any) []Phase {
	var added []Phase
	name := TypeName(sub)
	for p := Phase(0); p < phaseCount; p++ {
		if !Implements(p, sub) {
			continue
		}
		l := &s.phases[p]
		if l.index(sub) >= 0 {
			continue
		}
		s.seq++
		l.entries = append(l.entries, entry{sub: sub, name: name, seq: s.seq})
		l.dirty = true
		added = append(added, p)
	}
	if len(added) > 0 && s.log != nil {
		s.log.Debug("subscriber registered", zap.String("name", name), zap.Stringers("phases", added))
	}
	return added
}

// UnregisterAll removes sub from every phase it was registered in.
func (s *Scheduler) UnregisterAll(sub any) []Phase {
	var removed []Phase
	for p := Phase(0); p < phaseCount; p++ {
		l := &s.phases[p]
		i := l.index(sub)
		if i < 0 {
			continue
		}
		l.entries = append(l.entries[:i], l.entries[i+1:]...)
		l.dirty = true
		removed = append(removed, p)
	}
	return removed
}

// SetMetaData attaches or replaces the ordering metadata of a subscriber
// type within a phase.
func (s *Scheduler) SetMetaData(p Phase, subscriberType string, m Meta) error {
	if !p.valid() {
		return fmt.Errorf("set metadata %s: %w", p, ErrUnknownPhase)
	}
	s.meta[p][subscriberType] = m.normalized()
	s.phases[p].dirty = true
	return nil
}

func (s *Scheduler) metaOf(p Phase, name string) Meta {
	if m, ok := s.meta[p][name]; ok {
		return m
	}
	return DefaultMeta()
}

// Len is the number of subscribers registered for p.
func (s *Scheduler) Len(p Phase) int {
	if !p.valid() {
		return 0
	}
	return len(s.phases[p].entries)
}

func (s *Scheduler) ordered(p Phase) ([]entry, error) {
	l := &s.phases[p]
	if !l.dirty && l.ordered != nil {
		return l.ordered, l.err
	}
	s.rebuilds++
	switch s.strategy {
	case OrderGraph:
		l.ordered, l.err = s.graphOrder(p, l.entries)
	default:
		l.ordered, l.err = s.priorityOrder(p, l.entries), nil
	}
	l.dirty = false
	if l.err != nil {
		l.ordered = []entry{}
	}
	return l.ordered, l.err
}

func (s *Scheduler) priorityOrder(p Phase, entries []entry) []entry {
	out := make([]entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := s.metaOf(p, out[i].name).Priority, s.metaOf(p, out[j].name).Priority
		if pi != pj {
			return pi < pj
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// graphOrder runs Kahn's algorithm over before/after edges. Among ready
// subscribers the lowest (priority, seq) goes first, so the result is
// deterministic.
func (s *Scheduler) graphOrder(p Phase, entries []entry) ([]entry, error) {
	n := len(entries)
	byName := make(map[string][]int, n)
	for i, e := range entries {
		byName[e.name] = append(byName[e.name], i)
	}
	succ := make([][]int, n)
	indeg := make([]int, n)
	edge := func(from, to int) {
		if from == to {
			return
		}
		succ[from] = append(succ[from], to)
		indeg[to]++
	}
	for i, e := range entries {
		m := s.metaOf(p, e.name)
		for _, b := range m.Before {
			for _, j := range byName[b] {
				edge(i, j)
			}
		}
		for _, a := range m.After {
			for _, j := range byName[a] {
				edge(j, i)
			}
		}
	}

	less := func(a, b int) bool {
		pa, pb := s.metaOf(p, entries[a].name).Priority, s.metaOf(p, entries[b].name).Priority
		if pa != pb {
			return pa < pb
		}
		return entries[a].seq < entries[b].seq
	}
	ready := make([]int, 0, n)
	for i := range entries {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}
	out := make([]entry, 0, n)
	for len(ready) > 0 {
		best := 0
		for k := 1; k < len(ready); k++ {
			if less(ready[k], ready[best]) {
				best = k
			}
		}
		i := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		out = append(out, entries[i])
		for _, j := range succ[i] {
			indeg[j]--
			if indeg[j] == 0 {
				ready = append(ready, j)
			}
		}
	}
	if len(out) < n {
		var stuck []string
		for i, e := range entries {
			if indeg[i] > 0 {
				stuck = append(stuck, e.name)
			}
		}
		return nil, fmt.Errorf("phase %s: %s: %w", p, strings.Join(stuck, ", "), ErrCyclicOrdering)
	}
	return out, nil
}

// Order returns the subscriber type names of p in dispatch order.
func (s *Scheduler) Order(p Phase) ([]string, error) {
	if !p.valid() {
		return nil, fmt.Errorf("order %s: %w", p, ErrUnknownPhase)
	}
	ordered, err := s.ordered(p)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ordered))
	for i, e := range ordered {
		names[i] = e.name
	}
	return names, nil
}

// Run invokes action for each subscriber of p in order, skipping those whose
// run condition is false. The first error aborts the rest of the phase and
// is returned to the caller.
func (s *Scheduler) Run(p Phase, action func(sub any) error) error {
	if !p.valid() {
		return fmt.Errorf("run %s: %w", p, ErrUnknownPhase)
	}
	ordered, err := s.ordered(p)
	if err != nil {
		return err
	}
	for _, e := range ordered {
		if m := s.metaOf(p, e.name); m.RunIf != nil && !m.RunIf() {
			continue
		}
		if err := action(e.sub); err != nil {
			return fmt.Errorf("%s/%s: %w", p, e.name, err)
		}
	}
	return nil
}

// RunPhase dispatches the phase marker method of every subscriber of p.
func (s *Scheduler) RunPhase(p Phase, dt time.Duration) error {
	return s.Run(p, func(sub any) error {
		return Call(p, sub, dt)
	})
}

// Tick runs one frame: every phase in order, with FixedUpdate repeated at
// the fixed step when one is configured.
func (s *Scheduler) Tick(dt time.Duration) error {
	for p := Phase(0); p < phaseCount; p++ {
		if p == PhaseFixedUpdate && s.fixedStep > 0 {
			if err := s.fixedSteps(dt); err != nil {
				return err
			}
			continue
		}
		if err := s.RunPhase(p, dt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) fixedSteps(dt time.Duration) error {
	s.accumulator += dt
	steps := 0
	for s.accumulator >= s.fixedStep {
		if steps == s.maxSteps {
			// Drop the backlog instead of spiralling.
			if s.log != nil {
				s.log.Warn("fixed step backlog dropped", zap.Duration("backlog", s.accumulator))
			}
			s.accumulator = 0
			break
		}
		if err := s.RunPhase(PhaseFixedUpdate, s.fixedStep); err != nil {
			return err
		}
		s.accumulator -= s.fixedStep
		steps++
	}
	return nil
}
