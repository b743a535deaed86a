package system

import (
	"errors"
	"math"
)

var (
	// ErrCyclicOrdering is raised when before/after declarations within a
	// phase form a cycle. It surfaces when the order is recomputed.
	ErrCyclicOrdering = errors.New("cyclic schedule ordering")
	ErrUnknownPhase   = errors.New("unknown phase")
)

// DefaultPriority is used for subscriber types without metadata.
const DefaultPriority = 0.5

// Meta is the ordering metadata of a subscriber type within one phase.
// Lower priorities run first. Before and After name other subscriber types
// in the same phase; names that are not registered are ignored. RunIf, when
// set, is evaluated on every Run and must be cheap and side-effect free.
type Meta struct {
	Priority float64
	Before   []string
	After    []string
	RunIf    func() bool
}

func DefaultMeta() Meta { return Meta{Priority: DefaultPriority} }

func (m Meta) normalized() Meta {
	switch {
	case math.IsNaN(m.Priority):
		m.Priority = DefaultPriority
	case m.Priority < 0:
		m.Priority = 0
	case m.Priority > 1:
		m.Priority = 1
	}
	return m
}

// Strategy selects how a phase's subscribers are ordered.
type Strategy int

const (
	// OrderPriority sorts stably by priority, ties by registration order.
	OrderPriority Strategy = iota
	// OrderGraph topologically sorts by before/after edges; ready
	// subscribers are taken by priority, then registration order.
	OrderGraph
)

func (s Strategy) String() string {
	switch s {
	case OrderPriority:
		return "priority"
	case OrderGraph:
		return "graph"
	}
	return "unknown"
}

// ParseStrategy maps a config value to a Strategy. Empty means priority.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "priority":
		return OrderPriority, nil
	case "graph":
		return OrderGraph, nil
	}
	return 0, errors.New("unknown ordering strategy " + s)
}
