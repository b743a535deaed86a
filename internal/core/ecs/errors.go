package ecs

import "errors"

var (
	// ErrNotAlive is returned when an operation targets an entity whose
	// generation no longer matches the pool (destroyed or never created).
	ErrNotAlive = errors.New("entity not alive")

	// ErrComponentMissing is returned by Get when the entity is alive but
	// does not currently hold the requested component type.
	ErrComponentMissing = errors.New("component missing")

	ErrUnknownType   = errors.New("unknown component type")
	ErrDuplicateType = errors.New("component type already registered")
	ErrTypeMismatch  = errors.New("component value type mismatch")
	ErrUnknownField  = errors.New("unknown component field")
)
