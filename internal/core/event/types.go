package event

import "github.com/l1jgo/engine/internal/core/ecs"

// EntityDestroyed is emitted by the cleanup system for every entity removed
// by a destroy-queue flush.
type EntityDestroyed struct {
	Entity ecs.EntityID
}

// SceneLoaded is emitted after a scene file has been spawned into the world.
type SceneLoaded struct {
	Path     string
	Entities int
	Reload   bool
}

// ComponentEdited is emitted when the inspector writes a component field.
type ComponentEdited struct {
	Entity    ecs.EntityID
	Component string
	Field     string
}
