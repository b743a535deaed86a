package component

import "github.com/google/uuid"

// Name is a human readable label shown by tooling.
type Name struct {
	Value string
}

// GUID is a persistent identity that survives save/load, unlike EntityID.
type GUID struct {
	ID uuid.UUID
}

// Lifetime counts down in seconds; the entity is marked for destruction
// when it reaches zero.
type Lifetime struct {
	Remaining float64
}

// SceneRef links an entity to the scene file it was spawned from, so a
// reload can replace exactly those entities.
type SceneRef struct {
	Path string
}
