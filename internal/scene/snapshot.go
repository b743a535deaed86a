package scene

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/l1jgo/engine/internal/component"
	"github.com/l1jgo/engine/internal/core/ecs"
)

// Snapshot is the serialized state of every live entity, in the same shape
// as a scene file so a snapshot can be loaded back as a scene.
type Snapshot = File

// skipped components are never serialized as components. GUID and Name are
// carried on the template itself. SceneRef is kept so a restored entity is
// still replaced when its scene file is reloaded.
var skipped = map[string]bool{
	ecs.DestroyTagName: true,
	"GUID":             true,
	"Name":             true,
}

// Capture walks every live entity and records its components through the
// field descriptor table. Entities already marked for destruction are left
// out.
func Capture(w *ecs.World) *Snapshot {
	tag := ecs.ID[ecs.DestroyTag](w)
	snap := &Snapshot{Entities: make([]EntityTemplate, 0, w.Count())}
	w.Query(ecs.Query{Without: []ecs.TypeID{tag}}, func(id ecs.EntityID) {
		comps, err := w.Components(id)
		if err != nil {
			return
		}
		tpl := EntityTemplate{Components: make(map[string]map[string]any, len(comps))}
		for _, c := range comps {
			switch v := c.Value.(type) {
			case *component.GUID:
				tpl.GUID = v.ID.String()
			case *component.Name:
				tpl.Name = v.Value
			}
			if skipped[c.Type.Name] {
				continue
			}
			tpl.Components[c.Type.Name] = c.Type.Values(c.Value)
		}
		snap.Entities = append(snap.Entities, tpl)
	})
	return snap
}

// Restore spawns every entity of the snapshot into w.
func Restore(w *ecs.World, snap *Snapshot) ([]ecs.EntityID, error) {
	return Spawn(w, snap, "")
}

// MarshalJSON encodes a snapshot for the persistence layer. Vec2 fields come
// back from JSON as two element lists, which Vec2 fields accept.
func MarshalJSON(snap *Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}

func UnmarshalJSON(raw []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// Save writes a snapshot as a YAML scene file.
func Save(path string, snap *Snapshot) error {
	raw, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write scene %s: %w", path, err)
	}
	return nil
}
