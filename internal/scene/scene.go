package scene

import (
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/l1jgo/engine/internal/component"
	"github.com/l1jgo/engine/internal/core/ecs"
)

// File is the on-disk scene format: a flat list of entity templates whose
// components are keyed by registered type name, fields by descriptor name.
//
//	entities:
//	  - name: player
//	    components:
//	      Transform: {position: [0, 0], scale: [1, 1]}
//	      Velocity: {linear: [1, 0]}
type File struct {
	Entities []EntityTemplate `yaml:"entities" json:"entities"`
}

type EntityTemplate struct {
	Name       string                    `yaml:"name,omitempty" json:"name,omitempty"`
	GUID       string                    `yaml:"guid,omitempty" json:"guid,omitempty"`
	Components map[string]map[string]any `yaml:"components" json:"components"`
}

// Load reads and parses a scene file.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene %s: %w", path, err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	return &f, nil
}

// Spawn creates one entity per template. Every spawned entity gets a GUID
// (kept from the template when present) and, when source is non-empty, a
// SceneRef. On error the entities created so far are destroyed again.
func Spawn(w *ecs.World, f *File, source string) ([]ecs.EntityID, error) {
	reg := w.Registry()
	out := make([]ecs.EntityID, 0, len(f.Entities))
	fail := func(err error) ([]ecs.EntityID, error) {
		for _, id := range out {
			w.DestroyImmediate(id)
		}
		return nil, err
	}
	for i, tpl := range f.Entities {
		id := w.CreateEntity()
		out = append(out, id)
		if err := spawnOne(w, reg, id, tpl); err != nil {
			return fail(fmt.Errorf("entity %d (%s): %w", i, tpl.Name, err))
		}
		if source != "" {
			if err := ecs.Set(w, id, component.SceneRef{Path: source}); err != nil {
				return fail(err)
			}
		}
	}
	return out, nil
}

func spawnOne(w *ecs.World, reg *ecs.Registry, id ecs.EntityID, tpl EntityTemplate) error {
	guid := uuid.New()
	if tpl.GUID != "" {
		parsed, err := uuid.Parse(tpl.GUID)
		if err != nil {
			return fmt.Errorf("guid %q: %w", tpl.GUID, err)
		}
		guid = parsed
	}
	if err := ecs.Set(w, id, component.GUID{ID: guid}); err != nil {
		return err
	}
	if tpl.Name != "" {
		if err := ecs.Set(w, id, component.Name{Value: tpl.Name}); err != nil {
			return err
		}
	}

	// Deterministic order keeps observer callbacks stable across loads.
	names := make([]string, 0, len(tpl.Components))
	for name := range tpl.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ct, ok := reg.Lookup(name)
		if !ok {
			return fmt.Errorf("component %q: %w", name, ecs.ErrUnknownType)
		}
		v := ct.New()
		if err := ct.Apply(v, tpl.Components[name]); err != nil {
			return err
		}
		if err := w.SetAny(id, ct.ID, v); err != nil {
			return err
		}
	}
	return nil
}
