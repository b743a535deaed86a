package component

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/l1jgo/engine/internal/core/ecs"
)

// Register adds every engine component type, with its field table, to r.
func Register(r *ecs.Registry) error {
	regs := []func() error{
		func() error {
			_, err := ecs.Register[Transform](r, "Transform",
				ecs.Vec2Field("position", func(t *Transform) (*float64, *float64) { return &t.Position.X, &t.Position.Y }),
				ecs.FloatField("rotation", func(t *Transform) *float64 { return &t.Rotation }),
				ecs.Vec2Field("scale", func(t *Transform) (*float64, *float64) { return &t.Scale.X, &t.Scale.Y }),
			)
			return err
		},
		func() error {
			_, err := ecs.Register[Velocity](r, "Velocity",
				ecs.Vec2Field("linear", func(v *Velocity) (*float64, *float64) { return &v.Linear.X, &v.Linear.Y }),
				ecs.FloatField("angular", func(v *Velocity) *float64 { return &v.Angular }),
			)
			return err
		},
		func() error {
			_, err := ecs.Register[Sprite](r, "Sprite",
				ecs.StringField("texture", func(s *Sprite) *string { return &s.Texture }),
				ecs.IntField("layer", func(s *Sprite) *int { return &s.Layer }),
				ecs.BoolField("visible", func(s *Sprite) *bool { return &s.Visible }),
			)
			return err
		},
		func() error {
			_, err := ecs.Register[Name](r, "Name",
				ecs.StringField("value", func(n *Name) *string { return &n.Value }),
			)
			return err
		},
		func() error {
			_, err := ecs.Register[GUID](r, "GUID",
				ecs.TextField("id",
					func(g *GUID) string { return g.ID.String() },
					func(g *GUID, s string) error {
						id, err := uuid.Parse(s)
						if err != nil {
							return err
						}
						g.ID = id
						return nil
					}),
			)
			return err
		},
		func() error {
			_, err := ecs.Register[Lifetime](r, "Lifetime",
				ecs.FloatField("remaining", func(l *Lifetime) *float64 { return &l.Remaining }),
			)
			return err
		},
		func() error {
			_, err := ecs.Register[SceneRef](r, "SceneRef",
				ecs.StringField("path", func(s *SceneRef) *string { return &s.Path }),
			)
			return err
		},
	}
	for _, reg := range regs {
		if err := reg(); err != nil {
			return fmt.Errorf("register components: %w", err)
		}
	}
	return nil
}

// NewRegistry returns a registry holding every engine component type.
func NewRegistry() (*ecs.Registry, error) {
	r := ecs.NewRegistry()
	if err := Register(r); err != nil {
		return nil, err
	}
	return r, nil
}
