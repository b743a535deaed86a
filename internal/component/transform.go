package component

// Vec2 is a 2D vector in world units.
type Vec2 struct {
	X, Y float64
}

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Scale(f float64) Vec2 { return Vec2{v.X * f, v.Y * f} }

// Transform places an entity in the world.
// Plain data; systems do all mutation.
type Transform struct {
	Position Vec2
	Rotation float64 // radians
	Scale    Vec2
}

// Velocity is integrated into Transform by the movement system.
type Velocity struct {
	Linear  Vec2
	Angular float64 // radians per second
}
