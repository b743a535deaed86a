package component

// Sprite is read by the draw phase and handed to the renderer.
type Sprite struct {
	Texture string
	Layer   int
	Visible bool
}
