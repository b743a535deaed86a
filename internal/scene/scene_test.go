package scene

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/engine/internal/component"
	"github.com/l1jgo/engine/internal/core/ecs"
)

const demo = `
entities:
  - name: player
    guid: 5b1f3c2e-8d4a-4f6e-9c1b-2a3d4e5f6a7b
    components:
      Transform: {position: [1, 2], rotation: 0.5, scale: [1, 1]}
      Velocity: {linear: [3, 0]}
  - name: rock
    components:
      Transform: {position: [0, 0]}
      Sprite: {texture: rock.png, layer: 2, visible: true}
`

func newWorld(t *testing.T) *ecs.World {
	t.Helper()
	r, err := component.NewRegistry()
	require.NoError(t, err)
	return ecs.NewWorld(ecs.WithRegistry(r))
}

func TestSpawn(t *testing.T) {
	w := newWorld(t)
	f, err := Parse([]byte(demo))
	require.NoError(t, err)
	ids, err := Spawn(w, f, "scenes/demo.yaml")
	require.NoError(t, err)
	require.Len(t, ids, 2)

	tr, err := ecs.Get[component.Transform](w, ids[0])
	require.NoError(t, err)
	assert.Equal(t, component.Vec2{X: 1, Y: 2}, tr.Position)
	assert.Equal(t, 0.5, tr.Rotation)

	g, err := ecs.Get[component.GUID](w, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "5b1f3c2e-8d4a-4f6e-9c1b-2a3d4e5f6a7b", g.ID.String())

	g2, err := ecs.Get[component.GUID](w, ids[1])
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, g2.ID, "generated when absent")

	ref, err := ecs.Get[component.SceneRef](w, ids[1])
	require.NoError(t, err)
	assert.Equal(t, "scenes/demo.yaml", ref.Path)

	sp, err := ecs.Get[component.Sprite](w, ids[1])
	require.NoError(t, err)
	assert.Equal(t, component.Sprite{Texture: "rock.png", Layer: 2, Visible: true}, *sp)
}

func TestSpawnRollsBackOnError(t *testing.T) {
	w := newWorld(t)
	f, err := Parse([]byte(`
entities:
  - name: ok
    components:
      Transform: {position: [0, 0]}
  - name: bad
    components:
      Nope: {x: 1}
`))
	require.NoError(t, err)
	_, err = Spawn(w, f, "")
	assert.ErrorIs(t, err, ecs.ErrUnknownType)
	assert.Equal(t, 0, w.Count())
}

func TestParseError(t *testing.T) {
	_, err := Parse([]byte("entities: [\n"))
	assert.Error(t, err)
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestCaptureRestoreJSON(t *testing.T) {
	w := newWorld(t)
	f, err := Parse([]byte(demo))
	require.NoError(t, err)
	ids, err := Spawn(w, f, "scenes/demo.yaml")
	require.NoError(t, err)

	doomed := w.CreateEntity()
	require.NoError(t, ecs.Set(w, doomed, component.Name{Value: "ghost"}))
	require.NoError(t, w.MarkForDestruction(doomed))

	snap := Capture(w)
	require.Len(t, snap.Entities, 2, "doomed entities are not captured")
	assert.Equal(t, "player", snap.Entities[0].Name)
	assert.Equal(t, map[string]any{"path": "scenes/demo.yaml"}, snap.Entities[0].Components["SceneRef"])
	assert.NotContains(t, snap.Entities[0].Components, "GUID")

	raw, err := MarshalJSON(snap)
	require.NoError(t, err)
	back, err := UnmarshalJSON(raw)
	require.NoError(t, err)

	w2 := newWorld(t)
	restored, err := Restore(w2, back)
	require.NoError(t, err)
	require.Len(t, restored, 2)

	orig, _ := ecs.Get[component.Transform](w, ids[0])
	got, err := ecs.Get[component.Transform](w2, restored[0])
	require.NoError(t, err)
	assert.Equal(t, *orig, *got)

	g1, _ := ecs.Get[component.GUID](w, ids[0])
	g2, err := ecs.Get[component.GUID](w2, restored[0])
	require.NoError(t, err)
	assert.Equal(t, g1.ID, g2.ID, "identity survives a round trip")

	ref, err := ecs.Get[component.SceneRef](w2, restored[0])
	require.NoError(t, err)
	assert.Equal(t, "scenes/demo.yaml", ref.Path, "restored entities stay linked to their scene")
}

func TestSaveWritesLoadableScene(t *testing.T) {
	w := newWorld(t)
	f, err := Parse([]byte(demo))
	require.NoError(t, err)
	_, err = Spawn(w, f, "")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, Save(path, Capture(w)))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "player")

	loaded, err := Load(path)
	require.NoError(t, err)
	w2 := newWorld(t)
	ids, err := Spawn(w2, loaded, "")
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}
