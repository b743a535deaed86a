package system

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/engine/internal/component"
	"github.com/l1jgo/engine/internal/core/ecs"
)

// DrawCommand is one sprite instance handed to the renderer.
type DrawCommand struct {
	Entity   ecs.EntityID
	Texture  string
	Layer    int
	Position component.Vec2
	Rotation float64
	Scale    component.Vec2
}

// DrawSink is the renderer boundary. Submit receives the frame's draw list
// sorted by layer; the slice is reused on the next frame.
type DrawSink interface {
	Submit(cmds []DrawCommand) error
}

// RenderSystem is the single reader of Transform+Sprite in the draw phase.
// Phase 5 (Draw).
type RenderSystem struct {
	world *ecs.World
	sink  DrawSink
	cmds  []DrawCommand
}

func NewRenderSystem(world *ecs.World, sink DrawSink) *RenderSystem {
	return &RenderSystem{world: world, sink: sink, cmds: make([]DrawCommand, 0, 256)}
}

func (s *RenderSystem) Name() string { return "render" }

func (s *RenderSystem) Draw(_ time.Duration) error {
	s.cmds = s.cmds[:0]
	ecs.Each2(s.world, func(id ecs.EntityID, t *component.Transform, sp *component.Sprite) {
		if !sp.Visible {
			return
		}
		s.cmds = append(s.cmds, DrawCommand{
			Entity:   id,
			Texture:  sp.Texture,
			Layer:    sp.Layer,
			Position: t.Position,
			Rotation: t.Rotation,
			Scale:    t.Scale,
		})
	})
	sort.SliceStable(s.cmds, func(i, j int) bool { return s.cmds[i].Layer < s.cmds[j].Layer })
	return s.sink.Submit(s.cmds)
}

// LogSink stands in for a GPU renderer: it records frame statistics.
type LogSink struct {
	log    *zap.Logger
	frames uint64
	last   int
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log}
}

func (k *LogSink) Submit(cmds []DrawCommand) error {
	k.frames++
	if len(cmds) != k.last {
		k.log.Debug("draw list changed", zap.Int("sprites", len(cmds)), zap.Uint64("frame", k.frames))
		k.last = len(cmds)
	}
	return nil
}
