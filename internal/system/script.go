package system

import (
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/l1jgo/engine/internal/component"
	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/l1jgo/engine/internal/scripting"
)

// ScriptSystem publishes frame state to Lua and calls the global on_update
// hook each tick. Scripts get a small world API. Entity ids cross into Lua
// as "index:generation" strings so they survive the trip intact:
//
//	entity_count() -> number
//	find(name) -> id or nil
//	query(component, ...) -> {id, ...}   (live entities holding all of them)
//	alive(id) -> bool
//	destroy(id) -> bool   (deferred, same as MarkForDestruction)
//
// Phase 3 (Update).
type ScriptSystem struct {
	world   *ecs.World
	scripts *scripting.Engine
	frame   uint64
}

func NewScriptSystem(world *ecs.World, scripts *scripting.Engine) *ScriptSystem {
	s := &ScriptSystem{world: world, scripts: scripts}
	scripts.Register("entity_count", func(L *lua.LState) int {
		L.Push(lua.LNumber(s.world.Count()))
		return 1
	})
	scripts.Register("find", s.luaFind)
	scripts.Register("query", s.luaQuery)
	scripts.Register("alive", func(L *lua.LState) int {
		id, ok := checkEntity(L, 1)
		L.Push(lua.LBool(ok && s.world.Alive(id)))
		return 1
	})
	scripts.Register("destroy", func(L *lua.LState) int {
		id, ok := checkEntity(L, 1)
		L.Push(lua.LBool(ok && s.world.MarkForDestruction(id) == nil))
		return 1
	})
	return s
}

// checkEntity reads an entity id argument. Malformed ids read as not ok.
func checkEntity(L *lua.LState, n int) (ecs.EntityID, bool) {
	id, err := ecs.ParseEntityID(L.CheckString(n))
	return id, err == nil
}

func (s *ScriptSystem) live(with ...ecs.TypeID) []ecs.EntityID {
	q := ecs.NewQuery(with...).Exclude(ecs.ID[ecs.DestroyTag](s.world))
	return s.world.Collect(q)
}

func (s *ScriptSystem) luaFind(L *lua.LState) int {
	name := L.CheckString(1)
	for _, id := range s.live(ecs.ID[component.Name](s.world)) {
		if n, err := ecs.Get[component.Name](s.world, id); err == nil && n.Value == name {
			L.Push(lua.LString(id.String()))
			return 1
		}
	}
	L.Push(lua.LNil)
	return 1
}

func (s *ScriptSystem) luaQuery(L *lua.LState) int {
	with := make([]ecs.TypeID, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		ct, ok := s.world.Registry().Lookup(L.CheckString(i))
		if !ok {
			L.ArgError(i, "unknown component")
			return 0
		}
		with = append(with, ct.ID)
	}
	tbl := L.NewTable()
	for _, id := range s.live(with...) {
		tbl.Append(lua.LString(id.String()))
	}
	L.Push(tbl)
	return 1
}

func (s *ScriptSystem) Name() string { return "script" }

func (s *ScriptSystem) Update(dt time.Duration) error {
	s.frame++
	s.scripts.SetGlobal("frame", s.frame)
	return s.scripts.CallHook("on_update", lua.LNumber(dt.Seconds()))
}
