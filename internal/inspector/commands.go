package inspector

import (
	"fmt"
	"sort"

	"github.com/l1jgo/engine/internal/component"
	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/l1jgo/engine/internal/core/event"
)

// Op names an inspector request.
type Op string

const (
	OpTypes   Op = "types"
	OpList    Op = "list"
	OpGet     Op = "get"
	OpSet     Op = "set"
	OpDestroy Op = "destroy"
)

// Request is one JSON message from an editor client.
type Request struct {
	ID        uint64   `json:"id"`
	Op        Op       `json:"op"`
	Entity    string   `json:"entity,omitempty"`
	With      []string `json:"with,omitempty"`
	Component string   `json:"component,omitempty"`
	Field     string   `json:"field,omitempty"`
	Value     any      `json:"value,omitempty"`
}

type EntityInfo struct {
	Entity     string   `json:"entity"`
	Name       string   `json:"name,omitempty"`
	Components []string `json:"components"`
	Doomed     bool     `json:"doomed,omitempty"`
}

type FieldInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type TypeInfo struct {
	Name   string      `json:"name"`
	Size   uintptr     `json:"size"`
	Fields []FieldInfo `json:"fields"`
}

// Response answers a Request with the same ID.
type Response struct {
	ID         uint64                    `json:"id"`
	OK         bool                      `json:"ok"`
	Error      string                    `json:"error,omitempty"`
	Types      []TypeInfo                `json:"types,omitempty"`
	Entities   []EntityInfo              `json:"entities,omitempty"`
	Components map[string]map[string]any `json:"components,omitempty"`
}

func failure(req Request, err error) Response {
	return Response{ID: req.ID, Error: err.Error()}
}

// Apply executes req against the world. It must run on the game loop
// goroutine, which is why the server only queues requests.
func Apply(w *ecs.World, bus *event.Bus, req Request) Response {
	switch req.Op {
	case OpTypes:
		return Response{ID: req.ID, OK: true, Types: types(w.Registry())}
	case OpList:
		infos, err := list(w, req.With)
		if err != nil {
			return failure(req, err)
		}
		return Response{ID: req.ID, OK: true, Entities: infos}
	case OpGet:
		id, err := ecs.ParseEntityID(req.Entity)
		if err != nil {
			return failure(req, err)
		}
		comps, err := w.Components(id)
		if err != nil {
			return failure(req, err)
		}
		out := make(map[string]map[string]any, len(comps))
		for _, c := range comps {
			if req.Component != "" && c.Type.Name != req.Component {
				continue
			}
			out[c.Type.Name] = c.Type.Values(c.Value)
		}
		return Response{ID: req.ID, OK: true, Components: out}
	case OpSet:
		if err := set(w, req); err != nil {
			return failure(req, err)
		}
		id, _ := ecs.ParseEntityID(req.Entity)
		if bus != nil {
			event.Emit(bus, event.ComponentEdited{Entity: id, Component: req.Component, Field: req.Field})
		}
		return Response{ID: req.ID, OK: true}
	case OpDestroy:
		id, err := ecs.ParseEntityID(req.Entity)
		if err != nil {
			return failure(req, err)
		}
		if err := w.MarkForDestruction(id); err != nil {
			return failure(req, err)
		}
		return Response{ID: req.ID, OK: true}
	}
	return failure(req, fmt.Errorf("unknown op %q", req.Op))
}

func types(r *ecs.Registry) []TypeInfo {
	cts := r.Types()
	out := make([]TypeInfo, 0, len(cts))
	for _, ct := range cts {
		ti := TypeInfo{Name: ct.Name, Size: ct.Size, Fields: make([]FieldInfo, 0, len(ct.Fields))}
		for _, f := range ct.Fields {
			ti.Fields = append(ti.Fields, FieldInfo{Name: f.Name, Kind: f.Kind.String()})
		}
		out = append(out, ti)
	}
	return out
}

func list(w *ecs.World, with []string) ([]EntityInfo, error) {
	var q ecs.Query
	for _, name := range with {
		ct, ok := w.Registry().Lookup(name)
		if !ok {
			return nil, fmt.Errorf("component %q: %w", name, ecs.ErrUnknownType)
		}
		q.With = append(q.With, ct.ID)
	}
	out := make([]EntityInfo, 0, 16)
	for _, id := range w.Collect(q) {
		comps, err := w.Components(id)
		if err != nil {
			continue
		}
		info := EntityInfo{Entity: id.String(), Components: make([]string, 0, len(comps)), Doomed: w.Doomed(id)}
		for _, c := range comps {
			if n, ok := c.Value.(*component.Name); ok {
				info.Name = n.Value
			}
			info.Components = append(info.Components, c.Type.Name)
		}
		sort.Strings(info.Components)
		out = append(out, info)
	}
	return out, nil
}

func set(w *ecs.World, req Request) error {
	id, err := ecs.ParseEntityID(req.Entity)
	if err != nil {
		return err
	}
	ct, ok := w.Registry().Lookup(req.Component)
	if !ok {
		return fmt.Errorf("component %q: %w", req.Component, ecs.ErrUnknownType)
	}
	f, ok := ct.Field(req.Field)
	if !ok {
		return fmt.Errorf("%s.%s: %w", ct.Name, req.Field, ecs.ErrUnknownField)
	}
	ptr, err := w.GetAny(id, ct.ID)
	if err != nil {
		return err
	}
	if err := f.Set(ptr, req.Value); err != nil {
		return fmt.Errorf("%s.%s: %w", ct.Name, f.Name, err)
	}
	return nil
}
