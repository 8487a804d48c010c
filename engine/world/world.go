// Package world implements the host-owned entity/component store. The
// world is the single source of truth for simulation state; plugins only
// ever see call-scoped copies of it through query rows.
package world

import (
	"encoding/json"
	"fmt"

	"github.com/fzracing/fz/wire"
)

// World stores entities and their components. Component bodies are kept as
// raw JSON: the host never interprets plugin-defined component types.
type World struct {
	entities map[wire.EntityID]map[string]json.RawMessage
}

// New returns an empty world.
func New() *World {
	return &World{entities: make(map[wire.EntityID]map[string]json.RawMessage)}
}

// Len returns the number of live entities.
func (w *World) Len() int { return len(w.entities) }

// Exists reports whether an entity is live.
func (w *World) Exists(id wire.EntityID) bool {
	_, ok := w.entities[id]
	return ok
}

// Spawn creates an entity with no components. Spawning an existing entity
// is a no-op.
func (w *World) Spawn(id wire.EntityID) {
	if _, ok := w.entities[id]; !ok {
		w.entities[id] = make(map[string]json.RawMessage)
	}
}

// Remove deletes an entity and all its components.
func (w *World) Remove(id wire.EntityID) {
	delete(w.entities, id)
}

// SetComponent attaches or replaces a component on an entity, spawning the
// entity if needed. The body is copied.
func (w *World) SetComponent(id wire.EntityID, component string, data json.RawMessage) {
	w.Spawn(id)
	w.entities[id][component] = cloneRaw(data)
}

// Component returns a copy of a component body.
func (w *World) Component(id wire.EntityID, component string) (json.RawMessage, bool) {
	comps, ok := w.entities[id]
	if !ok {
		return nil, false
	}
	data, ok := comps[component]
	if !ok {
		return nil, false
	}
	return cloneRaw(data), true
}

// Entities returns the IDs of every entity carrying all given components.
func (w *World) Entities(components ...string) []wire.EntityID {
	var out []wire.EntityID
	for id, comps := range w.entities {
		matched := true
		for _, c := range components {
			if _, ok := comps[c]; !ok {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, id)
		}
	}
	return out
}

// Query evaluates an intersection query and returns call-scoped rows: each
// row carries copies of the requested component bodies, so handing rows to
// a plugin can never alias host memory.
func (w *World) Query(spec wire.QuerySpec) []wire.QueryRow {
	var rows []wire.QueryRow
	for id, comps := range w.entities {
		row := wire.QueryRow{Entity: id, Components: make(map[string]json.RawMessage, len(spec.Terms))}
		matched := true
		for _, term := range spec.Terms {
			data, ok := comps[term.Component]
			if !ok {
				matched = false
				break
			}
			row.Components[term.Component] = cloneRaw(data)
		}
		if matched {
			rows = append(rows, row)
		}
	}
	return rows
}

// Apply executes a batch of entity commands in order.
func (w *World) Apply(cmds []wire.Command) error {
	for _, cmd := range cmds {
		switch cmd.Kind {
		case wire.CmdCreateEntity:
			w.Spawn(cmd.Entity)
		case wire.CmdAddComponent:
			if cmd.Component == nil {
				return fmt.Errorf("add_component for %s carries no component", cmd.Entity)
			}
			w.SetComponent(cmd.Entity, cmd.Component.ID, cmd.Component.Data)
		case wire.CmdRemoveEntity:
			w.Remove(cmd.Entity)
		default:
			return fmt.Errorf("unknown command kind %q", cmd.Kind)
		}
	}
	return nil
}

// ApplyWrites writes back query results, honoring the access declared in
// the system's query specs: writes against read-only terms are rejected.
func (w *World) ApplyWrites(writes []wire.QueryWrite, specs []wire.QuerySpec) error {
	writable := make(map[string]map[string]bool, len(specs))
	for _, spec := range specs {
		terms := make(map[string]bool, len(spec.Terms))
		for _, term := range spec.Terms {
			terms[term.Component] = term.Access == wire.AccessWrite
		}
		writable[spec.Name] = terms
	}

	for _, wr := range writes {
		terms, ok := writable[wr.Query]
		if !ok {
			return fmt.Errorf("write against unknown query %q", wr.Query)
		}
		allowed, ok := terms[wr.Component.ID]
		if !ok {
			return fmt.Errorf("write of %q not declared by query %q", wr.Component.ID, wr.Query)
		}
		if !allowed {
			return fmt.Errorf("write of %q denied: query %q declares read access", wr.Component.ID, wr.Query)
		}
		if !w.Exists(wr.Entity) {
			// Entity was removed earlier in the tick; drop the write.
			continue
		}
		w.SetComponent(wr.Entity, wr.Component.ID, wr.Component.Data)
	}
	return nil
}

// Mirror upserts an entity and a full component set, used when copying
// synchronized server entities into client worlds.
func (w *World) Mirror(id wire.EntityID, components map[string]json.RawMessage) {
	w.Spawn(id)
	for c, data := range components {
		w.entities[id][c] = cloneRaw(data)
	}
}

// ComponentsOf returns a copy of every component on an entity.
func (w *World) ComponentsOf(id wire.EntityID) map[string]json.RawMessage {
	comps, ok := w.entities[id]
	if !ok {
		return nil
	}
	out := make(map[string]json.RawMessage, len(comps))
	for c, data := range comps {
		out[c] = cloneRaw(data)
	}
	return out
}

func cloneRaw(data json.RawMessage) json.RawMessage {
	if data == nil {
		return nil
	}
	out := make(json.RawMessage, len(data))
	copy(out, data)
	return out
}
