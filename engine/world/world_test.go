package world

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fzracing/fz/wire"
)

func TestWorld_SpawnSetRemove(t *testing.T) {
	w := New()

	w.Spawn("e1")
	assert.True(t, w.Exists("e1"))
	assert.Equal(t, 1, w.Len())

	w.SetComponent("e1", "engine.transform", json.RawMessage(`{"pos":[0,0,0]}`))
	data, ok := w.Component("e1", "engine.transform")
	require.True(t, ok)
	assert.JSONEq(t, `{"pos":[0,0,0]}`, string(data))

	w.Remove("e1")
	assert.False(t, w.Exists("e1"))
	_, ok = w.Component("e1", "engine.transform")
	assert.False(t, ok)
}

func TestWorld_QueryIntersection(t *testing.T) {
	w := New()
	w.SetComponent("a", "transform", json.RawMessage(`1`))
	w.SetComponent("a", "physics", json.RawMessage(`2`))
	w.SetComponent("b", "transform", json.RawMessage(`3`))

	spec := wire.QuerySpec{
		Name: "moving",
		Terms: []wire.QueryTerm{
			{Component: "transform", Access: wire.AccessWrite},
			{Component: "physics", Access: wire.AccessRead},
		},
	}

	rows := w.Query(spec)
	require.Len(t, rows, 1)
	assert.Equal(t, wire.EntityID("a"), rows[0].Entity)
	assert.JSONEq(t, `1`, string(rows[0].Components["transform"]))
	assert.JSONEq(t, `2`, string(rows[0].Components["physics"]))
}

func TestWorld_QueryRowsAreCopies(t *testing.T) {
	w := New()
	w.SetComponent("a", "c", json.RawMessage(`"original"`))

	rows := w.Query(wire.QuerySpec{Name: "q", Terms: []wire.QueryTerm{{Component: "c", Access: wire.AccessRead}}})
	require.Len(t, rows, 1)

	// Mutating the row must not leak into the world.
	copy(rows[0].Components["c"], []byte(`"mutated!!"`))

	data, ok := w.Component("a", "c")
	require.True(t, ok)
	assert.JSONEq(t, `"original"`, string(data))
}

func TestWorld_ApplyCommands(t *testing.T) {
	w := New()

	err := w.Apply([]wire.Command{
		{Kind: wire.CmdCreateEntity, Entity: "e"},
		{Kind: wire.CmdAddComponent, Entity: "e", Component: &wire.ComponentData{ID: "c", Data: json.RawMessage(`5`)}},
	})
	require.NoError(t, err)

	data, ok := w.Component("e", "c")
	require.True(t, ok)
	assert.JSONEq(t, `5`, string(data))

	err = w.Apply([]wire.Command{{Kind: wire.CmdRemoveEntity, Entity: "e"}})
	require.NoError(t, err)
	assert.False(t, w.Exists("e"))
}

func TestWorld_ApplyCommandErrors(t *testing.T) {
	w := New()

	err := w.Apply([]wire.Command{{Kind: wire.CmdAddComponent, Entity: "e"}})
	assert.Error(t, err)

	err = w.Apply([]wire.Command{{Kind: "explode", Entity: "e"}})
	assert.Error(t, err)
}

func TestWorld_ApplyWrites_AccessControl(t *testing.T) {
	specs := []wire.QuerySpec{{
		Name: "q",
		Terms: []wire.QueryTerm{
			{Component: "rw", Access: wire.AccessWrite},
			{Component: "ro", Access: wire.AccessRead},
		},
	}}

	tests := []struct {
		name    string
		write   wire.QueryWrite
		wantErr bool
	}{
		{
			name:  "write access allowed",
			write: wire.QueryWrite{Query: "q", Entity: "e", Component: wire.ComponentData{ID: "rw", Data: json.RawMessage(`1`)}},
		},
		{
			name:    "read access denied",
			write:   wire.QueryWrite{Query: "q", Entity: "e", Component: wire.ComponentData{ID: "ro", Data: json.RawMessage(`1`)}},
			wantErr: true,
		},
		{
			name:    "undeclared component denied",
			write:   wire.QueryWrite{Query: "q", Entity: "e", Component: wire.ComponentData{ID: "other", Data: json.RawMessage(`1`)}},
			wantErr: true,
		},
		{
			name:    "unknown query denied",
			write:   wire.QueryWrite{Query: "nope", Entity: "e", Component: wire.ComponentData{ID: "rw", Data: json.RawMessage(`1`)}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New()
			w.SetComponent("e", "rw", json.RawMessage(`0`))
			w.SetComponent("e", "ro", json.RawMessage(`0`))

			err := w.ApplyWrites([]wire.QueryWrite{tt.write}, specs)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWorld_WriteToRemovedEntityDropped(t *testing.T) {
	w := New()
	specs := []wire.QuerySpec{{Name: "q", Terms: []wire.QueryTerm{{Component: "c", Access: wire.AccessWrite}}}}

	err := w.ApplyWrites([]wire.QueryWrite{
		{Query: "q", Entity: "gone", Component: wire.ComponentData{ID: "c", Data: json.RawMessage(`1`)}},
	}, specs)
	assert.NoError(t, err)
	assert.False(t, w.Exists("gone"))
}

func TestWorld_Mirror(t *testing.T) {
	server := New()
	server.SetComponent("ship", "transform", json.RawMessage(`{"x":1}`))
	server.SetComponent("ship", "engine.synchronized", json.RawMessage(`{}`))

	client := New()
	client.Mirror("ship", server.ComponentsOf("ship"))

	data, ok := client.Component("ship", "transform")
	require.True(t, ok)
	assert.JSONEq(t, `{"x":1}`, string(data))
}
