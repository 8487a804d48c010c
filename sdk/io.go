package sdk

import (
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/fzracing/fz/wire"
)

// EngineIo is the per-invocation channel between a system and the host:
// it exposes the inbox and query results for this tick and buffers every
// outgoing command, write, and message until the invocation returns.
type EngineIo struct {
	mode   wire.Mode
	client *wire.ClientID
	tick   uint64

	inbox   []wire.MessageData
	queries map[string][]wire.QueryRow

	commands []wire.Command
	writes   []wire.QueryWrite
	outbox   []wire.MessageData
}

func newEngineIo(mode wire.Mode, client *wire.ClientID) *EngineIo {
	return &EngineIo{mode: mode, client: client}
}

// Mode reports which side this instance runs on.
func (io *EngineIo) Mode() wire.Mode { return io.mode }

// Client returns this instance's client ID when running client-side.
func (io *EngineIo) Client() (wire.ClientID, bool) {
	if io.client == nil {
		return 0, false
	}
	return *io.client, true
}

// Tick is the host tick being processed, zero during init.
func (io *EngineIo) Tick() uint64 { return io.tick }

// CreateEntity mints an entity with a fresh ULID and attaches the given
// components. The entity exists once the host applies this invocation's
// commands.
func (io *EngineIo) CreateEntity(components ...Component) wire.EntityID {
	id := wire.EntityID(ulid.Make().String())
	io.commands = append(io.commands, wire.Command{Kind: wire.CmdCreateEntity, Entity: id})
	for _, c := range components {
		io.AddComponent(id, c)
	}
	return id
}

// AddComponent attaches (or replaces) a component on an entity.
func (io *EngineIo) AddComponent(entity wire.EntityID, c Component) {
	io.commands = append(io.commands, wire.Command{
		Kind:   wire.CmdAddComponent,
		Entity: entity,
		Component: &wire.ComponentData{
			ID:   c.ComponentID(),
			Data: mustMarshal(c),
		},
	})
}

// RemoveEntity deletes an entity and all its components.
func (io *EngineIo) RemoveEntity(entity wire.EntityID) {
	io.commands = append(io.commands, wire.Command{Kind: wire.CmdRemoveEntity, Entity: entity})
}

// Send queues a message using the type's default locality.
func (io *EngineIo) Send(m Message) {
	io.outbox = append(io.outbox, wire.MessageData{
		ID:          m.MessageID(),
		Destination: wire.Destination{Kind: m.Locality()},
		Data:        mustMarshal(m),
	})
}

// SendToClient queues a message for one specific client. Only meaningful
// server-side.
func (io *EngineIo) SendToClient(m Message, client wire.ClientID) {
	io.outbox = append(io.outbox, wire.MessageData{
		ID:          m.MessageID(),
		Destination: wire.Destination{Kind: wire.DestClient, Client: client},
		Data:        mustMarshal(m),
	})
}

// Query returns the rows matched for a named query this system declared.
func (io *EngineIo) Query(name string) []wire.QueryRow {
	return io.queries[name]
}

// Write writes a component back for an entity matched by a query. The
// query must have declared write access to the component type.
func (io *EngineIo) Write(query string, entity wire.EntityID, c Component) {
	io.writes = append(io.writes, wire.QueryWrite{
		Query:  query,
		Entity: entity,
		Component: wire.ComponentData{
			ID:   c.ComponentID(),
			Data: mustMarshal(c),
		},
	})
}

// Inbox decodes every message of type M delivered this tick.
func Inbox[M Message](io *EngineIo) []M {
	var probe M
	id := probe.MessageID()
	var out []M
	for _, msg := range io.inbox {
		if msg.ID != id {
			continue
		}
		var m M
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			panic(fmt.Sprintf("decoding %s: %v", id, err))
		}
		out = append(out, m)
	}
	return out
}

// InboxFirst returns the first message of type M, if any arrived.
func InboxFirst[M Message](io *EngineIo) (M, bool) {
	msgs := Inbox[M](io)
	if len(msgs) == 0 {
		var zero M
		return zero, false
	}
	return msgs[0], true
}

// From pairs a relayed client message with its sender.
type From[M any] struct {
	Sender wire.ClientID
	Msg    M
}

// InboxClients decodes messages of type M that arrived from clients,
// keeping the sender the host tagged on each.
func InboxClients[M Message](io *EngineIo) []From[M] {
	var probe M
	id := probe.MessageID()
	var out []From[M]
	for _, msg := range io.inbox {
		if msg.ID != id || msg.Sender == nil {
			continue
		}
		var m M
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			panic(fmt.Sprintf("decoding %s: %v", id, err))
		}
		out = append(out, From[M]{Sender: *msg.Sender, Msg: m})
	}
	return out
}

// Get decodes a component of type C from a query row.
func Get[C Component](row wire.QueryRow) (C, bool) {
	var c C
	data, ok := row.Components[c.ComponentID()]
	if !ok {
		return c, false
	}
	if err := json.Unmarshal(data, &c); err != nil {
		panic(fmt.Sprintf("decoding %s: %v", c.ComponentID(), err))
	}
	return c, true
}

// Modify reads a component from a row, applies fn, and writes it back
// through the named query.
func Modify[C Component](io *EngineIo, query string, row wire.QueryRow, fn func(*C)) {
	c, ok := Get[C](row)
	if !ok {
		return
	}
	fn(&c)
	io.Write(query, row.Entity, c)
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshaling %T: %v", v, err))
	}
	return data
}
