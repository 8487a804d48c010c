// Package wire defines the JSON wire format exchanged between the engine
// host and a plugin guest. These types are the ABI contract: they must
// remain stable and backward compatible across host and plugin versions.
//
// All payloads cross the WASM boundary as JSON referenced by a packed
// pointer/length pair (pointer in the high 32 bits, length in the low 32
// bits of a uint64).
package wire

import (
	"encoding/json"
	"fmt"
	"time"
)

// Mode selects which side of the simulation a plugin instance runs on.
type Mode string

const (
	// ModeClient runs the plugin's client state: input, rendering, cameras.
	ModeClient Mode = "client"
	// ModeServer runs the plugin's server state: authoritative simulation.
	ModeServer Mode = "server"
)

// Stage orders system execution within a tick.
type Stage string

const (
	StagePreUpdate  Stage = "pre_update"
	StageUpdate     Stage = "update"
	StagePostUpdate Stage = "post_update"
)

// Stages lists all stages in execution order.
var Stages = []Stage{StagePreUpdate, StageUpdate, StagePostUpdate}

// Access declares how a query term uses a component.
type Access string

const (
	AccessRead  Access = "read"
	AccessWrite Access = "write"
)

// EntityID identifies an entity. IDs are ULID strings minted by whichever
// side creates the entity; the host treats them as opaque keys.
type EntityID string

// ClientID identifies a connected client within a session.
type ClientID uint32

// ComponentData is a component instance attached to an entity, typed by a
// namespaced component ID with an opaque JSON body.
type ComponentData struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// DestinationKind routes a guest-sent message.
type DestinationKind string

const (
	// DestLocal delivers to subscribers on the sending instance next tick.
	DestLocal DestinationKind = "local"
	// DestRemote crosses the client/server boundary: client to server, or
	// server broadcast to every client.
	DestRemote DestinationKind = "remote"
	// DestClient targets a single client; valid only from the server.
	DestClient DestinationKind = "client"
)

// Destination is the routing hint attached to an outgoing message.
type Destination struct {
	Kind   DestinationKind `json:"kind"`
	Client ClientID        `json:"client,omitempty"`
}

// MessageData is a routed message, typed by a namespaced message ID with an
// opaque JSON body. Sender is populated by the host when relaying a client
// message to the server.
type MessageData struct {
	ID          string          `json:"id"`
	Destination Destination     `json:"destination"`
	Sender      *ClientID       `json:"sender,omitempty"`
	Data        json.RawMessage `json:"data"`
}

// QueryTerm selects one component type within a query.
type QueryTerm struct {
	Component string `json:"component"`
	Access    Access `json:"access"`
}

// QuerySpec is a named intersection query over component types.
type QuerySpec struct {
	Name  string      `json:"name"`
	Terms []QueryTerm `json:"terms"`
}

// SystemSpec describes one system a plugin wants driven by the host.
type SystemSpec struct {
	Name          string      `json:"name"`
	Stage         Stage       `json:"stage"`
	Subscriptions []string    `json:"subscriptions,omitempty"`
	Queries       []QuerySpec `json:"queries,omitempty"`
}

// Schedule is the full set of systems a plugin instance registers at init.
type Schedule struct {
	Systems []SystemSpec `json:"systems"`
}

// Manifest describes a plugin to the host before any instance exists.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description,omitempty"`
	SDKVersion   string          `json:"sdk_version"`
	ConfigSchema json.RawMessage `json:"config_schema,omitempty"`
}

// InitRequest is passed to the plugin's init export.
type InitRequest struct {
	Mode    Mode            `json:"mode"`
	Client  *ClientID       `json:"client,omitempty"`
	Config  json.RawMessage `json:"config,omitempty"`
	Context ContextWire     `json:"context"`
}

// InitResponse returns the registered schedule plus any entities and
// messages created during construction.
type InitResponse struct {
	Schedule Schedule      `json:"schedule"`
	Commands []Command     `json:"commands,omitempty"`
	Messages []MessageData `json:"messages,omitempty"`
	Error    *ErrorDetail  `json:"error,omitempty"`
}

// CommandKind discriminates entity commands.
type CommandKind string

const (
	CmdCreateEntity CommandKind = "create_entity"
	CmdAddComponent CommandKind = "add_component"
	CmdRemoveEntity CommandKind = "remove_entity"
)

// Command is a deferred mutation of the host-owned world. Commands are
// buffered inside a guest call and applied by the host after it returns.
type Command struct {
	Kind      CommandKind    `json:"kind"`
	Entity    EntityID       `json:"entity"`
	Component *ComponentData `json:"component,omitempty"`
}

// QueryRow is one entity matched by a query, with copies of the requested
// component bodies. Rows are call-scoped: the guest must not retain them.
type QueryRow struct {
	Entity     EntityID                   `json:"entity"`
	Components map[string]json.RawMessage `json:"components"`
}

// QueryWrite writes back a component for an entity matched by a query.
// Only terms declared with AccessWrite are applied by the host.
type QueryWrite struct {
	Query     string        `json:"query"`
	Entity    EntityID      `json:"entity"`
	Component ComponentData `json:"component"`
}

// DispatchRequest drives one system for one tick.
type DispatchRequest struct {
	System   string                `json:"system"`
	Tick     uint64                `json:"tick"`
	Context  ContextWire           `json:"context"`
	Messages []MessageData         `json:"messages,omitempty"`
	Queries  map[string][]QueryRow `json:"queries,omitempty"`
}

// DispatchResponse carries everything the system produced.
type DispatchResponse struct {
	Commands []Command     `json:"commands,omitempty"`
	Writes   []QueryWrite  `json:"writes,omitempty"`
	Messages []MessageData `json:"messages,omitempty"`
	Error    *ErrorDetail  `json:"error,omitempty"`
}

// ContextWire propagates context.Context metadata across the boundary.
type ContextWire struct {
	Deadline  *time.Time `json:"deadline,omitempty"`
	Plugin    string     `json:"plugin,omitempty"`
	RequestID string     `json:"request_id,omitempty"`
	TimeoutMs int64      `json:"timeout_ms,omitempty"`
	Canceled  bool       `json:"canceled,omitempty"`
}

// ErrorDetail provides structured error information, consistent across host
// and guest. Types: "trap", "timeout", "config", "panic", "validation",
// "internal".
type ErrorDetail struct {
	Wrapped *ErrorDetail `json:"wrapped,omitempty"`
	Message string       `json:"message"`
	Type    string       `json:"type"`
	Code    string       `json:"code,omitempty"`
	Stack   []byte       `json:"stack,omitempty"`
}

// Error implements the error interface.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != "internal" {
		msg = fmt.Sprintf("%s: %s", e.Type, msg)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	if e.Wrapped != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Wrapped.Error())
	}
	return msg
}

// FromError converts a Go error into an ErrorDetail for the wire.
func FromError(err error) *ErrorDetail {
	if err == nil {
		return nil
	}
	if d, ok := err.(*ErrorDetail); ok {
		return d
	}
	return &ErrorDetail{Message: err.Error(), Type: "internal"}
}
