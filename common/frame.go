package common

import "github.com/fzracing/fz/wire"

// Engine message IDs delivered by the host rather than by plugins.
const (
	FrameTimeID   = "engine.frame_time"
	ConnectionsID = "engine.connections"
)

// FrameTime is delivered once per tick to every subscribed system.
type FrameTime struct {
	// Time is seconds since the session started.
	Time float32 `json:"time"`
	// Delta is seconds since the previous tick.
	Delta float32 `json:"delta"`
}

func (FrameTime) MessageID() string { return FrameTimeID }

func (FrameTime) Locality() wire.DestinationKind { return wire.DestLocal }

// Connection describes one connected client.
type Connection struct {
	ID wire.ClientID `json:"id"`
}

// Connections is delivered to server systems whenever the set of connected
// clients changes.
type Connections struct {
	Clients []Connection `json:"clients"`
}

func (Connections) MessageID() string { return ConnectionsID }

func (Connections) Locality() wire.DestinationKind { return wire.DestLocal }
