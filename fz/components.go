// Package fz is the racing game plugin: a client side handling input,
// prediction, and cameras, and a server side owning the race state and
// mirroring every ship to every player.
package fz

import (
	"github.com/fzracing/fz/common"
	"github.com/fzracing/fz/wire"
)

// Component IDs in the fz namespace.
const (
	ClientShipID = "fz.client_ship"
	ServerShipID = "fz.server_ship"
)

// Mesh handles uploaded by the client.
const (
	ShipMesh       common.MeshHandle = "fz.Ship"
	MapMesh        common.MeshHandle = "fz.Map"
	FloorMesh      common.MeshHandle = "fz.Floor"
	FinishLineMesh common.MeshHandle = "fz.FinishLine"
)

// ClientShipComponent marks the locally controlled ship entity.
type ClientShipComponent struct{}

func (ClientShipComponent) ComponentID() string { return ClientShipID }

// ServerShipComponent is the server's record of one player's ship.
type ServerShipComponent struct {
	Client   wire.ClientID `json:"client"`
	IsReady  bool          `json:"is_ready"`
	IsRacing bool          `json:"is_racing"`
}

func (ServerShipComponent) ComponentID() string { return ServerShipID }
