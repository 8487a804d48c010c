package fz

import (
	"github.com/fzracing/fz/common"
	"github.com/fzracing/fz/fz/kinematics"
	"github.com/fzracing/fz/wire"
)

// Message IDs in the fz namespace.
const (
	ClientReadyID  = "fz.client_ready"
	StartRaceID    = "fz.start_race"
	FinishedID     = "fz.finished"
	ShipUploadID   = "fz.ship_upload"
	ChatUploadID   = "fz.chat_upload"
	ChatDownloadID = "fz.chat_download"
)

// ClientReady toggles a player's readiness for the next race.
type ClientReady struct {
	Ready bool `json:"ready"`
}

func (ClientReady) MessageID() string              { return ClientReadyID }
func (ClientReady) Locality() wire.DestinationKind { return wire.DestRemote }

// StartRace tells one client its race has begun and where its ship
// starts on the grid.
type StartRace struct {
	Client   wire.ClientID    `json:"client"`
	Position common.Transform `json:"position"`
}

func (StartRace) MessageID() string              { return StartRaceID }
func (StartRace) Locality() wire.DestinationKind { return wire.DestRemote }

// Finished reports a completed race with the total time in seconds.
type Finished struct {
	Time float32 `json:"time"`
}

func (Finished) MessageID() string              { return FinishedID }
func (Finished) Locality() wire.DestinationKind { return wire.DestRemote }

// ShipUpload streams the client's predicted ship state to the server.
type ShipUpload struct {
	Transform common.Transform            `json:"transform"`
	Physics   kinematics.KinematicPhysics `json:"physics"`
}

func (ShipUpload) MessageID() string              { return ShipUploadID }
func (ShipUpload) Locality() wire.DestinationKind { return wire.DestRemote }

// ChatUpload sends a chat line to the server.
type ChatUpload struct {
	Text string `json:"text"`
}

func (ChatUpload) MessageID() string              { return ChatUploadID }
func (ChatUpload) Locality() wire.DestinationKind { return wire.DestRemote }

// ChatDownload broadcasts a chat line to every client.
type ChatDownload struct {
	Sender wire.ClientID `json:"sender"`
	Text   string        `json:"text"`
}

func (ChatDownload) MessageID() string              { return ChatDownloadID }
func (ChatDownload) Locality() wire.DestinationKind { return wire.DestRemote }
