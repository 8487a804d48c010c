package fz

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/fzracing/fz/common"
	"github.com/fzracing/fz/fz/kinematics"
	"github.com/fzracing/fz/sdk"
	"github.com/fzracing/fz/wire"
)

// resetTime is how long after a win the race state resets, in seconds.
const resetTime float32 = 50

// finishEventName is the telemetry event the host's records store
// listens for.
const finishEventName = "race_finished"

// finishEvent is the race_finished payload.
type finishEvent struct {
	RaceTime float64 `json:"race_time"`
	Laps     int     `json:"laps"`
}

// serverState owns the race: one mirrored ship per connected client,
// readiness, the start grid, and the winner.
type serverState struct {
	app  *sdk.App
	laps int

	ships map[wire.ClientID]wire.EntityID

	winner         *raceResult
	resetCountdown float32
}

type raceResult struct {
	client wire.ClientID
	time   float32
}

func newServer(app *sdk.App, io *sdk.EngineIo) error {
	cfg := DefaultConfig()
	if err := app.Config(&cfg); err != nil {
		return err
	}

	st := &serverState{
		app:   app,
		laps:  cfg.Laps,
		ships: make(map[wire.ClientID]wire.EntityID),
	}

	app.AddSystem("conn_update", st.connUpdate).
		Stage(wire.StagePreUpdate).
		Subscribe(common.Connections{}).
		Build()

	app.AddSystem("client_state_update", st.clientStateUpdate).
		Subscribe(ClientReady{}).
		Query("ships",
			sdk.Writes(ServerShipComponent{}),
			sdk.Writes(common.Transform{}),
		).
		Build()

	app.AddSystem("ship_update", st.shipUpdate).
		Subscribe(ShipUpload{}).
		Query("ships",
			sdk.Reads(ServerShipComponent{}),
			sdk.Writes(common.Transform{}),
			sdk.Writes(kinematics.KinematicPhysics{}),
		).
		Build()

	app.AddSystem("kinematics_update", st.kinematicsUpdate).
		Subscribe(common.FrameTime{}).
		Query("kinematics",
			sdk.Writes(common.Transform{}),
			sdk.Writes(kinematics.KinematicPhysics{}),
		).
		Build()

	app.AddSystem("win_reset", st.winReset).
		Stage(wire.StagePostUpdate).
		Subscribe(common.FrameTime{}, Finished{}).
		Query("ships", sdk.Writes(ServerShipComponent{})).
		Build()

	app.AddSystem("chat", st.chat).
		Stage(wire.StagePostUpdate).
		Subscribe(ChatUpload{}).
		Build()

	return nil
}

// connUpdate reconciles the mirrored ships against the connected client
// roster: one synchronized ship per client.
func (st *serverState) connUpdate(io *sdk.EngineIo) {
	// Rosters can stack up within a tick; only the newest matters.
	rosters := sdk.Inbox[common.Connections](io)
	if len(rosters) == 0 {
		return
	}
	conns := rosters[len(rosters)-1]

	connected := make(map[wire.ClientID]bool, len(conns.Clients))
	for _, c := range conns.Clients {
		connected[c.ID] = true
	}

	for client, ent := range st.ships {
		if !connected[client] {
			io.RemoveEntity(ent)
			delete(st.ships, client)
			st.app.Logger().Info("client left", "client", client)
		}
	}

	for _, c := range conns.Clients {
		if _, have := st.ships[c.ID]; have {
			continue
		}
		ent := io.CreateEntity(
			common.NewTransform(),
			common.NewRender(ShipMesh).WithPrimitive(common.Lines),
			common.Synchronized{},
			ServerShipComponent{Client: c.ID},
			kinematics.New(1000, 9000),
		)
		st.ships[c.ID] = ent
		st.app.Logger().Info("client joined", "client", c.ID)
	}
}

// gridPosition lays the start grid out behind the origin, one slot per
// grid index.
func gridPosition(slot int) common.Transform {
	pos := mgl32.Vec3{0, 0, -5}
	pos[0] -= float32(slot) * 5
	pos[2] = -pos[2]
	return common.NewTransform().WithPosition(pos)
}

// clientStateUpdate tracks readiness and launches the race once every
// connected client is ready.
func (st *serverState) clientStateUpdate(io *sdk.EngineIo) {
	ready := make(map[wire.ClientID]bool)
	for _, msg := range sdk.InboxClients[ClientReady](io) {
		ready[msg.Sender] = msg.Msg.Ready
	}

	rows := io.Query("ships")
	allReady := len(rows) > 0
	anyReady := false
	ships := make(map[wire.EntityID]ServerShipComponent, len(rows))

	for _, row := range rows {
		ship, ok := sdk.Get[ServerShipComponent](row)
		if !ok {
			continue
		}
		if r, toggled := ready[ship.Client]; toggled {
			ship.IsReady = r
			io.Write("ships", row.Entity, ship)
		}
		ships[row.Entity] = ship
		allReady = allReady && ship.IsReady
		anyReady = anyReady || ship.IsReady
	}

	if !allReady || !anyReady {
		return
	}

	slot := 0
	for _, row := range rows {
		ship, ok := ships[row.Entity]
		if !ok {
			continue
		}
		start := gridPosition(slot)
		slot++

		ship.IsReady = false
		ship.IsRacing = true
		io.Write("ships", row.Entity, ship)
		io.Write("ships", row.Entity, start)
		io.SendToClient(StartRace{Client: ship.Client, Position: start}, ship.Client)
	}
	st.app.Logger().Info("race started", "ships", slot, "laps", st.laps)
}

// shipUpdate applies each client's latest streamed state to its
// mirrored ship. Last write per client wins within a tick.
func (st *serverState) shipUpdate(io *sdk.EngineIo) {
	latest := make(map[wire.ClientID]ShipUpload)
	for _, msg := range sdk.InboxClients[ShipUpload](io) {
		latest[msg.Sender] = msg.Msg
	}
	if len(latest) == 0 {
		return
	}

	for _, row := range io.Query("ships") {
		ship, ok := sdk.Get[ServerShipComponent](row)
		if !ok {
			continue
		}
		upload, have := latest[ship.Client]
		if !have {
			continue
		}
		io.Write("ships", row.Entity, upload.Transform)
		io.Write("ships", row.Entity, upload.Physics)
	}
}

func (st *serverState) kinematicsUpdate(io *sdk.EngineIo) {
	if t, ok := sdk.InboxFirst[common.FrameTime](io); ok {
		kinematics.Simulate(io, "kinematics", t.Delta)
	}
}

// winReset records finishers, keeps the best time as the winner, and
// clears the race once the reset countdown elapses or nobody is left
// racing.
func (st *serverState) winReset(io *sdk.EngineIo) {
	t, ok := sdk.InboxFirst[common.FrameTime](io)
	if !ok {
		return
	}

	finished := make(map[wire.ClientID]float32)
	for _, msg := range sdk.InboxClients[Finished](io) {
		finished[msg.Sender] = msg.Msg.Time

		sender := msg.Sender
		event := finishEvent{RaceTime: float64(msg.Msg.Time), Laps: st.laps}
		if err := st.app.EmitEvent(finishEventName, &sender, event); err != nil {
			st.app.Logger().Warn("recording finish failed", "client", sender, "error", err)
		}

		if st.winner == nil || msg.Msg.Time < st.winner.time {
			st.winner = &raceResult{client: msg.Sender, time: msg.Msg.Time}
			st.resetCountdown = t.Time + resetTime
			st.app.Logger().Info("race won", "client", msg.Sender, "time", msg.Msg.Time)
			io.Send(ChatDownload{
				Sender: msg.Sender,
				Text:   fmt.Sprintf("wins in %.2fs", msg.Msg.Time),
			})
		}
	}

	anyRacing := false
	for _, row := range io.Query("ships") {
		ship, ok := sdk.Get[ServerShipComponent](row)
		if !ok {
			continue
		}
		if _, done := finished[ship.Client]; done && ship.IsRacing {
			ship.IsRacing = false
			io.Write("ships", row.Entity, ship)
		}
		anyRacing = anyRacing || ship.IsRacing
	}

	if st.winner != nil && (t.Time >= st.resetCountdown || !anyRacing) {
		st.winner = nil
	}
}

// chat relays client chat lines to every connected client, tagged with
// the sender.
func (st *serverState) chat(io *sdk.EngineIo) {
	for _, msg := range sdk.InboxClients[ChatUpload](io) {
		io.Send(ChatDownload{Sender: msg.Sender, Text: msg.Msg.Text})
	}
}
