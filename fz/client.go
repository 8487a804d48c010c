package fz

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/fzracing/fz/common"
	"github.com/fzracing/fz/fz/controls"
	"github.com/fzracing/fz/fz/countdown"
	"github.com/fzracing/fz/fz/curve"
	"github.com/fzracing/fz/fz/kinematics"
	"github.com/fzracing/fz/fz/obj"
	"github.com/fzracing/fz/fz/shapes"
	"github.com/fzracing/fz/sdk"
	"github.com/fzracing/fz/wire"
)

// FinishLineIndex is the control point the finish gate sits on.
const FinishLineIndex = 10

// cameraOffset trails behind and above the ship, looking forward.
var cameraOffset = common.Transform{
	Pos:    mgl32.Vec3{-13, 2, 0},
	Orient: mgl32.QuatRotate(-mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0}),
}

// clientState drives one player: input, ship prediction, cameras, and
// the countdown. The server stays authoritative over who is racing.
type clientState struct {
	app *sdk.App

	racing bool
	ready  bool
	lap    int
	laps   int

	shipEnt   wire.EntityID
	cameraEnt wire.EntityID

	countdown   *countdown.Animation
	inputHelper *common.InputHelper
	input       controls.InputAbstraction
	motionCfg   controls.ShipCharacteristics

	path        curve.Curve
	lastShipPos mgl32.Vec3
}

func newClient(app *sdk.App, io *sdk.EngineIo) error {
	cfg := DefaultConfig()
	if err := app.Config(&cfg); err != nil {
		return err
	}

	path, err := buildTrack(cfg)
	if err != nil {
		return err
	}

	st := &clientState{
		app:         app,
		laps:        cfg.Laps,
		inputHelper: common.NewInputHelper(),
		motionCfg:   controls.DefaultShip(),
		path:        path,
	}

	io.Send(common.UploadMesh{ID: MapMesh, Mesh: trackMesh(path, [3]float32{0.2, 0.2, 1})})
	io.Send(common.UploadMesh{ID: FloorMesh, Mesh: shapes.GridMesh(20, 20, [3]float32{0, 0.2, 0})})
	io.Send(common.UploadMesh{ID: ShipMesh, Mesh: shapes.ShipMesh([3]float32{1, 1, 1})})
	io.Send(common.UploadMesh{ID: FinishLineMesh, Mesh: shapes.FinishLineMesh(controls.TrackWidth, controls.TrackHeight, [3]float32{1, 0.3, 0.3})})
	countdown.UploadAssets(io)

	io.CreateEntity(
		common.NewTransform(),
		common.NewRender(MapMesh).WithPrimitive(common.Lines),
	)
	io.CreateEntity(
		path.Lerp(FinishLineIndex),
		common.NewRender(FinishLineMesh).WithPrimitive(common.Lines),
	)
	io.CreateEntity(
		common.NewTransform().WithPosition(mgl32.Vec3{0, -50, 0}),
		common.NewRender(FloorMesh).WithPrimitive(common.Lines),
	)

	st.shipEnt = io.CreateEntity(
		st.path.At(0),
		common.NewRender(ShipMesh).WithPrimitive(common.Lines),
		ClientShipComponent{},
		kinematics.New(st.motionCfg.Mass, st.motionCfg.Moment),
	)
	st.lastShipPos = st.path.At(0).Pos

	st.cameraEnt = io.CreateEntity(
		common.NewTransform(),
		common.CameraComponent{Projection: common.DefaultProjection(mgl32.DegToRad(80), 16./9.)},
	)

	st.countdown = countdown.New(io, st.path.At(0))

	app.AddSystem("controller_input", st.controllerInput).
		Stage(wire.StagePreUpdate).
		Subscribe(common.GamepadState{}, common.InputEvent{}).
		Build()

	app.AddSystem("game_mode", st.gameMode).
		Stage(wire.StagePreUpdate).
		Subscribe(StartRace{}).
		Build()

	app.AddSystem("deleter", st.deleter).
		Stage(wire.StagePreUpdate).
		Query("server_ships", sdk.Reads(ServerShipComponent{})).
		Build()

	app.AddSystem("animation", st.animation).
		Subscribe(common.FrameTime{}).
		Build()

	app.AddSystem("motion_update", st.motionUpdate).
		Subscribe(common.FrameTime{}).
		Query("ship",
			sdk.Reads(ClientShipComponent{}),
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

	app.AddSystem("camera", st.camera).
		Stage(wire.StagePostUpdate).
		Query("ship",
			sdk.Reads(ClientShipComponent{}),
			sdk.Reads(common.Transform{}),
		).
		Query("server_ships",
			sdk.Reads(ServerShipComponent{}),
			sdk.Reads(common.Transform{}),
		).
		Build()

	app.AddSystem("chat", st.chat).
		Stage(wire.StagePostUpdate).
		Subscribe(ChatDownload{}).
		Build()

	return nil
}

// buildTrack loads the authored path mesh when configured, falling back
// to the procedural loop.
func buildTrack(cfg Config) (curve.Curve, error) {
	if cfg.TrackOBJ != "" {
		mesh, err := obj.ParseLines(cfg.TrackOBJ)
		if err != nil {
			return curve.Curve{}, fmt.Errorf("parsing track: %w", err)
		}
		path := curve.FromMesh(mesh)
		if path.Len() < 2 {
			return curve.Curve{}, fmt.Errorf("track mesh has %d control points, need at least 2", path.Len())
		}
		return path, nil
	}
	return curve.Loop(cfg.TrackPoints, cfg.TrackRadius, 0), nil
}

// trackMesh draws the track edges: a line loop on each side of the
// course at the width bound.
func trackMesh(path curve.Curve, color [3]float32) common.Mesh {
	var m common.Mesh
	n := path.Len()
	if n == 0 {
		return m
	}

	for side := 0; side < 2; side++ {
		z := float32(controls.TrackWidth / 2)
		if side == 1 {
			z = -z
		}
		var edge []uint32
		for i := 0; i < n; i++ {
			pos := path.At(i).Apply(mgl32.Vec3{0, 0, z})
			edge = append(edge, m.PushVertex(common.NewVertex(pos, color)))
		}
		for i := range edge {
			m.Indices = append(m.Indices, edge[i], edge[(i+1)%len(edge)])
		}
	}
	return m
}

// controllerInput folds keyboard and gamepad events into the control
// frame read by motion_update, and handles the ready toggle.
func (st *clientState) controllerInput(io *sdk.EngineIo) {
	for _, ev := range sdk.Inbox[common.InputEvent](io) {
		st.inputHelper.HandleEvent(ev)

		if ev.Key == common.KeyR && ev.Pressed && !st.racing {
			st.ready = !st.ready
			io.Send(ClientReady{Ready: st.ready})
			if st.ready {
				io.Send(ChatUpload{Text: "is ready to race"})
			} else {
				io.Send(ChatUpload{Text: "is no longer ready"})
			}
		}
	}

	var input controls.InputAbstraction
	if pads, ok := sdk.InboxFirst[common.GamepadState](io); ok && len(pads.Gamepads) > 0 {
		pad := pads.Gamepads[0]
		input.Throttle = -pad.AxisValue(common.AxisLeftStickY)
		input.Roll = -pad.AxisValue(common.AxisLeftStickX)
	}

	switch {
	case st.inputHelper.KeyHeld(common.KeyW):
		input.Throttle = 1
	case st.inputHelper.KeyHeld(common.KeyS):
		input.Throttle = -1
	}
	switch {
	case st.inputHelper.KeyHeld(common.KeyA):
		input.Roll = -1
	case st.inputHelper.KeyHeld(common.KeyD):
		input.Roll = 1
	}

	st.input = input
}

// gameMode reacts to the server starting a race for this client.
func (st *clientState) gameMode(io *sdk.EngineIo) {
	me, _ := io.Client()
	for _, start := range sdk.Inbox[StartRace](io) {
		if start.Client != me {
			continue
		}
		st.racing = true
		st.ready = false
		st.lap = 1
		st.countdown.Restart()
		st.lastShipPos = start.Position.Pos

		io.AddComponent(st.shipEnt, start.Position)
		io.AddComponent(st.shipEnt, kinematics.New(st.motionCfg.Mass, st.motionCfg.Moment))
	}
}

// deleter removes mirrored ships this client should not see: its own
// server-side ghost while racing, and idle ships during a race.
func (st *clientState) deleter(io *sdk.EngineIo) {
	if !st.racing {
		return
	}
	me, _ := io.Client()
	for _, row := range io.Query("server_ships") {
		ship, ok := sdk.Get[ServerShipComponent](row)
		if !ok {
			continue
		}
		if ship.Client == me || !ship.IsRacing {
			io.RemoveEntity(row.Entity)
		}
	}
}

func (st *clientState) animation(io *sdk.EngineIo) {
	if t, ok := sdk.InboxFirst[common.FrameTime](io); ok {
		st.countdown.Update(io, t)
	}
}

func (st *clientState) kinematicsUpdate(io *sdk.EngineIo) {
	if t, ok := sdk.InboxFirst[common.FrameTime](io); ok {
		kinematics.Simulate(io, "kinematics", t.Delta)
	}
}

// motionUpdate runs the flight model for the local ship, streams its
// state to the server, and detects finish line crossings.
func (st *clientState) motionUpdate(io *sdk.EngineIo) {
	t, ok := sdk.InboxFirst[common.FrameTime](io)
	if !ok {
		return
	}

	for _, row := range io.Query("ship") {
		tf, haveTf := sdk.Get[common.Transform](row)
		kt, haveKt := sdk.Get[kinematics.KinematicPhysics](row)
		if !haveTf || !haveKt {
			continue
		}

		if st.racing && st.countdown.MatchStarted(t) {
			controls.ShipController(t.Delta, st.motionCfg, st.input, st.path, &tf, &kt)
			st.checkFinishLine(io, t, tf.Pos)
		} else {
			kt.Vel = mgl32.Vec3{}
			kt.AngVel = mgl32.Vec3{}
			kt.Impulse = mgl32.Vec3{}
		}

		io.Write("ship", row.Entity, tf)
		io.Write("ship", row.Entity, kt)
		io.Send(ShipUpload{Transform: tf, Physics: kt})
		st.lastShipPos = tf.Pos
	}
}

// checkFinishLine counts a lap when the ship crosses the gate plane
// moving forward near the gate's control point.
func (st *clientState) checkFinishLine(io *sdk.EngineIo, t common.FrameTime, pos mgl32.Vec3) {
	nearest := st.path.NearestIndex(pos)
	if d := nearest - FinishLineIndex; d < -3 || d > 3 {
		return
	}

	gate := st.path.At(FinishLineIndex).Inverse()
	prev := gate.Apply(st.lastShipPos)
	now := gate.Apply(pos)
	if !(prev.X() < 0 && now.X() >= 0) {
		return
	}

	elapsed := st.countdown.Elapsed(t)
	if st.lap < st.laps {
		st.lap++
		io.Send(ChatUpload{Text: fmt.Sprintf("started lap %d at %.2fs", st.lap, elapsed)})
		return
	}

	io.Send(Finished{Time: elapsed})
	io.Send(ChatUpload{Text: fmt.Sprintf("finished in %.2fs", elapsed)})
	st.racing = false
}

// camera trails the local ship during a race and spectates the first
// mirrored ship otherwise.
func (st *clientState) camera(io *sdk.EngineIo) {
	target, ok := st.cameraTarget(io)
	if !ok {
		return
	}
	io.AddComponent(st.cameraEnt, target.Mul(cameraOffset))
}

func (st *clientState) cameraTarget(io *sdk.EngineIo) (common.Transform, bool) {
	if st.racing {
		for _, row := range io.Query("ship") {
			if tf, ok := sdk.Get[common.Transform](row); ok {
				return tf, true
			}
		}
		return common.Transform{}, false
	}

	for _, row := range io.Query("server_ships") {
		ship, ok := sdk.Get[ServerShipComponent](row)
		if !ok || !ship.IsRacing {
			continue
		}
		if tf, ok := sdk.Get[common.Transform](row); ok {
			return tf, true
		}
	}
	return common.NewTransform().WithPosition(mgl32.Vec3{0, 10, 0}), true
}

func (st *clientState) chat(io *sdk.EngineIo) {
	for _, line := range sdk.Inbox[ChatDownload](io) {
		st.app.Logger().Info("chat", "from", line.Sender, "text", line.Text)
	}
}
