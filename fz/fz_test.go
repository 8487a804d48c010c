package fz_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fzracing/fz/common"
	"github.com/fzracing/fz/fz"
	"github.com/fzracing/fz/fz/kinematics"
	"github.com/fzracing/fz/sdk"
	"github.com/fzracing/fz/sdk/sdktest"
	"github.com/fzracing/fz/wire"
)

func raceConfig() fz.Config {
	return fz.Config{Laps: 1, TrackPoints: 16, TrackRadius: 120}
}

type serverShip struct {
	entity wire.EntityID
	state  fz.ServerShipComponent
	pose   common.Transform
}

// serverShips reads every mirrored ship out of the server world, keyed
// by owning client.
func serverShips(t *testing.T, h *sdktest.Harness) map[wire.ClientID]serverShip {
	t.Helper()
	out := make(map[wire.ClientID]serverShip)
	for _, ent := range h.Session.ServerWorld().Entities(fz.ServerShipID) {
		var ship serverShip
		ship.entity = ent
		require.True(t, h.ServerComponent(ent, fz.ServerShipID, &ship.state))
		require.True(t, h.ServerComponent(ent, common.TransformID, &ship.pose))
		out[ship.state.Client] = ship
	}
	return out
}

func pressKey(h *sdktest.Harness, client wire.ClientID, key common.KeyCode) {
	h.Deliver(client, common.InputEvent{Key: key, Pressed: true})
}

func TestServer_CreatesOneShipPerClient(t *testing.T) {
	h := sdktest.New(t, fz.Def(), sdktest.WithConfig(raceConfig()))
	c1 := h.Join()
	c2 := h.Join()

	h.Tick(0.1)

	ships := serverShips(t, h)
	require.Len(t, ships, 2)
	assert.Contains(t, ships, c1)
	assert.Contains(t, ships, c2)
	for _, ship := range ships {
		assert.False(t, ship.state.IsReady)
		assert.False(t, ship.state.IsRacing)
	}
}

func TestServer_RemovesShipOnDisconnect(t *testing.T) {
	h := sdktest.New(t, fz.Def(), sdktest.WithConfig(raceConfig()))
	c1 := h.Join()
	c2 := h.Join()
	h.Tick(0.1)

	require.NoError(t, h.Session.RemoveClient(t.Context(), c2))
	h.Tick(0.1)

	ships := serverShips(t, h)
	require.Len(t, ships, 1)
	assert.Contains(t, ships, c1)
}

func TestClient_SeesMirroredShips(t *testing.T) {
	h := sdktest.New(t, fz.Def(), sdktest.WithConfig(raceConfig()))
	h.Join()
	c2 := h.Join()

	h.Tick(0.1)

	world, ok := h.Session.ClientWorld(c2)
	require.True(t, ok)
	assert.Len(t, world.Entities(fz.ServerShipID), 2)
}

func TestRace_StartsWhenEveryoneIsReady(t *testing.T) {
	h := sdktest.New(t, fz.Def(), sdktest.WithConfig(raceConfig()))
	c1 := h.Join()
	c2 := h.Join()
	h.Tick(0.1)

	// Only one player ready: no race.
	pressKey(h, c1, common.KeyR)
	h.TickN(2, 0.1)
	for _, ship := range serverShips(t, h) {
		assert.False(t, ship.state.IsRacing)
	}
	ships := serverShips(t, h)
	assert.True(t, ships[c1].state.IsReady)
	assert.False(t, ships[c2].state.IsReady)

	// Second player readies up: the race launches and readiness clears.
	pressKey(h, c2, common.KeyR)
	h.TickN(2, 0.1)
	for _, ship := range serverShips(t, h) {
		assert.True(t, ship.state.IsRacing)
		assert.False(t, ship.state.IsReady)
	}
}

func TestRace_ReadyToggleCancels(t *testing.T) {
	h := sdktest.New(t, fz.Def(), sdktest.WithConfig(raceConfig()))
	c1 := h.Join()
	h.Join()
	h.Tick(0.1)

	pressKey(h, c1, common.KeyR)
	h.Tick(0.1)
	h.Deliver(c1, common.InputEvent{Key: common.KeyR, Pressed: false})
	h.Tick(0.1)
	pressKey(h, c1, common.KeyR)
	h.TickN(2, 0.1)

	ships := serverShips(t, h)
	assert.False(t, ships[c1].state.IsReady, "second press must toggle readiness off")
	for _, ship := range ships {
		assert.False(t, ship.state.IsRacing)
	}
}

func TestRace_ShipsAssignedGridPositions(t *testing.T) {
	h := sdktest.New(t, fz.Def(), sdktest.WithConfig(raceConfig()))
	c1 := h.Join()
	c2 := h.Join()
	h.Tick(0.1)

	pressKey(h, c1, common.KeyR)
	pressKey(h, c2, common.KeyR)
	h.TickN(2, 0.1)

	ships := serverShips(t, h)
	require.Len(t, ships, 2)
	assert.NotEqual(t, ships[c1].pose.Pos, ships[c2].pose.Pos,
		"grid slots must not overlap")
}

func TestRace_CountdownGatesMotion(t *testing.T) {
	h := sdktest.New(t, fz.Def(), sdktest.WithConfig(raceConfig()))
	c1 := h.Join()
	c2 := h.Join()
	h.Tick(0.5)

	pressKey(h, c1, common.KeyR)
	pressKey(h, c2, common.KeyR)
	h.TickN(3, 0.5) // race starts; clients latch the countdown

	pressKey(h, c1, common.KeyW)
	start := serverShips(t, h)[c1].pose.Pos

	// Inside the countdown the ships stay parked on the grid.
	h.TickN(2, 0.5)
	during := serverShips(t, h)[c1].pose.Pos
	assert.InDelta(t, 0.0, during.Sub(start).Len(), 1e-3,
		"ships must not move before the countdown ends")

	// Once the gate opens the flight model takes over: the ship snaps
	// onto the track surface and throttle builds up speed.
	h.TickN(12, 0.5)
	after := serverShips(t, h)[c1]
	assert.Greater(t, after.pose.Pos.Sub(start).Len(), float32(50),
		"racing ship must leave the grid for the track")

	var phys kinematics.KinematicPhysics
	require.True(t, h.ServerComponent(after.entity, kinematics.ComponentID, &phys))
	assert.Positive(t, phys.Vel.Len(), "throttle must build velocity")
}

func TestConfig_RejectsBadLapCount(t *testing.T) {
	app := sdk.NewApp(fz.Def())
	resp := app.HandleInit(wire.InitRequest{
		Mode:   wire.ModeServer,
		Config: json.RawMessage(`{"laps": 99, "track_points": 16, "track_radius": 120}`),
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, "config", resp.Error.Type)
}

func TestTrackMeshUploads(t *testing.T) {
	h := sdktest.New(t, fz.Def(), sdktest.WithConfig(raceConfig()))
	c1 := h.Join()

	world, ok := h.Session.ClientWorld(c1)
	require.True(t, ok)
	assert.NotEmpty(t, world.Entities(common.RenderID),
		"client seeds track, floor, ship, and countdown renderables")
}
