package controls

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fzracing/fz/common"
	"github.com/fzracing/fz/fz/curve"
	"github.com/fzracing/fz/fz/kinematics"
)

func testTrack() curve.Curve {
	return curve.Loop(64, 120, 0)
}

func shipAt(tf common.Transform) (common.Transform, kinematics.KinematicPhysics) {
	ship := DefaultShip()
	return tf, kinematics.New(ship.Mass, ship.Moment)
}

func TestShipController_ThrottleAccumulatesImpulse(t *testing.T) {
	path := testTrack()
	tf, kt := shipAt(path.At(0))

	ShipController(0.1, DefaultShip(), InputAbstraction{Throttle: 1}, path, &tf, &kt)

	assert.Positive(t, kt.Impulse.Len(), "full throttle must produce impulse")
}

func TestShipController_ThrottleDeadzone(t *testing.T) {
	path := testTrack()
	tf, kt := shipAt(path.At(0))

	ShipController(0.1, DefaultShip(), InputAbstraction{Throttle: 0.05}, path, &tf, &kt)

	assert.Zero(t, kt.Impulse.Len(), "input inside the deadzone must not thrust")
}

func TestShipController_BoundaryResetsToTrack(t *testing.T) {
	path := testTrack()
	nearest := path.At(0)

	// Start well outside the track cross-section, moving fast.
	tf := nearest
	tf.Pos = tf.Pos.Add(nearest.Orient.Rotate(mgl32.Vec3{0, 0, TrackWidth}))
	kt := kinematics.New(1000, 9000)
	kt.Vel = mgl32.Vec3{50, 0, 50}

	ShipController(0.1, DefaultShip(), InputAbstraction{}, path, &tf, &kt)

	assert.Equal(t, nearest.Pos, tf.Pos, "out-of-bounds ship snaps to the nearest control point")
	assert.Zero(t, kt.Vel.Len())
	assert.Zero(t, kt.AngVel.Len())
}

func TestShipController_HeightBoundResets(t *testing.T) {
	path := testTrack()
	nearest := path.At(0)

	tf := nearest
	tf.Pos = tf.Pos.Add(mgl32.Vec3{0, TrackHeight, 0})
	kt := kinematics.New(1000, 9000)
	kt.Vel = mgl32.Vec3{10, 10, 0}

	ShipController(0.1, DefaultShip(), InputAbstraction{}, path, &tf, &kt)

	assert.Equal(t, nearest.Pos, tf.Pos)
	assert.Zero(t, kt.Vel.Len())
}

func TestShipController_CancelsVerticalVelocity(t *testing.T) {
	path := testTrack()
	tf, kt := shipAt(path.At(0))
	kt.Vel = mgl32.Vec3{0, 5, 0}

	ShipController(0.1, DefaultShip(), InputAbstraction{}, path, &tf, &kt)

	// Velocity normal to the track surface is removed each step.
	up := path.At(0).Orient.Rotate(mgl32.Vec3{0, 1, 0})
	assert.InDelta(t, 0.0, kt.Vel.Dot(up), 1e-3)
}

func TestShipController_RollSteersAcrossTrack(t *testing.T) {
	path := testTrack()
	start := path.At(0)
	tf, kt := shipAt(start)

	// Forward speed powers the horizontal thrusters.
	kt.Vel = start.Orient.Rotate(mgl32.Vec3{30, 0, 0})
	before := start.Orient.Inverse().Rotate(kt.Vel).Z()

	ShipController(0.1, DefaultShip(), InputAbstraction{Roll: 1}, path, &tf, &kt)

	after := start.Orient.Inverse().Rotate(kt.Vel).Z()
	assert.Greater(t, after, before, "banking right must push the ship across the track")
}

func TestShipController_RollDeadzone(t *testing.T) {
	path := testTrack()
	start := path.At(0)
	tf, kt := shipAt(start)
	kt.Vel = start.Orient.Rotate(mgl32.Vec3{30, 0, 0})

	ShipController(0.1, DefaultShip(), InputAbstraction{Roll: 0.01}, path, &tf, &kt)

	across := start.Orient.Inverse().Rotate(kt.Vel).Z()
	assert.InDelta(t, 0.0, across, 1e-3)
}

func TestShipController_LocksHeightToTrack(t *testing.T) {
	path := testTrack()
	start := path.At(0)

	tf := start
	tf.Pos = tf.Pos.Add(mgl32.Vec3{0, 2, 0})
	kt := kinematics.New(1000, 9000)
	kt.Vel = start.Orient.Rotate(mgl32.Vec3{40, 0, 0})

	before := tf.Pos.Y() - start.Pos.Y()
	ShipController(0.1, DefaultShip(), InputAbstraction{}, path, &tf, &kt)
	after := tf.Pos.Y() - start.Pos.Y()

	require.Less(t, abs(after), abs(before), "height offset must shrink toward the track")
}

func TestDefaultShip_Characteristics(t *testing.T) {
	ship := DefaultShip()
	assert.InDelta(t, 1000.0, ship.Mass, 1e-6)
	assert.InDelta(t, 9000.0, ship.Moment, 1e-6)
	assert.InDelta(t, 5.0, ship.MaxTwirl, 1e-6)
	assert.InDelta(t, 30.0, ship.MaxImpulse, 1e-6)
}
