// Package controls implements the ship flight model: throttle along the
// ship's forward axis, banked steering with horizontal thrusters, and a
// soft lock that keeps ships on the track surface.
package controls

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/fzracing/fz/common"
	"github.com/fzracing/fz/fz/curve"
	"github.com/fzracing/fz/fz/kinematics"
)

// Track cross-section bounds, in track-local coordinates.
const (
	TrackWidth  = 32.
	TrackHeight = 10.
	TrackLength = 10.
)

// Input deadzones.
const (
	throttleDeadzone = 0.1
	rollDeadzone     = 0.05
)

// lookAhead is how far along the curve, in control point indices, the
// ship's orientation is steered toward.
const lookAhead = 3.5

// InputAbstraction folds keyboard and gamepad into one control frame.
type InputAbstraction struct {
	Throttle float32 `json:"throttle"`
	Roll     float32 `json:"roll"`
	Pitch    float32 `json:"pitch"`
	Yaw      float32 `json:"yaw"`
}

// ShipCharacteristics defines a ship's physical capabilities.
type ShipCharacteristics struct {
	// Mass of the ship in kilograms.
	Mass float32 `json:"mass" validate:"gt=0"`
	// Moment of inertia about the roll axis.
	Moment float32 `json:"moment" validate:"gt=0"`
	// MaxTwirl caps angular velocity in radians per second.
	MaxTwirl float32 `json:"max_twirl" validate:"gt=0"`
	// MaxImpulse caps linear impulse per second.
	MaxImpulse float32 `json:"max_impulse" validate:"gt=0"`
}

// DefaultShip matches the stock racing ship.
func DefaultShip() ShipCharacteristics {
	return ShipCharacteristics{
		Mass:       1000,
		Moment:     1000 * 9, // mass * (3m)^2
		MaxTwirl:   5,
		MaxImpulse: 30,
	}
}

// ShipController advances a ship one step along the path. The transform
// and physics are mutated in place; callers write them back to their
// query afterwards.
func ShipController(
	dt float32,
	ship ShipCharacteristics,
	input InputAbstraction,
	path curve.Curve,
	tf *common.Transform,
	kt *kinematics.KinematicPhysics,
) {
	// Position within the course.
	nearestIdx := path.NearestIndex(tf.Pos)
	nearest := path.At(nearestIdx)
	local := nearest.Inverse().Mul(*tf)

	// Collision with the track boundary resets to the nearest control
	// point rather than letting the ship tumble off.
	zBound := abs(local.Pos.Z()) > TrackWidth/2
	yBound := abs(local.Pos.Y()) > TrackHeight/2
	if zBound || yBound {
		*tf = nearest
		kt.Vel = mgl32.Vec3{}
		kt.AngVel = mgl32.Vec3{}
	}

	// Throttle along the ship's forward axis.
	if abs(input.Throttle) > throttleDeadzone {
		wanted := tf.Orient.Rotate(mgl32.Vec3{1, 0, 0}).Mul(input.Throttle * ship.MaxImpulse)
		total := min(wanted.Len(), ship.MaxImpulse)
		if total > 0 {
			kt.Force(wanted.Normalize().Mul(total * dt))
		}
	}

	var desiredRoll float32
	if abs(input.Roll) > rollDeadzone {
		desiredRoll = input.Roll
	}

	// Steer smoothly toward the path direction a few points ahead,
	// banking with the roll input.
	future := path.Lerp(float32(nearestIdx) + lookAhead)
	bank := mgl32.QuatRotate(desiredRoll*math.Pi/16, mgl32.Vec3{1, 0, 0})
	wantedOrient := future.Orient.Mul(bank)

	trackRelVel := nearest.Orient.Inverse().Rotate(kt.Vel)
	lerpSpeed := dt * trackRelVel.X() / TrackLength
	tf.Orient = mgl32.QuatSlerp(tf.Orient.Normalize(), wantedOrient.Normalize(), clamp01(lerpSpeed*2))

	// Horizontal thrusters: sideways power grows with forward speed.
	horizForce := nearest.Orient.Rotate(mgl32.Vec3{0, 0, 1})
	availablePower := pow(abs(trackRelVel.X()), 1.1) + abs(trackRelVel.Z()) + 1
	kt.Vel = kt.Vel.Add(horizForce.Mul(dt * availablePower * sin(desiredRoll*math.Pi/2)))

	// Cancel velocity normal to the track surface.
	kt.Vel = kt.Vel.Sub(nearest.Orient.Rotate(mgl32.Vec3{0, 1, 0}).Mul(trackRelVel.Y()))

	// Lock height to the track.
	tf.Pos[1] = common.Lerp(tf.Pos.Y(), nearest.Pos.Y(), clamp01(lerpSpeed))
}

func abs(x float32) float32 {
	return float32(math.Abs(float64(x)))
}

func sin(x float32) float32 {
	return float32(math.Sin(float64(x)))
}

func pow(x, y float32) float32 {
	return float32(math.Pow(float64(x), float64(y)))
}

func clamp01(x float32) float32 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}
