// Package kinematics is a minimal rigid-body integrator for racing ships:
// velocity driven by per-tick impulses, orientation driven by angular
// velocity.
package kinematics

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/fzracing/fz/common"
	"github.com/fzracing/fz/sdk"
)

// ComponentID identifies the physics component on the wire.
const ComponentID = "fz.kinematic_physics"

// KinematicPhysics simulates an object with mass. Impulse accumulates
// within a tick and converts to velocity at the global time step, so
// every system sees the same current velocity while still being able to
// accelerate the object.
type KinematicPhysics struct {
	Mass    float32    `json:"mass"`
	Moment  float32    `json:"moment"`
	Vel     mgl32.Vec3 `json:"vel"`
	AngVel  mgl32.Vec3 `json:"ang_vel"`
	Impulse mgl32.Vec3 `json:"impulse"`
}

func (KinematicPhysics) ComponentID() string { return ComponentID }

// New creates a body at rest.
func New(mass, moment float32) KinematicPhysics {
	return KinematicPhysics{Mass: mass, Moment: moment}
}

// Force accumulates an impulse applied at the next step.
func (k *KinematicPhysics) Force(impulse mgl32.Vec3) {
	k.Impulse = k.Impulse.Add(impulse)
}

// Step converts the accumulated impulse into velocity and clears it.
// Massless bodies keep their velocity unchanged.
func (k *KinematicPhysics) Step(dt float32) {
	if k.Mass > 0 {
		k.Vel = k.Vel.Add(k.Impulse.Mul(dt / k.Mass))
	}
	k.Impulse = mgl32.Vec3{}
}

// Integrate advances a pose by one step: impulse into velocity, velocity
// into position, angular velocity into orientation.
func Integrate(tf *common.Transform, k *KinematicPhysics, dt float32) {
	k.Step(dt)
	tf.Pos = tf.Pos.Add(k.Vel.Mul(dt))

	if speed := k.AngVel.Len(); speed > 1e-6 {
		axis := k.AngVel.Mul(1 / speed)
		spin := mgl32.QuatRotate(speed*dt, axis)
		tf.Orient = spin.Mul(tf.Orient).Normalize()
	}
}

// Simulate integrates every entity in the named query. The query must
// declare write access to both the transform and physics components.
func Simulate(io *sdk.EngineIo, query string, dt float32) {
	for _, row := range io.Query(query) {
		tf, haveTf := sdk.Get[common.Transform](row)
		k, haveK := sdk.Get[KinematicPhysics](row)
		if !haveTf || !haveK {
			continue
		}
		Integrate(&tf, &k, dt)
		io.Write(query, row.Entity, tf)
		io.Write(query, row.Entity, k)
	}
}
