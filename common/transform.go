// Package common defines the component and message vocabulary shared by
// the engine host and plugins: transforms, render primitives, frame timing
// and input. Every type here crosses the wire as JSON and is identified by
// a namespaced component or message ID.
package common

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Component IDs owned by the engine namespace.
const (
	TransformID    = "engine.transform"
	SynchronizedID = "engine.synchronized"
	RenderID       = "engine.render"
	RenderExtraID  = "engine.render_extra"
	CameraID       = "engine.camera"
)

// Transform is a rigid-body pose: position plus orientation.
type Transform struct {
	Pos    mgl32.Vec3 `json:"pos"`
	Orient mgl32.Quat `json:"orient"`
}

func (Transform) ComponentID() string { return TransformID }

// NewTransform returns the identity transform.
func NewTransform() Transform {
	return Transform{Orient: mgl32.QuatIdent()}
}

// WithPosition returns a copy of t at the given position.
func (t Transform) WithPosition(pos mgl32.Vec3) Transform {
	t.Pos = pos
	return t
}

// WithRotation returns a copy of t with the given orientation.
func (t Transform) WithRotation(q mgl32.Quat) Transform {
	t.Orient = q
	return t
}

// Mul composes two transforms: the result applies u in t's frame.
func (t Transform) Mul(u Transform) Transform {
	return Transform{
		Pos:    t.Pos.Add(t.Orient.Rotate(u.Pos)),
		Orient: t.Orient.Mul(u.Orient),
	}
}

// Inverse returns the transform undoing t.
func (t Transform) Inverse() Transform {
	inv := t.Orient.Inverse()
	return Transform{
		Pos:    inv.Rotate(t.Pos.Mul(-1)),
		Orient: inv,
	}
}

// Apply maps a point from u's local frame into the parent frame of t.
func (t Transform) Apply(p mgl32.Vec3) mgl32.Vec3 {
	return t.Pos.Add(t.Orient.Rotate(p))
}

// Lerp interpolates between two transforms: linear on position, spherical
// on orientation.
func (t Transform) Lerp(u Transform, amount float32) Transform {
	return Transform{
		Pos:    Vec3Lerp(t.Pos, u.Pos, amount),
		Orient: mgl32.QuatSlerp(t.Orient.Normalize(), u.Orient.Normalize(), amount),
	}
}

// Vec3Lerp linearly interpolates between two vectors.
func Vec3Lerp(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Mul(1 - t).Add(b.Mul(t))
}

// Lerp linearly interpolates between two scalars.
func Lerp(a, b, t float32) float32 {
	return (1-t)*a + t*b
}

// QuatFromBasis builds an orientation from three basis column vectors.
// The basis should be orthonormal; slight drift is normalized away.
func QuatFromBasis(x, y, z mgl32.Vec3) mgl32.Quat {
	m := mgl32.Mat4FromCols(
		x.Vec4(0),
		y.Vec4(0),
		z.Vec4(0),
		mgl32.Vec4{0, 0, 0, 1},
	)
	return mgl32.Mat4ToQuat(m).Normalize()
}

// Synchronized marks a server-side entity for mirroring into every
// connected client's world each tick.
type Synchronized struct{}

func (Synchronized) ComponentID() string { return SynchronizedID }

// CameraComponent attaches a camera to an entity. Projection holds one
// matrix per eye; non-VR hosts read only the first.
type CameraComponent struct {
	ClearColor [3]float32    `json:"clear_color"`
	Projection [2]mgl32.Mat4 `json:"projection"`
}

func (CameraComponent) ComponentID() string { return CameraID }

// DefaultProjection returns a perspective projection for both eyes.
func DefaultProjection(fovRadians, aspect float32) [2]mgl32.Mat4 {
	p := mgl32.Perspective(fovRadians, aspect, 0.001, 1000.)
	return [2]mgl32.Mat4{p, p}
}
