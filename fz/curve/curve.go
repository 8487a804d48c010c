// Package curve models the race track: an oriented loop of control
// points the ship controller steers along, plus the cubic Bezier form
// used to author smooth paths.
package curve

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/fzracing/fz/common"
)

// ControlPoint anchors one Bezier segment: a position and the outgoing
// tangent direction.
type ControlPoint struct {
	Pos mgl32.Vec3 `json:"pos"`
	Dir mgl32.Vec3 `json:"dir"`
}

// Bezier is a chain of cubic segments between consecutive control
// points, with the handle of each end derived from its Dir.
type Bezier []ControlPoint

type segment struct {
	a, b, c, d mgl32.Vec3
}

// segmentAt maps parameter t onto a segment index and a local parameter
// in [0, 1]. Out-of-range t clamps to the nearest endpoint.
func (bz Bezier) segmentAt(t float32) (segment, float32) {
	i := int(math.Floor(float64(t)))
	if i < 0 {
		i = 0
	}
	if last := len(bz) - 2; i > last {
		i = last
	}
	local := t - float32(i)
	if local < 0 {
		local = 0
	} else if local > 1 {
		local = 1
	}
	return segment{
		a: bz[i].Pos,
		b: bz[i].Pos.Add(bz[i].Dir),
		c: bz[i+1].Pos.Sub(bz[i].Dir),
		d: bz[i+1].Pos,
	}, local
}

// Interp evaluates the path position at parameter t in [0, len-1],
// clamping to the endpoints outside that range.
func (bz Bezier) Interp(t float32) mgl32.Vec3 {
	seg, local := bz.segmentAt(t)
	return seg.interp(local)
}

// Deriv evaluates the path tangent at parameter t in [0, len-1],
// clamping to the endpoints outside that range.
func (bz Bezier) Deriv(t float32) mgl32.Vec3 {
	seg, local := bz.segmentAt(t)
	return seg.deriv(local)
}

func (s segment) interp(t float32) mgl32.Vec3 {
	neg := 1 - t
	out := s.a.Mul(neg * neg * neg)
	out = out.Add(s.b.Mul(neg * neg * t))
	out = out.Add(s.c.Mul(neg * t * t))
	return out.Add(s.d.Mul(t * t * t))
}

func (s segment) deriv(t float32) mgl32.Vec3 {
	neg := 1 - t
	out := s.b.Sub(s.a).Mul(3 * neg * neg)
	out = out.Add(s.c.Sub(s.b).Mul(6 * neg * t))
	return out.Add(s.d.Sub(s.c).Mul(3 * t * t))
}

func fract(t float32) float32 {
	return t - float32(math.Floor(float64(t)))
}

// Curve is a closed loop of oriented control points. Each point's local
// frame has +X pointing along the direction of travel, +Y up off the
// track surface, and +Z across the track.
type Curve struct {
	Points []common.Transform
}

// New wraps oriented control points into a curve.
func New(points []common.Transform) Curve {
	return Curve{Points: points}
}

// Len returns the number of control points.
func (c Curve) Len() int { return len(c.Points) }

// At returns the control point at index i, wrapping around the loop.
func (c Curve) At(i int) common.Transform {
	n := len(c.Points)
	i %= n
	if i < 0 {
		i += n
	}
	return c.Points[i]
}

// Lerp interpolates the pose at fractional index t, wrapping around the
// loop: linear on position, spherical on orientation.
func (c Curve) Lerp(t float32) common.Transform {
	i := int(math.Floor(float64(t)))
	return c.At(i).Lerp(c.At(i+1), fract(t))
}

// NearestIndex returns the index of the control point closest to pos.
func (c Curve) NearestIndex(pos mgl32.Vec3) int {
	best := 0
	bestDist := float32(math.MaxFloat32)
	for i, p := range c.Points {
		if d := p.Pos.Sub(pos).LenSqr(); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// FromMesh reads oriented control points out of an axes mesh: each run
// of four vertices marks (+X tip, origin, +Y tip, +Z tip) of one local
// frame, the way path meshes are exported.
func FromMesh(m common.Mesh) Curve {
	var points []common.Transform
	for i := 0; i+4 <= len(m.Vertices); i += 4 {
		origin := mgl32.Vec3(m.Vertices[i+1].Pos)
		toVec := func(j int) mgl32.Vec3 {
			return mgl32.Vec3(m.Vertices[i+j].Pos).Sub(origin)
		}

		x := toVec(0)
		y := toVec(2)
		z := toVec(3).Mul(-1)

		points = append(points, common.Transform{
			Pos:    origin,
			Orient: common.QuatFromBasis(z, y, x.Mul(-1)),
		})
	}
	return New(points)
}

// FromBezier samples an authored Bezier path into an oriented loop,
// deriving each frame from the tangent and world up.
func FromBezier(bz Bezier, samplesPerSegment int) Curve {
	if len(bz) < 2 || samplesPerSegment < 1 {
		return Curve{}
	}
	var points []common.Transform
	segments := len(bz) - 1
	for s := 0; s < segments; s++ {
		for k := 0; k < samplesPerSegment; k++ {
			t := float32(s) + float32(k)/float32(samplesPerSegment)
			points = append(points, frameAt(bz.Interp(t), bz.Deriv(t)))
		}
	}
	return New(points)
}

// Loop builds a procedural circular track: n control points around a
// circle of the given radius at the given height, facing the direction
// of travel.
func Loop(n int, radius, height float32) Curve {
	points := make([]common.Transform, 0, n)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		sin, cos := float32(math.Sin(theta)), float32(math.Cos(theta))

		pos := mgl32.Vec3{radius * cos, height, radius * sin}
		tangent := mgl32.Vec3{-sin, 0, cos}
		points = append(points, frameAt(pos, tangent))
	}
	return New(points)
}

func frameAt(pos, tangent mgl32.Vec3) common.Transform {
	x := tangent.Normalize()
	up := mgl32.Vec3{0, 1, 0}
	z := x.Cross(up).Normalize()
	y := z.Cross(x)
	return common.Transform{Pos: pos, Orient: common.QuatFromBasis(x, y, z)}
}
