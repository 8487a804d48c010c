// Package countdown animates the 3-2-1-go sequence at the start line
// and gates when the race clock actually starts.
package countdown

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/fzracing/fz/common"
	"github.com/fzracing/fz/fz/shapes"
	"github.com/fzracing/fz/sdk"
	"github.com/fzracing/fz/wire"
)

// Mesh handles for the countdown glyphs.
const (
	Digit1Mesh common.MeshHandle = "fz.Countdown1"
	Digit2Mesh common.MeshHandle = "fz.Countdown2"
	Digit3Mesh common.MeshHandle = "fz.Countdown3"
	GoMesh     common.MeshHandle = "fz.CountdownGo"
)

// StartDelay is how long after a restart the ships are released.
const StartDelay float32 = 3

var glyphColors = [][3]float32{
	{1, 0, 1},
	{0, 1, 1},
	{1, 1, 0},
}

// Animation owns the glyph entities orbiting the start line.
type Animation struct {
	entities     []wire.EntityID
	position     common.Transform
	startTime    float32
	started      bool
	needsRestart bool
}

// UploadAssets sends the digit and go glyph meshes to the renderer.
func UploadAssets(io *sdk.EngineIo) {
	white := [3]float32{1, 1, 1}
	io.Send(common.UploadMesh{ID: Digit1Mesh, Mesh: shapes.DigitMesh(1, white)})
	io.Send(common.UploadMesh{ID: Digit2Mesh, Mesh: shapes.DigitMesh(2, white)})
	io.Send(common.UploadMesh{ID: Digit3Mesh, Mesh: shapes.DigitMesh(3, white)})
	io.Send(common.UploadMesh{ID: GoMesh, Mesh: shapes.GoMesh(white)})
}

// New creates the glyph entities at the given pose.
func New(io *sdk.EngineIo, position common.Transform) *Animation {
	a := &Animation{position: position}
	for range glyphColors {
		ent := io.CreateEntity(
			common.NewTransform(),
			common.NewRender(Digit1Mesh).WithPrimitive(common.Lines),
		)
		a.entities = append(a.entities, ent)
	}
	return a
}

// Restart rewinds the countdown; the clock restarts on the next update.
func (a *Animation) Restart() {
	a.needsRestart = true
}

// MatchStarted reports whether the release gate has passed.
func (a *Animation) MatchStarted(t common.FrameTime) bool {
	return a.started && !a.needsRestart && t.Time-a.startTime >= StartDelay
}

// Elapsed is the race clock: seconds since the ships were released.
func (a *Animation) Elapsed(t common.FrameTime) float32 {
	return t.Time - a.startTime - StartDelay
}

// Update advances the animation one frame, swapping glyph meshes as the
// countdown progresses.
func (a *Animation) Update(io *sdk.EngineIo, t common.FrameTime) {
	if a.needsRestart {
		a.startTime = t.Time
		a.started = true
		a.needsRestart = false
	}

	elapsed := t.Time - a.startTime

	var mesh common.MeshHandle
	switch int(elapsed) + 1 {
	case 1:
		mesh = Digit3Mesh
	case 2:
		mesh = Digit2Mesh
	case 3:
		mesh = Digit1Mesh
	default:
		mesh = GoMesh
	}
	render := common.NewRender(mesh).WithPrimitive(common.Lines)

	for idx, ent := range a.entities {
		phase := float64(t.Time*3 + float32(idx)/3)
		orbit := common.NewTransform().WithPosition(mgl32.Vec3{
			float32(idx) / 3,
			float32(math.Cos(phase)),
			float32(math.Sin(phase)),
		})
		io.AddComponent(ent, a.position.Mul(orbit))
		io.AddComponent(ent, render)
		io.AddComponent(ent, common.ColorExtra(glyphColors[idx]))
	}
}
