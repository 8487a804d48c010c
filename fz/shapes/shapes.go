// Package shapes generates the wireframe meshes the game renders:
// track art, the ship, the finish line, and countdown glyphs.
package shapes

import (
	"math"

	"github.com/fzracing/fz/common"
)

// GridMesh builds a square line grid of 2n+1 lines per axis at y=0.
func GridMesh(n int, scale float32, color [3]float32) common.Mesh {
	var m common.Mesh
	width := float32(n) * scale

	for i := -n; i <= n; i++ {
		j := float32(i) * scale
		positions := [][3]float32{
			{j, 0, width},
			{j, 0, -width},
			{width, 0, j},
			{-width, 0, j},
		}
		for _, pos := range positions {
			idx := m.PushVertex(common.NewVertex(pos, color))
			m.Indices = append(m.Indices, idx)
		}
	}
	return m
}

// ShipMesh is a wireframe dart: nose on +X, fins spread along Z.
func ShipMesh(color [3]float32) common.Mesh {
	var m common.Mesh
	nose := m.PushVertex(common.NewVertex([3]float32{3, 0, 0}, color))
	tailL := m.PushVertex(common.NewVertex([3]float32{-2, 0, -2}, color))
	tailR := m.PushVertex(common.NewVertex([3]float32{-2, 0, 2}, color))
	spine := m.PushVertex(common.NewVertex([3]float32{-1, 0.8, 0}, color))

	m.Indices = append(m.Indices,
		nose, tailL,
		nose, tailR,
		tailL, tailR,
		nose, spine,
		spine, tailL,
		spine, tailR,
	)
	return m
}

// FinishLineMesh is a gate spanning the track width.
func FinishLineMesh(width, height float32, color [3]float32) common.Mesh {
	var m common.Mesh
	half := width / 2
	bl := m.PushVertex(common.NewVertex([3]float32{0, 0, -half}, color))
	br := m.PushVertex(common.NewVertex([3]float32{0, 0, half}, color))
	tl := m.PushVertex(common.NewVertex([3]float32{0, height, -half}, color))
	tr := m.PushVertex(common.NewVertex([3]float32{0, height, half}, color))

	m.Indices = append(m.Indices,
		bl, br,
		bl, tl,
		br, tr,
		tl, tr,
	)
	return m
}

// Seven-segment layout, segments indexed:
//
//	 0
//	1 2
//	 3
//	4 5
//	 6
var segmentEnds = [7][2][3]float32{
	{{0, 2, -0.5}, {0, 2, 0.5}},
	{{0, 2, -0.5}, {0, 1, -0.5}},
	{{0, 2, 0.5}, {0, 1, 0.5}},
	{{0, 1, -0.5}, {0, 1, 0.5}},
	{{0, 1, -0.5}, {0, 0, -0.5}},
	{{0, 1, 0.5}, {0, 0, 0.5}},
	{{0, 0, -0.5}, {0, 0, 0.5}},
}

var digitSegments = map[int][]int{
	1: {2, 5},
	2: {0, 2, 3, 4, 6},
	3: {0, 2, 3, 5, 6},
}

// DigitMesh draws a countdown digit (1-3) as seven-segment strokes.
func DigitMesh(digit int, color [3]float32) common.Mesh {
	var m common.Mesh
	for _, seg := range digitSegments[digit] {
		a := m.PushVertex(common.NewVertex(segmentEnds[seg][0], color))
		b := m.PushVertex(common.NewVertex(segmentEnds[seg][1], color))
		m.Indices = append(m.Indices, a, b)
	}
	return m
}

// GoMesh draws the race-start glyph: a ring with a forward chevron.
func GoMesh(color [3]float32) common.Mesh {
	var m common.Mesh

	const steps = 16
	var ring []uint32
	for i := 0; i < steps; i++ {
		theta := 2 * math.Pi * float64(i) / steps
		pos := [3]float32{0, 1 + float32(math.Sin(theta)), float32(math.Cos(theta))}
		ring = append(ring, m.PushVertex(common.NewVertex(pos, color)))
	}
	for i := range ring {
		m.Indices = append(m.Indices, ring[i], ring[(i+1)%len(ring)])
	}

	tip := m.PushVertex(common.NewVertex([3]float32{0, 1, 0.4}, color))
	up := m.PushVertex(common.NewVertex([3]float32{0, 1.4, -0.2}, color))
	down := m.PushVertex(common.NewVertex([3]float32{0, 0.6, -0.2}, color))
	m.Indices = append(m.Indices, up, tip, tip, down)

	return m
}
