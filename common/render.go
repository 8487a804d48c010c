package common

import "github.com/fzracing/fz/wire"

// Message IDs owned by the engine namespace.
const (
	UploadMeshID = "engine.upload_mesh"
)

// MeshHandle names an uploaded mesh. Plugins namespace their handles to
// avoid collisions, e.g. "fz.Ship".
type MeshHandle string

// Primitive selects how mesh indices are interpreted.
type Primitive string

const (
	Points    Primitive = "points"
	Lines     Primitive = "lines"
	Triangles Primitive = "triangles"
)

// Vertex is a mesh vertex: position plus a UVW triple the shaders treat as
// color for wireframe rendering.
type Vertex struct {
	Pos [3]float32 `json:"pos"`
	UVW [3]float32 `json:"uvw"`
}

// NewVertex builds a vertex from position and color.
func NewVertex(pos, color [3]float32) Vertex {
	return Vertex{Pos: pos, UVW: color}
}

// Mesh is indexed geometry uploaded to the host renderer.
type Mesh struct {
	Vertices []Vertex `json:"vertices"`
	Indices  []uint32 `json:"indices"`
}

// PushVertex appends a vertex and returns its index.
func (m *Mesh) PushVertex(v Vertex) uint32 {
	idx := uint32(len(m.Vertices))
	m.Vertices = append(m.Vertices, v)
	return idx
}

// Recolor overwrites the color of every vertex.
func (m *Mesh) Recolor(color [3]float32) {
	for i := range m.Vertices {
		m.Vertices[i].UVW = color
	}
}

// Render attaches uploaded geometry to an entity.
type Render struct {
	MeshID    MeshHandle `json:"mesh_id"`
	Primitive Primitive  `json:"primitive"`
	// Limit caps how many indices are drawn; nil draws all.
	Limit *uint32 `json:"limit,omitempty"`
}

func (Render) ComponentID() string { return RenderID }

// NewRender builds a Render for the given mesh, drawing triangles.
func NewRender(id MeshHandle) Render {
	return Render{MeshID: id, Primitive: Triangles}
}

// WithPrimitive returns a copy drawing the given primitive.
func (r Render) WithPrimitive(p Primitive) Render {
	r.Primitive = p
	return r
}

// RenderExtra is a 16-float scratch register handed to the shaders; the
// first four floats are conventionally RGBA.
type RenderExtra [16]float32

func (RenderExtra) ComponentID() string { return RenderExtraID }

// ColorExtra fills a RenderExtra with an opaque RGB color.
func ColorExtra(color [3]float32) RenderExtra {
	return RenderExtra{color[0], color[1], color[2], 1}
}

// UploadMesh asks the host renderer to store geometry under a handle.
// Local: consumed by the instance's own host, never relayed.
type UploadMesh struct {
	ID   MeshHandle `json:"id"`
	Mesh Mesh       `json:"mesh"`
}

func (UploadMesh) MessageID() string { return UploadMeshID }

func (UploadMesh) Locality() wire.DestinationKind { return wire.DestLocal }
