package kernel

import "github.com/chazu/kerf/pkg/geom"

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Name     string    `json:"name"`     // which script binding this came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// AddVertex appends a vertex and its normal and returns its index.
func (m *Mesh) AddVertex(p, n geom.Vec) uint32 {
	i := uint32(m.VertexCount())
	m.Vertices = append(m.Vertices, float32(p.X), float32(p.Y), float32(p.Z))
	m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
	return i
}

// AddTriangle appends a triangle over existing vertex indices.
func (m *Mesh) AddTriangle(a, b, c uint32) {
	m.Indices = append(m.Indices, a, b, c)
}

// Vertex returns vertex i.
func (m *Mesh) Vertex(i int) geom.Vec {
	return geom.V(float64(m.Vertices[3*i]), float64(m.Vertices[3*i+1]), float64(m.Vertices[3*i+2]))
}

// Normal returns the normal of vertex i.
func (m *Mesh) Normal(i int) geom.Vec {
	return geom.V(float64(m.Normals[3*i]), float64(m.Normals[3*i+1]), float64(m.Normals[3*i+2]))
}
