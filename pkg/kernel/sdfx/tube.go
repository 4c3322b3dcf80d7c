// Package sdfx meshes the neighbourhood of a curve with the
// github.com/deadsy/sdfx signed-distance library, giving curves a
// renderable body alongside the tessellated surfaces.
package sdfx

import (
	"fmt"

	"github.com/chazu/kerf/pkg/diag"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/sirupsen/logrus"
)

// DefaultCells is the marching cubes resolution along the longest side of
// the tube's bounding box.
const DefaultCells = 64

// tube is the solid within radius of a curve.
type tube struct {
	c      geom.Curve
	radius float64
	box    sdf.Box3
}

// Compile-time interface check.
var _ sdf.SDF3 = (*tube)(nil)

// Evaluate returns the signed distance from p to the tube surface.
func (t *tube) Evaluate(p v3.Vec) float64 {
	// Tube has rejected NURBS parts, the only kind DistanceToCurve fails on.
	d, _ := geom.DistanceToCurve(t.c, p)
	return d - t.radius
}

// BoundingBox returns the curve's box grown past the tube surface.
func (t *tube) BoundingBox() sdf.Box3 {
	return t.box
}

// Tube returns a triangle mesh of the surface at distance radius from c,
// sampled by marching cubes with cells cells along the longest side. NURBS
// curves must be converted to polylines first.
func Tube(c geom.Curve, radius float64, cells int) (*kernel.Mesh, error) {
	if radius <= 0 {
		return nil, diag.Degenerate("tube", "radius %g must be positive", radius)
	}
	if cells < 1 {
		return nil, fmt.Errorf("tube: %d cells: %w", cells, diag.ErrOutOfRange)
	}
	for _, part := range geom.SubParts(c) {
		if part.Kind() == geom.KindNurbs {
			return nil, diag.Unsupported("tube", "nurbs curves must be sampled into a polyline first")
		}
	}
	b := geom.Bounds(c)
	pad := 1.1 * radius
	grow := v3.Vec{X: pad, Y: pad, Z: pad}
	t := &tube{c: c, radius: radius, box: sdf.Box3{Min: b.Min.Sub(grow), Max: b.Max.Add(grow)}}
	return toMesh(t, cells), nil
}

// toMesh converts a solid to a triangle mesh using marching cubes. Each
// triangle gets its own three vertices carrying the face normal.
func toMesh(s sdf.SDF3, cells int) *kernel.Mesh {
	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(s, renderer)

	numVerts := len(triangles) * 3
	m := &kernel.Mesh{
		Vertices: make([]float32, 0, numVerts*3),
		Normals:  make([]float32, 0, numVerts*3),
		Indices:  make([]uint32, 0, numVerts),
	}
	for _, tri := range triangles {
		n := tri.Normal()
		a := m.AddVertex(tri[0], n)
		b := m.AddVertex(tri[1], n)
		c := m.AddVertex(tri[2], n)
		m.AddTriangle(a, b, c)
	}

	diag.Logger().WithFields(logrus.Fields{
		"cells":     cells,
		"triangles": m.TriangleCount(),
	}).Debug("meshed tube")
	return m
}
