// Package tessellate samples NURBS surfaces into triangle meshes and any
// curve into a polyline. One mesh is produced per named part.
package tessellate

import (
	"fmt"
	"math"

	"github.com/chazu/kerf/pkg/diag"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/nurbs"
	"github.com/sirupsen/logrus"
)

// Part is a named surface to tessellate.
type Part struct {
	Name    string
	Surface geom.NurbsSurface
}

// Tessellate produces one mesh per part on a uSteps by vSteps parameter
// grid using the kernel's evaluator. Parts are never mutated.
func Tessellate(parts []Part, k kernel.Kernel, uSteps, vSteps int) ([]*kernel.Mesh, error) {
	meshes := make([]*kernel.Mesh, 0, len(parts))
	for i, p := range parts {
		m, err := Surface(k.Evaluator(), p.Surface, uSteps, vSteps)
		if err != nil {
			return nil, fmt.Errorf("tessellate: part %d (%s): %w", i, p.Name, err)
		}
		m.Name = p.Name
		meshes = append(meshes, m)
	}
	return meshes, nil
}

// Surface samples s on a regular (uSteps+1) by (vSteps+1) grid over its
// domain and joins neighbouring samples with two triangles per cell, wound
// so that the triangle normals agree with Su×Sv. Vertex normals come from
// the evaluator; at a collapsed edge such as a pole the normal is taken a
// little way inside the domain, and left zero when that fails too.
func Surface(ev *nurbs.Evaluator, s geom.NurbsSurface, uSteps, vSteps int) (*kernel.Mesh, error) {
	if uSteps < 1 || vSteps < 1 {
		return nil, fmt.Errorf("tessellate: %dx%d grid: %w", uSteps, vSteps, diag.ErrOutOfRange)
	}
	if ev == nil {
		ev = nurbs.Default()
	}
	if diags := nurbs.ValidateSurface(s); len(diags) > 0 {
		return nil, fmt.Errorf("tessellate: %w", diags[0])
	}

	u0, u1 := s.DomainU()
	v0, v1 := s.DomainV()
	m := &kernel.Mesh{}
	nudged := 0
	for i := 0; i <= uSteps; i++ {
		u := u0 + (u1-u0)*float64(i)/float64(uSteps)
		for j := 0; j <= vSteps; j++ {
			v := v0 + (v1-v0)*float64(j)/float64(vSteps)
			p, err := ev.SurfacePoint(s, u, v)
			if err != nil {
				return nil, fmt.Errorf("tessellate: point (%g, %g): %w", u, v, err)
			}
			n, err := ev.SurfaceNormal(s, u, v)
			if err != nil {
				n = nudgedNormal(ev, s, u, v)
				nudged++
			}
			m.AddVertex(p, n)
		}
	}

	row := uint32(vSteps + 1)
	for i := 0; i < uSteps; i++ {
		for j := 0; j < vSteps; j++ {
			a := uint32(i)*row + uint32(j)
			b := a + row
			m.AddTriangle(a, b, b+1)
			m.AddTriangle(a, b+1, a+1)
		}
	}

	log := diag.Logger()
	if log.IsLevelEnabled(logrus.DebugLevel) {
		log.WithFields(logrus.Fields{
			"vertices":  m.VertexCount(),
			"triangles": m.TriangleCount(),
			"nudged":    nudged,
		}).Debug("tessellated surface")
	}
	return m, nil
}

// nudgedNormal evaluates the normal slightly towards the middle of the
// domain.
func nudgedNormal(ev *nurbs.Evaluator, s geom.NurbsSurface, u, v float64) geom.Vec {
	u0, u1 := s.DomainU()
	v0, v1 := s.DomainV()
	const frac = 1e-6
	du := (u1 - u0) * frac * math.Copysign(1, (u0+u1)/2-u)
	dv := (v1 - v0) * frac * math.Copysign(1, (v0+v1)/2-v)
	for _, q := range [][2]float64{{u + du, v}, {u, v + dv}, {u + du, v + dv}} {
		if n, err := ev.SurfaceNormal(s, q[0], q[1]); err == nil {
			return n
		}
	}
	return geom.Vec{}
}

// Curve samples c into a polyline. Lines and polylines return their own
// vertices. Circles and arcs return steps points evenly spaced in angle,
// the circle's last point repeating its first. NURBS curves are sampled
// with SampleByParameterSteps. Composite curves join the samples of their
// parts without repeating the shared end points.
func Curve(ev *nurbs.Evaluator, c geom.Curve, steps int) ([]geom.Vec, error) {
	if steps < 2 {
		return nil, fmt.Errorf("tessellate: %d steps, need at least 2: %w", steps, diag.ErrOutOfRange)
	}
	if ev == nil {
		ev = nurbs.Default()
	}
	switch c.Kind() {
	case geom.KindLine:
		l := c.(geom.Line)
		return []geom.Vec{l.Start, l.End}, nil
	case geom.KindCircle:
		circ := c.(geom.Circle)
		pts := make([]geom.Vec, steps)
		for i := range pts {
			pts[i] = circ.PointAtAngle(2 * math.Pi * float64(i) / float64(steps-1))
		}
		pts[steps-1] = pts[0]
		return pts, nil
	case geom.KindArc:
		a := c.(geom.Arc)
		pts := make([]geom.Vec, steps)
		for i := range pts {
			pts[i] = a.PointAtAngle(a.StartAngle + a.Sweep()*float64(i)/float64(steps-1))
		}
		return pts, nil
	case geom.KindPolyline:
		return append([]geom.Vec(nil), c.(geom.Polyline).Points...), nil
	case geom.KindPolyCurve:
		var out []geom.Vec
		for _, part := range c.(geom.PolyCurve).Curves {
			pts, err := Curve(ev, part, steps)
			if err != nil {
				return nil, err
			}
			if len(out) > 0 && len(pts) > 0 && geom.Distance(out[len(out)-1], pts[0]) <= geom.DefaultDistanceTolerance {
				pts = pts[1:]
			}
			out = append(out, pts...)
		}
		return out, nil
	case geom.KindNurbs:
		pts, _, err := ev.SampleByParameterSteps(c.(geom.NurbsCurve), steps)
		return pts, err
	}
	geom.UnhandledKind("tessellate.Curve", c.Kind())
	return nil, nil
}
