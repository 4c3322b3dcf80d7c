package intersect

import (
	"math"

	"github.com/chazu/kerf/pkg/diag"
	"github.com/chazu/kerf/pkg/geom"
)

// CurvePlane intersects a curve with a plane. Parts lying in the plane are
// reported as KindCoincident (circles) or as an overlap spanning the part
// (lines, arcs). Composite curves are intersected part by part.
func CurvePlane(c geom.Curve, pl geom.Plane, tol geom.Tolerance) (Result, error) {
	if err := tol.Validate(); err != nil {
		return none(), err
	}
	n, ok := geom.Unit(pl.Normal)
	if !ok {
		return none(), diag.Degenerate("curve-plane", "plane has no normal")
	}
	pl.Normal = n

	switch c.Kind() {
	case geom.KindLine:
		return linePlane(c.(geom.Line), pl, tol), nil
	case geom.KindCircle:
		circ := c.(geom.Circle)
		if err := checkCircle("curve-plane", circ, tol); err != nil {
			return none(), err
		}
		if inPlane(circ.Centre, circ.Normal, pl, tol) {
			return Result{Kind: KindCoincident}, nil
		}
		return pointsResult(circlePlane(circ, pl, tol)), nil
	case geom.KindArc:
		a := c.(geom.Arc)
		if err := checkCircle("curve-plane", a.Circle(), tol); err != nil {
			return none(), err
		}
		if inPlane(a.Centre, a.Normal, pl, tol) {
			return Result{Kind: KindOverlap, Points: []geom.Vec{a.StartPoint(), a.EndPoint()}}, nil
		}
		return pointsResult(onArc(circlePlane(a.Circle(), pl, tol), a, tol)), nil
	case geom.KindPolyline, geom.KindPolyCurve:
		var out Result
		for _, part := range geom.SubParts(c) {
			r, err := CurvePlane(part, pl, tol)
			if err != nil {
				return none(), err
			}
			out = merge(out, r)
		}
		out.Points = geom.Unique(out.Points, tol.Distance)
		return out, nil
	case geom.KindNurbs:
		return none(), diag.Unsupported("curve-plane", "nurbs curves are not intersected")
	}
	geom.UnhandledKind("CurvePlane", c.Kind())
	return none(), nil
}

func linePlane(l geom.Line, pl geom.Plane, tol geom.Tolerance) Result {
	ds := pl.SignedDistance(l.Start)
	de := pl.SignedDistance(l.End)
	if math.Abs(ds) <= tol.Distance && math.Abs(de) <= tol.Distance {
		return Result{Kind: KindOverlap, Points: []geom.Vec{l.Start, l.End}}
	}
	if math.Abs(ds) <= tol.Distance {
		return pointsResult([]geom.Vec{l.Start})
	}
	if math.Abs(de) <= tol.Distance {
		return pointsResult([]geom.Vec{l.End})
	}
	if (ds > 0) == (de > 0) {
		return none()
	}
	return pointsResult([]geom.Vec{l.PointAt(ds / (ds - de))})
}

func inPlane(centre, normal geom.Vec, pl geom.Plane, tol geom.Tolerance) bool {
	return tol.ParallelNormals(normal, pl.Normal) && math.Abs(pl.SignedDistance(centre)) <= tol.Distance
}
