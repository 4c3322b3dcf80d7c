package nurbs

import (
	"math"

	"github.com/chazu/kerf/pkg/diag"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/knot"
)

// FromLine returns the degree-1 curve through the line's end points.
func FromLine(l geom.Line) geom.NurbsCurve {
	return geom.NurbsCurve{
		ControlPoints: []geom.Vec{l.Start, l.End},
		Knots:         knot.Vector{0, 0, 1, 1},
		Degree:        1,
	}
}

// FromPolyline returns the degree-1 curve through the polyline's points,
// with one uniform knot interval per segment.
func FromPolyline(p geom.Polyline) (geom.NurbsCurve, error) {
	n := len(p.Points)
	if n < 2 {
		return geom.NurbsCurve{}, diag.Degenerate("nurbs from polyline", "%d points, need at least 2", n)
	}
	pts := make([]geom.Vec, n)
	copy(pts, p.Points)
	return geom.NurbsCurve{ControlPoints: pts, Knots: knot.Uniform(1, n), Degree: 1}, nil
}

// FromArc returns the exact rational quadratic representation of a, split
// into at most four pieces of equal sweep (Piegl & Tiller A7.1). The
// parameter domain is [0, 1].
func FromArc(a geom.Arc) (geom.NurbsCurve, error) {
	if !(a.Radius > 0) {
		return geom.NurbsCurve{}, diag.Degenerate("nurbs from arc", "radius %g", a.Radius)
	}
	start, end := a.StartAngle, a.EndAngle
	if end < start {
		end += 2 * math.Pi
	}
	sweep := math.Min(end-start, 2*math.Pi)
	if sweep == 0 {
		return geom.NurbsCurve{}, diag.Degenerate("nurbs from arc", "zero sweep")
	}

	narcs := int(math.Ceil(sweep/(math.Pi/2) - 1e-9))
	dtheta := sweep / float64(narcs)
	w1 := math.Cos(dtheta / 2)

	pts := make([]geom.Vec, 0, 2*narcs+1)
	weights := make([]float64, 0, 2*narcs+1)
	pts = append(pts, a.PointAtAngle(start))
	weights = append(weights, 1)
	shoulder := geom.Arc{Centre: a.Centre, Normal: a.Normal, XAxis: a.XAxis, Radius: a.Radius / w1}
	angle := start
	for i := 0; i < narcs; i++ {
		pts = append(pts, shoulder.PointAtAngle(angle+dtheta/2))
		weights = append(weights, w1)
		angle += dtheta
		pts = append(pts, a.PointAtAngle(angle))
		weights = append(weights, 1)
	}

	k := knot.Vector{0, 0, 0}
	for i := 1; i < narcs; i++ {
		v := float64(i) / float64(narcs)
		k = append(k, v, v)
	}
	k = append(k, 1, 1, 1)
	return geom.NurbsCurve{ControlPoints: pts, Weights: weights, Knots: k, Degree: 2}, nil
}

// FromCircle returns the exact rational representation of the full circle.
func FromCircle(c geom.Circle) (geom.NurbsCurve, error) {
	return FromArc(geom.NewArc(c.Centre, c.Normal, c.Radius, 0, 2*math.Pi))
}
