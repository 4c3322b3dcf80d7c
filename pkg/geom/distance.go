package geom

import (
	"math"

	"github.com/chazu/kerf/pkg/diag"
)

// DistanceToCurve returns the shortest distance from p to c. Lines are
// treated as bounded segments. NURBS curves are not supported.
func DistanceToCurve(c Curve, p Vec) (float64, error) {
	switch c.Kind() {
	case KindLine:
		return c.(Line).DistanceTo(p, Bounded), nil
	case KindCircle:
		return c.(Circle).DistanceTo(p), nil
	case KindArc:
		return c.(Arc).DistanceTo(p), nil
	case KindPolyline, KindPolyCurve:
		best := math.Inf(1)
		for _, part := range SubParts(c) {
			d, err := DistanceToCurve(part, p)
			if err != nil {
				return math.NaN(), err
			}
			best = math.Min(best, d)
		}
		return best, nil
	case KindNurbs:
		return math.NaN(), diag.Unsupported("distance", "nurbs curves")
	}
	UnhandledKind("DistanceToCurve", c.Kind())
	return math.NaN(), nil
}

// DistanceTo returns the distance from p to the nearest point of the
// circle.
func (c Circle) DistanceTo(p Vec) float64 {
	n, ok := Unit(c.Normal)
	if !ok {
		return Distance(c.Centre, p) + c.Radius
	}
	d := p.Sub(c.Centre)
	h := d.Dot(n)
	rho := d.Sub(n.MulScalar(h)).Length()
	return math.Hypot(rho-c.Radius, h)
}

// DistanceTo returns the distance from p to the nearest point of the arc.
func (a Arc) DistanceTo(p Vec) float64 {
	if a.ContainsAngle(a.angleOf(p)) {
		return a.Circle().DistanceTo(p)
	}
	return math.Min(Distance(p, a.StartPoint()), Distance(p, a.EndPoint()))
}
