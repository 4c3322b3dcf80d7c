package intersect

import (
	"math"

	"github.com/chazu/kerf/pkg/diag"
	"github.com/chazu/kerf/pkg/geom"
)

// LineCircle intersects a line with a circle. When the line lies in the
// circle's plane the hits are the closest point to the centre offset along
// the line by the Pythagorean half-chord, with a tangent band of the
// distance tolerance. Otherwise the line meets the carrier plane once and
// the hit is kept when it lies on the circle within tolerance.
func LineCircle(l geom.Line, c geom.Circle, extent geom.Extent, tol geom.Tolerance) (Result, error) {
	if err := checkCircle("line-circle", c, tol); err != nil {
		return none(), err
	}
	length := l.Length()
	if length <= tol.Distance {
		return none(), diag.Degenerate("line-circle", "zero-length line")
	}
	n := c.Normal.Normalize()
	u := l.Direction()

	var ts []float64
	if geom.IsPerpendicular(u, n, tol.Angle) {
		if math.Abs(c.Plane().SignedDistance(l.Start)) > tol.Distance {
			return none(), nil
		}
		t0 := l.ClosestParameter(c.Centre)
		h := geom.Distance(l.PointAt(t0), c.Centre)
		switch {
		case h > c.Radius+tol.Distance:
			return none(), nil
		case math.Abs(h-c.Radius) <= tol.Distance:
			ts = []float64{t0}
		default:
			off := math.Sqrt(c.Radius*c.Radius-h*h) / length
			ts = []float64{t0 - off, t0 + off}
		}
	} else {
		t := n.Dot(c.Centre.Sub(l.Start)) / n.Dot(u)
		p := l.PointAt(t)
		if math.Abs(geom.Distance(p, c.Centre)-c.Radius) > tol.Distance {
			return none(), nil
		}
		ts = []float64{t}
	}

	var pts []geom.Vec
	for _, t := range ts {
		if extent == geom.Bounded && !inUnit(t, tol.Distance/length) {
			continue
		}
		pts = append(pts, l.PointAt(t))
	}
	return pointsResult(pts), nil
}

// LineArc intersects a line with an arc: the line is intersected with the
// arc's circle and the hits are filtered to the swept range.
func LineArc(l geom.Line, a geom.Arc, extent geom.Extent, tol geom.Tolerance) (Result, error) {
	r, err := LineCircle(l, a.Circle(), extent, tol)
	if err != nil {
		return none(), err
	}
	return pointsResult(onArc(r.Points, a, tol)), nil
}

// CircleCircle intersects two circles.
//
// Coplanar circles use the two-circle formula on the centre distance d:
// concentric circles of equal radius coincide, d beyond r1+r2 or inside
// |r1-r2| (by more than the tolerance) do not meet, d within the tolerance
// of either bound is a single tangent point, and anything else gives two
// points. Non-coplanar circles are each cut by the other's carrier plane and
// the cut points that agree within tolerance are averaged.
func CircleCircle(c1, c2 geom.Circle, tol geom.Tolerance) (Result, error) {
	if err := checkCircle("circle-circle", c1, tol); err != nil {
		return none(), err
	}
	if err := checkCircle("circle-circle", c2, tol); err != nil {
		return none(), err
	}

	parallel := tol.ParallelNormals(c1.Normal, c2.Normal)
	offPlane := math.Abs(c1.Plane().SignedDistance(c2.Centre))
	if parallel && offPlane <= tol.Distance {
		return coplanarCircles(c1, c2, tol), nil
	}
	if parallel {
		return none(), nil
	}

	p1 := circlePlane(c1, c2.Plane(), tol)
	p2 := circlePlane(c2, c1.Plane(), tol)
	var pts []geom.Vec
	for _, p := range p1 {
		for _, q := range p2 {
			if geom.DistanceSquared(p, q) <= tol.Squared() {
				pts = append(pts, geom.Midpoint(p, q))
			}
		}
	}
	return pointsResult(geom.Unique(pts, tol.Distance)), nil
}

func coplanarCircles(c1, c2 geom.Circle, tol geom.Tolerance) Result {
	r1, r2 := c1.Radius, c2.Radius
	delta := c2.Centre.Sub(c1.Centre)
	d := delta.Length()
	if d <= tol.Distance {
		if math.Abs(r1-r2) <= tol.Distance {
			return Result{Kind: KindCoincident}
		}
		return none()
	}
	if d > r1+r2+tol.Distance || d < math.Abs(r1-r2)-tol.Distance {
		return none()
	}

	dir := delta.MulScalar(1 / d)
	a := (d*d + r1*r1 - r2*r2) / (2 * d)
	foot := c1.Centre.Add(dir.MulScalar(a))
	if math.Abs(d-(r1+r2)) <= tol.Distance || math.Abs(d-math.Abs(r1-r2)) <= tol.Distance {
		return pointsResult([]geom.Vec{foot})
	}
	h := math.Sqrt(math.Max(r1*r1-a*a, 0))
	perp := c1.Normal.Normalize().Cross(dir)
	return pointsResult([]geom.Vec{
		foot.Add(perp.MulScalar(h)),
		foot.Sub(perp.MulScalar(h)),
	})
}

// CircleArc intersects a circle with an arc. When the arc lies on the
// circle the result is an overlap spanning the whole arc.
func CircleArc(c geom.Circle, a geom.Arc, tol geom.Tolerance) (Result, error) {
	r, err := CircleCircle(c, a.Circle(), tol)
	if err != nil {
		return none(), err
	}
	if r.Kind == KindCoincident {
		return Result{Kind: KindOverlap, Points: []geom.Vec{a.StartPoint(), a.EndPoint()}}, nil
	}
	return pointsResult(onArc(r.Points, a, tol)), nil
}

// ArcArc intersects two arcs. Arcs on the same circle overlap; the result
// then holds the end points of either arc that lie on the other.
func ArcArc(a, b geom.Arc, tol geom.Tolerance) (Result, error) {
	r, err := CircleCircle(a.Circle(), b.Circle(), tol)
	if err != nil {
		return none(), err
	}
	if r.Kind == KindCoincident {
		ends := append(
			onArc([]geom.Vec{a.StartPoint(), a.EndPoint()}, b, tol),
			onArc([]geom.Vec{b.StartPoint(), b.EndPoint()}, a, tol)...,
		)
		ends = geom.Unique(ends, tol.Distance)
		switch len(ends) {
		case 0:
			return none(), nil
		case 1:
			return pointsResult(ends), nil
		}
		return Result{Kind: KindOverlap, Points: ends}, nil
	}
	return pointsResult(onArc(onArc(r.Points, a, tol), b, tol)), nil
}

// onArc keeps the points of the arc's circle that lie within the swept
// range. A point is kept when it is no farther from the arc's midpoint than
// the arc's end point is; chord length grows monotonically with the angle
// from the midpoint, so this holds for any sweep up to a full turn.
func onArc(pts []geom.Vec, a geom.Arc, tol geom.Tolerance) []geom.Vec {
	mid := a.MidPoint()
	reach := geom.Distance(mid, a.EndPoint()) + tol.Distance
	reach2 := reach * reach
	var out []geom.Vec
	for _, p := range pts {
		if geom.DistanceSquared(p, mid) <= reach2 {
			out = append(out, p)
		}
	}
	return out
}

// circlePlane returns the points where c crosses pl: one point when the
// circle only touches the plane, none when it misses it or lies in it.
//
// The signed distance of c(θ) to the plane is D + A·cosθ + B·sinθ, so the
// crossings are θ = atan2(B, A) ± acos(-D/R) with R = hypot(A, B).
func circlePlane(c geom.Circle, pl geom.Plane, tol geom.Tolerance) []geom.Vec {
	n, ok := geom.Unit(pl.Normal)
	if !ok {
		return nil
	}
	x, y := c.Axes()
	d := n.Dot(c.Centre.Sub(pl.Origin))
	a := c.Radius * n.Dot(x)
	b := c.Radius * n.Dot(y)
	r := math.Hypot(a, b)
	if r <= tol.Distance {
		return nil
	}
	ratio := -d / r
	if math.Abs(ratio) > 1+tol.Distance/r {
		return nil
	}
	ratio = math.Max(-1, math.Min(1, ratio))
	phi := math.Atan2(b, a)
	delta := math.Acos(ratio)
	pts := []geom.Vec{c.PointAtAngle(phi + delta), c.PointAtAngle(phi - delta)}
	return geom.Unique(pts, tol.Distance)
}

func checkCircle(op string, c geom.Circle, tol geom.Tolerance) error {
	if err := tol.Validate(); err != nil {
		return err
	}
	if c.Radius <= tol.Distance {
		return diag.Degenerate(op, "circle radius %g is within tolerance of zero", c.Radius)
	}
	if _, ok := geom.Unit(c.Normal); !ok {
		return diag.Degenerate(op, "circle has no normal")
	}
	return nil
}
