package containment

import (
	"math"

	"github.com/chazu/kerf/pkg/diag"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/intersect"
	"github.com/sirupsen/logrus"
)

// region is a closed planar curve prepared for repeated point queries.
type region struct {
	parts []geom.Curve
	plane geom.Plane
	reach float64 // ray length beyond the reference point
}

func prepareRegion(c geom.Curve, tol geom.Tolerance) (*region, error) {
	if err := tol.Validate(); err != nil {
		return nil, err
	}
	parts := geom.SubParts(c)
	for _, p := range parts {
		if p.Kind() == geom.KindNurbs {
			return nil, diag.Unsupported("contains", "nurbs regions are not supported")
		}
	}
	if len(parts) == 0 || !geom.IsClosed(c, tol.Distance) {
		return nil, diag.Degenerate("contains", "region is not a closed curve")
	}
	pl, err := FitPlane(c, tol)
	if err != nil {
		return nil, err
	}
	return &region{
		parts: parts,
		plane: pl,
		reach: 2 * geom.Diagonal(geom.Bounds(c)),
	}, nil
}

// IsContaining reports whether every point lies inside the closed planar
// region. A point farther than the distance tolerance from the region's
// plane is outside; a point on the boundary is inside exactly when
// acceptOnEdge is set. An empty point list is contained.
func IsContaining(regionCurve geom.Curve, points []geom.Vec, acceptOnEdge bool, tol geom.Tolerance) (bool, error) {
	r, err := prepareRegion(regionCurve, tol)
	if err != nil {
		return false, err
	}
	for _, p := range points {
		in, err := r.contains(p, acceptOnEdge, tol)
		if err != nil {
			return false, err
		}
		if !in {
			return false, nil
		}
	}
	return true, nil
}

// ContainsEach tests each point on its own. Points that cannot be tested
// are recorded in rec and reported as outside; a region that cannot be
// prepared fails the whole call.
func ContainsEach(regionCurve geom.Curve, points []geom.Vec, acceptOnEdge bool, tol geom.Tolerance, rec *diag.Recorder) ([]bool, error) {
	r, err := prepareRegion(regionCurve, tol)
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(points))
	for i, p := range points {
		in, err := r.contains(p, acceptOnEdge, tol)
		if err != nil {
			rec.Record("contains", i, err)
			continue
		}
		out[i] = in
	}
	return out, nil
}

func (r *region) contains(p geom.Vec, acceptOnEdge bool, tol geom.Tolerance) (bool, error) {
	if geom.IsNaN(p) {
		return false, diag.Degenerate("contains", "point has NaN coordinates")
	}
	q := r.plane.Project(p)
	if geom.DistanceSquared(p, q) > tol.Squared() {
		return false, nil
	}
	for _, part := range r.parts {
		d, err := geom.DistanceToCurve(part, q)
		if err != nil {
			return false, err
		}
		if d <= tol.Distance {
			return acceptOnEdge, nil
		}
	}

	ref := r.plane.Origin
	if geom.DistanceSquared(ref, q) <= tol.Squared() {
		ref = ref.Add(geom.Perpendicular(r.plane.Normal).MulScalar(math.Max(r.reach, 1)))
	}
	dir := ref.Sub(q).Normalize()
	ray := geom.Line{Start: q, End: q.Add(dir.MulScalar(r.reach + geom.Distance(ref, q)))}

	n, err := r.crossings(ray, tol)
	if err != nil {
		return false, err
	}
	log := diag.Logger()
	if log.IsLevelEnabled(logrus.DebugLevel) {
		log.WithFields(logrus.Fields{"point": q, "crossings": n}).Debug("containment ray")
	}
	return n%2 == 1, nil
}

// crossings counts how often the ray crosses the region boundary.
//
// A hit in the interior of a part counts once, unless the ray only touches
// a circle or arc tangentially. A hit at a part's end point is a vertex
// hit: each incident part counts it once when the part leaves the vertex
// on the positive side of the ray, measured by the sign of
// n·(ray × into) where into points from the vertex into the part. A ray
// crossing the boundary at a vertex has its two incident parts on opposite
// sides and counts once; a ray grazing a vertex has both on the same side
// and counts zero or two. Parts running along the ray never count; their
// neighbours decide the vertex.
func (r *region) crossings(ray geom.Line, tol geom.Tolerance) (int, error) {
	dir := ray.Direction().Normalize()
	count := 0
	for _, part := range r.parts {
		res, err := intersect.Primitives(ray, part, geom.Bounded, tol)
		if err != nil {
			return 0, err
		}
		if res.Kind != intersect.KindPoint {
			// Overlap or coincidence with the ray.
			continue
		}
		for _, hit := range geom.Unique(res.Points, tol.Distance) {
			count += r.hitCount(part, hit, dir, tol)
		}
	}
	return count, nil
}

func (r *region) hitCount(part geom.Curve, hit, dir geom.Vec, tol geom.Tolerance) int {
	switch part.Kind() {
	case geom.KindLine:
		l := part.(geom.Line)
		switch {
		case tol.Coincident(hit, l.Start):
			return r.side(dir, l.End.Sub(l.Start), tol)
		case tol.Coincident(hit, l.End):
			return r.side(dir, l.Start.Sub(l.End), tol)
		}
		return 1
	case geom.KindCircle:
		c := part.(geom.Circle)
		if tangent(dir, hit, c.Centre, c.Radius, tol) {
			return 0
		}
		return 1
	case geom.KindArc:
		a := part.(geom.Arc)
		var into geom.Vec
		switch {
		case tol.Coincident(hit, a.StartPoint()):
			into = a.TangentAtAngle(a.StartAngle)
		case tol.Coincident(hit, a.EndPoint()):
			into = a.TangentAtAngle(a.EndAngle).MulScalar(-1)
		default:
			if tangent(dir, hit, a.Centre, a.Radius, tol) {
				return 0
			}
			return 1
		}
		if geom.IsParallel(into, dir, tol.Angle) {
			into = a.MidPoint().Sub(hit)
		}
		return r.side(dir, into, tol)
	}
	geom.UnhandledKind("containment.hitCount", part.Kind())
	return 0
}

// side is 1 when into leaves the ray on its positive side.
func (r *region) side(dir, into geom.Vec, tol geom.Tolerance) int {
	u, ok := geom.Unit(into)
	if !ok {
		return 0
	}
	s := r.plane.Normal.Dot(dir.Cross(u))
	if s > tol.Angle {
		return 1
	}
	return 0
}

// tangent reports whether the line through p along dir only touches the
// circle with the given centre and radius.
func tangent(dir, p, centre geom.Vec, radius float64, tol geom.Tolerance) bool {
	d := centre.Sub(p)
	off := d.Sub(dir.MulScalar(d.Dot(dir))).Length()
	return math.Abs(off-radius) <= tol.Distance
}
