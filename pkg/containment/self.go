package containment

import (
	"github.com/chazu/kerf/pkg/diag"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/intersect"
	"github.com/deadsy/sdfx/sdf"
)

// IsSelfIntersecting reports whether any two parts of c meet anywhere
// other than the end point they share as consecutive parts. The first and
// last parts of a closed curve are consecutive too. Parts shorter than the
// distance tolerance are ignored. NURBS parts are unsupported.
func IsSelfIntersecting(c geom.Curve, tol geom.Tolerance) (bool, error) {
	if err := tol.Validate(); err != nil {
		return false, err
	}
	var parts []geom.Curve
	for _, p := range geom.SubParts(c) {
		if p.Kind() == geom.KindNurbs {
			return false, diag.Unsupported("self-intersection", "nurbs curves are not supported")
		}
		if partLength(p) > tol.Distance {
			parts = append(parts, p)
		}
	}
	closed := len(parts) > 1 && geom.IsClosed(c, tol.Distance)

	boxes := make([]sdf.Box3, len(parts))
	for i, p := range parts {
		boxes[i] = geom.Bounds(p)
	}

	for i := 0; i < len(parts); i++ {
		for j := i + 1; j < len(parts); j++ {
			shared := sharedEnds(parts, i, j, closed)
			if shared == nil && !geom.Overlap(boxes[i], boxes[j], tol.Distance) {
				continue
			}
			res, err := intersect.Primitives(parts[i], parts[j], geom.Bounded, tol)
			if err != nil {
				return false, err
			}
			if res.Kind == intersect.KindCoincident {
				return true, nil
			}
			for _, p := range res.Points {
				if !nearAny(p, shared, tol) {
					diag.Logger().WithField("parts", [2]int{i, j}).Debugf("self-intersection at %v", p)
					return true, nil
				}
			}
		}
	}
	return false, nil
}

// sharedEnds returns the end points parts i < j share as consecutive
// parts, or nil when they are not consecutive.
func sharedEnds(parts []geom.Curve, i, j int, closed bool) []geom.Vec {
	var out []geom.Vec
	if j == i+1 {
		_, e, _ := geom.Endpoints(parts[i])
		out = append(out, e)
	}
	if closed && i == 0 && j == len(parts)-1 {
		s, _, _ := geom.Endpoints(parts[0])
		out = append(out, s)
	}
	return out
}

func nearAny(p geom.Vec, pts []geom.Vec, tol geom.Tolerance) bool {
	for _, q := range pts {
		if tol.Coincident(p, q) {
			return true
		}
	}
	return false
}

func partLength(c geom.Curve) float64 {
	switch c.Kind() {
	case geom.KindLine:
		return c.(geom.Line).Length()
	case geom.KindArc:
		return c.(geom.Arc).Length()
	case geom.KindCircle:
		return c.(geom.Circle).Circumference()
	}
	geom.UnhandledKind("partLength", c.Kind())
	return 0
}
