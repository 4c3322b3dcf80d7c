// Package intersect computes intersections between the analytic curve
// primitives (line, circle, arc) and dispatches composite curves over their
// parts.
//
// Every function is pure. Tolerance bands decide the near-tangent,
// near-parallel and near-coincident cases: distances are compared squared
// where possible, and coplanarity is decided by |n1·n2| ≈ 1 within the
// angle tolerance. NURBS curves are not intersected; they fail with
// diag.ErrUnsupported.
package intersect

import (
	"github.com/chazu/kerf/pkg/geom"
)

// Kind classifies an intersection result.
type Kind int

const (
	// KindNone means the curves do not meet.
	KindNone Kind = iota
	// KindPoint means the curves meet at the discrete Points.
	KindPoint
	// KindOverlap means the curves share a finite stretch; Points holds the
	// end points of the shared stretch.
	KindOverlap
	// KindCoincident means the curves coincide everywhere (unbounded
	// collinear lines, identical circles). Points is nil.
	KindCoincident
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindPoint:
		return "point"
	case KindOverlap:
		return "overlap"
	case KindCoincident:
		return "coincident"
	default:
		return "unknown"
	}
}

// Result is the outcome of one intersection query.
type Result struct {
	Kind   Kind
	Points []geom.Vec
}

// Empty reports whether the curves do not meet.
func (r Result) Empty() bool {
	return r.Kind == KindNone
}

func none() Result { return Result{} }

func pointsResult(pts []geom.Vec) Result {
	if len(pts) == 0 {
		return none()
	}
	return Result{Kind: KindPoint, Points: pts}
}

// merge folds b into a. Points are concatenated and the kind becomes the
// stronger of the two.
func merge(a, b Result) Result {
	if b.Kind > a.Kind {
		a.Kind = b.Kind
	}
	a.Points = append(a.Points, b.Points...)
	return a
}
