package intersect

import (
	"math"

	"github.com/chazu/kerf/pkg/diag"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/sirupsen/logrus"
)

// LineLine intersects two lines. The system
//
//	s·û - t·v̂ = d
//
// with unit directions û, v̂ and offset d = b.Start - a.Start is row-reduced
// and classified by rank:
//   - coefficient rank 2, augmented rank 3: skew, no intersection
//   - coefficient rank 2, augmented rank 2: a unique point, rejected on
//     bounded lines when its parameter falls outside [0, 1]
//   - coefficient rank 1, augmented rank 2: parallel and apart
//   - coefficient rank 1, augmented rank 1: collinear. Bounded lines return
//     the end points of the overlap (a single point when they only touch);
//     unbounded lines are KindCoincident with no points.
func LineLine(a, b geom.Line, extent geom.Extent, tol geom.Tolerance) (Result, error) {
	if err := tol.Validate(); err != nil {
		return none(), err
	}
	la, lb := a.Length(), b.Length()
	if la <= tol.Distance || lb <= tol.Distance {
		return none(), diag.Degenerate("line-line", "zero-length line")
	}
	u := a.Direction().MulScalar(1 / la)
	v := b.Direction().MulScalar(1 / lb)
	d := b.Start.Sub(a.Start)

	coeff, aug := rowReduce([3][3]float64{
		{u.X, -v.X, d.X},
		{u.Y, -v.Y, d.Y},
		{u.Z, -v.Z, d.Z},
	}, tol)
	log := diag.Logger()
	if log.IsLevelEnabled(logrus.DebugLevel) {
		log.WithFields(logrus.Fields{"rank": coeff, "augmented": aug}).Debug("line-line classification")
	}

	switch {
	case coeff == 2:
		// Rank 3 is confirmed geometrically: the closest points must meet.
		sa, sb := closestParameters(a, b)
		pa, pb := a.PointAt(sa), b.PointAt(sb)
		if geom.DistanceSquared(pa, pb) > tol.Squared() {
			return none(), nil
		}
		if extent == geom.Bounded && (!inUnit(sa, tol.Distance/la) || !inUnit(sb, tol.Distance/lb)) {
			return none(), nil
		}
		return pointsResult([]geom.Vec{geom.Midpoint(pa, pb)}), nil

	case aug == 2 || d.Cross(u).Length() > tol.Distance:
		return none(), nil
	}

	// Collinear.
	if extent == geom.Unbounded {
		return Result{Kind: KindCoincident}, nil
	}
	t0, t1 := a.ClosestParameter(b.Start), a.ClosestParameter(b.End)
	lo := math.Max(0, math.Min(t0, t1))
	hi := math.Min(1, math.Max(t0, t1))
	eps := tol.Distance / la
	switch {
	case lo > hi+eps:
		return none(), nil
	case hi-lo <= eps:
		return pointsResult([]geom.Vec{a.PointAt((lo + hi) / 2)}), nil
	}
	return Result{Kind: KindOverlap, Points: []geom.Vec{a.PointAt(lo), a.PointAt(hi)}}, nil
}

// rowReduce performs Gaussian elimination with partial pivoting on the
// augmented 3x3 system [û | -v̂ | d] and returns the ranks of the
// coefficient columns and of the whole matrix. The coefficient pivots are
// judged against the angle tolerance (the columns are unit length, so the
// second pivot scales with the sine between the lines) and the residual
// offset against the distance tolerance.
func rowReduce(m [3][3]float64, tol geom.Tolerance) (coeff, aug int) {
	row := 0
	for col := 0; col < 2 && row < 3; col++ {
		pivot := row
		for r := row + 1; r < 3; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) <= tol.Angle {
			continue
		}
		m[row], m[pivot] = m[pivot], m[row]
		for r := row + 1; r < 3; r++ {
			f := m[r][col] / m[row][col]
			for c := col; c < 3; c++ {
				m[r][c] -= f * m[row][c]
			}
		}
		row++
	}
	coeff = row
	aug = row
	for r := row; r < 3; r++ {
		if math.Abs(m[r][2]) > tol.Distance {
			aug = row + 1
			break
		}
	}
	return coeff, aug
}

// closestParameters returns the parameters of the mutually closest points
// of two non-parallel infinite lines.
func closestParameters(a, b geom.Line) (sa, sb float64) {
	u, v := a.Direction(), b.Direction()
	w := a.Start.Sub(b.Start)
	aa, bb, cc := u.Dot(u), u.Dot(v), v.Dot(v)
	dd, ee := u.Dot(w), v.Dot(w)
	den := aa*cc - bb*bb
	return (bb*ee - cc*dd) / den, (aa*ee - bb*dd) / den
}

// inUnit reports whether t lies in [0, 1] widened by eps.
func inUnit(t, eps float64) bool {
	return t >= -eps && t <= 1+eps
}
