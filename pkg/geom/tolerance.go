package geom

import (
	"math"

	"github.com/chazu/kerf/pkg/diag"
	"gonum.org/v1/gonum/floats/scalar"
)

// Default tolerances shared process-wide. Distances are in model units;
// the angle tolerance is compared against the sine (parallelism) or cosine
// (perpendicularity) of the angle between two directions.
const (
	DefaultDistanceTolerance = 1e-6
	DefaultAngleTolerance    = 1e-6
)

// Tolerance bundles the distance and angle tolerances of one query.
type Tolerance struct {
	Distance float64
	Angle    float64
}

// DefaultTolerance returns the documented default tolerances.
func DefaultTolerance() Tolerance {
	return Tolerance{Distance: DefaultDistanceTolerance, Angle: DefaultAngleTolerance}
}

// Validate rejects non-positive or non-finite tolerances with an error
// matching diag.ErrTolerance.
func (t Tolerance) Validate() error {
	if !(t.Distance > 0) || math.IsInf(t.Distance, 0) {
		return diag.Tolerance("tolerance", "distance tolerance %g must be positive and finite", t.Distance)
	}
	if !(t.Angle > 0) || math.IsInf(t.Angle, 0) {
		return diag.Tolerance("tolerance", "angle tolerance %g must be positive and finite", t.Angle)
	}
	return nil
}

// Squared returns the squared distance tolerance.
func (t Tolerance) Squared() float64 {
	return t.Distance * t.Distance
}

// Equal reports whether a and b differ by at most the distance tolerance.
func (t Tolerance) Equal(a, b float64) bool {
	return scalar.EqualWithinAbs(a, b, t.Distance)
}

// Coincident reports whether two points lie within the distance tolerance.
func (t Tolerance) Coincident(a, b Vec) bool {
	return DistanceSquared(a, b) <= t.Squared()
}

// ParallelNormals reports whether |n1·n2| ≈ 1 within the angle tolerance.
func (t Tolerance) ParallelNormals(n1, n2 Vec) bool {
	u1, ok1 := Unit(n1)
	u2, ok2 := Unit(n2)
	if !ok1 || !ok2 {
		return false
	}
	return scalar.EqualWithinAbs(math.Abs(u1.Dot(u2)), 1, t.Angle)
}
