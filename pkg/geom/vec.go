// Package geom defines the value types consumed by the kernel: points and
// vectors, planes, the sealed set of curve primitives, NURBS curve and
// surface data, and tolerances.
//
// Vector algebra is provided by the sdfx v3 vector type; this package only
// adds the handful of helpers the kernel needs on top of it.
package geom

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Vec is a 3D point or vector.
type Vec = v3.Vec

// V returns the vector (x, y, z).
func V(x, y, z float64) Vec {
	return Vec{X: x, Y: y, Z: z}
}

// NaNVec returns the sentinel used for results of degenerate queries.
func NaNVec() Vec {
	nan := math.NaN()
	return Vec{X: nan, Y: nan, Z: nan}
}

// IsNaN reports whether any component of v is NaN.
func IsNaN(v Vec) bool {
	return math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsNaN(v.Z)
}

// Distance returns |b - a|.
func Distance(a, b Vec) float64 {
	return b.Sub(a).Length()
}

// DistanceSquared returns |b - a|².
func DistanceSquared(a, b Vec) float64 {
	d := b.Sub(a)
	return d.Dot(d)
}

// LengthSquared returns |v|².
func LengthSquared(v Vec) float64 {
	return v.Dot(v)
}

// Lerp interpolates linearly between a and b.
func Lerp(a, b Vec, t float64) Vec {
	return a.Add(b.Sub(a).MulScalar(t))
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Vec) Vec {
	return Lerp(a, b, 0.5)
}

// Unit returns v normalised, and false when v is too short to normalise.
func Unit(v Vec) (Vec, bool) {
	l := v.Length()
	if l < 1e-300 || math.IsNaN(l) {
		return Vec{}, false
	}
	return v.MulScalar(1 / l), true
}

// IsParallel reports whether a and b are parallel or anti-parallel within
// angleTol, measured as the sine of the angle between them.
func IsParallel(a, b Vec, angleTol float64) bool {
	la, lb := a.Length(), b.Length()
	if la == 0 || lb == 0 {
		return true
	}
	return a.Cross(b).Length()/(la*lb) <= angleTol
}

// IsPerpendicular reports whether a and b are perpendicular within
// angleTol, measured as the cosine of the angle between them.
func IsPerpendicular(a, b Vec, angleTol float64) bool {
	la, lb := a.Length(), b.Length()
	if la == 0 || lb == 0 {
		return true
	}
	return math.Abs(a.Dot(b))/(la*lb) <= angleTol
}

// Perpendicular returns a unit vector perpendicular to n. The result is
// deterministic: the world axis n is least aligned with, projected into the
// plane normal to n. For n along +Z this is +X.
func Perpendicular(n Vec) Vec {
	ax, ay, az := math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)
	var axis Vec
	switch {
	case ax <= ay && ax <= az:
		axis = V(1, 0, 0)
	case ay <= az:
		axis = V(0, 1, 0)
	default:
		axis = V(0, 0, 1)
	}
	u, ok := Unit(n)
	if !ok {
		return axis
	}
	p, _ := Unit(axis.Sub(u.MulScalar(axis.Dot(u))))
	return p
}

// SignedAngle returns the angle from a to b in (-π, π], positive when the
// rotation is counter-clockwise seen from the tip of normal.
func SignedAngle(a, b, normal Vec) float64 {
	return math.Atan2(a.Cross(b).Dot(normal), a.Dot(b))
}

// Unique returns points with near-duplicates (within tol) removed,
// keeping the first occurrence.
func Unique(points []Vec, tol float64) []Vec {
	tol2 := tol * tol
	out := make([]Vec, 0, len(points))
	for _, p := range points {
		dup := false
		for _, q := range out {
			if DistanceSquared(p, q) <= tol2 {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}
