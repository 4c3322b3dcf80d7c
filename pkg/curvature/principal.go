package curvature

import (
	"math"

	"github.com/chazu/kerf/pkg/diag"
	"github.com/chazu/kerf/pkg/geom"
)

// PrincipalCurvature holds the extremal normal curvatures at a surface
// point. Curvatures are positive where the surface bends towards Normal.
type PrincipalCurvature struct {
	Point        geom.Vec
	Normal       geom.Vec
	Min          float64
	Max          float64
	MinDirection geom.Vec
	MaxDirection geom.Vec
}

// Gaussian returns Min·Max.
func (pc PrincipalCurvature) Gaussian() float64 {
	return pc.Min * pc.Max
}

// Mean returns (Min+Max)/2.
func (pc PrincipalCurvature) Mean() float64 {
	return (pc.Min + pc.Max) / 2
}

// PrincipalCurvatureAt returns the principal curvatures and directions of s
// at (u, v).
//
// The second fundamental form II = [[L, M], [M, N]] is taken on the unit
// normal n = Su×Sv/|Su×Sv|. With the orthonormal tangent frame
// e1 = Su/|Su|, e2 = n×e1 the parametric basis is Su = a·e1,
// Sv = b·e1 + c·e2, so the form in the frame is W = J⁻ᵀ·II·J⁻¹ with
// J = [[a, b], [0, c]]. W is symmetric and its eigenpairs are the principal
// curvatures and directions.
func (e *Engine) PrincipalCurvatureAt(s geom.NurbsSurface, u, v float64) (PrincipalCurvature, error) {
	skl, err := e.ev.SurfaceDerivatives(s, u, v, 2)
	if err != nil {
		return nanPrincipal(), err
	}
	su, sv := skl[1][0], skl[0][1]
	suu, suv, svv := skl[2][0], skl[1][1], skl[0][2]

	cross := su.Cross(sv)
	n, ok := geom.Unit(cross)
	a := su.Length()
	if !ok || a < tangentEpsilon || sv.Length() < tangentEpsilon || cross.Length() <= 1e-10*a*sv.Length() {
		return nanPrincipal(), diag.Degenerate("principal curvature", "surface is singular at (%g, %g)", u, v)
	}
	e1 := su.MulScalar(1 / a)
	e2 := n.Cross(e1)
	b, c := sv.Dot(e1), sv.Dot(e2)

	l, m, nn := suu.Dot(n), suv.Dot(n), svv.Dot(n)

	// J⁻¹ = [[i11, i12], [0, i22]].
	i11, i12, i22 := 1/a, -b/(a*c), 1/c
	hl := l*i12 + m*i22
	hr := m*i12 + nn*i22
	p := i11 * l * i11
	q := i11 * hl
	r := i12*hl + i22*hr

	kMin, kMax, dMin, dMax := symmetricEigen(p, q, r)
	return PrincipalCurvature{
		Point:        skl[0][0],
		Normal:       n,
		Min:          kMin,
		Max:          kMax,
		MinDirection: toWorld(dMin, e1, e2),
		MaxDirection: toWorld(dMax, e1, e2),
	}, nil
}

// symmetricEigen solves the symmetric 2x2 matrix [[p, q], [q, r]] in closed
// form. Eigenvalues are ascending and the eigenvectors are unit length. A
// negative discriminant from rounding is clamped to zero.
func symmetricEigen(p, q, r float64) (lo, hi float64, vlo, vhi [2]float64) {
	mean := (p + r) / 2
	half := (p - r) / 2
	root := math.Sqrt(math.Max(0, half*half+q*q))
	lo, hi = mean-root, mean+root

	scale := math.Max(math.Abs(p), math.Max(math.Abs(q), math.Abs(r)))
	if root <= 1e-12*math.Max(scale, 1) {
		// Umbilic: every direction is principal.
		return lo, hi, [2]float64{1, 0}, [2]float64{0, 1}
	}
	vhi = eigenvector(p, q, r, hi)
	vlo = [2]float64{-vhi[1], vhi[0]}
	return lo, hi, vlo, vhi
}

// eigenvector returns a unit eigenvector for eigenvalue lambda, taking the
// better conditioned of the two row equations.
func eigenvector(p, q, r, lambda float64) [2]float64 {
	x1, y1 := q, lambda-p
	x2, y2 := lambda-r, q
	x, y := x1, y1
	if x2*x2+y2*y2 > x1*x1+y1*y1 {
		x, y = x2, y2
	}
	l := math.Hypot(x, y)
	return [2]float64{x / l, y / l}
}

func toWorld(d [2]float64, e1, e2 geom.Vec) geom.Vec {
	return e1.MulScalar(d[0]).Add(e2.MulScalar(d[1]))
}

func nanPrincipal() PrincipalCurvature {
	nan := math.NaN()
	return PrincipalCurvature{
		Point: geom.NaNVec(), Normal: geom.NaNVec(),
		Min: nan, Max: nan,
		MinDirection: geom.NaNVec(), MaxDirection: geom.NaNVec(),
	}
}
