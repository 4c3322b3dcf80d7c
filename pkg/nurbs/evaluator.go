// Package nurbs evaluates rational B-spline curves and surfaces and their
// derivatives.
//
// Control points are lifted to homogeneous form (x·w, y·w, z·w, w). The
// non-rational numerator and weight function are differentiated with the
// basis-derivative tables from package knot, and the true rational
// derivatives are recovered with the generalized Leibniz rule
//
//	D^k C = (A_k - Σ_{i=1..k} C(k,i) w^(i) D^(k-i) C) / w
//
// applied per coordinate. Surfaces use the two-direction double sum of the
// same rule.
//
// Parameters outside the knot domain are clamped to it. This is documented
// behavior, not an error. Derivative orders above the degree yield zero
// vectors. Every query is pure: nothing is cached between calls except the
// shared binomial table.
package nurbs

import (
	"fmt"

	"github.com/chazu/kerf/pkg/binomial"
	"github.com/chazu/kerf/pkg/diag"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/knot"
)

// Evaluator evaluates curves and surfaces using a shared binomial cache.
// It holds no other state and is safe for concurrent use.
type Evaluator struct {
	binom *binomial.Cache
}

// NewEvaluator returns an evaluator backed by cache. A nil cache selects
// binomial.Default.
func NewEvaluator(cache *binomial.Cache) *Evaluator {
	if cache == nil {
		cache = binomial.Default
	}
	return &Evaluator{binom: cache}
}

var defaultEvaluator = NewEvaluator(nil)

// Default returns the evaluator used by the package-level functions.
func Default() *Evaluator {
	return defaultEvaluator
}

// CurvePoint returns the point at parameter t.
func (e *Evaluator) CurvePoint(c geom.NurbsCurve, t float64) (geom.Vec, error) {
	ders, err := e.CurveDerivatives(c, t, 0)
	if err != nil {
		return geom.NaNVec(), err
	}
	return ders[0], nil
}

// CurveDerivatives returns the position and derivatives up to order at t.
// The result has order+1 entries; entries above the degree are zero.
func (e *Evaluator) CurveDerivatives(c geom.NurbsCurve, t float64, order int) ([]geom.Vec, error) {
	if order < 0 {
		return nil, fmt.Errorf("nurbs: negative derivative order %d: %w", order, diag.ErrOutOfRange)
	}
	if err := firstError(ValidateCurve(c)); err != nil {
		return nil, fmt.Errorf("nurbs: %w", err)
	}
	t = c.Knots.Clamp(c.Degree, t)
	span, err := c.Knots.Span(c.Degree, t)
	if err != nil {
		return nil, fmt.Errorf("nurbs: %w: %w", diag.ErrOutOfRange, err)
	}
	return e.curveDerivativesInSpan(c, span, t, order)
}

// curveDerivativesInSpan evaluates with an explicit span so callers can
// select the basis row at the ends of unclamped curves.
func (e *Evaluator) curveDerivativesInSpan(c geom.NurbsCurve, span int, t float64, order int) ([]geom.Vec, error) {
	p := c.Degree
	nders := knot.DerivativeFunctions(c.Knots, span, p, order, t)

	aders := make([]geom.Vec, order+1)
	wders := make([]float64, order+1)
	for k := 0; k <= order; k++ {
		for j := 0; j <= p; j++ {
			idx := span - p + j
			w := c.Weight(idx)
			aders[k] = aders[k].Add(c.ControlPoints[idx].MulScalar(w * nders[k][j]))
			wders[k] += w * nders[k][j]
		}
	}
	if wders[0] == 0 {
		return nil, diag.Degenerate("nurbs", "weight function vanishes at t=%g", t)
	}

	ck := make([]geom.Vec, order+1)
	for k := 0; k <= min(order, p); k++ {
		v := aders[k]
		for i := 1; i <= k; i++ {
			b := float64(e.binom.Coefficient(k, i))
			v = v.Sub(ck[k-i].MulScalar(b * wders[i]))
		}
		ck[k] = v.MulScalar(1 / wders[0])
	}
	return ck, nil
}

// CurveDerivative returns only the derivative of the given order at t.
func (e *Evaluator) CurveDerivative(c geom.NurbsCurve, t float64, order int) (geom.Vec, error) {
	ders, err := e.CurveDerivatives(c, t, order)
	if err != nil {
		return geom.NaNVec(), err
	}
	return ders[order], nil
}

// CurveTangent returns the unit tangent at t. A vanishing first derivative
// is degenerate.
func (e *Evaluator) CurveTangent(c geom.NurbsCurve, t float64) (geom.Vec, error) {
	d, err := e.CurveDerivative(c, t, 1)
	if err != nil {
		return geom.NaNVec(), err
	}
	u, ok := geom.Unit(d)
	if !ok {
		return geom.NaNVec(), diag.Degenerate("tangent", "first derivative vanishes at t=%g", t)
	}
	return u, nil
}

// CurvePointNormalized evaluates at s in [0,1] mapped onto the knot domain.
func (e *Evaluator) CurvePointNormalized(c geom.NurbsCurve, s float64) (geom.Vec, error) {
	if err := firstError(ValidateCurve(c)); err != nil {
		return geom.NaNVec(), fmt.Errorf("nurbs: %w", err)
	}
	return e.CurvePoint(c, c.Knots.Normalize(c.Degree, s))
}

// CurveDerivativesNormalized evaluates derivatives at s in [0,1] mapped onto
// the knot domain. Derivatives are with respect to the knot parameter.
func (e *Evaluator) CurveDerivativesNormalized(c geom.NurbsCurve, s float64, order int) ([]geom.Vec, error) {
	if err := firstError(ValidateCurve(c)); err != nil {
		return nil, fmt.Errorf("nurbs: %w", err)
	}
	return e.CurveDerivatives(c, c.Knots.Normalize(c.Degree, s), order)
}

// SurfacePoint returns the point at (u, v).
func (e *Evaluator) SurfacePoint(s geom.NurbsSurface, u, v float64) (geom.Vec, error) {
	skl, err := e.SurfaceDerivatives(s, u, v, 0)
	if err != nil {
		return geom.NaNVec(), err
	}
	return skl[0][0], nil
}

// SurfaceDerivatives returns the mixed partials S_{u^k v^l} for k+l <= order
// as an (order+1)x(order+1) table indexed [k][l]. Entries with k+l > order,
// and entries above the degree in either direction, are zero.
func (e *Evaluator) SurfaceDerivatives(s geom.NurbsSurface, u, v float64, order int) ([][]geom.Vec, error) {
	if order < 0 {
		return nil, fmt.Errorf("nurbs: negative derivative order %d: %w", order, diag.ErrOutOfRange)
	}
	if err := firstError(ValidateSurface(s)); err != nil {
		return nil, fmt.Errorf("nurbs: %w", err)
	}
	p, q := s.DegreeU, s.DegreeV
	u = s.KnotsU.Clamp(p, u)
	v = s.KnotsV.Clamp(q, v)
	uspan, err := s.KnotsU.Span(p, u)
	if err != nil {
		return nil, fmt.Errorf("nurbs: u: %w: %w", diag.ErrOutOfRange, err)
	}
	vspan, err := s.KnotsV.Span(q, v)
	if err != nil {
		return nil, fmt.Errorf("nurbs: v: %w: %w", diag.ErrOutOfRange, err)
	}
	nu := knot.DerivativeFunctions(s.KnotsU, uspan, p, order, u)
	nv := knot.DerivativeFunctions(s.KnotsV, vspan, q, order, v)

	aders := make([][]geom.Vec, order+1)
	wders := make([][]float64, order+1)
	for k := range aders {
		aders[k] = make([]geom.Vec, order+1)
		wders[k] = make([]float64, order+1)
	}
	for k := 0; k <= order; k++ {
		for l := 0; l <= order-k; l++ {
			for i := 0; i <= p; i++ {
				for j := 0; j <= q; j++ {
					ri, rj := uspan-p+i, vspan-q+j
					w := s.Weight(ri, rj)
					b := nu[k][i] * nv[l][j] * w
					aders[k][l] = aders[k][l].Add(s.Point(ri, rj).MulScalar(b))
					wders[k][l] += b
				}
			}
		}
	}
	if wders[0][0] == 0 {
		return nil, diag.Degenerate("nurbs", "weight function vanishes at (%g, %g)", u, v)
	}

	skl := make([][]geom.Vec, order+1)
	for k := range skl {
		skl[k] = make([]geom.Vec, order+1)
	}
	bin := func(n, k int) float64 { return float64(e.binom.Coefficient(n, k)) }
	for k := 0; k <= min(order, p); k++ {
		for l := 0; l <= min(order-k, q); l++ {
			a := aders[k][l]
			for j := 1; j <= l; j++ {
				a = a.Sub(skl[k][l-j].MulScalar(bin(l, j) * wders[0][j]))
			}
			for i := 1; i <= k; i++ {
				a = a.Sub(skl[k-i][l].MulScalar(bin(k, i) * wders[i][0]))
				var v2 geom.Vec
				for j := 1; j <= l; j++ {
					v2 = v2.Add(skl[k-i][l-j].MulScalar(bin(l, j) * wders[i][j]))
				}
				a = a.Sub(v2.MulScalar(bin(k, i)))
			}
			skl[k][l] = a.MulScalar(1 / wders[0][0])
		}
	}
	return skl, nil
}

// parallelRatio is the sine below which two partials count as parallel.
const parallelRatio = 1e-10

// SurfaceNormal returns the unit normal Su × Sv at (u, v). Parallel or
// vanishing partials, as at a pole, are degenerate.
func (e *Evaluator) SurfaceNormal(s geom.NurbsSurface, u, v float64) (geom.Vec, error) {
	skl, err := e.SurfaceDerivatives(s, u, v, 1)
	if err != nil {
		return geom.NaNVec(), err
	}
	su, sv := skl[1][0], skl[0][1]
	cross := su.Cross(sv)
	n, ok := geom.Unit(cross)
	if !ok || cross.Length() <= parallelRatio*su.Length()*sv.Length() {
		return geom.NaNVec(), diag.Degenerate("normal", "partial derivatives are parallel at (%g, %g)", u, v)
	}
	return n, nil
}

// SurfacePointNormalized evaluates at (s, t) in [0,1]² mapped onto the
// knot domains.
func (e *Evaluator) SurfacePointNormalized(srf geom.NurbsSurface, s, t float64) (geom.Vec, error) {
	if err := firstError(ValidateSurface(srf)); err != nil {
		return geom.NaNVec(), fmt.Errorf("nurbs: %w", err)
	}
	return e.SurfacePoint(srf, srf.KnotsU.Normalize(srf.DegreeU, s), srf.KnotsV.Normalize(srf.DegreeV, t))
}

// CurvePoint evaluates c at t with the default evaluator.
func CurvePoint(c geom.NurbsCurve, t float64) (geom.Vec, error) {
	return defaultEvaluator.CurvePoint(c, t)
}

// CurveDerivatives evaluates derivatives of c at t with the default evaluator.
func CurveDerivatives(c geom.NurbsCurve, t float64, order int) ([]geom.Vec, error) {
	return defaultEvaluator.CurveDerivatives(c, t, order)
}

// CurveTangent returns the unit tangent of c at t with the default evaluator.
func CurveTangent(c geom.NurbsCurve, t float64) (geom.Vec, error) {
	return defaultEvaluator.CurveTangent(c, t)
}

// SurfacePoint evaluates s at (u, v) with the default evaluator.
func SurfacePoint(s geom.NurbsSurface, u, v float64) (geom.Vec, error) {
	return defaultEvaluator.SurfacePoint(s, u, v)
}

// SurfaceDerivatives evaluates partials of s with the default evaluator.
func SurfaceDerivatives(s geom.NurbsSurface, u, v float64, order int) ([][]geom.Vec, error) {
	return defaultEvaluator.SurfaceDerivatives(s, u, v, order)
}

// SurfaceNormal returns the unit normal of s with the default evaluator.
func SurfaceNormal(s geom.NurbsSurface, u, v float64) (geom.Vec, error) {
	return defaultEvaluator.SurfaceNormal(s, u, v)
}

// CurvePoints evaluates c at every parameter in ts. A failure at one
// parameter is recorded against its index and yields a NaN point; the rest
// of the batch is still evaluated.
func (e *Evaluator) CurvePoints(c geom.NurbsCurve, ts []float64, rec *diag.Recorder) []geom.Vec {
	out := make([]geom.Vec, len(ts))
	for i, t := range ts {
		p, err := e.CurvePoint(c, t)
		if err != nil {
			rec.Record("curve points", i, err)
			p = geom.NaNVec()
		}
		out[i] = p
	}
	return out
}
