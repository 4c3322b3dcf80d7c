package nurbs

import (
	"fmt"
	"math"

	"github.com/chazu/kerf/pkg/diag"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/knot"
)

// ValidateCurve checks the structural invariants of c and returns every
// violation found. An empty result means the curve can be evaluated.
func ValidateCurve(c geom.NurbsCurve) []diag.Diagnostic {
	var errs []diag.Diagnostic
	add := func(code diag.Code, format string, args ...any) {
		errs = append(errs, diag.Diagnostic{Code: code, Op: "validate curve", Index: -1, Message: fmt.Sprintf(format, args...)})
	}

	if len(c.ControlPoints) == 0 {
		add(diag.CodeDegenerate, "curve has no control points")
		return errs
	}
	errs = append(errs, validateDirection("curve", c.Knots, c.Degree, len(c.ControlPoints))...)
	errs = append(errs, validateNet("curve", c.ControlPoints, c.Weights)...)
	return errs
}

// ValidateSurface checks the structural invariants of s in both parametric
// directions and returns every violation found.
func ValidateSurface(s geom.NurbsSurface) []diag.Diagnostic {
	var errs []diag.Diagnostic
	if len(s.ControlPoints) == 0 {
		return append(errs, diag.Diagnostic{Code: diag.CodeDegenerate, Op: "validate surface", Index: -1, Message: "surface has no control points"})
	}
	nu, nv := s.CountU(), s.CountV()
	if nu*nv != len(s.ControlPoints) || nu <= 0 || nv <= 0 {
		errs = append(errs, diag.Diagnostic{
			Code: diag.CodeInvalid, Op: "validate surface", Index: -1,
			Message: fmt.Sprintf("knot vectors imply a %dx%d grid but %d control points were given", nu, nv, len(s.ControlPoints)),
		})
		return errs
	}
	errs = append(errs, validateDirection("surface u", s.KnotsU, s.DegreeU, nu)...)
	errs = append(errs, validateDirection("surface v", s.KnotsV, s.DegreeV, nv)...)
	errs = append(errs, validateNet("surface", s.ControlPoints, s.Weights)...)
	return errs
}

func validateDirection(what string, k knot.Vector, degree, count int) []diag.Diagnostic {
	var errs []diag.Diagnostic
	add := func(code diag.Code, format string, args ...any) {
		errs = append(errs, diag.Diagnostic{Code: code, Op: "validate " + what, Index: -1, Message: fmt.Sprintf(format, args...)})
	}

	if degree < 1 {
		add(diag.CodeInvalid, "degree %d must be at least 1", degree)
		return errs
	}
	if len(k) != count+degree+1 {
		add(diag.CodeInvalid, "%d knots, want %d control points + degree %d + 1 = %d", len(k), count, degree, count+degree+1)
		return errs
	}
	if !k.IsNonDecreasing() {
		add(diag.CodeInvalid, "knot vector is decreasing")
		return errs
	}
	if m := k.MaxInteriorMultiplicity(degree); m > degree+1 {
		add(diag.CodeInvalid, "interior knot multiplicity %d exceeds degree+1", m)
	}
	if lo, hi := k.Domain(degree); !(hi > lo) {
		add(diag.CodeDegenerate, "empty parameter domain [%g, %g]", lo, hi)
	}
	return errs
}

func validateNet(what string, points []geom.Vec, weights []float64) []diag.Diagnostic {
	var errs []diag.Diagnostic
	add := func(format string, args ...any) {
		errs = append(errs, diag.Diagnostic{Code: diag.CodeInvalid, Op: "validate " + what, Index: -1, Message: fmt.Sprintf(format, args...)})
	}

	if weights != nil && len(weights) != len(points) {
		add("%d weights for %d control points", len(weights), len(points))
		return errs
	}
	for i, w := range weights {
		if !(w > 0) || math.IsInf(w, 0) {
			add("weight %d is %g, must be positive", i, w)
		}
	}
	for i, p := range points {
		if geom.IsNaN(p) {
			add("control point %d is NaN", i)
		}
	}
	return errs
}

// firstError returns the first diagnostic as an error, or nil.
func firstError(diags []diag.Diagnostic) error {
	if len(diags) == 0 {
		return nil
	}
	return diags[0]
}
