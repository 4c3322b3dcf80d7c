// Package curvature computes curve curvature vectors and surface principal
// curvatures from evaluator derivatives.
package curvature

import (
	"math"

	"github.com/chazu/kerf/pkg/diag"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/nurbs"
	"github.com/sirupsen/logrus"
)

// tangentEpsilon is the first-derivative length below which the tangent is
// considered to vanish.
const tangentEpsilon = 1e-12

// Engine evaluates curvature through a NURBS evaluator.
type Engine struct {
	ev *nurbs.Evaluator
}

// New returns an engine using ev, or the default evaluator when ev is nil.
func New(ev *nurbs.Evaluator) *Engine {
	if ev == nil {
		ev = nurbs.Default()
	}
	return &Engine{ev: ev}
}

var defaultEngine = New(nil)

// FromDerivatives returns the curvature vector for first and second
// derivatives d1 and d2. The vector points towards the centre of curvature
// and has magnitude 1/R; it is zero where the curve is straight.
func FromDerivatives(d1, d2 geom.Vec) (geom.Vec, error) {
	speed := d1.Length()
	if speed < tangentEpsilon || math.IsNaN(speed) {
		return geom.NaNVec(), diag.Degenerate("curvature", "tangent vanishes (|C'| = %g)", speed)
	}
	b := d1.Cross(d2).MulScalar(1 / (speed * speed * speed))
	return b.Cross(d1.MulScalar(1 / speed)), nil
}

// CurveCurvature returns the curvature vector of c at t. A vanishing
// tangent is reported as ErrDegenerate together with a NaN vector.
func (e *Engine) CurveCurvature(c geom.NurbsCurve, t float64) (geom.Vec, error) {
	ders, err := e.ev.CurveDerivatives(c, t, 2)
	if err != nil {
		return geom.NaNVec(), err
	}
	k, err := FromDerivatives(ders[1], ders[2])
	if err != nil {
		diag.Logger().WithFields(logrus.Fields{"t": t}).Debug("curvature: degenerate tangent")
	}
	return k, err
}

// RadiusOfCurvature returns 1/|κ| at t, which is +Inf where the curve is
// straight.
func (e *Engine) RadiusOfCurvature(c geom.NurbsCurve, t float64) (float64, error) {
	k, err := e.CurveCurvature(c, t)
	if err != nil {
		return math.NaN(), err
	}
	return 1 / k.Length(), nil
}

// CurveCurvature uses the default engine.
func CurveCurvature(c geom.NurbsCurve, t float64) (geom.Vec, error) {
	return defaultEngine.CurveCurvature(c, t)
}

// RadiusOfCurvature uses the default engine.
func RadiusOfCurvature(c geom.NurbsCurve, t float64) (float64, error) {
	return defaultEngine.RadiusOfCurvature(c, t)
}

// PrincipalCurvatureAt uses the default engine.
func PrincipalCurvatureAt(s geom.NurbsSurface, u, v float64) (PrincipalCurvature, error) {
	return defaultEngine.PrincipalCurvatureAt(s, u, v)
}
