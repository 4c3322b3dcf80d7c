// Package kernel defines the geometry kernel interface consumed by the
// script engine and the kerf command. A Kernel binds one tolerance, one
// binomial cache and one diagnostics recorder, so every query issued
// through it is judged the same way.
package kernel

import (
	"github.com/chazu/kerf/pkg/binomial"
	"github.com/chazu/kerf/pkg/config"
	"github.com/chazu/kerf/pkg/containment"
	"github.com/chazu/kerf/pkg/curvature"
	"github.com/chazu/kerf/pkg/diag"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/intersect"
	"github.com/chazu/kerf/pkg/nurbs"
)

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	Tolerance() geom.Tolerance
	Evaluator() *nurbs.Evaluator
	Recorder() *diag.Recorder

	// Evaluation
	CurvePoint(c geom.NurbsCurve, t float64) (geom.Vec, error)
	CurveDerivatives(c geom.NurbsCurve, t float64, order int) ([]geom.Vec, error)
	SurfacePoint(s geom.NurbsSurface, u, v float64) (geom.Vec, error)
	SurfaceDerivatives(s geom.NurbsSurface, u, v float64, order int) ([][]geom.Vec, error)
	SurfaceNormal(s geom.NurbsSurface, u, v float64) (geom.Vec, error)

	// Curvature
	CurveCurvature(c geom.NurbsCurve, t float64) (geom.Vec, error)
	PrincipalCurvature(s geom.NurbsSurface, u, v float64) (curvature.PrincipalCurvature, error)

	// Queries
	Intersect(a, b geom.Curve, extent geom.Extent) (intersect.Result, error)
	IntersectPlane(c geom.Curve, pl geom.Plane) (intersect.Result, error)
	Contains(region geom.Curve, points []geom.Vec, acceptOnEdge bool) (bool, error)
	ContainsEach(region geom.Curve, points []geom.Vec, acceptOnEdge bool) ([]bool, error)
	IsSelfIntersecting(c geom.Curve) (bool, error)
}

// Compile-time interface check.
var _ Kernel = (*Native)(nil)

// Native implements Kernel with the in-process NURBS evaluator and the
// analytic intersection and containment engines.
type Native struct {
	tol  geom.Tolerance
	ev   *nurbs.Evaluator
	curv *curvature.Engine
	rec  *diag.Recorder
}

// New returns a kernel configured by cfg. Each kernel owns its binomial
// cache and recorder.
func New(cfg config.Config) *Native {
	ev := nurbs.NewEvaluator(binomial.NewCache())
	return &Native{
		tol:  cfg.GeomTolerance(),
		ev:   ev,
		curv: curvature.New(ev),
		rec:  diag.NewRecorder(),
	}
}

func (k *Native) Tolerance() geom.Tolerance   { return k.tol }
func (k *Native) Evaluator() *nurbs.Evaluator { return k.ev }
func (k *Native) Recorder() *diag.Recorder    { return k.rec }

func (k *Native) CurvePoint(c geom.NurbsCurve, t float64) (geom.Vec, error) {
	return k.ev.CurvePoint(c, t)
}

func (k *Native) CurveDerivatives(c geom.NurbsCurve, t float64, order int) ([]geom.Vec, error) {
	return k.ev.CurveDerivatives(c, t, order)
}

func (k *Native) SurfacePoint(s geom.NurbsSurface, u, v float64) (geom.Vec, error) {
	return k.ev.SurfacePoint(s, u, v)
}

func (k *Native) SurfaceDerivatives(s geom.NurbsSurface, u, v float64, order int) ([][]geom.Vec, error) {
	return k.ev.SurfaceDerivatives(s, u, v, order)
}

func (k *Native) SurfaceNormal(s geom.NurbsSurface, u, v float64) (geom.Vec, error) {
	return k.ev.SurfaceNormal(s, u, v)
}

func (k *Native) CurveCurvature(c geom.NurbsCurve, t float64) (geom.Vec, error) {
	return k.curv.CurveCurvature(c, t)
}

func (k *Native) PrincipalCurvature(s geom.NurbsSurface, u, v float64) (curvature.PrincipalCurvature, error) {
	return k.curv.PrincipalCurvatureAt(s, u, v)
}

func (k *Native) Intersect(a, b geom.Curve, extent geom.Extent) (intersect.Result, error) {
	return intersect.Curves(a, b, extent, k.tol)
}

func (k *Native) IntersectPlane(c geom.Curve, pl geom.Plane) (intersect.Result, error) {
	return intersect.CurvePlane(c, pl, k.tol)
}

func (k *Native) Contains(region geom.Curve, points []geom.Vec, acceptOnEdge bool) (bool, error) {
	return containment.IsContaining(region, points, acceptOnEdge, k.tol)
}

// ContainsEach tests every point separately, recording per-point failures
// in the kernel's recorder.
func (k *Native) ContainsEach(region geom.Curve, points []geom.Vec, acceptOnEdge bool) ([]bool, error) {
	return containment.ContainsEach(region, points, acceptOnEdge, k.tol, k.rec)
}

func (k *Native) IsSelfIntersecting(c geom.Curve) (bool, error) {
	return containment.IsSelfIntersecting(c, k.tol)
}
