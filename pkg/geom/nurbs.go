package geom

import "github.com/chazu/kerf/pkg/knot"

// NurbsCurve is a rational B-spline curve. Weights runs parallel to
// ControlPoints; a nil Weights slice means every weight is 1.
type NurbsCurve struct {
	ControlPoints []Vec
	Weights       []float64
	Knots         knot.Vector
	Degree        int
}

func (NurbsCurve) Kind() Kind { return KindNurbs }
func (NurbsCurve) curve()     {}

// Weight returns the weight of control point i.
func (c NurbsCurve) Weight(i int) float64 {
	if c.Weights == nil {
		return 1
	}
	return c.Weights[i]
}

// IsPeriodic reports whether the curve is unclamped at its start.
func (c NurbsCurve) IsPeriodic() bool {
	return c.Knots.IsPeriodic(c.Degree)
}

// Domain returns the valid parameter interval.
func (c NurbsCurve) Domain() (lo, hi float64) {
	return c.Knots.Domain(c.Degree)
}

// IsRational reports whether any weight differs from 1.
func (c NurbsCurve) IsRational() bool {
	for _, w := range c.Weights {
		if w != 1 {
			return true
		}
	}
	return false
}

// NurbsSurface is a rational B-spline surface. ControlPoints and Weights are
// stored row-major with U as the outer index: point (i, j) lives at
// i*CountV()+j.
type NurbsSurface struct {
	ControlPoints []Vec
	Weights       []float64
	KnotsU        knot.Vector
	KnotsV        knot.Vector
	DegreeU       int
	DegreeV       int
}

// CountU returns the number of control points along U.
func (s NurbsSurface) CountU() int {
	return len(s.KnotsU) - s.DegreeU - 1
}

// CountV returns the number of control points along V.
func (s NurbsSurface) CountV() int {
	return len(s.KnotsV) - s.DegreeV - 1
}

// Point returns control point (i, j).
func (s NurbsSurface) Point(i, j int) Vec {
	return s.ControlPoints[i*s.CountV()+j]
}

// Weight returns the weight of control point (i, j).
func (s NurbsSurface) Weight(i, j int) float64 {
	if s.Weights == nil {
		return 1
	}
	return s.Weights[i*s.CountV()+j]
}

// DomainU returns the valid U interval.
func (s NurbsSurface) DomainU() (lo, hi float64) {
	return s.KnotsU.Domain(s.DegreeU)
}

// DomainV returns the valid V interval.
func (s NurbsSurface) DomainV() (lo, hi float64) {
	return s.KnotsV.Domain(s.DegreeV)
}
