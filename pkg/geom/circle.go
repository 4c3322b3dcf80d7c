package geom

import (
	"math"

	"github.com/chazu/kerf/pkg/diag"
	"github.com/deadsy/sdfx/sdf"
)

// Circle is a full circle in the plane through Centre perpendicular to
// Normal. Angles are measured from the axis returned by Axes.
type Circle struct {
	Centre Vec
	Normal Vec
	Radius float64
}

func (Circle) Kind() Kind { return KindCircle }
func (Circle) curve()     {}

// Plane returns the carrier plane.
func (c Circle) Plane() Plane {
	return Plane{Origin: c.Centre, Normal: c.Normal}
}

// Axes returns the orthonormal in-plane basis (x, y) with x × y = n̂.
func (c Circle) Axes() (x, y Vec) {
	return planeAxes(c.Normal, Vec{})
}

// PointAtAngle returns the point at angle theta, measured counter-clockwise
// about Normal from the x axis.
func (c Circle) PointAtAngle(theta float64) Vec {
	x, y := c.Axes()
	return pointOnCircle(c.Centre, x, y, c.Radius, theta)
}

// Circumference returns 2πr.
func (c Circle) Circumference() float64 {
	return 2 * math.Pi * c.Radius
}

func (c Circle) bounds() sdf.Box3 {
	n, ok := Unit(c.Normal)
	if !ok {
		return boxOf(c.Centre)
	}
	ext := V(
		c.Radius*math.Sqrt(math.Max(0, 1-n.X*n.X)),
		c.Radius*math.Sqrt(math.Max(0, 1-n.Y*n.Y)),
		c.Radius*math.Sqrt(math.Max(0, 1-n.Z*n.Z)),
	)
	return sdf.Box3{Min: c.Centre.Sub(ext), Max: c.Centre.Add(ext)}
}

// Arc is the part of a circle swept counter-clockwise about Normal from
// StartAngle to EndAngle. Angles are measured from XAxis; a zero XAxis
// selects the same default axis a Circle uses.
type Arc struct {
	Centre     Vec
	Normal     Vec
	XAxis      Vec
	Radius     float64
	StartAngle float64
	EndAngle   float64
}

func (Arc) Kind() Kind { return KindArc }
func (Arc) curve()     {}

// NewArc returns an arc using the default in-plane axis.
func NewArc(centre, normal Vec, radius, start, end float64) Arc {
	return Arc{Centre: centre, Normal: normal, Radius: radius, StartAngle: start, EndAngle: end}
}

// NewArcThroughPoints returns the arc that starts at a, passes through b and
// ends at c. Collinear or coincident points are degenerate.
func NewArcThroughPoints(a, b, c Vec) (Arc, error) {
	ab, ac := b.Sub(a), c.Sub(a)
	n := ab.Cross(ac)
	nn := n.Dot(n)
	if nn < 1e-24 {
		return Arc{}, diag.Degenerate("arc", "points are collinear")
	}
	offset := n.Cross(ab).MulScalar(ac.Dot(ac)).
		Add(ac.Cross(n).MulScalar(ab.Dot(ab))).
		MulScalar(1 / (2 * nn))
	centre := a.Add(offset)
	radius := offset.Length()
	xAxis, _ := Unit(a.Sub(centre))
	arc := Arc{Centre: centre, Normal: n.Normalize(), XAxis: xAxis, Radius: radius}
	arc.EndAngle = arc.angleOf(c)
	if arc.EndAngle <= 0 {
		arc.EndAngle += 2 * math.Pi
	}
	return arc, nil
}

// Circle returns the full circle the arc lies on.
func (a Arc) Circle() Circle {
	return Circle{Centre: a.Centre, Normal: a.Normal, Radius: a.Radius}
}

// Plane returns the carrier plane.
func (a Arc) Plane() Plane {
	return Plane{Origin: a.Centre, Normal: a.Normal}
}

// Axes returns the orthonormal in-plane basis the angles refer to.
func (a Arc) Axes() (x, y Vec) {
	return planeAxes(a.Normal, a.XAxis)
}

// Sweep returns EndAngle - StartAngle.
func (a Arc) Sweep() float64 {
	return a.EndAngle - a.StartAngle
}

// Length returns the arc length.
func (a Arc) Length() float64 {
	return math.Abs(a.Sweep()) * a.Radius
}

// PointAtAngle returns the point at angle theta on the arc's circle.
func (a Arc) PointAtAngle(theta float64) Vec {
	x, y := a.Axes()
	return pointOnCircle(a.Centre, x, y, a.Radius, theta)
}

// StartPoint returns the point at StartAngle.
func (a Arc) StartPoint() Vec { return a.PointAtAngle(a.StartAngle) }

// EndPoint returns the point at EndAngle.
func (a Arc) EndPoint() Vec { return a.PointAtAngle(a.EndAngle) }

// MidPoint returns the point halfway along the sweep.
func (a Arc) MidPoint() Vec { return a.PointAtAngle((a.StartAngle + a.EndAngle) / 2) }

// TangentAtAngle returns the unit tangent in the direction of increasing
// angle.
func (a Arc) TangentAtAngle(theta float64) Vec {
	x, y := a.Axes()
	return y.MulScalar(math.Cos(theta)).Sub(x.MulScalar(math.Sin(theta)))
}

// ContainsAngle reports whether theta lies within the swept range.
func (a Arc) ContainsAngle(theta float64) bool {
	sweep := a.Sweep()
	if sweep >= 2*math.Pi {
		return true
	}
	d := math.Mod(theta-a.StartAngle, 2*math.Pi)
	if d < 0 {
		d += 2 * math.Pi
	}
	return d <= sweep
}

// angleOf returns the angle of p's projection around the centre, in
// (-π, π].
func (a Arc) angleOf(p Vec) float64 {
	x, y := a.Axes()
	d := p.Sub(a.Centre)
	return math.Atan2(d.Dot(y), d.Dot(x))
}

func (a Arc) bounds() sdf.Box3 {
	box := boxOf(a.StartPoint(), a.EndPoint())
	x, y := a.Axes()
	// Each coordinate reaches its extremes at atan2(y_k, x_k) and the
	// opposite angle; include those that fall inside the sweep.
	for _, c := range [][2]float64{{x.X, y.X}, {x.Y, y.Y}, {x.Z, y.Z}} {
		if c[0] == 0 && c[1] == 0 {
			continue
		}
		theta := math.Atan2(c[1], c[0])
		for _, t := range []float64{theta, theta + math.Pi} {
			if a.ContainsAngle(t) {
				box = box.Extend(boxOf(a.PointAtAngle(t)))
			}
		}
	}
	return box
}

func pointOnCircle(centre, x, y Vec, r, theta float64) Vec {
	return centre.Add(x.MulScalar(r * math.Cos(theta))).Add(y.MulScalar(r * math.Sin(theta)))
}

// planeAxes builds an orthonormal basis in the plane with the given normal.
// A usable hint is projected into the plane and becomes the x axis.
func planeAxes(normal, hint Vec) (x, y Vec) {
	n, ok := Unit(normal)
	if !ok {
		return V(1, 0, 0), V(0, 1, 0)
	}
	x, ok = Unit(hint.Sub(n.MulScalar(hint.Dot(n))))
	if !ok {
		x = Perpendicular(n)
	}
	return x, n.Cross(x)
}
