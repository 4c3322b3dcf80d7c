package geom

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
)

// Kind enumerates the closed set of curve types.
type Kind int

const (
	KindLine Kind = iota
	KindCircle
	KindArc
	KindPolyline
	KindPolyCurve
	KindNurbs
)

func (k Kind) String() string {
	switch k {
	case KindLine:
		return "line"
	case KindCircle:
		return "circle"
	case KindArc:
		return "arc"
	case KindPolyline:
		return "polyline"
	case KindPolyCurve:
		return "polycurve"
	case KindNurbs:
		return "nurbs"
	default:
		return "unknown"
	}
}

// IsPrimitive reports whether k is one of the analytic primitives handled
// pairwise by the intersector.
func (k Kind) IsPrimitive() bool {
	return k == KindLine || k == KindCircle || k == KindArc
}

// Curve is the sealed interface implemented by every curve type in this
// package. Dispatch sites switch on Kind and must handle every value.
type Curve interface {
	Kind() Kind
	curve() // marker method restricting implementations to this package
}

// Compile-time interface checks.
var (
	_ Curve = Line{}
	_ Curve = Circle{}
	_ Curve = Arc{}
	_ Curve = Polyline{}
	_ Curve = PolyCurve{}
	_ Curve = NurbsCurve{}
)

// UnhandledKind panics for a Kind missing from an exhaustive switch. It
// marks a programming error, not bad input.
func UnhandledKind(op string, k Kind) {
	panic(fmt.Sprintf("%s: unhandled curve kind %v", op, k))
}

// SubParts decomposes c into the parts it is made of, flattening nested
// composites. The decomposition is structural: no geometry changes.
// Primitives and NURBS curves return themselves.
func SubParts(c Curve) []Curve {
	switch c.Kind() {
	case KindLine, KindCircle, KindArc, KindNurbs:
		return []Curve{c}
	case KindPolyline:
		lines := c.(Polyline).Lines()
		parts := make([]Curve, len(lines))
		for i, l := range lines {
			parts[i] = l
		}
		return parts
	case KindPolyCurve:
		var parts []Curve
		for _, sub := range c.(PolyCurve).Curves {
			parts = append(parts, SubParts(sub)...)
		}
		return parts
	}
	UnhandledKind("SubParts", c.Kind())
	return nil
}

// Endpoints returns the start and end points of c. A circle starts and
// ends at the point at angle 0. ok is false for empty composites and for
// unclamped NURBS curves, whose end points require evaluation.
func Endpoints(c Curve) (start, end Vec, ok bool) {
	switch c.Kind() {
	case KindLine:
		l := c.(Line)
		return l.Start, l.End, true
	case KindCircle:
		p := c.(Circle).PointAtAngle(0)
		return p, p, true
	case KindArc:
		a := c.(Arc)
		return a.StartPoint(), a.EndPoint(), true
	case KindPolyline:
		pts := c.(Polyline).Points
		if len(pts) == 0 {
			return Vec{}, Vec{}, false
		}
		return pts[0], pts[len(pts)-1], true
	case KindPolyCurve:
		curves := c.(PolyCurve).Curves
		if len(curves) == 0 {
			return Vec{}, Vec{}, false
		}
		s, _, ok1 := Endpoints(curves[0])
		_, e, ok2 := Endpoints(curves[len(curves)-1])
		return s, e, ok1 && ok2
	case KindNurbs:
		n := c.(NurbsCurve)
		if len(n.ControlPoints) == 0 || !n.Knots.IsClamped(n.Degree) {
			return Vec{}, Vec{}, false
		}
		return n.ControlPoints[0], n.ControlPoints[len(n.ControlPoints)-1], true
	}
	UnhandledKind("Endpoints", c.Kind())
	return Vec{}, Vec{}, false
}

// IsClosed reports whether c ends where it starts, within tol.
func IsClosed(c Curve, tol float64) bool {
	if c.Kind() == KindCircle {
		return true
	}
	s, e, ok := Endpoints(c)
	return ok && DistanceSquared(s, e) <= tol*tol
}

// IsConnected reports whether each part of a composite starts where the
// previous one ended, within tol.
func IsConnected(c Curve, tol float64) bool {
	parts := SubParts(c)
	for i := 1; i < len(parts); i++ {
		_, e, ok1 := Endpoints(parts[i-1])
		s, _, ok2 := Endpoints(parts[i])
		if !ok1 || !ok2 || DistanceSquared(e, s) > tol*tol {
			return false
		}
	}
	return true
}

// Bounds returns the axis-aligned bounding box of c. NURBS curves are
// bounded by their control net (convex hull property).
func Bounds(c Curve) sdf.Box3 {
	switch c.Kind() {
	case KindLine:
		l := c.(Line)
		return boxOf(l.Start, l.End)
	case KindCircle:
		return c.(Circle).bounds()
	case KindArc:
		return c.(Arc).bounds()
	case KindPolyline:
		return boxOf(c.(Polyline).Points...)
	case KindPolyCurve:
		parts := SubParts(c)
		if len(parts) == 0 {
			return sdf.Box3{}
		}
		box := Bounds(parts[0])
		for _, p := range parts[1:] {
			box = box.Extend(Bounds(p))
		}
		return box
	case KindNurbs:
		return boxOf(c.(NurbsCurve).ControlPoints...)
	}
	UnhandledKind("Bounds", c.Kind())
	return sdf.Box3{}
}

// Overlap reports whether two boxes intersect once each is grown by tol.
func Overlap(a, b sdf.Box3, tol float64) bool {
	return a.Min.X-tol <= b.Max.X && b.Min.X-tol <= a.Max.X &&
		a.Min.Y-tol <= b.Max.Y && b.Min.Y-tol <= a.Max.Y &&
		a.Min.Z-tol <= b.Max.Z && b.Min.Z-tol <= a.Max.Z
}

// Diagonal returns the length of the box diagonal.
func Diagonal(b sdf.Box3) float64 {
	return Distance(b.Min, b.Max)
}

func boxOf(pts ...Vec) sdf.Box3 {
	if len(pts) == 0 {
		return sdf.Box3{}
	}
	lo, hi := pts[0], pts[0]
	for _, p := range pts[1:] {
		lo = V(math.Min(lo.X, p.X), math.Min(lo.Y, p.Y), math.Min(lo.Z, p.Z))
		hi = V(math.Max(hi.X, p.X), math.Max(hi.Y, p.Y), math.Max(hi.Z, p.Z))
	}
	return sdf.Box3{Min: lo, Max: hi}
}
