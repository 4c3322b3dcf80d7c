package geom

import "math"

// Extent selects whether a line is treated as the segment between its end
// points or as the infinite line through them. It is a query parameter, never
// part of the line value.
type Extent int

const (
	Bounded Extent = iota
	Unbounded
)

func (e Extent) String() string {
	if e == Unbounded {
		return "unbounded"
	}
	return "bounded"
}

// Plane is an infinite plane through Origin with normal Normal. Normal need
// not be unit length.
type Plane struct {
	Origin Vec
	Normal Vec
}

// SignedDistance returns the distance from the plane to p, positive on the
// side Normal points to. A zero normal yields NaN.
func (pl Plane) SignedDistance(p Vec) float64 {
	n, ok := Unit(pl.Normal)
	if !ok {
		return math.NaN()
	}
	return p.Sub(pl.Origin).Dot(n)
}

// Project returns the orthogonal projection of p onto the plane.
func (pl Plane) Project(p Vec) Vec {
	n, ok := Unit(pl.Normal)
	if !ok {
		return p
	}
	return p.Sub(n.MulScalar(p.Sub(pl.Origin).Dot(n)))
}

// Line is the segment from Start to End.
type Line struct {
	Start Vec
	End   Vec
}

func (Line) Kind() Kind { return KindLine }
func (Line) curve()     {}

// Direction returns End - Start.
func (l Line) Direction() Vec {
	return l.End.Sub(l.Start)
}

// Length returns the segment length.
func (l Line) Length() float64 {
	return Distance(l.Start, l.End)
}

// PointAt returns Start + t·(End - Start).
func (l Line) PointAt(t float64) Vec {
	return Lerp(l.Start, l.End, t)
}

// ClosestParameter returns the parameter of the point on the infinite line
// nearest to p. A zero-length line returns 0.
func (l Line) ClosestParameter(p Vec) float64 {
	d := l.Direction()
	dd := d.Dot(d)
	if dd == 0 {
		return 0
	}
	return p.Sub(l.Start).Dot(d) / dd
}

// DistanceTo returns the distance from p to the line under the given extent.
func (l Line) DistanceTo(p Vec, extent Extent) float64 {
	t := l.ClosestParameter(p)
	if extent == Bounded {
		t = math.Max(0, math.Min(1, t))
	}
	return Distance(p, l.PointAt(t))
}

// Reversed returns the line running from End to Start.
func (l Line) Reversed() Line {
	return Line{Start: l.End, End: l.Start}
}
