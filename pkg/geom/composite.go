package geom

// Polyline is an open or closed chain of straight segments through Points.
// A closed polyline repeats its first point at the end.
type Polyline struct {
	Points []Vec
}

func (Polyline) Kind() Kind { return KindPolyline }
func (Polyline) curve()     {}

// Lines returns the segments between consecutive points.
func (p Polyline) Lines() []Line {
	if len(p.Points) < 2 {
		return nil
	}
	lines := make([]Line, len(p.Points)-1)
	for i := range lines {
		lines[i] = Line{Start: p.Points[i], End: p.Points[i+1]}
	}
	return lines
}

// Length returns the summed segment length.
func (p Polyline) Length() float64 {
	total := 0.0
	for _, l := range p.Lines() {
		total += l.Length()
	}
	return total
}

// PolyCurve is an ordered chain of curves. Parts are owned by value; a
// connected polycurve has each part starting where the previous one ends.
type PolyCurve struct {
	Curves []Curve
}

func (PolyCurve) Kind() Kind { return KindPolyCurve }
func (PolyCurve) curve()     {}
