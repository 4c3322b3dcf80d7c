package intersect

import (
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/chazu/kerf/pkg/diag"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/knot"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var (
	v   = geom.V
	tol = geom.DefaultTolerance()
	z   = v(0, 0, 1)
)

func diff(t *testing.T, want, got any, opts ...cmp.Option) {
	t.Helper()
	if d := cmp.Diff(want, got, opts...); d != "" {
		t.Error(d)
	}
}

// sorted orders points lexicographically so results compare independent
// of the order they were produced in.
func sorted(pts []geom.Vec) []geom.Vec {
	out := append([]geom.Vec(nil), pts...)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if math.Abs(a.X-b.X) > 1e-9 {
			return a.X < b.X
		}
		if math.Abs(a.Y-b.Y) > 1e-9 {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
	return out
}

func checkResult(t *testing.T, want Result, got Result) {
	t.Helper()
	if got.Kind != want.Kind {
		t.Errorf("kind = %v, want %v (points %v)", got.Kind, want.Kind, got.Points)
		return
	}
	diff(t, sorted(want.Points), sorted(got.Points), cmpopts.EquateApprox(0, 1e-6), cmpopts.EquateEmpty())
}

func pt(ps ...geom.Vec) Result    { return Result{Kind: KindPoint, Points: ps} }
func overlap(a, b geom.Vec) Result { return Result{Kind: KindOverlap, Points: []geom.Vec{a, b}} }

func line(x0, y0, x1, y1 float64) geom.Line {
	return geom.Line{Start: v(x0, y0, 0), End: v(x1, y1, 0)}
}

func TestLineLine(t *testing.T) {
	tests := []struct {
		name   string
		a, b   geom.Line
		extent geom.Extent
		want   Result
	}{
		{"crossing", line(0, 0, 2, 2), line(0, 2, 2, 0), geom.Bounded, pt(v(1, 1, 0))},
		{"skew", line(0, 0, 1, 0), geom.Line{Start: v(0, -1, 1), End: v(0, 1, 1)}, geom.Bounded, Result{}},
		{"bounded miss", line(0, 0, 1, 0), line(2, -1, 2, 1), geom.Bounded, Result{}},
		{"unbounded hit", line(0, 0, 1, 0), line(2, -1, 2, 1), geom.Unbounded, pt(v(2, 0, 0))},
		{"end point touch", line(0, 0, 1, 0), line(1, 0, 1, 1), geom.Bounded, pt(v(1, 0, 0))},
		{"parallel", line(0, 0, 1, 0), line(0, 1, 1, 1), geom.Bounded, Result{}},
		{"parallel unbounded", line(0, 0, 1, 0), line(0, 1, 1, 1), geom.Unbounded, Result{}},
		{"collinear overlap", line(0, 0, 2, 0), line(1, 0, 3, 0), geom.Bounded, overlap(v(1, 0, 0), v(2, 0, 0))},
		{"collinear reversed", line(0, 0, 2, 0), line(3, 0, 1, 0), geom.Bounded, overlap(v(1, 0, 0), v(2, 0, 0))},
		{"collinear contained", line(0, 0, 4, 0), line(1, 0, 2, 0), geom.Bounded, overlap(v(1, 0, 0), v(2, 0, 0))},
		{"collinear touching", line(0, 0, 1, 0), line(1, 0, 2, 0), geom.Bounded, pt(v(1, 0, 0))},
		{"collinear apart", line(0, 0, 1, 0), line(2, 0, 3, 0), geom.Bounded, Result{}},
		{"collinear unbounded", line(0, 0, 1, 0), line(2, 0, 3, 0), geom.Unbounded, Result{Kind: KindCoincident}},
		{"3d crossing", geom.Line{Start: v(0, 0, 0), End: v(2, 2, 2)}, geom.Line{Start: v(2, 0, 0), End: v(0, 2, 2)}, geom.Bounded, pt(v(1, 1, 1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LineLine(tt.a, tt.b, tt.extent, tol)
			if err != nil {
				t.Fatal(err)
			}
			checkResult(t, tt.want, got)
		})
	}
}

func TestLineWithItselfOverlaps(t *testing.T) {
	a := geom.Line{Start: v(0.3, -1, 2), End: v(4, 2, -1)}
	for _, off := range []geom.Vec{{}, v(0, 1e-7, 0), v(3e-7, 0, -4e-7)} {
		b := geom.Line{Start: a.Start.Add(off), End: a.End.Add(off)}
		got, err := LineLine(a, b, geom.Bounded, tol)
		if err != nil {
			t.Fatal(err)
		}
		if got.Kind != KindOverlap {
			t.Errorf("offset %v: kind = %v, want overlap", off, got.Kind)
			continue
		}
		checkResult(t, overlap(a.Start, a.End), got)
	}
}

func TestLineLineDegenerate(t *testing.T) {
	_, err := LineLine(line(1, 1, 1, 1), line(0, 0, 1, 0), geom.Bounded, tol)
	if !errors.Is(err, diag.ErrDegenerate) {
		t.Errorf("expected ErrDegenerate, got %v", err)
	}
}

func TestRowReduceRanks(t *testing.T) {
	tests := []struct {
		name       string
		m          [3][3]float64
		coeff, aug int
	}{
		{"unique", [3][3]float64{{1, 0, 1}, {0, -1, 2}, {0, 0, 0}}, 2, 2},
		{"skew", [3][3]float64{{1, 0, 0}, {0, -1, -1}, {0, 0, 1}}, 2, 3},
		{"parallel", [3][3]float64{{1, -1, 0}, {0, 0, 1}, {0, 0, 0}}, 1, 2},
		{"collinear", [3][3]float64{{1, -1, 3}, {0, 0, 0}, {0, 0, 0}}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coeff, aug := rowReduce(tt.m, tol)
			if coeff != tt.coeff || aug != tt.aug {
				t.Errorf("ranks = (%d, %d), want (%d, %d)", coeff, aug, tt.coeff, tt.aug)
			}
		})
	}
}

func unitCircle() geom.Circle {
	return geom.Circle{Normal: z, Radius: 1}
}

func TestLineCircleProperties(t *testing.T) {
	c := unitCircle()
	tests := []struct {
		name   string
		l      geom.Line
		extent geom.Extent
		count  int
	}{
		{"secant", line(-2, 0, 2, 0), geom.Bounded, 2},
		{"tangent", line(-2, 1, 2, 1), geom.Bounded, 1},
		{"near tangent", line(-2, 1+5e-7, 2, 1+5e-7), geom.Bounded, 1},
		{"miss", line(-2, 1.5, 2, 1.5), geom.Bounded, 0},
		{"short inside", line(0, 0, 0.5, 0), geom.Bounded, 0},
		{"short inside unbounded", line(0, 0, 0.5, 0), geom.Unbounded, 2},
		{"half in", line(0, 0, 3, 0.5), geom.Bounded, 1},
		{"oblique chord", line(-1, -0.5, 1, 0.7), geom.Bounded, 2},
		{"piercing", geom.Line{Start: v(1, 0, -1), End: v(1, 0, 1)}, geom.Bounded, 1},
		{"piercing oblique", geom.Line{Start: v(0, -2, -2), End: v(0, 0, 2)}, geom.Bounded, 1},
		{"piercing inside", geom.Line{Start: v(0.5, 0, -1), End: v(0.5, 0, 1)}, geom.Bounded, 0},
		{"parallel plane", geom.Line{Start: v(-2, 0, 1), End: v(2, 0, 1)}, geom.Bounded, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LineCircle(tt.l, c, tt.extent, tol)
			if err != nil {
				t.Fatal(err)
			}
			if len(got.Points) != tt.count {
				t.Fatalf("%d points %v, want %d", len(got.Points), got.Points, tt.count)
			}
			if (tt.count == 0) != got.Empty() {
				t.Errorf("kind %v inconsistent with %d points", got.Kind, tt.count)
			}
			for _, p := range got.Points {
				d, _ := geom.DistanceToCurve(c, p)
				if d > tol.Distance {
					t.Errorf("%v is %g from the circle", p, d)
				}
				if dl := tt.l.DistanceTo(p, geom.Unbounded); dl > tol.Distance {
					t.Errorf("%v is %g from the line", p, dl)
				}
			}
		})
	}
}

func TestLineCircleValues(t *testing.T) {
	got, err := LineCircle(line(-2, 0, 2, 0), unitCircle(), geom.Bounded, tol)
	if err != nil {
		t.Fatal(err)
	}
	checkResult(t, pt(v(-1, 0, 0), v(1, 0, 0)), got)

	if _, err := LineCircle(line(-2, 0, 2, 0), geom.Circle{Normal: z}, geom.Bounded, tol); !errors.Is(err, diag.ErrDegenerate) {
		t.Errorf("zero radius: expected ErrDegenerate, got %v", err)
	}
}

func TestLineArc(t *testing.T) {
	upper := geom.NewArc(v(0, 0, 0), z, 1, 0, math.Pi)
	quarter := geom.NewArc(v(0, 0, 0), z, 1, 0, math.Pi/2)
	major := geom.NewArc(v(0, 0, 0), z, 1, 0, 3*math.Pi/2)
	full := geom.NewArc(v(0, 0, 0), z, 1, 0, 2*math.Pi)
	s := math.Sqrt(0.75)
	tests := []struct {
		name string
		l    geom.Line
		a    geom.Arc
		want Result
	}{
		{"upper both", line(-2, 0.5, 2, 0.5), upper, pt(v(-s, 0.5, 0), v(s, 0.5, 0))},
		{"upper none", line(-2, -0.5, 2, -0.5), upper, Result{}},
		{"quarter one", line(-2, 0.5, 2, 0.5), quarter, pt(v(s, 0.5, 0))},
		{"major arc", line(-2, -0.5, 2, -0.5), major, pt(v(-s, -0.5, 0))},
		{"full turn", line(-2, -0.5, 2, -0.5), full, pt(v(-s, -0.5, 0), v(s, -0.5, 0))},
		{"end point", line(1, -1, 1, 1), upper, pt(v(1, 0, 0))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LineArc(tt.l, tt.a, geom.Bounded, tol)
			if err != nil {
				t.Fatal(err)
			}
			checkResult(t, tt.want, got)
		})
	}
}

func TestCircleCircle(t *testing.T) {
	c := func(x, y, r float64) geom.Circle {
		return geom.Circle{Centre: v(x, y, 0), Normal: z, Radius: r}
	}
	s := math.Sqrt(0.75)
	tests := []struct {
		name   string
		c1, c2 geom.Circle
		want   Result
	}{
		{"two points", c(0, 0, 1), c(1, 0, 1), pt(v(0.5, s, 0), v(0.5, -s, 0))},
		{"external tangent", c(0, 0, 1), c(2, 0, 1), pt(v(1, 0, 0))},
		{"near external tangent", c(0, 0, 1), c(2+5e-7, 0, 1), pt(v(1, 0, 0))},
		{"internal tangent", c(0, 0, 2), c(1, 0, 1), pt(v(2, 0, 0))},
		{"internal tangent reversed", c(1, 0, 1), c(0, 0, 2), pt(v(2, 0, 0))},
		{"apart", c(0, 0, 1), c(3, 0, 1), Result{}},
		{"nested", c(0, 0, 3), c(0.5, 0, 1), Result{}},
		{"concentric equal", c(1, 1, 1), c(1, 1, 1), Result{Kind: KindCoincident}},
		{"concentric unequal", c(1, 1, 1), c(1, 1, 2), Result{}},
		{"flipped normal", c(0, 0, 1), geom.Circle{Centre: v(1, 0, 0), Normal: v(0, 0, -1), Radius: 1}, pt(v(0.5, s, 0), v(0.5, -s, 0))},
		{"parallel planes", c(0, 0, 1), geom.Circle{Centre: v(0, 0, 1), Normal: z, Radius: 1}, Result{}},
		{"perpendicular two points", c(0, 0, 1), geom.Circle{Normal: v(0, 1, 0), Radius: 1}, pt(v(-1, 0, 0), v(1, 0, 0))},
		{"perpendicular touch", c(0, 0, 1), geom.Circle{Centre: v(2, 0, 0), Normal: v(0, 1, 0), Radius: 1}, pt(v(1, 0, 0))},
		{"perpendicular miss", c(0, 0, 1), geom.Circle{Centre: v(0, 0, 2), Normal: v(0, 1, 0), Radius: 1}, Result{}},
		{"perpendicular linked", c(0, 0, 1), geom.Circle{Centre: v(1, 0, 0), Normal: v(0, 1, 0), Radius: 1}, Result{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CircleCircle(tt.c1, tt.c2, tol)
			if err != nil {
				t.Fatal(err)
			}
			checkResult(t, tt.want, got)
			for _, p := range got.Points {
				for _, c := range []geom.Circle{tt.c1, tt.c2} {
					if d, _ := geom.DistanceToCurve(c, p); d > tol.Distance {
						t.Errorf("%v is %g off %+v", p, d, c)
					}
				}
			}
		})
	}
}

func TestArcArc(t *testing.T) {
	arc := func(x, start, end float64) geom.Arc {
		return geom.NewArc(v(x, 0, 0), z, 1, start, end)
	}
	s := math.Sqrt(0.75)
	tests := []struct {
		name string
		a, b geom.Arc
		want Result
	}{
		{"crossing", arc(0, 0, math.Pi), arc(1, 0, math.Pi), pt(v(0.5, s, 0))},
		{"filtered by both", arc(0, math.Pi, 2*math.Pi), arc(1, 0, math.Pi), Result{}},
		{"same circle overlap", arc(0, 0, math.Pi), arc(0, math.Pi/2, 3*math.Pi/2), overlap(v(-1, 0, 0), v(0, 1, 0))},
		{"same circle touching", arc(0, 0, math.Pi/2), arc(0, math.Pi/2, math.Pi), pt(v(0, 1, 0))},
		{"same circle apart", arc(0, 0, math.Pi/4), arc(0, math.Pi, 5*math.Pi/4), Result{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ArcArc(tt.a, tt.b, tol)
			if err != nil {
				t.Fatal(err)
			}
			checkResult(t, tt.want, got)
		})
	}
}

func TestCircleArc(t *testing.T) {
	a := geom.NewArc(v(1, 0, 0), z, 1, 0, math.Pi)
	got, err := CircleArc(unitCircle(), a, tol)
	if err != nil {
		t.Fatal(err)
	}
	checkResult(t, pt(v(0.5, math.Sqrt(0.75), 0)), got)

	same := geom.NewArc(v(0, 0, 0), z, 1, 0, math.Pi/2)
	got, err = CircleArc(unitCircle(), same, tol)
	if err != nil {
		t.Fatal(err)
	}
	checkResult(t, overlap(v(1, 0, 0), v(0, 1, 0)), got)
}

func TestCurvePlane(t *testing.T) {
	xy := geom.Plane{Normal: z}
	yz := geom.Plane{Normal: v(1, 0, 0)}
	square := geom.Polyline{Points: []geom.Vec{v(0, 0, 0), v(1, 0, 0), v(1, 1, 0), v(0, 1, 0), v(0, 0, 0)}}
	s := math.Sqrt(0.75)
	tests := []struct {
		name string
		c    geom.Curve
		pl   geom.Plane
		want Result
	}{
		{"line crossing", geom.Line{Start: v(1, 1, -1), End: v(1, 1, 3)}, xy, pt(v(1, 1, 0))},
		{"line above", geom.Line{Start: v(1, 1, 1), End: v(1, 1, 3)}, xy, Result{}},
		{"line in plane", line(0, 0, 1, 1), xy, overlap(v(0, 0, 0), v(1, 1, 0))},
		{"line end on plane", geom.Line{Start: v(0, 0, 0), End: v(0, 0, 1)}, xy, pt(v(0, 0, 0))},
		{"circle crossing", unitCircle(), yz, pt(v(0, 1, 0), v(0, -1, 0))},
		{"circle touching", unitCircle(), geom.Plane{Origin: v(1, 0, 0), Normal: v(1, 0, 0)}, pt(v(1, 0, 0))},
		{"circle in plane", unitCircle(), xy, Result{Kind: KindCoincident}},
		{"arc crossing twice", geom.NewArc(v(0, 0, 0), z, 1, 0, math.Pi), geom.Plane{Origin: v(0, 0.5, 0), Normal: v(0, 1, 0)}, pt(v(-s, 0.5, 0), v(s, 0.5, 0))},
		{"arc crossing once", geom.NewArc(v(0, 0, 0), z, 1, 0, math.Pi), geom.Plane{Origin: v(0.5, 0, 0), Normal: v(1, 0, 0)}, pt(v(0.5, s, 0))},
		{"polyline", square, geom.Plane{Origin: v(0.5, 0, 0), Normal: v(1, 0, 0)}, pt(v(0.5, 0, 0), v(0.5, 1, 0))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CurvePlane(tt.c, tt.pl, tol)
			if err != nil {
				t.Fatal(err)
			}
			checkResult(t, tt.want, got)
		})
	}
}

func nurbsLine() geom.NurbsCurve {
	return geom.NurbsCurve{
		ControlPoints: []geom.Vec{v(0, 0, 0), v(1, 1, 0)},
		Knots:         knot.Vector{0, 0, 1, 1},
		Degree:        1,
	}
}

func TestNurbsIsUnsupported(t *testing.T) {
	square := geom.Polyline{Points: []geom.Vec{v(0, 0, 0), v(1, 0, 0), v(1, 1, 0)}}
	if _, err := Curves(square, nurbsLine(), geom.Bounded, tol); !errors.Is(err, diag.ErrUnsupported) {
		t.Errorf("Curves: expected ErrUnsupported, got %v", err)
	}
	pc := geom.PolyCurve{Curves: []geom.Curve{line(0, 0, 1, 0), nurbsLine()}}
	if _, err := Curves(line(0, 0, 1, 0), pc, geom.Bounded, tol); !errors.Is(err, diag.ErrUnsupported) {
		t.Errorf("nested nurbs: expected ErrUnsupported, got %v", err)
	}
	if _, err := CurvePlane(nurbsLine(), geom.Plane{Normal: z}, tol); !errors.Is(err, diag.ErrUnsupported) {
		t.Errorf("CurvePlane: expected ErrUnsupported, got %v", err)
	}
}

func TestInvalidToleranceIsRejected(t *testing.T) {
	a, b := line(0, 0, 2, 2), line(0, 2, 2, 0)
	c := geom.Circle{Normal: z, Radius: 1}
	tests := []struct {
		name string
		call func(geom.Tolerance) error
	}{
		{"LineLine", func(tol geom.Tolerance) error {
			_, err := LineLine(a, b, geom.Bounded, tol)
			return err
		}},
		{"LineCircle", func(tol geom.Tolerance) error {
			_, err := LineCircle(a, c, geom.Unbounded, tol)
			return err
		}},
		{"CircleCircle", func(tol geom.Tolerance) error {
			_, err := CircleCircle(c, geom.Circle{Centre: v(1, 0, 0), Normal: z, Radius: 1}, tol)
			return err
		}},
		{"CurvePlane", func(tol geom.Tolerance) error {
			_, err := CurvePlane(a, geom.Plane{Origin: v(1, 0, 0), Normal: v(1, 0, 0)}, tol)
			return err
		}},
		{"Curves", func(tol geom.Tolerance) error {
			_, err := Curves(a, b, geom.Bounded, tol)
			return err
		}},
	}
	bad := []geom.Tolerance{
		{Distance: -1, Angle: -1},
		{Distance: 0, Angle: 1e-6},
		{Distance: 1e-6, Angle: math.NaN()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, tol := range bad {
				if err := tt.call(tol); !errors.Is(err, diag.ErrTolerance) {
					t.Errorf("tolerance %+v: expected ErrTolerance, got %v", tol, err)
				}
			}
		})
	}

	rec := diag.NewRecorder()
	Pairwise([]geom.Curve{a, b}, geom.Bounded, geom.Tolerance{}, rec)
	if d := rec.Diagnostics(); len(d) != 1 || d[0].Code != diag.CodeTolerance {
		t.Errorf("Pairwise recorded %+v", d)
	}
}

func TestCurvesConcatenatesParts(t *testing.T) {
	square := geom.Polyline{Points: []geom.Vec{v(0, 0, 0), v(1, 0, 0), v(1, 1, 0), v(0, 1, 0), v(0, 0, 0)}}
	inscribed := geom.Circle{Centre: v(0.5, 0.5, 0), Normal: z, Radius: 0.5}
	got, err := Curves(square, inscribed, geom.Bounded, tol)
	if err != nil {
		t.Fatal(err)
	}
	checkResult(t, pt(v(0.5, 0, 0), v(1, 0.5, 0), v(0.5, 1, 0), v(0, 0.5, 0)), got)

	// A diagonal through a vertex is reported once per incident segment.
	diagonal := line(-1, -1, 2, 2)
	got, err = Curves(diagonal, square, geom.Bounded, tol)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Points) != 4 {
		t.Errorf("expected 4 raw hits, got %v", got.Points)
	}
	if u := geom.Unique(got.Points, tol.Distance); len(u) != 2 {
		t.Errorf("expected 2 distinct hits, got %v", u)
	}
}

func TestPairwiseRecordsFailures(t *testing.T) {
	curves := []geom.Curve{line(-2, 0, 2, 0), unitCircle(), nurbsLine()}
	rec := diag.NewRecorder()
	got := Pairwise(curves, geom.Bounded, tol, rec)
	if len(got) != 3 {
		t.Fatalf("expected 3 pairs, got %d", len(got))
	}
	if got[0].I != 0 || got[0].J != 1 || len(got[0].Result.Points) != 2 {
		t.Errorf("unexpected first pair: %+v", got[0])
	}
	diags := rec.Diagnostics()
	if len(diags) != 2 {
		t.Fatalf("expected 2 diagnostics, got %v", diags)
	}
	if diags[0].Index != 1 || diags[1].Index != 2 || diags[0].Code != diag.CodeUnsupported {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
	if !got[1].Result.Empty() {
		t.Error("failed pair should have an empty result")
	}
}
