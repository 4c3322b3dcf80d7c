package nurbs

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/kerf/pkg/binomial"
	"github.com/chazu/kerf/pkg/diag"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/knot"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func diff(t *testing.T, want, got any, opts ...cmp.Option) {
	t.Helper()
	if d := cmp.Diff(want, got, opts...); d != "" {
		t.Error(d)
	}
}

func near(t *testing.T, what string, want, got geom.Vec, tol float64) {
	t.Helper()
	if geom.Distance(want, got) > tol || geom.IsNaN(got) {
		t.Errorf("%s = %v, want %v (±%g)", what, got, want, tol)
	}
}

var v = geom.V

// cubic is a clamped, non-rational cubic with unevenly spaced knots.
func cubic() geom.NurbsCurve {
	return geom.NurbsCurve{
		ControlPoints: []geom.Vec{v(0, 0, 0), v(1, 2, 0), v(3, 3, 1), v(4, 0, 2), v(6, -1, 1), v(7, 1, 0), v(9, 0, 0)},
		Knots:         knot.Vector{0, 0, 0, 0, 0.5, 1.5, 2, 3, 3, 3, 3},
		Degree:        3,
	}
}

// quarterCircle is the unit quarter circle in the XY plane.
func quarterCircle() geom.NurbsCurve {
	return geom.NurbsCurve{
		ControlPoints: []geom.Vec{v(1, 0, 0), v(1, 1, 0), v(0, 1, 0)},
		Weights:       []float64{1, math.Sqrt2 / 2, 1},
		Knots:         knot.Vector{0, 0, 0, 1, 1, 1},
		Degree:        2,
	}
}

// spherePatch is one eighth of the unit sphere: a quarter arc in XZ
// revolved a quarter turn about Z.
func spherePatch() geom.NurbsSurface {
	profile := []geom.Vec{v(1, 0, 0), v(1, 0, 1), v(0, 0, 1)}
	pw := []float64{1, math.Sqrt2 / 2, 1}
	rw := []float64{1, math.Sqrt2 / 2, 1}
	var pts []geom.Vec
	var ws []float64
	for i, p := range profile {
		x := p.X
		for j, q := range []geom.Vec{v(x, 0, p.Z), v(x, x, p.Z), v(0, x, p.Z)} {
			pts = append(pts, q)
			ws = append(ws, pw[i]*rw[j])
		}
	}
	return geom.NurbsSurface{
		ControlPoints: pts,
		Weights:       ws,
		KnotsU:        knot.Vector{0, 0, 0, 1, 1, 1},
		KnotsV:        knot.Vector{0, 0, 0, 1, 1, 1},
		DegreeU:       2,
		DegreeV:       2,
	}
}

// referenceDerivative differentiates a non-rational B-spline through its
// derivative control points (Piegl & Tiller eq. 3.8) and evaluates the
// resulting lower-degree curve directly from the basis functions.
func referenceDerivative(pts []geom.Vec, k knot.Vector, p, order int, t float64) geom.Vec {
	for d := 0; d < order; d++ {
		if p == 0 {
			return geom.Vec{}
		}
		q := make([]geom.Vec, len(pts)-1)
		for i := range q {
			q[i] = pts[i+1].Sub(pts[i]).MulScalar(float64(p) / (k[i+p+1] - k[i+1]))
		}
		pts, k, p = q, k[1:len(k)-1], p-1
	}
	span, err := k.Span(p, t)
	if err != nil {
		panic(err)
	}
	n := knot.BasisFunctions(k, span, p, t)
	var out geom.Vec
	for j := 0; j <= p; j++ {
		out = out.Add(pts[span-p+j].MulScalar(n[j]))
	}
	return out
}

func TestNonRationalMatchesReference(t *testing.T) {
	c := cubic()
	for _, weights := range [][]float64{nil, {1, 1, 1, 1, 1, 1, 1}} {
		c.Weights = weights
		for _, tt := range []float64{0, 0.25, 0.5, 0.9, 1.5, 2.2, 2.999, 3} {
			ders, err := CurveDerivatives(c, tt, 4)
			if err != nil {
				t.Fatal(err)
			}
			for k := 0; k <= 4; k++ {
				want := referenceDerivative(c.ControlPoints, c.Knots, c.Degree, k, tt)
				near(t, "derivative", want, ders[k], 1e-9)
			}
		}
	}
}

func TestDerivativesAboveDegreeAreZero(t *testing.T) {
	tests := []struct {
		name  string
		c     geom.NurbsCurve
		order int
	}{
		{"rational quadratic", quarterCircle(), 5},
		{"cubic", cubic(), 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ders, err := CurveDerivatives(tt.c, 0.7, tt.order)
			if err != nil {
				t.Fatal(err)
			}
			if len(ders) != tt.order+1 {
				t.Fatalf("expected %d entries, got %d", tt.order+1, len(ders))
			}
			for k := tt.c.Degree + 1; k <= tt.order; k++ {
				diff(t, geom.Vec{}, ders[k])
			}
			if ders[tt.c.Degree] == (geom.Vec{}) {
				t.Errorf("derivative of order %d should not vanish", tt.c.Degree)
			}
		})
	}
}

func TestRationalCircle(t *testing.T) {
	c := quarterCircle()
	for _, tt := range []float64{0, 0.1, 0.33, 0.5, 0.8, 1} {
		ders, err := CurveDerivatives(c, tt, 1)
		if err != nil {
			t.Fatal(err)
		}
		if r := ders[0].Length(); math.Abs(r-1) > 1e-12 {
			t.Errorf("|C(%g)| = %g, want 1", tt, r)
		}
		if d := ders[0].Dot(ders[1]); math.Abs(d) > 1e-12 {
			t.Errorf("C·C' at %g = %g, want 0", tt, d)
		}
	}
	p, err := CurvePoint(c, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	near(t, "midpoint", v(math.Sqrt2/2, math.Sqrt2/2, 0), p, 1e-12)
}

func TestRationalDerivativesMatchFiniteDifference(t *testing.T) {
	c := geom.NurbsCurve{
		ControlPoints: []geom.Vec{v(0, 0, 0), v(1, 2, 1), v(2, -1, 3), v(4, 1, 0), v(5, 0, 2)},
		Weights:       []float64{1, 3, 0.5, 2, 1},
		Knots:         knot.Vector{0, 0, 0, 0.4, 0.7, 1, 1, 1},
		Degree:        2,
	}
	const h = 1e-5
	for _, tt := range []float64{0.1, 0.3, 0.55, 0.85} {
		ders, err := CurveDerivatives(c, tt, 2)
		if err != nil {
			t.Fatal(err)
		}
		lo, _ := CurveDerivatives(c, tt-h, 1)
		hi, _ := CurveDerivatives(c, tt+h, 1)
		fd1 := hi[0].Sub(lo[0]).MulScalar(1 / (2 * h))
		fd2 := hi[1].Sub(lo[1]).MulScalar(1 / (2 * h))
		near(t, "first derivative", fd1, ders[1], 1e-5)
		near(t, "second derivative", fd2, ders[2], 1e-4)
	}
}

func TestParametersAreClamped(t *testing.T) {
	c := cubic()
	tests := []struct {
		name string
		t    float64
		want geom.Vec
	}{
		{"below", -4, v(0, 0, 0)},
		{"start", 0, v(0, 0, 0)},
		{"end", 3, v(9, 0, 0)},
		{"above", 12, v(9, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := CurvePoint(c, tt.t)
			if err != nil {
				t.Fatal(err)
			}
			near(t, "point", tt.want, p, 1e-12)
		})
	}
}

func TestNormalizedParameters(t *testing.T) {
	c := cubic()
	e := Default()
	p, err := e.CurvePointNormalized(c, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	q, _ := CurvePoint(c, 1.5)
	near(t, "normalized midpoint", q, p, 1e-12)

	ders, err := e.CurveDerivativesNormalized(c, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := CurveDerivatives(c, 3, 1)
	near(t, "clamped normalized derivative", want[1], ders[1], 1e-12)
}

func TestCurveTangent(t *testing.T) {
	tan, err := CurveTangent(quarterCircle(), 0)
	if err != nil {
		t.Fatal(err)
	}
	near(t, "tangent", v(0, 1, 0), tan, 1e-12)

	flat := geom.NurbsCurve{
		ControlPoints: []geom.Vec{v(1, 1, 1), v(1, 1, 1)},
		Knots:         knot.Vector{0, 0, 1, 1},
		Degree:        1,
	}
	if _, err := CurveTangent(flat, 0.5); !errors.Is(err, diag.ErrDegenerate) {
		t.Errorf("expected ErrDegenerate, got %v", err)
	}
}

func TestSurfaceBilinear(t *testing.T) {
	s := geom.NurbsSurface{
		ControlPoints: []geom.Vec{v(0, 0, 0), v(0, 2, 0), v(1, 0, 0), v(1, 2, 1)},
		KnotsU:        knot.Vector{0, 0, 1, 1},
		KnotsV:        knot.Vector{0, 0, 1, 1},
		DegreeU:       1,
		DegreeV:       1,
	}
	skl, err := SurfaceDerivatives(s, 0.5, 0.25, 2)
	if err != nil {
		t.Fatal(err)
	}
	near(t, "S", v(0.5, 0.5, 0.125), skl[0][0], 1e-12)
	near(t, "Su", v(1, 0, 0.25), skl[1][0], 1e-12)
	near(t, "Sv", v(0, 2, 0.5), skl[0][1], 1e-12)
	near(t, "Suv", v(0, 0, 1), skl[1][1], 1e-12)
	diff(t, geom.Vec{}, skl[2][0])
	diff(t, geom.Vec{}, skl[0][2])
}

func TestSpherePatch(t *testing.T) {
	s := spherePatch()
	for _, u := range []float64{0, 0.2, 0.5, 0.8} {
		for _, w := range []float64{0, 0.3, 0.7, 1} {
			p, err := SurfacePoint(s, u, w)
			if err != nil {
				t.Fatal(err)
			}
			if r := p.Length(); math.Abs(r-1) > 1e-12 {
				t.Errorf("|S(%g,%g)| = %g, want 1", u, w, r)
			}
			n, err := SurfaceNormal(s, u, w)
			if err != nil {
				t.Fatal(err)
			}
			if d := math.Abs(n.Dot(p)); math.Abs(d-1) > 1e-9 {
				t.Errorf("normal at (%g,%g) is not radial: |n·p| = %g", u, w, d)
			}
		}
	}
	if _, err := SurfaceNormal(s, 1, 0.5); !errors.Is(err, diag.ErrDegenerate) {
		t.Errorf("pole normal: expected ErrDegenerate, got %v", err)
	}
}

func TestSurfaceDerivativesMatchFiniteDifference(t *testing.T) {
	s := spherePatch()
	const h = 1e-5
	u, w := 0.35, 0.6
	skl, err := SurfaceDerivatives(s, u, w, 2)
	if err != nil {
		t.Fatal(err)
	}
	at := func(u, w float64) [][]geom.Vec {
		d, err := SurfaceDerivatives(s, u, w, 1)
		if err != nil {
			t.Fatal(err)
		}
		return d
	}
	du := at(u+h, w)[0][0].Sub(at(u-h, w)[0][0]).MulScalar(1 / (2 * h))
	dv := at(u, w+h)[0][0].Sub(at(u, w-h)[0][0]).MulScalar(1 / (2 * h))
	duu := at(u+h, w)[1][0].Sub(at(u-h, w)[1][0]).MulScalar(1 / (2 * h))
	duv := at(u, w+h)[1][0].Sub(at(u, w-h)[1][0]).MulScalar(1 / (2 * h))
	dvv := at(u, w+h)[0][1].Sub(at(u, w-h)[0][1]).MulScalar(1 / (2 * h))
	near(t, "Su", du, skl[1][0], 1e-6)
	near(t, "Sv", dv, skl[0][1], 1e-6)
	near(t, "Suu", duu, skl[2][0], 1e-4)
	near(t, "Suv", duv, skl[1][1], 1e-4)
	near(t, "Svv", dvv, skl[0][2], 1e-4)
}

func TestEvaluatorUsesSharedCache(t *testing.T) {
	cache := binomial.NewCache()
	e := NewEvaluator(cache)
	if _, err := e.CurveDerivatives(cubic(), 0.5, 3); err != nil {
		t.Fatal(err)
	}
	if cache.Rows() < 4 {
		t.Errorf("cache has %d rows after an order-3 query, want at least 4", cache.Rows())
	}
}

func TestValidateCurve(t *testing.T) {
	good := cubic()
	if d := ValidateCurve(good); len(d) != 0 {
		t.Fatalf("valid curve reported %v", d)
	}
	tests := []struct {
		name   string
		mutate func(c *geom.NurbsCurve)
		code   diag.Code
	}{
		{"no control points", func(c *geom.NurbsCurve) { c.ControlPoints = nil }, diag.CodeDegenerate},
		{"knot count", func(c *geom.NurbsCurve) { c.Knots = c.Knots[1:] }, diag.CodeInvalid},
		{"decreasing knots", func(c *geom.NurbsCurve) { c.Knots = knot.Vector{0, 0, 0, 0, 2, 1, 2, 3, 3, 3, 3} }, diag.CodeInvalid},
		{"weight count", func(c *geom.NurbsCurve) { c.Weights = []float64{1, 1} }, diag.CodeInvalid},
		{"zero weight", func(c *geom.NurbsCurve) { c.Weights = []float64{1, 1, 0, 1, 1, 1, 1} }, diag.CodeInvalid},
		{"degree zero", func(c *geom.NurbsCurve) { c.Degree = 0 }, diag.CodeInvalid},
		{"empty domain", func(c *geom.NurbsCurve) { c.Knots = knot.Vector{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1} }, diag.CodeDegenerate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cubic()
			tt.mutate(&c)
			d := ValidateCurve(c)
			if len(d) == 0 {
				t.Fatal("expected diagnostics")
			}
			if d[0].Code != tt.code {
				t.Errorf("code = %s, want %s (%v)", d[0].Code, tt.code, d[0])
			}
			want := map[diag.Code]error{diag.CodeDegenerate: diag.ErrDegenerate, diag.CodeInvalid: diag.ErrInvalid}[tt.code]
			if _, err := CurvePoint(c, 0.5); !errors.Is(err, want) {
				t.Errorf("evaluating the curve: expected %v, got %v", want, err)
			}
		})
	}
}

func TestValidateSurface(t *testing.T) {
	if d := ValidateSurface(spherePatch()); len(d) != 0 {
		t.Fatalf("valid surface reported %v", d)
	}
	s := spherePatch()
	s.ControlPoints = s.ControlPoints[:8]
	if d := ValidateSurface(s); len(d) == 0 || d[0].Code != diag.CodeInvalid {
		t.Errorf("short grid: got %v", d)
	}
	s = spherePatch()
	s.DegreeV = 3
	if d := ValidateSurface(s); len(d) == 0 {
		t.Error("degree/knot mismatch not reported")
	}
}

func TestCurvePointsRecordsFailures(t *testing.T) {
	rec := diag.NewRecorder()
	pts := Default().CurvePoints(quarterCircle(), []float64{0, 0.5, 1}, rec)
	if rec.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", rec.Err())
	}
	near(t, "end", v(0, 1, 0), pts[2], 1e-12)

	bad := quarterCircle()
	bad.ControlPoints = nil
	pts = Default().CurvePoints(bad, []float64{0, 0.5}, rec)
	if rec.Len() != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", rec.Len())
	}
	if !geom.IsNaN(pts[0]) || !geom.IsNaN(pts[1]) {
		t.Error("failed samples should be NaN")
	}
	if got := rec.Diagnostics()[1].Index; got != 1 {
		t.Errorf("second diagnostic index = %d, want 1", got)
	}
}

func TestSampleByParameterSteps(t *testing.T) {
	tests := []struct {
		name   string
		knots  knot.Vector
		degree int
		steps  int
		want   []float64
	}{
		{"even spans", knot.Vector{0, 0, 0, 0, 1, 2, 3, 3, 3, 3}, 3, 7, []float64{0, 0.5, 1, 1.5, 2, 2.5, 3}},
		{"uneven spans", knot.Vector{0, 0, 0, 1, 3, 3, 3}, 2, 5, []float64{0, 1, 1 + 2.0/3, 1 + 4.0/3, 3}},
		{"more spans than steps", knot.Vector{0, 0, 0, 0, 1, 2, 3, 3, 3, 3}, 3, 2, []float64{0, 1, 2, 3}},
		{"single span", knot.Vector{0, 0, 0, 1, 1, 1}, 2, 5, []float64{0, 0.25, 0.5, 0.75, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := len(tt.knots) - tt.degree - 1
			c := geom.NurbsCurve{Knots: tt.knots, Degree: tt.degree}
			for i := 0; i < n; i++ {
				c.ControlPoints = append(c.ControlPoints, v(float64(i), float64(i*i), 0))
			}
			pts, params, err := SampleByParameterSteps(c, tt.steps)
			if err != nil {
				t.Fatal(err)
			}
			diff(t, tt.want, params, cmpopts.EquateApprox(0, 1e-12))
			if len(pts) != len(params) {
				t.Fatalf("%d points for %d parameters", len(pts), len(params))
			}
			for i, p := range params {
				want, _ := CurvePoint(c, p)
				near(t, "sample", want, pts[i], 1e-12)
			}
		})
	}
}

func TestSamplePeriodicEnds(t *testing.T) {
	c := geom.NurbsCurve{
		ControlPoints: []geom.Vec{v(0, 0, 0), v(1, 1, 0), v(2, 0, 0), v(3, 1, 0), v(4, 0, 0)},
		Knots:         knot.Vector{0, 1, 2, 3, 4, 5, 6, 7},
		Degree:        2,
	}
	if !c.IsPeriodic() {
		t.Fatal("uniform unclamped knots should read as periodic")
	}
	pts, params, err := SampleByParameterSteps(c, 4)
	if err != nil {
		t.Fatal(err)
	}
	diff(t, []float64{2, 3, 4, 5}, params)
	// Unclamped ends sit at the midpoints of the first and last legs.
	near(t, "start", v(0.5, 0.5, 0), pts[0], 1e-12)
	near(t, "end", v(3.5, 0.5, 0), pts[3], 1e-12)
}

func TestSampleRejectsTooFewSteps(t *testing.T) {
	if _, _, err := SampleByParameterSteps(cubic(), 1); !errors.Is(err, diag.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestFromArc(t *testing.T) {
	tests := []struct {
		name   string
		sweep  float64
		pieces int
	}{
		{"quarter", math.Pi / 2, 1},
		{"two thirds", 4 * math.Pi / 3, 3},
		{"full", 2 * math.Pi, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := geom.NewArc(v(1, 2, 3), v(0, 1, 1), 2.5, 0.3, 0.3+tt.sweep)
			c, err := FromArc(a)
			if err != nil {
				t.Fatal(err)
			}
			if len(c.ControlPoints) != 2*tt.pieces+1 {
				t.Fatalf("%d control points, want %d", len(c.ControlPoints), 2*tt.pieces+1)
			}
			if d := ValidateCurve(c); len(d) != 0 {
				t.Fatalf("invalid curve: %v", d)
			}
			for _, s := range []float64{0, 0.1, 0.45, 0.77, 1} {
				p, err := CurvePoint(c, s)
				if err != nil {
					t.Fatal(err)
				}
				if r := geom.Distance(a.Centre, p); math.Abs(r-2.5) > 1e-9 {
					t.Errorf("radius at %g = %g", s, r)
				}
				if off := a.Plane().SignedDistance(p); math.Abs(off) > 1e-9 {
					t.Errorf("point at %g is %g off the plane", s, off)
				}
			}
			end, _ := CurvePoint(c, 1)
			near(t, "end", a.EndPoint(), end, 1e-9)
		})
	}
	if _, err := FromArc(geom.NewArc(v(0, 0, 0), v(0, 0, 1), 0, 0, 1)); !errors.Is(err, diag.ErrDegenerate) {
		t.Errorf("zero radius: expected ErrDegenerate, got %v", err)
	}
}

func TestFromPolyline(t *testing.T) {
	c, err := FromPolyline(geom.Polyline{Points: []geom.Vec{v(0, 0, 0), v(2, 0, 0), v(2, 2, 0)}})
	if err != nil {
		t.Fatal(err)
	}
	p, _ := CurvePoint(c, 0.75)
	near(t, "point", v(2, 1, 0), p, 1e-12)
	if _, err := FromPolyline(geom.Polyline{}); err == nil {
		t.Error("empty polyline should fail")
	}
	l, _ := CurvePoint(FromLine(geom.Line{Start: v(0, 0, 0), End: v(0, 0, 4)}), 0.25)
	near(t, "line", v(0, 0, 1), l, 1e-12)
}
