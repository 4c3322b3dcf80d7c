package intersect

import (
	"github.com/chazu/kerf/pkg/diag"
	"github.com/chazu/kerf/pkg/geom"
)

// Curves intersects two curves of any kind. Composites are expanded into
// their parts with geom.SubParts, every pair of parts is intersected, and
// the results are concatenated in part order without deduplication. The
// extent applies to line parts. NURBS participants fail with
// diag.ErrUnsupported.
func Curves(a, b geom.Curve, extent geom.Extent, tol geom.Tolerance) (Result, error) {
	if err := tol.Validate(); err != nil {
		return none(), err
	}
	pa, err := primitiveParts(a)
	if err != nil {
		return none(), err
	}
	pb, err := primitiveParts(b)
	if err != nil {
		return none(), err
	}
	var out Result
	for _, x := range pa {
		for _, y := range pb {
			r, err := Primitives(x, y, extent, tol)
			if err != nil {
				return none(), err
			}
			out = merge(out, r)
		}
	}
	return out, nil
}

// Primitives intersects two primitive curves. The switch is exhaustive
// over geom.Kind: composites must be expanded by the caller, and NURBS
// curves are unsupported.
func Primitives(a, b geom.Curve, extent geom.Extent, tol geom.Tolerance) (Result, error) {
	if a.Kind() == geom.KindNurbs || b.Kind() == geom.KindNurbs {
		return none(), diag.Unsupported("intersect", "%v-%v intersection is not implemented", a.Kind(), b.Kind())
	}
	switch a.Kind() {
	case geom.KindLine:
		l := a.(geom.Line)
		switch b.Kind() {
		case geom.KindLine:
			return LineLine(l, b.(geom.Line), extent, tol)
		case geom.KindCircle:
			return LineCircle(l, b.(geom.Circle), extent, tol)
		case geom.KindArc:
			return LineArc(l, b.(geom.Arc), extent, tol)
		}
	case geom.KindCircle:
		c := a.(geom.Circle)
		switch b.Kind() {
		case geom.KindLine:
			return LineCircle(b.(geom.Line), c, extent, tol)
		case geom.KindCircle:
			return CircleCircle(c, b.(geom.Circle), tol)
		case geom.KindArc:
			return CircleArc(c, b.(geom.Arc), tol)
		}
	case geom.KindArc:
		arc := a.(geom.Arc)
		switch b.Kind() {
		case geom.KindLine:
			return LineArc(b.(geom.Line), arc, extent, tol)
		case geom.KindCircle:
			return CircleArc(b.(geom.Circle), arc, tol)
		case geom.KindArc:
			return ArcArc(arc, b.(geom.Arc), tol)
		}
	}
	if !b.Kind().IsPrimitive() {
		geom.UnhandledKind("intersect.Primitives", b.Kind())
	}
	geom.UnhandledKind("intersect.Primitives", a.Kind())
	return none(), nil
}

func primitiveParts(c geom.Curve) ([]geom.Curve, error) {
	parts := geom.SubParts(c)
	for _, p := range parts {
		if p.Kind() == geom.KindNurbs {
			return nil, diag.Unsupported("intersect", "nurbs curves are not intersected")
		}
	}
	return parts, nil
}

// PairResult is the intersection of curves I and J of a batch.
type PairResult struct {
	I, J   int
	Result Result
}

// Pairwise intersects every unordered pair of curves. A failing pair is
// recorded against its pair index (in the order pairs are returned) and
// yields an empty result; the remaining pairs are still computed.
func Pairwise(curves []geom.Curve, extent geom.Extent, tol geom.Tolerance, rec *diag.Recorder) []PairResult {
	var out []PairResult
	for i := 0; i < len(curves); i++ {
		for j := i + 1; j < len(curves); j++ {
			r, err := Curves(curves[i], curves[j], extent, tol)
			if err != nil {
				rec.Record("intersect", len(out), err)
			}
			out = append(out, PairResult{I: i, J: j, Result: r})
		}
	}
	return out
}
