package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/kerf/pkg/config"
	"github.com/chazu/kerf/pkg/diag"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/kernel/sdfx"
	"github.com/chazu/kerf/pkg/knot"
	"github.com/chazu/kerf/pkg/nurbs"
	"github.com/chazu/kerf/pkg/tessellate"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms kerf Lisp source code before passing it to
// zygomys. It performs three transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: point-at -> point_at
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
//  3. Line comments: ; and ;; become //.
//
// All transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Only when the hyphen sits between identifier characters (not a
		// minus operator or a negative literal).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing geometry through the zygomys environment
// ---------------------------------------------------------------------------

type sexpVec struct {
	v geom.Vec
}

func (s *sexpVec) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec %g %g %g)", s.v.X, s.v.Y, s.v.Z)
}
func (s *sexpVec) Type() *zygo.RegisteredType { return nil }

type sexpCurve struct {
	c geom.Curve
}

func (s *sexpCurve) SexpString(ps *zygo.PrintState) string {
	switch c := s.c.(type) {
	case geom.Polyline:
		return fmt.Sprintf("(polyline %d points)", len(c.Points))
	case geom.PolyCurve:
		return fmt.Sprintf("(polycurve %d parts)", len(c.Curves))
	case geom.NurbsCurve:
		return fmt.Sprintf("(nurbs-curve degree %d, %d points)", c.Degree, len(c.ControlPoints))
	}
	return fmt.Sprintf("(%s)", s.c.Kind())
}
func (s *sexpCurve) Type() *zygo.RegisteredType { return nil }

type sexpSurface struct {
	s geom.NurbsSurface
}

func (s *sexpSurface) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(nurbs-surface %dx%d)", s.s.CountU(), s.s.CountV())
}
func (s *sexpSurface) Type() *zygo.RegisteredType { return nil }

type sexpPlane struct {
	pl geom.Plane
}

func (s *sexpPlane) SexpString(ps *zygo.PrintState) string {
	o, n := s.pl.Origin, s.pl.Normal
	return fmt.Sprintf("(plane (vec %g %g %g) (vec %g %g %g))", o.X, o.Y, o.Z, n.X, n.Y, n.Z)
}
func (s *sexpPlane) Type() *zygo.RegisteredType { return nil }

type sexpMesh struct {
	m *kernel.Mesh
}

func (s *sexpMesh) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(mesh %q %d triangles)", s.m.Name, s.m.TriangleCount())
}
func (s *sexpMesh) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: a flag.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// label returns the optional :label of a query.
func (a kwArgs) label() (string, error) {
	v, ok := a.kw["label"]
	if !ok {
		return "", nil
	}
	return toString(v)
}

// flag reads an optional boolean keyword. A bare trailing keyword counts as
// true.
func (a kwArgs) flag(name string) (bool, error) {
	v, ok := a.kw[name]
	if !ok {
		return false, nil
	}
	if v == zygo.SexpNull {
		return true, nil
	}
	return toBool(v)
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an integer from a SexpInt or an integral SexpFloat.
func toInt(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return int(v.Val), nil
	case *zygo.SexpFloat:
		if v.Val == math.Trunc(v.Val) {
			return int(v.Val), nil
		}
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toBool extracts a bool from a SexpBool.
func toBool(s zygo.Sexp) (bool, error) {
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toVec extracts a vector from a sexpVec or a list of two or three numbers.
func toVec(s zygo.Sexp) (geom.Vec, error) {
	if v, ok := s.(*sexpVec); ok {
		return v.v, nil
	}
	items, err := sexpListToSlice(s)
	if err != nil || len(items) < 2 || len(items) > 3 {
		return geom.Vec{}, fmt.Errorf("expected vec, got %T (%s)", s, s.SexpString(nil))
	}
	fs, err := toFloats(s)
	if err != nil {
		return geom.Vec{}, err
	}
	fs = append(fs, 0)
	return geom.V(fs[0], fs[1], fs[2]), nil
}

// toVecs extracts a list of vectors.
func toVecs(s zygo.Sexp) ([]geom.Vec, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]geom.Vec, len(items))
	for i, it := range items {
		if out[i], err = toVec(it); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}

// toFloats extracts a list of numbers.
func toFloats(s zygo.Sexp) ([]float64, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(items))
	for i, it := range items {
		if out[i], err = toFloat64(it); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}

// toCurve extracts a curve from a sexpCurve.
func toCurve(s zygo.Sexp) (geom.Curve, error) {
	if c, ok := s.(*sexpCurve); ok {
		return c.c, nil
	}
	return nil, fmt.Errorf("expected curve, got %T (%s)", s, s.SexpString(nil))
}

// toSurface extracts a surface from a sexpSurface.
func toSurface(s zygo.Sexp) (geom.NurbsSurface, error) {
	if srf, ok := s.(*sexpSurface); ok {
		return srf.s, nil
	}
	return geom.NurbsSurface{}, fmt.Errorf("expected surface, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// asNurbs returns the exact NURBS form of c. Composite curves have no
// single NURBS form.
func asNurbs(c geom.Curve) (geom.NurbsCurve, error) {
	switch c.Kind() {
	case geom.KindNurbs:
		return c.(geom.NurbsCurve), nil
	case geom.KindLine:
		return nurbs.FromLine(c.(geom.Line)), nil
	case geom.KindCircle:
		return nurbs.FromCircle(c.(geom.Circle))
	case geom.KindArc:
		return nurbs.FromArc(c.(geom.Arc))
	case geom.KindPolyline:
		return nurbs.FromPolyline(c.(geom.Polyline))
	case geom.KindPolyCurve:
		return geom.NurbsCurve{}, diag.Unsupported("nurbs", "composite curves have no single parameterisation")
	}
	geom.UnhandledKind("asNurbs", c.Kind())
	return geom.NurbsCurve{}, nil
}

func vecList(vs []geom.Vec) zygo.Sexp {
	items := make([]zygo.Sexp, len(vs))
	for i, v := range vs {
		items[i] = &sexpVec{v: v}
	}
	return zygo.MakeList(items)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs all kerf builtins into a zygomys environment.
// Constructors return geometry values; queries run against k and append a
// QueryResult to r. A query the kernel rejects (unsupported kinds,
// degenerate input) is reported and returns nil so the script carries on;
// malformed arguments abort the evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, k kernel.Kernel, cfg config.Config, r *Report) {

	fail := func(op, label string, err error) (zygo.Sexp, error) {
		k.Recorder().Record(op, len(r.Queries), err)
		r.fail(op, label, err)
		return zygo.SexpNull, nil
	}

	// -----------------------------------------------------------------------
	// (deg 90)
	// -----------------------------------------------------------------------
	env.AddFunction("deg", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("deg requires exactly 1 argument, got %d", len(args))
		}
		f, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("deg: %w", err)
		}
		return &zygo.SexpFloat{Val: f * math.Pi / 180}, nil
	})

	// -----------------------------------------------------------------------
	// (vec 1 2 3), (vec 1 2)
	// -----------------------------------------------------------------------
	env.AddFunction("vec", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 && len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec requires 2 or 3 arguments, got %d", len(args))
		}
		var xyz [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec: %c: %w", "xyz"[i], err)
			}
			xyz[i] = f
		}
		return &sexpVec{v: geom.V(xyz[0], xyz[1], xyz[2])}, nil
	})

	// -----------------------------------------------------------------------
	// (line (vec 0 0) (vec 1 0))
	// -----------------------------------------------------------------------
	env.AddFunction("line", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("line requires a start and an end, got %d arguments", len(args))
		}
		start, err := toVec(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line: start: %w", err)
		}
		end, err := toVec(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line: end: %w", err)
		}
		return &sexpCurve{c: geom.Line{Start: start, End: end}}, nil
	})

	// -----------------------------------------------------------------------
	// (plane (vec 0 0 0) (vec 0 0 1))
	// -----------------------------------------------------------------------
	env.AddFunction("plane", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("plane requires an origin and a normal, got %d arguments", len(args))
		}
		origin, err := toVec(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plane: origin: %w", err)
		}
		normal, err := toVec(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plane: normal: %w", err)
		}
		return &sexpPlane{pl: geom.Plane{Origin: origin, Normal: normal}}, nil
	})

	// circleArgs reads the :centre, :normal and :radius shared by circle
	// and arc. The centre defaults to the origin and the normal to +Z.
	circleArgs := func(op string, pa kwArgs) (centre, normal geom.Vec, radius float64, err error) {
		normal = geom.V(0, 0, 1)
		if v, ok := pa.kw["centre"]; ok {
			if centre, err = toVec(v); err != nil {
				return centre, normal, 0, fmt.Errorf("%s: centre: %w", op, err)
			}
		}
		if v, ok := pa.kw["normal"]; ok {
			if normal, err = toVec(v); err != nil {
				return centre, normal, 0, fmt.Errorf("%s: normal: %w", op, err)
			}
		}
		v, ok := pa.kw["radius"]
		if !ok {
			return centre, normal, 0, fmt.Errorf("%s requires :radius", op)
		}
		if radius, err = toFloat64(v); err != nil {
			return centre, normal, 0, fmt.Errorf("%s: radius: %w", op, err)
		}
		return centre, normal, radius, nil
	}

	// -----------------------------------------------------------------------
	// (circle :centre (vec 0 0) :normal (vec 0 0 1) :radius 2)
	// -----------------------------------------------------------------------
	env.AddFunction("circle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		centre, normal, radius, err := circleArgs("circle", parseArgs(args))
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpCurve{c: geom.Circle{Centre: centre, Normal: normal, Radius: radius}}, nil
	})

	// -----------------------------------------------------------------------
	// (arc :radius 1 :start 0 :end (deg 90))
	// (arc :through (list a b c))
	// -----------------------------------------------------------------------
	env.AddFunction("arc", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if v, ok := pa.kw["through"]; ok {
			pts, err := toVecs(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("arc: through: %w", err)
			}
			if len(pts) != 3 {
				return zygo.SexpNull, fmt.Errorf("arc: through needs 3 points, got %d", len(pts))
			}
			a, err := geom.NewArcThroughPoints(pts[0], pts[1], pts[2])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("arc: %w", err)
			}
			return &sexpCurve{c: a}, nil
		}

		centre, normal, radius, err := circleArgs("arc", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		var angles [2]float64
		for i, key := range []string{"start", "end"} {
			v, ok := pa.kw[key]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("arc requires :%s", key)
			}
			if angles[i], err = toFloat64(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("arc: %s: %w", key, err)
			}
		}
		return &sexpCurve{c: geom.NewArc(centre, normal, radius, angles[0], angles[1])}, nil
	})

	// -----------------------------------------------------------------------
	// (polyline (vec 0 0) (vec 1 0) (vec 1 1) :closed true)
	// -----------------------------------------------------------------------
	env.AddFunction("polyline", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		pts := make([]geom.Vec, 0, len(pa.positional)+1)
		for i, a := range pa.positional {
			p, err := toVec(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("polyline: point %d: %w", i, err)
			}
			pts = append(pts, p)
		}
		if len(pts) < 2 {
			return zygo.SexpNull, fmt.Errorf("polyline requires at least 2 points, got %d", len(pts))
		}
		closed, err := pa.flag("closed")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("polyline: closed: %w", err)
		}
		if closed && pts[0] != pts[len(pts)-1] {
			pts = append(pts, pts[0])
		}
		return &sexpCurve{c: geom.Polyline{Points: pts}}, nil
	})

	// -----------------------------------------------------------------------
	// (polycurve (arc ...) (line ...))
	// -----------------------------------------------------------------------
	env.AddFunction("polycurve", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) == 0 {
			return zygo.SexpNull, fmt.Errorf("polycurve requires at least 1 curve")
		}
		parts := make([]geom.Curve, len(args))
		for i, a := range args {
			c, err := toCurve(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("polycurve: part %d: %w", i, err)
			}
			parts[i] = c
		}
		return &sexpCurve{c: geom.PolyCurve{Curves: parts}}, nil
	})

	// -----------------------------------------------------------------------
	// (nurbs-curve :degree 2 :points (list ...) :knots (list ...) :weights (list ...))
	// -----------------------------------------------------------------------
	env.AddFunction("nurbs_curve", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var c geom.NurbsCurve
		v, ok := pa.kw["degree"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("nurbs-curve requires :degree")
		}
		var err error
		if c.Degree, err = toInt(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("nurbs-curve: degree: %w", err)
		}
		if v, ok := pa.kw["points"]; ok {
			if c.ControlPoints, err = toVecs(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("nurbs-curve: points: %w", err)
			}
		}
		if v, ok := pa.kw["weights"]; ok {
			if c.Weights, err = toFloats(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("nurbs-curve: weights: %w", err)
			}
		}
		if v, ok := pa.kw["knots"]; ok {
			ks, err := toFloats(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("nurbs-curve: knots: %w", err)
			}
			c.Knots = knot.Vector(ks)
		} else if len(c.ControlPoints) > c.Degree && c.Degree >= 1 {
			c.Knots = knot.Uniform(c.Degree, len(c.ControlPoints))
		}
		if diags := nurbs.ValidateCurve(c); len(diags) > 0 {
			return zygo.SexpNull, fmt.Errorf("nurbs-curve: %w", diags[0])
		}
		return &sexpCurve{c: c}, nil
	})

	// -----------------------------------------------------------------------
	// (nurbs-surface :degree-u 1 :degree-v 1 :points (list (list ...) ...))
	// -----------------------------------------------------------------------
	env.AddFunction("nurbs_surface", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var s geom.NurbsSurface
		var err error
		for key, dst := range map[string]*int{"degree-u": &s.DegreeU, "degree-v": &s.DegreeV} {
			v, ok := pa.kw[key]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("nurbs-surface requires :%s", key)
			}
			if *dst, err = toInt(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("nurbs-surface: %s: %w", key, err)
			}
		}

		v, ok := pa.kw["points"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("nurbs-surface requires :points")
		}
		rows, err := sexpListToSlice(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("nurbs-surface: points: %w", err)
		}
		countV := -1
		for i, row := range rows {
			pts, err := toVecs(row)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("nurbs-surface: points: row %d: %w", i, err)
			}
			if countV >= 0 && len(pts) != countV {
				return zygo.SexpNull, fmt.Errorf("nurbs-surface: points: row %d has %d points, want %d", i, len(pts), countV)
			}
			countV = len(pts)
			s.ControlPoints = append(s.ControlPoints, pts...)
		}

		if v, ok := pa.kw["weights"]; ok {
			if s.Weights, err = toFloats(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("nurbs-surface: weights: %w", err)
			}
		}
		knots := func(key string, degree, count int) (knot.Vector, error) {
			if v, ok := pa.kw[key]; ok {
				ks, err := toFloats(v)
				if err != nil {
					return nil, fmt.Errorf("nurbs-surface: %s: %w", key, err)
				}
				return knot.Vector(ks), nil
			}
			if count > degree && degree >= 1 {
				return knot.Uniform(degree, count), nil
			}
			return nil, nil
		}
		if s.KnotsU, err = knots("knots-u", s.DegreeU, len(rows)); err != nil {
			return zygo.SexpNull, err
		}
		if s.KnotsV, err = knots("knots-v", s.DegreeV, countV); err != nil {
			return zygo.SexpNull, err
		}
		if diags := nurbs.ValidateSurface(s); len(diags) > 0 {
			return zygo.SexpNull, fmt.Errorf("nurbs-surface: %w", diags[0])
		}
		return &sexpSurface{s: s}, nil
	})

	// -----------------------------------------------------------------------
	// (point-at curve 0.5), (point-at surface 0.5 0.5)
	// -----------------------------------------------------------------------
	env.AddFunction("point_at", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		const op = "point-at"
		pa := parseArgs(args)
		label, err := pa.label()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: label: %w", op, err)
		}
		if len(pa.positional) < 2 {
			return zygo.SexpNull, fmt.Errorf("%s requires a curve or surface and its parameters", op)
		}
		params, err := toFloats(zygo.MakeList(pa.positional[1:]))
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: parameter: %w", op, err)
		}

		var p geom.Vec
		switch g := pa.positional[0].(type) {
		case *sexpCurve:
			if len(params) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s: a curve takes 1 parameter, got %d", op, len(params))
			}
			c, err := asNurbs(g.c)
			if err != nil {
				return fail(op, label, err)
			}
			if p, err = k.CurvePoint(c, params[0]); err != nil {
				return fail(op, label, err)
			}
		case *sexpSurface:
			if len(params) != 2 {
				return zygo.SexpNull, fmt.Errorf("%s: a surface takes 2 parameters, got %d", op, len(params))
			}
			if p, err = k.SurfacePoint(g.s, params[0], params[1]); err != nil {
				return fail(op, label, err)
			}
		default:
			return zygo.SexpNull, fmt.Errorf("%s: expected curve or surface, got %T", op, g)
		}
		r.add(op, label, pointOf(p))
		return &sexpVec{v: p}, nil
	})

	// -----------------------------------------------------------------------
	// (derivative curve 0.5 2) -> (list C C' C'')
	// -----------------------------------------------------------------------
	env.AddFunction("derivative", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		const op = "derivative"
		pa := parseArgs(args)
		label, err := pa.label()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: label: %w", op, err)
		}
		if len(pa.positional) != 3 {
			return zygo.SexpNull, fmt.Errorf("%s requires a curve, a parameter and an order", op)
		}
		c, err := toCurve(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
		}
		t, err := toFloat64(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: parameter: %w", op, err)
		}
		order, err := toInt(pa.positional[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: order: %w", op, err)
		}
		nc, err := asNurbs(c)
		if err != nil {
			return fail(op, label, err)
		}
		ders, err := k.CurveDerivatives(nc, t, order)
		if err != nil {
			return fail(op, label, err)
		}
		r.add(op, label, pointsOf(ders))
		return vecList(ders), nil
	})

	// -----------------------------------------------------------------------
	// (curvature curve 0.5)
	// -----------------------------------------------------------------------
	env.AddFunction("curvature", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		const op = "curvature"
		pa := parseArgs(args)
		label, err := pa.label()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: label: %w", op, err)
		}
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("%s requires a curve and a parameter", op)
		}
		c, err := toCurve(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
		}
		t, err := toFloat64(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: parameter: %w", op, err)
		}
		nc, err := asNurbs(c)
		if err != nil {
			return fail(op, label, err)
		}
		kv, err := k.CurveCurvature(nc, t)
		if err != nil {
			return fail(op, label, err)
		}
		r.add(op, label, CurvatureValue{Vector: pointOf(kv), Magnitude: kv.Length()})
		return &sexpVec{v: kv}, nil
	})

	// -----------------------------------------------------------------------
	// (principal-curvature surface 0.5 0.5) -> (list min max)
	// -----------------------------------------------------------------------
	env.AddFunction("principal_curvature", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		const op = "principal-curvature"
		pa := parseArgs(args)
		label, err := pa.label()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: label: %w", op, err)
		}
		if len(pa.positional) != 3 {
			return zygo.SexpNull, fmt.Errorf("%s requires a surface and two parameters", op)
		}
		s, err := toSurface(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
		}
		uv, err := toFloats(zygo.MakeList(pa.positional[1:]))
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: parameter: %w", op, err)
		}
		pc, err := k.PrincipalCurvature(s, uv[0], uv[1])
		if err != nil {
			return fail(op, label, err)
		}
		r.add(op, label, principalOf(pc))
		return zygo.MakeList([]zygo.Sexp{&zygo.SexpFloat{Val: pc.Min}, &zygo.SexpFloat{Val: pc.Max}}), nil
	})

	// -----------------------------------------------------------------------
	// (intersect a b :unbounded true), (intersect curve (plane ...))
	// -----------------------------------------------------------------------
	env.AddFunction("intersect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		const op = "intersect"
		pa := parseArgs(args)
		label, err := pa.label()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: label: %w", op, err)
		}
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("%s requires two curves, or a curve and a plane", op)
		}
		a, err := toCurve(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: first: %w", op, err)
		}

		if pl, ok := pa.positional[1].(*sexpPlane); ok {
			res, err := k.IntersectPlane(a, pl.pl)
			if err != nil {
				return fail(op, label, err)
			}
			r.add(op, label, intersectionOf(res))
			return vecList(res.Points), nil
		}

		b, err := toCurve(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: second: %w", op, err)
		}
		unbounded, err := pa.flag("unbounded")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: unbounded: %w", op, err)
		}
		extent := geom.Bounded
		if unbounded {
			extent = geom.Unbounded
		}
		res, err := k.Intersect(a, b, extent)
		if err != nil {
			return fail(op, label, err)
		}
		r.add(op, label, intersectionOf(res))
		return vecList(res.Points), nil
	})

	// -----------------------------------------------------------------------
	// (contains region (list p q) :on-edge true :each true)
	// -----------------------------------------------------------------------
	env.AddFunction("contains", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		const op = "contains"
		pa := parseArgs(args)
		label, err := pa.label()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: label: %w", op, err)
		}
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("%s requires a region and a point or list of points", op)
		}
		region, err := toCurve(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: region: %w", op, err)
		}
		var pts []geom.Vec
		if p, ok := pa.positional[1].(*sexpVec); ok {
			pts = []geom.Vec{p.v}
		} else if pts, err = toVecs(pa.positional[1]); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: points: %w", op, err)
		}
		onEdge, err := pa.flag("on-edge")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: on-edge: %w", op, err)
		}
		each, err := pa.flag("each")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: each: %w", op, err)
		}

		if each {
			in, err := k.ContainsEach(region, pts, onEdge)
			if err != nil {
				return fail(op, label, err)
			}
			r.add(op, label, in)
			items := make([]zygo.Sexp, len(in))
			for i, b := range in {
				items[i] = &zygo.SexpBool{Val: b}
			}
			return zygo.MakeList(items), nil
		}
		in, err := k.Contains(region, pts, onEdge)
		if err != nil {
			return fail(op, label, err)
		}
		r.add(op, label, in)
		return &zygo.SexpBool{Val: in}, nil
	})

	// -----------------------------------------------------------------------
	// (self-intersecting curve)
	// -----------------------------------------------------------------------
	env.AddFunction("self_intersecting", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		const op = "self-intersecting"
		pa := parseArgs(args)
		label, err := pa.label()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: label: %w", op, err)
		}
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("%s requires exactly 1 curve", op)
		}
		c, err := toCurve(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
		}
		self, err := k.IsSelfIntersecting(c)
		if err != nil {
			return fail(op, label, err)
		}
		r.add(op, label, self)
		return &zygo.SexpBool{Val: self}, nil
	})

	// -----------------------------------------------------------------------
	// (sample curve :steps 16)
	// -----------------------------------------------------------------------
	env.AddFunction("sample", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		const op = "sample"
		pa := parseArgs(args)
		label, err := pa.label()
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: label: %w", op, err)
		}
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("%s requires exactly 1 curve", op)
		}
		c, err := toCurve(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
		}
		steps := cfg.Sampling.Steps
		if v, ok := pa.kw["steps"]; ok {
			if steps, err = toInt(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: steps: %w", op, err)
			}
		}
		pts, err := tessellate.Curve(k.Evaluator(), c, steps)
		if err != nil {
			return fail(op, label, err)
		}
		r.add(op, label, pointsOf(pts))
		return vecList(pts), nil
	})

	// -----------------------------------------------------------------------
	// (mesh "roof" surface :u 8 :v 8)
	// -----------------------------------------------------------------------
	env.AddFunction("mesh", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		const op = "mesh"
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("%s requires a name and a surface", op)
		}
		meshName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: name: %w", op, err)
		}
		s, err := toSurface(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
		}
		uSteps, vSteps := cfg.Mesh.USteps, cfg.Mesh.VSteps
		for key, dst := range map[string]*int{"u": &uSteps, "v": &vSteps} {
			if v, ok := pa.kw[key]; ok {
				if *dst, err = toInt(v); err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: %s: %w", op, key, err)
				}
			}
		}
		meshes, err := tessellate.Tessellate([]tessellate.Part{{Name: meshName, Surface: s}}, k, uSteps, vSteps)
		if err != nil {
			return fail(op, meshName, err)
		}
		m := meshes[0]
		r.Meshes = append(r.Meshes, m)
		r.add(op, meshName, MeshValue{Name: m.Name, Vertices: m.VertexCount(), Triangles: m.TriangleCount()})
		return &sexpMesh{m: m}, nil
	})

	// -----------------------------------------------------------------------
	// (tube "rail" curve :radius 0.5 :cells 48)
	// NURBS curves are sampled into a polyline first.
	// -----------------------------------------------------------------------
	env.AddFunction("tube", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		const op = "tube"
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("%s requires a name and a curve", op)
		}
		meshName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: name: %w", op, err)
		}
		c, err := toCurve(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
		}
		v, ok := pa.kw["radius"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("%s requires :radius", op)
		}
		radius, err := toFloat64(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: radius: %w", op, err)
		}
		cells := sdfx.DefaultCells
		if v, ok := pa.kw["cells"]; ok {
			if cells, err = toInt(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: cells: %w", op, err)
			}
		}
		if c.Kind() == geom.KindNurbs {
			pts, err := tessellate.Curve(k.Evaluator(), c, cfg.Sampling.Steps)
			if err != nil {
				return fail(op, meshName, err)
			}
			c = geom.Polyline{Points: pts}
		}
		m, err := sdfx.Tube(c, radius, cells)
		if err != nil {
			return fail(op, meshName, err)
		}
		m.Name = meshName
		r.Meshes = append(r.Meshes, m)
		r.add(op, meshName, MeshValue{Name: m.Name, Vertices: m.VertexCount(), Triangles: m.TriangleCount()})
		return &sexpMesh{m: m}, nil
	})
}
