package engine

import (
	"errors"

	"github.com/chazu/kerf/pkg/curvature"
	"github.com/chazu/kerf/pkg/diag"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/intersect"
	"github.com/chazu/kerf/pkg/kernel"
)

// Report is everything a script asked the kernel, in call order.
type Report struct {
	Queries     []QueryResult     `json:"queries"`
	Meshes      []*kernel.Mesh    `json:"meshes"`
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
}

func newReport() *Report {
	return &Report{
		Queries:     []QueryResult{},
		Meshes:      []*kernel.Mesh{},
		Diagnostics: []diag.Diagnostic{},
	}
}

// QueryResult is one kernel query. Value is nil when Error is set.
type QueryResult struct {
	Op    string           `json:"op"`
	Label string           `json:"label,omitempty"`
	Value any              `json:"value"`
	Error *diag.Diagnostic `json:"error,omitempty"`
}

// Lookup returns the first query with the given label.
func (r *Report) Lookup(label string) (QueryResult, bool) {
	for _, q := range r.Queries {
		if q.Label == label {
			return q, true
		}
	}
	return QueryResult{}, false
}

// Failed returns the queries that ended in an error.
func (r *Report) Failed() []QueryResult {
	var out []QueryResult
	for _, q := range r.Queries {
		if q.Error != nil {
			out = append(out, q)
		}
	}
	return out
}

func (r *Report) add(op, label string, value any) {
	r.Queries = append(r.Queries, QueryResult{Op: op, Label: label, Value: value})
}

func (r *Report) fail(op, label string, err error) {
	var d diag.Diagnostic
	if !errors.As(err, &d) {
		d = diag.Diagnostic{Code: diag.CodeOf(err), Message: err.Error()}
	}
	if d.Op == "" {
		d.Op = op
	}
	d.Index = len(r.Queries)
	r.Queries = append(r.Queries, QueryResult{Op: op, Label: label, Error: &d})
}

// Point is a JSON-friendly position or direction.
type Point [3]float64

func pointOf(v geom.Vec) Point { return Point{v.X, v.Y, v.Z} }

func pointsOf(vs []geom.Vec) []Point {
	out := make([]Point, len(vs))
	for i, v := range vs {
		out[i] = pointOf(v)
	}
	return out
}

// IntersectionValue is the value of an intersect query.
type IntersectionValue struct {
	Kind   string  `json:"kind"`
	Points []Point `json:"points"`
}

func intersectionOf(r intersect.Result) IntersectionValue {
	return IntersectionValue{Kind: r.Kind.String(), Points: pointsOf(r.Points)}
}

// CurvatureValue is the value of a curvature query.
type CurvatureValue struct {
	Vector    Point   `json:"vector"`
	Magnitude float64 `json:"magnitude"`
}

// PrincipalValue is the value of a principal-curvature query.
type PrincipalValue struct {
	Point        Point   `json:"point"`
	Normal       Point   `json:"normal"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	MinDirection Point   `json:"min_direction"`
	MaxDirection Point   `json:"max_direction"`
	Gaussian     float64 `json:"gaussian"`
	Mean         float64 `json:"mean"`
}

func principalOf(pc curvature.PrincipalCurvature) PrincipalValue {
	return PrincipalValue{
		Point:        pointOf(pc.Point),
		Normal:       pointOf(pc.Normal),
		Min:          pc.Min,
		Max:          pc.Max,
		MinDirection: pointOf(pc.MinDirection),
		MaxDirection: pointOf(pc.MaxDirection),
		Gaussian:     pc.Gaussian(),
		Mean:         pc.Mean(),
	}
}

// MeshValue summarises a tessellated surface; the mesh itself is in
// Report.Meshes.
type MeshValue struct {
	Name      string `json:"name"`
	Vertices  int    `json:"vertices"`
	Triangles int    `json:"triangles"`
}
