// Package containment answers point-in-region and self-intersection
// queries over closed planar curves built from lines, circles and arcs.
package containment

import (
	"math"

	"github.com/chazu/kerf/pkg/diag"
	"github.com/chazu/kerf/pkg/geom"
	"gonum.org/v1/gonum/mat"
)

// FitPlane returns the least-squares plane through points sampled from c:
// line end points, arcs at their ends and quarter sweeps, circles at four
// angles. The origin is the centroid of the samples; the normal is the
// eigenvector of the sample covariance with the smallest eigenvalue,
// oriented so its largest component is positive.
//
// Curves whose samples are collinear, or that leave the fitted plane by
// more than the distance tolerance, are degenerate.
func FitPlane(c geom.Curve, tol geom.Tolerance) (geom.Plane, error) {
	pts, err := planeSamples(c)
	if err != nil {
		return geom.Plane{}, err
	}
	if len(geom.Unique(pts, tol.Distance)) < 3 {
		return geom.Plane{}, diag.Degenerate("fit-plane", "fewer than three distinct points")
	}

	var centroid geom.Vec
	for _, p := range pts {
		centroid = centroid.Add(p)
	}
	centroid = centroid.MulScalar(1 / float64(len(pts)))

	cov := mat.NewSymDense(3, nil)
	for _, p := range pts {
		d := p.Sub(centroid)
		x := [3]float64{d.X, d.Y, d.Z}
		for i := 0; i < 3; i++ {
			for j := i; j < 3; j++ {
				cov.SetSym(i, j, cov.At(i, j)+x[i]*x[j])
			}
		}
	}
	cov.ScaleSym(1/float64(len(pts)), cov)

	var eig mat.EigenSym
	if !eig.Factorize(cov, true) {
		return geom.Plane{}, diag.Degenerate("fit-plane", "eigen decomposition failed")
	}
	vals := eig.Values(nil)
	if math.Sqrt(math.Max(vals[1], 0)) <= tol.Distance {
		return geom.Plane{}, diag.Degenerate("fit-plane", "points are collinear")
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	n := orient(geom.V(vecs.At(0, 0), vecs.At(1, 0), vecs.At(2, 0)).Normalize())

	pl := geom.Plane{Origin: centroid, Normal: n}
	for _, p := range pts {
		if d := math.Abs(pl.SignedDistance(p)); d > tol.Distance {
			return geom.Plane{}, diag.Degenerate("fit-plane", "curve is not planar: sample %v is %g off the fitted plane", p, d)
		}
	}
	return pl, nil
}

// orient flips n so that its largest-magnitude component is positive.
func orient(n geom.Vec) geom.Vec {
	c := n.X
	if math.Abs(n.Y) > math.Abs(c) {
		c = n.Y
	}
	if math.Abs(n.Z) > math.Abs(c) {
		c = n.Z
	}
	if c < 0 {
		return n.MulScalar(-1)
	}
	return n
}

func planeSamples(c geom.Curve) ([]geom.Vec, error) {
	var pts []geom.Vec
	for _, part := range geom.SubParts(c) {
		switch part.Kind() {
		case geom.KindLine:
			l := part.(geom.Line)
			pts = append(pts, l.Start, l.End)
		case geom.KindCircle:
			circ := part.(geom.Circle)
			for k := 0; k < 4; k++ {
				pts = append(pts, circ.PointAtAngle(float64(k)*math.Pi/2))
			}
		case geom.KindArc:
			a := part.(geom.Arc)
			for k := 0; k <= 4; k++ {
				pts = append(pts, a.PointAtAngle(a.StartAngle+float64(k)*a.Sweep()/4))
			}
		case geom.KindNurbs:
			return nil, diag.Unsupported("fit-plane", "nurbs regions are not supported")
		default:
			geom.UnhandledKind("planeSamples", part.Kind())
		}
	}
	return pts, nil
}
