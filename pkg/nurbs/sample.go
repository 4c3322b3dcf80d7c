package nurbs

import (
	"fmt"
	"math"

	"github.com/chazu/kerf/pkg/diag"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/sirupsen/logrus"
)

// SampleByParameterSteps returns about steps points at roughly even
// parameter increments, together with their parameters. The knot domain is
// walked span by span and every distinct interior knot is sampled, so the
// number of segments per span is proportional to its parameter length with
// at least one segment each. When the curve has more non-empty spans than
// steps-1, one segment per span is produced and the result holds more than
// steps points.
//
// The first and last samples are evaluated against the first and last
// non-empty spans explicitly, which matters for unclamped (periodic) knot
// vectors.
func (e *Evaluator) SampleByParameterSteps(c geom.NurbsCurve, steps int) ([]geom.Vec, []float64, error) {
	if steps < 2 {
		return nil, nil, fmt.Errorf("nurbs: sample: %d steps, need at least 2: %w", steps, diag.ErrOutOfRange)
	}
	if err := firstError(ValidateCurve(c)); err != nil {
		return nil, nil, fmt.Errorf("nurbs: sample: %w", err)
	}

	breaks := c.Knots.Breaks(c.Degree)
	counts := spanSegments(breaks, steps-1)

	params := make([]float64, 0, steps)
	for i, n := range counts {
		lo, hi := breaks[i], breaks[i+1]
		for j := 0; j < n; j++ {
			params = append(params, lo+(hi-lo)*float64(j)/float64(n))
		}
	}
	params = append(params, breaks[len(breaks)-1])

	log := diag.Logger()
	if log.IsLevelEnabled(logrus.DebugLevel) {
		log.WithFields(logrus.Fields{
			"spans":    len(counts),
			"segments": counts,
			"periodic": c.IsPeriodic(),
		}).Debug("sampling curve by parameter steps")
	}

	first, last := boundarySpans(c)
	points := make([]geom.Vec, len(params))
	for i, t := range params {
		var ders []geom.Vec
		var err error
		switch i {
		case 0:
			ders, err = e.curveDerivativesInSpan(c, first, t, 0)
		case len(params) - 1:
			ders, err = e.curveDerivativesInSpan(c, last, t, 0)
		default:
			ders, err = e.CurveDerivatives(c, t, 0)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("nurbs: sample %d at t=%g: %w", i, t, err)
		}
		points[i] = ders[0]
	}
	return points, params, nil
}

// SampleByParameterSteps samples c with the default evaluator.
func SampleByParameterSteps(c geom.NurbsCurve, steps int) ([]geom.Vec, []float64, error) {
	return defaultEvaluator.SampleByParameterSteps(c, steps)
}

// spanSegments distributes segments over the spans bounded by breaks,
// proportionally to span length and with at least one segment per span.
func spanSegments(breaks []float64, segments int) []int {
	spans := len(breaks) - 1
	total := breaks[spans] - breaks[0]
	counts := make([]int, spans)
	sum := 0
	for i := range counts {
		share := float64(segments) * (breaks[i+1] - breaks[i]) / total
		counts[i] = int(math.Max(1, math.Round(share)))
		sum += counts[i]
	}
	// Rounding can miss the target either way; trim the densest spans or
	// feed the sparsest until the total matches, never dropping below one.
	for sum > segments {
		best := -1
		for i, n := range counts {
			if n > 1 && (best < 0 || perSegment(breaks, i, n) < perSegment(breaks, best, counts[best])) {
				best = i
			}
		}
		if best < 0 {
			break
		}
		counts[best]--
		sum--
	}
	for sum < segments {
		best := 0
		for i, n := range counts {
			if perSegment(breaks, i, n) > perSegment(breaks, best, counts[best]) {
				best = i
			}
		}
		counts[best]++
		sum++
	}
	return counts
}

func perSegment(breaks []float64, i, n int) float64 {
	return (breaks[i+1] - breaks[i]) / float64(n)
}

// boundarySpans returns the first and last non-empty knot spans of the
// domain.
func boundarySpans(c geom.NurbsCurve) (first, last int) {
	k, p := c.Knots, c.Degree
	n := len(k) - p - 2
	first = p
	for first < n && k[first] == k[first+1] {
		first++
	}
	last = n
	for last > p && k[last] == k[last+1] {
		last--
	}
	return first, last
}
