// Package knot implements knot-vector queries and B-spline basis functions.
// It has no dependencies beyond the standard library and is shared read-only
// by the curve and surface evaluators.
package knot

import (
	"errors"
	"fmt"
	"math"
)

// ErrBelowDomain is returned by Span when the parameter lies below the first
// valid knot for the requested degree. This indicates an inconsistency
// between the caller and the knot vector rather than an ordinary
// out-of-range query, which evaluators resolve by clamping.
var ErrBelowDomain = errors.New("knot: parameter below knot domain")

// Vector is a non-decreasing sequence of knot values.
type Vector []float64

// Multiplicity pairs a distinct knot value with its repeat count.
type Multiplicity struct {
	Value float64
	Count int
}

// Domain returns the valid parameter interval [k[degree], k[n+1]] for a
// spline of the given degree, where n+1 is the number of basis functions.
func (k Vector) Domain(degree int) (lo, hi float64) {
	return k[degree], k[len(k)-degree-1]
}

// Clamp restricts t to the valid parameter domain for degree.
func (k Vector) Clamp(degree int, t float64) float64 {
	lo, hi := k.Domain(degree)
	if t < lo {
		return lo
	}
	if t > hi {
		return hi
	}
	return t
}

// Span returns the index i such that k[i] <= t < k[i+1]. When t reaches the
// upper end of the domain the last non-empty span is returned. A parameter
// below k[degree] returns -1 and ErrBelowDomain.
func (k Vector) Span(degree int, t float64) (int, error) {
	n := len(k) - degree - 2
	if n < degree {
		return -1, fmt.Errorf("knot: %d knots cannot carry degree %d", len(k), degree)
	}
	if t < k[degree] {
		return -1, fmt.Errorf("%w: t=%g < %g", ErrBelowDomain, t, k[degree])
	}
	if t >= k[n+1] {
		// Walk back over repeated end knots so the span is non-empty.
		i := n
		for i > degree && k[i] == k[n+1] {
			i--
		}
		return i, nil
	}

	low, high := degree, n+1
	mid := (low + high) / 2
	for t < k[mid] || t >= k[mid+1] {
		if t < k[mid] {
			high = mid
		} else {
			low = mid
		}
		mid = (low + high) / 2
	}
	return mid, nil
}

// Multiplicities groups equal knot values, in order.
func (k Vector) Multiplicities() []Multiplicity {
	if len(k) == 0 {
		return nil
	}
	mults := []Multiplicity{{Value: k[0]}}
	cur := 0
	for _, v := range k {
		if v != mults[cur].Value {
			mults = append(mults, Multiplicity{Value: v})
			cur++
		}
		mults[cur].Count++
	}
	return mults
}

// StartMultiplicity returns how many times the first knot value repeats.
func (k Vector) StartMultiplicity() int {
	if len(k) == 0 {
		return 0
	}
	return k.Multiplicities()[0].Count
}

// EndMultiplicity returns how many times the last knot value repeats.
func (k Vector) EndMultiplicity() int {
	m := k.Multiplicities()
	if len(m) == 0 {
		return 0
	}
	return m[len(m)-1].Count
}

// IsClamped reports whether both ends carry degree+1 repeated knots, so the
// spline interpolates its first and last control points.
func (k Vector) IsClamped(degree int) bool {
	return k.StartMultiplicity() == degree+1 && k.EndMultiplicity() == degree+1
}

// IsPeriodic reports whether the knot vector is unclamped at its start, the
// derived test used to decide whether boundary samples need the wrapped
// basis row.
func (k Vector) IsPeriodic(degree int) bool {
	return k.StartMultiplicity() != degree+1
}

// IsNonDecreasing reports whether no knot is smaller than its predecessor.
func (k Vector) IsNonDecreasing() bool {
	for i := 1; i < len(k); i++ {
		if k[i] < k[i-1] {
			return false
		}
	}
	return true
}

// MaxInteriorMultiplicity returns the largest multiplicity among knot values
// strictly inside the domain.
func (k Vector) MaxInteriorMultiplicity(degree int) int {
	lo, hi := k.Domain(degree)
	max := 0
	for _, m := range k.Multiplicities() {
		if m.Value > lo && m.Value < hi && m.Count > max {
			max = m.Count
		}
	}
	return max
}

// Breaks returns the distinct knot values inside the domain, including both
// domain ends. Consecutive breaks bound the non-empty spans.
func (k Vector) Breaks(degree int) []float64 {
	lo, hi := k.Domain(degree)
	breaks := []float64{lo}
	for _, v := range k[degree+1 : len(k)-degree-1] {
		if v > breaks[len(breaks)-1] && v < hi {
			breaks = append(breaks, v)
		}
	}
	if hi > breaks[len(breaks)-1] {
		breaks = append(breaks, hi)
	}
	return breaks
}

// Normalize maps s in [0,1] onto the domain for degree. Values outside [0,1]
// are clamped.
func (k Vector) Normalize(degree int, s float64) float64 {
	lo, hi := k.Domain(degree)
	s = math.Max(0, math.Min(1, s))
	return lo + s*(hi-lo)
}

// Uniform returns the clamped knot vector on [0, 1] with evenly spaced
// interior knots for count control points of the given degree. It needs
// count > degree >= 1.
func Uniform(degree, count int) Vector {
	k := make(Vector, 0, count+degree+1)
	for i := 0; i <= degree; i++ {
		k = append(k, 0)
	}
	spans := count - degree
	for i := 1; i < spans; i++ {
		k = append(k, float64(i)/float64(spans))
	}
	for i := 0; i <= degree; i++ {
		k = append(k, 1)
	}
	return k
}
