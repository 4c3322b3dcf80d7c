package knot

// BasisFunctions computes the degree+1 non-vanishing basis values N[span-degree..span]
// at t using the Cox-de Boor triangle (Piegl & Tiller A2.2).
func BasisFunctions(k Vector, span, degree int, t float64) []float64 {
	n := make([]float64, degree+1)
	left := make([]float64, degree+1)
	right := make([]float64, degree+1)

	n[0] = 1
	for j := 1; j <= degree; j++ {
		left[j] = t - k[span+1-j]
		right[j] = k[span+j] - t
		var saved float64
		for r := 0; r < j; r++ {
			temp := n[r] / (right[r+1] + left[j-r])
			n[r] = saved + right[r+1]*temp
			saved = left[j-r] * temp
		}
		n[j] = saved
	}
	return n
}

// DerivativeFunctions computes the non-vanishing basis functions and their
// derivatives at t (Piegl & Tiller A2.3). Row k of the result holds the k-th
// derivatives; there are order+1 rows of degree+1 values each. Rows above
// degree are identically zero and are returned as zero rows.
func DerivativeFunctions(k Vector, span, degree, order int, t float64) [][]float64 {
	p := degree
	ders := zeros(order+1, p+1)
	du := order
	if du > p {
		du = p
	}

	ndu := zeros(p+1, p+1)
	left := make([]float64, p+1)
	right := make([]float64, p+1)

	ndu[0][0] = 1
	for j := 1; j <= p; j++ {
		left[j] = t - k[span+1-j]
		right[j] = k[span+j] - t
		var saved float64
		for r := 0; r < j; r++ {
			// Lower triangle holds knot differences.
			ndu[j][r] = right[r+1] + left[j-r]
			temp := ndu[r][j-1] / ndu[j][r]
			// Upper triangle holds basis values.
			ndu[r][j] = saved + right[r+1]*temp
			saved = left[j-r] * temp
		}
		ndu[j][j] = saved
	}

	for j := 0; j <= p; j++ {
		ders[0][j] = ndu[j][p]
	}

	a := zeros(2, p+1)
	for r := 0; r <= p; r++ {
		s1, s2 := 0, 1
		a[0][0] = 1
		for kk := 1; kk <= du; kk++ {
			var d float64
			rk := r - kk
			pk := p - kk
			if r >= kk {
				a[s2][0] = a[s1][0] / ndu[pk+1][rk]
				d = a[s2][0] * ndu[rk][pk]
			}
			j1 := 1
			if rk < -1 {
				j1 = -rk
			}
			j2 := kk - 1
			if r-1 > pk {
				j2 = p - r
			}
			for j := j1; j <= j2; j++ {
				a[s2][j] = (a[s1][j] - a[s1][j-1]) / ndu[pk+1][rk+j]
				d += a[s2][j] * ndu[rk+j][pk]
			}
			if r <= pk {
				a[s2][kk] = -a[s1][kk-1] / ndu[pk+1][r]
				d += a[s2][kk] * ndu[r][pk]
			}
			ders[kk][r] = d
			s1, s2 = s2, s1
		}
	}

	acc := p
	for kk := 1; kk <= du; kk++ {
		for j := 0; j <= p; j++ {
			ders[kk][j] *= float64(acc)
		}
		acc *= p - kk
	}
	return ders
}

func zeros(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}
