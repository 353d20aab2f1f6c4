package stats

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	rangeNodes = 96
	scaleNodes = 96
)

// rangeCDF is P(W <= w) for the range W of k independent standard normals.
func rangeCDF(w float64, k int) float64 {
	if w <= 0 {
		return 0
	}
	n := distuv.UnitNormal
	f := func(z float64) float64 {
		d := n.CDF(z) - n.CDF(z-w)
		return n.Prob(z) * math.Pow(d, float64(k-1))
	}
	return float64(k) * quad.Fixed(f, -8, 8+w, rangeNodes, nil, 0)
}

// StudentizedRangeCDF is P(Q <= q) for the studentized range of k groups
// with df error degrees of freedom. The scale s = sqrt(chi2(df)/df) is
// integrated out over a window of ten standard deviations around 1.
func StudentizedRangeCDF(q float64, k int, df float64) float64 {
	if q <= 0 {
		return 0
	}
	chi := distuv.ChiSquared{K: df}
	sigma := 1 / math.Sqrt(2*df)
	lo := math.Max(0, 1-10*sigma)
	hi := 1 + 10*sigma
	f := func(s float64) float64 {
		if s <= 0 {
			return 0
		}
		density := chi.Prob(df*s*s) * 2 * df * s
		return density * rangeCDF(q*s, k)
	}
	p := quad.Fixed(f, lo, hi, scaleNodes, nil, 0)
	return math.Min(1, math.Max(0, p))
}

// StudentizedRangeQuantile inverts StudentizedRangeCDF by bisection.
func StudentizedRangeQuantile(p float64, k int, df float64) float64 {
	lo, hi := 0.0, 1.0
	for StudentizedRangeCDF(hi, k, df) < p && hi < 1e3 {
		hi *= 2
	}
	for i := 0; i < 60 && hi-lo > 1e-9; i++ {
		mid := (lo + hi) / 2
		if StudentizedRangeCDF(mid, k, df) < p {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}
