package stats

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"tiva/internal/errors"
)

// Shape describes how far a group departs from the normal distribution the
// ANOVA assumes.
type Shape struct {
	Group string
	// Skewness is the adjusted Fisher-Pearson coefficient.
	Skewness float64
	// ExcessKurtosis is zero for a normal distribution.
	ExcessKurtosis float64
	// JarqueBera is the normality statistic, chi-squared with 2 df under H0.
	JarqueBera float64
	NormalityP float64
	Normal     bool
	// Outliers counts values beyond 1.5 IQR of the 25th/75th percentiles.
	Outliers int
}

// ShapeOf measures the distribution shape of xs. Normal reports whether the
// Jarque-Bera test keeps normality at alpha.
func ShapeOf(group string, xs []float64, alpha float64) (Shape, error) {
	s := Shape{Group: group}
	if len(xs) < 3 {
		return s, errors.InvalidInput("distribution shape needs at least 3 values")
	}
	mean, err := stats.Mean(xs)
	if err != nil {
		return s, err
	}

	n := float64(len(xs))
	var m2, m3, m4 float64
	for _, x := range xs {
		d := x - mean
		m2 += d * d
		m3 += d * d * d
		m4 += d * d * d * d
	}
	m2, m3, m4 = m2/n, m3/n, m4/n
	if m2 == 0 {
		// constant sample, trivially not normal
		s.NormalityP = 0
		return s, nil
	}

	g1 := m3 / math.Pow(m2, 1.5)
	g2 := m4/(m2*m2) - 3
	s.Skewness = g1 * math.Sqrt(n*(n-1)) / (n - 2)
	s.ExcessKurtosis = g2
	s.JarqueBera = n / 6 * (g1*g1 + g2*g2/4)
	s.NormalityP = 1 - distuv.ChiSquared{K: 2}.CDF(s.JarqueBera)
	s.Normal = s.NormalityP > alpha

	if len(xs) >= 4 {
		q25, err := stats.Percentile(xs, 25)
		if err != nil {
			return s, err
		}
		q75, err := stats.Percentile(xs, 75)
		if err != nil {
			return s, err
		}
		iqr := q75 - q25
		for _, x := range xs {
			if x < q25-1.5*iqr || x > q75+1.5*iqr {
				s.Outliers++
			}
		}
	}
	return s, nil
}
