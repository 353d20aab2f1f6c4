// Package stats compares duration distributions across groups: one-way
// ANOVA with Tukey HSD post-hoc comparisons, normal confidence intervals,
// and per-group descriptive summaries.
package stats

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"tiva/domain/core"
	"tiva/internal/errors"
)

// ANOVAResult is a one-way analysis of variance across groups.
type ANOVAResult struct {
	FStatistic float64
	PValue     float64
	Alpha      float64
	RejectH0   bool
	DFBetween  float64
	DFWithin   float64
}

// PairComparison is one ordered Tukey HSD comparison. Statistic is
// mean(Group1) - mean(Group2).
type PairComparison struct {
	Group1    string
	Group2    string
	Statistic float64
	PValue    float64
	LowerCI   float64
	UpperCI   float64
	RejectH0  bool
}

// HSDResult holds every ordered pair of groups.
type HSDResult struct {
	ConfidenceLevel float64
	Pairs           []PairComparison
}

// Significant returns the pairs whose means differ.
func (h *HSDResult) Significant() [][2]string { return h.pairs(true) }

// NotSignificant returns the pairs whose means do not differ.
func (h *HSDResult) NotSignificant() [][2]string { return h.pairs(false) }

func (h *HSDResult) pairs(reject bool) [][2]string {
	var out [][2]string
	for _, p := range h.Pairs {
		if p.RejectH0 == reject {
			out = append(out, [2]string{p.Group1, p.Group2})
		}
	}
	return out
}

// TestGroupMeans runs a one-way ANOVA over samples followed by Tukey's HSD
// for every ordered pair of groups. Labels default to "0", "1", ...
func TestGroupMeans(samples [][]float64, labels []string, alpha, confidence float64) (*ANOVAResult, *HSDResult, error) {
	k := len(samples)
	if k < 2 {
		return nil, nil, errors.InvalidInput("at least two groups are required")
	}
	if labels == nil {
		labels = make([]string, k)
		for i := range labels {
			labels[i] = fmt.Sprint(i)
		}
	}
	if len(labels) != k {
		return nil, nil, errors.InvalidInput(fmt.Sprintf("%d labels for %d groups", len(labels), k))
	}
	if confidence <= 0 || confidence >= 1 {
		return nil, nil, errors.InvalidInput(fmt.Sprintf("confidence level %v outside (0, 1)", confidence))
	}

	means := make([]float64, k)
	sizes := make([]float64, k)
	var all []float64
	ssWithin := 0.0
	for i, xs := range samples {
		if len(xs) == 0 {
			return nil, nil, core.NewEmptyInputError(fmt.Sprintf("group %q", labels[i]))
		}
		m, err := stats.Mean(xs)
		if err != nil {
			return nil, nil, err
		}
		means[i], sizes[i] = m, float64(len(xs))
		for _, x := range xs {
			ssWithin += (x - m) * (x - m)
		}
		all = append(all, xs...)
	}
	grand, err := stats.Mean(all)
	if err != nil {
		return nil, nil, err
	}
	ssBetween := 0.0
	for i := range means {
		ssBetween += sizes[i] * (means[i] - grand) * (means[i] - grand)
	}

	dfB, dfW := float64(k-1), float64(len(all)-k)
	if dfW <= 0 {
		return nil, nil, errors.InvalidInput("not enough observations for the number of groups")
	}
	msW := ssWithin / dfW
	f := (ssBetween / dfB) / msW
	p := 1 - distuv.F{D1: dfB, D2: dfW}.CDF(f)
	if math.IsNaN(f) {
		p = math.NaN()
	}
	anova := &ANOVAResult{FStatistic: f, PValue: p, Alpha: alpha, RejectH0: p < alpha, DFBetween: dfB, DFWithin: dfW}

	qCrit := StudentizedRangeQuantile(confidence, k, dfW)
	hsd := &HSDResult{ConfidenceLevel: confidence}
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			if i == j {
				continue
			}
			diff := means[i] - means[j]
			se := math.Sqrt(msW / 2 * (1/sizes[i] + 1/sizes[j]))
			pv := 1 - StudentizedRangeCDF(math.Abs(diff)/se, k, dfW)
			hsd.Pairs = append(hsd.Pairs, PairComparison{
				Group1:    labels[i],
				Group2:    labels[j],
				Statistic: diff,
				PValue:    pv,
				LowerCI:   diff - qCrit*se,
				UpperCI:   diff + qCrit*se,
				RejectH0:  pv < 1-confidence,
			})
		}
	}
	return anova, hsd, nil
}
