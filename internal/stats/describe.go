package stats

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"tiva/domain/core"
	"tiva/internal/activity"
	"tiva/internal/dataset"
	"tiva/internal/errors"
)

// CIFromSample returns a normal-approximation confidence interval for the
// mean and the population standard error it is built from.
func CIFromSample(xs []float64, confidence float64) (lower, upper, sem float64, err error) {
	if len(xs) == 0 {
		return 0, 0, 0, core.NewEmptyInputError("sample")
	}
	if confidence <= 0 || confidence >= 1 {
		return 0, 0, 0, errors.InvalidInput(fmt.Sprintf("confidence level %v outside (0, 1)", confidence))
	}
	mean, err := stats.Mean(xs)
	if err != nil {
		return 0, 0, 0, err
	}
	sd, err := stats.StandardDeviationPopulation(xs)
	if err != nil {
		return 0, 0, 0, err
	}
	sem = sd / math.Sqrt(float64(len(xs)))
	z := distuv.UnitNormal.Quantile(1 - (1-confidence)/2)
	return mean - z*sem, mean + z*sem, sem, nil
}

// Description summarises one group of measurements.
type Description struct {
	Group   string
	Count   int
	Mean    float64
	Std     float64
	Min     float64
	Q1      float64
	Median  float64
	Q3      float64
	Max     float64
	SEM     float64
	LowerCI float64
	UpperCI float64
}

// Describe summarises xs. Std is the sample standard deviation; SEM uses the
// population deviation like CIFromSample. Quartiles interpolate linearly
// between the closest ranks.
func Describe(group string, xs []float64, confidence float64) (Description, error) {
	d := Description{Group: group, Count: len(xs)}
	lo, hi, sem, err := CIFromSample(xs, confidence)
	if err != nil {
		return d, err
	}
	d.LowerCI, d.UpperCI, d.SEM = lo, hi, sem

	if d.Mean, err = stats.Mean(xs); err != nil {
		return d, err
	}
	if len(xs) > 1 {
		if d.Std, err = stats.StandardDeviationSample(xs); err != nil {
			return d, err
		}
	} else {
		d.Std = math.NaN()
	}
	if d.Min, err = stats.Min(xs); err != nil {
		return d, err
	}
	if d.Max, err = stats.Max(xs); err != nil {
		return d, err
	}
	if d.Median, err = stats.Median(xs); err != nil {
		return d, err
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	d.Q1 = dataset.Quantile(sorted, 0.25)
	d.Q3 = dataset.Quantile(sorted, 0.75)
	return d, nil
}

// DescribeBy summarises values grouped by the parallel keys slice, in
// first-seen key order.
func DescribeBy(keys []string, values []float64, confidence float64) ([]Description, error) {
	if len(keys) != len(values) {
		return nil, errors.InvalidInput(fmt.Sprintf("%d keys for %d values", len(keys), len(values)))
	}
	labels, groups := group(keys, values)
	out := make([]Description, 0, len(labels))
	for i, l := range labels {
		d, err := Describe(l, groups[i], confidence)
		if err != nil {
			return nil, fmt.Errorf("describe %q: %w", l, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// DurationsByCategory groups the table's durations, in the given unit, by
// category in first-seen order. The result feeds TestGroupMeans directly.
func DurationsByCategory(t *activity.Table, unit time.Duration) ([]string, [][]float64) {
	records := t.Records()
	keys := make([]string, len(records))
	values := make([]float64, len(records))
	for i, r := range records {
		keys[i] = r.Category
		values[i] = float64(r.Duration()) / float64(unit)
	}
	return group(keys, values)
}

func group(keys []string, values []float64) ([]string, [][]float64) {
	var labels []string
	index := make(map[string]int)
	var groups [][]float64
	for i, k := range keys {
		j, ok := index[k]
		if !ok {
			j = len(labels)
			index[k] = j
			labels = append(labels, k)
			groups = append(groups, nil)
		}
		groups[j] = append(groups[j], values[i])
	}
	return labels, groups
}
