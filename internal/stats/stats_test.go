package stats

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiva/domain/core"
	"tiva/internal/activity"
)

func TestStudentizedRangeCDF(t *testing.T) {
	// Published critical values of the studentized range at alpha = 0.05.
	tests := []struct {
		q  float64
		k  int
		df float64
	}{
		{3.877, 3, 10},
		{3.151, 2, 10},
		{3.958, 4, 20},
	}
	for _, tt := range tests {
		assert.InDelta(t, 0.95, StudentizedRangeCDF(tt.q, tt.k, tt.df), 0.005, "q=%v k=%d df=%v", tt.q, tt.k, tt.df)
	}
	assert.Zero(t, StudentizedRangeCDF(0, 3, 10))
	assert.InDelta(t, 3.877, StudentizedRangeQuantile(0.95, 3, 10), 0.02)
}

func TestGroupMeansDetectsShiftedGroup(t *testing.T) {
	samples := [][]float64{
		{1, 2, 3, 4, 5},
		{2, 3, 4, 5, 6},
		{8, 9, 10, 11, 12},
	}
	anova, hsd, err := TestGroupMeans(samples, []string{"a", "b", "c"}, 0.05, 0.95)
	require.NoError(t, err)

	assert.InDelta(t, 28.6667, anova.FStatistic, 1e-3)
	assert.Less(t, anova.PValue, 0.001)
	assert.True(t, anova.RejectH0)
	assert.Equal(t, 2.0, anova.DFBetween)
	assert.Equal(t, 12.0, anova.DFWithin)

	require.Len(t, hsd.Pairs, 6)
	ab := hsd.Pairs[0]
	assert.Equal(t, "a", ab.Group1)
	assert.Equal(t, "b", ab.Group2)
	assert.InDelta(t, -1, ab.Statistic, 1e-9)
	assert.False(t, ab.RejectH0)
	assert.Greater(t, ab.PValue, 0.3)
	assert.Less(t, ab.LowerCI, ab.Statistic)
	assert.Greater(t, ab.UpperCI, 0.0)

	ba := hsd.Pairs[2]
	assert.Equal(t, "b", ba.Group1)
	assert.InDelta(t, 1, ba.Statistic, 1e-9)
	assert.InDelta(t, ab.PValue, ba.PValue, 1e-9)

	assert.Contains(t, hsd.Significant(), [2]string{"a", "c"})
	assert.Contains(t, hsd.NotSignificant(), [2]string{"b", "a"})
}

func TestGroupMeansValidation(t *testing.T) {
	_, _, err := TestGroupMeans([][]float64{{1, 2}}, nil, 0.05, 0.95)
	assert.Error(t, err)

	_, _, err = TestGroupMeans([][]float64{{1, 2}, {}}, nil, 0.05, 0.95)
	assert.ErrorIs(t, err, core.ErrEmptyInput)

	_, _, err = TestGroupMeans([][]float64{{1, 2}, {3, 4}}, []string{"x"}, 0.05, 0.95)
	assert.Error(t, err)

	_, hsd, err := TestGroupMeans([][]float64{{1, 2}, {3, 4}}, nil, 0.05, 0.95)
	require.NoError(t, err)
	assert.Equal(t, "0", hsd.Pairs[0].Group1)
}

func TestCIFromSample(t *testing.T) {
	lo, hi, sem, err := CIFromSample([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 0.95)
	require.NoError(t, err)
	// population sd = 2, n = 8
	assert.InDelta(t, 2/math.Sqrt(8), sem, 1e-9)
	assert.InDelta(t, 5-1.959964*sem, lo, 1e-4)
	assert.InDelta(t, 5+1.959964*sem, hi, 1e-4)

	_, _, _, err = CIFromSample(nil, 0.95)
	assert.ErrorIs(t, err, core.ErrEmptyInput)
}

func TestDescribeBy(t *testing.T) {
	keys := []string{"block", "line", "block", "block", "block", "line"}
	values := []float64{10, 30, 20, 30, 40, 50}

	out, err := DescribeBy(keys, values, 0.95)
	require.NoError(t, err)
	require.Len(t, out, 2)

	block := out[0]
	assert.Equal(t, "block", block.Group)
	assert.Equal(t, 4, block.Count)
	assert.Equal(t, 25.0, block.Mean)
	assert.Equal(t, 10.0, block.Min)
	assert.Equal(t, 40.0, block.Max)
	assert.Equal(t, 25.0, block.Median)
	assert.Equal(t, 17.5, block.Q1)
	assert.Equal(t, 32.5, block.Q3)
	assert.InDelta(t, 12.9099, block.Std, 1e-4)
	assert.Less(t, block.LowerCI, block.Mean)

	line := out[1]
	assert.Equal(t, 2, line.Count)
	assert.Equal(t, 35.0, line.Q1)
	assert.Equal(t, 45.0, line.Q3)

	_, err = DescribeBy([]string{"a"}, nil, 0.95)
	assert.Error(t, err)
}

func TestDescribeQuartiles(t *testing.T) {
	tests := []struct {
		xs     []float64
		q1, q3 float64
	}{
		{[]float64{5, 1, 4, 2, 3}, 2, 4},
		{[]float64{3, 1, 2}, 1.5, 2.5},
		{[]float64{7}, 7, 7},
	}
	for _, tt := range tests {
		d, err := Describe("g", tt.xs, 0.95)
		require.NoError(t, err)
		assert.Equal(t, tt.q1, d.Q1, "Q1 of %v", tt.xs)
		assert.Equal(t, tt.q3, d.Q3, "Q3 of %v", tt.xs)
	}
}

func TestDurationsByCategory(t *testing.T) {
	base := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	tbl, err := activity.NewTable([]activity.Record{
		{Start: base, End: base.Add(30 * time.Minute), Category: "line"},
		{Start: base, End: base.Add(10 * time.Minute), Category: "block"},
		{Start: base, End: base.Add(20 * time.Minute), Category: "line"},
	})
	require.NoError(t, err)

	labels, groups := DurationsByCategory(tbl, time.Minute)
	assert.Equal(t, []string{"line", "block"}, labels)
	assert.Equal(t, [][]float64{{30, 20}, {10}}, groups)
}

func TestShapeOf(t *testing.T) {
	sym, err := ShapeOf("sym", []float64{1, 2, 3, 4, 5}, 0.05)
	require.NoError(t, err)
	assert.InDelta(t, 0, sym.Skewness, 1e-12)
	assert.InDelta(t, -1.3, sym.ExcessKurtosis, 1e-9)
	assert.InDelta(t, math.Exp(-sym.JarqueBera/2), sym.NormalityP, 1e-9)
	assert.True(t, sym.Normal)
	assert.Zero(t, sym.Outliers)

	skewed, err := ShapeOf("skewed", []float64{1, 2, 3, 4, 100}, 0.05)
	require.NoError(t, err)
	assert.Greater(t, skewed.Skewness, 1.0)
	assert.Equal(t, 1, skewed.Outliers)

	flat, err := ShapeOf("flat", []float64{7, 7, 7}, 0.05)
	require.NoError(t, err)
	assert.False(t, flat.Normal)

	_, err = ShapeOf("short", []float64{1, 2}, 0.05)
	assert.Error(t, err)
}
