package activity

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiva/domain/core"
	"tiva/internal/errors"
)

func at(clock string) time.Time {
	ts, err := time.Parse("2006-01-02 15:04", "2024-01-08 "+clock)
	if err != nil {
		panic(err)
	}
	return ts
}

func scenarioTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := NewTable([]Record{
		{Start: at("10:00"), End: at("10:30"), Category: "A", Attrs: map[string]interface{}{"case_id": 1}},
		{Start: at("10:15"), End: at("10:45"), Category: "B", Attrs: map[string]interface{}{"case_id": 1}},
		{Start: at("11:00"), End: at("11:10"), Category: "C", Attrs: map[string]interface{}{"case_id": 2}},
	})
	require.NoError(t, err)
	return tbl
}

func TestNewTableSnapsToResolution(t *testing.T) {
	tbl, err := NewTable([]Record{{
		Start:    at("10:00").Add(30 * time.Second),
		End:      at("10:29").Add(10 * time.Second),
		Category: "med",
	}})
	require.NoError(t, err)

	r := tbl.Record(0)
	assert.Equal(t, at("10:00"), r.Start)
	assert.Equal(t, at("10:30"), r.End)
	assert.Equal(t, 30*time.Minute, r.Duration())
	assert.Equal(t, core.DefaultResolution, tbl.Resolution())
}

func TestNewTableRejectsMissingTimestamps(t *testing.T) {
	_, err := NewTable([]Record{{Start: at("10:00"), Category: "med"}})
	assert.Error(t, err)
}

func TestNewTableRejectsEndBeforeStart(t *testing.T) {
	_, err := NewTable([]Record{
		{Start: at("10:00"), End: at("10:00"), Category: "med"},
		{Start: at("10:30"), End: at("10:00"), Category: "med"},
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	assert.Contains(t, err.Error(), "record 1")
}

func TestSamplerScenarioCounts(t *testing.T) {
	tbl := scenarioTable(t)
	s := NewSampler(SamplerConfig{Bounds: DefaultBounds, Workers: 3})

	series, err := s.Sample(context.Background(), tbl)
	require.NoError(t, err)
	assert.Equal(t, 71, series.Len())

	expect := map[string]int{
		"10:00": 1, "10:14": 1, "10:15": 2, "10:29": 2, "10:30": 1,
		"10:44": 1, "10:45": 0, "10:59": 0, "11:00": 1, "11:09": 1, "11:10": 0,
	}
	for clock, want := range expect {
		got, ok := series.At(at(clock))
		require.True(t, ok, clock)
		assert.Equal(t, want, got, clock)
	}
	assert.Equal(t, 2, series.Max())

	first, last, err := series.Span()
	require.NoError(t, err)
	assert.Equal(t, at("10:00"), first)
	assert.Equal(t, at("11:10"), last)
}

func TestCollapseScenario(t *testing.T) {
	tbl := scenarioTable(t)
	r := NewRunner(NewSampler(SamplerConfig{Bounds: DefaultBounds}), TrailingSpanClose)

	spans, err := r.Pipeline(context.Background(), tbl)
	require.NoError(t, err)
	assert.Equal(t, []Span{
		{Start: at("10:00"), End: at("10:45")},
		{Start: at("11:00"), End: at("11:10")},
	}, spans)
}

func TestZeroWidthIntervalIsNeverActive(t *testing.T) {
	tbl, err := NewTable([]Record{{Start: at("10:00"), End: at("10:00"), Category: "blip"}})
	require.NoError(t, err)

	samples, err := NewSampler(SamplerConfig{Bounds: DefaultBounds}).Collect(context.Background(), tbl)
	require.NoError(t, err)
	assert.Equal(t, []Sample{{Timestamp: at("10:00"), Count: 0}}, samples)

	r := NewRunner(NewSampler(SamplerConfig{Bounds: DefaultBounds}), TrailingSpanError)
	spans, err := r.Pipeline(context.Background(), tbl)
	require.NoError(t, err)
	assert.Empty(t, spans)
}

func TestBoundsInclusion(t *testing.T) {
	start, end := at("10:00"), at("10:30")
	tests := []struct {
		name   string
		bounds Bounds
		ts     time.Time
		want   bool
	}{
		{"left edge half-open", DefaultBounds, start, true},
		{"right edge half-open", DefaultBounds, end, false},
		{"right edge closed", Bounds{IncludeLeft: true, IncludeRight: true}, end, true},
		{"left edge open", Bounds{}, start, false},
		{"interior open", Bounds{}, at("10:10"), true},
		{"outside", DefaultBounds, at("10:31"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.bounds.Contains(start, end, tt.ts))
		})
	}
}

func TestEmptyTableYieldsEmptySeries(t *testing.T) {
	tbl, err := NewTable(nil)
	require.NoError(t, err)

	series, err := NewSampler(SamplerConfig{}).Sample(context.Background(), tbl)
	require.NoError(t, err)
	assert.Zero(t, series.Len())
	_, _, err = series.Span()
	assert.ErrorIs(t, err, core.ErrEmptyInput)
}

func TestSamplerHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSampler(SamplerConfig{Workers: 2}).Sample(ctx, scenarioTable(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSamplerSampleSetAndLimit(t *testing.T) {
	tbl := scenarioTable(t)

	s := NewSampler(SamplerConfig{Limit: 2})
	samples, err := s.Collect(context.Background(), tbl)
	require.NoError(t, err)
	assert.Equal(t, []Sample{{at("10:00"), 1}, {at("10:15"), 2}}, samples)

	s = NewSampler(SamplerConfig{SampleSet: []time.Time{at("11:05"), at("10:20")}})
	samples, err = s.Collect(context.Background(), tbl)
	require.NoError(t, err)
	assert.Equal(t, []Sample{{at("10:20"), 2}, {at("11:05"), 1}}, samples)
}

type countingObserver struct {
	samplings, strata, spans int
}

func (o *countingObserver) ObserveSampling(int, int, time.Duration) { o.samplings++ }
func (o *countingObserver) ObserveStratum(spans int, _ time.Duration) {
	o.strata++
	o.spans += spans
}

func TestObserverReceivesMeasurements(t *testing.T) {
	obs := &countingObserver{}
	r := NewRunner(NewSampler(SamplerConfig{}, WithObserver(obs)), TrailingSpanClose)

	_, err := r.Unduplicate(context.Background(), scenarioTable(t), RunOptions{Strata: []string{"case_id"}, Label: "busy"})
	require.NoError(t, err)
	assert.Equal(t, 2, obs.samplings)
	assert.Equal(t, 2, obs.strata)
	assert.Equal(t, 2, obs.spans)
}

// randomTable builds n records within a four hour window.
func randomTable(t *testing.T, rng *rand.Rand, n int) *Table {
	t.Helper()
	base := at("08:00")
	records := make([]Record, n)
	for i := range records {
		start := base.Add(time.Duration(rng.Intn(240)) * time.Minute)
		records[i] = Record{
			Start:    start,
			End:      start.Add(time.Duration(rng.Intn(45)) * time.Minute),
			Category: []string{"med", "block", "line"}[rng.Intn(3)],
			Attrs:    map[string]interface{}{"case_id": rng.Intn(4)},
		}
	}
	tbl, err := NewTable(records)
	require.NoError(t, err)
	return tbl
}

func directCount(tbl *Table, ts time.Time) int {
	n := 0
	for _, r := range tbl.Records() {
		if !ts.Before(r.Start) && ts.Before(r.End) {
			n++
		}
	}
	return n
}

func TestSeriesMatchesDirectCount(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		tbl := randomTable(t, rng, 1+rng.Intn(30))
		series, err := NewSampler(SamplerConfig{Workers: 4}).Sample(context.Background(), tbl)
		require.NoError(t, err)

		for i, p := range series.Samples {
			assert.GreaterOrEqual(t, p.Count, 0)
			assert.Equal(t, directCount(tbl, p.Timestamp), p.Count, "trial %d at %s", trial, p.Timestamp)
			if i > 0 {
				assert.Equal(t, time.Minute, p.Timestamp.Sub(series.Samples[i-1].Timestamp))
			}
		}
	}
}

func TestCollapseCoversBusyTime(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 20; trial++ {
		tbl := randomTable(t, rng, 1+rng.Intn(30))
		series, err := NewSampler(SamplerConfig{}).Sample(context.Background(), tbl)
		require.NoError(t, err)
		spans, err := Collapse(series, TrailingSpanError)
		require.NoError(t, err)

		for i := 1; i < len(spans); i++ {
			assert.True(t, spans[i-1].End.Before(spans[i].Start), "spans must be sorted and disjoint")
		}
		for _, p := range series.Samples {
			covered := false
			for _, sp := range spans {
				if !p.Timestamp.Before(sp.Start) && p.Timestamp.Before(sp.End) {
					covered = true
				}
			}
			assert.Equal(t, p.Count > 0, covered, "trial %d at %s", trial, p.Timestamp)
		}
	}
}

func TestCollapseTrailingSpan(t *testing.T) {
	series := &Series{Step: core.DefaultResolution, Samples: []Sample{
		{at("10:00"), 0}, {at("10:01"), 2}, {at("10:02"), 1},
	}}

	spans, err := Collapse(series, TrailingSpanClose)
	require.NoError(t, err)
	assert.Equal(t, []Span{{Start: at("10:01"), End: at("10:03")}}, spans)

	_, err = Collapse(series, TrailingSpanError)
	assert.ErrorIs(t, err, core.ErrUnclosedSpan)
}

func TestParseTrailingSpanPolicy(t *testing.T) {
	p, err := ParseTrailingSpanPolicy("error")
	require.NoError(t, err)
	assert.Equal(t, TrailingSpanError, p)
	assert.Equal(t, "error", p.String())

	p, err = ParseTrailingSpanPolicy("")
	require.NoError(t, err)
	assert.Equal(t, TrailingSpanClose, p)

	_, err = ParseTrailingSpanPolicy("extend")
	assert.Error(t, err)
}
