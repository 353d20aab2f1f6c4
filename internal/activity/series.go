package activity

import (
	"sort"
	"time"

	"tiva/domain/core"
	"tiva/internal/dataset"
)

// Column names of a rendered concurrency series.
const (
	TimestampColumn = "timestamp"
	CountColumn     = "concurrent_activity_count"
)

// Sample is the number of activities active at Timestamp.
type Sample struct {
	Timestamp time.Time
	Count     int
}

// Series is a concurrency time series on a uniform grid: timestamps increase
// by exactly Step with no gaps.
type Series struct {
	Step    core.Resolution
	Samples []Sample
}

// Len returns the number of grid points.
func (s *Series) Len() int { return len(s.Samples) }

// Span returns the first and last grid timestamps.
func (s *Series) Span() (time.Time, time.Time, error) {
	if len(s.Samples) == 0 {
		return time.Time{}, time.Time{}, core.NewEmptyInputError("concurrency series has no samples")
	}
	return s.Samples[0].Timestamp, s.Samples[len(s.Samples)-1].Timestamp, nil
}

// At returns the count at grid timestamp ts.
func (s *Series) At(ts time.Time) (int, bool) {
	i := sort.Search(len(s.Samples), func(i int) bool { return !s.Samples[i].Timestamp.Before(ts) })
	if i < len(s.Samples) && s.Samples[i].Timestamp.Equal(ts) {
		return s.Samples[i].Count, true
	}
	return 0, false
}

// Max returns the peak concurrency.
func (s *Series) Max() int {
	m := 0
	for _, p := range s.Samples {
		if p.Count > m {
			m = p.Count
		}
	}
	return m
}

// ToDataSet renders the series as timestamp / count columns.
func (s *Series) ToDataSet() (*dataset.DataSet, error) {
	rows := make([][]interface{}, len(s.Samples))
	for i, p := range s.Samples {
		rows[i] = []interface{}{p.Timestamp, p.Count}
	}
	return dataset.New([]string{TimestampColumn, CountColumn}, rows, dataset.Schema{Datetime: []string{TimestampColumn}})
}

// reindex places irregular samples on a uniform grid from the earliest to the
// latest sample, carrying the last known count forward into grid points that
// have no sample of their own. Samples must be sorted by timestamp.
func reindex(samples []Sample, step core.Resolution) *Series {
	out := &Series{Step: step}
	if len(samples) == 0 {
		return out
	}
	first, last := samples[0].Timestamp, samples[len(samples)-1].Timestamp
	n := int(last.Sub(first)/step.Duration()) + 1
	out.Samples = make([]Sample, 0, n)

	j, count := 0, samples[0].Count
	for ts := first; !ts.After(last); ts = ts.Add(step.Duration()) {
		for j < len(samples) && !samples[j].Timestamp.After(ts) {
			count = samples[j].Count
			j++
		}
		out.Samples = append(out.Samples, Sample{Timestamp: ts, Count: count})
	}
	return out
}
