package activity

import (
	"fmt"
	"sort"
	"time"

	"tiva/internal/dataset"
	"tiva/internal/errors"
)

// ApplyOffset shifts every start (toStart) or every end by delta and returns
// the shifted table. Durations follow from the new bounds.
func (t *Table) ApplyOffset(delta time.Duration, toStart bool) *Table {
	out := t.derive(make([]Record, len(t.records)))
	for i, r := range t.records {
		c := r.clone()
		if toStart {
			c.Start = c.Start.Add(delta)
		} else {
			c.End = c.End.Add(delta)
		}
		out.records[i] = c
	}
	return out
}

// EnforceMaximumDuration shortens records longer than maxDuration so that
// End = Start + maxDuration. No record is dropped.
func (t *Table) EnforceMaximumDuration(maxDuration time.Duration) *Table {
	out := t.derive(make([]Record, len(t.records)))
	for i, r := range t.records {
		c := r.clone()
		if c.Duration() > maxDuration {
			c.End = c.Start.Add(maxDuration)
		}
		out.records[i] = c
	}
	return out
}

// DurationQuantile returns the q-quantile (0..1) of record durations,
// interpolated linearly between the closest ranks.
func (t *Table) DurationQuantile(q float64) (time.Duration, error) {
	if q < 0 || q > 1 {
		return 0, errors.InvalidInput(fmt.Sprintf("quantile %v outside [0, 1]", q))
	}
	if len(t.records) == 0 {
		return 0, errors.InvalidInput("duration quantile of an empty table")
	}
	xs := make([]float64, len(t.records))
	for i, r := range t.records {
		xs[i] = float64(r.Duration())
	}
	sort.Float64s(xs)
	return time.Duration(dataset.Quantile(xs, q)), nil
}

// CapDurationByQuantile caps durations at quantile(q) * factor and returns
// the capped table together with the cap that was applied.
func (t *Table) CapDurationByQuantile(q, factor float64) (*Table, time.Duration, error) {
	base, err := t.DurationQuantile(q)
	if err != nil {
		return nil, 0, err
	}
	maxDuration := time.Duration(float64(base) * factor)
	return t.EnforceMaximumDuration(maxDuration), maxDuration, nil
}

// FromPoints turns single timestamps into spans [ts - before, ts + after].
// Used for point events such as medication administrations.
func FromPoints(points []time.Time, categories []string, attrs []map[string]interface{}, before, after time.Duration, opts ...Option) (*Table, error) {
	if len(categories) != len(points) || (attrs != nil && len(attrs) != len(points)) {
		return nil, errors.InvalidInput("points, categories and attrs must have equal length")
	}
	records := make([]Record, len(points))
	for i, p := range points {
		records[i] = Record{Start: p.Add(-before), End: p.Add(after), Category: categories[i]}
		if attrs != nil {
			records[i].Attrs = attrs[i]
		}
	}
	return NewTable(records, opts...)
}
