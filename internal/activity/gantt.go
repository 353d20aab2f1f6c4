package activity

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// GanttRow is one horizontal bar: a unique task label, its offset from the
// earliest start and its length, both in seconds.
type GanttRow struct {
	Task     string
	Start    float64
	Duration float64
}

// GanttOptions controls task labelling.
type GanttOptions struct {
	// Strata are the columns joined into the task label; default is the
	// category column.
	Strata []string
	// Separator joins stratum values; default ";".
	Separator string
	// WithColumnNames renders each part as "column:value".
	WithColumnNames bool
}

// GanttRows prepares chart rows sorted by start. Every label gets a running
// number so repeated tasks stay distinct, e.g. "induction 1", "induction 2".
func (t *Table) GanttRows(opts GanttOptions) []GanttRow {
	if len(opts.Strata) == 0 {
		opts.Strata = []string{CategoryColumn}
	}
	if opts.Separator == "" {
		opts.Separator = ";"
	}
	if len(t.records) == 0 {
		return nil
	}

	records := append([]Record(nil), t.records...)
	sort.SliceStable(records, func(i, j int) bool { return records[i].Start.Before(records[j].Start) })
	lower := records[0].Start

	counts := make(map[string]int)
	rows := make([]GanttRow, len(records))
	for i, r := range records {
		parts := make([]string, len(opts.Strata))
		for j, c := range opts.Strata {
			v := r.Value(c)
			if opts.WithColumnNames {
				parts[j] = fmt.Sprintf("%s:%v", c, v)
			} else {
				parts[j] = fmt.Sprint(v)
			}
		}
		label := strings.Join(parts, opts.Separator)
		counts[label]++
		rows[i] = GanttRow{
			Task:     fmt.Sprintf("%s %d", label, counts[label]),
			Start:    r.Start.Sub(lower).Seconds(),
			Duration: r.Duration().Seconds(),
		}
	}
	return rows
}

// Extent returns the earliest start and latest end of the table.
func (t *Table) Extent() (time.Time, time.Time, bool) {
	if len(t.records) == 0 {
		return time.Time{}, time.Time{}, false
	}
	lo, hi := t.records[0].Start, t.records[0].End
	for _, r := range t.records[1:] {
		if r.Start.Before(lo) {
			lo = r.Start
		}
		if r.End.After(hi) {
			hi = r.End
		}
	}
	return lo, hi, true
}
