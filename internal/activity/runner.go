package activity

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"tiva/domain/core"
	"tiva/internal"
	"tiva/internal/dataset"
)

// RunOptions selects what the Runner unduplicates.
type RunOptions struct {
	// Categories, when set, keeps only records of these categories.
	Categories []string
	// Strata are the columns partitioning the table; none runs once over
	// the whole table.
	Strata []string
	// Label overwrites the category of every emitted span.
	Label string
	// Parallelism bounds how many strata run at once; zero means one.
	Parallelism int
}

// Runner applies sampling and collapsing per stratum.
type Runner struct {
	sampler  *Sampler
	policy   TrailingSpanPolicy
	logger   *internal.Logger
	observer Observer
}

// NewRunner creates a runner that samples with s and closes trailing spans
// according to policy.
func NewRunner(s *Sampler, policy TrailingSpanPolicy) *Runner {
	return &Runner{
		sampler:  s,
		policy:   policy,
		logger:   s.logger.With("Runner"),
		observer: s.observer,
	}
}

// Sampler returns the runner's sampler.
func (r *Runner) Sampler() *Sampler { return r.sampler }

// Stratum is one partition of a table: the key values and the row positions
// that carry them.
type Stratum struct {
	Keys []interface{}
	Rows []int
}

// Name renders the key values, e.g. "case_id=7, provider=Smith".
func (s Stratum) Name(columns []string) string {
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = fmt.Sprintf("%s=%v", c, s.Keys[i])
	}
	return strings.Join(parts, ", ")
}

// Stratify partitions t by the given columns. Only occurring key
// combinations are returned, in the order a cartesian product over each
// column's distinct values (in first-seen order) would produce them.
// Records missing a value for any column belong to no stratum.
func Stratify(t *Table, columns []string) []Stratum {
	if len(columns) == 0 {
		rows := make([]int, len(t.records))
		for i := range rows {
			rows[i] = i
		}
		return []Stratum{{Rows: rows}}
	}

	rank := make([]map[string]int, len(columns))
	for i := range rank {
		rank[i] = make(map[string]int)
	}
	groups := make(map[string]*Stratum)
	order := make(map[string][]int)
	var keys []string

rows:
	for row, r := range t.records {
		pos := make([]int, len(columns))
		vals := make([]interface{}, len(columns))
		var b strings.Builder
		for i, c := range columns {
			v := r.Value(c)
			if v == nil {
				continue rows
			}
			k := dataset.Key(v)
			n, ok := rank[i][k]
			if !ok {
				n = len(rank[i])
				rank[i][k] = n
			}
			pos[i], vals[i] = n, v
			b.WriteString(k)
			b.WriteByte(0x1f)
		}
		key := b.String()
		g, ok := groups[key]
		if !ok {
			g = &Stratum{Keys: vals}
			groups[key] = g
			order[key] = pos
			keys = append(keys, key)
		}
		g.Rows = append(g.Rows, row)
	}

	sort.SliceStable(keys, func(i, j int) bool {
		a, b := order[keys[i]], order[keys[j]]
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
	out := make([]Stratum, len(keys))
	for i, k := range keys {
		out[i] = *groups[k]
	}
	return out
}

// Pipeline samples t and collapses the series into busy spans.
func (r *Runner) Pipeline(ctx context.Context, t *Table) ([]Span, error) {
	series, err := r.sampler.Sample(ctx, t)
	if err != nil {
		return nil, err
	}
	return Collapse(series, r.policy)
}

// Unduplicate collapses overlapping activities into busy spans per stratum
// and returns them as one table. Every span is labelled opts.Label and
// carries its stratum's key values as attributes. Strata are concatenated in
// Stratify order regardless of how they were scheduled.
func (r *Runner) Unduplicate(ctx context.Context, t *Table, opts RunOptions) (*Table, error) {
	src := t
	if len(opts.Categories) > 0 {
		src = t.FilterCategories(opts.Categories...)
	}
	if src.Len() == 0 {
		return nil, core.NewEmptyInputError("activity table after category filter")
	}
	for _, c := range opts.Strata {
		if !src.hasColumn(c) {
			return nil, core.NewSchemaError([]string{c}, nil)
		}
	}

	strata := Stratify(src, opts.Strata)
	results := make([][]Record, len(strata))
	workers := opts.Parallelism
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	errs := make(chan error, len(strata))
	started := time.Now()

	for i, st := range strata {
		if err := sem.Acquire(ctx, 1); err != nil {
			errs <- err
			break
		}
		go func(i int, st Stratum) {
			defer sem.Release(1)
			t0 := time.Now()
			sub := src.derive(make([]Record, len(st.Rows)))
			for j, row := range st.Rows {
				sub.records[j] = src.records[row]
			}
			spans, err := r.Pipeline(ctx, sub)
			if err != nil {
				errs <- fmt.Errorf("stratum %s: %w", st.Name(opts.Strata), err)
				return
			}
			recs := make([]Record, len(spans))
			for j, sp := range spans {
				attrs := make(map[string]interface{}, len(opts.Strata))
				for k, c := range opts.Strata {
					attrs[c] = st.Keys[k]
				}
				recs[j] = Record{Start: sp.Start, End: sp.End, Category: opts.Label, Attrs: attrs}
			}
			results[i] = recs
			r.observer.ObserveStratum(len(spans), time.Since(t0))
			r.logger.Trace("stratum %s: %d records -> %d spans", st.Name(opts.Strata), len(st.Rows), len(spans))
		}(i, st)
	}
	// Wait for every in-flight stratum.
	if err := sem.Acquire(context.Background(), int64(workers)); err != nil {
		return nil, err
	}
	close(errs)
	if err := <-errs; err != nil {
		return nil, err
	}

	out := &Table{resolution: src.resolution, attrs: append([]string(nil), opts.Strata...)}
	for _, recs := range results {
		out.records = append(out.records, recs...)
	}
	r.logger.Info("unduplicated %d records into %d %q spans over %d strata in %v",
		src.Len(), out.Len(), opts.Label, len(strata), time.Since(started))
	return out, nil
}

func (t *Table) hasColumn(c string) bool {
	switch c {
	case StartColumn, EndColumn, CategoryColumn, DurationColumn:
		return true
	}
	for _, a := range t.attrs {
		if a == c {
			return true
		}
	}
	return false
}
