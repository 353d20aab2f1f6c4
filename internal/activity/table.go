// Package activity holds interval tables of time-bounded activities and the
// analyses over them: concurrency sampling, busy-span collapsing, and
// stratified unduplication.
package activity

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"tiva/domain/core"
	"tiva/internal/dataset"
	"tiva/internal/errors"
)

// Column names of the interval table.
const (
	StartColumn    = "activity_start"
	EndColumn      = "activity_end"
	CategoryColumn = "activity"
	DurationColumn = "duration"
)

// Schema is the dataset schema an activity source must satisfy.
var Schema = dataset.Schema{
	Required: []string{StartColumn, EndColumn, CategoryColumn},
	Datetime: []string{StartColumn, EndColumn},
	String:   []string{CategoryColumn},
}

// Record is one activity. Attrs carries opaque payload columns (case id,
// provider, ...) through every transform unchanged.
type Record struct {
	Start    time.Time
	End      time.Time
	Category string
	Attrs    map[string]interface{}
}

// Duration is End - Start.
func (r Record) Duration() time.Duration { return r.End.Sub(r.Start) }

// Value returns the record's value for a column name.
func (r Record) Value(column string) interface{} {
	switch column {
	case StartColumn:
		return r.Start
	case EndColumn:
		return r.End
	case CategoryColumn:
		return r.Category
	case DurationColumn:
		return r.Duration()
	default:
		return r.Attrs[column]
	}
}

func (r Record) clone() Record {
	c := r
	if r.Attrs != nil {
		c.Attrs = make(map[string]interface{}, len(r.Attrs))
		for k, v := range r.Attrs {
			c.Attrs[k] = v
		}
	}
	return c
}

// Table is an ordered collection of records sharing a resolution. Starts are
// floored and ends ceiled to the resolution at construction.
type Table struct {
	resolution core.Resolution
	records    []Record
	attrs      []string
}

// Option configures table construction.
type Option func(*tableOptions)

type tableOptions struct {
	resolution core.Resolution
	columnMap  map[string]string
}

// WithResolution sets the snapping resolution (default one minute).
func WithResolution(r core.Resolution) Option {
	return func(o *tableOptions) { o.resolution = r }
}

// WithColumnMap renames source columns before validation, e.g.
// {"anesthesia_start": "activity_start"}.
func WithColumnMap(m map[string]string) Option {
	return func(o *tableOptions) { o.columnMap = m }
}

func applyOptions(opts []Option) (tableOptions, error) {
	o := tableOptions{resolution: core.DefaultResolution}
	for _, opt := range opts {
		opt(&o)
	}
	return o, o.resolution.Validate()
}

// NewTable builds a table from records, snapping them to the resolution.
// Records are copied. A record ending before it starts is rejected.
func NewTable(records []Record, opts ...Option) (*Table, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	t := &Table{resolution: o.resolution, records: make([]Record, len(records))}
	seen := make(map[string]bool)
	for i, r := range records {
		if r.Start.IsZero() || r.End.IsZero() {
			return nil, errors.InvalidInput(fmt.Sprintf("record %d: missing %s or %s", i, StartColumn, EndColumn))
		}
		if r.End.Before(r.Start) {
			return nil, errors.InvalidInput(fmt.Sprintf("record %d: %s %s before %s %s", i,
				EndColumn, r.End.Format(time.RFC3339), StartColumn, r.Start.Format(time.RFC3339)))
		}
		c := r.clone()
		c.Start = o.resolution.Floor(c.Start)
		c.End = o.resolution.Ceil(c.End)
		t.records[i] = c
		for _, k := range sortedKeys(c.Attrs) {
			if !seen[k] {
				seen[k] = true
				t.attrs = append(t.attrs, k)
			}
		}
	}
	return t, nil
}

// FromDataSet builds a table from a dataset. Columns other than start, end,
// category and duration become record attributes.
func FromDataSet(ds *dataset.DataSet, opts ...Option) (*Table, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	src, err := ds.Rename(o.columnMap, Schema)
	if err != nil {
		return nil, err
	}
	starts, err := src.Times(StartColumn)
	if err != nil {
		return nil, err
	}
	ends, err := src.Times(EndColumn)
	if err != nil {
		return nil, err
	}
	cats, err := src.Strings(CategoryColumn)
	if err != nil {
		return nil, err
	}

	var attrCols []string
	for _, c := range src.Columns() {
		switch c {
		case StartColumn, EndColumn, CategoryColumn, DurationColumn:
		default:
			attrCols = append(attrCols, c)
		}
	}

	records := make([]Record, src.Len())
	for i := range records {
		attrs := make(map[string]interface{}, len(attrCols))
		for _, c := range attrCols {
			attrs[c] = src.Value(i, c)
		}
		records[i] = Record{Start: starts[i], End: ends[i], Category: cats[i], Attrs: attrs}
	}

	t, err := NewTable(records, WithResolution(o.resolution))
	if err != nil {
		return nil, err
	}
	t.attrs = attrCols
	return t, nil
}

// Resolution returns the table's snapping resolution.
func (t *Table) Resolution() core.Resolution { return t.resolution }

// Len returns the number of records.
func (t *Table) Len() int { return len(t.records) }

// Record returns a copy of the i-th record.
func (t *Table) Record(i int) Record { return t.records[i].clone() }

// Records returns a copy of all records.
func (t *Table) Records() []Record {
	out := make([]Record, len(t.records))
	for i, r := range t.records {
		out[i] = r.clone()
	}
	return out
}

// AttrColumns returns the payload column names in first-seen order.
func (t *Table) AttrColumns() []string { return append([]string(nil), t.attrs...) }

// Durations returns End - Start per record.
func (t *Table) Durations() []time.Duration {
	out := make([]time.Duration, len(t.records))
	for i, r := range t.records {
		out[i] = r.Duration()
	}
	return out
}

// Categories returns the distinct categories in first-seen order.
func (t *Table) Categories() []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range t.records {
		if !seen[r.Category] {
			seen[r.Category] = true
			out = append(out, r.Category)
		}
	}
	return out
}

// Where returns the records matching keep, as a new table.
func (t *Table) Where(keep func(Record) bool) *Table {
	out := t.derive(nil)
	for _, r := range t.records {
		if keep(r) {
			out.records = append(out.records, r.clone())
		}
	}
	return out
}

// FilterCategories returns the records whose category is listed.
func (t *Table) FilterCategories(categories ...string) *Table {
	allowed := make(map[string]bool, len(categories))
	for _, c := range categories {
		allowed[c] = true
	}
	return t.Where(func(r Record) bool { return allowed[r.Category] })
}

// LimitByList keeps the records whose column value is in values and returns
// the excluded records as a new table.
func (t *Table) LimitByList(column string, values []interface{}) *Table {
	allowed := make(map[string]bool, len(values))
	for _, v := range values {
		allowed[dataset.Key(v)] = true
	}
	kept := t.derive(nil)
	excluded := t.derive(nil)
	for _, r := range t.records {
		if allowed[dataset.Key(r.Value(column))] {
			kept.records = append(kept.records, r)
		} else {
			excluded.records = append(excluded.records, r)
		}
	}
	t.records = kept.records
	return excluded
}

// ToDataSet renders the table with start, end, category, duration and the
// payload columns.
func (t *Table) ToDataSet() (*dataset.DataSet, error) {
	columns := append([]string{StartColumn, EndColumn, CategoryColumn, DurationColumn}, t.attrs...)
	rows := make([][]interface{}, len(t.records))
	for i, r := range t.records {
		row := make([]interface{}, len(columns))
		row[0], row[1], row[2], row[3] = r.Start, r.End, r.Category, r.Duration().String()
		for j, c := range t.attrs {
			row[4+j] = r.Attrs[c]
		}
		rows[i] = row
	}
	return dataset.New(columns, rows, dataset.Schema{Datetime: []string{StartColumn, EndColumn}})
}

// Summary lists up to limit categories with their record counts, most
// frequent first, e.g. `"medication" (36 entries), "block" (3 entries), and 1 other`.
func (t *Table) Summary(limit int) string {
	counts := make(map[string]int)
	order := t.Categories()
	for _, r := range t.records {
		counts[r.Category]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })

	shown := order
	if limit >= 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	parts := make([]string, len(shown))
	for i, c := range shown {
		parts[i] = fmt.Sprintf("%q (%d entries)", c, counts[c])
	}
	out := strings.Join(parts, ", ")
	if omitted := len(order) - len(shown); omitted > 0 {
		out += fmt.Sprintf(", and %d other", omitted)
		if omitted > 1 {
			out += "s"
		}
	}
	return out
}

// Concat appends tables into one, keeping the first table's resolution.
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, core.NewEmptyInputError("no tables to concatenate")
	}
	out := tables[0].derive(nil)
	seen := make(map[string]bool)
	for _, a := range out.attrs {
		seen[a] = true
	}
	for _, t := range tables {
		for _, a := range t.attrs {
			if !seen[a] {
				seen[a] = true
				out.attrs = append(out.attrs, a)
			}
		}
		for _, r := range t.records {
			out.records = append(out.records, r.clone())
		}
	}
	return out, nil
}

// derive returns an empty table with t's resolution and payload columns.
func (t *Table) derive(records []Record) *Table {
	return &Table{resolution: t.resolution, records: records, attrs: append([]string(nil), t.attrs...)}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
