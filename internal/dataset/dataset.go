// Package dataset provides the column-oriented typed table the analysis
// packages build on. A DataSet owns its columns; every filter or rename
// returns a new DataSet carrying the same Schema.
package dataset

import (
	"fmt"
	"sort"
	"time"

	"tiva/domain/core"
	"tiva/internal/errors"
)

// Schema describes the columns a DataSet requires, rejects, and coerces.
type Schema struct {
	Required  []string
	Datetime  []string
	String    []string
	Forbidden []string
	// Index, when set, names a column moved out of the column set and kept
	// as the row index.
	Index string
}

// DataSet is a rectangular table of cells keyed by column name.
type DataSet struct {
	schema    Schema
	columns   []string
	data      map[string][]interface{}
	index     []interface{}
	indexName string
	rows      int
}

// New builds a DataSet from a header and row-major cells.
func New(columns []string, rows [][]interface{}, schema Schema) (*DataSet, error) {
	data := make(map[string][]interface{}, len(columns))
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c] {
			return nil, errors.InvalidInput(fmt.Sprintf("duplicate column %q", c))
		}
		seen[c] = true
		data[c] = make([]interface{}, len(rows))
	}
	for i, row := range rows {
		if len(row) > len(columns) {
			return nil, errors.InvalidInput(fmt.Sprintf("row %d has %d cells for %d columns", i, len(row), len(columns)))
		}
		for j, cell := range row {
			data[columns[j]][i] = cell
		}
	}
	return build(append([]string(nil), columns...), data, len(rows), schema)
}

// FromRecords builds a DataSet from a list of records. Column order follows
// first appearance across the records.
func FromRecords(records []map[string]interface{}, schema Schema) (*DataSet, error) {
	var columns []string
	seen := make(map[string]bool)
	for _, r := range records {
		keys := make([]string, 0, len(r))
		for k := range r {
			if !seen[k] {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			seen[k] = true
			columns = append(columns, k)
		}
	}
	data := make(map[string][]interface{}, len(columns))
	for _, c := range columns {
		col := make([]interface{}, len(records))
		for i, r := range records {
			col[i] = r[c]
		}
		data[c] = col
	}
	return build(columns, data, len(records), schema)
}

// FromColumns builds a DataSet from a dict of columns. Columns are ordered by
// name; all columns must have the same length.
func FromColumns(cols map[string][]interface{}, schema Schema) (*DataSet, error) {
	columns := make([]string, 0, len(cols))
	for c := range cols {
		columns = append(columns, c)
	}
	sort.Strings(columns)

	n := -1
	data := make(map[string][]interface{}, len(cols))
	for _, c := range columns {
		if n >= 0 && len(cols[c]) != n {
			return nil, errors.InvalidInput(fmt.Sprintf("column %q has %d values, expected %d", c, len(cols[c]), n))
		}
		n = len(cols[c])
		data[c] = append([]interface{}(nil), cols[c]...)
	}
	if n < 0 {
		n = 0
	}
	return build(columns, data, n, schema)
}

func build(columns []string, data map[string][]interface{}, rows int, schema Schema) (*DataSet, error) {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}

	var forbidden, missing []string
	for _, c := range schema.Forbidden {
		if present[c] {
			forbidden = append(forbidden, c)
		}
	}
	for _, c := range schema.Required {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	if len(forbidden) > 0 || len(missing) > 0 {
		return nil, core.NewSchemaError(missing, forbidden)
	}

	for _, c := range schema.Datetime {
		col, ok := data[c]
		if !ok {
			continue
		}
		for i, v := range col {
			t, err := CoerceTime(v)
			if err != nil {
				return nil, errors.Wrapf(errors.InvalidInput(err.Error()), "column %q row %d", c, i)
			}
			col[i] = t
		}
	}
	for _, c := range schema.String {
		col, ok := data[c]
		if !ok {
			continue
		}
		for i, v := range col {
			col[i] = CoerceString(v)
		}
	}

	ds := &DataSet{schema: schema, columns: columns, data: data, rows: rows}
	if schema.Index != "" {
		if !present[schema.Index] {
			return nil, errors.InvalidInput(fmt.Sprintf("index column %q could not be set: column absent", schema.Index))
		}
		ds.index = data[schema.Index]
		ds.indexName = schema.Index
		delete(ds.data, schema.Index)
		ds.columns = removeString(ds.columns, schema.Index)
	}
	return ds, nil
}

// Schema returns the schema the DataSet was validated against.
func (d *DataSet) Schema() Schema { return d.schema }

// Len returns the row count.
func (d *DataSet) Len() int { return d.rows }

// Columns returns the column names in order.
func (d *DataSet) Columns() []string { return append([]string(nil), d.columns...) }

// HasColumn reports whether the column exists.
func (d *DataSet) HasColumn(name string) bool {
	_, ok := d.data[name]
	return ok
}

// Column returns the cells of a column, or nil if absent. The slice is
// shared; callers must not modify it.
func (d *DataSet) Column(name string) []interface{} { return d.data[name] }

// Index returns the index values and column name, if an index was set.
func (d *DataSet) Index() ([]interface{}, string) { return d.index, d.indexName }

// Value returns one cell.
func (d *DataSet) Value(row int, column string) interface{} {
	col, ok := d.data[column]
	if !ok || row < 0 || row >= d.rows {
		return nil
	}
	return col[row]
}

// Row returns a copy of one row as a record.
func (d *DataSet) Row(i int) map[string]interface{} {
	r := make(map[string]interface{}, len(d.columns))
	for _, c := range d.columns {
		r[c] = d.data[c][i]
	}
	return r
}

// Times returns a datetime column as timestamps; nil cells are zero times.
func (d *DataSet) Times(column string) ([]time.Time, error) {
	col, ok := d.data[column]
	if !ok {
		return nil, core.NewSchemaError([]string{column}, nil)
	}
	out := make([]time.Time, len(col))
	for i, v := range col {
		if v == nil {
			continue
		}
		t, ok := v.(time.Time)
		if !ok {
			return nil, errors.InvalidInput(fmt.Sprintf("column %q row %d is %T, not a timestamp", column, i, v))
		}
		out[i] = t
	}
	return out, nil
}

// Strings returns a column in string form.
func (d *DataSet) Strings(column string) ([]string, error) {
	col, ok := d.data[column]
	if !ok {
		return nil, core.NewSchemaError([]string{column}, nil)
	}
	out := make([]string, len(col))
	for i, v := range col {
		out[i] = CoerceString(v)
	}
	return out, nil
}

// Unique returns the distinct values of a column in order of first appearance.
func (d *DataSet) Unique(column string) []interface{} {
	var out []interface{}
	seen := make(map[string]bool)
	for _, v := range d.data[column] {
		k := Key(v)
		if !seen[k] {
			seen[k] = true
			out = append(out, v)
		}
	}
	return out
}

// Filter returns the rows where mask is true.
func (d *DataSet) Filter(mask []bool) (*DataSet, error) {
	if len(mask) != d.rows {
		return nil, errors.InvalidInput(fmt.Sprintf("mask has %d entries for %d rows", len(mask), d.rows))
	}
	keep := make([]int, 0, d.rows)
	for i, m := range mask {
		if m {
			keep = append(keep, i)
		}
	}
	return d.take(keep), nil
}

// FilterIn returns the rows whose column value is in values.
func (d *DataSet) FilterIn(column string, values []interface{}) (*DataSet, error) {
	mask, err := d.InMask(column, values)
	if err != nil {
		return nil, err
	}
	return d.Filter(mask)
}

// InMask computes set membership of a column against values.
func (d *DataSet) InMask(column string, values []interface{}) ([]bool, error) {
	col, ok := d.data[column]
	if !ok {
		return nil, core.NewSchemaError([]string{column}, nil)
	}
	allowed := make(map[string]bool, len(values))
	for _, v := range values {
		allowed[Key(v)] = true
	}
	mask := make([]bool, len(col))
	for i, v := range col {
		mask[i] = allowed[Key(v)]
	}
	return mask, nil
}

// LimitByList keeps only rows whose column value is in values and returns
// the excluded rows.
func (d *DataSet) LimitByList(column string, values []interface{}) (*DataSet, error) {
	mask, err := d.InMask(column, values)
	if err != nil {
		return nil, err
	}
	var kept, excluded []int
	for i, m := range mask {
		if m {
			kept = append(kept, i)
		} else {
			excluded = append(excluded, i)
		}
	}
	out := d.take(excluded)
	*d = *d.take(kept)
	return out, nil
}

// Select returns a DataSet with only the named columns, re-validated against
// the schema.
func (d *DataSet) Select(columns ...string) (*DataSet, error) {
	data := make(map[string][]interface{}, len(columns))
	for _, c := range columns {
		col, ok := d.data[c]
		if !ok {
			return nil, core.NewSchemaError([]string{c}, nil)
		}
		data[c] = append([]interface{}(nil), col...)
	}
	return build(append([]string(nil), columns...), data, d.rows, d.schema)
}

// Rename returns a DataSet with columns renamed by mapping; columns not in the
// mapping keep their names. The result is validated against schema.
func (d *DataSet) Rename(mapping map[string]string, schema Schema) (*DataSet, error) {
	columns := make([]string, len(d.columns))
	data := make(map[string][]interface{}, len(d.columns))
	for i, c := range d.columns {
		name := c
		if to, ok := mapping[c]; ok {
			name = to
		}
		if _, dup := data[name]; dup {
			return nil, errors.InvalidInput(fmt.Sprintf("rename produces duplicate column %q", name))
		}
		columns[i] = name
		data[name] = append([]interface{}(nil), d.data[c]...)
	}
	return build(columns, data, d.rows, schema)
}

// As re-validates the DataSet against another schema.
func (d *DataSet) As(schema Schema) (*DataSet, error) {
	return d.Rename(nil, schema)
}

// WithColumn returns a copy with a column added or replaced.
func (d *DataSet) WithColumn(name string, values []interface{}) (*DataSet, error) {
	if len(values) != d.rows {
		return nil, errors.InvalidInput(fmt.Sprintf("column %q has %d values for %d rows", name, len(values), d.rows))
	}
	out := d.take(seq(d.rows))
	if !out.HasColumn(name) {
		out.columns = append(out.columns, name)
	}
	out.data[name] = append([]interface{}(nil), values...)
	return out, nil
}

// ValidateColumn reports whether fn holds for every cell of the column.
func (d *DataSet) ValidateColumn(column string, fn func(interface{}) bool) bool {
	col, ok := d.data[column]
	if !ok {
		return false
	}
	for _, v := range col {
		if !fn(v) {
			return false
		}
	}
	return true
}

// Concat stacks DataSets vertically over the union of their columns, in
// first-appearance order. Missing cells are nil.
func Concat(schema Schema, parts ...*DataSet) (*DataSet, error) {
	var columns []string
	seen := make(map[string]bool)
	total := 0
	for _, p := range parts {
		for _, c := range p.columns {
			if !seen[c] {
				seen[c] = true
				columns = append(columns, c)
			}
		}
		total += p.rows
	}
	data := make(map[string][]interface{}, len(columns))
	for _, c := range columns {
		col := make([]interface{}, 0, total)
		for _, p := range parts {
			if src, ok := p.data[c]; ok {
				col = append(col, src...)
			} else {
				col = append(col, make([]interface{}, p.rows)...)
			}
		}
		data[c] = col
	}
	return build(columns, data, total, schema)
}

func (d *DataSet) take(rows []int) *DataSet {
	data := make(map[string][]interface{}, len(d.data))
	for c, col := range d.data {
		out := make([]interface{}, len(rows))
		for i, r := range rows {
			out[i] = col[r]
		}
		data[c] = out
	}
	var index []interface{}
	if d.index != nil {
		index = make([]interface{}, len(rows))
		for i, r := range rows {
			index[i] = d.index[r]
		}
	}
	return &DataSet{
		schema:    d.schema,
		columns:   append([]string(nil), d.columns...),
		data:      data,
		index:     index,
		indexName: d.indexName,
		rows:      len(rows),
	}
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func removeString(xs []string, s string) []string {
	out := xs[:0]
	for _, x := range xs {
		if x != s {
			out = append(out, x)
		}
	}
	return out
}
