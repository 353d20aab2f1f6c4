// Package study manages a group of anesthesia records: cases, their timed
// events and medication administrations. It limits the study by date and
// procedure, extracts activities from events and medications, and
// unduplicates them per case.
package study

import (
	"fmt"
	"strings"
	"time"

	"tiva/internal/activity"
	"tiva/internal/dataset"
	"tiva/internal/errors"
)

// Column names shared by the study data sets.
const (
	CaseIDColumn          = "case_id"
	AnesthesiaStartColumn = "anesthesia_start"
	AnesthesiaEndColumn   = "anesthesia_end"
	ProcedureColumn       = "procedure"
	EventLabelColumn      = "event_label"
	EventTimeColumn       = "event_datetime"
	MedicationTimeColumn  = "med_datetime"
)

var (
	// CaseSchema: one row per anesthesia case.
	CaseSchema = dataset.Schema{
		Required: []string{CaseIDColumn, AnesthesiaStartColumn, AnesthesiaEndColumn, ProcedureColumn},
		Datetime: []string{AnesthesiaStartColumn, AnesthesiaEndColumn},
		String:   []string{CaseIDColumn, ProcedureColumn},
	}
	// EventSchema: timed, labelled events within a case.
	EventSchema = dataset.Schema{
		Required: []string{CaseIDColumn, EventLabelColumn, EventTimeColumn},
		Datetime: []string{EventTimeColumn},
		String:   []string{CaseIDColumn, EventLabelColumn},
	}
	// MedicationSchema: medication administrations within a case.
	MedicationSchema = dataset.Schema{
		Required: []string{CaseIDColumn, MedicationTimeColumn},
		Datetime: []string{MedicationTimeColumn},
		String:   []string{CaseIDColumn},
	}
)

// Cases holds anesthesia cases.
type Cases struct{ ds *dataset.DataSet }

// NewCases validates ds against CaseSchema.
func NewCases(ds *dataset.DataSet) (*Cases, error) {
	v, err := ds.As(CaseSchema)
	if err != nil {
		return nil, err
	}
	return &Cases{ds: v}, nil
}

func (c *Cases) DataSet() *dataset.DataSet { return c.ds }
func (c *Cases) Len() int                  { return c.ds.Len() }

// IDs returns the distinct case identifiers.
func (c *Cases) IDs() []interface{} { return c.ds.Unique(CaseIDColumn) }

// LimitByProcedures keeps the cases whose procedure is listed and returns the
// excluded cases. Matching ignores case unless caseSensitive is set.
func (c *Cases) LimitByProcedures(procedures []string, caseSensitive bool) (*dataset.DataSet, error) {
	allowed := make(map[string]bool, len(procedures))
	for _, p := range procedures {
		if !caseSensitive {
			p = strings.ToUpper(p)
		}
		allowed[p] = true
	}
	procs, err := c.ds.Strings(ProcedureColumn)
	if err != nil {
		return nil, err
	}
	keep := make([]bool, len(procs))
	for i, p := range procs {
		if !caseSensitive {
			p = strings.ToUpper(p)
		}
		keep[i] = allowed[p]
	}
	return c.split(keep)
}

// LimitByStart keeps the cases whose anesthesia start lies between from and
// to and returns the excluded cases. A zero bound is open.
func (c *Cases) LimitByStart(from, to time.Time, fromInclusive, toInclusive bool) (*dataset.DataSet, error) {
	starts, err := c.ds.Times(AnesthesiaStartColumn)
	if err != nil {
		return nil, err
	}
	keep := make([]bool, len(starts))
	for i, s := range starts {
		ok := true
		if !from.IsZero() {
			ok = s.After(from) || (fromInclusive && s.Equal(from))
		}
		if ok && !to.IsZero() {
			ok = s.Before(to) || (toInclusive && s.Equal(to))
		}
		keep[i] = ok
	}
	return c.split(keep)
}

// StartRange returns the earliest and latest anesthesia start.
func (c *Cases) StartRange() (time.Time, time.Time, error) {
	starts, err := c.ds.Times(AnesthesiaStartColumn)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	var lo, hi time.Time
	for _, s := range starts {
		if s.IsZero() {
			continue
		}
		if lo.IsZero() || s.Before(lo) {
			lo = s
		}
		if hi.IsZero() || s.After(hi) {
			hi = s
		}
	}
	return lo, hi, nil
}

// ToActivity renders each case as one activity spanning anesthesia start to
// end, labelled label.
func (c *Cases) ToActivity(label string, opts ...activity.Option) (*activity.Table, error) {
	withLabel, err := c.ds.WithColumn(activity.CategoryColumn, repeat(label, c.ds.Len()))
	if err != nil {
		return nil, err
	}
	opts = append(opts, activity.WithColumnMap(map[string]string{
		AnesthesiaStartColumn: activity.StartColumn,
		AnesthesiaEndColumn:   activity.EndColumn,
	}))
	return activity.FromDataSet(withLabel, opts...)
}

func (c *Cases) split(keep []bool) (*dataset.DataSet, error) {
	drop := make([]bool, len(keep))
	for i, k := range keep {
		drop[i] = !k
	}
	excluded, err := c.ds.Filter(drop)
	if err != nil {
		return nil, err
	}
	kept, err := c.ds.Filter(keep)
	if err != nil {
		return nil, err
	}
	c.ds = kept
	return excluded, nil
}

// Events holds timed case events such as "Patient in Room".
type Events struct{ ds *dataset.DataSet }

// NewEvents validates ds against EventSchema.
func NewEvents(ds *dataset.DataSet) (*Events, error) {
	v, err := ds.As(EventSchema)
	if err != nil {
		return nil, err
	}
	return &Events{ds: v}, nil
}

func (e *Events) DataSet() *dataset.DataSet { return e.ds }
func (e *Events) Len() int                  { return e.ds.Len() }

// Medications holds medication administrations.
type Medications struct{ ds *dataset.DataSet }

// NewMedications validates ds against MedicationSchema.
func NewMedications(ds *dataset.DataSet) (*Medications, error) {
	v, err := ds.As(MedicationSchema)
	if err != nil {
		return nil, err
	}
	return &Medications{ds: v}, nil
}

func (m *Medications) DataSet() *dataset.DataSet { return m.ds }
func (m *Medications) Len() int                  { return m.ds.Len() }

// ToActivity turns every administration into an activity running from
// before the administration to after it. Every other column is carried as
// a payload attribute.
func (m *Medications) ToActivity(label string, before, after time.Duration, opts ...activity.Option) (*activity.Table, error) {
	times, err := m.ds.Times(MedicationTimeColumn)
	if err != nil {
		return nil, err
	}
	for i, ts := range times {
		if ts.IsZero() {
			return nil, errors.InvalidInput(fmt.Sprintf("medication row %d: missing %s", i, MedicationTimeColumn))
		}
	}
	categories := repeatString(label, len(times))
	attrs := make([]map[string]interface{}, len(times))
	for i := range attrs {
		row := m.ds.Row(i)
		delete(row, MedicationTimeColumn)
		attrs[i] = row
	}
	return activity.FromPoints(times, categories, attrs, before, after, opts...)
}

func repeat(v interface{}, n int) []interface{} {
	out := make([]interface{}, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func repeatString(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}
