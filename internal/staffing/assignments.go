package staffing

import (
	"errors"
	"sort"
	"time"

	"tiva/domain/core"
	"tiva/internal"
	"tiva/internal/activity"
	"tiva/internal/dataset"
)

// Assignment columns.
const (
	AssignmentColumn = "assignment"
	DateColumn       = "date"
	StaffColumn      = "staff"
	PersonnelColumn  = "personnel"
	CapacityColumn   = "capacity"
)

// AssignmentSchema is the schema of scheduled assignments: which shift was
// worked on which date, and optionally by whom.
var AssignmentSchema = dataset.Schema{
	Required: []string{AssignmentColumn, DateColumn},
	Datetime: []string{DateColumn},
	String:   []string{AssignmentColumn},
}

// Assignments are scheduled resources.
type Assignments struct {
	ds     *dataset.DataSet
	logger *internal.Logger
}

// NewAssignments validates ds against AssignmentSchema.
func NewAssignments(ds *dataset.DataSet) (*Assignments, error) {
	v, err := ds.As(AssignmentSchema)
	if err != nil {
		return nil, err
	}
	return &Assignments{ds: v, logger: internal.DefaultLogger.With("Staffing")}, nil
}

// Len returns the number of assignments.
func (a *Assignments) Len() int { return a.ds.Len() }

// DataSet returns the underlying rows.
func (a *Assignments) DataSet() *dataset.DataSet { return a.ds }

// LimitToShifts keeps only assignments naming a known shift and returns the
// excluded ones.
func (a *Assignments) LimitToShifts(shifts Shifts) (*Assignments, error) {
	labels := make([]interface{}, len(shifts))
	for i, l := range shifts.Labels() {
		labels[i] = l
	}
	excluded, err := a.ds.LimitByList(AssignmentColumn, labels)
	if err != nil {
		return nil, err
	}
	return &Assignments{ds: excluded, logger: a.logger}, nil
}

// ToActivity turns each assignment into an activity spanning its shift on
// the assignment date. Assignments naming no known shift are skipped; an
// ambiguous label is an error.
func (a *Assignments) ToActivity(shifts Shifts, opts ...activity.Option) (*activity.Table, error) {
	names, err := a.ds.Strings(AssignmentColumn)
	if err != nil {
		return nil, err
	}
	dates, err := a.ds.Times(DateColumn)
	if err != nil {
		return nil, err
	}

	var records []activity.Record
	skipped := 0
	for i, name := range names {
		s, err := shifts.Lookup(name)
		if errors.Is(err, core.ErrKeyNotFound) {
			skipped++
			continue
		}
		if err != nil {
			return nil, err
		}
		var staff interface{}
		if a.ds.HasColumn(StaffColumn) {
			staff = a.ds.Value(i, StaffColumn)
		}
		start := dates[i].Add(s.Start)
		records = append(records, activity.Record{
			Start:    start,
			End:      start.Add(s.Duration),
			Category: s.Label,
			Attrs:    map[string]interface{}{PersonnelColumn: staff, CapacityColumn: s.Capacity},
		})
	}
	if skipped > 0 {
		a.logger.Warn("%d of %d assignments name no known shift", skipped, len(names))
	}
	return activity.NewTable(records, opts...)
}

// CapacityPoint is the summed capacity on duty at At.
type CapacityPoint struct {
	At       time.Time
	Capacity float64
}

// CapacitySeries is staffing capacity on a uniform grid.
type CapacitySeries struct {
	Step   time.Duration
	Points []CapacityPoint
}

// At returns the capacity at grid timestamp ts, zero off the grid.
func (c *CapacitySeries) At(ts time.Time) float64 {
	i := sort.Search(len(c.Points), func(i int) bool { return !c.Points[i].At.Before(ts) })
	if i < len(c.Points) && c.Points[i].At.Equal(ts) {
		return c.Points[i].Capacity
	}
	return 0
}

// Capacity sums the capacity of every assigned shift per slot of freq and
// zero-fills the grid between from and to. Zero from/to default to the
// first and last slot.
func (a *Assignments) Capacity(shifts Shifts, freq time.Duration, from, to time.Time) (*CapacitySeries, error) {
	if freq <= 0 {
		return nil, core.ErrInvalidResolution
	}
	names, err := a.ds.Strings(AssignmentColumn)
	if err != nil {
		return nil, err
	}
	dates, err := a.ds.Times(DateColumn)
	if err != nil {
		return nil, err
	}

	sums := make(map[int64]float64)
	var lo, hi time.Time
	for i, name := range names {
		s, err := shifts.Lookup(name)
		if err != nil {
			return nil, err
		}
		for _, slot := range s.Slots(dates[i], freq) {
			sums[slot.At.UnixNano()] += slot.Capacity
			if lo.IsZero() || slot.At.Before(lo) {
				lo = slot.At
			}
			if hi.IsZero() || slot.At.After(hi) {
				hi = slot.At
			}
		}
	}
	if !from.IsZero() {
		lo = from
	}
	if !to.IsZero() {
		hi = to
	}
	out := &CapacitySeries{Step: freq}
	if lo.IsZero() || hi.IsZero() {
		return out, nil
	}
	for ts := lo; !ts.After(hi); ts = ts.Add(freq) {
		out.Points = append(out.Points, CapacityPoint{At: ts, Capacity: sums[ts.UnixNano()]})
	}
	return out, nil
}
