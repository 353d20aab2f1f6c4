package study

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tiva/domain/core"
	"tiva/internal"
	"tiva/internal/activity"
	"tiva/internal/dataset"
)

// Study holds the cases of one analysis together with their events and
// medications. Events and Medications may be nil.
type Study struct {
	ID          core.RunID
	Cases       *Cases
	Events      *Events
	Medications *Medications
	// Activity is the activity table extracted by Process.
	Activity *activity.Table

	resolution   core.Resolution
	parallelism  int
	unduplicated *activity.Table
	logger       *internal.Logger
}

// New creates a study over cases and optional events and medications.
func New(cases *Cases, events *Events, meds *Medications) *Study {
	return &Study{
		ID:          core.NewRunID(),
		Cases:       cases,
		Events:      events,
		Medications: meds,
		resolution:  core.DefaultResolution,
		logger:      internal.DefaultLogger.With("Study"),
	}
}

// WithResolution sets the resolution of extracted activity tables.
func (s *Study) WithResolution(r core.Resolution) *Study {
	s.resolution = r
	return s
}

// WithParallelism bounds how many strata Unduplicate runs at once.
func (s *Study) WithParallelism(n int) *Study {
	s.parallelism = n
	return s
}

// Reader loads a data set from a file source.
type Reader interface {
	Read(path, sheet string) (*dataset.DataSet, error)
}

// Load reads every configured source, renames and optionally narrows its
// columns, and builds a study from the result.
func Load(cfg DataConfig, r Reader) (*Study, error) {
	if cfg.Cases == nil {
		return nil, core.NewEmptyInputError("study configuration names no case source")
	}
	read := func(name string, src *Source, schema dataset.Schema) (*dataset.DataSet, error) {
		ds, err := r.Read(src.Path, src.Sheet)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if len(src.ColumnMap) > 0 {
			if ds, err = ds.Rename(src.ColumnMap, dataset.Schema{}); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			if src.LimitColumns {
				cols := make([]string, 0, len(src.ColumnMap))
				for _, c := range ds.Columns() {
					for _, to := range src.ColumnMap {
						if c == to {
							cols = append(cols, c)
							break
						}
					}
				}
				if ds, err = ds.Select(cols...); err != nil {
					return nil, fmt.Errorf("%s: %w", name, err)
				}
			}
		}
		v, err := ds.As(schema)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return v, nil
	}

	ds, err := read("cases", cfg.Cases, CaseSchema)
	if err != nil {
		return nil, err
	}
	st := New(&Cases{ds: ds}, nil, nil)
	if cfg.Events != nil {
		ds, err := read("events", cfg.Events, EventSchema)
		if err != nil {
			return nil, err
		}
		st.Events = &Events{ds: ds}
	}
	if cfg.Medications != nil {
		ds, err := read("medications", cfg.Medications, MedicationSchema)
		if err != nil {
			return nil, err
		}
		st.Medications = &Medications{ds: ds}
	}
	return st, nil
}

// propagate limits events and medications to the remaining cases.
func (s *Study) propagate() error {
	allowed := s.Cases.IDs()
	if s.Events != nil {
		ds, err := caseFilter(s.Events.ds, allowed)
		if err != nil {
			return err
		}
		s.Events.ds = ds
	}
	if s.Medications != nil {
		ds, err := caseFilter(s.Medications.ds, allowed)
		if err != nil {
			return err
		}
		s.Medications.ds = ds
	}
	return nil
}

// LimitByProcedures keeps cases with a listed procedure, limits the member
// data sets to those cases and returns the excluded cases.
func (s *Study) LimitByProcedures(procedures []string, caseSensitive bool) (*dataset.DataSet, error) {
	excluded, err := s.Cases.LimitByProcedures(procedures, caseSensitive)
	if err != nil {
		return nil, err
	}
	s.logger.Info("procedure limit kept %d cases, excluded %d", s.Cases.Len(), excluded.Len())
	return excluded, s.propagate()
}

// LimitByDates keeps cases whose anesthesia start lies in [from, to] (bounds
// inclusive as requested) and limits the member data sets to those cases.
func (s *Study) LimitByDates(from, to time.Time, fromInclusive, toInclusive bool) (*dataset.DataSet, error) {
	excluded, err := s.Cases.LimitByStart(from, to, fromInclusive, toInclusive)
	if err != nil {
		return nil, err
	}
	s.logger.Info("date limit kept %d cases, excluded %d", s.Cases.Len(), excluded.Len())
	return excluded, s.propagate()
}

// Process applies the case limits of cfg and extracts the configured
// activities into s.Activity. It returns each extracted table: medications
// first, then one per event definition.
func (s *Study) Process(cfg *Config) ([]*activity.Table, error) {
	if l := cfg.CaseLimits; l != nil {
		if l.AnesthesiaStartRange != nil {
			from, to, err := l.StartRange()
			if err != nil {
				return nil, err
			}
			if _, err := s.LimitByDates(from, to, true, true); err != nil {
				return nil, err
			}
		}
		if l.Procedures != nil {
			if _, err := s.LimitByProcedures(l.Procedures, l.CaseSensitive); err != nil {
				return nil, err
			}
		}
	}

	a := cfg.Activities
	if a == nil {
		return nil, nil
	}
	var tables []*activity.Table
	if a.MedicationOffsetBefore != nil && a.MedicationOffsetAfter != nil {
		if s.Medications == nil {
			return nil, core.NewEmptyInputError("medication offsets configured without medications")
		}
		label := a.MedicationLabel
		if label == "" {
			label = DefaultMedicationLabel
		}
		t, err := s.Medications.ToActivity(label, *a.MedicationOffsetBefore, *a.MedicationOffsetAfter, activity.WithResolution(s.resolution))
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	if len(a.EventDefinitions) > 0 {
		if s.Events == nil {
			return nil, core.NewEmptyInputError("event definitions configured without events")
		}
		for _, d := range a.EventDefinitions {
			t, err := d.Apply(s.Events, activity.WithResolution(s.resolution))
			if err != nil {
				return nil, fmt.Errorf("event definition %q: %w", d.Label, err)
			}
			s.logger.Debug("event definition %q produced %d activities", d.Label, t.Len())
			tables = append(tables, t)
		}
	}
	if len(tables) > 0 {
		all, err := activity.Concat(tables...)
		if err != nil {
			return nil, err
		}
		s.Activity = all
	}
	return tables, nil
}

// Unduplicate collapses the study's activity per stratum, case by default.
func (s *Study) Unduplicate(ctx context.Context, r *activity.Runner, strata []string, label string) (*activity.Table, error) {
	if s.Activity == nil {
		return nil, core.NewEmptyInputError("study has no extracted activity")
	}
	if strata == nil {
		strata = []string{CaseIDColumn}
	}
	out, err := r.Unduplicate(ctx, s.Activity, activity.RunOptions{
		Strata:      strata,
		Label:       label,
		Parallelism: s.parallelism,
	})
	if err != nil {
		return nil, err
	}
	s.unduplicated = out
	return out, nil
}

// UnduplicatedConcurrency unduplicates per stratum and samples the
// concurrency of the resulting spans across the whole study.
func (s *Study) UnduplicatedConcurrency(ctx context.Context, r *activity.Runner, strata []string, label string) (*activity.Series, error) {
	spans, err := s.Unduplicate(ctx, r, strata, label)
	if err != nil {
		return nil, err
	}
	return r.Sampler().Sample(ctx, spans)
}

// Unduplicated returns the result of the last Unduplicate call, or nil.
func (s *Study) Unduplicated() *activity.Table { return s.unduplicated }

// Summarize describes the study's extent and members.
func (s *Study) Summarize() string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Study %s ##\n", s.ID)
	if lo, hi, err := s.Cases.StartRange(); err == nil && !lo.IsZero() {
		fmt.Fprintf(&b, "cases[%s] range: %s to %s\n", AnesthesiaStartColumn, lo.Format("2006-01-02 15:04:05"), hi.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(&b, "cases (%d rows)", s.Cases.Len())
	if s.Events != nil {
		fmt.Fprintf(&b, "\nevents (%d rows)", s.Events.Len())
	}
	if s.Medications != nil {
		fmt.Fprintf(&b, "\nmedications (%d rows)", s.Medications.Len())
	}
	if s.Activity != nil {
		fmt.Fprintf(&b, "\nactivity: %s", s.Activity.Summary(5))
	}
	return b.String()
}
