package study

import (
	"sort"
	"strings"
	"time"

	"tiva/internal/activity"
	"tiva/internal/dataset"
)

// EventDefinition derives an activity from a pair of events: a StartEvent
// immediately followed, within the same case, by an EndEvent.
type EventDefinition struct {
	Label         string        `yaml:"label"`
	StartEvent    string        `yaml:"event_start"`
	EndEvent      string        `yaml:"event_end"`
	CaseSensitive bool          `yaml:"case_sensitive"`
	OffsetStart   time.Duration `yaml:"offset_start"`
	OffsetEnd     time.Duration `yaml:"offset_end"`
	// MaxDurationQuantile and MaxDurationFactor cap durations at
	// quantile * factor. Zero means 1; a 1/1 pair applies no cap.
	MaxDurationQuantile float64 `yaml:"max_duration_quantile"`
	MaxDurationFactor   float64 `yaml:"max_duration_factor"`
}

type event struct {
	caseID string
	label  string
	at     time.Time
}

// Apply extracts the defined activity from events. Each emitted record
// carries the case id.
func (d EventDefinition) Apply(events *Events, opts ...activity.Option) (*activity.Table, error) {
	ds := events.ds
	ids, err := ds.Strings(CaseIDColumn)
	if err != nil {
		return nil, err
	}
	labels, err := ds.Strings(EventLabelColumn)
	if err != nil {
		return nil, err
	}
	times, err := ds.Times(EventTimeColumn)
	if err != nil {
		return nil, err
	}

	norm := func(s string) string {
		if d.CaseSensitive {
			return s
		}
		return strings.ToLower(s)
	}
	start, end := norm(d.StartEvent), norm(d.EndEvent)

	caseOrder := make(map[string]int)
	var targets []event
	for i, l := range labels {
		l = norm(l)
		if (l != start && l != end) || times[i].IsZero() {
			continue
		}
		if _, ok := caseOrder[ids[i]]; !ok {
			caseOrder[ids[i]] = len(caseOrder)
		}
		targets = append(targets, event{caseID: ids[i], label: l, at: times[i]})
	}
	sort.SliceStable(targets, func(i, j int) bool {
		a, b := targets[i], targets[j]
		if a.caseID != b.caseID {
			return caseOrder[a.caseID] < caseOrder[b.caseID]
		}
		return a.at.Before(b.at)
	})

	var records []activity.Record
	for i := 0; i+1 < len(targets); i++ {
		cur, next := targets[i], targets[i+1]
		if cur.caseID == next.caseID && cur.label == start && next.label == end {
			records = append(records, activity.Record{
				Start:    cur.at,
				End:      next.at,
				Category: d.Label,
				Attrs:    map[string]interface{}{CaseIDColumn: cur.caseID},
			})
		}
	}

	t, err := activity.NewTable(records, opts...)
	if err != nil {
		return nil, err
	}
	if d.OffsetStart != 0 {
		t = t.ApplyOffset(d.OffsetStart, true)
	}
	if d.OffsetEnd != 0 {
		t = t.ApplyOffset(d.OffsetEnd, false)
	}

	q, f := d.MaxDurationQuantile, d.MaxDurationFactor
	if q == 0 {
		q = 1
	}
	if f == 0 {
		f = 1
	}
	if (q != 1 || f != 1) && t.Len() > 0 {
		t, _, err = t.CapDurationByQuantile(q, f)
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}

// caseFilter keeps the rows of ds whose case id is allowed.
func caseFilter(ds *dataset.DataSet, allowed []interface{}) (*dataset.DataSet, error) {
	return ds.FilterIn(CaseIDColumn, allowed)
}
