// Package staffing translates scheduled provider assignments into activity
// tables and staffing capacity over time.
package staffing

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tiva/domain/core"
	"tiva/internal/activity"
	"tiva/internal/errors"
)

// ProviderShift is a recurring shift. Start is the offset from midnight of
// the assignment date. Capacity weights the shift, e.g. 1.0 for an attending
// and less for a trainee.
type ProviderShift struct {
	Label    string
	Start    time.Duration
	Duration time.Duration
	Capacity float64
}

func (s ProviderShift) String() string {
	return fmt.Sprintf("<ProviderShift: %q, start=%s, duration=%s, capacity=%g>", s.Label, s.Start, s.Duration, s.Capacity)
}

// End is the offset at which the shift finishes.
func (s ProviderShift) End() time.Duration { return s.Start + s.Duration }

// Contains reports whether offset falls within the shift under bounds.
func (s ProviderShift) Contains(offset time.Duration, bounds activity.Bounds) bool {
	base := time.Time{}
	return bounds.Contains(base.Add(s.Start), base.Add(s.End()), base.Add(offset))
}

// Slot is one step of a shift worked on a given date.
type Slot struct {
	Label    string
	Date     time.Time
	At       time.Time
	Capacity float64
}

// Slots lists the shift on date in steps of freq, excluding the end.
// A ten hour shift at thirty minutes yields 20 slots.
func (s ProviderShift) Slots(date time.Time, freq time.Duration) []Slot {
	if freq <= 0 {
		return nil
	}
	var out []Slot
	for off := s.Start; off < s.End(); off += freq {
		out = append(out, Slot{Label: s.Label, Date: date, At: date.Add(off), Capacity: s.Capacity})
	}
	return out
}

// Shifts is a collection of shift definitions.
type Shifts []ProviderShift

// Lookup finds the shift whose label matches, ignoring case.
func (ss Shifts) Lookup(label string) (ProviderShift, error) {
	var (
		found   ProviderShift
		matches []string
	)
	for _, s := range ss {
		if strings.EqualFold(s.Label, label) {
			if len(matches) == 0 {
				found = s
			}
			matches = append(matches, s.String())
		}
	}
	switch len(matches) {
	case 0:
		return ProviderShift{}, &core.KeyNotFoundError{Label: label}
	case 1:
		return found, nil
	default:
		return ProviderShift{}, &core.MultipleMatchError{Label: label, Matches: matches}
	}
}

// Labels returns the shift labels in order.
func (ss Shifts) Labels() []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.Label
	}
	return out
}

// EarliestStart returns the earliest shift start offset.
func (ss Shifts) EarliestStart() (time.Duration, error) {
	if len(ss) == 0 {
		return 0, core.NewEmptyInputError("shift collection")
	}
	earliest := ss[0].Start
	for _, s := range ss[1:] {
		if s.Start < earliest {
			earliest = s.Start
		}
	}
	return earliest, nil
}

// LatestEnd returns the latest shift end offset.
func (ss Shifts) LatestEnd() (time.Duration, error) {
	if len(ss) == 0 {
		return 0, core.NewEmptyInputError("shift collection")
	}
	latest := ss[0].End()
	for _, s := range ss[1:] {
		if s.End() > latest {
			latest = s.End()
		}
	}
	return latest, nil
}

type shiftFile struct {
	Shifts []struct {
		Label    string
		Start    string
		Duration string
		Capacity *float64
	}
}

// ParseShifts reads shift definitions from YAML:
//
//	shifts:
//	  - label: OR1
//	    start: "07:00"
//	    duration: 10h
//	    capacity: 1
//
// Capacity defaults to 1.
func ParseShifts(data []byte) (Shifts, error) {
	var f shiftFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &errors.AppError{Code: errors.CodeConfigInvalid, Message: "shift definitions are not valid YAML", Cause: err}
	}
	out := make(Shifts, 0, len(f.Shifts))
	for _, raw := range f.Shifts {
		start, err := parseClock(raw.Start)
		if err != nil {
			return nil, errors.ConfigInvalid(fmt.Sprintf("shift %q: start %q: %v", raw.Label, raw.Start, err))
		}
		dur, err := time.ParseDuration(raw.Duration)
		if err != nil {
			return nil, errors.ConfigInvalid(fmt.Sprintf("shift %q: duration %q: %v", raw.Label, raw.Duration, err))
		}
		capacity := 1.0
		if raw.Capacity != nil {
			capacity = *raw.Capacity
		}
		out = append(out, ProviderShift{Label: raw.Label, Start: start, Duration: dur, Capacity: capacity})
	}
	return out, nil
}

// LoadShifts reads shift definitions from a YAML file.
func LoadShifts(path string) (Shifts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IOError("reading shift definitions", err)
	}
	return ParseShifts(data)
}

// parseClock accepts "HH:MM" or a Go duration such as "7h30m".
func parseClock(s string) (time.Duration, error) {
	if t, err := time.Parse("15:04", s); err == nil {
		return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
	}
	return time.ParseDuration(s)
}
