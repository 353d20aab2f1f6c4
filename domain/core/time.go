package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Resolution is the width of the time buckets timestamps are snapped to.
// Buckets are aligned to the Unix epoch.
type Resolution time.Duration

// DefaultResolution is one minute.
const DefaultResolution = Resolution(time.Minute)

// Duration returns the underlying time.Duration
func (r Resolution) Duration() time.Duration { return time.Duration(r) }

func (r Resolution) String() string { return time.Duration(r).String() }

// Validate rejects non-positive resolutions.
func (r Resolution) Validate() error {
	if r <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidResolution, time.Duration(r))
	}
	return nil
}

// Floor snaps t down to the nearest bucket boundary.
func (r Resolution) Floor(t time.Time) time.Time {
	if r <= 0 {
		return t
	}
	ns := t.UnixNano()
	step := int64(r)
	q := ns / step
	if ns%step != 0 && ns < 0 {
		q--
	}
	return time.Unix(0, q*step).In(t.Location())
}

// Ceil snaps t up to the nearest bucket boundary. Values already on a
// boundary are unchanged.
func (r Resolution) Ceil(t time.Time) time.Time {
	f := r.Floor(t)
	if f.Equal(t) {
		return f
	}
	return f.Add(time.Duration(r))
}

// pandas-style frequency aliases seen in study configs
var resolutionUnits = map[string]time.Duration{
	"ns":  time.Nanosecond,
	"us":  time.Microsecond,
	"ms":  time.Millisecond,
	"s":   time.Second,
	"sec": time.Second,
	"t":   time.Minute,
	"min": time.Minute,
	"m":   time.Minute,
	"h":   time.Hour,
	"d":   24 * time.Hour,
}

// ParseResolution accepts Go durations ("90s", "1m") and frequency aliases
// ("1Min", "T", "15min", "1H", "D").
func ParseResolution(s string) (Resolution, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidResolution)
	}
	if d, err := time.ParseDuration(s); err == nil {
		r := Resolution(d)
		return r, r.Validate()
	}

	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	n := 1
	if i > 0 {
		v, err := strconv.Atoi(s[:i])
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidResolution, s)
		}
		n = v
	}
	unit, ok := resolutionUnits[strings.ToLower(s[i:])]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit in %q", ErrInvalidResolution, s)
	}
	r := Resolution(time.Duration(n) * unit)
	return r, r.Validate()
}

// MustParseResolution panics on invalid input. For constants and tests.
func MustParseResolution(s string) Resolution {
	r, err := ParseResolution(s)
	if err != nil {
		panic(err)
	}
	return r
}
