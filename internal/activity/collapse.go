package activity

import (
	"fmt"
	"time"

	"tiva/domain/core"
)

// TrailingSpanPolicy decides what Collapse does with a series that ends while
// its count is still positive.
type TrailingSpanPolicy int

const (
	// TrailingSpanClose ends the open span one step after the last sample.
	TrailingSpanClose TrailingSpanPolicy = iota
	// TrailingSpanError rejects the series with ErrUnclosedSpan.
	TrailingSpanError
)

// ParseTrailingSpanPolicy parses "close" or "error".
func ParseTrailingSpanPolicy(s string) (TrailingSpanPolicy, error) {
	switch s {
	case "", "close":
		return TrailingSpanClose, nil
	case "error":
		return TrailingSpanError, nil
	}
	return 0, fmt.Errorf("unknown trailing span policy %q", s)
}

func (p TrailingSpanPolicy) String() string {
	if p == TrailingSpanError {
		return "error"
	}
	return "close"
}

// Span is one maximal busy interval [Start, End).
type Span struct {
	Start time.Time
	End   time.Time
}

// Duration is End - Start.
func (s Span) Duration() time.Duration { return s.End.Sub(s.Start) }

// Collapse extracts the maximal spans where the series count is positive.
// The sample before the first is taken to be zero. Spans are disjoint and in
// time order.
func Collapse(s *Series, policy TrailingSpanPolicy) ([]Span, error) {
	var (
		spans []Span
		open  time.Time
		busy  bool
		prev  int
	)
	for _, p := range s.Samples {
		switch {
		case p.Count > 0 && prev <= 0:
			open, busy = p.Timestamp, true
		case p.Count == 0 && prev > 0:
			spans = append(spans, Span{Start: open, End: p.Timestamp})
			busy = false
		}
		prev = p.Count
	}
	if busy {
		last := s.Samples[len(s.Samples)-1].Timestamp
		if policy == TrailingSpanError {
			return nil, fmt.Errorf("series ends busy at %s: %w", last.Format(time.RFC3339), core.ErrUnclosedSpan)
		}
		spans = append(spans, Span{Start: open, End: last.Add(s.Step.Duration())})
	}
	return spans, nil
}
