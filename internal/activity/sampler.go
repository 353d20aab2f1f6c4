package activity

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"tiva/domain/core"
	"tiva/internal"
)

// Bounds selects which interval ends count as active. The default is
// half-open [start, end).
type Bounds struct {
	IncludeLeft  bool
	IncludeRight bool
}

// DefaultBounds is [start, end).
var DefaultBounds = Bounds{IncludeLeft: true}

// Contains reports whether ts falls inside [start, end] under the bounds.
func (b Bounds) Contains(start, end, ts time.Time) bool {
	var left, right bool
	if b.IncludeLeft {
		left = !ts.Before(start)
	} else {
		left = ts.After(start)
	}
	if b.IncludeRight {
		right = !ts.After(end)
	} else {
		right = ts.Before(end)
	}
	return left && right
}

// Observer receives sampling and stratification measurements.
type Observer interface {
	ObserveSampling(records, samples int, elapsed time.Duration)
	ObserveStratum(spans int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveSampling(int, int, time.Duration) {}
func (nopObserver) ObserveStratum(int, time.Duration)       {}

// SamplerConfig controls a concurrency sampling pass.
type SamplerConfig struct {
	// Step is the grid resolution of the output series; zero uses the
	// table's resolution.
	Step   core.Resolution
	Bounds Bounds
	// Workers bounds the parallel scan; zero uses NumCPU-1 (at least 1).
	Workers int
	// SampleSet overrides the default boundary sample set.
	SampleSet []time.Time
	// Limit caps the number of samples taken; zero means all.
	Limit int
}

// DefaultWorkers leaves one CPU for the coordinating goroutine.
func DefaultWorkers() int {
	if n := runtime.NumCPU() - 1; n > 1 {
		return n
	}
	return 1
}

// Sampler counts concurrently active records.
type Sampler struct {
	cfg      SamplerConfig
	logger   *internal.Logger
	observer Observer
}

// SamplerOption configures a Sampler.
type SamplerOption func(*Sampler)

// WithLogger sets the sampler's logger.
func WithLogger(l *internal.Logger) SamplerOption {
	return func(s *Sampler) { s.logger = l.With("Sampler") }
}

// WithObserver sets the sampler's measurement sink.
func WithObserver(o Observer) SamplerOption {
	return func(s *Sampler) { s.observer = o }
}

// NewSampler creates a sampler.
func NewSampler(cfg SamplerConfig, opts ...SamplerOption) *Sampler {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers()
	}
	s := &Sampler{cfg: cfg, logger: internal.DefaultLogger.With("Sampler"), observer: nopObserver{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the sampler configuration with defaults applied.
func (s *Sampler) Config() SamplerConfig { return s.cfg }

// Boundaries returns every distinct start and end timestamp, sorted.
func Boundaries(t *Table) []time.Time {
	seen := make(map[int64]bool, 2*len(t.records))
	out := make([]time.Time, 0, 2*len(t.records))
	add := func(ts time.Time) {
		k := ts.UnixNano()
		if !seen[k] {
			seen[k] = true
			out = append(out, ts)
		}
	}
	for _, r := range t.records {
		add(r.Start)
	}
	for _, r := range t.records {
		add(r.End)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Collect counts active records at each sample timestamp. The scan is split
// into chunks of the sample set and run on up to Workers goroutines; every
// worker reads the same record snapshot. Results are sorted by timestamp.
func (s *Sampler) Collect(ctx context.Context, t *Table) ([]Sample, error) {
	points := s.cfg.SampleSet
	if points == nil {
		points = Boundaries(t)
	} else {
		points = append([]time.Time(nil), points...)
		sort.Slice(points, func(i, j int) bool { return points[i].Before(points[j]) })
	}
	if s.cfg.Limit > 0 && len(points) > s.cfg.Limit {
		points = points[:s.cfg.Limit]
	}

	started := time.Now()
	records := t.records
	samples := make([]Sample, len(points))

	chunk := (len(points) + 4*s.cfg.Workers - 1) / (4 * s.cfg.Workers)
	if chunk < 1 {
		chunk = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for lo := 0; lo < len(points); lo += chunk {
		lo, hi := lo, lo+chunk
		if hi > len(points) {
			hi = len(points)
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				ts := points[i]
				n := 0
				for _, r := range records {
					if s.cfg.Bounds.Contains(r.Start, r.End, ts) {
						n++
					}
				}
				samples[i] = Sample{Timestamp: ts, Count: n}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sampling concurrency: %w", err)
	}

	elapsed := time.Since(started)
	s.observer.ObserveSampling(len(records), len(samples), elapsed)
	s.logger.Debug("%d samples over %d records on %d workers in %v", len(samples), len(records), s.cfg.Workers, elapsed)
	return samples, nil
}

// Sample produces the concurrency series of t on a uniform grid. An empty
// table yields an empty series.
func (s *Sampler) Sample(ctx context.Context, t *Table) (*Series, error) {
	step := s.cfg.Step
	if step == 0 {
		step = t.resolution
	}
	if err := step.Validate(); err != nil {
		return nil, err
	}
	samples, err := s.Collect(ctx, t)
	if err != nil {
		return nil, err
	}
	return reindex(samples, step), nil
}
