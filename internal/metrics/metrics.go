// Package metrics records sampler and runner work as Prometheus metrics.
// Batch runs export them with WriteTextfile for the node exporter's
// textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tiva/internal/errors"
)

const namespace = "tiva"

// Collector implements activity.Observer on a private registry.
type Collector struct {
	registry *prometheus.Registry

	samplingRuns     prometheus.Counter
	samplesTaken     prometheus.Counter
	recordsScanned   prometheus.Counter
	samplingDuration prometheus.Histogram
	strataProcessed  prometheus.Counter
	spansEmitted     prometheus.Counter
	stratumDuration  prometheus.Histogram
	lastRun          prometheus.Gauge
}

// NewCollector creates and registers the collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		samplingRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "runs_total",
			Help:      "Number of concurrency sampling passes.",
		}),
		samplesTaken: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "samples_total",
			Help:      "Number of boundary samples counted.",
		}),
		recordsScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "records_scanned_total",
			Help:      "Number of activity records scanned across sampling passes.",
		}),
		samplingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "duration_seconds",
			Help:      "Wall time of one sampling pass.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		strataProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runner",
			Name:      "strata_total",
			Help:      "Number of strata unduplicated.",
		}),
		spansEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runner",
			Name:      "spans_total",
			Help:      "Number of busy spans emitted.",
		}),
		stratumDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "runner",
			Name:      "stratum_duration_seconds",
			Help:      "Wall time of sampling and collapsing one stratum.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the most recent sampling pass.",
		}),
	}
	c.registry.MustRegister(
		c.samplingRuns, c.samplesTaken, c.recordsScanned, c.samplingDuration,
		c.strataProcessed, c.spansEmitted, c.stratumDuration, c.lastRun,
	)
	return c
}

// Registry exposes the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// ObserveSampling records one sampling pass.
func (c *Collector) ObserveSampling(records, samples int, elapsed time.Duration) {
	c.samplingRuns.Inc()
	c.samplesTaken.Add(float64(samples))
	c.recordsScanned.Add(float64(records))
	c.samplingDuration.Observe(elapsed.Seconds())
	c.lastRun.SetToCurrentTime()
}

// ObserveStratum records one unduplicated stratum.
func (c *Collector) ObserveStratum(spans int, elapsed time.Duration) {
	c.strataProcessed.Inc()
	c.spansEmitted.Add(float64(spans))
	c.stratumDuration.Observe(elapsed.Seconds())
}

// WriteTextfile writes the current metrics in text exposition format.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return errors.IOError("writing metrics textfile", err)
	}
	return nil
}
