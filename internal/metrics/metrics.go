// Package metrics keeps the run metrics of one sampling job and writes them in
// the node exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics with bounded cardinality (slot failure kinds are "item" and "ability")
type Metrics struct {
	reg *prometheus.Registry

	ticks          prometheus.Counter
	samples        prometheus.Counter
	slotFailures   *prometheus.CounterVec
	sampleDuration prometheus.Histogram
	lastMatchTime  prometheus.Gauge
	runDuration    prometheus.Gauge
	lastSuccess    prometheus.Gauge
}

// New registers the run metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		ticks: f.NewCounter(prometheus.CounterOpts{
			Name: "replay_sampler_ticks_total",
			Help: "Ticks delivered by the replay source",
		}),
		samples: f.NewCounter(prometheus.CounterOpts{
			Name: "replay_sampler_samples_total",
			Help: "Snapshots written",
		}),
		slotFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "replay_sampler_slot_failures_total",
			Help: "Inventory or ability slots omitted because they did not resolve",
		}, []string{"kind"}),
		sampleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "replay_sampler_sample_duration_seconds",
			Help:    "Time spent building and writing one snapshot",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		lastMatchTime: f.NewGauge(prometheus.GaugeOpts{
			Name: "replay_sampler_last_match_time_seconds",
			Help: "Match time of the most recent snapshot",
		}),
		runDuration: f.NewGauge(prometheus.GaugeOpts{
			Name: "replay_sampler_run_duration_seconds",
			Help: "Wall time of the last sampling run",
		}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "replay_sampler_last_success_timestamp_seconds",
			Help: "Unix time the last successful run finished",
		}),
	}
}

// Progress is a point-in-time view of a running job.
type Progress struct {
	Ticks         int `json:"ticks"`
	Samples       int `json:"samples"`
	LastMatchTime int `json:"lastMatchTime"`
	SlotFailures  int `json:"slotFailures"`
}

// Progress reads the current counters. It is safe to call from any goroutine.
func (m *Metrics) Progress() Progress {
	return Progress{
		Ticks:         int(read(m.ticks)),
		Samples:       int(read(m.samples)),
		LastMatchTime: int(read(m.lastMatchTime)),
		SlotFailures:  int(read(m.slotFailures.WithLabelValues("item")) + read(m.slotFailures.WithLabelValues("ability"))),
	}
}

func read(c prometheus.Metric) float64 {
	var d dto.Metric
	if err := c.Write(&d); err != nil {
		return 0
	}
	switch {
	case d.Counter != nil:
		return d.Counter.GetValue()
	case d.Gauge != nil:
		return d.Gauge.GetValue()
	}
	return 0
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// TickSeen counts one delivered tick.
func (m *Metrics) TickSeen() {
	m.ticks.Inc()
}

// SampleWritten counts one snapshot.
func (m *Metrics) SampleWritten(matchTime int, took time.Duration) {
	m.samples.Inc()
	m.sampleDuration.Observe(took.Seconds())
	m.lastMatchTime.Set(float64(matchTime))
}

// SlotFailure counts one omitted inventory or ability slot.
func (m *Metrics) SlotFailure(kind string) {
	m.slotFailures.WithLabelValues(kind).Inc()
}

// Finish records the run duration, and the completion time when ok.
func (m *Metrics) Finish(took time.Duration, ok bool) {
	m.runDuration.Set(took.Seconds())
	if ok {
		m.lastSuccess.SetToCurrentTime()
	}
}

// WriteTextfile writes every metric to path for the textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
