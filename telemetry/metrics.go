package telemetry

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PromMetrics implements Metrics on top of client_golang, replacing the
// original Python's prometheus_metric.track_calls decorator (which wrapped
// every Component.run with a call counter). Unlike that decorator, which
// implicitly instrumented every component, PromMetrics is invoked
// explicitly by component.Base so the instrumentation point is visible
// in Go (see component/wrapper.go).
type PromMetrics struct {
	counters   *prometheus.CounterVec
	timers     *prometheus.HistogramVec
	gauges     *prometheus.GaugeVec
}

// NewPromMetrics registers (or reuses, if already registered) the counter,
// histogram, and gauge vectors backing Metrics, scoped under namespace.
func NewPromMetrics(registry prometheus.Registerer, namespace string) *PromMetrics {
	m := &PromMetrics{
		counters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Count of calls recorded via IncCounter, labeled by metric name and tags.",
		}, []string{"name", "tag"}),
		timers: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Distribution of durations recorded via RecordTimer, labeled by metric name and tags.",
		}, []string{"name", "tag"}),
		gauges: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gauge",
			Help:      "Latest value recorded via RecordGauge, labeled by metric name and tags.",
		}, []string{"name", "tag"}),
	}
	m.counters = registerOrReuse(registry, m.counters)
	m.timers = registerOrReuse(registry, m.timers)
	m.gauges = registerOrReuse(registry, m.gauges)
	return m
}

func registerOrReuse[C prometheus.Collector](registry prometheus.Registerer, c C) C {
	var are prometheus.AlreadyRegisteredError
	if err := registry.Register(c); err != nil && errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	return c
}

// IncCounter adds value to the named counter, tagged by the first optional
// tag value (empty string when untagged).
func (m *PromMetrics) IncCounter(name string, value float64, tags ...string) {
	m.counters.WithLabelValues(name, firstTag(tags)).Add(value)
}

// RecordTimer observes duration (in seconds) against the named histogram.
func (m *PromMetrics) RecordTimer(name string, duration time.Duration, tags ...string) {
	m.timers.WithLabelValues(name, firstTag(tags)).Observe(duration.Seconds())
}

// RecordGauge sets the named gauge to value.
func (m *PromMetrics) RecordGauge(name string, value float64, tags ...string) {
	m.gauges.WithLabelValues(name, firstTag(tags)).Set(value)
}

func firstTag(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return tags[0]
}
