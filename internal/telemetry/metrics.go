package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the counters and histograms for acquisitions and
// invocations. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	invocations         *prometheus.CounterVec
	invocationDuration  prometheus.Histogram
	acquisitions        *prometheus.CounterVec
	acquisitionDuration prometheus.Histogram
}

// NewMetrics registers the protect-web collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "protect_web",
			Name:      "invocations_total",
			Help:      "Protection binary invocations by result.",
		}, []string{"result"}),
		invocationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "protect_web",
			Name:      "invocation_duration_seconds",
			Help:      "Wall time of protection binary invocations.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		acquisitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "protect_web",
			Name:      "acquisitions_total",
			Help:      "Binary acquisitions by result.",
		}, []string{"result"}),
		acquisitionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "protect_web",
			Name:      "acquisition_duration_seconds",
			Help:      "Wall time of binary acquisitions.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}

	m.registry.MustRegister(
		m.invocations,
		m.invocationDuration,
		m.acquisitions,
		m.acquisitionDuration,
	)
	return m
}

// ObserveInvocation records one invocation.
func (m *Metrics) ObserveInvocation(err error, d time.Duration) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(resultLabel(err)).Inc()
	m.invocationDuration.Observe(d.Seconds())
}

// ObserveAcquisition records one acquisition.
func (m *Metrics) ObserveAcquisition(err error, d time.Duration) {
	if m == nil {
		return
	}
	m.acquisitions.WithLabelValues(resultLabel(err)).Inc()
	m.acquisitionDuration.Observe(d.Seconds())
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WriteTextfile writes all metrics in the text exposition format to path,
// atomically. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func resultLabel(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
