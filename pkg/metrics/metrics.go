// Package metrics collects identification counters on a dedicated
// Prometheus registry that the CLI can dump as a text file.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Scan outcomes recorded by Scans.
const (
	ScanIdentified = "identified"
	ScanEmpty      = "empty"
	ScanSkipped    = "skipped"
)

// Metrics groups the counters of one run. A nil *Metrics records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	Features   prometheus.Counter
	Scans      *prometheus.CounterVec // by outcome
	Identities *prometheus.CounterVec // by headgroup class
	Duration   prometheus.Histogram   // seconds per feature
}

// New registers the counters on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Features: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lipidkey",
			Name:      "features_total",
			Help:      "Features processed.",
		}),
		Scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lipidkey",
			Name:      "scans_total",
			Help:      "MS2 scans matched to a feature, by outcome.",
		}, []string{"outcome"}),
		Identities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lipidkey",
			Name:      "identities_total",
			Help:      "Distinct identities reported per feature, by class.",
		}, []string{"class"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lipidkey",
			Name:      "feature_duration_seconds",
			Help:      "Time spent identifying one feature.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	m.Registry.MustRegister(m.Features, m.Scans, m.Identities, m.Duration)
	return m
}

// ScanOutcome counts one scan.
func (m *Metrics) ScanOutcome(outcome string) {
	if m == nil {
		return
	}
	m.Scans.WithLabelValues(outcome).Inc()
}

// Feature records one finished feature and its reported classes.
func (m *Metrics) Feature(seconds float64, classes []string) {
	if m == nil {
		return
	}
	m.Features.Inc()
	m.Duration.Observe(seconds)
	for _, c := range classes {
		m.Identities.WithLabelValues(c).Inc()
	}
}

// WriteFile writes the registry in the Prometheus text format.
func (m *Metrics) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
