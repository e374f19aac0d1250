// Package metrics provides Prometheus metrics for the drillsheet service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace overrides the "drillsheet" metric namespace.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem overrides the "generator" metric subsystem.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithLatencyBuckets sets the millisecond buckets shared by the pipeline,
// LLM, workbook, job and HTTP latency histograms.
func WithLatencyBuckets(ms []float64) Option {
	return func(m *Manager) {
		if len(ms) > 0 {
			m.histogramBuckets = ms
		}
	}
}

// WithComposeBuckets sets the millisecond buckets for per-step compositing,
// which runs far faster than a full generation.
func WithComposeBuckets(ms []float64) Option {
	return func(m *Manager) {
		if len(ms) > 0 {
			m.composeBuckets = ms
		}
	}
}

// WithWorkbookSizeBuckets sets the byte buckets for generated workbooks.
func WithWorkbookSizeBuckets(bytes []float64) Option {
	return func(m *Manager) {
		if len(bytes) > 0 {
			m.sizeBuckets = bytes
		}
	}
}

// WithConstLabels adds labels to every metric, e.g. the deployment name.
func WithConstLabels(labels map[string]string) Option {
	return func(m *Manager) {
		if labels != nil {
			m.constLabels = labels
		}
	}
}

// WithPrometheusRegistry registers metrics on registry instead of the default.
func WithPrometheusRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}
