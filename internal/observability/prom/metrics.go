// Package prom implements the Metrics port on top of the Prometheus client
// library. Collectors are registered lazily the first time a metric name is
// seen; metric names are prefixed with the service name and normalized to
// Prometheus conventions.
package prom

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Hrideshsrivastava/audit-bridge/internal/observability"
)

// Metrics implements observability.Metrics using Prometheus collectors.
type Metrics struct {
	mu          sync.Mutex
	serviceName string
	registry    *prometheus.Registry

	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
}

// New creates a Metrics instance backed by its own registry. The registry is
// exposed so the HTTP layer can serve it via promhttp.
func New(serviceName string) *Metrics {
	return &Metrics{
		serviceName: serviceName,
		registry:    prometheus.NewRegistry(),
		counters:    make(map[string]*prometheus.CounterVec),
		histograms:  make(map[string]*prometheus.HistogramVec),
		gauges:      make(map[string]*prometheus.GaugeVec),
	}
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// IncrementCounter increments the named counter by one.
func (m *Metrics) IncrementCounter(name string, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := m.metricName(name)
	vec, ok := m.counters[key]
	if !ok {
		vec = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: key,
				Help: fmt.Sprintf("Counter %s for %s", name, m.serviceName),
			},
			labelNames(labels),
		)
		m.registry.MustRegister(vec)
		m.counters[key] = vec
	}

	vec.With(prometheus.Labels(normalizeLabels(labels))).Inc()
}

// RecordHistogram records an observation in the named histogram.
func (m *Metrics) RecordHistogram(name string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := m.metricName(name)
	vec, ok := m.histograms[key]
	if !ok {
		vec = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    key,
				Help:    fmt.Sprintf("Histogram %s for %s", name, m.serviceName),
				Buckets: prometheus.DefBuckets,
			},
			labelNames(labels),
		)
		m.registry.MustRegister(vec)
		m.histograms[key] = vec
	}

	vec.With(prometheus.Labels(normalizeLabels(labels))).Observe(value)
}

// SetGauge sets the named gauge to the given value.
func (m *Metrics) SetGauge(name string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := m.metricName(name)
	vec, ok := m.gauges[key]
	if !ok {
		vec = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: key,
				Help: fmt.Sprintf("Gauge %s for %s", name, m.serviceName),
			},
			labelNames(labels),
		)
		m.registry.MustRegister(vec)
		m.gauges[key] = vec
	}

	vec.With(prometheus.Labels(normalizeLabels(labels))).Set(value)
}

// metricName builds a Prometheus-safe metric name with the service prefix.
func (m *Metrics) metricName(name string) string {
	sanitized := strings.NewReplacer(".", "_", "-", "_", " ", "_").Replace(name)
	return fmt.Sprintf("%s_%s", m.serviceName, sanitized)
}

// labelNames returns the sorted label keys so a metric is always registered
// with a stable label set.
func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func normalizeLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return map[string]string{}
	}
	return labels
}

var _ observability.Metrics = (*Metrics)(nil)
