package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects prometheus metrics for provider operations.
type Metrics struct {
	config MetricsConfig

	gathersTotal   *prometheus.CounterVec
	gatherDuration *prometheus.HistogramVec
	rendersTotal   *prometheus.CounterVec
	commandsTotal  *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector. A disabled collector records
// nothing and carries no registry.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return &Metrics{config: cfg}
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "rsd"
	}
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,
		gathersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gathers_total",
				Help:      "Total number of provider gather invocations",
			},
			[]string{"provider", "status"},
		),
		gatherDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "gather_duration_seconds",
				Help:      "Duration of provider gather invocations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		rendersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "renders_total",
				Help:      "Total number of component render invocations",
			},
			[]string{"provider", "status"},
		),
		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_emitted_total",
				Help:      "Total number of command lines emitted by renderers",
			},
			[]string{"provider"},
		),
	}
	registry.MustRegister(m.gathersTotal, m.gatherDuration, m.rendersTotal, m.commandsTotal)
	return m
}

// Registry returns the prometheus registry, or nil when disabled.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveGather records one gather invocation.
func (m *Metrics) ObserveGather(provider, status string, duration time.Duration) {
	if m.registry == nil {
		return
	}
	m.gathersTotal.WithLabelValues(provider, status).Inc()
	m.gatherDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// ObserveRender records one render invocation and its emitted command
// count.
func (m *Metrics) ObserveRender(provider, status string, commands int) {
	if m.registry == nil {
		return
	}
	m.rendersTotal.WithLabelValues(provider, status).Inc()
	m.commandsTotal.WithLabelValues(provider).Add(float64(commands))
}

var (
	defaultMetrics   = NewMetrics(MetricsConfig{})
	defaultMetricsMu sync.RWMutex
)

// SetDefaultMetrics installs the process-wide metrics collector used by
// the pipeline helpers.
func SetDefaultMetrics(m *Metrics) {
	defaultMetricsMu.Lock()
	defer defaultMetricsMu.Unlock()
	defaultMetrics = m
}

// DefaultMetrics returns the process-wide metrics collector.
func DefaultMetrics() *Metrics {
	defaultMetricsMu.RLock()
	defer defaultMetricsMu.RUnlock()
	return defaultMetrics
}

// ObserveGather records a gather invocation on the default collector.
func ObserveGather(provider, status string, duration time.Duration) {
	DefaultMetrics().ObserveGather(provider, status, duration)
}

// ObserveRender records a render invocation on the default collector.
func ObserveRender(provider, status string, commands int) {
	DefaultMetrics().ObserveRender(provider, status, commands)
}
