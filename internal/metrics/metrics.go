// Package metrics records tool call and interpreter resolution metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ToolCallsTotal   *prometheus.CounterVec
	ToolCallDuration *prometheus.HistogramVec
	ResolutionsTotal *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ToolCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pyexec_tool_calls_total",
				Help: "Total number of tool calls by outcome",
			},
			[]string{"tool", "outcome"},
		),
		ToolCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pyexec_tool_call_duration_seconds",
				Help:    "Tool call duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"tool"},
		),
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pyexec_interpreter_resolutions_total",
				Help: "Interpreter resolutions by the stage that produced them",
			},
			[]string{"stage"},
		),
	}

	m.registry.MustRegister(
		m.ToolCallsTotal,
		m.ToolCallDuration,
		m.ResolutionsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// RecordToolCall records one finished tool call.
func (m *Metrics) RecordToolCall(tool, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ToolCallsTotal.WithLabelValues(tool, outcome).Inc()
	m.ToolCallDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// RecordResolution records which stage produced an interpreter. Use
// "not-found" when resolution failed.
func (m *Metrics) RecordResolution(stage string) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(stage).Inc()
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
