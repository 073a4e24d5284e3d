// Package metrics exposes Prometheus counters for plan updates and archive traffic.
// All methods are safe on a nil *Metrics so callers never need to check.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "plan_service"

type Metrics struct {
	registry *prometheus.Registry

	updates        *prometheus.CounterVec
	updateDuration *prometheus.HistogramVec
	extractions    *prometheus.CounterVec
	archiveWrites  *prometheus.CounterVec
	restores       *prometheus.CounterVec
	validations    *prometheus.CounterVec
}

// New registers every collector on a fresh registry, plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_updates_total",
			Help:      "Plan update requests by outcome status.",
		}, []string{"status"}),
		updateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_update_duration_seconds",
			Help:      "Time spent applying a plan update, lock wait included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_extractions_total",
			Help:      "Extraction attempts by winning tier (structured, content, none).",
		}, []string{"tier"}),
		archiveWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_archive_writes_total",
			Help:      "Archive entries written, by snapshot placement (inline, offloaded).",
		}, []string{"placement"}),
		restores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_restores_total",
			Help:      "Archive restore requests by status.",
		}, []string{"status"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_validations_total",
			Help:      "Standalone validation requests by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.updates, m.updateDuration, m.extractions, m.archiveWrites, m.restores, m.validations,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveUpdate(status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(status).Inc()
	m.updateDuration.WithLabelValues(status).Observe(dur.Seconds())
}

func (m *Metrics) IncExtraction(tier string) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(tier).Inc()
}

func (m *Metrics) IncArchiveWrite(offloaded bool) {
	if m == nil {
		return
	}
	placement := "inline"
	if offloaded {
		placement = "offloaded"
	}
	m.archiveWrites.WithLabelValues(placement).Inc()
}

func (m *Metrics) IncRestore(status string) {
	if m == nil {
		return
	}
	m.restores.WithLabelValues(status).Inc()
}

func (m *Metrics) IncValidation(valid bool) {
	if m == nil {
		return
	}
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.validations.WithLabelValues(result).Inc()
}
