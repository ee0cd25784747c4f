package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the process-wide collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	actions        *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	publishes      *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	frames         *prometheus.CounterVec
	connections    prometheus.Gauge
	cacheLookups   *prometheus.CounterVec
}

// NewMetrics creates a collector on its own registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "connectsphere",
			Name:      "actions_total",
			Help:      "Domain actions by name and outcome.",
		}, []string{"action", "outcome"}),
		actionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "connectsphere",
			Name:      "action_duration_seconds",
			Help:      "Domain action latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "connectsphere",
			Name:      "channel_publishes_total",
			Help:      "Channel events published by type and outcome.",
		}, []string{"type", "outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "connectsphere",
			Name:      "notifications_total",
			Help:      "Notifications emitted by kind.",
		}, []string{"kind"}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "connectsphere",
			Name:      "realtime_frames_total",
			Help:      "Realtime frames queued or dropped.",
		}, []string{"result"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "connectsphere",
			Name:      "realtime_connections",
			Help:      "Open websocket connections.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "connectsphere",
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.actions,
		m.actionDuration,
		m.publishes,
		m.notifications,
		m.frames,
		m.connections,
		m.cacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordAction counts a finished domain action and observes its latency
func (m *Metrics) RecordAction(action string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action, outcome(err)).Inc()
	m.actionDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())
}

// RecordPublish counts a channel publish
func (m *Metrics) RecordPublish(eventType string, err error) {
	if m == nil {
		return
	}
	m.publishes.WithLabelValues(eventType, outcome(err)).Inc()
}

// RecordNotification counts an emitted notification
func (m *Metrics) RecordNotification(kind string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind).Inc()
}

// RecordFrame counts a realtime frame as queued or dropped
func (m *Metrics) RecordFrame(dropped bool) {
	if m == nil {
		return
	}
	if dropped {
		m.frames.WithLabelValues("dropped").Inc()
		return
	}
	m.frames.WithLabelValues("queued").Inc()
}

// RecordCacheLookup counts a cache hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// SetConnections sets the open websocket gauge
func (m *Metrics) SetConnections(n int) {
	if m == nil {
		return
	}
	m.connections.Set(float64(n))
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
