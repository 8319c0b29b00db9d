// Package metrics exposes Prometheus counters for the datagram and image
// paths. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "notemirror"

// Drop reasons for inbound datagrams.
const (
	DropOversize    = "oversize"
	DropRateLimited = "rate_limited"
	DropMalformed   = "malformed"
	DropUnknownType = "unknown_type"
	DropToken       = "token"
	DropQueueFull   = "queue_full"
)

type Metrics struct {
	registry *prometheus.Registry

	datagrams      *prometheus.CounterVec
	drops          *prometheus.CounterVec
	imagesReceived prometheus.Counter
	imagesRejected *prometheus.CounterVec
	outboxDrops    prometheus.Counter
	sendFailures   prometheus.Counter
	wsClients      prometheus.Gauge
	lastProbe      prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		datagrams: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagrams_received_total",
			Help:      "Accepted inbound messages by type",
		}, []string{"type"}),

		drops: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagrams_dropped_total",
			Help:      "Inbound messages dropped before reaching the interaction loop",
		}, []string{"reason"}),

		imagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_received_total",
			Help:      "Images decoded and handed to the canvas",
		}),

		imagesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_rejected_total",
			Help:      "Image transfers dropped",
		}, []string{"reason"}),

		outboxDrops: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_dropped_total",
			Help:      "Outbound sends dropped because the queue was full",
		}),

		sendFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Outbound sends that returned an error",
		}),

		wsClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_clients",
			Help:      "Connected WebSocket control clients",
		}),

		lastProbe: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_probe_timestamp_seconds",
			Help:      "Unix time of the last accepted liveness probe",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

func (m *Metrics) Received(msgType string) {
	if m != nil {
		m.datagrams.WithLabelValues(msgType).Inc()
	}
}

func (m *Metrics) Dropped(reason string) {
	if m != nil {
		m.drops.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) ImageReceived() {
	if m != nil {
		m.imagesReceived.Inc()
	}
}

func (m *Metrics) ImageRejected(reason string) {
	if m != nil {
		m.imagesRejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) OutboxDropped() {
	if m != nil {
		m.outboxDrops.Inc()
	}
}

func (m *Metrics) SendFailed() {
	if m != nil {
		m.sendFailures.Inc()
	}
}

func (m *Metrics) WSClients(delta float64) {
	if m != nil {
		m.wsClients.Add(delta)
	}
}

func (m *Metrics) Probe(unixSeconds float64) {
	if m != nil {
		m.lastProbe.Set(unixSeconds)
	}
}
