package instrumentation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the dashboard service.
type Metrics struct {
	// Gateway
	GatewayRequests  *prometheus.CounterVec
	GatewayLatencyMs *prometheus.HistogramVec
	CacheLookups     *prometheus.CounterVec

	// Orchestrator
	Refreshes      *prometheus.CounterVec
	AssetsTracked  prometheus.Gauge
	DeltaFlags     *prometheus.CounterVec
	StaleDiscarded *prometheus.CounterVec

	// Chat
	ChatFragments prometheus.Counter
	ChatErrors    prometheus.Counter

	// Streams
	Subscribers *prometheus.GaugeVec
}

// NewMetrics creates the metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		GatewayRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cryptodash_gateway_requests_total",
			Help: "Generative model requests by data kind and outcome",
		}, []string{"kind", "outcome"}),

		GatewayLatencyMs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cryptodash_gateway_latency_ms",
			Help:    "Generative model request latency in milliseconds",
			Buckets: []float64{250, 500, 1000, 2500, 5000, 10000, 20000, 40000},
		}, []string{"kind"}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cryptodash_cache_lookups_total",
			Help: "Detail cache lookups by data kind and result",
		}, []string{"kind", "result"}),

		Refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cryptodash_refreshes_total",
			Help: "Asset collection refreshes by trigger and outcome",
		}, []string{"trigger", "outcome"}),

		AssetsTracked: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cryptodash_assets_tracked",
			Help: "Number of assets in the current snapshot",
		}),

		DeltaFlags: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cryptodash_delta_flags_total",
			Help: "Price delta flags published by direction",
		}, []string{"direction"}),

		StaleDiscarded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cryptodash_stale_results_total",
			Help: "Detail results discarded because the selection moved on",
		}, []string{"slot"}),

		ChatFragments: factory.NewCounter(prometheus.CounterOpts{
			Name: "cryptodash_chat_fragments_total",
			Help: "Streamed assistant reply fragments",
		}),

		ChatErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "cryptodash_chat_errors_total",
			Help: "Assistant replies that failed mid-stream",
		}),

		Subscribers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cryptodash_stream_subscribers",
			Help: "Connected state subscribers by transport",
		}, []string{"transport"}),
	}
}

// RecordGatewayCall records one model request. Safe on a nil receiver.
func (m *Metrics) RecordGatewayCall(kind, outcome string, latencyMs float64) {
	if m == nil {
		return
	}
	m.GatewayRequests.WithLabelValues(kind, outcome).Inc()
	m.GatewayLatencyMs.WithLabelValues(kind).Observe(latencyMs)
}

// RecordCacheLookup records a detail cache hit or miss.
func (m *Metrics) RecordCacheLookup(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(kind, result).Inc()
}

// RecordRefresh records a refresh attempt.
func (m *Metrics) RecordRefresh(manual bool, outcome string) {
	if m == nil {
		return
	}
	trigger := "auto"
	if manual {
		trigger = "manual"
	}
	m.Refreshes.WithLabelValues(trigger, outcome).Inc()
}

// RecordSnapshot records the size of the latest snapshot and its delta flags.
func (m *Metrics) RecordSnapshot(assets, up, down int) {
	if m == nil {
		return
	}
	m.AssetsTracked.Set(float64(assets))
	m.DeltaFlags.WithLabelValues("up").Add(float64(up))
	m.DeltaFlags.WithLabelValues("down").Add(float64(down))
}

// RecordStale records a detail result discarded for a superseded selection.
func (m *Metrics) RecordStale(slot string) {
	if m == nil {
		return
	}
	m.StaleDiscarded.WithLabelValues(slot).Inc()
}

// RecordChatFragment counts a streamed reply fragment.
func (m *Metrics) RecordChatFragment() {
	if m == nil {
		return
	}
	m.ChatFragments.Inc()
}

// RecordChatError counts a failed reply.
func (m *Metrics) RecordChatError() {
	if m == nil {
		return
	}
	m.ChatErrors.Inc()
}

// SubscriberJoined and SubscriberLeft track live stream connections.
func (m *Metrics) SubscriberJoined(transport string) {
	if m == nil {
		return
	}
	m.Subscribers.WithLabelValues(transport).Inc()
}

func (m *Metrics) SubscriberLeft(transport string) {
	if m == nil {
		return
	}
	m.Subscribers.WithLabelValues(transport).Dec()
}
