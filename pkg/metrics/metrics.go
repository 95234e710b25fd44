package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	StreamMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_messages_total",
			Help: "Total number of messages received on the delivery channel (count)",
		},
		[]string{"status"},
	)

	StreamReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_reconnects_total",
			Help: "Total number of delivery channel reconnect attempts (count)",
		},
	)

	StreamConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stream_connected",
			Help: "Whether the delivery channel is currently open (0 or 1)",
		},
	)

	ResolverLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_lookups_total",
			Help: "Total number of slug cache lookups (count)",
		},
		[]string{"status"},
	)

	ResolverRefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_refreshes_total",
			Help: "Total number of slug map refresh fetches (count)",
		},
		[]string{"status"},
	)

	BusPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_published_total",
			Help: "Total number of envelopes published to the cross-instance bus (count)",
		},
		[]string{"status"},
	)

	BusReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_received_total",
			Help: "Total number of envelopes received from the cross-instance bus (count)",
		},
		[]string{"status"},
	)

	StoreSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "store_size",
			Help: "Number of records currently held by the notification store (count)",
		},
	)

	StoreUnread = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "store_unread",
			Help: "Current unread counter value (count)",
		},
	)

	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_total",
			Help: "Total number of local UI signals emitted (count)",
		},
		[]string{"status"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests through the rate limiter (count)",
		},
		[]string{"status"},
	)
)

var registered = false

// RegisterClientMetrics registers every collector owned by the notification
// client. Safe to call once per process.
func RegisterClientMetrics() {
	if registered {
		return
	}
	registered = true

	prometheus.MustRegister(
		StreamMessagesTotal,
		StreamReconnectsTotal,
		StreamConnected,
		ResolverLookupsTotal,
		ResolverRefreshesTotal,
		BusPublishedTotal,
		BusReceivedTotal,
		StoreSize,
		StoreUnread,
		SignalsTotal,
		CircuitBreakerState,
		CircuitBreakerRequests,
		CircuitBreakerFailures,
	)
}
