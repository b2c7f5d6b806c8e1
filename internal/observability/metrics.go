package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector shared by the Orders, Payments and Gateway
// processes. Each process registers the same set against its own registry;
// an idle metric (e.g. Gateway never touches OutboxRelayed) simply stays at
// zero.
type Metrics struct {
	// Order / account domain
	OrdersCreatedTotal    *prometheus.CounterVec
	AccountBalance        *prometheus.GaugeVec
	PaymentOutcomesTotal  *prometheus.CounterVec

	// Outbox relay
	OutboxRelayedTotal    *prometheus.CounterVec
	OutboxBacklogSize     prometheus.Gauge
	OutboxRelayDuration   prometheus.Histogram

	// Inbox consumer
	InboxProcessedTotal   *prometheus.CounterVec
	InboxDuplicatesTotal  prometheus.Counter

	// Realtime bus
	RealtimeConnections   prometheus.Gauge
	RealtimeBroadcastsTotal *prometheus.CounterVec

	// HTTP
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec

	// Gateway
	GatewayBackendRequestsTotal *prometheus.CounterVec
	CircuitBreakerState   *prometheus.GaugeVec
}

// NewMetrics creates and registers all collectors against reg. If reg is
// nil, prometheus.DefaultRegisterer is used.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := prometheus.WrapRegistererWith(nil, reg)

	m := &Metrics{
		OrdersCreatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "orders_created_total", Help: "Total number of orders created"},
			[]string{"status"},
		),
		AccountBalance: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Namespace: namespace, Name: "account_balance", Help: "Current account balance by user"},
			[]string{"user_id"},
		),
		PaymentOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "payment_outcomes_total", Help: "Total payment state machine outcomes"},
			[]string{"outcome"},
		),
		OutboxRelayedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "outbox_relayed_total", Help: "Total outbox messages published to the broker"},
			[]string{"routing_key", "result"},
		),
		OutboxBacklogSize: prometheus.NewGauge(
			prometheus.GaugeOpts{Namespace: namespace, Name: "outbox_backlog_size", Help: "Unprocessed outbox rows observed on the last scan"},
		),
		OutboxRelayDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{Namespace: namespace, Name: "outbox_relay_batch_duration_seconds", Help: "Time to relay one batch", Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5}},
		),
		InboxProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "inbox_processed_total", Help: "Total inbox messages processed by outcome"},
			[]string{"result"},
		),
		InboxDuplicatesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{Namespace: namespace, Name: "inbox_duplicates_total", Help: "Total broker redeliveries recognized as duplicates"},
		),
		RealtimeConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{Namespace: namespace, Name: "realtime_connections", Help: "Current number of open WebSocket connections on this instance"},
		),
		RealtimeBroadcastsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "realtime_broadcasts_total", Help: "Total order update messages fanned out"},
			[]string{"source"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total number of HTTP requests"},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds", Buckets: prometheus.DefBuckets},
			[]string{"method", "path"},
		),
		GatewayBackendRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "gateway_backend_requests_total", Help: "Total proxied requests by backend and outcome"},
			[]string{"backend", "status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Namespace: namespace, Name: "circuit_breaker_state", Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)"},
			[]string{"name"},
		),
	}

	factory.MustRegister(
		m.OrdersCreatedTotal,
		m.AccountBalance,
		m.PaymentOutcomesTotal,
		m.OutboxRelayedTotal,
		m.OutboxBacklogSize,
		m.OutboxRelayDuration,
		m.InboxProcessedTotal,
		m.InboxDuplicatesTotal,
		m.RealtimeConnections,
		m.RealtimeBroadcastsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.GatewayBackendRequestsTotal,
		m.CircuitBreakerState,
	)

	return m
}
