package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrderTransitionsTotal counts order status transition attempts by outcome
	OrderTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "Total number of order status transition attempts",
		},
		[]string{"from", "to", "result"},
	)

	// PaymentEventsTotal counts payment confirmation, failure and refund outcomes
	PaymentEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_payment_events_total",
			Help: "Total number of payment lifecycle events",
		},
		[]string{"event", "result"},
	)

	// StockAdjustmentsTotal counts stock adjustments by movement type and outcome
	StockAdjustmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_stock_adjustments_total",
			Help: "Total number of stock adjustments",
		},
		[]string{"type", "result"},
	)

	// GatewayRequestDuration observes payment gateway call latency
	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_request_duration_seconds",
			Help:    "Duration of payment gateway requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "result"},
	)

	// GRPCRequestsTotal counts unary gRPC calls by method and status code
	GRPCRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grpc_server_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "code"},
	)

	// GRPCRequestDuration observes unary gRPC call latency
	GRPCRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grpc_server_request_duration_seconds",
			Help:    "Duration of gRPC requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// Result labels
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultError    = "error"
)
