package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PaymentMetrics tracks the settlement pipeline.
type PaymentMetrics struct {
	OrdersCreatedTotal   *prometheus.CounterVec
	OrdersSettledTotal   *prometheus.CounterVec
	OrdersCancelledTotal *prometheus.CounterVec
	PlatformEarningsSum  prometheus.Counter
	WebhookEventsTotal   *prometheus.CounterVec
	GatewayRequestsTotal *prometheus.CounterVec
}

func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	factory := promauto.With(reg)
	return &PaymentMetrics{
		OrdersCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_created_total",
				Help: "Orders created, by payment method",
			},
			[]string{"payment_method"},
		),
		OrdersSettledTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_settled_total",
				Help: "Orders whose payment was confirmed, by payment method",
			},
			[]string{"payment_method"},
		),
		OrdersCancelledTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_cancelled_total",
				Help: "Orders cancelled, by reason",
			},
			[]string{"reason"},
		),
		PlatformEarningsSum: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "platform_earnings_total",
				Help: "Accumulated platform margin from settled orders, in COP",
			},
		),
		WebhookEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_events_total",
				Help: "Inbound gateway webhook events, by type and outcome",
			},
			[]string{"event", "outcome"},
		),
		GatewayRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_requests_total",
				Help: "Outbound gateway requests, by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
	}
}
