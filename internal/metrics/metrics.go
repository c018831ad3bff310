package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookRequestsTotal counts webhook deliveries by event type and response status.
	WebhookRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "focus",
		Subsystem: "billing",
		Name:      "webhook_requests_total",
		Help:      "Total billing webhook requests by event type and HTTP status.",
	}, []string{"event_type", "status"})

	// WebhookDuration tracks webhook processing latency.
	WebhookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "focus",
		Subsystem: "billing",
		Name:      "webhook_duration_seconds",
		Help:      "Billing webhook processing duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"event_type"})

	// ReconcilerTransitions counts reconciler outcomes per event kind.
	ReconcilerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "focus",
		Subsystem: "billing",
		Name:      "reconciler_transitions_total",
		Help:      "Reconciler outcomes by event kind and outcome.",
	}, []string{"event", "outcome"})

	// CheckoutDecisions counts checkout guard approvals and rejections.
	CheckoutDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "focus",
		Subsystem: "billing",
		Name:      "checkout_decisions_total",
		Help:      "Checkout guard decisions by outcome.",
	}, []string{"outcome"})

	// CascadeCancellations counts cancellation cascade results.
	CascadeCancellations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "focus",
		Subsystem: "billing",
		Name:      "cascade_cancellations_total",
		Help:      "Subscription cancellations issued by the cascade, by outcome.",
	}, []string{"outcome"})
)
