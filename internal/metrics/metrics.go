// Package metrics exposes Prometheus counters for subscriptions, newsletter
// deliveries, and HTTP traffic.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "newsletter"

var (
	// subscriptionEvents counts subscription workflow outcomes.
	// Labels:
	// - event: "subscribed", "reissued", "confirmed"
	subscriptionEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscriptions",
			Name:      "events_total",
			Help:      "Subscription workflow events.",
		},
		[]string{"event"},
	)

	// deliveries counts per-recipient outcomes of outbound email.
	// Labels:
	// - kind:     "confirmation" or "issue"
	// - provider: "ses" or "sparkpost"
	// - outcome:  "delivered", "failed", "timeout", "skipped"
	deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "email",
			Name:      "deliveries_total",
			Help:      "Outbound email deliveries by outcome.",
		},
		[]string{"kind", "provider", "outcome"},
	)

	publishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "newsletter",
			Name:      "publish_duration_seconds",
			Help:      "Wall time of one newsletter fan-out.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)
)

// Delivery kinds.
const (
	KindConfirmation = "confirmation"
	KindIssue        = "issue"
)

// IncSubscriptionEvent records a subscription workflow event.
func IncSubscriptionEvent(event string) {
	subscriptionEvents.WithLabelValues(event).Inc()
}

// IncDelivery records one recipient's delivery outcome.
func IncDelivery(kind, provider, outcome string) {
	if provider == "" {
		provider = "unknown"
	}
	deliveries.WithLabelValues(kind, provider, outcome).Inc()
}

// ObservePublishDuration records how long a fan-out took.
func ObservePublishDuration(seconds float64) {
	publishDuration.Observe(seconds)
}
