// Package metrics declares the Prometheus instruments used across the
// billing, cache, and notification paths. Instruments are registered on the
// default registry and exposed via promhttp at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookEvents counts processed payment webhook deliveries by outcome:
	// activated, failed, challenge, noop, unknown_order, ignored.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kerjago_webhook_events_total",
		Help: "Payment gateway webhook deliveries by outcome.",
	}, []string{"outcome"})

	// SubscriptionsExpired counts subscriptions transitioned to expired by the sweeper.
	SubscriptionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kerjago_subscriptions_expired_total",
		Help: "Subscriptions expired by the scheduled sweep.",
	})

	// RemindersSent counts expiry reminder notifications by day threshold.
	RemindersSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kerjago_expiry_reminders_total",
		Help: "Expiry reminder notifications sent, labelled by days remaining.",
	}, []string{"days"})

	// CacheRequests counts read-through cache lookups by result: hit, miss, bypass.
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kerjago_cache_requests_total",
		Help: "Read-through response cache lookups by result.",
	}, []string{"result"})

	// CacheInvalidations counts namespace purges.
	CacheInvalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kerjago_cache_invalidations_total",
		Help: "Cache namespace invalidations.",
	}, []string{"namespace"})

	// LiveConnections tracks currently open notification stream connections.
	LiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kerjago_live_connections",
		Help: "Open notification stream connections.",
	})

	// NotificationsDelivered counts live push attempts by result: delivered, offline.
	NotificationsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kerjago_notifications_delivered_total",
		Help: "Live notification push attempts by result.",
	}, []string{"result"})
)
