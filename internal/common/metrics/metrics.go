// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_messages_appended_total",
			Help: "Total number of messages merged into conversation logs",
		},
		[]string{"source"},
	)

	MessagesDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversation_messages_deduplicated_total",
			Help: "Total number of duplicate message deliveries dropped",
		},
	)

	MessageSendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_send_failures_total",
			Help: "Total number of failed message sends",
		},
		[]string{"reason"},
	)

	FeedEventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_events_received_total",
			Help: "Total number of live feed events received per collection",
		},
		[]string{"table", "action"},
	)

	FeedEventsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_events_rejected_total",
			Help: "Total number of live feed events rejected by schema validation",
		},
	)

	FeedSubscriptionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feed_subscriptions_active",
			Help: "Number of live feed subscriptions currently held",
		},
	)

	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_status_transitions_total",
			Help: "Total number of application status transitions by outcome",
		},
		[]string{"status", "outcome"},
	)

	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "store_query_duration_seconds",
			Help: "Duration of store operations in seconds",
		},
		[]string{"collection", "operation"},
	)
)
