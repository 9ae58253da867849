package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AlertsIngested counts alerts accepted into the store by kind.
	AlertsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phishguard_alerts_ingested_total",
			Help: "Total number of alerts accepted into the store",
		},
		[]string{"kind"},
	)

	// AlertsDeduplicated counts candidate alerts dropped by the dedup window.
	AlertsDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "phishguard_alerts_deduplicated_total",
			Help: "Total number of candidate alerts dropped as duplicates",
		},
	)

	// AlertsEvicted counts alerts removed by cap eviction or retention sweep.
	AlertsEvicted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phishguard_alerts_evicted_total",
			Help: "Total number of alerts evicted from the store",
		},
		[]string{"reason"},
	)

	// AlertsUnread tracks the current number of unread alerts.
	AlertsUnread = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "phishguard_alerts_unread",
			Help: "Number of unread alerts currently held",
		},
	)

	// NotificationsPromoted counts alerts promoted to the visible notification surface.
	NotificationsPromoted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "phishguard_notifications_promoted_total",
			Help: "Total number of alerts promoted to transient notifications",
		},
	)

	// AudioCues counts audible cues emitted for high-severity promotions.
	AudioCues = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "phishguard_audio_cues_total",
			Help: "Total number of audible cues emitted",
		},
	)

	// PersistFailures counts failed writes to durable alert storage.
	PersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "phishguard_persist_failures_total",
			Help: "Total number of failed alert persistence writes",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "phishguard_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
