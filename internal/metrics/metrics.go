// Package metrics exposes the engine's Prometheus collectors.
// Scraped via the web package's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "security_bot",
		Name:      "events_processed_total",
		Help:      "Inbound platform events by type.",
	}, []string{"type"})

	ViolationsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "security_bot",
		Name:      "violations_detected_total",
		Help:      "Detected violations by type.",
	}, []string{"type"})

	ActionsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "security_bot",
		Name:      "actions_executed_total",
		Help:      "Enforcement actions by kind.",
	}, []string{"kind"})

	RaidActivations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "security_bot",
		Name:      "raid_activations_total",
		Help:      "Raid mode activations by trigger.",
	}, []string{"trigger"})

	DetectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "security_bot",
		Name:      "detection_duration_seconds",
		Help:      "Wall time from event receipt to verdict.",
		Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
	})

	RESTRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "security_bot",
		Name:      "rest_request_duration_seconds",
		Help:      "Discord REST call latency by method.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"method"})

	GatewayFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "security_bot",
		Name:      "gateway_frames_total",
		Help:      "Raw gateway frames seen on the fast path by event name.",
	}, []string{"event"})

	GuildFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "security_bot",
		Name:      "guild_frames_total",
		Help:      "Watched gateway frames by event name and guild.",
	}, []string{"event", "guild_id"})

	ActiveRaidModes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "security_bot",
		Name:      "raid_modes_active",
		Help:      "Guilds currently in raid mode.",
	})
)
