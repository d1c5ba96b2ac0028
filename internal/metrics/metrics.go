// Package metrics defines the Prometheus instrumentation surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine metrics
var (
	// SentimentScore tracks the current smoothed sentiment score.
	SentimentScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentiment_score",
			Help: "Current EMA-smoothed sentiment score (0-100)",
		},
	)

	// CurrentFee tracks the fee the engine currently quotes.
	CurrentFee = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentiment_current_fee",
			Help: "Fee currently derived from the sentiment score",
		},
	)

	// EngineStale is 1 while the engine quotes the default fee.
	EngineStale = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentiment_engine_stale",
			Help: "Whether the sentiment score is stale (1) or fresh (0)",
		},
	)

	// UpdatesTotal counts sentiment updates by outcome.
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiment_updates_total",
			Help: "Sentiment updates by outcome (accepted, unauthorized, out_of_range)",
		},
		[]string{"outcome"},
	)

	// AdminChangesTotal counts successful admin configuration changes by kind.
	AdminChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiment_admin_changes_total",
			Help: "Successful admin configuration changes by event kind",
		},
		[]string{"kind"},
	)
)

// Event delivery metrics
var (
	// EventsPublished counts published domain events by kind.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiment_events_published_total",
			Help: "Domain events published by kind",
		},
		[]string{"kind"},
	)

	// PublishFailures counts event delivery failures by sink.
	PublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiment_publish_failures_total",
			Help: "Event delivery failures by sink (redis, journal)",
		},
		[]string{"sink"},
	)

	// SnapshotSaveFailures counts failed state snapshot writes.
	SnapshotSaveFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentiment_snapshot_save_failures_total",
			Help: "Failed engine snapshot writes to the state store",
		},
	)
)

// Keeper metrics
var (
	// KeeperRunsTotal counts keeper aggregation runs by outcome.
	KeeperRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeper_runs_total",
			Help: "Keeper aggregation runs by outcome (submitted, skipped, failed)",
		},
		[]string{"outcome"},
	)

	// KeeperSourceFailures counts signal source fetch failures by source.
	KeeperSourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeper_source_failures_total",
			Help: "Signal source fetch failures by source",
		},
		[]string{"source"},
	)
)
