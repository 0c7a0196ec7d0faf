package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxgate_ingest_events_total",
			Help: "Total number of ingress calls by outcome",
		},
		[]string{"status", "source_type"},
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fluxgate_ingest_duration_seconds",
			Help:    "Duration of full ingress pipeline runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RiskLaneTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxgate_risk_lane_total",
			Help: "Total events classified per risk lane",
		},
		[]string{"lane"},
	)

	// Delivery metrics
	DeliveryAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fluxgate_delivery_attempts_total",
			Help: "Total delivery attempts including retries",
		},
	)

	DeliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fluxgate_delivery_failures_total",
			Help: "Total deliveries that exhausted retries",
		},
	)

	// Dead-letter metrics
	DLQWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fluxgate_dlq_writes_total",
			Help: "Total dead-letter entries written",
		},
	)

	DLQReplays = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxgate_dlq_replays_total",
			Help: "Total dead-letter replay attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Connector sync metrics
	SyncRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fluxgate_sync_runs_total",
			Help: "Total connector sync orchestrations",
		},
	)

	SyncConnectorErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fluxgate_sync_connector_errors_total",
			Help: "Total isolated per-connector sync failures",
		},
		[]string{"provider"},
	)
)
