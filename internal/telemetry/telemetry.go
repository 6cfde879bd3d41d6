// Package telemetry exposes the subsystem's own Prometheus metrics.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nigrani"

var (
	SnapshotsCollectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_collected_total",
			Help:      "Total number of snapshots built by the collector.",
		},
	)

	SnapshotPersistFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_persist_failures_total",
			Help:      "Total number of snapshots that could not be written to the long-term store.",
		},
	)

	RetentionDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_deleted_total",
			Help:      "Total number of snapshots removed by the retention sweeper.",
		},
	)

	RetentionFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_failures_total",
			Help:      "Total number of failed retention sweeps.",
		},
	)

	// HistoryQueriesTotal counts history lookups by the source that served them.
	HistoryQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_queries_total",
			Help:      "Total number of history queries by serving source.",
		},
		[]string{"source"},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Number of snapshots held in the short-term cache.",
		},
	)

	RecorderSamples = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recorder_samples",
			Help:      "Number of request samples held by the recorder.",
		},
	)

	RequestDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of requests observed by the recorder.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10),
		},
	)
)
