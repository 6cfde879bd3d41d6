package models

import "time"

const (
	StorageHealthy   = "healthy"
	StorageUnhealthy = "unhealthy"
	StorageUnknown   = "unknown"
)

// StorageHealth is the result of a storage health probe.
type StorageHealth struct {
	Status             string  `json:"status"`
	ResponseTimeMillis float64 `json:"response_time_ms"`
}

// ProcessStats holds the host process readings used by a snapshot.
type ProcessStats struct {
	HeapUsedBytes  uint64 `json:"heap_used_bytes"`
	HeapTotalBytes uint64 `json:"heap_total_bytes"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
}

// LiveStatus is what the live dashboard shows: a freshly built snapshot
// plus readings that are not persisted.
type LiveStatus struct {
	Snapshot                  Snapshot  `json:"snapshot"`
	StorageStatus             string    `json:"storage_status"`
	StorageResponseTimeMillis float64   `json:"storage_response_time_ms"`
	RequestsPerMinute         int       `json:"requests_per_minute"`
	AverageResponseTimeMillis float64   `json:"average_response_time_ms"`
	UptimeFormatted           string    `json:"uptime_formatted"`
	Hostname                  string    `json:"hostname"`
	Platform                  string    `json:"platform"`
	Architecture              string    `json:"architecture"`
	GoVersion                 string    `json:"go_version"`
	LastUpdated               time.Time `json:"last_updated"`
}
