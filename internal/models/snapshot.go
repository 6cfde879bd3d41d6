package models

import "time"

// DateLayout is the calendar day key used for daily buckets.
const DateLayout = "2006-01-02"

// Snapshot is one point-in-time health record. Snapshots are never mutated
// after the collector creates them.
type Snapshot struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	// Calendar keys, always derived from Timestamp via SetTimestamp.
	Date      string `json:"date"`
	Hour      int    `json:"hour"`
	DayOfWeek int    `json:"day_of_week"`
	Month     int    `json:"month"`
	Year      int    `json:"year"`

	// CPULoadIndicator is an API-load proxy derived from recent average
	// latency. It is not host CPU utilisation.
	CPULoadIndicator          float64 `json:"cpu_load_indicator"`
	MemoryUsagePercent        float64 `json:"memory_usage_percent"`
	DiskUsagePercent          float64 `json:"disk_usage_percent"`
	SystemLoadIndicator       float64 `json:"system_load_indicator"`
	AverageResponseTimeMillis float64 `json:"average_response_time_ms"`
	ActiveConnections         int64   `json:"active_connections"`

	TotalMemoryGB float64 `json:"total_memory_gb"`
	FreeMemoryGB  float64 `json:"free_memory_gb"`
	UptimeSeconds int64   `json:"uptime_seconds"`

	ActiveUserCount int64 `json:"active_user_count"`
	TotalUserCount  int64 `json:"total_user_count"`

	ErrorRatePercent float64 `json:"error_rate_percent"`
	ErrorCount       int64   `json:"error_count"`
}

// SetTimestamp sets Timestamp and recomputes the calendar keys in loc.
func (s *Snapshot) SetTimestamp(ts time.Time, loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	local := ts.In(loc)
	s.Timestamp = ts
	s.Date = local.Format(DateLayout)
	s.Hour = local.Hour()
	s.DayOfWeek = int(local.Weekday())
	s.Month = int(local.Month())
	s.Year = local.Year()
}

// Rollup is a query-time aggregate over the snapshots sharing one calendar
// bucket. It is never stored.
type Rollup struct {
	BucketKey string `json:"bucket_key"`
	Date      string `json:"date,omitempty"`
	Year      int    `json:"year"`
	Month     int    `json:"month,omitempty"`

	AvgCPUUsage float64 `json:"avg_cpu_usage"`
	MaxCPUUsage float64 `json:"max_cpu_usage"`
	MinCPUUsage float64 `json:"min_cpu_usage"`

	AvgMemoryUsage float64 `json:"avg_memory_usage"`
	MaxMemoryUsage float64 `json:"max_memory_usage"`
	MinMemoryUsage float64 `json:"min_memory_usage"`

	AvgSystemLoad float64 `json:"avg_system_load"`
	MaxSystemLoad float64 `json:"max_system_load"`
	MinSystemLoad float64 `json:"min_system_load"`

	AvgResponseTime float64 `json:"avg_response_time"`
	MaxResponseTime float64 `json:"max_response_time"`
	MinResponseTime float64 `json:"min_response_time"`

	TotalActiveConnections int64   `json:"total_active_connections"`
	AvgActiveUsers         float64 `json:"avg_active_users"`
	MaxActiveUsers         int64   `json:"max_active_users"`
	AvgErrorRate           float64 `json:"avg_error_rate"`

	DataPoints int64 `json:"data_points"`
}
