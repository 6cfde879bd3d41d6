package repository

import (
	"time"

	"nigrani/internal/models"
)

const snapshotColumns = `id, timestamp, date, hour, day_of_week, month, year,
	cpu_load, memory_usage, disk_usage, system_load, response_time,
	active_connections, total_memory_gb, free_memory_gb, uptime_seconds,
	active_users, total_users, error_rate, error_count, created_at`

type snapshotRow struct {
	ID                string  `db:"id"`
	Timestamp         int64   `db:"timestamp"`
	Date              string  `db:"date"`
	Hour              int     `db:"hour"`
	DayOfWeek         int     `db:"day_of_week"`
	Month             int     `db:"month"`
	Year              int     `db:"year"`
	CPULoad           float64 `db:"cpu_load"`
	MemoryUsage       float64 `db:"memory_usage"`
	DiskUsage         float64 `db:"disk_usage"`
	SystemLoad        float64 `db:"system_load"`
	ResponseTime      float64 `db:"response_time"`
	ActiveConnections int64   `db:"active_connections"`
	TotalMemoryGB     float64 `db:"total_memory_gb"`
	FreeMemoryGB      float64 `db:"free_memory_gb"`
	UptimeSeconds     int64   `db:"uptime_seconds"`
	ActiveUsers       int64   `db:"active_users"`
	TotalUsers        int64   `db:"total_users"`
	ErrorRate         float64 `db:"error_rate"`
	ErrorCount        int64   `db:"error_count"`
	CreatedAt         int64   `db:"created_at"`
}

func toRow(s models.Snapshot) snapshotRow {
	return snapshotRow{
		ID:                s.ID,
		Timestamp:         s.Timestamp.UnixMilli(),
		Date:              s.Date,
		Hour:              s.Hour,
		DayOfWeek:         s.DayOfWeek,
		Month:             s.Month,
		Year:              s.Year,
		CPULoad:           s.CPULoadIndicator,
		MemoryUsage:       s.MemoryUsagePercent,
		DiskUsage:         s.DiskUsagePercent,
		SystemLoad:        s.SystemLoadIndicator,
		ResponseTime:      s.AverageResponseTimeMillis,
		ActiveConnections: s.ActiveConnections,
		TotalMemoryGB:     s.TotalMemoryGB,
		FreeMemoryGB:      s.FreeMemoryGB,
		UptimeSeconds:     s.UptimeSeconds,
		ActiveUsers:       s.ActiveUserCount,
		TotalUsers:        s.TotalUserCount,
		ErrorRate:         s.ErrorRatePercent,
		ErrorCount:        s.ErrorCount,
	}
}

func (row snapshotRow) toModel() models.Snapshot {
	return models.Snapshot{
		ID:                        row.ID,
		Timestamp:                 time.UnixMilli(row.Timestamp).UTC(),
		Date:                      row.Date,
		Hour:                      row.Hour,
		DayOfWeek:                 row.DayOfWeek,
		Month:                     row.Month,
		Year:                      row.Year,
		CPULoadIndicator:          row.CPULoad,
		MemoryUsagePercent:        row.MemoryUsage,
		DiskUsagePercent:          row.DiskUsage,
		SystemLoadIndicator:       row.SystemLoad,
		AverageResponseTimeMillis: row.ResponseTime,
		ActiveConnections:         row.ActiveConnections,
		TotalMemoryGB:             row.TotalMemoryGB,
		FreeMemoryGB:              row.FreeMemoryGB,
		UptimeSeconds:             row.UptimeSeconds,
		ActiveUserCount:           row.ActiveUsers,
		TotalUserCount:            row.TotalUsers,
		ErrorRatePercent:          row.ErrorRate,
		ErrorCount:                row.ErrorCount,
	}
}

type rollupRow struct {
	BucketKey              string  `db:"bucket_key"`
	Date                   string  `db:"date"`
	Year                   int     `db:"year"`
	Month                  int     `db:"month"`
	AvgCPU                 float64 `db:"avg_cpu"`
	MaxCPU                 float64 `db:"max_cpu"`
	MinCPU                 float64 `db:"min_cpu"`
	AvgMemory              float64 `db:"avg_memory"`
	MaxMemory              float64 `db:"max_memory"`
	MinMemory              float64 `db:"min_memory"`
	AvgLoad                float64 `db:"avg_load"`
	MaxLoad                float64 `db:"max_load"`
	MinLoad                float64 `db:"min_load"`
	AvgResponse            float64 `db:"avg_response"`
	MaxResponse            float64 `db:"max_response"`
	MinResponse            float64 `db:"min_response"`
	TotalActiveConnections int64   `db:"total_active_connections"`
	AvgActiveUsers         float64 `db:"avg_active_users"`
	MaxActiveUsers         int64   `db:"max_active_users"`
	AvgErrorRate           float64 `db:"avg_error_rate"`
	DataPoints             int64   `db:"data_points"`
}

func (row rollupRow) toModel() models.Rollup {
	return models.Rollup{
		BucketKey:              row.BucketKey,
		Date:                   row.Date,
		Year:                   row.Year,
		Month:                  row.Month,
		AvgCPUUsage:            row.AvgCPU,
		MaxCPUUsage:            row.MaxCPU,
		MinCPUUsage:            row.MinCPU,
		AvgMemoryUsage:         row.AvgMemory,
		MaxMemoryUsage:         row.MaxMemory,
		MinMemoryUsage:         row.MinMemory,
		AvgSystemLoad:          row.AvgLoad,
		MaxSystemLoad:          row.MaxLoad,
		MinSystemLoad:          row.MinLoad,
		AvgResponseTime:        row.AvgResponse,
		MaxResponseTime:        row.MaxResponse,
		MinResponseTime:        row.MinResponse,
		TotalActiveConnections: row.TotalActiveConnections,
		AvgActiveUsers:         row.AvgActiveUsers,
		MaxActiveUsers:         row.MaxActiveUsers,
		AvgErrorRate:           row.AvgErrorRate,
		DataPoints:             row.DataPoints,
	}
}
