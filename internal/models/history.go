package models

import "time"

// Granularity is the bucket size of a history query.
type Granularity string

const (
	GranularityRaw     Granularity = "raw"
	GranularityDaily   Granularity = "daily"
	GranularityMonthly Granularity = "monthly"
	GranularityYearly  Granularity = "yearly"
)

// HistoryPoint is the normalized history record. Raw snapshots and rollups
// are both mapped to this shape so consumers never branch on the source.
type HistoryPoint struct {
	Timestamp      time.Time `json:"timestamp"`
	Date           string    `json:"date"`
	CPUUsage       float64   `json:"cpu_usage"`
	MemoryUsage    float64   `json:"memory_usage"`
	SystemLoad     float64   `json:"system_load"`
	ResponseTime   float64   `json:"response_time"`
	ActiveUsers    float64   `json:"active_users"`
	MaxActiveUsers int64     `json:"max_active_users"`
	ErrorRate      float64   `json:"error_rate"`
	DataPoints     int64     `json:"data_points"`
}

// HistoryWindow is the resolved query window for a range token.
type HistoryWindow struct {
	Range       string      `json:"range"`
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	Granularity Granularity `json:"granularity"`
}
