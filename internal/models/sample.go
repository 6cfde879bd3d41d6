package models

import "time"

// Sample is a single request-duration observation. Samples only live in the
// recorder's buffer.
type Sample struct {
	Timestamp      time.Time `json:"timestamp"`
	DurationMillis float64   `json:"duration_ms"`
	IsError        bool      `json:"is_error"`
}
