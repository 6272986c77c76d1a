package models

import "time"

// HourlyStats represents cost API usage grouped by hour.
type HourlyStats struct {
	Hour          time.Time
	TotalCalls    int
	AvgDurationMs float64
	ErrorCount    int
	RateLimited   int
}

// TotalStats represents overall cost API usage.
type TotalStats struct {
	TotalCalls          int
	AvgDurationMs       float64
	ErrorCount          int
	RateLimited         int
	UniqueSubscriptions int
}

// RefreshRun records one overview refresh cycle (DB model).
type RefreshRun struct {
	StartedAt     time.Time
	FinishedAt    time.Time
	FilterKey     string
	Error         string
	ID            int64
	Subscriptions int
	Fetched       int
	FromCache     int
	Failed        int
	Default       bool
}

// Duration returns how long the cycle took.
func (r RefreshRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
