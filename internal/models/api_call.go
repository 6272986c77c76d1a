// Package models defines data structures and domain types.
package models

import "time"

// APICall records one request made to the cost API (DB model).
type APICall struct {
	Timestamp      time.Time
	Endpoint       string
	Method         string
	SubscriptionID string
	Error          string
	StatusCode     int
	DurationMs     int64
	ID             int64
}

// Failed reports whether the call did not produce a 2xx response.
func (c APICall) Failed() bool {
	return c.Error != "" || c.StatusCode >= 400 || c.StatusCode == 0
}
