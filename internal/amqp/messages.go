// Package amqp publishes refresh summaries to a RabbitMQ exchange.
package amqp

import (
	"encoding/json"
	"time"

	"github.com/j-veylop/cost-dashboard-tui/internal/models"
)

// RefreshMessage summarizes one completed overview refresh.
type RefreshMessage struct {
	Timestamp     time.Time `json:"timestamp"`
	FilterKey     string    `json:"filter_key"`
	Period        string    `json:"period"`
	Budget        string    `json:"budget_status"`
	Error         string    `json:"error,omitempty"`
	ActualCost    float64   `json:"actual_cost"`
	ProjectedCost float64   `json:"projected_cost"`
	DurationMs    int64     `json:"duration_ms"`
	Subscriptions int       `json:"subscriptions"`
	Loaded        int       `json:"loaded"`
	Failed        int       `json:"failed"`
	Default       bool      `json:"default_filters"`
}

// NewRefreshMessage builds a message from a recorded run.
func NewRefreshMessage(run models.RefreshRun) *RefreshMessage {
	return &RefreshMessage{
		Timestamp:     run.FinishedAt,
		FilterKey:     run.FilterKey,
		Error:         run.Error,
		DurationMs:    run.Duration().Milliseconds(),
		Subscriptions: run.Subscriptions,
		Loaded:        run.Fetched + run.FromCache,
		Failed:        run.Failed,
		Default:       run.Default,
	}
}

// ToJSON converts the message to JSON bytes
func (m *RefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshMessageFromJSON creates a message from JSON bytes
func RefreshMessageFromJSON(data []byte) (*RefreshMessage, error) {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
