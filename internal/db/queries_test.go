package db

import (
	"testing"
	"time"

	"github.com/j-veylop/cost-dashboard-tui/internal/models"
)

func TestInsertAPICall(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	call := &models.APICall{
		Method:         "POST",
		Endpoint:       "/cost/subscriptions/batch-costs",
		SubscriptionID: "sub-1",
		StatusCode:     200,
		DurationMs:     150,
	}

	if err := db.InsertAPICall(call); err != nil {
		t.Fatalf("InsertAPICall() failed: %v", err)
	}
	if call.ID == 0 {
		t.Error("InsertAPICall() should set ID")
	}
}

func TestGetRecentAPICalls(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	now := time.Now().UTC().Truncate(time.Second)
	db.RecordAPICall(models.APICall{
		Timestamp: now.Add(-2 * time.Minute), Method: "GET", Endpoint: "/cost/subscriptions", StatusCode: 200,
	})
	db.RecordAPICall(models.APICall{
		Timestamp: now.Add(-time.Minute), Method: "POST", Endpoint: "/cost/subscriptions/batch-costs",
		SubscriptionID: "sub-1", StatusCode: 429, Error: "Too Many Requests",
	})

	calls, err := db.GetRecentAPICalls(10)
	if err != nil {
		t.Fatalf("GetRecentAPICalls() error = %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("len = %d, want 2", len(calls))
	}
	if calls[0].StatusCode != 429 || calls[0].SubscriptionID != "sub-1" || calls[0].Error == "" {
		t.Errorf("newest call = %+v, want the rate-limited batch call", calls[0])
	}
	if !calls[0].Failed() || calls[1].Failed() {
		t.Errorf("Failed() = %v/%v, want true/false", calls[0].Failed(), calls[1].Failed())
	}
	if !calls[1].Timestamp.Equal(now.Add(-2 * time.Minute)) {
		t.Errorf("Timestamp = %v, want %v", calls[1].Timestamp, now.Add(-2*time.Minute))
	}
}

func TestGetTotalAndHourlyStats(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	empty, err := db.GetTotalStats()
	if err != nil {
		t.Fatalf("GetTotalStats() on empty db error = %v", err)
	}
	if empty.TotalCalls != 0 {
		t.Errorf("TotalCalls = %d, want 0", empty.TotalCalls)
	}

	for _, code := range []int{200, 200, 429, 500} {
		db.RecordAPICall(models.APICall{
			Method: "POST", Endpoint: "/batch", SubscriptionID: "sub-1", StatusCode: code, DurationMs: 100,
		})
	}
	db.RecordAPICall(models.APICall{Method: "GET", Endpoint: "/x", SubscriptionID: "sub-2", StatusCode: 200})

	stats, err := db.GetTotalStats()
	if err != nil {
		t.Fatalf("GetTotalStats() error = %v", err)
	}
	if stats.TotalCalls != 5 || stats.ErrorCount != 2 || stats.RateLimited != 1 || stats.UniqueSubscriptions != 2 {
		t.Errorf("GetTotalStats() = %+v", stats)
	}

	hourly, err := db.GetHourlyStats(24)
	if err != nil {
		t.Fatalf("GetHourlyStats() error = %v", err)
	}
	total := 0
	for _, h := range hourly {
		total += h.TotalCalls
	}
	if total != 5 {
		t.Errorf("hourly total = %d, want 5", total)
	}
}

func TestRefreshRuns(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	start := time.Now().UTC().Truncate(time.Second)
	older := &models.RefreshRun{
		StartedAt:     start.Add(-time.Hour),
		FinishedAt:    start.Add(-time.Hour + 30*time.Second),
		FilterKey:     "[]",
		Default:       true,
		Subscriptions: 3,
		Fetched:       3,
	}
	newer := &models.RefreshRun{
		StartedAt:     start,
		FilterKey:     `[{"id":"x"}]`,
		Subscriptions: 3,
		Fetched:       1,
		FromCache:     1,
		Failed:        1,
		Error:         "sub-3: boom",
	}
	for _, run := range []*models.RefreshRun{older, newer} {
		if err := db.InsertRefreshRun(run); err != nil {
			t.Fatalf("InsertRefreshRun() error = %v", err)
		}
		if run.ID == 0 {
			t.Error("InsertRefreshRun() should set ID")
		}
	}

	runs, err := db.GetRecentRefreshRuns(5)
	if err != nil {
		t.Fatalf("GetRecentRefreshRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len = %d, want 2", len(runs))
	}
	if runs[0].ID != newer.ID || runs[0].Failed != 1 || runs[0].Error != "sub-3: boom" {
		t.Errorf("newest run = %+v", runs[0])
	}
	if !runs[0].FinishedAt.IsZero() {
		t.Errorf("unfinished run FinishedAt = %v, want zero", runs[0].FinishedAt)
	}
	if !runs[1].Default || runs[1].Duration() != 30*time.Second {
		t.Errorf("older run = %+v, duration %v", runs[1], runs[1].Duration())
	}
}

func TestCleanupOldAPICalls(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	db.RecordAPICall(models.APICall{
		Timestamp: time.Now().Add(-40 * 24 * time.Hour), Method: "GET", Endpoint: "/old", StatusCode: 200,
	})
	db.RecordAPICall(models.APICall{Method: "GET", Endpoint: "/new", StatusCode: 200})

	n, err := db.CleanupOldAPICalls(30)
	if err != nil {
		t.Fatalf("CleanupOldAPICalls() error = %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d rows, want 1", n)
	}
}
