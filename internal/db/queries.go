package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/j-veylop/cost-dashboard-tui/internal/logger"
	"github.com/j-veylop/cost-dashboard-tui/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

// InsertAPICall logs a cost API call to the database.
func (db *DB) InsertAPICall(call *models.APICall) error {
	query := `
		INSERT INTO api_calls (
			timestamp, method, endpoint, subscription_id, status_code, duration_ms, error
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	timestamp := call.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	result, err := db.ExecContext(context.Background(), query,
		timestamp.UTC().Format(timeLayout),
		call.Method,
		call.Endpoint,
		nullString(call.SubscriptionID),
		call.StatusCode,
		call.DurationMs,
		nullString(call.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to insert API call: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		call.ID = id
	}

	return nil
}

// RecordAPICall implements the cost API client's call recorder. Failures are
// logged, never returned.
func (db *DB) RecordAPICall(call models.APICall) {
	if err := db.InsertAPICall(&call); err != nil {
		logger.Warn("failed to record API call", "endpoint", call.Endpoint, "error", err)
	}
}

// GetRecentAPICalls returns the most recent API calls.
func (db *DB) GetRecentAPICalls(limit int) ([]models.APICall, error) {
	query := `
		SELECT id, timestamp, method, endpoint, subscription_id, status_code, duration_ms, error
		FROM api_calls
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`

	rows, err := db.QueryContext(context.Background(), query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent API calls: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var calls []models.APICall
	for rows.Next() {
		var call models.APICall
		var subID, errStr sql.NullString

		err := rows.Scan(
			&call.ID,
			&call.Timestamp,
			&call.Method,
			&call.Endpoint,
			&subID,
			&call.StatusCode,
			&call.DurationMs,
			&errStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan API call: %w", err)
		}

		call.SubscriptionID = subID.String
		call.Error = errStr.String
		calls = append(calls, call)
	}

	return calls, rows.Err()
}

// GetHourlyStats returns API usage grouped by hour.
func (db *DB) GetHourlyStats(hours int) ([]models.HourlyStats, error) {
	query := `
		SELECT
			strftime('%Y-%m-%d %H:00:00', timestamp) as hour,
			COUNT(*) as total_calls,
			COALESCE(AVG(duration_ms), 0) as avg_duration,
			SUM(CASE WHEN status_code >= 400 OR status_code = 0 THEN 1 ELSE 0 END) as error_count,
			SUM(CASE WHEN status_code = 429 THEN 1 ELSE 0 END) as rate_limited
		FROM api_calls
		WHERE timestamp >= datetime('now', ?)
		GROUP BY hour
		ORDER BY hour DESC
	`

	rows, err := db.QueryContext(context.Background(), query, fmt.Sprintf("-%d hours", hours))
	if err != nil {
		return nil, fmt.Errorf("failed to query hourly stats: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var stats []models.HourlyStats
	for rows.Next() {
		var s models.HourlyStats
		var hourStr string

		if err := rows.Scan(&hourStr, &s.TotalCalls, &s.AvgDurationMs, &s.ErrorCount, &s.RateLimited); err != nil {
			return nil, fmt.Errorf("failed to scan hourly stats: %w", err)
		}

		s.Hour, _ = time.Parse(timeLayout, hourStr)
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetTotalStats returns overall API usage.
func (db *DB) GetTotalStats() (*models.TotalStats, error) {
	query := `
		SELECT
			COUNT(*) as total_calls,
			COALESCE(AVG(duration_ms), 0) as avg_duration,
			COALESCE(SUM(CASE WHEN status_code >= 400 OR status_code = 0 THEN 1 ELSE 0 END), 0) as error_count,
			COALESCE(SUM(CASE WHEN status_code = 429 THEN 1 ELSE 0 END), 0) as rate_limited,
			COUNT(DISTINCT subscription_id) as unique_subscriptions
		FROM api_calls
	`

	var stats models.TotalStats
	err := db.QueryRowContext(context.Background(), query).Scan(
		&stats.TotalCalls,
		&stats.AvgDurationMs,
		&stats.ErrorCount,
		&stats.RateLimited,
		&stats.UniqueSubscriptions,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query total stats: %w", err)
	}

	return &stats, nil
}

// InsertRefreshRun stores a completed overview refresh cycle.
func (db *DB) InsertRefreshRun(run *models.RefreshRun) error {
	query := `
		INSERT INTO refresh_runs (
			started_at, finished_at, filter_key, is_default,
			subscriptions, fetched, from_cache, failed, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var finished sql.NullString
	if !run.FinishedAt.IsZero() {
		finished = sql.NullString{String: run.FinishedAt.UTC().Format(timeLayout), Valid: true}
	}

	result, err := db.ExecContext(context.Background(), query,
		run.StartedAt.UTC().Format(timeLayout),
		finished,
		run.FilterKey,
		run.Default,
		run.Subscriptions,
		run.Fetched,
		run.FromCache,
		run.Failed,
		nullString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to insert refresh run: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		run.ID = id
	}
	return nil
}

// GetRecentRefreshRuns returns the latest refresh cycles, newest first.
func (db *DB) GetRecentRefreshRuns(limit int) ([]models.RefreshRun, error) {
	query := `
		SELECT id, started_at, finished_at, filter_key, is_default,
			   subscriptions, fetched, from_cache, failed, error
		FROM refresh_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`

	rows, err := db.QueryContext(context.Background(), query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query refresh runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []models.RefreshRun
	for rows.Next() {
		var run models.RefreshRun
		var finished sql.NullTime
		var errStr sql.NullString

		err := rows.Scan(
			&run.ID,
			&run.StartedAt,
			&finished,
			&run.FilterKey,
			&run.Default,
			&run.Subscriptions,
			&run.Fetched,
			&run.FromCache,
			&run.Failed,
			&errStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan refresh run: %w", err)
		}
		if finished.Valid {
			run.FinishedAt = finished.Time
		}
		run.Error = errStr.String
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// CleanupOldAPICalls deletes API call rows older than the given number of days.
func (db *DB) CleanupOldAPICalls(olderThanDays int) (int64, error) {
	result, err := db.ExecContext(context.Background(),
		"DELETE FROM api_calls WHERE timestamp < datetime('now', ?)",
		fmt.Sprintf("-%d days", olderThanDays))
	if err != nil {
		return 0, fmt.Errorf("failed to clean up API calls: %w", err)
	}
	return result.RowsAffected()
}

// nullString returns a sql.NullString from a string.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
