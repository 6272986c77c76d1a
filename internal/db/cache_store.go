package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CacheStore is a key/value table backing the result cache. Writes are
// last-writer-wins; concurrent processes never see a partial value.
type CacheStore struct {
	db *DB
}

// Cache returns the key/value store on db.
func (db *DB) Cache() *CacheStore {
	return &CacheStore{db: db}
}

// Load returns the value stored under key.
func (s *CacheStore) Load(key string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRowContext(context.Background(),
		"SELECT value FROM cache_entries WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load cache entry: %w", err)
	}
	return []byte(value), true, nil
}

// Store writes value under key, replacing any previous value.
func (s *CacheStore) Store(key string, value []byte) error {
	query := `
		INSERT INTO cache_entries (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(context.Background(), query,
		key, string(value), time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *CacheStore) Delete(key string) error {
	if _, err := s.db.ExecContext(context.Background(),
		"DELETE FROM cache_entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Keys returns every key starting with prefix, in key order.
func (s *CacheStore) Keys(prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(context.Background(),
		"SELECT key FROM cache_entries WHERE instr(key, ?) = 1 ORDER BY key", prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan cache key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
