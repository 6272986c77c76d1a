// Package cache stores per-subscription cost results with a lazily enforced
// time-to-live.
package cache

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/j-veylop/cost-dashboard-tui/internal/config"
	"github.com/j-veylop/cost-dashboard-tui/internal/logger"
	"github.com/j-veylop/cost-dashboard-tui/internal/models"
)

// KeyPrefix namespaces every cache entry in Storage.
const KeyPrefix = "subscriptionDataCache"

// DefaultTTL is how long an entry stays valid.
const DefaultTTL = time.Hour

// Entry is the stored form of a cached result. Timestamp is in Unix
// milliseconds.
type Entry struct {
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Options configures a Service.
type Options struct {
	Now      func() time.Time
	Eviction config.EvictionScope
	TTL      time.Duration
}

// Service is the result cache. It is safe for concurrent use when its
// Storage is.
type Service struct {
	store    Storage
	now      func() time.Time
	eviction config.EvictionScope
	ttl      time.Duration
}

// New returns a cache backed by store.
func New(store Storage, opts Options) *Service {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Eviction == "" {
		opts.Eviction = config.EvictSubscription
	}
	return &Service{
		store:    store,
		now:      opts.Now,
		eviction: opts.Eviction,
		ttl:      opts.TTL,
	}
}

// TTL returns the configured time-to-live.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

func subscriptionPrefix(subID string) string {
	return KeyPrefix + "/" + url.PathEscape(subID) + "/"
}

func storageKey(subID string, b Bucket) string {
	return subscriptionPrefix(subID) + b.String()
}

// load reads and decodes one entry. Decode failures are logged and reported
// as a miss.
func (s *Service) load(key string) (Entry, bool) {
	raw, ok, err := s.store.Load(key)
	if err != nil {
		logger.Warn("cache read failed", "key", key, "error", err)
		return Entry{}, false
	}
	if !ok {
		return Entry{}, false
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		logger.Warn("cache entry is corrupt", "key", key, "error", err)
		return Entry{}, false
	}
	return e, true
}

// fresh reports whether e is younger than the TTL and carries a non-empty
// JSON object.
func (s *Service) fresh(e Entry) bool {
	age := s.now().Sub(time.UnixMilli(e.Timestamp))
	if age >= s.ttl {
		return false
	}
	return nonEmptyObject(e.Data)
}

func nonEmptyObject(data json.RawMessage) bool {
	if len(data) == 0 {
		return false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return false
	}
	return len(fields) > 0
}

func decodeResult(key string, data json.RawMessage) (*models.SubscriptionCostResult, bool) {
	var result models.SubscriptionCostResult
	if err := json.Unmarshal(data, &result); err != nil {
		logger.Warn("cached result is corrupt", "key", key, "error", err)
		return nil, false
	}
	return &result, true
}

// IsValid reports whether a fresh, non-empty entry exists for subID in b.
func (s *Service) IsValid(subID string, b Bucket) bool {
	e, ok := s.load(storageKey(subID, b))
	return ok && s.fresh(e)
}

// Get returns the cached result for subID in b regardless of age.
func (s *Service) Get(subID string, b Bucket) (*models.SubscriptionCostResult, bool) {
	key := storageKey(subID, b)
	e, ok := s.load(key)
	if !ok || len(e.Data) == 0 || string(e.Data) == "null" {
		return nil, false
	}
	return decodeResult(key, e.Data)
}

// Set stores result for subID in b. After a successful write the other
// entries of the subscription are evicted according to the eviction scope.
func (s *Service) Set(subID string, b Bucket, result *models.SubscriptionCostResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode cache data: %w", err)
	}
	raw, err := json.Marshal(Entry{Timestamp: s.now().UnixMilli(), Data: data})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	key := storageKey(subID, b)
	if err := s.store.Store(key, raw); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	s.evict(subID, key, b)
	return nil
}

func (s *Service) evict(subID, keep string, b Bucket) {
	prefix := subscriptionPrefix(subID)
	keys, err := s.store.Keys(prefix)
	if err != nil {
		logger.Warn("cache eviction skipped", "subscription", subID, "error", err)
		return
	}
	for _, key := range keys {
		if key == keep {
			continue
		}
		if s.eviction == config.EvictBucket {
			other, ok := parseBucket(strings.TrimPrefix(key, prefix))
			if ok && other.IsDefaultUnfiltered() != b.IsDefaultUnfiltered() {
				continue
			}
		}
		if err := s.store.Delete(key); err != nil {
			logger.Warn("failed to evict cache entry", "key", key, "error", err)
		}
	}
}

// FindAnyValid returns the most recently written valid entry for subID in
// any bucket. The result may not match the current filters.
func (s *Service) FindAnyValid(subID string) (Bucket, *models.SubscriptionCostResult, bool) {
	prefix := subscriptionPrefix(subID)
	keys, err := s.store.Keys(prefix)
	if err != nil {
		logger.Warn("cache scan failed", "subscription", subID, "error", err)
		return Bucket{}, nil, false
	}

	var (
		bestKey    string
		bestBucket Bucket
		best       Entry
		found      bool
	)
	for _, key := range keys {
		b, ok := parseBucket(strings.TrimPrefix(key, prefix))
		if !ok {
			continue
		}
		e, ok := s.load(key)
		if !ok || !s.fresh(e) {
			continue
		}
		if !found || e.Timestamp > best.Timestamp {
			bestKey, bestBucket, best, found = key, b, e, true
		}
	}
	if !found {
		return Bucket{}, nil, false
	}

	result, ok := decodeResult(bestKey, best.Data)
	if !ok {
		return Bucket{}, nil, false
	}
	return bestBucket, result, true
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries       int
	Valid         int
	Expired       int
	Corrupt       int
	Subscriptions int
	Newest        time.Time
}

// Stats scans every entry.
func (s *Service) Stats() (Stats, error) {
	keys, err := s.store.Keys(KeyPrefix + "/")
	if err != nil {
		return Stats{}, fmt.Errorf("failed to list cache keys: %w", err)
	}

	var st Stats
	subs := make(map[string]struct{})
	for _, key := range keys {
		st.Entries++
		rest := strings.TrimPrefix(key, KeyPrefix+"/")
		if sub, _, ok := strings.Cut(rest, "/"); ok {
			subs[sub] = struct{}{}
		}
		e, ok := s.load(key)
		switch {
		case !ok:
			st.Corrupt++
		case s.fresh(e):
			st.Valid++
		default:
			st.Expired++
		}
		if ok {
			if ts := time.UnixMilli(e.Timestamp); ts.After(st.Newest) {
				st.Newest = ts
			}
		}
	}
	st.Subscriptions = len(subs)
	return st, nil
}

// Prune deletes expired, empty and corrupt entries and returns how many were
// removed.
func (s *Service) Prune() (int, error) {
	keys, err := s.store.Keys(KeyPrefix + "/")
	if err != nil {
		return 0, fmt.Errorf("failed to list cache keys: %w", err)
	}

	removed := 0
	for _, key := range keys {
		if e, ok := s.load(key); ok && s.fresh(e) {
			continue
		}
		if err := s.store.Delete(key); err != nil {
			return removed, fmt.Errorf("failed to delete cache entry: %w", err)
		}
		removed++
	}
	return removed, nil
}

// Clear deletes every cache entry and returns how many were removed.
func (s *Service) Clear() (int, error) {
	keys, err := s.store.Keys(KeyPrefix + "/")
	if err != nil {
		return 0, fmt.Errorf("failed to list cache keys: %w", err)
	}
	for i, key := range keys {
		if err := s.store.Delete(key); err != nil {
			return i, fmt.Errorf("failed to delete cache entry: %w", err)
		}
	}
	return len(keys), nil
}
