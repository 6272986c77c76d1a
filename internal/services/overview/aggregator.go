// Package overview aggregates per-subscription cost results for the overview
// page. It decides per refresh cycle whether to serve from cache or fetch,
// merges batch results into slot maps and publishes immutable snapshots.
package overview

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/j-veylop/cost-dashboard-tui/internal/cache"
	"github.com/j-veylop/cost-dashboard-tui/internal/filters"
	"github.com/j-veylop/cost-dashboard-tui/internal/logger"
	"github.com/j-veylop/cost-dashboard-tui/internal/models"
	"github.com/j-veylop/cost-dashboard-tui/internal/services/fetcher"
)

// ErrRefreshInFlight is returned when a refresh cycle is already running.
var ErrRefreshInFlight = errors.New("overview refresh already in progress")

// DefaultSettleDelay is the pause after a cycle before the latch releases.
const DefaultSettleDelay = 500 * time.Millisecond

// State is the phase of the refresh cycle.
type State int

const (
	// StateIdle means no cycle is running.
	StateIdle State = iota
	// StateFetchingFiltered covers the pass for the active filters.
	StateFetchingFiltered
	// StateFetchingUnfiltered covers the default MonthToDate pass.
	StateFetchingUnfiltered
	// StateSettling is the delay before the latch releases.
	StateSettling
)

func (s State) String() string {
	switch s {
	case StateFetchingFiltered:
		return "fetching filtered"
	case StateFetchingUnfiltered:
		return "fetching unfiltered"
	case StateSettling:
		return "settling"
	default:
		return "idle"
	}
}

// Slot is the state of one subscription within a bucket.
type Slot struct {
	Data        *models.SubscriptionCostResult
	Err         string
	TriggeredBy cache.Bucket
	Loading     bool
	Fallback    bool
}

// Failed reports whether the slot holds a settled error.
func (s Slot) Failed() bool {
	return s.Err != "" && !s.Loading
}

// Slots maps subscription id to slot. A published Slots is never modified.
type Slots map[string]Slot

// Results returns the loaded data for ids in order, with nil for slots
// without data.
func (s Slots) Results(ids []string) []*models.SubscriptionCostResult {
	out := make([]*models.SubscriptionCostResult, 0, len(ids))
	for _, id := range ids {
		out = append(out, s[id].Data)
	}
	return out
}

// Snapshot is an immutable view of the aggregator.
type Snapshot struct {
	UpdatedAt  time.Time
	Filtered   Slots
	Unfiltered Slots
	FilterKey  filters.Key
	State      State
	Default    bool
}

// Loading reports whether any slot is still loading.
func (s Snapshot) Loading() bool {
	for _, m := range []Slots{s.Filtered, s.Unfiltered} {
		for _, slot := range m {
			if slot.Loading {
				return true
			}
		}
	}
	return false
}

// Request describes one refresh cycle.
type Request struct {
	Subscriptions []string
	Filters       []filters.Filter
}

// Fetcher runs the paced batch fetch.
type Fetcher interface {
	FetchAll(ctx context.Context, ids []string, params filters.Params, onBatch func(fetcher.Batch)) error
}

// Cache is the result cache used by the aggregator.
type Cache interface {
	IsValid(subID string, b cache.Bucket) bool
	Get(subID string, b cache.Bucket) (*models.SubscriptionCostResult, bool)
	Set(subID string, b cache.Bucket, result *models.SubscriptionCostResult) error
	FindAnyValid(subID string) (cache.Bucket, *models.SubscriptionCostResult, bool)
}

// RunRecorder persists refresh history.
type RunRecorder interface {
	InsertRefreshRun(run *models.RefreshRun) error
}

// Config holds configuration for the aggregator.
type Config struct {
	Observer    func(Snapshot)
	Recorder    RunRecorder
	Now         func() time.Time
	Sleep       fetcher.SleepFunc
	SettleDelay time.Duration
}

// Aggregator runs refresh cycles. Only one cycle runs at a time.
type Aggregator struct {
	fetcher  Fetcher
	cache    Cache
	observer func(Snapshot)
	recorder RunRecorder
	now      func() time.Time
	sleep    fetcher.SleepFunc
	snap     Snapshot
	settle   time.Duration
	mu       sync.RWMutex
	running  bool
}

// New creates an aggregator.
func New(f Fetcher, c Cache, config Config) *Aggregator {
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Sleep == nil {
		config.Sleep = fetcher.Sleep
	}
	if config.SettleDelay <= 0 {
		config.SettleDelay = DefaultSettleDelay
	}
	return &Aggregator{
		fetcher:  f,
		cache:    c,
		observer: config.Observer,
		recorder: config.Recorder,
		now:      config.Now,
		sleep:    config.Sleep,
		settle:   config.SettleDelay,
		snap: Snapshot{
			Filtered:   Slots{},
			Unfiltered: Slots{},
		},
	}
}

// Snapshot returns the latest snapshot.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snap
}

// Running reports whether a cycle holds the latch.
func (a *Aggregator) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// update applies fn to copies of the slot maps and publishes the result.
func (a *Aggregator) update(fn func(s *Snapshot)) Snapshot {
	a.mu.Lock()
	next := a.snap
	next.Filtered = maps.Clone(a.snap.Filtered)
	next.Unfiltered = maps.Clone(a.snap.Unfiltered)
	fn(&next)
	if next.Default {
		next.Unfiltered = mirror(next.Filtered)
	}
	next.UpdatedAt = a.now()
	a.snap = next
	a.mu.Unlock()

	if a.observer != nil {
		a.observer(next)
	}
	return next
}

// mirror returns the unfiltered view of filtered slots used when the active
// filters are the defaults.
func mirror(filtered Slots) Slots {
	out := make(Slots, len(filtered))
	for id, slot := range filtered {
		slot.TriggeredBy = cache.DefaultUnfiltered
		out[id] = slot
	}
	return out
}

func (a *Aggregator) setState(st State) {
	a.update(func(s *Snapshot) { s.State = st })
}

// side selects which slot map a pass writes.
type side int

const (
	sideFiltered side = iota
	sideUnfiltered
)

func (sd side) slots(s *Snapshot) Slots {
	if sd == sideFiltered {
		return s.Filtered
	}
	return s.Unfiltered
}

// Refresh runs one cycle for req. It returns ErrRefreshInFlight when another
// cycle holds the latch. The latch is released after the settle delay even
// when ctx is canceled.
func (a *Aggregator) Refresh(ctx context.Context, req Request) (Snapshot, error) {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return a.Snapshot(), ErrRefreshInFlight
	}
	a.running = true
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	key := filters.Normalize(req.Filters)
	isDefault := filters.IsDefault(req.Filters)
	run := models.RefreshRun{
		StartedAt:     a.now(),
		FilterKey:     string(key),
		Default:       isDefault,
		Subscriptions: len(req.Subscriptions),
	}

	a.update(func(s *Snapshot) {
		s.State = StateFetchingFiltered
		s.FilterKey = key
		s.Default = isDefault
	})

	params := filters.ParamsFrom(req.Filters).WithGranularity(filters.GranularityNone)
	err := a.pass(ctx, sideFiltered, req.Subscriptions, cache.Filtered(key), params, &run)

	if err == nil && !isDefault {
		a.setState(StateFetchingUnfiltered)
		err = a.pass(ctx, sideUnfiltered, req.Subscriptions, cache.DefaultUnfiltered, filters.DefaultParams(), &run)
	}

	a.setState(StateSettling)
	if sleepErr := a.sleep(ctx, a.settle); sleepErr != nil && err == nil {
		err = sleepErr
	}
	snap := a.update(func(s *Snapshot) { s.State = StateIdle })

	run.FinishedAt = a.now()
	if err != nil {
		run.Error = err.Error()
	}
	a.record(&run)
	return snap, err
}

func (a *Aggregator) record(run *models.RefreshRun) {
	if a.recorder == nil {
		return
	}
	if err := a.recorder.InsertRefreshRun(run); err != nil {
		logger.Warn("failed to record refresh run", "error", err)
	}
}

// pass runs the cache-or-fetch decision for one bucket.
func (a *Aggregator) pass(ctx context.Context, sd side, ids []string, b cache.Bucket, params filters.Params, run *models.RefreshRun) error {
	valid := make(map[string]bool, len(ids))
	allValid := true
	for _, id := range ids {
		valid[id] = a.cache.IsValid(id, b)
		allValid = allValid && valid[id]
	}

	current := a.Snapshot()
	anyFailed := false
	for _, slot := range sd.slots(&current) {
		if slot.Failed() {
			anyFailed = true
			break
		}
	}

	if allValid && !anyFailed {
		a.update(func(s *Snapshot) {
			slots := sd.slots(s)
			for _, id := range ids {
				if slot, ok := a.fromCache(id, b, true); ok {
					slots[id] = slot
					run.FromCache++
				}
			}
		})
		return nil
	}

	var toFetch []string
	a.update(func(s *Snapshot) {
		slots := sd.slots(s)
		for _, id := range ids {
			if valid[id] {
				if slot, ok := a.fromCache(id, b, false); ok {
					slots[id] = slot
					run.FromCache++
					continue
				}
			}
			toFetch = append(toFetch, id)
			slots[id] = Slot{Loading: true, TriggeredBy: b}
		}
	})
	if len(toFetch) == 0 {
		return nil
	}

	err := a.fetcher.FetchAll(ctx, toFetch, params, func(batch fetcher.Batch) {
		a.applyBatch(sd, b, batch, run)
	})
	if err != nil {
		a.update(func(s *Snapshot) {
			slots := sd.slots(s)
			for _, id := range toFetch {
				if slots[id].Loading {
					slots[id] = Slot{Err: err.Error(), TriggeredBy: b}
					run.Failed++
				}
			}
		})
	}
	return err
}

// fromCache builds a slot from the exact bucket, optionally falling back to
// the newest valid entry in any bucket.
func (a *Aggregator) fromCache(id string, b cache.Bucket, allowFallback bool) (Slot, bool) {
	if data, ok := a.cache.Get(id, b); ok {
		return Slot{Data: data, TriggeredBy: b}, true
	}
	if !allowFallback {
		return Slot{}, false
	}
	from, data, ok := a.cache.FindAnyValid(id)
	if !ok {
		return Slot{}, false
	}
	logger.Debug("using fallback cache entry", "subscription", id, "bucket", from.String())
	return Slot{Data: data, TriggeredBy: b, Fallback: true}, true
}

// applyBatch writes one batch outcome into its slots and persists successes.
// Each subscription only affects its own slot.
func (a *Aggregator) applyBatch(sd side, b cache.Bucket, batch fetcher.Batch, run *models.RefreshRun) {
	for i := range batch.Results {
		r := &batch.Results[i]
		if r.Error != "" || r.SubscriptionID == "" {
			continue
		}
		if err := a.cache.Set(r.SubscriptionID, b, r); err != nil {
			logger.Warn("failed to cache result", "subscription", r.SubscriptionID, "error", err)
		}
	}

	a.update(func(s *Snapshot) {
		slots := sd.slots(s)
		if batch.Err != nil {
			for _, id := range batch.IDs {
				slots[id] = Slot{Err: batch.Err.Error(), TriggeredBy: b}
				run.Failed++
			}
			return
		}

		seen := make(map[string]bool, len(batch.Results))
		for i := range batch.Results {
			r := &batch.Results[i]
			seen[r.SubscriptionID] = true
			if r.Error != "" {
				slots[r.SubscriptionID] = Slot{Err: r.Error, TriggeredBy: b}
				run.Failed++
				continue
			}
			slots[r.SubscriptionID] = Slot{Data: r, TriggeredBy: b}
			run.Fetched++
		}
		for _, id := range batch.IDs {
			if !seen[id] {
				slots[id] = Slot{Err: "no data returned", TriggeredBy: b}
				run.Failed++
			}
		}
	})
}

// Summary rolls up the unfiltered slots of ids for period.
func (s Snapshot) Summary(ids []string, period models.Period, now time.Time) Summary {
	return Rollup(s.Unfiltered.Results(ids), period, now)
}
