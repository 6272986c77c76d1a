// Package services provides service orchestration for the TUI.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"

	"github.com/j-veylop/cost-dashboard-tui/internal/amqp"
	"github.com/j-veylop/cost-dashboard-tui/internal/cache"
	"github.com/j-veylop/cost-dashboard-tui/internal/config"
	"github.com/j-veylop/cost-dashboard-tui/internal/db"
	"github.com/j-veylop/cost-dashboard-tui/internal/export"
	"github.com/j-veylop/cost-dashboard-tui/internal/filters"
	"github.com/j-veylop/cost-dashboard-tui/internal/logger"
	"github.com/j-veylop/cost-dashboard-tui/internal/models"
	"github.com/j-veylop/cost-dashboard-tui/internal/services/comparison"
	"github.com/j-veylop/cost-dashboard-tui/internal/services/costapi"
	"github.com/j-veylop/cost-dashboard-tui/internal/services/fetcher"
	"github.com/j-veylop/cost-dashboard-tui/internal/services/overview"
	"github.com/j-veylop/cost-dashboard-tui/internal/services/settings"
	"github.com/j-veylop/cost-dashboard-tui/internal/services/tags"
)

type (
	// SnapshotEvent is emitted on every overview state transition and slot update.
	SnapshotEvent struct {
		Snapshot overview.Snapshot
	}

	// RefreshCompletedEvent is emitted when a refresh cycle has drained.
	RefreshCompletedEvent struct {
		Error    error
		Snapshot overview.Snapshot
		Request  overview.Request
	}

	// SettingsChangedEvent is emitted when the settings file changes.
	SettingsChangedEvent struct {
		Settings config.Settings
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Error   error
		Service string
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (SnapshotEvent) isServiceEvent()         {}
func (RefreshCompletedEvent) isServiceEvent() {}
func (SettingsChangedEvent) isServiceEvent()  {}
func (ErrorEvent) isServiceEvent()            {}

// Publisher receives refresh summaries.
type Publisher interface {
	PublishRefresh(ctx context.Context, msg *amqp.RefreshMessage) error
	Close() error
}

// Manager orchestrates services and event routing.
type Manager struct {
	ctx         context.Context
	database    *db.DB
	api         *costapi.Client
	cache       *cache.Service
	overview    *overview.Aggregator
	comparison  *comparison.Service
	settings    *settings.Service
	publisher   Publisher
	notify      func(title, body string) error
	now         func() time.Time
	cancel      context.CancelFunc
	pending     *overview.Request
	eventChan   chan ServiceEvent
	stopChan    chan struct{}
	subscribers []chan<- ServiceEvent
	wg          sync.WaitGroup
	mu          sync.RWMutex
	lastBudget  overview.BudgetStatus
	refreshing  bool
	closeOnce   sync.Once
}

// NewManager creates a new service manager.
func NewManager(cfg *config.Config) (*Manager, error) {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		ctx:       ctx,
		cancel:    cancel,
		eventChan: make(chan ServiceEvent, 100),
		stopChan:  make(chan struct{}),
		notify:    desktopNotify,
		now:       time.Now,
	}

	var err error
	m.settings, err = settings.New(cfg.SettingsPath)
	if err != nil {
		cancel()
		return nil, err
	}

	m.database, err = db.New(cfg.DatabasePath)
	if err != nil {
		cancel()
		_ = m.settings.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	m.api = costapi.New(costapi.Config{
		BaseURL: cfg.APIURL,
		Token:   cfg.APIToken,
		Timeout: cfg.RequestTimeout,
	}, m.database)

	m.cache = cache.New(m.database.Cache(), cache.Options{
		TTL:      cfg.CacheTTL,
		Eviction: cfg.CacheEviction,
	})

	f := fetcher.New(m.api, fetcher.Config{
		Attempts:  cfg.FetchAttempts,
		BaseDelay: cfg.FetchBaseDelay,
		Pacing:    cfg.FetchPacingDelay,
	})

	m.overview = overview.New(f, m.cache, overview.Config{
		Observer:    func(s overview.Snapshot) { m.broadcast(SnapshotEvent{Snapshot: s}) },
		Recorder:    m.database,
		SettleDelay: cfg.SettleDelay,
	})

	m.comparison = comparison.New(m.api, m.cache, comparison.Slots)

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("refresh publishing disabled", "error", err)
		} else {
			m.publisher = client
		}
	}

	go m.routeEvents()

	return m, nil
}

func desktopNotify(title, body string) error {
	return beeep.Notify(title, body, "")
}

// routeEvents routes events from individual services to subscribers.
func (m *Manager) routeEvents() {
	for {
		select {
		case event := <-m.settings.Events():
			m.handleSettingsEvent(event)

		case <-m.stopChan:
			return
		}
	}
}

func (m *Manager) handleSettingsEvent(event settings.Event) {
	switch event.Type {
	case settings.EventSettingsLoaded, settings.EventSettingsChanged:
		m.broadcast(SettingsChangedEvent{Settings: event.Settings})

	case settings.EventError:
		m.broadcast(ErrorEvent{
			Service: "settings",
			Error:   event.Error,
		})
	}
}

// RequestRefresh starts a refresh cycle in the background. While a cycle is
// running only the latest request is kept; it starts once the running cycle
// has drained.
func (m *Manager) RequestRefresh(req overview.Request) {
	m.mu.Lock()
	if m.refreshing {
		m.pending = &req
		m.mu.Unlock()
		logger.Debug("refresh queued", "subscriptions", len(req.Subscriptions))
		return
	}
	m.refreshing = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.refreshLoop(req)
}

func (m *Manager) refreshLoop(req overview.Request) {
	defer m.wg.Done()
	for {
		snap, err := m.overview.Refresh(m.ctx, req)
		if errors.Is(err, overview.ErrRefreshInFlight) {
			// A synchronous Refresh holds the latch; retry after it.
			if fetcher.Sleep(m.ctx, 100*time.Millisecond) == nil {
				continue
			}
		} else {
			m.afterRefresh(req, snap, err)
		}

		m.mu.Lock()
		if m.pending == nil || m.ctx.Err() != nil {
			m.refreshing = false
			m.pending = nil
			m.mu.Unlock()
			return
		}
		req = *m.pending
		m.pending = nil
		m.mu.Unlock()
	}
}

// Refresh runs one cycle synchronously.
func (m *Manager) Refresh(ctx context.Context, req overview.Request) (overview.Snapshot, error) {
	snap, err := m.overview.Refresh(ctx, req)
	if !errors.Is(err, overview.ErrRefreshInFlight) {
		m.afterRefresh(req, snap, err)
	}
	return snap, err
}

func (m *Manager) afterRefresh(req overview.Request, snap overview.Snapshot, err error) {
	m.broadcast(RefreshCompletedEvent{Snapshot: snap, Request: req, Error: err})

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("refresh failed", "error", err)
		_ = m.notify("Cost refresh failed", err.Error())
	}

	st := m.settings.Get()
	summary := snap.Summary(req.Subscriptions, m.settings.Period(), m.now())
	m.checkBudget(summary, st.Budget)

	if m.publisher != nil {
		msg := amqp.RefreshMessage{
			Timestamp:     m.now(),
			FilterKey:     string(snap.FilterKey),
			Period:        summary.Period.String(),
			Budget:        summary.Budget(st.Budget).String(),
			ActualCost:    summary.ActualCost,
			ProjectedCost: summary.ProjectedCost,
			Subscriptions: len(req.Subscriptions),
			Loaded:        summary.LoadedSubs,
			Default:       snap.Default,
		}
		for _, id := range req.Subscriptions {
			if snap.Filtered[id].Failed() {
				msg.Failed++
			}
		}
		if err != nil {
			msg.Error = err.Error()
		}
		if pubErr := m.publisher.PublishRefresh(m.ctx, &msg); pubErr != nil {
			logger.Warn("failed to publish refresh", "error", pubErr)
		}
	}
}

// checkBudget alerts when the projected spend crosses into over budget.
func (m *Manager) checkBudget(summary overview.Summary, budget float64) {
	status := summary.Budget(budget)

	m.mu.Lock()
	previous := m.lastBudget
	m.lastBudget = status
	m.mu.Unlock()

	if status >= overview.BudgetOver && previous < overview.BudgetOver {
		title := fmt.Sprintf("Budget alert: %s", summary.Period)
		body := fmt.Sprintf("Projected cost %.2f is %s (budget %.2f)", summary.ProjectedCost, status, budget)
		if err := m.notify(title, body); err != nil {
			logger.Debug("desktop notification failed", "error", err)
		}
	}
}

// Snapshot returns the latest overview snapshot.
func (m *Manager) Snapshot() overview.Snapshot {
	return m.overview.Snapshot()
}

// LoadSubscriptions lists the subscriptions visible to the token.
func (m *Manager) LoadSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	subs, err := m.api.FetchSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	return subs, nil
}

// FetchDetail loads one subscription under fs, tag filters included.
func (m *Manager) FetchDetail(ctx context.Context, id string, fs []filters.Filter) (*models.SubscriptionCostResult, error) {
	return m.api.FetchSubscriptionCosts(ctx, id, filters.ParamsFrom(fs), filters.TagFilters(fs))
}

// FetchResourceGroup loads the cost details of one resource group.
func (m *Manager) FetchResourceGroup(ctx context.Context, id, rg string, fs []filters.Filter) (*models.ResourceGroupCostDetails, error) {
	return m.api.FetchResourceGroupCosts(ctx, id, rg, filters.ParamsFrom(fs))
}

// Compare loads up to three subscriptions side by side.
func (m *Manager) Compare(ctx context.Context, ids [comparison.Slots]string, fs []filters.Filter) comparison.Result {
	return m.comparison.Compare(ctx, ids, fs)
}

// DiscoverTags returns the merged tag names and values of ids.
func (m *Manager) DiscoverTags(ctx context.Context, ids []string) []models.TagDetails {
	return tags.Discover(ctx, m.api, ids, tags.DefaultLimit)
}

// GenerateReport asks the API to build a report for one subscription.
func (m *Manager) GenerateReport(ctx context.Context, id string, fs []filters.Filter, format string) (*models.ReportResponse, error) {
	return m.api.GenerateReport(ctx, id, filters.ParamsFrom(fs), format)
}

// Export writes result in each format into the configured report directory.
func (m *Manager) Export(result *models.SubscriptionCostResult, formats []export.Format) ([]string, error) {
	exporter := export.New(m.settings.Get().ReportDir)
	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		path, err := exporter.Export(result, f)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// RefreshHistory returns the most recent refresh runs.
func (m *Manager) RefreshHistory(limit int) ([]models.RefreshRun, error) {
	return m.database.GetRecentRefreshRuns(limit)
}

// APIStats returns overall cost API usage.
func (m *Manager) APIStats() (*models.TotalStats, error) {
	return m.database.GetTotalStats()
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	// Send to main event channel
	select {
	case m.eventChan <- event:
	default:
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, WaitForEvent(ch)
}

// WaitForEvent returns a tea.Cmd for the next event on a channel.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return event
	}
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Settings returns the settings service.
func (m *Manager) Settings() *settings.Service {
	return m.settings
}

// Cache returns the result cache.
func (m *Manager) Cache() *cache.Service {
	return m.cache
}

// API returns the cost API client.
func (m *Manager) API() *costapi.Client {
	return m.api
}

// Database returns the database instance for direct access.
func (m *Manager) Database() *db.DB {
	return m.database
}

// Close cancels running work and closes the manager and all its services.
func (m *Manager) Close() error {
	var errs []error
	m.closeOnce.Do(func() {
		m.cancel()
		m.wg.Wait()
		close(m.stopChan)

		m.mu.Lock()
		for _, sub := range m.subscribers {
			close(sub)
		}
		m.subscribers = nil
		m.mu.Unlock()

		if err := m.settings.Close(); err != nil {
			errs = append(errs, err)
		}

		if m.publisher != nil {
			if err := m.publisher.Close(); err != nil {
				errs = append(errs, err)
			}
		}

		if m.database != nil {
			if err := m.database.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
