// Package app provides the main Bubble Tea application model and state management.
package app

import (
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/j-veylop/cost-dashboard-tui/internal/config"
	"github.com/j-veylop/cost-dashboard-tui/internal/filters"
	"github.com/j-veylop/cost-dashboard-tui/internal/models"
	"github.com/j-veylop/cost-dashboard-tui/internal/services/comparison"
	"github.com/j-veylop/cost-dashboard-tui/internal/services/overview"
)

// NotificationType defines the type of notification.
type NotificationType int

const (
	// NotificationSuccess represents a success notification.
	NotificationSuccess NotificationType = iota
	// NotificationError represents an error notification.
	NotificationError
	// NotificationWarning represents a warning notification.
	NotificationWarning
	// NotificationInfo represents an informational notification.
	NotificationInfo
	// NotificationLoading represents a loading notification with spinner.
	NotificationLoading
)

const (
	// LoadingNotificationID is the fixed ID for loading notifications.
	LoadingNotificationID = "__loading__"

	maxNotifications = 10
)

// String returns the string representation of a NotificationType.
func (n NotificationType) String() string {
	switch n {
	case NotificationSuccess:
		return "success"
	case NotificationError:
		return "error"
	case NotificationWarning:
		return "warning"
	case NotificationInfo:
		return "info"
	case NotificationLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// Notification represents a user-facing notification message.
type Notification struct {
	ID        string
	Type      NotificationType
	Message   string
	CreatedAt time.Time
	Duration  time.Duration
}

// IsExpired returns true if the notification has expired.
func (n *Notification) IsExpired() bool {
	if n.Duration <= 0 {
		return false
	}
	return time.Since(n.CreatedAt) > n.Duration
}

// LoadingState tracks loading states for different resources.
type LoadingState struct {
	Initial       bool
	Subscriptions bool
	Detail        bool
	ResourceGroup bool
	Comparison    bool
	Report        bool
}

// Loading resource names accepted by SetLoading.
const (
	LoadInitial       = "initial"
	LoadSubscriptions = "subscriptions"
	LoadDetail        = "detail"
	LoadResourceGroup = "resource_group"
	LoadComparison    = "comparison"
	LoadReport        = "report"
)

// State is the shared state of the dashboard. Every accessor returns copies
// so tabs can read it while commands update it.
type State struct {
	mu sync.RWMutex

	activeTab TabID

	filters       []filters.Filter
	subscriptions []models.Subscription
	settings      config.Settings

	selectedID    string
	detail        *models.SubscriptionCostResult
	resourceGroup string
	providers     []models.ProviderCost
	rgDetails     *models.ResourceGroupCostDetails

	comparisonIDs [comparison.Slots]string
	comparison    *comparison.Result

	snapshot overview.Snapshot
	tags     []models.TagDetails
	history  []models.RefreshRun
	apiStats *models.TotalStats

	errMsg   string
	errToken int

	Loading LoadingState

	LastUpdated time.Time

	notifications   []Notification
	notificationSeq int
}

// NewState returns the initial state: default filters on the overview.
func NewState() *State {
	return &State{
		activeTab:     TabOverview,
		filters:       filters.Defaults(),
		settings:      config.DefaultSettings(),
		notifications: make([]Notification, 0),
		Loading: LoadingState{
			Initial: true,
		},
	}
}

// SetLoading sets the loading state for a specific resource.
func (s *State) SetLoading(resource string, loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch resource {
	case LoadInitial:
		s.Loading.Initial = loading
	case LoadSubscriptions:
		s.Loading.Subscriptions = loading
	case LoadDetail:
		s.Loading.Detail = loading
	case LoadResourceGroup:
		s.Loading.ResourceGroup = loading
	case LoadComparison:
		s.Loading.Comparison = loading
	case LoadReport:
		s.Loading.Report = loading
	}
}

// AnyLoading returns true if any resource is currently loading.
func (s *State) AnyLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l := s.Loading
	return l.Initial || l.Subscriptions || l.Detail || l.ResourceGroup || l.Comparison || l.Report
}

// IsLoading reports the loading flag of one resource.
func (s *State) IsLoading(resource string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch resource {
	case LoadInitial:
		return s.Loading.Initial
	case LoadSubscriptions:
		return s.Loading.Subscriptions
	case LoadDetail:
		return s.Loading.Detail
	case LoadResourceGroup:
		return s.Loading.ResourceGroup
	case LoadComparison:
		return s.Loading.Comparison
	case LoadReport:
		return s.Loading.Report
	}
	return false
}

// Filters returns a copy of the active filters.
func (s *State) Filters() []filters.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.filters)
}

// FilterKey returns the normalized key of the active filters.
func (s *State) FilterKey() filters.Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filters.Normalize(s.filters)
}

// AddFilter validates f and adds it, replacing any filter of the same
// timeframe or granularity type. A filter without an ID gets a fresh one.
func (s *State) AddFilter(f filters.Filter) error {
	if err := filters.Validate(f); err != nil {
		return err
	}
	if f.ID == "" {
		f.ID = filters.NewID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = filters.Add(s.filters, f)
	return nil
}

// RemoveFilter removes the filter with id. Removing the only timeframe or
// granularity filter puts the default one back.
func (s *State) RemoveFilter(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = filters.Remove(s.filters, id)
}

// SetSubscriptions stores the discovered subscriptions.
func (s *State) SetSubscriptions(subs []models.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions = slices.Clone(subs)
	s.LastUpdated = time.Now()
}

// Subscriptions returns every discovered subscription.
func (s *State) Subscriptions() []models.Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.subscriptions)
}

// Groups returns "All" followed by the known subscription groups.
func (s *State) Groups() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.SubscriptionGroups(s.subscriptions)
}

// Group returns the selected subscription group.
func (s *State) Group() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings.SubscriptionGroup == "" {
		return models.AllGroups
	}
	return s.settings.SubscriptionGroup
}

// NextGroup returns the group after the selected one, wrapping around.
func (s *State) NextGroup() string {
	groups := s.Groups()
	current := s.Group()
	idx := slices.Index(groups, current)
	return groups[(idx+1)%len(groups)]
}

// FilteredSubscriptions returns the subscriptions of the selected group.
func (s *State) FilteredSubscriptions() []models.Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(models.FilterByGroup(s.subscriptions, s.settings.SubscriptionGroup))
}

// FilteredIDs returns the subscription ids of the selected group.
func (s *State) FilteredIDs() []string {
	return models.SubscriptionIDs(s.FilteredSubscriptions())
}

// SubscriptionName resolves id to a display name.
func (s *State) SubscriptionName(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subscriptions {
		if sub.SubscriptionID == id {
			return sub.Name()
		}
	}
	return id
}

// SetSettings replaces the persisted settings.
func (s *State) SetSettings(st config.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = st
}

// Settings returns the persisted settings.
func (s *State) Settings() config.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Period returns the aggregate period shown on the overview.
func (s *State) Period() models.Period {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.ParsePeriod(s.settings.AggregatePeriod)
}

// SelectSubscription selects id for the detail view. Any previous detail
// data is dropped; an empty id only clears the selection.
func (s *State) SelectSubscription(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedID = id
	s.detail = nil
	s.clearResourceGroupLocked()
}

// SelectedSubscription returns the selected subscription id.
func (s *State) SelectedSubscription() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedID
}

// SetDetail stores the detail result for id. Results for a subscription
// that is no longer selected are dropped and SetDetail returns false.
func (s *State) SetDetail(id string, result *models.SubscriptionCostResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.selectedID || id == "" {
		return false
	}
	s.detail = result
	return true
}

// Detail returns the detail data of the selected subscription.
func (s *State) Detail() *models.SubscriptionCostResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.detail
}

// SelectResourceGroup toggles the drill-down on rg and reports whether a
// resource group is selected afterwards.
func (s *State) SelectResourceGroup(rg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rg == "" || rg == s.resourceGroup {
		s.clearResourceGroupLocked()
		return false
	}
	s.resourceGroup = rg
	s.rgDetails = nil
	s.providers = nil
	if s.detail != nil {
		s.providers = models.ProviderBreakdown(s.detail.DetailedEntries, rg)
	}
	return true
}

func (s *State) clearResourceGroupLocked() {
	s.resourceGroup = ""
	s.providers = nil
	s.rgDetails = nil
}

// ResourceGroup returns the drilled-down resource group.
func (s *State) ResourceGroup() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resourceGroup
}

// Providers returns the provider breakdown of the drilled-down resource group.
func (s *State) Providers() []models.ProviderCost {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.providers)
}

// SetResourceGroupDetails stores the resource-group payload when it still
// matches the selection. When the detail entries yielded no providers the
// breakdown is recomputed from the resource-group entries.
func (s *State) SetResourceGroupDetails(id, rg string, details *models.ResourceGroupCostDetails) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.selectedID || rg != s.resourceGroup || details == nil {
		return false
	}
	s.rgDetails = details
	if len(s.providers) == 0 {
		s.providers = models.ProviderBreakdown(details.DetailedEntries, rg)
	}
	return true
}

// ResourceGroupDetails returns the resource-group payload, if loaded.
func (s *State) ResourceGroupDetails() *models.ResourceGroupCostDetails {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rgDetails
}

// Navigate switches the active view. Leaving the detail view drops the
// resource-group drill-down; going to the overview also drops the selected
// subscription and its detail data.
func (s *State) Navigate(tab TabID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeTab == TabDetail && tab != TabDetail {
		s.clearResourceGroupLocked()
	}
	if tab == TabOverview {
		s.selectedID = ""
		s.detail = nil
		s.clearResourceGroupLocked()
	}
	s.activeTab = tab
}

// ActiveTab returns the current view.
func (s *State) ActiveTab() TabID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeTab
}

// SetComparisonSlot puts id in comparison slot i. An empty id clears the slot.
func (s *State) SetComparisonSlot(i int, id string) bool {
	if i < 0 || i >= comparison.Slots {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comparisonIDs[i] = id
	return true
}

// ComparisonIDs returns the subscription ids of the comparison slots.
func (s *State) ComparisonIDs() [comparison.Slots]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.comparisonIDs
}

// SetComparison stores a comparison result when it still matches the slots
// and the active filters.
func (s *State) SetComparison(result comparison.Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if result.Key != filters.Normalize(s.filters) {
		return false
	}
	for i, col := range result.Columns {
		if col.SubscriptionID != s.comparisonIDs[i] {
			return false
		}
	}
	s.comparison = &result
	return true
}

// Comparison returns the last comparison result.
func (s *State) Comparison() *comparison.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.comparison
}

// SetSnapshot replaces the overview snapshot.
func (s *State) SetSnapshot(snap overview.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
	if !snap.UpdatedAt.IsZero() {
		s.LastUpdated = snap.UpdatedAt
	}
}

// Snapshot returns the latest overview snapshot.
func (s *State) Snapshot() overview.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Summary rolls up the unfiltered slots of the selected group for the
// configured period.
func (s *State) Summary(now time.Time) overview.Summary {
	snap := s.Snapshot()
	return snap.Summary(s.FilteredIDs(), s.Period(), now)
}

// SetTags stores the discovered tags.
func (s *State) SetTags(tags []models.TagDetails) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags = slices.Clone(tags)
}

// Tags returns the discovered tags.
func (s *State) Tags() []models.TagDetails {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tags)
}

// SetHistory stores recent refresh runs and API usage totals.
func (s *State) SetHistory(runs []models.RefreshRun, stats *models.TotalStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = slices.Clone(runs)
	s.apiStats = stats
}

// History returns recent refresh runs.
func (s *State) History() []models.RefreshRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.history)
}

// APIStats returns the API usage totals.
func (s *State) APIStats() *models.TotalStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiStats
}

// SetError shows msg in the error banner and returns a token for ClearError.
// A newer error supersedes the tokens of older ones.
func (s *State) SetError(msg string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errToken++
	s.errMsg = msg
	return s.errToken
}

// ClearError hides the banner if token is still the latest one.
func (s *State) ClearError(token int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.errToken {
		return false
	}
	s.errMsg = ""
	return true
}

// Error returns the banner text, or "".
func (s *State) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// AddNotification adds a new notification and returns its ID.
func (s *State) AddNotification(notifType NotificationType, message string, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notificationSeq++
	id := "n" + strconv.Itoa(s.notificationSeq)

	s.notifications = append(s.notifications, Notification{
		ID:        id,
		Type:      notifType,
		Message:   message,
		CreatedAt: time.Now(),
		Duration:  duration,
	})

	if len(s.notifications) > maxNotifications {
		s.notifications = s.notifications[len(s.notifications)-maxNotifications:]
	}

	return id
}

// RemoveNotification removes a notification by ID.
func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications = slices.DeleteFunc(s.notifications, func(n Notification) bool {
		return n.ID == id
	})
}

// ClearExpiredNotifications removes all expired notifications.
func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications = slices.DeleteFunc(s.notifications, func(n Notification) bool {
		return n.IsExpired()
	})
}

// GetNotifications returns a copy of all active notifications.
func (s *State) GetNotifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	return active
}

// SetLoadingNotification sets a loading notification message.
func (s *State) SetLoadingNotification(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == LoadingNotificationID {
			s.notifications[i].Message = message
			return
		}
	}

	s.notifications = append(s.notifications, Notification{
		ID:        LoadingNotificationID,
		Type:      NotificationLoading,
		Message:   message,
		CreatedAt: time.Now(),
	})
}

// ClearLoadingNotification removes the loading notification.
func (s *State) ClearLoadingNotification() {
	s.RemoveNotification(LoadingNotificationID)
}

// TimeSinceUpdate returns the duration since the last update.
func (s *State) TimeSinceUpdate() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.LastUpdated.IsZero() {
		return 0
	}
	return time.Since(s.LastUpdated)
}
