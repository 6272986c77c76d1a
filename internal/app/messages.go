package app

import (
	"time"

	"github.com/j-veylop/cost-dashboard-tui/internal/export"
	"github.com/j-veylop/cost-dashboard-tui/internal/filters"
	"github.com/j-veylop/cost-dashboard-tui/internal/models"
	"github.com/j-veylop/cost-dashboard-tui/internal/services"
	"github.com/j-veylop/cost-dashboard-tui/internal/services/comparison"
)

// TickMsg is sent periodically to trigger state refresh.
type TickMsg struct {
	Time time.Time
}

// SubscriptionsLoadedMsg contains the discovered subscriptions.
type SubscriptionsLoadedMsg struct {
	Subscriptions []models.Subscription
	Error         error
}

// RefreshMsg requests a new overview refresh for the current filters.
type RefreshMsg struct{}

// ReloadSubscriptionsMsg requests rediscovery of the subscriptions.
type ReloadSubscriptionsMsg struct{}

// DetailLoadedMsg contains the detail fetch of one subscription.
type DetailLoadedMsg struct {
	Result         *models.SubscriptionCostResult
	Error          error
	SubscriptionID string
	FilterKey      filters.Key
}

// ResourceGroupLoadedMsg contains the costs of one resource group.
type ResourceGroupLoadedMsg struct {
	Details        *models.ResourceGroupCostDetails
	Error          error
	SubscriptionID string
	ResourceGroup  string
	FilterKey      filters.Key
}

// ComparisonLoadedMsg contains a comparison result.
type ComparisonLoadedMsg struct {
	Result comparison.Result
}

// TagsLoadedMsg contains the tags discovered for the filter bar.
type TagsLoadedMsg struct {
	Tags []models.TagDetails
}

// HistoryLoadedMsg contains recent refresh runs and API usage totals.
type HistoryLoadedMsg struct {
	Stats *models.TotalStats
	Error error
	Runs  []models.RefreshRun
}

// ReportGeneratedMsg contains the result of a server-side report.
type ReportGeneratedMsg struct {
	Report *models.ReportResponse
	Error  error
}

// ExportResultMsg contains the result of a local export.
type ExportResultMsg struct {
	Error error
	Paths []string
}

// SelectSubscriptionMsg opens the detail view of a subscription.
type SelectSubscriptionMsg struct {
	SubscriptionID string
}

// SelectResourceGroupMsg toggles the drill-down on a resource group.
type SelectResourceGroupMsg struct {
	Name string
}

// AddFilterMsg adds a filter to the active set.
type AddFilterMsg struct {
	Filter filters.Filter
}

// RemoveFilterMsg removes a filter by id.
type RemoveFilterMsg struct {
	ID string
}

// SetComparisonSlotMsg assigns a subscription to a comparison slot.
type SetComparisonSlotMsg struct {
	SubscriptionID string
	Slot           int
}

// CompareMsg requests a comparison of the current slots.
type CompareMsg struct{}

// CycleGroupMsg selects the next subscription group.
type CycleGroupMsg struct{}

// CyclePeriodMsg selects the next aggregate period.
type CyclePeriodMsg struct{}

// SetBudgetMsg changes the budget.
type SetBudgetMsg struct {
	Budget float64
}

// GenerateReportMsg asks the API to build a report for the selected subscription.
type GenerateReportMsg struct {
	Format string
}

// ExportMsg writes the selected subscription's detail to local files.
type ExportMsg struct {
	Formats []export.Format
}

// LoadHistoryMsg requests the refresh history.
type LoadHistoryMsg struct{}

// ShowErrorMsg shows the error banner.
type ShowErrorMsg struct {
	Message string
}

// ClearErrorMsg hides the error banner if Token is still current.
type ClearErrorMsg struct {
	Token int
}

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Type     NotificationType
	Message  string
	Duration time.Duration
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}

// ServiceEventMsg wraps a service event from the service manager.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// SubscriptionEventMsg is the callback wrapper for service subscription.
type SubscriptionEventMsg struct {
	Channel chan services.ServiceEvent
}

// TabSwitchMsg requests switching to a specific tab.
type TabSwitchMsg struct {
	Tab TabID
}

// InputFocusMsg reports whether a text input has captured the keyboard.
// Global single-key bindings are suspended while it has.
type InputFocusMsg struct {
	Active bool
}
