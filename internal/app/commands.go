package app

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/cost-dashboard-tui/internal/export"
	"github.com/j-veylop/cost-dashboard-tui/internal/filters"
	"github.com/j-veylop/cost-dashboard-tui/internal/models"
	"github.com/j-veylop/cost-dashboard-tui/internal/services"
	"github.com/j-veylop/cost-dashboard-tui/internal/services/comparison"
	"github.com/j-veylop/cost-dashboard-tui/internal/services/overview"
)

const (
	// DefaultTickInterval is the default interval between ticks.
	DefaultTickInterval = 2 * time.Second

	// DefaultNotificationDuration is the default duration for notifications.
	DefaultNotificationDuration = 5 * time.Second

	// QuickNotificationDuration is for brief notifications.
	QuickNotificationDuration = 3 * time.Second

	// LongNotificationDuration is for important notifications.
	LongNotificationDuration = 10 * time.Second

	// ErrorBannerDuration is how long the error banner stays up.
	ErrorBannerDuration = 7 * time.Second

	// HistoryLimit is the number of refresh runs shown on the info tab.
	HistoryLimit = 20

	commandTimeout = 2 * time.Minute
)

// tickCmd returns a command that sends a TickMsg after the specified interval.
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// defaultTickCmd returns a command that sends a TickMsg after the default interval.
func defaultTickCmd() tea.Cmd {
	return tickCmd(DefaultTickInterval)
}

// loadSubscriptionsCmd discovers the subscriptions.
func loadSubscriptionsCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		subs, err := mgr.LoadSubscriptions(ctx)
		return SubscriptionsLoadedMsg{Subscriptions: subs, Error: err}
	}
}

// refreshCmd queues an overview refresh. Progress arrives as service events.
func refreshCmd(mgr *services.Manager, req overview.Request) tea.Cmd {
	return func() tea.Msg {
		mgr.RequestRefresh(req)
		return nil
	}
}

// fetchDetailCmd loads one subscription with the active filters.
func fetchDetailCmd(mgr *services.Manager, id string, fs []filters.Filter) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		result, err := mgr.FetchDetail(ctx, id, fs)
		return DetailLoadedMsg{SubscriptionID: id, FilterKey: filters.Normalize(fs), Result: result, Error: err}
	}
}

// fetchResourceGroupCmd loads the costs of one resource group.
func fetchResourceGroupCmd(mgr *services.Manager, id, rg string, fs []filters.Filter) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		details, err := mgr.FetchResourceGroup(ctx, id, rg, fs)
		return ResourceGroupLoadedMsg{
			SubscriptionID: id,
			ResourceGroup:  rg,
			FilterKey:      filters.Normalize(fs),
			Details:        details,
			Error:          err,
		}
	}
}

// compareCmd loads the comparison slots.
func compareCmd(mgr *services.Manager, ids [comparison.Slots]string, fs []filters.Filter) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return ComparisonLoadedMsg{Result: mgr.Compare(ctx, ids, fs)}
	}
}

// discoverTagsCmd collects tag names for the filter bar suggestions.
func discoverTagsCmd(mgr *services.Manager, ids []string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return TagsLoadedMsg{Tags: mgr.DiscoverTags(ctx, ids)}
	}
}

// loadHistoryCmd reads recent refresh runs and API totals from the database.
func loadHistoryCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		runs, err := mgr.RefreshHistory(HistoryLimit)
		if err != nil {
			return HistoryLoadedMsg{Error: err}
		}
		stats, err := mgr.APIStats()
		return HistoryLoadedMsg{Runs: runs, Stats: stats, Error: err}
	}
}

// generateReportCmd asks the API for a report on one subscription.
func generateReportCmd(mgr *services.Manager, id string, fs []filters.Filter, format string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		report, err := mgr.GenerateReport(ctx, id, fs, format)
		return ReportGeneratedMsg{Report: report, Error: err}
	}
}

// exportCmd writes result to local files.
func exportCmd(mgr *services.Manager, result *models.SubscriptionCostResult, formats []export.Format) tea.Cmd {
	return func() tea.Msg {
		paths, err := mgr.Export(result, formats)
		return ExportResultMsg{Paths: paths, Error: err}
	}
}

// setGroupCmd persists the selected subscription group.
func setGroupCmd(mgr *services.Manager, group string) tea.Cmd {
	return func() tea.Msg {
		if err := mgr.Settings().SetSubscriptionGroup(group); err != nil {
			return ShowErrorMsg{Message: fmt.Sprintf("Failed to save group: %v", err)}
		}
		return nil
	}
}

// setPeriodCmd persists the aggregate period.
func setPeriodCmd(mgr *services.Manager, p models.Period) tea.Cmd {
	return func() tea.Msg {
		if err := mgr.Settings().SetPeriod(p); err != nil {
			return ShowErrorMsg{Message: fmt.Sprintf("Failed to save period: %v", err)}
		}
		return nil
	}
}

// setBudgetCmd persists the budget.
func setBudgetCmd(mgr *services.Manager, budget float64) tea.Cmd {
	return func() tea.Msg {
		if err := mgr.Settings().SetBudget(budget); err != nil {
			return ShowErrorMsg{Message: fmt.Sprintf("Failed to save budget: %v", err)}
		}
		return notifySuccessMsg(fmt.Sprintf("Budget set to %.2f", budget))
	}
}

// subscribeToServicesCmd returns a command that subscribes to service events.
func subscribeToServicesCmd(mgr *services.Manager) tea.Cmd {
	ch, _ := mgr.Subscribe()
	return func() tea.Msg {
		return SubscriptionEventMsg{Channel: ch}
	}
}

// waitForServiceEventCmd returns a command that waits for the next service event.
func waitForServiceEventCmd(ch <-chan services.ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return ServiceEventMsg{Event: event}
	}
}

// clearNotificationCmd returns a command that removes a notification after a delay.
func clearNotificationCmd(id string, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(_ time.Time) tea.Msg {
		return RemoveNotificationMsg{ID: id}
	})
}

// clearErrorCmd hides the banner identified by token after delay.
func clearErrorCmd(token int, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(_ time.Time) tea.Msg {
		return ClearErrorMsg{Token: token}
	})
}

func notifySuccessMsg(message string) AddNotificationMsg {
	return AddNotificationMsg{
		Type:     NotificationSuccess,
		Message:  message,
		Duration: DefaultNotificationDuration,
	}
}

// notifySuccessCmd returns a command that adds a success notification.
func notifySuccessCmd(message string) tea.Cmd {
	return func() tea.Msg {
		return notifySuccessMsg(message)
	}
}

// notifyErrorCmd returns a command that adds an error notification.
func notifyErrorCmd(message string) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{
			Type:     NotificationError,
			Message:  message,
			Duration: LongNotificationDuration,
		}
	}
}

// notifyWarningCmd returns a command that adds a warning notification.
func notifyWarningCmd(message string) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{
			Type:     NotificationWarning,
			Message:  message,
			Duration: DefaultNotificationDuration,
		}
	}
}

// notifyInfoCmd returns a command that adds an info notification.
func notifyInfoCmd(message string) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{
			Type:     NotificationInfo,
			Message:  message,
			Duration: QuickNotificationDuration,
		}
	}
}

// Commands provides a public interface to the command functions.
type Commands struct {
	manager *services.Manager
}

// NewCommands creates a new Commands instance.
func NewCommands(mgr *services.Manager) *Commands {
	return &Commands{manager: mgr}
}

// Tick returns a tick command with the specified interval.
func (c *Commands) Tick(interval time.Duration) tea.Cmd {
	return tickCmd(interval)
}

// DefaultTick returns a tick command with the default interval.
func (c *Commands) DefaultTick() tea.Cmd {
	return defaultTickCmd()
}

// LoadSubscriptions returns a command that discovers subscriptions.
func (c *Commands) LoadSubscriptions() tea.Cmd {
	if c.manager == nil {
		return nil
	}
	return loadSubscriptionsCmd(c.manager)
}

// LoadHistory returns a command that loads the refresh history.
func (c *Commands) LoadHistory() tea.Cmd {
	if c.manager == nil {
		return nil
	}
	return loadHistoryCmd(c.manager)
}

// NotifySuccess returns a command that adds a success notification.
func (c *Commands) NotifySuccess(message string) tea.Cmd {
	return notifySuccessCmd(message)
}

// NotifyError returns a command that adds an error notification.
func (c *Commands) NotifyError(message string) tea.Cmd {
	return notifyErrorCmd(message)
}

// NotifyWarning returns a command that adds a warning notification.
func (c *Commands) NotifyWarning(message string) tea.Cmd {
	return notifyWarningCmd(message)
}

// NotifyInfo returns a command that adds an info notification.
func (c *Commands) NotifyInfo(message string) tea.Cmd {
	return notifyInfoCmd(message)
}

// ClearNotification returns a command that removes a notification after a delay.
func (c *Commands) ClearNotification(id string, delay time.Duration) tea.Cmd {
	return clearNotificationCmd(id, delay)
}

// ShowError returns a command that raises the error banner.
func (c *Commands) ShowError(message string) tea.Cmd {
	return func() tea.Msg {
		return ShowErrorMsg{Message: message}
	}
}

// Quit returns a command that quits the application.
func (c *Commands) Quit() tea.Cmd {
	return tea.Quit
}
