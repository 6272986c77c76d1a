// Package app implements the main Bubble Tea application with tab-based navigation.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/cost-dashboard-tui/internal/logger"
	"github.com/j-veylop/cost-dashboard-tui/internal/services"
	"github.com/j-veylop/cost-dashboard-tui/internal/services/comparison"
	"github.com/j-veylop/cost-dashboard-tui/internal/services/overview"
	"github.com/j-veylop/cost-dashboard-tui/internal/ui/components"
	"github.com/j-veylop/cost-dashboard-tui/internal/ui/styles"
)

// TabID represents the identifier for a tab in the application.
type TabID int

const (
	// TabOverview is the ID for the overview tab.
	TabOverview TabID = iota
	// TabDetail is the ID for the subscription detail tab.
	TabDetail
	// TabComparison is the ID for the comparison tab.
	TabComparison
	// TabInfo is the ID for the info tab.
	TabInfo

	tabCount = 4
)

// String returns the string representation of the TabID.
func (t TabID) String() string {
	switch t {
	case TabOverview:
		return "Overview"
	case TabDetail:
		return "Detail"
	case TabComparison:
		return "Comparison"
	case TabInfo:
		return "Info"
	default:
		return "Unknown"
	}
}

// Tab defines the interface that all tabs must implement.
type Tab interface {
	// Init initializes the tab and returns any initial commands.
	Init() tea.Cmd

	// Update handles messages and returns the updated tab and any commands.
	Update(msg tea.Msg) (Tab, tea.Cmd)

	// View renders the tab content.
	View() string

	// SetSize sets the available size for the tab.
	SetSize(width, height int)

	// ShortHelp returns key bindings for the short help view.
	ShortHelp() []key.Binding

	// FullHelp returns key bindings for the full help view.
	FullHelp() [][]key.Binding
}

// KeyMap defines the keybindings for the application.
type KeyMap struct {
	Tab1    key.Binding
	Tab2    key.Binding
	Tab3    key.Binding
	Tab4    key.Binding
	NextTab key.Binding
	PrevTab key.Binding
	Refresh key.Binding
	Filter  key.Binding
	Group   key.Binding
	Period  key.Binding
	Help    key.Binding
	Quit    key.Binding
	Escape  key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	km := KeyMap{}
	km = setTabKeys(km)
	km = setActionKeys(km)
	return km
}

func setTabKeys(k KeyMap) KeyMap {
	k.Tab1 = key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "overview"))
	k.Tab2 = key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "detail"))
	k.Tab3 = key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "comparison"))
	k.Tab4 = key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "info"))
	k.NextTab = key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab"))
	k.PrevTab = key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev tab"))
	return k
}

func setActionKeys(k KeyMap) KeyMap {
	k.Refresh = key.NewBinding(key.WithKeys("r", "ctrl+r"), key.WithHelp("r", "refresh"))
	k.Filter = key.NewBinding(key.WithKeys("/", "f"), key.WithHelp("/", "filters"))
	k.Group = key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "next group"))
	k.Period = key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "next period"))
	k.Help = key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help"))
	k.Quit = key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit"))
	k.Escape = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back"))
	return k
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Filter, k.Refresh, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab1, k.Tab2, k.Tab3, k.Tab4},
		{k.NextTab, k.PrevTab},
		{k.Filter, k.Group, k.Period},
		{k.Refresh, k.Help, k.Quit},
	}
}

// Styles defines the application styles.
type Styles struct {
	// Tab bar styles
	TabBar      lipgloss.Style
	ActiveTab   lipgloss.Style
	InactiveTab lipgloss.Style
	Status      lipgloss.Style

	// Notification styles
	NotificationSuccess lipgloss.Style
	NotificationError   lipgloss.Style
	NotificationWarning lipgloss.Style
	NotificationInfo    lipgloss.Style

	// Content styles
	Content lipgloss.Style
	Help    lipgloss.Style
	Spinner lipgloss.Style
	Toast   lipgloss.Style
	Banner  lipgloss.Style

	// Common styles
	Title     lipgloss.Style
	Subtle    lipgloss.Style
	Highlight lipgloss.Style
}

// DefaultStyles returns the default application styles.
func DefaultStyles() Styles {
	subtle := lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	highlight := lipgloss.AdaptiveColor{Light: "#0087D7", Dark: "#5FAFFF"}
	success := lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}
	warning := lipgloss.AdaptiveColor{Light: "#FF8C00", Dark: "#FF8C00"}
	errorColor := lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"}
	info := lipgloss.AdaptiveColor{Light: "#0087D7", Dark: "#5FAFFF"}

	s := Styles{}
	s.TabBar = lipgloss.NewStyle().Padding(0, 1).BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).BorderForeground(subtle)
	s.ActiveTab = lipgloss.NewStyle().Bold(true).Foreground(highlight).Padding(0, 2)
	s.InactiveTab = lipgloss.NewStyle().Foreground(subtle).Padding(0, 2)
	s.Status = lipgloss.NewStyle().Foreground(subtle).Padding(0, 1)

	s.NotificationSuccess = lipgloss.NewStyle().Foreground(success).Padding(0, 1)
	s.NotificationError = lipgloss.NewStyle().Foreground(errorColor).Bold(true).Padding(0, 1)
	s.NotificationWarning = lipgloss.NewStyle().Foreground(warning).Padding(0, 1)
	s.NotificationInfo = lipgloss.NewStyle().Foreground(info).Padding(0, 1)

	s.Content = lipgloss.NewStyle().Padding(1, 2)
	s.Help = lipgloss.NewStyle().Foreground(subtle).Padding(0, 1)
	s.Spinner = lipgloss.NewStyle().Foreground(highlight)
	s.Toast = styles.ToastStyle
	s.Banner = styles.BannerStyle

	s.Title = lipgloss.NewStyle().Bold(true).Foreground(highlight)
	s.Subtle = lipgloss.NewStyle().Foreground(subtle)
	s.Highlight = lipgloss.NewStyle().Foreground(highlight)

	return s
}

// Model is the main application model.
type Model struct {
	// Tab management
	tabs     []Tab
	tabNames []string

	// Shared state
	state    *State
	services *services.Manager
	commands *Commands
	keymap   KeyMap
	styles   Styles

	// UI components
	spinner   spinner.Model
	filterBar components.FilterBar

	// Window dimensions
	width  int
	height int

	// UI state
	showHelp    bool
	ready       bool
	inputActive bool
	bannerTTL   time.Duration

	// Service subscription
	eventChannel chan services.ServiceEvent
}

// NewModel initializes a new application model.
func NewModel(mgr *services.Manager) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	state := NewState()
	if mgr != nil {
		state.SetSettings(mgr.Settings().Get())
	}

	return &Model{
		tabNames:  []string{TabOverview.String(), TabDetail.String(), TabComparison.String(), TabInfo.String()},
		tabs:      make([]Tab, tabCount),
		state:     state,
		services:  mgr,
		commands:  NewCommands(mgr),
		keymap:    DefaultKeyMap(),
		styles:    DefaultStyles(),
		spinner:   s,
		filterBar: components.NewFilterBar(),
		bannerTTL: ErrorBannerDuration,
	}
}

// SetTabs sets the tabs for the model.
func (m *Model) SetTabs(tabs []Tab) {
	m.tabs = tabs
	if m.width > 0 && m.height > 0 {
		m.updateTabSizes()
	}
}

// SetErrorBannerTTL changes how long the error banner stays visible.
func (m *Model) SetErrorBannerTTL(d time.Duration) {
	if d > 0 {
		m.bannerTTL = d
	}
}

// GetState returns the application state.
func (m *Model) GetState() *State {
	return m.state
}

// GetServices returns the service manager.
func (m *Model) GetServices() *services.Manager {
	return m.services
}

// GetCommands returns the commands helper.
func (m *Model) GetCommands() *Commands {
	return m.commands
}

// GetActiveTab returns the currently active tab ID.
func (m *Model) GetActiveTab() TabID {
	return m.state.ActiveTab()
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	m.state.SetLoadingNotification("Discovering subscriptions...")

	cmds := []tea.Cmd{
		m.spinner.Tick,
		defaultTickCmd(),
	}

	if m.services != nil {
		m.state.SetLoading(LoadSubscriptions, true)
		cmds = append(cmds, subscribeToServicesCmd(m.services))
		cmds = append(cmds, loadSubscriptionsCmd(m.services))
	}

	for _, tab := range m.tabs {
		if tab != nil {
			cmds = append(cmds, tab.Init())
		}
	}

	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if keyMsg, ok := msg.(tea.KeyMsg); ok && m.filterBar.Active() {
		return m, m.handleFilterBarKey(keyMsg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg, tea.KeyMsg, spinner.TickMsg:
		if cmd, handled := m.handleTeaMsg(msg); handled {
			return m, cmd
		} else if cmd != nil {
			cmds = append(cmds, cmd)
		}

	default:
		if appCmds := m.handleAppMsg(msg); len(appCmds) > 0 {
			cmds = append(cmds, appCmds...)
		}
	}

	if cmd := m.updateActiveTab(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// handleTeaMsg reports handled when the message must not reach the tab.
func (m *Model) handleTeaMsg(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleWindowSize(msg)
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd, false
	}
	return nil, false
}

func (m *Model) handleAppMsg(msg tea.Msg) []tea.Cmd {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case TickMsg:
		m.state.ClearExpiredNotifications()
		cmds = append(cmds, defaultTickCmd())
	case SubscriptionEventMsg:
		m.eventChannel = msg.Channel
		cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
	case ServiceEventMsg:
		cmds = append(cmds, m.handleServiceEvent(msg.Event))
		if m.eventChannel != nil {
			cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
		}
	case SubscriptionsLoadedMsg:
		cmds = append(cmds, m.handleSubscriptionsLoaded(msg)...)
	case ReloadSubscriptionsMsg:
		if m.services != nil {
			m.state.SetLoading(LoadSubscriptions, true)
			cmds = append(cmds, loadSubscriptionsCmd(m.services))
		}
	case RefreshMsg:
		cmds = append(cmds, m.refresh())
	case AddFilterMsg:
		if err := m.state.AddFilter(msg.Filter); err != nil {
			cmds = append(cmds, m.showError(err.Error()))
			break
		}
		cmds = append(cmds, m.filtersChanged()...)
	case RemoveFilterMsg:
		m.state.RemoveFilter(msg.ID)
		cmds = append(cmds, m.filtersChanged()...)
	case SelectSubscriptionMsg:
		cmds = append(cmds, m.selectSubscription(msg.SubscriptionID))
	case DetailLoadedMsg:
		cmds = append(cmds, m.handleDetailLoaded(msg))
	case SelectResourceGroupMsg:
		cmds = append(cmds, m.selectResourceGroup(msg.Name))
	case ResourceGroupLoadedMsg:
		cmds = append(cmds, m.handleResourceGroupLoaded(msg))
	case SetComparisonSlotMsg:
		if m.state.SetComparisonSlot(msg.Slot, msg.SubscriptionID) {
			cmds = append(cmds, m.compare())
		}
	case CompareMsg:
		cmds = append(cmds, m.compare())
	case ComparisonLoadedMsg:
		m.state.SetLoading(LoadComparison, false)
		m.state.SetComparison(msg.Result)
	case TagsLoadedMsg:
		m.state.SetTags(msg.Tags)
		m.filterBar.SetTags(msg.Tags)
	case HistoryLoadedMsg:
		if msg.Error != nil {
			logger.Warn("failed to load refresh history", "error", msg.Error)
			break
		}
		m.state.SetHistory(msg.Runs, msg.Stats)
	case LoadHistoryMsg:
		if m.services != nil {
			cmds = append(cmds, loadHistoryCmd(m.services))
		}
	case CycleGroupMsg:
		cmds = append(cmds, m.cycleGroup()...)
	case CyclePeriodMsg:
		cmds = append(cmds, m.cyclePeriod())
	case SetBudgetMsg:
		cmds = append(cmds, m.setBudget(msg.Budget))
	case GenerateReportMsg:
		cmds = append(cmds, m.generateReport(msg.Format))
	case ReportGeneratedMsg:
		cmds = append(cmds, m.handleReportGenerated(msg))
	case ExportMsg:
		cmds = append(cmds, m.export(msg))
	case ExportResultMsg:
		if msg.Error != nil {
			cmds = append(cmds, m.showError(fmt.Sprintf("Export failed: %v", msg.Error)))
			break
		}
		cmds = append(cmds, notifySuccessCmd("Exported "+strings.Join(msg.Paths, ", ")))
	case ShowErrorMsg:
		cmds = append(cmds, m.showError(msg.Message))
	case ClearErrorMsg:
		m.state.ClearError(msg.Token)
	case AddNotificationMsg:
		id := m.state.AddNotification(msg.Type, msg.Message, msg.Duration)
		if msg.Duration > 0 {
			cmds = append(cmds, clearNotificationCmd(id, msg.Duration))
		}
	case RemoveNotificationMsg:
		m.state.RemoveNotification(msg.ID)
	case TabSwitchMsg:
		cmds = append(cmds, m.navigate(msg.Tab))
	case InputFocusMsg:
		m.inputActive = msg.Active
	}
	return cmds
}

func (m *Model) handleWindowSize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true
	m.updateTabSizes()
}

// showError raises the banner and schedules its dismissal.
func (m *Model) showError(message string) tea.Cmd {
	logger.Warn("error banner", "message", message)
	token := m.state.SetError(message)
	return clearErrorCmd(token, m.bannerTTL)
}

// navigate switches tabs and loads what the new tab needs.
func (m *Model) navigate(tab TabID) tea.Cmd {
	if tab < 0 || int(tab) >= tabCount {
		return nil
	}
	m.state.Navigate(tab)
	m.updateTabSizes()
	if tab == TabInfo && m.services != nil {
		return loadHistoryCmd(m.services)
	}
	return nil
}

func (m *Model) refreshRequest() overview.Request {
	return overview.Request{
		Subscriptions: m.state.FilteredIDs(),
		Filters:       m.state.Filters(),
	}
}

// refresh queues an overview refresh for the current group and filters.
func (m *Model) refresh() tea.Cmd {
	if m.services == nil {
		return nil
	}
	if len(m.state.Subscriptions()) == 0 {
		m.state.SetLoading(LoadSubscriptions, true)
		return loadSubscriptionsCmd(m.services)
	}
	m.state.SetLoadingNotification("Refreshing costs...")
	return refreshCmd(m.services, m.refreshRequest())
}

// filtersChanged refetches every view that depends on the filters.
func (m *Model) filtersChanged() []tea.Cmd {
	cmds := []tea.Cmd{m.refresh()}
	if id := m.state.SelectedSubscription(); id != "" && m.services != nil {
		m.state.SelectSubscription(id)
		m.state.SetLoading(LoadResourceGroup, false)
		m.state.SetLoading(LoadDetail, true)
		cmds = append(cmds, fetchDetailCmd(m.services, id, m.state.Filters()))
	}
	return append(cmds, m.compare())
}

func (m *Model) handleSubscriptionsLoaded(msg SubscriptionsLoadedMsg) []tea.Cmd {
	m.state.SetLoading(LoadSubscriptions, false)
	m.state.SetLoading(LoadInitial, false)
	if msg.Error != nil {
		m.state.ClearLoadingNotification()
		return []tea.Cmd{m.showError(msg.Error.Error())}
	}

	m.state.SetSubscriptions(msg.Subscriptions)
	if len(msg.Subscriptions) == 0 {
		m.state.ClearLoadingNotification()
		return []tea.Cmd{notifyWarningCmd("No subscriptions found")}
	}

	cmds := []tea.Cmd{
		m.refresh(),
		notifyInfoCmd(fmt.Sprintf("Found %d subscriptions", len(msg.Subscriptions))),
	}
	if m.services != nil {
		cmds = append(cmds, discoverTagsCmd(m.services, m.state.FilteredIDs()))
	}
	return cmds
}

func (m *Model) selectSubscription(id string) tea.Cmd {
	m.state.SelectSubscription(id)
	m.state.SetLoading(LoadResourceGroup, false)
	if id == "" {
		return nil
	}
	m.state.Navigate(TabDetail)
	m.updateTabSizes()
	if m.services == nil {
		return nil
	}
	m.state.SetLoading(LoadDetail, true)
	return fetchDetailCmd(m.services, id, m.state.Filters())
}

func (m *Model) handleDetailLoaded(msg DetailLoadedMsg) tea.Cmd {
	if msg.SubscriptionID != m.state.SelectedSubscription() || msg.FilterKey != m.state.FilterKey() {
		return nil
	}
	m.state.SetLoading(LoadDetail, false)
	if msg.Error != nil {
		return m.showError(fmt.Sprintf("Failed to load %s: %v", m.state.SubscriptionName(msg.SubscriptionID), msg.Error))
	}
	m.state.SetDetail(msg.SubscriptionID, msg.Result)
	return nil
}

func (m *Model) selectResourceGroup(rg string) tea.Cmd {
	if !m.state.SelectResourceGroup(rg) {
		m.state.SetLoading(LoadResourceGroup, false)
		return nil
	}
	if m.services == nil {
		return nil
	}
	m.state.SetLoading(LoadResourceGroup, true)
	return fetchResourceGroupCmd(m.services, m.state.SelectedSubscription(), rg, m.state.Filters())
}

func (m *Model) handleResourceGroupLoaded(msg ResourceGroupLoadedMsg) tea.Cmd {
	if msg.SubscriptionID != m.state.SelectedSubscription() ||
		msg.ResourceGroup != m.state.ResourceGroup() ||
		msg.FilterKey != m.state.FilterKey() {
		return nil
	}
	m.state.SetLoading(LoadResourceGroup, false)
	if msg.Error != nil {
		return m.showError(fmt.Sprintf("Failed to load resource group %s: %v", msg.ResourceGroup, msg.Error))
	}
	m.state.SetResourceGroupDetails(msg.SubscriptionID, msg.ResourceGroup, msg.Details)
	return nil
}

func (m *Model) compare() tea.Cmd {
	ids := m.state.ComparisonIDs()
	if m.services == nil || ids == [comparison.Slots]string{} {
		return nil
	}
	m.state.SetLoading(LoadComparison, true)
	return compareCmd(m.services, ids, m.state.Filters())
}

func (m *Model) cycleGroup() []tea.Cmd {
	next := m.state.NextGroup()
	st := m.state.Settings()
	st.SubscriptionGroup = next
	m.state.SetSettings(st)

	cmds := []tea.Cmd{m.refresh(), notifyInfoCmd("Group: " + next)}
	if m.services != nil {
		cmds = append(cmds, setGroupCmd(m.services, next))
	}
	return cmds
}

func (m *Model) cyclePeriod() tea.Cmd {
	next := m.state.Period().Next()
	st := m.state.Settings()
	st.AggregatePeriod = next.String()
	m.state.SetSettings(st)

	if m.services == nil {
		return nil
	}
	return setPeriodCmd(m.services, next)
}

func (m *Model) setBudget(budget float64) tea.Cmd {
	if budget < 0 {
		return m.showError("Budget cannot be negative")
	}
	st := m.state.Settings()
	st.Budget = budget
	m.state.SetSettings(st)

	if m.services == nil {
		return nil
	}
	return setBudgetCmd(m.services, budget)
}

func (m *Model) generateReport(format string) tea.Cmd {
	id := m.state.SelectedSubscription()
	if id == "" {
		return m.showError("Select a subscription before generating a report")
	}
	if m.services == nil {
		return nil
	}
	m.state.SetLoading(LoadReport, true)
	return tea.Batch(
		notifyInfoCmd("Generating report..."),
		generateReportCmd(m.services, id, m.state.Filters(), format),
	)
}

func (m *Model) handleReportGenerated(msg ReportGeneratedMsg) tea.Cmd {
	m.state.SetLoading(LoadReport, false)
	if msg.Error != nil {
		return m.showError(fmt.Sprintf("Report generation failed: %v", msg.Error))
	}
	if msg.Report == nil {
		return nil
	}
	text := msg.Report.Message
	if msg.Report.DownloadURL != "" {
		text += ": " + msg.Report.DownloadURL
	} else if msg.Report.FileName != "" {
		text += ": " + msg.Report.FileName
	}
	return func() tea.Msg {
		return AddNotificationMsg{Type: NotificationSuccess, Message: text, Duration: LongNotificationDuration}
	}
}

func (m *Model) export(msg ExportMsg) tea.Cmd {
	detail := m.state.Detail()
	if detail == nil {
		return m.showError("No detail data to export")
	}
	if m.services == nil {
		return nil
	}
	return exportCmd(m.services, detail, msg.Formats)
}

func (m *Model) handleServiceEvent(event services.ServiceEvent) tea.Cmd {
	switch e := event.(type) {
	case services.SnapshotEvent:
		m.state.SetSnapshot(e.Snapshot)
		if e.Snapshot.Loading() {
			m.state.SetLoadingNotification("Loading costs...")
		}

	case services.RefreshCompletedEvent:
		m.state.SetSnapshot(e.Snapshot)
		m.state.ClearLoadingNotification()
		var cmds []tea.Cmd
		if m.services != nil {
			cmds = append(cmds, loadHistoryCmd(m.services))
		}
		if e.Error != nil && !errors.Is(e.Error, context.Canceled) {
			cmds = append(cmds, notifyWarningCmd(fmt.Sprintf("Refresh incomplete: %v", e.Error)))
		}
		return tea.Batch(cmds...)

	case services.SettingsChangedEvent:
		previous := m.state.Settings()
		m.state.SetSettings(e.Settings)
		if previous.SubscriptionGroup != e.Settings.SubscriptionGroup {
			return m.refresh()
		}

	case services.ErrorEvent:
		return notifyErrorCmd(fmt.Sprintf("[%s] %v", e.Service, e.Error))
	}

	return nil
}

func (m *Model) handleFilterBarKey(msg tea.KeyMsg) tea.Cmd {
	bar, action, cmd := m.filterBar.Update(msg, m.state.Filters())
	m.filterBar = bar
	cmds := []tea.Cmd{cmd}

	switch {
	case action.Err != nil:
		cmds = append(cmds, m.showError(action.Err.Error()))
	case action.Add != nil:
		cmds = append(cmds, func() tea.Msg { return AddFilterMsg{Filter: *action.Add} })
	case action.RemoveID != "":
		cmds = append(cmds, func() tea.Msg { return RemoveFilterMsg{ID: action.RemoveID} })
	}
	if action.Closed {
		m.updateTabSizes()
	}
	return tea.Batch(cmds...)
}

func (m *Model) updateActiveTab(msg tea.Msg) tea.Cmd {
	active := m.state.ActiveTab()
	if int(active) < len(m.tabs) && m.tabs[active] != nil {
		var cmd tea.Cmd
		m.tabs[active], cmd = m.tabs[active].Update(msg)
		return cmd
	}
	return nil
}

// chromeHeight is the number of lines used above the tab content.
func (m *Model) chromeHeight() int {
	return 3 + m.filterBar.Height()
}

func (m *Model) updateTabSizes() {
	contentHeight := max(0, m.height-m.chromeHeight())

	for _, tab := range m.tabs {
		if tab != nil {
			tab.SetSize(m.width, contentHeight)
		}
	}
}

// handleKeyMsg handles keyboard input. It reports handled when the key must
// not be forwarded to the active tab.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Cmd, bool) {
	if m.inputActive {
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		return tea.Quit, true

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = !m.showHelp
		return nil, true

	case key.Matches(msg, m.keymap.Tab1):
		return m.navigate(TabOverview), true

	case key.Matches(msg, m.keymap.Tab2):
		return m.navigate(TabDetail), true

	case key.Matches(msg, m.keymap.Tab3):
		return m.navigate(TabComparison), true

	case key.Matches(msg, m.keymap.Tab4):
		return m.navigate(TabInfo), true

	case key.Matches(msg, m.keymap.NextTab):
		if !m.showHelp {
			return m.navigate(TabID((int(m.state.ActiveTab()) + 1) % tabCount)), true
		}
		return nil, true

	case key.Matches(msg, m.keymap.PrevTab):
		if !m.showHelp {
			return m.navigate(TabID((int(m.state.ActiveTab()) - 1 + tabCount) % tabCount)), true
		}
		return nil, true

	case key.Matches(msg, m.keymap.Filter):
		cmd := m.filterBar.Focus()
		m.updateTabSizes()
		return cmd, true

	case key.Matches(msg, m.keymap.Group):
		return tea.Batch(m.cycleGroup()...), true

	case key.Matches(msg, m.keymap.Period):
		return m.cyclePeriod(), true

	case key.Matches(msg, m.keymap.Refresh):
		cmds := []tea.Cmd{m.refresh()}
		if id := m.state.SelectedSubscription(); id != "" && m.services != nil {
			m.state.SetLoading(LoadDetail, true)
			cmds = append(cmds, fetchDetailCmd(m.services, id, m.state.Filters()))
		}
		return tea.Batch(cmds...), true

	case key.Matches(msg, m.keymap.Escape):
		if m.showHelp {
			m.showHelp = false
			return nil, true
		}
	}

	return nil, false
}

// View renders the application UI.
func (m *Model) View() string {
	var b strings.Builder

	if m.width > 0 {
		b.WriteString(m.renderNavbar())
		b.WriteString("\n")
		b.WriteString(m.filterBar.View(m.state.Filters(), m.width))
		b.WriteString("\n")
		b.WriteString(m.renderBanner())
		b.WriteString("\n")
	}

	if !m.ready {
		b.WriteString(m.styles.Content.Render(fmt.Sprintf("%s Loading...", m.spinner.View())))
		return b.String()
	}

	active := m.state.ActiveTab()
	if int(active) < len(m.tabs) && m.tabs[active] != nil {
		b.WriteString(m.tabs[active].View())
	} else {
		b.WriteString(m.renderPlaceholder())
	}

	mainView := b.String()

	if m.showHelp {
		mainView = m.overlayCentered(mainView, m.renderHelp())
	}

	if notifications := m.renderNotifications(); len(notifications) > 0 {
		return m.overlayToasts(mainView, notifications)
	}

	return mainView
}

// renderBanner renders the error banner, or an empty line.
func (m *Model) renderBanner() string {
	msg := m.state.Error()
	if msg == "" {
		return ""
	}
	return m.styles.Banner.Width(m.width).Render(ansi.Truncate("✗ "+msg, max(m.width-2, 1), "…"))
}

func (m *Model) overlayCentered(mainView string, overlay string) string {
	mainLines := padLines(strings.Split(mainView, "\n"), m.height)
	overlayLines := strings.Split(overlay, "\n")

	overlayHeight := len(overlayLines)
	overlayWidth := lipgloss.Width(overlay)

	y := max((m.height-overlayHeight)/2, 0)
	x := max((m.width-overlayWidth)/2, 0)

	for i, overlayLine := range overlayLines {
		mainY := y + i
		if mainY >= len(mainLines) {
			break
		}

		mainLine := mainLines[mainY]

		left := ansi.Truncate(mainLine, x, "")
		right := ansi.TruncateLeft(mainLine, x+overlayWidth, "")

		if lipgloss.Width(left) < x {
			left += strings.Repeat(" ", x-lipgloss.Width(left))
		}

		mainLines[mainY] = left + overlayLine + right
	}

	return strings.Join(mainLines, "\n")
}

// padLines extends lines with empty ones up to n so overlays have rows to
// draw on.
func padLines(lines []string, n int) []string {
	for len(lines) < n {
		lines = append(lines, "")
	}
	return lines
}

func (m *Model) renderNavbar() string {
	active := m.state.ActiveTab()
	var tabs []string

	for i, name := range m.tabNames {
		if TabID(i) == active {
			tabs = append(tabs, m.styles.ActiveTab.Render(fmt.Sprintf("[%d] %s", i+1, name)))
		} else {
			tabs = append(tabs, m.styles.InactiveTab.Render(fmt.Sprintf(" %d  %s", i+1, name)))
		}
	}

	status := m.styles.Status.Render(fmt.Sprintf("group %s · %s", m.state.Group(), m.state.Period()))
	tabBar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	gap := max(m.width-lipgloss.Width(tabBar)-lipgloss.Width(status)-2, 1)

	return m.styles.TabBar.Width(m.width).Render(tabBar + strings.Repeat(" ", gap) + status)
}

func (m *Model) renderNotifications() []string {
	notifications := m.state.GetNotifications()
	if len(notifications) == 0 {
		return nil
	}

	var toasts []string
	for _, n := range notifications {
		var style lipgloss.Style
		var prefix string

		switch n.Type {
		case NotificationSuccess:
			style = m.styles.NotificationSuccess
			prefix = "[OK]"
		case NotificationError:
			style = m.styles.NotificationError
			prefix = "[ERR]"
		case NotificationWarning:
			style = m.styles.NotificationWarning
			prefix = "[WARN]"
		case NotificationInfo:
			style = m.styles.NotificationInfo
			prefix = "[INFO]"
		case NotificationLoading:
			style = m.styles.NotificationInfo
			prefix = m.spinner.View()
		}

		content := style.Render(fmt.Sprintf("%s %s", prefix, n.Message))
		toasts = append(toasts, m.styles.Toast.Render(content))
	}

	return toasts
}

func (m *Model) overlayToasts(mainView string, toasts []string) string {
	if len(toasts) == 0 {
		return mainView
	}

	toastStack := lipgloss.JoinVertical(lipgloss.Right, toasts...)
	toastLines := strings.Split(toastStack, "\n")
	mainLines := padLines(strings.Split(mainView, "\n"), m.height)

	toastWidth := lipgloss.Width(toastStack)
	startX := max(m.width-toastWidth-2, 0)
	startY := m.chromeHeight()

	for i, toastLine := range toastLines {
		lineIdx := startY + i
		if lineIdx >= len(mainLines) {
			break
		}

		mainLine := mainLines[lineIdx]
		mainLineWidth := lipgloss.Width(mainLine)

		if mainLineWidth < startX {
			mainLines[lineIdx] = mainLine + strings.Repeat(" ", startX-mainLineWidth) + toastLine
		} else {
			mainLines[lineIdx] = ansi.Truncate(mainLine, startX, "") + toastLine
		}
	}

	return strings.Join(mainLines, "\n")
}

func (m *Model) renderHelp() string {
	var lines []string

	lines = append(lines, m.styles.Title.Render("Keyboard Shortcuts"))
	lines = append(lines, "")

	lines = append(lines, m.styles.Highlight.Render("Navigation"))
	lines = append(lines, "  1-4        Switch tabs")
	lines = append(lines, "  Tab        Next tab")
	lines = append(lines, "  Shift+Tab  Previous tab")
	lines = append(lines, "")

	lines = append(lines, m.styles.Highlight.Render("Filters"))
	lines = append(lines, "  / or f     Edit filters")
	lines = append(lines, "  g          Next subscription group")
	lines = append(lines, "  p          Next period (YTD/QTD/MTD)")
	lines = append(lines, "")

	lines = append(lines, m.styles.Highlight.Render("Actions"))
	lines = append(lines, "  r          Refresh costs")
	lines = append(lines, "  ?          Toggle help")
	lines = append(lines, "  q/Ctrl+C   Quit")
	lines = append(lines, "")

	active := m.state.ActiveTab()
	if int(active) < len(m.tabs) && m.tabs[active] != nil {
		if tabHelp := m.tabs[active].ShortHelp(); len(tabHelp) > 0 {
			lines = append(lines, m.styles.Highlight.Render(fmt.Sprintf("%s Tab", m.tabNames[active])))
			for _, binding := range tabHelp {
				lines = append(lines, fmt.Sprintf("  %-10s %s", binding.Help().Key, binding.Help().Desc))
			}
			lines = append(lines, "")
		}
	}

	lines = append(lines, m.styles.Subtle.Render("Press ? or Esc to close"))

	return styles.HelpPanelStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderPlaceholder() string {
	active := m.state.ActiveTab()
	content := fmt.Sprintf(
		"Tab %d: %s\n\n%s",
		active+1,
		m.tabNames[active],
		m.styles.Subtle.Render("This tab is not available."),
	)
	return m.styles.Content.Render(content)
}
