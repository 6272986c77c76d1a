// Package overview provides the aggregate cost tab of the dashboard.
package overview

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/cost-dashboard-tui/internal/app"
	"github.com/j-veylop/cost-dashboard-tui/internal/ui/components"
)

type frameTickMsg time.Time

func frameTickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*80, func(t time.Time) tea.Msg {
		return frameTickMsg(t)
	})
}

// keyMap defines the key bindings specific to the overview tab.
type keyMap struct {
	Next    key.Binding
	Prev    key.Binding
	First   key.Binding
	Last    key.Binding
	Open    key.Binding
	Compare key.Binding
	Budget  key.Binding
	Submit  key.Binding
	Cancel  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Next: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "next subscription"),
		),
		Prev: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "prev subscription"),
		),
		First: key.NewBinding(
			key.WithKeys("home"),
			key.WithHelp("home", "first subscription"),
		),
		Last: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "last subscription"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open detail"),
		),
		Compare: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "add to comparison"),
		),
		Budget: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "set budget"),
		),
		Submit: key.NewBinding(key.WithKeys("enter")),
		Cancel: key.NewBinding(key.WithKeys("esc")),
	}
}

// Model is the overview tab: period totals, the budget gauge, the cost chart
// and the subscription list.
type Model struct {
	state       *app.State
	spinner     components.LoadingSpinner
	keys        keyMap
	viewport    viewport.Model
	budgetBar   components.BudgetBar
	budgetInput textinput.Model
	editing     bool
	selected    int
	frame       int
	width       int
	height      int
}

// New creates the overview tab.
func New(state *app.State) *Model {
	ti := textinput.New()
	ti.Prompt = "budget › "
	ti.Placeholder = "12000"
	ti.CharLimit = 16
	ti.Validate = validateAmount

	return &Model{
		state:       state,
		spinner:     components.NewSpinner("Discovering subscriptions..."),
		keys:        defaultKeyMap(),
		viewport:    viewport.New(0, 0),
		budgetBar:   components.NewBudgetBar(),
		budgetInput: ti,
	}
}

func validateAmount(s string) error {
	if s == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64); err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	return nil
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Init(), frameTickCmd())
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editing {
			cmds = append(cmds, m.handleBudgetKey(msg))
		} else {
			cmds = append(cmds, m.handleKeyMsg(msg))
		}

	case frameTickMsg:
		m.frame++
		if m.state.Snapshot().Loading() || m.state.IsLoading(app.LoadInitial) {
			cmds = append(cmds, frameTickCmd())
		}

	case app.ServiceEventMsg:
		cmds = append(cmds, m.syncBudget(), frameTickCmd())

	case app.TickMsg, app.SetBudgetMsg, app.CyclePeriodMsg, app.CycleGroupMsg, app.SubscriptionsLoadedMsg:
		cmds = append(cmds, m.syncBudget())

	case components.AnimationTickMsg:
		var cmd tea.Cmd
		m.budgetBar, cmd = m.budgetBar.Update(msg)
		cmds = append(cmds, cmd)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// syncBudget points the budget bar at the current projection.
func (m *Model) syncBudget() tea.Cmd {
	summary := m.state.Summary(time.Now())
	budget := m.state.Settings().Budget
	return m.budgetBar.SetPercent(components.BudgetPercent(summary.ProjectedCost, budget))
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	subs := m.state.FilteredSubscriptions()
	count := len(subs)
	if m.selected >= count {
		m.selected = max(count-1, 0)
	}

	switch {
	case key.Matches(msg, m.keys.Next):
		if count > 0 {
			m.selected = (m.selected + 1) % count
		}
	case key.Matches(msg, m.keys.Prev):
		if count > 0 {
			m.selected = (m.selected - 1 + count) % count
		}
	case key.Matches(msg, m.keys.First):
		m.selected = 0
	case key.Matches(msg, m.keys.Last):
		m.selected = max(count-1, 0)
	case key.Matches(msg, m.keys.Open):
		if count == 0 {
			return nil
		}
		id := subs[m.selected].SubscriptionID
		return func() tea.Msg { return app.SelectSubscriptionMsg{SubscriptionID: id} }
	case key.Matches(msg, m.keys.Compare):
		if count == 0 {
			return nil
		}
		return m.addToComparison(subs[m.selected].SubscriptionID, subs[m.selected].Name())
	case key.Matches(msg, m.keys.Budget):
		m.editing = true
		if budget := m.state.Settings().Budget; budget > 0 {
			m.budgetInput.SetValue(strconv.FormatFloat(budget, 'f', -1, 64))
		}
		return tea.Batch(
			m.budgetInput.Focus(),
			func() tea.Msg { return app.InputFocusMsg{Active: true} },
		)
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	return nil
}

// addToComparison puts id in the first free comparison slot.
func (m *Model) addToComparison(id, name string) tea.Cmd {
	ids := m.state.ComparisonIDs()
	slot := -1
	for i, existing := range ids {
		if existing == id {
			return notify(app.NotificationInfo, name+" is already being compared")
		}
		if existing == "" && slot < 0 {
			slot = i
		}
	}
	if slot < 0 {
		return notify(app.NotificationWarning, "All comparison slots are taken")
	}
	return tea.Batch(
		func() tea.Msg { return app.SetComparisonSlotMsg{Slot: slot, SubscriptionID: id} },
		notify(app.NotificationInfo, fmt.Sprintf("%s added to comparison slot %d", name, slot+1)),
	)
}

func notify(t app.NotificationType, message string) tea.Cmd {
	return func() tea.Msg {
		return app.AddNotificationMsg{Type: t, Message: message, Duration: app.QuickNotificationDuration}
	}
}

func (m *Model) handleBudgetKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		return m.stopEditing()

	case key.Matches(msg, m.keys.Submit):
		raw := strings.ReplaceAll(strings.TrimSpace(m.budgetInput.Value()), ",", "")
		budget := 0.0
		if raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return func() tea.Msg { return app.ShowErrorMsg{Message: "Budget must be a number"} }
			}
			budget = v
		}
		return tea.Batch(
			m.stopEditing(),
			func() tea.Msg { return app.SetBudgetMsg{Budget: budget} },
		)
	}

	var cmd tea.Cmd
	m.budgetInput, cmd = m.budgetInput.Update(msg)
	return cmd
}

func (m *Model) stopEditing() tea.Cmd {
	m.editing = false
	m.budgetInput.Blur()
	m.budgetInput.Reset()
	return func() tea.Msg { return app.InputFocusMsg{Active: false} }
}

// Selected returns the index of the highlighted subscription.
func (m *Model) Selected() int {
	return m.selected
}

// SetSize sets the available size for the overview.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = max(width-6, 0)
	m.viewport.Height = max(height-2, 0)
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Next, m.keys.Prev, m.keys.Open, m.keys.Compare, m.keys.Budget}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Next, m.keys.Prev},
		{m.keys.First, m.keys.Last},
		{m.keys.Open, m.keys.Compare, m.keys.Budget},
	}
}
