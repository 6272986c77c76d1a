// Package comparison provides the side-by-side subscription comparison tab.
package comparison

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/cost-dashboard-tui/internal/app"
	"github.com/j-veylop/cost-dashboard-tui/internal/models"
	costs "github.com/j-veylop/cost-dashboard-tui/internal/services/comparison"
	"github.com/j-veylop/cost-dashboard-tui/internal/ui/components"
	"github.com/j-veylop/cost-dashboard-tui/internal/ui/styles"
)

// keyMap defines the key bindings specific to the comparison tab.
type keyMap struct {
	Assign    key.Binding
	NextSlot  key.Binding
	PrevSlot  key.Binding
	ClearSlot key.Binding
	ClearAll  key.Binding
	Search    key.Binding
	Submit    key.Binding
	Cancel    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Assign: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "put in slot"),
		),
		NextSlot: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/→", "next slot"),
		),
		PrevSlot: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/←", "prev slot"),
		),
		ClearSlot: key.NewBinding(
			key.WithKeys("x", "delete"),
			key.WithHelp("x", "clear slot"),
		),
		ClearAll: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "clear all"),
		),
		Search: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "search"),
		),
		Submit: key.NewBinding(key.WithKeys("enter")),
		Cancel: key.NewBinding(key.WithKeys("esc")),
	}
}

// Model is the comparison tab: three result columns above a subscription
// picker.
type Model struct {
	state        *app.State
	table        table.Model
	search       textinput.Model
	spinner      components.LoadingSpinner
	keys         keyMap
	slot         int
	searching    bool
	confirmClear bool
	width        int
	height       int
}

// New creates the comparison tab.
func New(state *app.State) *Model {
	search := textinput.New()
	search.Prompt = "search › "
	search.Placeholder = "name or id"
	search.CharLimit = 64

	t := table.New(
		table.WithColumns(columns(40)),
		table.WithFocused(true),
		table.WithHeight(8),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Subtle).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Primary)
	s.Selected = s.Selected.
		Foreground(styles.TextPrimary).
		Background(styles.BgAccent).
		Bold(true)
	t.SetStyles(s)

	m := &Model{
		state:   state,
		table:   t,
		search:  search,
		spinner: components.NewSpinner("Comparing..."),
		keys:    defaultKeyMap(),
	}
	m.updateTableData()
	return m
}

func columns(nameWidth int) []table.Column {
	return []table.Column{
		{Title: "Subscription", Width: nameWidth},
		{Title: "Group", Width: 10},
		{Title: "ID", Width: 38},
		{Title: "Slot", Width: 6},
	}
}

// Init initializes the comparison tab.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Init()
}

// Update handles messages for the comparison tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case m.confirmClear:
			return m, m.updateClearConfirm(msg)
		case m.searching:
			return m, m.updateSearch(msg)
		}
		return m, m.handleKeyMsg(msg)

	case app.SubscriptionsLoadedMsg, app.CycleGroupMsg, app.SetComparisonSlotMsg, app.ComparisonLoadedMsg:
		m.updateTableData()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Assign):
		row := m.table.SelectedRow()
		if len(row) < 3 {
			return nil
		}
		return m.assign(row[2])
	case key.Matches(msg, m.keys.NextSlot):
		m.slot = (m.slot + 1) % costs.Slots
	case key.Matches(msg, m.keys.PrevSlot):
		m.slot = (m.slot - 1 + costs.Slots) % costs.Slots
	case key.Matches(msg, m.keys.ClearSlot):
		if m.state.ComparisonIDs()[m.slot] == "" {
			return nil
		}
		slot := m.slot
		return func() tea.Msg { return app.SetComparisonSlotMsg{Slot: slot} }
	case key.Matches(msg, m.keys.ClearAll):
		if m.state.ComparisonIDs() != [costs.Slots]string{} {
			m.confirmClear = true
		}
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		return tea.Batch(
			m.search.Focus(),
			func() tea.Msg { return app.InputFocusMsg{Active: true} },
		)
	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return cmd
	}
	return nil
}

// assign puts id in the focused slot and moves the focus to the next one.
func (m *Model) assign(id string) tea.Cmd {
	for i, existing := range m.state.ComparisonIDs() {
		if existing == id {
			message := m.state.SubscriptionName(id) + " is already in slot " + strconv.Itoa(i+1)
			return func() tea.Msg {
				return app.AddNotificationMsg{Type: app.NotificationInfo, Message: message, Duration: app.QuickNotificationDuration}
			}
		}
	}
	slot := m.slot
	m.slot = (m.slot + 1) % costs.Slots
	return func() tea.Msg { return app.SetComparisonSlotMsg{Slot: slot, SubscriptionID: id} }
}

func (m *Model) updateSearch(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.search.Reset()
		return m.stopSearch()
	case key.Matches(msg, m.keys.Submit):
		return m.stopSearch()
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.updateTableData()
	return cmd
}

func (m *Model) stopSearch() tea.Cmd {
	m.searching = false
	m.search.Blur()
	m.updateTableData()
	return func() tea.Msg { return app.InputFocusMsg{Active: false} }
}

func (m *Model) updateClearConfirm(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "Y":
		m.confirmClear = false
		m.slot = 0
		cmds := make([]tea.Cmd, 0, costs.Slots)
		for i := range costs.Slots {
			cmds = append(cmds, func() tea.Msg { return app.SetComparisonSlotMsg{Slot: i} })
		}
		return tea.Batch(cmds...)
	case "n", "N", "esc":
		m.confirmClear = false
	}
	return nil
}

// updateTableData fills the picker with the subscriptions of the current
// group that match the search.
func (m *Model) updateTableData() {
	query := strings.ToLower(strings.TrimSpace(m.search.Value()))
	slots := m.state.ComparisonIDs()

	var rows []table.Row
	for _, s := range m.state.FilteredSubscriptions() {
		if query != "" && !matches(s, query) {
			continue
		}
		slot := ""
		for i, id := range slots {
			if id == s.SubscriptionID {
				slot = strconv.Itoa(i + 1)
			}
		}
		group := s.Group()
		if group == "" {
			group = "-"
		}
		rows = append(rows, table.Row{s.Name(), group, s.SubscriptionID, slot})
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

func matches(s models.Subscription, query string) bool {
	return strings.Contains(strings.ToLower(s.Name()), query) ||
		strings.Contains(strings.ToLower(s.SubscriptionID), query)
}

// Slot returns the focused comparison slot.
func (m *Model) Slot() int {
	return m.slot
}

// SetSize sets the available size for the comparison tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height

	// Columns take roughly 16 rows; the picker gets the rest.
	m.table.SetHeight(max(height-26, 4))
	m.table.SetColumns(columns(min(max(width-80, 20), 48)))
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	if m.searching {
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "keep")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
		}
	}
	return []key.Binding{m.keys.Assign, m.keys.NextSlot, m.keys.ClearSlot, m.keys.Search}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Assign, m.keys.Search},
		{m.keys.NextSlot, m.keys.PrevSlot},
		{m.keys.ClearSlot, m.keys.ClearAll},
	}
}
