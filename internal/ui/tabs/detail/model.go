// Package detail provides the per-subscription drill-down tab.
package detail

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/cost-dashboard-tui/internal/app"
	"github.com/j-veylop/cost-dashboard-tui/internal/export"
	"github.com/j-veylop/cost-dashboard-tui/internal/services/costapi"
	"github.com/j-veylop/cost-dashboard-tui/internal/ui/components"
)

// topGroups is the number of resource groups listed.
const topGroups = 15

type keyMap struct {
	Next       key.Binding
	Prev       key.Binding
	Drill      key.Binding
	Back       key.Binding
	Report     key.Binding
	ReportJSON key.Binding
	Export     key.Binding
	ExportPDF  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Next: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "next group"),
		),
		Prev: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "prev group"),
		),
		Drill: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "toggle providers"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "backspace"),
			key.WithHelp("esc", "back to overview"),
		),
		Report: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "csv report"),
		),
		ReportJSON: key.NewBinding(
			key.WithKeys("J"),
			key.WithHelp("J", "json report"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export csv+json"),
		),
		ExportPDF: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "export pdf"),
		),
	}
}

// Model is the detail tab of the selected subscription.
type Model struct {
	state    *app.State
	spinner  components.LoadingSpinner
	keys     keyMap
	viewport viewport.Model
	cursor   int
	width    int
	height   int
}

// New creates the detail tab.
func New(state *app.State) *Model {
	return &Model{
		state:    state,
		spinner:  components.NewSpinner("Loading subscription..."),
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Init()
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKeyMsg(msg)
	case app.SelectSubscriptionMsg:
		m.cursor = 0
		m.viewport.GotoTop()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	groups := m.state.Detail().TopResourceGroups(topGroups)
	count := len(groups)

	switch {
	case key.Matches(msg, m.keys.Next):
		if count > 0 {
			m.cursor = (m.cursor + 1) % count
		}
	case key.Matches(msg, m.keys.Prev):
		if count > 0 {
			m.cursor = (m.cursor - 1 + count) % count
		}
	case key.Matches(msg, m.keys.Drill):
		if m.cursor < count {
			name := groups[m.cursor].Name
			return func() tea.Msg { return app.SelectResourceGroupMsg{Name: name} }
		}
	case key.Matches(msg, m.keys.Back):
		if m.state.ResourceGroup() != "" {
			return func() tea.Msg { return app.SelectResourceGroupMsg{} }
		}
		return func() tea.Msg { return app.TabSwitchMsg{Tab: app.TabOverview} }
	case key.Matches(msg, m.keys.Report):
		return func() tea.Msg { return app.GenerateReportMsg{Format: costapi.FormatCSV} }
	case key.Matches(msg, m.keys.ReportJSON):
		return func() tea.Msg { return app.GenerateReportMsg{Format: costapi.FormatJSON} }
	case key.Matches(msg, m.keys.Export):
		return func() tea.Msg { return app.ExportMsg{Formats: []export.Format{export.FormatCSV, export.FormatJSON}} }
	case key.Matches(msg, m.keys.ExportPDF):
		return func() tea.Msg { return app.ExportMsg{Formats: []export.Format{export.FormatPDF}} }
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	return nil
}

// Cursor returns the highlighted resource-group row.
func (m *Model) Cursor() int {
	return m.cursor
}

// SetSize sets the available size for the tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = max(width-6, 0)
	m.viewport.Height = max(height-2, 0)
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Next, m.keys.Drill, m.keys.Back, m.keys.Report, m.keys.Export}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Next, m.keys.Prev, m.keys.Drill, m.keys.Back},
		{m.keys.Report, m.keys.ReportJSON},
		{m.keys.Export, m.keys.ExportPDF},
	}
}
