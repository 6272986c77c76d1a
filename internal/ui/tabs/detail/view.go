package detail

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/cost-dashboard-tui/internal/app"
	"github.com/j-veylop/cost-dashboard-tui/internal/filters"
	"github.com/j-veylop/cost-dashboard-tui/internal/models"
	costs "github.com/j-veylop/cost-dashboard-tui/internal/services/overview"
	"github.com/j-veylop/cost-dashboard-tui/internal/ui/components"
	"github.com/j-veylop/cost-dashboard-tui/internal/ui/styles"
)

// View renders the detail tab.
func (m *Model) View() string {
	id := m.state.SelectedSubscription()
	if id == "" {
		return styles.CenterBoth(
			styles.HelpStyle.Render("No subscription selected.\nPick one on the overview with enter."),
			m.width, m.height,
		)
	}

	detail := m.state.Detail()
	if detail == nil {
		if m.state.IsLoading(app.LoadDetail) {
			m.spinner.SetLabel("Loading " + m.state.SubscriptionName(id) + "...")
			return components.RenderSpinnerCentered(&m.spinner, m.width, m.height)
		}
		return styles.CenterBoth(styles.HelpStyle.Render("No data for "+m.state.SubscriptionName(id)), m.width, m.height)
	}

	sections := []string{
		m.renderTitle(id, detail),
		m.renderTotals(detail),
		m.renderChart(detail),
		m.renderGroups(detail),
	}
	if rg := m.state.ResourceGroup(); rg != "" {
		sections = append(sections, m.renderProviders(rg, detail.Currency))
	}

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))
	return styles.DocStyle.Render(m.viewport.View())
}

func (m *Model) cardWidth() int {
	return max(m.viewport.Width-2, 40)
}

func (m *Model) renderTitle(id string, detail *models.SubscriptionCostResult) string {
	title := styles.TitleStyle.Render(m.state.SubscriptionName(id))

	var used []string
	for _, f := range m.state.Filters() {
		used = append(used, filters.Label(f))
	}
	meta := id
	if detail.FromDateUsed != "" || detail.ToDateUsed != "" {
		meta += fmt.Sprintf(" · %s → %s", detail.FromDateUsed, detail.ToDateUsed)
	}
	subtitle := styles.HelpStyle.Render(meta + " · " + strings.Join(used, ", "))

	lines := []string{title, subtitle}
	if m.state.IsLoading(app.LoadDetail) {
		lines = append(lines, m.spinner.View()+styles.MutedTextStyle.Render(" refreshing..."))
	}
	if detail.Error != "" {
		lines = append(lines, styles.WarningTextStyle.Render("⚠ "+detail.Error))
	}
	return lipgloss.JoinVertical(lipgloss.Left, append(lines, "")...)
}

func (m *Model) renderTotals(detail *models.SubscriptionCostResult) string {
	label := lipgloss.NewStyle().Foreground(styles.TextSecondary).Width(24)
	rows := []string{
		styles.CardTitleStyle.Render("◈ Totals"),
		label.Render("Actual ("+orDefault(detail.TimeframeUsed, "period")+")") +
			styles.ActualStyle.Bold(true).Render(components.Money(detail.TotalCost, detail.Currency)),
	}
	if p := detail.ProjectedCostCurrentMonth; p != nil {
		rows = append(rows, label.Render("Forecast this month")+styles.ForecastStyle.Render(components.Money(*p, detail.Currency)))
	}
	rows = append(rows, label.Render("Resource groups")+fmt.Sprintf("%d", detail.ResourceGroupCount()))
	if detail.GranularityUsed != "" {
		rows = append(rows, label.Render("Granularity")+detail.GranularityUsed)
	}
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderChart(detail *models.SubscriptionCostResult) string {
	if len(detail.YearlyMonthlyBreakdown) == 0 {
		return ""
	}
	summary := costs.Rollup([]*models.SubscriptionCostResult{detail}, models.PeriodYTD, time.Now())
	chart := components.RenderCostChart(summary.Points, max(m.cardWidth()-14, 20), 6, "")
	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, styles.CardTitleStyle.Render("◈ This year"), chart),
	)
}

func (m *Model) renderGroups(detail *models.SubscriptionCostResult) string {
	groups := detail.TopResourceGroups(topGroups)
	rows := []string{styles.CardTitleStyle.Render(fmt.Sprintf("◈ Top resource groups (%d of %d)", len(groups), detail.ResourceGroupCount()))}
	if len(groups) == 0 {
		rows = append(rows, styles.HelpStyle.Render("  No resource-group costs for these filters"))
		return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	labelWidth := min(max(m.cardWidth()/3, 16), 40)
	selected := m.state.ResourceGroup()
	items := make([]components.BarItem, 0, len(groups))
	for i, g := range groups {
		marker := "  "
		switch {
		case g.Name == selected:
			marker = "▾ "
		case i == m.cursor:
			marker = "▸ "
		}
		items = append(items, components.BarItem{
			Label: marker + ansi.Truncate(g.Name, labelWidth, "…"),
			Value: g.Cost,
		})
	}

	chart := components.RenderBarChart(items, m.cardWidth()-4, components.MoneyFunc(detail.Currency))
	lines := strings.Split(chart, "\n")
	if m.cursor < len(lines) {
		lines[m.cursor] = styles.SelectedListItemStyle.Render(lines[m.cursor])
	}
	rows = append(rows, lines...)
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderProviders(rg, currency string) string {
	rows := []string{styles.CardTitleStyle.Render("◈ Providers in " + rg)}

	providers := m.state.Providers()
	details := m.state.ResourceGroupDetails()
	switch {
	case len(providers) == 0 && m.state.IsLoading(app.LoadResourceGroup):
		rows = append(rows, m.spinner.View()+styles.MutedTextStyle.Render(" loading resource group..."))
	case len(providers) == 0:
		rows = append(rows, styles.HelpStyle.Render("  No provider breakdown available"))
	default:
		var total float64
		for _, p := range providers {
			total += p.TotalCost
		}
		for _, p := range providers {
			label := fmt.Sprintf("%-28s %14s %4d items", ansi.Truncate(p.Provider, 28, "…"), components.Money(p.TotalCost, currency), p.Count())
			rows = append(rows, components.ShareBar(p.TotalCost, total, label, m.cardWidth()-4))
		}
	}
	if details != nil {
		rows = append(rows, "", styles.MutedTextStyle.Render(fmt.Sprintf(
			"Resource group total %s · %d entries",
			components.Money(details.TotalCost, orDefault(details.Currency, currency)),
			len(details.DetailedEntries),
		)))
	}
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
