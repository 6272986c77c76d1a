package comparison

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/cost-dashboard-tui/internal/app"
	costs "github.com/j-veylop/cost-dashboard-tui/internal/services/comparison"
	"github.com/j-veylop/cost-dashboard-tui/internal/ui/components"
	"github.com/j-veylop/cost-dashboard-tui/internal/ui/styles"
)

// topGroups is the number of resource groups listed per column.
const topGroups = 3

// View renders the comparison tab.
func (m *Model) View() string {
	m.updateTableData()

	sections := []string{m.renderTitle(), m.renderColumns()}
	if m.confirmClear {
		sections = append(sections, m.renderClearConfirm())
	}
	sections = append(sections, m.renderPicker())

	return styles.DocStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m *Model) contentWidth() int {
	return max(m.width-6, 60)
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Subscription Comparison")

	status := "pick up to three subscriptions"
	if m.state.IsLoading(app.LoadComparison) {
		status = m.spinner.View() + " comparing..."
	} else if res := m.state.Comparison(); res != nil && len(res.Key) > 0 {
		status = ansi.Truncate("filters "+string(res.Key), m.contentWidth(), "…")
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, styles.HelpStyle.Render(status), "")
}

func (m *Model) renderColumns() string {
	ids := m.state.ComparisonIDs()
	result := m.state.Comparison()

	// Borders and padding take 4 columns per card plus a 1-column gap.
	colWidth := max((m.contentWidth()-2*(costs.Slots-1))/costs.Slots, 18)
	cards := make([]string, 0, costs.Slots)
	for i := range costs.Slots {
		var col costs.Column
		if result != nil && result.Columns[i].SubscriptionID == ids[i] {
			col = result.Columns[i]
		}
		card := m.renderColumn(i, ids[i], col, result, colWidth-4)

		style := styles.BlurredBorderStyle
		if i == m.slot {
			style = styles.FocusedBorderStyle
		}
		cards = append(cards, style.Width(colWidth-2).Render(card))
		if i < costs.Slots-1 {
			cards = append(cards, " ")
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func (m *Model) renderColumn(i int, id string, col costs.Column, result *costs.Result, width int) string {
	rows := []string{styles.CardTitleStyle.Render(costs.Label(i))}

	if id == "" {
		rows = append(rows, styles.HelpStyle.Render("empty"), styles.HelpStyle.Render("enter on a row to fill"))
		return lipgloss.JoinVertical(lipgloss.Left, rows...)
	}

	rows = append(rows, lipgloss.NewStyle().Bold(true).Render(ansi.Truncate(m.state.SubscriptionName(id), width, "…")))
	switch {
	case col.Err != "":
		rows = append(rows, styles.ErrorTextStyle.Render(ansi.Truncate("✗ "+col.Err, width, "…")))
		return lipgloss.JoinVertical(lipgloss.Left, rows...)
	case col.Data == nil:
		rows = append(rows, m.spinner.View()+styles.MutedTextStyle.Render(" loading"))
		return lipgloss.JoinVertical(lipgloss.Left, rows...)
	}

	d := col.Data
	if col.Fallback {
		rows = append(rows, styles.WarningTextStyle.Render("cached, other filters"))
	}
	rows = append(rows,
		"",
		"Actual    "+styles.ActualStyle.Render(components.Money(d.TotalCost, d.Currency)),
	)
	forecast := "–"
	if d.ProjectedCostCurrentMonth != nil {
		forecast = components.Money(*d.ProjectedCostCurrentMonth, d.Currency)
	}
	rows = append(rows,
		"Forecast  "+styles.ForecastStyle.Render(forecast),
		fmt.Sprintf("RGs       %d", d.ResourceGroupCount()),
		"",
	)
	for _, g := range d.TopResourceGroups(topGroups) {
		rows = append(rows, styles.MutedTextStyle.Render(ansi.Truncate(g.Name, width, "…")))
	}

	if result != nil {
		if diffs := result.Diffs(i); len(diffs) > 0 {
			rows = append(rows, "", styles.SubTitleStyle.Render("vs "+costs.Label(i-1)))
			for _, diff := range diffs {
				rows = append(rows, fmt.Sprintf("%-16s %s", diff.Label, diffStyle(diff).Render(diff.String())))
			}
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// diffStyle colors increases red and decreases green.
func diffStyle(d costs.Diff) lipgloss.Style {
	if d.Base == nil || d.Current == nil || *d.Base == 0 {
		return styles.MutedTextStyle
	}
	switch {
	case *d.Current > *d.Base:
		return styles.ErrorTextStyle
	case *d.Current < *d.Base:
		return styles.SuccessTextStyle
	}
	return lipgloss.NewStyle()
}

func (m *Model) renderPicker() string {
	rows := []string{styles.CardTitleStyle.Render(fmt.Sprintf("◈ Subscriptions · filling %s", costs.Label(m.slot)))}
	if m.searching || m.search.Value() != "" {
		rows = append(rows, m.search.View(), "")
	}
	if len(m.table.Rows()) == 0 {
		rows = append(rows, styles.HelpStyle.Render("  No subscriptions match"))
	} else {
		rows = append(rows, m.table.View())
	}
	return styles.CardStyle.Width(m.contentWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderClearConfirm() string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		styles.WarningTextStyle.Bold(true).Render("Clear all comparison slots?"),
		"",
		styles.HelpStyle.Render("(y)es · (n)o"),
	)
	return styles.CenterHorizontal(styles.HelpPanelStyle.Render(content), m.contentWidth())
}
