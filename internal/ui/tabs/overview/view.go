package overview

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/cost-dashboard-tui/internal/app"
	"github.com/j-veylop/cost-dashboard-tui/internal/models"
	costs "github.com/j-veylop/cost-dashboard-tui/internal/services/overview"
	"github.com/j-veylop/cost-dashboard-tui/internal/ui/components"
	"github.com/j-veylop/cost-dashboard-tui/internal/ui/styles"
)

// View renders the overview tab.
func (m *Model) View() string {
	if m.state.IsLoading(app.LoadInitial) && len(m.state.Subscriptions()) == 0 {
		return components.RenderSpinnerCentered(&m.spinner, m.width, m.height)
	}

	now := time.Now()
	summary := m.state.Summary(now)
	snap := m.state.Snapshot()
	currency := currencyOf(snap)

	sections := []string{
		m.renderTitle(summary, snap),
		m.renderSummary(summary, currency),
		m.renderChart(summary),
		m.renderSubscriptions(snap, currency),
	}

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))

	return styles.DocStyle.Render(m.viewport.View())
}

func (m *Model) renderTitle(summary costs.Summary, snap costs.Snapshot) string {
	title := styles.TitleStyle.Render("Cost Overview · " + summary.Period.Title())

	status := "updated " + components.Ago(snap.UpdatedAt)
	if snap.State != costs.StateIdle {
		ids := m.state.FilteredIDs()
		m.spinner.SetLabel(snap.State.String())
		m.spinner.SetProgress(settled(snap.Filtered, ids), len(ids))
		status = m.spinner.ViewWithLabel()
	}
	subtitle := styles.HelpStyle.Render(fmt.Sprintf("group %s · %s", m.state.Group(), status))

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

// settled counts the ids whose slot is no longer loading.
func settled(slots costs.Slots, ids []string) int {
	n := 0
	for _, id := range ids {
		if s, ok := slots[id]; ok && !s.Loading {
			n++
		}
	}
	return n
}

func (m *Model) cardWidth() int {
	return max(m.viewport.Width-2, 40)
}

func (m *Model) renderSummary(summary costs.Summary, currency string) string {
	format := components.MoneyFunc(currency)
	budget := m.state.Settings().Budget

	label := lipgloss.NewStyle().Foreground(styles.TextSecondary).Width(22)
	rows := []string{
		styles.CardTitleStyle.Render("◈ Totals"),
		label.Render("Actual") + styles.ActualStyle.Bold(true).Render(format(summary.ActualCost)),
		label.Render("Projected") + styles.ForecastStyle.Render(format(summary.ProjectedCost)),
		label.Render("Subscriptions loaded") + fmt.Sprintf("%d / %d", summary.LoadedSubs, len(m.state.FilteredIDs())),
		label.Render("Resource groups") + fmt.Sprintf("%d (avg %.1f)", summary.TotalResourceGroups, summary.AvgResourceGroups),
		"",
	}

	if m.editing {
		rows = append(rows, m.budgetInput.View())
		if m.budgetInput.Err != nil {
			rows = append(rows, styles.ErrorTextStyle.Render(m.budgetInput.Err.Error()))
		}
		rows = append(rows, styles.HelpStyle.Render("enter save · empty clears · esc cancel"))
	} else {
		rows = append(rows, m.budgetBar.View(summary.ProjectedCost, budget, m.cardWidth()-4, format))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderChart(summary costs.Summary) string {
	width := max(m.cardWidth()-14, 20)
	chart := components.RenderCostChart(summary.Points, width, 8, "")
	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, styles.CardTitleStyle.Render("◈ Spend over "+summary.Period.String()), chart),
	)
}

func (m *Model) renderSubscriptions(snap costs.Snapshot, currency string) string {
	subs := m.state.FilteredSubscriptions()
	width := m.cardWidth() - 4

	rows := []string{styles.CardTitleStyle.Render("◈ Subscriptions")}
	if len(subs) == 0 {
		rows = append(rows, styles.HelpStyle.Render("  No subscriptions in this group"))
		return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	nameWidth := max(width-64, 16)
	header := fmt.Sprintf("  %-*s %16s %16s  %s", nameWidth, "Name", "Filtered", "MTD", "RGs")
	rows = append(rows, styles.TableHeaderStyle.Render(header))

	var maxCost float64
	for _, s := range subs {
		if d := snap.Filtered[s.SubscriptionID].Data; d != nil {
			maxCost = max(maxCost, d.TotalCost)
		}
	}

	for i, s := range subs {
		rows = append(rows, m.renderRow(s, snap, i == m.selected, nameWidth, width, currency, maxCost))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderRow(
	sub models.Subscription,
	snap costs.Snapshot,
	selected bool,
	nameWidth, width int,
	currency string,
	maxCost float64,
) string {
	prefix := "  "
	nameStyle := lipgloss.NewStyle()
	if selected {
		prefix = styles.SelectedListItemStyle.Render("▸ ")
		nameStyle = styles.SelectedListItemStyle
	}
	name := nameStyle.Render(fmt.Sprintf("%-*s", nameWidth, ansi.Truncate(sub.Name(), nameWidth, "…")))

	filtered := snap.Filtered[sub.SubscriptionID]
	unfiltered := snap.Unfiltered[sub.SubscriptionID]

	switch {
	case filtered.Loading && filtered.Data == nil:
		return prefix + name + " " + components.LoadingBar(width-nameWidth-3, m.frame)
	case filtered.Failed() && filtered.Data == nil:
		return prefix + name + " " + styles.ErrorTextStyle.Render("✗ "+ansi.Truncate(filtered.Err, width-nameWidth-6, "…"))
	case filtered.Data == nil && unfiltered.Data == nil:
		return prefix + name + " " + styles.MutedTextStyle.Render("–")
	}

	cost := "–"
	rgs := "–"
	if d := filtered.Data; d != nil {
		cost = components.Money(d.TotalCost, currency)
		rgs = fmt.Sprintf("%d", d.ResourceGroupCount())
	}
	mtd := "–"
	if d := unfiltered.Data; d != nil {
		mtd = components.Money(d.TotalCost, currency)
	}

	line := fmt.Sprintf("%s%s %16s %s  %3s", prefix, name, cost, styles.MutedTextStyle.Render(fmt.Sprintf("%16s", mtd)), rgs)
	if filtered.Fallback {
		line += styles.WarningTextStyle.Render(" (cached)")
	}
	if filtered.Loading {
		line += " " + m.spinner.View()
	}
	if d := filtered.Data; d != nil && maxCost > 0 {
		line += " " + components.RenderGradientBar(d.TotalCost/maxCost*100, 10)
	}
	return line
}

// currencyOf returns the currency of the first loaded result.
func currencyOf(snap costs.Snapshot) string {
	for _, slots := range []costs.Slots{snap.Unfiltered, snap.Filtered} {
		for _, slot := range slots {
			if slot.Data != nil && slot.Data.Currency != "" {
				return slot.Data.Currency
			}
		}
	}
	return ""
}
