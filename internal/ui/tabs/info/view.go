package info

import (
	"fmt"
	"net/url"
	"runtime"
	"slices"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/cost-dashboard-tui/internal/models"
	"github.com/j-veylop/cost-dashboard-tui/internal/ui/components"
	"github.com/j-veylop/cost-dashboard-tui/internal/ui/styles"
	"github.com/j-veylop/cost-dashboard-tui/internal/version"
)

// historyRows is the number of refresh runs listed.
const historyRows = 12

// View renders the info tab.
func (m *Model) View() string {
	sections := []string{
		m.renderTitle(),
		m.renderConfigCard(),
		m.renderUsageCard(),
		m.renderHistoryCard(),
		m.renderAboutCard(),
	}

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))
	return styles.DocStyle.Render(m.viewport.View())
}

func (m *Model) cardWidth() int {
	return min(max(m.viewport.Width-2, 50), 110)
}

// renderTitle renders the info tab title.
func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Info")
	subtitle := styles.HelpStyle.Render("Configuration, API usage and refresh history")

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

// renderConfigCard renders the configuration card.
func (m *Model) renderConfigCard() string {
	rows := []string{styles.CardTitleStyle.Render("Configuration")}

	if m.config == nil {
		rows = append(rows, styles.HelpStyle.Render("Configuration not loaded"))
		return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	c := m.config
	settings := m.state.Settings()
	budget := "not set"
	if settings.Budget > 0 {
		budget = humanize.FormatFloat("#,###.##", settings.Budget)
	}
	rows = append(rows,
		m.renderConfigRow("API", c.APIURL),
		m.renderConfigRow("Database", c.DatabasePath),
		m.renderConfigRow("Settings", c.SettingsPath),
		m.renderConfigRow("Log File", c.LogFile),
		m.renderConfigRow("Cache", fmt.Sprintf("%s TTL, one entry per %s", c.CacheTTL, c.CacheEviction)),
		m.renderConfigRow("Fetching", fmt.Sprintf("%d attempts, %s backoff, %s between batches",
			c.FetchAttempts, c.FetchBaseDelay, c.FetchPacingDelay)),
		m.renderConfigRow("Settle Delay", c.SettleDelay.String()),
		m.renderConfigRow("Group", settings.SubscriptionGroup),
		m.renderConfigRow("Period", settings.AggregatePeriod),
		m.renderConfigRow("Budget", budget),
		m.renderConfigRow("Reports", settings.ReportDir),
	)
	if c.AMQPURL != "" {
		rows = append(rows, m.renderConfigRow("Events", c.AMQPExchange+" on "+redact(c.AMQPURL)))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// redact hides the password of a broker URL.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Redacted()
}

// renderConfigRow renders a configuration key-value row.
func (m *Model) renderConfigRow(label, value string) string {
	labelStyle := lipgloss.NewStyle().
		Width(14).
		Foreground(styles.TextMuted)

	valueStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary)

	return labelStyle.Render(label+":") + " " + valueStyle.Render(ansi.Truncate(value, m.cardWidth()-22, "…"))
}

func (m *Model) renderUsageCard() string {
	rows := []string{styles.CardTitleStyle.Render("Cost API usage (24h)")}

	stats := m.state.APIStats()
	if stats == nil || stats.TotalCalls == 0 {
		rows = append(rows, styles.HelpStyle.Render("No calls recorded yet"))
		return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	rows = append(rows,
		m.renderConfigRow("Calls", humanize.Comma(int64(stats.TotalCalls))),
		m.renderConfigRow("Avg Latency", fmt.Sprintf("%.0f ms", stats.AvgDurationMs)),
		m.renderConfigRow("Errors", fmt.Sprintf("%d", stats.ErrorCount)),
		m.renderConfigRow("Rate Limited", fmt.Sprintf("%d", stats.RateLimited)),
		m.renderConfigRow("Subscriptions", fmt.Sprintf("%d", stats.UniqueSubscriptions)),
		"",
		components.ShareBar(float64(stats.ErrorCount), float64(stats.TotalCalls), "error rate", m.cardWidth()-6),
	)
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderHistoryCard() string {
	rows := []string{styles.CardTitleStyle.Render("Refresh history")}

	runs := m.state.History()
	if len(runs) == 0 {
		rows = append(rows, styles.HelpStyle.Render("No refreshes recorded yet"))
		return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	durations := make([]float64, 0, len(runs))
	for _, r := range slices.Backward(runs) {
		durations = append(durations, r.Duration().Seconds())
	}
	rows = append(rows,
		styles.MutedTextStyle.Render("duration ")+components.RenderSparkline(durations, min(len(durations), m.cardWidth()-16)),
		"",
		styles.TableHeaderStyle.Render(fmt.Sprintf("%-14s %-8s %8s %8s %8s %8s  %s", "Started", "Kind", "Subs", "Fetched", "Cached", "Failed", "Took")),
	)
	for _, r := range runs[:min(len(runs), historyRows)] {
		rows = append(rows, renderRun(r))
	}
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func renderRun(r models.RefreshRun) string {
	kind := "filtered"
	if r.Default {
		kind = "default"
	}
	took := "running"
	if !r.FinishedAt.IsZero() {
		took = r.Duration().Round(100 * time.Millisecond).String()
	}
	line := fmt.Sprintf("%-14s %-8s %8d %8d %8d %8d  %s",
		humanize.Time(r.StartedAt), kind, r.Subscriptions, r.Fetched, r.FromCache, r.Failed, took)

	switch {
	case r.Error != "":
		return styles.ErrorTextStyle.Render(line + "  " + r.Error)
	case r.Failed > 0:
		return styles.WarningTextStyle.Render(line)
	}
	return line
}

// renderAboutCard renders the version information card.
func (m *Model) renderAboutCard() string {
	rows := []string{
		styles.CardTitleStyle.Render("About"),
		m.renderConfigRow("Version", version.GetVersion()),
		m.renderConfigRow("Build Date", version.GetDate()),
		m.renderConfigRow("Git Commit", version.GetCommit()),
		m.renderConfigRow("Go Version", runtime.Version()),
		m.renderConfigRow("Platform", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)),
		"",
		fmt.Sprintf("Subscriptions: %s", styles.InfoTextStyle.Render(fmt.Sprintf("%d", len(m.state.Subscriptions())))),
	}
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
