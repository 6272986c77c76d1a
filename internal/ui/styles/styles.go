// Package styles defines the visual styling for the application.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/cost-dashboard-tui/internal/services/overview"
)

// Palette.
var (
	Primary   = lipgloss.Color("39")
	Secondary = lipgloss.Color("63")
	Subtle    = lipgloss.Color("240")

	// Actual and Forecast color the two cost series in every chart.
	Actual   = lipgloss.Color("39")
	Forecast = lipgloss.Color("214")

	Success  = lipgloss.Color("42")
	Error    = lipgloss.Color("196")
	Warning  = lipgloss.Color("220")
	Critical = lipgloss.Color("129")
	Info     = lipgloss.Color("39")

	BgDark   = lipgloss.Color("235")
	BgLight  = lipgloss.Color("237")
	BgAccent = lipgloss.Color("236")

	TextPrimary   = lipgloss.Color("252")
	TextSecondary = lipgloss.Color("245")
	TextMuted     = lipgloss.Color("240")
)

// Layout.
var (
	DocStyle = lipgloss.NewStyle().Margin(1, 2).Padding(0, 1)

	TitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(Primary).MarginBottom(1)
	SubTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(Secondary).MarginBottom(1)
	CardTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(Primary).MarginBottom(1)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Subtle).
			Padding(1, 2).
			MarginBottom(1)

	// FocusedBorderStyle and BlurredBorderStyle frame the comparison slots.
	FocusedBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(Primary).
				Padding(0, 1)
	BlurredBorderStyle = FocusedBorderStyle.BorderForeground(Subtle)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(Primary).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(Subtle)

	SelectedListItemStyle = lipgloss.NewStyle().Foreground(Primary).Bold(true)

	HelpStyle      = lipgloss.NewStyle().Foreground(TextMuted)
	HelpPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(Primary).
			Padding(1, 3).
			Background(BgDark)
)

// Notifications and the error banner.
var (
	ToastStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1).
			MarginBottom(1)

	BannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("231")).
			Background(Error).
			Padding(0, 1)
)

// Filter bar chips. Default filters are muted since they cannot be removed
// for good.
var (
	ChipStyle = lipgloss.NewStyle().
			Foreground(TextPrimary).
			Background(BgLight).
			Padding(0, 1).
			MarginRight(1)
	DefaultChipStyle  = ChipStyle.Foreground(TextMuted)
	SelectedChipStyle = ChipStyle.Foreground(lipgloss.Color("229")).Background(Primary).Bold(true)
)

// Text.
var (
	ErrorTextStyle   = lipgloss.NewStyle().Foreground(Error)
	SuccessTextStyle = lipgloss.NewStyle().Foreground(Success)
	WarningTextStyle = lipgloss.NewStyle().Foreground(Warning)
	InfoTextStyle    = lipgloss.NewStyle().Foreground(Info)
	MutedTextStyle   = lipgloss.NewStyle().Foreground(TextMuted)

	ActualStyle   = lipgloss.NewStyle().Foreground(Actual)
	ForecastStyle = lipgloss.NewStyle().Foreground(Forecast).Italic(true)
)

// BudgetNoneStyle renders budget text when no budget is set.
var BudgetNoneStyle = lipgloss.NewStyle().Foreground(Subtle)

var budgetStyles = map[overview.BudgetStatus]lipgloss.Style{
	overview.BudgetUnder:    lipgloss.NewStyle().Foreground(Success),
	overview.BudgetNear:     lipgloss.NewStyle().Foreground(Warning).Bold(true),
	overview.BudgetOver:     lipgloss.NewStyle().Foreground(Error).Bold(true),
	overview.BudgetCritical: lipgloss.NewStyle().Foreground(Critical).Bold(true),
}

// GetBudgetStyle returns the style of a budget band.
func GetBudgetStyle(status overview.BudgetStatus) lipgloss.Style {
	if s, ok := budgetStyles[status]; ok {
		return s
	}
	return BudgetNoneStyle
}

// CenterHorizontal centers content horizontally within width.
func CenterHorizontal(content string, width int) string {
	return lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Render(content)
}

// CenterBoth centers content in a width by height area.
func CenterBoth(content string, width, height int) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center).
		AlignVertical(lipgloss.Center).
		Render(content)
}
