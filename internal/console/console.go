// Package console renders non-interactive command output.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"github.com/j-veylop/cost-dashboard-tui/internal/models"
	"github.com/j-veylop/cost-dashboard-tui/internal/services/overview"
)

// Predefined colors for consistent output.
var (
	BoldRed     = color.New(color.FgRed, color.Bold).SprintFunc()
	BoldGreen   = color.New(color.FgGreen, color.Bold).SprintFunc()
	BoldYellow  = color.New(color.FgYellow, color.Bold).SprintFunc()
	BoldCyan    = color.New(color.FgCyan, color.Bold).SprintFunc()
	BoldMagenta = color.New(color.FgMagenta, color.Bold).SprintFunc()
)

// Console writes command output to a writer.
type Console struct {
	out io.Writer
}

// New creates a console writing to stdout.
func New() *Console {
	return &Console{out: os.Stdout}
}

// NewWithWriter creates a console writing to w with colors disabled.
func NewWithWriter(w io.Writer) *Console {
	color.NoColor = true
	pterm.DisableColor()
	return &Console{out: w}
}

// Println writes a line.
func (c *Console) Println(a ...any) {
	_, _ = fmt.Fprintln(c.out, a...)
}

// LogInfo prints an info message.
func (c *Console) LogInfo(format string, a ...any) {
	pterm.Info.WithWriter(c.out).Printfln(format, a...)
}

// LogWarning prints a warning message.
func (c *Console) LogWarning(format string, a ...any) {
	pterm.Warning.WithWriter(c.out).Printfln(format, a...)
}

// LogError prints an error message.
func (c *Console) LogError(format string, a ...any) {
	pterm.Error.WithWriter(c.out).Printfln(format, a...)
}

// LogSuccess prints a success message.
func (c *Console) LogSuccess(format string, a ...any) {
	pterm.Success.WithWriter(c.out).Printfln(format, a...)
}

// Status is a running spinner.
type Status struct {
	spinner *pterm.SpinnerPrinter
}

// Status starts a spinner with message.
func (c *Console) Status(message string) *Status {
	spinner, _ := pterm.DefaultSpinner.WithWriter(c.out).Start(message)
	return &Status{spinner: spinner}
}

// Update replaces the spinner text.
func (s *Status) Update(message string) {
	if s.spinner != nil {
		s.spinner.UpdateText(message)
	}
}

// Stop stops the spinner.
func (s *Status) Stop() {
	if s.spinner != nil {
		_ = s.spinner.Stop()
	}
}

// Money formats an amount with thousands separators and two decimals.
func Money(v float64, currency string) string {
	s := humanize.FormatFloat("#,###.##", v)
	if currency == "" {
		return s
	}
	return s + " " + currency
}

// BudgetLabel colors a budget status.
func BudgetLabel(status overview.BudgetStatus) string {
	switch status {
	case overview.BudgetUnder:
		return BoldGreen(status.String())
	case overview.BudgetNear:
		return BoldYellow(status.String())
	case overview.BudgetOver:
		return BoldRed(status.String())
	case overview.BudgetCritical:
		return BoldMagenta(status.String())
	default:
		return status.String()
	}
}

// SubscriptionRow is one line of the summary table.
type SubscriptionRow struct {
	Name           string
	Error          string
	Cost           float64
	ResourceGroups int
}

// RenderSummary renders the per-subscription table and the period totals.
func (c *Console) RenderSummary(rows []SubscriptionRow, s overview.Summary, budget float64, currency string) {
	data := pterm.TableData{{"Subscription", "Cost", "Resource Groups", "Status"}}
	for _, r := range rows {
		status := BoldGreen("ok")
		cost := Money(r.Cost, currency)
		if r.Error != "" {
			status = BoldRed(r.Error)
			cost = "-"
		}
		data = append(data, []string{r.Name, cost, fmt.Sprint(r.ResourceGroups), status})
	}

	table, _ := pterm.DefaultTable.
		WithHasHeader().
		WithBoxed().
		WithHeaderStyle(pterm.NewStyle(pterm.FgLightCyan)).
		WithData(data).
		Srender()
	c.Println(table)

	totals := []string{
		fmt.Sprintf("%s actual:    %s", s.Period, Money(s.ActualCost, currency)),
		fmt.Sprintf("%s projected: %s", s.Period, Money(s.ProjectedCost, currency)),
		fmt.Sprintf("Subscriptions loaded: %d", s.LoadedSubs),
		fmt.Sprintf("Avg resource groups:  %.1f", s.AvgResourceGroups),
	}
	if budget > 0 {
		totals = append(totals, fmt.Sprintf("Budget %s: %s", Money(budget, currency), BudgetLabel(s.Budget(budget))))
	}
	box := pterm.DefaultBox.
		WithTitle(s.Period.Title()).
		WithBoxStyle(pterm.NewStyle(pterm.FgCyan)).
		Sprint(strings.Join(totals, "\n"))
	c.Println(box)
}

// RenderTrend renders one bar per point scaled to the largest value.
func (c *Console) RenderTrend(points []overview.Point) {
	maxCost := 0.0
	for _, p := range points {
		maxCost = max(maxCost, pointValue(p))
	}
	if maxCost == 0 {
		c.LogWarning("All costs are 0 for this period")
		return
	}

	data := pterm.TableData{{"Period", "Cost", ""}}
	for _, p := range points {
		v := pointValue(p)
		bar := strings.Repeat("█", int(v/maxCost*40))
		if p.Actual != nil {
			bar = pterm.FgBlue.Sprint(bar)
		} else {
			bar = pterm.FgYellow.Sprint(bar)
		}
		data = append(data, []string{p.Label, humanize.FormatFloat("#,###.##", v), bar})
	}
	table, _ := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	c.Println(table)
}

func pointValue(p overview.Point) float64 {
	if p.Actual != nil {
		return *p.Actual
	}
	if p.RawForecast != nil {
		return *p.RawForecast
	}
	return 0
}

// RenderCacheStats prints cache entry counts.
func (c *Console) RenderCacheStats(total, valid, expired int, newest string) {
	data := pterm.TableData{
		{"Entries", "Valid", "Expired", "Newest"},
		{fmt.Sprint(total), fmt.Sprint(valid), fmt.Sprint(expired), newest},
	}
	table, _ := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	c.Println(table)
}

// SubscriptionRows builds summary rows for subs from a snapshot.
func SubscriptionRows(subs []models.Subscription, slots overview.Slots) []SubscriptionRow {
	rows := make([]SubscriptionRow, 0, len(subs))
	for _, sub := range subs {
		row := SubscriptionRow{Name: sub.Name()}
		slot := slots[sub.SubscriptionID]
		switch {
		case slot.Err != "":
			row.Error = slot.Err
		case slot.Data != nil:
			row.Cost = slot.Data.TotalCost
			row.ResourceGroups = slot.Data.ResourceGroupCount()
		default:
			row.Error = "no data"
		}
		rows = append(rows, row)
	}
	return rows
}
