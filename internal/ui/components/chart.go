// Package components provides reusable UI components for the TUI.
package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/cost-dashboard-tui/internal/services/overview"
	"github.com/j-veylop/cost-dashboard-tui/internal/ui/styles"
)

// SparkChars are the block characters used for sparklines, low to high.
var SparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// RenderLineChart creates a single-series ASCII line chart.
func RenderLineChart(data []float64, width, height int, caption string) string {
	if len(data) == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	width = max(width, 20)
	height = max(height, 3)

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// ChartSeries splits points into an actual and a forecast series. Missing
// values become NaN so the chart leaves a gap.
func ChartSeries(points []overview.Point) (actual, forecast []float64) {
	actual = make([]float64, len(points))
	forecast = make([]float64, len(points))
	for i, p := range points {
		actual[i] = math.NaN()
		forecast[i] = math.NaN()
		if p.Actual != nil {
			actual[i] = *p.Actual
		}
		if p.Forecast != nil {
			forecast[i] = *p.Forecast
		}
	}
	return actual, forecast
}

// hasValue reports whether any value of data is a number.
func hasValue(data []float64) bool {
	for _, v := range data {
		if !math.IsNaN(v) {
			return true
		}
	}
	return false
}

// RenderCostChart draws actual spend and the stitched forecast of an
// aggregate series. The forecast line starts on the last actual point.
func RenderCostChart(points []overview.Point, width, height int, caption string) string {
	actual, forecast := ChartSeries(points)
	if !hasValue(actual) && !hasValue(forecast) {
		return styles.HelpStyle.Render("No data available")
	}

	width = max(width, 20)
	height = max(height, 3)

	series := [][]float64{actual}
	colors := []asciigraph.AnsiColor{asciigraph.DodgerBlue}
	if hasValue(forecast) {
		series = append(series, forecast)
		colors = append(colors, asciigraph.Orange)
	}

	graph := asciigraph.PlotMany(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(colors...),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		graph,
		RenderAxisLabels(points, width),
		RenderLegend([]LegendItem{
			{Label: "Actual", Color: styles.Actual},
			{Label: "Forecast", Color: styles.Forecast},
		}),
	)
}

// RenderAxisLabels prints the first, middle and last point labels spread
// over width.
func RenderAxisLabels(points []overview.Point, width int) string {
	if len(points) == 0 {
		return ""
	}
	first := points[0].Label
	last := points[len(points)-1].Label
	if len(points) == 1 {
		return styles.MutedTextStyle.Render(first)
	}
	middle := points[len(points)/2].Label

	gap := width - len(first) - len(middle) - len(last)
	if gap < 2 {
		return styles.MutedTextStyle.Render(first + " … " + last)
	}
	left := gap / 2
	line := first + strings.Repeat(" ", left) + middle + strings.Repeat(" ", gap-left) + last
	return styles.MutedTextStyle.Render(line)
}

// BarItem is one row of a bar chart.
type BarItem struct {
	Label string
	Value float64
}

// RenderBarChart creates a simple horizontal bar chart.
func RenderBarChart(items []BarItem, width int, format func(float64) string) string {
	if len(items) == 0 {
		return ""
	}
	if format == nil {
		format = func(v float64) string { return fmt.Sprintf("%.1f", v) }
	}

	maxVal := 0.0
	maxLabelLen := 0
	for _, item := range items {
		maxVal = max(maxVal, item.Value)
		maxLabelLen = max(maxLabelLen, lipgloss.Width(item.Label))
	}
	if maxVal == 0 {
		maxVal = 1
	}

	// Leave room for label and value
	barWidth := max(width-maxLabelLen-16, 10)

	barStyle := lipgloss.NewStyle().Foreground(styles.Primary)
	lines := make([]string, 0, len(items))
	for _, item := range items {
		paddedLabel := fmt.Sprintf("%-*s", maxLabelLen, item.Label)

		barLen := max(int((item.Value/maxVal)*float64(barWidth)), 0)
		bar := barStyle.Render(strings.Repeat("█", barLen))

		lines = append(lines, paddedLabel+" │"+bar+" "+format(item.Value))
	}

	return strings.Join(lines, "\n")
}

// RenderSparkline creates a compact inline sparkline chart.
func RenderSparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}

	maxVal := 0.0
	for _, v := range values {
		maxVal = max(maxVal, v)
	}
	if maxVal == 0 {
		maxVal = 1
	}

	// Sample values to fit width
	var result strings.Builder
	step := max(float64(len(values))/float64(width), 1)

	for i := 0; i < width && int(float64(i)*step) < len(values); i++ {
		val := values[int(float64(i)*step)]
		normalized := int((val / maxVal) * float64(len(SparkChars)-1))
		normalized = min(max(normalized, 0), len(SparkChars)-1)
		result.WriteRune(SparkChars[normalized])
	}

	return result.String()
}

// RenderLegend creates a chart legend.
func RenderLegend(items []LegendItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		colorBox := lipgloss.NewStyle().Foreground(item.Color).Render("■")
		parts = append(parts, fmt.Sprintf("%s %s", colorBox, item.Label))
	}
	return strings.Join(parts, "  ")
}

// LegendItem represents a single legend entry.
type LegendItem struct {
	Label string
	Color lipgloss.Color
}
