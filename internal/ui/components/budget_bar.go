package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/cost-dashboard-tui/internal/logger"
	"github.com/j-veylop/cost-dashboard-tui/internal/services/overview"
	"github.com/j-veylop/cost-dashboard-tui/internal/ui/styles"
)

// AnimationTickMsg advances bar animations.
type AnimationTickMsg time.Time

func animationTick() tea.Cmd {
	return tea.Tick(time.Millisecond*50, func(t time.Time) tea.Msg {
		return AnimationTickMsg(t)
	})
}

// BudgetBar renders projected spend as a share of the budget. The bar eases
// towards the target percentage when it changes.
type BudgetBar struct {
	progress       progress.Model
	targetPercent  float64
	currentPercent float64
	isAnimating    bool
}

// NewBudgetBar creates a budget bar with a green to red gradient.
func NewBudgetBar() BudgetBar {
	return BudgetBar{
		progress: progress.New(
			progress.WithScaledGradient("#51cf66", "#ff6b6b"),
			progress.WithWidth(30),
			progress.WithoutPercentage(),
		),
	}
}

// Update handles animation ticks.
func (b BudgetBar) Update(msg tea.Msg) (BudgetBar, tea.Cmd) {
	if _, ok := msg.(AnimationTickMsg); !ok || !b.isAnimating {
		return b, nil
	}

	diff := b.targetPercent - b.currentPercent
	step := diff / 10
	switch {
	case diff > 0:
		b.currentPercent += max(step, 0.5)
		b.currentPercent = min(b.currentPercent, b.targetPercent)
	case diff < 0:
		b.currentPercent += min(step, -0.5)
		b.currentPercent = max(b.currentPercent, b.targetPercent)
	}
	if b.currentPercent == b.targetPercent {
		b.isAnimating = false
		return b, nil
	}
	return b, animationTick()
}

// SetPercent sets the target percentage and starts the animation.
func (b *BudgetBar) SetPercent(percent float64) tea.Cmd {
	if percent == b.targetPercent {
		return nil
	}
	b.targetPercent = percent
	if b.isAnimating {
		return nil
	}
	b.isAnimating = true
	return animationTick()
}

// Percent returns the percentage currently drawn.
func (b BudgetBar) Percent() float64 {
	return b.currentPercent
}

// View renders the bar with projected and budget amounts. Spend above the
// budget fills the bar completely.
func (b BudgetBar) View(projected, budget float64, width int, format func(float64) string) string {
	status := overview.GradeBudget(projected, budget)
	if status == overview.BudgetNone {
		return styles.BudgetNoneStyle.Render("No budget set (press b to set one)")
	}

	b.progress.Width = max(width-34, 10)
	bar := b.progress.ViewAs(min(b.currentPercent, 100) / 100)

	percentStr := styles.GetBudgetStyle(status).
		Width(6).
		Align(lipgloss.Right).
		Render(fmt.Sprintf("%.0f%%", b.currentPercent))

	amounts := styles.MutedTextStyle.Render(fmt.Sprintf(" %s / %s", format(projected), format(budget)))

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Center, bar, " ", percentStr, amounts),
		styles.GetBudgetStyle(status).Render(status.String()),
	)
}

// BudgetPercent returns projected spend as a percentage of budget.
func BudgetPercent(projected, budget float64) float64 {
	if budget <= 0 {
		return 0
	}
	return projected / budget * 100
}

// RenderGradientBar renders just the bar part with gradient colors.
func RenderGradientBar(percent float64, width int) string {
	if width < 1 {
		return ""
	}

	filled := min(max(int(float64(width)*percent/100), 0), width)

	var sb strings.Builder
	for i := range width {
		if i < filled {
			t := float64(i) / float64(max(1, width-1))
			color := interpolateColor("#51cf66", "#ff6b6b", t)
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("█"))
		} else {
			sb.WriteString(lipgloss.NewStyle().Foreground(styles.Subtle).Render("░"))
		}
	}
	return sb.String()
}

// ShareBar renders value's share of total as a labelled gradient bar.
func ShareBar(value, total float64, label string, width int) string {
	percent := 0.0
	if total > 0 {
		percent = value / total * 100
	}

	labelWidth := len(label) + 1
	percentWidth := 6
	barWidth := max(width-labelWidth-percentWidth-4, 5)

	labelStr := lipgloss.NewStyle().Foreground(styles.TextSecondary).Render(label)
	percentStr := lipgloss.NewStyle().
		Foreground(styles.TextPrimary).
		Width(percentWidth).
		Align(lipgloss.Right).
		Render(fmt.Sprintf("%.0f%%", percent))

	return fmt.Sprintf("%s [%s] %s", labelStr, RenderGradientBar(percent, barWidth), percentStr)
}

func interpolateColor(fromHex, toHex string, t float64) string {
	from := hexToRGB(fromHex)
	to := hexToRGB(toHex)

	r := int(float64(from[0]) + t*(float64(to[0])-float64(from[0])))
	g := int(float64(from[1]) + t*(float64(to[1])-float64(from[1])))
	b := int(float64(from[2]) + t*(float64(to[2])-float64(from[2])))

	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func hexToRGB(hex string) [3]int {
	hex = strings.TrimPrefix(hex, "#")
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		logger.Error("failed to parse hex color", "hex", hex, "error", err)
		return [3]int{0, 0, 0}
	}
	return [3]int{r, g, b}
}

// LoadingBar renders a shimmering placeholder row for a subscription whose
// costs are still loading. frame advances the shimmer.
func LoadingBar(width, frame int) string {
	barWidth := max(width-12, 10)

	const cycle = 120
	t := float64(frame%cycle) / float64(cycle)
	p := t * 2
	if t >= 0.5 {
		p = (1 - t) * 2
	}
	eased := p * p * (3 - 2*p)
	shimmerPos := int(eased * float64(barWidth))

	var sb strings.Builder
	for i := range barWidth {
		dist := shimmerPos - i
		if dist < 0 {
			dist = -dist
		}
		switch {
		case dist < 3:
			sb.WriteString(lipgloss.NewStyle().Foreground(styles.Primary).Render("▓"))
		case dist < 5:
			sb.WriteString(lipgloss.NewStyle().Foreground(styles.TextSecondary).Render("▒"))
		default:
			sb.WriteString(lipgloss.NewStyle().Foreground(styles.BgLight).Render("░"))
		}
	}

	dots := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	dot := lipgloss.NewStyle().Foreground(styles.Primary).Render(dots[(frame/2)%len(dots)])

	return sb.String() + " " + dot
}
