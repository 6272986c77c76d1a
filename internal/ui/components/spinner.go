package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/cost-dashboard-tui/internal/ui/styles"
)

// LoadingSpinner is a spinner with a label and an optional done/total
// counter for batch fetches.
type LoadingSpinner struct {
	spinner spinner.Model
	label   string
	done    int
	total   int
}

// NewSpinner creates a spinner showing label.
func NewSpinner(label string) LoadingSpinner {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)
	return LoadingSpinner{spinner: s, label: label}
}

// Init starts the animation.
func (l LoadingSpinner) Init() tea.Cmd {
	return l.spinner.Tick
}

// Update advances the animation on tick messages.
func (l LoadingSpinner) Update(msg tea.Msg) (LoadingSpinner, tea.Cmd) {
	var cmd tea.Cmd
	l.spinner, cmd = l.spinner.Update(msg)
	return l, cmd
}

// View renders only the animated frame.
func (l LoadingSpinner) View() string {
	return l.spinner.View()
}

// SetLabel replaces the label.
func (l *LoadingSpinner) SetLabel(label string) {
	l.label = label
}

// SetProgress sets the counter. A zero total hides it.
func (l *LoadingSpinner) SetProgress(done, total int) {
	l.done = min(max(done, 0), total)
	l.total = max(total, 0)
}

// ViewWithLabel renders the frame, the label and the counter when set.
func (l LoadingSpinner) ViewWithLabel() string {
	out := l.spinner.View() + " " + styles.MutedTextStyle.Render(l.label)
	if l.total > 0 {
		out += " " + styles.InfoTextStyle.Render(fmt.Sprintf("%d/%d", l.done, l.total))
	}
	return out
}

// RenderSpinnerCentered renders the labelled spinner centered in the area.
func RenderSpinnerCentered(s *LoadingSpinner, width, height int) string {
	return styles.CenterBoth(s.ViewWithLabel(), width, height)
}
