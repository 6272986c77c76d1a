package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/cost-dashboard-tui/internal/filters"
	"github.com/j-veylop/cost-dashboard-tui/internal/models"
	"github.com/j-veylop/cost-dashboard-tui/internal/ui/styles"
)

// FilterAction is what a key press in the filter bar asks the app to do.
// At most one of Add, RemoveID and Err is set.
type FilterAction struct {
	Add      *filters.Filter
	Err      error
	RemoveID string
	Closed   bool
}

type filterBarKeys struct {
	Submit key.Binding
	Close  key.Binding
	Prev   key.Binding
	Next   key.Binding
	Remove key.Binding
}

// FilterBar shows the active filters as chips and accepts new filter
// expressions while focused.
type FilterBar struct {
	input    textinput.Model
	keys     filterBarKeys
	selected int
	active   bool
}

// NewFilterBar creates an unfocused filter bar.
func NewFilterBar() FilterBar {
	ti := textinput.New()
	ti.Prompt = "filter › "
	ti.Placeholder = "Env=prod · team!=ops · timeframe=YearToDate · 2024-01-01..2024-03-31"
	ti.CharLimit = 120
	ti.ShowSuggestions = true

	return FilterBar{
		input:    ti,
		selected: -1,
		keys: filterBarKeys{
			Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add filter")),
			Close:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
			Prev:   key.NewBinding(key.WithKeys("up", "ctrl+p"), key.WithHelp("↑", "prev chip")),
			Next:   key.NewBinding(key.WithKeys("down", "ctrl+n"), key.WithHelp("↓", "next chip")),
			Remove: key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "remove chip")),
		},
	}
}

// Active reports whether the bar has keyboard focus.
func (f FilterBar) Active() bool {
	return f.active
}

// Focus gives the bar keyboard focus.
func (f *FilterBar) Focus() tea.Cmd {
	f.active = true
	f.selected = -1
	return f.input.Focus()
}

// Blur releases keyboard focus and clears the input.
func (f *FilterBar) Blur() {
	f.active = false
	f.selected = -1
	f.input.Blur()
	f.input.Reset()
}

// SetTags turns discovered tags into "name=value" completions.
func (f *FilterBar) SetTags(tags []models.TagDetails) {
	var suggestions []string
	for _, t := range tags {
		suggestions = append(suggestions, t.TagName+"=")
		for _, v := range t.Values {
			suggestions = append(suggestions, t.TagName+"="+v)
		}
	}
	for _, tf := range filters.Timeframes {
		if tf != filters.Custom {
			suggestions = append(suggestions, "timeframe="+tf)
		}
	}
	for _, g := range filters.Granularities {
		suggestions = append(suggestions, "granularity="+g)
	}
	f.input.SetSuggestions(suggestions)
}

// Update handles a key while the bar is focused. fs is the active filter
// set used for chip selection.
func (f FilterBar) Update(msg tea.KeyMsg, fs []filters.Filter) (FilterBar, FilterAction, tea.Cmd) {
	var action FilterAction

	switch {
	case key.Matches(msg, f.keys.Close):
		f.Blur()
		action.Closed = true
		return f, action, nil

	case key.Matches(msg, f.keys.Submit):
		expr := strings.TrimSpace(f.input.Value())
		if expr == "" {
			f.Blur()
			action.Closed = true
			return f, action, nil
		}
		parsed, err := filters.ParseExpr(expr)
		if err != nil {
			action.Err = err
			return f, action, nil
		}
		action.Add = &parsed
		f.input.Reset()
		return f, action, nil

	case key.Matches(msg, f.keys.Prev):
		switch {
		case len(fs) == 0:
		case f.selected < 0:
			f.selected = len(fs) - 1
		default:
			f.selected = (f.selected - 1 + len(fs)) % len(fs)
		}
		return f, action, nil

	case key.Matches(msg, f.keys.Next):
		if len(fs) > 0 {
			f.selected = (f.selected + 1) % len(fs)
		}
		return f, action, nil

	case key.Matches(msg, f.keys.Remove):
		if f.selected >= 0 && f.selected < len(fs) {
			action.RemoveID = fs[f.selected].ID
			f.selected = -1
		}
		return f, action, nil
	}

	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return f, action, cmd
}

// View renders the chips and, when focused, the input line.
func (f FilterBar) View(fs []filters.Filter, width int) string {
	chips := make([]string, 0, len(fs))
	for i, flt := range fs {
		style := styles.ChipStyle
		switch {
		case f.active && i == f.selected:
			style = styles.SelectedChipStyle
		case flt.ID == filters.DefaultTimeframeID || flt.ID == filters.DefaultGranularityID:
			style = styles.DefaultChipStyle
		}
		chips = append(chips, style.Render(filters.Label(flt)))
	}

	row := lipgloss.NewStyle().MaxWidth(width).Render(lipgloss.JoinHorizontal(lipgloss.Top, chips...))
	if !f.active {
		return row
	}

	f.input.Width = max(width-len(f.input.Prompt)-2, 10)
	hint := styles.HelpStyle.Render("enter add · ↑/↓ pick chip · ctrl+x remove · esc close")
	return lipgloss.JoinVertical(lipgloss.Left, row, f.input.View(), hint)
}

// Height returns the number of lines View renders.
func (f FilterBar) Height() int {
	if f.active {
		return 3
	}
	return 1
}
