package comparison

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/cost-dashboard-tui/internal/app"
	"github.com/j-veylop/cost-dashboard-tui/internal/models"
	costs "github.com/j-veylop/cost-dashboard-tui/internal/services/comparison"
)

func newTestState() *app.State {
	state := app.NewState()
	state.SetSubscriptions([]models.Subscription{
		{SubscriptionID: "s1", DisplayName: "corp-prod-web"},
		{SubscriptionID: "s2", DisplayName: "corp-prod-data"},
		{SubscriptionID: "s3", DisplayName: "corp-dev-web"},
	})
	return state
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func msgsOf(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, msgsOf(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func TestNew(t *testing.T) {
	m := New(newTestState())
	if m.Init() == nil {
		t.Error("Init returned nil")
	}
	if got := len(m.table.Rows()); got != 3 {
		t.Errorf("rows = %d, want 3", got)
	}
}

func TestModel_SlotNavigation(t *testing.T) {
	m := New(newTestState())

	tests := []struct {
		key  tea.KeyMsg
		want int
	}{
		{keyRunes("l"), 1},
		{keyRunes("l"), 2},
		{keyRunes("l"), 0},
		{keyRunes("h"), 2},
		{tea.KeyMsg{Type: tea.KeyLeft}, 1},
	}
	for _, tt := range tests {
		m.Update(tt.key)
		if m.Slot() != tt.want {
			t.Errorf("after %q slot = %d, want %d", tt.key.String(), m.Slot(), tt.want)
		}
	}
}

func TestModel_Assign(t *testing.T) {
	state := newTestState()
	m := New(state)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	msgs := msgsOf(cmd)
	if len(msgs) != 1 {
		t.Fatalf("msgs = %v, want one", msgs)
	}
	set, ok := msgs[0].(app.SetComparisonSlotMsg)
	if !ok || set.Slot != 0 || set.SubscriptionID != "s1" {
		t.Errorf("msg = %#v, want slot 0 for s1", msgs[0])
	}
	if m.Slot() != 1 {
		t.Errorf("slot after assign = %d, want 1", m.Slot())
	}

	state.SetComparisonSlot(0, "s1")
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	msgs = msgsOf(cmd)
	if n, ok := msgs[0].(app.AddNotificationMsg); !ok || !strings.Contains(n.Message, "slot 1") {
		t.Errorf("msg = %#v, want an already-compared notice", msgs[0])
	}
}

func TestModel_ClearSlot(t *testing.T) {
	state := newTestState()
	m := New(state)

	if _, cmd := m.Update(keyRunes("x")); cmd != nil {
		t.Error("clearing an empty slot should do nothing")
	}

	state.SetComparisonSlot(0, "s2")
	_, cmd := m.Update(keyRunes("x"))
	msgs := msgsOf(cmd)
	if set, ok := msgs[0].(app.SetComparisonSlotMsg); !ok || set.Slot != 0 || set.SubscriptionID != "" {
		t.Errorf("msg = %#v, want SetComparisonSlotMsg{Slot: 0}", msgs[0])
	}
}

func TestModel_ClearAll(t *testing.T) {
	state := newTestState()
	state.SetComparisonSlot(0, "s1")
	state.SetComparisonSlot(2, "s3")
	m := New(state)

	m.Update(keyRunes("X"))
	if !m.confirmClear {
		t.Fatal("X should ask for confirmation")
	}
	if _, cmd := m.Update(keyRunes("n")); cmd != nil || m.confirmClear {
		t.Error("n should cancel without clearing")
	}

	m.Update(keyRunes("X"))
	_, cmd := m.Update(keyRunes("y"))
	msgs := msgsOf(cmd)
	if len(msgs) != costs.Slots {
		t.Fatalf("msgs = %d, want %d", len(msgs), costs.Slots)
	}
	for _, msg := range msgs {
		if set, ok := msg.(app.SetComparisonSlotMsg); !ok || set.SubscriptionID != "" {
			t.Errorf("msg = %#v, want a cleared slot", msg)
		}
	}
}

func TestModel_Search(t *testing.T) {
	m := New(newTestState())

	_, cmd := m.Update(keyRunes("s"))
	var focused bool
	for _, msg := range msgsOf(cmd) {
		if f, ok := msg.(app.InputFocusMsg); ok && f.Active {
			focused = true
		}
	}
	if !focused {
		t.Error("search should capture the keyboard")
	}

	m.Update(keyRunes("dev"))
	if got := len(m.table.Rows()); got != 1 {
		t.Errorf("rows matching dev = %d, want 1", got)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.searching {
		t.Error("esc should close the search")
	}
	if got := len(m.table.Rows()); got != 3 {
		t.Errorf("rows after clearing search = %d, want 3", got)
	}
}

func TestModel_View(t *testing.T) {
	state := newTestState()
	state.SetComparisonSlot(0, "s1")
	state.SetComparisonSlot(1, "s2")
	state.SetComparison(costs.Result{Key: state.FilterKey(), Columns: [costs.Slots]costs.Column{
		{SubscriptionID: "s1", Data: &models.SubscriptionCostResult{TotalCost: 100, Currency: "EUR"}},
		{SubscriptionID: "s2", Data: &models.SubscriptionCostResult{TotalCost: 150, Currency: "EUR"}},
	}})

	m := New(state)
	m.SetSize(160, 50)
	view := m.View()
	for _, want := range []string{"Subscription Comparison", "Subscription 1", "corp-prod-data", "150.00 EUR", "+50.0%", "empty"} {
		if !strings.Contains(view, want) {
			t.Errorf("View should contain %q", want)
		}
	}
}

func TestModel_Help(t *testing.T) {
	m := New(app.NewState())
	if len(m.ShortHelp()) == 0 {
		t.Error("ShortHelp empty")
	}
	if len(m.FullHelp()) == 0 {
		t.Error("FullHelp empty")
	}
}
