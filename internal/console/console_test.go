package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/j-veylop/cost-dashboard-tui/internal/models"
	"github.com/j-veylop/cost-dashboard-tui/internal/services/overview"
)

func TestMoney(t *testing.T) {
	tests := []struct {
		currency string
		want     string
		value    float64
	}{
		{value: 1234567.891, currency: "EUR", want: "1,234,567.89 EUR"},
		{value: 0, currency: "", want: "0.00"},
		{value: 12.5, currency: "USD", want: "12.50 USD"},
	}
	for _, tt := range tests {
		if got := Money(tt.value, tt.currency); got != tt.want {
			t.Errorf("Money(%v, %q) = %q, want %q", tt.value, tt.currency, got, tt.want)
		}
	}
}

func TestSubscriptionRows(t *testing.T) {
	subs := []models.Subscription{
		{SubscriptionID: "a", DisplayName: "acme-prod"},
		{SubscriptionID: "b", DisplayName: "acme-dev"},
		{SubscriptionID: "c"},
	}
	slots := overview.Slots{
		"a": {Data: &models.SubscriptionCostResult{TotalCost: 42, CostsByResourceGroup: map[string]float64{"rg": 42}}},
		"b": {Err: "cost api returned 500"},
	}

	rows := SubscriptionRows(subs, slots)
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	if rows[0].Cost != 42 || rows[0].ResourceGroups != 1 || rows[0].Error != "" {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[1].Error != "cost api returned 500" {
		t.Errorf("rows[1].Error = %q", rows[1].Error)
	}
	if rows[2].Name != "c" || rows[2].Error != "no data" {
		t.Errorf("rows[2] = %+v", rows[2])
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	c := NewWithWriter(&buf)

	rows := []SubscriptionRow{
		{Name: "acme-prod", Cost: 1500, ResourceGroups: 3},
		{Name: "acme-dev", Error: "timeout"},
	}
	summary := overview.Summary{Period: models.PeriodYTD, ActualCost: 1500, ProjectedCost: 9000, LoadedSubs: 1}
	c.RenderSummary(rows, summary, 20000, "EUR")

	out := buf.String()
	for _, want := range []string{"acme-prod", "1,500.00 EUR", "timeout", "9,000.00 EUR", "under budget"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTrend(t *testing.T) {
	var buf bytes.Buffer
	c := NewWithWriter(&buf)

	c.RenderTrend([]overview.Point{
		{Label: "Jan", Actual: models.Float(100)},
		{Label: "Feb", RawForecast: models.Float(50)},
	})
	out := buf.String()
	if !strings.Contains(out, "Jan") || !strings.Contains(out, "Feb") {
		t.Errorf("trend output missing labels:\n%s", out)
	}

	buf.Reset()
	c.RenderTrend([]overview.Point{{Label: "Jan"}})
	if !strings.Contains(buf.String(), "All costs are 0") {
		t.Errorf("empty trend should warn, got %q", buf.String())
	}
}

func TestBudgetLabel(t *testing.T) {
	NewWithWriter(&bytes.Buffer{})
	if got := BudgetLabel(overview.BudgetCritical); got != "critically over budget" {
		t.Errorf("BudgetLabel(critical) = %q", got)
	}
	if got := BudgetLabel(overview.BudgetNone); got != "no budget" {
		t.Errorf("BudgetLabel(none) = %q", got)
	}
}
