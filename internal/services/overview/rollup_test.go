package overview

import (
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/j-veylop/cost-dashboard-tui/internal/models"
)

func f(v float64) *float64 { return models.Float(v) }

func values(ps []*float64) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		if p == nil {
			out[i] = "null"
			continue
		}
		out[i] = strconv.FormatFloat(*p, 'f', -1, 64)
	}
	return out
}

func forecasts(points []Point) []*float64 {
	out := make([]*float64, len(points))
	for i, p := range points {
		out[i] = p.Forecast
	}
	return out
}

func equalSeries(got, want []*float64) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		switch {
		case got[i] == nil && want[i] == nil:
		case got[i] == nil || want[i] == nil:
			return false
		case math.Abs(*got[i]-*want[i]) > 1e-9:
			return false
		}
	}
	return true
}

func TestStitch(t *testing.T) {
	tests := []struct {
		name   string
		actual []*float64
		raw    []*float64
		want   []*float64
	}{
		{
			name:   "connects from the point before the last actual",
			actual: []*float64{f(100), f(120), f(130), nil, nil},
			raw:    []*float64{nil, nil, f(140), f(150), f(160)},
			want:   []*float64{nil, f(120), f(140), f(150), f(160)},
		},
		{
			name:   "no actuals uses raw forecast",
			actual: []*float64{nil, nil, nil},
			raw:    []*float64{f(1), nil, f(3)},
			want:   []*float64{f(1), nil, f(3)},
		},
		{
			name:   "first point is the last actual",
			actual: []*float64{f(5), nil, nil},
			raw:    []*float64{f(6), f(7), f(8)},
			want:   []*float64{f(6), f(7), f(8)},
		},
		{
			name:   "actual without forecast",
			actual: []*float64{f(1), f(2)},
			raw:    []*float64{nil, nil},
			want:   []*float64{f(1), nil},
		},
		{
			name: "empty",
			want: []*float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points := make([]Point, len(tt.actual))
			for i := range points {
				points[i] = Point{Actual: tt.actual[i], RawForecast: tt.raw[i]}
			}
			Stitch(points)
			if got := forecasts(points); !equalSeries(got, tt.want) {
				t.Errorf("Forecast = %v, want %v", values(got), values(tt.want))
			}
		})
	}
}

func monthly(year int, items ...models.MonthlyBreakdownItem) *models.SubscriptionCostResult {
	for i := range items {
		items[i].Year = year
	}
	return &models.SubscriptionCostResult{YearlyMonthlyBreakdown: items}
}

func TestRollupYTD(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	a := monthly(2024,
		models.MonthlyBreakdownItem{Month: "Jan", Actual: f(100)},
		models.MonthlyBreakdownItem{Month: "Feb", Actual: f(120)},
		models.MonthlyBreakdownItem{Month: "Mar", Actual: f(60), Forecast: f(140)},
		models.MonthlyBreakdownItem{Month: "Apr", Forecast: f(150)},
	)
	a.CostsByResourceGroup = map[string]float64{"rg1": 1, "rg2": 2}
	b := monthly(2024,
		models.MonthlyBreakdownItem{Month: "Feb", Actual: f(10)},
		models.MonthlyBreakdownItem{Month: "Mar", Actual: f(5)},
	)
	b.CostsByResourceGroup = map[string]float64{"rg3": 1}

	s := Rollup([]*models.SubscriptionCostResult{a, nil, b}, models.PeriodYTD, now)

	if s.LoadedSubs != 2 {
		t.Errorf("LoadedSubs = %d, want 2", s.LoadedSubs)
	}
	// The unloaded subscription still counts towards the average.
	if s.TotalResourceGroups != 3 || s.AvgResourceGroups != 1 {
		t.Errorf("resource groups = %d/%v, want 3/1", s.TotalResourceGroups, s.AvgResourceGroups)
	}
	if s.ActualCost != 295 {
		t.Errorf("ActualCost = %v, want 295", s.ActualCost)
	}
	// Jan 100 + Feb 130 actual, Mar forecast 140, b's Mar has no forecast so
	// its actual 5 counts, Apr forecast 150.
	if s.ProjectedCost != 525 {
		t.Errorf("ProjectedCost = %v, want 525", s.ProjectedCost)
	}

	labels := make([]string, len(s.Points))
	for i, p := range s.Points {
		labels[i] = p.Label
	}
	if strings.Join(labels, ",") != "Jan,Feb,Mar,Apr" {
		t.Errorf("labels = %v", labels)
	}
	want := []*float64{nil, f(130), f(140), f(150)}
	if got := forecasts(s.Points); !equalSeries(got, want) {
		t.Errorf("Forecast = %v, want %v", values(got), values(want))
	}
}

func TestRollupIgnoresOtherYears(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	r := monthly(2023, models.MonthlyBreakdownItem{Month: "Jun", Actual: f(999)})
	s := Rollup([]*models.SubscriptionCostResult{r}, models.PeriodYTD, now)
	if s.ActualCost != 0 || s.ProjectedCost != 0 {
		t.Errorf("costs = %v/%v, want 0/0", s.ActualCost, s.ProjectedCost)
	}
}

func TestRollupQTDPeriodCosts(t *testing.T) {
	now := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	r := monthly(2024,
		models.MonthlyBreakdownItem{Month: "Mar", Actual: f(1000)},
		models.MonthlyBreakdownItem{Month: "Apr", Actual: f(100), Forecast: f(999)},
		models.MonthlyBreakdownItem{Month: "May", Actual: f(50), Forecast: f(110)},
		models.MonthlyBreakdownItem{Month: "Jun", Forecast: f(120)},
	)
	s := Rollup([]*models.SubscriptionCostResult{r}, models.PeriodQTD, now)
	if s.ActualCost != 150 {
		t.Errorf("ActualCost = %v, want 150", s.ActualCost)
	}
	if s.ProjectedCost != 330 {
		t.Errorf("ProjectedCost = %v, want 330", s.ProjectedCost)
	}
}

func TestRollupMTD(t *testing.T) {
	now := time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)
	r := &models.SubscriptionCostResult{YearlyDailyBreakdown: []models.CostEntry{
		{Date: "2024-02-01", EntryType: models.EntryActual, Amount: 10},
		{Date: "2024-02-02", EntryType: models.EntryActual, Amount: 20},
		{Date: "2024-02-02T00:00:00", EntryType: models.EntryActual, Amount: 5},
		{Date: "2024-02-03", EntryType: models.EntryForecast, Amount: 30},
		{Date: "2024-02-04", EntryType: models.EntryForecast, Amount: 31},
		{Date: "2024-01-31", EntryType: models.EntryActual, Amount: 1000},
	}}

	s := Rollup([]*models.SubscriptionCostResult{r}, models.PeriodMTD, now)
	if len(s.Points) != 29 {
		t.Fatalf("got %d points, want 29 for a leap February", len(s.Points))
	}
	if s.Points[0].Label != "FEB 1" || s.Points[1].Label != "2" || s.Points[28].Label != "FEB 29" {
		t.Errorf("labels = %q %q %q", s.Points[0].Label, s.Points[1].Label, s.Points[28].Label)
	}
	if s.Points[1].Actual == nil || *s.Points[1].Actual != 25 {
		t.Errorf("Feb 2 actual = %v, want 25", s.Points[1].Actual)
	}
	want := []*float64{f(10), nil, f(30), f(31), nil}
	if got := forecasts(s.Points); !equalSeries(got[:5], want) {
		t.Errorf("Forecast head = %v, want %v", values(got[:5]), values(want))
	}
}

func TestRollupQTDWeeks(t *testing.T) {
	now := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)
	r := &models.SubscriptionCostResult{YearlyDailyBreakdown: []models.CostEntry{
		{Date: "2024-04-01", EntryType: models.EntryActual, Amount: 10},
		{Date: "2024-04-02", EntryType: models.EntryActual, Amount: 5},
		{Date: "2024-04-09", EntryType: models.EntryActual, Amount: 0},
		{Date: "2024-04-15", EntryType: models.EntryForecast, Amount: 40},
	}}

	s := Rollup([]*models.SubscriptionCostResult{r}, models.PeriodQTD, now)
	if len(s.Points) == 0 {
		t.Fatal("no points")
	}
	// 2024-04-01 is a Monday in ISO week 14.
	if s.Points[0].Label != "Apr Week 14" {
		t.Errorf("first label = %q, want Apr Week 14", s.Points[0].Label)
	}
	if s.Points[1].Label != "Week 15" {
		t.Errorf("second label = %q, want Week 15", s.Points[1].Label)
	}
	if s.Points[0].Actual == nil || *s.Points[0].Actual != 15 {
		t.Errorf("week 14 actual = %v, want 15", s.Points[0].Actual)
	}
	if s.Points[1].Actual != nil {
		t.Errorf("week 15 actual = %v, want null for a zero sum", *s.Points[1].Actual)
	}
	if s.Points[2].RawForecast == nil || *s.Points[2].RawForecast != 40 {
		t.Errorf("week 16 forecast = %v, want 40", s.Points[2].RawForecast)
	}

	var sawMay bool
	for _, p := range s.Points {
		if strings.HasPrefix(p.Label, "May ") {
			sawMay = true
		}
	}
	if !sawMay {
		t.Error("expected a week labelled with May")
	}
	last := s.Points[len(s.Points)-1]
	if last.Start.Month() != time.June && last.Start.Month() != time.July {
		t.Errorf("last week starts %v, want end of quarter", last.Start)
	}
}

func TestRollupEmpty(t *testing.T) {
	s := Rollup(nil, models.PeriodYTD, time.Now())
	if s.LoadedSubs != 0 || len(s.Points) != 0 || s.AvgResourceGroups != 0 {
		t.Errorf("Rollup(nil) = %+v", s)
	}
}

func TestGradeBudget(t *testing.T) {
	tests := []struct {
		projected float64
		budget    float64
		want      BudgetStatus
	}{
		{projected: 1000, budget: 0, want: BudgetNone},
		{projected: 10000, budget: 15000, want: BudgetUnder},
		{projected: 10001, budget: 15000, want: BudgetNear},
		{projected: 20000, budget: 15000, want: BudgetNear},
		{projected: 20001, budget: 15000, want: BudgetOver},
		{projected: 25000, budget: 15000, want: BudgetOver},
		{projected: 25001, budget: 15000, want: BudgetCritical},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			if got := GradeBudget(tt.projected, tt.budget); got != tt.want {
				t.Errorf("GradeBudget(%v, %v) = %v, want %v", tt.projected, tt.budget, got, tt.want)
			}
		})
	}
}

func TestRollup_AverageOverAllSubscriptions(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	r := &models.SubscriptionCostResult{CostsByResourceGroup: map[string]float64{"a": 1, "b": 1, "c": 1, "d": 1}}

	tests := []struct {
		name    string
		results []*models.SubscriptionCostResult
		want    float64
	}{
		{"all loaded", []*models.SubscriptionCostResult{r, r}, 4},
		{"one pending", []*models.SubscriptionCostResult{r, nil}, 2},
		{"three pending", []*models.SubscriptionCostResult{nil, r, nil, nil}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Rollup(tt.results, models.PeriodYTD, now).AvgResourceGroups; got != tt.want {
				t.Errorf("AvgResourceGroups = %v, want %v", got, tt.want)
			}
		})
	}
}
