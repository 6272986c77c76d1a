package overview

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/j-veylop/cost-dashboard-tui/internal/filters"
	"github.com/j-veylop/cost-dashboard-tui/internal/models"
)

// Budget thresholds applied to projected minus budget.
const (
	BudgetUnderThreshold    = 5000.0
	BudgetNearThreshold     = 5000.0
	BudgetCriticalThreshold = 10000.0
)

// BudgetStatus grades the projected spend against a budget.
type BudgetStatus int

const (
	BudgetNone BudgetStatus = iota
	BudgetUnder
	BudgetNear
	BudgetOver
	BudgetCritical
)

func (b BudgetStatus) String() string {
	switch b {
	case BudgetUnder:
		return "under budget"
	case BudgetNear:
		return "near budget"
	case BudgetOver:
		return "over budget"
	case BudgetCritical:
		return "critically over budget"
	default:
		return "no budget"
	}
}

// GradeBudget compares projected spend with budget. A budget of zero or less
// means no budget is set.
func GradeBudget(projected, budget float64) BudgetStatus {
	if budget <= 0 {
		return BudgetNone
	}
	diff := projected - budget
	switch {
	case diff <= -BudgetUnderThreshold:
		return BudgetUnder
	case diff <= BudgetNearThreshold:
		return BudgetNear
	case diff <= BudgetCriticalThreshold:
		return BudgetOver
	default:
		return BudgetCritical
	}
}

// Point is one step of an aggregate series. Forecast is the stitched series
// drawn after the actuals; RawForecast is the summed forecast for the step.
type Point struct {
	Start       time.Time
	Actual      *float64
	Forecast    *float64
	RawForecast *float64
	Label       string
}

// Summary is the aggregate rollup of the loaded subscriptions for a period.
type Summary struct {
	Points              []Point
	ActualCost          float64
	ProjectedCost       float64
	AvgResourceGroups   float64
	LoadedSubs          int
	TotalResourceGroups int
	Period              models.Period
}

// Budget grades the projected cost against budget.
func (s Summary) Budget(budget float64) BudgetStatus {
	return GradeBudget(s.ProjectedCost, budget)
}

var monthNames = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

func monthIndex(name string) int {
	return slices.Index(monthNames, name)
}

// periodRange returns the first and last month (0-based, inclusive) of the
// period in the year of now.
func periodRange(p models.Period, now time.Time) (int, int) {
	month := int(now.Month()) - 1
	switch p {
	case models.PeriodMTD:
		return month, month
	case models.PeriodQTD:
		start := month / 3 * 3
		return start, start + 2
	default:
		return 0, 11
	}
}

// Rollup aggregates results over period relative to now. Nil results are
// subscriptions still loading or failed: they do not count as loaded but
// still divide the average resource-group count.
func Rollup(results []*models.SubscriptionCostResult, period models.Period, now time.Time) Summary {
	s := Summary{Period: period}
	var loaded []*models.SubscriptionCostResult
	for _, r := range results {
		if r != nil {
			loaded = append(loaded, r)
		}
	}
	if len(loaded) == 0 {
		return s
	}

	s.LoadedSubs = len(loaded)
	s.ActualCost, s.ProjectedCost = periodCosts(loaded, period, now)
	for _, r := range loaded {
		s.TotalResourceGroups += r.ResourceGroupCount()
	}
	s.AvgResourceGroups = float64(s.TotalResourceGroups) / float64(len(results))

	switch period {
	case models.PeriodMTD:
		s.Points = monthSeries(loaded, now)
	case models.PeriodQTD:
		s.Points = quarterSeries(loaded, now)
	default:
		s.Points = yearSeries(loaded)
	}
	Stitch(s.Points)
	return s
}

// periodCosts sums the monthly breakdown inside the period. Past months
// project their actual, current and future months their forecast. The
// current month falls back to its actual when it has no forecast.
func periodCosts(results []*models.SubscriptionCostResult, period models.Period, now time.Time) (float64, float64) {
	startMonth, endMonth := periodRange(period, now)
	year := now.Year()
	currentMonth := int(now.Month()) - 1

	var actual, projected float64
	for _, r := range results {
		for _, item := range r.YearlyMonthlyBreakdown {
			m := monthIndex(item.Month)
			if m < 0 || item.Year != year || m < startMonth || m > endMonth {
				continue
			}
			if item.Actual != nil {
				actual += *item.Actual
			}
			switch {
			case m < currentMonth:
				if item.Actual != nil {
					projected += *item.Actual
				}
			case item.Forecast != nil:
				projected += *item.Forecast
			case m == currentMonth && item.Actual != nil:
				projected += *item.Actual
			}
		}
	}
	return actual, projected
}

func addTo(dst **float64, v float64) {
	if *dst == nil {
		*dst = models.Float(v)
		return
	}
	**dst += v
}

// yearSeries sums the monthly breakdowns per calendar month in
// chronological order.
func yearSeries(results []*models.SubscriptionCostResult) []Point {
	type monthKey struct{ year, month int }
	byMonth := make(map[monthKey]*Point)
	for _, r := range results {
		for _, item := range r.YearlyMonthlyBreakdown {
			m := monthIndex(item.Month)
			if m < 0 {
				continue
			}
			k := monthKey{item.Year, m}
			p, ok := byMonth[k]
			if !ok {
				p = &Point{
					Label: item.Month,
					Start: time.Date(item.Year, time.Month(m+1), 1, 0, 0, 0, 0, time.Local),
				}
				byMonth[k] = p
			}
			if item.Actual != nil {
				addTo(&p.Actual, *item.Actual)
			}
			if item.Forecast != nil {
				addTo(&p.RawForecast, *item.Forecast)
			}
		}
	}

	points := make([]Point, 0, len(byMonth))
	for _, p := range byMonth {
		points = append(points, *p)
	}
	slices.SortFunc(points, func(a, b Point) int { return a.Start.Compare(b.Start) })
	return points
}

type daily struct {
	actual   *float64
	forecast *float64
}

// dailyTotals sums the daily breakdown entries dated within [from, to].
func dailyTotals(results []*models.SubscriptionCostResult, from, to time.Time) map[string]*daily {
	days := make(map[string]*daily)
	for _, r := range results {
		for _, e := range r.YearlyDailyBreakdown {
			d, err := time.ParseInLocation(filters.DateLayout, dateOnly(e.Date), from.Location())
			if err != nil || d.Before(from) || d.After(to) {
				continue
			}
			key := d.Format(filters.DateLayout)
			t, ok := days[key]
			if !ok {
				t = &daily{}
				days[key] = t
			}
			switch e.EntryType {
			case models.EntryActual:
				addTo(&t.actual, e.Amount)
			case models.EntryForecast:
				addTo(&t.forecast, e.Amount)
			}
		}
	}
	return days
}

func dateOnly(s string) string {
	if len(s) > len(filters.DateLayout) {
		return s[:len(filters.DateLayout)]
	}
	return s
}

// monthSeries returns one point per day of the current month.
func monthSeries(results []*models.SubscriptionCostResult, now time.Time) []Point {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	last := first.AddDate(0, 1, -1)
	days := dailyTotals(results, first, last)
	monthName := strings.ToUpper(monthNames[now.Month()-1])

	points := make([]Point, 0, last.Day())
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		label := fmt.Sprint(d.Day())
		if d.Day() == 1 || d.Day() == last.Day() {
			label = monthName + " " + label
		}
		p := Point{Start: d, Label: label}
		if t, ok := days[d.Format(filters.DateLayout)]; ok {
			p.Actual = t.actual
			p.RawForecast = t.forecast
		}
		points = append(points, p)
	}
	return points
}

// quarterSeries returns one point per ISO week overlapping the current
// quarter. Weeks summing to zero are null.
func quarterSeries(results []*models.SubscriptionCostResult, now time.Time) []Point {
	startMonth, endMonth := periodRange(models.PeriodQTD, now)
	first := time.Date(now.Year(), time.Month(startMonth+1), 1, 0, 0, 0, 0, now.Location())
	last := time.Date(now.Year(), time.Month(endMonth+2), 0, 0, 0, 0, 0, now.Location())
	days := dailyTotals(results, first, last)

	type weekKey struct{ year, week int }
	type weekSum struct{ actual, forecast float64 }
	sums := make(map[weekKey]*weekSum)
	for date, t := range days {
		d, err := time.ParseInLocation(filters.DateLayout, date, now.Location())
		if err != nil {
			continue
		}
		y, w := d.ISOWeek()
		k := weekKey{y, w}
		s, ok := sums[k]
		if !ok {
			s = &weekSum{}
			sums[k] = s
		}
		if t.actual != nil {
			s.actual += *t.actual
		}
		if t.forecast != nil {
			s.forecast += *t.forecast
		}
	}

	var (
		points    []Point
		lastWeek  weekKey
		lastMonth time.Month
	)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		y, w := d.ISOWeek()
		k := weekKey{y, w}
		if len(points) > 0 && k == lastWeek {
			continue
		}
		lastWeek = k

		label := fmt.Sprintf("Week %d", w)
		if d.Month() != lastMonth {
			label = monthNames[d.Month()-1] + " " + label
			lastMonth = d.Month()
		}
		p := Point{Start: d, Label: label}
		if s, ok := sums[k]; ok {
			if s.actual > 0 {
				p.Actual = models.Float(s.actual)
			}
			if s.forecast > 0 {
				p.RawForecast = models.Float(s.forecast)
			}
		}
		points = append(points, p)
	}
	return points
}

// Stitch fills the Forecast series so it continues from the actuals. With
// no actuals the raw forecast is used throughout. Otherwise the point before
// the last actual carries its actual and every point from the last actual on
// carries the raw forecast.
func Stitch(points []Point) {
	last := -1
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].Actual != nil {
			last = i
			break
		}
	}

	for i := range points {
		p := &points[i]
		p.Forecast = nil
		switch {
		case last == -1 || i >= last:
			p.Forecast = copyFloat(p.RawForecast)
		case i == last-1:
			p.Forecast = copyFloat(p.Actual)
		}
	}
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return models.Float(*v)
}
