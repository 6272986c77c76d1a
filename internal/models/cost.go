// Package models defines data structures and domain types.
package models

import (
	"slices"
	"sort"
	"strings"
)

// Entry types reported on cost entries.
const (
	EntryActual   = "actual"
	EntryForecast = "forecast"
)

// Subscription is a cloud subscription discovered through the cost API.
type Subscription struct {
	ID             string `json:"id"`
	SubscriptionID string `json:"subscription_id"`
	DisplayName    string `json:"display_name"`
	State          string `json:"state,omitempty"`
}

// Group returns the second dash-separated segment of the display name, or
// "" when the name has no dash.
func (s Subscription) Group() string {
	parts := strings.Split(s.DisplayName, "-")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// Name returns the display name, falling back to the subscription id.
func (s Subscription) Name() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.SubscriptionID
}

// AllGroups is the subscription group that matches every subscription.
const AllGroups = "All"

// SubscriptionGroups returns "All" followed by the sorted distinct groups.
func SubscriptionGroups(subs []Subscription) []string {
	seen := make(map[string]struct{})
	for _, s := range subs {
		if g := s.Group(); g != "" {
			seen[g] = struct{}{}
		}
	}
	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return append([]string{AllGroups}, groups...)
}

// FilterByGroup returns the subscriptions in group. An empty group or
// AllGroups returns subs unchanged.
func FilterByGroup(subs []Subscription, group string) []Subscription {
	if group == "" || group == AllGroups {
		return subs
	}
	var out []Subscription
	for _, s := range subs {
		if s.Group() == group {
			out = append(out, s)
		}
	}
	return out
}

// SubscriptionIDs returns the subscription ids of subs in order.
func SubscriptionIDs(subs []Subscription) []string {
	ids := make([]string, 0, len(subs))
	for _, s := range subs {
		ids = append(ids, s.SubscriptionID)
	}
	return ids
}

// CostEntry is a single cost line item.
type CostEntry struct {
	Date              string  `json:"date,omitempty"`
	Amount            float64 `json:"amount"`
	Currency          string  `json:"currency"`
	ResourceGroupName string  `json:"resourceGroupName,omitempty"`
	ResourceID        string  `json:"resourceId,omitempty"`
	EntryType         string  `json:"entry_type,omitempty"`
}

// MonthlyBreakdownItem holds one calendar month of actual and forecast spend.
// Month is the short English month name ("Jan").
type MonthlyBreakdownItem struct {
	Month    string   `json:"month"`
	Year     int      `json:"year"`
	Actual   *float64 `json:"actual"`
	Forecast *float64 `json:"forecast"`
}

// SubscriptionCostResult is the per-subscription payload returned by the
// cost API and stored in the result cache.
type SubscriptionCostResult struct {
	SubscriptionID            string                 `json:"subscription_id"`
	SubscriptionName          string                 `json:"subscription_name,omitempty"`
	TotalCost                 float64                `json:"total_cost"`
	Currency                  string                 `json:"currency"`
	CostsByResourceGroup      map[string]float64     `json:"costs_by_resource_group,omitempty"`
	TimeframeUsed             string                 `json:"timeframe_used,omitempty"`
	FromDateUsed              string                 `json:"from_date_used,omitempty"`
	ToDateUsed                string                 `json:"to_date_used,omitempty"`
	GranularityUsed           string                 `json:"granularity_used,omitempty"`
	ProjectedCostCurrentMonth *float64               `json:"projected_cost_current_month,omitempty"`
	YearlyMonthlyBreakdown    []MonthlyBreakdownItem `json:"yearly_monthly_breakdown,omitempty"`
	YearlyDailyBreakdown      []CostEntry            `json:"yearly_daily_breakdown,omitempty"`
	DetailedEntries           []CostEntry            `json:"detailed_entries,omitempty"`
	Error                     string                 `json:"error,omitempty"`
}

// ResourceGroupCount returns the number of resource groups with a cost.
func (r *SubscriptionCostResult) ResourceGroupCount() int {
	if r == nil {
		return 0
	}
	return len(r.CostsByResourceGroup)
}

// ResourceGroupCost is one row of a resource-group ranking.
type ResourceGroupCost struct {
	Name string
	Cost float64
}

// TopResourceGroups returns resource groups ordered by descending cost. A
// limit of zero or less returns all of them.
func (r *SubscriptionCostResult) TopResourceGroups(limit int) []ResourceGroupCost {
	if r == nil {
		return nil
	}
	out := make([]ResourceGroupCost, 0, len(r.CostsByResourceGroup))
	for name, cost := range r.CostsByResourceGroup {
		out = append(out, ResourceGroupCost{Name: name, Cost: cost})
	}
	slices.SortFunc(out, func(a, b ResourceGroupCost) int {
		switch {
		case a.Cost > b.Cost:
			return -1
		case a.Cost < b.Cost:
			return 1
		default:
			return strings.Compare(a.Name, b.Name)
		}
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ResourceGroupCostDetails is the payload of the resource-group cost endpoint.
type ResourceGroupCostDetails struct {
	SubscriptionID    string      `json:"subscription_id"`
	ResourceGroupName string      `json:"resource_group_name"`
	TotalCost         float64     `json:"total_cost"`
	Currency          string      `json:"currency"`
	TimeframeUsed     string      `json:"timeframe_used,omitempty"`
	GranularityUsed   string      `json:"granularity_used,omitempty"`
	DetailedEntries   []CostEntry `json:"detailed_entries,omitempty"`
}

// TagDetails lists the distinct values seen for a tag.
type TagDetails struct {
	TagName string   `json:"tagName"`
	Values  []string `json:"values"`
}

// ReportResponse is returned when the API generates a report.
type ReportResponse struct {
	Message     string `json:"message"`
	FileName    string `json:"file_name,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
