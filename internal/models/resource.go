package models

import (
	"fmt"
	"slices"
	"strings"
)

// ResourceID is a parsed cloud resource identifier of the form
// /subscriptions/{sub}/resourceGroups/{rg}/providers/{ns}/{type}/{name}/...
// All parts are lowercased.
type ResourceID struct {
	Original       string
	SubscriptionID string
	ResourceGroup  string
	Provider       string
	ResourceTypes  []string
	ResourceNames  []string
}

// FullType joins the hierarchical resource types with "/".
func (r ResourceID) FullType() string {
	return strings.Join(r.ResourceTypes, "/")
}

// FullName joins the hierarchical resource names with "/".
func (r ResourceID) FullName() string {
	return strings.Join(r.ResourceNames, "/")
}

// ParseResourceID parses id. It reports false for an empty id.
func ParseResourceID(id string) (ResourceID, bool) {
	if id == "" {
		return ResourceID{}, false
	}

	parts := strings.Split(strings.ToLower(id), "/")
	if len(parts) > 0 && parts[0] == "" {
		parts = parts[1:]
	}

	parsed := ResourceID{Original: id}
	i := 0
	if i+1 < len(parts) && parts[i] == "subscriptions" {
		parsed.SubscriptionID = parts[i+1]
		i += 2
	}
	if i+1 < len(parts) && parts[i] == "resourcegroups" {
		parsed.ResourceGroup = parts[i+1]
		i += 2
	}
	if i+1 < len(parts) && parts[i] == "providers" {
		parsed.Provider = parts[i+1]
		i += 2
		for i < len(parts) {
			parsed.ResourceTypes = append(parsed.ResourceTypes, parts[i])
			i++
			if i >= len(parts) {
				break
			}
			parsed.ResourceNames = append(parsed.ResourceNames, parts[i])
			i++
		}
	}
	return parsed, true
}

// ProviderCost aggregates the spend of one resource provider.
type ProviderCost struct {
	Provider  string
	TotalCost float64
	Currency  string
	Entries   []CostEntry
}

// Count returns the number of entries attributed to the provider.
func (p ProviderCost) Count() int {
	return len(p.Entries)
}

// ProviderBreakdown groups the entries belonging to resourceGroup by provider,
// ordered by descending cost. Entries without a parseable provider are skipped.
func ProviderBreakdown(entries []CostEntry, resourceGroup string) []ProviderCost {
	rg := strings.ToLower(resourceGroup)
	byProvider := make(map[string]*ProviderCost)

	for _, e := range entries {
		parsed, ok := ParseResourceID(e.ResourceID)
		if !ok || parsed.ResourceGroup != rg || parsed.Provider == "" {
			continue
		}
		pc, ok := byProvider[parsed.Provider]
		if !ok {
			pc = &ProviderCost{Provider: parsed.Provider}
			byProvider[parsed.Provider] = pc
		}
		pc.TotalCost += e.Amount
		pc.Currency = e.Currency
		pc.Entries = append(pc.Entries, e)
	}

	out := make([]ProviderCost, 0, len(byProvider))
	for _, pc := range byProvider {
		out = append(out, *pc)
	}
	slices.SortFunc(out, func(a, b ProviderCost) int {
		switch {
		case a.TotalCost > b.TotalCost:
			return -1
		case a.TotalCost < b.TotalCost:
			return 1
		default:
			return strings.Compare(a.Provider, b.Provider)
		}
	})
	return out
}

// PercentDiff returns the relative change from base to current in percent.
// It reports false when either value is missing or base is zero.
func PercentDiff(base, current *float64) (float64, bool) {
	if base == nil || current == nil || *base == 0 {
		return 0, false
	}
	return (*current - *base) / *base * 100, true
}

// FormatPercentDiff renders PercentDiff as "+12.5%", "-3.0%" or "N/A".
func FormatPercentDiff(base, current *float64) string {
	diff, ok := PercentDiff(base, current)
	if !ok {
		return "N/A"
	}
	if diff > 0 {
		return fmt.Sprintf("+%.1f%%", diff)
	}
	return fmt.Sprintf("%.1f%%", diff)
}
