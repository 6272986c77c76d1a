package models

import "strings"

// Period selects the aggregate rollup shown on the overview.
type Period int

const (
	// PeriodYTD rolls up calendar months of the current year.
	PeriodYTD Period = iota
	// PeriodQTD rolls up ISO weeks of the current quarter.
	PeriodQTD
	// PeriodMTD rolls up days of the current month.
	PeriodMTD
)

// String returns the short name of the period.
func (p Period) String() string {
	switch p {
	case PeriodYTD:
		return "YTD"
	case PeriodQTD:
		return "QTD"
	case PeriodMTD:
		return "MTD"
	default:
		return "Unknown"
	}
}

// Title returns the long display name of the period.
func (p Period) Title() string {
	switch p {
	case PeriodYTD:
		return "Year to Date"
	case PeriodQTD:
		return "Quarter to Date"
	case PeriodMTD:
		return "Month to Date"
	default:
		return "Unknown"
	}
}

// Next cycles to the next period.
func (p Period) Next() Period {
	return (p + 1) % 3
}

// ParsePeriod parses "YTD", "QTD" or "MTD". Unknown names map to YTD.
func ParsePeriod(s string) Period {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "QTD":
		return PeriodQTD
	case "MTD":
		return PeriodMTD
	default:
		return PeriodYTD
	}
}
