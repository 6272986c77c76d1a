// Package filters models the user-selected cost filters and derives the
// canonical cache key and request parameters from them.
package filters

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type discriminates a Filter.
type Type string

// Filter types.
const (
	TypeTimeframe   Type = "timeframe"
	TypeGranularity Type = "granularity"
	TypeTag         Type = "tag"
)

// Timeframe values.
const (
	MonthToDate    = "MonthToDate"
	QuarterToDate  = "QuarterToDate"
	YearToDate     = "YearToDate"
	TheLastMonth   = "TheLastMonth"
	TheLastQuarter = "TheLastQuarter"
	TheLastYear    = "TheLastYear"
	Custom         = "Custom"
)

// Granularity values.
const (
	GranularityNone  = "None"
	GranularityDaily = "Daily"
)

// Tag operators.
const (
	OpEqual    = "="
	OpNotEqual = "!="
)

// Identifiers of the filters re-inserted when the user removes the last
// timeframe or granularity filter.
const (
	DefaultTimeframeID   = "default-timeframe"
	DefaultGranularityID = "default-granularity"
)

// DateLayout is the calendar date format used for custom ranges.
const DateLayout = "2006-01-02"

// Timeframes lists every timeframe value in display order.
var Timeframes = []string{
	MonthToDate, QuarterToDate, YearToDate,
	TheLastMonth, TheLastQuarter, TheLastYear, Custom,
}

// Granularities lists every granularity value.
var Granularities = []string{GranularityNone, GranularityDaily}

// ErrInvalidFilter is returned by Validate and ParseTag.
var ErrInvalidFilter = errors.New("invalid filter")

// Filter is a single user-chosen predicate. ID only orders filters inside a
// Key; it is not part of the filter's meaning.
type Filter struct {
	ID       string
	Type     Type
	Key      string
	Operator string
	Value    string
	FromDate string
	ToDate   string
}

// DefaultTimeframe returns the MonthToDate timeframe filter.
func DefaultTimeframe() Filter {
	return Filter{ID: DefaultTimeframeID, Type: TypeTimeframe, Operator: OpEqual, Value: MonthToDate}
}

// DefaultGranularity returns the None granularity filter.
func DefaultGranularity() Filter {
	return Filter{ID: DefaultGranularityID, Type: TypeGranularity, Operator: OpEqual, Value: GranularityNone}
}

// Defaults returns the initial filter set.
func Defaults() []Filter {
	return []Filter{DefaultTimeframe(), DefaultGranularity()}
}

// Key is the canonical serialization of a filter set. Keys are compared by
// string equality.
type Key string

type normalized struct {
	ID       string  `json:"id"`
	Type     Type    `json:"type"`
	Key      string  `json:"key"`
	Operator string  `json:"operator"`
	Value    string  `json:"value"`
	FromDate *string `json:"fromDate"`
	ToDate   *string `json:"toDate"`
}

// Normalize returns the canonical key for fs. Absent optional fields take
// their defaults and records are ordered by ID, so insertion order never
// changes the key.
func Normalize(fs []Filter) Key {
	records := make([]normalized, 0, len(fs))
	for _, f := range fs {
		rec := normalized{
			ID:       f.ID,
			Type:     f.Type,
			Key:      f.Key,
			Operator: f.Operator,
			Value:    f.Value,
		}
		if rec.Operator == "" {
			rec.Operator = OpEqual
		}
		if f.FromDate != "" {
			from := f.FromDate
			rec.FromDate = &from
		}
		if f.ToDate != "" {
			to := f.ToDate
			rec.ToDate = &to
		}
		records = append(records, rec)
	}

	slices.SortStableFunc(records, func(a, b normalized) int {
		return strings.Compare(a.ID, b.ID)
	})

	data, err := json.Marshal(records)
	if err != nil {
		// Only strings are marshalled here.
		panic(fmt.Sprintf("filters: marshal normalized key: %v", err))
	}
	return Key(data)
}

// IsDefault reports whether fs is exactly the default MonthToDate timeframe
// plus the None granularity, with no tag filters.
func IsDefault(fs []Filter) bool {
	if len(fs) != 2 {
		return false
	}
	var hasTimeframe, hasGranularity bool
	for _, f := range fs {
		switch f.Type {
		case TypeTimeframe:
			if f.Value == MonthToDate && f.FromDate == "" && f.ToDate == "" {
				hasTimeframe = true
			}
		case TypeGranularity:
			if f.Value == GranularityNone {
				hasGranularity = true
			}
		case TypeTag:
			return false
		}
	}
	return hasTimeframe && hasGranularity
}

// NewID returns a fresh, time-ordered filter identifier.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Add returns a copy of fs with f appended. A timeframe or granularity filter
// replaces any existing filter of the same type. An empty ID is assigned.
func Add(fs []Filter, f Filter) []Filter {
	if f.ID == "" {
		f.ID = NewID()
	}
	if f.Operator == "" {
		f.Operator = OpEqual
	}

	out := make([]Filter, 0, len(fs)+1)
	for _, existing := range fs {
		if (f.Type == TypeTimeframe || f.Type == TypeGranularity) && existing.Type == f.Type {
			continue
		}
		out = append(out, existing)
	}
	return append(out, f)
}

// Remove returns a copy of fs without the filter identified by id. When no
// timeframe or granularity filter remains, the matching default is appended.
func Remove(fs []Filter, id string) []Filter {
	out := make([]Filter, 0, len(fs))
	for _, f := range fs {
		if f.ID != id {
			out = append(out, f)
		}
	}
	if !slices.ContainsFunc(out, func(f Filter) bool { return f.Type == TypeTimeframe }) {
		out = append(out, DefaultTimeframe())
	}
	if !slices.ContainsFunc(out, func(f Filter) bool { return f.Type == TypeGranularity }) {
		out = append(out, DefaultGranularity())
	}
	return out
}

// TagFilters returns the tag filters of fs in order.
func TagFilters(fs []Filter) []Filter {
	var tags []Filter
	for _, f := range fs {
		if f.Type == TypeTag {
			tags = append(tags, f)
		}
	}
	return tags
}

// Validate checks that f is well formed.
func Validate(f Filter) error {
	switch f.Type {
	case TypeTimeframe:
		if !slices.Contains(Timeframes, f.Value) {
			return fmt.Errorf("%w: unknown timeframe %q", ErrInvalidFilter, f.Value)
		}
		if f.Value == Custom {
			from, err := time.Parse(DateLayout, f.FromDate)
			if err != nil {
				return fmt.Errorf("%w: custom timeframe needs a from date: %v", ErrInvalidFilter, err)
			}
			to, err := time.Parse(DateLayout, f.ToDate)
			if err != nil {
				return fmt.Errorf("%w: custom timeframe needs a to date: %v", ErrInvalidFilter, err)
			}
			if to.Before(from) {
				return fmt.Errorf("%w: to date %s is before from date %s", ErrInvalidFilter, f.ToDate, f.FromDate)
			}
		} else if f.FromDate != "" || f.ToDate != "" {
			return fmt.Errorf("%w: dates are only allowed on a Custom timeframe", ErrInvalidFilter)
		}
	case TypeGranularity:
		if !slices.Contains(Granularities, f.Value) {
			return fmt.Errorf("%w: unknown granularity %q", ErrInvalidFilter, f.Value)
		}
	case TypeTag:
		if f.Key == "" {
			return fmt.Errorf("%w: tag filter needs a key", ErrInvalidFilter)
		}
		if f.Operator != "" && f.Operator != OpEqual && f.Operator != OpNotEqual {
			return fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, f.Operator)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidFilter, f.Type)
	}
	return nil
}

// ParseTag parses "key=value" or "key!=value" into a tag filter.
func ParseTag(expr string) (Filter, error) {
	op := OpEqual
	idx := strings.Index(expr, OpNotEqual)
	width := len(OpNotEqual)
	if idx < 0 {
		idx = strings.Index(expr, OpEqual)
		width = len(OpEqual)
	} else {
		op = OpNotEqual
	}
	if idx <= 0 {
		return Filter{}, fmt.Errorf("%w: expected key=value or key!=value, got %q", ErrInvalidFilter, expr)
	}

	f := Filter{
		Type:     TypeTag,
		Key:      strings.TrimSpace(expr[:idx]),
		Operator: op,
		Value:    strings.TrimSpace(expr[idx+width:]),
	}
	if err := Validate(f); err != nil {
		return Filter{}, err
	}
	return f, nil
}

// Label renders f for display in a filter bar.
func Label(f Filter) string {
	switch f.Type {
	case TypeTimeframe:
		if f.Value == Custom {
			return fmt.Sprintf("%s..%s", f.FromDate, f.ToDate)
		}
		return f.Value
	case TypeGranularity:
		return "granularity: " + f.Value
	case TypeTag:
		op := f.Operator
		if op == "" {
			op = OpEqual
		}
		return f.Key + " " + op + " " + f.Value
	default:
		return string(f.Type)
	}
}

// ParseExpr parses a filter bar entry. It accepts "timeframe=<Value>",
// "granularity=<Value>", a custom range "YYYY-MM-DD..YYYY-MM-DD", or a tag
// expression understood by ParseTag. The returned filter has no ID.
func ParseExpr(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if from, to, ok := strings.Cut(expr, ".."); ok {
		f := Filter{
			Type:     TypeTimeframe,
			Operator: OpEqual,
			Value:    Custom,
			FromDate: strings.TrimSpace(from),
			ToDate:   strings.TrimSpace(to),
		}
		return f, Validate(f)
	}

	name, value, ok := strings.Cut(expr, "=")
	if ok && !strings.HasSuffix(name, "!") {
		var f Filter
		switch strings.ToLower(strings.TrimSpace(name)) {
		case string(TypeTimeframe):
			f = Filter{Type: TypeTimeframe, Operator: OpEqual, Value: canonical(Timeframes, value)}
		case string(TypeGranularity):
			f = Filter{Type: TypeGranularity, Operator: OpEqual, Value: canonical(Granularities, value)}
		}
		if f.Type != "" {
			return f, Validate(f)
		}
	}
	return ParseTag(expr)
}

// canonical matches v case-insensitively against values.
func canonical(values []string, v string) string {
	v = strings.TrimSpace(v)
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return candidate
		}
	}
	return v
}
