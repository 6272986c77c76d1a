package filters

import (
	"net/url"
)

// Params are the request parameters derived from a filter set.
type Params struct {
	Timeframe   string `json:"timeframe"`
	FromDate    string `json:"from_date,omitempty"`
	ToDate      string `json:"to_date,omitempty"`
	Granularity string `json:"granularity"`
}

// DefaultParams returns MonthToDate with no granularity.
func DefaultParams() Params {
	return Params{Timeframe: MonthToDate, Granularity: GranularityNone}
}

// ParamsFrom derives request parameters from fs. Missing filters fall back
// to the defaults.
func ParamsFrom(fs []Filter) Params {
	p := DefaultParams()
	for _, f := range fs {
		switch f.Type {
		case TypeTimeframe:
			if f.Value != "" {
				p.Timeframe = f.Value
			}
			p.FromDate = f.FromDate
			p.ToDate = f.ToDate
		case TypeGranularity:
			if f.Value != "" {
				p.Granularity = f.Value
			}
		}
	}
	return p
}

// WithGranularity returns a copy of p using granularity g.
func (p Params) WithGranularity(g string) Params {
	p.Granularity = g
	return p
}

// Values encodes p as query parameters, omitting empty dates.
func (p Params) Values() url.Values {
	v := url.Values{}
	v.Set("timeframe", p.Timeframe)
	if p.FromDate != "" {
		v.Set("from_date", p.FromDate)
	}
	if p.ToDate != "" {
		v.Set("to_date", p.ToDate)
	}
	v.Set("granularity", p.Granularity)
	return v
}

// AddTagValues appends the tag filters of fs to v. Equality predicates use
// tag_<key>=value and inequality predicates use tag_<key>_ne=value.
func AddTagValues(v url.Values, fs []Filter) {
	for _, f := range TagFilters(fs) {
		name := "tag_" + f.Key
		if f.Operator == OpNotEqual {
			name += "_ne"
		}
		v.Add(name, f.Value)
	}
}
