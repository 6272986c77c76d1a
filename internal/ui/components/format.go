package components

import (
	"time"

	"github.com/dustin/go-humanize"
)

// Money formats an amount with thousands separators and two decimals.
func Money(v float64, currency string) string {
	s := humanize.FormatFloat("#,###.##", v)
	if currency == "" {
		return s
	}
	return s + " " + currency
}

// MoneyFunc returns Money bound to currency.
func MoneyFunc(currency string) func(float64) string {
	return func(v float64) string { return Money(v, currency) }
}

// Ago renders t relative to now, or "never" for the zero time.
func Ago(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}
