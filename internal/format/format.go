// Package format renders market figures for display.
package format

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

var (
	trillion = decimal.New(1, 12)
	billion  = decimal.New(1, 9)
	million  = decimal.New(1, 6)
)

// Currency formats a USD amount with grouping and two decimals: $60,000.00.
func Currency(value float64) string {
	d := decimal.NewFromFloat(value).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	return sign + "$" + printer.Sprintf("%.2f", d.InexactFloat64())
}

// MarketCap abbreviates a USD amount with T/B/M suffixes: $1.20T.
func MarketCap(value float64) string {
	d := decimal.NewFromFloat(value)
	switch {
	case d.GreaterThanOrEqual(trillion):
		return "$" + d.Div(trillion).StringFixed(2) + "T"
	case d.GreaterThanOrEqual(billion):
		return "$" + d.Div(billion).StringFixed(2) + "B"
	case d.GreaterThanOrEqual(million):
		return "$" + d.Div(million).StringFixed(2) + "M"
	}
	return "$" + d.StringFixed(2)
}

// Change formats a 24h percentage with a direction marker: ▲1.50%, ▼0.70%.
// Zero counts as up.
func Change(pct float64) string {
	d := decimal.NewFromFloat(pct)
	marker := "▲"
	if d.IsNegative() {
		marker = "▼"
	}
	return marker + d.Abs().StringFixed(2) + "%"
}

// TimeAgo renders the "last updated" readout relative to now.
func TimeAgo(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "N/A"
	}

	seconds := int(now.Sub(t) / time.Second)
	switch {
	case seconds < 5:
		return "just now"
	case seconds < 60:
		return fmt.Sprintf("%d seconds ago", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%d minutes ago", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%d hours ago", seconds/3600)
	}
	return t.Format("1/2/2006")
}
