// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/subburn/internal/model"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"INR": "₹",
}

// FormatMoney formats an amount with two decimals, thousands separators and
// a currency symbol when one is known. e.g. 1234.5 EUR -> "€1,234.50".
// Unknown codes are appended: 12 CHF -> "12.00 CHF".
func FormatMoney(amount decimal.Decimal, currency string) string {
	neg := amount.IsNegative()
	fixed := amount.Abs().StringFixed(2)

	intPart, frac, _ := strings.Cut(fixed, ".")
	n, err := strconv.ParseInt(intPart, 10, 64)
	if err == nil {
		intPart = FormatNumber(n)
	}
	num := intPart + "." + frac

	code := strings.ToUpper(strings.TrimSpace(currency))
	var s string
	switch sym, ok := currencySymbols[code]; {
	case ok:
		s = sym + num
	case code != "":
		s = num + " " + code
	default:
		s = num
	}
	if neg {
		return "-" + s
	}
	return s
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a 0-100 percentage with one decimal.
func FormatPercent(pct decimal.Decimal) string {
	return pct.StringFixed(1) + "%"
}

// FormatDelta formats the change between two amounts with an explicit sign.
func FormatDelta(current, previous decimal.Decimal, currency string) string {
	delta := current.Sub(previous)
	if delta.IsNegative() {
		return "-" + FormatMoney(delta.Neg(), currency)
	}
	return "+" + FormatMoney(delta, currency)
}

// FormatDaysUntil renders a renewal distance. e.g. 0 -> "today", 1 -> "tomorrow", 5 -> "in 5 days"
func FormatDaysUntil(days int) string {
	switch {
	case days <= 0:
		return "today"
	case days == 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", days)
	}
}

// FormatStatus renders a subscription status for tables.
func FormatStatus(s model.Status) string {
	switch s {
	case model.StatusActive:
		return "active"
	case model.StatusTrial:
		return "trial"
	case model.StatusExpired:
		return "expired"
	case model.StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
