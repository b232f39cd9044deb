// Package billing provides calendar arithmetic for billing cycles and
// monthly cost normalization.
package billing

import (
	"fmt"
	"iter"
	"math"
	"strings"
	"time"

	"github.com/theirongolddev/subburn/internal/model"
)

// DueSoonDays is the window in which a renewal counts as due soon.
const DueSoonDays = 7

const dateLayout = "2006-01-02"

// InvalidDateError reports a missing or malformed date passed to date arithmetic.
type InvalidDateError struct {
	Value string
	Err   error
}

func (e *InvalidDateError) Error() string {
	if e.Value == "" {
		return "billing: missing date"
	}
	if e.Err != nil {
		return fmt.Sprintf("billing: invalid date %q: %v", e.Value, e.Err)
	}
	return fmt.Sprintf("billing: invalid date %q", e.Value)
}

func (e *InvalidDateError) Unwrap() error {
	return e.Err
}

// ParseDate parses YYYY-MM-DD or RFC 3339 input into a UTC midnight date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &InvalidDateError{}
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &InvalidDateError{Value: s, Err: err}
	}
	return Today(t), nil
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// Today truncates now to midnight of its UTC calendar day.
func Today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextBillingDate advances current by exactly one billing period.
// Month and year steps clamp the day to the last day of the target month,
// so Jan 31 becomes Feb 28 (or 29), never Mar 3.
func NextBillingDate(current time.Time, cycle model.BillingCycle) (time.Time, error) {
	if current.IsZero() {
		return time.Time{}, &InvalidDateError{}
	}
	switch cycle.Normalize() {
	case model.CycleWeekly:
		return current.AddDate(0, 0, 7), nil
	case model.CycleYearly:
		return addMonths(current, 12), nil
	default:
		return addMonths(current, 1), nil
	}
}

func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// FutureBillingDates returns count successive billing dates after start.
// The sequence is single-use: ranging over it a second time yields nothing.
func FutureBillingDates(start time.Time, cycle model.BillingCycle, count int) (iter.Seq[time.Time], error) {
	if start.IsZero() {
		return nil, &InvalidDateError{}
	}
	cur := start
	remaining := count
	return func(yield func(time.Time) bool) {
		for remaining > 0 {
			next, err := NextBillingDate(cur, cycle)
			if err != nil {
				return
			}
			cur = next
			remaining--
			if !yield(next) {
				return
			}
		}
	}, nil
}

// DaysUntil returns the whole days from today to date, rounded up and never negative.
func DaysUntil(date, today time.Time) (int, error) {
	if date.IsZero() {
		return 0, &InvalidDateError{}
	}
	diff := date.Sub(Today(today)).Hours() / 24
	days := int(math.Ceil(diff))
	if days < 0 {
		return 0, nil
	}
	return days, nil
}

// IsDueSoon reports whether date falls within DueSoonDays of today.
func IsDueSoon(date, today time.Time) (bool, error) {
	days, err := DaysUntil(date, today)
	if err != nil {
		return false, err
	}
	return days <= DueSoonDays, nil
}

// FormatCycle returns a display label for a billing cycle.
func FormatCycle(cycle model.BillingCycle) string {
	switch cycle.Normalize() {
	case model.CycleWeekly:
		return "Weekly"
	case model.CycleYearly:
		return "Yearly"
	default:
		return "Monthly"
	}
}

// MinPeriodDays is the shortest possible length of one period of cycle.
func MinPeriodDays(cycle model.BillingCycle) int {
	switch cycle.Normalize() {
	case model.CycleWeekly:
		return 7
	case model.CycleYearly:
		return 365
	default:
		return 28
	}
}
