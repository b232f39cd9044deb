package pipeline

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/subburn/internal/billing"
	"github.com/theirongolddev/subburn/internal/model"
)

// DefaultHorizonMonths is the projection length when none is given.
const DefaultHorizonMonths = 12

// ProjectMonths returns the expected spend for each of the next horizon
// calendar months, starting with the month containing today.
//
// Monthly subscriptions bill every month and weekly ones contribute
// price*4.33 every month. Yearly subscriptions land only in months whose
// offset from their next billing month is a non-negative multiple of 12. The
// offset is computed from calendar year and month, not elapsed days.
// A yearly date that is more than a year stale therefore still lands in its
// anniversary month, but one that was never rolled forward past the horizon
// start is only correct once repair has run.
func ProjectMonths(subs []model.Subscription, today time.Time, horizon int) []model.MonthProjection {
	if horizon <= 0 {
		horizon = DefaultHorizonMonths
	}

	t := billing.Today(today)
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)

	out := make([]model.MonthProjection, horizon)
	for i := range out {
		month := start.AddDate(0, i, 0)
		out[i] = model.MonthProjection{
			Month:  month,
			Label:  month.Format("2006-01"),
			Amount: decimal.Zero,
		}
	}

	for _, s := range subs {
		if !s.IsActive() {
			continue
		}
		switch s.BillingCycle.Normalize() {
		case model.CycleWeekly:
			weekly := s.Price.Mul(billing.WeeksPerMonth)
			for i := range out {
				out[i].Amount = out[i].Amount.Add(weekly)
			}
		case model.CycleYearly:
			if s.NextBillingDate.IsZero() {
				continue
			}
			for i := range out {
				if landsInMonth(s.NextBillingDate, out[i].Month) {
					out[i].Amount = out[i].Amount.Add(s.Price)
				}
			}
		default:
			for i := range out {
				out[i].Amount = out[i].Amount.Add(s.Price)
			}
		}
	}

	for i := range out {
		out[i].Amount = out[i].Amount.Round(2)
	}
	return out
}

// landsInMonth reports whether a yearly charge anchored at anchor falls in
// the calendar month of target.
func landsInMonth(anchor, target time.Time) bool {
	b := anchor.UTC()
	offset := (target.Year()-b.Year())*12 + int(target.Month()-b.Month())
	return offset >= 0 && offset%12 == 0
}

// SummarizeProjection returns the average, maximum and minimum month amount.
func SummarizeProjection(months []model.MonthProjection) model.ProjectionStats {
	if len(months) == 0 {
		return model.ProjectionStats{Average: decimal.Zero, Maximum: decimal.Zero, Minimum: decimal.Zero}
	}

	sum := decimal.Zero
	maxAmt := months[0].Amount
	minAmt := months[0].Amount
	for _, m := range months {
		sum = sum.Add(m.Amount)
		if m.Amount.GreaterThan(maxAmt) {
			maxAmt = m.Amount
		}
		if m.Amount.LessThan(minAmt) {
			minAmt = m.Amount
		}
	}

	return model.ProjectionStats{
		Average: sum.Div(decimal.NewFromInt(int64(len(months)))).Round(2),
		Maximum: maxAmt,
		Minimum: minAmt,
	}
}

// CountStale returns how many active subscriptions have a next billing date
// before today. Yearly projections are only reliable when this is zero.
func CountStale(subs []model.Subscription, today time.Time) int {
	t := billing.Today(today)
	n := 0
	for _, s := range subs {
		if s.IsActive() && !s.NextBillingDate.IsZero() && billing.Today(s.NextBillingDate).Before(t) {
			n++
		}
	}
	return n
}
