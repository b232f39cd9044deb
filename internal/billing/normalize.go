package billing

import (
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/subburn/internal/model"
)

// WeeksPerMonth is the fixed weekly-to-monthly factor. Projections use the
// same constant, so totals and projections always agree.
var WeeksPerMonth = decimal.RequireFromString("4.33")

var monthsPerYear = decimal.NewFromInt(12)

// MonthlyEquivalent converts a price in its native period to a monthly rate.
func MonthlyEquivalent(price decimal.Decimal, cycle model.BillingCycle) decimal.Decimal {
	switch cycle.Normalize() {
	case model.CycleWeekly:
		return price.Mul(WeeksPerMonth)
	case model.CycleYearly:
		return price.Div(monthsPerYear)
	default:
		return price
	}
}

// SubscriptionMonthly is MonthlyEquivalent applied to a subscription.
func SubscriptionMonthly(s model.Subscription) decimal.Decimal {
	return MonthlyEquivalent(s.Price, s.BillingCycle)
}
