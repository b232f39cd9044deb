package pipeline

import (
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/subburn/internal/billing"
	"github.com/theirongolddev/subburn/internal/model"
)

var hundred = decimal.NewFromInt(100)

// MonthlyTotal sums the monthly equivalent of every active subscription.
func MonthlyTotal(subs []model.Subscription) decimal.Decimal {
	total := decimal.Zero
	for _, s := range subs {
		if s.IsActive() {
			total = total.Add(billing.SubscriptionMonthly(s))
		}
	}
	return total
}

// SpendTotal is MonthlyTotal including trials, for display.
func SpendTotal(subs []model.Subscription) decimal.Decimal {
	total := decimal.Zero
	for _, s := range subs {
		if s.IsBillable() {
			total = total.Add(billing.SubscriptionMonthly(s))
		}
	}
	return total
}

// EvaluateBudget compares active monthly spend against limit. A
// non-positive limit falls back to model.DefaultBudgetLimit.
func EvaluateBudget(subs []model.Subscription, limit decimal.Decimal) model.BudgetEvaluation {
	if !limit.IsPositive() {
		limit = model.DefaultBudgetLimit
	}

	total := MonthlyTotal(subs)
	raw := total.Div(limit).Mul(hundred)

	pct := raw
	if pct.GreaterThan(hundred) {
		pct = hundred
	}

	excess := total.Sub(limit)
	if excess.IsNegative() {
		excess = decimal.Zero
	}

	return model.BudgetEvaluation{
		MonthlyTotal:  total,
		BudgetLimit:   limit,
		Percentage:    pct,
		RawPercentage: raw,
		IsOverBudget:  total.GreaterThan(limit),
		Excess:        excess,
	}
}
