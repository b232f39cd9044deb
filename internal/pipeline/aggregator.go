// Package pipeline computes projections, budget evaluations and aggregate
// views over a user's subscriptions, and repairs stale billing dates.
package pipeline

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/subburn/internal/billing"
	"github.com/theirongolddev/subburn/internal/model"
)

// Uncategorized labels subscriptions without a category.
const Uncategorized = "Uncategorized"

// AggregateCategories groups billable subscriptions by category, sorted by
// monthly-equivalent cost descending and then by name.
func AggregateCategories(subs []model.Subscription) []model.CategoryStats {
	catMap := make(map[string]*model.CategoryStats)
	total := decimal.Zero

	for _, s := range subs {
		if !s.IsBillable() {
			continue
		}
		name := strings.TrimSpace(s.Category)
		if name == "" {
			name = Uncategorized
		}
		cs, ok := catMap[name]
		if !ok {
			cs = &model.CategoryStats{Category: name, MonthlyTotal: decimal.Zero}
			catMap[name] = cs
		}
		monthly := billing.SubscriptionMonthly(s)
		cs.Count++
		cs.MonthlyTotal = cs.MonthlyTotal.Add(monthly)
		total = total.Add(monthly)
	}

	cats := make([]model.CategoryStats, 0, len(catMap))
	for _, cs := range catMap {
		if total.IsPositive() {
			cs.SharePercent = cs.MonthlyTotal.Div(total).Mul(hundred).InexactFloat64()
		}
		cats = append(cats, *cs)
	}
	sort.Slice(cats, func(i, j int) bool {
		if c := cats[i].MonthlyTotal.Cmp(cats[j].MonthlyTotal); c != 0 {
			return c > 0
		}
		return cats[i].Category < cats[j].Category
	})
	return cats
}

// AggregateCycles groups billable subscriptions by billing cycle, in
// weekly, monthly, yearly order. Cycles with no subscriptions are omitted.
func AggregateCycles(subs []model.Subscription) []model.CycleStats {
	order := []model.BillingCycle{model.CycleWeekly, model.CycleMonthly, model.CycleYearly}
	byCycle := make(map[model.BillingCycle]*model.CycleStats, len(order))
	for _, c := range order {
		byCycle[c] = &model.CycleStats{Cycle: c, NativeTotal: decimal.Zero, MonthlyTotal: decimal.Zero}
	}

	for _, s := range subs {
		if !s.IsBillable() {
			continue
		}
		cs := byCycle[s.BillingCycle.Normalize()]
		cs.Count++
		cs.NativeTotal = cs.NativeTotal.Add(s.Price)
		cs.MonthlyTotal = cs.MonthlyTotal.Add(billing.SubscriptionMonthly(s))
	}

	out := make([]model.CycleStats, 0, len(order))
	for _, c := range order {
		if byCycle[c].Count > 0 {
			out = append(out, *byCycle[c])
		}
	}
	return out
}

// UpcomingRenewals returns billable subscriptions due within days of today,
// soonest first. Ties are broken by name. Subscriptions with a missing date
// are skipped.
func UpcomingRenewals(subs []model.Subscription, today time.Time, days int) []model.Renewal {
	var out []model.Renewal
	for _, s := range subs {
		if !s.IsBillable() {
			continue
		}
		n, err := billing.DaysUntil(s.NextBillingDate, today)
		if err != nil || n > days {
			continue
		}
		out = append(out, model.Renewal{Subscription: s, DaysUntil: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DaysUntil != out[j].DaysUntil {
			return out[i].DaysUntil < out[j].DaysUntil
		}
		return strings.ToLower(out[i].Subscription.Name) < strings.ToLower(out[j].Subscription.Name)
	})
	return out
}

// FilterByStatus returns subscriptions whose status is one of statuses.
func FilterByStatus(subs []model.Subscription, statuses ...model.Status) []model.Subscription {
	if len(statuses) == 0 {
		return subs
	}
	want := make(map[model.Status]struct{}, len(statuses))
	for _, st := range statuses {
		want[st] = struct{}{}
	}
	var result []model.Subscription
	for _, s := range subs {
		if _, ok := want[s.Status]; ok {
			result = append(result, s)
		}
	}
	return result
}

// FilterByCategory returns subscriptions whose category contains the substring.
func FilterByCategory(subs []model.Subscription, category string) []model.Subscription {
	if category == "" {
		return subs
	}
	var result []model.Subscription
	for _, s := range subs {
		if containsIgnoreCase(s.Category, category) {
			result = append(result, s)
		}
	}
	return result
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
