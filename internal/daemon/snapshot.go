package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/subburn/internal/model"
	"github.com/theirongolddev/subburn/internal/pipeline"
)

// Snapshot is one user's billing state for status and event payloads.
type Snapshot struct {
	UserID        string                  `json:"user_id"`
	At            time.Time               `json:"at"`
	Active        int                     `json:"active"`
	Trials        int                     `json:"trials"`
	MonthlyTotal  decimal.Decimal         `json:"monthly_total"`
	SpendTotal    decimal.Decimal         `json:"spend_total"`
	BudgetLimit   decimal.Decimal         `json:"budget_limit"`
	Percentage    decimal.Decimal         `json:"percentage"`
	IsOverBudget  bool                    `json:"is_over_budget"`
	Excess        decimal.Decimal         `json:"excess"`
	Projection    []model.MonthProjection `json:"projection"`
	Stats         model.ProjectionStats   `json:"stats"`
	Upcoming      []model.Renewal         `json:"upcoming"`
	StaleBillings int                     `json:"stale_billings"`
}

// Delta captures snapshot changes between polls.
type Delta struct {
	Active       int             `json:"active"`
	Trials       int             `json:"trials"`
	MonthlyTotal decimal.Decimal `json:"monthly_total"`
	BudgetLimit  decimal.Decimal `json:"budget_limit"`
	OverBudget   bool            `json:"over_budget_changed"`
}

func (d Delta) isZero() bool {
	return d.Active == 0 &&
		d.Trials == 0 &&
		d.MonthlyTotal.IsZero() &&
		d.BudgetLimit.IsZero() &&
		!d.OverBudget
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Active:       curr.Active - prev.Active,
		Trials:       curr.Trials - prev.Trials,
		MonthlyTotal: curr.MonthlyTotal.Sub(prev.MonthlyTotal),
		BudgetLimit:  curr.BudgetLimit.Sub(prev.BudgetLimit),
		OverBudget:   curr.IsOverBudget != prev.IsOverBudget,
	}
}

func (s *Service) buildSnapshot(ctx context.Context, userID string, now time.Time) (Snapshot, error) {
	subs, err := s.store.ListSubscriptions(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading subscriptions: %w", err)
	}
	setting, err := s.store.GetBudgetSetting(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading budget setting: %w", err)
	}

	months, err := s.cache.Project(subs, now, s.cfg.HorizonMonths)
	if err != nil {
		return Snapshot{}, err
	}
	ev := pipeline.EvaluateBudget(subs, setting.EffectiveLimit())

	snap := Snapshot{
		UserID:        userID,
		At:            now,
		MonthlyTotal:  ev.MonthlyTotal.Round(2),
		SpendTotal:    pipeline.SpendTotal(subs).Round(2),
		BudgetLimit:   ev.BudgetLimit,
		Percentage:    ev.Percentage.Round(1),
		IsOverBudget:  ev.IsOverBudget,
		Excess:        ev.Excess.Round(2),
		Projection:    months,
		Stats:         pipeline.SummarizeProjection(months),
		Upcoming:      pipeline.UpcomingRenewals(subs, now, s.cfg.DueSoonDays),
		StaleBillings: pipeline.CountStale(subs, now),
	}
	for _, sub := range subs {
		switch sub.Status {
		case model.StatusActive:
			snap.Active++
		case model.StatusTrial:
			snap.Trials++
		}
	}
	return snap, nil
}
