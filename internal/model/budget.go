package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultBudgetLimit applies when a user has not configured a limit.
var DefaultBudgetLimit = decimal.NewFromInt(100)

// BudgetSetting holds one user's budget preferences.
type BudgetSetting struct {
	UserID        string          `json:"user_id"`
	BudgetLimit   decimal.Decimal `json:"budget_limit"`
	AlertsEnabled bool            `json:"budget_alerts_enabled"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// EffectiveLimit returns the configured limit, or the default when unset or non-positive.
func (b BudgetSetting) EffectiveLimit() decimal.Decimal {
	if !b.BudgetLimit.IsPositive() {
		return DefaultBudgetLimit
	}
	return b.BudgetLimit
}

// BudgetEvaluation is the result of comparing monthly spend to a limit.
type BudgetEvaluation struct {
	MonthlyTotal  decimal.Decimal `json:"monthly_total"`
	BudgetLimit   decimal.Decimal `json:"budget_limit"`
	Percentage    decimal.Decimal `json:"percentage"`     // capped at 100
	RawPercentage decimal.Decimal `json:"raw_percentage"` // uncapped
	IsOverBudget  bool            `json:"is_over_budget"`
	Excess        decimal.Decimal `json:"excess"`
}

// AlertTypeBudget marks budget-exceeded ledger entries.
const AlertTypeBudget = "budget_alert"

// AlertRecord is one entry in the append-only alert ledger.
type AlertRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Day       string    `json:"day"` // UTC YYYY-MM-DD of CreatedAt
	CreatedAt time.Time `json:"created_at"`
}
