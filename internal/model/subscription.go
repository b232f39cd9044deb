// Package model defines domain types for subscriptions, budgets and alerts.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingCycle is the recurrence period of a subscription charge.
type BillingCycle string

const (
	CycleWeekly  BillingCycle = "weekly"
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
)

// Normalize maps unknown cycles to monthly. It never fails.
func (c BillingCycle) Normalize() BillingCycle {
	switch c {
	case CycleWeekly, CycleMonthly, CycleYearly:
		return c
	default:
		return CycleMonthly
	}
}

// IsKnown reports whether c is one of the three supported cycles.
func (c BillingCycle) IsKnown() bool {
	return c.Normalize() == c
}

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusActive    Status = "active"
	StatusTrial     Status = "trial"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Subscription is one recurring charge owned by a user.
type Subscription struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	Currency        string          `json:"currency"`
	BillingCycle    BillingCycle    `json:"billing_cycle"`
	NextBillingDate time.Time       `json:"next_billing_date"`
	Status          Status          `json:"status"`
	Category        string          `json:"category,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsActive reports whether the subscription counts toward budgets and projections.
func (s Subscription) IsActive() bool {
	return s.Status == StatusActive
}

// IsBillable reports whether the subscription counts toward displayed spend totals.
// Trials are included so users see what they will pay once the trial converts.
func (s Subscription) IsBillable() bool {
	return s.Status == StatusActive || s.Status == StatusTrial
}
