package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthProjection is the expected spend for one calendar month.
type MonthProjection struct {
	Month  time.Time       `json:"month"` // first day of the month, UTC
	Label  string          `json:"label"` // YYYY-MM
	Amount decimal.Decimal `json:"amount"`
}

// ProjectionStats summarizes a projection series.
type ProjectionStats struct {
	Average decimal.Decimal `json:"average"`
	Maximum decimal.Decimal `json:"maximum"`
	Minimum decimal.Decimal `json:"minimum"`
}

// CategoryStats holds monthly-equivalent spend for one category.
type CategoryStats struct {
	Category     string          `json:"category"`
	Count        int             `json:"count"`
	MonthlyTotal decimal.Decimal `json:"monthly_total"`
	SharePercent float64         `json:"share_percent"`
}

// CycleStats holds monthly-equivalent spend for one billing cycle.
type CycleStats struct {
	Cycle        BillingCycle    `json:"cycle"`
	Count        int             `json:"count"`
	NativeTotal  decimal.Decimal `json:"native_total"`
	MonthlyTotal decimal.Decimal `json:"monthly_total"`
}

// Renewal is a subscription charge falling due soon.
type Renewal struct {
	Subscription Subscription `json:"subscription"`
	DaysUntil    int          `json:"days_until"`
}
