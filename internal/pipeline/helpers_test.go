package pipeline

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/subburn/internal/model"
)

func mustDate(t testing.TB, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sub(id, price string, cycle model.BillingCycle, next time.Time) model.Subscription {
	return model.Subscription{
		ID:              id,
		UserID:          "u1",
		Name:            id,
		Price:           dec(price),
		Currency:        "EUR",
		BillingCycle:    cycle,
		NextBillingDate: next,
		Status:          model.StatusActive,
	}
}
