package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/subburn/internal/model"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func testSub(id, user, name, price string, next time.Time) model.Subscription {
	return model.Subscription{
		ID:              id,
		UserID:          user,
		Name:            name,
		Price:           decimal.RequireFromString(price),
		Currency:        "EUR",
		BillingCycle:    model.CycleMonthly,
		NextBillingDate: next,
		Status:          model.StatusActive,
		Category:        "Video",
	}
}

// runStoreContract exercises behavior both backends must share.
func runStoreContract(t *testing.T, st Store) {
	ctx := context.Background()

	t.Run("subscriptions", func(t *testing.T) {
		next := mustDate(t, "2026-11-03")
		if err := st.SaveSubscription(ctx, testSub("s1", "alice", "Netflix", "15.99", next)); err != nil {
			t.Fatalf("SaveSubscription: %v", err)
		}
		if err := st.SaveSubscription(ctx, testSub("s2", "alice", "apple tv", "9.999", time.Time{})); err != nil {
			t.Fatalf("SaveSubscription: %v", err)
		}
		if err := st.SaveSubscription(ctx, testSub("s3", "bob", "Spotify", "10", next)); err != nil {
			t.Fatalf("SaveSubscription: %v", err)
		}

		got, err := st.GetSubscription(ctx, "s1")
		if err != nil {
			t.Fatalf("GetSubscription: %v", err)
		}
		if !got.Price.Equal(decimal.RequireFromString("15.99")) || !got.NextBillingDate.Equal(next) {
			t.Errorf("got = %+v", got)
		}
		if got.CreatedAt.IsZero() {
			t.Error("CreatedAt not set")
		}

		subs, err := st.ListSubscriptions(ctx, "alice")
		if err != nil {
			t.Fatalf("ListSubscriptions: %v", err)
		}
		if len(subs) != 2 || subs[0].ID != "s2" {
			t.Fatalf("subs = %+v", subs)
		}
		if !subs[0].NextBillingDate.IsZero() {
			t.Errorf("missing date came back as %v", subs[0].NextBillingDate)
		}
		if !subs[0].Price.Equal(decimal.RequireFromString("9.999")) {
			t.Errorf("price precision lost: %s", subs[0].Price)
		}

		if _, err := st.GetSubscription(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("missing id err = %v", err)
		}
	})

	t.Run("update and cancel", func(t *testing.T) {
		repaired := mustDate(t, "2026-12-03")
		if err := st.UpdateNextBillingDate(ctx, "s1", repaired); err != nil {
			t.Fatalf("UpdateNextBillingDate: %v", err)
		}
		got, _ := st.GetSubscription(ctx, "s1")
		if !got.NextBillingDate.Equal(repaired) {
			t.Errorf("next = %v, want %v", got.NextBillingDate, repaired)
		}

		if err := st.CancelSubscription(ctx, "s3"); err != nil {
			t.Fatalf("CancelSubscription: %v", err)
		}
		got, _ = st.GetSubscription(ctx, "s3")
		if got.Status != model.StatusCancelled {
			t.Errorf("status = %s", got.Status)
		}

		if err := st.UpdateNextBillingDate(ctx, "nope", repaired); !errors.Is(err, ErrNotFound) {
			t.Errorf("update missing err = %v", err)
		}
		if err := st.CancelSubscription(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("cancel missing err = %v", err)
		}
	})

	t.Run("budget settings", func(t *testing.T) {
		b, err := st.GetBudgetSetting(ctx, "carol")
		if err != nil {
			t.Fatalf("GetBudgetSetting: %v", err)
		}
		if !b.BudgetLimit.Equal(model.DefaultBudgetLimit) || !b.AlertsEnabled {
			t.Errorf("default setting = %+v", b)
		}

		want := model.BudgetSetting{UserID: "carol", BudgetLimit: decimal.RequireFromString("45.50")}
		if err := st.SaveBudgetSetting(ctx, want); err != nil {
			t.Fatalf("SaveBudgetSetting: %v", err)
		}
		b, err = st.GetBudgetSetting(ctx, "carol")
		if err != nil {
			t.Fatalf("GetBudgetSetting: %v", err)
		}
		if !b.BudgetLimit.Equal(want.BudgetLimit) || b.AlertsEnabled {
			t.Errorf("saved setting = %+v", b)
		}
	})

	t.Run("alert ledger", func(t *testing.T) {
		at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
		day := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

		has, err := st.HasAlert(ctx, "alice", model.AlertTypeBudget, day, day.Add(24*time.Hour))
		if err != nil || has {
			t.Fatalf("HasAlert before = %v, %v", has, err)
		}

		rec := model.AlertRecord{UserID: "alice", Type: model.AlertTypeBudget, CreatedAt: at}
		if err := st.RecordAlert(ctx, rec); err != nil {
			t.Fatalf("RecordAlert: %v", err)
		}
		has, err = st.HasAlert(ctx, "alice", model.AlertTypeBudget, day, day.Add(24*time.Hour))
		if err != nil || !has {
			t.Fatalf("HasAlert after = %v, %v", has, err)
		}

		// Same day, later hour: the ledger refuses a second entry.
		rec.CreatedAt = at.Add(5 * time.Hour)
		if err := st.RecordAlert(ctx, rec); !errors.Is(err, ErrAlertExists) {
			t.Fatalf("duplicate RecordAlert err = %v, want ErrAlertExists", err)
		}

		// Next day is a new bucket.
		next := day.Add(24 * time.Hour)
		has, _ = st.HasAlert(ctx, "alice", model.AlertTypeBudget, next, next.Add(24*time.Hour))
		if has {
			t.Error("alert leaked into next day")
		}
		if err := st.RecordAlert(ctx, model.AlertRecord{ID: "next-day", UserID: "alice", Type: model.AlertTypeBudget, CreatedAt: next.Add(time.Hour)}); err != nil {
			t.Fatalf("next day RecordAlert: %v", err)
		}

		alerts, err := st.ListAlerts(ctx, "alice", 10)
		if err != nil {
			t.Fatalf("ListAlerts: %v", err)
		}
		if len(alerts) != 2 || alerts[0].ID != "next-day" || alerts[1].Day != "2026-10-15" {
			t.Fatalf("alerts = %+v", alerts)
		}

		if err := st.DeleteAlert(ctx, "next-day"); err != nil {
			t.Fatalf("DeleteAlert: %v", err)
		}
		has, _ = st.HasAlert(ctx, "alice", model.AlertTypeBudget, next, next.Add(24*time.Hour))
		if has {
			t.Error("deleted alert still visible")
		}
	})

	t.Run("user ids", func(t *testing.T) {
		ids, err := st.ListUserIDs(ctx)
		if err != nil {
			t.Fatalf("ListUserIDs: %v", err)
		}
		want := []string{"alice", "bob", "carol"}
		if len(ids) != len(want) {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
		for i := range want {
			if ids[i] != want[i] {
				t.Errorf("ids[%d] = %s, want %s", i, ids[i], want[i])
			}
		}
	})
}

func TestIsPostgresDSN(t *testing.T) {
	tests := map[string]bool{
		"postgres://u@localhost/db":   true,
		"postgresql://u@localhost/db": true,
		"/tmp/subburn.db":             false,
		"file:subburn.db":             false,
	}
	for dsn, want := range tests {
		if got := IsPostgresDSN(dsn); got != want {
			t.Errorf("IsPostgresDSN(%q) = %v, want %v", dsn, got, want)
		}
	}
}
