package pipeline

import (
	"testing"
	"time"

	"github.com/theirongolddev/subburn/internal/model"
)

func TestAggregateCategories(t *testing.T) {
	next := mustDate(t, "2026-11-01")
	music := sub("spotify", "10", model.CycleMonthly, next)
	music.Category = "Music"
	video := sub("netflix", "15", model.CycleMonthly, next)
	video.Category = "Video"
	video2 := sub("disney", "120", model.CycleYearly, next)
	video2.Category = "Video"
	none := sub("misc", "5", model.CycleMonthly, next)
	gone := sub("old", "99", model.CycleMonthly, next)
	gone.Category = "Music"
	gone.Status = model.StatusCancelled

	cats := AggregateCategories([]model.Subscription{music, video, video2, none, gone})
	if len(cats) != 3 {
		t.Fatalf("len = %d, want 3", len(cats))
	}
	if cats[0].Category != "Video" || cats[0].Count != 2 || !cats[0].MonthlyTotal.Equal(dec("25")) {
		t.Errorf("cats[0] = %+v", cats[0])
	}
	if cats[1].Category != "Music" || cats[2].Category != Uncategorized {
		t.Errorf("order = %s, %s", cats[1].Category, cats[2].Category)
	}
	if cats[0].SharePercent < 62.4 || cats[0].SharePercent > 62.6 {
		t.Errorf("Video share = %f, want 62.5", cats[0].SharePercent)
	}
}

func TestAggregateCycles(t *testing.T) {
	next := mustDate(t, "2026-11-01")
	subs := []model.Subscription{
		sub("y", "120", model.CycleYearly, next),
		sub("w", "5", model.CycleWeekly, next),
		sub("w2", "1", model.CycleWeekly, next),
	}
	cycles := AggregateCycles(subs)
	if len(cycles) != 2 {
		t.Fatalf("len = %d, want 2 (monthly omitted)", len(cycles))
	}
	if cycles[0].Cycle != model.CycleWeekly || cycles[0].Count != 2 {
		t.Errorf("cycles[0] = %+v", cycles[0])
	}
	if !cycles[0].NativeTotal.Equal(dec("6")) || !cycles[0].MonthlyTotal.Equal(dec("25.98")) {
		t.Errorf("weekly totals = %s / %s", cycles[0].NativeTotal, cycles[0].MonthlyTotal)
	}
	if cycles[1].Cycle != model.CycleYearly || !cycles[1].MonthlyTotal.Equal(dec("10")) {
		t.Errorf("cycles[1] = %+v", cycles[1])
	}
}

func TestUpcomingRenewals(t *testing.T) {
	today := mustDate(t, "2026-10-15")
	b := sub("b", "1", model.CycleMonthly, mustDate(t, "2026-10-18"))
	b.Name = "beta"
	a := sub("a", "1", model.CycleMonthly, mustDate(t, "2026-10-18"))
	a.Name = "Alpha"
	soon := sub("s", "1", model.CycleMonthly, today)
	late := sub("l", "1", model.CycleMonthly, mustDate(t, "2026-11-30"))
	trial := sub("t", "1", model.CycleMonthly, mustDate(t, "2026-10-20"))
	trial.Status = model.StatusTrial
	noDate := sub("n", "1", model.CycleMonthly, time.Time{})

	got := UpcomingRenewals([]model.Subscription{b, a, soon, late, trial, noDate}, today, 7)
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	wantOrder := []string{"s", "a", "b", "t"}
	for i, id := range wantOrder {
		if got[i].Subscription.ID != id {
			t.Errorf("got[%d] = %s, want %s", i, got[i].Subscription.ID, id)
		}
	}
	if got[0].DaysUntil != 0 || got[1].DaysUntil != 3 {
		t.Errorf("days = %d, %d", got[0].DaysUntil, got[1].DaysUntil)
	}
}

func TestFilters(t *testing.T) {
	next := mustDate(t, "2026-11-01")
	a := sub("a", "1", model.CycleMonthly, next)
	a.Category = "Streaming Video"
	b := sub("b", "1", model.CycleMonthly, next)
	b.Status = model.StatusTrial
	subs := []model.Subscription{a, b}

	if got := FilterByStatus(subs, model.StatusTrial); len(got) != 1 || got[0].ID != "b" {
		t.Errorf("FilterByStatus = %+v", got)
	}
	if got := FilterByStatus(subs); len(got) != 2 {
		t.Errorf("FilterByStatus() with no statuses = %d, want all", len(got))
	}
	if got := FilterByCategory(subs, "video"); len(got) != 1 || got[0].ID != "a" {
		t.Errorf("FilterByCategory = %+v", got)
	}
}
