package pipeline

import (
	"testing"

	"github.com/theirongolddev/subburn/internal/model"
)

func TestProjectMonths_YearlyLandsOnce(t *testing.T) {
	today := mustDate(t, "2026-10-15")
	subs := []model.Subscription{sub("y", "120", model.CycleYearly, mustDate(t, "2027-03-10"))}

	months := ProjectMonths(subs, today, 12)
	if len(months) != 12 {
		t.Fatalf("len = %d, want 12", len(months))
	}

	hits := 0
	for _, m := range months {
		if m.Amount.Equal(dec("120")) {
			hits++
			if m.Label != "2027-03" {
				t.Errorf("yearly charge landed in %s, want 2027-03", m.Label)
			}
		} else if !m.Amount.IsZero() {
			t.Errorf("%s amount = %s, want 0", m.Label, m.Amount)
		}
	}
	if hits != 1 {
		t.Fatalf("yearly charge landed %d times, want 1", hits)
	}
}

func TestProjectMonths_WeeklyEveryMonth(t *testing.T) {
	today := mustDate(t, "2026-10-15")
	subs := []model.Subscription{sub("w", "5", model.CycleWeekly, mustDate(t, "2026-10-20"))}

	for _, m := range ProjectMonths(subs, today, 12) {
		if !m.Amount.Equal(dec("21.65")) {
			t.Errorf("%s amount = %s, want 21.65", m.Label, m.Amount)
		}
	}
}

func TestProjectMonths_MixedAndRounded(t *testing.T) {
	today := mustDate(t, "2026-10-01")
	subs := []model.Subscription{
		sub("m", "15.99", model.CycleMonthly, mustDate(t, "2026-10-05")),
		sub("w", "2.99", model.CycleWeekly, mustDate(t, "2026-10-03")),
		sub("y", "99", model.CycleYearly, mustDate(t, "2026-10-20")),
		sub("x", "7", model.BillingCycle("biweekly"), mustDate(t, "2026-10-20")),
	}
	cancelled := sub("c", "50", model.CycleMonthly, mustDate(t, "2026-10-20"))
	cancelled.Status = model.StatusCancelled
	trial := sub("t", "50", model.CycleMonthly, mustDate(t, "2026-10-20"))
	trial.Status = model.StatusTrial
	subs = append(subs, cancelled, trial)

	months := ProjectMonths(subs, today, 12)

	// 15.99 + 2.99*4.33 (12.9467) + 7 = 35.9367 -> 35.94, plus 99 in October.
	if got := months[0].Amount; !got.Equal(dec("134.94")) {
		t.Errorf("October = %s, want 134.94", got)
	}
	for _, m := range months[1:] {
		if !m.Amount.Equal(dec("35.94")) {
			t.Errorf("%s = %s, want 35.94", m.Label, m.Amount)
		}
	}
}

func TestProjectMonths_StaleYearlyStillAnchorsByMonth(t *testing.T) {
	today := mustDate(t, "2026-10-15")
	// Billed in March two years ago and never rolled forward.
	subs := []model.Subscription{sub("y", "120", model.CycleYearly, mustDate(t, "2024-03-10"))}

	months := ProjectMonths(subs, today, 12)
	for _, m := range months {
		want := "0"
		if m.Label == "2027-03" {
			want = "120"
		}
		if !m.Amount.Equal(dec(want)) {
			t.Errorf("%s = %s, want %s", m.Label, m.Amount, want)
		}
	}
}

func TestProjectMonths_DefaultHorizonAndLabels(t *testing.T) {
	months := ProjectMonths(nil, mustDate(t, "2026-11-30"), 0)
	if len(months) != DefaultHorizonMonths {
		t.Fatalf("len = %d, want %d", len(months), DefaultHorizonMonths)
	}
	if months[0].Label != "2026-11" || months[1].Label != "2026-12" || months[2].Label != "2027-01" {
		t.Errorf("labels = %s %s %s", months[0].Label, months[1].Label, months[2].Label)
	}
	for _, m := range months {
		if !m.Amount.IsZero() {
			t.Errorf("%s = %s, want 0", m.Label, m.Amount)
		}
	}
}

func TestProjectMonths_Restartable(t *testing.T) {
	today := mustDate(t, "2026-10-15")
	subs := []model.Subscription{sub("m", "10", model.CycleMonthly, today)}
	a := ProjectMonths(subs, today, 3)
	a[0].Amount = dec("999")
	b := ProjectMonths(subs, today, 3)
	if !b[0].Amount.Equal(dec("10")) {
		t.Fatalf("second call saw mutated state: %s", b[0].Amount)
	}
}

func TestSummarizeProjection(t *testing.T) {
	today := mustDate(t, "2026-10-15")
	subs := []model.Subscription{
		sub("m", "10", model.CycleMonthly, today),
		sub("y", "120", model.CycleYearly, mustDate(t, "2027-01-01")),
	}
	stats := SummarizeProjection(ProjectMonths(subs, today, 12))

	if !stats.Maximum.Equal(dec("130")) {
		t.Errorf("Maximum = %s, want 130", stats.Maximum)
	}
	if !stats.Minimum.Equal(dec("10")) {
		t.Errorf("Minimum = %s, want 10", stats.Minimum)
	}
	if !stats.Average.Equal(dec("20")) {
		t.Errorf("Average = %s, want 20", stats.Average)
	}

	empty := SummarizeProjection(nil)
	if !empty.Average.IsZero() || !empty.Maximum.IsZero() || !empty.Minimum.IsZero() {
		t.Errorf("empty stats = %+v", empty)
	}
}

func TestCountStale(t *testing.T) {
	today := mustDate(t, "2026-10-15")
	expired := sub("e", "1", model.CycleMonthly, mustDate(t, "2026-01-01"))
	expired.Status = model.StatusExpired
	subs := []model.Subscription{
		sub("a", "1", model.CycleMonthly, mustDate(t, "2026-10-14")),
		sub("b", "1", model.CycleMonthly, today),
		expired,
	}
	if n := CountStale(subs, today); n != 1 {
		t.Errorf("CountStale = %d, want 1", n)
	}
}

func BenchmarkProjectMonths(b *testing.B) {
	today := mustDate(b, "2026-10-15")
	subs := make([]model.Subscription, 0, 300)
	cycles := []model.BillingCycle{model.CycleWeekly, model.CycleMonthly, model.CycleYearly}
	for i := 0; i < 300; i++ {
		subs = append(subs, sub("s", "9.99", cycles[i%3], today.AddDate(0, i%12, 0)))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ProjectMonths(subs, today, 12)
	}
}
