package pipeline

import (
	"testing"

	"github.com/theirongolddev/subburn/internal/model"
)

func TestEvaluateBudget_UnderLimit(t *testing.T) {
	next := mustDate(t, "2026-11-01")
	subs := []model.Subscription{
		sub("a", "15.99", model.CycleMonthly, next),
		sub("b", "10", model.CycleMonthly, next),
	}
	ev := EvaluateBudget(subs, dec("100"))

	if !ev.MonthlyTotal.Equal(dec("25.99")) {
		t.Errorf("MonthlyTotal = %s, want 25.99", ev.MonthlyTotal)
	}
	if ev.IsOverBudget {
		t.Error("IsOverBudget = true, want false")
	}
	if !ev.Excess.IsZero() {
		t.Errorf("Excess = %s, want 0", ev.Excess)
	}
	if !ev.Percentage.Equal(dec("25.99")) {
		t.Errorf("Percentage = %s, want 25.99", ev.Percentage)
	}
}

func TestEvaluateBudget_OverLimit(t *testing.T) {
	next := mustDate(t, "2026-11-01")
	subs := []model.Subscription{
		sub("a", "15.99", model.CycleMonthly, next),
		sub("b", "10", model.CycleMonthly, next),
	}
	ev := EvaluateBudget(subs, dec("20"))

	if !ev.IsOverBudget {
		t.Fatal("IsOverBudget = false, want true")
	}
	if !ev.Excess.Equal(dec("5.99")) {
		t.Errorf("Excess = %s, want 5.99", ev.Excess)
	}
	if !ev.Percentage.Equal(dec("100")) {
		t.Errorf("Percentage = %s, want capped 100", ev.Percentage)
	}
	if !ev.RawPercentage.GreaterThan(dec("100")) {
		t.Errorf("RawPercentage = %s, want > 100", ev.RawPercentage)
	}
}

func TestEvaluateBudget_ExactlyAtLimit(t *testing.T) {
	subs := []model.Subscription{sub("a", "50", model.CycleMonthly, mustDate(t, "2026-11-01"))}
	ev := EvaluateBudget(subs, dec("50"))

	if ev.IsOverBudget {
		t.Error("total == limit must not be over budget")
	}
	if !ev.Excess.IsZero() {
		t.Errorf("Excess = %s, want 0", ev.Excess)
	}
	if !ev.Percentage.Equal(dec("100")) {
		t.Errorf("Percentage = %s, want 100", ev.Percentage)
	}
}

func TestEvaluateBudget_NonPositiveLimitUsesDefault(t *testing.T) {
	subs := []model.Subscription{sub("a", "150", model.CycleMonthly, mustDate(t, "2026-11-01"))}
	for _, limit := range []string{"0", "-10"} {
		ev := EvaluateBudget(subs, dec(limit))
		if !ev.BudgetLimit.Equal(model.DefaultBudgetLimit) {
			t.Errorf("limit %s: BudgetLimit = %s, want default", limit, ev.BudgetLimit)
		}
		if !ev.Excess.Equal(dec("50")) {
			t.Errorf("limit %s: Excess = %s, want 50", limit, ev.Excess)
		}
	}
}

func TestEvaluateBudget_OnlyActiveCounts(t *testing.T) {
	next := mustDate(t, "2026-11-01")
	trial := sub("t", "500", model.CycleMonthly, next)
	trial.Status = model.StatusTrial
	expired := sub("e", "500", model.CycleMonthly, next)
	expired.Status = model.StatusExpired
	subs := []model.Subscription{
		sub("a", "30", model.CycleMonthly, next),
		trial,
		expired,
	}

	ev := EvaluateBudget(subs, dec("100"))
	if !ev.MonthlyTotal.Equal(dec("30")) {
		t.Errorf("MonthlyTotal = %s, want 30", ev.MonthlyTotal)
	}
	if got := SpendTotal(subs); !got.Equal(dec("530")) {
		t.Errorf("SpendTotal = %s, want 530", got)
	}
}

func TestEvaluateBudget_MixedCycles(t *testing.T) {
	next := mustDate(t, "2026-11-01")
	subs := []model.Subscription{
		sub("w", "5", model.CycleWeekly, next),
		sub("y", "120", model.CycleYearly, next),
	}
	ev := EvaluateBudget(subs, dec("100"))
	if !ev.MonthlyTotal.Equal(dec("31.65")) {
		t.Errorf("MonthlyTotal = %s, want 31.65", ev.MonthlyTotal)
	}
}

func TestEvaluateBudget_EmptyInput(t *testing.T) {
	ev := EvaluateBudget(nil, dec("100"))
	if ev.IsOverBudget || !ev.MonthlyTotal.IsZero() || !ev.Percentage.IsZero() {
		t.Errorf("empty evaluation = %+v", ev)
	}
}
