package cmd

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/subburn/internal/config"
	"github.com/theirongolddev/subburn/internal/model"
	"github.com/theirongolddev/subburn/internal/store"
)

func TestPrimaryCurrency(t *testing.T) {
	subs := []model.Subscription{
		{Currency: "EUR", Status: model.StatusActive},
		{Currency: "USD", Status: model.StatusActive},
		{Currency: "EUR", Status: model.StatusTrial},
		{Currency: "GBP", Status: model.StatusCancelled},
		{Currency: "GBP", Status: model.StatusCancelled},
		{Currency: "GBP", Status: model.StatusCancelled},
	}
	if got := primaryCurrency(subs); got != "EUR" {
		t.Errorf("primaryCurrency = %q, want EUR", got)
	}
	if got := primaryCurrency(nil); got != "USD" {
		t.Errorf("primaryCurrency(nil) = %q, want USD", got)
	}
}

func TestBudgetDefaults(t *testing.T) {
	ctx := context.Background()
	lite, err := store.OpenSQLite(filepath.Join(t.TempDir(), "cmd.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer lite.Close()

	st := budgetDefaults{Store: lite, limit: decimal.NewFromInt(250), enabled: false}

	got, err := st.GetBudgetSetting(ctx, "fresh")
	if err != nil {
		t.Fatal(err)
	}
	if !got.BudgetLimit.Equal(decimal.NewFromInt(250)) || got.AlertsEnabled {
		t.Errorf("unset user setting = %+v, want configured defaults", got)
	}

	saved := model.BudgetSetting{UserID: "saved", BudgetLimit: decimal.NewFromInt(40), AlertsEnabled: true}
	if err := st.SaveBudgetSetting(ctx, saved); err != nil {
		t.Fatal(err)
	}
	got, err = st.GetBudgetSetting(ctx, "saved")
	if err != nil {
		t.Fatal(err)
	}
	if !got.BudgetLimit.Equal(decimal.NewFromInt(40)) || !got.AlertsEnabled {
		t.Errorf("stored setting overridden: %+v", got)
	}
}

func TestSetupAnswersApply(t *testing.T) {
	base := config.DefaultConfig()
	base.Alerts.TelegramChats = map[string]int64{"other": 7}

	out := setupAnswers{
		UserID:    " alice ",
		Limit:     "49.99",
		Alerts:    true,
		Transport: "telegram",
		Token:     "123:abc",
		ChatID:    "4242",
	}.apply(base)

	if out.General.UserID != "alice" || out.Budget.DefaultLimit != "49.99" {
		t.Errorf("general/budget = %+v / %+v", out.General, out.Budget)
	}
	want := map[string]int64{"other": 7, "alice": 4242}
	if !reflect.DeepEqual(out.Alerts.TelegramChats, want) {
		t.Errorf("chats = %v, want %v", out.Alerts.TelegramChats, want)
	}
	if _, ok := base.Alerts.TelegramChats["alice"]; ok {
		t.Error("apply mutated the base config")
	}

	logOnly := setupAnswers{UserID: "bob", Limit: "10", Transport: "log", Token: "ignored"}.apply(config.DefaultConfig())
	if logOnly.Alerts.TelegramToken != "" {
		t.Errorf("log transport stored token %q", logOnly.Alerts.TelegramToken)
	}
}

func TestSetupValidators(t *testing.T) {
	if validLimit("0") == nil || validLimit("abc") == nil || validLimit("12.50") != nil {
		t.Error("validLimit accepted or rejected the wrong inputs")
	}
	if validChatID("-1001234") != nil || validChatID("chat") == nil {
		t.Error("validChatID accepted or rejected the wrong inputs")
	}
	if notBlank("user id")("  ") == nil {
		t.Error("notBlank accepted whitespace")
	}
}

func TestFilterDetachArg(t *testing.T) {
	got := filterDetachArg([]string{"daemon", "--detach", "--addr", ":9000", "--detach=true"})
	want := []string{"daemon", "--addr", ":9000"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("filterDetachArg = %v, want %v", got, want)
	}
}

func TestRedactDSN(t *testing.T) {
	if got := redactDSN("postgres://app:secret@db:5432/subs"); got != "postgres://app:xxxxx@db:5432/subs" {
		t.Errorf("redactDSN = %q", got)
	}
	if got := redactDSN("/tmp/subburn.db"); got != "/tmp/subburn.db" {
		t.Errorf("redactDSN(path) = %q", got)
	}
}

func TestPIDFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subburnd.pid")
	if err := writePID(path, 4321); err != nil {
		t.Fatal(err)
	}
	pid, err := readPID(path)
	if err != nil || pid != 4321 {
		t.Fatalf("readPID = %d, %v", pid, err)
	}
	if err := ensureDaemonNotRunning(filepath.Join(t.TempDir(), "missing.pid")); err != nil {
		t.Errorf("missing pid file: %v", err)
	}
}
