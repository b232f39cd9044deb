package cli

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/subburn/internal/model"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"0", "USD", "$0.00"},
		{"15.99", "usd", "$15.99"},
		{"1234.5", "EUR", "€1,234.50"},
		{"1234567.891", "GBP", "£1,234,567.89"},
		{"12", "CHF", "12.00 CHF"},
		{"9.999", "", "10.00"},
		{"-5.5", "USD", "-$5.50"},
	}
	for _, tt := range tests {
		got := FormatMoney(decimal.RequireFromString(tt.amount), tt.currency)
		if got != tt.want {
			t.Errorf("FormatMoney(%s, %q) = %q, want %q", tt.amount, tt.currency, got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[int64]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		1234567:  "1,234,567",
		-1234567: "-1,234,567",
	}
	for in, want := range tests {
		if got := FormatNumber(in); got != want {
			t.Errorf("FormatNumber(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDelta(t *testing.T) {
	d := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }
	if got := FormatDelta(d("30"), d("25.5"), "USD"); got != "+$4.50" {
		t.Errorf("up = %q", got)
	}
	if got := FormatDelta(d("20"), d("25.5"), "USD"); got != "-$5.50" {
		t.Errorf("down = %q", got)
	}
}

func TestFormatDaysUntil(t *testing.T) {
	for in, want := range map[int]string{0: "today", 1: "tomorrow", 6: "in 6 days"} {
		if got := FormatDaysUntil(in); got != want {
			t.Errorf("FormatDaysUntil(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatStatusAndPercent(t *testing.T) {
	if FormatStatus(model.StatusTrial) != "trial" || FormatStatus("weird") != "unknown" {
		t.Error("FormatStatus mismatch")
	}
	if got := FormatPercent(decimal.RequireFromString("25.99")); got != "26.0%" {
		t.Errorf("FormatPercent = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("Disney Plus Premium", 10); got != "Disney Pl…" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate = %q", got)
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(Table{
		Title:   "Costs",
		Headers: []string{"Name", "Monthly"},
		Rows: [][]string{
			{"Netflix", "€15.99"},
			{"---"},
			{"Total", "€15.99"},
		},
	})
	for _, want := range []string{"Costs", "Name", "Netflix", "€15.99", "Total"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if got := strings.Count(out, "\n"); got != 8 {
		t.Errorf("lines = %d, want 8:\n%s", got, out)
	}
	if RenderTable(Table{}) != "" {
		t.Error("empty table rendered output")
	}
}

func TestRenderSparkline(t *testing.T) {
	got := RenderSparkline([]float64{0, 5, 10})
	if got != "▁▄█" {
		t.Errorf("RenderSparkline = %q", got)
	}
	if RenderSparkline(nil) != "" {
		t.Error("nil sparkline not empty")
	}
}

func TestRenderBudgetBar(t *testing.T) {
	out := RenderBudgetBar(decimal.NewFromInt(50), false, 10)
	if !strings.Contains(out, "█████░░░░░") || !strings.Contains(out, "50.0%") {
		t.Errorf("bar = %q", out)
	}
	full := RenderBudgetBar(decimal.NewFromInt(100), true, 4)
	if !strings.Contains(full, "████") {
		t.Errorf("full bar = %q", full)
	}
}
