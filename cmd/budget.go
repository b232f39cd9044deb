package cmd

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/subburn/internal/cli"
	"github.com/theirongolddev/subburn/internal/model"
	"github.com/theirongolddev/subburn/internal/pipeline"
)

var (
	flagBudgetLimit  string
	flagBudgetAlerts bool
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Compare monthly spend to the budget limit",
	RunE:  runBudget,
}

var budgetSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the monthly budget limit and alert preference",
	RunE:  runBudgetSet,
}

func init() {
	budgetSetCmd.Flags().StringVar(&flagBudgetLimit, "limit", "", "Monthly budget limit")
	budgetSetCmd.Flags().BoolVar(&flagBudgetAlerts, "alerts", true, "Send an alert when the budget is exceeded")

	budgetCmd.AddCommand(budgetSetCmd)
	rootCmd.AddCommand(budgetCmd)
}

func runBudget(cmd *cobra.Command, _ []string) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	setting, err := st.GetBudgetSetting(cmd.Context(), userID())
	if err != nil {
		return err
	}
	subs, err := st.ListSubscriptions(cmd.Context(), userID())
	if err != nil {
		return err
	}

	ev := pipeline.EvaluateBudget(subs, setting.EffectiveLimit())
	currency := primaryCurrency(subs)

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("BUDGET  %s", userID())))
	fmt.Println()
	fmt.Print(renderBudget(ev, setting, currency))
	return nil
}

func renderBudget(ev model.BudgetEvaluation, setting model.BudgetSetting, currency string) string {
	alerts := "on"
	if !setting.AlertsEnabled {
		alerts = "off"
	}
	status := "within budget"
	if ev.IsOverBudget {
		status = cli.Over(fmt.Sprintf("over by %s (%s of limit)",
			cli.FormatMoney(ev.Excess, currency),
			cli.FormatPercent(ev.RawPercentage)))
	}

	rows := [][]string{
		{"Monthly spend", cli.FormatMoney(ev.MonthlyTotal, currency)},
		{"Budget limit", cli.FormatMoney(ev.BudgetLimit, currency)},
		{"Used", cli.RenderBudgetBar(ev.Percentage, ev.IsOverBudget, 24)},
		{"Status", status},
		{"Alerts", alerts},
	}
	return cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	})
}

func runBudgetSet(cmd *cobra.Command, _ []string) error {
	if flagBudgetLimit == "" && !cmd.Flags().Changed("alerts") {
		return fmt.Errorf("nothing to set: pass --limit and/or --alerts")
	}

	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	setting, err := st.GetBudgetSetting(cmd.Context(), userID())
	if err != nil {
		return err
	}
	if flagBudgetLimit != "" {
		limit, err := decimal.NewFromString(flagBudgetLimit)
		if err != nil || !limit.IsPositive() {
			return fmt.Errorf("invalid budget limit %q", flagBudgetLimit)
		}
		setting.BudgetLimit = limit
	}
	if cmd.Flags().Changed("alerts") {
		setting.AlertsEnabled = flagBudgetAlerts
	}
	setting.UserID = userID()

	if err := st.SaveBudgetSetting(cmd.Context(), setting); err != nil {
		return fmt.Errorf("saving budget: %w", err)
	}
	fmt.Printf("  Budget for %s: %s/mo, alerts %v\n", userID(), setting.BudgetLimit.StringFixed(2), setting.AlertsEnabled)
	return nil
}

// primaryCurrency returns the most common currency among active subscriptions.
// Amounts are not converted; mixed currencies are summed as-is.
func primaryCurrency(subs []model.Subscription) string {
	counts := make(map[string]int)
	best, bestN := "USD", 0
	for _, s := range subs {
		if !s.IsBillable() || s.Currency == "" {
			continue
		}
		counts[s.Currency]++
		if n := counts[s.Currency]; n > bestN || (n == bestN && s.Currency < best) {
			best, bestN = s.Currency, n
		}
	}
	return best
}
