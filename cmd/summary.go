package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/subburn/internal/billing"
	"github.com/theirongolddev/subburn/internal/cli"
	"github.com/theirongolddev/subburn/internal/model"
	"github.com/theirongolddev/subburn/internal/pipeline"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Budget, projection and upcoming renewals at a glance",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	subs, err := st.ListSubscriptions(ctx, userID())
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		fmt.Println("\n  No subscriptions tracked yet.")
		fmt.Println("  Add one with `subburn add` or import an export with `subburn import`.")
		return nil
	}
	setting, err := st.GetBudgetSetting(ctx, userID())
	if err != nil {
		return err
	}

	today := now()
	currency := primaryCurrency(subs)
	ev := pipeline.EvaluateBudget(subs, setting.EffectiveLimit())
	months, err := pipeline.NewProjectionCache(cfg.Projection.TTL(), now).Project(subs, today, cfg.Projection.Horizon())
	if err != nil {
		return err
	}
	stats := pipeline.SummarizeProjection(months)

	var active, trials int
	for _, s := range subs {
		switch s.Status {
		case model.StatusActive:
			active++
		case model.StatusTrial:
			trials++
		}
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("SUBSCRIPTIONS  %s", userID())))
	fmt.Println()

	rows := [][]string{
		{"Active", cli.FormatNumber(int64(active))},
		{"Trials", cli.FormatNumber(int64(trials))},
		{"---"},
		{"Monthly spend", cli.FormatMoney(ev.MonthlyTotal, currency)},
		{"Incl. trials", cli.FormatMoney(pipeline.SpendTotal(subs), currency)},
		{"Budget", cli.FormatMoney(ev.BudgetLimit, currency)},
		{"Used", cli.RenderBudgetBar(ev.Percentage, ev.IsOverBudget, 20)},
		{"---"},
		{fmt.Sprintf("Next %d months", len(months)), cli.RenderSparkline(monthValues(months))},
		{"Avg / month", cli.FormatMoney(stats.Average, currency)},
		{"Peak month", cli.FormatMoney(stats.Maximum, currency)},
	}
	if ev.IsOverBudget {
		rows = append(rows, []string{"Over by", cli.Over(cli.FormatMoney(ev.Excess, currency))})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	}))

	due := pipeline.UpcomingRenewals(subs, today, cfg.Projection.DueSoon())
	if len(due) > 0 {
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Due Soon",
			Headers: []string{"Date", "Name", "Amount", "When"},
			Rows:    renewalRows(due, billing.Today(today)),
		}))
	}

	if n := pipeline.CountStale(subs, today); n > 0 {
		printWarning("%d subscriptions have a past billing date; run `subburn repair`", n)
	}
	return nil
}

func monthValues(months []model.MonthProjection) []float64 {
	values := make([]float64, len(months))
	for i, m := range months {
		values[i] = m.Amount.InexactFloat64()
	}
	return values
}
