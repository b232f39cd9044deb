package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/subburn/internal/billing"
	"github.com/theirongolddev/subburn/internal/cli"
	"github.com/theirongolddev/subburn/internal/pipeline"
)

var costsCmd = &cobra.Command{
	Use:   "costs",
	Short: "Monthly cost breakdown by category and billing cycle",
	RunE:  runCosts,
}

func init() {
	rootCmd.AddCommand(costsCmd)
}

func runCosts(cmd *cobra.Command, _ []string) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	subs, err := st.ListSubscriptions(cmd.Context(), userID())
	if err != nil {
		return err
	}
	categories := pipeline.AggregateCategories(subs)
	if len(categories) == 0 {
		fmt.Println("\n  No active subscriptions.")
		return nil
	}
	currency := primaryCurrency(subs)
	total := pipeline.SpendTotal(subs)

	fmt.Println()
	fmt.Println(cli.RenderTitle("COST BREAKDOWN  Monthly equivalent"))
	fmt.Println()

	catRows := make([][]string, 0, len(categories)+2)
	for _, c := range categories {
		catRows = append(catRows, []string{
			c.Category,
			cli.FormatNumber(int64(c.Count)),
			cli.FormatMoney(c.MonthlyTotal, currency),
			fmt.Sprintf("%.1f%%", c.SharePercent),
		})
	}
	catRows = append(catRows, []string{"---"})
	catRows = append(catRows, []string{"TOTAL", "", cli.FormatMoney(total, currency), ""})

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "By Category",
		Headers: []string{"Category", "Subs", "Monthly", "Share"},
		Rows:    catRows,
	}))

	cycles := pipeline.AggregateCycles(subs)
	var maxMonthly float64
	for _, c := range cycles {
		maxMonthly = max(maxMonthly, c.MonthlyTotal.InexactFloat64())
	}
	fmt.Printf("  By Billing Cycle\n")
	for _, c := range cycles {
		fmt.Printf("  %-8s %s  %s  (%s native)\n",
			billing.FormatCycle(c.Cycle),
			cli.RenderHorizontalBar("", c.MonthlyTotal.InexactFloat64(), maxMonthly, 30),
			cli.FormatMoney(c.MonthlyTotal, currency),
			cli.FormatMoney(c.NativeTotal, currency))
	}
	fmt.Println()
	return nil
}
