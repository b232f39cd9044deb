package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/subburn/internal/cli"
	"github.com/theirongolddev/subburn/internal/pipeline"
)

var flagProjectMonths int

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Project spend for the coming months",
	RunE:  runProject,
}

func init() {
	projectCmd.Flags().IntVarP(&flagProjectMonths, "months", "m", 0, "Months to project (default from config)")
	rootCmd.AddCommand(projectCmd)
}

func runProject(cmd *cobra.Command, _ []string) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	subs, err := st.ListSubscriptions(cmd.Context(), userID())
	if err != nil {
		return err
	}

	horizon := flagProjectMonths
	if horizon <= 0 {
		horizon = cfg.Projection.Horizon()
	}
	today := now()
	cache := pipeline.NewProjectionCache(cfg.Projection.TTL(), now)
	months, err := cache.Project(subs, today, horizon)
	if err != nil {
		return err
	}
	stats := pipeline.SummarizeProjection(months)
	currency := primaryCurrency(subs)

	values := monthValues(months)
	var maxAmount float64
	for _, v := range values {
		maxAmount = max(maxAmount, v)
	}

	rows := make([][]string, 0, len(months))
	for i, m := range months {
		rows = append(rows, []string{
			m.Label,
			cli.FormatMoney(m.Amount, currency),
			cli.RenderHorizontalBar("", values[i], maxAmount, 30),
		})
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("PROJECTION  Next %d months", horizon)))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Month", "Amount", ""},
		Rows:    rows,
	}))
	fmt.Printf("  Trend    %s\n", cli.RenderSparkline(values))
	fmt.Printf("  Average  %s   Max %s   Min %s\n\n",
		cli.FormatMoney(stats.Average, currency),
		cli.FormatMoney(stats.Maximum, currency),
		cli.FormatMoney(stats.Minimum, currency))

	if n := pipeline.CountStale(subs, today); n > 0 {
		printWarning("%d subscriptions have a past billing date; run `subburn repair` for accurate yearly projections", n)
	}
	return nil
}
