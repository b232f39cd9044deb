package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/subburn/internal/billing"
	"github.com/theirongolddev/subburn/internal/cli"
	"github.com/theirongolddev/subburn/internal/model"
	"github.com/theirongolddev/subburn/internal/pipeline"
)

var flagUpcomingDays int

var upcomingCmd = &cobra.Command{
	Use:   "upcoming",
	Short: "Renewals due in the next few days",
	RunE:  runUpcoming,
}

func init() {
	upcomingCmd.Flags().IntVar(&flagUpcomingDays, "days", 0, "Window in days (default from config)")
	rootCmd.AddCommand(upcomingCmd)
}

func runUpcoming(cmd *cobra.Command, _ []string) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	subs, err := st.ListSubscriptions(cmd.Context(), userID())
	if err != nil {
		return err
	}

	days := flagUpcomingDays
	if days <= 0 {
		days = cfg.Projection.DueSoon()
	}
	today := billing.Today(now())
	renewals := pipeline.UpcomingRenewals(subs, today, days)
	if len(renewals) == 0 {
		fmt.Printf("\n  Nothing renews in the next %d days.\n", days)
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("UPCOMING  Next %d days", days)))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Name", "Amount", "When"},
		Rows:    renewalRows(renewals, today),
	}))
	return nil
}

func renewalRows(renewals []model.Renewal, today time.Time) [][]string {
	rows := make([][]string, 0, len(renewals))
	for _, r := range renewals {
		s := r.Subscription
		when := cli.FormatDaysUntil(r.DaysUntil)
		if soon, err := billing.IsDueSoon(s.NextBillingDate, today); err == nil && soon {
			when = cli.Warn(when)
		}
		rows = append(rows, []string{
			billing.FormatDate(s.NextBillingDate),
			cli.Truncate(s.Name, 24),
			cli.FormatMoney(s.Price, s.Currency),
			when,
		})
	}
	return rows
}
