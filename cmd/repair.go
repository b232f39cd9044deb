package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/subburn/internal/billing"
	"github.com/theirongolddev/subburn/internal/cli"
	"github.com/theirongolddev/subburn/internal/pipeline"
)

var flagRepairAllUsers bool

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Roll past billing dates forward to the next real charge",
	RunE:  runRepair,
}

func init() {
	repairCmd.Flags().BoolVar(&flagRepairAllUsers, "all-users", false, "Repair every user in the database")
	rootCmd.AddCommand(repairCmd)
}

func runRepair(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	users := []string{userID()}
	if flagRepairAllUsers {
		if users, err = st.ListUserIDs(ctx); err != nil {
			return err
		}
	}

	today := now()
	var failed int
	for _, u := range users {
		subs, err := st.ListSubscriptions(ctx, u)
		if err != nil {
			return fmt.Errorf("loading subscriptions for %s: %w", u, err)
		}
		report := pipeline.RepairStale(ctx, subs, today, st)
		failed += report.Failed

		for _, o := range report.Outcomes {
			switch o.State {
			case pipeline.RepairRepaired:
				fmt.Printf("  %s  %s -> %s  (%d steps)\n",
					o.SubscriptionID[:min(8, len(o.SubscriptionID))],
					billing.FormatDate(o.From), billing.FormatDate(o.To), o.Steps)
			case pipeline.RepairFailed:
				fmt.Printf("  %s  %s\n", o.SubscriptionID[:min(8, len(o.SubscriptionID))], cli.Over(o.Err.Error()))
			}
		}
		log.Info().Str("user_id", u).Int("repaired", report.Repaired).Int("current", report.Current).
			Int("failed", report.Failed).Msg("repair finished")
		if report.Repaired == 0 && report.Failed == 0 {
			fmt.Printf("  %s: all billing dates current\n", u)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d subscriptions could not be repaired", failed)
	}
	return nil
}
