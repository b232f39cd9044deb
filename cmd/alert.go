package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/subburn/internal/alert"
	"github.com/theirongolddev/subburn/internal/cli"
)

var flagAlertAllUsers bool

var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Send today's budget alert if the budget is exceeded",
	Long:  "Check the budget and send at most one alert per user per day through the configured transport.",
	RunE:  runAlert,
}

var alertHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently sent alerts",
	RunE:  runAlertHistory,
}

func init() {
	alertCmd.Flags().BoolVar(&flagAlertAllUsers, "all-users", false, "Check every user in the database")
	alertCmd.AddCommand(alertHistoryCmd)
	rootCmd.AddCommand(alertCmd)
}

// newDispatcher builds the transport selected in [alerts].
func newDispatcher() (alert.Dispatcher, error) {
	switch cfg.Alerts.Transport {
	case "", "log":
		return alert.LogDispatcher{Log: log}, nil
	case "telegram":
		d, err := alert.NewTelegramDispatcher(cfg.Alerts.TelegramToken, cfg.Alerts.TelegramChats, "")
		if err != nil {
			return nil, err
		}
		d.Fallback = alert.LogDispatcher{Log: log}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown alert transport %q", cfg.Alerts.Transport)
	}
}

func runAlert(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	d, err := newDispatcher()
	if err != nil {
		return err
	}
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	users := []string{userID()}
	if flagAlertAllUsers {
		if users, err = st.ListUserIDs(ctx); err != nil {
			return err
		}
	}

	gate := alert.NewGate(st, log)
	var errs []error
	for _, o := range gate.CheckAll(ctx, users, now(), d) {
		if o.Err != nil {
			errs = append(errs, o.Err)
			fmt.Printf("  %s: %s\n", o.UserID, cli.Over(o.Err.Error()))
			continue
		}
		p := o.Decision.Payload
		switch o.Decision.Reason {
		case alert.ReasonSent:
			fmt.Printf("  %s: alert sent (%s over %s)\n", o.UserID,
				p.Excess.StringFixed(2), p.BudgetLimit.StringFixed(2))
		default:
			fmt.Printf("  %s: %s\n", o.UserID, cli.Muted(string(o.Decision.Reason)))
		}
	}
	return errors.Join(errs...)
}

func runAlertHistory(cmd *cobra.Command, _ []string) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ListAlerts(cmd.Context(), userID(), 20)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("\n  No alerts sent.")
		return nil
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.Day, r.Type, r.CreatedAt.Local().Format("15:04:05")})
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Alert History",
		Headers: []string{"Day", "Type", "Sent"},
		Rows:    rows,
	}))
	return nil
}
