package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/subburn/internal/billing"
	"github.com/theirongolddev/subburn/internal/cli"
	"github.com/theirongolddev/subburn/internal/model"
	"github.com/theirongolddev/subburn/internal/pipeline"
	"github.com/theirongolddev/subburn/internal/source"
	"github.com/theirongolddev/subburn/internal/store"
)

var (
	flagAddPrice    string
	flagAddCurrency string
	flagAddCycle    string
	flagAddNext     string
	flagAddStatus   string
	flagAddCategory string

	flagListAll      bool
	flagListCategory string
)

var addCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a subscription",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdd,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List subscriptions with their monthly cost",
	RunE:  runList,
}

var removeCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Cancel a subscription",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

var importCmd = &cobra.Command{
	Use:   "import PATH",
	Short: "Import subscriptions from JSONL export files",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	addCmd.Flags().StringVar(&flagAddPrice, "price", "", "Price per billing cycle")
	addCmd.Flags().StringVar(&flagAddCurrency, "currency", "USD", "ISO currency code")
	addCmd.Flags().StringVar(&flagAddCycle, "cycle", string(model.CycleMonthly), "Billing cycle: weekly, monthly or yearly")
	addCmd.Flags().StringVar(&flagAddNext, "next", "", "Next billing date (YYYY-MM-DD)")
	addCmd.Flags().StringVar(&flagAddStatus, "status", string(model.StatusActive), "Status: active, trial, expired or cancelled")
	addCmd.Flags().StringVar(&flagAddCategory, "category", "", "Category label")
	_ = addCmd.MarkFlagRequired("price")
	_ = addCmd.MarkFlagRequired("next")

	listCmd.Flags().BoolVarP(&flagListAll, "all", "a", false, "Include expired and cancelled subscriptions")
	listCmd.Flags().StringVarP(&flagListCategory, "category", "c", "", "Filter to category (substring match)")

	rootCmd.AddCommand(addCmd, listCmd, removeCmd, importCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	rec := source.Record{
		Name:            args[0],
		Price:           json.Number(strings.TrimSpace(flagAddPrice)),
		Currency:        flagAddCurrency,
		BillingCycle:    flagAddCycle,
		NextBillingDate: flagAddNext,
		Status:          flagAddStatus,
		Category:        flagAddCategory,
	}
	if !model.BillingCycle(strings.ToLower(flagAddCycle)).IsKnown() {
		printWarning("Unknown billing cycle %q, treating as monthly", flagAddCycle)
	}

	sub, err := rec.Subscription(userID(), now())
	if err != nil {
		return fmt.Errorf("invalid subscription: %w", err)
	}
	sub.ID = uuid.NewString()

	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SaveSubscription(cmd.Context(), sub); err != nil {
		return fmt.Errorf("saving subscription: %w", err)
	}

	fmt.Printf("  Added %s (%s %s, %s/mo)\n",
		sub.Name,
		cli.FormatMoney(sub.Price, sub.Currency),
		billing.FormatCycle(sub.BillingCycle),
		cli.FormatMoney(billing.SubscriptionMonthly(sub), sub.Currency))
	fmt.Printf("  ID: %s\n", sub.ID)
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	subs, err := st.ListSubscriptions(cmd.Context(), userID())
	if err != nil {
		return err
	}
	if !flagListAll {
		subs = pipeline.FilterByStatus(subs, model.StatusActive, model.StatusTrial)
	}
	if flagListCategory != "" {
		subs = pipeline.FilterByCategory(subs, flagListCategory)
	}
	if len(subs) == 0 {
		fmt.Println("\n  No subscriptions found.")
		fmt.Println("  Add one with `subburn add NAME --price 9.99 --next 2026-01-01`.")
		return nil
	}

	today := billing.Today(now())
	rows := make([][]string, 0, len(subs))
	for _, s := range subs {
		due := "-"
		if !s.NextBillingDate.IsZero() {
			if days, err := billing.DaysUntil(s.NextBillingDate, today); err == nil {
				due = billing.FormatDate(s.NextBillingDate) + "  " + cli.FormatDaysUntil(days)
			}
		}
		rows = append(rows, []string{
			cli.Truncate(s.Name, 24),
			cli.FormatMoney(s.Price, s.Currency),
			billing.FormatCycle(s.BillingCycle),
			cli.FormatMoney(billing.SubscriptionMonthly(s), s.Currency),
			cli.FormatStatus(s.Status),
			due,
			s.ID[:min(8, len(s.ID))],
		})
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("SUBSCRIPTIONS  %s", userID())))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Name", "Price", "Cycle", "Monthly", "Status", "Next Billing", "ID"},
		Rows:    rows,
	}))
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := resolveID(cmd, st, args[0])
	if err != nil {
		return err
	}
	if err := st.CancelSubscription(cmd.Context(), id); err != nil {
		return fmt.Errorf("cancelling %s: %w", id, err)
	}
	fmt.Printf("  Cancelled %s\n", id)
	return nil
}

// resolveID accepts a full ID or a unique prefix of one, as shown by list.
func resolveID(cmd *cobra.Command, st store.Store, arg string) (string, error) {
	if _, err := st.GetSubscription(cmd.Context(), arg); err == nil {
		return arg, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	subs, err := st.ListSubscriptions(cmd.Context(), userID())
	if err != nil {
		return "", err
	}
	var match string
	for _, s := range subs {
		if strings.HasPrefix(s.ID, arg) {
			if match != "" {
				return "", fmt.Errorf("ambiguous subscription id %q", arg)
			}
			match = s.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("subscription %q: %w", arg, store.ErrNotFound)
	}
	return match, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	files, err := source.ScanDir(args[0])
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Printf("\n  No .jsonl files found in %s\n", args[0])
		return nil
	}

	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	var imported, rejected, failed int
	for _, f := range files {
		res := source.ParseFile(f, userID(), now())
		if res.Err != nil {
			failed++
			log.Error().Err(res.Err).Str("file", f.Path).Msg("import file unreadable")
			continue
		}
		for _, le := range res.LineErrors {
			log.Warn().Str("file", f.Path).Int("line", le.Line).Err(le.Err).Msg("skipping invalid record")
		}
		rejected += res.ParseErrors

		for _, sub := range res.Subscriptions {
			if err := st.SaveSubscription(cmd.Context(), sub); err != nil {
				failed++
				log.Error().Err(err).Str("subscription_id", sub.ID).Msg("saving imported subscription failed")
				continue
			}
			imported++
		}
	}

	fmt.Printf("  Imported %s subscriptions from %d files\n", cli.FormatNumber(int64(imported)), len(files))
	if rejected > 0 {
		printWarning("%d invalid records skipped", rejected)
	}
	if failed > 0 {
		return fmt.Errorf("%d imports failed", failed)
	}
	return nil
}
