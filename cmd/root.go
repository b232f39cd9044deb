package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/subburn/internal/cli"
	"github.com/theirongolddev/subburn/internal/config"
	"github.com/theirongolddev/subburn/internal/logger"
	"github.com/theirongolddev/subburn/internal/model"
	"github.com/theirongolddev/subburn/internal/store"
)

var (
	flagDatabase string
	flagUser     string
	flagQuiet    bool
)

// Set up in the root pre-run.
var (
	cfg config.Config
	log zerolog.Logger
)

// now is the clock every command reads.
var now = time.Now

var rootCmd = &cobra.Command{
	Use:   "subburn",
	Short: "Subscription spend tracker",
	Long:  "Track recurring subscriptions: normalized monthly spend, projections, budgets and alerts.",
	RunE:  runSummary,

	SilenceUsage:      true,
	PersistentPreRunE: loadEnvironment,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDatabase, "db", "", "Database path or postgres:// DSN (default from config)")
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "", "User ID (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only log errors")
}

func loadEnvironment(_ *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}
	if flagDatabase != "" {
		cfg.General.Database = flagDatabase
	}
	if flagUser != "" {
		cfg.General.UserID = flagUser
	}

	level := cfg.Env.LogLevel
	if flagQuiet {
		level = "error"
	}
	log = logger.New(os.Stderr, level)
	return nil
}

// openStore opens the configured database with config budget defaults applied.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return budgetDefaults{
		Store:   st,
		limit:   cfg.Budget.Limit(),
		enabled: cfg.Budget.AlertsEnabled,
	}, nil
}

// budgetDefaults applies the configured default limit to users who never
// saved a budget setting.
type budgetDefaults struct {
	store.Store
	limit   decimal.Decimal
	enabled bool
}

func (b budgetDefaults) GetBudgetSetting(ctx context.Context, userID string) (model.BudgetSetting, error) {
	setting, err := b.Store.GetBudgetSetting(ctx, userID)
	if err != nil || !setting.UpdatedAt.IsZero() {
		return setting, err
	}
	setting.BudgetLimit = b.limit
	setting.AlertsEnabled = b.enabled
	return setting, nil
}

func userID() string {
	return cfg.General.UserID
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(os.Stderr, "  "+cli.Warn(fmt.Sprintf(format, args...)))
}
