package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/subburn/internal/config"
	"github.com/theirongolddev/subburn/internal/model"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

// setupAnswers holds the wizard fields as entered.
type setupAnswers struct {
	UserID    string
	Database  string
	Limit     string
	Alerts    bool
	Transport string
	Token     string
	ChatID    string
}

func runSetup(cmd *cobra.Command, _ []string) error {
	ans := setupAnswers{
		UserID:    cfg.General.UserID,
		Database:  cfg.General.Database,
		Limit:     cfg.Budget.Limit().String(),
		Alerts:    cfg.Budget.AlertsEnabled,
		Transport: cfg.Alerts.Transport,
		Token:     cfg.Alerts.TelegramToken,
	}
	if id, ok := cfg.Alerts.TelegramChats[ans.UserID]; ok {
		ans.ChatID = strconv.FormatInt(id, 10)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to subburn!").
				Description("Track subscriptions, project spend and get one budget alert per day."),
			huh.NewInput().
				Title("User ID").
				Value(&ans.UserID).
				Validate(notBlank("user id")),
			huh.NewInput().
				Title("Database").
				Description("SQLite path or postgres:// DSN. Leave blank for "+config.DefaultDatabasePath()).
				Value(&ans.Database),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Monthly budget limit").
				Value(&ans.Limit).
				Validate(validLimit),
			huh.NewConfirm().
				Title("Alert me when I go over budget?").
				Value(&ans.Alerts),
			huh.NewSelect[string]().
				Title("Alert transport").
				Options(
					huh.NewOption("Log only", "log"),
					huh.NewOption("Telegram", "telegram"),
				).
				Value(&ans.Transport),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram bot token").
				EchoMode(huh.EchoModePassword).
				Value(&ans.Token).
				Validate(notBlank("token")),
			huh.NewInput().
				Title("Telegram chat ID").
				Value(&ans.ChatID).
				Validate(validChatID),
		).WithHideFunc(func() bool { return ans.Transport != "telegram" }),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup cancelled.")
			return nil
		}
		return err
	}

	out := ans.apply(cfg)
	if err := config.Save(out); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	cfg = out

	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.SaveBudgetSetting(cmd.Context(), model.BudgetSetting{
		UserID:        out.General.UserID,
		BudgetLimit:   out.Budget.Limit(),
		AlertsEnabled: out.Budget.AlertsEnabled,
	}); err != nil {
		return fmt.Errorf("saving budget: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.Path())
	fmt.Println("  Run `subburn setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}

// apply returns base updated with the answers.
func (a setupAnswers) apply(base config.Config) config.Config {
	out := base
	out.General.UserID = strings.TrimSpace(a.UserID)
	out.General.Database = strings.TrimSpace(a.Database)
	out.Budget.DefaultLimit = strings.TrimSpace(a.Limit)
	out.Budget.AlertsEnabled = a.Alerts
	out.Alerts.Transport = a.Transport

	if a.Transport == "telegram" {
		out.Alerts.TelegramToken = strings.TrimSpace(a.Token)
		if id, err := strconv.ParseInt(strings.TrimSpace(a.ChatID), 10, 64); err == nil {
			chats := make(map[string]int64, len(base.Alerts.TelegramChats)+1)
			for k, v := range base.Alerts.TelegramChats {
				chats[k] = v
			}
			chats[out.General.UserID] = id
			out.Alerts.TelegramChats = chats
		}
	}
	return out
}

func notBlank(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validLimit(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !d.IsPositive() {
		return errors.New("enter a positive amount, e.g. 100 or 49.99")
	}
	return nil
}

func validChatID(s string) error {
	if _, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err != nil {
		return errors.New("chat id must be a number")
	}
	return nil
}
