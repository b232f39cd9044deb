// Package cmd implements the subburn CLI commands.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/subburn/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	fmt.Printf("  Config file: %s\n", config.Path())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    User:      %s\n", cfg.General.UserID)
	fmt.Printf("    Database:  %s\n", redactDSN(cfg.DatabaseDSN()))
	fmt.Println()

	fmt.Println("  [Budget]")
	fmt.Printf("    Default limit:  %s\n", cfg.Budget.Limit().StringFixed(2))
	fmt.Printf("    Alerts enabled: %v\n", cfg.Budget.AlertsEnabled)
	fmt.Println()

	fmt.Println("  [Projection]")
	fmt.Printf("    Horizon:   %d months\n", cfg.Projection.Horizon())
	fmt.Printf("    Cache TTL: %s\n", cfg.Projection.TTL())
	fmt.Printf("    Due soon:  %d days\n", cfg.Projection.DueSoon())
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:  %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Refresh:  %s\n", cfg.Daemon.Refresh())
	fmt.Printf("    Repair:   %s (UTC)\n", cfg.Daemon.RepairSchedule)
	fmt.Printf("    Alerts:   %s (UTC)\n", cfg.Daemon.AlertSchedule)
	if len(cfg.Daemon.CORSOrigins) > 0 {
		fmt.Printf("    CORS:     %s\n", strings.Join(cfg.Daemon.CORSOrigins, ", "))
	}
	fmt.Println()

	fmt.Println("  [Alerts]")
	fmt.Printf("    Transport: %s\n", cfg.Alerts.Transport)
	if cfg.Alerts.TelegramToken != "" {
		fmt.Printf("    Telegram token: %s\n", maskToken(cfg.Alerts.TelegramToken))
		fmt.Printf("    Telegram chats: %d\n", len(cfg.Alerts.TelegramChats))
	}
	fmt.Println()

	fmt.Println("  Run `subburn setup` to reconfigure.")
	return nil
}

func maskToken(key string) string {
	if len(key) > 16 {
		return key[:8] + "..." + key[len(key)-4:]
	}
	if len(key) > 4 {
		return key[:4] + "..."
	}
	return "****"
}
