package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matthieukhl/loyaltydesk/internal/apperr"
	"github.com/matthieukhl/loyaltydesk/internal/app"
	"github.com/matthieukhl/loyaltydesk/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "loyalty",
	Short: "Loyalty Desk - rewards data layer backed by the CRM",
	Long: `Loyalty Desk reads accounts, orders, products and conversion requests
from the CRM (or from built-in mock data), and runs the rewards flows:
dashboard, catalog, redemptions, conversions, scans, surveys and referrals.

It can run as a JSON API server, or be used through the CLI commands.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var accountOverride string

func init() {
	rootCmd.PersistentFlags().StringVar(&accountOverride, "account", "", "Account id (overrides loyalty.account_id)")
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if ae, ok := apperr.As(err); ok {
			fmt.Fprintf(os.Stderr, "❌ %s\n", apperr.PublicMessage(ae))
			for field, msg := range ae.Fields {
				fmt.Fprintf(os.Stderr, "   • %s: %s\n", field, msg)
			}
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

// loadApp loads configuration and builds the service. Callers must Close
// the returned app.
func loadApp(ctx context.Context) (*config.Config, *app.App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if accountOverride != "" {
		cfg.Loyalty.AccountID = accountOverride
	}
	logger := app.NewLogger(cfg.Log, os.Stderr)
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, a, nil
}
