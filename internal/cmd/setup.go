package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matthieukhl/loyaltydesk/internal/config"
	"github.com/matthieukhl/loyaltydesk/internal/database"
)

var dropFirst bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the ledger tables",
	Long: `Creates the ledger tables (ledger_activities, ledger_submissions) in the
database configured by db.dsn. Points earned or redeemed through this
service and every record created in the CRM are kept there.`,
	RunE: migrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().BoolVar(&dropFirst, "drop-first", false, "Drop existing ledger tables before creating")
}

func migrate(cmd *cobra.Command, args []string) error {
	fmt.Println("🔧 Setting up ledger database...")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DB.DSN == "" {
		return fmt.Errorf("db.dsn is not configured")
	}

	db, err := database.NewConnection(cmd.Context(), &cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if dropFirst {
		fmt.Println("🗑️  Dropping existing ledger tables...")
		if err := db.DropLedger(cmd.Context()); err != nil {
			return err
		}
	}

	fmt.Println("📋 Creating ledger schema...")
	if err := db.Migrate(cmd.Context()); err != nil {
		return err
	}

	fmt.Println("✅ Ledger database setup complete!")
	return nil
}
