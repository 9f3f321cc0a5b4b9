package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matthieukhl/loyaltydesk/internal/app"
	"github.com/matthieukhl/loyaltydesk/internal/config"
	"github.com/matthieukhl/loyaltydesk/internal/datasource"
	"github.com/matthieukhl/loyaltydesk/internal/models"
)

var showLast int

var checkCmd = &cobra.Command{
	Use:   "check-crm",
	Short: "Check connectivity to the configured CRM",
	Long: `Authenticate against the configured data source and run a few read
queries: the loyalty account, the active products and the latest
conversion requests with their line items.`,
	RunE: checkCRM,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().IntVar(&showLast, "last", 5, "Number of recent conversion requests to show")
}

func checkCRM(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := app.NewLogger(cfg.Log, os.Stderr)

	fmt.Printf("🔍 Checking %s data source...\n", cfg.Source.Provider)
	source, err := datasource.New(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	start := time.Now()
	account, err := source.Account(cmd.Context(), cfg.Loyalty.AccountID)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Authenticated in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("   👤 Account: %s (%s) | %s points\n", account.Name, account.ID, formatPoints(int(account.TotalRewardPoints)))

	products, err := source.Products(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("   📦 Active products: %d\n", len(products))

	requests, err := source.ConversionRequests(cmd.Context(), showLast)
	if err != nil {
		return err
	}
	if len(requests) == 0 {
		fmt.Println("📭 No conversion requests found")
		return nil
	}

	fmt.Printf("\n📋 Latest %d conversion request%s:\n", len(requests), plural(len(requests)))
	fmt.Println(strings.Repeat("─", 80))
	for _, r := range requests {
		printConversion(r)
	}
	return nil
}

func printConversion(r models.ConversionRequest) {
	fmt.Printf("\n%s %s - %s (%s)\n", statusIcon(r.Status), r.Name, r.Status, r.CreatedDate.Format("2006-01-02"))
	fmt.Printf("   🧾 Order: %s | Points: %.0f\n", r.OrderNumber, r.EffectivePoints())
	if len(r.LineItems) == 0 {
		fmt.Println("   ⚠️  No line items")
	}
	for _, li := range r.LineItems {
		fmt.Printf("   • %-28s %8.2f × %8.2f = %10.2f\n", truncate(li.ProductName, 28), li.Quantity, li.UnitPrice, li.TotalPrice)
	}
}

func statusIcon(s models.ConversionStatus) string {
	switch s {
	case models.ConversionApproved:
		return "✅"
	case models.ConversionRejected:
		return "❌"
	default:
		return "⏳"
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func plural(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}

// formatPoints groups thousands with commas.
func formatPoints(n int) string {
	sign := ""
	if n < 0 {
		sign, n = "-", -n
	}
	s := fmt.Sprintf("%d", n)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return sign + s
}
