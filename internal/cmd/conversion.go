package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	conversionLimit  int
	conversionOrder  string
	conversionDealer string
)

var conversionCmd = &cobra.Command{
	Use:   "conversion",
	Short: "Work with conversion requests",
}

var conversionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversion requests with their line items",
	RunE:  listConversions,
}

var conversionLookupsCmd = &cobra.Command{
	Use:   "lookups",
	Short: "Show the orders, dealers and statuses available to a request",
	RunE:  showConversionLookups,
}

var conversionSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a conversion request for an order and dealer",
	RunE:  submitConversion,
}

func init() {
	rootCmd.AddCommand(conversionCmd)
	conversionCmd.AddCommand(conversionListCmd, conversionLookupsCmd, conversionSubmitCmd)

	conversionListCmd.Flags().IntVar(&conversionLimit, "limit", 50, "Maximum number of requests")
	conversionSubmitCmd.Flags().StringVar(&conversionOrder, "order", "", "Order id")
	conversionSubmitCmd.Flags().StringVar(&conversionDealer, "dealer", "", "Dealer account id")
}

func listConversions(cmd *cobra.Command, args []string) error {
	_, a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	requests, err := a.Loyalty.ConversionRequests(cmd.Context(), conversionLimit)
	if err != nil {
		return err
	}
	if len(requests) == 0 {
		fmt.Println("📭 No conversion requests found")
		return nil
	}
	fmt.Printf("📋 %d conversion request%s\n", len(requests), plural(len(requests)))
	fmt.Println(strings.Repeat("─", 80))
	for _, r := range requests {
		printConversion(r)
	}
	return nil
}

func showConversionLookups(cmd *cobra.Command, args []string) error {
	_, a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println("🔄 Loading lookups...")
	lookups, err := a.Loyalty.ConversionLookups(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("\n🧾 Orders (%d):\n", len(lookups.Orders))
	for _, o := range lookups.Orders {
		fmt.Printf("   %-12s %-14s %-24s %12.2f %s\n", o.ID, o.OrderNumber, o.AccountName, o.TotalAmount, o.Status)
	}
	fmt.Printf("\n🏪 Dealers (%d):\n", len(lookups.Dealers))
	for _, d := range lookups.Dealers {
		fmt.Printf("   %-12s %-26s %s, %s\n", d.ID, d.Name, d.City, d.State)
	}
	fmt.Printf("\n🏷️  Statuses:")
	for _, s := range lookups.StatusValues {
		if s.IsDefault {
			fmt.Printf(" %s*", s.Label)
		} else {
			fmt.Printf(" %s", s.Label)
		}
	}
	fmt.Println()
	return nil
}

func submitConversion(cmd *cobra.Command, args []string) error {
	_, a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("📤 Submitting conversion request for %s / %s...\n", conversionOrder, conversionDealer)
	res, err := a.Loyalty.SubmitConversion(cmd.Context(), conversionOrder, conversionDealer)
	if err != nil {
		return err
	}
	fmt.Printf("✅ %s\n", res.Confirmation)
	fmt.Printf("   🆔 %s | Status: %s\n", res.RecordID, res.StatusValue)
	if res.Message != "" {
		fmt.Printf("   💬 %s\n", res.Message)
	}
	return nil
}
