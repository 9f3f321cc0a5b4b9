package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matthieukhl/loyaltydesk/internal/apperr"
	"github.com/matthieukhl/loyaltydesk/internal/models"
)

var (
	orderItems      []string
	orderDate       string
	orderDryRun     bool
	orderRecordType string
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Work with secondary orders",
}

var orderCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a secondary order",
	Long: `Validates the items against the active product catalog, prints the
estimated total, and creates the order in the CRM.

Items are given as productID:quantity, for example:
  loyalty order create --item prod-254:20 --item prod-spectralock:12`,
	RunE: createOrder,
}

func init() {
	rootCmd.AddCommand(orderCmd)
	orderCmd.AddCommand(orderCreateCmd)

	orderCreateCmd.Flags().StringArrayVar(&orderItems, "item", nil, "Line item as productID:quantity (repeatable)")
	orderCreateCmd.Flags().StringVar(&orderDate, "date", "", "Effective date, YYYY-MM-DD (defaults to today)")
	orderCreateCmd.Flags().StringVar(&orderRecordType, "record-type", "", "Order record type id")
	orderCreateCmd.Flags().BoolVar(&orderDryRun, "dry-run", false, "Only validate and summarise")
}

func parseItems(items []string) ([]models.OrderDraftLine, error) {
	lines := make([]models.OrderDraftLine, 0, len(items))
	fields := map[string]string{}
	for i, item := range items {
		id, qty, ok := strings.Cut(item, ":")
		q, err := strconv.ParseFloat(strings.TrimSpace(qty), 64)
		if !ok || err != nil || strings.TrimSpace(id) == "" {
			fields[fmt.Sprintf("item[%d]", i)] = fmt.Sprintf("%q is not productID:quantity", item)
			continue
		}
		lines = append(lines, models.OrderDraftLine{ProductID: strings.TrimSpace(id), Quantity: q})
	}
	if len(fields) > 0 {
		return nil, apperr.ValidationErr("Invalid --item values.", fields)
	}
	return lines, nil
}

func createOrder(cmd *cobra.Command, args []string) error {
	lines, err := parseItems(orderItems)
	if err != nil {
		return err
	}

	_, a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	draft := models.OrderDraft{RecordTypeID: orderRecordType, EffectiveDate: orderDate, Lines: lines}

	fmt.Println("🧮 Summarising order...")
	summary, err := a.Loyalty.PreviewOrder(cmd.Context(), draft)
	if err != nil {
		return err
	}
	for _, li := range summary.Lines {
		fmt.Printf("   • %-28s %8.2f × %8.2f = %10.2f\n", truncate(li.ProductName, 28), li.Quantity, li.UnitPrice, li.TotalPrice)
	}
	fmt.Printf("   📦 Quantity: %.2f | 💵 Estimated total: %.2f\n", summary.TotalQuantity, summary.EstimatedTotal)

	if orderDryRun {
		fmt.Println("💡 Dry run, nothing created")
		return nil
	}

	fmt.Println("📤 Creating order...")
	res, err := a.Loyalty.CreateOrder(cmd.Context(), draft)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Order %s created (%s)\n", res.OrderNumber, res.StatusValue)
	return nil
}
