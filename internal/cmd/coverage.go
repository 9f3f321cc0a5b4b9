package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matthieukhl/loyaltydesk/internal/mockdata"
	"github.com/matthieukhl/loyaltydesk/internal/views"
)

var (
	coverageLength  float64
	coverageWidth   float64
	coverageProduct string
)

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Estimate how many units of a product an area needs",
	Long: `Computes ceil(length × width × 1.10 / coverage per unit) for a product,
where 1.10 adds 10% for waste. Without --product, lists the products.`,
	RunE: coverage,
}

func init() {
	rootCmd.AddCommand(coverageCmd)

	coverageCmd.Flags().Float64Var(&coverageLength, "length", 0, "Length in feet")
	coverageCmd.Flags().Float64Var(&coverageWidth, "width", 0, "Width in feet")
	coverageCmd.Flags().StringVar(&coverageProduct, "product", "", "Product name")
}

// coverage only needs the embedded tables, so it works without any config.
func coverage(cmd *cobra.Command, args []string) error {
	data, err := mockdata.Load()
	if err != nil {
		return err
	}

	if coverageProduct == "" {
		fmt.Println("🧱 Products:")
		for _, p := range data.CoverageProducts {
			fmt.Printf("   %-24s %6.0f %s\n", p.Name, p.Coverage, p.Unit)
		}
		return nil
	}

	p, ok := views.FindCoverageProduct(data.CoverageProducts, coverageProduct)
	if !ok {
		return fmt.Errorf("unknown product %q", coverageProduct)
	}
	est, ok := views.Coverage(coverageLength, coverageWidth, p)
	if !ok {
		fmt.Println("💡 Enter a positive length and width to get an estimate")
		return nil
	}
	fmt.Printf("📐 Area: %.2f sq ft (%.2f with 10%% waste)\n", est.Area, est.AdjustedArea)
	fmt.Printf("🧮 You need %d × %s (%.0f %s)\n", est.Units, est.Product, est.Coverage, est.Unit)
	return nil
}
