package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	catalogCategory string
	catalogSearch   string
	catalogProducts bool
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Browse the reward catalog or the product catalog",
	Long: `Lists rewards filtered by category and search term. With --products,
lists the active CRM products with their resolved unit prices instead,
filtered by product family.`,
	RunE: showCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)

	catalogCmd.Flags().StringVar(&catalogCategory, "category", "all", "Reward category, or product family with --products")
	catalogCmd.Flags().StringVar(&catalogSearch, "search", "", "Case-insensitive search term")
	catalogCmd.Flags().BoolVar(&catalogProducts, "products", false, "Show the product catalog")
}

func showCatalog(cmd *cobra.Command, args []string) error {
	_, a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if catalogProducts {
		products, err := a.Loyalty.ProductCatalog(cmd.Context(), catalogCategory, catalogSearch)
		if err != nil {
			return err
		}
		fmt.Printf("📦 %d product%s\n", len(products), plural(len(products)))
		for _, p := range products {
			fmt.Printf("   %-10s %-28s %-14s %9.2f\n", p.ProductCode, truncate(p.Name, 28), p.Family, p.UnitPrice)
		}
		return nil
	}

	view := a.Loyalty.Catalog(cmd.Context(), catalogCategory, catalogSearch)
	fmt.Printf("🎁 %d reward%s (categories: %v)\n", len(view.Items), plural(len(view.Items)), view.Categories)
	for _, it := range view.Items {
		star := "  "
		if it.Popular {
			star = "⭐"
		}
		fmt.Printf("   %s #%-3s %-22s %-12s %7s pts\n", star, it.ID, it.Title, it.Category, formatPoints(it.Points))
	}
	return nil
}
