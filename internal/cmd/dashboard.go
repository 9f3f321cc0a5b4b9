package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show balance, tier and recent activity",
	RunE:  showDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func showDashboard(cmd *cobra.Command, args []string) error {
	_, a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	view, err := a.Loyalty.Dashboard(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("👋 Welcome back, %s\n", view.Account.Name)
	fmt.Printf("💰 %s points | 🏅 %s tier\n", formatPoints(view.Points), view.Standing.Current.Name)
	if view.Standing.Next != nil {
		fmt.Printf("📈 %s points to %s %s %.0f%%\n",
			formatPoints(view.Standing.PointsToNext), view.Standing.Next.Name, progressBar(view.Standing.Progress, 20), view.Standing.Progress)
	} else {
		fmt.Println("🏆 Top tier reached")
	}

	fmt.Println("\n🕐 Recent activity:")
	if len(view.Recent) == 0 {
		fmt.Println("   📭 Nothing yet")
	}
	for _, e := range view.Recent {
		fmt.Printf("   %s %+6d  %-24s %s\n", e.OccurredAt.Format("Jan 02"), e.Amount, e.Description, e.Category)
	}
	return nil
}

func progressBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}
