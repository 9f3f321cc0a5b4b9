package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var historyTab string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show points activity and totals",
	RunE:  showHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyTab, "tab", "all", "Which activities to show: all, earned or redeemed")
}

func showHistory(cmd *cobra.Command, args []string) error {
	_, a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	feed, err := a.Loyalty.History(cmd.Context(), historyTab)
	if err != nil {
		return err
	}

	fmt.Printf("📊 Earned %s | Redeemed %s | Net %s\n",
		formatPoints(feed.TotalEarned), formatPoints(feed.TotalRedeemed), formatPoints(feed.Net))
	fmt.Println(strings.Repeat("─", 60))
	for _, e := range feed.Entries {
		icon := "⬆️ "
		if e.Amount < 0 {
			icon = "⬇️ "
		}
		fmt.Printf("%s %s %+7d  %-26s %s\n", icon, e.OccurredAt.Format("2006-01-02"), e.Amount, e.Description, e.Category)
	}
	return nil
}
