package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show lifetime points, the tier ladder and achievements",
	RunE:  showProfile,
}

func init() {
	rootCmd.AddCommand(profileCmd)
}

func showProfile(cmd *cobra.Command, args []string) error {
	_, a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	view, err := a.Loyalty.Profile(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("👤 %s", view.Account.Name)
	if view.MemberSince != nil {
		fmt.Printf(" | member since %s", view.MemberSince.Format("January 2006"))
	}
	fmt.Println()
	fmt.Printf("💰 %s points | 📈 %s earned | 🎁 %s redeemed\n",
		formatPoints(view.Points), formatPoints(view.LifetimeEarned), formatPoints(view.LifetimeRedeemed))

	fmt.Println("\n🏅 Tiers:")
	for _, r := range view.Tiers {
		mark := "🔒"
		if r.Unlocked {
			mark = "✅"
		}
		current := ""
		if r.Current {
			current = "  ← current"
		}
		fmt.Printf("   %s %-9s %8s+ points%s\n", mark, r.Name, formatPoints(r.MinPoints), current)
	}

	fmt.Println("\n🏆 Achievements:")
	for _, ach := range view.Achievements {
		mark := "🔒"
		if ach.Unlocked {
			mark = "⭐"
		}
		fmt.Printf("   %s %-17s %s\n", mark, ach.Title, ach.Description)
	}
	return nil
}
