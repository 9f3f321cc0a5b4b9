package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var referralPhone string

var referralCmd = &cobra.Command{
	Use:   "referral",
	Short: "Generate a referral code and optionally text it",
	RunE:  referral,
}

func init() {
	rootCmd.AddCommand(referralCmd)
	referralCmd.Flags().StringVar(&referralPhone, "phone", "", "Send the invitation by SMS to this number")
}

func referral(cmd *cobra.Command, args []string) error {
	_, a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	ref, err := a.Loyalty.Referral(cmd.Context(), referralPhone)
	if err != nil {
		return err
	}
	fmt.Printf("🤝 Referral code: %s\n", ref.Code)
	fmt.Printf("🔗 %s\n", ref.URL)
	fmt.Printf("💬 %s\n", ref.Message)
	if referralPhone != "" {
		fmt.Printf("📱 Invitation sent to %s\n", referralPhone)
	}
	return nil
}
