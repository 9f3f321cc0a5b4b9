package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	redeemReward   string
	transferPoints int
	scanCode       string
)

var redeemCmd = &cobra.Command{
	Use:   "redeem",
	Short: "Redeem a reward from the catalog",
	RunE:  redeem,
}

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Transfer points to your bank account",
	RunE:  transfer,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Earn points for a scanned product code",
	RunE:  scan,
}

func init() {
	rootCmd.AddCommand(redeemCmd, transferCmd, scanCmd)

	redeemCmd.Flags().StringVar(&redeemReward, "reward", "", "Reward id")
	transferCmd.Flags().IntVar(&transferPoints, "points", 0, "Points to transfer")
	scanCmd.Flags().StringVar(&scanCode, "code", "", "Product code from the QR label")
	_ = redeemCmd.MarkFlagRequired("reward")
	_ = transferCmd.MarkFlagRequired("points")
	_ = scanCmd.MarkFlagRequired("code")
}

func redeem(cmd *cobra.Command, args []string) error {
	_, a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Loyalty.Redeem(cmd.Context(), redeemReward)
	if err != nil {
		return err
	}
	fmt.Printf("🎉 Reward Redeemed! %s\n", res.Message)
	fmt.Printf("   💸 -%s points | 💰 %s left\n", formatPoints(res.Points), formatPoints(res.Balance))
	return nil
}

func transfer(cmd *cobra.Command, args []string) error {
	_, a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Loyalty.TransferPoints(cmd.Context(), transferPoints)
	if err != nil {
		return err
	}
	fmt.Printf("🏦 Transfer Initiated: %s\n", res.Message)
	fmt.Printf("   💰 %s points left\n", formatPoints(res.Balance))
	return nil
}

func scan(cmd *cobra.Command, args []string) error {
	_, a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Loyalty.Scan(cmd.Context(), scanCode)
	if err != nil {
		return err
	}
	fmt.Printf("📷 QR Code Scanned! %s\n", res.Message)
	fmt.Printf("   💰 Balance: %s points\n", formatPoints(res.Balance))
	return nil
}
