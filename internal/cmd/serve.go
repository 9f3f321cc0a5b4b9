package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/matthieukhl/loyaltydesk/internal/app"
	"github.com/matthieukhl/loyaltydesk/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Loyalty Desk API server",
	Long: `Start the Loyalty Desk API server which provides:
- Dashboard, history and catalog endpoints
- Conversion requests and secondary orders against the CRM
- Redemptions, transfers, scans, surveys and referrals`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	fmt.Println("🚀 Loyalty Desk Starting...")

	fmt.Println("📝 Loading configuration...")
	cfg, a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("🔌 Data source: %s\n", a.Source.Name())
	if a.DB != nil {
		fmt.Println("✅ Ledger database connected successfully")
	} else {
		fmt.Println("💾 Ledger kept in memory (no db.dsn configured)")
	}

	fmt.Println("⚙️  Setting up server...")
	gin.SetMode(gin.ReleaseMode)
	srv := server.NewServer(a.Loyalty, a.HealthChecker(), app.NewLogger(cfg.Log, os.Stderr))

	fmt.Printf("🌐 Starting server on %s...\n", cfg.Server.Addr)
	if err := srv.Run(cmd.Context(), cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}

	fmt.Println("👋 Server stopped")
	return nil
}
