package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matthieukhl/loyaltydesk/internal/crmtwin"
	"github.com/matthieukhl/loyaltydesk/internal/mockdata"
)

var (
	twinAddr         string
	twinClientID     string
	twinClientSecret string
	twinPageSize     int
)

var twinCmd = &cobra.Command{
	Use:   "twin",
	Short: "Run a local fake CRM seeded from the fixtures",
	Long: `Serves the token, query, describe and create endpoints the live data
source talks to. Point crm.base_url at it and set source.provider=live to
exercise the real client without a CRM org.`,
	RunE: runTwin,
}

func init() {
	rootCmd.AddCommand(twinCmd)

	twinCmd.Flags().StringVar(&twinAddr, "addr", ":9090", "Listen address")
	twinCmd.Flags().StringVar(&twinClientID, "client-id", "dev-client", "Accepted client id")
	twinCmd.Flags().StringVar(&twinClientSecret, "client-secret", "dev-secret", "Accepted client secret")
	twinCmd.Flags().IntVar(&twinPageSize, "page-size", 0, "Records per query page (0 = 2000)")
}

func runTwin(cmd *cobra.Command, args []string) error {
	data, err := mockdata.Load()
	if err != nil {
		return err
	}
	store := crmtwin.NewStore()
	store.Seed(data)

	twin := crmtwin.New(store, crmtwin.Options{
		ClientID:     twinClientID,
		ClientSecret: twinClientSecret,
		PageSize:     twinPageSize,
	})

	srv := &http.Server{
		Addr:              twinAddr,
		Handler:           twin.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	fmt.Printf("🧪 Fake CRM listening on %s\n", twinAddr)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to run fake CRM: %w", err)
		}
		return nil
	case <-cmd.Context().Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	fmt.Println("👋 Shutting down fake CRM")
	return srv.Shutdown(ctx)
}
