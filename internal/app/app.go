// Package app wires configuration into a ready loyalty service.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/matthieukhl/loyaltydesk/internal/assets"
	"github.com/matthieukhl/loyaltydesk/internal/config"
	"github.com/matthieukhl/loyaltydesk/internal/database"
	"github.com/matthieukhl/loyaltydesk/internal/datasource"
	"github.com/matthieukhl/loyaltydesk/internal/ledger"
	"github.com/matthieukhl/loyaltydesk/internal/mockdata"
	"github.com/matthieukhl/loyaltydesk/internal/notify"
	"github.com/matthieukhl/loyaltydesk/internal/retry"
	"github.com/matthieukhl/loyaltydesk/internal/service"
	"github.com/matthieukhl/loyaltydesk/internal/types"
)

// App holds the service and what must be closed with it
type App struct {
	Loyalty *service.Loyalty
	Source  types.DataSource
	// DB is nil when the ledger is in memory.
	DB *database.DB
}

// NewLogger builds the slog logger described by cfg
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Build creates every dependency of the loyalty service from cfg
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	catalog, err := mockdata.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	source, err := datasource.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create data source: %w", err)
	}

	a := &App{Source: source}
	var (
		activities  types.ActivitySource
		submissions types.SubmissionLog
	)
	if cfg.DB.DSN != "" {
		db, err := database.NewConnection(ctx, &cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to ledger database: %w", err)
		}
		a.DB = db
		store := ledger.NewStore(db)
		activities, submissions = store, store
	} else {
		mem := ledger.NewMemory(cfg.Loyalty.AccountID, catalog.Activities)
		activities, submissions = mem, mem
	}

	notifier, err := notify.New(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	images, err := assets.New(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	// the live client retries every request itself
	var pagePolicy retry.Policy
	if source.Name() == "mock" {
		pagePolicy = datasource.RetryPolicy(cfg.Retry, logger)
	}

	a.Loyalty = service.New(service.Options{
		Source:      source,
		Activities:  activities,
		Submissions: submissions,
		Notifier:    notifier,
		Images:      images,
		Catalog:     catalog,
		Config:      cfg.Loyalty,
		Retry:       pagePolicy,
		Logger:      logger,
	})
	return a, nil
}

// HealthChecker returns the ledger database, or nil when there is none.
func (a *App) HealthChecker() interface {
	HealthCheck(ctx context.Context) error
} {
	if a.DB == nil {
		return nil
	}
	return a.DB
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
