package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/matthieukhl/loyaltydesk/internal/config"
)

type DB struct {
	*sql.DB
}

// LedgerDSN normalises a MySQL DSN for the ledger. Timestamps are scanned
// into time.Time and stored as UTC whatever the DSN says.
func LedgerDSN(dsn string) (string, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("failed to parse database dsn: %w", err)
	}
	mc.ParseTime = true
	mc.Loc = time.UTC
	return mc.FormatDSN(), nil
}

// NewConnection opens the ledger database and verifies it answers a ping.
func NewConnection(ctx context.Context, cfg *config.DBConfig) (*DB, error) {
	dsn, err := LedgerDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach ledger database: %w", err)
	}
	return &DB{db}, nil
}

// HealthCheck pings the ledger database.
func (db *DB) HealthCheck(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ledger database unavailable: %w", err)
	}
	return nil
}
