package database

import (
	"context"
	"fmt"
)

var ledgerTables = []string{
	`CREATE TABLE IF NOT EXISTS ledger_activities (
	    id BIGINT PRIMARY KEY AUTO_INCREMENT,
	    account_id VARCHAR(64) NOT NULL,
	    kind ENUM('earned', 'redeemed') NOT NULL,
	    points INT NOT NULL,
	    description VARCHAR(255) NOT NULL,
	    category VARCHAR(64) NOT NULL DEFAULT '',
	    reference VARCHAR(128) NOT NULL DEFAULT '',
	    occurred_at TIMESTAMP NOT NULL,
	    INDEX idx_account_occurred (account_id, occurred_at),
	    INDEX idx_kind (kind)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS ledger_submissions (
	    id BIGINT PRIMARY KEY AUTO_INCREMENT,
	    account_id VARCHAR(64) NOT NULL,
	    kind ENUM('conversion', 'order') NOT NULL,
	    record_id VARCHAR(64) NOT NULL,
	    number VARCHAR(64) NOT NULL DEFAULT '',
	    status VARCHAR(32) NOT NULL DEFAULT '',
	    payload JSON,
	    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	    INDEX idx_account_created (account_id, created_at),
	    UNIQUE KEY uk_kind_record (kind, record_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the ledger tables
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range ledgerTables {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create ledger table: %w", err)
		}
	}
	return nil
}

// DropLedger removes the ledger tables
func (db *DB) DropLedger(ctx context.Context) error {
	for _, table := range []string{"ledger_submissions", "ledger_activities"} {
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("failed to drop %s: %w", table, err)
		}
	}
	return nil
}
