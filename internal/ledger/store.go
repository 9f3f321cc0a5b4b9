// Package ledger records the points movements and CRM submissions made
// through this service.
package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/matthieukhl/loyaltydesk/internal/database"
	"github.com/matthieukhl/loyaltydesk/internal/models"
	"github.com/matthieukhl/loyaltydesk/internal/types"
)

// Store is the MySQL ledger
type Store struct {
	db *database.DB
}

func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

var (
	_ types.ActivitySource = (*Store)(nil)
	_ types.SubmissionLog  = (*Store)(nil)
)

// RecordActivity inserts a points movement and returns its id
func (s *Store) RecordActivity(ctx context.Context, e models.ActivityEntry) (int64, error) {
	if e.Points <= 0 {
		return 0, fmt.Errorf("activity points must be positive, got %d", e.Points)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_activities (
			account_id, kind, points, description, category, reference, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.AccountID, string(e.Kind), e.Points, e.Description, e.Category, e.Reference, e.OccurredAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert activity: %w", err)
	}
	return res.LastInsertId()
}

// ListActivities returns the newest activities of an account
func (s *Store) ListActivities(ctx context.Context, accountID string, limit int) ([]models.ActivityEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, kind, points, description, category, reference, occurred_at
		FROM ledger_activities
		WHERE account_id = ?
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	entries := []models.ActivityEntry{}
	for rows.Next() {
		var e models.ActivityEntry
		var kind string
		if err := rows.Scan(&e.ID, &e.AccountID, &kind, &e.Points, &e.Description, &e.Category, &e.Reference, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		e.Kind = models.ActivityKind(kind)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Adjustment sums earned minus redeemed points for an account
func (s *Store) Adjustment(ctx context.Context, accountID string) (int, error) {
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT SUM(CASE WHEN kind = 'earned' THEN points ELSE -points END)
		FROM ledger_activities
		WHERE account_id = ?`, accountID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum activities: %w", err)
	}
	return int(total.Int64), nil
}

// RecordSubmission audits a created remote record
func (s *Store) RecordSubmission(ctx context.Context, sub models.Submission) (int64, error) {
	var payload any
	if len(sub.Payload) > 0 {
		payload = string(sub.Payload)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_submissions (
			account_id, kind, record_id, number, status, payload
		) VALUES (?, ?, ?, ?, ?, ?)
	`, sub.AccountID, sub.Kind, sub.RecordID, sub.Number, sub.Status, payload)
	if err != nil {
		return 0, fmt.Errorf("failed to insert submission: %w", err)
	}
	return res.LastInsertId()
}

// ListSubmissions returns the newest submissions of an account
func (s *Store) ListSubmissions(ctx context.Context, accountID string, limit int) ([]models.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, kind, record_id, number, status,
			COALESCE(payload, 'null') as payload, created_at
		FROM ledger_submissions
		WHERE account_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	subs := []models.Submission{}
	for rows.Next() {
		var sub models.Submission
		if err := rows.Scan(&sub.ID, &sub.AccountID, &sub.Kind, &sub.RecordID, &sub.Number, &sub.Status, &sub.Payload, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
