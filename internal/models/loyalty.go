package models

import "time"

// ActivityKind tells whether points were earned or redeemed. The sign of an
// activity amount is derived from it.
type ActivityKind string

const (
	ActivityEarned   ActivityKind = "earned"
	ActivityRedeemed ActivityKind = "redeemed"
)

// ActivityEntry is a single points movement. Points is always positive.
type ActivityEntry struct {
	ID          int64        `json:"id" yaml:"id"`
	AccountID   string       `json:"account_id,omitempty" yaml:"account_id"`
	Kind        ActivityKind `json:"type" yaml:"kind"`
	Points      int          `json:"points" yaml:"points"`
	Description string       `json:"description" yaml:"description"`
	Category    string       `json:"category" yaml:"category"`
	Reference   string       `json:"reference,omitempty" yaml:"reference"`
	OccurredAt  time.Time    `json:"occurred_at" yaml:"occurred_at"`
}

// SignedAmount returns Points with the sign implied by Kind.
func (a ActivityEntry) SignedAmount() int {
	if a.Kind == ActivityRedeemed {
		return -a.Points
	}
	return a.Points
}

// WithAccount returns a copy attributed to accountID.
func (a ActivityEntry) WithAccount(accountID string) ActivityEntry {
	a.AccountID = accountID
	return a
}

// Earned builds an earned activity
func Earned(points int, description, category string, at time.Time) ActivityEntry {
	return ActivityEntry{Kind: ActivityEarned, Points: points, Description: description, Category: category, OccurredAt: at}
}

// Redeemed builds a redeemed activity
func Redeemed(points int, description, category string, at time.Time) ActivityEntry {
	return ActivityEntry{Kind: ActivityRedeemed, Points: points, Description: description, Category: category, OccurredAt: at}
}

// RewardCatalogItem is a reward available for redemption
type RewardCatalogItem struct {
	ID          string `json:"id" yaml:"id"`
	SKU         string `json:"sku" yaml:"sku"`
	Title       string `json:"title" yaml:"title"`
	Category    string `json:"category" yaml:"category"`
	Points      int    `json:"points" yaml:"points"`
	Description string `json:"description" yaml:"description"`
	Popular     bool   `json:"popular" yaml:"popular"`
	ImageRef    string `json:"image_ref" yaml:"image_ref"`
	ImageURL    string `json:"image_url,omitempty" yaml:"-"`
}

// CoverageProduct is a product known to the coverage calculator
type CoverageProduct struct {
	Name     string  `json:"name" yaml:"name"`
	Coverage float64 `json:"coverage" yaml:"coverage"`
	Unit     string  `json:"unit" yaml:"unit"`
}

// ScannableProduct is a product whose QR code awards points
type ScannableProduct struct {
	Code   string `json:"code" yaml:"code"`
	Name   string `json:"name" yaml:"name"`
	Points int    `json:"points" yaml:"points"`
}

// SurveyQuestion is one step of the survey wizard
type SurveyQuestion struct {
	ID      string   `json:"id" yaml:"id"`
	Prompt  string   `json:"prompt" yaml:"prompt"`
	Options []string `json:"options" yaml:"options"`
}

// Submission kinds recorded in the ledger
const (
	SubmissionConversion = "conversion"
	SubmissionOrder      = "order"
)

// Submission is an audit row for a remote record created through this service
type Submission struct {
	ID        int64     `json:"id" db:"id"`
	AccountID string    `json:"account_id" db:"account_id"`
	Kind      string    `json:"kind" db:"kind"`
	RecordID  string    `json:"record_id" db:"record_id"`
	Number    string    `json:"number" db:"number"`
	Status    string    `json:"status" db:"status"`
	Payload   []byte    `json:"payload" db:"payload"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
