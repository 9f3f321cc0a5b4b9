package types

import (
	"context"

	"github.com/matthieukhl/loyaltydesk/internal/models"
)

// DataSource reads and creates loyalty records, either against the live CRM
// or against canned fixtures.
type DataSource interface {
	Account(ctx context.Context, accountID string) (models.Account, error)
	Dealers(ctx context.Context) ([]models.Account, error)
	Orders(ctx context.Context, limit int) ([]models.Order, error)
	OrderLineItems(ctx context.Context, orderID string) ([]models.OrderLineItem, error)
	Products(ctx context.Context) ([]models.Product, error)
	PriceEntries(ctx context.Context) ([]models.PriceEntry, error)
	ConversionRequests(ctx context.Context, limit int) ([]models.ConversionRequest, error)
	ConversionLookups(ctx context.Context) (models.ConversionLookups, error)
	SubmitConversion(ctx context.Context, orderID, dealerID string) (models.CreationResult, error)
	CreateOrder(ctx context.Context, draft models.OrderDraft) (models.CreationResult, error)
	Name() string
}

// ActivitySource stores and lists points movements. Adjustment is the signed
// sum of the movements recorded through RecordActivity, which is added to the
// balance the CRM reports.
type ActivitySource interface {
	RecordActivity(ctx context.Context, entry models.ActivityEntry) (int64, error)
	ListActivities(ctx context.Context, accountID string, limit int) ([]models.ActivityEntry, error)
	Adjustment(ctx context.Context, accountID string) (int, error)
}

// SubmissionLog audits the remote records created through this service
type SubmissionLog interface {
	RecordSubmission(ctx context.Context, s models.Submission) (int64, error)
	ListSubmissions(ctx context.Context, accountID string, limit int) ([]models.Submission, error)
}

// Notifier delivers referral messages and redemption confirmations
type Notifier interface {
	SendSMS(ctx context.Context, phone, message string) error
	SendEmail(ctx context.Context, to, subject, body string) error
}
