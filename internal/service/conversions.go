package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matthieukhl/loyaltydesk/internal/apperr"
	"github.com/matthieukhl/loyaltydesk/internal/models"
	"github.com/matthieukhl/loyaltydesk/internal/retry"
	"github.com/matthieukhl/loyaltydesk/internal/views"
)

const conversionListLimit = 50

// ConversionLookups loads the orders, dealers and statuses for the request
// form.
func (l *Loyalty) ConversionLookups(ctx context.Context) (models.ConversionLookups, error) {
	return retry.Do(ctx, l.retry, "conversion lookups", l.source.ConversionLookups)
}

// ConversionRequests lists the newest requests with their line items.
func (l *Loyalty) ConversionRequests(ctx context.Context, limit int) ([]models.ConversionRequest, error) {
	if limit <= 0 {
		limit = conversionListLimit
	}
	return retry.Do(ctx, l.retry, "conversion requests", func(ctx context.Context) ([]models.ConversionRequest, error) {
		return l.source.ConversionRequests(ctx, limit)
	})
}

// SubmitResult is a created conversion request and the confirmation shown
// to the user.
type SubmitResult struct {
	models.CreationResult
	Confirmation string `json:"confirmation"`
}

// SubmitConversion checks both selections before creating the request. The
// create call is never retried.
func (l *Loyalty) SubmitConversion(ctx context.Context, orderID, dealerID string) (SubmitResult, error) {
	orderID, dealerID = strings.TrimSpace(orderID), strings.TrimSpace(dealerID)
	if orderID == "" || dealerID == "" {
		fields := map[string]string{}
		if orderID == "" {
			fields["orderId"] = "Select an order number."
		}
		if dealerID == "" {
			fields["dealerId"] = "Select a dealer."
		}
		return SubmitResult{}, apperr.ValidationErr("Please select both Order Number and Dealer Name", fields)
	}

	res, err := l.source.SubmitConversion(ctx, orderID, dealerID)
	if err != nil {
		return SubmitResult{CreationResult: res}, err
	}

	payload, _ := json.Marshal(map[string]string{"orderId": orderID, "dealerId": dealerID})
	l.audit(ctx, models.Submission{
		Kind:     models.SubmissionConversion,
		RecordID: res.RecordID,
		Number:   res.RequestNumber,
		Status:   res.StatusValue,
		Payload:  payload,
	})
	l.logger.Info("conversion request created", "request", res.RequestNumber, "order_id", orderID, "dealer_id", dealerID)

	return SubmitResult{
		CreationResult: res,
		Confirmation:   fmt.Sprintf("Conversion Request %s created successfully", res.RequestNumber),
	}, nil
}

// OrderResult is a created order and the summary it was built from.
type OrderResult struct {
	models.CreationResult
	Summary views.OrderSummary `json:"summary"`
}

// PreviewOrder validates a draft and prices it without creating anything.
func (l *Loyalty) PreviewOrder(ctx context.Context, draft models.OrderDraft) (views.OrderSummary, error) {
	if draft.AccountID == "" {
		draft.AccountID = l.cfg.AccountID
	}
	if err := views.ValidateDraft(draft); err != nil {
		return views.OrderSummary{}, err
	}
	products, entries, err := l.pricing(ctx)
	if err != nil {
		return views.OrderSummary{}, err
	}
	return views.SummarizeOrder(draft.Lines, products, entries)
}

// CreateOrder validates and summarises the draft, then creates it remotely.
func (l *Loyalty) CreateOrder(ctx context.Context, draft models.OrderDraft) (OrderResult, error) {
	if draft.AccountID == "" {
		draft.AccountID = l.cfg.AccountID
	}
	summary, err := l.PreviewOrder(ctx, draft)
	if err != nil {
		return OrderResult{}, err
	}

	res, err := l.source.CreateOrder(ctx, draft)
	if err != nil {
		return OrderResult{CreationResult: res, Summary: summary}, err
	}

	payload, _ := json.Marshal(draft)
	l.audit(ctx, models.Submission{
		Kind:     models.SubmissionOrder,
		RecordID: res.RecordID,
		Number:   res.OrderNumber,
		Status:   res.StatusValue,
		Payload:  payload,
	})
	l.logger.Info("order created", "order", res.OrderNumber, "lines", len(draft.Lines))
	return OrderResult{CreationResult: res, Summary: summary}, nil
}
