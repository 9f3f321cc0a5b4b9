package views

import (
	"fmt"

	"github.com/matthieukhl/loyaltydesk/internal/apperr"
	"github.com/matthieukhl/loyaltydesk/internal/models"
)

// ResolveUnitPrice applies the precedence price entry, then list price,
// then zero.
func ResolveUnitPrice(p models.Product, entries []models.PriceEntry) float64 {
	for _, e := range entries {
		if e.ProductID == p.ID {
			return e.UnitPrice
		}
	}
	if p.Price != nil {
		return *p.Price
	}
	return 0
}

// PricedProduct is a catalog product with its effective unit price.
type PricedProduct struct {
	models.Product
	UnitPrice float64 `json:"unit_price"`
}

func PriceProducts(products []models.Product, entries []models.PriceEntry) []PricedProduct {
	out := make([]PricedProduct, len(products))
	for i, p := range products {
		out[i] = PricedProduct{Product: p, UnitPrice: ResolveUnitPrice(p, entries)}
	}
	return out
}

// OrderSummary is the pre-submission view of an order draft.
type OrderSummary struct {
	Lines          []models.OrderLineItem `json:"lines"`
	TotalQuantity  float64                `json:"total_quantity"`
	EstimatedTotal float64                `json:"estimated_total"`
}

// ValidateDraft checks what can be checked without the catalog.
func ValidateDraft(draft models.OrderDraft) error {
	fields := map[string]string{}
	if draft.AccountID == "" {
		fields["account_id"] = "An account is required."
	}
	if len(draft.Lines) == 0 {
		fields["lines"] = "Add at least one product."
	}
	for i, l := range draft.Lines {
		if l.ProductID == "" {
			fields[fmt.Sprintf("lines[%d].productId", i)] = "Select a product."
		}
		if l.Quantity <= 0 {
			fields[fmt.Sprintf("lines[%d].quantity", i)] = "Quantity must be greater than zero."
		}
	}
	if len(fields) > 0 {
		return apperr.ValidationErr("Please fix the highlighted order fields.", fields)
	}
	return nil
}

// SummarizeOrder resolves every draft line against the active products and
// totals quantities and estimated amount. Unknown or inactive products are
// validation errors.
func SummarizeOrder(lines []models.OrderDraftLine, products []models.Product, entries []models.PriceEntry) (OrderSummary, error) {
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		if p.IsActive {
			byID[p.ID] = p
		}
	}

	summary := OrderSummary{Lines: make([]models.OrderLineItem, 0, len(lines))}
	fields := map[string]string{}
	var total float64
	for i, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			fields[fmt.Sprintf("lines[%d].productId", i)] = fmt.Sprintf("Product %s is not available.", l.ProductID)
			continue
		}
		item := models.NewLineItem(p.ID, p.Name, p.ProductCode, l.Quantity, ResolveUnitPrice(p, entries))
		summary.Lines = append(summary.Lines, item)
		summary.TotalQuantity += l.Quantity
		total += item.TotalPrice
	}
	if len(fields) > 0 {
		return OrderSummary{}, apperr.ValidationErr("Some products are not available.", fields)
	}
	summary.EstimatedTotal = models.RoundCents(total)
	return summary, nil
}
