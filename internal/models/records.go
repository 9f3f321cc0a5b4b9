package models

import (
	"math"
	"time"
)

// AuthToken is a bearer token obtained from the CRM token endpoint.
type AuthToken struct {
	AccessToken string    `json:"access_token"`
	InstanceURL string    `json:"instance_url,omitempty"`
	ObtainedAt  time.Time `json:"obtained_at"`
}

// Account represents a dealer or customer record
type Account struct {
	ID                string  `json:"id" yaml:"id"`
	Name              string  `json:"name" yaml:"name"`
	AccountNumber     string  `json:"account_number,omitempty" yaml:"account_number"`
	Type              string  `json:"type,omitempty" yaml:"type"`
	Phone             string  `json:"phone,omitempty" yaml:"phone"`
	TaxID             string  `json:"tax_id,omitempty" yaml:"tax_id"`
	Email             string  `json:"email,omitempty" yaml:"email"`
	TotalRewardPoints float64 `json:"total_reward_points" yaml:"total_reward_points"`

	// CreatedDate is when the member joined. Zero when the source omits it.
	CreatedDate time.Time `json:"created_date" yaml:"created_date"`
}

// Order represents a secondary order placed against an account
type Order struct {
	ID            string          `json:"id"`
	OrderNumber   string          `json:"order_number"`
	Status        string          `json:"status"`
	EffectiveDate string          `json:"effective_date"`
	AccountID     string          `json:"account_id"`
	AccountName   string          `json:"account_name,omitempty"`
	RecordTypeID  string          `json:"record_type_id,omitempty"`
	TotalAmount   float64         `json:"total_amount"`
	LineItems     []OrderLineItem `json:"line_items"`
}

// OrderLineItem is a product line on an order. TotalPrice is always derived
// from Quantity and UnitPrice, never copied from the remote payload.
type OrderLineItem struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	ProductCode string  `json:"product_code,omitempty"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
}

// NewLineItem builds a line item with its total rounded to cents.
func NewLineItem(productID, name, code string, quantity, unitPrice float64) OrderLineItem {
	return OrderLineItem{
		ProductID:   productID,
		ProductName: name,
		ProductCode: code,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TotalPrice:  RoundCents(quantity * unitPrice),
	}
}

// RoundCents rounds an amount to two decimal places.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Product is an active catalog entry
type Product struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	ProductCode string   `json:"product_code" yaml:"product_code"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Family      string   `json:"family,omitempty" yaml:"family"`
	Price       *float64 `json:"price,omitempty" yaml:"price"`
	IsActive    bool     `json:"is_active" yaml:"is_active"`
}

// PriceEntry maps a product to its unit price within a pricebook
type PriceEntry struct {
	ID          string  `json:"id" yaml:"id"`
	ProductID   string  `json:"product_id" yaml:"product_id"`
	PricebookID string  `json:"pricebook_id" yaml:"pricebook_id"`
	UnitPrice   float64 `json:"unit_price" yaml:"unit_price"`
}

// ConversionStatus is the lifecycle state of a conversion request
type ConversionStatus string

const (
	ConversionPending  ConversionStatus = "Pending"
	ConversionApproved ConversionStatus = "Approved"
	ConversionRejected ConversionStatus = "Rejected"
)

// ConversionRequest is a claim converting a purchase order into loyalty points
type ConversionRequest struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	OrderID          string           `json:"order_id"`
	OrderNumber      string           `json:"order_number,omitempty"`
	DealerID         string           `json:"dealer_id,omitempty"`
	InfluencerID     string           `json:"influencer_id,omitempty"`
	PointsAwarded    float64          `json:"points_awarded"`
	Status           ConversionStatus `json:"status"`
	ConversionDate   string           `json:"conversion_date,omitempty"`
	CreatedDate      time.Time        `json:"created_date"`
	LastModifiedDate time.Time        `json:"last_modified_date"`
	LineItems        []OrderLineItem  `json:"line_items"`
}

// EffectivePoints returns the awarded points, which only count once the
// request has been approved.
func (c ConversionRequest) EffectivePoints() float64 {
	if c.Status != ConversionApproved {
		return 0
	}
	return c.PointsAwarded
}

// CreationResult is the response of a record-creating custom action
type CreationResult struct {
	Success       bool   `json:"success"`
	RecordID      string `json:"recordId,omitempty"`
	OrderNumber   string `json:"orderNumber,omitempty"`
	RequestNumber string `json:"requestNumber,omitempty"`
	StatusValue   string `json:"statusValue,omitempty"`
	Message       string `json:"message,omitempty"`
}

// OrderOption is an order selectable on the conversion request form
type OrderOption struct {
	ID          string  `json:"id" yaml:"id"`
	OrderNumber string  `json:"order_number" yaml:"order_number"`
	AccountName string  `json:"account_name" yaml:"account_name"`
	TotalAmount float64 `json:"total_amount" yaml:"total_amount"`
	Status      string  `json:"status" yaml:"status"`
}

// DealerOption is a dealer selectable on the conversion request form
type DealerOption struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	City  string `json:"city" yaml:"city"`
	State string `json:"state" yaml:"state"`
	Type  string `json:"type" yaml:"type"`
}

// PicklistValue is one allowed value of a picklist field
type PicklistValue struct {
	Label     string `json:"label" yaml:"label"`
	Value     string `json:"value" yaml:"value"`
	IsDefault bool   `json:"is_default" yaml:"is_default"`
}

// ConversionLookups holds everything the conversion request form needs
type ConversionLookups struct {
	Orders       []OrderOption   `json:"orders"`
	Dealers      []DealerOption  `json:"dealers"`
	StatusValues []PicklistValue `json:"status_values"`
}

// OrderDraft is the input for creating a secondary order
type OrderDraft struct {
	AccountID     string           `json:"account_id"`
	RecordTypeID  string           `json:"record_type_id,omitempty"`
	EffectiveDate string           `json:"effective_date,omitempty"`
	Lines         []OrderDraftLine `json:"lines"`
}

// OrderDraftLine is a product/quantity pair supplied at order creation
type OrderDraftLine struct {
	ProductID string  `json:"productId"`
	Quantity  float64 `json:"quantity"`
}
