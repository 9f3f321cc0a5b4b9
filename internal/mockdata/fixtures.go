// Package mockdata holds the canned loyalty data used when no CRM is
// configured, and a data source serving it.
package mockdata

import (
	_ "embed"
	"fmt"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/matthieukhl/loyaltydesk/internal/models"
)

//go:embed fixtures.yaml
var fixturesYAML []byte

// Fixtures is the full canned data set.
type Fixtures struct {
	Account            models.Account             `yaml:"account"`
	Dealers            []models.DealerOption      `yaml:"dealers"`
	Orders             []FixtureOrder             `yaml:"orders"`
	StatusValues       []models.PicklistValue     `yaml:"status_values"`
	Products           []models.Product           `yaml:"products"`
	PriceEntries       []models.PriceEntry        `yaml:"price_entries"`
	ConversionRequests []FixtureConversion        `yaml:"conversion_requests"`
	Rewards            []models.RewardCatalogItem `yaml:"rewards"`
	Activities         []models.ActivityEntry     `yaml:"activities"`
	CoverageProducts   []models.CoverageProduct   `yaml:"coverage_products"`
	Scannables         []models.ScannableProduct  `yaml:"scannables"`
	SurveyQuestions    []models.SurveyQuestion    `yaml:"survey_questions"`
}

type FixtureOrder struct {
	ID            string        `yaml:"id"`
	OrderNumber   string        `yaml:"order_number"`
	AccountName   string        `yaml:"account_name"`
	TotalAmount   float64       `yaml:"total_amount"`
	Status        string        `yaml:"status"`
	EffectiveDate string        `yaml:"effective_date"`
	Lines         []FixtureLine `yaml:"lines"`
}

type FixtureLine struct {
	ProductID string  `yaml:"product_id"`
	Quantity  float64 `yaml:"quantity"`
	UnitPrice float64 `yaml:"unit_price"`
}

type FixtureConversion struct {
	ID             string    `yaml:"id"`
	Name           string    `yaml:"name"`
	OrderID        string    `yaml:"order_id"`
	DealerID       string    `yaml:"dealer_id"`
	Status         string    `yaml:"status"`
	PointsAwarded  float64   `yaml:"points_awarded"`
	ConversionDate string    `yaml:"conversion_date"`
	Created        time.Time `yaml:"created"`
}

var (
	loadOnce sync.Once
	loaded   *Fixtures
	loadErr  error
)

// Load parses the embedded fixtures once. Callers get their own copy of the
// top-level slices so they can't corrupt each other.
func Load() (*Fixtures, error) {
	loadOnce.Do(func() {
		loaded, loadErr = Parse(fixturesYAML)
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return loaded.clone(), nil
}

// Parse decodes a fixtures document.
func Parse(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	return &f, nil
}

func (f *Fixtures) clone() *Fixtures {
	c := *f
	c.Dealers = append([]models.DealerOption(nil), f.Dealers...)
	c.Orders = append([]FixtureOrder(nil), f.Orders...)
	c.StatusValues = append([]models.PicklistValue(nil), f.StatusValues...)
	c.Products = append([]models.Product(nil), f.Products...)
	c.PriceEntries = append([]models.PriceEntry(nil), f.PriceEntries...)
	c.ConversionRequests = append([]FixtureConversion(nil), f.ConversionRequests...)
	c.Rewards = append([]models.RewardCatalogItem(nil), f.Rewards...)
	c.Activities = append([]models.ActivityEntry(nil), f.Activities...)
	c.CoverageProducts = append([]models.CoverageProduct(nil), f.CoverageProducts...)
	c.Scannables = append([]models.ScannableProduct(nil), f.Scannables...)
	c.SurveyQuestions = append([]models.SurveyQuestion(nil), f.SurveyQuestions...)
	return &c
}

// ProductByID returns the product with the given id.
func (f *Fixtures) ProductByID(id string) (models.Product, bool) {
	for _, p := range f.Products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

// LineItems resolves an order's fixture lines into line items.
func (f *Fixtures) LineItems(o FixtureOrder) []models.OrderLineItem {
	items := make([]models.OrderLineItem, 0, len(o.Lines))
	for _, l := range o.Lines {
		p, _ := f.ProductByID(l.ProductID)
		items = append(items, models.NewLineItem(l.ProductID, p.Name, p.ProductCode, l.Quantity, l.UnitPrice))
	}
	return items
}

// Order converts a fixture order into a record, with line items.
func (f *Fixtures) Order(o FixtureOrder) models.Order {
	return models.Order{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		Status:        o.Status,
		EffectiveDate: o.EffectiveDate,
		AccountID:     f.Account.ID,
		AccountName:   o.AccountName,
		TotalAmount:   o.TotalAmount,
		LineItems:     f.LineItems(o),
	}
}

// OrderByID returns the fixture order with the given id.
func (f *Fixtures) OrderByID(id string) (FixtureOrder, bool) {
	for _, o := range f.Orders {
		if o.ID == id {
			return o, true
		}
	}
	return FixtureOrder{}, false
}

// DealerByID returns the dealer with the given id.
func (f *Fixtures) DealerByID(id string) (models.DealerOption, bool) {
	for _, d := range f.Dealers {
		if d.ID == id {
			return d, true
		}
	}
	return models.DealerOption{}, false
}

// Conversion converts a fixture conversion request into a record.
func (f *Fixtures) Conversion(c FixtureConversion) models.ConversionRequest {
	req := models.ConversionRequest{
		ID:               c.ID,
		Name:             c.Name,
		OrderID:          c.OrderID,
		DealerID:         c.DealerID,
		PointsAwarded:    c.PointsAwarded,
		Status:           models.ConversionStatus(c.Status),
		ConversionDate:   c.ConversionDate,
		CreatedDate:      c.Created,
		LastModifiedDate: c.Created,
		LineItems:        []models.OrderLineItem{},
	}
	if o, ok := f.OrderByID(c.OrderID); ok {
		req.OrderNumber = o.OrderNumber
		req.LineItems = f.LineItems(o)
	}
	return req
}
