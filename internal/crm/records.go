package crm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/matthieukhl/loyaltydesk/internal/apperr"
	"github.com/matthieukhl/loyaltydesk/internal/crm/soql"
	"github.com/matthieukhl/loyaltydesk/internal/models"
	"github.com/matthieukhl/loyaltydesk/internal/retry"
	"github.com/matthieukhl/loyaltydesk/internal/types"
)

// Custom actions
const (
	ActionConversionRequest = "ConversionRequest"
	ActionCreateOrder       = "CreateOrder"
)

const conversionObject = "Conversion_Request__c"

// sfTime accepts the CRM's datetime format as well as RFC 3339.
type sfTime struct{ time.Time }

func (t *sfTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05.000-0700", time.RFC3339Nano, "2006-01-02"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognised datetime %q", s)
}

type sfAccount struct {
	ID                string   `json:"Id"`
	Name              string   `json:"Name"`
	AccountNumber     string   `json:"AccountNumber"`
	Type              string   `json:"Type"`
	Phone             string   `json:"Phone"`
	TaxID             string   `json:"Tax_ID__c"`
	Email             string   `json:"Email__c"`
	TotalRewardPoints *float64 `json:"Total_Reward_Points__c"`
	BillingCity       string   `json:"BillingCity"`
	BillingState      string   `json:"BillingState"`
	DealerType        string   `json:"Dealer_Type__c"`
	CreatedDate       sfTime   `json:"CreatedDate"`
}

func (a sfAccount) model() models.Account {
	acc := models.Account{
		ID:            a.ID,
		Name:          a.Name,
		AccountNumber: a.AccountNumber,
		Type:          a.Type,
		Phone:         a.Phone,
		TaxID:         a.TaxID,
		Email:         a.Email,
		CreatedDate:   a.CreatedDate.Time,
	}
	if a.TotalRewardPoints != nil {
		acc.TotalRewardPoints = *a.TotalRewardPoints
	}
	return acc
}

type sfOrder struct {
	ID            string `json:"Id"`
	OrderNumber   string `json:"OrderNumber"`
	Status        string `json:"Status"`
	EffectiveDate string `json:"EffectiveDate"`
	AccountID     string `json:"AccountId"`
	Account       *struct {
		Name string `json:"Name"`
	} `json:"Account"`
	RecordTypeID string  `json:"RecordTypeId"`
	TotalAmount  float64 `json:"TotalAmount"`
}

func (o sfOrder) model() models.Order {
	order := models.Order{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		Status:        o.Status,
		EffectiveDate: o.EffectiveDate,
		AccountID:     o.AccountID,
		RecordTypeID:  o.RecordTypeID,
		TotalAmount:   o.TotalAmount,
		LineItems:     []models.OrderLineItem{},
	}
	if o.Account != nil {
		order.AccountName = o.Account.Name
	}
	return order
}

type sfOrderItem struct {
	ID         string `json:"Id"`
	OrderID    string `json:"OrderId"`
	Product2ID string `json:"Product2Id"`
	Product2   *struct {
		Name        string `json:"Name"`
		ProductCode string `json:"ProductCode"`
	} `json:"Product2"`
	Quantity  float64 `json:"Quantity"`
	UnitPrice float64 `json:"UnitPrice"`
}

// TotalPrice from the payload is ignored and recomputed.
func (i sfOrderItem) model() models.OrderLineItem {
	var name, code string
	if i.Product2 != nil {
		name, code = i.Product2.Name, i.Product2.ProductCode
	}
	return models.NewLineItem(i.Product2ID, name, code, i.Quantity, i.UnitPrice)
}

type sfProduct struct {
	ID          string   `json:"Id"`
	Name        string   `json:"Name"`
	ProductCode string   `json:"ProductCode"`
	Description string   `json:"Description"`
	Family      string   `json:"Family"`
	Price       *float64 `json:"Price__c"`
	IsActive    bool     `json:"IsActive"`
}

type sfPriceEntry struct {
	ID           string  `json:"Id"`
	Product2ID   string  `json:"Product2Id"`
	Pricebook2ID string  `json:"Pricebook2Id"`
	UnitPrice    float64 `json:"UnitPrice"`
}

type sfConversion struct {
	ID      string `json:"Id"`
	Name    string `json:"Name"`
	OrderID string `json:"Order__c"`
	Order   *struct {
		OrderNumber string `json:"OrderNumber"`
	} `json:"Order__r"`
	DealerID         string   `json:"Dealer__c"`
	InfluencerID     string   `json:"Influencer__c"`
	PointsAwarded    *float64 `json:"Points_Awarded__c"`
	Status           string   `json:"Status__c"`
	ConversionDate   string   `json:"Conversion_Date__c"`
	CreatedDate      sfTime   `json:"CreatedDate"`
	LastModifiedDate sfTime   `json:"LastModifiedDate"`
}

func (r sfConversion) model() models.ConversionRequest {
	req := models.ConversionRequest{
		ID:               r.ID,
		Name:             r.Name,
		OrderID:          r.OrderID,
		DealerID:         r.DealerID,
		InfluencerID:     r.InfluencerID,
		Status:           models.ConversionStatus(r.Status),
		ConversionDate:   r.ConversionDate,
		CreatedDate:      r.CreatedDate.Time,
		LastModifiedDate: r.LastModifiedDate.Time,
		LineItems:        []models.OrderLineItem{},
	}
	if r.Order != nil {
		req.OrderNumber = r.Order.OrderNumber
	}
	if r.PointsAwarded != nil {
		req.PointsAwarded = *r.PointsAwarded
	}
	return req
}

func accountQuery() *soql.Builder {
	return soql.Select("Id", "Name", "AccountNumber", "Type", "Phone", "Tax_ID__c", "Email__c", "Total_Reward_Points__c",
		"CreatedDate").
		From("Account")
}

func (c *Client) Account(ctx context.Context, accountID string) (models.Account, error) {
	q := accountQuery().Where(soql.Eq("Id", accountID)).Limit(1)
	rows, err := Query[sfAccount](ctx, c, q.String())
	if err != nil {
		return models.Account{}, err
	}
	if len(rows) == 0 {
		return models.Account{}, apperr.NotFoundErr(fmt.Sprintf("Account %s was not found.", accountID))
	}
	return rows[0].model(), nil
}

func dealerQuery() *soql.Builder {
	return accountQuery().
		Fields("BillingCity", "BillingState", "Dealer_Type__c").
		Where(soql.Eq("Type", "Dealer")).
		OrderBy("Name")
}

func (c *Client) Dealers(ctx context.Context) ([]models.Account, error) {
	rows, err := Query[sfAccount](ctx, c, dealerQuery().String())
	if err != nil {
		return nil, err
	}
	dealers := make([]models.Account, len(rows))
	for i, row := range rows {
		dealers[i] = row.model()
	}
	return dealers, nil
}

func orderQuery(limit int) *soql.Builder {
	return soql.Select("Id", "OrderNumber", "Status", "EffectiveDate", "AccountId", "RecordTypeId", "TotalAmount").
		Fields("Account.Name").
		From("Order").
		OrderBy("EffectiveDate DESC").
		Limit(limit)
}

func (c *Client) Orders(ctx context.Context, limit int) ([]models.Order, error) {
	rows, err := Query[sfOrder](ctx, c, orderQuery(limit).String())
	if err != nil {
		return nil, err
	}
	orders := make([]models.Order, len(rows))
	for i, row := range rows {
		orders[i] = row.model()
	}

	items := FanOut(ctx, c.logger, orders, c.fanOutLimit, func(ctx context.Context, o models.Order) ([]models.OrderLineItem, error) {
		return c.OrderLineItems(ctx, o.ID)
	})
	for i := range orders {
		if items[i] != nil {
			orders[i].LineItems = items[i]
		}
	}
	return orders, nil
}

func (c *Client) OrderLineItems(ctx context.Context, orderID string) ([]models.OrderLineItem, error) {
	if orderID == "" {
		return []models.OrderLineItem{}, nil
	}
	q := soql.Select("Id", "OrderId", "Product2Id", "Quantity", "UnitPrice").
		Fields("Product2.Name", "Product2.ProductCode").
		From("OrderItem").
		Where(soql.Eq("OrderId", orderID))
	rows, err := Query[sfOrderItem](ctx, c, q.String())
	if err != nil {
		return nil, err
	}
	items := make([]models.OrderLineItem, len(rows))
	for i, row := range rows {
		items[i] = row.model()
	}
	return items, nil
}

func (c *Client) Products(ctx context.Context) ([]models.Product, error) {
	q := soql.Select("Id", "Name", "ProductCode", "Description", "Family", "Price__c", "IsActive").
		From("Product2").
		Where("IsActive = true").
		OrderBy("Name")
	rows, err := Query[sfProduct](ctx, c, q.String())
	if err != nil {
		return nil, err
	}
	products := make([]models.Product, len(rows))
	for i, p := range rows {
		products[i] = models.Product{
			ID:          p.ID,
			Name:        p.Name,
			ProductCode: p.ProductCode,
			Description: p.Description,
			Family:      p.Family,
			Price:       p.Price,
			IsActive:    p.IsActive,
		}
	}
	return products, nil
}

func (c *Client) PriceEntries(ctx context.Context) ([]models.PriceEntry, error) {
	q := soql.Select("Id", "Product2Id", "Pricebook2Id", "UnitPrice").
		From("PricebookEntry").
		Where("IsActive = true")
	rows, err := Query[sfPriceEntry](ctx, c, q.String())
	if err != nil {
		return nil, err
	}
	entries := make([]models.PriceEntry, len(rows))
	for i, e := range rows {
		entries[i] = models.PriceEntry{ID: e.ID, ProductID: e.Product2ID, PricebookID: e.Pricebook2ID, UnitPrice: e.UnitPrice}
	}
	return entries, nil
}

// ConversionRequests lists the newest requests, each with the line items of
// its order fetched concurrently.
func (c *Client) ConversionRequests(ctx context.Context, limit int) ([]models.ConversionRequest, error) {
	q := soql.Select("Id", "Name", "Order__c", "Dealer__c", "Influencer__c", "Points_Awarded__c",
		"Status__c", "Conversion_Date__c", "CreatedDate", "LastModifiedDate").
		Fields("Order__r.OrderNumber").
		From(conversionObject).
		OrderBy("CreatedDate DESC").
		Limit(limit)
	rows, err := Query[sfConversion](ctx, c, q.String())
	if err != nil {
		return nil, err
	}
	requests := make([]models.ConversionRequest, len(rows))
	for i, row := range rows {
		requests[i] = row.model()
	}

	items := FanOut(ctx, c.logger, requests, c.fanOutLimit, func(ctx context.Context, r models.ConversionRequest) ([]models.OrderLineItem, error) {
		return c.OrderLineItems(ctx, r.OrderID)
	})
	for i := range requests {
		if items[i] != nil {
			requests[i].LineItems = items[i]
		}
	}
	return requests, nil
}

type describeResponse struct {
	Fields []struct {
		Name           string `json:"name"`
		PicklistValues []struct {
			Label        string `json:"label"`
			Value        string `json:"value"`
			Active       bool   `json:"active"`
			DefaultValue bool   `json:"defaultValue"`
		} `json:"picklistValues"`
	} `json:"fields"`
}

// StatusPicklist reads the active values of the conversion request status field.
func (c *Client) StatusPicklist(ctx context.Context) ([]models.PicklistValue, error) {
	path := fmt.Sprintf("/services/data/%s/sobjects/%s/describe", c.apiVersion, conversionObject)
	return retry.Do(ctx, c.policy, "describe", func(ctx context.Context) ([]models.PicklistValue, error) {
		var desc describeResponse
		if err := c.do(ctx, http.MethodGet, path, nil, &desc); err != nil {
			return nil, err
		}
		values := []models.PicklistValue{}
		for _, f := range desc.Fields {
			if f.Name != "Status__c" {
				continue
			}
			for _, v := range f.PicklistValues {
				if v.Active {
					values = append(values, models.PicklistValue{Label: v.Label, Value: v.Value, IsDefault: v.DefaultValue})
				}
			}
		}
		return values, nil
	})
}

// ConversionLookups loads the orders, dealers and status values offered on
// the conversion request form. The three reads run concurrently and the
// first failure cancels the others.
func (c *Client) ConversionLookups(ctx context.Context) (models.ConversionLookups, error) {
	var (
		orderRows  []sfOrder
		dealerRows []sfAccount
		statuses   []models.PicklistValue
	)
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		var err error
		orderRows, err = Query[sfOrder](ctx, c, orderQuery(50).String())
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		dealerRows, err = Query[sfAccount](ctx, c, dealerQuery().String())
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		statuses, err = c.StatusPicklist(ctx)
		return err
	})
	if err := p.Wait(); err != nil {
		return models.ConversionLookups{}, err
	}

	lookups := models.ConversionLookups{
		Orders:       make([]models.OrderOption, len(orderRows)),
		Dealers:      make([]models.DealerOption, len(dealerRows)),
		StatusValues: statuses,
	}
	for i, row := range orderRows {
		o := row.model()
		lookups.Orders[i] = models.OrderOption{ID: o.ID, OrderNumber: o.OrderNumber, AccountName: o.AccountName, TotalAmount: o.TotalAmount, Status: o.Status}
	}
	for i, row := range dealerRows {
		lookups.Dealers[i] = models.DealerOption{ID: row.ID, Name: row.Name, City: row.BillingCity, State: row.BillingState, Type: row.DealerType}
	}
	return lookups, nil
}

type conversionBody struct {
	OrderID  string `json:"orderId"`
	DealerID string `json:"dealerId"`
}

func (c *Client) SubmitConversion(ctx context.Context, orderID, dealerID string) (models.CreationResult, error) {
	return c.Create(ctx, ActionConversionRequest, conversionBody{OrderID: orderID, DealerID: dealerID})
}

type createOrderBody struct {
	AccountID     string                  `json:"accountId"`
	RecordTypeID  string                  `json:"recordTypeId"`
	EffectiveDate string                  `json:"effectiveDate"`
	LineItems     []models.OrderDraftLine `json:"lineItems"`
}

// CreateOrder submits a secondary order. A missing record type or effective
// date falls back to the configured record type and today's date.
func (c *Client) CreateOrder(ctx context.Context, draft models.OrderDraft) (models.CreationResult, error) {
	body := createOrderBody{
		AccountID:     draft.AccountID,
		RecordTypeID:  draft.RecordTypeID,
		EffectiveDate: draft.EffectiveDate,
		LineItems:     draft.Lines,
	}
	if body.RecordTypeID == "" {
		body.RecordTypeID = c.orderRecordTypeID
	}
	if body.EffectiveDate == "" {
		body.EffectiveDate = c.now().Format("2006-01-02")
	}
	return c.Create(ctx, ActionCreateOrder, body)
}

// Compile-time interface check
var _ types.DataSource = (*Client)(nil)
