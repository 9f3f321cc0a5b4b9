package mockdata

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/matthieukhl/loyaltydesk/internal/apperr"
	"github.com/matthieukhl/loyaltydesk/internal/models"
	"github.com/matthieukhl/loyaltydesk/internal/types"
	"github.com/matthieukhl/loyaltydesk/internal/views"
)

// Options tunes the mock source. FailureRate is the probability in [0,1]
// that any call fails with a simulated transport error; zero disables it.
type Options struct {
	Latency     time.Duration
	FailureRate float64
	Seed        int64
	Now         func() time.Time
}

// Client serves fixtures through the DataSource interface.
type Client struct {
	opts Options
	data *Fixtures

	mu        sync.Mutex
	rng       *rand.Rand
	submitted []models.ConversionRequest
	orders    []models.Order
}

func NewClient(data *Fixtures, opts Options) *Client {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	seed := uint64(opts.Seed)
	if seed == 0 {
		seed = uint64(opts.Now().UnixNano())
	}
	return &Client{
		opts: opts,
		data: data,
		rng:  rand.New(rand.NewPCG(seed, seed>>1)),
	}
}

func (c *Client) Name() string {
	return "mock"
}

// Fixtures exposes the data the client serves.
func (c *Client) Fixtures() *Fixtures {
	return c.data
}

func (c *Client) simulate(ctx context.Context, op string) error {
	if c.opts.Latency > 0 {
		timer := time.NewTimer(c.opts.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	if c.opts.FailureRate <= 0 {
		return nil
	}
	c.mu.Lock()
	roll := c.rng.Float64()
	c.mu.Unlock()
	if roll < c.opts.FailureRate {
		return apperr.FetchErr("Could not load data from the CRM.", fmt.Errorf("simulated %s failure", op))
	}
	return nil
}

func (c *Client) Account(ctx context.Context, accountID string) (models.Account, error) {
	if err := c.simulate(ctx, "account"); err != nil {
		return models.Account{}, err
	}
	if accountID != "" && accountID != c.data.Account.ID {
		return models.Account{}, apperr.NotFoundErr(fmt.Sprintf("Account %s was not found.", accountID))
	}
	return c.data.Account, nil
}

func (c *Client) Dealers(ctx context.Context) ([]models.Account, error) {
	if err := c.simulate(ctx, "dealers"); err != nil {
		return nil, err
	}
	dealers := make([]models.Account, len(c.data.Dealers))
	for i, d := range c.data.Dealers {
		dealers[i] = models.Account{ID: d.ID, Name: d.Name, Type: "Dealer"}
	}
	return dealers, nil
}

func (c *Client) Orders(ctx context.Context, limit int) ([]models.Order, error) {
	if err := c.simulate(ctx, "orders"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	orders := append([]models.Order(nil), c.orders...)
	c.mu.Unlock()
	for _, o := range c.data.Orders {
		orders = append(orders, c.data.Order(o))
	}
	return limitTo(orders, limit), nil
}

func (c *Client) OrderLineItems(ctx context.Context, orderID string) ([]models.OrderLineItem, error) {
	if err := c.simulate(ctx, "line items"); err != nil {
		return nil, err
	}
	if o, ok := c.data.OrderByID(orderID); ok {
		return c.data.LineItems(o), nil
	}
	return []models.OrderLineItem{}, nil
}

func (c *Client) Products(ctx context.Context) ([]models.Product, error) {
	if err := c.simulate(ctx, "products"); err != nil {
		return nil, err
	}
	products := make([]models.Product, 0, len(c.data.Products))
	for _, p := range c.data.Products {
		if p.IsActive {
			products = append(products, p)
		}
	}
	return products, nil
}

func (c *Client) PriceEntries(ctx context.Context) ([]models.PriceEntry, error) {
	if err := c.simulate(ctx, "price entries"); err != nil {
		return nil, err
	}
	return append([]models.PriceEntry(nil), c.data.PriceEntries...), nil
}

// ConversionRequests lists requests submitted through this client first,
// then the fixture requests.
func (c *Client) ConversionRequests(ctx context.Context, limit int) ([]models.ConversionRequest, error) {
	if err := c.simulate(ctx, "conversion requests"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	requests := make([]models.ConversionRequest, 0, len(c.submitted)+len(c.data.ConversionRequests))
	for i := len(c.submitted) - 1; i >= 0; i-- {
		requests = append(requests, c.submitted[i])
	}
	c.mu.Unlock()
	for _, r := range c.data.ConversionRequests {
		requests = append(requests, c.data.Conversion(r))
	}
	return limitTo(requests, limit), nil
}

func (c *Client) ConversionLookups(ctx context.Context) (models.ConversionLookups, error) {
	if err := c.simulate(ctx, "lookups"); err != nil {
		return models.ConversionLookups{}, err
	}
	lookups := models.ConversionLookups{
		Orders:       make([]models.OrderOption, len(c.data.Orders)),
		Dealers:      append([]models.DealerOption(nil), c.data.Dealers...),
		StatusValues: append([]models.PicklistValue(nil), c.data.StatusValues...),
	}
	for i, o := range c.data.Orders {
		lookups.Orders[i] = models.OrderOption{ID: o.ID, OrderNumber: o.OrderNumber, AccountName: o.AccountName, TotalAmount: o.TotalAmount, Status: o.Status}
	}
	return lookups, nil
}

// SubmitConversion creates a pending request with a generated CR-dddd number.
func (c *Client) SubmitConversion(ctx context.Context, orderID, dealerID string) (models.CreationResult, error) {
	if err := c.simulate(ctx, "submission"); err != nil {
		return models.CreationResult{}, err
	}
	order, ok := c.data.OrderByID(orderID)
	if !ok {
		return rejected(fmt.Sprintf("Order %s does not exist.", orderID))
	}
	dealer, ok := c.data.DealerByID(dealerID)
	if !ok {
		return rejected(fmt.Sprintf("Dealer %s does not exist.", dealerID))
	}

	now := c.opts.Now()
	c.mu.Lock()
	number := fmt.Sprintf("CR-%d", 1000+c.rng.IntN(9000))
	c.mu.Unlock()

	result := models.CreationResult{
		Success:       true,
		RecordID:      fmt.Sprintf("rec-%d", now.UnixMilli()),
		RequestNumber: number,
		StatusValue:   string(models.ConversionPending),
		Message:       fmt.Sprintf("Conversion request created for Order %s and Dealer %s", order.OrderNumber, dealer.Name),
	}

	c.mu.Lock()
	c.submitted = append(c.submitted, models.ConversionRequest{
		ID:               result.RecordID,
		Name:             number,
		OrderID:          order.ID,
		OrderNumber:      order.OrderNumber,
		DealerID:         dealer.ID,
		Status:           models.ConversionPending,
		CreatedDate:      now,
		LastModifiedDate: now,
		LineItems:        c.data.LineItems(order),
	})
	c.mu.Unlock()
	return result, nil
}

func (c *Client) CreateOrder(ctx context.Context, draft models.OrderDraft) (models.CreationResult, error) {
	if err := c.simulate(ctx, "order creation"); err != nil {
		return models.CreationResult{}, err
	}
	if draft.AccountID == "" {
		return rejected("An account is required.")
	}
	if len(draft.Lines) == 0 {
		return rejected("An order needs at least one line item.")
	}

	items := make([]models.OrderLineItem, 0, len(draft.Lines))
	var total float64
	for _, l := range draft.Lines {
		p, ok := c.data.ProductByID(l.ProductID)
		if !ok || !p.IsActive {
			return rejected(fmt.Sprintf("Product %s is not available.", l.ProductID))
		}
		item := models.NewLineItem(p.ID, p.Name, p.ProductCode, l.Quantity, views.ResolveUnitPrice(p, c.data.PriceEntries))
		total += item.TotalPrice
		items = append(items, item)
	}

	now := c.opts.Now()
	effective := draft.EffectiveDate
	if effective == "" {
		effective = now.Format("2006-01-02")
	}

	c.mu.Lock()
	number := fmt.Sprintf("ORD-%d-%03d", now.Year(), len(c.data.Orders)+len(c.orders)+1)
	order := models.Order{
		ID:            fmt.Sprintf("ord-%d", now.UnixMilli()),
		OrderNumber:   number,
		Status:        "Draft",
		EffectiveDate: effective,
		AccountID:     draft.AccountID,
		RecordTypeID:  draft.RecordTypeID,
		TotalAmount:   models.RoundCents(total),
		LineItems:     items,
	}
	c.orders = append([]models.Order{order}, c.orders...)
	c.mu.Unlock()

	return models.CreationResult{
		Success:     true,
		RecordID:    order.ID,
		OrderNumber: number,
		StatusValue: order.Status,
		Message:     fmt.Sprintf("Order %s created with %d line items", number, len(items)),
	}, nil
}

func rejected(msg string) (models.CreationResult, error) {
	return models.CreationResult{Success: false, Message: msg}, apperr.DomainErr(msg)
}

func limitTo[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

// Compile-time interface check
var _ types.DataSource = (*Client)(nil)
