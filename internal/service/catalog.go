package service

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"github.com/matthieukhl/loyaltydesk/internal/apperr"
	"github.com/matthieukhl/loyaltydesk/internal/models"
	"github.com/matthieukhl/loyaltydesk/internal/views"
)

// CatalogView is the rewards page
type CatalogView struct {
	Categories []string                   `json:"categories"`
	Items      []models.RewardCatalogItem `json:"items"`
}

// Catalog filters the reward catalog and resolves image URLs. An image that
// can't be resolved is left blank.
func (l *Loyalty) Catalog(ctx context.Context, category, term string) CatalogView {
	items := views.FilterRewards(l.catalog.Rewards, category, term)
	for i := range items {
		items[i].ImageURL = l.imageURL(ctx, items[i].ImageRef)
	}
	return CatalogView{Categories: views.RewardCategories(l.catalog.Rewards), Items: items}
}

// Reward returns one catalog item with its image URL.
func (l *Loyalty) Reward(ctx context.Context, id string) (models.RewardCatalogItem, error) {
	item, ok := views.FindReward(l.catalog.Rewards, id)
	if !ok {
		return models.RewardCatalogItem{}, apperr.NotFoundErr("Reward not found.")
	}
	item.ImageURL = l.imageURL(ctx, item.ImageRef)
	return item, nil
}

// ImageURL resolves an image reference.
func (l *Loyalty) ImageURL(ctx context.Context, ref string) (string, error) {
	if l.images == nil {
		return ref, nil
	}
	return l.images.URL(ctx, ref)
}

func (l *Loyalty) imageURL(ctx context.Context, ref string) string {
	u, err := l.ImageURL(ctx, ref)
	if err != nil {
		l.logger.Warn("failed to resolve image", "ref", ref, "error", err)
		return ""
	}
	return u
}

// ProductCatalog loads products and price entries concurrently, then prices
// and filters them.
func (l *Loyalty) ProductCatalog(ctx context.Context, family, term string) ([]views.PricedProduct, error) {
	products, entries, err := l.pricing(ctx)
	if err != nil {
		return nil, err
	}
	return views.PriceProducts(views.FilterProducts(products, family, term), entries), nil
}

func (l *Loyalty) pricing(ctx context.Context) ([]models.Product, []models.PriceEntry, error) {
	var (
		products []models.Product
		entries  []models.PriceEntry
	)
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		var err error
		products, err = l.source.Products(ctx)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		entries, err = l.source.PriceEntries(ctx)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, nil, err
	}
	return products, entries, nil
}

func (l *Loyalty) CoverageProducts() []models.CoverageProduct {
	return append([]models.CoverageProduct(nil), l.catalog.CoverageProducts...)
}

// Coverage runs the calculator for a named product. ok is false when any
// dimension is missing or not positive.
func (l *Loyalty) Coverage(length, width float64, product string) (views.CoverageEstimate, bool, error) {
	p, found := views.FindCoverageProduct(l.catalog.CoverageProducts, product)
	if !found {
		return views.CoverageEstimate{}, false, apperr.ValidationErr("Unknown product.", map[string]string{"product": "Select a product from the list."})
	}
	est, ok := views.Coverage(length, width, p)
	return est, ok, nil
}
