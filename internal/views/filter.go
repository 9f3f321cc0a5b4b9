package views

import (
	"strings"

	"github.com/matthieukhl/loyaltydesk/internal/models"
)

// AllCategories selects every item.
const AllCategories = "all"

// Filter returns the items keep accepts, in their original order, in a new
// slice. The input is never modified.
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func matchesCategory(category, value string) bool {
	category = strings.TrimSpace(category)
	return category == "" || strings.EqualFold(category, AllCategories) || strings.EqualFold(category, value)
}

// containsFold reports whether any field contains term, ignoring case.
func containsFold(term string, fields ...string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// FilterRewards narrows the catalog to a category and a search term matched
// against title, SKU and description.
func FilterRewards(items []models.RewardCatalogItem, category, term string) []models.RewardCatalogItem {
	return Filter(items, func(it models.RewardCatalogItem) bool {
		return matchesCategory(category, it.Category) && containsFold(term, it.Title, it.SKU, it.Description)
	})
}

// FilterProducts narrows products to a family and a search term matched
// against name, product code and description.
func FilterProducts(products []models.Product, family, term string) []models.Product {
	return Filter(products, func(p models.Product) bool {
		return matchesCategory(family, p.Family) && containsFold(term, p.Name, p.ProductCode, p.Description)
	})
}

// RewardCategories lists "all" followed by each distinct category in order
// of first appearance.
func RewardCategories(items []models.RewardCatalogItem) []string {
	seen := map[string]bool{}
	out := []string{AllCategories}
	for _, it := range items {
		if !seen[it.Category] {
			seen[it.Category] = true
			out = append(out, it.Category)
		}
	}
	return out
}

// FindReward returns the catalog item with the given id.
func FindReward(items []models.RewardCatalogItem, id string) (models.RewardCatalogItem, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return models.RewardCatalogItem{}, false
}
