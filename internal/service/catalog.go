package service

import (
	"context"

	"github.com/donMuregi/tepstore/internal/domain"
	"github.com/donMuregi/tepstore/internal/repository"
)

// CatalogService exposes the read-side catalog lookups the storefront needs
// before committing an item to a cart or application.
type CatalogService struct {
	catalog repository.CatalogRepository
}

func NewCatalogService(catalog repository.CatalogRepository) *CatalogService {
	return &CatalogService{catalog: catalog}
}

// Lookup resolves a purchasable item to its current name, price, and stock.
func (s *CatalogService) Lookup(ctx context.Context, item domain.ItemRef) (*domain.ItemInfo, error) {
	return s.catalog.Lookup(ctx, item)
}

// Plan returns a financing plan read model.
func (s *CatalogService) Plan(ctx context.Context, planID string) (*domain.FinancingPlan, error) {
	return s.catalog.GetPlan(ctx, planID)
}

// Bundle returns an enterprise bundle read model.
func (s *CatalogService) Bundle(ctx context.Context, bundleID string) (*domain.EnterpriseBundle, error) {
	return s.catalog.GetBundle(ctx, bundleID)
}
