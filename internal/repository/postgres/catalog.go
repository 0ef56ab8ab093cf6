package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/donMuregi/tepstore/internal/domain"
	"github.com/donMuregi/tepstore/internal/repository"
	"github.com/donMuregi/tepstore/pkg/database"
	apperrors "github.com/donMuregi/tepstore/pkg/errors"
)

// CatalogRepository is the read-only catalog lookup over products, product
// variants, and education tablets. The cart and workflow services consume it
// through the repository.CatalogRepository interface.
type CatalogRepository struct {
	pool database.DBTX
}

// NewCatalogRepository creates a new PostgreSQL-backed catalog read model.
func NewCatalogRepository(pool database.DBTX) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

var _ repository.CatalogRepository = (*CatalogRepository)(nil)

// Lookup resolves a purchasable item to its name, current unit price, and
// stock. A product's current price is its sale price when set, else its list
// price; a variant adds its price adjustment on top. Tablets price directly.
func (r *CatalogRepository) Lookup(ctx context.Context, item domain.ItemRef) (*domain.ItemInfo, error) {
	var (
		info domain.ItemInfo
		err  error
	)

	switch {
	case item.Kind == domain.KindTablet:
		err = r.pool.QueryRow(ctx, `
			SELECT name, price, stock > 0
			FROM education_tablets
			WHERE id = $1 AND active`,
			item.TabletID,
		).Scan(&info.Name, &info.UnitPrice, &info.InStock)

	case item.VariantID != "":
		err = r.pool.QueryRow(ctx, `
			SELECT p.name || ' (' || v.name || ')',
				COALESCE(p.sale_price, p.price) + v.price_adjustment,
				v.stock > 0
			FROM product_variants v
			JOIN products p ON p.id = v.product_id
			WHERE v.id = $1 AND v.product_id = $2 AND p.active`,
			item.VariantID, item.ProductID,
		).Scan(&info.Name, &info.UnitPrice, &info.InStock)

	default:
		err = r.pool.QueryRow(ctx, `
			SELECT name, COALESCE(sale_price, price), stock > 0
			FROM products
			WHERE id = $1 AND active`,
			item.ProductID,
		).Scan(&info.Name, &info.UnitPrice, &info.InStock)
	}

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ItemNotFound("item is not available")
		}
		return nil, fmt.Errorf("lookup catalog item: %w", err)
	}
	return &info, nil
}

// GetPlan loads an active financing plan.
func (r *CatalogRepository) GetPlan(ctx context.Context, planID string) (*domain.FinancingPlan, error) {
	var p domain.FinancingPlan
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, months, interest_rate, active
		FROM financing_plans
		WHERE id = $1 AND active`,
		planID,
	).Scan(&p.ID, &p.Name, &p.Months, &p.InterestRate, &p.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("financing plan", planID)
		}
		return nil, fmt.Errorf("scan financing plan: %w", err)
	}
	return &p, nil
}

// GetBundle loads an active enterprise bundle.
func (r *CatalogRepository) GetBundle(ctx context.Context, bundleID string) (*domain.EnterpriseBundle, error) {
	var b domain.EnterpriseBundle
	err := r.pool.QueryRow(ctx, `
		SELECT id, product_id, name, minimum_quantity, price_per_device, active
		FROM enterprise_bundles
		WHERE id = $1 AND active`,
		bundleID,
	).Scan(&b.ID, &b.ProductID, &b.Name, &b.MinimumQuantity, &b.PricePerDevice, &b.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("enterprise bundle", bundleID)
		}
		return nil, fmt.Errorf("scan enterprise bundle: %w", err)
	}
	return &b, nil
}
