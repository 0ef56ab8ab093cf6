package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/donMuregi/tepstore/internal/domain"
)

// CartRepository defines cart persistence. All mutating operations run inside
// a transaction that locks the cart row and bumps its version, so concurrent
// writers against the same cart are serialized.
type CartRepository interface {
	// GetByOwner loads the owner's cart with its lines, or ErrNotFound if the
	// owner has never written to a cart.
	GetByOwner(ctx context.Context, owner domain.CartOwner) (*domain.Cart, error)

	// GetOrCreate loads the owner's cart, creating an empty one if absent.
	GetOrCreate(ctx context.Context, owner domain.CartOwner) (*domain.Cart, error)

	// AddLine inserts a line or, when a line with the same item key exists,
	// increments its quantity by qty.
	AddLine(ctx context.Context, cartID uuid.UUID, item domain.ItemRef, qty int) error

	// UpdateLineQuantity sets the line's quantity. The line must belong to
	// cartID or ErrNotFound is returned.
	UpdateLineQuantity(ctx context.Context, cartID, lineID uuid.UUID, qty int) error

	// RemoveLine deletes the line; ErrNotFound if it is not in cartID.
	RemoveLine(ctx context.Context, cartID, lineID uuid.UUID) error

	// Clear deletes all lines; the cart row persists.
	Clear(ctx context.Context, cartID uuid.UUID) error

	// Merge folds the guest cart into the account cart atomically: colliding
	// keys sum quantities, the rest re-parent, the guest cart is deleted.
	// A missing guest cart is a no-op.
	Merge(ctx context.Context, guest, account domain.CartOwner) error
}

// OrderRepository defines order persistence.
type OrderRepository interface {
	// CreateFromCart inserts the order with its lines and clears the cart in
	// one transaction, guarded by the cart's version. ErrConflict is returned
	// when the cart changed since it was read.
	CreateFromCart(ctx context.Context, order *domain.Order, cartID uuid.UUID, expectedVersion int64) error

	// GetByToken loads an order (with lines) by its public token.
	GetByToken(ctx context.Context, token uuid.UUID) (*domain.Order, error)

	// ListByAccount returns the account's orders, newest first, with total count.
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]domain.Order, int, error)

	// UpdateStatus moves the order's fulfillment status with the transition
	// guard applied in the same statement. False means zero rows matched.
	UpdateStatus(ctx context.Context, id uuid.UUID, from []domain.OrderStatus, to domain.OrderStatus) (bool, error)

	// UpdatePaymentStatus records a settlement outcome.
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error
}

// TransitionUpdate carries the optional fields a workflow transition sets
// alongside the status write.
type TransitionUpdate struct {
	ApprovedAmount *int64
	MonthlyDue     *int64
	BankResponse   json.RawMessage
}

// FinancingRepository defines financing application persistence.
type FinancingRepository interface {
	Create(ctx context.Context, app *domain.FinancingApplication) error
	GetByToken(ctx context.Context, token uuid.UUID) (*domain.FinancingApplication, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]domain.FinancingApplication, int, error)
	ListAll(ctx context.Context, status string, limit, offset int) ([]domain.FinancingApplication, int, error)

	// Transition writes the new status (and any update fields) only when the
	// current status is one of from, in a single guarded UPDATE. False means
	// the guard did not match.
	Transition(ctx context.Context, id uuid.UUID, from []string, to string, set TransitionUpdate) (bool, error)
}

// EnterpriseRepository defines enterprise order persistence.
type EnterpriseRepository interface {
	Create(ctx context.Context, order *domain.EnterpriseOrder) error
	GetByToken(ctx context.Context, token uuid.UUID) (*domain.EnterpriseOrder, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]domain.EnterpriseOrder, int, error)
	ListAll(ctx context.Context, status string, limit, offset int) ([]domain.EnterpriseOrder, int, error)
	Transition(ctx context.Context, id uuid.UUID, from []string, to string, set TransitionUpdate) (bool, error)

	// UpdateQuantity requantifies a non-terminal order, recomputing
	// total_amount from the stored unit price. False when the order is
	// terminal or missing.
	UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int, totalAmount int64, notIn []string) (bool, error)
}

// AccountRepository defines account persistence. Create inserts the account
// and its profile atomically so the aggregate is never half-visible.
type AccountRepository interface {
	Create(ctx context.Context, acct *domain.Account, profile *domain.Profile) error
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetProfile(ctx context.Context, accountID uuid.UUID) (*domain.Profile, error)
}

// CatalogRepository is the read-only lookup the cart and workflows consume.
type CatalogRepository interface {
	// Lookup resolves a purchasable item to its current price and stock.
	Lookup(ctx context.Context, item domain.ItemRef) (*domain.ItemInfo, error)

	GetPlan(ctx context.Context, planID string) (*domain.FinancingPlan, error)
	GetBundle(ctx context.Context, bundleID string) (*domain.EnterpriseBundle, error)
}
