package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donMuregi/tepstore/internal/domain"
	"github.com/donMuregi/tepstore/pkg/database"
	apperrors "github.com/donMuregi/tepstore/pkg/errors"
)

func newOrderTestFixture(t *testing.T) (*OrderRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewOrderRepository(mock)
	return repo, mock
}

func sampleOrder() *domain.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	o := &domain.Order{
		ID:           uuid.New(),
		PublicToken:  uuid.New(),
		AccountID:    "acct-1",
		FullName:     "Jane Doe",
		Email:        "jane@example.com",
		Phone:        "+254700000000",
		Town:         "Nairobi",
		Address:      "1 Main St",
		Subtotal:     80000,
		ShippingCost: 500,
		Total:        80500,
		Status:       domain.OrderPending,
		Payment:      domain.PaymentPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	o.Lines = []domain.OrderLine{{
		ID:        uuid.New(),
		OrderID:   o.ID,
		Item:      domain.ProductRef("prod-1", ""),
		Name:      "Laptop",
		Quantity:  2,
		UnitPrice: 40000,
	}}
	return o
}

func orderColumnNames() []string {
	return []string{
		"id", "public_token", "account_id", "session_token",
		"full_name", "email", "phone", "town", "address",
		"subtotal", "shipping_cost", "total", "status", "payment_status",
		"created_at", "updated_at",
	}
}

func orderRow(o *domain.Order) *pgxmock.Rows {
	accountID, sessionToken := ownerArgs(domain.CartOwner{AccountID: o.AccountID, SessionToken: o.SessionToken})
	return pgxmock.NewRows(orderColumnNames()).AddRow(
		o.ID, o.PublicToken, accountID, sessionToken,
		o.FullName, o.Email, o.Phone, o.Town, o.Address,
		o.Subtotal, o.ShippingCost, o.Total, o.Status, o.Payment,
		o.CreatedAt, o.UpdatedAt,
	)
}

// ---------------------------------------------------------------------------
// CreateFromCart
// ---------------------------------------------------------------------------

func TestOrderRepository_CreateFromCart_Success(t *testing.T) {
	repo, mock := newOrderTestFixture(t)
	defer mock.Close()

	o := sampleOrder()
	cartID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE carts SET version = version \\+ 1").
		WithArgs(pgxmock.AnyArg(), cartID, int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(
			o.ID, o.PublicToken, pgxmock.AnyArg(), pgxmock.AnyArg(),
			o.FullName, o.Email, o.Phone, o.Town, o.Address,
			o.Subtotal, o.ShippingCost, o.Total, o.Status, o.Payment,
			o.CreatedAt, o.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO order_lines").
		WithArgs(
			o.Lines[0].ID, o.ID, o.Lines[0].Item.Kind, "prod-1", "", "",
			o.Lines[0].Name, o.Lines[0].Quantity, o.Lines[0].UnitPrice,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("DELETE FROM cart_lines WHERE cart_id =").
		WithArgs(cartID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	err := repo.CreateFromCart(context.Background(), o, cartID, 4)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_CreateFromCart_VersionConflict(t *testing.T) {
	repo, mock := newOrderTestFixture(t)
	defer mock.Close()

	o := sampleOrder()
	cartID := uuid.New()

	// Another writer bumped the cart version after it was read; the CAS
	// touches zero rows and nothing else runs.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE carts SET version = version \\+ 1").
		WithArgs(pgxmock.AnyArg(), cartID, int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.CreateFromCart(context.Background(), o, cartID, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict), "expected ErrConflict, got: %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// GetByToken
// ---------------------------------------------------------------------------

func TestOrderRepository_GetByToken_Success(t *testing.T) {
	repo, mock := newOrderTestFixture(t)
	defer mock.Close()

	o := sampleOrder()

	mock.ExpectQuery("SELECT .+ FROM orders WHERE public_token =").
		WithArgs(o.PublicToken).
		WillReturnRows(orderRow(o))
	mock.ExpectQuery("SELECT .+ FROM order_lines").
		WithArgs(o.ID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "order_id", "kind", "product_id", "variant_id", "tablet_id", "name", "quantity", "unit_price",
		}).AddRow(
			o.Lines[0].ID, o.ID, o.Lines[0].Item.Kind, "prod-1", "", "", "Laptop", 2, int64(40000),
		))

	got, err := repo.GetByToken(context.Background(), o.PublicToken)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.Equal(t, "acct-1", got.AccountID)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, int64(40000), got.Lines[0].UnitPrice)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByToken_NotFound(t *testing.T) {
	repo, mock := newOrderTestFixture(t)
	defer mock.Close()

	token := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM orders WHERE public_token =").
		WithArgs(token).
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByToken(context.Background(), token)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "expected ErrNotFound, got: %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// UpdateStatus
// ---------------------------------------------------------------------------

func TestOrderRepository_UpdateStatus_GuardHolds(t *testing.T) {
	repo, mock := newOrderTestFixture(t)
	defer mock.Close()

	id := uuid.New()

	mock.ExpectExec("UPDATE orders SET status =").
		WithArgs(domain.OrderConfirmed, pgxmock.AnyArg(), id, []string{"pending"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := repo.UpdateStatus(context.Background(), id, []domain.OrderStatus{domain.OrderPending}, domain.OrderConfirmed)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_UpdateStatus_GuardMiss(t *testing.T) {
	repo, mock := newOrderTestFixture(t)
	defer mock.Close()

	id := uuid.New()

	mock.ExpectExec("UPDATE orders SET status =").
		WithArgs(domain.OrderShipped, pgxmock.AnyArg(), id, []string{"processing"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := repo.UpdateStatus(context.Background(), id, []domain.OrderStatus{domain.OrderProcessing}, domain.OrderShipped)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// UpdatePaymentStatus
// ---------------------------------------------------------------------------

func TestOrderRepository_UpdatePaymentStatus_NotFound(t *testing.T) {
	repo, mock := newOrderTestFixture(t)
	defer mock.Close()

	id := uuid.New()

	mock.ExpectExec("UPDATE orders SET payment_status =").
		WithArgs(domain.PaymentPaid, pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdatePaymentStatus(context.Background(), id, domain.PaymentPaid)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "expected ErrNotFound, got: %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
