package service

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/donMuregi/tepstore/internal/audit"
	"github.com/donMuregi/tepstore/internal/domain"
	"github.com/donMuregi/tepstore/internal/repository"
)

// --- Mock repositories ---

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) GetByOwner(ctx context.Context, owner domain.CartOwner) (*domain.Cart, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) GetOrCreate(ctx context.Context, owner domain.CartOwner) (*domain.Cart, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) AddLine(ctx context.Context, cartID uuid.UUID, item domain.ItemRef, qty int) error {
	args := m.Called(ctx, cartID, item, qty)
	return args.Error(0)
}

func (m *mockCartRepository) UpdateLineQuantity(ctx context.Context, cartID, lineID uuid.UUID, qty int) error {
	args := m.Called(ctx, cartID, lineID, qty)
	return args.Error(0)
}

func (m *mockCartRepository) RemoveLine(ctx context.Context, cartID, lineID uuid.UUID) error {
	args := m.Called(ctx, cartID, lineID)
	return args.Error(0)
}

func (m *mockCartRepository) Clear(ctx context.Context, cartID uuid.UUID) error {
	args := m.Called(ctx, cartID)
	return args.Error(0)
}

func (m *mockCartRepository) Merge(ctx context.Context, guest, account domain.CartOwner) error {
	args := m.Called(ctx, guest, account)
	return args.Error(0)
}

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) CreateFromCart(ctx context.Context, order *domain.Order, cartID uuid.UUID, expectedVersion int64) error {
	args := m.Called(ctx, order, cartID, expectedVersion)
	return args.Error(0)
}

func (m *mockOrderRepository) GetByToken(ctx context.Context, token uuid.UUID) (*domain.Order, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]domain.Order, int, error) {
	args := m.Called(ctx, accountID, limit, offset)
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from []domain.OrderStatus, to domain.OrderStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *mockOrderRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type mockFinancingRepository struct {
	mock.Mock
}

func (m *mockFinancingRepository) Create(ctx context.Context, app *domain.FinancingApplication) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

func (m *mockFinancingRepository) GetByToken(ctx context.Context, token uuid.UUID) (*domain.FinancingApplication, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FinancingApplication), args.Error(1)
}

func (m *mockFinancingRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]domain.FinancingApplication, int, error) {
	args := m.Called(ctx, accountID, limit, offset)
	return args.Get(0).([]domain.FinancingApplication), args.Int(1), args.Error(2)
}

func (m *mockFinancingRepository) ListAll(ctx context.Context, status string, limit, offset int) ([]domain.FinancingApplication, int, error) {
	args := m.Called(ctx, status, limit, offset)
	return args.Get(0).([]domain.FinancingApplication), args.Int(1), args.Error(2)
}

func (m *mockFinancingRepository) Transition(ctx context.Context, id uuid.UUID, from []string, to string, set repository.TransitionUpdate) (bool, error) {
	args := m.Called(ctx, id, from, to, set)
	return args.Bool(0), args.Error(1)
}

type mockEnterpriseRepository struct {
	mock.Mock
}

func (m *mockEnterpriseRepository) Create(ctx context.Context, order *domain.EnterpriseOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockEnterpriseRepository) GetByToken(ctx context.Context, token uuid.UUID) (*domain.EnterpriseOrder, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EnterpriseOrder), args.Error(1)
}

func (m *mockEnterpriseRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]domain.EnterpriseOrder, int, error) {
	args := m.Called(ctx, accountID, limit, offset)
	return args.Get(0).([]domain.EnterpriseOrder), args.Int(1), args.Error(2)
}

func (m *mockEnterpriseRepository) ListAll(ctx context.Context, status string, limit, offset int) ([]domain.EnterpriseOrder, int, error) {
	args := m.Called(ctx, status, limit, offset)
	return args.Get(0).([]domain.EnterpriseOrder), args.Int(1), args.Error(2)
}

func (m *mockEnterpriseRepository) Transition(ctx context.Context, id uuid.UUID, from []string, to string, set repository.TransitionUpdate) (bool, error) {
	args := m.Called(ctx, id, from, to, set)
	return args.Bool(0), args.Error(1)
}

func (m *mockEnterpriseRepository) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int, totalAmount int64, notIn []string) (bool, error) {
	args := m.Called(ctx, id, quantity, totalAmount, notIn)
	return args.Bool(0), args.Error(1)
}

type mockAccountRepository struct {
	mock.Mock
}

func (m *mockAccountRepository) Create(ctx context.Context, acct *domain.Account, profile *domain.Profile) error {
	args := m.Called(ctx, acct, profile)
	return args.Error(0)
}

func (m *mockAccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *mockAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *mockAccountRepository) GetProfile(ctx context.Context, accountID uuid.UUID) (*domain.Profile, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

type mockCatalogRepository struct {
	mock.Mock
}

func (m *mockCatalogRepository) Lookup(ctx context.Context, item domain.ItemRef) (*domain.ItemInfo, error) {
	args := m.Called(ctx, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ItemInfo), args.Error(1)
}

func (m *mockCatalogRepository) GetPlan(ctx context.Context, planID string) (*domain.FinancingPlan, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FinancingPlan), args.Error(1)
}

func (m *mockCatalogRepository) GetBundle(ctx context.Context, bundleID string) (*domain.EnterpriseBundle, error) {
	args := m.Called(ctx, bundleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EnterpriseBundle), args.Error(1)
}

// --- Test helpers ---

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, audit.Entry) {}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}
