package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donMuregi/tepstore/internal/domain"
	"github.com/donMuregi/tepstore/internal/event"
	apperrors "github.com/donMuregi/tepstore/pkg/errors"
)

func newCartService(carts *mockCartRepository, catalog *mockCatalogRepository) *CartService {
	return NewCartService(carts, catalog, event.NopPublisher{}, newTestLogger())
}

func sessionActor(token string) Actor {
	return Actor{SessionToken: token}
}

func accountActor(id string) Actor {
	return Actor{AccountID: id, Role: domain.RoleCustomer}
}

func testCart(owner domain.CartOwner, lines ...domain.CartLine) *domain.Cart {
	return &domain.Cart{
		ID:          uuid.New(),
		PublicToken: uuid.New(),
		Owner:       owner,
		Version:     1,
		Lines:       lines,
	}
}

func TestGetCart_AnonymousWithoutSession(t *testing.T) {
	carts := new(mockCartRepository)
	catalog := new(mockCatalogRepository)
	svc := newCartService(carts, catalog)

	view, err := svc.Get(context.Background(), Actor{})

	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.Zero(t, view.Subtotal)
	carts.AssertNotCalled(t, "GetByOwner")
}

func TestGetCart_NoCartYet(t *testing.T) {
	carts := new(mockCartRepository)
	catalog := new(mockCatalogRepository)
	svc := newCartService(carts, catalog)
	ctx := context.Background()

	carts.On("GetByOwner", ctx, domain.SessionOwner("tok-1")).Return(nil, apperrors.ErrNotFound)

	view, err := svc.Get(ctx, sessionActor("tok-1"))

	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.Zero(t, view.ItemCount)
}

func TestGetCart_PricesFromCatalog(t *testing.T) {
	carts := new(mockCartRepository)
	catalog := new(mockCatalogRepository)
	svc := newCartService(carts, catalog)
	ctx := context.Background()

	owner := domain.AccountOwner("acct-1")
	item := domain.ProductRef("prod-1", "")
	cart := testCart(owner, domain.CartLine{ID: uuid.New(), Item: item, Quantity: 3})

	carts.On("GetByOwner", ctx, owner).Return(cart, nil)
	catalog.On("Lookup", ctx, item).Return(&domain.ItemInfo{Name: "Laptop", UnitPrice: 50000, InStock: true}, nil)

	view, err := svc.Get(ctx, accountActor("acct-1"))

	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, int64(150000), view.Subtotal)
	assert.Equal(t, 3, view.ItemCount)
	assert.Equal(t, "Laptop", view.Lines[0].Name)
}

func TestGetCart_VanishedItemRendersUnavailable(t *testing.T) {
	carts := new(mockCartRepository)
	catalog := new(mockCatalogRepository)
	svc := newCartService(carts, catalog)
	ctx := context.Background()

	owner := domain.SessionOwner("tok-2")
	item := domain.TabletRef("tab-9")
	cart := testCart(owner, domain.CartLine{ID: uuid.New(), Item: item, Quantity: 1})

	carts.On("GetByOwner", ctx, owner).Return(cart, nil)
	catalog.On("Lookup", ctx, item).Return(nil, apperrors.ItemNotFound("item is not available"))

	view, err := svc.Get(ctx, sessionActor("tok-2"))

	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.False(t, view.Lines[0].InStock)
	assert.Zero(t, view.Subtotal)
}

func TestAddItem_RejectsNonPositiveQuantity(t *testing.T) {
	carts := new(mockCartRepository)
	catalog := new(mockCatalogRepository)
	svc := newCartService(carts, catalog)

	_, err := svc.AddItem(context.Background(), sessionActor("tok-1"), domain.ProductRef("p", ""), 0)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	carts.AssertNotCalled(t, "GetOrCreate")
}

func TestAddItem_UnknownItem(t *testing.T) {
	carts := new(mockCartRepository)
	catalog := new(mockCatalogRepository)
	svc := newCartService(carts, catalog)
	ctx := context.Background()

	item := domain.ProductRef("missing", "")
	catalog.On("Lookup", ctx, item).Return(nil, apperrors.ItemNotFound("item is not available"))

	_, err := svc.AddItem(ctx, sessionActor("tok-1"), item, 1)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	carts.AssertNotCalled(t, "GetOrCreate")
}

func TestAddItem_CreatesCartOnFirstWrite(t *testing.T) {
	carts := new(mockCartRepository)
	catalog := new(mockCatalogRepository)
	svc := newCartService(carts, catalog)
	ctx := context.Background()

	owner := domain.SessionOwner("tok-1")
	item := domain.ProductRef("prod-1", "var-1")
	cart := testCart(owner)

	catalog.On("Lookup", ctx, item).Return(&domain.ItemInfo{Name: "Phone (Blue)", UnitPrice: 30000, InStock: true}, nil)
	carts.On("GetOrCreate", ctx, owner).Return(cart, nil)
	carts.On("AddLine", ctx, cart.ID, item, 2).Return(nil)

	refreshed := testCart(owner, domain.CartLine{ID: uuid.New(), Item: item, Quantity: 2})
	carts.On("GetByOwner", ctx, owner).Return(refreshed, nil)

	view, err := svc.AddItem(ctx, sessionActor("tok-1"), item, 2)

	require.NoError(t, err)
	assert.Equal(t, int64(60000), view.Subtotal)
	carts.AssertExpectations(t)
}

func TestUpdateLine_ZeroQuantityRemoves(t *testing.T) {
	carts := new(mockCartRepository)
	catalog := new(mockCatalogRepository)
	svc := newCartService(carts, catalog)
	ctx := context.Background()

	owner := domain.AccountOwner("acct-1")
	lineID := uuid.New()
	cart := testCart(owner)

	carts.On("GetByOwner", ctx, owner).Return(cart, nil)
	carts.On("RemoveLine", ctx, cart.ID, lineID).Return(nil)

	_, err := svc.UpdateLine(ctx, accountActor("acct-1"), lineID, 0)

	require.NoError(t, err)
	carts.AssertCalled(t, "RemoveLine", ctx, cart.ID, lineID)
	carts.AssertNotCalled(t, "UpdateLineQuantity")
}

func TestUpdateLine_MissingLine(t *testing.T) {
	carts := new(mockCartRepository)
	catalog := new(mockCatalogRepository)
	svc := newCartService(carts, catalog)
	ctx := context.Background()

	owner := domain.AccountOwner("acct-1")
	lineID := uuid.New()
	cart := testCart(owner)

	carts.On("GetByOwner", ctx, owner).Return(cart, nil)
	carts.On("UpdateLineQuantity", ctx, cart.ID, lineID, 5).Return(apperrors.NotFound("cart line", lineID.String()))

	_, err := svc.UpdateLine(ctx, accountActor("acct-1"), lineID, 5)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestClear_NoCartIsNoop(t *testing.T) {
	carts := new(mockCartRepository)
	catalog := new(mockCatalogRepository)
	svc := newCartService(carts, catalog)
	ctx := context.Background()

	carts.On("GetByOwner", ctx, domain.SessionOwner("tok-1")).Return(nil, apperrors.ErrNotFound)

	view, err := svc.Clear(ctx, sessionActor("tok-1"))

	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	carts.AssertNotCalled(t, "Clear")
}

func TestMergeGuestCart_NoToken(t *testing.T) {
	carts := new(mockCartRepository)
	catalog := new(mockCatalogRepository)
	svc := newCartService(carts, catalog)

	err := svc.MergeGuestCart(context.Background(), "", "acct-1")

	require.NoError(t, err)
	carts.AssertNotCalled(t, "Merge")
}

func TestMergeGuestCart_MissingGuestIsNoop(t *testing.T) {
	carts := new(mockCartRepository)
	catalog := new(mockCatalogRepository)
	svc := newCartService(carts, catalog)
	ctx := context.Background()

	carts.On("Merge", ctx, domain.SessionOwner("tok-1"), domain.AccountOwner("acct-1")).Return(apperrors.ErrNotFound)

	err := svc.MergeGuestCart(ctx, "tok-1", "acct-1")

	require.NoError(t, err)
}

func TestMergeGuestCart_DelegatesToRepository(t *testing.T) {
	carts := new(mockCartRepository)
	catalog := new(mockCatalogRepository)
	svc := newCartService(carts, catalog)
	ctx := context.Background()

	carts.On("Merge", ctx, domain.SessionOwner("tok-1"), domain.AccountOwner("acct-1")).Return(nil)

	err := svc.MergeGuestCart(ctx, "tok-1", "acct-1")

	require.NoError(t, err)
	carts.AssertExpectations(t)
}
