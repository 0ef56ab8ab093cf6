package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/donMuregi/tepstore/internal/audit"
	"github.com/donMuregi/tepstore/internal/auth"
	"github.com/donMuregi/tepstore/internal/domain"
	"github.com/donMuregi/tepstore/internal/event"
	"github.com/donMuregi/tepstore/internal/notify"
	"github.com/donMuregi/tepstore/internal/repository"
	"github.com/donMuregi/tepstore/internal/service"
	"github.com/donMuregi/tepstore/internal/session"
	"github.com/donMuregi/tepstore/pkg/httputil"
	"github.com/donMuregi/tepstore/pkg/middleware"
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

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testEnv wires the full router against mock repositories and a miniredis
// backed session store. claims drives the bearer-token middleware: nil means
// every presented token is rejected.
type testEnv struct {
	carts      *mockCartRepository
	catalog    *mockCatalogRepository
	orders     *mockOrderRepository
	financing  *mockFinancingRepository
	enterprise *mockEnterpriseRepository
	accounts   *mockAccountRepository
	sessions   *session.Store
	router     *chi.Mux
}

func newTestEnv(t *testing.T, claims *middleware.Claims) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	e := &testEnv{
		carts:      new(mockCartRepository),
		catalog:    new(mockCatalogRepository),
		orders:     new(mockOrderRepository),
		financing:  new(mockFinancingRepository),
		enterprise: new(mockEnterpriseRepository),
		accounts:   new(mockAccountRepository),
		sessions:   session.NewStore(client, time.Hour),
	}

	log := testLogger()
	actors := actorResolver{sessions: e.sessions}

	cartSvc := service.NewCartService(e.carts, e.catalog, event.NopPublisher{}, log)
	orderSvc := service.NewOrderService(e.orders, e.carts, e.catalog, event.NopPublisher{}, notify.NopNotifier{}, nopRecorder{}, 500, log)
	financingSvc := service.NewFinancingService(e.financing, e.catalog, event.NopPublisher{}, notify.NopNotifier{}, nopRecorder{}, log)
	enterpriseSvc := service.NewEnterpriseService(e.enterprise, e.catalog, event.NopPublisher{}, notify.NopNotifier{}, nopRecorder{}, log)
	accountSvc := service.NewAccountService(e.accounts, cartSvc, auth.NewManager("test-secret", "tepstore", time.Hour), nopRecorder{}, log)
	catalogSvc := service.NewCatalogService(e.catalog)

	validate := func(token string) (*middleware.Claims, error) {
		if claims == nil {
			return nil, errors.New("invalid token")
		}
		return claims, nil
	}

	cartHandler := NewCartHandler(cartSvc, actors, log)
	orderHandler := NewOrderHandler(orderSvc, actors, log)
	financingHandler := NewFinancingHandler(financingSvc, actors, log)
	enterpriseHandler := NewEnterpriseHandler(enterpriseSvc, actors, log)
	accountHandler := NewAccountHandler(accountSvc, e.sessions, actors, log)
	catalogHandler := NewCatalogHandler(catalogSvc, log)

	// Mirror the production route layout.
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(validate))

			r.Post("/accounts/register", accountHandler.Register)
			r.Post("/accounts/login", accountHandler.Login)

			r.Get("/catalog/lookup", catalogHandler.Lookup)
			r.Get("/financing/plans/{planId}", catalogHandler.GetPlan)
			r.Get("/enterprise/bundles/{bundleId}", catalogHandler.GetBundle)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{lineId}", cartHandler.UpdateLine)
				r.Delete("/items/{lineId}", cartHandler.RemoveLine)
			})

			r.Post("/checkout", orderHandler.Checkout)
			r.Get("/orders/{token}", orderHandler.GetOrder)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(validate))

			r.Get("/accounts/me", accountHandler.Profile)
			r.Get("/orders", orderHandler.ListOrders)

			r.Post("/financing/applications", financingHandler.Submit)
			r.Get("/financing/applications", financingHandler.List)
			r.Get("/financing/applications/{token}", financingHandler.Get)
			r.Post("/financing/applications/{token}/confirm", financingHandler.Confirm)

			r.Post("/enterprise/orders", enterpriseHandler.Submit)
			r.Get("/enterprise/orders", enterpriseHandler.List)
			r.Get("/enterprise/orders/{token}", enterpriseHandler.Get)
			r.Post("/enterprise/orders/{token}/confirm", enterpriseHandler.Confirm)
			r.Put("/enterprise/orders/{token}/quantity", enterpriseHandler.Adjust)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(validate))
			r.Use(middleware.RequireRole("staff", "admin"))

			r.Put("/orders/{token}/status", orderHandler.UpdateStatus)
			r.Put("/orders/{token}/payment", orderHandler.RecordSettlement)

			r.Get("/financing/applications", financingHandler.ListAll)
			r.Post("/financing/applications/{token}/submit", financingHandler.SubmitToBank)
			r.Post("/financing/applications/{token}/approve", financingHandler.Approve)
			r.Post("/financing/applications/{token}/reject", financingHandler.Reject)
			r.Post("/financing/applications/{token}/complete", financingHandler.Complete)

			r.Get("/enterprise/orders", enterpriseHandler.ListAll)
			r.Post("/enterprise/orders/{token}/credit-check", enterpriseHandler.StartCreditCheck)
			r.Post("/enterprise/orders/{token}/approve", enterpriseHandler.Approve)
			r.Post("/enterprise/orders/{token}/reject", enterpriseHandler.Reject)
			r.Put("/enterprise/orders/{token}/status", enterpriseHandler.Advance)
		})
	})
	e.router = r
	return e
}

func customerClaims(accountID string) *middleware.Claims {
	return &middleware.Claims{AccountID: accountID, Email: "jane@example.com", Role: "customer"}
}

func staffClaims() *middleware.Claims {
	return &middleware.Claims{AccountID: "staff-1", Email: "ops@tepstore.co.ke", Role: "staff"}
}

// mintSession issues a guest session token through the real store.
func mintSession(t *testing.T, e *testEnv) string {
	t.Helper()
	token, err := e.sessions.Mint(context.Background())
	require.NoError(t, err)
	return token
}

// newJSONRequest builds a request with a JSON body. A nil body sends an
// empty request.
func newJSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	if body == nil {
		return httptest.NewRequest(method, target, nil)
	}
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// decodeResponse reads the response body into the httputil.Response struct.
func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	return resp
}

// dataMap re-decodes the response data payload as a generic map.
func dataMap(t *testing.T, resp httputil.Response) map[string]any {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "response data is not an object")
	return m
}
