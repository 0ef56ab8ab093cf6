package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/donMuregi/tepstore/internal/service"
	"github.com/donMuregi/tepstore/internal/session"
	"github.com/donMuregi/tepstore/pkg/health"
	"github.com/donMuregi/tepstore/pkg/middleware"
)

const serviceName = "tepstore"

// Services bundles the application services the router exposes.
type Services struct {
	Carts      *service.CartService
	Orders     *service.OrderService
	Financing  *service.FinancingService
	Enterprise *service.EnterpriseService
	Accounts   *service.AccountService
	Catalog    *service.CatalogService
}

// RouterConfig carries the router's cross-cutting dependencies.
type RouterConfig struct {
	Sessions       *session.Store
	TokenValidator middleware.TokenValidator
	Health         *health.Handler
	Logger         *slog.Logger
	AllowedOrigins []string
	PprofCIDRs     []string
}

// NewRouter creates a chi router with all store routes registered.
func NewRouter(svcs Services, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsCfg.AllowedOrigins = cfg.AllowedOrigins
	}

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(cfg.Logger))

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, cfg.Logger)

	actors := actorResolver{sessions: cfg.Sessions}

	cartHandler := NewCartHandler(svcs.Carts, actors, cfg.Logger)
	orderHandler := NewOrderHandler(svcs.Orders, actors, cfg.Logger)
	financingHandler := NewFinancingHandler(svcs.Financing, actors, cfg.Logger)
	enterpriseHandler := NewEnterpriseHandler(svcs.Enterprise, actors, cfg.Logger)
	accountHandler := NewAccountHandler(svcs.Accounts, cfg.Sessions, actors, cfg.Logger)
	catalogHandler := NewCatalogHandler(svcs.Catalog, cfg.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		// Anonymous-friendly routes: a valid bearer token is honored, an
		// absent one falls back to the guest session.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.TokenValidator))

			r.Post("/accounts/register", accountHandler.Register)
			r.Post("/accounts/login", accountHandler.Login)

			r.Get("/catalog/lookup", catalogHandler.Lookup)
			r.With(middleware.CacheControl(300)).Get("/financing/plans/{planId}", catalogHandler.GetPlan)
			r.With(middleware.CacheControl(300)).Get("/enterprise/bundles/{bundleId}", catalogHandler.GetBundle)

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

		// Authenticated customer routes.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.TokenValidator))

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

		// Staff routes.
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.TokenValidator))
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

	return r
}
