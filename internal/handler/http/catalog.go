package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/donMuregi/tepstore/internal/domain"
	"github.com/donMuregi/tepstore/internal/service"
	"github.com/donMuregi/tepstore/pkg/httputil"
)

// CatalogHandler handles HTTP requests for catalog lookups.
type CatalogHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(svc *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{service: svc, logger: logger}
}

// Lookup handles GET /api/v1/catalog/lookup. The item is identified by
// query parameters: product_id (+ optional variant_id) or tablet_id.
func (h *CatalogHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	item, err := domain.NewItemRef(q.Get("product_id"), q.Get("variant_id"), q.Get("tablet_id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	info, err := h.service.Lookup(r.Context(), item)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: info})
}

// GetPlan handles GET /api/v1/financing/plans/{planId}
func (h *CatalogHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.service.Plan(r.Context(), chi.URLParam(r, "planId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: plan})
}

// GetBundle handles GET /api/v1/enterprise/bundles/{bundleId}
func (h *CatalogHandler) GetBundle(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.service.Bundle(r.Context(), chi.URLParam(r, "bundleId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: bundle})
}
