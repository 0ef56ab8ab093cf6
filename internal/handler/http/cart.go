package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/donMuregi/tepstore/internal/domain"
	"github.com/donMuregi/tepstore/internal/service"
	"github.com/donMuregi/tepstore/pkg/httputil"
	"github.com/donMuregi/tepstore/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	service *service.CartService
	actors  actorResolver
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, actors actorResolver, logger *slog.Logger) *CartHandler {
	return &CartHandler{service: svc, actors: actors, logger: logger}
}

// AddItemRequest is the JSON request body for adding an item to the cart.
// Exactly one of product_id or tablet_id must be set; variant_id is only
// meaningful with product_id.
type AddItemRequest struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	TabletID  string `json:"tablet_id"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// UpdateLineRequest is the JSON request body for changing a line quantity.
type UpdateLineRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Get(r.Context(), h.actors.actor(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	item, err := domain.NewItemRef(req.ProductID, req.VariantID, req.TabletID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	actor, err := h.actors.ensureSession(w, r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	view, err := h.service.AddItem(r.Context(), actor, item, req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// UpdateLine handles PUT /api/v1/cart/items/{lineId}
func (h *CartHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	lineID, ok := httputil.ParseUUID(w, chi.URLParam(r, "lineId"))
	if !ok {
		return
	}

	var req UpdateLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	view, err := h.service.UpdateLine(r.Context(), h.actors.actor(r), lineID, req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// RemoveLine handles DELETE /api/v1/cart/items/{lineId}
func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	lineID, ok := httputil.ParseUUID(w, chi.URLParam(r, "lineId"))
	if !ok {
		return
	}

	view, err := h.service.RemoveLine(r.Context(), h.actors.actor(r), lineID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Clear(r.Context(), h.actors.actor(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}
