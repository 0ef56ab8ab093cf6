package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/donMuregi/tepstore/internal/domain"
	"github.com/donMuregi/tepstore/internal/service"
	"github.com/donMuregi/tepstore/pkg/httputil"
	"github.com/donMuregi/tepstore/pkg/pagination"
	"github.com/donMuregi/tepstore/pkg/validator"
)

// OrderHandler handles HTTP requests for checkout and order endpoints.
type OrderHandler struct {
	service *service.OrderService
	actors  actorResolver
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, actors actorResolver, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{service: svc, actors: actors, logger: logger}
}

// CheckoutRequest is the JSON request body for converting the cart to an order.
type CheckoutRequest struct {
	FullName string `json:"full_name" validate:"required,min=2,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,min=7,max=20"`
	Town     string `json:"town" validate:"required,max=100"`
	Address  string `json:"address" validate:"required,max=500"`
}

// UpdateStatusRequest is the JSON request body for a fulfillment transition.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// SettlementRequest is the JSON request body for recording a payment outcome.
type SettlementRequest struct {
	PaymentStatus string `json:"payment_status" validate:"required"`
}

// Checkout handles POST /api/v1/checkout
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
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

	contact := domain.OrderContact{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Town:     req.Town,
		Address:  req.Address,
	}
	order, err := h.service.ConvertCart(r.Context(), h.actors.actor(r), contact)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: order})
}

// GetOrder handles GET /api/v1/orders/{token}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.ParseUUID(w, chi.URLParam(r, "token"))
	if !ok {
		return
	}
	order, err := h.service.Get(r.Context(), h.actors.actor(r), token)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// ListOrders handles GET /api/v1/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	orders, total, err := h.service.List(r.Context(), h.actors.actor(r), params.PerPage, params.Offset)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: pagination.NewResult(orders, total, params)})
}

// UpdateStatus handles PUT /api/v1/orders/{token}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.ParseUUID(w, chi.URLParam(r, "token"))
	if !ok {
		return
	}

	var req UpdateStatusRequest
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

	order, err := h.service.UpdateStatus(r.Context(), h.actors.actor(r), token, domain.OrderStatus(req.Status))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// RecordSettlement handles PUT /api/v1/orders/{token}/payment
func (h *OrderHandler) RecordSettlement(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.ParseUUID(w, chi.URLParam(r, "token"))
	if !ok {
		return
	}

	var req SettlementRequest
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

	order, err := h.service.RecordSettlement(r.Context(), h.actors.actor(r), token, domain.PaymentStatus(req.PaymentStatus))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}
