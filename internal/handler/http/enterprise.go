package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/donMuregi/tepstore/internal/domain"
	"github.com/donMuregi/tepstore/internal/service"
	"github.com/donMuregi/tepstore/pkg/httputil"
	"github.com/donMuregi/tepstore/pkg/pagination"
	"github.com/donMuregi/tepstore/pkg/validator"
)

// EnterpriseHandler handles HTTP requests for enterprise order endpoints.
type EnterpriseHandler struct {
	service *service.EnterpriseService
	actors  actorResolver
	logger  *slog.Logger
}

// NewEnterpriseHandler creates a new enterprise HTTP handler.
func NewEnterpriseHandler(svc *service.EnterpriseService, actors actorResolver, logger *slog.Logger) *EnterpriseHandler {
	return &EnterpriseHandler{service: svc, actors: actors, logger: logger}
}

// SubmitEnterpriseRequest is the JSON request body for a new bulk order.
type SubmitEnterpriseRequest struct {
	BundleID        string `json:"bundle_id" validate:"required"`
	Quantity        int    `json:"quantity" validate:"required,gte=1"`
	CompanyName     string `json:"company_name" validate:"required,min=2,max=200"`
	ContactName     string `json:"contact_name" validate:"required,min=2,max=200"`
	ContactEmail    string `json:"contact_email" validate:"required,email"`
	ContactPhone    string `json:"contact_phone" validate:"required,min=7,max=20"`
	DeliveryAddress string `json:"delivery_address" validate:"required,max=500"`
}

// AdjustQuantityRequest is the JSON request body for requantifying an order.
type AdjustQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

// AdvanceRequest is the JSON request body for a fulfillment transition.
type AdvanceRequest struct {
	Status string `json:"status" validate:"required"`
}

// Submit handles POST /api/v1/enterprise/orders
func (h *EnterpriseHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitEnterpriseRequest
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

	order, err := h.service.Submit(r.Context(), h.actors.actor(r), service.EnterpriseInput{
		BundleID:        req.BundleID,
		Quantity:        req.Quantity,
		CompanyName:     req.CompanyName,
		ContactName:     req.ContactName,
		ContactEmail:    req.ContactEmail,
		ContactPhone:    req.ContactPhone,
		DeliveryAddress: req.DeliveryAddress,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: order})
}

// Get handles GET /api/v1/enterprise/orders/{token}
func (h *EnterpriseHandler) Get(w http.ResponseWriter, r *http.Request) {
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

// List handles GET /api/v1/enterprise/orders
func (h *EnterpriseHandler) List(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	orders, total, err := h.service.List(r.Context(), h.actors.actor(r), params.PerPage, params.Offset)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: pagination.NewResult(orders, total, params)})
}

// ListAll handles GET /api/v1/admin/enterprise/orders
func (h *EnterpriseHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	status := r.URL.Query().Get("status")
	orders, total, err := h.service.ListAll(r.Context(), h.actors.actor(r), status, params.PerPage, params.Offset)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: pagination.NewResult(orders, total, params)})
}

// StartCreditCheck handles POST /api/v1/admin/enterprise/orders/{token}/credit-check
func (h *EnterpriseHandler) StartCreditCheck(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(token uuid.UUID, req BankDecisionRequest) (*domain.EnterpriseOrder, error) {
		return h.service.StartCreditCheck(r.Context(), h.actors.actor(r), token, req.BankResponse)
	})
}

// Approve handles POST /api/v1/admin/enterprise/orders/{token}/approve
func (h *EnterpriseHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(token uuid.UUID, req BankDecisionRequest) (*domain.EnterpriseOrder, error) {
		return h.service.Approve(r.Context(), h.actors.actor(r), token, req.ApprovedAmount, req.BankResponse)
	})
}

// Reject handles POST /api/v1/admin/enterprise/orders/{token}/reject
func (h *EnterpriseHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(token uuid.UUID, req BankDecisionRequest) (*domain.EnterpriseOrder, error) {
		return h.service.Reject(r.Context(), h.actors.actor(r), token, req.BankResponse)
	})
}

// Confirm handles POST /api/v1/enterprise/orders/{token}/confirm
func (h *EnterpriseHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.ParseUUID(w, chi.URLParam(r, "token"))
	if !ok {
		return
	}
	order, err := h.service.Confirm(r.Context(), h.actors.actor(r), token)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// Advance handles PUT /api/v1/admin/enterprise/orders/{token}/status
func (h *EnterpriseHandler) Advance(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.ParseUUID(w, chi.URLParam(r, "token"))
	if !ok {
		return
	}

	var req AdvanceRequest
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

	order, err := h.service.Advance(r.Context(), h.actors.actor(r), token, req.Status)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// Adjust handles PUT /api/v1/enterprise/orders/{token}/quantity
func (h *EnterpriseHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.ParseUUID(w, chi.URLParam(r, "token"))
	if !ok {
		return
	}

	var req AdjustQuantityRequest
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

	order, err := h.service.Adjust(r.Context(), h.actors.actor(r), token, req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// decide factors out the token parse + optional decision body shared by the
// credit-side transitions.
func (h *EnterpriseHandler) decide(w http.ResponseWriter, r *http.Request, fn func(uuid.UUID, BankDecisionRequest) (*domain.EnterpriseOrder, error)) {
	token, ok := httputil.ParseUUID(w, chi.URLParam(r, "token"))
	if !ok {
		return
	}

	var req BankDecisionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
			})
			return
		}
	}

	order, err := fn(token, req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}
