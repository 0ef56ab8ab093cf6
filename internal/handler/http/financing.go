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

// FinancingHandler handles HTTP requests for financing application endpoints.
type FinancingHandler struct {
	service *service.FinancingService
	actors  actorResolver
	logger  *slog.Logger
}

// NewFinancingHandler creates a new financing HTTP handler.
func NewFinancingHandler(svc *service.FinancingService, actors actorResolver, logger *slog.Logger) *FinancingHandler {
	return &FinancingHandler{service: svc, actors: actors, logger: logger}
}

// SubmitApplicationRequest is the JSON request body for a new financing
// application. Exactly one of product_id or tablet_id identifies the item.
type SubmitApplicationRequest struct {
	ProductID     string `json:"product_id"`
	VariantID     string `json:"variant_id"`
	TabletID      string `json:"tablet_id"`
	PlanID        string `json:"plan_id" validate:"required"`
	FullName      string `json:"full_name" validate:"required,min=2,max=200"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"required,min=7,max=20"`
	IDNumber      string `json:"id_number" validate:"required,min=5,max=20"`
	Employer      string `json:"employer" validate:"max=200"`
	MonthlyIncome int64  `json:"monthly_income" validate:"required,gt=0"`
}

// BankDecisionRequest is the JSON request body for lender-side transitions.
type BankDecisionRequest struct {
	ApprovedAmount int64           `json:"approved_amount" validate:"gte=0"`
	BankResponse   json.RawMessage `json:"bank_response"`
}

// Submit handles POST /api/v1/financing/applications
func (h *FinancingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitApplicationRequest
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

	app, err := h.service.Submit(r.Context(), h.actors.actor(r), service.FinancingInput{
		Item:          item,
		PlanID:        req.PlanID,
		FullName:      req.FullName,
		Email:         req.Email,
		Phone:         req.Phone,
		IDNumber:      req.IDNumber,
		Employer:      req.Employer,
		MonthlyIncome: req.MonthlyIncome,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: app})
}

// Get handles GET /api/v1/financing/applications/{token}
func (h *FinancingHandler) Get(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.ParseUUID(w, chi.URLParam(r, "token"))
	if !ok {
		return
	}
	app, err := h.service.Get(r.Context(), h.actors.actor(r), token)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: app})
}

// List handles GET /api/v1/financing/applications
func (h *FinancingHandler) List(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	apps, total, err := h.service.List(r.Context(), h.actors.actor(r), params.PerPage, params.Offset)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: pagination.NewResult(apps, total, params)})
}

// ListAll handles GET /api/v1/admin/financing/applications
func (h *FinancingHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	status := r.URL.Query().Get("status")
	apps, total, err := h.service.ListAll(r.Context(), h.actors.actor(r), status, params.PerPage, params.Offset)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: pagination.NewResult(apps, total, params)})
}

// SubmitToBank handles POST /api/v1/admin/financing/applications/{token}/submit
func (h *FinancingHandler) SubmitToBank(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(token uuid.UUID, req BankDecisionRequest) (*domain.FinancingApplication, error) {
		return h.service.SubmitToBank(r.Context(), h.actors.actor(r), token, req.BankResponse)
	})
}

// Approve handles POST /api/v1/admin/financing/applications/{token}/approve
func (h *FinancingHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(token uuid.UUID, req BankDecisionRequest) (*domain.FinancingApplication, error) {
		return h.service.Approve(r.Context(), h.actors.actor(r), token, req.ApprovedAmount, req.BankResponse)
	})
}

// Reject handles POST /api/v1/admin/financing/applications/{token}/reject
func (h *FinancingHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(token uuid.UUID, req BankDecisionRequest) (*domain.FinancingApplication, error) {
		return h.service.Reject(r.Context(), h.actors.actor(r), token, req.BankResponse)
	})
}

// Confirm handles POST /api/v1/financing/applications/{token}/confirm
func (h *FinancingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.ParseUUID(w, chi.URLParam(r, "token"))
	if !ok {
		return
	}
	app, err := h.service.Confirm(r.Context(), h.actors.actor(r), token)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: app})
}

// Complete handles POST /api/v1/admin/financing/applications/{token}/complete
func (h *FinancingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.ParseUUID(w, chi.URLParam(r, "token"))
	if !ok {
		return
	}
	app, err := h.service.Complete(r.Context(), h.actors.actor(r), token)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: app})
}

// decide factors out the token parse + optional decision body shared by the
// lender-side transitions. An empty body is allowed.
func (h *FinancingHandler) decide(w http.ResponseWriter, r *http.Request, fn func(uuid.UUID, BankDecisionRequest) (*domain.FinancingApplication, error)) {
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

	app, err := fn(token, req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: app})
}
