package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/donMuregi/tepstore/internal/service"
	"github.com/donMuregi/tepstore/internal/session"
	"github.com/donMuregi/tepstore/pkg/httputil"
	"github.com/donMuregi/tepstore/pkg/validator"
)

// AccountHandler handles HTTP requests for registration, login, and profile.
type AccountHandler struct {
	service  *service.AccountService
	sessions *session.Store
	actors   actorResolver
	logger   *slog.Logger
}

// NewAccountHandler creates a new account HTTP handler.
func NewAccountHandler(svc *service.AccountService, sessions *session.Store, actors actorResolver, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{service: svc, sessions: sessions, actors: actors, logger: logger}
}

// RegisterRequest is the JSON request body for creating an account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"required,min=2,max=200"`
	Phone    string `json:"phone" validate:"required,min=7,max=20"`
}

// LoginRequest is the JSON request body for signing in.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register handles POST /api/v1/accounts/register
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
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

	actor := h.actors.actor(r)
	result, err := h.service.Register(r.Context(), actor, service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.retireSession(r, actor.SessionToken)

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: result})
}

// Login handles POST /api/v1/accounts/login
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
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

	actor := h.actors.actor(r)
	result, err := h.service.Login(r.Context(), actor, req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.retireSession(r, actor.SessionToken)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Profile handles GET /api/v1/accounts/me
func (h *AccountHandler) Profile(w http.ResponseWriter, r *http.Request) {
	acct, profile, err := h.service.Profile(r.Context(), h.actors.actor(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"account": acct,
		"profile": profile,
	}})
}

// retireSession revokes the guest session after its cart has been absorbed
// into the account. Revocation failures are only logged; the login already
// succeeded.
func (h *AccountHandler) retireSession(r *http.Request, token string) {
	if token == "" {
		return
	}
	if err := h.sessions.Revoke(r.Context(), token); err != nil {
		h.logger.WarnContext(r.Context(), "session revoke failed", slog.String("error", err.Error()))
	}
}
