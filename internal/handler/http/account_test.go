package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/donMuregi/tepstore/internal/domain"
	apperrors "github.com/donMuregi/tepstore/pkg/errors"
)

func registerBody() map[string]any {
	return map[string]any{
		"email":     "jane@example.com",
		"password":  "s3cret-pass",
		"full_name": "Jane Wanjiku",
		"phone":     "+254712345678",
	}
}

func TestRegister_RetiresGuestSession(t *testing.T) {
	e := newTestEnv(t, nil)
	token := mintSession(t, e)

	e.accounts.On("Create", mock.Anything, mock.AnythingOfType("*domain.Account"), mock.AnythingOfType("*domain.Profile")).Return(nil)
	e.carts.On("Merge", mock.Anything, domain.SessionOwner(token), mock.AnythingOfType("domain.CartOwner")).Return(nil)

	rec := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodPost, "/api/v1/accounts/register", registerBody())
	req.Header.Set(SessionTokenHeader, token)
	e.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	data := dataMap(t, decodeResponse(t, rec))
	assert.NotEmpty(t, data["token"])

	ok, err := e.sessions.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.False(t, ok, "guest session should be revoked after registration")
	e.carts.AssertExpectations(t)
}

func TestRegister_ValidationFailure(t *testing.T) {
	e := newTestEnv(t, nil)

	body := registerBody()
	body["password"] = "short"

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, newJSONRequest(t, http.MethodPost, "/api/v1/accounts/register", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Fields, "password")
	e.accounts.AssertNotCalled(t, "Create")
}

func TestLogin_Succeeds(t *testing.T) {
	e := newTestEnv(t, nil)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	acct := &domain.Account{
		ID:           uuid.New(),
		Email:        "jane@example.com",
		PasswordHash: string(hash),
		Role:         domain.RoleCustomer,
		CreatedAt:    time.Now().UTC(),
	}
	e.accounts.On("GetByEmail", mock.Anything, "jane@example.com").Return(acct, nil)

	rec := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodPost, "/api/v1/accounts/login", map[string]any{
		"email":    "jane@example.com",
		"password": "s3cret-pass",
	})
	e.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	data := dataMap(t, decodeResponse(t, rec))
	assert.NotEmpty(t, data["token"])
}

func TestLogin_UnknownEmailIsOpaque(t *testing.T) {
	e := newTestEnv(t, nil)

	e.accounts.On("GetByEmail", mock.Anything, "jane@example.com").Return(nil, apperrors.ErrNotFound)

	rec := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodPost, "/api/v1/accounts/login", map[string]any{
		"email":    "jane@example.com",
		"password": "whatever",
	})
	e.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)
	assert.Equal(t, "invalid email or password", resp.Error.Message)
}

func TestProfile_ReturnsAccountAndProfile(t *testing.T) {
	id := uuid.New()
	e := newTestEnv(t, customerClaims(id.String()))

	acct := &domain.Account{ID: id, Email: "jane@example.com", Role: domain.RoleCustomer}
	profile := &domain.Profile{AccountID: id, FullName: "Jane Wanjiku", Phone: "+254712345678"}
	e.accounts.On("GetByID", mock.Anything, id).Return(acct, nil)
	e.accounts.On("GetProfile", mock.Anything, id).Return(profile, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/me", nil)
	req.Header.Set("Authorization", "Bearer token")
	e.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	data := dataMap(t, decodeResponse(t, rec))
	account, ok := data["account"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "jane@example.com", account["email"])
	prof, ok := data["profile"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Jane Wanjiku", prof["full_name"])
}

func TestProfile_RequiresBearerToken(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/accounts/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	e.accounts.AssertNotCalled(t, "GetByID")
}
