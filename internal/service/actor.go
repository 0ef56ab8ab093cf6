package service

import (
	"github.com/donMuregi/tepstore/internal/domain"
	apperrors "github.com/donMuregi/tepstore/pkg/errors"
)

// Actor is the resolved caller identity for a request: an authenticated
// account, an anonymous session, or neither (read-only anonymous).
type Actor struct {
	AccountID    string
	Role         domain.Role
	SessionToken string
	IP           string
}

// IsAuthenticated reports whether the actor carries an account identity.
func (a Actor) IsAuthenticated() bool {
	return a.AccountID != ""
}

// IsStaff reports whether the actor may drive privileged transitions.
func (a Actor) IsStaff() bool {
	return a.Role.IsStaff()
}

// CartOwner resolves the actor to the single cart identity it owns. An
// authenticated actor always resolves to its account cart, never a session
// cart.
func (a Actor) CartOwner() (domain.CartOwner, error) {
	if a.IsAuthenticated() {
		return domain.AccountOwner(a.AccountID), nil
	}
	if a.SessionToken != "" {
		return domain.SessionOwner(a.SessionToken), nil
	}
	return domain.CartOwner{}, apperrors.Unauthorized("a session or account is required")
}

// audit name for log lines; sessions are identified by token, accounts by id.
func (a Actor) String() string {
	if a.IsAuthenticated() {
		return "account:" + a.AccountID
	}
	if a.SessionToken != "" {
		return "session:" + a.SessionToken
	}
	return "anonymous"
}
