package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role controls authorization. Staff and admin may drive privileged workflow
// transitions; customers act only on their own records.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

// Account is a registered user of the store.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile is the account's contact/delivery information. It is created
// together with the account in a single constructor step so an account is
// never observable without its profile.
type Profile struct {
	AccountID uuid.UUID `json:"account_id"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	Town      string    `json:"town"`
	Address   string    `json:"address"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAccount builds a complete account aggregate (account + profile) in one
// step. The password hash is supplied by the service layer.
func NewAccount(email, passwordHash, fullName, phone string) (*Account, *Profile) {
	now := time.Now().UTC()
	acct := &Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	profile := &Profile{
		AccountID: acct.ID,
		FullName:  fullName,
		Phone:     phone,
		UpdatedAt: now,
	}
	return acct, profile
}

// IsStaff reports whether the role carries staff privileges.
func (r Role) IsStaff() bool {
	return r == RoleStaff || r == RoleAdmin
}
