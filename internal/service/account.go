package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/donMuregi/tepstore/internal/audit"
	"github.com/donMuregi/tepstore/internal/auth"
	"github.com/donMuregi/tepstore/internal/domain"
	"github.com/donMuregi/tepstore/internal/repository"
	apperrors "github.com/donMuregi/tepstore/pkg/errors"
	"github.com/donMuregi/tepstore/pkg/logger"
)

// RegisterInput carries the fields of a new registration.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Phone    string
}

// AuthResult is a signed token plus the account it authenticates.
type AuthResult struct {
	Token   string          `json:"token"`
	Account *domain.Account `json:"account"`
}

// AccountService handles registration and login. Logging in (or registering)
// while carrying a guest session absorbs the session cart into the account
// cart.
type AccountService struct {
	accounts repository.AccountRepository
	carts    *CartService
	tokens   *auth.Manager
	auditor  audit.Recorder
	log      *slog.Logger
}

func NewAccountService(accounts repository.AccountRepository, carts *CartService, tokens *auth.Manager, auditor audit.Recorder, log *slog.Logger) *AccountService {
	return &AccountService{accounts: accounts, carts: carts, tokens: tokens, auditor: auditor, log: log}
}

// Register creates an account with its profile, signs the caller in, and
// merges any guest cart carried on the session token.
func (s *AccountService) Register(ctx context.Context, actor Actor, in RegisterInput) (*AuthResult, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	acct, profile := domain.NewAccount(strings.ToLower(strings.TrimSpace(in.Email)), string(hash), in.FullName, in.Phone)
	if err := s.accounts.Create(ctx, acct, profile); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(acct)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if err := s.carts.MergeGuestCart(ctx, actor.SessionToken, acct.ID.String()); err != nil {
		logger.FromContext(ctx).Error("guest cart merge failed", slog.String("error", err.Error()))
	}

	s.auditor.Record(ctx, audit.Entry{
		Actor:  "account:" + acct.ID.String(),
		Action: "account.register",
		Target: acct.ID.String(),
		IP:     actor.IP,
	})
	return &AuthResult{Token: token, Account: acct}, nil
}

// Login verifies credentials and issues a token. A guest cart on the session
// token is merged into the account cart; the winner of credential failures is
// always the same opaque unauthorized error.
func (s *AccountService) Login(ctx context.Context, actor Actor, email, password string) (*AuthResult, error) {
	acct, err := s.accounts.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid email or password")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	token, err := s.tokens.Issue(acct)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if err := s.carts.MergeGuestCart(ctx, actor.SessionToken, acct.ID.String()); err != nil {
		logger.FromContext(ctx).Error("guest cart merge failed", slog.String("error", err.Error()))
	}

	s.auditor.Record(ctx, audit.Entry{
		Actor:  "account:" + acct.ID.String(),
		Action: "account.login",
		Target: acct.ID.String(),
		IP:     actor.IP,
	})
	return &AuthResult{Token: token, Account: acct}, nil
}

// Profile returns the authenticated actor's account and profile.
func (s *AccountService) Profile(ctx context.Context, actor Actor) (*domain.Account, *domain.Profile, error) {
	if !actor.IsAuthenticated() {
		return nil, nil, apperrors.Unauthorized("sign in to view your profile")
	}
	id, err := uuid.Parse(actor.AccountID)
	if err != nil {
		return nil, nil, apperrors.Unauthorized("invalid account identity")
	}
	acct, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	profile, err := s.accounts.GetProfile(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return acct, profile, nil
}
