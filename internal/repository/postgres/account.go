package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/donMuregi/tepstore/internal/domain"
	"github.com/donMuregi/tepstore/internal/repository"
	"github.com/donMuregi/tepstore/pkg/database"
	apperrors "github.com/donMuregi/tepstore/pkg/errors"
)

// AccountRepository implements repository.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool database.DBTX
}

// NewAccountRepository creates a new PostgreSQL-backed account repository.
func NewAccountRepository(pool database.DBTX) *AccountRepository {
	return &AccountRepository{pool: pool}
}

var _ repository.AccountRepository = (*AccountRepository)(nil)

// Create inserts the account and its profile in one transaction so the
// aggregate is never observable half-built.
func (r *AccountRepository) Create(ctx context.Context, acct *domain.Account, profile *domain.Profile) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO accounts (id, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		acct.ID, acct.Email, acct.PasswordHash, acct.Role, acct.CreatedAt, acct.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.AlreadyExists("account", "email", acct.Email)
		}
		return fmt.Errorf("insert account: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO account_profiles (account_id, full_name, phone, town, address, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		profile.AccountID, profile.FullName, profile.Phone, profile.Town, profile.Address, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert account profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByEmail retrieves an account by email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var a domain.Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, role, created_at, updated_at
		FROM accounts
		WHERE email = $1`,
		email,
	).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &a, nil
}

// GetByID retrieves an account by id.
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var a domain.Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, role, created_at, updated_at
		FROM accounts
		WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("account", id.String())
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &a, nil
}

// GetProfile retrieves the account's profile.
func (r *AccountRepository) GetProfile(ctx context.Context, accountID uuid.UUID) (*domain.Profile, error) {
	var p domain.Profile
	err := r.pool.QueryRow(ctx, `
		SELECT account_id, full_name, phone, town, address, updated_at
		FROM account_profiles
		WHERE account_id = $1`,
		accountID,
	).Scan(&p.AccountID, &p.FullName, &p.Phone, &p.Town, &p.Address, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("profile", accountID.String())
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	return &p, nil
}
