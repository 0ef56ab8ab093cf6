package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/donMuregi/tepstore/internal/domain"
	"github.com/donMuregi/tepstore/internal/repository"
	"github.com/donMuregi/tepstore/pkg/database"
	apperrors "github.com/donMuregi/tepstore/pkg/errors"
)

// FinancingRepository implements repository.FinancingRepository using PostgreSQL.
type FinancingRepository struct {
	pool database.DBTX
}

// NewFinancingRepository creates a new PostgreSQL-backed financing repository.
func NewFinancingRepository(pool database.DBTX) *FinancingRepository {
	return &FinancingRepository{pool: pool}
}

var _ repository.FinancingRepository = (*FinancingRepository)(nil)

const financingColumns = `id, public_token, account_id, kind, product_id, variant_id, tablet_id,
	plan_id, plan_months, plan_rate, full_name, email, phone, id_number, employer, monthly_income,
	status, bank_response, approved_amount, monthly_payment, created_at, updated_at`

// Create inserts a new financing application in its initial status.
func (r *FinancingRepository) Create(ctx context.Context, a *domain.FinancingApplication) error {
	query := fmt.Sprintf(`INSERT INTO financing_applications (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		financingColumns)

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.PublicToken, a.AccountID, a.Item.Kind, a.Item.ProductID, a.Item.VariantID, a.Item.TabletID,
		a.PlanID, a.PlanMonths, a.PlanRate, a.FullName, a.Email, a.Phone, a.IDNumber, a.Employer, a.MonthlyIncome,
		a.Status, a.BankResponse, a.ApprovedAmount, a.MonthlyDue, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert financing application: %w", err)
	}
	return nil
}

// GetByToken retrieves an application by its public token.
func (r *FinancingRepository) GetByToken(ctx context.Context, token uuid.UUID) (*domain.FinancingApplication, error) {
	query := fmt.Sprintf(`SELECT %s FROM financing_applications WHERE public_token = $1`, financingColumns)
	a, err := scanFinancing(r.pool.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan financing application: %w", err)
	}
	return a, nil
}

// ListByAccount returns the applicant's applications, newest first.
func (r *FinancingRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]domain.FinancingApplication, int, error) {
	return r.list(ctx, `WHERE account_id = $1`, []any{accountID}, limit, offset)
}

// ListAll returns applications across accounts, optionally filtered by status.
func (r *FinancingRepository) ListAll(ctx context.Context, status string, limit, offset int) ([]domain.FinancingApplication, int, error) {
	if status != "" {
		return r.list(ctx, `WHERE status = $1`, []any{status}, limit, offset)
	}
	return r.list(ctx, "", nil, limit, offset)
}

// Transition writes the new status and any transition fields only when the
// current status is one of from. Guard and write share one UPDATE so two
// concurrent transitions cannot both win.
func (r *FinancingRepository) Transition(ctx context.Context, id uuid.UUID, from []string, to string, set repository.TransitionUpdate) (bool, error) {
	query := `
		UPDATE financing_applications
		SET status = $1,
			approved_amount = COALESCE($2, approved_amount),
			monthly_payment = COALESCE($3, monthly_payment),
			bank_response = COALESCE($4, bank_response),
			updated_at = $5
		WHERE id = $6 AND status = ANY($7)`

	ct, err := r.pool.Exec(ctx, query,
		to, set.ApprovedAmount, set.MonthlyDue, set.BankResponse, time.Now().UTC(), id, from,
	)
	if err != nil {
		return false, fmt.Errorf("transition financing application: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *FinancingRepository) list(ctx context.Context, where string, args []any, limit, offset int) ([]domain.FinancingApplication, int, error) {
	if limit <= 0 {
		limit = 20
	}
	n := len(args)
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM financing_applications
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, financingColumns, where, n+1, n+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list financing applications: %w", err)
	}
	defer rows.Close()

	var totalCount int
	apps := make([]domain.FinancingApplication, 0)
	for rows.Next() {
		var a domain.FinancingApplication
		if err := rows.Scan(
			&a.ID, &a.PublicToken, &a.AccountID, &a.Item.Kind, &a.Item.ProductID, &a.Item.VariantID, &a.Item.TabletID,
			&a.PlanID, &a.PlanMonths, &a.PlanRate, &a.FullName, &a.Email, &a.Phone, &a.IDNumber, &a.Employer, &a.MonthlyIncome,
			&a.Status, &a.BankResponse, &a.ApprovedAmount, &a.MonthlyDue, &a.CreatedAt, &a.UpdatedAt, &totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan financing row: %w", err)
		}
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate financing rows: %w", err)
	}
	return apps, totalCount, nil
}

func scanFinancing(row pgx.Row) (*domain.FinancingApplication, error) {
	var a domain.FinancingApplication
	err := row.Scan(
		&a.ID, &a.PublicToken, &a.AccountID, &a.Item.Kind, &a.Item.ProductID, &a.Item.VariantID, &a.Item.TabletID,
		&a.PlanID, &a.PlanMonths, &a.PlanRate, &a.FullName, &a.Email, &a.Phone, &a.IDNumber, &a.Employer, &a.MonthlyIncome,
		&a.Status, &a.BankResponse, &a.ApprovedAmount, &a.MonthlyDue, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// EnterpriseRepository implements repository.EnterpriseRepository using PostgreSQL.
type EnterpriseRepository struct {
	pool database.DBTX
}

// NewEnterpriseRepository creates a new PostgreSQL-backed enterprise order repository.
func NewEnterpriseRepository(pool database.DBTX) *EnterpriseRepository {
	return &EnterpriseRepository{pool: pool}
}

var _ repository.EnterpriseRepository = (*EnterpriseRepository)(nil)

const enterpriseColumns = `id, public_token, account_id, bundle_id, quantity, company_name, contact_name,
	contact_email, contact_phone, delivery_address, unit_price, total_amount,
	status, bank_response, approved_amount, created_at, updated_at`

// Create inserts a new enterprise order in its initial status.
func (r *EnterpriseRepository) Create(ctx context.Context, o *domain.EnterpriseOrder) error {
	query := fmt.Sprintf(`INSERT INTO enterprise_orders (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		enterpriseColumns)

	_, err := r.pool.Exec(ctx, query,
		o.ID, o.PublicToken, o.AccountID, o.BundleID, o.Quantity, o.CompanyName, o.ContactName,
		o.ContactEmail, o.ContactPhone, o.DeliveryAddress, o.UnitPrice, o.TotalAmount,
		o.Status, o.BankResponse, o.ApprovedAmount, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert enterprise order: %w", err)
	}
	return nil
}

// GetByToken retrieves an enterprise order by its public token.
func (r *EnterpriseRepository) GetByToken(ctx context.Context, token uuid.UUID) (*domain.EnterpriseOrder, error) {
	query := fmt.Sprintf(`SELECT %s FROM enterprise_orders WHERE public_token = $1`, enterpriseColumns)
	o, err := scanEnterprise(r.pool.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan enterprise order: %w", err)
	}
	return o, nil
}

// ListByAccount returns the account's enterprise orders, newest first.
func (r *EnterpriseRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]domain.EnterpriseOrder, int, error) {
	return r.list(ctx, `WHERE account_id = $1`, []any{accountID}, limit, offset)
}

// ListAll returns enterprise orders across accounts, optionally filtered by status.
func (r *EnterpriseRepository) ListAll(ctx context.Context, status string, limit, offset int) ([]domain.EnterpriseOrder, int, error) {
	if status != "" {
		return r.list(ctx, `WHERE status = $1`, []any{status}, limit, offset)
	}
	return r.list(ctx, "", nil, limit, offset)
}

// Transition writes the new status guarded by the current one, like the
// financing variant.
func (r *EnterpriseRepository) Transition(ctx context.Context, id uuid.UUID, from []string, to string, set repository.TransitionUpdate) (bool, error) {
	query := `
		UPDATE enterprise_orders
		SET status = $1,
			approved_amount = COALESCE($2, approved_amount),
			bank_response = COALESCE($3, bank_response),
			updated_at = $4
		WHERE id = $5 AND status = ANY($6)`

	ct, err := r.pool.Exec(ctx,
		query, to, set.ApprovedAmount, set.BankResponse, time.Now().UTC(), id, from,
	)
	if err != nil {
		return false, fmt.Errorf("transition enterprise order: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// UpdateQuantity requantifies the order unless its status is terminal. The
// terminal set is excluded in the WHERE clause so the check is atomic with
// the write.
func (r *EnterpriseRepository) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int, totalAmount int64, notIn []string) (bool, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE enterprise_orders
		SET quantity = $1, total_amount = $2, updated_at = $3
		WHERE id = $4 AND NOT (status = ANY($5))`,
		quantity, totalAmount, time.Now().UTC(), id, notIn,
	)
	if err != nil {
		return false, fmt.Errorf("update enterprise quantity: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *EnterpriseRepository) list(ctx context.Context, where string, args []any, limit, offset int) ([]domain.EnterpriseOrder, int, error) {
	if limit <= 0 {
		limit = 20
	}
	n := len(args)
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM enterprise_orders
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, enterpriseColumns, where, n+1, n+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list enterprise orders: %w", err)
	}
	defer rows.Close()

	var totalCount int
	orders := make([]domain.EnterpriseOrder, 0)
	for rows.Next() {
		var o domain.EnterpriseOrder
		if err := rows.Scan(
			&o.ID, &o.PublicToken, &o.AccountID, &o.BundleID, &o.Quantity, &o.CompanyName, &o.ContactName,
			&o.ContactEmail, &o.ContactPhone, &o.DeliveryAddress, &o.UnitPrice, &o.TotalAmount,
			&o.Status, &o.BankResponse, &o.ApprovedAmount, &o.CreatedAt, &o.UpdatedAt, &totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan enterprise row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate enterprise rows: %w", err)
	}
	return orders, totalCount, nil
}

func scanEnterprise(row pgx.Row) (*domain.EnterpriseOrder, error) {
	var o domain.EnterpriseOrder
	err := row.Scan(
		&o.ID, &o.PublicToken, &o.AccountID, &o.BundleID, &o.Quantity, &o.CompanyName, &o.ContactName,
		&o.ContactEmail, &o.ContactPhone, &o.DeliveryAddress, &o.UnitPrice, &o.TotalAmount,
		&o.Status, &o.BankResponse, &o.ApprovedAmount, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
