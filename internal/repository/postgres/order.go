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

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

var _ repository.OrderRepository = (*OrderRepository)(nil)

const orderColumns = `id, public_token, account_id, session_token, full_name, email, phone, town, address,
	subtotal, shipping_cost, total, status, payment_status, created_at, updated_at`

// CreateFromCart inserts the order with its frozen lines and clears the cart,
// all in one transaction. The cart version is re-checked by the clearing
// UPDATE; if another writer touched the cart since it was read, nothing is
// applied and ErrConflict is returned.
func (r *OrderRepository) CreateFromCart(ctx context.Context, o *domain.Order, cartID uuid.UUID, expectedVersion int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Version CAS first: holding the cart row lock for the rest of the
	// transaction keeps concurrent conversions and line writes out.
	ct, err := tx.Exec(ctx,
		`UPDATE carts SET version = version + 1, updated_at = $1 WHERE id = $2 AND version = $3`,
		time.Now().UTC(), cartID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("check cart version: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}

	orderQuery := fmt.Sprintf(`INSERT INTO orders (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`, orderColumns)

	accountID, sessionToken := ownerArgs(domain.CartOwner{AccountID: o.AccountID, SessionToken: o.SessionToken})
	_, err = tx.Exec(ctx, orderQuery,
		o.ID, o.PublicToken, accountID, sessionToken,
		o.FullName, o.Email, o.Phone, o.Town, o.Address,
		o.Subtotal, o.ShippingCost, o.Total, o.Status, o.Payment,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	lineQuery := `
		INSERT INTO order_lines (id, order_id, kind, product_id, variant_id, tablet_id, name, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, l := range o.Lines {
		_, err = tx.Exec(ctx, lineQuery,
			l.ID, l.OrderID, l.Item.Kind, l.Item.ProductID, l.Item.VariantID, l.Item.TabletID,
			l.Name, l.Quantity, l.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart lines: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByToken retrieves an order by its public token, including lines.
func (r *OrderRepository) GetByToken(ctx context.Context, token uuid.UUID) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE public_token = $1`, orderColumns)

	o, err := scanOrder(r.pool.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	o.Lines, err = r.loadLines(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// ListByAccount returns the account's orders, newest first.
func (r *OrderRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]domain.Order, int, error) {
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM orders
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, orderColumns)

	rows, err := r.pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var totalCount int
	orders := make([]domain.Order, 0)
	for rows.Next() {
		var (
			o            domain.Order
			acctID       *string
			sessionToken *string
		)
		if err := rows.Scan(
			&o.ID, &o.PublicToken, &acctID, &sessionToken,
			&o.FullName, &o.Email, &o.Phone, &o.Town, &o.Address,
			&o.Subtotal, &o.ShippingCost, &o.Total, &o.Status, &o.Payment,
			&o.CreatedAt, &o.UpdatedAt, &totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		if acctID != nil {
			o.AccountID = *acctID
		}
		if sessionToken != nil {
			o.SessionToken = *sessionToken
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	// Batch-load lines for all orders in one query.
	if len(orders) > 0 {
		ids := make([]uuid.UUID, len(orders))
		for i := range orders {
			ids[i] = orders[i].ID
		}

		lineRows, err := r.pool.Query(ctx, `
			SELECT id, order_id, kind, product_id, variant_id, tablet_id, name, quantity, unit_price
			FROM order_lines
			WHERE order_id = ANY($1)
			ORDER BY id`,
			ids,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("batch load order lines: %w", err)
		}
		defer lineRows.Close()

		byOrder := make(map[uuid.UUID][]domain.OrderLine, len(orders))
		for lineRows.Next() {
			var l domain.OrderLine
			if err := lineRows.Scan(&l.ID, &l.OrderID, &l.Item.Kind, &l.Item.ProductID, &l.Item.VariantID, &l.Item.TabletID, &l.Name, &l.Quantity, &l.UnitPrice); err != nil {
				return nil, 0, fmt.Errorf("scan order line: %w", err)
			}
			byOrder[l.OrderID] = append(byOrder[l.OrderID], l)
		}
		if err := lineRows.Err(); err != nil {
			return nil, 0, fmt.Errorf("iterate order line rows: %w", err)
		}

		for i := range orders {
			if lines, ok := byOrder[orders[i].ID]; ok {
				orders[i].Lines = lines
			} else {
				orders[i].Lines = []domain.OrderLine{}
			}
		}
	}

	return orders, totalCount, nil
}

// UpdateStatus moves the fulfillment status, with the allowed source states
// as a guard predicate of the same UPDATE. Returns false on zero rows.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from []domain.OrderStatus, to domain.OrderStatus) (bool, error) {
	sources := make([]string, len(from))
	for i, s := range from {
		sources[i] = string(s)
	}

	ct, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = ANY($4)`,
		to, time.Now().UTC(), id, sources,
	)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// UpdatePaymentStatus records a settlement outcome.
func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE orders SET payment_status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", id.String())
	}
	return nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o            domain.Order
		accountID    *string
		sessionToken *string
	)
	err := row.Scan(
		&o.ID, &o.PublicToken, &accountID, &sessionToken,
		&o.FullName, &o.Email, &o.Phone, &o.Town, &o.Address,
		&o.Subtotal, &o.ShippingCost, &o.Total, &o.Status, &o.Payment,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if accountID != nil {
		o.AccountID = *accountID
	}
	if sessionToken != nil {
		o.SessionToken = *sessionToken
	}
	return &o, nil
}

func (r *OrderRepository) loadLines(ctx context.Context, orderID uuid.UUID) ([]domain.OrderLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, kind, product_id, variant_id, tablet_id, name, quantity, unit_price
		FROM order_lines
		WHERE order_id = $1
		ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.OrderLine, 0)
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.Item.Kind, &l.Item.ProductID, &l.Item.VariantID, &l.Item.TabletID, &l.Name, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order line rows: %w", err)
	}
	return lines, nil
}
