package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/donMuregi/tepstore/internal/domain"
	"github.com/donMuregi/tepstore/pkg/database"
	apperrors "github.com/donMuregi/tepstore/pkg/errors"
)

// CartRepository implements repository.CartRepository using PostgreSQL.
//
// Every mutation runs in a transaction that takes a FOR UPDATE lock on the
// cart row and bumps the version column, so concurrent writers against one
// cart serialize and readers can use the version as an optimistic check.
type CartRepository struct {
	pool database.DBTX
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool database.DBTX) *CartRepository {
	return &CartRepository{pool: pool}
}

const cartColumns = `id, public_token, account_id, session_token, version, created_at, updated_at`

func scanCart(row pgx.Row) (*domain.Cart, error) {
	var (
		c            domain.Cart
		accountID    *string
		sessionToken *string
	)
	err := row.Scan(&c.ID, &c.PublicToken, &accountID, &sessionToken, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if accountID != nil {
		c.Owner.AccountID = *accountID
	}
	if sessionToken != nil {
		c.Owner.SessionToken = *sessionToken
	}
	return &c, nil
}

// ownerArgs returns nullable column values for the owner identity.
func ownerArgs(owner domain.CartOwner) (accountID, sessionToken *string) {
	if owner.AccountID != "" {
		accountID = &owner.AccountID
	}
	if owner.SessionToken != "" {
		sessionToken = &owner.SessionToken
	}
	return accountID, sessionToken
}

func ownerPredicate(owner domain.CartOwner) (clause string, arg string) {
	if owner.IsAccount() {
		return "account_id = $1", owner.AccountID
	}
	return "session_token = $1", owner.SessionToken
}

// GetByOwner loads the owner's cart with its lines.
func (r *CartRepository) GetByOwner(ctx context.Context, owner domain.CartOwner) (*domain.Cart, error) {
	clause, arg := ownerPredicate(owner)
	query := fmt.Sprintf(`SELECT %s FROM carts WHERE %s`, cartColumns, clause)

	cart, err := scanCart(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan cart: %w", err)
	}

	cart.Lines, err = r.loadLines(ctx, r.pool, cart.ID)
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// GetOrCreate loads the owner's cart, creating an empty one if absent. The
// insert uses ON CONFLICT DO NOTHING so two racing first-writes converge on
// a single cart row.
func (r *CartRepository) GetOrCreate(ctx context.Context, owner domain.CartOwner) (*domain.Cart, error) {
	cart, err := r.GetByOwner(ctx, owner)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	accountID, sessionToken := ownerArgs(owner)
	now := time.Now().UTC()
	_, err = r.pool.Exec(ctx, `
		INSERT INTO carts (id, public_token, account_id, session_token, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 1, $5, $5)
		ON CONFLICT DO NOTHING`,
		uuid.New(), uuid.New(), accountID, sessionToken, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert cart: %w", err)
	}

	return r.GetByOwner(ctx, owner)
}

// AddLine inserts a line or increments the quantity of the line with the same
// item key, inside a version-bumping transaction.
func (r *CartRepository) AddLine(ctx context.Context, cartID uuid.UUID, item domain.ItemRef, qty int) error {
	return r.mutate(ctx, cartID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO cart_lines (id, cart_id, kind, product_id, variant_id, tablet_id, quantity)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (cart_id, kind, product_id, variant_id, tablet_id)
			DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity`,
			uuid.New(), cartID, item.Kind, item.ProductID, item.VariantID, item.TabletID, qty,
		)
		if err != nil {
			return fmt.Errorf("upsert cart line: %w", err)
		}
		return nil
	})
}

// UpdateLineQuantity sets the quantity of a line owned by cartID.
func (r *CartRepository) UpdateLineQuantity(ctx context.Context, cartID, lineID uuid.UUID, qty int) error {
	return r.mutate(ctx, cartID, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx,
			`UPDATE cart_lines SET quantity = $1 WHERE id = $2 AND cart_id = $3`,
			qty, lineID, cartID,
		)
		if err != nil {
			return fmt.Errorf("update cart line: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFound("cart line", lineID.String())
		}
		return nil
	})
}

// RemoveLine deletes a line owned by cartID.
func (r *CartRepository) RemoveLine(ctx context.Context, cartID, lineID uuid.UUID) error {
	return r.mutate(ctx, cartID, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx,
			`DELETE FROM cart_lines WHERE id = $1 AND cart_id = $2`,
			lineID, cartID,
		)
		if err != nil {
			return fmt.Errorf("delete cart line: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFound("cart line", lineID.String())
		}
		return nil
	})
}

// Clear deletes all lines; the cart row persists for reuse.
func (r *CartRepository) Clear(ctx context.Context, cartID uuid.UUID) error {
	return r.mutate(ctx, cartID, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, cartID); err != nil {
			return fmt.Errorf("clear cart lines: %w", err)
		}
		return nil
	})
}

// Merge folds the guest cart into the account cart in one transaction. Both
// cart rows are locked FOR UPDATE for the duration, colliding line keys sum
// their quantities, the remaining guest lines re-parent, and the guest cart
// is deleted. A missing or already-merged guest cart is a safe no-op.
func (r *CartRepository) Merge(ctx context.Context, guest, account domain.CartOwner) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	guestClause, guestArg := ownerPredicate(guest)
	guestCart, err := scanCart(tx.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM carts WHERE %s FOR UPDATE`, cartColumns, guestClause), guestArg,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("lock guest cart: %w", err)
	}

	guestLines, err := r.loadLines(ctx, tx, guestCart.ID)
	if err != nil {
		return err
	}
	if len(guestLines) == 0 {
		// Nothing to move; drop the empty guest cart.
		if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, guestCart.ID); err != nil {
			return fmt.Errorf("delete empty guest cart: %w", err)
		}
		return tx.Commit(ctx)
	}

	accountCart, err := r.lockOrCreate(ctx, tx, account)
	if err != nil {
		return err
	}

	accountLines, err := r.loadLines(ctx, tx, accountCart.ID)
	if err != nil {
		return err
	}

	plan := domain.PlanMerge(accountLines, guestLines)

	for _, u := range plan.Updates {
		if _, err := tx.Exec(ctx,
			`UPDATE cart_lines SET quantity = $1 WHERE id = $2`,
			u.Quantity, u.LineID,
		); err != nil {
			return fmt.Errorf("merge line quantity: %w", err)
		}
	}

	if len(plan.Reparents) > 0 {
		if _, err := tx.Exec(ctx,
			`UPDATE cart_lines SET cart_id = $1 WHERE id = ANY($2)`,
			accountCart.ID, plan.Reparents,
		); err != nil {
			return fmt.Errorf("reparent guest lines: %w", err)
		}
	}

	// Absorbed guest lines are still attached to the guest cart; the
	// cascade on carts removes them with the row.
	if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, guestCart.ID); err != nil {
		return fmt.Errorf("delete guest cart: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE carts SET version = version + 1, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), accountCart.ID,
	); err != nil {
		return fmt.Errorf("bump cart version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// lockOrCreate locks the owner's cart row FOR UPDATE, creating it first if
// needed.
func (r *CartRepository) lockOrCreate(ctx context.Context, tx pgx.Tx, owner domain.CartOwner) (*domain.Cart, error) {
	clause, arg := ownerPredicate(owner)
	query := fmt.Sprintf(`SELECT %s FROM carts WHERE %s FOR UPDATE`, cartColumns, clause)

	cart, err := scanCart(tx.QueryRow(ctx, query, arg))
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lock cart: %w", err)
	}

	accountID, sessionToken := ownerArgs(owner)
	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `
		INSERT INTO carts (id, public_token, account_id, session_token, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 1, $5, $5)`,
		uuid.New(), uuid.New(), accountID, sessionToken, now,
	); err != nil {
		return nil, fmt.Errorf("insert cart: %w", err)
	}

	cart, err = scanCart(tx.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, fmt.Errorf("reload created cart: %w", err)
	}
	return cart, nil
}

// mutate wraps a line mutation in a transaction that locks the cart row and
// bumps its version.
func (r *CartRepository) mutate(ctx context.Context, cartID uuid.UUID, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM carts WHERE id = $1 FOR UPDATE`, cartID).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("cart", cartID.String())
		}
		return fmt.Errorf("lock cart: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE carts SET version = version + 1, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), cartID,
	); err != nil {
		return fmt.Errorf("bump cart version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// loadLines reads all lines of a cart.
func (r *CartRepository) loadLines(ctx context.Context, q database.DBTX, cartID uuid.UUID) ([]domain.CartLine, error) {
	rows, err := q.Query(ctx, `
		SELECT id, cart_id, kind, product_id, variant_id, tablet_id, quantity
		FROM cart_lines
		WHERE cart_id = $1
		ORDER BY id`,
		cartID,
	)
	if err != nil {
		return nil, fmt.Errorf("query cart lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var l domain.CartLine
		if err := rows.Scan(&l.ID, &l.CartID, &l.Item.Kind, &l.Item.ProductID, &l.Item.VariantID, &l.Item.TabletID, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart line rows: %w", err)
	}
	return lines, nil
}
