package domain

import (
	"time"

	"github.com/google/uuid"
)

// CartOwner is the account-or-session identity that exclusively owns a cart.
// Exactly one of AccountID or SessionToken is set.
type CartOwner struct {
	AccountID    string `json:"account_id,omitempty"`
	SessionToken string `json:"-"`
}

// AccountOwner builds an account-keyed cart identity.
func AccountOwner(accountID string) CartOwner {
	return CartOwner{AccountID: accountID}
}

// SessionOwner builds an anonymous session-keyed cart identity.
func SessionOwner(token string) CartOwner {
	return CartOwner{SessionToken: token}
}

// IsAccount reports whether the cart is owned by an authenticated account.
func (o CartOwner) IsAccount() bool {
	return o.AccountID != ""
}

// Cart is a mutable bag of lines owned by exactly one identity. Version is
// bumped on every mutation and used as an optimistic concurrency check.
type Cart struct {
	ID          uuid.UUID  `json:"id"`
	PublicToken uuid.UUID  `json:"public_token"`
	Owner       CartOwner  `json:"owner"`
	Version     int64      `json:"version"`
	Lines       []CartLine `json:"lines"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CartLine is one purchasable item plus a quantity. Unit price is never
// stored on the line; it is resolved from the catalog at read time.
type CartLine struct {
	ID       uuid.UUID `json:"id"`
	CartID   uuid.UUID `json:"cart_id"`
	Item     ItemRef   `json:"item"`
	Quantity int       `json:"quantity"`
}

// LineByKey returns the line matching the given item key, or nil.
func (c *Cart) LineByKey(key string) *CartLine {
	for i := range c.Lines {
		if c.Lines[i].Item.Key() == key {
			return &c.Lines[i]
		}
	}
	return nil
}

// PricedLine is a cart line joined with its catalog snapshot.
type PricedLine struct {
	CartLine
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	LineTotal int64  `json:"line_total"`
	InStock   bool   `json:"in_stock"`
}

// CartView is the priced, read-time projection of a cart. Subtotal and
// ItemCount are computed, never stored.
type CartView struct {
	ID          uuid.UUID    `json:"id"`
	PublicToken uuid.UUID    `json:"public_token"`
	Lines       []PricedLine `json:"lines"`
	Subtotal    int64        `json:"subtotal"`
	ItemCount   int          `json:"item_count"`
}

// NewCartView assembles a view from priced lines, computing the totals.
func NewCartView(cart *Cart, lines []PricedLine) CartView {
	v := CartView{Lines: lines}
	if cart != nil {
		v.ID = cart.ID
		v.PublicToken = cart.PublicToken
	}
	if v.Lines == nil {
		v.Lines = []PricedLine{}
	}
	for _, l := range v.Lines {
		v.Subtotal += l.LineTotal
		v.ItemCount += l.Quantity
	}
	return v
}

// LineUpdate instructs the merge to set an existing destination line's
// quantity to the summed value.
type LineUpdate struct {
	LineID   uuid.UUID
	Quantity int
}

// MergePlan is the outcome of planning a guest→account cart merge: quantity
// sums for colliding keys and re-parents for the rest. Applying an empty plan
// is a no-op.
type MergePlan struct {
	Updates   []LineUpdate // destination lines whose quantity absorbs a guest line
	Reparents []uuid.UUID  // guest line ids to move onto the destination cart
}

// PlanMerge computes the guest→account merge for the given line sets. For
// each guest line whose key already exists on the account cart, the account
// line's quantity absorbs the guest quantity; all other guest lines are
// re-parented as-is. The result never contains two lines with one key.
func PlanMerge(account, guest []CartLine) MergePlan {
	byKey := make(map[string]*CartLine, len(account))
	for i := range account {
		byKey[account[i].Item.Key()] = &account[i]
	}

	var plan MergePlan
	for i := range guest {
		if dst, ok := byKey[guest[i].Item.Key()]; ok {
			plan.Updates = append(plan.Updates, LineUpdate{
				LineID:   dst.ID,
				Quantity: dst.Quantity + guest[i].Quantity,
			})
			continue
		}
		plan.Reparents = append(plan.Reparents, guest[i].ID)
	}
	return plan
}

// Empty reports whether applying the plan would change nothing.
func (p MergePlan) Empty() bool {
	return len(p.Updates) == 0 && len(p.Reparents) == 0
}
