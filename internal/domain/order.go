package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the fulfillment state of an order, independent of payment.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// PaymentStatus tracks settlement separately from fulfillment.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// orderTransitions defines the allowed fulfillment moves. Cancellation is
// only possible before the order ships.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderConfirmed, OrderCancelled},
	OrderConfirmed:  {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered},
	OrderDelivered:  {},
	OrderCancelled:  {},
}

// CanTransitionOrder reports whether an order may move from one fulfillment
// status to another.
func CanTransitionOrder(from, to OrderStatus) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidOrderStatus reports whether s names a known fulfillment status.
func ValidOrderStatus(s OrderStatus) bool {
	_, ok := orderTransitions[s]
	return ok
}

// ValidPaymentStatus reports whether s names a known payment status.
func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// Order is an immutable snapshot of a cart at conversion time. Totals and
// line prices are captured once and never recomputed from the live catalog.
type Order struct {
	ID           uuid.UUID     `json:"id"`
	PublicToken  uuid.UUID     `json:"public_token"`
	AccountID    string        `json:"account_id,omitempty"`
	SessionToken string        `json:"-"`
	FullName     string        `json:"full_name"`
	Email        string        `json:"email"`
	Phone        string        `json:"phone"`
	Town         string        `json:"town"`
	Address      string        `json:"address"`
	Subtotal     int64         `json:"subtotal"`
	ShippingCost int64         `json:"shipping_cost"`
	Total        int64         `json:"total"`
	Status       OrderStatus   `json:"status"`
	Payment      PaymentStatus `json:"payment_status"`
	Lines        []OrderLine   `json:"lines"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// OrderLine is a frozen copy of a cart line: item reference, quantity, and
// the unit price in effect at conversion time.
type OrderLine struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	Item      ItemRef   `json:"item"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	UnitPrice int64     `json:"unit_price"`
}

// LineTotal returns quantity × frozen unit price.
func (l OrderLine) LineTotal() int64 {
	return int64(l.Quantity) * l.UnitPrice
}

// NewOrderFromCart freezes the priced cart view into an order. Shipping cost
// comes from external policy (0 in absence of a shipping engine).
func NewOrderFromCart(owner CartOwner, contact OrderContact, view CartView, shippingCost int64) *Order {
	now := time.Now().UTC()
	o := &Order{
		ID:           uuid.New(),
		PublicToken:  uuid.New(),
		AccountID:    owner.AccountID,
		SessionToken: owner.SessionToken,
		FullName:     contact.FullName,
		Email:        contact.Email,
		Phone:        contact.Phone,
		Town:         contact.Town,
		Address:      contact.Address,
		Subtotal:     view.Subtotal,
		ShippingCost: shippingCost,
		Total:        view.Subtotal + shippingCost,
		Status:       OrderPending,
		Payment:      PaymentPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, l := range view.Lines {
		o.Lines = append(o.Lines, OrderLine{
			ID:        uuid.New(),
			OrderID:   o.ID,
			Item:      l.Item,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return o
}

// OrderContact holds the customer contact/delivery fields captured at
// conversion time.
type OrderContact struct {
	FullName string
	Email    string
	Phone    string
	Town     string
	Address  string
}
