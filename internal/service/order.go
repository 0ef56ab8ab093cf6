package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/donMuregi/tepstore/internal/audit"
	"github.com/donMuregi/tepstore/internal/domain"
	"github.com/donMuregi/tepstore/internal/event"
	"github.com/donMuregi/tepstore/internal/notify"
	"github.com/donMuregi/tepstore/internal/repository"
	apperrors "github.com/donMuregi/tepstore/pkg/errors"
	"github.com/donMuregi/tepstore/pkg/logger"
)

// OrderService converts carts into orders and drives order fulfillment.
type OrderService struct {
	orders       repository.OrderRepository
	carts        repository.CartRepository
	catalog      repository.CatalogRepository
	events       event.Publisher
	notifier     notify.Notifier
	auditor      audit.Recorder
	shippingCost int64
	log          *slog.Logger
}

func NewOrderService(
	orders repository.OrderRepository,
	carts repository.CartRepository,
	catalog repository.CatalogRepository,
	events event.Publisher,
	notifier notify.Notifier,
	auditor audit.Recorder,
	shippingCost int64,
	log *slog.Logger,
) *OrderService {
	return &OrderService{
		orders:       orders,
		carts:        carts,
		catalog:      catalog,
		events:       events,
		notifier:     notifier,
		auditor:      auditor,
		shippingCost: shippingCost,
		log:          log,
	}
}

// ConvertCart atomically turns the actor's cart into an order: line prices
// are frozen at current catalog values, the order is inserted, and the cart
// is emptied, all in one transaction guarded by the cart version. A
// concurrent cart write loses the version check and the conversion is
// retried once against the fresh cart.
func (s *OrderService) ConvertCart(ctx context.Context, actor Actor, contact domain.OrderContact) (*domain.Order, error) {
	owner, err := actor.CartOwner()
	if err != nil {
		return nil, err
	}

	order, err := s.convertOnce(ctx, owner, contact)
	if errors.Is(err, apperrors.ErrConflict) {
		order, err = s.convertOnce(ctx, owner, contact)
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, apperrors.Conflict("cart changed during checkout, please retry")
		}
	}
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("order created",
		slog.String("order_id", order.ID.String()),
		slog.String("actor", actor.String()),
		slog.Int64("total", order.Total))

	s.auditor.Record(ctx, audit.Entry{
		Actor:  actor.String(),
		Action: "order.create",
		Target: order.ID.String(),
		IP:     actor.IP,
	})
	s.notifier.Notify(ctx, order.Email, "order_confirmation", map[string]any{
		"order_token": order.PublicToken.String(),
		"total":       order.Total,
	})
	s.events.OrderCreated(ctx, order.ID.String(), order.Total)

	return order, nil
}

func (s *OrderService) convertOnce(ctx context.Context, owner domain.CartOwner, contact domain.OrderContact) (*domain.Order, error) {
	cart, err := s.carts.GetByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.EmptyCart()
		}
		return nil, err
	}
	if len(cart.Lines) == 0 {
		return nil, apperrors.EmptyCart()
	}

	view, err := s.priceForConversion(ctx, cart)
	if err != nil {
		return nil, err
	}

	order := domain.NewOrderFromCart(owner, contact, view, s.shippingCost)
	if err := s.orders.CreateFromCart(ctx, order, cart.ID, cart.Version); err != nil {
		return nil, err
	}
	return order, nil
}

// priceForConversion is stricter than the cart read path: an item that has
// vanished from the catalog fails the conversion instead of rendering as
// unavailable.
func (s *OrderService) priceForConversion(ctx context.Context, cart *domain.Cart) (domain.CartView, error) {
	priced := make([]domain.PricedLine, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		info, err := s.catalog.Lookup(ctx, line.Item)
		if err != nil {
			return domain.CartView{}, err
		}
		priced = append(priced, domain.PricedLine{
			CartLine:  line,
			Name:      info.Name,
			UnitPrice: info.UnitPrice,
			LineTotal: info.UnitPrice * int64(line.Quantity),
			InStock:   info.InStock,
		})
	}
	return domain.NewCartView(cart, priced), nil
}

// Get loads an order by public token. Customers only see their own orders;
// a foreign token reads as not found rather than forbidden.
func (s *OrderService) Get(ctx context.Context, actor Actor, token uuid.UUID) (*domain.Order, error) {
	order, err := s.orders.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !s.canView(actor, order) {
		return nil, apperrors.NotFound("order", token.String())
	}
	return order, nil
}

// List returns the authenticated actor's orders, newest first.
func (s *OrderService) List(ctx context.Context, actor Actor, limit, offset int) ([]domain.Order, int, error) {
	if !actor.IsAuthenticated() {
		return nil, 0, apperrors.Unauthorized("sign in to view orders")
	}
	return s.orders.ListByAccount(ctx, actor.AccountID, limit, offset)
}

// UpdateStatus moves an order's fulfillment status. Staff only; the
// transition table is enforced both up front and in the guarded UPDATE.
func (s *OrderService) UpdateStatus(ctx context.Context, actor Actor, token uuid.UUID, to domain.OrderStatus) (*domain.Order, error) {
	if !actor.IsStaff() {
		return nil, apperrors.Forbidden("staff role required")
	}
	if !domain.ValidOrderStatus(to) {
		return nil, apperrors.InvalidInput("unknown order status " + string(to))
	}

	order, err := s.orders.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	from := orderSources(to)
	ok, err := s.orders.UpdateStatus(ctx, order.ID, from, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.classifyOrderGuard(ctx, token, to)
	}

	s.auditor.Record(ctx, audit.Entry{
		Actor:  actor.String(),
		Action: "order.status." + string(to),
		Target: order.ID.String(),
		IP:     actor.IP,
	})
	s.notifier.Notify(ctx, order.Email, "order_status", map[string]any{
		"order_token": order.PublicToken.String(),
		"status":      string(to),
	})
	return s.orders.GetByToken(ctx, token)
}

// RecordSettlement records a payment outcome for the order. Staff only.
func (s *OrderService) RecordSettlement(ctx context.Context, actor Actor, token uuid.UUID, status domain.PaymentStatus) (*domain.Order, error) {
	if !actor.IsStaff() {
		return nil, apperrors.Forbidden("staff role required")
	}
	if !domain.ValidPaymentStatus(status) {
		return nil, apperrors.InvalidInput("unknown payment status " + string(status))
	}
	order, err := s.orders.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.orders.UpdatePaymentStatus(ctx, order.ID, status); err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, audit.Entry{
		Actor:  actor.String(),
		Action: "order.payment." + string(status),
		Target: order.ID.String(),
		IP:     actor.IP,
	})
	return s.orders.GetByToken(ctx, token)
}

func (s *OrderService) canView(actor Actor, order *domain.Order) bool {
	if actor.IsStaff() {
		return true
	}
	if order.AccountID != "" {
		return actor.AccountID == order.AccountID
	}
	return order.SessionToken != "" && actor.SessionToken == order.SessionToken
}

// classifyOrderGuard explains a zero-row guarded update: the order vanished,
// already sits in a terminal status, or the requested move is not allowed
// from its current status.
func (s *OrderService) classifyOrderGuard(ctx context.Context, token uuid.UUID, to domain.OrderStatus) error {
	order, err := s.orders.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	switch order.Status {
	case domain.OrderDelivered, domain.OrderCancelled:
		return apperrors.TerminalState(string(order.Status))
	default:
		return apperrors.InvalidStatus(string(order.Status), string(to))
	}
}

// orderSources returns every status from which `to` is reachable.
func orderSources(to domain.OrderStatus) []domain.OrderStatus {
	var from []domain.OrderStatus
	for _, s := range []domain.OrderStatus{
		domain.OrderPending, domain.OrderConfirmed, domain.OrderProcessing,
		domain.OrderShipped, domain.OrderDelivered, domain.OrderCancelled,
	} {
		if domain.CanTransitionOrder(s, to) {
			from = append(from, s)
		}
	}
	return from
}
