package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/donMuregi/tepstore/internal/audit"
	"github.com/donMuregi/tepstore/internal/domain"
	"github.com/donMuregi/tepstore/internal/event"
	"github.com/donMuregi/tepstore/internal/notify"
	"github.com/donMuregi/tepstore/internal/repository"
	apperrors "github.com/donMuregi/tepstore/pkg/errors"
	"github.com/donMuregi/tepstore/pkg/logger"
)

// EnterpriseInput carries the fields of a new bulk order request.
type EnterpriseInput struct {
	BundleID        string
	Quantity        int
	CompanyName     string
	ContactName     string
	ContactEmail    string
	ContactPhone    string
	DeliveryAddress string
}

// EnterpriseService owns the bulk order workflow: submission, credit check,
// approval, confirmation, and the fulfillment tail through delivery.
type EnterpriseService struct {
	orders   repository.EnterpriseRepository
	catalog  repository.CatalogRepository
	events   event.Publisher
	notifier notify.Notifier
	auditor  audit.Recorder
	log      *slog.Logger
}

func NewEnterpriseService(
	orders repository.EnterpriseRepository,
	catalog repository.CatalogRepository,
	events event.Publisher,
	notifier notify.Notifier,
	auditor audit.Recorder,
	log *slog.Logger,
) *EnterpriseService {
	return &EnterpriseService{
		orders:   orders,
		catalog:  catalog,
		events:   events,
		notifier: notifier,
		auditor:  auditor,
		log:      log,
	}
}

// Submit files a new bulk order. The bundle must be active and the quantity
// at or above the bundle minimum; the per-device price is frozen from the
// bundle at submission.
func (s *EnterpriseService) Submit(ctx context.Context, actor Actor, in EnterpriseInput) (*domain.EnterpriseOrder, error) {
	if !actor.IsAuthenticated() {
		return nil, apperrors.Unauthorized("sign in to place an enterprise order")
	}
	bundle, err := s.catalog.GetBundle(ctx, in.BundleID)
	if err != nil {
		return nil, err
	}
	if !bundle.Active {
		return nil, apperrors.InvalidInput("bundle is no longer offered")
	}
	if in.Quantity < bundle.MinimumQuantity {
		return nil, apperrors.InvalidInput(fmt.Sprintf("bundle %s requires at least %d devices", bundle.ID, bundle.MinimumQuantity))
	}

	now := time.Now().UTC()
	order := &domain.EnterpriseOrder{
		ID:              uuid.New(),
		PublicToken:     uuid.New(),
		AccountID:       actor.AccountID,
		BundleID:        bundle.ID,
		Quantity:        in.Quantity,
		CompanyName:     in.CompanyName,
		ContactName:     in.ContactName,
		ContactEmail:    in.ContactEmail,
		ContactPhone:    in.ContactPhone,
		DeliveryAddress: in.DeliveryAddress,
		UnitPrice:       bundle.PricePerDevice,
		TotalAmount:     bundle.PricePerDevice * int64(in.Quantity),
		Status:          domain.EnterpriseWorkflow.Initial,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("enterprise order submitted",
		slog.String("order_id", order.ID.String()),
		slog.String("bundle_id", order.BundleID),
		slog.Int("quantity", order.Quantity))
	s.auditor.Record(ctx, audit.Entry{
		Actor:  actor.String(),
		Action: "enterprise.submit",
		Target: order.ID.String(),
		IP:     actor.IP,
	})
	s.notifier.Notify(ctx, order.ContactEmail, "enterprise_received", map[string]any{
		"order_token": order.PublicToken.String(),
	})
	return order, nil
}

// Get loads a bulk order by public token, visible to its owner and staff.
func (s *EnterpriseService) Get(ctx context.Context, actor Actor, token uuid.UUID) (*domain.EnterpriseOrder, error) {
	order, err := s.orders.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && order.AccountID != actor.AccountID {
		return nil, apperrors.NotFound("enterprise order", token.String())
	}
	return order, nil
}

// List returns the actor's own bulk orders, newest first.
func (s *EnterpriseService) List(ctx context.Context, actor Actor, limit, offset int) ([]domain.EnterpriseOrder, int, error) {
	if !actor.IsAuthenticated() {
		return nil, 0, apperrors.Unauthorized("sign in to view enterprise orders")
	}
	return s.orders.ListByAccount(ctx, actor.AccountID, limit, offset)
}

// ListAll returns bulk orders across accounts, optionally filtered by
// status. Staff only.
func (s *EnterpriseService) ListAll(ctx context.Context, actor Actor, status string, limit, offset int) ([]domain.EnterpriseOrder, int, error) {
	if !actor.IsStaff() {
		return nil, 0, apperrors.Forbidden("staff role required")
	}
	if status != "" && !domain.EnterpriseWorkflow.Known(status) {
		return nil, 0, apperrors.InvalidInput("unknown enterprise order status " + status)
	}
	return s.orders.ListAll(ctx, status, limit, offset)
}

// StartCreditCheck forwards a pending order to the credit bureau. Staff only.
func (s *EnterpriseService) StartCreditCheck(ctx context.Context, actor Actor, token uuid.UUID, bankResponse json.RawMessage) (*domain.EnterpriseOrder, error) {
	return s.transition(ctx, actor, token, domain.StatusCreditCheck, repository.TransitionUpdate{BankResponse: bankResponse})
}

// Approve records a passed credit check. The approved amount defaults to the
// order total frozen at submission.
func (s *EnterpriseService) Approve(ctx context.Context, actor Actor, token uuid.UUID, approvedAmount int64, bankResponse json.RawMessage) (*domain.EnterpriseOrder, error) {
	if !actor.IsStaff() {
		return nil, apperrors.Forbidden("staff role required")
	}
	order, err := s.orders.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if approvedAmount <= 0 {
		approvedAmount = order.TotalAmount
	}
	return s.apply(ctx, actor, order, domain.StatusApproved, repository.TransitionUpdate{
		ApprovedAmount: &approvedAmount,
		BankResponse:   bankResponse,
	})
}

// Reject records a failed credit check. Staff only.
func (s *EnterpriseService) Reject(ctx context.Context, actor Actor, token uuid.UUID, bankResponse json.RawMessage) (*domain.EnterpriseOrder, error) {
	return s.transition(ctx, actor, token, domain.StatusRejected, repository.TransitionUpdate{BankResponse: bankResponse})
}

// Confirm is the customer accepting an approved order. The owner (or staff
// on their behalf) may confirm.
func (s *EnterpriseService) Confirm(ctx context.Context, actor Actor, token uuid.UUID) (*domain.EnterpriseOrder, error) {
	order, err := s.Get(ctx, actor, token)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, actor, order, domain.StatusConfirmed, repository.TransitionUpdate{})
}

// Advance moves a confirmed order along the fulfillment tail:
// processing, shipped, delivered. Staff only.
func (s *EnterpriseService) Advance(ctx context.Context, actor Actor, token uuid.UUID, to string) (*domain.EnterpriseOrder, error) {
	switch to {
	case domain.StatusProcessing, domain.StatusShipped, domain.StatusDelivered:
	default:
		return nil, apperrors.InvalidInput("unknown fulfillment status " + to)
	}
	return s.transition(ctx, actor, token, to, repository.TransitionUpdate{})
}

// Adjust changes the device quantity of any non-terminal order, recomputing
// the total from the unit price frozen at submission. The owner or staff may
// adjust; the bundle minimum still applies.
func (s *EnterpriseService) Adjust(ctx context.Context, actor Actor, token uuid.UUID, quantity int) (*domain.EnterpriseOrder, error) {
	order, err := s.Get(ctx, actor, token)
	if err != nil {
		return nil, err
	}
	bundle, err := s.catalog.GetBundle(ctx, order.BundleID)
	if err != nil {
		return nil, err
	}
	if quantity < bundle.MinimumQuantity {
		return nil, apperrors.InvalidInput(fmt.Sprintf("bundle %s requires at least %d devices", bundle.ID, bundle.MinimumQuantity))
	}

	total := order.UnitPrice * int64(quantity)
	ok, err := s.orders.UpdateQuantity(ctx, order.ID, quantity, total, domain.EnterpriseWorkflow.TerminalStates())
	if err != nil {
		return nil, err
	}
	if !ok {
		fresh, err := s.orders.GetByToken(ctx, token)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.TerminalState(fresh.Status)
	}

	s.auditor.Record(ctx, audit.Entry{
		Actor:  actor.String(),
		Action: "enterprise.adjust",
		Target: order.ID.String(),
		IP:     actor.IP,
	})
	return s.orders.GetByToken(ctx, token)
}

func (s *EnterpriseService) transition(ctx context.Context, actor Actor, token uuid.UUID, to string, set repository.TransitionUpdate) (*domain.EnterpriseOrder, error) {
	if !actor.IsStaff() {
		return nil, apperrors.Forbidden("staff role required")
	}
	order, err := s.orders.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, actor, order, to, set)
}

func (s *EnterpriseService) apply(ctx context.Context, actor Actor, order *domain.EnterpriseOrder, to string, set repository.TransitionUpdate) (*domain.EnterpriseOrder, error) {
	from := domain.EnterpriseWorkflow.AllowedSources(to)
	if len(from) == 0 {
		return nil, apperrors.InvalidInput("unknown enterprise order status " + to)
	}

	ok, err := s.orders.Transition(ctx, order.ID, from, to, set)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.classify(ctx, order.PublicToken, to)
	}

	logger.FromContext(ctx).Info("enterprise order transitioned",
		slog.String("order_id", order.ID.String()),
		slog.String("from", order.Status),
		slog.String("to", to))
	s.auditor.Record(ctx, audit.Entry{
		Actor:  actor.String(),
		Action: "enterprise." + to,
		Target: order.ID.String(),
		IP:     actor.IP,
	})
	s.notifier.Notify(ctx, order.ContactEmail, "enterprise_status", map[string]any{
		"order_token": order.PublicToken.String(),
		"status":      to,
	})
	s.events.ApplicationStatusChanged(ctx, "enterprise", order.ID.String(), order.Status, to)

	return s.orders.GetByToken(ctx, order.PublicToken)
}

func (s *EnterpriseService) classify(ctx context.Context, token uuid.UUID, to string) error {
	order, err := s.orders.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if domain.EnterpriseWorkflow.IsTerminal(order.Status) {
		return apperrors.TerminalState(order.Status)
	}
	return apperrors.InvalidStatus(order.Status, to)
}
