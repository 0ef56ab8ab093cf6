package service

import (
	"context"
	"encoding/json"
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

// FinancingInput carries the applicant-supplied fields of a new application.
type FinancingInput struct {
	Item          domain.ItemRef
	PlanID        string
	FullName      string
	Email         string
	Phone         string
	IDNumber      string
	Employer      string
	MonthlyIncome int64
}

// FinancingService owns the consumer financing application workflow:
// submission, bank review, approval, applicant confirmation, completion.
type FinancingService struct {
	apps     repository.FinancingRepository
	catalog  repository.CatalogRepository
	events   event.Publisher
	notifier notify.Notifier
	auditor  audit.Recorder
	log      *slog.Logger
}

func NewFinancingService(
	apps repository.FinancingRepository,
	catalog repository.CatalogRepository,
	events event.Publisher,
	notifier notify.Notifier,
	auditor audit.Recorder,
	log *slog.Logger,
) *FinancingService {
	return &FinancingService{
		apps:     apps,
		catalog:  catalog,
		events:   events,
		notifier: notifier,
		auditor:  auditor,
		log:      log,
	}
}

// Submit files a new application in the workflow's initial status. The item
// must be purchasable and the plan active; plan terms are copied onto the
// application so later plan edits do not change submitted applications.
func (s *FinancingService) Submit(ctx context.Context, actor Actor, in FinancingInput) (*domain.FinancingApplication, error) {
	if !actor.IsAuthenticated() {
		return nil, apperrors.Unauthorized("sign in to apply for financing")
	}
	if _, err := s.catalog.Lookup(ctx, in.Item); err != nil {
		return nil, err
	}
	plan, err := s.catalog.GetPlan(ctx, in.PlanID)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, apperrors.InvalidInput("financing plan is no longer offered")
	}

	now := time.Now().UTC()
	app := &domain.FinancingApplication{
		ID:            uuid.New(),
		PublicToken:   uuid.New(),
		AccountID:     actor.AccountID,
		Item:          in.Item,
		PlanID:        plan.ID,
		PlanMonths:    plan.Months,
		PlanRate:      plan.InterestRate,
		FullName:      in.FullName,
		Email:         in.Email,
		Phone:         in.Phone,
		IDNumber:      in.IDNumber,
		Employer:      in.Employer,
		MonthlyIncome: in.MonthlyIncome,
		Status:        domain.FinancingWorkflow.Initial,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.apps.Create(ctx, app); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("financing application submitted",
		slog.String("application_id", app.ID.String()),
		slog.String("account_id", app.AccountID),
		slog.String("plan_id", app.PlanID))
	s.auditor.Record(ctx, audit.Entry{
		Actor:  actor.String(),
		Action: "financing.submit",
		Target: app.ID.String(),
		IP:     actor.IP,
	})
	s.notifier.Notify(ctx, app.Email, "financing_received", map[string]any{
		"application_token": app.PublicToken.String(),
	})
	return app, nil
}

// Get loads an application by public token. Applicants only see their own;
// staff see all. A foreign token reads as not found.
func (s *FinancingService) Get(ctx context.Context, actor Actor, token uuid.UUID) (*domain.FinancingApplication, error) {
	app, err := s.apps.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && app.AccountID != actor.AccountID {
		return nil, apperrors.NotFound("financing application", token.String())
	}
	return app, nil
}

// List returns the actor's own applications, newest first.
func (s *FinancingService) List(ctx context.Context, actor Actor, limit, offset int) ([]domain.FinancingApplication, int, error) {
	if !actor.IsAuthenticated() {
		return nil, 0, apperrors.Unauthorized("sign in to view applications")
	}
	return s.apps.ListByAccount(ctx, actor.AccountID, limit, offset)
}

// ListAll returns applications across accounts, optionally filtered by
// status. Staff only.
func (s *FinancingService) ListAll(ctx context.Context, actor Actor, status string, limit, offset int) ([]domain.FinancingApplication, int, error) {
	if !actor.IsStaff() {
		return nil, 0, apperrors.Forbidden("staff role required")
	}
	if status != "" && !domain.FinancingWorkflow.Known(status) {
		return nil, 0, apperrors.InvalidInput("unknown application status " + status)
	}
	return s.apps.ListAll(ctx, status, limit, offset)
}

// SubmitToBank forwards a pending application to the lender and records the
// submission acknowledgement. Staff only.
func (s *FinancingService) SubmitToBank(ctx context.Context, actor Actor, token uuid.UUID, bankResponse json.RawMessage) (*domain.FinancingApplication, error) {
	return s.transition(ctx, actor, token, domain.StatusBankReview, repository.TransitionUpdate{BankResponse: bankResponse})
}

// Approve records the lender's approval. The approved amount defaults to
// the item's current catalog price; the installment is derived from the plan
// terms frozen at submission.
func (s *FinancingService) Approve(ctx context.Context, actor Actor, token uuid.UUID, approvedAmount int64, bankResponse json.RawMessage) (*domain.FinancingApplication, error) {
	if !actor.IsStaff() {
		return nil, apperrors.Forbidden("staff role required")
	}
	app, err := s.apps.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if approvedAmount <= 0 {
		info, err := s.catalog.Lookup(ctx, app.Item)
		if err != nil {
			return nil, err
		}
		approvedAmount = info.UnitPrice
	}
	monthly := domain.MonthlyPayment(approvedAmount, app.PlanRate, app.PlanMonths)

	return s.transition(ctx, actor, token, domain.StatusApproved, repository.TransitionUpdate{
		ApprovedAmount: &approvedAmount,
		MonthlyDue:     &monthly,
		BankResponse:   bankResponse,
	})
}

// Reject records the lender's rejection. Staff only.
func (s *FinancingService) Reject(ctx context.Context, actor Actor, token uuid.UUID, bankResponse json.RawMessage) (*domain.FinancingApplication, error) {
	return s.transition(ctx, actor, token, domain.StatusRejected, repository.TransitionUpdate{BankResponse: bankResponse})
}

// Confirm is the applicant accepting an approved offer. The applicant (or
// staff on their behalf) may confirm; anyone else reads not found.
func (s *FinancingService) Confirm(ctx context.Context, actor Actor, token uuid.UUID) (*domain.FinancingApplication, error) {
	app, err := s.Get(ctx, actor, token)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, actor, app, domain.StatusConfirmed, repository.TransitionUpdate{})
}

// Complete closes out a confirmed application once the device is handed
// over. Staff only.
func (s *FinancingService) Complete(ctx context.Context, actor Actor, token uuid.UUID) (*domain.FinancingApplication, error) {
	return s.transition(ctx, actor, token, domain.StatusCompleted, repository.TransitionUpdate{})
}

// transition is the staff-only path: load, guard, move.
func (s *FinancingService) transition(ctx context.Context, actor Actor, token uuid.UUID, to string, set repository.TransitionUpdate) (*domain.FinancingApplication, error) {
	if !actor.IsStaff() {
		return nil, apperrors.Forbidden("staff role required")
	}
	app, err := s.apps.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, actor, app, to, set)
}

// apply performs the guarded status write and classifies a miss. The guard
// races concurrent transitions; exactly one writer per status move wins.
func (s *FinancingService) apply(ctx context.Context, actor Actor, app *domain.FinancingApplication, to string, set repository.TransitionUpdate) (*domain.FinancingApplication, error) {
	from := domain.FinancingWorkflow.AllowedSources(to)
	if len(from) == 0 {
		return nil, apperrors.InvalidInput("unknown application status " + to)
	}

	ok, err := s.apps.Transition(ctx, app.ID, from, to, set)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.classify(ctx, app.PublicToken, to)
	}

	logger.FromContext(ctx).Info("financing application transitioned",
		slog.String("application_id", app.ID.String()),
		slog.String("from", app.Status),
		slog.String("to", to))
	s.auditor.Record(ctx, audit.Entry{
		Actor:  actor.String(),
		Action: "financing." + to,
		Target: app.ID.String(),
		IP:     actor.IP,
	})
	s.notifier.Notify(ctx, app.Email, "financing_status", map[string]any{
		"application_token": app.PublicToken.String(),
		"status":            to,
	})
	s.events.ApplicationStatusChanged(ctx, "financing", app.ID.String(), app.Status, to)

	return s.apps.GetByToken(ctx, app.PublicToken)
}

func (s *FinancingService) classify(ctx context.Context, token uuid.UUID, to string) error {
	app, err := s.apps.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if domain.FinancingWorkflow.IsTerminal(app.Status) {
		return apperrors.TerminalState(app.Status)
	}
	return apperrors.InvalidStatus(app.Status, to)
}
