package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/donMuregi/tepstore/internal/domain"
	"github.com/donMuregi/tepstore/internal/event"
	"github.com/donMuregi/tepstore/internal/notify"
	"github.com/donMuregi/tepstore/internal/repository"
	apperrors "github.com/donMuregi/tepstore/pkg/errors"
)

func newFinancingService(apps *mockFinancingRepository, catalog *mockCatalogRepository) *FinancingService {
	return NewFinancingService(apps, catalog, event.NopPublisher{}, notify.NopNotifier{}, nopRecorder{}, newTestLogger())
}

func staffActor() Actor {
	return Actor{AccountID: "staff-1", Role: domain.RoleStaff}
}

func testFinancingInput() FinancingInput {
	return FinancingInput{
		Item:          domain.TabletRef("tab-1"),
		PlanID:        "plan-6",
		FullName:      "Jane Doe",
		Email:         "jane@example.com",
		Phone:         "+254700000000",
		IDNumber:      "12345678",
		MonthlyIncome: 80000,
	}
}

func TestSubmitApplication_RequiresAccount(t *testing.T) {
	apps := new(mockFinancingRepository)
	catalog := new(mockCatalogRepository)
	svc := newFinancingService(apps, catalog)

	_, err := svc.Submit(context.Background(), sessionActor("tok-1"), testFinancingInput())

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestSubmitApplication_FreezesPlanTerms(t *testing.T) {
	apps := new(mockFinancingRepository)
	catalog := new(mockCatalogRepository)
	svc := newFinancingService(apps, catalog)
	ctx := context.Background()

	in := testFinancingInput()
	catalog.On("Lookup", ctx, in.Item).Return(&domain.ItemInfo{Name: "Tablet", UnitPrice: 25000, InStock: true}, nil)
	catalog.On("GetPlan", ctx, "plan-6").Return(&domain.FinancingPlan{ID: "plan-6", Months: 6, InterestRate: 10, Active: true}, nil)
	apps.On("Create", ctx, mock.AnythingOfType("*domain.FinancingApplication")).Return(nil)

	app, err := svc.Submit(ctx, accountActor("acct-1"), in)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, app.Status)
	assert.Equal(t, 6, app.PlanMonths)
	assert.Equal(t, float64(10), app.PlanRate)
	assert.Equal(t, "acct-1", app.AccountID)
	apps.AssertExpectations(t)
}

func TestSubmitApplication_UnknownItem(t *testing.T) {
	apps := new(mockFinancingRepository)
	catalog := new(mockCatalogRepository)
	svc := newFinancingService(apps, catalog)
	ctx := context.Background()

	in := testFinancingInput()
	catalog.On("Lookup", ctx, in.Item).Return(nil, apperrors.ItemNotFound("item is not available"))

	_, err := svc.Submit(ctx, accountActor("acct-1"), in)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	apps.AssertNotCalled(t, "Create")
}

func TestGetApplication_ForeignReadsNotFound(t *testing.T) {
	apps := new(mockFinancingRepository)
	catalog := new(mockCatalogRepository)
	svc := newFinancingService(apps, catalog)
	ctx := context.Background()

	token := uuid.New()
	apps.On("GetByToken", ctx, token).Return(&domain.FinancingApplication{AccountID: "other"}, nil)

	_, err := svc.Get(ctx, accountActor("acct-1"), token)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestApprove_ComputesInstallment(t *testing.T) {
	apps := new(mockFinancingRepository)
	catalog := new(mockCatalogRepository)
	svc := newFinancingService(apps, catalog)
	ctx := context.Background()

	token := uuid.New()
	id := uuid.New()
	app := &domain.FinancingApplication{
		ID: id, PublicToken: token, AccountID: "acct-1",
		Item: domain.TabletRef("tab-1"), PlanMonths: 7, PlanRate: 15,
		Status: domain.StatusBankReview,
	}

	apps.On("GetByToken", ctx, token).Return(app, nil)
	apps.On("Transition", ctx, id, mock.Anything, domain.StatusApproved, mock.MatchedBy(func(set repository.TransitionUpdate) bool {
		return set.ApprovedAmount != nil && *set.ApprovedAmount == 100000 &&
			set.MonthlyDue != nil && *set.MonthlyDue == 16429
	})).Return(true, nil)

	_, err := svc.Approve(ctx, staffActor(), token, 100000, nil)

	require.NoError(t, err)
	apps.AssertExpectations(t)
}

func TestApprove_DefaultsAmountFromCatalog(t *testing.T) {
	apps := new(mockFinancingRepository)
	catalog := new(mockCatalogRepository)
	svc := newFinancingService(apps, catalog)
	ctx := context.Background()

	token := uuid.New()
	id := uuid.New()
	item := domain.ProductRef("prod-1", "")
	app := &domain.FinancingApplication{
		ID: id, PublicToken: token, AccountID: "acct-1",
		Item: item, PlanMonths: 12, PlanRate: 0,
		Status: domain.StatusPending,
	}

	apps.On("GetByToken", ctx, token).Return(app, nil)
	catalog.On("Lookup", ctx, item).Return(&domain.ItemInfo{Name: "Laptop", UnitPrice: 120000, InStock: true}, nil)
	apps.On("Transition", ctx, id, mock.Anything, domain.StatusApproved, mock.MatchedBy(func(set repository.TransitionUpdate) bool {
		return set.ApprovedAmount != nil && *set.ApprovedAmount == 120000 &&
			set.MonthlyDue != nil && *set.MonthlyDue == 10000
	})).Return(true, nil)

	_, err := svc.Approve(ctx, staffActor(), token, 0, nil)

	require.NoError(t, err)
}

func TestApprove_RequiresStaff(t *testing.T) {
	apps := new(mockFinancingRepository)
	catalog := new(mockCatalogRepository)
	svc := newFinancingService(apps, catalog)

	_, err := svc.Approve(context.Background(), accountActor("acct-1"), uuid.New(), 0, nil)

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestConfirm_ApplicantOnApproved(t *testing.T) {
	apps := new(mockFinancingRepository)
	catalog := new(mockCatalogRepository)
	svc := newFinancingService(apps, catalog)
	ctx := context.Background()

	token := uuid.New()
	id := uuid.New()
	app := &domain.FinancingApplication{
		ID: id, PublicToken: token, AccountID: "acct-1", Status: domain.StatusApproved,
	}

	apps.On("GetByToken", ctx, token).Return(app, nil)
	apps.On("Transition", ctx, id, []string{domain.StatusApproved}, domain.StatusConfirmed, mock.Anything).Return(true, nil)

	_, err := svc.Confirm(ctx, accountActor("acct-1"), token)

	require.NoError(t, err)
}

func TestConfirm_ConcurrentLoserGetsInvalidStatus(t *testing.T) {
	apps := new(mockFinancingRepository)
	catalog := new(mockCatalogRepository)
	svc := newFinancingService(apps, catalog)
	ctx := context.Background()

	token := uuid.New()
	id := uuid.New()
	approved := &domain.FinancingApplication{ID: id, PublicToken: token, AccountID: "acct-1", Status: domain.StatusApproved}
	confirmed := &domain.FinancingApplication{ID: id, PublicToken: token, AccountID: "acct-1", Status: domain.StatusConfirmed}

	// Loaded as approved; by the time the guarded UPDATE runs another caller
	// has already confirmed.
	apps.On("GetByToken", ctx, token).Return(approved, nil).Once()
	apps.On("Transition", ctx, id, mock.Anything, domain.StatusConfirmed, mock.Anything).Return(false, nil)
	apps.On("GetByToken", ctx, token).Return(confirmed, nil).Once()

	_, err := svc.Confirm(ctx, accountActor("acct-1"), token)

	assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)
}

func TestReject_TerminalGuardMiss(t *testing.T) {
	apps := new(mockFinancingRepository)
	catalog := new(mockCatalogRepository)
	svc := newFinancingService(apps, catalog)
	ctx := context.Background()

	token := uuid.New()
	id := uuid.New()
	rejected := &domain.FinancingApplication{ID: id, PublicToken: token, AccountID: "acct-1", Status: domain.StatusRejected}

	apps.On("GetByToken", ctx, token).Return(rejected, nil)
	apps.On("Transition", ctx, id, mock.Anything, domain.StatusRejected, mock.Anything).Return(false, nil)

	_, err := svc.Reject(ctx, staffActor(), token, nil)

	assert.ErrorIs(t, err, apperrors.ErrTerminalState)
}

func TestListAll_UnknownStatusFilter(t *testing.T) {
	apps := new(mockFinancingRepository)
	catalog := new(mockCatalogRepository)
	svc := newFinancingService(apps, catalog)

	_, _, err := svc.ListAll(context.Background(), staffActor(), "levitating", 20, 0)

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
