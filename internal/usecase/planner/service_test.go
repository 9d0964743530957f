package planner

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/finworks/capflow-backend/internal/domain"
	"github.com/finworks/capflow-backend/internal/usecase/optimizer"
)

// MockCounterpartyRepository is a mock implementation of domain.CounterpartyRepository
type MockCounterpartyRepository struct {
	mock.Mock
}

func (m *MockCounterpartyRepository) GetByID(ctx context.Context, id string) (*domain.Counterparty, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Counterparty), args.Error(1)
}

func (m *MockCounterpartyRepository) List(ctx context.Context, roleFilter domain.CounterpartyRole) ([]*domain.Counterparty, error) {
	args := m.Called(ctx, roleFilter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Counterparty), args.Error(1)
}

func (m *MockCounterpartyRepository) Create(ctx context.Context, cp *domain.Counterparty) error {
	args := m.Called(ctx, cp)
	return args.Error(0)
}

func (m *MockCounterpartyRepository) UpdateRiskScore(ctx context.Context, id string, risk float64) error {
	args := m.Called(ctx, id, risk)
	return args.Error(0)
}

// MockObligationRepository is a mock implementation of domain.ObligationRepository
type MockObligationRepository struct {
	mock.Mock
}

func (m *MockObligationRepository) GetByID(ctx context.Context, id string) (*domain.Obligation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Obligation), args.Error(1)
}

func (m *MockObligationRepository) ListByDirection(ctx context.Context, d domain.Direction, from time.Time, horizonDays int) ([]*domain.Obligation, error) {
	args := m.Called(ctx, d, from, horizonDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Obligation), args.Error(1)
}

func (m *MockObligationRepository) ListUnsettled(ctx context.Context) ([]*domain.Obligation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Obligation), args.Error(1)
}

func (m *MockObligationRepository) Create(ctx context.Context, o *domain.Obligation) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockObligationRepository) UpdateStatus(ctx context.Context, id string, status domain.ObligationStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// fakeCache is an in-memory ResultCache that counts traffic
type fakeCache struct {
	values map[string]string
	hits   int
	sets   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]string)}
}

func (f *fakeCache) Get(_ context.Context, key string) (string, bool) {
	v, ok := f.values[key]
	if ok {
		f.hits++
	}
	return v, ok
}

func (f *fakeCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	f.values[key] = value
	f.sets++
	return nil
}

var plannerAsOf = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func plannerCounterparty(id string, role domain.CounterpartyRole, risk float64) *domain.Counterparty {
	return &domain.Counterparty{
		ID:        id,
		Name:      strings.ToUpper(id),
		Role:      role,
		Terms:     domain.PaymentTerms{NetDays: 30},
		RiskScore: risk,
	}
}

func plannerObligation(id string, dir domain.Direction, cpID, amount string, dueOffset int) *domain.Obligation {
	due := plannerAsOf.AddDate(0, 0, dueOffset)
	return &domain.Obligation{
		ID:             id,
		Direction:      dir,
		CounterpartyID: cpID,
		Amount:         decimal.RequireFromString(amount),
		IssueDate:      due.AddDate(0, 0, -30),
		DueDate:        due,
		Status:         domain.StatusOpen,
	}
}

func TestBuildSnapshotAssemblesStoreRecords(t *testing.T) {
	cpRepo := new(MockCounterpartyRepository)
	obRepo := new(MockObligationRepository)

	cpRepo.On("List", mock.Anything, domain.CounterpartyRole("")).Return([]*domain.Counterparty{
		plannerCounterparty("cust001", domain.RoleCustomer, 0.1),
		plannerCounterparty("supp001", domain.RoleSupplier, 0.0),
	}, nil)
	obRepo.On("ListUnsettled", mock.Anything).Return([]*domain.Obligation{
		plannerObligation("AR-1", domain.DirectionReceivable, "cust001", "1000", 10),
		plannerObligation("AP-1", domain.DirectionPayable, "supp001", "400", 5),
	}, nil)

	service := NewService(cpRepo, obRepo, nil)
	snap, err := service.BuildSnapshot(context.Background(), decimal.RequireFromString("5000"), plannerAsOf)

	require.NoError(t, err)
	assert.Equal(t, plannerAsOf, snap.AsOf())
	assert.Equal(t, 2, snap.CounterpartyCount())
	assert.Len(t, snap.Obligations(), 2)
	assert.True(t, snap.CashBalance().Equal(decimal.RequireFromString("5000")))
	cpRepo.AssertExpectations(t)
	obRepo.AssertExpectations(t)
}

func TestForecastProjectsStoreRecords(t *testing.T) {
	cpRepo := new(MockCounterpartyRepository)
	obRepo := new(MockObligationRepository)

	cpRepo.On("List", mock.Anything, domain.CounterpartyRole("")).Return([]*domain.Counterparty{
		plannerCounterparty("cust001", domain.RoleCustomer, 0.0),
	}, nil)
	obRepo.On("ListUnsettled", mock.Anything).Return([]*domain.Obligation{
		plannerObligation("AR-1", domain.DirectionReceivable, "cust001", "900", 3),
	}, nil)

	service := NewService(cpRepo, obRepo, nil)
	buckets, err := service.Forecast(context.Background(), decimal.RequireFromString("100"), plannerAsOf, 2, 7)

	require.NoError(t, err)
	require.Len(t, buckets, 2)
	// Risk-free receivable lands in the first week: 100 + 900 = 1000.
	assert.True(t, buckets[0].BalanceFloor.Equal(decimal.RequireFromString("1000")),
		"expected first bucket floor 1000, got %s", buckets[0].BalanceFloor)
	assert.True(t, buckets[1].Inflow.IsZero())
}

func TestOptimizeServesSecondCallFromCache(t *testing.T) {
	cpRepo := new(MockCounterpartyRepository)
	obRepo := new(MockObligationRepository)
	cache := newFakeCache()

	cpRepo.On("List", mock.Anything, domain.CounterpartyRole("")).Return([]*domain.Counterparty{
		plannerCounterparty("supp001", domain.RoleSupplier, 0.0),
	}, nil)
	obRepo.On("ListUnsettled", mock.Anything).Return([]*domain.Obligation{
		plannerObligation("AP-1", domain.DirectionPayable, "supp001", "400", 5),
	}, nil)

	service := NewService(cpRepo, obRepo, cache)
	pol := optimizer.DefaultPolicy()

	first, err := service.Optimize(context.Background(), decimal.RequireFromString("2000"), plannerAsOf, pol)
	require.NoError(t, err)
	second, err := service.Optimize(context.Background(), decimal.RequireFromString("2000"), plannerAsOf, pol)
	require.NoError(t, err)

	// A recomputation would mint a fresh result id.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, 1, cache.hits)
	assert.True(t, first.ObjectiveValue.Equal(second.ObjectiveValue))
	require.Len(t, second.Decisions, 1)
	assert.Equal(t, "AP-1", second.Decisions[0].ObligationID)
	assert.True(t, second.Decisions[0].Amount.Equal(decimal.RequireFromString("400")))
}

func TestOptimizeRecomputesWhenStoreChanges(t *testing.T) {
	cpRepo := new(MockCounterpartyRepository)
	obRepo := new(MockObligationRepository)
	cache := newFakeCache()

	cpRepo.On("List", mock.Anything, domain.CounterpartyRole("")).Return([]*domain.Counterparty{
		plannerCounterparty("cust001", domain.RoleCustomer, 0.1),
	}, nil).Once()
	cpRepo.On("List", mock.Anything, domain.CounterpartyRole("")).Return([]*domain.Counterparty{
		plannerCounterparty("cust001", domain.RoleCustomer, 0.6),
	}, nil).Once()
	obRepo.On("ListUnsettled", mock.Anything).Return([]*domain.Obligation{
		plannerObligation("AR-1", domain.DirectionReceivable, "cust001", "1000", 10),
	}, nil)

	service := NewService(cpRepo, obRepo, cache)
	pol := optimizer.DefaultPolicy()

	first, err := service.Optimize(context.Background(), decimal.RequireFromString("500"), plannerAsOf, pol)
	require.NoError(t, err)
	second, err := service.Optimize(context.Background(), decimal.RequireFromString("500"), plannerAsOf, pol)
	require.NoError(t, err)

	// The risk revision changes the fingerprint, so no stale hit.
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, cache.sets)
	assert.Equal(t, 0, cache.hits)
	cpRepo.AssertExpectations(t)
}

func TestOptimizeWorksWithoutCache(t *testing.T) {
	cpRepo := new(MockCounterpartyRepository)
	obRepo := new(MockObligationRepository)

	cpRepo.On("List", mock.Anything, domain.CounterpartyRole("")).Return([]*domain.Counterparty{
		plannerCounterparty("supp001", domain.RoleSupplier, 0.0),
	}, nil)
	obRepo.On("ListUnsettled", mock.Anything).Return([]*domain.Obligation{
		plannerObligation("AP-1", domain.DirectionPayable, "supp001", "400", 5),
	}, nil)

	service := NewService(cpRepo, obRepo, nil)
	result, err := service.Optimize(context.Background(), decimal.RequireFromString("2000"), plannerAsOf, optimizer.DefaultPolicy())

	require.NoError(t, err)
	assert.True(t, result.Feasible)
	require.Len(t, result.Decisions, 1)
}

func TestOptimizeRejectsInvalidPolicy(t *testing.T) {
	cpRepo := new(MockCounterpartyRepository)
	obRepo := new(MockObligationRepository)

	cpRepo.On("List", mock.Anything, domain.CounterpartyRole("")).Return([]*domain.Counterparty{}, nil)
	obRepo.On("ListUnsettled", mock.Anything).Return([]*domain.Obligation{}, nil)

	pol := optimizer.DefaultPolicy()
	pol.MaxDelayDays = -1

	service := NewService(cpRepo, obRepo, nil)
	_, err := service.Optimize(context.Background(), decimal.Zero, plannerAsOf, pol)

	assert.ErrorIs(t, err, domain.ErrInvalidPolicy)
}

func TestCreateObligationMintsIdentifier(t *testing.T) {
	cpRepo := new(MockCounterpartyRepository)
	obRepo := new(MockObligationRepository)

	cpRepo.On("GetByID", mock.Anything, "cust001").Return(plannerCounterparty("cust001", domain.RoleCustomer, 0.1), nil)

	var created *domain.Obligation
	obRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Obligation")).Run(func(args mock.Arguments) {
		created = args.Get(1).(*domain.Obligation)
	}).Return(nil)

	service := NewService(cpRepo, obRepo, nil)
	due := plannerAsOf.AddDate(0, 0, 20)
	o, err := service.CreateObligation(context.Background(), CreateObligationInput{
		Direction:      domain.DirectionReceivable,
		CounterpartyID: "cust001",
		Amount:         decimal.RequireFromString("1250.50"),
		DueDate:        due,
	})

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.True(t, strings.HasPrefix(o.ID, "AR-"))
	assert.Len(t, o.ID, len("AR-")+8)
	assert.Equal(t, o.ID, created.ID)
	// Issue date defaults from the counterparty's net-30 terms.
	assert.Equal(t, due.AddDate(0, 0, -30), o.IssueDate)
	assert.Equal(t, domain.StatusOpen, o.Status)
	assert.Nil(t, o.Discount)
}

func TestCreateObligationDefaultsDiscountFromTerms(t *testing.T) {
	cpRepo := new(MockCounterpartyRepository)
	obRepo := new(MockObligationRepository)

	supplier := plannerCounterparty("supp001", domain.RoleSupplier, 0.0)
	// 2/10 net 45: 2% off when settled within 10 days of issue.
	supplier.Terms = domain.PaymentTerms{
		NetDays:      45,
		DiscountRate: decimal.RequireFromString("0.02"),
		DiscountDays: 10,
	}
	cpRepo.On("GetByID", mock.Anything, "supp001").Return(supplier, nil)
	obRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Obligation")).Return(nil)

	service := NewService(cpRepo, obRepo, nil)
	due := plannerAsOf.AddDate(0, 0, 45)
	o, err := service.CreateObligation(context.Background(), CreateObligationInput{
		ID:                 "AP-0099",
		Direction:          domain.DirectionPayable,
		CounterpartyID:     "supp001",
		Amount:             decimal.RequireFromString("3000"),
		DueDate:            due,
		ApplyTermsDiscount: true,
	})

	require.NoError(t, err)
	require.NotNil(t, o.Discount)
	assert.True(t, o.Discount.Rate.Equal(decimal.RequireFromString("0.02")))
	assert.Equal(t, plannerAsOf.AddDate(0, 0, 10), o.Discount.By)
	assert.Equal(t, plannerAsOf, o.IssueDate)
}

func TestCreateObligationKeepsExplicitDiscount(t *testing.T) {
	cpRepo := new(MockCounterpartyRepository)
	obRepo := new(MockObligationRepository)

	cpRepo.On("GetByID", mock.Anything, "supp001").Return(plannerCounterparty("supp001", domain.RoleSupplier, 0.0), nil)
	obRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Obligation")).Return(nil)

	due := plannerAsOf.AddDate(0, 0, 30)
	explicit := &domain.DiscountTerms{
		Rate: decimal.RequireFromString("0.015"),
		By:   due.AddDate(0, 0, -5),
	}

	service := NewService(cpRepo, obRepo, nil)
	o, err := service.CreateObligation(context.Background(), CreateObligationInput{
		ID:                 "AP-0100",
		Direction:          domain.DirectionPayable,
		CounterpartyID:     "supp001",
		Amount:             decimal.RequireFromString("500"),
		DueDate:            due,
		Discount:           explicit,
		ApplyTermsDiscount: true,
	})

	require.NoError(t, err)
	require.NotNil(t, o.Discount)
	assert.True(t, o.Discount.Rate.Equal(decimal.RequireFromString("0.015")))
}

func TestCreateObligationRejectsUnknownCounterparty(t *testing.T) {
	cpRepo := new(MockCounterpartyRepository)
	obRepo := new(MockObligationRepository)

	cpRepo.On("GetByID", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	service := NewService(cpRepo, obRepo, nil)
	_, err := service.CreateObligation(context.Background(), CreateObligationInput{
		Direction:      domain.DirectionPayable,
		CounterpartyID: "ghost",
		Amount:         decimal.RequireFromString("100"),
		DueDate:        plannerAsOf.AddDate(0, 0, 10),
	})

	assert.ErrorIs(t, err, domain.ErrNotFound)
	obRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateObligationRejectsInvalidAmount(t *testing.T) {
	cpRepo := new(MockCounterpartyRepository)
	obRepo := new(MockObligationRepository)

	cpRepo.On("GetByID", mock.Anything, "supp001").Return(plannerCounterparty("supp001", domain.RoleSupplier, 0.0), nil)

	service := NewService(cpRepo, obRepo, nil)
	_, err := service.CreateObligation(context.Background(), CreateObligationInput{
		Direction:      domain.DirectionPayable,
		CounterpartyID: "supp001",
		Amount:         decimal.RequireFromString("-10"),
		DueDate:        plannerAsOf.AddDate(0, 0, 10),
	})

	assert.ErrorIs(t, err, domain.ErrInvalidObligation)
	obRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestListObligationsRejectsUnknownDirection(t *testing.T) {
	service := NewService(new(MockCounterpartyRepository), new(MockObligationRepository), nil)

	_, err := service.ListObligations(context.Background(), domain.Direction("sideways"), 30)

	assert.ErrorIs(t, err, domain.ErrInvalidObligation)
}

func TestSetCounterpartyRiskValidatesRange(t *testing.T) {
	cpRepo := new(MockCounterpartyRepository)
	service := NewService(cpRepo, new(MockObligationRepository), nil)

	err := service.SetCounterpartyRisk(context.Background(), "cust001", 1.2)
	assert.ErrorIs(t, err, domain.ErrInvalidCounterparty)
	cpRepo.AssertNotCalled(t, "UpdateRiskScore", mock.Anything, mock.Anything, mock.Anything)

	cpRepo.On("UpdateRiskScore", mock.Anything, "cust001", 0.35).Return(nil)
	err = service.SetCounterpartyRisk(context.Background(), "cust001", 0.35)
	assert.NoError(t, err)
	cpRepo.AssertExpectations(t)
}
