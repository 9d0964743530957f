package seeder

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/finworks/capflow-backend/internal/domain"
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

func TestSampleSeeder_Seed_EmptyStore(t *testing.T) {
	ctx := context.Background()
	cpRepo := new(MockCounterpartyRepository)
	obRepo := new(MockObligationRepository)
	seeder := NewSampleSeeder(cpRepo, obRepo)

	asOf := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	cpRepo.On("List", ctx, domain.CounterpartyRole("")).Return([]*domain.Counterparty{}, nil)
	cpRepo.On("Create", ctx, mock.AnythingOfType("*domain.Counterparty")).Return(nil)

	created := make(map[string]*domain.Obligation)
	obRepo.On("Create", ctx, mock.AnythingOfType("*domain.Obligation")).Run(func(args mock.Arguments) {
		o := args.Get(1).(*domain.Obligation)
		created[o.ID] = o
	}).Return(nil)

	err := seeder.Seed(ctx, asOf)

	assert.NoError(t, err)
	cpRepo.AssertNumberOfCalls(t, "Create", 10)
	obRepo.AssertNumberOfCalls(t, "Create", 35)

	// AR0001 is overdue by two days and belongs to the first customer.
	ar1 := created["AR0001"]
	assert.NotNil(t, ar1)
	assert.Equal(t, domain.DirectionReceivable, ar1.Direction)
	assert.Equal(t, "cust001", ar1.CounterpartyID)
	assert.Equal(t, asOf.AddDate(0, 0, -2), ar1.DueDate)
	assert.Equal(t, ar1.DueDate.AddDate(0, 0, -30), ar1.IssueDate)
	assert.Nil(t, ar1.Discount)

	// Every third payable carries the 2%/10-days-early discount.
	ap3 := created["AP0003"]
	assert.NotNil(t, ap3)
	assert.Equal(t, "supp003", ap3.CounterpartyID)
	if assert.NotNil(t, ap3.Discount) {
		assert.True(t, ap3.Discount.Rate.Equal(decimal.New(2, -2)))
		assert.Equal(t, ap3.DueDate.AddDate(0, 0, -10), ap3.Discount.By)
	}
	ap4 := created["AP0004"]
	assert.NotNil(t, ap4)
	assert.Nil(t, ap4.Discount)
	assert.Equal(t, ap4.DueDate.AddDate(0, 0, -45), ap4.IssueDate)
}

func TestSampleSeeder_Seed_StoreAlreadyPopulated(t *testing.T) {
	ctx := context.Background()
	cpRepo := new(MockCounterpartyRepository)
	obRepo := new(MockObligationRepository)
	seeder := NewSampleSeeder(cpRepo, obRepo)

	cpRepo.On("List", ctx, domain.CounterpartyRole("")).Return([]*domain.Counterparty{
		{ID: "cust001", Name: "Northwind Retail", Role: domain.RoleCustomer},
	}, nil)

	err := seeder.Seed(ctx, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))

	assert.NoError(t, err)
	cpRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	obRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSampleSeeder_Seed_DeterministicAcrossRuns(t *testing.T) {
	ctx := context.Background()
	asOf := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	capture := func() map[string]domain.Obligation {
		cpRepo := new(MockCounterpartyRepository)
		obRepo := new(MockObligationRepository)
		cpRepo.On("List", ctx, domain.CounterpartyRole("")).Return([]*domain.Counterparty{}, nil)
		cpRepo.On("Create", ctx, mock.Anything).Return(nil)
		out := make(map[string]domain.Obligation)
		obRepo.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
			o := args.Get(1).(*domain.Obligation)
			out[o.ID] = o.Clone()
		}).Return(nil)
		assert.NoError(t, NewSampleSeeder(cpRepo, obRepo).Seed(ctx, asOf))
		return out
	}

	first := capture()
	second := capture()

	assert.Equal(t, len(first), len(second))
	for id, o := range first {
		assert.True(t, o.Amount.Equal(second[id].Amount), "amount drifted for %s", id)
		assert.Equal(t, o.DueDate, second[id].DueDate, "due date drifted for %s", id)
	}
}
