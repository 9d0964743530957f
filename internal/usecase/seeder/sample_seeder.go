package seeder

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finworks/capflow-backend/internal/domain"
)

// sampleCounterparty defines one counterparty to be seeded
type sampleCounterparty struct {
	ID   string
	Name string
	Role domain.CounterpartyRole
	Net  int
	Risk float64
}

var sampleCounterparties = []sampleCounterparty{
	{ID: "cust001", Name: "Northwind Retail", Role: domain.RoleCustomer, Net: 30, Risk: 0.05},
	{ID: "cust002", Name: "Cascade Foods", Role: domain.RoleCustomer, Net: 30, Risk: 0.12},
	{ID: "cust003", Name: "Harbor Logistics", Role: domain.RoleCustomer, Net: 30, Risk: 0.25},
	{ID: "cust004", Name: "Summit Media", Role: domain.RoleCustomer, Net: 30, Risk: 0.45},
	{ID: "cust005", Name: "Atlas Manufacturing", Role: domain.RoleCustomer, Net: 30, Risk: 0.75},
	{ID: "supp001", Name: "Bolt Components", Role: domain.RoleSupplier, Net: 45, Risk: 0.02},
	{ID: "supp002", Name: "Meridian Paper", Role: domain.RoleSupplier, Net: 45, Risk: 0.05},
	{ID: "supp003", Name: "Orchard Packaging", Role: domain.RoleSupplier, Net: 45, Risk: 0.08},
	{ID: "supp004", Name: "Granite Freight", Role: domain.RoleSupplier, Net: 45, Risk: 0.10},
	{ID: "supp005", Name: "Linden Office Supply", Role: domain.RoleSupplier, Net: 45, Risk: 0.15},
}

// SampleSeeder populates an empty store with a deterministic demo ledger:
// five customers, five suppliers, twenty receivables and fifteen payables
// spread over roughly seventy days around the reference date. Every third
// payable carries a 2% discount for settling ten days early.
type SampleSeeder struct {
	cpRepo domain.CounterpartyRepository
	obRepo domain.ObligationRepository
}

// NewSampleSeeder creates a new SampleSeeder instance
func NewSampleSeeder(cpRepo domain.CounterpartyRepository, obRepo domain.ObligationRepository) *SampleSeeder {
	return &SampleSeeder{
		cpRepo: cpRepo,
		obRepo: obRepo,
	}
}

// Seed loads the sample ledger unless the store already holds data.
// The same asOf always seeds the same records, so demo runs are repeatable.
func (s *SampleSeeder) Seed(ctx context.Context, asOf time.Time) error {
	existing, err := s.cpRepo.List(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to inspect store before seeding: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	day := domain.DayOf(asOf)

	for _, sc := range sampleCounterparties {
		cp := &domain.Counterparty{
			ID:        sc.ID,
			Name:      sc.Name,
			Role:      sc.Role,
			Terms:     domain.PaymentTerms{NetDays: sc.Net},
			RiskScore: sc.Risk,
		}
		if err := cp.Validate(); err != nil {
			return err
		}
		if err := s.cpRepo.Create(ctx, cp); err != nil {
			return err
		}
	}

	for i := 1; i <= 20; i++ {
		// Dues fan out every four days; the first receivable is already
		// overdue so collection urgency shows up in demo plans.
		due := day.AddDate(0, 0, 4*i-6)
		o := &domain.Obligation{
			ID:             fmt.Sprintf("AR%04d", i),
			Direction:      domain.DirectionReceivable,
			CounterpartyID: fmt.Sprintf("cust%03d", (i-1)%5+1),
			Amount:         decimal.New(int64(95000+21500*i), -2),
			IssueDate:      due.AddDate(0, 0, -30),
			DueDate:        due,
			Status:         domain.StatusOpen,
		}
		if err := s.create(ctx, o); err != nil {
			return err
		}
	}

	for i := 1; i <= 15; i++ {
		due := day.AddDate(0, 0, 5*i-3)
		o := &domain.Obligation{
			ID:             fmt.Sprintf("AP%04d", i),
			Direction:      domain.DirectionPayable,
			CounterpartyID: fmt.Sprintf("supp%03d", (i-1)%5+1),
			Amount:         decimal.New(int64(120000+18000*i), -2),
			IssueDate:      due.AddDate(0, 0, -45),
			DueDate:        due,
			Status:         domain.StatusOpen,
		}
		if i%3 == 0 {
			o.Discount = &domain.DiscountTerms{
				Rate: decimal.New(2, -2),
				By:   due.AddDate(0, 0, -10),
			}
		}
		if err := s.create(ctx, o); err != nil {
			return err
		}
	}

	return nil
}

func (s *SampleSeeder) create(ctx context.Context, o *domain.Obligation) error {
	if err := o.Validate(); err != nil {
		return err
	}
	return s.obRepo.Create(ctx, o)
}
