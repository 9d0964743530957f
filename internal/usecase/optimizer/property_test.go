//go:build property
// +build property

package optimizer

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"github.com/finworks/capflow-backend/internal/domain"
)

var propAsOf = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

// buildScenario turns primitive generator output into a snapshot. Index i
// decides direction and risk so the mix is stable for a given input vector.
func buildScenario(amounts, dueOffsets, discountPicks []int, balance int) *domain.Snapshot {
	n := len(amounts)
	if len(dueOffsets) < n {
		n = len(dueOffsets)
	}
	if len(discountPicks) < n {
		n = len(discountPicks)
	}

	cps := make(map[string]domain.Counterparty, n)
	obs := make([]domain.Obligation, 0, n)
	for i := 0; i < n; i++ {
		cpID := fmt.Sprintf("cp-%02d", i)
		direction := domain.DirectionPayable
		role := domain.RoleSupplier
		if i%3 == 2 {
			direction = domain.DirectionReceivable
			role = domain.RoleCustomer
		}
		cps[cpID] = domain.Counterparty{
			ID:        cpID,
			Name:      cpID,
			Role:      role,
			Terms:     domain.PaymentTerms{NetDays: 30},
			RiskScore: float64(i*17%100) / 100,
		}

		due := propAsOf.AddDate(0, 0, dueOffsets[i])
		var discount *domain.DiscountTerms
		if discountPicks[i]%3 == 0 {
			// window opens 1-7 days before due; sometimes already closed
			discount = &domain.DiscountTerms{
				Rate: decimal.New(int64(1+discountPicks[i]%4), -2),
				By:   due.AddDate(0, 0, -(1 + discountPicks[i]%7)),
			}
		}
		obs = append(obs, domain.Obligation{
			ID:             fmt.Sprintf("OB-%03d", i),
			Direction:      direction,
			CounterpartyID: cpID,
			Amount:         decimal.NewFromInt(int64(amounts[i])),
			IssueDate:      propAsOf.AddDate(0, 0, -30),
			DueDate:        due,
			Discount:       discount,
			Status:         domain.StatusOpen,
		})
	}

	return domain.NewSnapshot(propAsOf, decimal.NewFromInt(int64(balance)), cps, obs)
}

// TestOptimizeSettlementWindows verifies every decision stays inside its
// obligation's settlement window.
// Property: payables settle in [asOf, due+cap], receivables in [asOf, due]
func TestOptimizeSettlementWindows(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("settlements stay inside the window", prop.ForAll(
		func(amounts, dueOffsets, discountPicks []int, balance, buffer, cap int) bool {
			snap := buildScenario(amounts, dueOffsets, discountPicks, balance)

			pol := DefaultPolicy()
			pol.MinCashBuffer = decimal.NewFromInt(int64(buffer))
			pol.MaxDelayDays = cap

			res, err := Optimize(snap, pol)
			if err != nil {
				return false
			}

			for _, d := range res.Decisions {
				if d.SettleOn.Before(propAsOf) {
					return false
				}
				latest := d.DueDate
				if d.Direction == domain.DirectionPayable {
					latest = latest.AddDate(0, 0, cap)
				}
				if d.SettleOn.After(latest) {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(6, gen.IntRange(1, 9000)),
		gen.SliceOfN(6, gen.IntRange(0, 45)),
		gen.SliceOfN(6, gen.IntRange(0, 20)),
		gen.IntRange(0, 20000),
		gen.IntRange(0, 5000),
		gen.IntRange(0, 30),
	))

	properties.TestingRun(t)
}

// TestOptimizeObjectiveConsistency verifies the reported objective is the sum
// of the decision contributions, and that without forced delays the schedule
// never scores worse than settling everything on due.
// Property: ObjectiveValue == sum(ObjectiveContribution), and >= 0 when cap == 0
func TestOptimizeObjectiveConsistency(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("objective equals the decision sum and never trails the baseline", prop.ForAll(
		func(amounts, dueOffsets, discountPicks []int, balance, buffer int) bool {
			snap := buildScenario(amounts, dueOffsets, discountPicks, balance)

			pol := DefaultPolicy()
			pol.MinCashBuffer = decimal.NewFromInt(int64(buffer))

			res, err := Optimize(snap, pol)
			if err != nil {
				return false
			}

			sum := decimal.Zero
			for _, d := range res.Decisions {
				sum = sum.Add(d.ObjectiveContribution)
			}
			if !sum.Equal(res.ObjectiveValue) {
				return false
			}
			return !res.ObjectiveValue.IsNegative()
		},
		gen.SliceOfN(6, gen.IntRange(1, 9000)),
		gen.SliceOfN(6, gen.IntRange(0, 45)),
		gen.SliceOfN(6, gen.IntRange(0, 20)),
		gen.IntRange(0, 20000),
		gen.IntRange(0, 5000),
	))

	properties.TestingRun(t)
}

// TestOptimizeDeterminism verifies two runs over the same scenario produce
// the same schedule.
// Property: Optimize(snap, pol) == Optimize(snap, pol) up to generated ids
func TestOptimizeDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("optimization is deterministic", prop.ForAll(
		func(amounts, dueOffsets, discountPicks []int, balance, buffer, cap int, capturePriority bool) bool {
			pol := DefaultPolicy()
			pol.MinCashBuffer = decimal.NewFromInt(int64(buffer))
			pol.MaxDelayDays = cap
			pol.DiscountCapturePriority = capturePriority

			first, err1 := Optimize(buildScenario(amounts, dueOffsets, discountPicks, balance), pol)
			second, err2 := Optimize(buildScenario(amounts, dueOffsets, discountPicks, balance), pol)
			if err1 != nil || err2 != nil {
				return false
			}

			if len(first.Decisions) != len(second.Decisions) {
				return false
			}
			for i := range first.Decisions {
				a, b := first.Decisions[i], second.Decisions[i]
				if a.ObligationID != b.ObligationID || a.Action != b.Action {
					return false
				}
				if !a.SettleOn.Equal(b.SettleOn) || !a.Amount.Equal(b.Amount) {
					return false
				}
			}
			return first.ObjectiveValue.Equal(second.ObjectiveValue) &&
				first.Feasible == second.Feasible
		},
		gen.SliceOfN(8, gen.IntRange(1, 9000)),
		gen.SliceOfN(8, gen.IntRange(0, 45)),
		gen.SliceOfN(8, gen.IntRange(0, 20)),
		gen.IntRange(0, 20000),
		gen.IntRange(0, 5000),
		gen.IntRange(0, 30),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// TestOptimizeDiscountAmounts verifies the settlement amount is the
// discounted amount exactly when settlement lands inside a live window.
// Property: Amount == discounted iff SettleOn <= Discount.By, face otherwise
func TestOptimizeDiscountAmounts(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("amounts honor the discount window", prop.ForAll(
		func(amounts, dueOffsets, discountPicks []int, balance, cap int) bool {
			snap := buildScenario(amounts, dueOffsets, discountPicks, balance)
			index := make(map[string]domain.Obligation)
			for _, o := range snap.Obligations() {
				index[o.ID] = o
			}

			pol := DefaultPolicy()
			pol.MaxDelayDays = cap

			res, err := Optimize(snap, pol)
			if err != nil {
				return false
			}

			for _, d := range res.Decisions {
				o := index[d.ObligationID]
				want := o.Amount
				if o.Discount != nil && !domain.DayOf(o.Discount.By).Before(propAsOf) &&
					!domain.DayOf(d.SettleOn).After(domain.DayOf(o.Discount.By)) {
					want = o.DiscountedAmount()
				}
				if !d.Amount.Equal(want) {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(6, gen.IntRange(1, 9000)),
		gen.SliceOfN(6, gen.IntRange(0, 45)),
		gen.SliceOfN(6, gen.IntRange(0, 20)),
		gen.IntRange(0, 20000),
		gen.IntRange(0, 30),
	))

	properties.TestingRun(t)
}
