package forecast

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/finworks/capflow-backend/internal/domain"
)

// Project produces the time-bucketed cash-flow forecast for a snapshot:
// horizonPeriods buckets of periodDays each, starting at the snapshot's
// valuation date.
//
// Logic:
//  1. Receivables due in a bucket contribute amount*(1-risk) to the
//     conservative inflow floor and the full amount to the ceiling; the
//     counterparty risk score acts as a probability-of-collection discount
//  2. Payables due in a bucket contribute their full amount to the outflow
//     on both tracks (payables are assumed paid in full)
//  3. Obligations already overdue at the valuation date land in the first
//     bucket; obligations due past the horizon are excluded; settled
//     obligations never contribute
//  4. Balances compound across buckets from the reference cash balance,
//     yielding the [BalanceFloor, BalanceCeiling] confidence interval
//
// The same snapshot always projects to the same buckets: determinism is a
// contract, not an accident of iteration order.
func Project(snap *domain.Snapshot, horizonPeriods, periodDays int) ([]domain.ForecastBucket, error) {
	if horizonPeriods <= 0 {
		return nil, fmt.Errorf("%w: horizon periods must be positive, got %d", domain.ErrInvalidHorizon, horizonPeriods)
	}
	if periodDays <= 0 {
		return nil, fmt.Errorf("%w: period length must be positive, got %d days", domain.ErrInvalidHorizon, periodDays)
	}

	buckets := make([]domain.ForecastBucket, horizonPeriods)
	for i := range buckets {
		buckets[i] = domain.ForecastBucket{
			Index:         i,
			PeriodStart:   snap.AsOf().AddDate(0, 0, i*periodDays),
			PeriodEnd:     snap.AsOf().AddDate(0, 0, (i+1)*periodDays),
			Inflow:        decimal.Zero,
			InflowCeiling: decimal.Zero,
			Outflow:       decimal.Zero,
		}
	}

	horizonDays := horizonPeriods * periodDays
	floor := NewLedger(snap.CashBalance(), horizonPeriods)
	ceiling := NewLedger(snap.CashBalance(), horizonPeriods)

	for _, o := range snap.Obligations() {
		if o.Status == domain.StatusSettled {
			continue
		}
		days := domain.DaysBetween(snap.AsOf(), o.DueDate)
		if days >= horizonDays {
			continue
		}
		if days < 0 {
			// Overdue at valuation: expected to settle immediately.
			days = 0
		}
		idx := days / periodDays

		switch o.Direction {
		case domain.DirectionReceivable:
			cp, ok := snap.Counterparty(o.CounterpartyID)
			if !ok {
				// Build guarantees resolution; an unresolved reference here is a bug.
				return nil, fmt.Errorf("%w: obligation %q references counterparty %q", domain.ErrUnresolvedReference, o.ID, o.CounterpartyID)
			}
			collectible := o.Amount.Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(cp.RiskScore)))
			buckets[idx].Inflow = buckets[idx].Inflow.Add(collectible)
			buckets[idx].InflowCeiling = buckets[idx].InflowCeiling.Add(o.Amount)
			floor.Add(idx, collectible)
			ceiling.Add(idx, o.Amount)
		case domain.DirectionPayable:
			buckets[idx].Outflow = buckets[idx].Outflow.Add(o.Amount)
			floor.Add(idx, o.Amount.Neg())
			ceiling.Add(idx, o.Amount.Neg())
		}
	}

	floorBalances := floor.Balances()
	ceilingBalances := ceiling.Balances()
	for i := range buckets {
		buckets[i].BalanceFloor = floorBalances[i]
		buckets[i].BalanceCeiling = ceilingBalances[i]
	}

	return buckets, nil
}
