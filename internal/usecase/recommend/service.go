package recommend

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/finworks/capflow-backend/internal/domain"
)

// DefaultRiskThreshold flags decisions touching counterparties whose risk
// score exceeds this value unless the service is configured otherwise.
const DefaultRiskThreshold = 0.7

// Service renders optimization results into annotated, executable plans and
// transitions the scheduled obligations in the canonical store.
type Service struct {
	ObligationRepo domain.ObligationRepository
	RiskThreshold  float64
}

// NewService creates a new recommender. A non-positive riskThreshold falls
// back to DefaultRiskThreshold.
func NewService(obligationRepo domain.ObligationRepository, riskThreshold float64) *Service {
	if riskThreshold <= 0 {
		riskThreshold = DefaultRiskThreshold
	}
	return &Service{
		ObligationRepo: obligationRepo,
		RiskThreshold:  riskThreshold,
	}
}

// Recommend turns an optimization result into a plan
// Logic:
//  1. Render one plan item per decision, in result order: rationale text
//     derived from the decision alone, risk flag from the counterparty risk
//     against the threshold
//  2. Mark each referenced obligation scheduled through the repository;
//     settled obligations are never touched, already-scheduled ones are left
//     alone, unknown ids (archived since the snapshot) are skipped
//  3. Echo the result's feasibility and shortfall onto the plan
//
// Rendering reads only the result, so recommending the same result twice
// produces identical plan items and no further status transitions.
func (s *Service) Recommend(ctx context.Context, result *domain.OptimizationResult) (*domain.Plan, error) {
	if result == nil {
		return nil, errors.New("optimization result is required")
	}

	items := make([]domain.PlanItem, 0, len(result.Decisions))
	for _, d := range result.Decisions {
		items = append(items, domain.PlanItem{
			Decision:    d,
			Rationale:   rationale(d),
			RiskFlagged: d.CounterpartyRisk > s.RiskThreshold,
		})

		if err := s.markScheduled(ctx, d.ObligationID); err != nil {
			return nil, err
		}
	}

	return &domain.Plan{
		ResultID:  result.ID,
		AsOf:      result.AsOf,
		Feasible:  result.Feasible,
		Shortfall: result.Shortfall,
		Items:     items,
	}, nil
}

func (s *Service) markScheduled(ctx context.Context, obligationID string) error {
	o, err := s.ObligationRepo.GetByID(ctx, obligationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if o.Status == domain.StatusScheduled || !o.Status.Settleable() {
		return nil
	}
	return s.ObligationRepo.UpdateStatus(ctx, obligationID, domain.StatusScheduled)
}

// rationale explains a decision in one line, in treasury language
func rationale(d domain.PaymentDecision) string {
	switch d.Action {
	case domain.ActionPayNow:
		if d.DiscountImpact.IsPositive() {
			return fmt.Sprintf("captured %s discount, $%s value, by paying %s early",
				percent(d.DiscountImpact, d.Amount), d.DiscountImpact.StringFixed(2), days(d.DaysEarly()))
		}
		return "past due, settle immediately"
	case domain.ActionAccelerateCollect:
		if d.DiscountImpact.IsNegative() {
			cost := d.DiscountImpact.Neg()
			return fmt.Sprintf("offered %s early-settlement discount, $%s cost, to collect %s early",
				percent(cost, d.Amount), cost.StringFixed(2), days(d.DaysEarly()))
		}
		return "past due, pursue collection immediately"
	case domain.ActionDelayWithinTerms:
		cost := d.DiscountImpact.Neg()
		return fmt.Sprintf("delayed %s to preserve cash, $%s late cost",
			days(-d.DaysEarly()), cost.StringFixed(2))
	default:
		if d.Direction == domain.DirectionReceivable {
			return "collect on due date, standard collection process"
		}
		return "pay on due date, optimal cash management"
	}
}

// percent renders a discount rate recovered from its cash value against the
// discounted settlement amount: value/(amount+value), as a trimmed percent
func percent(value, amount decimal.Decimal) string {
	face := amount.Add(value)
	if !face.IsPositive() {
		return "0%"
	}
	return value.Mul(decimal.NewFromInt(100)).Div(face).String() + "%"
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
