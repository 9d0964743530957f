package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DecisionAction represents the settlement move the optimizer chose for an
// obligation
type DecisionAction string

const (
	// ActionPayNow settles a payable before its due date (discount capture)
	ActionPayNow DecisionAction = "pay-now"
	// ActionPayOnDue settles on the original due date
	ActionPayOnDue DecisionAction = "pay-on-due"
	// ActionAccelerateCollect collects a receivable before its due date
	ActionAccelerateCollect DecisionAction = "accelerate-collect"
	// ActionDelayWithinTerms pushes a payable past due, within the policy cap
	ActionDelayWithinTerms DecisionAction = "delay-within-terms"
)

// PaymentDecision is one scheduled settlement. Counterparty id and risk are
// denormalized at decision time so results serialize as flat records and the
// recommender needs nothing beyond the result itself.
type PaymentDecision struct {
	ObligationID     string
	CounterpartyID   string
	CounterpartyRisk float64
	Direction        Direction
	Action           DecisionAction
	Amount           decimal.Decimal // settlement amount, discount already applied
	SettleOn         time.Time
	DueDate          time.Time
	// DiscountImpact is the signed cash effect of discounts and penalties:
	// positive for a captured payable discount, negative for a discount
	// granted to accelerate collection or a late-payment penalty.
	DiscountImpact decimal.Decimal
	// ObjectiveContribution is the policy-weighted score this decision adds
	// to the result's objective value.
	ObjectiveContribution decimal.Decimal
}

// DaysEarly returns how many days before due the settlement lands, negative
// when delayed past due
func (d *PaymentDecision) DaysEarly() int {
	return DaysBetween(d.SettleOn, d.DueDate)
}

// ConstraintStatus reports whether a constraint shaped the schedule
type ConstraintStatus string

const (
	ConstraintBinding ConstraintStatus = "binding"
	ConstraintSlack   ConstraintStatus = "slack"
)

// ConstraintReport summarizes one hard constraint after optimization
type ConstraintReport struct {
	Name   string
	Status ConstraintStatus
	Detail string
}

// Shortfall reports the earliest simulated day the cash buffer is breached
// and the relaxation needed to restore it.
type Shortfall struct {
	Day    time.Time
	Amount decimal.Decimal
}

// OptimizationResult represents the outcome of one optimizer run: the
// decision schedule, the achieved objective, constraint posture and
// feasibility. Infeasibility is an expected, informative outcome; the
// caller decides whether to relax the buffer or raise financing.
type OptimizationResult struct {
	ID             uuid.UUID
	SnapshotID     uuid.UUID
	AsOf           time.Time
	Decisions      []PaymentDecision
	ObjectiveValue decimal.Decimal
	Constraints    []ConstraintReport
	Feasible       bool
	Shortfall      *Shortfall // nil when feasible
}
