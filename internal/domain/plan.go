package domain

import (
	"time"

	"github.com/google/uuid"
)

// PlanItem is one recommended settlement with its human-readable rationale.
// RiskFlagged marks decisions touching counterparties above the recommender's
// risk threshold.
type PlanItem struct {
	Decision    PaymentDecision
	Rationale   string
	RiskFlagged bool
}

// Plan is the executable, annotated rendering of an OptimizationResult.
// Its identity is the result's: recommending the same result twice yields
// an identical plan.
type Plan struct {
	ResultID  uuid.UUID
	AsOf      time.Time
	Feasible  bool
	Shortfall *Shortfall
	Items     []PlanItem
}
