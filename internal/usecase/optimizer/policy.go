package optimizer

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/finworks/capflow-backend/internal/domain"
)

// Weighting balances the two halves of the objective: capturing discount
// value versus keeping cash in hand longer. Weights are relative; they are
// normalized to sum to 1 before use.
type Weighting struct {
	DiscountCapture float64
	LiquidityRunway float64
}

func (w Weighting) normalized() (wd, wl decimal.Decimal) {
	sum := w.DiscountCapture + w.LiquidityRunway
	return decimal.NewFromFloat(w.DiscountCapture / sum), decimal.NewFromFloat(w.LiquidityRunway / sum)
}

// Policy is the full option set recognized by the optimizer. It is validated
// here and nowhere else.
type Policy struct {
	// MinCashBuffer is the simulated balance the schedule must never breach
	MinCashBuffer decimal.Decimal
	// DiscountCapturePriority runs discount capture before liquidity moves
	// when true; liquidity-preserving moves go first when false
	DiscountCapturePriority bool
	// MaxDelayDays caps how far a payable may be pushed past its due date
	MaxDelayDays int
	// Weighting trades discount capture against liquidity runway
	Weighting Weighting
}

// DefaultPolicy captures discounts whenever the buffer allows and never
// delays payables
func DefaultPolicy() Policy {
	return Policy{
		MinCashBuffer:           decimal.Zero,
		DiscountCapturePriority: true,
		MaxDelayDays:            0,
		Weighting:               Weighting{DiscountCapture: 1, LiquidityRunway: 0},
	}
}

// Validate ensures the policy is structurally sound
// Returns an error wrapping ErrInvalidPolicy if validation fails
func (p Policy) Validate() error {
	if p.MinCashBuffer.IsNegative() {
		return fmt.Errorf("%w: minimum cash buffer cannot be negative", domain.ErrInvalidPolicy)
	}
	if p.MaxDelayDays < 0 {
		return fmt.Errorf("%w: max delay days cannot be negative", domain.ErrInvalidPolicy)
	}
	if p.Weighting.DiscountCapture < 0 || p.Weighting.LiquidityRunway < 0 {
		return fmt.Errorf("%w: objective weights cannot be negative", domain.ErrInvalidPolicy)
	}
	if p.Weighting.DiscountCapture == 0 && p.Weighting.LiquidityRunway == 0 {
		return fmt.Errorf("%w: objective weights cannot both be zero", domain.ErrInvalidPolicy)
	}
	return nil
}
