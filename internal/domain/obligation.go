package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Direction represents which way cash moves when an obligation settles
type Direction string

const (
	DirectionPayable    Direction = "payable"
	DirectionReceivable Direction = "receivable"
)

// ObligationStatus represents the lifecycle state of an obligation
type ObligationStatus string

const (
	StatusOpen      ObligationStatus = "open"
	StatusScheduled ObligationStatus = "scheduled"
	StatusSettled   ObligationStatus = "settled"
	StatusOverdue   ObligationStatus = "overdue"
)

// Settleable reports whether an obligation in this status can still be
// scheduled for settlement
func (s ObligationStatus) Settleable() bool {
	return s == StatusOpen || s == StatusScheduled || s == StatusOverdue
}

// DiscountTerms represents an early-settlement incentive on a single
// obligation: Rate off the face amount when settled on or before By.
type DiscountTerms struct {
	Rate decimal.Decimal // fraction of face amount, [0,1)
	By   time.Time       // last qualifying settlement day
}

// Obligation represents a single payable or receivable invoice.
// The counterparty reference is lookup-only, never ownership. Status is
// mutated only by the schedule recommender; archival belongs to the
// persistence layer. The due date is immutable once the obligation settles.
type Obligation struct {
	ID             string
	Direction      Direction
	CounterpartyID string
	Amount         decimal.Decimal // face amount, always positive
	IssueDate      time.Time
	DueDate        time.Time
	Discount       *DiscountTerms // nil when no early-settlement incentive exists
	Status         ObligationStatus
}

// Validate ensures the obligation adheres to domain rules
// Returns an error wrapping ErrInvalidObligation if validation fails
func (o *Obligation) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("%w: identifier cannot be empty", ErrInvalidObligation)
	}
	if o.Direction != DirectionPayable && o.Direction != DirectionReceivable {
		return fmt.Errorf("%w: obligation %q: direction must be payable or receivable", ErrInvalidObligation, o.ID)
	}
	if o.CounterpartyID == "" {
		return fmt.Errorf("%w: obligation %q: counterparty reference cannot be empty", ErrInvalidObligation, o.ID)
	}
	if o.Amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: obligation %q: face amount must be positive", ErrInvalidObligation, o.ID)
	}
	if o.DueDate.IsZero() {
		return fmt.Errorf("%w: obligation %q: due date cannot be missing", ErrInvalidObligation, o.ID)
	}
	if !o.IssueDate.IsZero() && o.IssueDate.After(o.DueDate) {
		return fmt.Errorf("%w: obligation %q: issue date cannot be after due date", ErrInvalidObligation, o.ID)
	}
	switch o.Status {
	case StatusOpen, StatusScheduled, StatusSettled, StatusOverdue:
	default:
		return fmt.Errorf("%w: obligation %q: unknown status %q", ErrInvalidObligation, o.ID, o.Status)
	}
	if o.Discount != nil {
		if o.Discount.Rate.IsNegative() || o.Discount.Rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w: obligation %q: discount rate must be within [0,1)", ErrInvalidObligation, o.ID)
		}
		if o.Discount.By.IsZero() {
			return fmt.Errorf("%w: obligation %q: discount date cannot be missing", ErrInvalidObligation, o.ID)
		}
		if o.Discount.By.After(o.DueDate) {
			return fmt.Errorf("%w: obligation %q: discount date cannot be after due date", ErrInvalidObligation, o.ID)
		}
		if !o.IssueDate.IsZero() && o.Discount.By.Before(o.IssueDate) {
			return fmt.Errorf("%w: obligation %q: discount date cannot be before issue date", ErrInvalidObligation, o.ID)
		}
	}
	return nil
}

// Clone returns a deep copy, detaching the discount pointer so the copy
// cannot alias the original
func (o Obligation) Clone() Obligation {
	c := o
	if o.Discount != nil {
		d := *o.Discount
		c.Discount = &d
	}
	return c
}

// DiscountValue returns the cash value of the early-settlement discount,
// zero when none exists
func (o *Obligation) DiscountValue() decimal.Decimal {
	if o.Discount == nil {
		return decimal.Zero
	}
	return o.Amount.Mul(o.Discount.Rate)
}

// DiscountedAmount returns the amount due when the discount is taken
func (o *Obligation) DiscountedAmount() decimal.Decimal {
	return o.Amount.Sub(o.DiscountValue())
}
