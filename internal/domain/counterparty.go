package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CounterpartyRole represents the side of the trading relationship
type CounterpartyRole string

const (
	RoleCustomer CounterpartyRole = "customer"
	RoleSupplier CounterpartyRole = "supplier"
)

// PaymentTerms represents the negotiated terms with a counterparty.
// DiscountRate and DiscountDays express an early-payment incentive such as
// "2/10 net 45": 2% off when settled within 10 days of issue.
type PaymentTerms struct {
	NetDays      int
	DiscountRate decimal.Decimal // fraction of face amount, [0,1)
	DiscountDays int             // days from issue within which the discount applies
}

// Counterparty represents a customer or supplier in the obligation graph.
// Immutable once loaded into a Snapshot; risk updates apply to the store and
// take effect on the next snapshot build.
type Counterparty struct {
	ID        string
	Name      string
	Role      CounterpartyRole
	Terms     PaymentTerms
	RiskScore float64 // [0,1]; for customers, probability of non-collection
}

// Validate ensures the counterparty adheres to domain rules
// Returns an error wrapping ErrInvalidCounterparty if validation fails
func (c *Counterparty) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: identifier cannot be empty", ErrInvalidCounterparty)
	}
	if c.Name == "" {
		return fmt.Errorf("%w: counterparty %q: name cannot be empty", ErrInvalidCounterparty, c.ID)
	}
	if c.Role != RoleCustomer && c.Role != RoleSupplier {
		return fmt.Errorf("%w: counterparty %q: role must be customer or supplier", ErrInvalidCounterparty, c.ID)
	}
	if c.RiskScore < 0 || c.RiskScore > 1 {
		return fmt.Errorf("%w: counterparty %q: risk score must be within [0,1]", ErrInvalidCounterparty, c.ID)
	}
	if c.Terms.NetDays < 0 {
		return fmt.Errorf("%w: counterparty %q: net days cannot be negative", ErrInvalidCounterparty, c.ID)
	}
	if c.Terms.DiscountRate.IsNegative() || c.Terms.DiscountRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: counterparty %q: discount rate must be within [0,1)", ErrInvalidCounterparty, c.ID)
	}
	if c.Terms.DiscountDays < 0 {
		return fmt.Errorf("%w: counterparty %q: discount days cannot be negative", ErrInvalidCounterparty, c.ID)
	}
	return nil
}
