package domain

import (
	"context"
	"time"
)

// CounterpartyRepository defines the interface for counterparty persistence operations
type CounterpartyRepository interface {
	// GetByID retrieves a counterparty by its external id
	GetByID(ctx context.Context, id string) (*Counterparty, error)

	// List retrieves all counterparties, optionally filtered by role
	// If roleFilter is empty, returns all counterparties
	List(ctx context.Context, roleFilter CounterpartyRole) ([]*Counterparty, error)

	// Create creates a new counterparty
	Create(ctx context.Context, cp *Counterparty) error

	// UpdateRiskScore replaces a counterparty's risk score
	UpdateRiskScore(ctx context.Context, id string, risk float64) error
}

// ObligationRepository defines the interface for obligation persistence operations
type ObligationRepository interface {
	// GetByID retrieves an obligation by its external id
	GetByID(ctx context.Context, id string) (*Obligation, error)

	// ListByDirection retrieves obligations of one direction due within
	// horizonDays of from; horizonDays <= 0 means no horizon cut
	ListByDirection(ctx context.Context, d Direction, from time.Time, horizonDays int) ([]*Obligation, error)

	// ListUnsettled retrieves every obligation not yet settled
	ListUnsettled(ctx context.Context) ([]*Obligation, error)

	// Create creates a new obligation
	Create(ctx context.Context, o *Obligation) error

	// UpdateStatus replaces an obligation's status. Settled obligations are
	// never downgraded; implementations return ErrNotFound for unknown ids.
	UpdateStatus(ctx context.Context, id string, status ObligationStatus) error
}

// ResultCache defines the interface for caching serialized engine results.
// Implementations must treat failures as cache misses; caching is an
// optimization, never a correctness dependency.
type ResultCache interface {
	// Get retrieves a cached value; the second return reports a hit
	Get(ctx context.Context, key string) (string, bool)

	// Set stores a value with a time-to-live; ttl <= 0 means no expiry
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}
