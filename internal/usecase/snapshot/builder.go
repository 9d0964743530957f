package snapshot

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finworks/capflow-backend/internal/domain"
)

// Build assembles an immutable snapshot of the obligation graph from
// externally supplied records. Data is handed in, never fetched: the builder
// performs no I/O, which keeps it testable in isolation from persistence.
//
// Logic:
//  1. Validate and index counterparties; duplicate ids are rejected
//  2. Validate obligations; duplicate ids are rejected
//  3. Resolve every obligation's counterparty reference against the index
//  4. Flag open obligations due before asOf as overdue (on the copy only,
//     inputs are never mutated)
//  5. Sort obligations by due date then id so downstream runs are
//     order-independent of the caller's input
func Build(counterparties []domain.Counterparty, obligations []domain.Obligation, balance decimal.Decimal, asOf time.Time) (*domain.Snapshot, error) {
	asOfDay := domain.DayOf(asOf)

	// Step 1: validate and index counterparties
	index := make(map[string]domain.Counterparty, len(counterparties))
	for i := range counterparties {
		cp := counterparties[i]
		if err := cp.Validate(); err != nil {
			return nil, err
		}
		if _, exists := index[cp.ID]; exists {
			return nil, fmt.Errorf("%w: counterparty %q supplied twice", domain.ErrDuplicateEntity, cp.ID)
		}
		index[cp.ID] = cp
	}

	// Steps 2-4: validate, resolve and normalize obligations
	seen := make(map[string]struct{}, len(obligations))
	normalized := make([]domain.Obligation, 0, len(obligations))
	for i := range obligations {
		o := obligations[i].Clone()
		if err := o.Validate(); err != nil {
			return nil, err
		}
		if _, exists := seen[o.ID]; exists {
			return nil, fmt.Errorf("%w: obligation %q supplied twice", domain.ErrDuplicateEntity, o.ID)
		}
		seen[o.ID] = struct{}{}

		if _, ok := index[o.CounterpartyID]; !ok {
			return nil, fmt.Errorf("%w: obligation %q references counterparty %q", domain.ErrUnresolvedReference, o.ID, o.CounterpartyID)
		}

		if o.Status == domain.StatusOpen && domain.DayOf(o.DueDate).Before(asOfDay) {
			o.Status = domain.StatusOverdue
		}
		normalized = append(normalized, o)
	}

	// Step 5: deterministic ordering
	sort.Slice(normalized, func(i, j int) bool {
		if !normalized[i].DueDate.Equal(normalized[j].DueDate) {
			return normalized[i].DueDate.Before(normalized[j].DueDate)
		}
		return normalized[i].ID < normalized[j].ID
	})

	return domain.NewSnapshot(asOfDay, balance, index, normalized), nil
}
