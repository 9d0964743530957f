// Package memory provides map-backed repositories for tests and for running
// the engine without external services. Thread-safe via RWMutex; records are
// copied on the way in and out so callers never share store memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/finworks/capflow-backend/internal/domain"
)

// CounterpartyRepository implements domain.CounterpartyRepository in memory
type CounterpartyRepository struct {
	mu  sync.RWMutex
	byID map[string]domain.Counterparty
}

// NewCounterpartyRepository creates an empty in-memory counterparty store
func NewCounterpartyRepository() *CounterpartyRepository {
	return &CounterpartyRepository{
		byID: make(map[string]domain.Counterparty),
	}
}

func (r *CounterpartyRepository) GetByID(_ context.Context, id string) (*domain.Counterparty, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: counterparty %q", domain.ErrNotFound, id)
	}
	return &cp, nil
}

func (r *CounterpartyRepository) List(_ context.Context, roleFilter domain.CounterpartyRole) ([]*domain.Counterparty, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Counterparty, 0, len(r.byID))
	for _, cp := range r.byID {
		if roleFilter != "" && cp.Role != roleFilter {
			continue
		}
		c := cp
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *CounterpartyRepository) Create(_ context.Context, cp *domain.Counterparty) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[cp.ID]; exists {
		return fmt.Errorf("%w: counterparty %q", domain.ErrDuplicateEntity, cp.ID)
	}
	r.byID[cp.ID] = *cp
	return nil
}

func (r *CounterpartyRepository) UpdateRiskScore(_ context.Context, id string, risk float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: counterparty %q", domain.ErrNotFound, id)
	}
	cp.RiskScore = risk
	r.byID[id] = cp
	return nil
}
