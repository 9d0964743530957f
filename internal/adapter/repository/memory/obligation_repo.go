package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/finworks/capflow-backend/internal/domain"
)

// ObligationRepository implements domain.ObligationRepository in memory
type ObligationRepository struct {
	mu   sync.RWMutex
	byID map[string]domain.Obligation
}

// NewObligationRepository creates an empty in-memory obligation store
func NewObligationRepository() *ObligationRepository {
	return &ObligationRepository{
		byID: make(map[string]domain.Obligation),
	}
}

func (r *ObligationRepository) GetByID(_ context.Context, id string) (*domain.Obligation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: obligation %q", domain.ErrNotFound, id)
	}
	c := o.Clone()
	return &c, nil
}

func (r *ObligationRepository) ListByDirection(_ context.Context, d domain.Direction, from time.Time, horizonDays int) ([]*domain.Obligation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var cutoff time.Time
	if horizonDays > 0 {
		cutoff = domain.DayOf(from).AddDate(0, 0, horizonDays)
	}
	out := make([]*domain.Obligation, 0)
	for _, o := range r.byID {
		if o.Direction != d {
			continue
		}
		// Overdue obligations stay listed; the horizon only cuts the far end.
		if horizonDays > 0 && o.DueDate.After(cutoff) {
			continue
		}
		c := o.Clone()
		out = append(out, &c)
	}
	sortObligations(out)
	return out, nil
}

func (r *ObligationRepository) ListUnsettled(_ context.Context) ([]*domain.Obligation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Obligation, 0, len(r.byID))
	for _, o := range r.byID {
		if o.Status == domain.StatusSettled {
			continue
		}
		c := o.Clone()
		out = append(out, &c)
	}
	sortObligations(out)
	return out, nil
}

func (r *ObligationRepository) Create(_ context.Context, o *domain.Obligation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[o.ID]; exists {
		return fmt.Errorf("%w: obligation %q", domain.ErrDuplicateEntity, o.ID)
	}
	r.byID[o.ID] = o.Clone()
	return nil
}

func (r *ObligationRepository) UpdateStatus(_ context.Context, id string, status domain.ObligationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: obligation %q", domain.ErrNotFound, id)
	}
	// Settlement is terminal.
	if o.Status == domain.StatusSettled && status != domain.StatusSettled {
		return nil
	}
	o.Status = status
	r.byID[id] = o
	return nil
}

func sortObligations(obs []*domain.Obligation) {
	sort.Slice(obs, func(i, j int) bool {
		if !obs[i].DueDate.Equal(obs[j].DueDate) {
			return obs[i].DueDate.Before(obs[j].DueDate)
		}
		return obs[i].ID < obs[j].ID
	})
}
